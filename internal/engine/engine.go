package engine

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/MRamiBalles/ExoplanetDetective/server/internal/domain/mystery"
	"github.com/MRamiBalles/ExoplanetDetective/server/internal/events"
	"github.com/MRamiBalles/ExoplanetDetective/server/internal/platform/logger"
	"github.com/MRamiBalles/ExoplanetDetective/server/internal/platform/metrics"
)

// SetSize is the number of mysteries offered at once.
const SetSize = 4

// RotationMessage is shown when a finished set is replaced.
const RotationMessage = "🎉 Congratulations! You solved every mystery. Loading a new set of mysteries..."

var (
	ErrInvalidTransition  = errors.New("invalid transition")
	ErrMysteryUnavailable = errors.New("mystery not available")
	ErrAlreadyJudged      = errors.New("guess already judged")
	ErrNotJudged          = errors.New("guess not judged yet")
	ErrClueLocked         = errors.New("clue reward not unlocked")
)

// Store is the key-addressed durable store behind a session. SaveFields must
// write all fields atomically.
type Store interface {
	LoadFields(ctx context.Context, sessionID string) (map[string]string, error)
	SaveFields(ctx context.Context, sessionID string, fields map[string]string) error
}

// Option configures an Engine.
type Option func(*Engine)

// WithSampler replaces the random sampler.
func WithSampler(s Sampler) Option {
	return func(e *Engine) { e.sampler = s }
}

// WithEventLog attaches the progression event log.
func WithEventLog(el *events.EventLog) Option {
	return func(e *Engine) { e.eventLog = el }
}

// WithMetrics replaces the global collector.
func WithMetrics(c *metrics.Collector) Option {
	return func(e *Engine) { e.metrics = c }
}

// WithSetSize overrides SetSize.
func WithSetSize(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.setSize = n
		}
	}
}

// Engine owns one explorer's Kids Mode session. All operations are
// serialized; the HTTP API and the websocket hub share the same instance.
type Engine struct {
	mu        sync.Mutex
	sessionID string
	catalog   *mystery.Catalog
	store     Store
	sampler   Sampler
	eventLog  *events.EventLog
	logger    *logger.Logger
	metrics   *metrics.Collector
	setSize   int

	session Session
}

// New loads the session from store, repairs it against the catalog and
// persists the repair if anything changed.
func New(ctx context.Context, sessionID string, catalog *mystery.Catalog, store Store, log *logger.Logger, opts ...Option) (*Engine, error) {
	if catalog == nil || catalog.Len() == 0 {
		return nil, errors.New("engine: empty mystery catalog")
	}
	e := &Engine{
		sessionID: sessionID,
		catalog:   catalog,
		store:     store,
		sampler:   NewRandomSampler(),
		logger:    log,
		metrics:   metrics.Get(),
		setSize:   SetSize,
	}
	if e.logger == nil {
		e.logger = logger.NewNop()
	}
	for _, opt := range opts {
		opt(e)
	}

	raw, err := store.LoadFields(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("load session %s: %w", sessionID, err)
	}
	loaded := DecodeSession(raw)
	e.session = loaded

	m := &mutation{Session: loaded.Clone()}
	e.repair(m)
	if changed, err := e.commit(ctx, m); err != nil {
		return nil, err
	} else if changed {
		e.logger.Info("Session repaired on load", "session", sessionID)
	}
	return e, nil
}

// SessionID returns the id the engine persists under.
func (e *Engine) SessionID() string {
	return e.sessionID
}

// Session returns a copy of the current state.
func (e *Engine) Session() Session {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.session.Clone()
}

// mutation is a working copy of the session plus the events it will emit once
// it has been persisted.
type mutation struct {
	Session
	pending []events.GameEvent
}

func (m *mutation) emit(t events.EventType, payload interface{}) {
	m.pending = append(m.pending, events.GameEvent{Type: t, Payload: payload})
}

func (m *mutation) moveTo(to Step) {
	if m.Step == to {
		return
	}
	m.emit(events.EventTypeStepChanged, events.StepPayload{From: string(m.Step), To: string(to)})
	m.Step = to
}

// apply runs fn on a copy of the session, self-corrects the result and
// persists it. On any failure the live session is left untouched.
func (e *Engine) apply(ctx context.Context, fn func(m *mutation) error) error {
	m := &mutation{Session: e.session.Clone()}
	e.repair(m)
	if err := fn(m); err != nil {
		return err
	}
	e.repair(m)
	_, err := e.commit(ctx, m)
	return err
}

// commit persists m if it differs from the live session, then publishes its
// events and counts rotations. It reports whether anything was written.
func (e *Engine) commit(ctx context.Context, m *mutation) (bool, error) {
	next, err := m.Session.Fields()
	if err != nil {
		return false, err
	}
	prev, err := e.session.Fields()
	if err != nil {
		return false, err
	}

	changed := !maps.Equal(prev, next)
	if changed {
		start := time.Now()
		err := e.store.SaveFields(ctx, e.sessionID, next)
		e.metrics.RecordStoreWrite(time.Since(start), err)
		if err != nil {
			e.logger.Error("Session save failed; rolled back", "session", e.sessionID, "error", err)
			return false, fmt.Errorf("save session %s: %w", e.sessionID, err)
		}
		e.session = m.Session
	}

	for _, ev := range m.pending {
		if ev.Type == events.EventTypeMysterySetRotated {
			e.metrics.RecordRotation()
		}
		ev.SessionID = e.sessionID
		if e.eventLog != nil {
			ev = e.eventLog.Append(ev)
		}
		e.logger.Event(string(ev.Type), e.sessionID, fmt.Sprintf("%+v", ev.Payload))
	}
	return changed, nil
}

// repair enforces the session invariants: a valid set drawn from the catalog,
// completed ids inside it, investigate only with a selection, and rotation of
// a finished set.
func (e *Engine) repair(m *mutation) {
	want := min(e.setSize, e.catalog.Len())
	if !e.validSet(m.CurrentSet, want) {
		m.CurrentSet = e.sample(want)
		m.CompletedIDs = []int{}
		m.clearInvestigation()
	}

	completed := make([]int, 0, len(m.CompletedIDs))
	for _, id := range m.CompletedIDs {
		if slices.Contains(m.CurrentSet, id) && !slices.Contains(completed, id) {
			completed = append(completed, id)
		}
	}
	m.CompletedIDs = completed

	if m.SelectedID != nil {
		id := *m.SelectedID
		if !slices.Contains(m.CurrentSet, id) || m.IsCompleted(id) {
			m.clearInvestigation()
		}
	}
	if m.SelectedID == nil {
		m.Guess = nil
		if m.Step == StepInvestigate {
			m.Step = StepMysteries
		}
	}
	if m.Step != StepInvestigate {
		m.clearInvestigation()
	}

	e.rotate(m)
}

func (e *Engine) validSet(ids []int, want int) bool {
	if len(ids) != want {
		return false
	}
	seen := make(map[int]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			return false
		}
		if _, ok := e.catalog.Get(id); !ok {
			return false
		}
		seen[id] = true
	}
	return true
}

// rotate replaces a fully completed set. A catalog no bigger than the set has
// nothing new to offer, so the finished set stays.
func (e *Engine) rotate(m *mutation) {
	if len(m.CompletedIDs) < len(m.CurrentSet) || e.catalog.Len() <= e.setSize {
		return
	}
	m.CompletedIDs = []int{}
	m.CurrentSet = e.sample(min(e.setSize, e.catalog.Len()))
	m.emit(events.EventTypeMysterySetRotated, events.RotationPayload{
		NewSet:  slices.Clone(m.CurrentSet),
		Message: RotationMessage,
	})
}

func (e *Engine) sample(n int) []int {
	picked := e.sampler.Sample(e.catalog.All(), n)
	ids := make([]int, len(picked))
	for i, p := range picked {
		ids[i] = p.ID
	}
	return ids
}

func (e *Engine) selected(s Session) (mystery.Mystery, bool) {
	if s.SelectedID == nil {
		return mystery.Mystery{}, false
	}
	return e.catalog.Get(*s.SelectedID)
}

// StartAdventure leaves the main menu for the mystery list.
func (e *Engine) StartAdventure(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.apply(ctx, func(m *mutation) error {
		if m.Step != StepMainMenu {
			return fmt.Errorf("%w: start from %s", ErrInvalidTransition, m.Step)
		}
		m.moveTo(StepMysteries)
		return nil
	})
}

// SelectMystery opens the investigate screen for an available mystery.
func (e *Engine) SelectMystery(ctx context.Context, id int) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.apply(ctx, func(m *mutation) error {
		if m.Step != StepMysteries {
			return fmt.Errorf("%w: select from %s", ErrInvalidTransition, m.Step)
		}
		if !slices.Contains(m.CurrentSet, id) || m.IsCompleted(id) {
			return fmt.Errorf("%w: %d", ErrMysteryUnavailable, id)
		}
		mys, _ := e.catalog.Get(id)
		m.SelectedID = &id
		m.Guess = nil
		m.moveTo(StepInvestigate)
		m.emit(events.EventTypeMysterySelected, events.MysteryPayload{MysteryID: id, Title: mys.Title})
		return nil
	})
}

// SubmitGuess judges a guess for the selected mystery and awards points.
func (e *Engine) SubmitGuess(ctx context.Context, guess mystery.Answer) (Judgement, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !guess.Valid() {
		return Judgement{}, fmt.Errorf("%w: %q", mystery.ErrUnknownAnswer, guess)
	}

	var j Judgement
	err := e.apply(ctx, func(m *mutation) error {
		if m.Step != StepInvestigate {
			return fmt.Errorf("%w: guess from %s", ErrInvalidTransition, m.Step)
		}
		if m.Guess != nil {
			return ErrAlreadyJudged
		}
		mys, ok := e.selected(m.Session)
		if !ok {
			return fmt.Errorf("%w: no mystery selected", ErrInvalidTransition)
		}

		j = Judge(mys, guess)
		m.Points += j.PointsAwarded
		if j.Discovery {
			m.Discoveries++
		}
		g := guess
		m.Guess = &g
		m.emit(events.EventTypeGuessJudged, events.GuessPayload{
			MysteryID:     mys.ID,
			Title:         mys.Title,
			Guess:         string(guess),
			Answer:        string(mys.Answer),
			Correct:       j.Correct,
			PointsAwarded: j.PointsAwarded,
			Points:        m.Points,
		})
		return nil
	})
	if err != nil {
		return Judgement{}, err
	}
	e.metrics.RecordGuess(j.Correct)
	return j, nil
}

// Advance reports what happened when a mystery was closed.
type Advance struct {
	CompletedID int    `json:"completedId"`
	Rotated     bool   `json:"rotated"`
	Message     string `json:"message,omitempty"`
}

// SolveAnother completes the judged mystery and returns to the list,
// rotating the set when it is finished.
func (e *Engine) SolveAnother(ctx context.Context) (Advance, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	var adv Advance
	err := e.apply(ctx, func(m *mutation) error {
		if m.Step != StepInvestigate {
			return fmt.Errorf("%w: next from %s", ErrInvalidTransition, m.Step)
		}
		if m.Guess == nil {
			return ErrNotJudged
		}
		mys, _ := e.selected(m.Session)
		adv.CompletedID = mys.ID

		m.CompletedIDs = append(m.CompletedIDs, mys.ID)
		m.emit(events.EventTypeMysteryCompleted, events.MysteryPayload{MysteryID: mys.ID, Title: mys.Title})
		m.moveTo(StepMysteries)

		before := len(m.pending)
		e.repair(m)
		if len(m.pending) > before {
			adv.Rotated = true
			adv.Message = RotationMessage
		}
		return nil
	})
	if err != nil {
		return Advance{}, err
	}
	return adv, nil
}

var transitions = map[Step][]Step{
	StepMainMenu:  {StepMysteries},
	StepMysteries: {StepLearn, StepRewards},
	StepLearn:     {StepMysteries},
	StepRewards:   {StepMysteries},
}

// Navigate moves between the list, learn and rewards screens. Navigating to
// the main menu is always allowed; investigate is only entered through
// SelectMystery.
func (e *Engine) Navigate(ctx context.Context, to Step) error {
	if to == StepMainMenu {
		return e.MainMenu(ctx)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	return e.apply(ctx, func(m *mutation) error {
		if !slices.Contains(transitions[m.Step], to) {
			return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, m.Step, to)
		}
		m.moveTo(to)
		return nil
	})
}

// MainMenu returns to the main menu from anywhere, abandoning any
// investigation in progress.
func (e *Engine) MainMenu(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.apply(ctx, func(m *mutation) error {
		m.clearInvestigation()
		m.moveTo(StepMainMenu)
		return nil
	})
}

// UseHint reveals the size clue of the selected mystery. Requires the clue
// reward; the flag stays set.
func (e *Engine) UseHint(ctx context.Context) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	var hint string
	err := e.apply(ctx, func(m *mutation) error {
		if m.Step != StepInvestigate {
			return fmt.Errorf("%w: hint from %s", ErrInvalidTransition, m.Step)
		}
		if !m.Unlocks.Clue {
			return ErrClueLocked
		}
		mys, _ := e.selected(m.Session)
		hint = fmt.Sprintf("HINT: The planet's size is %s.", mys.Clue(mystery.ClueSize))
		m.emit(events.EventTypeHintUsed, events.MysteryPayload{MysteryID: mys.ID, Title: mys.Title, Detail: hint})
		return nil
	})
	if err != nil {
		return "", err
	}
	e.metrics.RecordHint()
	return hint, nil
}
