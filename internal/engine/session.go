package engine

import (
	"encoding/json"
	"fmt"
	"reflect"
	"slices"

	"github.com/MRamiBalles/ExoplanetDetective/server/internal/domain/mystery"
	"github.com/MRamiBalles/ExoplanetDetective/server/internal/domain/reward"
)

// Step is the screen the explorer is on.
type Step string

const (
	StepMainMenu    Step = "mainMenu"
	StepMysteries   Step = "mysteries"
	StepInvestigate Step = "investigate"
	StepLearn       Step = "learn"
	StepRewards     Step = "rewards"
)

// ParseStep validates a step name.
func ParseStep(s string) (Step, error) {
	st := Step(s)
	if !st.Valid() {
		return "", fmt.Errorf("%w: unknown step %q", ErrInvalidTransition, s)
	}
	return st, nil
}

// Valid reports whether s is a known screen.
func (s Step) Valid() bool {
	switch s {
	case StepMainMenu, StepMysteries, StepInvestigate, StepLearn, StepRewards:
		return true
	}
	return false
}

// Persisted keys, one per session field.
const (
	KeyStep            = "kidsModeStep"
	KeyPoints          = "kidsModePoints"
	KeyDiscoveries     = "kidsModeDiscoveries"
	KeyClue            = "kidsModeClue"
	KeyTheme           = "kidsModeTheme"
	KeyAstronaut       = "kidsModeAstronaut"
	KeyUFO             = "kidsModeUFO"
	KeyRocketCompanion = "kidsModeRocketComp"
	KeyAlien           = "kidsModeAlien"
	KeyStar            = "kidsModeStar"
	KeyCompletedIDs    = "kidsModeCompletedIds"
	KeyCurrentSet      = "kidsModeCurrentSet"
	KeySelectedID      = "kidsModeSelectedId"
	KeyGuess           = "kidsModeGuess"
)

// Session is the mutable, persisted Kids Mode state.
type Session struct {
	Step         Step            `json:"step"`
	Points       int             `json:"points"`
	Discoveries  int             `json:"discoveries"`
	CurrentSet   []int           `json:"currentSet"`
	CompletedIDs []int           `json:"completedIds"`
	SelectedID   *int            `json:"selectedId"`
	Guess        *mystery.Answer `json:"guess"`
	Unlocks      reward.Unlocks  `json:"unlocks"`
}

// DefaultSession is the state of a brand-new explorer. The mystery set is
// filled in by the engine.
func DefaultSession() Session {
	return Session{
		Step:         StepMainMenu,
		CurrentSet:   []int{},
		CompletedIDs: []int{},
	}
}

// ShowResult reports whether the selected mystery has been judged.
func (s Session) ShowResult() bool {
	return s.Guess != nil
}

// IsCompleted reports whether id was completed in the current set.
func (s Session) IsCompleted(id int) bool {
	return slices.Contains(s.CompletedIDs, id)
}

// Clone returns a deep copy.
func (s Session) Clone() Session {
	out := s
	out.CurrentSet = slices.Clone(s.CurrentSet)
	out.CompletedIDs = slices.Clone(s.CompletedIDs)
	if s.SelectedID != nil {
		id := *s.SelectedID
		out.SelectedID = &id
	}
	if s.Guess != nil {
		g := *s.Guess
		out.Guess = &g
	}
	if out.CurrentSet == nil {
		out.CurrentSet = []int{}
	}
	if out.CompletedIDs == nil {
		out.CompletedIDs = []int{}
	}
	return out
}

func (s *Session) clearInvestigation() {
	s.SelectedID = nil
	s.Guess = nil
}

// Fields encodes every field as its own JSON document, keyed for storage.
func (s Session) Fields() (map[string]string, error) {
	values := map[string]interface{}{
		KeyStep:            s.Step,
		KeyPoints:          s.Points,
		KeyDiscoveries:     s.Discoveries,
		KeyClue:            s.Unlocks.Clue,
		KeyTheme:           s.Unlocks.Theme,
		KeyAstronaut:       s.Unlocks.Astronaut,
		KeyUFO:             s.Unlocks.UFO,
		KeyRocketCompanion: s.Unlocks.RocketCompanion,
		KeyAlien:           s.Unlocks.Alien,
		KeyStar:            s.Unlocks.Star,
		KeyCompletedIDs:    nonNil(s.CompletedIDs),
		KeyCurrentSet:      nonNil(s.CurrentSet),
		KeySelectedID:      s.SelectedID,
		KeyGuess:           s.Guess,
	}
	fields := make(map[string]string, len(values))
	for k, v := range values {
		b, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", k, err)
		}
		fields[k] = string(b)
	}
	return fields, nil
}

// DecodeSession rebuilds a session from stored fields. Each field is decoded
// independently; absent or unreadable fields take their default.
func DecodeSession(raw map[string]string) Session {
	s := DefaultSession()

	s.Step = decodeField(raw, KeyStep, StepMainMenu)
	if !s.Step.Valid() {
		s.Step = StepMainMenu
	}
	s.Points = max(decodeField(raw, KeyPoints, 0), 0)
	s.Discoveries = max(decodeField(raw, KeyDiscoveries, 0), 0)

	s.Unlocks = reward.Unlocks{
		Clue:            decodeField(raw, KeyClue, false),
		Theme:           decodeField(raw, KeyTheme, false),
		Astronaut:       decodeField(raw, KeyAstronaut, false),
		UFO:             decodeField(raw, KeyUFO, false),
		RocketCompanion: decodeField(raw, KeyRocketCompanion, false),
		Alien:           decodeField(raw, KeyAlien, false),
		Star:            decodeField(raw, KeyStar, false),
	}

	s.CompletedIDs = nonNil(decodeField[[]int](raw, KeyCompletedIDs, nil))
	s.CurrentSet = nonNil(decodeField[[]int](raw, KeyCurrentSet, nil))
	s.SelectedID = decodeField[*int](raw, KeySelectedID, nil)
	s.Guess = decodeField[*mystery.Answer](raw, KeyGuess, nil)
	if s.Guess != nil && !s.Guess.Valid() {
		s.Guess = nil
	}
	return s
}

// decodeField reads one stored value. Order of attempts: JSON, then the bare
// strings "true"/"false" as booleans, then the raw string itself. A value that
// still does not fit T yields def.
func decodeField[T any](raw map[string]string, key string, def T) T {
	stored, ok := raw[key]
	if !ok {
		return def
	}

	var v T
	if err := json.Unmarshal([]byte(stored), &v); err == nil {
		return v
	}

	var legacy interface{} = stored
	switch stored {
	case "true":
		legacy = true
	case "false":
		legacy = false
	}

	target := reflect.ValueOf(&v).Elem()
	lv := reflect.ValueOf(legacy)
	switch {
	case lv.Kind() == reflect.Bool && target.Kind() == reflect.Bool:
		target.SetBool(lv.Bool())
		return v
	case lv.Kind() == reflect.String && target.Kind() == reflect.String:
		target.SetString(lv.String())
		return v
	}
	return def
}

func nonNil(ids []int) []int {
	if ids == nil {
		return []int{}
	}
	return ids
}
