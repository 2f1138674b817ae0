package engine

import (
	"github.com/MRamiBalles/ExoplanetDetective/server/internal/domain/mystery"
	"github.com/MRamiBalles/ExoplanetDetective/server/internal/domain/reward"
)

// Card is a mystery as shown before it is judged: no answer, no fun fact.
type Card struct {
	ID          int                `json:"id"`
	Title       string             `json:"title"`
	Description string             `json:"description"`
	Difficulty  mystery.Difficulty `json:"difficulty"`
	Icon        string             `json:"icon"`
	Clues       map[string]string  `json:"clues"`
	Completed   bool               `json:"completed"`
}

func newCard(m mystery.Mystery, completed bool) Card {
	clues := make(map[string]string, len(m.Clues))
	for k, v := range m.Clues {
		clues[k] = v
	}
	return Card{
		ID:          m.ID,
		Title:       m.Title,
		Description: m.Description,
		Difficulty:  m.Difficulty,
		Icon:        m.Icon,
		Clues:       clues,
		Completed:   completed,
	}
}

// RewardView is one shop entry with its lock state.
type RewardView struct {
	reward.Definition
	Unlocked   bool `json:"unlocked"`
	Affordable bool `json:"affordable"`
}

// View is everything a screen needs to render.
type View struct {
	Session    Session          `json:"session"`
	ShowResult bool             `json:"showResult"`
	SetSize    int              `json:"setSize"`
	Current    []Card           `json:"currentMysteries"`
	Available  []Card           `json:"availableMysteries"`
	Selected   *Card            `json:"selectedMystery,omitempty"`
	Result     *Judgement       `json:"result,omitempty"`
	Rewards    []RewardView     `json:"rewards"`
	Answers    []mystery.Answer `json:"answers"`
}

// View returns a snapshot of the session resolved against the catalog. The
// correct answer of the selected mystery appears only once it is judged.
func (e *Engine) View() View {
	e.mu.Lock()
	defer e.mu.Unlock()

	s := e.session.Clone()
	v := View{
		Session:    s,
		ShowResult: s.ShowResult(),
		SetSize:    len(s.CurrentSet),
		Current:    make([]Card, 0, len(s.CurrentSet)),
		Available:  make([]Card, 0, len(s.CurrentSet)),
		Rewards:    make([]RewardView, 0, len(reward.Kinds)),
		Answers:    mystery.Answers,
	}

	for _, id := range s.CurrentSet {
		m, ok := e.catalog.Get(id)
		if !ok {
			continue
		}
		done := s.IsCompleted(id)
		v.Current = append(v.Current, newCard(m, done))
		if !done {
			v.Available = append(v.Available, newCard(m, false))
		}
	}

	if m, ok := e.selected(s); ok {
		card := newCard(m, false)
		v.Selected = &card
		if s.Guess != nil {
			j := Judge(m, *s.Guess)
			v.Result = &j
		}
	}

	for _, k := range reward.Kinds {
		def := reward.Registry[k]
		v.Rewards = append(v.Rewards, RewardView{
			Definition: def,
			Unlocked:   s.Unlocks.Has(k),
			Affordable: s.Points >= def.Cost,
		})
	}
	return v
}
