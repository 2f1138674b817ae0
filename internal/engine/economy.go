package engine

import (
	"context"
	"fmt"

	"github.com/MRamiBalles/ExoplanetDetective/server/internal/domain/mystery"
	"github.com/MRamiBalles/ExoplanetDetective/server/internal/domain/reward"
	"github.com/MRamiBalles/ExoplanetDetective/server/internal/events"
)

// PointsPerCorrectGuess is awarded for every correct answer.
const PointsPerCorrectGuess = 100

// Judgement is the outcome of one guess.
type Judgement struct {
	MysteryID     int            `json:"mysteryId"`
	Guess         mystery.Answer `json:"guess"`
	Correct       bool           `json:"correct"`
	CorrectAnswer mystery.Answer `json:"correctAnswer"`
	FunFact       string         `json:"funFact"`
	PointsAwarded int            `json:"pointsAwarded"`
	Discovery     bool           `json:"discovery"`
}

// Judge scores a guess against a mystery without touching any state.
// Only a correct CONFIRMED answer counts as a discovery.
func Judge(m mystery.Mystery, guess mystery.Answer) Judgement {
	j := Judgement{
		MysteryID:     m.ID,
		Guess:         guess,
		Correct:       guess == m.Answer,
		CorrectAnswer: m.Answer,
		FunFact:       m.FunFact,
	}
	if j.Correct {
		j.PointsAwarded = PointsPerCorrectGuess
		j.Discovery = guess == mystery.AnswerConfirmed
	}
	return j
}

// Denial reasons.
const (
	ReasonInsufficientPoints = "insufficient_points"
	ReasonAlreadyUnlocked    = "already_unlocked"
)

const alreadyUnlockedMessage = "✅ You already have this reward!"

// Redemption is the outcome of a redeem request. A denial is not an error.
// Both denials are no-ops: Reason is insufficient_points when the balance is
// short and already_unlocked for a second redeem of the same kind. Neither
// spends points or writes the session.
type Redemption struct {
	Kind     reward.Kind `json:"kind"`
	Unlocked bool        `json:"unlocked"`
	Reason   string      `json:"reason,omitempty"`
	Message  string      `json:"message"`
	Cost     int         `json:"cost"`
	Points   int         `json:"points"`
}

// Redeem spends points on a reward. Insufficient points and an existing
// unlock leave the session unchanged.
func (e *Engine) Redeem(ctx context.Context, kind reward.Kind) (Redemption, error) {
	def, err := reward.Lookup(kind)
	if err != nil {
		return Redemption{}, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	var r Redemption
	err = e.apply(ctx, func(m *mutation) error {
		r = Redemption{Kind: kind, Cost: def.Cost, Points: m.Points}
		switch {
		case m.Unlocks.Has(kind):
			r.Reason = ReasonAlreadyUnlocked
			r.Message = alreadyUnlockedMessage
			return nil
		case m.Points < def.Cost:
			r.Reason = ReasonInsufficientPoints
			r.Message = reward.InsufficientPointsMessage
			m.emit(events.EventTypeRewardDenied, events.RewardPayload{
				Kind: string(kind), Cost: def.Cost, Points: m.Points, Reason: r.Reason, Message: r.Message,
			})
			return nil
		}

		if err := m.Unlocks.Unlock(kind); err != nil {
			return err
		}
		m.Points -= def.Cost
		r.Unlocked = true
		r.Points = m.Points
		r.Message = def.Confirmation
		m.emit(events.EventTypeRewardRedeemed, events.RewardPayload{
			Kind: string(kind), Cost: def.Cost, Points: m.Points, Message: r.Message,
		})
		return nil
	})
	if err != nil {
		return Redemption{}, fmt.Errorf("redeem %s: %w", kind, err)
	}
	if r.Reason != ReasonAlreadyUnlocked {
		e.metrics.RecordRedemption(r.Unlocked)
	}
	return r, nil
}
