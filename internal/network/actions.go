package network

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/MRamiBalles/ExoplanetDetective/server/internal/domain/mystery"
	"github.com/MRamiBalles/ExoplanetDetective/server/internal/domain/reward"
	"github.com/MRamiBalles/ExoplanetDetective/server/internal/engine"
	"github.com/MRamiBalles/ExoplanetDetective/server/internal/httpapi/response"
)

// Action types accepted from clients.
const (
	ActionStart    = "START"
	ActionSelect   = "SELECT"
	ActionGuess    = "GUESS"
	ActionNext     = "NEXT"
	ActionNavigate = "NAVIGATE"
	ActionMenu     = "MENU"
	ActionRedeem   = "REDEEM"
	ActionHint     = "HINT"
	ActionState    = "STATE"
	ActionHistory  = "HISTORY"
)

// Message types sent to clients.
const (
	MsgResult = "RESULT"
	MsgError  = "ERROR"
	MsgEvent  = "EVENT"
	MsgState  = "STATE"
)

// Action is an incoming command from a screen.
type Action struct {
	Type      string          `json:"type"`
	RequestID string          `json:"request_id,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

// Message is anything the server writes to a client.
type Message struct {
	Type      string              `json:"type"`
	Action    string              `json:"action,omitempty"`
	RequestID string              `json:"request_id,omitempty"`
	Data      interface{}         `json:"data,omitempty"`
	Error     *response.ErrorBody `json:"error,omitempty"`
}

type selectPayload struct {
	MysteryID int `json:"mystery_id"`
}

type guessPayload struct {
	Guess string `json:"guess"`
}

type navigatePayload struct {
	Step string `json:"step"`
}

type redeemPayload struct {
	Kind string `json:"kind"`
}

// HintResult is the RESULT data of a HINT action.
type HintResult struct {
	Hint string `json:"hint"`
}

func decodePayload(raw json.RawMessage, dst interface{}) error {
	if len(raw) == 0 {
		return fmt.Errorf("%w: missing payload", response.ErrBadRequest)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("%w: %v", response.ErrBadRequest, err)
	}
	return nil
}

// Dispatch runs a on the game and builds the direct reply.
func (h *Hub) Dispatch(ctx context.Context, a Action) Message {
	data, err := h.Execute(ctx, a)
	if err != nil {
		_, body := response.Body(err)
		return Message{Type: MsgError, Action: a.Type, RequestID: a.RequestID, Error: &body}
	}
	return Message{Type: MsgResult, Action: a.Type, RequestID: a.RequestID, Data: data}
}

// Execute runs a on the game and returns its result data.
func (h *Hub) Execute(ctx context.Context, a Action) (interface{}, error) {
	g := h.game
	switch a.Type {
	case ActionStart:
		if err := g.StartAdventure(ctx); err != nil {
			return nil, err
		}
		return g.View(), nil
	case ActionSelect:
		var p selectPayload
		if err := decodePayload(a.Payload, &p); err != nil {
			return nil, err
		}
		if err := g.SelectMystery(ctx, p.MysteryID); err != nil {
			return nil, err
		}
		return g.View(), nil
	case ActionGuess:
		var p guessPayload
		if err := decodePayload(a.Payload, &p); err != nil {
			return nil, err
		}
		guess, err := mystery.ParseAnswer(p.Guess)
		if err != nil {
			return nil, err
		}
		return g.SubmitGuess(ctx, guess)
	case ActionNext:
		return g.SolveAnother(ctx)
	case ActionNavigate:
		var p navigatePayload
		if err := decodePayload(a.Payload, &p); err != nil {
			return nil, err
		}
		step, err := engine.ParseStep(p.Step)
		if err != nil {
			return nil, err
		}
		if err := g.Navigate(ctx, step); err != nil {
			return nil, err
		}
		return g.View(), nil
	case ActionMenu:
		if err := g.MainMenu(ctx); err != nil {
			return nil, err
		}
		return g.View(), nil
	case ActionRedeem:
		var p redeemPayload
		if err := decodePayload(a.Payload, &p); err != nil {
			return nil, err
		}
		kind, err := reward.Parse(p.Kind)
		if err != nil {
			return nil, err
		}
		return g.Redeem(ctx, kind)
	case ActionHint:
		hint, err := g.UseHint(ctx)
		if err != nil {
			return nil, err
		}
		return HintResult{Hint: hint}, nil
	case ActionState:
		return g.View(), nil
	case ActionHistory:
		var f ReplayFilter
		if len(a.Payload) > 0 {
			if err := decodePayload(a.Payload, &f); err != nil {
				return nil, err
			}
		}
		return BuildReplay(h.eventLog, g.SessionID(), f), nil
	default:
		return nil, fmt.Errorf("%w: unknown action type %q", response.ErrBadRequest, a.Type)
	}
}
