// Package reward defines the Kids Mode reward shop: kinds, costs and unlock flags.
// This package is PURE and must NOT import any infrastructure packages.
package reward

import (
	"errors"
	"fmt"
	"strings"
)

// Kind identifies a redeemable reward.
type Kind string

const (
	KindClue            Kind = "clue"
	KindTheme           Kind = "theme"
	KindAstronaut       Kind = "astronaut"
	KindUFO             Kind = "ufo"
	KindRocketCompanion Kind = "rocketCompanion"
	KindAlien           Kind = "alien"
	KindStar            Kind = "star"
)

// Cost constants. UFO and Star intentionally share StarCost.
const (
	ClueCost        = 50
	ThemeCost       = 200
	SuitCost        = 150
	AlienCost       = 125
	ThemeRocketCost = 200
	StarCost        = 100
)

var ErrUnknownKind = errors.New("unknown reward kind")

// Definition describes one reward in the shop.
type Definition struct {
	Kind         Kind   `json:"kind"`
	Name         string `json:"name"`
	Cost         int    `json:"cost"`
	Confirmation string `json:"confirmation"`
}

// Kinds lists rewards in shop order.
var Kinds = []Kind{KindClue, KindTheme, KindAstronaut, KindUFO, KindAlien, KindRocketCompanion, KindStar}

// Registry contains every reward and its properties.
var Registry = map[Kind]Definition{
	KindClue: {
		Kind:         KindClue,
		Name:         "Detective Clues",
		Cost:         ClueCost,
		Confirmation: "✨ Clues unlocked! You can use one in your next mission.",
	},
	KindTheme: {
		Kind:         KindTheme,
		Name:         "Rocket Theme",
		Cost:         ThemeCost,
		Confirmation: "🚀 New rocket theme unlocked! Check the mysteries screen.",
	},
	KindAstronaut: {
		Kind:         KindAstronaut,
		Name:         "Astronaut Buddy",
		Cost:         SuitCost,
		Confirmation: "🧑‍🚀 Astronaut buddy unlocked! Check the main screen!",
	},
	KindUFO: {
		Kind:         KindUFO,
		Name:         "UFO Friend",
		Cost:         StarCost,
		Confirmation: "🛸 Alien contact! The UFO joins the crew!",
	},
	KindRocketCompanion: {
		Kind:         KindRocketCompanion,
		Name:         "Personal Rocket",
		Cost:         ThemeRocketCost,
		Confirmation: "🚀 Liftoff! A personal rocket joins Kepler!",
	},
	KindAlien: {
		Kind:         KindAlien,
		Name:         "Friendly Alien",
		Cost:         AlienCost,
		Confirmation: "👽 Friendly alien unlocked! A new explorer has arrived!",
	},
	KindStar: {
		Kind:         KindStar,
		Name:         "Golden Stars",
		Cost:         StarCost,
		Confirmation: "🌟 Golden stars unlocked! Kepler has new effects!",
	},
}

// InsufficientPointsMessage is shown when a redemption is denied for lack of points.
const InsufficientPointsMessage = "🚨 Not enough points! Solve more mysteries to redeem."

// Parse resolves a reward kind from user input. Matching is case-insensitive.
func Parse(s string) (Kind, error) {
	trimmed := strings.TrimSpace(s)
	for _, k := range Kinds {
		if strings.EqualFold(string(k), trimmed) {
			return k, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
}

// Lookup returns the definition of k.
func Lookup(k Kind) (Definition, error) {
	def, ok := Registry[k]
	if !ok {
		return Definition{}, fmt.Errorf("%w: %q", ErrUnknownKind, k)
	}
	return def, nil
}

// Unlocks holds the seven one-way unlock flags.
type Unlocks struct {
	Clue            bool `json:"clue"`
	Theme           bool `json:"theme"`
	Astronaut       bool `json:"astronaut"`
	UFO             bool `json:"ufo"`
	RocketCompanion bool `json:"rocketCompanion"`
	Alien           bool `json:"alien"`
	Star            bool `json:"star"`
}

// Has reports whether k is unlocked.
func (u Unlocks) Has(k Kind) bool {
	if p := u.flag(k); p != nil {
		return *p
	}
	return false
}

// Unlock sets the flag for k. Flags are never cleared.
func (u *Unlocks) Unlock(k Kind) error {
	p := u.flag(k)
	if p == nil {
		return fmt.Errorf("%w: %q", ErrUnknownKind, k)
	}
	*p = true
	return nil
}

func (u *Unlocks) flag(k Kind) *bool {
	switch k {
	case KindClue:
		return &u.Clue
	case KindTheme:
		return &u.Theme
	case KindAstronaut:
		return &u.Astronaut
	case KindUFO:
		return &u.UFO
	case KindRocketCompanion:
		return &u.RocketCompanion
	case KindAlien:
		return &u.Alien
	case KindStar:
		return &u.Star
	}
	return nil
}
