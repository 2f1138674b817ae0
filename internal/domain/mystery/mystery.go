// Package mystery defines the Kids Mode puzzle catalog.
// This package is PURE and must NOT import any infrastructure packages.
package mystery

import (
	"fmt"
	"strings"
)

// Answer is a KOI disposition: the ground-truth label of a mystery.
type Answer string

const (
	AnswerConfirmed     Answer = "CONFIRMED"
	AnswerCandidate     Answer = "CANDIDATE"
	AnswerFalsePositive Answer = "FALSE POSITIVE"
)

// Answers lists every valid disposition in display order.
var Answers = []Answer{AnswerConfirmed, AnswerCandidate, AnswerFalsePositive}

// ParseAnswer accepts the exact disposition labels, case-insensitively.
// "FALSE_POSITIVE" is tolerated because it survives URL and form encoding better.
func ParseAnswer(s string) (Answer, error) {
	norm := strings.ToUpper(strings.TrimSpace(s))
	norm = strings.ReplaceAll(norm, "_", " ")
	for _, a := range Answers {
		if string(a) == norm {
			return a, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownAnswer, s)
}

// Valid reports whether a is one of the three dispositions.
func (a Answer) Valid() bool {
	switch a {
	case AnswerConfirmed, AnswerCandidate, AnswerFalsePositive:
		return true
	}
	return false
}

// Difficulty is a display hint only; it does not affect scoring.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "Easy"
	DifficultyMedium Difficulty = "Medium"
	DifficultyHard   Difficulty = "Hard"
)

// Clue keys used by the catalog.
const (
	ClueSize        = "size"
	ClueTemperature = "temperature"
	ClueOrbitTime   = "orbitTime"
	ClueDistance    = "distance"
)

// ClueOrder is the order clues are shown in.
var ClueOrder = []string{ClueSize, ClueTemperature, ClueOrbitTime, ClueDistance}

// Mystery is one immutable catalog entry.
type Mystery struct {
	ID          int               `json:"id" yaml:"id"`
	Title       string            `json:"title" yaml:"title"`
	Description string            `json:"description" yaml:"description"`
	Difficulty  Difficulty        `json:"difficulty" yaml:"difficulty"`
	Icon        string            `json:"icon" yaml:"icon"`
	Clues       map[string]string `json:"clues" yaml:"clues"`
	Answer      Answer            `json:"answer" yaml:"answer"`
	FunFact     string            `json:"funFact" yaml:"funFact"`
	RealExample string            `json:"realExample" yaml:"realExample"`
}

// Clue returns the display value of a named clue.
func (m Mystery) Clue(name string) string {
	return m.Clues[name]
}
