// Package ai - prompts.go
// Prompt for explaining a classification to a general audience.
package ai

import (
	"fmt"
	"sort"
	"strings"
)

// ExplainerSystemPrompt frames the model as a science communicator.
const ExplainerSystemPrompt = `You are an expert in astronomy and exoplanets who explains results to a general audience.
You receive the measured features of a Kepler Object of Interest (KOI) and the verdict of a machine learning classifier.
Explain in plain language, in at most three short paragraphs, why the classifier may have reached its verdict.
Point to the specific features that most likely influenced the decision. Do not invent measurements.`

// FeatureValue is one named measurement; Value is nil when it was not provided.
type FeatureValue struct {
	Name  string
	Value *float64
}

// ExplanationInput is everything the explanation prompt needs.
type ExplanationInput struct {
	Features      []FeatureValue
	Prediction    string
	Probabilities map[string]float64
	// Reference values (typical KOI medians) for comparison.
	Reference map[string]float64
}

// BuildExplanationMessages constructs the chat messages for an explanation.
func BuildExplanationMessages(in ExplanationInput) []Message {
	var sb strings.Builder

	sb.WriteString("## KOI DATA\n\n")
	for _, f := range in.Features {
		if f.Value == nil {
			sb.WriteString(fmt.Sprintf("- %s: not provided\n", f.Name))
			continue
		}
		sb.WriteString(fmt.Sprintf("- %s: %g", f.Name, *f.Value))
		if ref, ok := in.Reference[f.Name]; ok {
			sb.WriteString(fmt.Sprintf(" (typical: %g)", ref))
		}
		sb.WriteString("\n")
	}

	sb.WriteString(fmt.Sprintf("\n## CLASSIFIER VERDICT\n\n%s\n", in.Prediction))
	if len(in.Probabilities) > 0 {
		classes := make([]string, 0, len(in.Probabilities))
		for c := range in.Probabilities {
			classes = append(classes, c)
		}
		sort.Strings(classes)
		sb.WriteString("\nProbabilities:\n")
		for _, c := range classes {
			sb.WriteString(fmt.Sprintf("- %s: %.1f%%\n", c, in.Probabilities[c]))
		}
	}

	sb.WriteString("\n## TASK\n\n")
	sb.WriteString("Explain why the model could have made this classification, based only on the data above.\n")

	return []Message{
		{Role: "system", Content: ExplainerSystemPrompt},
		{Role: "user", Content: sb.String()},
	}
}

// CleanExplanation trims whitespace and strips a wrapping markdown fence.
func CleanExplanation(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```")
		if i := strings.Index(s, "\n"); i >= 0 {
			s = s[i+1:]
		}
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	}
	return strings.TrimSpace(s)
}
