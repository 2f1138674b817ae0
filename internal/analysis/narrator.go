// Package analysis produces the plain-language explanation shown next to a
// classification.
package analysis

import (
	"context"
	"strings"

	"github.com/MRamiBalles/ExoplanetDetective/server/internal/infra/ai"
	"github.com/MRamiBalles/ExoplanetDetective/server/internal/infra/backend"
	"github.com/MRamiBalles/ExoplanetDetective/server/internal/platform/logger"
)

// FallbackNarrative is used when neither the backend nor an LLM explained the result.
const FallbackNarrative = "The transit depth and duration strongly suggest the presence of an exoplanet..."

// Source tells where a narrative came from.
type Source string

const (
	SourceBackend  Source = "backend"
	SourceLLM      Source = "llm"
	SourceFallback Source = "fallback"
)

// Narrative is the explanation attached to a result.
type Narrative struct {
	Text   string `json:"text"`
	Source Source `json:"source"`
}

// Input is a classification to explain.
type Input struct {
	Features        map[string]float64
	Prediction      string
	Probabilities   map[string]float64
	BackendAnalysis string
}

// Narrator picks the best available explanation.
type Narrator struct {
	provider  ai.LLMProvider
	log       *logger.Logger
	maxTokens int
}

// NewNarrator creates a narrator. provider may be nil.
func NewNarrator(provider ai.LLMProvider, log *logger.Logger) *Narrator {
	return &Narrator{provider: provider, log: log, maxTokens: 600}
}

// Explain never fails: LLM errors are logged and the fallback is returned.
func (n *Narrator) Explain(ctx context.Context, in Input) Narrative {
	if text := strings.TrimSpace(in.BackendAnalysis); text != "" {
		return Narrative{Text: text, Source: SourceBackend}
	}

	if n.provider != nil && n.provider.IsAvailable() {
		resp, err := n.provider.Complete(ctx, ai.CompletionRequest{
			Messages:    ai.BuildExplanationMessages(explanationInput(in)),
			MaxTokens:   n.maxTokens,
			Temperature: 0.4,
		})
		if err == nil {
			if text := ai.CleanExplanation(resp.Content); text != "" {
				return Narrative{Text: text, Source: SourceLLM}
			}
		} else {
			n.log.Warn("llm explanation failed", "provider", n.provider.Name(), "error", err)
		}
	}

	return Narrative{Text: FallbackNarrative, Source: SourceFallback}
}

func explanationInput(in Input) ai.ExplanationInput {
	feats := make([]ai.FeatureValue, 0, len(backend.FeatureColumns))
	for _, name := range backend.FeatureColumns {
		fv := ai.FeatureValue{Name: name}
		if v, ok := in.Features[name]; ok {
			v := v
			fv.Value = &v
		}
		feats = append(feats, fv)
	}
	return ai.ExplanationInput{
		Features:      feats,
		Prediction:    in.Prediction,
		Probabilities: in.Probabilities,
		Reference:     backend.FeatureMedians,
	}
}
