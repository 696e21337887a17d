package agent

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Blynx-ai/blynx-backend/internal/model"
)

// promptRecorder captures the prompt each step renders.
type promptRecorder struct {
	prompt string
	out    model.Payload
	err    error
}

func (r *promptRecorder) GenerateStructured(ctx context.Context, prompt string) (model.Payload, error) {
	r.prompt = prompt
	return r.out, r.err
}

func TestAnalyzeBusinessContext(t *testing.T) {
	rec := &promptRecorder{out: model.Payload{"industry_context": "b2b saas"}}
	business := model.Business{Name: "Acme Corp", IndustryType: "saas", CustomerType: "b2b"}

	out, err := AnalyzeBusinessContext(context.Background(), rec, business)
	require.NoError(t, err)
	assert.Equal(t, "b2b saas", out["industry_context"])
	assert.Contains(t, rec.prompt, "Acme Corp")
	assert.Contains(t, rec.prompt, "saas")
}

func TestStepsEmbedInputContext(t *testing.T) {
	type stepFunc func(context.Context, Generator, model.Payload) (model.Payload, error)

	steps := map[string]stepFunc{
		"classify":   ClassifyContent,
		"extract":    ExtractData,
		"red_flags":  DetectRedFlags,
		"sentiment":  AnalyzeNewsSentiment,
		"accuracy":   EvaluateAccuracy,
		"impact":     EvaluateImpact,
		"language":   EvaluateLanguage,
		"brand":      EvaluateBrand,
		"reputation": EvaluateReputation,
		"feedback":   GenerateFeedback,
	}

	data := model.Payload{"marker_field": "marker-value-7c1f"}
	for name, step := range steps {
		t.Run(name, func(t *testing.T) {
			rec := &promptRecorder{out: model.Payload{"ok": true}}
			out, err := step(context.Background(), rec, data)
			require.NoError(t, err)
			assert.Equal(t, model.Payload{"ok": true}, out)
			assert.Contains(t, rec.prompt, "marker-value-7c1f")
		})
	}
}

func TestRedFlagsPromptRequestsRiskScore(t *testing.T) {
	rec := &promptRecorder{out: model.Payload{}}
	_, err := DetectRedFlags(context.Background(), rec, model.Payload{"content": "x"})
	require.NoError(t, err)
	assert.Contains(t, rec.prompt, "overall_risk_score")
}
