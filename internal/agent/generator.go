// Package agent implements the prompt-backed analysis, evaluation, and
// feedback steps of the evaluation flow.
package agent

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/Blynx-ai/blynx-backend/internal/config"
	"github.com/Blynx-ai/blynx-backend/internal/model"
	"github.com/Blynx-ai/blynx-backend/pkg/anthropic"
)

const structuredSystemPrompt = "Respond with valid JSON only. Do not include any explanation or markdown formatting."

// Generator produces structured JSON payloads from prompts. Malformed model
// output is returned as a degraded payload rather than an error; only
// transport/API failures surface as errors.
type Generator interface {
	GenerateStructured(ctx context.Context, prompt string) (model.Payload, error)
}

// anthropicGenerator implements Generator over the Anthropic client.
type anthropicGenerator struct {
	client anthropic.Client
	cfg    config.AnthropicConfig
}

// NewGenerator creates a structured-output generator backed by Anthropic.
func NewGenerator(client anthropic.Client, cfg config.AnthropicConfig) Generator {
	return &anthropicGenerator{client: client, cfg: cfg}
}

func (g *anthropicGenerator) GenerateStructured(ctx context.Context, prompt string) (model.Payload, error) {
	maxTokens := g.cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 4096
	}

	resp, err := g.client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:     g.cfg.Model,
		MaxTokens: maxTokens,
		System:    structuredSystemPrompt,
		Messages:  []anthropic.Message{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return nil, eris.Wrap(err, "agent: generate structured content")
	}

	return parseStructured(resp.Text()), nil
}

// parseStructured extracts a JSON object from model output, tolerating
// markdown code fences. Unparseable output degrades to an error payload that
// keeps the raw response for diagnosis.
func parseStructured(text string) model.Payload {
	cleaned := strings.TrimSpace(text)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")
	cleaned = strings.TrimSpace(cleaned)

	var out model.Payload
	if err := json.Unmarshal([]byte(cleaned), &out); err != nil {
		zap.L().Warn("agent: failed to parse structured response",
			zap.Error(err),
			zap.Int("response_len", len(text)),
		)
		return model.Payload{
			"error":        "failed to parse JSON response",
			"raw_response": text,
		}
	}
	return out
}

// contextJSON renders accumulated phase context for prompt embedding.
func contextJSON(data model.Payload) string {
	buf, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		// Payload values come from json.Unmarshal, so this only fires on
		// programmer error; degrade to an empty object rather than panic.
		zap.L().Error("agent: marshal context data", zap.Error(err))
		return "{}"
	}
	return string(buf)
}
