package agent

import (
	"context"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Blynx-ai/blynx-backend/internal/config"
	"github.com/Blynx-ai/blynx-backend/internal/model"
	"github.com/Blynx-ai/blynx-backend/pkg/anthropic"
)

type mockAnthropicClient struct {
	mock.Mock
}

func (m *mockAnthropicClient) CreateMessage(ctx context.Context, req anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*anthropic.MessageResponse), args.Error(1)
}

func textResponse(text string) *anthropic.MessageResponse {
	return &anthropic.MessageResponse{
		Content: []anthropic.ContentBlock{{Type: "text", Text: text}},
	}
}

func TestGenerateStructured(t *testing.T) {
	client := new(mockAnthropicClient)
	client.On("CreateMessage", mock.Anything, mock.MatchedBy(func(req anthropic.MessageRequest) bool {
		return req.System == structuredSystemPrompt && len(req.Messages) == 1
	})).Return(textResponse(`{"industry": "retail"}`), nil)

	gen := NewGenerator(client, config.AnthropicConfig{Model: "claude-haiku-4-5-20251001", MaxTokens: 1024})
	out, err := gen.GenerateStructured(context.Background(), "analyze this")
	require.NoError(t, err)
	assert.Equal(t, "retail", out["industry"])
	client.AssertExpectations(t)
}

func TestGenerateStructured_APIError(t *testing.T) {
	client := new(mockAnthropicClient)
	client.On("CreateMessage", mock.Anything, mock.Anything).
		Return(nil, eris.New("api unavailable"))

	gen := NewGenerator(client, config.AnthropicConfig{Model: "claude-haiku-4-5-20251001"})
	out, err := gen.GenerateStructured(context.Background(), "analyze this")
	require.Error(t, err)
	assert.Nil(t, out)
}

func TestParseStructured(t *testing.T) {
	tests := []struct {
		name string
		text string
		want model.Payload
	}{
		{
			name: "plain json",
			text: `{"score": 85}`,
			want: model.Payload{"score": float64(85)},
		},
		{
			name: "json code fence",
			text: "```json\n{\"score\": 85}\n```",
			want: model.Payload{"score": float64(85)},
		},
		{
			name: "bare code fence",
			text: "```\n{\"score\": 85}\n```",
			want: model.Payload{"score": float64(85)},
		},
		{
			name: "surrounding whitespace",
			text: "\n\n  {\"ok\": true}  \n",
			want: model.Payload{"ok": true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, parseStructured(tt.text))
		})
	}
}

func TestParseStructured_MalformedDegrades(t *testing.T) {
	out := parseStructured("I think the business looks great!")
	assert.True(t, out.IsError())
	assert.Equal(t, "I think the business looks great!", out["raw_response"])
}
