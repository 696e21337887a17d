package anthropic

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMessageResponse_Text(t *testing.T) {
	resp := &MessageResponse{
		Content: []ContentBlock{
			{Type: "text", Text: "{\"a\": 1"},
			{Type: "text", Text: "}"},
		},
	}
	assert.Equal(t, "{\"a\": 1}", resp.Text())
}

func TestMessageResponse_TextSkipsNonText(t *testing.T) {
	resp := &MessageResponse{
		Content: []ContentBlock{
			{Type: "tool_use", Text: "ignored"},
			{Type: "text", Text: "kept"},
		},
	}
	assert.Equal(t, "kept", resp.Text())
}

func TestToSDKMessages_Roles(t *testing.T) {
	msgs := toSDKMessages([]Message{
		{Role: "user", Content: "hi"},
		{Role: "assistant", Content: "hello"},
	})
	assert.Len(t, msgs, 2)
	assert.Equal(t, "user", string(msgs[0].Role))
	assert.Equal(t, "assistant", string(msgs[1].Role))
}
