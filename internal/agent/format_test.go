package agent

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeRequest(t *testing.T, body []byte) modelRequest {
	t.Helper()
	var req modelRequest
	require.NoError(t, json.Unmarshal(body, &req))
	return req
}

func TestBuildRequestFiltersRolesAndPreservesOrder(t *testing.T) {
	a := newTestAgent(t, nil, nil, nil, nil)

	history := []Message{
		{Role: RoleUser, Content: "first"},
		{Role: RoleSystem, Content: "dropped system"},
		{Role: RoleAssistant, Content: "second"},
		{Role: "tool", Content: "dropped malformed"},
		{Role: RoleUser, Content: "third"},
	}

	body, err := a.buildRequest(history, "new turn", "")
	require.NoError(t, err)
	req := decodeRequest(t, body)

	require.Len(t, req.Messages, 4)
	assert.Equal(t, wireMessage{Role: "user", Content: "first"}, req.Messages[0])
	assert.Equal(t, wireMessage{Role: "assistant", Content: "second"}, req.Messages[1])
	assert.Equal(t, wireMessage{Role: "user", Content: "third"}, req.Messages[2])
	assert.Equal(t, wireMessage{Role: "user", Content: "new turn"}, req.Messages[3])
}

func TestBuildRequestAppendsNewMessageLastWithEmptyHistory(t *testing.T) {
	a := newTestAgent(t, nil, nil, nil, nil)

	body, err := a.buildRequest(nil, "hello", "")
	require.NoError(t, err)
	req := decodeRequest(t, body)

	require.Len(t, req.Messages, 1)
	assert.Equal(t, wireMessage{Role: "user", Content: "hello"}, req.Messages[0])
}

func TestBuildRequestAttachesGenerationParameters(t *testing.T) {
	a := newTestAgent(t, nil, nil, nil, nil)

	body, err := a.buildRequest(nil, "hi", "")
	require.NoError(t, err)
	req := decodeRequest(t, body)

	assert.Equal(t, anthropicVersion, req.AnthropicVersion)
	assert.Equal(t, int32(1024), req.MaxTokens)
	assert.InDelta(t, 0.7, req.Temperature, 0.0001)
	assert.InDelta(t, 0.9, req.TopP, 0.0001)
}

func TestBuildRequestSystemDirectiveTopLevel(t *testing.T) {
	a := newTestAgent(t, nil, nil, nil, nil)

	body, err := a.buildRequest(nil, "hi", "be brief")
	require.NoError(t, err)
	req := decodeRequest(t, body)
	assert.Equal(t, "be brief", req.System)
	// The directive never appears in the message sequence.
	for _, msg := range req.Messages {
		assert.NotEqual(t, "be brief", msg.Content)
	}

	// Absent directive is omitted from the wire body entirely.
	body, err = a.buildRequest(nil, "hi", "")
	require.NoError(t, err)
	var raw map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(body, &raw))
	_, present := raw["system"]
	assert.False(t, present)
}
