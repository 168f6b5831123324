package agent

import "encoding/json"

// anthropicVersion is the wire schema tag Bedrock requires for Claude models.
const anthropicVersion = "bedrock-2023-05-31"

type wireMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// modelRequest is the serialized body for InvokeModel and
// InvokeModelWithResponseStream.
type modelRequest struct {
	AnthropicVersion string        `json:"anthropic_version"`
	Messages         []wireMessage `json:"messages"`
	MaxTokens        int32         `json:"max_tokens"`
	Temperature      float32       `json:"temperature"`
	TopP             float32       `json:"top_p"`
	System           string        `json:"system,omitempty"`
}

// formatHistory maps prior turns onto the wire schema, preserving order.
// Only user and assistant roles are forwarded; system entries and anything
// malformed are silently dropped. The model API rejects other roles, and the
// system directive travels in its own top-level field.
func formatHistory(history []Message) []wireMessage {
	formatted := make([]wireMessage, 0, len(history))
	for _, msg := range history {
		if msg.Role != RoleUser && msg.Role != RoleAssistant {
			continue
		}
		formatted = append(formatted, wireMessage{Role: msg.Role, Content: msg.Content})
	}
	return formatted
}

// buildRequest assembles the outbound model request: filtered history, the
// new user turn last, process-fixed generation parameters, and the optional
// system directive.
func (a *Agent) buildRequest(history []Message, userMessage, systemPrompt string) ([]byte, error) {
	messages := append(formatHistory(history), wireMessage{Role: RoleUser, Content: userMessage})

	return json.Marshal(modelRequest{
		AnthropicVersion: anthropicVersion,
		Messages:         messages,
		MaxTokens:        a.settings.MaxTokens,
		Temperature:      a.settings.Temperature,
		TopP:             a.settings.TopP,
		System:           systemPrompt,
	})
}
