package handlers

import (
	"time"

	"github.com/summoners-reunion/ai-chat-agent/internal/agent"
)

// ChatRequest is the inbound payload for the chat endpoints.
type ChatRequest struct {
	Message             string          `json:"message"`
	ConversationHistory []agent.Message `json:"conversation_history"`
	SystemPrompt        string          `json:"system_prompt,omitempty"`
	UseKnowledgeBase    bool            `json:"use_knowledge_base"`
	KnowledgeBaseID     string          `json:"knowledge_base_id,omitempty"`
}

// ChatResponse is the non-streaming chat reply.
type ChatResponse struct {
	Message   string    `json:"message"`
	Role      string    `json:"role"`
	Timestamp time.Time `json:"timestamp"`
	ModelID   string    `json:"model_id"`
}

// StreamChunk is one frame of a streaming response. The final frame carries
// empty content and done=true.
type StreamChunk struct {
	Content string `json:"content"`
	Done    bool   `json:"done"`
}

// RetrieveRequest is the inbound payload for knowledge base search.
type RetrieveRequest struct {
	Query           string `json:"query"`
	KnowledgeBaseID string `json:"knowledge_base_id,omitempty"`
	MaxResults      int    `json:"max_results,omitempty"`
}

// RetrieveResponse wraps ranked knowledge base results.
type RetrieveResponse struct {
	Results   []agent.KnowledgeResult `json:"results"`
	Query     string                  `json:"query"`
	Count     int                     `json:"count"`
	Timestamp time.Time               `json:"timestamp"`
}

// HealthResponse reports service and Bedrock connectivity status.
type HealthResponse struct {
	Status            string    `json:"status"`
	AppName           string    `json:"app_name"`
	Timestamp         time.Time `json:"timestamp"`
	BedrockConfigured bool      `json:"bedrock_configured"`
}

// ErrorResponse is the envelope for handler-level failures.
type ErrorResponse struct {
	Error     string    `json:"error"`
	Detail    string    `json:"detail,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}
