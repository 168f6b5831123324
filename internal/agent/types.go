package agent

import "time"

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// Message is a single turn of conversation history. Immutable once constructed.
type Message struct {
	Role      string     `json:"role"`
	Content   string     `json:"content"`
	Timestamp *time.Time `json:"timestamp,omitempty"`
}

// KnowledgeResult is one ranked passage returned by the knowledge base.
// Ordering reflects the remote ranking; results are never re-sorted locally.
type KnowledgeResult struct {
	Content  string         `json:"content"`
	Score    float64        `json:"score"`
	Location any            `json:"location"`
	Metadata map[string]any `json:"metadata"`
}
