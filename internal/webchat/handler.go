package webchat

import (
	"crypto/rand"
	"encoding/hex"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/net/websocket"

	"github.com/summoners-reunion/ai-chat-agent/internal/agent"
	"github.com/summoners-reunion/ai-chat-agent/pkg/logging"
)

// Handler serves the browser chat widget over WebSocket. Each connection
// keeps its own conversation history for the lifetime of the socket; nothing
// is persisted server-side.
type Handler struct {
	agent      *agent.Agent
	maxHistory int
	logger     *logging.Logger
}

// InboundMessage is what the widget sends.
type InboundMessage struct {
	Type             string `json:"type"` // "message", "ping"
	Text             string `json:"text"`
	SystemPrompt     string `json:"system_prompt,omitempty"`
	UseKnowledgeBase bool   `json:"use_knowledge_base,omitempty"`
	KnowledgeBaseID  string `json:"knowledge_base_id,omitempty"`
}

// OutboundMessage is what we send to the widget.
type OutboundMessage struct {
	Type      string `json:"type"` // "session", "chunk", "done", "pong", "error"
	Content   string `json:"content,omitempty"`
	SessionID string `json:"session_id,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
}

// NewHandler creates a web chat handler. The agent may be nil when Bedrock is
// not configured; connections then receive an error frame and close.
func NewHandler(a *agent.Agent, maxHistory int, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{
		agent:      a,
		maxHistory: maxHistory,
		logger:     logger,
	}
}

func generateSessionID() string {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return uuid.New().String()
	}
	return hex.EncodeToString(b)
}

// HandleWebSocket upgrades to WebSocket and handles real-time chat.
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	websocket.Handler(func(conn *websocket.Conn) {
		h.serveWS(conn, r)
	}).ServeHTTP(w, r)
}

func (h *Handler) serveWS(conn *websocket.Conn, r *http.Request) {
	if h.agent == nil {
		_ = websocket.JSON.Send(conn, OutboundMessage{Type: "error", Content: "chat agent is not configured"})
		return
	}

	sessionID := r.URL.Query().Get("session")
	if sessionID == "" {
		sessionID = generateSessionID()
	}

	_ = websocket.JSON.Send(conn, OutboundMessage{
		Type:      "session",
		SessionID: sessionID,
	})

	h.logger.Info("webchat: connection opened", "session_id", sessionID)

	var history []agent.Message
	for {
		var msg InboundMessage
		if err := websocket.JSON.Receive(conn, &msg); err != nil {
			h.logger.Debug("webchat: connection closed", "session_id", sessionID, "error", err)
			return
		}

		if msg.Type == "ping" {
			_ = websocket.JSON.Send(conn, OutboundMessage{Type: "pong"})
			continue
		}
		if msg.Type != "message" || strings.TrimSpace(msg.Text) == "" {
			continue
		}

		history = h.processMessage(conn, r, history, msg)
	}
}

func (h *Handler) processMessage(conn *websocket.Conn, r *http.Request, history []agent.Message, msg InboundMessage) []agent.Message {
	var fragments <-chan string
	if msg.UseKnowledgeBase {
		fragments = h.agent.RetrieveAndGenerate(r.Context(), msg.Text, msg.KnowledgeBaseID, history, msg.SystemPrompt)
	} else {
		fragments = h.agent.StreamResponse(r.Context(), msg.Text, history, msg.SystemPrompt)
	}

	var reply strings.Builder
	for chunk := range fragments {
		reply.WriteString(chunk)
		if err := websocket.JSON.Send(conn, OutboundMessage{Type: "chunk", Content: chunk}); err != nil {
			h.logger.Warn("webchat: send failed", "error", err)
			return history
		}
	}
	_ = websocket.JSON.Send(conn, OutboundMessage{
		Type:      "done",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})

	history = append(history,
		agent.Message{Role: agent.RoleUser, Content: msg.Text},
		agent.Message{Role: agent.RoleAssistant, Content: reply.String()},
	)
	if h.maxHistory > 0 && len(history) > h.maxHistory {
		history = history[len(history)-h.maxHistory:]
	}
	return history
}
