package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/summoners-reunion/ai-chat-agent/internal/agent"
	"github.com/summoners-reunion/ai-chat-agent/pkg/logging"
)

const defaultMaxResults = 5

// ChatHandler serves the chat, retrieval, and health endpoints. The agent may
// be nil when Bedrock could not be configured at startup; every endpoint that
// needs it answers 503 in that case.
type ChatHandler struct {
	agent      *agent.Agent
	appName    string
	maxHistory int
	logger     *logging.Logger
}

// NewChatHandler builds a handler around an optional agent. maxHistory caps
// how many trailing conversation turns are forwarded to the model; zero or
// negative means no cap.
func NewChatHandler(a *agent.Agent, appName string, maxHistory int, logger *logging.Logger) *ChatHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &ChatHandler{
		agent:      a,
		appName:    appName,
		maxHistory: maxHistory,
		logger:     logger,
	}
}

// Root answers a service banner with the endpoint map.
func (h *ChatHandler) Root(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"message": fmt.Sprintf("%s API", h.appName),
		"version": "1.0.0",
		"endpoints": map[string]any{
			"health":            "/api/health",
			"chat":              "/api/chat (POST)",
			"chat_stream":       "/api/chat/stream (POST)",
			"retrieve":          "/api/knowledge/retrieve (POST)",
			"knowledge_enabled": h.agent != nil && h.agent.KnowledgeBaseConfigured(),
		},
	})
}

// Health reports whether Bedrock is reachable.
func (h *ChatHandler) Health(w http.ResponseWriter, r *http.Request) {
	configured := false
	if h.agent != nil {
		configured = h.agent.CheckHealth(r.Context())
	}
	status := "healthy"
	if !configured {
		status = "degraded"
	}
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:            status,
		AppName:           h.appName,
		Timestamp:         time.Now().UTC(),
		BedrockConfigured: configured,
	})
}

// Chat handles a non-streaming chat turn.
func (h *ChatHandler) Chat(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeChatRequest(w, r)
	if !ok {
		return
	}

	var reply string
	if req.UseKnowledgeBase {
		var b strings.Builder
		for chunk := range h.agent.RetrieveAndGenerate(r.Context(), req.Message, req.KnowledgeBaseID, req.ConversationHistory, req.SystemPrompt) {
			b.WriteString(chunk)
		}
		reply = b.String()
	} else {
		reply = h.agent.GetResponse(r.Context(), req.Message, req.ConversationHistory, req.SystemPrompt)
	}

	writeJSON(w, http.StatusOK, ChatResponse{
		Message:   reply,
		Role:      agent.RoleAssistant,
		Timestamp: time.Now().UTC(),
		ModelID:   h.agent.ModelID(),
	})
}

// ChatStream handles a chat turn as a server-sent event stream. Each model
// fragment becomes a data frame; a final frame with done=true closes the
// stream.
func (h *ChatHandler) ChatStream(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeChatRequest(w, r)
	if !ok {
		return
	}

	flusher, canFlush := w.(http.Flusher)
	if !canFlush {
		h.writeError(w, http.StatusInternalServerError, "streaming unsupported", "")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	var fragments <-chan string
	if req.UseKnowledgeBase {
		fragments = h.agent.StreamWithKnowledge(r.Context(), req.Message, req.KnowledgeBaseID, req.ConversationHistory, req.SystemPrompt, 0)
	} else {
		fragments = h.agent.StreamResponse(r.Context(), req.Message, req.ConversationHistory, req.SystemPrompt)
	}

	for chunk := range fragments {
		if err := writeSSEFrame(w, StreamChunk{Content: chunk}); err != nil {
			h.logger.Warn("stream write failed", "error", err)
			return
		}
		flusher.Flush()
	}

	if err := writeSSEFrame(w, StreamChunk{Done: true}); err != nil {
		h.logger.Warn("stream terminator write failed", "error", err)
		return
	}
	flusher.Flush()
}

// Retrieve performs a raw knowledge base search.
func (h *ChatHandler) Retrieve(w http.ResponseWriter, r *http.Request) {
	if h.agent == nil {
		h.writeError(w, http.StatusServiceUnavailable, "service unavailable", "Bedrock agent is not configured")
		return
	}

	var req RetrieveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		h.writeError(w, http.StatusBadRequest, "invalid request body", "query is required")
		return
	}
	if req.MaxResults <= 0 {
		req.MaxResults = defaultMaxResults
	}

	results := h.agent.RetrieveFromKnowledgeBase(r.Context(), req.Query, req.KnowledgeBaseID, req.MaxResults)
	writeJSON(w, http.StatusOK, RetrieveResponse{
		Results:   results,
		Query:     req.Query,
		Count:     len(results),
		Timestamp: time.Now().UTC(),
	})
}

func (h *ChatHandler) decodeChatRequest(w http.ResponseWriter, r *http.Request) (ChatRequest, bool) {
	var req ChatRequest
	if h.agent == nil {
		h.writeError(w, http.StatusServiceUnavailable, "service unavailable", "Bedrock agent is not configured")
		return req, false
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return req, false
	}
	if strings.TrimSpace(req.Message) == "" {
		h.writeError(w, http.StatusBadRequest, "invalid request body", "message is required")
		return req, false
	}
	if h.maxHistory > 0 && len(req.ConversationHistory) > h.maxHistory {
		req.ConversationHistory = req.ConversationHistory[len(req.ConversationHistory)-h.maxHistory:]
	}
	return req, true
}

func (h *ChatHandler) writeError(w http.ResponseWriter, status int, msg, detail string) {
	writeJSON(w, status, ErrorResponse{
		Error:     msg,
		Detail:    detail,
		Timestamp: time.Now().UTC(),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeSSEFrame(w http.ResponseWriter, chunk StreamChunk) error {
	data, err := json.Marshal(chunk)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "data: %s\n\n", data)
	return err
}
