// Package handlers hosts the HTTP endpoints for the conversational API:
// chat message routing, appointment booking, and health checks.
package handlers

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/bizlink-ai/concierge-platform/internal/conversation"
	"github.com/bizlink-ai/concierge-platform/pkg/logging"
)

// ChatHandler exposes the response router over HTTP.
type ChatHandler struct {
	router       *conversation.Router
	defaultOrgID string
	logger       *logging.Logger
}

// ChatConfig wires the chat handler.
type ChatConfig struct {
	Router       *conversation.Router
	DefaultOrgID string
	Logger       *logging.Logger
}

// NewChatHandler creates the chat endpoint handler.
func NewChatHandler(cfg ChatConfig) *ChatHandler {
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	return &ChatHandler{
		router:       cfg.Router,
		defaultOrgID: cfg.DefaultOrgID,
		logger:       cfg.Logger,
	}
}

// ChatRequest is one inbound chat turn.
type ChatRequest struct {
	OrgID     string `json:"org_id,omitempty"`
	SessionID string `json:"session_id,omitempty"`
	Text      string `json:"text"`
}

// ChatResponse is the routed reply for one turn.
type ChatResponse struct {
	Reply               string `json:"reply"`
	Category            string `json:"category"`
	Stage               string `json:"stage"`
	ShowAppointmentForm bool   `json:"show_appointment_form"`
	SessionID           string `json:"session_id"`
}

// HandleMessage routes one chat turn. POST /chat/message.
func (h *ChatHandler) HandleMessage(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		writeJSONError(w, http.StatusBadRequest, "text is required")
		return
	}

	orgID := req.OrgID
	if orgID == "" {
		orgID = h.defaultOrgID
	}
	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	reply := h.router.Route(r.Context(), conversation.Message{
		Text:      req.Text,
		OrgID:     orgID,
		SessionID: sessionID,
		Timestamp: time.Now().UTC(),
	})

	writeJSON(w, http.StatusOK, ChatResponse{
		Reply:               reply.Text,
		Category:            string(reply.Category),
		Stage:               string(reply.Stage),
		ShowAppointmentForm: reply.ShowAppointmentForm,
		SessionID:           sessionID,
	})
}
