package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/bizlink-ai/concierge-platform/internal/appointments"
	"github.com/bizlink-ai/concierge-platform/internal/conversation"
	"github.com/bizlink-ai/concierge-platform/internal/scheduling"
	"github.com/bizlink-ai/concierge-platform/pkg/logging"
)

// AppointmentsHandler exposes the booking engine over HTTP.
type AppointmentsHandler struct {
	service      *appointments.Service
	router       *conversation.Router
	defaultOrgID string
	logger       *logging.Logger
}

// AppointmentsConfig wires the appointments handler. Router is optional; when
// set, a booking attempt moves the chat session out of the awaiting state.
type AppointmentsConfig struct {
	Service      *appointments.Service
	Router       *conversation.Router
	DefaultOrgID string
	Logger       *logging.Logger
}

// NewAppointmentsHandler creates the appointments endpoint handler.
func NewAppointmentsHandler(cfg AppointmentsConfig) *AppointmentsHandler {
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	return &AppointmentsHandler{
		service:      cfg.Service,
		router:       cfg.Router,
		defaultOrgID: cfg.DefaultOrgID,
		logger:       cfg.Logger,
	}
}

// BookingResponse reports one booking attempt's outcome.
type BookingResponse struct {
	Status        string         `json:"status"`
	AppointmentID string         `json:"appointment_id,omitempty"`
	Reason        string         `json:"reason,omitempty"`
	Schedule      string         `json:"schedule,omitempty"`
	Suggested     *SuggestedSlot `json:"suggested,omitempty"`
}

// SuggestedSlot is the nearest open alternative for a conflicted request.
type SuggestedSlot struct {
	Date string `json:"date"`
	Time string `json:"time"`
}

// HandleBook runs one booking attempt. POST /appointments.
func (h *AppointmentsHandler) HandleBook(w http.ResponseWriter, r *http.Request) {
	var req appointments.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.OrgID == "" {
		req.OrgID = h.defaultOrgID
	}

	outcome, err := h.service.Book(r.Context(), req)
	if err != nil {
		h.logger.Error("booking failed", "error", err, "org_id", req.OrgID)
		writeJSONError(w, http.StatusInternalServerError, "booking could not be completed, please try again")
		return
	}

	// Any decided attempt, accepted or rejected, ends the awaiting-appointment
	// conversation stage.
	if h.router != nil && req.SessionID != "" {
		h.router.CompleteBookingAttempt(r.Context(), req.OrgID, req.SessionID)
	}

	resp := BookingResponse{
		Status:    string(outcome.Status),
		Reason:    outcome.Reason,
		Schedule:  outcome.Schedule,
		Suggested: suggestedSlot(outcome.Suggested),
	}

	switch outcome.Status {
	case appointments.OutcomeAccepted:
		resp.AppointmentID = outcome.AppointmentID.String()
		writeJSON(w, http.StatusCreated, resp)
	case appointments.OutcomeRejectedConflict:
		writeJSON(w, http.StatusConflict, resp)
	default:
		writeJSON(w, http.StatusUnprocessableEntity, resp)
	}
}

func suggestedSlot(slot *scheduling.Slot) *SuggestedSlot {
	if slot == nil {
		return nil
	}
	return &SuggestedSlot{Date: slot.Date, Time: slot.Clock()}
}
