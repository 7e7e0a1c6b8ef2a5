package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"github.com/bizlink-ai/concierge-platform/internal/appointments"
	"github.com/bizlink-ai/concierge-platform/internal/scheduling"
	"github.com/bizlink-ai/concierge-platform/internal/templates"
	"github.com/bizlink-ai/concierge-platform/pkg/logging"
)

type stubStore struct {
	snapshot  scheduling.Snapshot
	insertErr error
}

func (s *stubStore) InsertUnique(_ context.Context, _ appointments.BookedSlot) (uuid.UUID, error) {
	if s.insertErr != nil {
		return uuid.Nil, s.insertErr
	}
	return uuid.New(), nil
}

func (s *stubStore) BookedSlots(_ context.Context, _, _, _ string) (scheduling.Snapshot, error) {
	if s.snapshot == nil {
		return scheduling.Snapshot{}, nil
	}
	return s.snapshot, nil
}

func newTestAppointmentsHandler(t *testing.T, store appointments.Store) *AppointmentsHandler {
	t.Helper()
	schedule, err := scheduling.ParseSchedule("mon=09:00-17:00,tue=09:00-17:00")
	if err != nil {
		t.Fatalf("parse schedule: %v", err)
	}
	svc, err := appointments.NewService(appointments.ServiceConfig{
		Schedule:                schedule,
		Resolver:                scheduling.NewResolver(schedule, 20, 7),
		Store:                   store,
		Profile:                 templates.TenantProfile{BusinessName: "Concierge AI"},
		Logger:                  logging.New("error"),
		ConflictCheckingEnabled: true,
		HorizonDays:             7,
	})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return NewAppointmentsHandler(AppointmentsConfig{Service: svc, Logger: logging.New("error")})
}

func bookingBody(t *testing.T, mutate func(*appointments.Request)) *bytes.Reader {
	t.Helper()
	req := appointments.Request{
		OrgID:    "org-1",
		Name:     "Dana",
		Email:    "dana@example.com",
		Phone:    "+15550001111",
		Date:     "2025-06-02", // a Monday
		Time:     "14:00",
		Timezone: "America/New_York",
	}
	if mutate != nil {
		mutate(&req)
	}
	body, err := json.Marshal(req)
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}
	return bytes.NewReader(body)
}

func TestHandleBookAccepted(t *testing.T) {
	h := newTestAppointmentsHandler(t, &stubStore{})

	rec := httptest.NewRecorder()
	h.HandleBook(rec, httptest.NewRequest(http.MethodPost, "/appointments", bookingBody(t, nil)))

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp BookingResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Status != "accepted" || resp.AppointmentID == "" {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestHandleBookOutsideHours(t *testing.T) {
	h := newTestAppointmentsHandler(t, &stubStore{})

	rec := httptest.NewRecorder()
	h.HandleBook(rec, httptest.NewRequest(http.MethodPost, "/appointments",
		bookingBody(t, func(r *appointments.Request) { r.Date = "2025-06-07" }))) // a Saturday

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", rec.Code)
	}
	var resp BookingResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Status != "rejected_hours" || resp.Schedule == "" {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestHandleBookConflictWithSuggestion(t *testing.T) {
	snapshot := scheduling.Snapshot{}
	snapshot.Add("2025-06-02", 840) // 14:00 taken
	h := newTestAppointmentsHandler(t, &stubStore{snapshot: snapshot})

	rec := httptest.NewRecorder()
	h.HandleBook(rec, httptest.NewRequest(http.MethodPost, "/appointments", bookingBody(t, nil)))

	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp BookingResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Suggested == nil || resp.Suggested.Time != "14:20" {
		t.Fatalf("expected 14:20 suggestion, got %+v", resp.Suggested)
	}
}

func TestHandleBookInvalidRequest(t *testing.T) {
	h := newTestAppointmentsHandler(t, &stubStore{})

	rec := httptest.NewRecorder()
	h.HandleBook(rec, httptest.NewRequest(http.MethodPost, "/appointments",
		bookingBody(t, func(r *appointments.Request) { r.Email = "nope" })))

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", rec.Code)
	}
}

func TestHandleBookStoreFailure(t *testing.T) {
	h := newTestAppointmentsHandler(t, &stubStore{insertErr: errors.New("db down")})

	rec := httptest.NewRecorder()
	h.HandleBook(rec, httptest.NewRequest(http.MethodPost, "/appointments", bookingBody(t, nil)))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
}

func TestHandleBookBadJSON(t *testing.T) {
	h := newTestAppointmentsHandler(t, &stubStore{})

	rec := httptest.NewRecorder()
	h.HandleBook(rec, httptest.NewRequest(http.MethodPost, "/appointments", bytes.NewReader([]byte("{"))))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}
