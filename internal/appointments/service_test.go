package appointments

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/bizlink-ai/concierge-platform/internal/notify"
	"github.com/bizlink-ai/concierge-platform/internal/scheduling"
	"github.com/bizlink-ai/concierge-platform/internal/templates"
	"github.com/bizlink-ai/concierge-platform/pkg/logging"
)

type fakeStore struct {
	snapshot    scheduling.Snapshot
	snapshotErr error
	insertErr   error
	inserted    []BookedSlot
	bookedCalls int
}

func (f *fakeStore) InsertUnique(_ context.Context, slot BookedSlot) (uuid.UUID, error) {
	if f.insertErr != nil {
		return uuid.Nil, f.insertErr
	}
	f.inserted = append(f.inserted, slot)
	return uuid.New(), nil
}

func (f *fakeStore) BookedSlots(_ context.Context, _, _, _ string) (scheduling.Snapshot, error) {
	f.bookedCalls++
	if f.snapshotErr != nil {
		return nil, f.snapshotErr
	}
	if f.snapshot == nil {
		return scheduling.Snapshot{}, nil
	}
	return f.snapshot, nil
}

type recordingEmailSender struct {
	sent []notify.EmailMessage
	err  error
}

func (r *recordingEmailSender) Send(_ context.Context, msg notify.EmailMessage) error {
	if r.err != nil {
		return r.err
	}
	r.sent = append(r.sent, msg)
	return nil
}

func newTestService(t *testing.T, hours string, store *fakeStore, email notify.EmailSender, conflictChecking bool) *Service {
	t.Helper()
	schedule, err := scheduling.ParseSchedule(hours)
	if err != nil {
		t.Fatalf("parse schedule: %v", err)
	}
	svc, err := NewService(ServiceConfig{
		Schedule:                schedule,
		Resolver:                scheduling.NewResolver(schedule, 20, 7),
		Store:                   store,
		Email:                   email,
		Profile:                 templates.TenantProfile{BusinessName: "Concierge AI"},
		Logger:                  logging.New("error"),
		ConflictCheckingEnabled: conflictChecking,
		HorizonDays:             7,
	})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc
}

// 2025-06-02 is a Monday.
func validRequest() Request {
	return Request{
		OrgID:    "org-1",
		Name:     "Dana",
		Email:    "dana@example.com",
		Phone:    "+15550001111",
		Services: []string{"consultation"},
		Date:     "2025-06-02",
		Time:     "14:00",
		Timezone: "America/New_York",
	}
}

func TestBookAccepted(t *testing.T) {
	store := &fakeStore{}
	email := &recordingEmailSender{}
	svc := newTestService(t, "mon=09:00-17:00", store, email, true)

	outcome, err := svc.Book(context.Background(), validRequest())
	if err != nil {
		t.Fatalf("Book: %v", err)
	}
	if outcome.Status != OutcomeAccepted {
		t.Fatalf("expected accepted, got %s (%s)", outcome.Status, outcome.Reason)
	}
	if outcome.AppointmentID == uuid.Nil {
		t.Fatal("expected appointment id")
	}
	if len(store.inserted) != 1 {
		t.Fatalf("expected one insert, got %d", len(store.inserted))
	}
	if got := store.inserted[0].Minute; got != 840 {
		t.Fatalf("expected slot minute 840, got %d", got)
	}
	if len(email.sent) != 1 {
		t.Fatalf("expected confirmation email, got %d", len(email.sent))
	}
	if !strings.Contains(email.sent[0].Body, "2025-06-02") || !strings.Contains(email.sent[0].Body, "14:00") {
		t.Fatalf("confirmation body missing slot details: %q", email.sent[0].Body)
	}
}

func TestBookRejectsInvalidRequest(t *testing.T) {
	store := &fakeStore{}
	svc := newTestService(t, "mon=09:00-17:00", store, nil, true)

	cases := []struct {
		name   string
		mutate func(*Request)
	}{
		{"missing name", func(r *Request) { r.Name = " " }},
		{"bad email", func(r *Request) { r.Email = "not-an-email" }},
		{"missing phone", func(r *Request) { r.Phone = "" }},
		{"bad date", func(r *Request) { r.Date = "06/02/2025" }},
		{"bad time", func(r *Request) { r.Time = "2pm" }},
		{"bad timezone", func(r *Request) { r.Timezone = "Mars/Olympus" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := validRequest()
			tc.mutate(&req)
			outcome, err := svc.Book(context.Background(), req)
			if err != nil {
				t.Fatalf("Book: %v", err)
			}
			if outcome.Status != OutcomeRejectedInvalid {
				t.Fatalf("expected rejected_invalid, got %s", outcome.Status)
			}
			if outcome.Reason == "" {
				t.Fatal("expected a rejection reason")
			}
		})
	}
	if len(store.inserted) != 0 {
		t.Fatalf("invalid requests must not reach the store, got %d inserts", len(store.inserted))
	}
}

func TestBookRejectsOutsideBusinessHours(t *testing.T) {
	store := &fakeStore{}
	svc := newTestService(t, "mon=18:00-03:00", store, nil, true)

	req := validRequest() // Monday 14:00, before the 18:00 open
	outcome, err := svc.Book(context.Background(), req)
	if err != nil {
		t.Fatalf("Book: %v", err)
	}
	if outcome.Status != OutcomeRejectedHours {
		t.Fatalf("expected rejected_hours, got %s", outcome.Status)
	}
	if !strings.Contains(outcome.Schedule, "Mon 18:00-03:00") {
		t.Fatalf("expected declared hours in rejection, got %q", outcome.Schedule)
	}
	if store.bookedCalls != 0 {
		t.Fatal("hours rejection must not load the slot snapshot")
	}
}

func TestBookAcceptsEarlyMorningOfWrappedWindow(t *testing.T) {
	store := &fakeStore{}
	svc := newTestService(t, "mon=18:00-03:00", store, nil, true)

	req := validRequest()
	req.Time = "02:00"
	outcome, err := svc.Book(context.Background(), req)
	if err != nil {
		t.Fatalf("Book: %v", err)
	}
	if outcome.Status != OutcomeAccepted {
		t.Fatalf("expected accepted at 02:00 under wrapped hours, got %s", outcome.Status)
	}
}

func TestBookConflictSuggestsNextSlot(t *testing.T) {
	snapshot := scheduling.Snapshot{}
	snapshot.Add("2025-06-02", 1200) // 20:00 already booked
	store := &fakeStore{snapshot: snapshot}
	svc := newTestService(t, "mon=09:00-21:00", store, nil, true)

	req := validRequest()
	req.Time = "20:00"
	outcome, err := svc.Book(context.Background(), req)
	if err != nil {
		t.Fatalf("Book: %v", err)
	}
	if outcome.Status != OutcomeRejectedConflict {
		t.Fatalf("expected rejected_conflict, got %s", outcome.Status)
	}
	if outcome.Suggested == nil {
		t.Fatal("expected a suggested slot")
	}
	if outcome.Suggested.Date != "2025-06-02" || outcome.Suggested.Minute != 1220 {
		t.Fatalf("expected 2025-06-02 20:20, got %s %s", outcome.Suggested.Date, outcome.Suggested.Clock())
	}
	if len(store.inserted) != 0 {
		t.Fatal("conflicting request must not be inserted")
	}
}

func TestBookSnapshotFailureReturnsError(t *testing.T) {
	store := &fakeStore{snapshotErr: errors.New("db down")}
	email := &recordingEmailSender{}
	svc := newTestService(t, "mon=09:00-17:00", store, email, true)

	_, err := svc.Book(context.Background(), validRequest())
	if err == nil {
		t.Fatal("expected store error")
	}
	if len(email.sent) != 0 {
		t.Fatal("no email on store failure")
	}
}

func TestBookInsertFailureReturnsError(t *testing.T) {
	store := &fakeStore{insertErr: errors.New("db down")}
	email := &recordingEmailSender{}
	svc := newTestService(t, "mon=09:00-17:00", store, email, true)

	_, err := svc.Book(context.Background(), validRequest())
	if err == nil {
		t.Fatal("expected store error")
	}
	if len(email.sent) != 0 {
		t.Fatal("no email on store failure")
	}
}

func TestBookLostRaceResolvesSuggestion(t *testing.T) {
	// Snapshot looks clear, but the insert loses to a concurrent booking.
	snapshot := scheduling.Snapshot{}
	store := &fakeStore{snapshot: snapshot, insertErr: ErrDuplicateSlot}
	svc := newTestService(t, "mon=09:00-21:00", store, nil, true)

	req := validRequest()
	req.Time = "20:00"

	// Re-resolution after the duplicate sees the winner's slot.
	snapshot.Add("2025-06-02", 1200)

	outcome, err := svc.Book(context.Background(), req)
	if err != nil {
		t.Fatalf("Book: %v", err)
	}
	if outcome.Status != OutcomeRejectedConflict {
		t.Fatalf("expected rejected_conflict, got %s", outcome.Status)
	}
	if outcome.Suggested == nil || outcome.Suggested.Minute != 1220 {
		t.Fatalf("expected 20:20 suggestion after lost race, got %+v", outcome.Suggested)
	}
}

func TestBookConflictCheckingDisabled(t *testing.T) {
	store := &fakeStore{insertErr: ErrDuplicateSlot}
	svc := newTestService(t, "mon=09:00-17:00", store, nil, false)

	outcome, err := svc.Book(context.Background(), validRequest())
	if err != nil {
		t.Fatalf("Book: %v", err)
	}
	if store.bookedCalls != 0 {
		t.Fatal("disabled conflict checking must not load snapshots")
	}
	if outcome.Status != OutcomeRejectedConflict {
		t.Fatalf("unique index still rejects duplicates, got %s", outcome.Status)
	}
	if outcome.Suggested != nil {
		t.Fatalf("no suggestion without conflict checking, got %+v", outcome.Suggested)
	}
}

func TestBookEmailFailureDoesNotAbortAccept(t *testing.T) {
	store := &fakeStore{}
	email := &recordingEmailSender{err: errors.New("smtp down")}
	svc := newTestService(t, "mon=09:00-17:00", store, email, true)

	outcome, err := svc.Book(context.Background(), validRequest())
	if err != nil {
		t.Fatalf("Book: %v", err)
	}
	if outcome.Status != OutcomeAccepted {
		t.Fatalf("email failure must not change the outcome, got %s", outcome.Status)
	}
}
