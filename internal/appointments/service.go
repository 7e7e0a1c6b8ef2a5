package appointments

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/bizlink-ai/concierge-platform/internal/notify"
	"github.com/bizlink-ai/concierge-platform/internal/observability/metrics"
	"github.com/bizlink-ai/concierge-platform/internal/scheduling"
	"github.com/bizlink-ai/concierge-platform/internal/templates"
	"github.com/bizlink-ai/concierge-platform/pkg/logging"
)

var appointmentsTracer = otel.Tracer("concierge.internal.appointments")

// Store is the persistence collaborator consumed by the service.
type Store interface {
	InsertUnique(ctx context.Context, slot BookedSlot) (uuid.UUID, error)
	BookedSlots(ctx context.Context, orgID, fromDate, toDate string) (scheduling.Snapshot, error)
}

// ServiceConfig wires the scheduling engine.
type ServiceConfig struct {
	Schedule                *scheduling.Schedule
	Resolver                *scheduling.Resolver
	Store                   Store
	Email                   notify.EmailSender
	Profile                 templates.TenantProfile
	Logger                  *logging.Logger
	Metrics                 *metrics.AppointmentMetrics
	ConflictCheckingEnabled bool
	HorizonDays             int
}

// Service validates, resolves, and persists appointment requests.
type Service struct {
	schedule         *scheduling.Schedule
	resolver         *scheduling.Resolver
	store            Store
	email            notify.EmailSender
	profile          templates.TenantProfile
	logger           *logging.Logger
	metrics          *metrics.AppointmentMetrics
	conflictChecking bool
	horizonDays      int
}

// NewService constructs an appointment service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Schedule == nil {
		return nil, fmt.Errorf("appointments: schedule required")
	}
	if cfg.Resolver == nil {
		return nil, fmt.Errorf("appointments: resolver required")
	}
	if cfg.Store == nil {
		return nil, fmt.Errorf("appointments: store required")
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	if cfg.HorizonDays <= 0 {
		cfg.HorizonDays = 7
	}
	return &Service{
		schedule:         cfg.Schedule,
		resolver:         cfg.Resolver,
		store:            cfg.Store,
		email:            cfg.Email,
		profile:          cfg.Profile,
		logger:           cfg.Logger,
		metrics:          cfg.Metrics,
		conflictChecking: cfg.ConflictCheckingEnabled,
		horizonDays:      cfg.HorizonDays,
	}, nil
}

// Book runs the full accept/reject/suggest decision for one request.
// Hours and conflict rejections come back as structured outcomes; only a
// store failure returns an error, and in that case nothing is booked and no
// email is sent.
func (s *Service) Book(ctx context.Context, req Request) (Outcome, error) {
	ctx, span := appointmentsTracer.Start(ctx, "appointments.book")
	defer span.End()
	span.SetAttributes(
		attribute.String("concierge.org_id", req.OrgID),
		attribute.String("concierge.slot_date", req.Date),
		attribute.String("concierge.slot_time", req.Time),
	)

	if err := req.Validate(); err != nil {
		s.metrics.ObserveOutcome(string(OutcomeRejectedInvalid))
		return Outcome{Status: OutcomeRejectedInvalid, Reason: err.Error()}, nil
	}

	// Hours check runs first: it is pure and cuts all slot-search work for
	// out-of-hours requests.
	withinHours, err := s.schedule.IsWithinBusinessHours(req.Date, req.Time, req.Timezone)
	if err != nil {
		s.metrics.ObserveOutcome(string(OutcomeRejectedInvalid))
		return Outcome{Status: OutcomeRejectedInvalid, Reason: err.Error()}, nil
	}
	if !withinHours {
		s.metrics.ObserveOutcome(string(OutcomeRejectedHours))
		return Outcome{Status: OutcomeRejectedHours, Schedule: s.schedule.Describe()}, nil
	}

	loc, _ := time.LoadLocation(req.Timezone)
	localDate, _ := time.ParseInLocation("2006-01-02", req.Date, loc)
	minute, _ := scheduling.ParseClock(req.Time)

	if s.conflictChecking {
		toDate := localDate.AddDate(0, 0, s.horizonDays+1).Format("2006-01-02")
		snapshot, err := s.store.BookedSlots(ctx, req.OrgID, req.Date, toDate)
		if err != nil {
			span.RecordError(err)
			return Outcome{}, err
		}
		if result := s.resolver.CheckAndSuggest(localDate, minute, snapshot); result.Conflict {
			s.metrics.ObserveOutcome(string(OutcomeRejectedConflict))
			return Outcome{Status: OutcomeRejectedConflict, Suggested: result.Suggested}, nil
		}
	}

	slotUTC := time.Date(localDate.Year(), localDate.Month(), localDate.Day(), minute/60, minute%60, 0, 0, loc).UTC()
	id, err := s.store.InsertUnique(ctx, BookedSlot{
		OrgID:    req.OrgID,
		Name:     req.Name,
		Email:    req.Email,
		Phone:    req.Phone,
		Services: req.Services,
		Date:     req.Date,
		Minute:   minute,
		SlotUTC:  slotUTC,
		Timezone: req.Timezone,
	})
	if err != nil {
		if errors.Is(err, ErrDuplicateSlot) {
			// Lost the race between snapshot and insert: re-resolve so the
			// caller still gets a suggestion.
			return s.resolveLostRace(ctx, req, localDate, minute)
		}
		span.RecordError(err)
		return Outcome{}, err
	}

	s.sendConfirmation(ctx, req)
	s.metrics.ObserveOutcome(string(OutcomeAccepted))
	s.logger.Info("appointment booked",
		"org_id", req.OrgID,
		"appointment_id", id,
		"date", req.Date,
		"time", req.Time,
		"timezone", req.Timezone,
	)
	return Outcome{Status: OutcomeAccepted, AppointmentID: id}, nil
}

// resolveLostRace turns a duplicate-key insert into a conflict outcome. With
// conflict checking disabled the suggestion is nil; the unique index still
// guarantees no two BookedSlots share a (org, date, minute) key.
func (s *Service) resolveLostRace(ctx context.Context, req Request, localDate time.Time, minute int) (Outcome, error) {
	outcome := Outcome{Status: OutcomeRejectedConflict}
	if s.conflictChecking {
		toDate := localDate.AddDate(0, 0, s.horizonDays+1).Format("2006-01-02")
		if snapshot, err := s.store.BookedSlots(ctx, req.OrgID, req.Date, toDate); err == nil {
			if result := s.resolver.CheckAndSuggest(localDate, minute, snapshot); result.Conflict {
				outcome.Suggested = result.Suggested
			}
		}
	}
	s.metrics.ObserveOutcome(string(OutcomeRejectedConflict))
	return outcome, nil
}

// sendConfirmation emails the customer. Fire-and-forget: a failure is
// logged and counted but never aborts the accept path.
func (s *Service) sendConfirmation(ctx context.Context, req Request) {
	if s.email == nil {
		return
	}
	body := fmt.Sprintf(
		"Hi %s,\n\nYour appointment with %s is confirmed for %s at %s (%s).\n\nServices: %s\n\nSee you then!",
		req.Name, s.profile.BusinessName, req.Date, req.Time, req.Timezone, joinOrNone(req.Services),
	)
	msg := notify.EmailMessage{
		To:      req.Email,
		ToName:  req.Name,
		Subject: fmt.Sprintf("Appointment confirmed with %s", s.profile.BusinessName),
		Body:    body,
	}
	if err := s.email.Send(ctx, msg); err != nil {
		s.metrics.ObserveEmailFailure()
		s.logger.Error("confirmation email failed", "error", err, "to", req.Email)
	}
}

func joinOrNone(services []string) string {
	if len(services) == 0 {
		return "general appointment"
	}
	out := services[0]
	for _, svc := range services[1:] {
		out += ", " + svc
	}
	return out
}
