package appointments

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/bizlink-ai/concierge-platform/internal/scheduling"
)

// ErrDuplicateSlot means another appointment already holds the (org, date,
// time) key. The unique index behind the conditional insert is what makes
// concurrent bookings of the same slot safe.
var ErrDuplicateSlot = errors.New("appointments: slot already booked")

// DB is the subset of pgxpool.Pool the repository needs. pgxmock satisfies
// it in tests.
type DB interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// Repository provides persistence for booked slots.
type Repository struct {
	db DB
}

// NewRepository creates a repository backed by a pgx pool.
func NewRepository(db DB) *Repository {
	if db == nil {
		panic("appointments: db required")
	}
	return &Repository{db: db}
}

const insertUniqueSQL = `INSERT INTO appointments
	(id, org_id, customer_name, email, phone, services, slot_date, slot_minute, slot_utc, timezone, notes, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
ON CONFLICT (org_id, slot_date, slot_minute) DO NOTHING
RETURNING id`

// InsertUnique atomically inserts a booked slot, failing with
// ErrDuplicateSlot when the (org, date, minute) key is already taken.
func (r *Repository) InsertUnique(ctx context.Context, slot BookedSlot) (uuid.UUID, error) {
	id := slot.ID
	if id == uuid.Nil {
		id = uuid.New()
	}
	createdAt := slot.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	var inserted uuid.UUID
	err := r.db.QueryRow(ctx, insertUniqueSQL,
		id, slot.OrgID, slot.Name, slot.Email, slot.Phone, slot.Services,
		slot.Date, slot.Minute, slot.SlotUTC, slot.Timezone, slot.Notes, createdAt,
	).Scan(&inserted)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return uuid.Nil, ErrDuplicateSlot
		}
		return uuid.Nil, fmt.Errorf("appointments: insert slot: %w", err)
	}
	return inserted, nil
}

const bookedSlotsSQL = `SELECT slot_date, slot_minute FROM appointments
WHERE org_id = $1 AND slot_date >= $2 AND slot_date <= $3`

// BookedSlots returns a snapshot of booked (date, minute) pairs for the org
// within [fromDate, toDate], both YYYY-MM-DD inclusive.
func (r *Repository) BookedSlots(ctx context.Context, orgID, fromDate, toDate string) (scheduling.Snapshot, error) {
	rows, err := r.db.Query(ctx, bookedSlotsSQL, orgID, fromDate, toDate)
	if err != nil {
		return nil, fmt.Errorf("appointments: query booked slots: %w", err)
	}
	defer rows.Close()

	snapshot := scheduling.Snapshot{}
	for rows.Next() {
		var date string
		var minute int
		if err := rows.Scan(&date, &minute); err != nil {
			return nil, fmt.Errorf("appointments: scan booked slot: %w", err)
		}
		snapshot.Add(date, minute)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("appointments: iterate booked slots: %w", err)
	}
	return snapshot, nil
}
