package scheduling

import (
	"time"
)

// Slot identifies an appointment slot at minute granularity in the
// business's local calendar.
type Slot struct {
	Date   string // YYYY-MM-DD
	Minute int    // minutes from midnight
}

// Clock renders the slot's time as "HH:MM".
func (s Slot) Clock() string {
	return formatClock(s.Minute)
}

// Snapshot is a read-only view of already-booked slots, taken before a
// resolution. Resolution is deterministic against a fixed snapshot; the
// store's conditional insert is the final authority on uniqueness.
type Snapshot map[Slot]struct{}

// Booked reports whether the exact slot is taken.
func (s Snapshot) Booked(date string, minute int) bool {
	_, ok := s[Slot{Date: date, Minute: minute}]
	return ok
}

// Add marks a slot as booked.
func (s Snapshot) Add(date string, minute int) {
	s[Slot{Date: date, Minute: minute}] = struct{}{}
}

// Result is the outcome of a conflict check.
type Result struct {
	Conflict  bool
	Suggested *Slot // nil when no alternative exists within the horizon
}

// Resolver detects slot collisions and proposes the nearest free
// alternative inside business hours.
type Resolver struct {
	schedule    *Schedule
	stepMinutes int
	horizonDays int
}

// NewResolver creates a resolver stepping forward in stepMinutes increments
// and rolling over to the next open day within horizonDays.
func NewResolver(schedule *Schedule, stepMinutes, horizonDays int) *Resolver {
	if stepMinutes <= 0 {
		stepMinutes = 20
	}
	if horizonDays <= 0 {
		horizonDays = 7
	}
	return &Resolver{schedule: schedule, stepMinutes: stepMinutes, horizonDays: horizonDays}
}

// CheckAndSuggest reports whether the candidate slot collides with a booked
// slot and, on collision, the nearest free alternative: first forward within
// the candidate's business-hours window, then once more from the opening of
// the next open day. A nil suggestion signals total unavailability.
func (r *Resolver) CheckAndSuggest(date time.Time, minute int, booked Snapshot) Result {
	dateStr := date.Format("2006-01-02")
	if !booked.Booked(dateStr, minute) {
		return Result{Conflict: false}
	}

	if slot := r.searchWindow(date, minute, booked); slot != nil {
		return Result{Conflict: true, Suggested: slot}
	}

	// Window exhausted: roll to the next open day and retry once from its
	// opening time.
	if offset, ok := r.schedule.NextOpenDay(date.Weekday(), r.horizonDays); ok {
		next := date.AddDate(0, 0, offset)
		win, _ := r.schedule.Window(next.Weekday())
		if !booked.Booked(next.Format("2006-01-02"), win.OpenMinutes) {
			return Result{Conflict: true, Suggested: &Slot{Date: next.Format("2006-01-02"), Minute: win.OpenMinutes}}
		}
		if slot := r.searchWindow(next, win.OpenMinutes, booked); slot != nil {
			return Result{Conflict: true, Suggested: slot}
		}
	}

	return Result{Conflict: true, Suggested: nil}
}

// searchWindow steps forward from the candidate minute within the window it
// belongs to on the given date. For midnight-wrapping windows the scan can
// cross into the next calendar date.
func (r *Resolver) searchWindow(date time.Time, minute int, booked Snapshot) *Slot {
	win, ok := r.schedule.Window(date.Weekday())
	if !ok || !win.Contains(minute) {
		return nil
	}

	// Map the window to a linear [open, end) range. For wrapped windows an
	// early-morning candidate sits in the tail segment that began the
	// previous evening, so only [minute, close) remains to scan.
	end := win.CloseMinutes
	pos := minute
	if win.OpenMinutes >= win.CloseMinutes { // wraps midnight
		if minute >= win.OpenMinutes {
			end = win.CloseMinutes + 24*60
		}
	}

	for pos += r.stepMinutes; pos < end; pos += r.stepMinutes {
		slotDate := date
		slotMinute := pos
		if pos >= 24*60 {
			slotDate = date.AddDate(0, 0, 1)
			slotMinute = pos - 24*60
		}
		if !booked.Booked(slotDate.Format("2006-01-02"), slotMinute) {
			return &Slot{Date: slotDate.Format("2006-01-02"), Minute: slotMinute}
		}
	}
	return nil
}
