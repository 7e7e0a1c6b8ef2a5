// Package scheduling implements business-hours validation and appointment
// slot conflict resolution.
package scheduling

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Window is a daily open/close interval in minutes from midnight. A close
// numerically below the open means the window wraps past midnight into the
// next calendar day. Open == close means closed.
type Window struct {
	OpenMinutes  int
	CloseMinutes int
}

// Contains reports whether minute-of-day m falls in [open, close),
// accounting for midnight wraparound.
func (w Window) Contains(m int) bool {
	if w.OpenMinutes == w.CloseMinutes {
		return false
	}
	if w.OpenMinutes < w.CloseMinutes {
		return m >= w.OpenMinutes && m < w.CloseMinutes
	}
	// Window crosses midnight.
	return m >= w.OpenMinutes || m < w.CloseMinutes
}

// Format renders the window as "HH:MM-HH:MM".
func (w Window) Format() string {
	return fmt.Sprintf("%s-%s", formatClock(w.OpenMinutes), formatClock(w.CloseMinutes))
}

// Schedule declares the weekly open/close windows. Static configuration,
// read-only after parsing.
type Schedule struct {
	windows map[time.Weekday]Window
}

var dayTokens = map[string]time.Weekday{
	"sun": time.Sunday,
	"mon": time.Monday,
	"tue": time.Tuesday,
	"wed": time.Wednesday,
	"thu": time.Thursday,
	"fri": time.Friday,
	"sat": time.Saturday,
}

// ParseSchedule reads a weekly schedule from a config string like
// "mon=09:00-17:00,fri=18:00-03:00". Days absent from the string are closed.
func ParseSchedule(spec string) (*Schedule, error) {
	windows := make(map[time.Weekday]Window)
	for _, part := range strings.Split(spec, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		kv := strings.SplitN(part, "=", 2)
		if len(kv) != 2 {
			return nil, fmt.Errorf("scheduling: malformed schedule entry %q", part)
		}
		day, ok := dayTokens[strings.ToLower(strings.TrimSpace(kv[0]))]
		if !ok {
			return nil, fmt.Errorf("scheduling: unknown weekday %q", kv[0])
		}
		span := strings.SplitN(kv[1], "-", 2)
		if len(span) != 2 {
			return nil, fmt.Errorf("scheduling: malformed window %q", kv[1])
		}
		open, err := ParseClock(span[0])
		if err != nil {
			return nil, fmt.Errorf("scheduling: parse open for %s: %w", kv[0], err)
		}
		close, err := ParseClock(span[1])
		if err != nil {
			return nil, fmt.Errorf("scheduling: parse close for %s: %w", kv[0], err)
		}
		windows[day] = Window{OpenMinutes: open, CloseMinutes: close}
	}
	if len(windows) == 0 {
		return nil, fmt.Errorf("scheduling: schedule %q declares no open days", spec)
	}
	return &Schedule{windows: windows}, nil
}

// Window returns the window for a weekday, if the business opens that day.
func (s *Schedule) Window(day time.Weekday) (Window, bool) {
	w, ok := s.windows[day]
	if ok && w.OpenMinutes == w.CloseMinutes {
		return Window{}, false
	}
	return w, ok
}

// Contains reports whether minute-of-day m on the given weekday falls inside
// business hours. Periodic over the 7-day cycle by construction.
func (s *Schedule) Contains(day time.Weekday, m int) bool {
	w, ok := s.windows[day]
	return ok && w.Contains(m)
}

// IsWithinBusinessHours normalizes a calendar date and wall-clock time in
// the caller's IANA timezone and checks it against the weekly schedule.
// Pure: no I/O beyond the timezone database lookup.
func (s *Schedule) IsWithinBusinessHours(date, clock, timezone string) (bool, error) {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return false, fmt.Errorf("scheduling: load timezone %q: %w", timezone, err)
	}
	t, err := time.ParseInLocation("2006-01-02 15:04", date+" "+clock, loc)
	if err != nil {
		return false, fmt.Errorf("scheduling: parse date/time %q %q: %w", date, clock, err)
	}
	return s.Contains(t.Weekday(), t.Hour()*60+t.Minute()), nil
}

// NextOpenDay returns the smallest offset in (0, maxDays] such that the
// business opens offset days after the given weekday.
func (s *Schedule) NextOpenDay(from time.Weekday, maxDays int) (int, bool) {
	for offset := 1; offset <= maxDays; offset++ {
		day := time.Weekday((int(from) + offset) % 7)
		if _, ok := s.Window(day); ok {
			return offset, true
		}
	}
	return 0, false
}

// Describe renders the weekly schedule for user-facing rejection messages,
// in Sunday-first weekday order.
func (s *Schedule) Describe() string {
	days := make([]time.Weekday, 0, len(s.windows))
	for day := range s.windows {
		days = append(days, day)
	}
	sort.Slice(days, func(i, j int) bool { return days[i] < days[j] })

	parts := make([]string, 0, len(days))
	for _, day := range days {
		parts = append(parts, fmt.Sprintf("%s %s", day.String()[:3], s.windows[day].Format()))
	}
	return strings.Join(parts, ", ")
}

// ParseClock converts "HH:MM" to minutes from midnight.
func ParseClock(v string) (int, error) {
	t, err := time.Parse("15:04", strings.TrimSpace(v))
	if err != nil {
		return 0, err
	}
	return t.Hour()*60 + t.Minute(), nil
}

func formatClock(m int) string {
	return fmt.Sprintf("%02d:%02d", m/60, m%60)
}
