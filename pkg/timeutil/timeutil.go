// Package timeutil provides timezone and calendar-day utilities for the
// Mektep Portal data layer. Schedule entries are keyed by calendar date with
// the time of day stripped, so most helpers here deal in "days".
// No external dependencies - uses only standard library.
package timeutil

import (
	"time"
)

// PortalTZ is the timezone the portal operates in (UTC+5, no DST).
// Kazakhstan abolished DST in 2005, so this is constant year-round.
var PortalTZ = time.FixedZone("Asia/Almaty", 5*60*60)

// DayKeyLayout is the layout used for per-day cache keys and for dates
// reported by the timetable endpoints.
const DayKeyLayout = "2006-01-02"

// Now returns the current time in the portal timezone.
func Now() time.Time {
	return time.Now().In(PortalTZ)
}

// StartOfDay strips the time of day, returning midnight in the portal
// timezone. All schedule map keys go through this.
func StartOfDay(t time.Time) time.Time {
	local := t.In(PortalTZ)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, PortalTZ)
}

// DayKey formats a time as a calendar-day key, e.g. "2026-02-09".
func DayKey(t time.Time) string {
	return t.In(PortalTZ).Format(DayKeyLayout)
}

// ParseDayKey parses a calendar-day key back into midnight of that day in the
// portal timezone.
func ParseDayKey(key string) (time.Time, error) {
	t, err := time.ParseInLocation(DayKeyLayout, key, PortalTZ)
	if err != nil {
		return time.Time{}, err
	}
	return t, nil
}

// SameDay reports whether two instants fall on the same calendar day in the
// portal timezone.
func SameDay(a, b time.Time) bool {
	return StartOfDay(a).Equal(StartOfDay(b))
}
