// Package timetable contains the schedule domain model and the normalization
// algorithm that turns raw lesson records into a gapless, ordered day grid.
// This is a pure domain layer with zero external dependencies.
package timetable

import (
	"time"
)

// Occurrence types. Empty slots are synthesized by Normalize for periods with
// no underlying lesson so the rendered grid has no silent holes.
const (
	TypeLesson = "lesson"
	TypeEmpty  = "empty"
)

// Period is a fixed named time slot in the school day, shared by every lesson
// on a given date. Identified by ID; the set of periods for a day is unique
// by ID within that day.
type Period struct {
	// ID is the period identifier, typically a small number as a string.
	ID string `json:"id"`

	// StartTime and EndTime are wall-clock strings in fixed "HH:MM" format.
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`

	// Name is the display name, e.g. "1st period".
	Name string `json:"name,omitempty"`

	// Label is the short display label, e.g. "1".
	Label string `json:"label,omitempty"`

	// Synthetic marks a period that was fabricated from an occurrence's own
	// fields because no table entry matched its period id. Real periods from
	// the platform never carry this flag.
	Synthetic bool `json:"synthetic,omitempty"`
}

// Occurrence is one scheduled (or synthesized empty) lesson slot on a
// specific date.
type Occurrence struct {
	Type      string    `json:"type"`
	Date      time.Time `json:"date"`
	PeriodID  string    `json:"period_id"`
	StartTime string    `json:"start_time"`
	EndTime   string    `json:"end_time"`

	Subject     string   `json:"subject,omitempty"`
	ClassGroups []string `json:"class_groups,omitempty"`
	Teachers    []string `json:"teachers,omitempty"`
	Rooms       []string `json:"rooms,omitempty"`
	GroupNames  []string `json:"group_names,omitempty"`
	StudentIDs  []string `json:"student_ids,omitempty"`
	Colors      []string `json:"colors,omitempty"`

	// StartPeriod and EndPeriod are resolved by Normalize and are non-nil on
	// every normalized occurrence. They are detached copies, looked up by id,
	// never shared with the day's period table. EndPeriod differs from
	// StartPeriod for lessons spanning consecutive periods.
	StartPeriod *Period `json:"start_period,omitempty"`
	EndPeriod   *Period `json:"end_period,omitempty"`
}

// Empty reports whether the occurrence is a synthesized free slot.
func (o Occurrence) Empty() bool {
	return o.Type == TypeEmpty
}

// DaySchedule is the full set of occurrences plus the applicable period table
// for one calendar date. The date carries no time of day.
type DaySchedule struct {
	Date    time.Time    `json:"date"`
	Classes []Occurrence `json:"classes"`
	Periods []Period     `json:"periods"`
}
