package timetable

import (
	"sort"
	"strconv"
	"time"
)

// Normalize turns an unsorted list of occurrences plus the day's period table
// into a display-ready DaySchedule: period references resolved, multi-period
// spans reconciled, occurrences sorted, and every skipped period filled with
// a synthesized empty slot.
//
// Normalize is a total function: a missing period lookup degrades to a
// synthetic self-describing period instead of failing, an empty occurrence
// list yields an empty schedule, and an empty period table means no gaps can
// be detected. It is idempotent, which the cache relies on when re-running it
// over reloaded data.
func Normalize(date time.Time, classes []Occurrence, periods []Period) DaySchedule {
	out := make([]Occurrence, len(classes))
	copy(out, classes)

	table := make([]Period, len(periods))
	copy(table, periods)

	// Step 1: resolve start and end periods by id, falling back to a
	// synthetic period built from the occurrence's own fields.
	for i := range out {
		p := resolvePeriod(table, &out[i])
		out[i].StartPeriod = p
		end := *p
		out[i].EndPeriod = &end
	}

	// Step 2: a raw end time that disagrees with the resolved period's end
	// time means the lesson runs across consecutive periods. Re-point the
	// end period at the table entry that actually ends then, if any.
	for i := range out {
		if out[i].EndTime == "" || out[i].EndTime == out[i].EndPeriod.EndTime {
			continue
		}
		for _, p := range table {
			if p.EndTime == out[i].EndTime {
				end := p
				out[i].EndPeriod = &end
				break
			}
		}
	}

	// Step 3: primary sort.
	sortOccurrences(out)

	// Step 4: the period table is ordered by start time. Lexicographic
	// comparison is sufficient for the fixed "HH:MM" format.
	sort.SliceStable(table, func(i, j int) bool {
		return table[i].StartTime < table[j].StartTime
	})

	// Step 5: walk adjacent occurrences and synthesize an empty slot for
	// every period strictly between one's end and the next one's start.
	var fills []Occurrence
	for i := 0; i+1 < len(out); i++ {
		cur := indexOfPeriod(table, out[i].EndPeriod.ID)
		next := indexOfPeriod(table, out[i+1].StartPeriod.ID)
		if cur < 0 || next < 0 {
			continue
		}
		for k := cur + 1; k < next; k++ {
			fills = append(fills, emptySlot(date, table[k]))
		}
	}

	// Step 6: merge and re-sort.
	if len(fills) > 0 {
		out = append(out, fills...)
		sortOccurrences(out)
	}

	return DaySchedule{Date: date, Classes: out, Periods: table}
}

// resolvePeriod finds the table entry matching the occurrence's period id. If
// none matches, it fabricates a clearly-marked synthetic period from the
// occurrence's own id and time fields. Always returns a detached copy.
func resolvePeriod(table []Period, occ *Occurrence) *Period {
	for _, p := range table {
		if p.ID == occ.PeriodID {
			found := p
			return &found
		}
	}
	return &Period{
		ID:        occ.PeriodID,
		StartTime: occ.StartTime,
		EndTime:   occ.EndTime,
		Synthetic: true,
	}
}

// sortOccurrences orders occurrences by numeric period id. The comparison
// pits the first element's start-period id against the second element's
// end-period id; for single-period lessons the two coincide, for multi-period
// lessons the asymmetry pulls spanning lessons ahead of the slots they cover.
// Non-numeric ids compare as equal, so those elements keep their relative
// order under the stable sort. This is a weak ordering, not a total one.
func sortOccurrences(classes []Occurrence) {
	sort.SliceStable(classes, func(i, j int) bool {
		x, errX := strconv.Atoi(classes[i].StartPeriod.ID)
		y, errY := strconv.Atoi(classes[j].EndPeriod.ID)
		if errX != nil || errY != nil {
			return false
		}
		return x < y
	})
}

// indexOfPeriod returns the position of the period with the given id in the
// sorted table, or -1 if it is not there (synthetic fallback periods never
// are).
func indexOfPeriod(table []Period, id string) int {
	for i, p := range table {
		if p.ID == id {
			return i
		}
	}
	return -1
}

// emptySlot builds a synthesized free-period occurrence carrying only the
// period and time fields.
func emptySlot(date time.Time, p Period) Occurrence {
	start := p
	end := p
	return Occurrence{
		Type:        TypeEmpty,
		Date:        date,
		PeriodID:    p.ID,
		StartTime:   p.StartTime,
		EndTime:     p.EndTime,
		StartPeriod: &start,
		EndPeriod:   &end,
	}
}
