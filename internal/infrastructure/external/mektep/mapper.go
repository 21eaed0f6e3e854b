// Package mektep implements the Mektep platform API client.
package mektep

import (
	"sort"
	"time"

	"github.com/mektep-hub/mektep-portal/internal/domain/timeline"
	"github.com/mektep-hub/mektep-portal/internal/domain/timetable"
	"github.com/mektep-hub/mektep-portal/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// MAPPER - DTO to domain transformations
// ══════════════════════════════════════════════════════════════════════════════

// Mapper transforms Mektep API DTOs into domain types, shielding the domain
// from wire-format changes. Lookups that fail degrade to zero values rather
// than erroring; this layer must always hand the UI something renderable.
type Mapper struct{}

// NewMapper creates a new Mapper instance.
func NewMapper() *Mapper {
	return &Mapper{}
}

// OccurrenceFromDTO converts one raw lesson. A missing or malformed lesson
// date falls back to the provided day.
func (m *Mapper) OccurrenceFromDTO(dto LessonDTO, fallback time.Time) timetable.Occurrence {
	date := fallback
	if dto.Date != "" {
		if parsed, err := timeutil.ParseDayKey(dto.Date); err == nil {
			date = parsed
		}
	}

	kind := dto.Type
	if kind == "" {
		kind = timetable.TypeLesson
	}

	return timetable.Occurrence{
		Type:        kind,
		Date:        date,
		PeriodID:    dto.Period,
		StartTime:   dto.StartTime,
		EndTime:     dto.EndTime,
		Subject:     dto.Subject,
		ClassGroups: dto.ClassGroups,
		Teachers:    dto.Teachers,
		Rooms:       dto.Rooms,
		GroupNames:  dto.GroupNames,
		StudentIDs:  dto.StudentIDs,
		Colors:      dto.Colors,
	}
}

// PeriodsFromDTO converts the id-keyed period map into a slice. The id comes
// from the map key, with the embedded id as fallback. Output is ordered by id
// for determinism; Normalize re-sorts by start time anyway.
func (m *Mapper) PeriodsFromDTO(dtos map[string]PeriodDTO) []timetable.Period {
	periods := make([]timetable.Period, 0, len(dtos))
	for key, dto := range dtos {
		id := key
		if id == "" {
			id = dto.ID
		}
		periods = append(periods, timetable.Period{
			ID:        id,
			StartTime: dto.StartTime,
			EndTime:   dto.EndTime,
			Name:      dto.Name,
			Label:     dto.Label,
		})
	}
	sort.Slice(periods, func(i, j int) bool { return periods[i].ID < periods[j].ID })
	return periods
}

// ItemFromDTO converts one feed event. Unparseable timestamps are left as
// zero values.
func (m *Mapper) ItemFromDTO(dto ItemDTO) timeline.Item {
	item := timeline.Item{
		ID:            dto.ID,
		ReplyTo:       dto.ReplyTo,
		Type:          dto.Type,
		ActorID:       dto.ActorID,
		ActorName:     dto.ActorName,
		TargetID:      dto.TargetID,
		TargetName:    dto.TargetName,
		Body:          dto.Body,
		Extras:        dto.Extras,
		ReactionCount: dto.ReactionCount,
		Removed:       dto.Removed,
	}
	if ts, err := time.Parse(time.RFC3339, dto.Timestamp); err == nil {
		item.Timestamp = ts
	}
	if dto.LastReactionAt != "" {
		if ts, err := time.Parse(time.RFC3339, dto.LastReactionAt); err == nil {
			item.LastReactionAt = &ts
		}
	}
	return item
}

// HomeworkFromDTO converts one assignment record. Attachments and topics are
// passed through untouched.
func (m *Mapper) HomeworkFromDTO(dto HomeworkDTO) timeline.Homework {
	hw := timeline.Homework{
		ID:          dto.ID,
		LessonID:    dto.LessonID,
		PlanID:      dto.PlanID,
		Name:        dto.Name,
		Details:     dto.Details,
		State:       dto.State,
		Likes:       dto.Likes,
		Reactions:   dto.Reactions,
		Completions: dto.Completions,
		Groups:      dto.Groups,
		Attachments: dto.Attachments,
		Topics:      dto.Topics,
		Extras:      dto.Extras,
	}
	if ts, err := time.Parse(time.RFC3339, dto.Due); err == nil {
		hw.Due = ts
	}
	if ts, err := time.Parse(time.RFC3339, dto.Created); err == nil {
		hw.Created = ts
	}
	return hw
}

// BundleFromDTO converts a timeline bundle into domain slices ready for
// merging.
func (m *Mapper) BundleFromDTO(dto *TimelineBundleDTO) ([]timeline.Homework, []timeline.Item) {
	if dto == nil {
		return nil, nil
	}
	homeworks := make([]timeline.Homework, 0, len(dto.Homeworks))
	for _, hw := range dto.Homeworks {
		homeworks = append(homeworks, m.HomeworkFromDTO(hw))
	}
	items := make([]timeline.Item, 0, len(dto.Items))
	for _, it := range dto.Items {
		items = append(items, m.ItemFromDTO(it))
	}
	return homeworks, items
}
