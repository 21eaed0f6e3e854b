// Package mektep implements the Mektep platform API client.
// This package handles all communication with the remote school portal:
// login, token validation, and the timetable and timeline feeds.
package mektep

import (
	"encoding/json"
	"fmt"
)

// ══════════════════════════════════════════════════════════════════════════════
// AUTH DTOs
// ══════════════════════════════════════════════════════════════════════════════

// LoginResponseDTO is the payload of POST /login.
type LoginResponseDTO struct {
	Success     bool   `json:"success"`
	Token       string `json:"token"`
	DisplayName string `json:"display_name"`
	Error       string `json:"error,omitempty"`
}

// ValidateResponseDTO is the payload of GET /validate-token.
type ValidateResponseDTO struct {
	Success bool `json:"success"`
}

// ══════════════════════════════════════════════════════════════════════════════
// TIMETABLE DTOs
// ══════════════════════════════════════════════════════════════════════════════

// PeriodDTO describes one named time slot of the school day. The periods
// endpoint returns these keyed by period id.
type PeriodDTO struct {
	ID        string `json:"id,omitempty"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
	Name      string `json:"name,omitempty"`
	Label     string `json:"label,omitempty"`
}

// LessonDTO is one raw scheduled lesson as the platform reports it. Records
// without a student-id list are scheduling noise (staff blocks, placeholders)
// and are dropped by the cache before normalization.
type LessonDTO struct {
	Type        string   `json:"type,omitempty"`
	Date        string   `json:"date,omitempty"`
	Period      string   `json:"period"`
	StartTime   string   `json:"start_time,omitempty"`
	EndTime     string   `json:"end_time,omitempty"`
	Subject     string   `json:"subject,omitempty"`
	ClassGroups []string `json:"class_groups,omitempty"`
	Teachers    []string `json:"teachers,omitempty"`
	Rooms       []string `json:"rooms,omitempty"`
	GroupNames  []string `json:"group_names,omitempty"`
	StudentIDs  []string `json:"student_ids,omitempty"`
	Colors      []string `json:"colors,omitempty"`
}

// TimetableDayDTO is the payload of GET /api/timetable for a single-day
// window. Date may be empty; callers fall back to the requested date.
type TimetableDayDTO struct {
	Date    string      `json:"date,omitempty"`
	Classes []LessonDTO `json:"classes"`
}

// RecentTimetableDTO is the payload of GET /api/timetable/recent: raw lessons
// for a multi-day window keyed by ISO date.
type RecentTimetableDTO map[string][]LessonDTO

// ══════════════════════════════════════════════════════════════════════════════
// TIMELINE DTOs
// ══════════════════════════════════════════════════════════════════════════════

// ItemDTO is one activity-feed event.
type ItemDTO struct {
	ID             string                     `json:"id"`
	Timestamp      string                     `json:"timestamp"`
	ReplyTo        string                     `json:"reply_to,omitempty"`
	Type           string                     `json:"type"`
	ActorID        string                     `json:"actor_id,omitempty"`
	ActorName      string                     `json:"actor_name,omitempty"`
	TargetID       string                     `json:"target_id,omitempty"`
	TargetName     string                     `json:"target_name,omitempty"`
	Body           string                     `json:"body,omitempty"`
	Extras         map[string]json.RawMessage `json:"extras,omitempty"`
	ReactionCount  int                        `json:"reaction_count,omitempty"`
	LastReactionAt string                     `json:"last_reaction_at,omitempty"`
	Removed        bool                       `json:"removed,omitempty"`
}

// HomeworkDTO is one assignment record. Attachments and topics carry no
// guaranteed schema and are kept as raw JSON.
type HomeworkDTO struct {
	ID          string                     `json:"id"`
	LessonID    string                     `json:"lesson_id,omitempty"`
	PlanID      string                     `json:"plan_id,omitempty"`
	Name        string                     `json:"name"`
	Details     string                     `json:"details,omitempty"`
	Due         string                     `json:"due,omitempty"`
	Created     string                     `json:"created,omitempty"`
	State       string                     `json:"state,omitempty"`
	Likes       int                        `json:"likes,omitempty"`
	Reactions   int                        `json:"reactions,omitempty"`
	Completions int                        `json:"completions,omitempty"`
	Groups      []string                   `json:"groups,omitempty"`
	Attachments json.RawMessage            `json:"attachments,omitempty"`
	Topics      json.RawMessage            `json:"topics,omitempty"`
	Extras      map[string]json.RawMessage `json:"extras,omitempty"`
}

// TimelineBundleDTO is the payload of both timeline endpoints: homeworks and
// items fetched together.
type TimelineBundleDTO struct {
	Homeworks []HomeworkDTO `json:"homeworks"`
	Items     []ItemDTO     `json:"items"`
}

// ══════════════════════════════════════════════════════════════════════════════
// ERRORS
// ══════════════════════════════════════════════════════════════════════════════

// APIError is a non-2xx response from the platform.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("mektep: api error: status %d", e.Status)
	}
	return fmt.Sprintf("mektep: api error: status %d: %s", e.Status, e.Message)
}
