// Package timeline contains the activity-feed domain model: homework
// assignments and feed items accumulated from the remote platform into a
// local, deduplicated history. The history grows monotonically through
// merges keyed by id; nothing is ever deleted.
// This is a pure domain layer with zero external dependencies.
package timeline

import (
	"encoding/json"
	"time"
)

// Item is an immutable feed event.
type Item struct {
	// ID is the globally unique event id.
	ID string `json:"id"`

	// Timestamp is when the event happened.
	Timestamp time.Time `json:"timestamp"`

	// ReplyTo references the id of the item this one replies to, if any.
	// The reference is non-owning; the target may not be loaded yet.
	ReplyTo string `json:"reply_to,omitempty"`

	// Type tags the kind of event (message, reaction, grade, ...).
	Type string `json:"type"`

	ActorID    string `json:"actor_id,omitempty"`
	ActorName  string `json:"actor_name,omitempty"`
	TargetID   string `json:"target_id,omitempty"`
	TargetName string `json:"target_name,omitempty"`

	// Body is the free-text payload.
	Body string `json:"body,omitempty"`

	// Extras carries platform fields this layer does not interpret. They
	// are kept as raw JSON and passed through untouched.
	Extras map[string]json.RawMessage `json:"extras,omitempty"`

	ReactionCount  int        `json:"reaction_count"`
	LastReactionAt *time.Time `json:"last_reaction_at,omitempty"`

	// Removed marks the event as deleted on the platform. It is data, not
	// an instruction: removed items stay in the history.
	Removed bool `json:"removed,omitempty"`
}

// Homework is an assignment record.
type Homework struct {
	ID       string `json:"id"`
	LessonID string `json:"lesson_id,omitempty"`
	PlanID   string `json:"plan_id,omitempty"`

	Name    string `json:"name"`
	Details string `json:"details,omitempty"`

	Due     time.Time `json:"due"`
	Created time.Time `json:"created"`

	State string `json:"state,omitempty"`

	Likes       int `json:"likes"`
	Reactions   int `json:"reactions"`
	Completions int `json:"completions"`

	Groups []string `json:"groups,omitempty"`

	// Attachments and Topics have no schema guaranteed by the platform;
	// they are stored opaquely and passed through to the UI as-is.
	Attachments json.RawMessage            `json:"attachments,omitempty"`
	Topics      json.RawMessage            `json:"topics,omitempty"`
	Extras      map[string]json.RawMessage `json:"extras,omitempty"`
}

// Timeline is the accumulated feed: two maps keyed by globally unique ids.
// Insertion order is irrelevant; merge is idempotent, later fetches of the
// same id overwrite with the latest server value.
type Timeline struct {
	Homeworks map[string]Homework `json:"homeworks"`
	Items     map[string]Item     `json:"items"`
}

// New returns an empty Timeline with both maps allocated.
func New() Timeline {
	return Timeline{
		Homeworks: make(map[string]Homework),
		Items:     make(map[string]Item),
	}
}

// MergeItems folds feed items into the history, overwriting by id.
func (t *Timeline) MergeItems(items []Item) {
	if t.Items == nil {
		t.Items = make(map[string]Item, len(items))
	}
	for _, it := range items {
		t.Items[it.ID] = it
	}
}

// MergeHomeworks folds homework records into the history, overwriting by id.
func (t *Timeline) MergeHomeworks(homeworks []Homework) {
	if t.Homeworks == nil {
		t.Homeworks = make(map[string]Homework, len(homeworks))
	}
	for _, hw := range homeworks {
		t.Homeworks[hw.ID] = hw
	}
}

// EarliestItem returns the oldest item timestamp in the history, used as the
// anchor for backward pagination. Items with a zero timestamp (the platform
// occasionally serves unparseable ones) are ignored so they cannot drag the
// anchor back to year 1. ok is false when no timestamped items are held.
func (t *Timeline) EarliestItem() (earliest time.Time, ok bool) {
	for _, it := range t.Items {
		if it.Timestamp.IsZero() {
			continue
		}
		if !ok || it.Timestamp.Before(earliest) {
			earliest = it.Timestamp
			ok = true
		}
	}
	return earliest, ok
}
