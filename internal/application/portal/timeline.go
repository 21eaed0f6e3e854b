package portal

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/mektep-hub/mektep-portal/internal/domain/timeline"
	"github.com/mektep-hub/mektep-portal/internal/infrastructure/external/mektep"
	"github.com/mektep-hub/mektep-portal/pkg/timeutil"
)

// olderWindow is the span requested by each backward-pagination step.
const olderWindow = 14 * 24 * time.Hour

// TimelineSync incrementally merges remote homework and activity records
// into the locally accumulated history. Merges are keyed by id and
// overwrite, so refetching is idempotent and a later fetch always wins; the
// history only ever grows.
type TimelineSync struct {
	client *mektep.Client
	store  Store
	sess   *SessionManager
	mapper *mektep.Mapper
	logger *slog.Logger

	mu       sync.RWMutex
	timeline timeline.Timeline
}

// NewTimelineSync creates an empty timeline sync engine.
func NewTimelineSync(client *mektep.Client, store Store, sess *SessionManager, logger *slog.Logger) *TimelineSync {
	return &TimelineSync{
		client:   client,
		store:    store,
		sess:     sess,
		mapper:   mektep.NewMapper(),
		logger:   logger,
		timeline: timeline.New(),
	}
}

// restore loads the persisted history. Store failures are non-fatal; the
// sync engine just starts empty.
func (s *TimelineSync) restore(ctx context.Context) {
	ok, err := s.store.Contains(ctx, KeyTimeline)
	if err != nil || !ok {
		return
	}

	raw, err := s.store.Get(ctx, KeyTimeline)
	if err != nil {
		s.logger.Warn("timeline restore failed", "error", err)
		return
	}

	var stored timeline.Timeline
	if err := json.Unmarshal([]byte(raw), &stored); err != nil {
		s.logger.Warn("timeline cache is malformed", "error", err)
		return
	}

	s.mu.Lock()
	if stored.Homeworks != nil {
		s.timeline.Homeworks = stored.Homeworks
	}
	if stored.Items != nil {
		s.timeline.Items = stored.Items
	}
	s.mu.Unlock()
}

// RefreshRecent fetches the recent-activity bundle and merges it into the
// history.
func (s *TimelineSync) RefreshRecent(ctx context.Context) error {
	bundle, err := s.client.TimelineRecent(ctx, s.sess.Token())
	if err != nil {
		return err
	}
	s.merge(ctx, bundle)
	return nil
}

// LoadOlder pages backwards: it anchors on the earliest item currently held
// (now, if the history is empty) and requests the fixed window ending there.
// This is the one operation whose request depends on current cache contents.
func (s *TimelineSync) LoadOlder(ctx context.Context) error {
	s.mu.RLock()
	anchor, ok := s.timeline.EarliestItem()
	s.mu.RUnlock()
	if !ok {
		anchor = timeutil.Now()
	}

	bundle, err := s.client.Timeline(ctx, s.sess.Token(), anchor.Add(-olderWindow), anchor)
	if err != nil {
		return err
	}
	s.merge(ctx, bundle)
	return nil
}

// Timeline returns a snapshot of the accumulated history. The maps are
// copied so callers cannot race the background refresh.
func (s *TimelineSync) Timeline() timeline.Timeline {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snapshot := timeline.New()
	for id, hw := range s.timeline.Homeworks {
		snapshot.Homeworks[id] = hw
	}
	for id, it := range s.timeline.Items {
		snapshot.Items[id] = it
	}
	return snapshot
}

func (s *TimelineSync) merge(ctx context.Context, bundle *mektep.TimelineBundleDTO) {
	homeworks, items := s.mapper.BundleFromDTO(bundle)

	s.mu.Lock()
	s.timeline.MergeHomeworks(homeworks)
	s.timeline.MergeItems(items)
	s.mu.Unlock()

	s.persist(ctx)
}

func (s *TimelineSync) persist(ctx context.Context) {
	s.mu.RLock()
	raw, err := json.Marshal(s.timeline)
	s.mu.RUnlock()
	if err != nil {
		s.logger.Warn("timeline marshal failed", "error", err)
		return
	}
	if err := s.store.Set(ctx, KeyTimeline, string(raw)); err != nil {
		s.logger.Warn("timeline persist failed", "error", err)
	}
}
