package portal

import (
	"context"
	"encoding/json"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/mektep-hub/mektep-portal/internal/domain/timetable"
	"github.com/mektep-hub/mektep-portal/internal/infrastructure/external/mektep"
	"github.com/mektep-hub/mektep-portal/pkg/timeutil"
)

// ScheduleCache is the per-date store of normalized day schedules plus the
// shared period table. Reads go to the in-memory map first; misses fall
// through to the demo dataset, the no-token empty schedule, or a remote
// fetch, in that order. Every successful fetch overwrites in place
// (last-fetch-wins) and flushes the whole cache document to the store.
type ScheduleCache struct {
	client *mektep.Client
	store  Store
	sess   *SessionManager
	mapper *mektep.Mapper
	logger *slog.Logger

	mu            sync.RWMutex
	days          map[string]timetable.DaySchedule
	periods       []timetable.Period
	periodsLoaded bool
	demo          bool

	// fetchMu serializes the period-table fetch so concurrent misses do not
	// each hit the network.
	fetchMu sync.Mutex
}

// timetableDoc is the persisted shape of the schedule cache: the full
// date→schedule map plus the shared period table, one JSON document.
type timetableDoc struct {
	Days    map[string]timetable.DaySchedule `json:"days"`
	Periods []timetable.Period               `json:"periods"`
}

// NewScheduleCache creates an empty schedule cache.
func NewScheduleCache(client *mektep.Client, store Store, sess *SessionManager, logger *slog.Logger) *ScheduleCache {
	return &ScheduleCache{
		client: client,
		store:  store,
		sess:   sess,
		mapper: mektep.NewMapper(),
		logger: logger,
		days:   make(map[string]timetable.DaySchedule),
	}
}

// restore loads the persisted cache document and re-runs normalization on
// every stored day. Normalization is idempotent, so reloading an already
// normalized schedule is a no-op; running it anyway means a cache written by
// an older build still comes up in canonical shape.
func (c *ScheduleCache) restore(ctx context.Context) {
	// The demo flag is its own tiny document, independent of whether any
	// schedule was ever cached.
	if flag, err := c.store.Get(ctx, KeyDemo); err == nil {
		c.mu.Lock()
		c.demo = flag == "true"
		c.mu.Unlock()
	}

	ok, err := c.store.Contains(ctx, KeyTimetable)
	if err != nil || !ok {
		return
	}

	raw, err := c.store.Get(ctx, KeyTimetable)
	if err != nil {
		c.logger.Warn("timetable restore failed", "error", err)
		return
	}

	var doc timetableDoc
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		c.logger.Warn("timetable cache is malformed", "error", err)
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for key, day := range doc.Days {
		c.days[key] = timetable.Normalize(day.Date, day.Classes, day.Periods)
	}
	if len(doc.Periods) > 0 {
		c.periods = doc.Periods
		c.periodsLoaded = true
	}
}

// Periods returns the shared period table, fetching it from the platform at
// most once per process. Fetch failures propagate.
func (c *ScheduleCache) Periods(ctx context.Context) ([]timetable.Period, error) {
	c.mu.RLock()
	if c.periodsLoaded {
		defer c.mu.RUnlock()
		return c.periods, nil
	}
	c.mu.RUnlock()

	c.fetchMu.Lock()
	defer c.fetchMu.Unlock()

	// Re-check: a concurrent caller may have completed the fetch while this
	// one waited on the fetch lock.
	c.mu.RLock()
	if c.periodsLoaded {
		defer c.mu.RUnlock()
		return c.periods, nil
	}
	c.mu.RUnlock()

	dtos, err := c.client.Periods(ctx, c.sess.Token())
	if err != nil {
		return nil, err
	}
	periods := c.mapper.PeriodsFromDTO(dtos)

	c.mu.Lock()
	c.periods = periods
	c.periodsLoaded = true
	c.mu.Unlock()

	return periods, nil
}

// Day returns the schedule for the given date, normalized to midnight.
// Cache hits return as-is. On a miss: demo mode yields the fixed synthetic
// schedule with no network; a missing token yields an empty schedule with no
// error; otherwise the single day is fetched, filtered, normalized, cached
// under the date the response reports, and persisted.
func (c *ScheduleCache) Day(ctx context.Context, date time.Time) (timetable.DaySchedule, error) {
	day := timeutil.StartOfDay(date)

	c.mu.RLock()
	cached, hit := c.days[timeutil.DayKey(day)]
	demo := c.demo
	c.mu.RUnlock()

	if hit {
		return cached, nil
	}
	if demo {
		return demoSchedule(day), nil
	}

	token := c.sess.Token()
	if token == "" {
		return timetable.DaySchedule{Date: day}, nil
	}

	dto, err := c.client.Timetable(ctx, token, day, day)
	if err != nil {
		return timetable.DaySchedule{}, err
	}

	periods, err := c.Periods(ctx)
	if err != nil {
		return timetable.DaySchedule{}, err
	}

	// The response may report its own date; fall back to the requested one.
	respDay := day
	if dto.Date != "" {
		if parsed, err := timeutil.ParseDayKey(dto.Date); err == nil {
			respDay = parsed
		}
	}

	sched := timetable.Normalize(respDay, c.lessons(dto.Classes, respDay), periods)

	c.mu.Lock()
	c.days[timeutil.DayKey(respDay)] = sched
	c.mu.Unlock()

	c.persist(ctx)
	return sched, nil
}

// Recent fetches the platform's multi-day window in one call, refreshes
// every returned day in the cache (last-fetch-wins), persists once, and
// returns the refreshed days ordered by date.
func (c *ScheduleCache) Recent(ctx context.Context) ([]timetable.DaySchedule, error) {
	dto, err := c.client.TimetableRecent(ctx, c.sess.Token())
	if err != nil {
		return nil, err
	}

	periods, err := c.Periods(ctx)
	if err != nil {
		return nil, err
	}

	keys := make([]string, 0, len(dto))
	for key := range dto {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	out := make([]timetable.DaySchedule, 0, len(keys))
	c.mu.Lock()
	for _, key := range keys {
		day, err := timeutil.ParseDayKey(key)
		if err != nil {
			c.logger.Warn("recent timetable has unparseable day", "key", key)
			continue
		}
		sched := timetable.Normalize(day, c.lessons(dto[key], day), periods)
		c.days[timeutil.DayKey(day)] = sched
		out = append(out, sched)
	}
	c.mu.Unlock()

	c.persist(ctx)
	return out, nil
}

// Today is a convenience for Day(now).
func (c *ScheduleCache) Today(ctx context.Context) (timetable.DaySchedule, error) {
	return c.Day(ctx, timeutil.Now())
}

// Demo reports whether the synthetic demo schedule is enabled.
func (c *ScheduleCache) Demo() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.demo
}

// SetDemo toggles demo mode and persists the flag.
func (c *ScheduleCache) SetDemo(ctx context.Context, on bool) {
	c.mu.Lock()
	c.demo = on
	c.mu.Unlock()

	value := "false"
	if on {
		value = "true"
	}
	if err := c.store.Set(ctx, KeyDemo, value); err != nil {
		c.logger.Warn("demo flag persist failed", "error", err)
	}
}

// lessons converts raw lesson DTOs to occurrences, dropping records without
// a student-id list: the platform mixes staff blocks and placeholders into
// the feed and those are noise for a student schedule.
func (c *ScheduleCache) lessons(dtos []mektep.LessonDTO, fallback time.Time) []timetable.Occurrence {
	occs := make([]timetable.Occurrence, 0, len(dtos))
	for _, dto := range dtos {
		if dto.StudentIDs == nil {
			continue
		}
		occs = append(occs, c.mapper.OccurrenceFromDTO(dto, fallback))
	}
	return occs
}

// persist flushes the whole cache as one document. Store failures are
// logged, not returned: the in-memory state is already updated and the read
// that triggered the flush should still succeed.
func (c *ScheduleCache) persist(ctx context.Context) {
	c.mu.RLock()
	doc := timetableDoc{
		Days:    make(map[string]timetable.DaySchedule, len(c.days)),
		Periods: c.periods,
	}
	for key, day := range c.days {
		doc.Days[key] = day
	}
	c.mu.RUnlock()

	raw, err := json.Marshal(doc)
	if err != nil {
		c.logger.Warn("timetable cache marshal failed", "error", err)
		return
	}
	if err := c.store.Set(ctx, KeyTimetable, string(raw)); err != nil {
		c.logger.Warn("timetable cache persist failed", "error", err)
	}
}

// demoSchedule is the fixed one-period dataset served in demo mode. Only the
// date follows the request; everything else is constant.
func demoSchedule(day time.Time) timetable.DaySchedule {
	period := timetable.Period{
		ID:        "1",
		StartTime: "09:00",
		EndTime:   "09:45",
		Name:      "1st period",
		Label:     "1",
	}
	tour := timetable.Occurrence{
		Type:       timetable.TypeLesson,
		Date:       day,
		PeriodID:   "1",
		StartTime:  "09:00",
		EndTime:    "09:45",
		Subject:    "Portal tour",
		Teachers:   []string{"Demo Teacher"},
		Rooms:      []string{"101"},
		StudentIDs: []string{"demo"},
	}
	return timetable.Normalize(day, []timetable.Occurrence{tour}, []timetable.Period{period})
}
