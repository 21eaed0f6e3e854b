package portal

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mektep-hub/mektep-portal/internal/infrastructure/external/mektep"
	"github.com/mektep-hub/mektep-portal/internal/infrastructure/persistence/memory"
	"github.com/mektep-hub/mektep-portal/pkg/timeutil"
)

const periodsJSON = `{
	"1": {"start_time":"08:00","end_time":"08:45","name":"1st period","label":"1"},
	"2": {"start_time":"08:50","end_time":"09:35","name":"2nd period","label":"2"},
	"3": {"start_time":"09:40","end_time":"10:25","name":"3rd period","label":"3"}
}`

// fakePlatform is a minimal in-process portal backend for cache tests.
type fakePlatform struct {
	mux            *http.ServeMux
	timetableCalls atomic.Int32
	timetableBody  atomic.Value // string
	recentBody     atomic.Value // string
}

func newFakePlatform() *fakePlatform {
	p := &fakePlatform{mux: http.NewServeMux()}
	p.timetableBody.Store(`{"classes":[]}`)
	p.recentBody.Store(`{}`)

	p.mux.HandleFunc("/login", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success":true,"token":"tok-1","display_name":"Aigerim S."}`))
	})
	p.mux.HandleFunc("/api/periods", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(periodsJSON))
	})
	p.mux.HandleFunc("/api/timetable", func(w http.ResponseWriter, r *http.Request) {
		p.timetableCalls.Add(1)
		w.Write([]byte(p.timetableBody.Load().(string)))
	})
	p.mux.HandleFunc("/api/timetable/recent", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(p.recentBody.Load().(string)))
	})
	return p
}

func newScheduleFixture(t *testing.T, platform *fakePlatform, loggedIn bool) (*ScheduleCache, *memory.Store) {
	t.Helper()
	srv := httptest.NewServer(platform.mux)
	t.Cleanup(srv.Close)

	store := memory.NewStore()
	client := mektep.NewClient(mektep.DefaultClientConfig(srv.URL))
	sess := NewSessionManager(client, store, slog.Default(), testCreds())
	if loggedIn {
		require.True(t, sess.Login(context.Background()))
	}
	return NewScheduleCache(client, store, sess, slog.Default()), store
}

func TestDayFetchesNormalizesAndCaches(t *testing.T) {
	ctx := context.Background()
	platform := newFakePlatform()
	platform.timetableBody.Store(`{
		"date": "2026-02-09",
		"classes": [
			{"period":"1","start_time":"08:00","end_time":"08:45","subject":"Maths","student_ids":["s-1"]},
			{"period":"3","start_time":"09:40","end_time":"10:25","subject":"History","student_ids":["s-1"]}
		]
	}`)
	cache, _ := newScheduleFixture(t, platform, true)

	day := time.Date(2026, 2, 9, 0, 0, 0, 0, timeutil.PortalTZ)
	sched, err := cache.Day(ctx, day)
	require.NoError(t, err)

	// Normalized: the period-2 hole is filled.
	require.Len(t, sched.Classes, 3)
	assert.Equal(t, "Maths", sched.Classes[0].Subject)
	assert.True(t, sched.Classes[1].Empty())
	assert.Equal(t, "History", sched.Classes[2].Subject)
	assert.Equal(t, int32(1), platform.timetableCalls.Load())

	// Second read is a pure cache hit.
	again, err := cache.Day(ctx, day.Add(13*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, sched, again)
	assert.Equal(t, int32(1), platform.timetableCalls.Load())
}

func TestDayWithoutTokenReturnsEmptySchedule(t *testing.T) {
	platform := newFakePlatform()
	cache, _ := newScheduleFixture(t, platform, false)

	sched, err := cache.Day(context.Background(), time.Date(2026, 2, 9, 0, 0, 0, 0, timeutil.PortalTZ))
	require.NoError(t, err)
	assert.Empty(t, sched.Classes)
	assert.Empty(t, sched.Periods)
	assert.Zero(t, platform.timetableCalls.Load())
}

func TestDayDemoModeIsDeterministicAndOffline(t *testing.T) {
	ctx := context.Background()
	platform := newFakePlatform()
	cache, _ := newScheduleFixture(t, platform, true)
	cache.SetDemo(ctx, true)

	first, err := cache.Day(ctx, time.Date(2026, 2, 9, 0, 0, 0, 0, timeutil.PortalTZ))
	require.NoError(t, err)
	second, err := cache.Day(ctx, time.Date(2026, 3, 20, 0, 0, 0, 0, timeutil.PortalTZ))
	require.NoError(t, err)

	require.Len(t, first.Classes, 1)
	require.Len(t, second.Classes, 1)
	assert.Equal(t, first.Periods, second.Periods)
	assert.Equal(t, first.Classes[0].Subject, second.Classes[0].Subject)
	assert.Equal(t, first.Classes[0].StartTime, second.Classes[0].StartTime)
	assert.Zero(t, platform.timetableCalls.Load(), "demo mode never touches the network")
}

func TestDayDropsRecordsWithoutStudentIDs(t *testing.T) {
	ctx := context.Background()
	platform := newFakePlatform()
	platform.timetableBody.Store(`{
		"date": "2026-02-09",
		"classes": [
			{"period":"1","subject":"Maths","student_ids":["s-1"]},
			{"period":"2","subject":"Staff meeting"}
		]
	}`)
	cache, _ := newScheduleFixture(t, platform, true)

	sched, err := cache.Day(ctx, time.Date(2026, 2, 9, 0, 0, 0, 0, timeutil.PortalTZ))
	require.NoError(t, err)
	require.Len(t, sched.Classes, 1)
	assert.Equal(t, "Maths", sched.Classes[0].Subject)
}

func TestDayKeysByReportedDate(t *testing.T) {
	ctx := context.Background()
	platform := newFakePlatform()
	platform.timetableBody.Store(`{
		"date": "2026-02-10",
		"classes": [{"period":"1","subject":"Maths","student_ids":["s-1"]}]
	}`)
	cache, _ := newScheduleFixture(t, platform, true)

	sched, err := cache.Day(ctx, time.Date(2026, 2, 9, 0, 0, 0, 0, timeutil.PortalTZ))
	require.NoError(t, err)
	assert.Equal(t, "2026-02-10", timeutil.DayKey(sched.Date))

	cache.mu.RLock()
	_, under09 := cache.days["2026-02-09"]
	_, under10 := cache.days["2026-02-10"]
	cache.mu.RUnlock()
	assert.False(t, under09)
	assert.True(t, under10)
}

func TestRecentOverwritesCachedDays(t *testing.T) {
	ctx := context.Background()
	platform := newFakePlatform()
	platform.timetableBody.Store(`{
		"date": "2026-02-09",
		"classes": [{"period":"1","subject":"Maths","student_ids":["s-1"]}]
	}`)
	cache, _ := newScheduleFixture(t, platform, true)

	day := time.Date(2026, 2, 9, 0, 0, 0, 0, timeutil.PortalTZ)
	_, err := cache.Day(ctx, day)
	require.NoError(t, err)

	// The platform re-publishes the day with a room change plus a new day.
	platform.recentBody.Store(`{
		"2026-02-09": [{"period":"1","subject":"Maths","rooms":["204"],"student_ids":["s-1"]}],
		"2026-02-10": [{"period":"2","subject":"Physics","student_ids":["s-1"]}]
	}`)

	days, err := cache.Recent(ctx)
	require.NoError(t, err)
	require.Len(t, days, 2)
	assert.Equal(t, "2026-02-09", timeutil.DayKey(days[0].Date))
	assert.Equal(t, "2026-02-10", timeutil.DayKey(days[1].Date))

	refreshed, err := cache.Day(ctx, day)
	require.NoError(t, err)
	require.Len(t, refreshed.Classes, 1)
	assert.Equal(t, []string{"204"}, refreshed.Classes[0].Rooms, "last fetch wins")
}

func TestPeriodsAreFetchedOncePerProcess(t *testing.T) {
	ctx := context.Background()
	var periodCalls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/login":
			w.Write([]byte(`{"success":true,"token":"tok-1","display_name":"A"}`))
		case "/api/periods":
			periodCalls.Add(1)
			w.Write([]byte(periodsJSON))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)

	store := memory.NewStore()
	client := mektep.NewClient(mektep.DefaultClientConfig(srv.URL))
	sess := NewSessionManager(client, store, slog.Default(), testCreds())
	require.True(t, sess.Login(ctx))
	cache := NewScheduleCache(client, store, sess, slog.Default())

	first, err := cache.Periods(ctx)
	require.NoError(t, err)
	second, err := cache.Periods(ctx)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Len(t, first, 3)
	assert.Equal(t, int32(1), periodCalls.Load())
}

func TestDemoFlagSurvivesRestartWithoutTimetableDoc(t *testing.T) {
	ctx := context.Background()
	platform := newFakePlatform()
	srv := httptest.NewServer(platform.mux)
	t.Cleanup(srv.Close)

	store := memory.NewStore()
	client := mektep.NewClient(mektep.DefaultClientConfig(srv.URL))
	sess := NewSessionManager(client, store, slog.Default(), testCreds())

	// Enable demo before any schedule was ever fetched, so the store holds
	// the demo flag but no timetable document.
	first := NewScheduleCache(client, store, sess, slog.Default())
	first.SetDemo(ctx, true)

	second := NewScheduleCache(client, store, sess, slog.Default())
	second.restore(ctx)
	assert.True(t, second.Demo(), "restored cache must honor the persisted demo flag")

	sched, err := second.Day(ctx, time.Date(2026, 2, 9, 0, 0, 0, 0, timeutil.PortalTZ))
	require.NoError(t, err)
	require.Len(t, sched.Classes, 1)
	assert.Zero(t, platform.timetableCalls.Load())
}

func TestPeriodsConcurrentMissesFetchOnce(t *testing.T) {
	ctx := context.Background()
	var periodCalls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/login":
			w.Write([]byte(`{"success":true,"token":"tok-1","display_name":"A"}`))
		case "/api/periods":
			periodCalls.Add(1)
			time.Sleep(20 * time.Millisecond)
			w.Write([]byte(periodsJSON))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)

	store := memory.NewStore()
	client := mektep.NewClient(mektep.DefaultClientConfig(srv.URL))
	sess := NewSessionManager(client, store, slog.Default(), testCreds())
	require.True(t, sess.Login(ctx))
	cache := NewScheduleCache(client, store, sess, slog.Default())

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			periods, err := cache.Periods(ctx)
			assert.NoError(t, err)
			assert.Len(t, periods, 3)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), periodCalls.Load(), "concurrent misses must share one fetch")
}

func TestScheduleSurvivesRestart(t *testing.T) {
	ctx := context.Background()
	platform := newFakePlatform()
	platform.timetableBody.Store(`{
		"date": "2026-02-09",
		"classes": [{"period":"1","subject":"Maths","student_ids":["s-1"]}]
	}`)
	srv := httptest.NewServer(platform.mux)
	t.Cleanup(srv.Close)

	store := memory.NewStore()
	client := mektep.NewClient(mektep.DefaultClientConfig(srv.URL))
	sess := NewSessionManager(client, store, slog.Default(), testCreds())
	require.True(t, sess.Login(ctx))

	first := NewScheduleCache(client, store, sess, slog.Default())
	day := time.Date(2026, 2, 9, 0, 0, 0, 0, timeutil.PortalTZ)
	want, err := first.Day(ctx, day)
	require.NoError(t, err)

	// A fresh cache over the same store serves the day without a fetch.
	second := NewScheduleCache(client, store, sess, slog.Default())
	second.restore(ctx)
	calls := platform.timetableCalls.Load()

	got, err := second.Day(ctx, day)
	require.NoError(t, err)
	assert.Equal(t, timeutil.DayKey(want.Date), timeutil.DayKey(got.Date))
	require.Len(t, got.Classes, len(want.Classes))
	assert.Equal(t, want.Classes[0].Subject, got.Classes[0].Subject)
	assert.Equal(t, want.Periods, got.Periods)
	assert.Equal(t, calls, platform.timetableCalls.Load())
}
