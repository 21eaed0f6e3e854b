package timeline

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMergeOverwritesByID(t *testing.T) {
	tl := New()

	tl.MergeItems([]Item{{ID: "a", Type: "message", Body: "first"}})
	tl.MergeItems([]Item{{ID: "a", Type: "message", Body: "edited"}})

	require.Len(t, tl.Items, 1)
	assert.Equal(t, "edited", tl.Items["a"].Body)
}

func TestMergeIdempotent(t *testing.T) {
	hw := Homework{ID: "hw-1", Name: "Algebra worksheet", Likes: 3}
	it := Item{ID: "it-1", Type: "message", Body: "hello"}

	tl := New()
	tl.MergeHomeworks([]Homework{hw})
	tl.MergeItems([]Item{it})

	again := New()
	again.MergeHomeworks([]Homework{hw})
	again.MergeHomeworks([]Homework{hw})
	again.MergeItems([]Item{it})
	again.MergeItems([]Item{it})

	assert.Equal(t, tl, again)
}

func TestMergeGrowsMonotonically(t *testing.T) {
	tl := New()
	tl.MergeItems([]Item{{ID: "a"}, {ID: "b"}})
	tl.MergeItems([]Item{{ID: "c"}})

	assert.Len(t, tl.Items, 3)
}

func TestMergeIntoZeroValue(t *testing.T) {
	var tl Timeline
	tl.MergeItems([]Item{{ID: "a"}})
	tl.MergeHomeworks([]Homework{{ID: "hw"}})

	assert.Len(t, tl.Items, 1)
	assert.Len(t, tl.Homeworks, 1)
}

func TestEarliestItem(t *testing.T) {
	tl := New()

	_, ok := tl.EarliestItem()
	assert.False(t, ok, "empty history has no earliest item")

	base := time.Date(2026, 2, 9, 12, 0, 0, 0, time.UTC)
	tl.MergeItems([]Item{
		{ID: "a", Timestamp: base},
		{ID: "b", Timestamp: base.Add(-48 * time.Hour)},
		{ID: "c", Timestamp: base.Add(time.Hour)},
	})

	earliest, ok := tl.EarliestItem()
	require.True(t, ok)
	assert.Equal(t, base.Add(-48*time.Hour), earliest)
}

func TestEarliestItemSkipsZeroTimestamps(t *testing.T) {
	tl := New()
	tl.MergeItems([]Item{{ID: "broken", Type: "message"}})

	_, ok := tl.EarliestItem()
	assert.False(t, ok, "a zero timestamp must not become the anchor")

	base := time.Date(2026, 2, 9, 12, 0, 0, 0, time.UTC)
	tl.MergeItems([]Item{{ID: "a", Timestamp: base}})

	earliest, ok := tl.EarliestItem()
	require.True(t, ok)
	assert.Equal(t, base, earliest)
}

func TestRemovedItemsStayInHistory(t *testing.T) {
	tl := New()
	tl.MergeItems([]Item{{ID: "a", Body: "visible"}})
	tl.MergeItems([]Item{{ID: "a", Body: "visible", Removed: true}})

	require.Len(t, tl.Items, 1)
	assert.True(t, tl.Items["a"].Removed)
}
