package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := time.ParseInLocation("2006-01-02", s, time.UTC)
	if err != nil {
		t.Fatalf("日付の解析に失敗しました: %v", err)
	}
	return d
}

func eventOn(t *testing.T, id, date string) Event {
	return Event{ID: id, Date: date, Day: day(t, date)}
}

func ids(events []Event) []string {
	out := make([]string, 0, len(events))
	for _, e := range events {
		out = append(out, e.ID)
	}
	return out
}

func TestCategorize_TodayIsUpcoming(t *testing.T) {
	now := time.Date(2025, 3, 1, 18, 30, 0, 0, time.UTC)

	result := Categorize([]Event{eventOn(t, "today", "2025-03-01")}, now)

	assert.Equal(t, []string{"today"}, ids(result.Upcoming))
	assert.Empty(t, result.Past)
}

func TestCategorize_LateNightStillUpcoming(t *testing.T) {
	now := time.Date(2025, 3, 1, 23, 59, 59, 0, time.UTC)

	result := Categorize([]Event{eventOn(t, "today", "2025-03-01")}, now)

	assert.Len(t, result.Upcoming, 1)
}

func TestCategorize_YesterdayIsPast(t *testing.T) {
	now := time.Date(2025, 3, 2, 0, 0, 0, 0, time.UTC)

	result := Categorize([]Event{eventOn(t, "yesterday", "2025-03-01")}, now)

	assert.Empty(t, result.Upcoming)
	assert.Equal(t, []string{"yesterday"}, ids(result.Past))
}

func TestCategorize_UpcomingAscending(t *testing.T) {
	now := time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC)
	events := []Event{
		eventOn(t, "mar", "2025-03-01"),
		eventOn(t, "jan", "2025-01-10"),
		eventOn(t, "feb", "2025-02-15"),
	}

	result := Categorize(events, now)

	assert.Equal(t, []string{"jan", "feb", "mar"}, ids(result.Upcoming))
	assert.Empty(t, result.Past)
}

func TestCategorize_PastDescending(t *testing.T) {
	now := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	events := []Event{
		eventOn(t, "jan", "2025-01-10"),
		eventOn(t, "mar", "2025-03-01"),
		eventOn(t, "feb", "2025-02-15"),
		eventOn(t, "jul", "2025-07-04"),
	}

	result := Categorize(events, now)

	assert.Equal(t, []string{"jul"}, ids(result.Upcoming))
	assert.Equal(t, []string{"mar", "feb", "jan"}, ids(result.Past))
}

func TestCategorize_UndatedGoesToPast(t *testing.T) {
	now := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	events := []Event{
		{ID: "broken", Date: "not-a-date"},
		eventOn(t, "may", "2025-05-01"),
	}

	result := Categorize(events, now)

	assert.Empty(t, result.Upcoming)
	assert.Equal(t, []string{"may", "broken"}, ids(result.Past))
}

func TestCategorize_UsesNowLocation(t *testing.T) {
	// 東京では既に3/2だが、イベントの日付は3/1
	jst := time.FixedZone("JST", 9*60*60)
	now := time.Date(2025, 3, 2, 1, 0, 0, 0, jst)

	result := Categorize([]Event{eventOn(t, "mar1", "2025-03-01")}, now)

	assert.Empty(t, result.Upcoming)
	assert.Len(t, result.Past, 1)
}

func TestCategorize_DoesNotMutateInput(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	events := []Event{
		eventOn(t, "b", "2025-02-01"),
		eventOn(t, "a", "2025-01-05"),
	}

	Categorize(events, now)

	assert.Equal(t, []string{"b", "a"}, ids(events))
}

func TestCategorize_Empty(t *testing.T) {
	result := Categorize(nil, time.Now())

	assert.NotNil(t, result.Upcoming)
	assert.NotNil(t, result.Past)
	assert.Empty(t, result.Upcoming)
	assert.Empty(t, result.Past)
}

func TestNewAggregate(t *testing.T) {
	agg := NewAggregate("cal-id", "Events", "UTC", nil)

	assert.True(t, agg.Success)
	assert.NotNil(t, agg.Events)
	assert.Equal(t, 0, agg.TotalEvents)
}

func TestFailedAggregate(t *testing.T) {
	agg := FailedAggregate("boom")

	assert.False(t, agg.Success)
	assert.Equal(t, "boom", agg.Error)
	assert.NotNil(t, agg.Events)
	assert.Empty(t, agg.Events)
}

func TestRestoreDays(t *testing.T) {
	tokyo, err := time.LoadLocation("Asia/Tokyo")
	require.NoError(t, err)

	agg := NewAggregate("cal-id", "Events", "Asia/Tokyo", []Event{
		{ID: "a", Date: "2024-11-26", DisplayDate: "NOV 26"},
		{ID: "b", Date: "not-a-date"},
	})

	restored := agg.RestoreDays(tokyo)

	assert.Equal(t, time.Date(2024, 11, 26, 0, 0, 0, 0, tokyo), restored.Events[0].Day)
	assert.True(t, restored.Events[1].Day.IsZero())
	assert.True(t, agg.Events[0].Day.IsZero(), "元の集約結果は変更しない")
}
