package sales

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestWeekWindow_StartsOnMonday(t *testing.T) {
	prague, err := time.LoadLocation("Europe/Prague")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}

	// Monday 13 Oct 2025 through Sunday 19 Oct 2025 share one week.
	for day := 13; day <= 19; day++ {
		ref := time.Date(2025, time.October, day, 18, 30, 0, 0, prague)
		w := WeekWindow(ref, 0)

		assert.Equal(t, time.Monday, w.Start.Weekday(), "day %d", day)
		assert.Equal(t, time.Date(2025, time.October, 13, 0, 0, 0, 0, prague), w.Start, "day %d", day)
		assert.Equal(t, w.Start.AddDate(0, 0, 7), w.End, "day %d", day)
		assert.True(t, w.Contains(ref), "day %d", day)
	}
}

func TestWeekWindow_SundayBelongsToPreviousWeek(t *testing.T) {
	sunday := time.Date(2025, time.March, 9, 23, 59, 0, 0, time.UTC)
	monday := sunday.Add(time.Minute)

	assert.Equal(t, time.Date(2025, time.March, 3, 0, 0, 0, 0, time.UTC), WeekWindow(sunday, 0).Start)
	assert.Equal(t, time.Date(2025, time.March, 10, 0, 0, 0, 0, time.UTC), WeekWindow(monday, 0).Start)
}

func TestWeekWindow_SevenDays(t *testing.T) {
	ref := time.Date(2024, time.February, 27, 9, 0, 0, 0, time.UTC)
	w := WeekWindow(ref, 0)
	assert.Equal(t, 7*24*time.Hour, w.End.Sub(w.Start))
}

func TestWeekWindow_Offset(t *testing.T) {
	ref := time.Date(2025, time.January, 2, 12, 0, 0, 0, time.UTC)
	base := WeekWindow(ref, 0)

	for _, n := range []int{-53, -2, -1, 0, 1, 4, 60} {
		w := WeekWindow(ref, n)
		assert.Equal(t, base.Start.AddDate(0, 0, 7*n), w.Start, "offset %d", n)
		assert.Equal(t, w.Start.AddDate(0, 0, 7), w.End, "offset %d", n)
	}
}

func TestWindow_Contains(t *testing.T) {
	w := WeekWindow(time.Date(2025, time.June, 4, 0, 0, 0, 0, time.UTC), 0)

	assert.True(t, w.Contains(w.Start))
	assert.True(t, w.Contains(w.End.Add(-time.Nanosecond)))
	assert.False(t, w.Contains(w.End))
	assert.False(t, w.Contains(w.Start.Add(-time.Nanosecond)))
}

func TestWindow_Label(t *testing.T) {
	w := WeekWindow(time.Date(2025, time.December, 31, 8, 0, 0, 0, time.UTC), 0)
	assert.Equal(t, "29.12.2025 – 04.01.2026", w.Label())
}
