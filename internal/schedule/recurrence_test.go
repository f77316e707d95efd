package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/draftdeck/draftdeck/internal/draft"
)

func tpl(start, end time.Time, p RecurrencePattern) *TimeSlot {
	return &TimeSlot{
		ID:          "tpl1",
		TeamID:      "t1",
		StartTime:   start,
		EndTime:     end,
		IsAvailable: true,
		IsRecurring: true,
		Recurrence:  &p,
	}
}

func TestExpandRecurrence_WeeklyWithInclusiveEndDate(t *testing.T) {
	start := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	endDate := time.Date(2024, 1, 22, 0, 0, 0, 0, time.UTC)
	tp := tpl(start, start.Add(time.Hour), RecurrencePattern{Frequency: Weekly, Interval: 1, EndDate: &endDate})

	occs, err := ExpandRecurrence(tp, start, start.AddDate(0, 2, 0))
	require.NoError(t, err)
	require.Len(t, occs, 4, "end date is inclusive by calendar day")

	want := []time.Time{
		start,
		start.AddDate(0, 0, 7),
		start.AddDate(0, 0, 14),
		start.AddDate(0, 0, 21),
	}
	for i, occ := range occs {
		require.True(t, occ.StartTime.Equal(want[i]), "occurrence %d: got %v want %v", i, occ.StartTime, want[i])
		require.True(t, occ.EndTime.Equal(want[i].Add(time.Hour)))
		require.True(t, occ.IsAvailable)
		require.False(t, occ.IsRecurring)
		require.Equal(t, "tpl1", occ.TemplateID)
	}
}

func TestExpandRecurrence_DailyInterval(t *testing.T) {
	start := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	tp := tpl(start, start.Add(30*time.Minute), RecurrencePattern{Frequency: Daily, Interval: 2})

	occs, err := ExpandRecurrence(tp, start, start.AddDate(0, 0, 7))
	require.NoError(t, err)
	require.Len(t, occs, 4) // days 0, 2, 4, 6
	require.True(t, occs[1].StartTime.Equal(start.AddDate(0, 0, 2)))
}

func TestExpandRecurrence_MonthlyKeepsDayOfMonth(t *testing.T) {
	start := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)
	tp := tpl(start, start.Add(time.Hour), RecurrencePattern{Frequency: Monthly, Interval: 1})

	occs, err := ExpandRecurrence(tp, start, start.AddDate(0, 3, 0))
	require.NoError(t, err)
	require.Len(t, occs, 4)
	require.True(t, occs[1].StartTime.Equal(time.Date(2024, 2, 15, 10, 0, 0, 0, time.UTC)))
}

func TestExpandRecurrence_RangeStartSkipsPast(t *testing.T) {
	start := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	tp := tpl(start, start.Add(time.Hour), RecurrencePattern{Frequency: Weekly, Interval: 1})

	rangeStart := start.AddDate(0, 0, 10)
	occs, err := ExpandRecurrence(tp, rangeStart, start.AddDate(0, 0, 28))
	require.NoError(t, err)
	require.NotEmpty(t, occs)
	for _, occ := range occs {
		require.False(t, occ.StartTime.Before(rangeStart))
	}
}

func TestExpandRecurrence_DeterministicIDs(t *testing.T) {
	start := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	tp := tpl(start, start.Add(time.Hour), RecurrencePattern{Frequency: Daily, Interval: 1})

	a, err := ExpandRecurrence(tp, start, start.AddDate(0, 0, 3))
	require.NoError(t, err)
	b, err := ExpandRecurrence(tp, start, start.AddDate(0, 0, 3))
	require.NoError(t, err)
	require.Equal(t, len(a), len(b))
	for i := range a {
		require.Equal(t, a[i].ID, b[i].ID, "re-expansion must produce the same ids")
	}
}

func TestExpandRecurrence_Validation(t *testing.T) {
	start := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	var vErr *draft.ValidationError

	_, err := ExpandRecurrence(&TimeSlot{StartTime: start, EndTime: start.Add(time.Hour)}, start, start)
	require.ErrorAs(t, err, &vErr)

	_, err = ExpandRecurrence(tpl(start, start.Add(time.Hour), RecurrencePattern{Frequency: Weekly, Interval: 0}), start, start)
	require.ErrorAs(t, err, &vErr)

	_, err = ExpandRecurrence(tpl(start, start.Add(time.Hour), RecurrencePattern{Frequency: "fortnightly", Interval: 1}), start, start)
	require.ErrorAs(t, err, &vErr)
}
