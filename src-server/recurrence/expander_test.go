package recurrence_test

import (
	"testing"
	"time"

	"npocal/src-server/model"
	"npocal/src-server/recurrence"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(year int, month time.Month, day, hour int) time.Time {
	return time.Date(year, month, day, hour, 0, 0, 0, time.UTC)
}

func weeklyMondayTemplate() (*model.Event, *model.RecurrenceRule) {
	// Monday 2025-01-06, 09:00-10:00, weekly on Mondays until 2025-02-01
	tmpl := &model.Event{
		ID:               "tmpl-1",
		Title:            "Board Meeting",
		Visibility:       model.VISIBILITY_INTERNAL,
		OwnerID:          "manager-1",
		RecurrenceID:     "rule-1",
		StartDateUnixUTC: date(2025, time.January, 6, 9).Unix(),
		EndDateUnixUTC:   date(2025, time.January, 6, 10).Unix(),
	}
	rule := &model.RecurrenceRule{
		ID:           "rule-1",
		Freq:         model.FREQ_WEEKLY,
		Interval:     1,
		ByWeekday:    "1", // Monday
		UntilUnixUTC: date(2025, time.February, 1, 0).Unix(),
	}
	return tmpl, rule
}

func TestWeeklyExpansion(t *testing.T) {
	tmpl, rule := weeklyMondayTemplate()

	occurrences := recurrence.Expand(
		tmpl, rule,
		date(2025, time.January, 1, 0),
		date(2025, time.February, 1, 0),
		nil,
	)

	require.Len(t, occurrences, 4)
	for i, day := range []int{6, 13, 20, 27} {
		assert.Equal(t, date(2025, time.January, day, 9).Unix(), occurrences[i].StartDateUnixUTC)
		assert.Equal(t, date(2025, time.January, day, 10).Unix(), occurrences[i].EndDateUnixUTC)
		assert.Equal(t, occurrences[i].StartDateUnixUTC, occurrences[i].OriginalStartDateUnixUTC)
		assert.Equal(t, tmpl.Title, occurrences[i].Title)
	}
}

func TestExpansionHonorsExceptions(t *testing.T) {
	tmpl, rule := weeklyMondayTemplate()

	suppressed := map[int64]struct{}{
		date(2025, time.January, 13, 9).Unix(): {},
	}
	occurrences := recurrence.Expand(
		tmpl, rule,
		date(2025, time.January, 1, 0),
		date(2025, time.February, 1, 0),
		suppressed,
	)

	require.Len(t, occurrences, 3)
	for _, occ := range occurrences {
		assert.NotEqual(t, date(2025, time.January, 13, 9).Unix(), occ.StartDateUnixUTC)
	}
}

func TestExpansionIsIdempotent(t *testing.T) {
	tmpl, rule := weeklyMondayTemplate()
	windowStart := date(2025, time.January, 1, 0)
	windowEnd := date(2025, time.February, 1, 0)

	first := recurrence.Expand(tmpl, rule, windowStart, windowEnd, nil)
	second := recurrence.Expand(tmpl, rule, windowStart, windowEnd, nil)

	require.Equal(t, len(first), len(second))
	for i := range first {
		assert.Equal(t, *first[i], *second[i])
	}
}

func TestExpansionIsStrictlyIncreasing(t *testing.T) {
	tmpl := &model.Event{
		ID:               "tmpl-2",
		Title:            "Standup",
		Visibility:       model.VISIBILITY_PUBLIC,
		OwnerID:          "manager-1",
		RecurrenceID:     "rule-2",
		StartDateUnixUTC: date(2025, time.January, 6, 9).Unix(),
		EndDateUnixUTC:   date(2025, time.January, 6, 9).Add(15 * time.Minute).Unix(),
	}
	rule := &model.RecurrenceRule{
		ID:        "rule-2",
		Freq:      model.FREQ_WEEKLY,
		Interval:  1,
		ByWeekday: "1,3,5", // Mon, Wed, Fri
	}

	occurrences := recurrence.Expand(
		tmpl, rule,
		date(2025, time.January, 1, 0),
		date(2026, time.June, 1, 0),
		nil,
	)

	require.NotEmpty(t, occurrences)
	seen := make(map[int64]struct{})
	previous := int64(0)
	for _, occ := range occurrences {
		assert.Greater(t, occ.StartDateUnixUTC, previous)
		_, dup := seen[occ.OriginalStartDateUnixUTC]
		assert.False(t, dup, "no duplicate original start dates")
		seen[occ.OriginalStartDateUnixUTC] = struct{}{}
		previous = occ.StartDateUnixUTC
	}
}

func TestExpansionNeverExceedsCeiling(t *testing.T) {
	tmpl := &model.Event{
		ID:               "tmpl-3",
		Title:            "Daily",
		Visibility:       model.VISIBILITY_PUBLIC,
		OwnerID:          "manager-1",
		RecurrenceID:     "rule-3",
		StartDateUnixUTC: date(2020, time.January, 1, 8).Unix(),
		EndDateUnixUTC:   date(2020, time.January, 1, 9).Unix(),
	}
	rule := &model.RecurrenceRule{
		ID:       "rule-3",
		Freq:     model.FREQ_DAILY,
		Interval: 1,
	}

	// a ten-year window still caps out at the hard ceiling
	occurrences := recurrence.Expand(
		tmpl, rule,
		date(2020, time.January, 1, 0),
		date(2030, time.January, 1, 0),
		nil,
	)
	assert.Len(t, occurrences, model.MAX_OCCURRENCE_COUNT)
}

func TestCountBoundCountsSuppressedOccurrences(t *testing.T) {
	tmpl := &model.Event{
		ID:               "tmpl-4",
		Title:            "Limited",
		Visibility:       model.VISIBILITY_PUBLIC,
		OwnerID:          "manager-1",
		RecurrenceID:     "rule-4",
		StartDateUnixUTC: date(2025, time.March, 3, 9).Unix(),
		EndDateUnixUTC:   date(2025, time.March, 3, 10).Unix(),
	}
	rule := &model.RecurrenceRule{
		ID:       "rule-4",
		Freq:     model.FREQ_DAILY,
		Interval: 1,
		Count:    3,
	}

	suppressed := map[int64]struct{}{
		date(2025, time.March, 4, 9).Unix(): {},
	}
	occurrences := recurrence.Expand(
		tmpl, rule,
		date(2025, time.March, 1, 0),
		date(2025, time.April, 1, 0),
		suppressed,
	)

	// the cap applies to generated candidates, an exception doesn't push
	// the series past its third day
	require.Len(t, occurrences, 2)
	assert.Equal(t, date(2025, time.March, 3, 9).Unix(), occurrences[0].StartDateUnixUTC)
	assert.Equal(t, date(2025, time.March, 5, 9).Unix(), occurrences[1].StartDateUnixUTC)
}

func TestMonthlyClampsToShorterMonths(t *testing.T) {
	tmpl := &model.Event{
		ID:               "tmpl-5",
		Title:            "Month End Review",
		Visibility:       model.VISIBILITY_PUBLIC,
		OwnerID:          "manager-1",
		RecurrenceID:     "rule-5",
		StartDateUnixUTC: date(2025, time.January, 31, 14).Unix(),
		EndDateUnixUTC:   date(2025, time.January, 31, 15).Unix(),
	}
	rule := &model.RecurrenceRule{
		ID:         "rule-5",
		Freq:       model.FREQ_MONTHLY,
		Interval:   1,
		DayOfMonth: 31,
	}

	occurrences := recurrence.Expand(
		tmpl, rule,
		date(2025, time.January, 1, 0),
		date(2025, time.June, 1, 0),
		nil,
	)

	require.Len(t, occurrences, 5)
	expected := []time.Time{
		date(2025, time.January, 31, 14),
		date(2025, time.February, 28, 14), // clamped, no rollover into March
		date(2025, time.March, 31, 14),
		date(2025, time.April, 30, 14), // clamped
		date(2025, time.May, 31, 14),
	}
	for i, want := range expected {
		assert.Equal(t, want.Unix(), occurrences[i].StartDateUnixUTC)
	}
}

func TestStricterBoundWinsWhenBothAreSet(t *testing.T) {
	tmpl := &model.Event{
		ID:               "tmpl-6",
		Title:            "Defensive",
		Visibility:       model.VISIBILITY_PUBLIC,
		OwnerID:          "manager-1",
		RecurrenceID:     "rule-6",
		StartDateUnixUTC: date(2025, time.January, 6, 9).Unix(),
		EndDateUnixUTC:   date(2025, time.January, 6, 10).Unix(),
	}
	// shouldn't happen past validation, but expansion stays defensive
	rule := &model.RecurrenceRule{
		ID:           "rule-6",
		Freq:         model.FREQ_DAILY,
		Interval:     1,
		Count:        2,
		UntilUnixUTC: date(2025, time.January, 20, 0).Unix(),
	}

	occurrences := recurrence.Expand(
		tmpl, rule,
		date(2025, time.January, 1, 0),
		date(2025, time.February, 1, 0),
		nil,
	)
	assert.Len(t, occurrences, 2, "count terminates earlier than the end date")
}

func TestWindowBeforeSeriesIsEmpty(t *testing.T) {
	tmpl, rule := weeklyMondayTemplate()
	occurrences := recurrence.Expand(
		tmpl, rule,
		date(2024, time.January, 1, 0),
		date(2024, time.February, 1, 0),
		nil,
	)
	assert.Empty(t, occurrences)
}
