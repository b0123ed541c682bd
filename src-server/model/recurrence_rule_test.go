package model_test

import (
	"testing"
	"time"

	"npocal/src-server/model"
)

func TestRecurrenceRuleValidate(t *testing.T) {
	// case: weekly rule derives its rrule string
	func() {
		rule := model.RecurrenceRule{
			ID:        "rule-1",
			Freq:      model.FREQ_WEEKLY,
			Interval:  2,
			ByWeekday: "1,3",
		}
		if err := rule.Validate(); err != nil {
			t.Error(err)
		}
		if rule.RRule != "FREQ=WEEKLY;BYDAY=MO,WE;INTERVAL=2" {
			t.Error("unexpected derived rrule", rule.RRule)
		}
	}()

	// case: interval must be positive
	func() {
		rule := model.RecurrenceRule{ID: "rule-2", Freq: model.FREQ_DAILY, Interval: 0}
		if err := rule.Validate(); err == nil {
			t.Error("expected validation error for zero interval")
		}
	}()

	// case: weekly needs at least one weekday
	func() {
		rule := model.RecurrenceRule{ID: "rule-3", Freq: model.FREQ_WEEKLY, Interval: 1}
		if err := rule.Validate(); err == nil {
			t.Error("expected validation error for empty weekday set")
		}
	}()

	// case: end date and count are mutually exclusive
	func() {
		rule := model.RecurrenceRule{
			ID:           "rule-4",
			Freq:         model.FREQ_DAILY,
			Interval:     1,
			Count:        10,
			UntilUnixUTC: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC).Unix(),
		}
		if err := rule.Validate(); err == nil {
			t.Error("expected validation error for both termination bounds")
		}
	}()

	// case: count can't exceed the hard ceiling
	func() {
		rule := model.RecurrenceRule{
			ID:       "rule-5",
			Freq:     model.FREQ_DAILY,
			Interval: 1,
			Count:    model.MAX_OCCURRENCE_COUNT + 1,
		}
		if err := rule.Validate(); err == nil {
			t.Error("expected validation error for count over the ceiling")
		}
	}()

	// case: invalid frequency
	func() {
		rule := model.RecurrenceRule{ID: "rule-6", Freq: model.Frequency("hourly"), Interval: 1}
		if err := rule.Validate(); err == nil {
			t.Error("expected validation error for invalid frequency")
		}
	}()
}

func TestRecurrenceRuleWeekdays(t *testing.T) {
	rule := model.RecurrenceRule{ByWeekday: "5,1,3,1"}
	weekdays := rule.Weekdays()
	if len(weekdays) != 3 {
		t.Fatal("expected deduplicated weekdays", weekdays)
	}
	expected := []time.Weekday{time.Monday, time.Wednesday, time.Friday}
	for i, wd := range expected {
		if weekdays[i] != wd {
			t.Error("weekdays should sort Monday-first", weekdays)
		}
	}
}
