package model

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/uptrace/bun"
	"github.com/xyedo/rrule"
)

type Frequency string

const (
	FREQ_DAILY   = Frequency("daily")
	FREQ_WEEKLY  = Frequency("weekly")
	FREQ_MONTHLY = Frequency("monthly")
)

// Hard ceiling on how many occurrences one rule may produce, bounds the
// expansion cost for any window.
const MAX_OCCURRENCE_COUNT = 365

var byDayCodes = [...]string{"SU", "MO", "TU", "WE", "TH", "FR", "SA"}

// Describes how a template event repeats. Terminates on either an end date
// or an occurrence cap, never both.
type RecurrenceRule struct {
	bun.BaseModel `bun:"table:recurrence_rules"`

	ID       string    `bun:"id,pk,notnull"`
	Freq     Frequency `bun:"freq,notnull,type:varchar"`
	Interval int       `bun:"interval,notnull"`

	// comma-separated time.Weekday values, weekly only
	ByWeekday string `bun:"by_weekday"`
	// monthly only; 0 means the template's own day of month
	DayOfMonth int `bun:"day_of_month"`

	UntilUnixUTC int64 `bun:"until_date"`
	Count        int   `bun:"count"`

	// derived RFC 5545 representation, kept for calendar-client interop
	RRule string `bun:"rrule"`
}

// Parse the by_weekday column into weekdays, sorted Monday-first so the
// expander emits candidates in chronological order within a week.
func (r *RecurrenceRule) Weekdays() []time.Weekday {
	if r.ByWeekday == "" {
		return nil
	}
	seen := make(map[time.Weekday]struct{})
	weekdays := make([]time.Weekday, 0, 7)
	for _, part := range strings.Split(r.ByWeekday, ",") {
		value, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil || value < 0 || value > 6 {
			continue
		}
		wd := time.Weekday(value)
		if _, ok := seen[wd]; ok {
			continue
		}
		seen[wd] = struct{}{}
		weekdays = append(weekdays, wd)
	}
	for i := 1; i < len(weekdays); i++ {
		for j := i; j > 0 && mondayFirst(weekdays[j]) < mondayFirst(weekdays[j-1]); j-- {
			weekdays[j], weekdays[j-1] = weekdays[j-1], weekdays[j]
		}
	}
	return weekdays
}

func mondayFirst(wd time.Weekday) int {
	return (int(wd) + 6) % 7
}

// Validate the rule and derive its RFC 5545 string. Expansion assumes a
// rule that went through here, it never re-validates.
func (r *RecurrenceRule) Validate() error {
	switch {
	case r.ID == "":
		return Invalid("RecurrenceRule.Validate: rule id is blank")
	case r.Interval <= 0:
		return Invalid("RecurrenceRule.Validate: interval must be positive")
	case r.UntilUnixUTC != 0 && r.Count != 0:
		return Invalid("RecurrenceRule.Validate: end date and occurrence count are mutually exclusive")
	case r.Count < 0:
		return Invalid("RecurrenceRule.Validate: occurrence count must be positive")
	case r.Count > MAX_OCCURRENCE_COUNT:
		return Invalid("RecurrenceRule.Validate: occurrence count can't exceed %d", MAX_OCCURRENCE_COUNT)
	}

	parts := []string{}
	switch r.Freq {
	case FREQ_DAILY:
		parts = append(parts, "FREQ=DAILY")
	case FREQ_WEEKLY:
		weekdays := r.Weekdays()
		if len(weekdays) == 0 {
			return Invalid("RecurrenceRule.Validate: weekly rule needs at least one weekday")
		}
		codes := make([]string, len(weekdays))
		for i, wd := range weekdays {
			codes[i] = byDayCodes[wd]
		}
		parts = append(parts, "FREQ=WEEKLY", "BYDAY="+strings.Join(codes, ","))
	case FREQ_MONTHLY:
		parts = append(parts, "FREQ=MONTHLY")
		if r.DayOfMonth < 0 || r.DayOfMonth > 31 {
			return Invalid("RecurrenceRule.Validate: day of month out of range")
		}
		if r.DayOfMonth != 0 {
			parts = append(parts, fmt.Sprintf("BYMONTHDAY=%d", r.DayOfMonth))
		}
	default:
		return Invalid("RecurrenceRule.Validate: invalid frequency %q", r.Freq)
	}
	parts = append(parts, fmt.Sprintf("INTERVAL=%d", r.Interval))
	if r.UntilUnixUTC != 0 {
		parts = append(parts, "UNTIL="+time.Unix(r.UntilUnixUTC, 0).UTC().Format("20060102T150405Z"))
	}
	if r.Count != 0 {
		parts = append(parts, fmt.Sprintf("COUNT=%d", r.Count))
	}

	derived := strings.Join(parts, ";")
	if _, err := rrule.StrToRRule(derived); err != nil {
		return Invalid("RecurrenceRule.Validate: derived rrule is invalid: %v", err)
	}
	r.RRule = derived

	return nil
}

func (r *RecurrenceRule) Upsert(ctx context.Context, db bun.IDB) error {
	if err := r.Validate(); err != nil {
		return err
	}

	if _, err := db.NewInsert().
		Model(r).
		On("CONFLICT (id) DO UPDATE").
		Set("freq = EXCLUDED.freq").
		Set("interval = EXCLUDED.interval").
		Set("by_weekday = EXCLUDED.by_weekday").
		Set("day_of_month = EXCLUDED.day_of_month").
		Set("until_date = EXCLUDED.until_date").
		Set("count = EXCLUDED.count").
		Set("rrule = EXCLUDED.rrule").
		Exec(ctx); err != nil {
		return fmt.Errorf("RecurrenceRule.Upsert: %w", err)
	}

	return nil
}
