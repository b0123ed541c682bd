// Package recurrence turns a template event plus its rule into the concrete
// occurrences intersecting a query window. Expansion is pure and total over
// pre-validated rules; it holds no state between calls, every query
// recomputes from scratch.
package recurrence

import (
	"time"

	"npocal/src-server/model"
)

// Expand generates the occurrences of tmpl that start inside
// [windowStart, windowEnd), skipping any start listed in suppressed
// (exception dates and dates already covered by a standalone edited
// instance). Each occurrence is a copy of the template with shifted
// start/end and its original start recorded; occurrences are strictly
// increasing in start time and never exceed the rule's occurrence budget.
func Expand(
	tmpl *model.Event,
	rule *model.RecurrenceRule,
	windowStart time.Time,
	windowEnd time.Time,
	suppressed map[int64]struct{},
) []*model.Event {
	if tmpl == nil || rule == nil || rule.Interval <= 0 {
		return nil
	}

	start := time.Unix(tmpl.StartDateUnixUTC, 0).UTC()
	duration := time.Duration(tmpl.EndDateUnixUTC-tmpl.StartDateUnixUTC) * time.Second

	// both bounds should never be set at once; when they are, the
	// earlier-terminating one wins
	budget := model.MAX_OCCURRENCE_COUNT
	if rule.Count > 0 && rule.Count < budget {
		budget = rule.Count
	}
	var until time.Time
	if rule.UntilUnixUTC != 0 {
		until = time.Unix(rule.UntilUnixUTC, 0).UTC()
	}

	occurrences := make([]*model.Event, 0)
	generated := 0
	done := false

	visit := func(candidate time.Time) {
		if done || candidate.Before(start) {
			return
		}
		if !until.IsZero() && candidate.After(until) {
			done = true
			return
		}
		if !candidate.Before(windowEnd) {
			done = true
			return
		}
		generated++
		if generated > budget {
			done = true
			return
		}
		if candidate.Before(windowStart) {
			return
		}
		if _, skip := suppressed[candidate.Unix()]; skip {
			return
		}
		occ := *tmpl
		occ.StartDateUnixUTC = candidate.Unix()
		occ.EndDateUnixUTC = candidate.Add(duration).Unix()
		occ.OriginalStartDateUnixUTC = candidate.Unix()
		occ.Category = nil
		occ.Owner = nil
		occ.Recurrence = nil
		occ.Exceptions = nil
		occurrences = append(occurrences, &occ)
	}

	switch rule.Freq {
	case model.FREQ_DAILY:
		for k := 0; !done; k++ {
			visit(start.AddDate(0, 0, k*rule.Interval))
		}
	case model.FREQ_WEEKLY:
		weekdays := rule.Weekdays()
		if len(weekdays) == 0 {
			weekdays = []time.Weekday{start.Weekday()}
		}
		weekAnchor := startOfWeek(start)
		for week := 0; !done; week += rule.Interval {
			for _, wd := range weekdays {
				day := weekAnchor.AddDate(0, 0, week*7+mondayFirst(wd))
				visit(atTimeOfDay(day, start))
				if done {
					break
				}
			}
		}
	case model.FREQ_MONTHLY:
		dayOfMonth := rule.DayOfMonth
		if dayOfMonth == 0 {
			dayOfMonth = start.Day()
		}
		for k := 0; !done; k++ {
			anchor := time.Date(start.Year(), start.Month(), 1, 0, 0, 0, 0, time.UTC).
				AddDate(0, k*rule.Interval, 0)
			day := dayOfMonth
			if last := daysInMonth(anchor.Year(), anchor.Month()); day > last {
				// day 31 against a shorter month clamps to its last
				// day, it never rolls over
				day = last
			}
			visit(atTimeOfDay(
				time.Date(anchor.Year(), anchor.Month(), day, 0, 0, 0, 0, time.UTC),
				start,
			))
		}
	}

	return occurrences
}

func mondayFirst(wd time.Weekday) int {
	return (int(wd) + 6) % 7
}

func startOfWeek(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC).
		AddDate(0, 0, -mondayFirst(t.Weekday()))
}

func atTimeOfDay(day time.Time, of time.Time) time.Time {
	return time.Date(
		day.Year(), day.Month(), day.Day(),
		of.Hour(), of.Minute(), of.Second(), 0,
		time.UTC,
	)
}

func daysInMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
