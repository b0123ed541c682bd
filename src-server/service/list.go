package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"npocal/src-server/access"
	"npocal/src-server/model"
	"npocal/src-server/recurrence"
)

// ListVisibleEvents returns every event the principal may see whose span
// intersects [windowStart, windowEnd): plain events, standalone edited
// instances, and expansions of every recurring template. Output is sorted
// by start then id so identical queries page identically.
func (s *Service) ListVisibleEvents(
	ctx context.Context,
	principal access.Principal,
	windowStart time.Time,
	windowEnd time.Time,
) ([]*model.Event, error) {
	if !windowStart.Before(windowEnd) {
		return []*model.Event{}, nil
	}

	// plain events and edited instances intersecting the window
	concrete := make([]*model.Event, 0)
	if err := s.db.NewSelect().
		Model(&concrete).
		Where("recurrence_id IS NULL").
		Where("end_date > ?", windowStart.Unix()).
		Where("start_date < ?", windowEnd.Unix()).
		Scan(ctx); err != nil {
		return nil, fmt.Errorf("Service.ListVisibleEvents: can't get events: %w", err)
	}

	// every template whose series could reach into the window
	templates := make([]*model.Event, 0)
	if err := s.db.NewSelect().
		Model(&templates).
		Where("recurrence_id IS NOT NULL").
		Where("start_date < ?", windowEnd.Unix()).
		Relation("Recurrence").
		Relation("Exceptions").
		Scan(ctx); err != nil {
		return nil, fmt.Errorf("Service.ListVisibleEvents: can't get templates: %w", err)
	}

	result := make([]*model.Event, 0, len(concrete))
	result = append(result, concrete...)

	for _, tmpl := range templates {
		if tmpl.Recurrence == nil {
			continue
		}
		suppressed, err := s.suppressedDates(ctx, tmpl)
		if err != nil {
			return nil, err
		}
		result = append(result, recurrence.Expand(
			tmpl, tmpl.Recurrence, windowStart, windowEnd, suppressed,
		)...)
	}

	visible := result[:0]
	for _, event := range result {
		if access.CanView(event, principal) {
			visible = append(visible, event)
		}
	}

	sort.SliceStable(visible, func(i, j int) bool {
		if visible[i].StartDateUnixUTC != visible[j].StartDateUnixUTC {
			return visible[i].StartDateUnixUTC < visible[j].StartDateUnixUTC
		}
		return visible[i].ID < visible[j].ID
	})

	return visible, nil
}

// Dates a template must not generate for: exception dates plus the
// original starts already covered by standalone edited instances.
func (s *Service) suppressedDates(ctx context.Context, tmpl *model.Event) (map[int64]struct{}, error) {
	suppressed := make(map[int64]struct{}, len(tmpl.Exceptions))
	for _, exception := range tmpl.Exceptions {
		suppressed[exception.DateUnixUTC] = struct{}{}
	}

	overrideDates := make([]int64, 0)
	if err := s.db.NewSelect().
		Model((*model.Event)(nil)).
		Column("original_start_date").
		Where("series_id = ?", tmpl.ID).
		Scan(ctx, &overrideDates); err != nil {
		return nil, fmt.Errorf("Service.suppressedDates: %w", err)
	}
	for _, date := range overrideDates {
		suppressed[date] = struct{}{}
	}

	return suppressed, nil
}
