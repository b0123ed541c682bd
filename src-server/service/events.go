package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"npocal/src-server/access"
	"npocal/src-server/model"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// How far a mutation on a recurring event reaches.
type Scope string

const (
	// the event itself; on a template this is the entire series
	SCOPE_SINGLE = Scope("single")
	// only the occurrence at the target date
	SCOPE_INSTANCE = Scope("instance")
	// the occurrence at the target date and everything after it
	SCOPE_FUTURE = Scope("future")
)

type RecurrenceDraft struct {
	Freq         model.Frequency
	Interval     int
	Weekdays     []time.Weekday
	DayOfMonth   int
	UntilUnixUTC int64
	Count        int
}

type EventDraft struct {
	Title            string
	Description      string
	Location         string
	StartDateUnixUTC int64
	EndDateUnixUTC   int64
	IsAllDay         bool
	Visibility       model.Visibility
	CategoryID       string
	Recurrence       *RecurrenceDraft
}

func (d *RecurrenceDraft) toModel() *model.RecurrenceRule {
	byWeekday := make([]string, len(d.Weekdays))
	for i, wd := range d.Weekdays {
		byWeekday[i] = strconv.Itoa(int(wd))
	}
	return &model.RecurrenceRule{
		ID:           uuid.NewString(),
		Freq:         d.Freq,
		Interval:     d.Interval,
		ByWeekday:    strings.Join(byWeekday, ","),
		DayOfMonth:   d.DayOfMonth,
		UntilUnixUTC: d.UntilUnixUTC,
		Count:        d.Count,
	}
}

// CreateEvent stores a new event owned by the principal, together with its
// recurrence rule when the draft carries one. Only managers and admins may
// create.
func (s *Service) CreateEvent(
	ctx context.Context,
	principal access.Principal,
	draft EventDraft,
) (*model.Event, error) {
	if !access.CanCreate(principal) {
		return nil, ErrForbidden
	}

	event := &model.Event{
		ID:               uuid.NewString(),
		Title:            strings.TrimSpace(draft.Title),
		Description:      draft.Description,
		Location:         draft.Location,
		StartDateUnixUTC: draft.StartDateUnixUTC,
		EndDateUnixUTC:   draft.EndDateUnixUTC,
		IsAllDay:         draft.IsAllDay,
		Visibility:       draft.Visibility,
		CategoryID:       draft.CategoryID,
		OwnerID:          principal.ID,
	}

	if err := s.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		if draft.Recurrence != nil {
			rule := draft.Recurrence.toModel()
			if err := rule.Upsert(ctx, tx); err != nil {
				return err
			}
			event.RecurrenceID = rule.ID
		}
		return event.Upsert(ctx, tx)
	}); err != nil {
		return nil, mapStorageErr(err)
	}

	return event, nil
}

// UpdateEvent applies the draft to an event. On a template, scope selects
// between rewriting the whole series, carving out one occurrence as a
// standalone edited instance, or splitting the series at the target date.
func (s *Service) UpdateEvent(
	ctx context.Context,
	principal access.Principal,
	eventID string,
	scope Scope,
	targetDate time.Time,
	draft EventDraft,
) (*model.Event, error) {
	event, err := s.loadEventForMutation(ctx, principal, eventID)
	if err != nil {
		return nil, err
	}

	if !event.IsTemplate() || scope == SCOPE_SINGLE {
		event.Title = strings.TrimSpace(draft.Title)
		event.Description = draft.Description
		event.Location = draft.Location
		event.StartDateUnixUTC = draft.StartDateUnixUTC
		event.EndDateUnixUTC = draft.EndDateUnixUTC
		event.IsAllDay = draft.IsAllDay
		event.Visibility = draft.Visibility
		event.CategoryID = draft.CategoryID
		if err := event.Upsert(ctx, s.db); err != nil {
			return nil, mapStorageErr(err)
		}
		return event, nil
	}
	if targetDate.Unix() <= 0 {
		return nil, model.Invalid("Service.UpdateEvent: scope %q needs the occurrence's start date", scope)
	}

	switch scope {
	case SCOPE_INSTANCE:
		// suppress the generated occurrence and materialize the edits
		// as a standalone event pointing back at it
		override := &model.Event{
			ID:                       uuid.NewString(),
			Title:                    strings.TrimSpace(draft.Title),
			Description:              draft.Description,
			Location:                 draft.Location,
			StartDateUnixUTC:         draft.StartDateUnixUTC,
			EndDateUnixUTC:           draft.EndDateUnixUTC,
			IsAllDay:                 draft.IsAllDay,
			Visibility:               draft.Visibility,
			CategoryID:               draft.CategoryID,
			OwnerID:                  event.OwnerID,
			SeriesID:                 event.ID,
			OriginalStartDateUnixUTC: targetDate.Unix(),
		}
		if err := s.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
			exception := &model.EventException{
				EventID:     event.ID,
				DateUnixUTC: targetDate.Unix(),
				Reason:      "edited instance",
			}
			if err := exception.Upsert(ctx, tx); err != nil {
				return err
			}
			return override.Upsert(ctx, tx)
		}); err != nil {
			return nil, mapStorageErr(err)
		}
		return override, nil

	case SCOPE_FUTURE:
		// split the series: the old rule stops just before the target
		// date, a successor template carries the edits from there on
		successor := &model.Event{
			ID:               uuid.NewString(),
			Title:            strings.TrimSpace(draft.Title),
			Description:      draft.Description,
			Location:         draft.Location,
			StartDateUnixUTC: draft.StartDateUnixUTC,
			EndDateUnixUTC:   draft.EndDateUnixUTC,
			IsAllDay:         draft.IsAllDay,
			Visibility:       draft.Visibility,
			CategoryID:       draft.CategoryID,
			OwnerID:          event.OwnerID,
		}
		if successor.StartDateUnixUTC < targetDate.Unix() {
			return nil, model.Invalid("Service.UpdateEvent: successor series can't start before the split date")
		}
		if err := s.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
			if err := s.truncateRule(ctx, tx, event, targetDate); err != nil {
				return err
			}
			successorRule := draft.Recurrence
			if successorRule == nil {
				return model.Invalid("Service.UpdateEvent: future scope needs a recurrence rule for the successor")
			}
			rule := successorRule.toModel()
			if err := rule.Upsert(ctx, tx); err != nil {
				return err
			}
			successor.RecurrenceID = rule.ID
			return successor.Upsert(ctx, tx)
		}); err != nil {
			return nil, mapStorageErr(err)
		}
		return successor, nil
	}

	return nil, model.Invalid("Service.UpdateEvent: invalid scope %q for a recurring event", scope)
}

// DeleteEvent removes an event. On a template, scope selects between
// dropping the entire series (its rule, exceptions, and edited instances
// go with it), suppressing one occurrence, or truncating the series at
// the target date.
func (s *Service) DeleteEvent(
	ctx context.Context,
	principal access.Principal,
	eventID string,
	scope Scope,
	targetDate time.Time,
) error {
	event, err := s.loadEventForMutation(ctx, principal, eventID)
	if err != nil {
		return err
	}

	if !event.IsTemplate() || scope == SCOPE_SINGLE {
		if err := s.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
			return event.DeleteCascade(ctx, tx)
		}); err != nil {
			return mapStorageErr(err)
		}
		return nil
	}
	if targetDate.Unix() <= 0 {
		return model.Invalid("Service.DeleteEvent: scope %q needs the occurrence's start date", scope)
	}

	switch scope {
	case SCOPE_INSTANCE:
		exception := &model.EventException{
			EventID:     event.ID,
			DateUnixUTC: targetDate.Unix(),
			Reason:      "deleted instance",
		}
		if err := exception.Upsert(ctx, s.db); err != nil {
			return mapStorageErr(err)
		}
		return nil

	case SCOPE_FUTURE:
		if err := s.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
			return s.truncateRule(ctx, tx, event, targetDate)
		}); err != nil {
			return mapStorageErr(err)
		}
		return nil
	}

	return model.Invalid("Service.DeleteEvent: invalid scope %q for a recurring event", scope)
}

// Rewrite the template's rule so the series ends just before cutoff. An
// occurrence cap is replaced by the equivalent end date.
func (s *Service) truncateRule(ctx context.Context, tx bun.Tx, event *model.Event, cutoff time.Time) error {
	rule := new(model.RecurrenceRule)
	if err := tx.NewSelect().
		Model(rule).
		Where("id = ?", event.RecurrenceID).
		Scan(ctx); err != nil {
		return fmt.Errorf("Service.truncateRule: can't get rule: %w", err)
	}
	rule.Count = 0
	rule.UntilUnixUTC = cutoff.Add(-time.Second).Unix()
	return rule.Upsert(ctx, tx)
}

// Fetch an event for mutation. Unknown ids and ids outside the
// principal's visibility both come back as ErrNotFound so existence never
// leaks; a visible event the principal can't touch is ErrForbidden.
func (s *Service) loadEventForMutation(
	ctx context.Context,
	principal access.Principal,
	eventID string,
) (*model.Event, error) {
	event := new(model.Event)
	err := s.db.NewSelect().
		Model(event).
		Where("id = ?", eventID).
		Scan(ctx)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, ErrNotFound
	case err != nil:
		return nil, fmt.Errorf("Service.loadEventForMutation: %w", err)
	}

	if !access.CanView(event, principal) {
		return nil, ErrNotFound
	}
	if !access.CanEdit(event, principal) {
		return nil, ErrForbidden
	}
	return event, nil
}
