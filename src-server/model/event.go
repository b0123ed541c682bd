package model

import (
	"context"
	"fmt"
	"time"

	"github.com/uptrace/bun"
)

type Visibility string

const (
	VISIBILITY_PUBLIC   = Visibility("public")
	VISIBILITY_INTERNAL = Visibility("internal")
	VISIBILITY_PRIVATE  = Visibility("private")
)

func (v Visibility) Valid() bool {
	switch v {
	case VISIBILITY_PUBLIC, VISIBILITY_INTERNAL, VISIBILITY_PRIVATE:
		return true
	}
	return false
}

type Event struct {
	bun.BaseModel `bun:"table:events"`

	ID          string `bun:"id,pk,notnull"`
	Title       string `bun:"title,notnull"`
	Description string `bun:"description"`
	Location    string `bun:"location"`

	StartDateUnixUTC int64 `bun:"start_date,notnull"`
	EndDateUnixUTC   int64 `bun:"end_date,notnull"`
	IsAllDay         bool  `bun:"is_all_day"`

	Visibility Visibility `bun:"visibility,notnull,type:varchar"`
	CategoryID string     `bun:"category_id,nullzero"`
	OwnerID    string     `bun:"owner_id,notnull"`

	// set on a template; a template is never itself occurring, only its
	// expansions are
	RecurrenceID string `bun:"recurrence_id,nullzero"`

	// set on a standalone edited instance split off a template: which
	// template it came from and which generated start it replaces
	SeriesID                 string `bun:"series_id,nullzero"`
	OriginalStartDateUnixUTC int64  `bun:"original_start_date"`

	CreatedAt int64 `bun:"created_at,notnull"`
	UpdatedAt int64 `bun:"updated_at"`
	Sequence  int   `bun:"sequence"`

	Category   *Category         `bun:"rel:belongs-to,join:category_id=id"`
	Owner      *User             `bun:"rel:belongs-to,join:owner_id=id"`
	Recurrence *RecurrenceRule   `bun:"rel:belongs-to,join:recurrence_id=id"`
	Exceptions []*EventException `bun:"rel:has-many,join:id=event_id"`
}

// Whether the event is a recurring template
func (e *Event) IsTemplate() bool {
	return e.RecurrenceID != ""
}

// Whether the event is a standalone edited instance of some template
func (e *Event) IsOverride() bool {
	return e.SeriesID != ""
}

// DeleteCascade removes the event row together with everything hanging
// off it: exceptions, materialized edited instances, and a recurrence
// rule no remaining template references. All writes go through db, so a
// caller handing in a transaction gets the whole cascade or none of it.
func (e *Event) DeleteCascade(ctx context.Context, db bun.IDB) error {
	if e.ID == "" {
		return fmt.Errorf("Event.DeleteCascade: event id is blank")
	}

	// rm related exceptions
	if _, err := db.NewDelete().
		Model((*EventException)(nil)).
		Where("event_id = ?", e.ID).
		Exec(ctx); err != nil {
		return fmt.Errorf("Event.DeleteCascade: can't delete exceptions: %w", err)
	}

	// rm edited instances split off this template
	if _, err := db.NewDelete().
		Model((*Event)(nil)).
		Where("series_id = ?", e.ID).
		Exec(ctx); err != nil {
		return fmt.Errorf("Event.DeleteCascade: can't delete edited instances: %w", err)
	}

	if _, err := db.NewDelete().
		Model((*Event)(nil)).
		Where("id = ?", e.ID).
		Exec(ctx); err != nil {
		return fmt.Errorf("Event.DeleteCascade: %w", err)
	}

	// rm rules no template references anymore; the template row is
	// already gone at this point so its rule shows up as orphaned
	if _, err := db.NewDelete().
		Model((*RecurrenceRule)(nil)).
		Where("id NOT IN (SELECT recurrence_id FROM events WHERE recurrence_id IS NOT NULL)").
		Exec(ctx); err != nil {
		return fmt.Errorf("Event.DeleteCascade: can't delete orphaned recurrence rules: %w", err)
	}

	return nil
}

const (
	TITLE_MAX_LEN       = 200
	DESCRIPTION_MAX_LEN = 5000
	LOCATION_MAX_LEN    = 500
)

func (e *Event) Upsert(ctx context.Context, db bun.IDB) error {
	switch {
	case e.ID == "":
		return Invalid("Event.Upsert: event id is blank")
	case e.Title == "":
		return Invalid("Event.Upsert: title is blank")
	case len(e.Title) > TITLE_MAX_LEN:
		return Invalid("Event.Upsert: title is longer than %d characters", TITLE_MAX_LEN)
	case len(e.Description) > DESCRIPTION_MAX_LEN:
		return Invalid("Event.Upsert: description is longer than %d characters", DESCRIPTION_MAX_LEN)
	case len(e.Location) > LOCATION_MAX_LEN:
		return Invalid("Event.Upsert: location is longer than %d characters", LOCATION_MAX_LEN)
	case e.StartDateUnixUTC == 0:
		return Invalid("Event.Upsert: start date is blank")
	case e.EndDateUnixUTC == 0:
		return Invalid("Event.Upsert: end date is blank")
	case e.StartDateUnixUTC >= e.EndDateUnixUTC:
		return Invalid("Event.Upsert: start date must be before end date")
	case !e.Visibility.Valid():
		return Invalid("Event.Upsert: invalid visibility %q", e.Visibility)
	case e.OwnerID == "":
		return Invalid("Event.Upsert: owner id is blank")
	case e.IsTemplate() && e.IsOverride():
		return Invalid("Event.Upsert: an edited instance can't carry a recurrence rule")
	case e.IsOverride() && e.OriginalStartDateUnixUTC == 0:
		return Invalid("Event.Upsert: edited instance needs its original start date")
	}
	if e.CreatedAt == 0 {
		e.CreatedAt = time.Now().UTC().Unix()
	}

	// referenced category must exist when set
	if e.CategoryID != "" {
		exists, err := db.NewSelect().
			Model((*Category)(nil)).
			Where("id = ?", e.CategoryID).
			Exists(ctx)
		if err != nil {
			return fmt.Errorf("Event.Upsert: %w", err)
		}
		if !exists {
			return Invalid("Event.Upsert: category id not found")
		}
	}

	// referenced recurrence rule must exist when set
	if e.RecurrenceID != "" {
		exists, err := db.NewSelect().
			Model((*RecurrenceRule)(nil)).
			Where("id = ?", e.RecurrenceID).
			Exists(ctx)
		if err != nil {
			return fmt.Errorf("Event.Upsert: %w", err)
		}
		if !exists {
			return Invalid("Event.Upsert: recurrence rule id not found")
		}
	}

	exists, err := db.NewSelect().
		Model((*Event)(nil)).
		Where("id = ?", e.ID).
		Exists(ctx)
	if err != nil {
		return fmt.Errorf("Event.Upsert: %w", err)
	}

	switch exists {
	case true:
		e.UpdatedAt = time.Now().UTC().Unix()
		e.Sequence++
		if _, err := db.NewUpdate().
			Model(e).
			WherePK().
			Exec(ctx); err != nil {
			return fmt.Errorf("Event.Upsert: %w", err)
		}
	case false:
		if _, err := db.NewInsert().
			Model(e).
			Exec(ctx); err != nil {
			return fmt.Errorf("Event.Upsert: %w", err)
		}
	}

	return nil
}
