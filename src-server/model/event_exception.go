package model

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"
)

// Per-date suppression marker on a template: the generated occurrence
// starting at date never shows up in an expansion. Unique per (event, date).
type EventException struct {
	bun.BaseModel `bun:"table:event_exceptions"`

	EventID     string `bun:"event_id,notnull,unique:event_date"`
	DateUnixUTC int64  `bun:"date,notnull,unique:event_date"`
	Reason      string `bun:"reason"`
}

func (x *EventException) Upsert(ctx context.Context, db bun.IDB) error {
	switch {
	case x.EventID == "":
		return Invalid("EventException.Upsert: event id is blank")
	case x.DateUnixUTC == 0:
		return Invalid("EventException.Upsert: date is blank")
	}

	// only templates can carry exceptions
	templateExists, err := db.NewSelect().
		Model((*Event)(nil)).
		Where("id = ?", x.EventID).
		Where("recurrence_id IS NOT NULL").
		Exists(ctx)
	if err != nil {
		return fmt.Errorf("EventException.Upsert: %w", err)
	}
	if !templateExists {
		return Invalid("EventException.Upsert: event %s is not a recurring template", x.EventID)
	}

	if _, err := db.NewInsert().
		Model(x).
		On("CONFLICT (event_id, date) DO UPDATE").
		Set("reason = EXCLUDED.reason").
		Exec(ctx); err != nil {
		return fmt.Errorf("EventException.Upsert: %w", err)
	}

	return nil
}
