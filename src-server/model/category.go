package model

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"
)

type CategoryIDCtxKeyType string

const CategoryIDCtxKey CategoryIDCtxKeyType = "category-id"

// Named, colored tag for grouping events. Deactivation is a soft delete;
// a hard delete clears the reference on events instead of cascading.
type Category struct {
	bun.BaseModel `bun:"table:categories"`

	ID          string `bun:"id,pk,notnull"`
	Name        string `bun:"name,notnull,unique"`
	Color       string `bun:"color,notnull"`
	Icon        string `bun:"icon"`
	Description string `bun:"description"`
	Position    int    `bun:"position"`
	Active      bool   `bun:"active,notnull"`
}

var _ bun.AfterDeleteHook = (*Category)(nil)

// Clear the category reference on events that pointed at the deleted row
func (c *Category) AfterDelete(ctx context.Context, query *bun.DeleteQuery) error {
	if query.DB() == nil {
		return fmt.Errorf("Category.AfterDelete: db is nil")
	}

	switch categoryID := ctx.Value(CategoryIDCtxKey).(type) {
	case string:
		if categoryID == "" {
			return fmt.Errorf("Category.AfterDelete: category id is blank")
		}
		if _, err := query.DB().NewUpdate().
			Model((*Event)(nil)).
			Set("category_id = NULL").
			Where("category_id = ?", categoryID).
			Exec(ctx); err != nil {
			return fmt.Errorf("Category.AfterDelete: can't clear event references: %w", err)
		}
	case nil:
		return fmt.Errorf("Category.AfterDelete: category id is nil")
	default:
		return fmt.Errorf("Category.AfterDelete: wrong category id type | type=%T", categoryID)
	}

	return nil
}

func (c *Category) Upsert(ctx context.Context, db bun.IDB) error {
	switch {
	case c.ID == "":
		return Invalid("Category.Upsert: category id is blank")
	case c.Name == "":
		return Invalid("Category.Upsert: name is blank")
	case len(c.Name) > 100:
		return Invalid("Category.Upsert: name is longer than 100 characters")
	case c.Color == "":
		return Invalid("Category.Upsert: color is blank")
	}

	// name must stay unique across categories
	exists, err := db.NewSelect().
		Model((*Category)(nil)).
		Where("name = ?", c.Name).
		Where("id != ?", c.ID).
		Exists(ctx)
	if err != nil {
		return fmt.Errorf("Category.Upsert: %w", err)
	}
	if exists {
		return Invalid("Category.Upsert: name %q is already taken", c.Name)
	}

	if _, err := db.NewInsert().
		Model(c).
		On("CONFLICT (id) DO UPDATE").
		Set("name = EXCLUDED.name").
		Set("color = EXCLUDED.color").
		Set("icon = EXCLUDED.icon").
		Set("description = EXCLUDED.description").
		Set("position = EXCLUDED.position").
		Set("active = EXCLUDED.active").
		Exec(ctx); err != nil {
		return fmt.Errorf("Category.Upsert: %w", err)
	}

	return nil
}
