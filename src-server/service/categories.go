package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"npocal/src-server/access"
	"npocal/src-server/model"
	"npocal/src-server/utils"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type CategoryDraft struct {
	Name        string
	Color       string
	Icon        string
	Description string
}

// ListCategories returns categories in display order. Deactivated ones are
// only included for admins, who need them to manage the catalog.
func (s *Service) ListCategories(ctx context.Context, principal access.Principal) ([]*model.Category, error) {
	categories := make([]*model.Category, 0)
	query := s.db.NewSelect().
		Model(&categories).
		Order("position ASC", "name ASC")
	if !principal.IsAdmin() {
		query = query.Where("active = ?", true)
	}
	if err := query.Scan(ctx); err != nil {
		return nil, fmt.Errorf("Service.ListCategories: %w", err)
	}
	return categories, nil
}

// CreateCategory adds a category at the end of the display order. Admin
// only.
func (s *Service) CreateCategory(
	ctx context.Context,
	principal access.Principal,
	draft CategoryDraft,
) (*model.Category, error) {
	if !principal.IsAdmin() {
		return nil, ErrForbidden
	}

	category := &model.Category{
		ID:          uuid.NewString(),
		Name:        utils.CleanupString(draft.Name),
		Color:       draft.Color,
		Icon:        draft.Icon,
		Description: draft.Description,
		Active:      true,
	}

	if err := s.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		var maxPosition int
		if err := tx.NewSelect().
			Model((*model.Category)(nil)).
			ColumnExpr("COALESCE(MAX(position), 0)").
			Scan(ctx, &maxPosition); err != nil {
			return fmt.Errorf("Service.CreateCategory: %w", err)
		}
		category.Position = maxPosition + 1
		return category.Upsert(ctx, tx)
	}); err != nil {
		return nil, mapStorageErr(err)
	}

	return category, nil
}

// UpdateCategory edits name, color, icon, or description. Admin only.
func (s *Service) UpdateCategory(
	ctx context.Context,
	principal access.Principal,
	categoryID string,
	draft CategoryDraft,
) (*model.Category, error) {
	if !principal.IsAdmin() {
		return nil, ErrForbidden
	}

	category, err := s.getCategory(ctx, categoryID)
	if err != nil {
		return nil, err
	}

	category.Name = utils.CleanupString(draft.Name)
	category.Color = draft.Color
	category.Icon = draft.Icon
	category.Description = draft.Description
	if err := category.Upsert(ctx, s.db); err != nil {
		return nil, mapStorageErr(err)
	}
	return category, nil
}

// SetCategoryActive flips the soft-delete flag. Events keep their
// reference either way. Admin only.
func (s *Service) SetCategoryActive(
	ctx context.Context,
	principal access.Principal,
	categoryID string,
	active bool,
) error {
	if !principal.IsAdmin() {
		return ErrForbidden
	}

	category, err := s.getCategory(ctx, categoryID)
	if err != nil {
		return err
	}
	category.Active = active
	if err := category.Upsert(ctx, s.db); err != nil {
		return mapStorageErr(err)
	}
	return nil
}

// ReorderCategories rewrites display positions to match the given id
// order. Admin only; ids missing from the list keep their position.
func (s *Service) ReorderCategories(
	ctx context.Context,
	principal access.Principal,
	orderedIDs []string,
) error {
	if !principal.IsAdmin() {
		return ErrForbidden
	}

	if err := s.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		for position, id := range orderedIDs {
			if _, err := tx.NewUpdate().
				Model((*model.Category)(nil)).
				Set("position = ?", position+1).
				Where("id = ?", id).
				Exec(ctx); err != nil {
				return fmt.Errorf("Service.ReorderCategories: %w", err)
			}
		}
		return nil
	}); err != nil {
		return mapStorageErr(err)
	}
	return nil
}

// DeleteCategory removes the category for good; referencing events get
// their category cleared, never deleted. Admin only.
func (s *Service) DeleteCategory(
	ctx context.Context,
	principal access.Principal,
	categoryID string,
) error {
	if !principal.IsAdmin() {
		return ErrForbidden
	}

	if _, err := s.getCategory(ctx, categoryID); err != nil {
		return err
	}

	if _, err := s.db.NewDelete().
		Model((*model.Category)(nil)).
		Where("id = ?", categoryID).
		Exec(context.WithValue(ctx, model.CategoryIDCtxKey, categoryID)); err != nil {
		return mapStorageErr(fmt.Errorf("Service.DeleteCategory: %w", err))
	}
	return nil
}

func (s *Service) getCategory(ctx context.Context, categoryID string) (*model.Category, error) {
	category := new(model.Category)
	err := s.db.NewSelect().
		Model(category).
		Where("id = ?", categoryID).
		Scan(ctx)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, ErrNotFound
	case err != nil:
		return nil, fmt.Errorf("Service.getCategory: %w", err)
	}
	return category, nil
}
