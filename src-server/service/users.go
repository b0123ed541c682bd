package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"npocal/src-server/access"
	"npocal/src-server/model"

	"github.com/uptrace/bun"
)

// ChangeRole moves a user to a new role. Only admins may do this, never on
// themselves, and never in a way that would demote the last remaining
// admin. The admin headcount is read in the same transaction as the write
// so two concurrent demotions can't slip past each other.
func (s *Service) ChangeRole(
	ctx context.Context,
	actor access.Principal,
	targetID string,
	newRole model.Role,
) error {
	if !newRole.Valid() {
		return model.Invalid("Service.ChangeRole: invalid role %q", newRole)
	}

	if err := s.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		target := new(model.User)
		err := tx.NewSelect().
			Model(target).
			Where("id = ?", targetID).
			Scan(ctx)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return ErrNotFound
		case err != nil:
			return fmt.Errorf("Service.ChangeRole: can't get user: %w", err)
		}

		adminCount, err := tx.NewSelect().
			Model((*model.User)(nil)).
			Where("role = ?", model.ROLE_ADMIN).
			Count(ctx)
		if err != nil {
			return fmt.Errorf("Service.ChangeRole: can't count admins: %w", err)
		}

		if !access.CanChangeRole(actor, target, newRole, adminCount) {
			return ErrForbidden
		}

		target.Role = newRole
		return target.Upsert(ctx, tx)
	}); err != nil {
		return mapStorageErr(err)
	}

	return nil
}
