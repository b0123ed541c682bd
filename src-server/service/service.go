// Package service composes the access evaluator and the recurrence
// expander on top of storage: window queries filtered by visibility, and
// gated, transactional mutations.
package service

import (
	"errors"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/driver/pgdriver"
)

var (
	// mutation attempted without sufficient rights on an entity the
	// principal already knows exists
	ErrForbidden = errors.New("forbidden")
	// the target either doesn't exist or the principal isn't entitled
	// to know it does
	ErrNotFound = errors.New("not found")
	// concurrent writes collided in storage; surfaced unchanged, the
	// caller re-invokes
	ErrConflict = errors.New("conflict")
)

type Service struct {
	db *bun.DB
}

func New(db *bun.DB) *Service {
	return &Service{db: db}
}

// Translate storage-level write collisions into ErrConflict, pass
// everything else through untouched.
func mapStorageErr(err error) error {
	if err == nil {
		return nil
	}
	var pgErr pgdriver.Error
	if errors.As(err, &pgErr) {
		switch pgErr.Field('C') {
		case "23505", "40001", "40P01":
			return errors.Join(ErrConflict, err)
		}
	}
	return err
}
