package model

import (
	"context"
	"time"

	"github.com/uptrace/bun"
)

type Role string

const (
	ROLE_MEMBER  = Role("member")
	ROLE_MANAGER = Role("manager")
	ROLE_ADMIN   = Role("admin")
)

func (r Role) Valid() bool {
	switch r {
	case ROLE_MEMBER, ROLE_MANAGER, ROLE_ADMIN:
		return true
	}
	return false
}

// An authenticated account. Anonymous viewers never have a row here.
type User struct {
	bun.BaseModel `bun:"table:users"`

	ID          string `bun:"id,pk,notnull"`
	DisplayName string `bun:"display_name,notnull"`
	Role        Role   `bun:"role,notnull,type:varchar"`
	CreatedAt   int64  `bun:"created_at,notnull"`
}

func (u *User) Upsert(ctx context.Context, db bun.IDB) error {
	switch {
	case u.ID == "":
		return Invalid("User.Upsert: user id is blank")
	case u.DisplayName == "":
		return Invalid("User.Upsert: display name is blank")
	case !u.Role.Valid():
		return Invalid("User.Upsert: invalid role %q", u.Role)
	}
	if u.CreatedAt == 0 {
		u.CreatedAt = time.Now().UTC().Unix()
	}

	_, err := db.
		NewInsert().
		Model(u).
		On("CONFLICT (id) DO UPDATE").
		Set("display_name = EXCLUDED.display_name").
		Set("role = EXCLUDED.role").
		Exec(ctx)

	return err
}
