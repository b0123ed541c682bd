// Package access decides who may see and touch what. Every function here is
// a pure predicate over the inputs, no I/O, no side effects; callers decide
// whether a false turns into a not-found or a forbidden.
package access

import (
	"npocal/src-server/model"
)

// The viewer on whose behalf a request runs. The zero value is an
// anonymous viewer with no identity and no role.
type Principal struct {
	ID   string
	Role model.Role
}

func Anonymous() Principal {
	return Principal{}
}

func (p Principal) IsAnonymous() bool {
	return p.ID == ""
}

func (p Principal) IsAdmin() bool {
	return !p.IsAnonymous() && p.Role == model.ROLE_ADMIN
}

// public events are visible to everyone including anonymous viewers,
// internal ones to any authenticated principal, private ones only to the
// owner or an admin. Category has no bearing on visibility.
func CanView(event *model.Event, p Principal) bool {
	switch event.Visibility {
	case model.VISIBILITY_PUBLIC:
		return true
	case model.VISIBILITY_INTERNAL:
		return !p.IsAnonymous()
	case model.VISIBILITY_PRIVATE:
		return p.IsAdmin() || (!p.IsAnonymous() && p.ID == event.OwnerID)
	}
	return false
}

func CanCreate(p Principal) bool {
	if p.IsAnonymous() {
		return false
	}
	return p.Role == model.ROLE_MANAGER || p.Role == model.ROLE_ADMIN
}

// Admins may edit anything; otherwise only the owner, and only while the
// owner still holds a role that can create events at all.
func CanEdit(event *model.Event, p Principal) bool {
	if p.IsAdmin() {
		return true
	}
	return !p.IsAnonymous() && p.ID == event.OwnerID && CanCreate(p)
}

// Same rule as editing
func CanDelete(event *model.Event, p Principal) bool {
	return CanEdit(event, p)
}

// Only an admin may change roles, never their own, and never in a way
// that would leave the system without any admin. adminCount is the number
// of admins in the full principal set at evaluation time.
func CanChangeRole(actor Principal, target *model.User, newRole model.Role, adminCount int) bool {
	if !actor.IsAdmin() {
		return false
	}
	if actor.ID == target.ID {
		return false
	}
	if !newRole.Valid() {
		return false
	}
	if target.Role == model.ROLE_ADMIN && newRole != model.ROLE_ADMIN && adminCount <= 1 {
		return false
	}
	return true
}
