// Package admin holds staff account records. Role claims on tokens are not
// authoritative on their own: the transition service re-validates membership
// and active status against this store before any privileged mutation.
package admin

import (
	"time"

	"golang.org/x/crypto/bcrypt"

	id "carteirinha/pkg/domain"
	dErrors "carteirinha/pkg/domain-errors"
)

// Role orders staff privileges.
type Role string

const (
	RoleStaff Role = "staff"
	RoleAdmin Role = "admin"
	RoleSuper Role = "super"
)

var roleRank = map[Role]int{
	RoleStaff: 1,
	RoleAdmin: 2,
	RoleSuper: 3,
}

// AtLeast reports whether r grants the privileges of required.
func (r Role) AtLeast(required Role) bool {
	return roleRank[r] >= roleRank[required]
}

func (r Role) IsValid() bool {
	return roleRank[r] > 0
}

// Admin is one staff account.
type Admin struct {
	ID           id.AdminID
	Email        string
	PasswordHash string
	Role         Role
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// SetPassword stores a bcrypt hash of the plaintext password.
func (a *Admin) SetPassword(plaintext string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(plaintext), bcrypt.DefaultCost)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to hash password")
	}
	a.PasswordHash = string(hash)
	return nil
}

// CheckPassword verifies a plaintext password against the stored hash.
func (a *Admin) CheckPassword(plaintext string) bool {
	return bcrypt.CompareHashAndPassword([]byte(a.PasswordHash), []byte(plaintext)) == nil
}

// CanToggle checks the activation-toggle precondition. Super accounts are
// protected targets and can never be toggled.
func (a *Admin) CanToggle() error {
	if a.Role == RoleSuper {
		return dErrors.New(dErrors.CodeForbidden, "super admin accounts cannot be toggled")
	}
	return nil
}

// ApplyToggle flips the active flag. Call CanToggle first.
func (a *Admin) ApplyToggle(now time.Time) {
	a.IsActive = !a.IsActive
	a.UpdatedAt = now
}
