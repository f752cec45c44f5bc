package models

import (
	"strings"
	"time"
)

// UserRole represents the available roles for the RBAC system.
type UserRole string

const (
	RoleSuperAdmin UserRole = "super_admin"
	RoleAdmin      UserRole = "admin"
	RoleSubAdmin   UserRole = "sub_admin"
)

var roleRanks = map[UserRole]int{
	RoleSubAdmin:   1,
	RoleAdmin:      2,
	RoleSuperAdmin: 3,
}

// Rank orders roles by privilege. Unknown roles rank zero.
func (r UserRole) Rank() int {
	return roleRanks[r]
}

// Valid reports whether r is one of the known roles.
func (r UserRole) Valid() bool {
	return r.Rank() > 0
}

// AtLeast reports whether r carries at least the privileges of min.
func (r UserRole) AtLeast(min UserRole) bool {
	return r.Valid() && r.Rank() >= min.Rank()
}

// UnitScoped reports whether the role is bound to an organizational unit.
func (r UserRole) UnitScoped() bool {
	return r == RoleAdmin || r == RoleSubAdmin
}

// ParseUserRole normalises raw input into a known role.
func ParseUserRole(raw string) (UserRole, bool) {
	role := UserRole(strings.ToLower(strings.TrimSpace(raw)))
	return role, role.Valid()
}

// User represents an application user stored in the users table.
type User struct {
	ID           string     `db:"id" json:"id"`
	Email        string     `db:"email" json:"email"`
	PasswordHash string     `db:"password_hash" json:"-"`
	FullName     string     `db:"full_name" json:"full_name"`
	Role         UserRole   `db:"role" json:"role"`
	Active       bool       `db:"active" json:"active"`
	UnitID       *string    `db:"unit_id" json:"unit_id,omitempty"`
	LastLogin    *time.Time `db:"last_login" json:"last_login,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updated_at"`
}

// Principal is the authenticated caller a request acts on behalf of.
// A nil *Principal denotes an anonymous caller.
type Principal struct {
	UserID string   `json:"user_id"`
	Email  string   `json:"email"`
	Role   UserRole `json:"role"`
	UnitID *string  `json:"unit_id,omitempty"`
	Active bool     `json:"active"`
}

// PrincipalFromUser builds the request principal for a stored user.
func PrincipalFromUser(u *User) *Principal {
	if u == nil {
		return nil
	}
	return &Principal{
		UserID: u.ID,
		Email:  u.Email,
		Role:   u.Role,
		UnitID: u.UnitID,
		Active: u.Active,
	}
}

// HasUnit reports whether the principal belongs to an organizational unit.
func (p *Principal) HasUnit() bool {
	return p != nil && p.UnitID != nil && *p.UnitID != ""
}

// InUnit reports whether the principal belongs to the given unit.
func (p *Principal) InUnit(unitID *string) bool {
	return p.HasUnit() && unitID != nil && *unitID == *p.UnitID
}

// IsSuperAdmin reports whether the principal is a global super admin.
func (p *Principal) IsSuperAdmin() bool {
	return p != nil && p.Role == RoleSuperAdmin
}

// UserFilter captures filtering criteria for listing users.
type UserFilter struct {
	Role      *UserRole
	Active    *bool
	UnitID    *string
	Search    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
