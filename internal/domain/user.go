package domain

import "time"

// UserStatus represents lifecycle states for an account.
type UserStatus string

const (
	UserStatusActive    UserStatus = "ACTIVE"
	UserStatusSuspended UserStatus = "SUSPENDED"
)

// UserRole is the role of a user inside their company.
type UserRole string

const (
	UserRoleOwner  UserRole = "OWNER"
	UserRoleAdmin  UserRole = "ADMIN"
	UserRoleWorker UserRole = "WORKER"
)

// User is the user record kept for every identity.
type User struct {
	ID                    string
	CompanyID             string
	Name                  string
	Email                 string
	PasswordHash          string
	Role                  UserRole
	Status                UserStatus
	RequiresPasswordSetup bool
	// ActiveSessionID is the only session currently allowed for this user; nil when enforcement
	// has not started for the account.
	ActiveSessionID *string
	// TokenVersion is embedded in issued credentials; bumping it revokes all of them.
	TokenVersion int
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Identity projects the user row onto the identity shape used by the session guard.
func (u *User) Identity() *Identity {
	return &Identity{
		ID:    u.ID,
		Email: u.Email,
		Flags: map[string]bool{FlagRequiresPasswordSetup: u.RequiresPasswordSetup},
	}
}
