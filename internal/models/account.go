package models

import "time"

// AccessLevel is the role tag copied verbatim into issued tokens
type AccessLevel string

const (
	AccessLevelCustomer AccessLevel = "customer"
	AccessLevelStaff    AccessLevel = "staff"
	AccessLevelVendor   AccessLevel = "vendor"
	AccessLevelAdmin    AccessLevel = "admin"
)

// Valid reports whether the access level is one of the known role tags
func (l AccessLevel) Valid() bool {
	switch l {
	case AccessLevelCustomer, AccessLevelStaff, AccessLevelVendor, AccessLevelAdmin:
		return true
	}
	return false
}

// Account is a login principal together with its brute-force protection state.
// Version is bumped by the store on every write-back and is used to detect
// concurrent modifications.
type Account struct {
	ID           string
	Email        string
	PasswordHash string
	AccessLevel  AccessLevel

	IsActive  bool
	IsBanned  bool
	IsDeleted bool

	FailedLoginAttempts   int
	LastFailedLoginAt     *time.Time
	LastSuccessfulLoginAt *time.Time
	LastLoginIPAddress    string
	LockedUntil           *time.Time

	Version   int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// CanAuthenticate reports whether the account flags allow a login to complete
func (a *Account) CanAuthenticate() bool {
	return a.IsActive && !a.IsBanned && !a.IsDeleted
}
