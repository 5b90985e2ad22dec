// Package models defines the data structures that map to database tables
// and provides the core types used throughout the application.
package models

import (
	"strings"
	"time"
)

// Account is the authenticated identity: an email and a credential plus
// permission flags. The email is the login name.
type Account struct {
	ID           int64      `json:"id"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"` // Never serialize the hash
	IsActive     bool       `json:"is_active"`
	IsStaff      bool       `json:"is_staff"`
	IsSuperuser  bool       `json:"is_superuser"`
	IsVerified   bool       `json:"is_verified"`
	LastLogin    *time.Time `json:"last_login,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// CanLogin reports whether the account may obtain credentials.
func (a *Account) CanLogin() bool {
	return a.IsActive && a.IsVerified
}

// AccountFlags holds the optional flags accepted when creating an account.
type AccountFlags struct {
	IsStaff     bool
	IsSuperuser bool
	IsVerified  bool
}

// Sex values accepted on a profile.
const (
	SexMale   = "M"
	SexFemale = "F"
)

// Profile holds the display attributes of an account. Every account has
// exactly one profile, created in the same transaction as the account.
type Profile struct {
	ID        int64     `json:"id"`
	AccountID int64     `json:"-"`
	Email     string    `json:"email"` // read-only, joined from the account
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Bio       string    `json:"bio"`
	Sex       *string   `json:"sex"`
	Image     *string   `json:"image"`
	CreatedAt time.Time `json:"-"`
	UpdatedAt time.Time `json:"-"`
}

// FullName joins first and last name, falling back to the email.
func (p *Profile) FullName() string {
	name := strings.TrimSpace(p.FirstName + " " + p.LastName)
	if name == "" {
		return p.Email
	}
	return name
}

// AuthToken is an opaque login token bound to one account.
type AuthToken struct {
	Key       string    `json:"token"`
	AccountID int64     `json:"user_id"`
	CreatedAt time.Time `json:"-"`
}

// NormalizeEmail lower-cases the domain part of an address and leaves the
// local part untouched. Surrounding whitespace is trimmed.
func NormalizeEmail(email string) string {
	email = strings.TrimSpace(email)
	at := strings.LastIndex(email, "@")
	if at < 0 {
		return email
	}
	return email[:at] + "@" + strings.ToLower(email[at+1:])
}
