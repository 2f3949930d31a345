package models

import "time"

type UserRole string

const (
	UserRoleAdmin   UserRole = "admin"
	UserRoleDoctor  UserRole = "doctor"
	UserRolePatient UserRole = "patient"
	UserRoleStaff   UserRole = "staff"
)

// Valid reports whether r is one of the known roles.
func (r UserRole) Valid() bool {
	switch r {
	case UserRoleAdmin, UserRoleDoctor, UserRolePatient, UserRoleStaff:
		return true
	}
	return false
}

// UserMetadata is the profile the identity provider stores next to the account.
type UserMetadata struct {
	Name  string   `json:"name,omitempty"`
	Phone string   `json:"phone,omitempty"`
	Role  UserRole `json:"role,omitempty"`
}

type User struct {
	ID           string       `json:"id"`
	Email        string       `json:"email"`
	Phone        string       `json:"phone,omitempty"`
	UserMetadata UserMetadata `json:"user_metadata"`
	CreatedAt    time.Time    `json:"created_at,omitempty"`
}

// Role is the metadata role, falling back to patient.
func (u User) Role() UserRole {
	if u.UserMetadata.Role.Valid() {
		return u.UserMetadata.Role
	}
	return UserRolePatient
}

type Session struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	TokenType    string    `json:"token_type"`
	ExpiresAt    time.Time `json:"expires_at"`
	User         User      `json:"user"`
}

// ExpiresWithin reports whether the access token expires before now+d.
// A zero expiry is treated as non-expiring.
func (s Session) ExpiresWithin(now time.Time, d time.Duration) bool {
	if s.ExpiresAt.IsZero() {
		return false
	}
	return !now.Add(d).Before(s.ExpiresAt)
}
