// Package models defines server-side data models persisted in the database.
package models

import "time"

// User is an account record. PasswordHash and the reset fields never leave
// the server; use Profile for anything serialized to clients.
type User struct {
	ID             string
	Name           string
	Email          string
	PasswordHash   string
	ResetCode      *string
	ResetExpiresAt *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// HasResetPending reports whether a reset code is on file and still valid at now.
func (u *User) HasResetPending(now time.Time) bool {
	return u.ResetCode != nil && u.ResetExpiresAt != nil && now.Before(*u.ResetExpiresAt)
}

// Profile is the public view of a user.
type Profile struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (u *User) Profile() Profile {
	return Profile{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}
