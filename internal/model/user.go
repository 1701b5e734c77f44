package model

import "time"

// User is an account. PasswordHash never leaves the server.
type User struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    *time.Time `json:"updatedAt,omitempty"`
}

// AsAuthor returns the public author view of the user.
func (u *User) AsAuthor() Author {
	return Author{ID: u.ID, Name: u.Name}
}
