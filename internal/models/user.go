package models

import "time"

// User is an account in the app. Username is unique and is what peers search by.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email,omitempty"`
	PasswordHash string    `json:"-"`
	Bio          string    `json:"bio,omitempty"`
	PhotoURL     string    `json:"photo_url,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// ProfileUpdate carries the mutable profile fields. Nil means "leave unchanged".
type ProfileUpdate struct {
	Bio      *string `json:"bio"`
	PhotoURL *string `json:"photo_url"`
}
