package domain

import "time"

// User is an account created through social login.
type User struct {
	ID         int64     `json:"id"`
	Email      string    `json:"email"`
	Name       string    `json:"name"`
	PictureURL string    `json:"profile_picture,omitempty"`
	GoogleID   string    `json:"-"`
	CreatedAt  time.Time `json:"created_at"`
}
