package models

import (
	"time"

	"gomeals.io/market/models/enum"
)

// User is the authenticated identity persisted alongside the token pair.
type User struct {
	ID        string        `json:"id"`
	Email     string        `json:"email"`
	FirstName string        `json:"first_name"`
	LastName  string        `json:"last_name"`
	Role      enum.UserRole `json:"role"`
	Avatar    string        `json:"avatar,omitempty"`
	CreatedAt time.Time     `json:"created_at"`
}

func NewUser() *User {
	return new(User)
}
