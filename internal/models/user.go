package models

import (
	"encoding/json"
	"time"
)

// Role represents user access levels
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// User is the read-only projection of a marketplace account returned by the API
type User struct {
	ID        string    `json:"_id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Role      Role      `json:"role,omitempty"`
	CreatedAt time.Time `json:"createdAt,omitempty"`
}

// UnmarshalJSON accepts both "_id" and "id" as the identifier field.
func (u *User) UnmarshalJSON(data []byte) error {
	type alias User
	var raw struct {
		alias
		AltID string `json:"id"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*u = User(raw.alias)
	if u.ID == "" {
		u.ID = raw.AltID
	}
	return nil
}

// IsAdmin returns true if the user has the admin role
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// DisplayRole returns the label shown in the back-office tables
func (u *User) DisplayRole() string {
	if u.IsAdmin() {
		return "Admin"
	}
	return "User"
}

// RegisterRequest is the payload sent to the API registration endpoint
type RegisterRequest struct {
	Username        string `json:"username"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	PasswordConfirm string `json:"passwordConfirm"`
	Role            Role   `json:"role,omitempty"`
}

// LoginRequest is the payload sent to the API login endpoint
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse is what the API returns after a successful login
type LoginResponse struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}
