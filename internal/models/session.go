package models

import "time"

// Claims is the decoded claim set of a verified session token
type Claims struct {
	Subject   string    `json:"sub,omitempty"`
	UserID    string    `json:"id,omitempty"`
	Email     string    `json:"email,omitempty"`
	Username  string    `json:"username,omitempty"`
	Role      Role      `json:"role,omitempty"`
	IssuedAt  time.Time `json:"-"`
	ExpiresAt time.Time `json:"-"`
}

// Identity returns the best available user identifier.
func (c *Claims) Identity() string {
	if c.UserID != "" {
		return c.UserID
	}
	return c.Subject
}
