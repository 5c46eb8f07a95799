package models

import "time"

// AuditLog records a login event or a moderation action taken through this front end
type AuditLog struct {
	ID         int64     `json:"id"`
	Timestamp  time.Time `json:"timestamp"`
	ActorID    string    `json:"actor_id"`
	ActorEmail string    `json:"actor_email"`
	Action     string    `json:"action"`
	Target     string    `json:"target"`
	Details    string    `json:"details"` // JSON string
	IPAddress  string    `json:"ip_address"`
}

// AuditFilter narrows audit log queries
type AuditFilter struct {
	ActorID      string
	ActionPrefix string
	StartTime    time.Time
	EndTime      time.Time
	Limit        int
	Offset       int
}

// Common audit actions
const (
	ActionLogin         = "login"
	ActionLogout        = "logout"
	ActionUserDelete    = "user.delete"
	ActionListingDelete = "listing.delete"
	ActionListingCreate = "listing.create"
	ActionAdminCreate   = "admin.create"
)
