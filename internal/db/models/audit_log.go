package models

import "time"

// AuditLog records an authenticated mutation for the admin audit trail.
type AuditLog struct {
	ID           string    `json:"id"`
	UserID       *string   `json:"user_id,omitempty"`
	Action       string    `json:"action"`
	ResourceType string    `json:"resource_type"`
	ResourceID   *string   `json:"resource_id,omitempty"`
	StatusCode   int       `json:"status_code"`
	IPAddress    string    `json:"ip_address"`
	UserAgent    string    `json:"user_agent"`
	Details      *string   `json:"details,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}
