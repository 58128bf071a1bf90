// society.go defines societies, the requests that create them, and the role
// rows binding users to societies.
package models

import "time"

// Society is the top-level organizational unit members join.
type Society struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	Description string        `json:"description"`
	Status      SocietyStatus `json:"status"`
	CreatedBy   string        `json:"created_by"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

// SocietyRequest is a user's application to found a new society. Approval
// creates the Society and its first PRESIDENT role row in one transaction.
type SocietyRequest struct {
	ID              string        `json:"id"`
	Name            string        `json:"name"`
	Description     string        `json:"description"`
	RequestedBy     string        `json:"requested_by"`
	Status          RequestStatus `json:"status"`
	RejectionReason *string       `json:"rejection_reason,omitempty"`
	ReviewedBy      *string       `json:"reviewed_by,omitempty"`
	ReviewedAt      *time.Time    `json:"reviewed_at,omitempty"`
	CreatedAt       time.Time     `json:"created_at"`
}

// SocietyUserRole grants a user a role in a society, optionally scoped to a
// group for LEAD/CO-LEAD. At most one row exists per (user, society).
type SocietyUserRole struct {
	ID         string    `json:"id"`
	UserID     string    `json:"user_id"`
	SocietyID  string    `json:"society_id"`
	Role       Role      `json:"role"`
	GroupID    *string   `json:"group_id,omitempty"`
	AssignedBy string    `json:"assigned_by"`
	AssignedAt time.Time `json:"assigned_at"`
}

// MemberWithUser is a role row joined with user details for member listings.
type MemberWithUser struct {
	SocietyUserRole
	UserName  string     `json:"user_name"`
	UserEmail string     `json:"user_email"`
	GroupName *string    `json:"group_name,omitempty"`
	JoinedAt  time.Time  `json:"joined_at"`
	Verified  bool       `json:"email_verified"`
	Status    UserStatus `json:"user_status"`
}
