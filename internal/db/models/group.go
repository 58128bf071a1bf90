package models

import "time"

// Group is a sub-unit of a society (a team) with its own leadership.
type Group struct {
	ID          string    `json:"id"`
	SocietyID   string    `json:"society_id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// GroupMember links a society member to a group. The member must already hold
// a SocietyUserRole in the group's society.
type GroupMember struct {
	GroupID   string    `json:"group_id"`
	UserID    string    `json:"user_id"`
	SocietyID string    `json:"society_id"`
	AddedAt   time.Time `json:"added_at"`
}

// GroupMemberWithUser joins membership with user details for listings.
type GroupMemberWithUser struct {
	GroupMember
	UserName  string `json:"user_name"`
	UserEmail string `json:"user_email"`
	Role      Role   `json:"role"`
}
