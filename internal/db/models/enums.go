// Package models defines the database row types and closed enumerations for
// SocietyHub. Role and field-type strings arrive from clients as free text, so
// every enum has a Parse helper that rejects anything outside the closed set —
// a typo'd role can never silently pass an authorization check.
package models

import "fmt"

// Role is a member's role within a society, optionally scoped to a group.
type Role string

const (
	RolePresident        Role = "PRESIDENT"
	RoleLead             Role = "LEAD"
	RoleCoLead           Role = "CO-LEAD"
	RoleGeneralSecretary Role = "GENERAL SECRETARY"
	RoleMember           Role = "MEMBER"
	RoleFinanceManager   Role = "FINANCE MANAGER"
	RoleEventManager     Role = "EVENT MANAGER"
)

// AllRoles lists every assignable role.
var AllRoles = []Role{
	RolePresident, RoleLead, RoleCoLead, RoleGeneralSecretary,
	RoleMember, RoleFinanceManager, RoleEventManager,
}

// ParseRole validates a client-supplied role string.
func ParseRole(s string) (Role, error) {
	for _, r := range AllRoles {
		if string(r) == s {
			return r, nil
		}
	}
	return "", fmt.Errorf("unknown role %q", s)
}

// GroupScoped reports whether the role is meaningful only within a group.
func (r Role) GroupScoped() bool {
	return r == RoleLead || r == RoleCoLead
}

// UserStatus is the lifecycle state of a user account.
type UserStatus string

const (
	UserActive    UserStatus = "ACTIVE"
	UserInactive  UserStatus = "INACTIVE"
	UserSuspended UserStatus = "SUSPENDED"
	UserImported  UserStatus = "IMPORTED"
)

// SocietyStatus is the lifecycle state of a society.
type SocietyStatus string

const (
	SocietyActive    SocietyStatus = "ACTIVE"
	SocietySuspended SocietyStatus = "SUSPENDED"
	SocietyDeleted   SocietyStatus = "DELETED"
)

// RequestStatus is shared by society requests, join requests and event
// registrations. PENDING is the only non-terminal state.
type RequestStatus string

const (
	RequestPending  RequestStatus = "PENDING"
	RequestApproved RequestStatus = "APPROVED"
	RequestRejected RequestStatus = "REJECTED"
)

// Resolved reports whether the request has reached a terminal state.
func (s RequestStatus) Resolved() bool {
	return s == RequestApproved || s == RequestRejected
}

// FieldType is the type of a dynamic form field.
type FieldType string

const (
	FieldText     FieldType = "TEXT"
	FieldEmail    FieldType = "EMAIL"
	FieldNumber   FieldType = "NUMBER"
	FieldDropdown FieldType = "DROPDOWN"
	FieldCheckbox FieldType = "CHECKBOX"
	FieldFile     FieldType = "FILE"
	FieldTextarea FieldType = "TEXTAREA"
	FieldDate     FieldType = "DATE"
	FieldPhone    FieldType = "PHONE"
)

// joinFormFieldTypes are the types allowed on membership join forms.
var joinFormFieldTypes = map[FieldType]bool{
	FieldText: true, FieldEmail: true, FieldNumber: true,
	FieldDropdown: true, FieldCheckbox: true, FieldFile: true,
}

// eventFormFieldTypes additionally allow long-text, date and phone fields.
var eventFormFieldTypes = map[FieldType]bool{
	FieldText: true, FieldEmail: true, FieldNumber: true,
	FieldDropdown: true, FieldCheckbox: true, FieldFile: true,
	FieldTextarea: true, FieldDate: true, FieldPhone: true,
}

// ParseFieldType validates a field type for the given form kind.
func ParseFieldType(s string, kind FormKind) (FieldType, error) {
	ft := FieldType(s)
	allowed := joinFormFieldTypes
	if kind == FormKindEvent {
		allowed = eventFormFieldTypes
	}
	if !allowed[ft] {
		return "", fmt.Errorf("unknown field type %q", s)
	}
	return ft, nil
}

// FormKind distinguishes join forms from event registration forms.
type FormKind string

const (
	FormKindJoin  FormKind = "JOIN"
	FormKindEvent FormKind = "EVENT"
)

// OTPType distinguishes signup verification codes from password-reset codes.
type OTPType string

const (
	OTPSignup        OTPType = "SIGNUP"
	OTPPasswordReset OTPType = "PASSWORD_RESET"
)

// EventStatus is the lifecycle state of an event.
type EventStatus string

const (
	EventDraft     EventStatus = "DRAFT"
	EventPublished EventStatus = "PUBLISHED"
	EventCancelled EventStatus = "CANCELLED"
)
