// Package repositories implements the data access layer (repository pattern)
// for SocietyHub. Each repository type encapsulates all database queries for a
// domain entity. Handlers never issue SQL directly — all database access goes
// through this layer, which makes query logic testable in isolation and keeps
// the membership invariants (one role row per member, one PRESIDENT per
// society, one LEAD per group) enforced in exactly one place.
package repositories

import "errors"

// Domain errors surfaced by repository methods. Handlers map these onto
// HTTP statuses; anything else is treated as an internal error.
var (
	// ErrAlreadyMember: the user already holds a role row in the society.
	ErrAlreadyMember = errors.New("user is already a member of this society")

	// ErrNotMember: the operation requires an existing role row.
	ErrNotMember = errors.New("user is not a member of this society")

	// ErrLeadExists: the group already has a different LEAD.
	ErrLeadExists = errors.New("group already has a lead")

	// ErrAlreadyProcessed: the request left PENDING and cannot transition again.
	ErrAlreadyProcessed = errors.New("request has already been processed")

	// ErrPendingExists: a PENDING request already exists for this target.
	ErrPendingExists = errors.New("a pending request already exists")

	// ErrDuplicateName: unique-name collision (society, group within society).
	ErrDuplicateName = errors.New("name is already taken")

	// ErrTokenInvalid: refresh token unknown, revoked or expired.
	ErrTokenInvalid = errors.New("invalid or expired refresh token")
)
