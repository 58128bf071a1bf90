// errors.go defines the sentinel errors handlers translate into HTTP
// envelopes. Repository sentinels bubble through the services unchanged;
// these cover the conditions only the service layer can see.
package services

import (
	"errors"
	"fmt"
	"strings"

	"github.com/societyhub/societyhub/internal/validation"
)

var (
	// ErrFormNotFound means no active form exists for the target.
	ErrFormNotFound = errors.New("no active form found")

	// ErrSocietyNotFound means the society does not exist or is deleted.
	ErrSocietyNotFound = errors.New("society not found")

	// ErrSocietyNotActive means the society exists but is suspended or deleted.
	ErrSocietyNotActive = errors.New("society is not active")

	// ErrEventNotFound means the event does not exist.
	ErrEventNotFound = errors.New("event not found")

	// ErrEventNotOpen means the event is not accepting registrations.
	ErrEventNotOpen = errors.New("event is not open for registration")

	// ErrUserNotFound means the target user does not exist.
	ErrUserNotFound = errors.New("user not found")

	// ErrTeamMismatch means the selected team belongs to another society.
	ErrTeamMismatch = errors.New("selected team does not belong to this society")

	// ErrInvalidTransition means the requested lifecycle change is not legal
	// from the current state.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrNotLeadershipRole means the role is not LEAD or CO-LEAD.
	ErrNotLeadershipRole = errors.New("role must be LEAD or CO-LEAD")
)

// ValidationError carries the full set of per-field problems from a form
// submission so the client can render them all at once.
type ValidationError struct {
	Fields []validation.FieldError
}

func (e *ValidationError) Error() string {
	msgs := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		msgs[i] = f.Message
	}
	return fmt.Sprintf("invalid submission: %s", strings.Join(msgs, "; "))
}

// AsValidationError unwraps err into a *ValidationError when it is one.
func AsValidationError(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}
