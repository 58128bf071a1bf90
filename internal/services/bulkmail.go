// bulkmail.go implements bulk email to society members. Sends run
// synchronously recipient-by-recipient so the caller gets a per-recipient
// result summary; the mailer's own bounded retry handles transient SMTP
// failures.
package services

import (
	"context"
	"fmt"

	"github.com/societyhub/societyhub/internal/db/models"
	"github.com/societyhub/societyhub/internal/db/repositories"
	"github.com/societyhub/societyhub/internal/notify"
	"github.com/societyhub/societyhub/internal/telemetry"
)

// RecipientResult is the delivery outcome for one address.
type RecipientResult struct {
	Email string `json:"email"`
	Sent  bool   `json:"sent"`
	Error string `json:"error,omitempty"`
}

// BulkResult summarizes one bulk send.
type BulkResult struct {
	Total      int               `json:"total"`
	Sent       int               `json:"sent"`
	Failed     int               `json:"failed"`
	Recipients []RecipientResult `json:"recipients"`
}

// BulkMailer sends one message to a filtered set of society members.
type BulkMailer struct {
	roles  *repositories.RoleRepository
	groups *repositories.GroupRepository
	mailer notify.Mailer
}

// NewBulkMailer wires the bulk mailer.
func NewBulkMailer(roles *repositories.RoleRepository, groups *repositories.GroupRepository, mailer notify.Mailer) *BulkMailer {
	return &BulkMailer{roles: roles, groups: groups, mailer: mailer}
}

// Send emails every matching member of the society. role and groupID are
// optional filters; a group filter must name a group of the same society.
// Individual delivery failures are recorded, not fatal.
func (b *BulkMailer) Send(ctx context.Context, societyID, subject, body string, role *models.Role, groupID *string) (*BulkResult, error) {
	if groupID != nil {
		group, err := b.groups.GetByID(ctx, *groupID)
		if err != nil {
			return nil, fmt.Errorf("failed to load group: %w", err)
		}
		if group == nil || group.SocietyID != societyID {
			return nil, ErrTeamMismatch
		}
	}

	emails, err := b.roles.ListEmailTargets(ctx, societyID, role, groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve recipients: %w", err)
	}

	result := &BulkResult{Total: len(emails)}
	for _, email := range emails {
		r := RecipientResult{Email: email}
		if err := b.mailer.Send([]string{email}, subject, body); err != nil {
			r.Error = err.Error()
			result.Failed++
			telemetry.EmailSendFailuresTotal.WithLabelValues("bulk").Inc()
		} else {
			r.Sent = true
			result.Sent++
			telemetry.EmailsSentTotal.WithLabelValues("bulk").Inc()
		}
		result.Recipients = append(result.Recipients, r)
	}

	return result, nil
}
