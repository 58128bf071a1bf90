// membership.go implements the membership and leadership state machine on
// top of the role, group and society repositories. The repositories own the
// transactions; this service owns the cross-aggregate checks and the
// lifecycle rules.
package services

import (
	"context"
	"fmt"

	"github.com/societyhub/societyhub/internal/db/models"
	"github.com/societyhub/societyhub/internal/db/repositories"
)

// Membership coordinates role, group and society changes.
type Membership struct {
	roles     *repositories.RoleRepository
	groups    *repositories.GroupRepository
	users     *repositories.UserRepository
	societies *repositories.SocietyRepository
}

// NewMembership wires the membership service.
func NewMembership(
	roles *repositories.RoleRepository,
	groups *repositories.GroupRepository,
	users *repositories.UserRepository,
	societies *repositories.SocietyRepository,
) *Membership {
	return &Membership{roles: roles, groups: groups, users: users, societies: societies}
}

// AddMember directly adds a user to a society as MEMBER, bypassing the join
// workflow. The target is looked up by email so presidents can add people
// who never applied.
func (m *Membership) AddMember(ctx context.Context, email, societyID, assignedBy string) (*models.SocietyUserRole, error) {
	society, err := m.activeSociety(ctx, societyID)
	if err != nil {
		return nil, err
	}

	user, err := m.users.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}
	if user == nil {
		return nil, ErrUserNotFound
	}

	return m.roles.AddMember(ctx, user.ID, society.ID, assignedBy)
}

// UpdateMemberRole changes a member's society-level role. Group-scoped roles
// go through AssignLeadership instead.
func (m *Membership) UpdateMemberRole(ctx context.Context, userID, societyID string, role models.Role, assignedBy string) error {
	if role.GroupScoped() {
		return ErrNotLeadershipRole
	}
	return m.roles.UpdateRole(ctx, userID, societyID, role, assignedBy)
}

// RemoveMember removes a user's role row and group memberships in a society.
// The president cannot be removed; the presidency must be transferred first.
func (m *Membership) RemoveMember(ctx context.Context, userID, societyID string) error {
	role, err := m.roles.GetRole(ctx, userID, societyID)
	if err != nil {
		return fmt.Errorf("failed to load role: %w", err)
	}
	if role == nil {
		return repositories.ErrNotMember
	}
	if role.Role == models.RolePresident {
		return ErrInvalidTransition
	}
	return m.roles.RemoveMember(ctx, userID, societyID)
}

// AssignLeadership makes a member LEAD or CO-LEAD of a group in the same
// society. The group must belong to the society and the target must already
// be a member; LEAD cardinality is enforced in the repository transaction.
func (m *Membership) AssignLeadership(ctx context.Context, userID, societyID, groupID string, role models.Role, assignedBy string) error {
	if !role.GroupScoped() {
		return ErrNotLeadershipRole
	}

	group, err := m.groups.GetByID(ctx, groupID)
	if err != nil {
		return fmt.Errorf("failed to load group: %w", err)
	}
	if group == nil || group.SocietyID != societyID {
		return ErrTeamMismatch
	}

	return m.roles.AssignLeadership(ctx, userID, societyID, groupID, role, assignedBy)
}

// RemoveLeadership downgrades a group leader back to MEMBER.
func (m *Membership) RemoveLeadership(ctx context.Context, userID, societyID, groupID, assignedBy string) error {
	return m.roles.RemoveLeadership(ctx, userID, societyID, groupID, assignedBy)
}

// ChangePresident transfers the presidency to another user atomically.
func (m *Membership) ChangePresident(ctx context.Context, societyID, newPresidentID, assignedBy string) error {
	user, err := m.users.GetUserByID(ctx, newPresidentID)
	if err != nil {
		return fmt.Errorf("failed to look up user: %w", err)
	}
	if user == nil {
		return ErrUserNotFound
	}
	return m.roles.ChangePresident(ctx, societyID, newPresidentID, assignedBy)
}

// DeleteGroup removes a group, its memberships and its leadership scopes in
// one repository transaction.
func (m *Membership) DeleteGroup(ctx context.Context, groupID string) error {
	return m.groups.Delete(ctx, groupID)
}

// SetSocietyStatus applies the society lifecycle rules: ACTIVE and SUSPENDED
// toggle freely, DELETED is terminal.
func (m *Membership) SetSocietyStatus(ctx context.Context, societyID string, target models.SocietyStatus) error {
	society, err := m.societies.GetByID(ctx, societyID)
	if err != nil {
		return fmt.Errorf("failed to load society: %w", err)
	}
	if society == nil {
		return ErrSocietyNotFound
	}

	if society.Status == models.SocietyDeleted {
		return ErrInvalidTransition
	}
	if society.Status == target {
		return nil
	}

	return m.societies.SetStatus(ctx, societyID, target)
}

func (m *Membership) activeSociety(ctx context.Context, societyID string) (*models.Society, error) {
	society, err := m.societies.GetByID(ctx, societyID)
	if err != nil {
		return nil, fmt.Errorf("failed to load society: %w", err)
	}
	if society == nil || society.Status == models.SocietyDeleted {
		return nil, ErrSocietyNotFound
	}
	if society.Status != models.SocietyActive {
		return nil, ErrSocietyNotActive
	}
	return society, nil
}
