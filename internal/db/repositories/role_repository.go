// role_repository.go implements RoleRepository, the single owner of
// society_user_roles. The leadership invariants (one PRESIDENT per society,
// one LEAD per group) are checked read-then-write inside transactions and
// additionally backed by partial unique indexes, so a concurrent writer that
// slips past the read check still cannot commit a second PRESIDENT or LEAD.
package repositories

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/societyhub/societyhub/internal/db/models"
)

// RoleRepository handles society membership and role database operations
type RoleRepository struct {
	db *sql.DB
}

// NewRoleRepository creates a new RoleRepository
func NewRoleRepository(db *sql.DB) *RoleRepository {
	return &RoleRepository{db: db}
}

const roleColumns = `id, user_id, society_id, role, group_id, assigned_by, assigned_at`

// GetRole returns the user's role row in a society, or (nil, nil).
func (r *RoleRepository) GetRole(ctx context.Context, userID, societyID string) (*models.SocietyUserRole, error) {
	query := `SELECT ` + roleColumns + ` FROM society_user_roles WHERE user_id = $1 AND society_id = $2`
	row := &models.SocietyUserRole{}
	err := r.db.QueryRowContext(ctx, query, userID, societyID).Scan(
		&row.ID, &row.UserID, &row.SocietyID, &row.Role, &row.GroupID, &row.AssignedBy, &row.AssignedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return row, nil
}

// GetPresident returns the society's PRESIDENT role row, or (nil, nil).
func (r *RoleRepository) GetPresident(ctx context.Context, societyID string) (*models.SocietyUserRole, error) {
	query := `SELECT ` + roleColumns + ` FROM society_user_roles WHERE society_id = $1 AND role = $2`
	row := &models.SocietyUserRole{}
	err := r.db.QueryRowContext(ctx, query, societyID, models.RolePresident).Scan(
		&row.ID, &row.UserID, &row.SocietyID, &row.Role, &row.GroupID, &row.AssignedBy, &row.AssignedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return row, nil
}

// AddMember grants a user the MEMBER role in a society.
func (r *RoleRepository) AddMember(ctx context.Context, userID, societyID, assignedBy string) (*models.SocietyUserRole, error) {
	row := &models.SocietyUserRole{
		ID:         uuid.New().String(),
		UserID:     userID,
		SocietyID:  societyID,
		Role:       models.RoleMember,
		AssignedBy: assignedBy,
		AssignedAt: time.Now(),
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO society_user_roles (id, user_id, society_id, role, assigned_by, assigned_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		row.ID, row.UserID, row.SocietyID, row.Role, row.AssignedBy, row.AssignedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrAlreadyMember
		}
		return nil, err
	}
	return row, nil
}

// UpdateRole changes a member's society-level role. Downgrading to MEMBER
// clears any group scope stamped on the row.
func (r *RoleRepository) UpdateRole(ctx context.Context, userID, societyID string, role models.Role, assignedBy string) error {
	query := `
		UPDATE society_user_roles SET
			role = $1,
			group_id = CASE WHEN $1 = 'MEMBER' THEN NULL ELSE group_id END,
			assigned_by = $2,
			assigned_at = $3
		WHERE user_id = $4 AND society_id = $5
	`
	result, err := r.db.ExecContext(ctx, query, role, assignedBy, time.Now(), userID, societyID)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotMember
	}
	return nil
}

// RemoveMember deletes the user's role row and any group memberships in the
// society, in one transaction.
func (r *RoleRepository) RemoveMember(ctx context.Context, userID, societyID string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`DELETE FROM group_members WHERE user_id = $1 AND society_id = $2`, userID, societyID)
	if err != nil {
		return err
	}

	result, err := tx.ExecContext(ctx,
		`DELETE FROM society_user_roles WHERE user_id = $1 AND society_id = $2`, userID, societyID)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotMember
	}

	return tx.Commit()
}

// AssignLeadership makes the user LEAD or CO-LEAD of a group. The user must
// already be a society member. A group has at most one LEAD: assigning a
// second, different LEAD fails with ErrLeadExists; reassigning the incumbent
// is an idempotent update. The member is also added to the group.
func (r *RoleRepository) AssignLeadership(ctx context.Context, userID, societyID, groupID string, role models.Role, assignedBy string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var existing string
	err = tx.QueryRowContext(ctx,
		`SELECT user_id FROM society_user_roles WHERE user_id = $1 AND society_id = $2 FOR UPDATE`,
		userID, societyID,
	).Scan(&existing)
	if err == sql.ErrNoRows {
		return ErrNotMember
	}
	if err != nil {
		return err
	}

	if role == models.RoleLead {
		var leadID string
		err = tx.QueryRowContext(ctx,
			`SELECT user_id FROM society_user_roles WHERE group_id = $1 AND role = $2 FOR UPDATE`,
			groupID, models.RoleLead,
		).Scan(&leadID)
		if err != nil && err != sql.ErrNoRows {
			return err
		}
		if err == nil && leadID != userID {
			return ErrLeadExists
		}
	}

	now := time.Now()
	_, err = tx.ExecContext(ctx,
		`UPDATE society_user_roles SET role = $1, group_id = $2, assigned_by = $3, assigned_at = $4
		 WHERE user_id = $5 AND society_id = $6`,
		role, groupID, assignedBy, now, userID, societyID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrLeadExists
		}
		return err
	}

	// A leader is always a member of their group.
	_, err = tx.ExecContext(ctx,
		`INSERT INTO group_members (group_id, user_id, society_id, added_at)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (group_id, user_id) DO NOTHING`,
		groupID, userID, societyID, now,
	)
	if err != nil {
		return err
	}

	return tx.Commit()
}

// RemoveLeadership downgrades the user's role to MEMBER and clears the group
// scope when the row's group matches the group being left.
func (r *RoleRepository) RemoveLeadership(ctx context.Context, userID, societyID, groupID, assignedBy string) error {
	query := `
		UPDATE society_user_roles SET
			role = $1,
			group_id = CASE WHEN group_id = $2 THEN NULL ELSE group_id END,
			assigned_by = $3,
			assigned_at = $4
		WHERE user_id = $5 AND society_id = $6
	`
	result, err := r.db.ExecContext(ctx, query,
		models.RoleMember, groupID, assignedBy, time.Now(), userID, societyID)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotMember
	}
	return nil
}

// ChangePresident transfers the presidency atomically: the incumbent is
// demoted to MEMBER, then the successor's existing row is upgraded to
// PRESIDENT (or created). Any failure aborts the whole transfer.
func (r *RoleRepository) ChangePresident(ctx context.Context, societyID, newPresidentID, assignedBy string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var currentID string
	err = tx.QueryRowContext(ctx,
		`SELECT user_id FROM society_user_roles WHERE society_id = $1 AND role = $2 FOR UPDATE`,
		societyID, models.RolePresident,
	).Scan(&currentID)
	if err != nil && err != sql.ErrNoRows {
		return err
	}

	now := time.Now()
	if err == nil {
		if currentID == newPresidentID {
			// Transfer to self is a no-op.
			return tx.Commit()
		}
		_, err = tx.ExecContext(ctx,
			`UPDATE society_user_roles SET role = $1, group_id = NULL, assigned_by = $2, assigned_at = $3
			 WHERE user_id = $4 AND society_id = $5`,
			models.RoleMember, assignedBy, now, currentID, societyID,
		)
		if err != nil {
			return err
		}
	}

	result, err := tx.ExecContext(ctx,
		`UPDATE society_user_roles SET role = $1, group_id = NULL, assigned_by = $2, assigned_at = $3
		 WHERE user_id = $4 AND society_id = $5`,
		models.RolePresident, assignedBy, now, newPresidentID, societyID,
	)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO society_user_roles (id, user_id, society_id, role, assigned_by, assigned_at)
			 VALUES ($1, $2, $3, $4, $5, $6)`,
			uuid.New().String(), newPresidentID, societyID, models.RolePresident, assignedBy, now,
		)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

// ListMembers returns role rows joined with user and group details.
func (r *RoleRepository) ListMembers(ctx context.Context, societyID string, limit, offset int) ([]*models.MemberWithUser, error) {
	query := `
		SELECT sur.id, sur.user_id, sur.society_id, sur.role, sur.group_id,
		       sur.assigned_by, sur.assigned_at,
		       u.name, u.email, u.email_verified, u.status, g.name
		FROM society_user_roles sur
		JOIN users u ON u.id = sur.user_id
		LEFT JOIN groups g ON g.id = sur.group_id
		WHERE sur.society_id = $1
		ORDER BY sur.assigned_at
		LIMIT $2 OFFSET $3
	`
	rows, err := r.db.QueryContext(ctx, query, societyID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var members []*models.MemberWithUser
	for rows.Next() {
		m := &models.MemberWithUser{}
		if err := rows.Scan(
			&m.ID, &m.UserID, &m.SocietyID, &m.Role, &m.GroupID,
			&m.AssignedBy, &m.AssignedAt,
			&m.UserName, &m.UserEmail, &m.Verified, &m.Status, &m.GroupName,
		); err != nil {
			return nil, err
		}
		m.JoinedAt = m.AssignedAt
		members = append(members, m)
	}
	return members, rows.Err()
}

// CountMembers returns the number of role rows in a society.
func (r *RoleRepository) CountMembers(ctx context.Context, societyID string) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM society_user_roles WHERE society_id = $1`, societyID,
	).Scan(&count)
	return count, err
}

// ListSocietiesForUser returns the user's role rows across all societies.
func (r *RoleRepository) ListSocietiesForUser(ctx context.Context, userID string) ([]*models.SocietyUserRole, error) {
	query := `SELECT ` + roleColumns + ` FROM society_user_roles WHERE user_id = $1 ORDER BY assigned_at DESC`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*models.SocietyUserRole
	for rows.Next() {
		row := &models.SocietyUserRole{}
		if err := rows.Scan(
			&row.ID, &row.UserID, &row.SocietyID, &row.Role, &row.GroupID, &row.AssignedBy, &row.AssignedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, row)
	}
	return result, rows.Err()
}

// ListEmailTargets returns member emails for bulk mail, optionally filtered
// by role and/or group.
func (r *RoleRepository) ListEmailTargets(ctx context.Context, societyID string, role *models.Role, groupID *string) ([]string, error) {
	query := `
		SELECT u.email
		FROM society_user_roles sur
		JOIN users u ON u.id = sur.user_id
		LEFT JOIN group_members gm ON gm.user_id = sur.user_id AND gm.society_id = sur.society_id
		WHERE sur.society_id = $1
		  AND u.email_verified
		  AND ($2::text IS NULL OR sur.role = $2)
		  AND ($3::uuid IS NULL OR gm.group_id = $3)
		GROUP BY u.email
	`
	var roleArg, groupArg any
	if role != nil {
		roleArg = string(*role)
	}
	if groupID != nil {
		groupArg = *groupID
	}
	rows, err := r.db.QueryContext(ctx, query, societyID, roleArg, groupArg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var emails []string
	for rows.Next() {
		var email string
		if err := rows.Scan(&email); err != nil {
			return nil, err
		}
		emails = append(emails, email)
	}
	return emails, rows.Err()
}
