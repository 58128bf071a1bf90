// group_repository.go implements GroupRepository for groups (teams) and their
// membership rows. Group deletion is transactional: members, leadership
// scopes and the group row go together or not at all.
package repositories

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/societyhub/societyhub/internal/db/models"
)

// GroupRepository handles group and group-member database operations
type GroupRepository struct {
	db *sql.DB
}

// NewGroupRepository creates a new GroupRepository
func NewGroupRepository(db *sql.DB) *GroupRepository {
	return &GroupRepository{db: db}
}

const groupColumns = `id, society_id, name, description, created_at, updated_at`

func scanGroup(row *sql.Row) (*models.Group, error) {
	g := &models.Group{}
	err := row.Scan(&g.ID, &g.SocietyID, &g.Name, &g.Description, &g.CreatedAt, &g.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return g, nil
}

// Create creates a group inside a society. Group names are unique per society.
func (r *GroupRepository) Create(ctx context.Context, group *models.Group) error {
	group.ID = uuid.New().String()
	group.CreatedAt = time.Now()
	group.UpdatedAt = group.CreatedAt

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO groups (id, society_id, name, description, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		group.ID, group.SocietyID, group.Name, group.Description, group.CreatedAt, group.UpdatedAt,
	)
	if err != nil && isUniqueViolation(err) {
		return ErrDuplicateName
	}
	return err
}

// GetByID retrieves a group. Returns (nil, nil) when absent.
func (r *GroupRepository) GetByID(ctx context.Context, id string) (*models.Group, error) {
	query := `SELECT ` + groupColumns + ` FROM groups WHERE id = $1`
	return scanGroup(r.db.QueryRowContext(ctx, query, id))
}

// ListBySociety returns a society's groups, oldest first.
func (r *GroupRepository) ListBySociety(ctx context.Context, societyID string) ([]*models.Group, error) {
	query := `SELECT ` + groupColumns + ` FROM groups WHERE society_id = $1 ORDER BY created_at`
	rows, err := r.db.QueryContext(ctx, query, societyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var groups []*models.Group
	for rows.Next() {
		g := &models.Group{}
		if err := rows.Scan(&g.ID, &g.SocietyID, &g.Name, &g.Description, &g.CreatedAt, &g.UpdatedAt); err != nil {
			return nil, err
		}
		groups = append(groups, g)
	}
	return groups, rows.Err()
}

// Update changes the mutable fields of a group.
func (r *GroupRepository) Update(ctx context.Context, id, name, description string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE groups SET name = $1, description = $2, updated_at = $3 WHERE id = $4`,
		name, description, time.Now(), id,
	)
	if err != nil && isUniqueViolation(err) {
		return ErrDuplicateName
	}
	return err
}

// Delete removes a group transactionally: its member rows are deleted,
// LEAD/CO-LEAD role rows scoped to the group are demoted to MEMBER with the
// group scope cleared, then the group row itself is deleted. Abort leaves no
// partial state.
func (r *GroupRepository) Delete(ctx context.Context, groupID string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM group_members WHERE group_id = $1`, groupID); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE society_user_roles SET role = $1, group_id = NULL
		 WHERE group_id = $2 AND role IN ($3, $4)`,
		models.RoleMember, groupID, models.RoleLead, models.RoleCoLead); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM groups WHERE id = $1`, groupID); err != nil {
		return err
	}

	return tx.Commit()
}

// AddMember adds a society member to a group. The caller must have verified
// the user already holds a SocietyUserRole in the group's society.
func (r *GroupRepository) AddMember(ctx context.Context, groupID, userID, societyID string) error {
	result, err := r.db.ExecContext(ctx,
		`INSERT INTO group_members (group_id, user_id, society_id, added_at)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (group_id, user_id) DO NOTHING`,
		groupID, userID, societyID, time.Now(),
	)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrAlreadyMember
	}
	return nil
}

// RemoveMember removes a user from a group.
func (r *GroupRepository) RemoveMember(ctx context.Context, groupID, userID string) error {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM group_members WHERE group_id = $1 AND user_id = $2`, groupID, userID)
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

// ListMembers returns group members joined with user details and their
// society role.
func (r *GroupRepository) ListMembers(ctx context.Context, groupID string) ([]*models.GroupMemberWithUser, error) {
	query := `
		SELECT gm.group_id, gm.user_id, gm.society_id, gm.added_at,
		       u.name, u.email, sur.role
		FROM group_members gm
		JOIN users u ON u.id = gm.user_id
		JOIN society_user_roles sur ON sur.user_id = gm.user_id AND sur.society_id = gm.society_id
		WHERE gm.group_id = $1
		ORDER BY gm.added_at
	`
	rows, err := r.db.QueryContext(ctx, query, groupID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var members []*models.GroupMemberWithUser
	for rows.Next() {
		m := &models.GroupMemberWithUser{}
		if err := rows.Scan(
			&m.GroupID, &m.UserID, &m.SocietyID, &m.AddedAt,
			&m.UserName, &m.UserEmail, &m.Role,
		); err != nil {
			return nil, err
		}
		members = append(members, m)
	}
	return members, rows.Err()
}
