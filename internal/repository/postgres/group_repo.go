package postgres

import (
	"context"
	"database/sql"
	"time"

	"tontine-api/internal/domain/group"
)

type GroupRepo struct {
	db *sql.DB
}

func NewGroupRepo(db *sql.DB) *GroupRepo {
	return &GroupRepo{db: db}
}

func (r *GroupRepo) Create(ctx context.Context, g *group.Group, creator *group.Member) (int64, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	queryGroup := `
        INSERT INTO groups (name, description, currency, contribution_amount,
                            proposal_policy, vote_duration_hours, status, creator_id)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
        RETURNING id, created_at, updated_at
    `
	err = tx.QueryRowContext(ctx, queryGroup,
		g.Name, g.Description, g.Currency, g.ContributionAmount,
		g.ProposalPolicy, g.VoteDurationHours, g.Status, g.CreatorID,
	).Scan(&g.ID, &g.CreatedAt, &g.UpdatedAt)
	if err != nil {
		return 0, err
	}

	creator.GroupID = g.ID
	queryMember := `
        INSERT INTO group_members (group_id, user_id, role, status)
        VALUES ($1, $2, $3, $4)
        RETURNING joined_at
    `
	if err := tx.QueryRowContext(ctx, queryMember,
		creator.GroupID, creator.UserID, creator.Role, creator.Status,
	).Scan(&creator.JoinedAt); err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return g.ID, nil
}

func (r *GroupRepo) GetByID(ctx context.Context, id int64) (*group.Group, error) {
	g := &group.Group{}
	err := r.db.QueryRowContext(ctx, `
        SELECT id, name, description, currency, contribution_amount,
               proposal_policy, vote_duration_hours, status, creator_id, created_at, updated_at
        FROM groups WHERE id = $1
    `, id).Scan(
		&g.ID, &g.Name, &g.Description, &g.Currency, &g.ContributionAmount,
		&g.ProposalPolicy, &g.VoteDurationHours, &g.Status, &g.CreatorID, &g.CreatedAt, &g.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return g, nil
}

func (r *GroupRepo) ListForUser(ctx context.Context, userID int64) ([]group.Group, error) {
	rows, err := r.db.QueryContext(ctx, `
        SELECT g.id, g.name, g.description, g.currency, g.contribution_amount,
               g.proposal_policy, g.vote_duration_hours, g.status, g.creator_id, g.created_at, g.updated_at
        FROM groups g
        JOIN group_members m ON m.group_id = g.id
        WHERE m.user_id = $1 AND m.status = 'active'
        ORDER BY g.created_at DESC
    `, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []group.Group
	for rows.Next() {
		var g group.Group
		if err := rows.Scan(&g.ID, &g.Name, &g.Description, &g.Currency, &g.ContributionAmount,
			&g.ProposalPolicy, &g.VoteDurationHours, &g.Status, &g.CreatorID, &g.CreatedAt, &g.UpdatedAt); err != nil {
			return nil, err
		}
		res = append(res, g)
	}
	return res, rows.Err()
}

func (r *GroupRepo) Members(ctx context.Context, groupID int64) ([]group.Member, error) {
	rows, err := r.db.QueryContext(ctx, `
        SELECT group_id, user_id, role, status, total_contributed, joined_at
        FROM group_members WHERE group_id = $1 ORDER BY joined_at
    `, groupID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []group.Member
	for rows.Next() {
		var m group.Member
		if err := rows.Scan(&m.GroupID, &m.UserID, &m.Role, &m.Status, &m.TotalContributed, &m.JoinedAt); err != nil {
			return nil, err
		}
		res = append(res, m)
	}
	return res, rows.Err()
}

func (r *GroupRepo) GetMember(ctx context.Context, groupID, userID int64) (*group.Member, error) {
	m := &group.Member{}
	err := r.db.QueryRowContext(ctx, `
        SELECT group_id, user_id, role, status, total_contributed, joined_at
        FROM group_members WHERE group_id = $1 AND user_id = $2
    `, groupID, userID).Scan(&m.GroupID, &m.UserID, &m.Role, &m.Status, &m.TotalContributed, &m.JoinedAt)
	if err != nil {
		return nil, err
	}
	return m, nil
}

func (r *GroupRepo) AddMember(ctx context.Context, m *group.Member) error {
	// Rejoin after leaving reuses the old row.
	query := `
        INSERT INTO group_members (group_id, user_id, role, status)
        VALUES ($1, $2, $3, $4)
        ON CONFLICT (group_id, user_id) DO UPDATE
        SET role = EXCLUDED.role, status = EXCLUDED.status
        RETURNING joined_at
    `
	return r.db.QueryRowContext(ctx, query, m.GroupID, m.UserID, m.Role, m.Status).
		Scan(&m.JoinedAt)
}

func (r *GroupRepo) UpdateMemberRole(ctx context.Context, groupID, userID int64, role string) error {
	_, err := r.db.ExecContext(ctx, `
        UPDATE group_members SET role = $1 WHERE group_id = $2 AND user_id = $3
    `, role, groupID, userID)
	return err
}

func (r *GroupRepo) UpdateMemberStatus(ctx context.Context, groupID, userID int64, status string) error {
	_, err := r.db.ExecContext(ctx, `
        UPDATE group_members SET status = $1 WHERE group_id = $2 AND user_id = $3
    `, status, groupID, userID)
	return err
}

func (r *GroupRepo) CountActiveMembers(ctx context.Context, groupID int64) (int64, error) {
	var n int64
	err := r.db.QueryRowContext(ctx, `
        SELECT COUNT(*) FROM group_members WHERE group_id = $1 AND status = 'active'
    `, groupID).Scan(&n)
	return n, err
}

func (r *GroupRepo) ActiveMemberIDs(ctx context.Context, groupID int64) ([]int64, error) {
	rows, err := r.db.QueryContext(ctx, `
        SELECT user_id FROM group_members WHERE group_id = $1 AND status = 'active'
    `, groupID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *GroupRepo) CreateInvitation(ctx context.Context, inv *group.Invitation) error {
	query := `
        INSERT INTO invitations (group_id, code, email, invited_by, status, expires_at)
        VALUES ($1, $2, $3, $4, $5, $6)
        RETURNING id, created_at
    `
	return r.db.QueryRowContext(ctx, query,
		inv.GroupID, inv.Code, inv.Email, inv.InvitedBy, inv.Status, inv.ExpiresAt,
	).Scan(&inv.ID, &inv.CreatedAt)
}

func (r *GroupRepo) GetInvitationByCode(ctx context.Context, code string) (*group.Invitation, error) {
	inv := &group.Invitation{}
	err := r.db.QueryRowContext(ctx, `
        SELECT id, group_id, code, email, invited_by, status, expires_at, created_at, used_at
        FROM invitations WHERE code = $1
    `, code).Scan(&inv.ID, &inv.GroupID, &inv.Code, &inv.Email, &inv.InvitedBy,
		&inv.Status, &inv.ExpiresAt, &inv.CreatedAt, &inv.UsedAt)
	if err != nil {
		return nil, err
	}
	return inv, nil
}

func (r *GroupRepo) MarkInvitationUsed(ctx context.Context, id int64, usedAt time.Time) error {
	_, err := r.db.ExecContext(ctx, `
        UPDATE invitations SET status = 'accepted', used_at = $1 WHERE id = $2
    `, usedAt, id)
	return err
}
