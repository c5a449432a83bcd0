package group

import (
	"context"
	"time"
)

const (
	RoleAdmin     = "admin"
	RoleTreasurer = "treasurer"
	RoleMember    = "member"
)

const (
	MemberActive    = "active"
	MemberSuspended = "suspended"
	MemberLeft      = "left"
)

// Proposal policy controls who may open decisions in the group.
const (
	PolicyAnyMember = "any_member"
	PolicyOfficers  = "officers"
)

type Group struct {
	ID                 int64     `json:"id"`
	Name               string    `json:"name"`
	Description        *string   `json:"description,omitempty"`
	Currency           string    `json:"currency"`
	ContributionAmount float64   `json:"contribution_amount"`
	ProposalPolicy     string    `json:"proposal_policy"`
	VoteDurationHours  int       `json:"vote_duration_hours"`
	Status             string    `json:"status"`
	CreatorID          int64     `json:"creator_id"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

type Member struct {
	GroupID          int64     `json:"group_id"`
	UserID           int64     `json:"user_id"`
	Role             string    `json:"role"`
	Status           string    `json:"status"`
	TotalContributed float64   `json:"total_contributed"`
	JoinedAt         time.Time `json:"joined_at"`
}

// IsOfficer reports whether the member holds a privileged group role.
func (m *Member) IsOfficer() bool {
	return m.Role == RoleAdmin || m.Role == RoleTreasurer
}

type Invitation struct {
	ID        int64      `json:"id"`
	GroupID   int64      `json:"group_id"`
	Code      string     `json:"code"`
	Email     *string    `json:"email,omitempty"`
	InvitedBy int64      `json:"invited_by"`
	Status    string     `json:"status"`
	ExpiresAt time.Time  `json:"expires_at"`
	CreatedAt time.Time  `json:"created_at"`
	UsedAt    *time.Time `json:"used_at,omitempty"`
}

type Repository interface {
	Create(ctx context.Context, g *Group, creator *Member) (int64, error)
	GetByID(ctx context.Context, id int64) (*Group, error)
	ListForUser(ctx context.Context, userID int64) ([]Group, error)
	Members(ctx context.Context, groupID int64) ([]Member, error)
	GetMember(ctx context.Context, groupID, userID int64) (*Member, error)
	AddMember(ctx context.Context, m *Member) error
	UpdateMemberRole(ctx context.Context, groupID, userID int64, role string) error
	UpdateMemberStatus(ctx context.Context, groupID, userID int64, status string) error
	CountActiveMembers(ctx context.Context, groupID int64) (int64, error)
	ActiveMemberIDs(ctx context.Context, groupID int64) ([]int64, error)

	CreateInvitation(ctx context.Context, inv *Invitation) error
	GetInvitationByCode(ctx context.Context, code string) (*Invitation, error)
	MarkInvitationUsed(ctx context.Context, id int64, usedAt time.Time) error
}
