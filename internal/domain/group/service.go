package group

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrGroupNotFound     = errors.New("group not found")
	ErrNameRequired      = errors.New("group name is required")
	ErrInvalidPolicy     = errors.New("proposal policy must be any_member or officers")
	ErrNotMember         = errors.New("user is not an active member of the group")
	ErrMemberNotFound    = errors.New("member not found")
	ErrForbidden         = errors.New("insufficient group role")
	ErrAlreadyMember     = errors.New("user is already a member")
	ErrInvitationInvalid = errors.New("invitation is invalid or already used")
	ErrInvitationExpired = errors.New("invitation has expired")
	ErrInvalidRole       = errors.New("invalid member role")
	ErrInvalidStatus     = errors.New("invalid member status")
)

type Service struct {
	repo             Repository
	defaultVoteHours int
	now              func() time.Time
}

func NewService(repo Repository, defaultVoteHours int) *Service {
	if defaultVoteHours <= 0 {
		defaultVoteHours = 72
	}
	return &Service{repo: repo, defaultVoteHours: defaultVoteHours, now: time.Now}
}

func (s *Service) Create(ctx context.Context, g *Group, creatorID int64) (int64, error) {
	if g.Name == "" {
		return 0, ErrNameRequired
	}
	if g.Currency == "" {
		g.Currency = "EUR"
	}
	if g.ProposalPolicy == "" {
		g.ProposalPolicy = PolicyAnyMember
	}
	if g.ProposalPolicy != PolicyAnyMember && g.ProposalPolicy != PolicyOfficers {
		return 0, ErrInvalidPolicy
	}
	if g.VoteDurationHours <= 0 {
		g.VoteDurationHours = s.defaultVoteHours
	}
	g.Status = "active"
	g.CreatorID = creatorID

	creator := &Member{
		UserID: creatorID,
		Role:   RoleAdmin,
		Status: MemberActive,
	}
	return s.repo.Create(ctx, g, creator)
}

func (s *Service) Get(ctx context.Context, id int64) (*Group, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) ListForUser(ctx context.Context, userID int64) ([]Group, error) {
	return s.repo.ListForUser(ctx, userID)
}

// Membership is the gate every other component calls before touching a
// group. It returns the member record only for active members.
func (s *Service) Membership(ctx context.Context, groupID, userID int64) (*Member, error) {
	m, err := s.repo.GetMember(ctx, groupID, userID)
	if err != nil {
		return nil, ErrNotMember
	}
	if m.Status != MemberActive {
		return nil, ErrNotMember
	}
	return m, nil
}

func (s *Service) CountActiveMembers(ctx context.Context, groupID int64) (int64, error) {
	return s.repo.CountActiveMembers(ctx, groupID)
}

func (s *Service) Members(ctx context.Context, callerID, groupID int64) ([]Member, error) {
	if _, err := s.Membership(ctx, groupID, callerID); err != nil {
		return nil, err
	}
	return s.repo.Members(ctx, groupID)
}

func (s *Service) Invite(ctx context.Context, callerID, groupID int64, email *string, ttl time.Duration) (*Invitation, error) {
	m, err := s.Membership(ctx, groupID, callerID)
	if err != nil {
		return nil, err
	}
	if !m.IsOfficer() {
		return nil, ErrForbidden
	}
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}

	inv := &Invitation{
		GroupID:   groupID,
		Code:      uuid.NewString(),
		Email:     email,
		InvitedBy: callerID,
		Status:    "pending",
		ExpiresAt: s.now().Add(ttl),
	}
	if err := s.repo.CreateInvitation(ctx, inv); err != nil {
		return nil, err
	}
	return inv, nil
}

func (s *Service) AcceptInvitation(ctx context.Context, userID int64, code string) (*Group, error) {
	inv, err := s.repo.GetInvitationByCode(ctx, code)
	if err != nil {
		return nil, ErrInvitationInvalid
	}
	if inv.Status != "pending" {
		return nil, ErrInvitationInvalid
	}
	if s.now().After(inv.ExpiresAt) {
		return nil, ErrInvitationExpired
	}
	if existing, err := s.repo.GetMember(ctx, inv.GroupID, userID); err == nil && existing.Status == MemberActive {
		return nil, ErrAlreadyMember
	}

	m := &Member{
		GroupID: inv.GroupID,
		UserID:  userID,
		Role:    RoleMember,
		Status:  MemberActive,
	}
	if err := s.repo.AddMember(ctx, m); err != nil {
		return nil, err
	}
	if err := s.repo.MarkInvitationUsed(ctx, inv.ID, s.now()); err != nil {
		return nil, err
	}
	return s.repo.GetByID(ctx, inv.GroupID)
}

func (s *Service) UpdateMemberRole(ctx context.Context, callerID, groupID, userID int64, role string) error {
	caller, err := s.Membership(ctx, groupID, callerID)
	if err != nil {
		return err
	}
	if caller.Role != RoleAdmin {
		return ErrForbidden
	}
	if role != RoleAdmin && role != RoleTreasurer && role != RoleMember {
		return ErrInvalidRole
	}
	if _, err := s.repo.GetMember(ctx, groupID, userID); err != nil {
		return ErrMemberNotFound
	}
	return s.repo.UpdateMemberRole(ctx, groupID, userID, role)
}

func (s *Service) UpdateMemberStatus(ctx context.Context, callerID, groupID, userID int64, status string) error {
	caller, err := s.Membership(ctx, groupID, callerID)
	if err != nil {
		return err
	}
	if caller.Role != RoleAdmin {
		return ErrForbidden
	}
	if status != MemberActive && status != MemberSuspended {
		return ErrInvalidStatus
	}
	if _, err := s.repo.GetMember(ctx, groupID, userID); err != nil {
		return ErrMemberNotFound
	}
	return s.repo.UpdateMemberStatus(ctx, groupID, userID, status)
}

func (s *Service) Leave(ctx context.Context, userID, groupID int64) error {
	if _, err := s.Membership(ctx, groupID, userID); err != nil {
		return err
	}
	return s.repo.UpdateMemberStatus(ctx, groupID, userID, MemberLeft)
}
