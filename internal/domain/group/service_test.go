package group

import (
	"context"
	"errors"
	"testing"
	"time"
)

type memoryRepo struct {
	groups      map[int64]*Group
	members     map[int64]map[int64]*Member // groupID -> userID
	invitations map[string]*Invitation
	nextGroupID int64
	nextInvID   int64
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		groups:      make(map[int64]*Group),
		members:     make(map[int64]map[int64]*Member),
		invitations: make(map[string]*Invitation),
		nextGroupID: 1,
		nextInvID:   1,
	}
}

func (r *memoryRepo) Create(ctx context.Context, g *Group, creator *Member) (int64, error) {
	g.ID = r.nextGroupID
	r.nextGroupID++
	g.CreatedAt = time.Now()
	copyGroup := *g
	r.groups[g.ID] = &copyGroup

	creator.GroupID = g.ID
	copyMember := *creator
	r.members[g.ID] = map[int64]*Member{creator.UserID: &copyMember}
	return g.ID, nil
}

func (r *memoryRepo) GetByID(ctx context.Context, id int64) (*Group, error) {
	g, ok := r.groups[id]
	if !ok {
		return nil, ErrGroupNotFound
	}
	copyGroup := *g
	return &copyGroup, nil
}

func (r *memoryRepo) ListForUser(ctx context.Context, userID int64) ([]Group, error) {
	var res []Group
	for gid, byUser := range r.members {
		if m, ok := byUser[userID]; ok && m.Status == MemberActive {
			res = append(res, *r.groups[gid])
		}
	}
	return res, nil
}

func (r *memoryRepo) Members(ctx context.Context, groupID int64) ([]Member, error) {
	var res []Member
	for _, m := range r.members[groupID] {
		res = append(res, *m)
	}
	return res, nil
}

func (r *memoryRepo) GetMember(ctx context.Context, groupID, userID int64) (*Member, error) {
	m, ok := r.members[groupID][userID]
	if !ok {
		return nil, ErrMemberNotFound
	}
	copyMember := *m
	return &copyMember, nil
}

func (r *memoryRepo) AddMember(ctx context.Context, m *Member) error {
	byUser := r.members[m.GroupID]
	if byUser == nil {
		byUser = make(map[int64]*Member)
		r.members[m.GroupID] = byUser
	}
	copyMember := *m
	byUser[m.UserID] = &copyMember
	return nil
}

func (r *memoryRepo) UpdateMemberRole(ctx context.Context, groupID, userID int64, role string) error {
	m, ok := r.members[groupID][userID]
	if !ok {
		return ErrMemberNotFound
	}
	m.Role = role
	return nil
}

func (r *memoryRepo) UpdateMemberStatus(ctx context.Context, groupID, userID int64, status string) error {
	m, ok := r.members[groupID][userID]
	if !ok {
		return ErrMemberNotFound
	}
	m.Status = status
	return nil
}

func (r *memoryRepo) CountActiveMembers(ctx context.Context, groupID int64) (int64, error) {
	var n int64
	for _, m := range r.members[groupID] {
		if m.Status == MemberActive {
			n++
		}
	}
	return n, nil
}

func (r *memoryRepo) ActiveMemberIDs(ctx context.Context, groupID int64) ([]int64, error) {
	var ids []int64
	for _, m := range r.members[groupID] {
		if m.Status == MemberActive {
			ids = append(ids, m.UserID)
		}
	}
	return ids, nil
}

func (r *memoryRepo) CreateInvitation(ctx context.Context, inv *Invitation) error {
	inv.ID = r.nextInvID
	r.nextInvID++
	copyInv := *inv
	r.invitations[inv.Code] = &copyInv
	return nil
}

func (r *memoryRepo) GetInvitationByCode(ctx context.Context, code string) (*Invitation, error) {
	inv, ok := r.invitations[code]
	if !ok {
		return nil, errors.New("not found")
	}
	copyInv := *inv
	return &copyInv, nil
}

func (r *memoryRepo) MarkInvitationUsed(ctx context.Context, id int64, usedAt time.Time) error {
	for _, inv := range r.invitations {
		if inv.ID == id {
			inv.Status = "used"
			inv.UsedAt = &usedAt
			return nil
		}
	}
	return errors.New("not found")
}

func newTestGroup(t *testing.T) (*Service, *memoryRepo, int64) {
	t.Helper()
	repo := newMemoryRepo()
	svc := NewService(repo, 72)
	id, err := svc.Create(context.Background(), &Group{Name: "Road trip"}, 1)
	if err != nil {
		t.Fatalf("create group: %v", err)
	}
	return svc, repo, id
}

func TestCreateGroupDefaultsAndAdmin(t *testing.T) {
	svc, repo, id := newTestGroup(t)

	g, err := svc.Get(context.Background(), id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if g.Currency != "EUR" || g.ProposalPolicy != PolicyAnyMember || g.VoteDurationHours != 72 {
		t.Fatalf("unexpected defaults %+v", g)
	}

	m, err := repo.GetMember(context.Background(), id, 1)
	if err != nil {
		t.Fatalf("creator should be a member: %v", err)
	}
	if m.Role != RoleAdmin || m.Status != MemberActive {
		t.Fatalf("expected creator to be an active admin, got %+v", m)
	}
}

func TestCreateGroupValidation(t *testing.T) {
	svc := NewService(newMemoryRepo(), 72)
	ctx := context.Background()

	if _, err := svc.Create(ctx, &Group{}, 1); !errors.Is(err, ErrNameRequired) {
		t.Fatalf("expected name error, got %v", err)
	}
	if _, err := svc.Create(ctx, &Group{Name: "x", ProposalPolicy: "everyone"}, 1); !errors.Is(err, ErrInvalidPolicy) {
		t.Fatalf("expected policy error, got %v", err)
	}
}

func TestCreateGroupUsesConfiguredVoteHours(t *testing.T) {
	svc := NewService(newMemoryRepo(), 24)

	id, err := svc.Create(context.Background(), &Group{Name: "Short cycle"}, 1)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	g, err := svc.Get(context.Background(), id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if g.VoteDurationHours != 24 {
		t.Fatalf("expected configured default of 24 hours, got %d", g.VoteDurationHours)
	}
}

func TestMembershipGate(t *testing.T) {
	svc, repo, id := newTestGroup(t)
	ctx := context.Background()

	if _, err := svc.Membership(ctx, id, 1); err != nil {
		t.Fatalf("active admin should pass: %v", err)
	}
	if _, err := svc.Membership(ctx, id, 42); !errors.Is(err, ErrNotMember) {
		t.Fatalf("expected not-member for stranger, got %v", err)
	}

	repo.AddMember(ctx, &Member{GroupID: id, UserID: 2, Role: RoleMember, Status: MemberSuspended})
	if _, err := svc.Membership(ctx, id, 2); !errors.Is(err, ErrNotMember) {
		t.Fatalf("expected not-member for suspended member, got %v", err)
	}

	repo.AddMember(ctx, &Member{GroupID: id, UserID: 3, Role: RoleMember, Status: MemberLeft})
	if _, err := svc.Membership(ctx, id, 3); !errors.Is(err, ErrNotMember) {
		t.Fatalf("expected not-member for departed member, got %v", err)
	}
}

func TestInviteRequiresOfficer(t *testing.T) {
	svc, repo, id := newTestGroup(t)
	ctx := context.Background()
	repo.AddMember(ctx, &Member{GroupID: id, UserID: 2, Role: RoleMember, Status: MemberActive})

	if _, err := svc.Invite(ctx, 2, id, nil, 0); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected forbidden for plain member, got %v", err)
	}

	inv, err := svc.Invite(ctx, 1, id, nil, 0)
	if err != nil {
		t.Fatalf("invite: %v", err)
	}
	if inv.Code == "" || !inv.ExpiresAt.After(time.Now().Add(6*24*time.Hour)) {
		t.Fatalf("expected a code with the default one-week expiry, got %+v", inv)
	}
}

func TestAcceptInvitation(t *testing.T) {
	svc, repo, id := newTestGroup(t)
	ctx := context.Background()

	inv, err := svc.Invite(ctx, 1, id, nil, 0)
	if err != nil {
		t.Fatalf("invite: %v", err)
	}

	g, err := svc.AcceptInvitation(ctx, 2, inv.Code)
	if err != nil {
		t.Fatalf("accept: %v", err)
	}
	if g.ID != id {
		t.Fatalf("expected the invited group, got %d", g.ID)
	}
	m, err := repo.GetMember(ctx, id, 2)
	if err != nil || m.Role != RoleMember || m.Status != MemberActive {
		t.Fatalf("expected an active plain member, got %+v (%v)", m, err)
	}

	// Single use.
	if _, err := svc.AcceptInvitation(ctx, 3, inv.Code); !errors.Is(err, ErrInvitationInvalid) {
		t.Fatalf("expected used invitation to be rejected, got %v", err)
	}
}

func TestAcceptInvitationExpired(t *testing.T) {
	svc, _, id := newTestGroup(t)
	ctx := context.Background()

	inv, err := svc.Invite(ctx, 1, id, nil, time.Hour)
	if err != nil {
		t.Fatalf("invite: %v", err)
	}

	svc.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	if _, err := svc.AcceptInvitation(ctx, 2, inv.Code); !errors.Is(err, ErrInvitationExpired) {
		t.Fatalf("expected expired invitation, got %v", err)
	}
}

func TestAcceptInvitationRejoin(t *testing.T) {
	svc, repo, id := newTestGroup(t)
	ctx := context.Background()

	inv, _ := svc.Invite(ctx, 1, id, nil, 0)
	if _, err := svc.AcceptInvitation(ctx, 2, inv.Code); err != nil {
		t.Fatalf("accept: %v", err)
	}
	if err := svc.Leave(ctx, 2, id); err != nil {
		t.Fatalf("leave: %v", err)
	}

	inv2, _ := svc.Invite(ctx, 1, id, nil, 0)
	if _, err := svc.AcceptInvitation(ctx, 2, inv2.Code); err != nil {
		t.Fatalf("rejoin: %v", err)
	}
	m, _ := repo.GetMember(ctx, id, 2)
	if m.Status != MemberActive {
		t.Fatalf("expected member active after rejoin, got %s", m.Status)
	}

	// Joining while already active is rejected.
	inv3, _ := svc.Invite(ctx, 1, id, nil, 0)
	if _, err := svc.AcceptInvitation(ctx, 2, inv3.Code); !errors.Is(err, ErrAlreadyMember) {
		t.Fatalf("expected already-member, got %v", err)
	}
}

func TestUpdateMemberRole(t *testing.T) {
	svc, repo, id := newTestGroup(t)
	ctx := context.Background()
	repo.AddMember(ctx, &Member{GroupID: id, UserID: 2, Role: RoleMember, Status: MemberActive})
	repo.AddMember(ctx, &Member{GroupID: id, UserID: 3, Role: RoleMember, Status: MemberActive})

	if err := svc.UpdateMemberRole(ctx, 2, id, 3, RoleTreasurer); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected forbidden for non-admin, got %v", err)
	}
	if err := svc.UpdateMemberRole(ctx, 1, id, 2, "owner"); !errors.Is(err, ErrInvalidRole) {
		t.Fatalf("expected invalid role, got %v", err)
	}
	if err := svc.UpdateMemberRole(ctx, 1, id, 99, RoleTreasurer); !errors.Is(err, ErrMemberNotFound) {
		t.Fatalf("expected member not found, got %v", err)
	}

	if err := svc.UpdateMemberRole(ctx, 1, id, 2, RoleTreasurer); err != nil {
		t.Fatalf("promote: %v", err)
	}
	m, _ := repo.GetMember(ctx, id, 2)
	if m.Role != RoleTreasurer {
		t.Fatalf("expected treasurer, got %s", m.Role)
	}
}

func TestSuspendAndLeave(t *testing.T) {
	svc, repo, id := newTestGroup(t)
	ctx := context.Background()
	repo.AddMember(ctx, &Member{GroupID: id, UserID: 2, Role: RoleMember, Status: MemberActive})

	if err := svc.UpdateMemberStatus(ctx, 1, id, 2, MemberSuspended); err != nil {
		t.Fatalf("suspend: %v", err)
	}
	n, _ := svc.CountActiveMembers(ctx, id)
	if n != 1 {
		t.Fatalf("expected suspended member excluded from the active count, got %d", n)
	}

	if err := svc.UpdateMemberStatus(ctx, 1, id, 2, MemberLeft); !errors.Is(err, ErrInvalidStatus) {
		t.Fatalf("expected invalid status for direct left transition, got %v", err)
	}

	if err := svc.UpdateMemberStatus(ctx, 1, id, 2, MemberActive); err != nil {
		t.Fatalf("reinstate: %v", err)
	}
	if err := svc.Leave(ctx, 2, id); err != nil {
		t.Fatalf("leave: %v", err)
	}
	m, _ := repo.GetMember(ctx, id, 2)
	if m.Status != MemberLeft {
		t.Fatalf("expected left, got %s", m.Status)
	}
}
