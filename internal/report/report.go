package report

import (
	"context"
	"time"

	"tontine-api/internal/domain/group"
	"tontine-api/internal/domain/ledger"
)

// GroupReport is a point-in-time financial summary of a group, built
// from the ledger alone.
type GroupReport struct {
	GroupID      int64         `json:"group_id"`
	GroupName    string        `json:"group_name"`
	Currency     string        `json:"currency"`
	Totals       ledger.Totals `json:"totals"`
	Balance      float64       `json:"balance"`
	MemberCount  int64         `json:"member_count"`
	Contributors []MemberShare `json:"contributors"`
	GeneratedAt  time.Time     `json:"generated_at"`
}

type MemberShare struct {
	UserID  int64   `json:"user_id"`
	Total   float64 `json:"total"`
	SharePc float64 `json:"share_percent"`
}

type LedgerSource interface {
	TotalsByGroup(ctx context.Context, groupID int64) (ledger.Totals, error)
	ContributionsByMember(ctx context.Context, groupID int64) ([]ledger.MemberTotal, error)
}

type GroupSource interface {
	Get(ctx context.Context, id int64) (*group.Group, error)
	Membership(ctx context.Context, groupID, userID int64) (*group.Member, error)
	CountActiveMembers(ctx context.Context, groupID int64) (int64, error)
}

type Service struct {
	ledger LedgerSource
	groups GroupSource
	now    func() time.Time
}

func NewService(l LedgerSource, g GroupSource) *Service {
	return &Service{ledger: l, groups: g, now: time.Now}
}

func (s *Service) Summary(ctx context.Context, callerID, groupID int64) (*GroupReport, error) {
	if _, err := s.groups.Membership(ctx, groupID, callerID); err != nil {
		return nil, err
	}
	g, err := s.groups.Get(ctx, groupID)
	if err != nil {
		return nil, group.ErrGroupNotFound
	}

	totals, err := s.ledger.TotalsByGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}
	byMember, err := s.ledger.ContributionsByMember(ctx, groupID)
	if err != nil {
		return nil, err
	}
	memberCount, err := s.groups.CountActiveMembers(ctx, groupID)
	if err != nil {
		return nil, err
	}

	contributors := make([]MemberShare, 0, len(byMember))
	for _, mt := range byMember {
		share := MemberShare{UserID: mt.UserID, Total: mt.Total}
		if totals.Contributions > 0 {
			share.SharePc = mt.Total * 100.0 / totals.Contributions
		}
		contributors = append(contributors, share)
	}

	return &GroupReport{
		GroupID:      g.ID,
		GroupName:    g.Name,
		Currency:     g.Currency,
		Totals:       totals,
		Balance:      totals.Balance(),
		MemberCount:  memberCount,
		Contributors: contributors,
		GeneratedAt:  s.now(),
	}, nil
}
