package ledger

import (
	"context"
	"errors"

	"tontine-api/internal/domain/group"
)

var (
	ErrInvalidType   = errors.New("invalid transaction type")
	ErrInvalidAmount = errors.New("amount must be positive")
	ErrNotOwnEntry   = errors.New("members may only record their own contributions")
	ErrOfficerOnly   = errors.New("expenses and payouts require an admin or treasurer")
)

type MembershipGate interface {
	Membership(ctx context.Context, groupID, userID int64) (*group.Member, error)
}

type Service struct {
	repo Repository
	gate MembershipGate
}

func NewService(repo Repository, gate MembershipGate) *Service {
	return &Service{repo: repo, gate: gate}
}

// Record writes a ledger entry. Plain members may record their own
// contributions; expenses and payouts need an officer.
func (s *Service) Record(ctx context.Context, callerID int64, t *Transaction) error {
	m, err := s.gate.Membership(ctx, t.GroupID, callerID)
	if err != nil {
		return err
	}
	if t.Amount <= 0 {
		return ErrInvalidAmount
	}

	switch t.Type {
	case TypeContribution:
		if t.UserID == 0 {
			t.UserID = callerID
		}
		if t.UserID != callerID && !m.IsOfficer() {
			return ErrNotOwnEntry
		}
	case TypeExpense, TypePayout:
		if !m.IsOfficer() {
			return ErrOfficerOnly
		}
		if t.UserID == 0 {
			t.UserID = callerID
		}
	default:
		return ErrInvalidType
	}

	return s.repo.Create(ctx, t)
}

func (s *Service) ListByGroup(ctx context.Context, callerID, groupID int64, txType *string) ([]Transaction, error) {
	if _, err := s.gate.Membership(ctx, groupID, callerID); err != nil {
		return nil, err
	}
	if txType != nil {
		switch *txType {
		case TypeContribution, TypeExpense, TypePayout:
		default:
			return nil, ErrInvalidType
		}
	}
	return s.repo.ListByGroup(ctx, groupID, txType)
}

// RecordExecution writes the expense realizing an approved monetary
// decision. Called by the decision engine, which has already gated the
// caller, so no membership check happens here.
func (s *Service) RecordExecution(ctx context.Context, groupID, actorID, decisionID int64, amount float64, currency, category, description string) (int64, error) {
	t := &Transaction{
		GroupID:     groupID,
		UserID:      actorID,
		Type:        TypeExpense,
		Amount:      amount,
		Currency:    currency,
		Category:    category,
		Description: description,
		DecisionID:  &decisionID,
	}
	if err := s.repo.Create(ctx, t); err != nil {
		return 0, err
	}
	return t.ID, nil
}

func (s *Service) TotalsByGroup(ctx context.Context, groupID int64) (Totals, error) {
	return s.repo.TotalsByGroup(ctx, groupID)
}

func (s *Service) ContributionsByMember(ctx context.Context, groupID int64) ([]MemberTotal, error) {
	return s.repo.ContributionsByMember(ctx, groupID)
}
