package ledger

import (
	"context"
	"errors"
	"testing"
	"time"

	"tontine-api/internal/domain/group"
)

type memoryRepo struct {
	transactions []Transaction
	nextID       int64
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{nextID: 1}
}

func (r *memoryRepo) Create(ctx context.Context, t *Transaction) error {
	t.ID = r.nextID
	r.nextID++
	t.CreatedAt = time.Now()
	r.transactions = append(r.transactions, *t)
	return nil
}

func (r *memoryRepo) ListByGroup(ctx context.Context, groupID int64, txType *string) ([]Transaction, error) {
	var res []Transaction
	for _, t := range r.transactions {
		if t.GroupID != groupID {
			continue
		}
		if txType != nil && t.Type != *txType {
			continue
		}
		res = append(res, t)
	}
	return res, nil
}

func (r *memoryRepo) TotalsByGroup(ctx context.Context, groupID int64) (Totals, error) {
	var totals Totals
	for _, t := range r.transactions {
		if t.GroupID != groupID {
			continue
		}
		switch t.Type {
		case TypeContribution:
			totals.Contributions += t.Amount
		case TypeExpense:
			totals.Expenses += t.Amount
		case TypePayout:
			totals.Payouts += t.Amount
		}
	}
	return totals, nil
}

func (r *memoryRepo) ContributionsByMember(ctx context.Context, groupID int64) ([]MemberTotal, error) {
	byUser := make(map[int64]float64)
	for _, t := range r.transactions {
		if t.GroupID == groupID && t.Type == TypeContribution {
			byUser[t.UserID] += t.Amount
		}
	}
	var res []MemberTotal
	for id, total := range byUser {
		res = append(res, MemberTotal{UserID: id, Total: total})
	}
	return res, nil
}

type fakeGate struct {
	roles map[int64]string // userID -> role in group 1
}

func (g *fakeGate) Membership(ctx context.Context, groupID, userID int64) (*group.Member, error) {
	role, ok := g.roles[userID]
	if !ok {
		return nil, group.ErrNotMember
	}
	return &group.Member{GroupID: groupID, UserID: userID, Role: role, Status: group.MemberActive}, nil
}

func newTestLedger() (*Service, *memoryRepo) {
	repo := newMemoryRepo()
	gate := &fakeGate{roles: map[int64]string{
		1: group.RoleAdmin,
		2: group.RoleTreasurer,
		3: group.RoleMember,
	}}
	return NewService(repo, gate), repo
}

func TestRecordContribution(t *testing.T) {
	svc, repo := newTestLedger()
	ctx := context.Background()

	tx := &Transaction{GroupID: 1, Type: TypeContribution, Amount: 50, Currency: "EUR"}
	if err := svc.Record(ctx, 3, tx); err != nil {
		t.Fatalf("record: %v", err)
	}
	if tx.UserID != 3 {
		t.Fatalf("expected contribution attributed to the caller, got %d", tx.UserID)
	}
	if len(repo.transactions) != 1 {
		t.Fatalf("expected one stored transaction")
	}
}

func TestRecordContributionForOthers(t *testing.T) {
	svc, _ := newTestLedger()
	ctx := context.Background()

	// A plain member cannot book someone else's contribution.
	err := svc.Record(ctx, 3, &Transaction{GroupID: 1, UserID: 2, Type: TypeContribution, Amount: 50})
	if !errors.Is(err, ErrNotOwnEntry) {
		t.Fatalf("expected own-entry error, got %v", err)
	}

	// A treasurer can.
	if err := svc.Record(ctx, 2, &Transaction{GroupID: 1, UserID: 3, Type: TypeContribution, Amount: 50}); err != nil {
		t.Fatalf("treasurer booking for member: %v", err)
	}
}

func TestExpenseRequiresOfficer(t *testing.T) {
	svc, _ := newTestLedger()
	ctx := context.Background()

	err := svc.Record(ctx, 3, &Transaction{GroupID: 1, Type: TypeExpense, Amount: 20})
	if !errors.Is(err, ErrOfficerOnly) {
		t.Fatalf("expected officer-only error, got %v", err)
	}
	if err := svc.Record(ctx, 2, &Transaction{GroupID: 1, Type: TypeExpense, Amount: 20}); err != nil {
		t.Fatalf("treasurer expense: %v", err)
	}
}

func TestRecordValidation(t *testing.T) {
	svc, _ := newTestLedger()
	ctx := context.Background()

	if err := svc.Record(ctx, 3, &Transaction{GroupID: 1, Type: TypeContribution, Amount: 0}); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected invalid amount, got %v", err)
	}
	if err := svc.Record(ctx, 3, &Transaction{GroupID: 1, Type: "refund", Amount: 10}); !errors.Is(err, ErrInvalidType) {
		t.Fatalf("expected invalid type, got %v", err)
	}
	if err := svc.Record(ctx, 42, &Transaction{GroupID: 1, Type: TypeContribution, Amount: 10}); !errors.Is(err, group.ErrNotMember) {
		t.Fatalf("expected not-member for stranger, got %v", err)
	}
}

func TestListByGroupTypeFilter(t *testing.T) {
	svc, _ := newTestLedger()
	ctx := context.Background()

	svc.Record(ctx, 3, &Transaction{GroupID: 1, Type: TypeContribution, Amount: 50})
	svc.Record(ctx, 1, &Transaction{GroupID: 1, Type: TypeExpense, Amount: 20})

	filter := TypeExpense
	txs, err := svc.ListByGroup(ctx, 3, 1, &filter)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(txs) != 1 || txs[0].Type != TypeExpense {
		t.Fatalf("expected only the expense, got %+v", txs)
	}

	bad := "refund"
	if _, err := svc.ListByGroup(ctx, 3, 1, &bad); !errors.Is(err, ErrInvalidType) {
		t.Fatalf("expected invalid type filter, got %v", err)
	}
}

func TestRecordExecutionLinksDecision(t *testing.T) {
	svc, repo := newTestLedger()
	ctx := context.Background()

	id, err := svc.RecordExecution(ctx, 1, 2, 7, 250, "EUR", "equipment", "Buy shared equipment")
	if err != nil {
		t.Fatalf("record execution: %v", err)
	}
	if id == 0 {
		t.Fatalf("expected a transaction id")
	}

	tx := repo.transactions[0]
	if tx.Type != TypeExpense || tx.DecisionID == nil || *tx.DecisionID != 7 {
		t.Fatalf("expected an expense linked to the decision, got %+v", tx)
	}
}

func TestTotalsBalance(t *testing.T) {
	svc, _ := newTestLedger()
	ctx := context.Background()

	svc.Record(ctx, 3, &Transaction{GroupID: 1, Type: TypeContribution, Amount: 100})
	svc.Record(ctx, 1, &Transaction{GroupID: 1, UserID: 1, Type: TypeContribution, Amount: 50})
	svc.Record(ctx, 1, &Transaction{GroupID: 1, Type: TypeExpense, Amount: 30})
	svc.Record(ctx, 2, &Transaction{GroupID: 1, Type: TypePayout, Amount: 20})

	totals, err := svc.TotalsByGroup(ctx, 1)
	if err != nil {
		t.Fatalf("totals: %v", err)
	}
	if totals.Contributions != 150 || totals.Expenses != 30 || totals.Payouts != 20 {
		t.Fatalf("unexpected totals %+v", totals)
	}
	if totals.Balance() != 100 {
		t.Fatalf("expected balance 100, got %v", totals.Balance())
	}
}
