package postgres

import (
	"context"
	"database/sql"

	"tontine-api/internal/domain/ledger"
)

type LedgerRepo struct {
	db *sql.DB
}

func NewLedgerRepo(db *sql.DB) *LedgerRepo {
	return &LedgerRepo{db: db}
}

func (r *LedgerRepo) Create(ctx context.Context, t *ledger.Transaction) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := `
        INSERT INTO transactions (group_id, user_id, type, amount, currency,
                                  category, description, decision_id)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
        RETURNING id, created_at
    `
	err = tx.QueryRowContext(ctx, query,
		t.GroupID, t.UserID, t.Type, t.Amount, t.Currency,
		t.Category, t.Description, t.DecisionID,
	).Scan(&t.ID, &t.CreatedAt)
	if err != nil {
		return err
	}

	if t.Type == ledger.TypeContribution {
		_, err = tx.ExecContext(ctx, `
            UPDATE group_members
            SET total_contributed = total_contributed + $1
            WHERE group_id = $2 AND user_id = $3
        `, t.Amount, t.GroupID, t.UserID)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (r *LedgerRepo) ListByGroup(ctx context.Context, groupID int64, txType *string) ([]ledger.Transaction, error) {
	query := `
        SELECT id, group_id, user_id, type, amount, currency, category, description, decision_id, created_at
        FROM transactions WHERE group_id = $1
    `
	var rows *sql.Rows
	var err error

	if txType != nil {
		query += " AND type = $2 ORDER BY created_at DESC"
		rows, err = r.db.QueryContext(ctx, query, groupID, *txType)
	} else {
		query += " ORDER BY created_at DESC"
		rows, err = r.db.QueryContext(ctx, query, groupID)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []ledger.Transaction
	for rows.Next() {
		var t ledger.Transaction
		if err := rows.Scan(&t.ID, &t.GroupID, &t.UserID, &t.Type, &t.Amount, &t.Currency,
			&t.Category, &t.Description, &t.DecisionID, &t.CreatedAt); err != nil {
			return nil, err
		}
		res = append(res, t)
	}
	return res, rows.Err()
}

func (r *LedgerRepo) TotalsByGroup(ctx context.Context, groupID int64) (ledger.Totals, error) {
	rows, err := r.db.QueryContext(ctx, `
        SELECT type, COALESCE(SUM(amount), 0)
        FROM transactions WHERE group_id = $1 GROUP BY type
    `, groupID)
	if err != nil {
		return ledger.Totals{}, err
	}
	defer rows.Close()

	var totals ledger.Totals
	for rows.Next() {
		var txType string
		var sum float64
		if err := rows.Scan(&txType, &sum); err != nil {
			return ledger.Totals{}, err
		}
		switch txType {
		case ledger.TypeContribution:
			totals.Contributions = sum
		case ledger.TypeExpense:
			totals.Expenses = sum
		case ledger.TypePayout:
			totals.Payouts = sum
		}
	}
	return totals, rows.Err()
}

func (r *LedgerRepo) ContributionsByMember(ctx context.Context, groupID int64) ([]ledger.MemberTotal, error) {
	rows, err := r.db.QueryContext(ctx, `
        SELECT user_id, COALESCE(SUM(amount), 0)
        FROM transactions
        WHERE group_id = $1 AND type = 'contribution'
        GROUP BY user_id
        ORDER BY 2 DESC
    `, groupID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []ledger.MemberTotal
	for rows.Next() {
		var mt ledger.MemberTotal
		if err := rows.Scan(&mt.UserID, &mt.Total); err != nil {
			return nil, err
		}
		res = append(res, mt)
	}
	return res, rows.Err()
}
