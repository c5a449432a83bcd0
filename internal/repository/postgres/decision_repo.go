package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"tontine-api/internal/domain/decision"
)

type DecisionRepo struct {
	db *sql.DB
}

func NewDecisionRepo(db *sql.DB) *DecisionRepo {
	return &DecisionRepo{db: db}
}

const decisionColumns = `
        id, group_id, creator_id, kind, title, description, category, amount, currency,
        allow_change_vote, anonymous_voting, show_interim_results,
        quorum_percent, approval_percent, status, starts_at, ends_at, version,
        executed_at, transaction_id, result, created_at, updated_at
`

func (r *DecisionRepo) Create(ctx context.Context, d *decision.Decision, options []decision.Option) (int64, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	queryDecision := `
        INSERT INTO decisions (group_id, creator_id, kind, title, description, category,
                               amount, currency, allow_change_vote, anonymous_voting,
                               show_interim_results, quorum_percent, approval_percent,
                               status, starts_at, ends_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
        RETURNING id, version, created_at, updated_at
    `
	err = tx.QueryRowContext(ctx, queryDecision,
		d.GroupID, d.CreatorID, d.Kind, d.Title, d.Description, d.Category,
		d.Amount, d.Currency, d.AllowChangeVote, d.AnonymousVoting,
		d.ShowInterimResults, d.QuorumPercent, d.ApprovalPercent,
		d.Status, d.StartsAt, d.EndsAt,
	).Scan(&d.ID, &d.Version, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return 0, err
	}

	queryOpt := `
        INSERT INTO decision_options (decision_id, key, label, position)
        VALUES ($1, $2, $3, $4)
        RETURNING id
    `
	for i := range options {
		options[i].DecisionID = d.ID
		if err := tx.QueryRowContext(ctx, queryOpt,
			options[i].DecisionID, options[i].Key, options[i].Label, options[i].Position,
		).Scan(&options[i].ID); err != nil {
			return 0, err
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}

	d.Options = options
	return d.ID, nil
}

func (r *DecisionRepo) GetByID(ctx context.Context, id int64) (*decision.Decision, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+decisionColumns+` FROM decisions WHERE id = $1`, id)
	d, err := scanDecision(row)
	if err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, `
        SELECT id, decision_id, key, label, position
        FROM decision_options WHERE decision_id = $1 ORDER BY position
    `, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var o decision.Option
		if err := rows.Scan(&o.ID, &o.DecisionID, &o.Key, &o.Label, &o.Position); err != nil {
			return nil, err
		}
		d.Options = append(d.Options, o)
	}
	return d, rows.Err()
}

func (r *DecisionRepo) ListByGroup(ctx context.Context, groupID int64) ([]decision.Decision, error) {
	rows, err := r.db.QueryContext(ctx, `
        SELECT `+decisionColumns+`
        FROM decisions WHERE group_id = $1 ORDER BY created_at DESC
    `, groupID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []decision.Decision
	for rows.Next() {
		d, err := scanDecision(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, *d)
	}
	return res, rows.Err()
}

func (r *DecisionRepo) Ballots(ctx context.Context, decisionID int64) ([]decision.Ballot, error) {
	rows, err := r.db.QueryContext(ctx, `
        SELECT id, decision_id, option_id, voter_id, comment, cast_at
        FROM ballots WHERE decision_id = $1 ORDER BY cast_at
    `, decisionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []decision.Ballot
	for rows.Next() {
		var b decision.Ballot
		if err := rows.Scan(&b.ID, &b.DecisionID, &b.OptionID, &b.VoterID, &b.Comment, &b.CastAt); err != nil {
			return nil, err
		}
		res = append(res, b)
	}
	return res, rows.Err()
}

func (r *DecisionRepo) CountBallots(ctx context.Context, decisionID int64) (int64, error) {
	var n int64
	err := r.db.QueryRowContext(ctx, `
        SELECT COUNT(*) FROM ballots WHERE decision_id = $1
    `, decisionID).Scan(&n)
	return n, err
}

// CastBallot is the atomic push-or-replace-by-voter primitive. The
// UNIQUE (decision_id, voter_id) index makes a concurrent double cast by
// the same voter resolve to one row; when replace is false, a conflict
// affects zero rows and maps to ErrAlreadyVoted.
func (r *DecisionRepo) CastBallot(ctx context.Context, b *decision.Ballot, replace bool) error {
	var query string
	if replace {
		query = `
            INSERT INTO ballots (decision_id, option_id, voter_id, comment, cast_at)
            VALUES ($1, $2, $3, $4, $5)
            ON CONFLICT (decision_id, voter_id) DO UPDATE
            SET option_id = EXCLUDED.option_id,
                comment   = EXCLUDED.comment,
                cast_at   = EXCLUDED.cast_at
            RETURNING id
        `
	} else {
		query = `
            INSERT INTO ballots (decision_id, option_id, voter_id, comment, cast_at)
            VALUES ($1, $2, $3, $4, $5)
            ON CONFLICT (decision_id, voter_id) DO NOTHING
            RETURNING id
        `
	}

	err := r.db.QueryRowContext(ctx, query,
		b.DecisionID, b.OptionID, b.VoterID, b.Comment, b.CastAt,
	).Scan(&b.ID)
	if err == sql.ErrNoRows {
		return decision.ErrAlreadyVoted
	}
	return err
}

func (r *DecisionRepo) CloseWithResult(ctx context.Context, id, version int64, status decision.Status, res *decision.Result) error {
	payload, err := json.Marshal(res)
	if err != nil {
		return err
	}

	out, err := r.db.ExecContext(ctx, `
        UPDATE decisions
        SET status = $1, result = $2, version = version + 1, updated_at = now()
        WHERE id = $3 AND version = $4
    `, status, payload, id, version)
	if err != nil {
		return err
	}
	return requireOneRow(out)
}

func (r *DecisionRepo) MarkExecuted(ctx context.Context, id, version int64, executedAt time.Time, transactionID *int64) error {
	out, err := r.db.ExecContext(ctx, `
        UPDATE decisions
        SET status = 'executed', executed_at = $1, transaction_id = $2,
            version = version + 1, updated_at = now()
        WHERE id = $3 AND version = $4 AND executed_at IS NULL
    `, executedAt, transactionID, id, version)
	if err != nil {
		return err
	}
	return requireOneRow(out)
}

func (r *DecisionRepo) Delete(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM decisions WHERE id = $1`, id)
	return err
}

func requireOneRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return decision.ErrVersionConflict
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDecision(row rowScanner) (*decision.Decision, error) {
	d := &decision.Decision{}
	var result []byte
	err := row.Scan(
		&d.ID, &d.GroupID, &d.CreatorID, &d.Kind, &d.Title, &d.Description, &d.Category,
		&d.Amount, &d.Currency, &d.AllowChangeVote, &d.AnonymousVoting, &d.ShowInterimResults,
		&d.QuorumPercent, &d.ApprovalPercent, &d.Status, &d.StartsAt, &d.EndsAt, &d.Version,
		&d.ExecutedAt, &d.TransactionID, &result, &d.CreatedAt, &d.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if len(result) > 0 {
		var res decision.Result
		if err := json.Unmarshal(result, &res); err != nil {
			return nil, err
		}
		d.Result = &res
	}
	return d, nil
}
