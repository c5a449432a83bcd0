package postgres

import (
	"context"
	"database/sql"
	"time"

	"tontine-api/internal/domain/notification"
)

type NotificationRepo struct {
	db *sql.DB
}

func NewNotificationRepo(db *sql.DB) *NotificationRepo {
	return &NotificationRepo{db: db}
}

func (r *NotificationRepo) Create(ctx context.Context, n *notification.Notification) error {
	query := `
        INSERT INTO notifications (user_id, group_id, type, title, body)
        VALUES ($1, $2, $3, $4, $5)
        RETURNING id, created_at
    `
	return r.db.QueryRowContext(ctx, query, n.UserID, n.GroupID, n.Type, n.Title, n.Body).
		Scan(&n.ID, &n.CreatedAt)
}

func (r *NotificationRepo) ListByUser(ctx context.Context, userID int64, unreadOnly bool) ([]notification.Notification, error) {
	query := `
        SELECT id, user_id, group_id, type, title, body, read_at, created_at
        FROM notifications WHERE user_id = $1
    `
	if unreadOnly {
		query += " AND read_at IS NULL"
	}
	query += " ORDER BY created_at DESC LIMIT 100"

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []notification.Notification
	for rows.Next() {
		var n notification.Notification
		if err := rows.Scan(&n.ID, &n.UserID, &n.GroupID, &n.Type, &n.Title, &n.Body, &n.ReadAt, &n.CreatedAt); err != nil {
			return nil, err
		}
		res = append(res, n)
	}
	return res, rows.Err()
}

func (r *NotificationRepo) MarkRead(ctx context.Context, userID, id int64, at time.Time) error {
	res, err := r.db.ExecContext(ctx, `
        UPDATE notifications SET read_at = $1
        WHERE id = $2 AND user_id = $3 AND read_at IS NULL
    `, at, id, userID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return notification.ErrNotFound
	}
	return nil
}
