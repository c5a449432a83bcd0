package notification

import (
	"context"
	"time"
)

const (
	TypeDecisionCreated  = "decision_created"
	TypeDecisionClosed   = "decision_closed"
	TypeDecisionExecuted = "decision_executed"
	TypeMemberJoined     = "member_joined"
	TypeTransaction      = "transaction_recorded"
)

type Notification struct {
	ID        int64      `json:"id"`
	UserID    int64      `json:"user_id"`
	GroupID   int64      `json:"group_id"`
	Type      string     `json:"type"`
	Title     string     `json:"title"`
	Body      string     `json:"body,omitempty"`
	ReadAt    *time.Time `json:"read_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

type Repository interface {
	Create(ctx context.Context, n *Notification) error
	ListByUser(ctx context.Context, userID int64, unreadOnly bool) ([]Notification, error)
	MarkRead(ctx context.Context, userID, id int64, at time.Time) error
}
