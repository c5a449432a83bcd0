package worker

import (
	"context"
	"log/slog"
	"time"

	"tontine-api/internal/domain/notification"
	"tontine-api/internal/metrics"
	"tontine-api/internal/retry"
)

// Event is a group happening worth telling members about. Handlers push
// events non-blocking; a full buffer drops the event rather than stalling
// the request.
type Event struct {
	Type       string
	GroupID    int64
	ActorID    int64
	DecisionID int64
	Title      string
	Body       string
	// ExcludeUserIDs are skipped during fan-out (usually the actor).
	ExcludeUserIDs []int64
}

type MemberSource interface {
	ActiveMemberIDs(ctx context.Context, groupID int64) ([]int64, error)
}

type Store interface {
	Create(ctx context.Context, n *notification.Notification) error
}

// Dispatcher fans events out to group members as persisted notification
// records. Delivery is best effort: failures are logged and never
// propagate back to the operation that raised the event.
type Dispatcher struct {
	Ch      <-chan Event
	members MemberSource
	store   Store
	log     *slog.Logger
}

func NewDispatcher(ch <-chan Event, members MemberSource, store Store, log *slog.Logger) *Dispatcher {
	if log == nil {
		log = slog.Default()
	}
	return &Dispatcher{Ch: ch, members: members, store: store, log: log}
}

func (d *Dispatcher) Run(ctx context.Context) {
	d.log.Info("notification dispatcher started")
	for {
		select {
		case <-ctx.Done():
			d.log.Info("notification dispatcher stopped")
			return
		case ev := <-d.Ch:
			d.dispatch(ctx, ev)
		}
	}
}

func (d *Dispatcher) dispatch(ctx context.Context, ev Event) {
	ids, err := d.members.ActiveMemberIDs(ctx, ev.GroupID)
	if err != nil {
		d.log.Error("dispatcher: load members failed", "group_id", ev.GroupID, "err", err)
		return
	}

	excluded := make(map[int64]bool, len(ev.ExcludeUserIDs))
	for _, id := range ev.ExcludeUserIDs {
		excluded[id] = true
	}

	for _, userID := range ids {
		if excluded[userID] {
			continue
		}
		n := &notification.Notification{
			UserID:  userID,
			GroupID: ev.GroupID,
			Type:    ev.Type,
			Title:   ev.Title,
			Body:    ev.Body,
		}
		err := retry.DoWithRetry(ctx, 3, 100*time.Millisecond, func() error {
			return d.store.Create(ctx, n)
		})
		if err != nil {
			d.log.Error("dispatcher: persist failed",
				"group_id", ev.GroupID, "user_id", userID, "type", ev.Type, "err", err)
			continue
		}
		metrics.IncNotificationDispatched()
	}
}
