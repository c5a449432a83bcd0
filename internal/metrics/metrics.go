package metrics

import (
	"strconv"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal  *prometheus.CounterVec
	ballotsCastTotal   prometheus.Counter
	decisionsDecided   *prometheus.CounterVec
	notificationsTotal prometheus.Counter
	registerOnce       sync.Once
)

// Register initializes Prometheus metrics on the default registry.
func Register() {
	registerOnce.Do(func() {
		httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tontine",
			Name:      "http_requests_total",
			Help:      "Total HTTP requests processed by the tontine API.",
		}, []string{"method", "path", "status"})
		ballotsCastTotal = promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "tontine",
			Name:      "ballots_cast_total",
			Help:      "Total ballots accepted by the decision engine.",
		})
		decisionsDecided = promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tontine",
			Name:      "decisions_decided_total",
			Help:      "Total decisions closed, labeled by final status.",
		}, []string{"status"})
		notificationsTotal = promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "tontine",
			Name:      "notifications_dispatched_total",
			Help:      "Total notification records written by the dispatcher.",
		})
	})
}

// IncRequest increments the http_requests_total counter with the given labels.
func IncRequest(method, path string, status int) {
	if httpRequestsTotal == nil {
		return
	}
	httpRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
}

func IncBallotCast() {
	if ballotsCastTotal == nil {
		return
	}
	ballotsCastTotal.Inc()
}

func IncDecisionDecided(status string) {
	if decisionsDecided == nil {
		return
	}
	decisionsDecided.WithLabelValues(status).Inc()
}

func IncNotificationDispatched() {
	if notificationsTotal == nil {
		return
	}
	notificationsTotal.Inc()
}
