package api

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"golang.org/x/time/rate"

	"tontine-api/internal/domain/decision"
	"tontine-api/internal/domain/group"
	"tontine-api/internal/domain/ledger"
	"tontine-api/internal/domain/notification"
	"tontine-api/internal/domain/user"
	jwtpkg "tontine-api/internal/platform/jwt"
	"tontine-api/internal/report"
	"tontine-api/internal/worker"
)

type Handler struct {
	userSvc     *user.Service
	groupSvc    *group.Service
	decisionSvc *decision.Service
	ledgerSvc   *ledger.Service
	notifySvc   *notification.Service
	reportSvc   *report.Service
	jwtMgr      *jwtpkg.Manager
	eventCh     chan<- worker.Event
	db          *sql.DB
}

func NewRouter(
	userSvc *user.Service,
	groupSvc *group.Service,
	decisionSvc *decision.Service,
	ledgerSvc *ledger.Service,
	notifySvc *notification.Service,
	reportSvc *report.Service,
	jwtMgr *jwtpkg.Manager,
	eventCh chan<- worker.Event,
	db *sql.DB,
) http.Handler {
	h := &Handler{
		userSvc:     userSvc,
		groupSvc:    groupSvc,
		decisionSvc: decisionSvc,
		ledgerSvc:   ledgerSvc,
		notifySvc:   notifySvc,
		reportSvc:   reportSvc,
		jwtMgr:      jwtMgr,
		eventCh:     eventCh,
		db:          db,
	}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(60 * time.Second))
	r.Use(RequestLogger)
	r.Use(CORSMiddleware)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/ready", h.handleReady)
	r.Get("/swagger/*", httpSwagger.WrapHandler)
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/auth/register", h.handleRegister)
		r.Post("/auth/login", h.handleLogin)

		r.Group(func(r chi.Router) {
			r.Use(AuthMiddleware(jwtMgr))

			r.Post("/groups", h.handleCreateGroup)
			r.Get("/groups", h.handleListGroups)
			r.Get("/groups/{id}", h.handleGetGroup)
			r.Get("/groups/{id}/members", h.handleListMembers)
			r.Patch("/groups/{id}/members/{userID}", h.handleUpdateMember)
			r.Post("/groups/{id}/leave", h.handleLeaveGroup)
			r.Post("/groups/{id}/invitations", h.handleInvite)
			r.Post("/invitations/accept", h.handleAcceptInvitation)

			r.Post("/groups/{id}/decisions", h.handleCreateDecision)
			r.Get("/groups/{id}/decisions", h.handleListDecisions)
			r.Get("/decisions/{id}", h.handleGetDecision)
			r.With(RateLimitCasts(rate.Every(time.Minute/10), 3)).
				Post("/decisions/{id}/votes", h.handleCastBallot)
			r.Put("/decisions/{id}/close", h.handleCloseDecision)
			r.Post("/decisions/{id}/execute", h.handleExecuteDecision)
			r.Delete("/decisions/{id}", h.handleDeleteDecision)

			r.Post("/groups/{id}/transactions", h.handleRecordTransaction)
			r.Get("/groups/{id}/transactions", h.handleListTransactions)
			r.Get("/groups/{id}/report", h.handleGroupReport)

			r.Get("/notifications", h.handleListNotifications)
			r.Patch("/notifications/{id}/read", h.handleMarkNotificationRead)

			r.Group(func(r chi.Router) {
				r.Use(RequireRole("admin"))
				r.Get("/users", h.handleListUsers)
				r.Patch("/users/{id}/deactivate", h.handleDeactivateUser)
			})
		})
	})

	return r
}

// publish hands an event to the dispatcher without blocking the request;
// a saturated buffer drops the event.
func (h *Handler) publish(ev worker.Event) {
	if h.eventCh == nil {
		return
	}
	select {
	case h.eventCh <- ev:
	default:
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func parseIDParam(r *http.Request, name string) (int64, error) {
	idStr := chi.URLParam(r, name)
	return strconv.ParseInt(idStr, 10, 64)
}

func parseTimePtr(s *string) (*time.Time, error) {
	if s == nil || *s == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, *s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (h *Handler) handleReady(w http.ResponseWriter, r *http.Request) {
	if h.db == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error":   "db_unavailable",
			"message": "database not configured",
		})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := h.db.PingContext(ctx); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error":   "db_unavailable",
			"message": "database not ready",
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
