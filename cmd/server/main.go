package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"time"

	_ "tontine-api/docs"
	"tontine-api/internal/config"
	"tontine-api/internal/domain/decision"
	"tontine-api/internal/domain/group"
	"tontine-api/internal/domain/ledger"
	"tontine-api/internal/domain/notification"
	"tontine-api/internal/domain/user"
	api "tontine-api/internal/http"
	"tontine-api/internal/metrics"
	"tontine-api/internal/platform/database"
	jwtpkg "tontine-api/internal/platform/jwt"
	"tontine-api/internal/report"
	"tontine-api/internal/repository/postgres"
	"tontine-api/internal/worker"
)

// @title           Tontine API
// @version         1.0
// @description     Collaborative savings groups with contributions, decisions and reports
// @BasePath        /api/v1
// @securityDefinitions.apikey BearerAuth
// @in              header
// @name            Authorization
func main() {
	cfg := config.Load()
	metrics.Register()

	db, err := database.NewPostgres(cfg.DB_DSN)
	if err != nil {
		log.Fatalf("db connect error: %v", err)
	}
	defer db.Close()

	userRepo := postgres.NewUserRepo(db)
	groupRepo := postgres.NewGroupRepo(db)
	decisionRepo := postgres.NewDecisionRepo(db)
	ledgerRepo := postgres.NewLedgerRepo(db)
	notifyRepo := postgres.NewNotificationRepo(db)

	userSvc := user.NewService(userRepo)
	groupSvc := group.NewService(groupRepo, cfg.DefaultVoteHours)
	ledgerSvc := ledger.NewService(ledgerRepo, groupSvc)
	decisionSvc := decision.NewService(decisionRepo, groupSvc, groupSvc, ledgerSvc)
	notifySvc := notification.NewService(notifyRepo)
	reportSvc := report.NewService(ledgerSvc, groupSvc)

	jwtMgr := jwtpkg.NewManager(cfg.JWTSecret, "")

	eventCh := make(chan worker.Event, cfg.NotifyBufferSize)
	dispatcher := worker.NewDispatcher(eventCh, groupRepo, notifyRepo, slog.Default())

	router := api.NewRouter(userSvc, groupSvc, decisionSvc, ledgerSvc, notifySvc, reportSvc, jwtMgr, eventCh, db)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go dispatcher.Run(ctx)

	go func() {
		log.Printf("server listening on :%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen error: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt)

	<-stop
	log.Println("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("server shutdown error: %v", err)
	}

	log.Println("server stopped")
}
