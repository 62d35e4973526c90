package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"journal-backend/internal/config"
	httpdelivery "journal-backend/internal/delivery/http"
	"journal-backend/internal/delivery/websocket"
	"journal-backend/internal/domain"
	"journal-backend/internal/infrastructure/db"
	"journal-backend/internal/infrastructure/fcm"
	"journal-backend/internal/infrastructure/logging"
	"journal-backend/internal/repository"
	"journal-backend/internal/usecase"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger, err := logging.New(cfg.IsProduction(), cfg.LogLevel)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 1. Initialize Repository
	var store domain.JournalStore
	if cfg.UsePostgres() {
		pool, err := db.NewPool(ctx, cfg.Database)
		if err != nil {
			logger.Fatal("connecting to postgres", zap.Error(err))
		}
		defer pool.Close()

		if err := db.Migrate(ctx, pool); err != nil {
			logger.Fatal("migrating schema", zap.Error(err))
		}
		store = repository.NewPostgresJournalRepository(pool)
		logger.Info("using postgres journal store")
	} else {
		fileStore, err := repository.NewFileJournalRepository(cfg.DataDir, logger)
		if err != nil {
			logger.Fatal("opening journal files", zap.Error(err))
		}
		store = fileStore
		logger.Info("using file journal store", zap.String("dir", cfg.DataDir))
	}
	tokenRepo := repository.NewTokenRepository()

	// 2. Initialize Coach alerts
	fcmClient, err := fcm.NewClient(ctx, cfg.FirebaseCredentialsPath, cfg.FirebaseCredentialsJSON, logger)
	if err != nil {
		logger.Warn("FCM initialization failed, coach alerts disabled", zap.Error(err))
		fcmClient = nil
	}
	alerts := usecase.NewCoachAlerter(fcmClient, tokenRepo, cfg.AlertCooldown, logger)

	// 3. Initialize Usecase
	svc := usecase.NewJournalService(store, cfg.StartingBalance, alerts, logger)

	// 4. Initialize Delivery
	tradeHandler := httpdelivery.NewTradeHandler(svc, logger)
	accountHandler := httpdelivery.NewAccountHandler(svc, logger)
	reportHandler := httpdelivery.NewReportHandler(svc, logger)
	tokenHandler := httpdelivery.NewTokenHandler(tokenRepo)
	testHandler := httpdelivery.NewTestHandler(alerts, logger)
	wsHandler := websocket.NewHandler(svc, cfg.WSPushInterval, logger)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", wsHandler.Handle)
	mux.HandleFunc("/healthz", httpdelivery.Health)

	mux.HandleFunc("/api/trades", tradeHandler.HandleTrades)
	mux.HandleFunc("/api/trades/update", tradeHandler.UpdateTrade)
	mux.HandleFunc("/api/trades/delete", tradeHandler.DeleteTrade)
	mux.HandleFunc("/api/trades/clear", tradeHandler.ClearTrades)
	mux.HandleFunc("/api/trades/import", tradeHandler.ImportCSV)
	mux.HandleFunc("/api/trades/export", tradeHandler.ExportCSV)

	mux.HandleFunc("/api/accounts", accountHandler.HandleAccounts)
	mux.HandleFunc("/api/accounts/rename", accountHandler.RenameAccount)
	mux.HandleFunc("/api/accounts/delete", accountHandler.DeleteAccount)

	mux.HandleFunc("/api/overhead", reportHandler.HandleOverhead)
	mux.HandleFunc("/api/report", reportHandler.GetReport)
	mux.HandleFunc("/api/report/export", reportHandler.ExportReport)
	mux.HandleFunc("/api/calendar", reportHandler.Calendar)
	mux.HandleFunc("/api/filters", reportHandler.Filters)

	mux.HandleFunc("/api/device/register", tokenHandler.HandleRegisterToken)
	mux.HandleFunc("/api/device/unregister", tokenHandler.HandleUnregisterToken)
	mux.HandleFunc("/api/device/count", tokenHandler.HandleGetTokenCount)
	mux.HandleFunc("/api/alerts/test", testHandler.SendTestNotification)

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("server listening", zap.String("addr", server.Addr), zap.String("env", cfg.AppEnv))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown failed", zap.Error(err))
	}
}
