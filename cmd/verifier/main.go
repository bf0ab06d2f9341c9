package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"opacity-verifier/internal/app"
	"opacity-verifier/internal/config"
	"opacity-verifier/internal/handlers"
	"opacity-verifier/internal/httpserver"
	"opacity-verifier/internal/logging"

	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
	if err != nil {
		panic(err)
	}
	log, err := logging.New(cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	if cfg.WebhookSecret == "" {
		log.Fatal("WEBHOOK_SECRET is required")
	}
	a, err := app.New(cfg, log)
	if err != nil {
		log.Fatal("startup failed", zap.Error(err))
	}
	defer a.Close()

	handler := handlers.VerifyHandler{
		Secret:      cfg.WebhookSecret,
		Verifier:    a.Verifier,
		Ledger:      a.Ledger,
		Concurrency: cfg.Concurrency,
		Log:         log.Named("http"),
	}
	srv := httpserver.NewServer(cfg.Port, handler)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		shutdown, cancel := context.WithTimeout(context.Background(), cfg.CallTimeout+5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdown)
	}()

	log.Info("opacity-verifier listening", zap.String("port", cfg.Port), zap.Int("verified", a.Ledger.Len()))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal("server error", zap.Error(err))
	}
}
