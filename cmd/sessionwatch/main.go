package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/tooltime-pro/session-guard/internal/config"
	"github.com/tooltime-pro/session-guard/internal/observability"
	"github.com/tooltime-pro/session-guard/pkg/monitor"
	"github.com/tooltime-pro/session-guard/pkg/sessionclient"
)

const exitKicked = 3

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	if cfg.Monitor.Token == "" {
		logger.Fatal("SESSIONWATCH_TOKEN is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client := sessionclient.New(cfg.Monitor.ServerURL, cfg.Monitor.Token, nil)

	sid := cfg.Monitor.SessionID
	if sid == "" {
		sid, err = monitor.NewSessionID()
		if err != nil {
			logger.Fatal("generate session id", zap.Error(err))
		}
		if err := client.Register(ctx, sid); err != nil {
			logger.Fatal("register session", zap.Error(err))
		}
		logger.Info("registered new session")
	}

	kicked := make(chan string, 1)
	m := monitor.New(monitor.Options{
		Checker:  client,
		Store:    monitor.NewMemoryLocalStore(sid),
		OnKicked: func(stale string) {
			select {
			case kicked <- stale:
			default:
			}
		},
		InitialDelay: cfg.Monitor.InitialDelay(),
		Interval:     cfg.Monitor.Interval(),
		Registrar:    client,
		Logger:       logger,
	})
	if err := m.Start(ctx); err != nil {
		logger.Fatal("start monitor", zap.Error(err))
	}

	select {
	case <-ctx.Done():
		m.Stop()
		logger.Info("shutting down")
	case <-kicked:
		m.Stop()
		logger.Warn("this session was replaced by a login on another device")
		_ = logger.Sync()
		os.Exit(exitKicked)
	}
}
