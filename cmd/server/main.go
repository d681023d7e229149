package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/mama165/sdk-go/logs"

	"github.com/Tyrowin/chatrelay/internal/api"
	"github.com/Tyrowin/chatrelay/internal/auth"
	"github.com/Tyrowin/chatrelay/internal/chat"
	"github.com/Tyrowin/chatrelay/internal/config"
	"github.com/Tyrowin/chatrelay/internal/history"
	"github.com/Tyrowin/chatrelay/internal/moderation"
	"github.com/Tyrowin/chatrelay/internal/server"
	"github.com/Tyrowin/chatrelay/internal/store"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "chat relay:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log := logs.GetLoggerFromString(cfg.LogLevel)
	gin.SetMode(cfg.GinMode)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := openStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := st.Close(); err != nil {
			log.Error("Closing store failed", "error", err)
		}
	}()

	if cfg.JWTSecret == "" {
		log.Warn("JWT_SECRET is not set; session tokens will not survive a restart")
		cfg.JWTSecret = randomSecret()
	}

	archive := history.NewService(st, st, log)
	hubOpts := []chat.Option{chat.WithArchive(archive)}
	if len(cfg.CensoredWords) > 0 {
		moderator, err := moderation.NewModerator(cfg.CensoredWords, cfg.CensorRune())
		if err != nil {
			return fmt.Errorf("build moderator: %w", err)
		}
		hubOpts = append(hubOpts, chat.WithCensor(moderator))
		log.Info("Moderation enabled", "words", len(cfg.CensoredWords))
	}

	hub := chat.NewHub(chat.NewRegistry(), log, hubOpts...)
	relay := server.NewRelay(hub, server.NewOptions(cfg), log)
	router := api.NewRouter(api.Deps{
		Auth:    auth.NewService(st, log),
		Tokens:  auth.NewTokens(cfg.JWTSecret, cfg.TokenTTL),
		History: archive,
		Relay:   relay,
		Log:     log,
	})
	httpServer := server.CreateServer(cfg.Port, router)

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.StartServer(httpServer, log)
	}()
	log.Info("Chat relay started",
		"addr", cfg.Port,
		"websocket", server.WebSocketPath,
		"store", cfg.StoreDriver)

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
		log.Info("Shutdown signal received")
	}

	// Stop accepting HTTP first, then drain the sockets.
	var shutdownErr error
	if err := server.ShutdownServer(httpServer, cfg.ShutdownTimeout, log); err != nil {
		shutdownErr = err
	}
	if err := relay.Shutdown(cfg.ShutdownTimeout); err != nil {
		shutdownErr = errors.Join(shutdownErr, fmt.Errorf("relay shutdown: %w", err))
	}
	return shutdownErr
}

func openStore(ctx context.Context, cfg config.Config, log *slog.Logger) (store.Store, error) {
	switch cfg.StoreDriver {
	case config.DriverPostgres:
		return store.OpenPostgres(ctx, cfg.DatabaseURL, log)
	default:
		if err := os.MkdirAll(cfg.BadgerPath, 0o755); err != nil {
			return nil, fmt.Errorf("create %s: %w", cfg.BadgerPath, err)
		}
		s, err := store.OpenBadger(cfg.BadgerPath, log)
		if err != nil {
			return nil, err
		}
		log.Info("Badger store ready", "path", cfg.BadgerPath)
		return s, nil
	}
}

// randomSecret signs tokens for this process only.
func randomSecret() string {
	return uuid.NewString() + uuid.NewString()
}
