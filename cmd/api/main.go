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

	"github.com/joho/godotenv"

	"github.com/daehak-dining/chatbot/backend/internal/config"
	"github.com/daehak-dining/chatbot/backend/internal/handler"
	"github.com/daehak-dining/chatbot/backend/internal/observability"
	"github.com/daehak-dining/chatbot/backend/internal/service/ai"
	"github.com/daehak-dining/chatbot/backend/internal/service/chatbot"
	"github.com/daehak-dining/chatbot/backend/internal/service/session"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Printf("warning: failed to load .env file: %v", err)
		log.Println("continuing with system environment variables only")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	// The service boots without Ark credentials; chat requests degrade into
	// the apology reply and /health reports the unconfigured state.
	var aiSvc *ai.Service
	if cfg.AI.Enabled() {
		aiSvc, err = ai.NewService(ctx, cfg.AI)
		if err != nil {
			log.Fatalf("failed to initialize generation backend: %v", err)
		}
		log.Println("generation backend initialized")
	} else {
		log.Println("warning: ark credentials missing, chat responses will degrade until configured")
	}

	sessions := session.NewStore(cfg.Chat.SessionTTL, session.WithMaxTurns(cfg.Chat.MaxHistoryTurns))
	sessions.StartJanitor(ctx, cfg.Chat.SweepInterval)

	metrics := observability.NewMetrics(cfg.Server.MetricsNamespace, func() float64 {
		return float64(sessions.ActiveCount())
	})

	// A typed-nil *ai.Service must not masquerade as a live Generator.
	var generator chatbot.Generator
	if aiSvc != nil {
		generator = aiSvc
	}
	bot := chatbot.NewService(generator, sessions, cfg.Chat.Persona)

	router := handler.NewRouter(bot, sessions, aiSvc, metrics)

	startServer(ctx, cfg.Server, router)
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler) {
	srv := &http.Server{
		Addr:              serverCfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.Printf("cafeteria chatbot backend listening on %s", serverCfg.Addr)
	if err := runServer(ctx, srv); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
