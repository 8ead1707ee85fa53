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

	"github.com/safeping/relay/backend/internal/config"
	"github.com/safeping/relay/backend/internal/handler"
	"github.com/safeping/relay/backend/internal/handler/realtime"
	"github.com/safeping/relay/backend/internal/service/auth"
	"github.com/safeping/relay/backend/internal/service/presence"
	realtimeService "github.com/safeping/relay/backend/internal/service/realtime"
	"github.com/safeping/relay/backend/internal/storage/sqlite"
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

	users, err := sqlite.Open(ctx, cfg.Store.Path)
	if err != nil {
		log.Fatalf("failed to open user store: %v", err)
	}
	defer users.Close()
	log.Printf("user store ready at %s", cfg.Store.Path)

	issuer, err := auth.NewIssuer(cfg.Auth.Secret, auth.DefaultTokenTTL)
	if err != nil {
		log.Fatalf("failed to initialize token issuer: %v", err)
	}

	// Presence state lives for the lifetime of the process.
	registry := presence.NewRegistry()
	defer registry.Clear()

	conns := realtimeService.NewConnectionManager(realtimeService.ConnectionOptions{
		SendBuffer:   cfg.Presence.SendBuffer,
		PingInterval: cfg.Presence.PingInterval,
	})
	defer conns.CloseAll()

	router := presence.NewRouter(registry, conns, presence.RouterConfig{EvictOnClose: cfg.Presence.EvictOnClose})
	loop := presence.NewLoop(router, cfg.Presence.QueueSize)
	loopCtx, stopLoop := context.WithCancel(context.Background())
	go loop.Run(loopCtx)
	defer func() {
		stopLoop()
		<-loop.Done()
	}()

	if cfg.Presence.EvictOnClose {
		log.Println("presence: sessions are evicted when their connection closes")
	} else {
		log.Println("presence: sessions are only cleared by clientDisconnected")
	}

	realtimeHandler := realtime.New(conns, loop, registry, cfg.Server.AllowedOrigins)
	httpRouter := handler.NewRouter(cfg.Server.AllowedOrigins, users, issuer, cfg.Auth.Production, realtimeHandler)

	startServer(ctx, cfg.Server, httpRouter)
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler) {
	addr := serverCfg.Addr
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.Printf("safePing relay listening on %s", addr)
	if err := runServer(ctx, srv); err != nil {
		log.Printf("server error: %v", err)
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
