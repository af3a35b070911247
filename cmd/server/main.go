package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"chat-relay/internal/config"
	"chat-relay/internal/handlers"
	"chat-relay/internal/hub"
	"chat-relay/internal/presence"
	"chat-relay/internal/push"
	"chat-relay/internal/router"
	"chat-relay/internal/tokens"
	"chat-relay/pkg/logger"
)

func main() {
	// Load configuration
	cfg := config.Load()
	log := logger.New(cfg.Log.Level, cfg.Log.Pretty)

	// Core services
	registry := presence.NewRegistry()
	h := hub.New(log)
	pushClient := push.NewClient(cfg.Push.URL, cfg.Push.Timeout, log)
	sender := push.NewSender(pushClient, log)
	resolver := tokens.NewResolver(cfg.Tokens.BaseURL, cfg.Tokens.Timeout, log)
	rt := router.New(registry, h, resolver, sender, log)

	// HTTP surface
	wsHandlers := handlers.NewWebSocketHandlers(h, registry, rt, log)
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", wsHandlers.HandleWebSocket)
	mux.HandleFunc("/healthz", wsHandlers.HandleHealth)

	server := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      mux,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server error")
		}
	}()
	log.Info().Str("addr", cfg.Server.Port).Msg("Chat relay started")
	log.Info().Str("endpoint", "/ws").Msg("WebSocket endpoint ready")

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Server shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server shutdown error")
	}
	h.Close()

	// Give in-flight push fallbacks a chance to finish; anything still
	// retrying past the deadline is abandoned.
	done := make(chan struct{})
	go func() {
		rt.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(cfg.Server.ShutdownTimeout):
		log.Warn().Msg("Abandoning in-flight push deliveries")
	}
}
