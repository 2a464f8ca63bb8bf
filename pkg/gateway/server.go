package gateway

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"clanker/pkg/channels"
	"clanker/pkg/config"
	"clanker/pkg/core"
)

// ingressQueueSize bounds the channel-listener queue. When it fills,
// listeners block: back-pressure on the ingress plane is blocking by
// design, unlike the lossy broadcast plane.
const ingressQueueSize = 256

// Server is the gateway control plane: HTTP router, WebSocket endpoint,
// channel listeners and the ingress dispatcher, all tied to one shutdown
// context.
type Server struct {
	cfg   *config.Config
	state *AppState
}

// NewServer builds the shared state and channel adapters from the
// validated configuration.
func NewServer(cfg *config.Config) *Server {
	state := NewAppState(cfg)

	var senders []channels.Channel
	if cfg.Channels.Telegram != nil {
		if ch, err := channels.New(core.ChannelTelegram, cfg.Channels.Telegram.BotToken); err == nil {
			senders = append(senders, ch)
		} else {
			slog.Error("Failed to create telegram channel", "error", err)
		}
	}
	if cfg.Channels.Discord != nil {
		if ch, err := channels.New(core.ChannelDiscord, cfg.Channels.Discord.BotToken); err == nil {
			senders = append(senders, ch)
		} else {
			slog.Error("Failed to create discord channel", "error", err)
		}
	}
	state.SetSenders(senders)

	slog.Info("Gateway server created",
		"addr", cfg.Server.Addr(),
		"provider", cfg.Agent.Provider,
		"model", cfg.Agent.Model,
		"channels", len(senders))

	return &Server{cfg: cfg, state: state}
}

// State exposes the shared application state.
func (s *Server) State() *AppState {
	return s.state
}

// Handler builds the HTTP router with the CORS and security-header layers.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", handleRoot)
	mux.HandleFunc("GET /health", handleHealth(s.state))
	mux.HandleFunc("/ws", handleWebSocket(s.state))

	return withCORS(withSecurityHeaders(mux))
}

// Start runs the server until ctx is cancelled, then drains in-flight
// HTTP requests. Channel listeners and the dispatcher observe the same
// context and exit with it.
func (s *Server) Start(ctx context.Context) error {
	s.state.WithShutdown(ctx)

	if len(s.state.Senders()) > 0 {
		s.startIngress(ctx)
	}

	httpServer := &http.Server{
		Addr:    s.cfg.Server.Addr(),
		Handler: s.Handler(),
	}

	go func() {
		<-ctx.Done()
		slog.Info("Shutdown signal received, draining HTTP server")
		drainCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(drainCtx); err != nil {
			slog.Error("HTTP server shutdown error", "error", err)
		}
	}()

	slog.Info("Gateway server listening", "addr", httpServer.Addr)
	slog.Info("  WebSocket: ws://" + httpServer.Addr + "/ws")
	slog.Info("  Health: http://" + httpServer.Addr + "/health")

	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	slog.Info("Gateway server shutdown complete")
	return nil
}

// startIngress spawns one listener goroutine per channel adapter and the
// single dispatcher that drains the shared queue. The dispatcher is the
// only consumer: channel-originated LLM calls start strictly FIFO, and
// parallelism comes from worker fan-out inside the processor, not from
// concurrent dispatchers.
func (s *Server) startIngress(ctx context.Context) {
	queue := make(chan *core.Message, ingressQueueSize)

	for _, ch := range s.state.Senders() {
		go func(ch channels.Channel) {
			slog.Info("Starting channel listener", "channel_type", ch.ChannelType())
			if err := ch.Listen(ctx, queue); err != nil {
				slog.Error("Channel listener error", "channel_type", ch.ChannelType(), "error", err)
			}
		}(ch)
	}

	go func() {
		for {
			select {
			case incoming := <-queue:
				s.dispatch(ctx, incoming)
			case <-ctx.Done():
				return
			}
		}
	}()
}

// dispatch processes one ingress message and routes the reply back to the
// adapter matching its channel type.
func (s *Server) dispatch(ctx context.Context, incoming *core.Message) {
	s.state.IncrementMessageCount()
	s.state.Broadcaster().PublishMessage(incoming)

	reply, err := ProcessMessage(ctx, s.state, incoming)
	if err != nil {
		slog.Error("Processor error", "error", err)
		return
	}

	sender := s.state.SenderFor(incoming.ChannelType)
	if sender == nil {
		slog.Warn("No channel for type, dropping reply", "channel_type", incoming.ChannelType)
		return
	}
	if err := sender.Send(reply); err != nil {
		slog.Error("Failed to send reply", "channel_type", incoming.ChannelType, "error", err)
	}
}
