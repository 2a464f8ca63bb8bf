package gateway

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"clanker/pkg/agent"
	"clanker/pkg/channels"
	"clanker/pkg/config"
	"clanker/pkg/core"
)

// AppState is the process-wide shared state: the connection table, the
// broadcaster, the agent handles and the worker accounting. One value is
// created per server run and shared by reference everywhere.
type AppState struct {
	cfg         *config.Config
	broadcaster *Broadcaster

	mu          sync.RWMutex
	connections map[uuid.UUID]*ConnectionState

	totalMessages atomic.Uint64
	activeWorkers atomic.Int64
	workerSem     *semaphore.Weighted

	primary      agent.Agent
	fallback     agent.Agent
	orchestrator *agent.Master
	senders      []channels.Channel

	startTime time.Time
	serverID  uuid.UUID
	shutdown  context.Context
}

// NewAppState wires the agents, orchestrator and counters from the
// validated configuration. The shutdown context is attached later, at
// server start, via WithShutdown.
func NewAppState(cfg *config.Config) *AppState {
	maxWorkers := cfg.Orchestration.MaxWorkers
	if maxWorkers <= 0 {
		maxWorkers = 1
	}

	s := &AppState{
		cfg:         cfg,
		broadcaster: NewBroadcaster(),
		connections: make(map[uuid.UUID]*ConnectionState),
		workerSem:   semaphore.NewWeighted(int64(maxWorkers)),
		startTime:   time.Now().UTC(),
		serverID:    uuid.New(),
		shutdown:    context.Background(),
	}

	primaryCfg := cfg.Agent
	primaryCfg.Worker = nil
	primaryCfg.Fallback = nil
	s.primary = agent.New(primaryCfg)

	if fb := cfg.Agent.Fallback; fb != nil && fb.APIKey != "" {
		s.fallback = agent.New(config.AgentConfig{
			Provider:  fb.Provider,
			Model:     fb.Model,
			APIKey:    fb.APIKey,
			MaxTokens: 4096,
		})
	}

	if cfg.Orchestration.Enabled && cfg.Agent.Worker != nil {
		s.orchestrator = agent.NewMaster(s.primary, *cfg.Agent.Worker, maxWorkers)
	}

	slog.Info("Application state created", "server_id", s.serverID)
	return s
}

// WithShutdown attaches the global cancellation context observed by WS
// sessions and the ingress dispatcher.
func (s *AppState) WithShutdown(ctx context.Context) *AppState {
	s.shutdown = ctx
	return s
}

// Shutdown returns the global cancellation context.
func (s *AppState) Shutdown() context.Context {
	return s.shutdown
}

// Config returns the configuration this state was built from.
func (s *AppState) Config() *config.Config {
	return s.cfg
}

// Broadcaster returns the server-wide event topic.
func (s *AppState) Broadcaster() *Broadcaster {
	return s.broadcaster
}

// Agent returns the primary agent handle.
func (s *AppState) Agent() agent.Agent {
	return s.primary
}

// FallbackAgent returns the configured fallback agent, or nil.
func (s *AppState) FallbackAgent() agent.Agent {
	return s.fallback
}

// Orchestrator returns the Master/Worker orchestrator, or nil when
// orchestration is disabled or unconfigured.
func (s *AppState) Orchestrator() *agent.Master {
	return s.orchestrator
}

// OrchestrationEnabled reports the configuration toggle.
func (s *AppState) OrchestrationEnabled() bool {
	return s.cfg.Orchestration.Enabled
}

// SetSenders registers the channel adapters used for type-directed egress.
func (s *AppState) SetSenders(senders []channels.Channel) {
	s.senders = senders
}

// Senders returns the registered channel adapters.
func (s *AppState) Senders() []channels.Channel {
	return s.senders
}

// SenderFor finds the adapter serving the given platform, or nil.
func (s *AppState) SenderFor(ct core.ChannelType) channels.Channel {
	for _, sender := range s.senders {
		if sender.ChannelType() == ct {
			return sender
		}
	}
	return nil
}

// AddConnection inserts a connection into the table.
func (s *AppState) AddConnection(cs *ConnectionState) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.connections[cs.ID] = cs
	slog.Debug("Connection added", "connection_id", cs.ID, "total", len(s.connections))
}

// RemoveConnection deletes a connection from the table. Safe to call on
// ids already removed.
func (s *AppState) RemoveConnection(id uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.connections, id)
	slog.Debug("Connection removed", "connection_id", id, "total", len(s.connections))
}

// GetConnection returns the live state record for a connection id.
func (s *AppState) GetConnection(id uuid.UUID) (*ConnectionState, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cs, ok := s.connections[id]
	return cs, ok
}

// AllConnections snapshots the connection table.
func (s *AppState) AllConnections() []*ConnectionState {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*ConnectionState, 0, len(s.connections))
	for _, cs := range s.connections {
		out = append(out, cs)
	}
	return out
}

// ConnectionCount returns the number of live connections.
func (s *AppState) ConnectionCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.connections)
}

// Subscribe records a channel subscription for a connection.
func (s *AppState) Subscribe(id uuid.UUID, payload SubscribePayload) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	cs, ok := s.connections[id]
	if !ok {
		return false
	}
	cs.Subscribe(payload.ChannelID, payload.ChannelType)
	return true
}

// Unsubscribe removes a channel subscription for a connection.
func (s *AppState) Unsubscribe(id uuid.UUID, channelID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	cs, ok := s.connections[id]
	if !ok {
		return false
	}
	cs.Unsubscribe(channelID)
	return true
}

// ShouldForward applies the per-connection broadcast filter:
// message_received events pass only to subscribers of their channel id;
// every other event kind passes unconditionally.
func (s *AppState) ShouldForward(id uuid.UUID, ev ServerMessage) bool {
	msg, ok := ev.Data.(*core.Message)
	if ev.Type != ServerMessageReceived || !ok {
		return true
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	cs, exists := s.connections[id]
	if !exists {
		return false
	}
	return cs.IsSubscribed(msg.ChannelID)
}

// IncrementMessageCount bumps the processed-message counter.
func (s *AppState) IncrementMessageCount() {
	s.totalMessages.Add(1)
}

// TotalMessages reads the processed-message counter.
func (s *AppState) TotalMessages() uint64 {
	return s.totalMessages.Load()
}

// AcquireWorkers blocks until n worker permits are free, then bumps the
// active-worker gauge. The gauge never exceeds the semaphore weight.
func (s *AppState) AcquireWorkers(ctx context.Context, n int) error {
	if err := s.workerSem.Acquire(ctx, int64(n)); err != nil {
		return fmt.Errorf("worker limit unavailable: %w", err)
	}
	s.activeWorkers.Add(int64(n))
	return nil
}

// ReleaseWorkers returns n permits and lowers the gauge.
func (s *AppState) ReleaseWorkers(n int) {
	s.activeWorkers.Add(int64(-n))
	s.workerSem.Release(int64(n))
}

// ActiveWorkers reads the worker gauge.
func (s *AppState) ActiveWorkers() int {
	return int(s.activeWorkers.Load())
}

// MaxWorkers returns the configured fan-out cap.
func (s *AppState) MaxWorkers() int {
	return s.cfg.Orchestration.MaxWorkers
}

// StartTime returns when this state was created.
func (s *AppState) StartTime() time.Time {
	return s.startTime
}

// UptimeSeconds returns whole seconds since server start.
func (s *AppState) UptimeSeconds() uint64 {
	return uint64(time.Since(s.startTime).Seconds())
}

// UptimeFormatted renders the uptime as "XhYmZs".
func (s *AppState) UptimeFormatted() string {
	secs := int64(time.Since(s.startTime).Seconds())
	return fmt.Sprintf("%dh%dm%ds", secs/3600, (secs%3600)/60, secs%60)
}

// ServerID returns the per-run server identity.
func (s *AppState) ServerID() uuid.UUID {
	return s.serverID
}
