package gateway

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"clanker/pkg/core"
)

var upgrader = websocket.Upgrader{
	// The gateway performs no WS client authentication; any origin may attach.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// handleRoot serves the service descriptor.
func handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"name":        "Clanker Gateway",
		"version":     Version,
		"description": "AI Assistant Gateway with WebSocket support",
		"endpoints": map[string]string{
			"health": "/health",
			"ws":     "/ws",
		},
	})
}

// handleHealth serves the live server snapshot.
func handleHealth(state *AppState) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		health := HealthResponse{
			Status:            "healthy",
			Version:           Version,
			UptimeSeconds:     state.UptimeSeconds(),
			ActiveConnections: state.ConnectionCount(),
			TotalMessages:     state.TotalMessages(),
			ActiveWorkers:     state.ActiveWorkers(),
			MaxWorkers:        state.MaxWorkers(),
			Timestamp:         time.Now().UTC(),
		}

		slog.Debug("Health check",
			"connections", health.ActiveConnections,
			"messages", health.TotalMessages,
			"workers", health.ActiveWorkers)

		writeJSON(w, http.StatusOK, health)
	}
}

// handleWebSocket upgrades the request and runs the per-connection session.
func handleWebSocket(state *AppState) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			slog.Error("WebSocket upgrade failed", "error", err)
			return
		}
		serveSession(state, conn, r.RemoteAddr)
	}
}

// serveSession drives one WebSocket connection: a reader goroutine feeds
// inbound frames to the select loop, which is the connection's single
// writer, multiplexing client frames, broadcast events and shutdown. The
// connection record is removed on every exit path.
func serveSession(state *AppState, conn *websocket.Conn, remoteAddr string) {
	connID := uuid.New()
	state.AddConnection(NewConnectionState(connID, remoteAddr))

	defer func() {
		state.RemoveConnection(connID)
		conn.Close()
		slog.Info("WebSocket connection closed", "connection_id", connID)
	}()

	sub := state.Broadcaster().Subscribe()
	defer state.Broadcaster().Unsubscribe(sub)

	slog.Info("WebSocket connection established", "connection_id", connID, "remote", remoteAddr)

	welcome := ServerMessage{Type: ServerHealth, Data: HealthPayload{
		Status:        "connected",
		UptimeSeconds: state.UptimeSeconds(),
	}}
	if err := writeFrame(conn, welcome); err != nil {
		slog.Error("Failed to send welcome frame", "error", err)
		return
	}

	// Unbuffered: the reader hands over one frame at a time, so client
	// frames are processed strictly in arrival order.
	frames := make(chan []byte)
	done := make(chan struct{})
	defer close(done)

	go func() {
		defer close(frames)
		for {
			msgType, data, err := conn.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					slog.Warn("WebSocket receive error", "connection_id", connID, "error", err)
				}
				return
			}
			if msgType != websocket.TextMessage {
				// Binary frames are ignored; ping/pong is answered by
				// the transport's control handlers.
				continue
			}
			select {
			case frames <- data:
			case <-done:
				return
			}
		}
	}()

	shutdown := state.Shutdown()

	for {
		select {
		case data, ok := <-frames:
			if !ok {
				return
			}
			handleClientFrame(state, conn, connID, data)

		case ev := <-sub.C:
			if !state.ShouldForward(connID, ev) {
				continue
			}
			if err := writeFrame(conn, ev); err != nil {
				slog.Error("Failed to send broadcast frame", "connection_id", connID, "error", err)
				return
			}

		case <-shutdown.Done():
			slog.Info("Shutdown signal received, closing connection", "connection_id", connID)
			return
		}
	}
}

// handleClientFrame decodes and dispatches one inbound text frame. Decode
// failures answer with an error frame and keep the session alive.
func handleClientFrame(state *AppState, conn *websocket.Conn, connID uuid.UUID, data []byte) {
	var frame ClientMessage
	if err := json.Unmarshal(data, &frame); err != nil {
		slog.Error("Error handling client frame", "connection_id", connID, "error", err)
		_ = writeFrame(conn, NewServerError("MESSAGE_ERROR", err.Error()))
		return
	}

	switch frame.Type {
	case ClientPing:
		var payload PingPayload
		if err := json.Unmarshal(frame.Data, &payload); err != nil {
			_ = writeFrame(conn, NewServerError("MESSAGE_ERROR", err.Error()))
			return
		}
		_ = writeFrame(conn, ServerMessage{Type: ServerPong, Data: PongPayload{Timestamp: payload.Timestamp}})

	case ClientSubscribe:
		var payload SubscribePayload
		if err := json.Unmarshal(frame.Data, &payload); err != nil {
			_ = writeFrame(conn, NewServerError("MESSAGE_ERROR", err.Error()))
			return
		}
		state.Subscribe(connID, payload)
		slog.Debug("Subscribed", "connection_id", connID, "channel_id", payload.ChannelID, "channel_type", payload.ChannelType)
		_ = writeFrame(conn, ServerMessage{Type: ServerSubscribed, Data: SubscribedPayload{
			ChannelID:    payload.ChannelID,
			ConnectionID: connID,
		}})

	case ClientUnsubscribe:
		var payload UnsubscribePayload
		if err := json.Unmarshal(frame.Data, &payload); err != nil {
			_ = writeFrame(conn, NewServerError("MESSAGE_ERROR", err.Error()))
			return
		}
		state.Unsubscribe(connID, payload.ChannelID)
		slog.Debug("Unsubscribed", "connection_id", connID, "channel_id", payload.ChannelID)
		_ = writeFrame(conn, ServerMessage{Type: ServerUnsubscribed, Data: UnsubscribedPayload{
			ChannelID: payload.ChannelID,
		}})

	case ClientSendMessage:
		var payload SendMessagePayload
		if err := json.Unmarshal(frame.Data, &payload); err != nil {
			_ = writeFrame(conn, NewServerError("MESSAGE_ERROR", err.Error()))
			return
		}
		handleSendMessage(state, conn, payload)

	default:
		slog.Debug("Unknown client frame type", "connection_id", connID, "type", frame.Type)
		_ = writeFrame(conn, NewServerError("MESSAGE_ERROR", "unknown message type: "+frame.Type))
	}
}

// handleSendMessage runs a WS-injected message through the processor
// synchronously and answers with send_response. The generated reply is not
// broadcast to other observers.
func handleSendMessage(state *AppState, conn *websocket.Conn, payload SendMessagePayload) {
	slog.Debug("Processing send_message", "channel_id", payload.ChannelID, "channel_type", payload.ChannelType)

	state.IncrementMessageCount()

	incoming := core.NewMessage(payload.ChannelType, payload.ChannelID, "user", payload.Message)

	reply, err := ProcessMessage(state.Shutdown(), state, incoming)
	if err != nil {
		_ = writeFrame(conn, NewSendResponse(false, "", err.Error(), ""))
		return
	}
	_ = writeFrame(conn, NewSendResponse(true, reply.ID, "", reply.Text))
}

// writeFrame marshals a server message and sends it as one text frame.
func writeFrame(conn *websocket.Conn, msg ServerMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return conn.WriteMessage(websocket.TextMessage, data)
}

// writeJSON sends an HTTP JSON response.
func writeJSON(w http.ResponseWriter, status int, body any) {
	data, err := json.Marshal(body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}
