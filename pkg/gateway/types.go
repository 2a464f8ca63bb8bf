package gateway

import (
	"time"

	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"

	"clanker/pkg/core"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Version is reported by the root and health endpoints.
const Version = "0.3.0"

// Client frame type tags. Every WebSocket application frame is a JSON
// object {"type": <tag>, "data": <payload>}.
const (
	ClientSubscribe   = "subscribe"
	ClientUnsubscribe = "unsubscribe"
	ClientSendMessage = "send_message"
	ClientPing        = "ping"
)

// Server frame type tags.
const (
	ServerMessageReceived = "message_received"
	ServerSubscribed      = "subscribed"
	ServerUnsubscribed    = "unsubscribed"
	ServerSendResponse    = "send_response"
	ServerHealth          = "health"
	ServerPong            = "pong"
	ServerError           = "error"
)

// ClientMessage is the envelope decoded from inbound WS text frames. Data
// stays raw until the type tag selects the payload shape.
type ClientMessage struct {
	Type string              `json:"type"`
	Data jsoniter.RawMessage `json:"data"`
}

// SubscribePayload asks to receive message_received events for a channel.
type SubscribePayload struct {
	ChannelID   string           `json:"channel_id"`
	ChannelType core.ChannelType `json:"channel_type"`
}

// UnsubscribePayload withdraws a subscription.
type UnsubscribePayload struct {
	ChannelID string `json:"channel_id"`
}

// SendMessagePayload injects a message into the processing pipeline on
// behalf of the WS client.
type SendMessagePayload struct {
	ChannelID   string           `json:"channel_id"`
	ChannelType core.ChannelType `json:"channel_type"`
	Message     string           `json:"message"`
}

// PingPayload is a keepalive probe; the timestamp is echoed back verbatim.
type PingPayload struct {
	Timestamp uint64 `json:"timestamp"`
}

// ServerMessage is the envelope for every outbound WS frame and for events
// on the broadcaster. Data holds the typed payload; the broadcast filter
// inspects it to apply per-connection subscription rules.
type ServerMessage struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// SubscribedPayload acknowledges a subscription.
type SubscribedPayload struct {
	ChannelID    string    `json:"channel_id"`
	ConnectionID uuid.UUID `json:"connection_id"`
}

// UnsubscribedPayload acknowledges an unsubscription.
type UnsubscribedPayload struct {
	ChannelID string `json:"channel_id"`
}

// SendResponsePayload reports the outcome of a send_message request,
// carrying the generated reply when processing succeeded.
type SendResponsePayload struct {
	Success   bool   `json:"success"`
	MessageID string `json:"message_id,omitempty"`
	Error     string `json:"error,omitempty"`
	Content   string `json:"content,omitempty"`
}

// HealthPayload is the greeting pushed right after a successful upgrade.
type HealthPayload struct {
	Status        string `json:"status"`
	UptimeSeconds uint64 `json:"uptime_seconds"`
}

// PongPayload answers a ping.
type PongPayload struct {
	Timestamp uint64 `json:"timestamp"`
}

// ErrorPayload reports a per-frame failure without ending the session.
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// NewMessageReceived wraps a gateway message for broadcast.
func NewMessageReceived(msg *core.Message) ServerMessage {
	return ServerMessage{Type: ServerMessageReceived, Data: msg}
}

// NewServerError builds an error frame.
func NewServerError(code, message string) ServerMessage {
	return ServerMessage{Type: ServerError, Data: ErrorPayload{Code: code, Message: message}}
}

// NewSendResponse builds a send_response frame.
func NewSendResponse(success bool, messageID, errMsg, content string) ServerMessage {
	return ServerMessage{Type: ServerSendResponse, Data: SendResponsePayload{
		Success:   success,
		MessageID: messageID,
		Error:     errMsg,
		Content:   content,
	}}
}

// ConnectionState tracks one live WebSocket session and its subscriptions.
// Subscription mutation and reads go through AppState, which guards the
// whole connection table with its reader-writer lock.
type ConnectionState struct {
	ID            uuid.UUID
	Addr          string
	ConnectedAt   time.Time
	Subscriptions map[string]core.ChannelType
}

// NewConnectionState creates the state record for a fresh connection.
func NewConnectionState(id uuid.UUID, addr string) *ConnectionState {
	return &ConnectionState{
		ID:            id,
		Addr:          addr,
		ConnectedAt:   time.Now().UTC(),
		Subscriptions: make(map[string]core.ChannelType),
	}
}

// Subscribe records interest in a channel id.
func (c *ConnectionState) Subscribe(channelID string, channelType core.ChannelType) {
	c.Subscriptions[channelID] = channelType
}

// Unsubscribe removes a channel id subscription.
func (c *ConnectionState) Unsubscribe(channelID string) {
	delete(c.Subscriptions, channelID)
}

// IsSubscribed reports whether the connection follows the channel id.
func (c *ConnectionState) IsSubscribed(channelID string) bool {
	_, ok := c.Subscriptions[channelID]
	return ok
}

// SubscriptionCount returns the number of active subscriptions.
func (c *ConnectionState) SubscriptionCount() int {
	return len(c.Subscriptions)
}

// UptimeSeconds reports how long the connection has been open.
func (c *ConnectionState) UptimeSeconds() int64 {
	return int64(time.Since(c.ConnectedAt).Seconds())
}

// HealthResponse is the /health endpoint body.
type HealthResponse struct {
	Status            string    `json:"status"`
	Version           string    `json:"version"`
	UptimeSeconds     uint64    `json:"uptime_seconds"`
	ActiveConnections int       `json:"active_connections"`
	TotalMessages     uint64    `json:"total_messages"`
	ActiveWorkers     int       `json:"active_workers"`
	MaxWorkers        int       `json:"max_workers"`
	Timestamp         time.Time `json:"timestamp"`
}
