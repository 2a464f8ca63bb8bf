package gateway

import (
	"log/slog"
	"sync"

	"clanker/pkg/core"
)

// broadcastBuffer is the per-subscriber event buffer. A subscriber that
// falls this far behind starts losing events; publishers never block.
const broadcastBuffer = 1000

// Broadcaster fans server events out to every subscribed WebSocket
// session. The topic is lossy by design: back-pressure on the broadcast
// plane is resolved by dropping events for laggards, never by stalling
// the publisher.
type Broadcaster struct {
	mu     sync.RWMutex
	subs   map[uint64]chan ServerMessage
	nextID uint64
}

// Subscription is one receiver on the broadcaster. It observes only
// events published after Subscribe returned.
type Subscription struct {
	id uint64
	C  <-chan ServerMessage
}

// NewBroadcaster creates an empty topic.
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{
		subs: make(map[uint64]chan ServerMessage),
	}
}

// Subscribe registers a new receiver.
func (b *Broadcaster) Subscribe() *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	ch := make(chan ServerMessage, broadcastBuffer)
	b.subs[b.nextID] = ch
	return &Subscription{id: b.nextID, C: ch}
}

// Unsubscribe removes a receiver and closes its channel.
func (b *Broadcaster) Unsubscribe(sub *Subscription) {
	if sub == nil {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if ch, ok := b.subs[sub.id]; ok {
		delete(b.subs, sub.id)
		close(ch)
	}
}

// Publish delivers the event to every subscriber whose buffer has room.
// Full buffers drop the event for that subscriber only.
func (b *Broadcaster) Publish(ev ServerMessage) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for id, ch := range b.subs {
		select {
		case ch <- ev:
		default:
			slog.Debug("Dropping broadcast event for slow subscriber", "subscriber", id, "type", ev.Type)
		}
	}
}

// PublishMessage broadcasts a message_received event for a gateway message.
func (b *Broadcaster) PublishMessage(msg *core.Message) {
	slog.Debug("Broadcasting message", "channel_id", msg.ChannelID)
	b.Publish(NewMessageReceived(msg))
}

// PublishError broadcasts an error event to every observer.
func (b *Broadcaster) PublishError(code, message string) {
	slog.Warn("Broadcasting error", "code", code, "message", message)
	b.Publish(NewServerError(code, message))
}

// SubscriberCount returns the number of active receivers.
func (b *Broadcaster) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// EventFilter selects message_received events by channel id and/or channel
// type. Zero-valued fields match everything; non-message events always pass.
type EventFilter struct {
	ChannelID   string
	ChannelType core.ChannelType
}

// Matches reports whether the event passes the filter.
func (f EventFilter) Matches(ev ServerMessage) bool {
	msg, ok := ev.Data.(*core.Message)
	if ev.Type != ServerMessageReceived || !ok {
		return true
	}
	if f.ChannelID != "" && msg.ChannelID != f.ChannelID {
		return false
	}
	if f.ChannelType != "" && msg.ChannelType != f.ChannelType {
		return false
	}
	return true
}
