// Package channels implements the platform adapters that bridge external
// messaging services (Telegram, Discord) to the gateway's ingress queue
// and type-directed egress.
package channels

import (
	"context"

	"clanker/pkg/core"
)

// Channel is the contract every platform adapter satisfies. An adapter has
// exactly one listener running at a time; Listen blocks until the context
// is cancelled or the platform connection dies.
type Channel interface {
	// Listen consumes platform events and forwards inbound user messages
	// to tx. Sends block when the queue is full; that back-pressure is
	// intentional and must not be worked around with drops.
	Listen(ctx context.Context, tx chan<- *core.Message) error

	// Send delivers the message text to the chat addressed by its
	// channel id. Fails with a connection error when the adapter is not
	// listening.
	Send(msg *core.Message) error

	// ChannelType returns the platform tag this adapter serves.
	ChannelType() core.ChannelType

	// IsConnected reports whether the listener is up.
	IsConnected() bool
}

// New builds an adapter for the given platform tag.
func New(channelType core.ChannelType, token string) (Channel, error) {
	switch channelType {
	case core.ChannelTelegram:
		return NewTelegramChannel(token)
	case core.ChannelDiscord:
		return NewDiscordChannel(token)
	}
	return nil, newError(ErrUnsupportedChannel, channelType.String(), nil)
}

// Supported lists the platform tags with a wired adapter.
func Supported() []core.ChannelType {
	return []core.ChannelType{core.ChannelTelegram, core.ChannelDiscord}
}
