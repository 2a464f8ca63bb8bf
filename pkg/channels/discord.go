package channels

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/bwmarrin/discordgo"

	"clanker/pkg/core"
)

// DiscordChannel bridges the Discord gateway. The listener is fully wired
// through discordgo; the send adapter is not yet implemented and only logs
// the outgoing reply.
type DiscordChannel struct {
	token     string
	connected atomic.Bool
}

func NewDiscordChannel(token string) (*DiscordChannel, error) {
	if token == "" {
		return nil, newError(ErrInvalidConfig, "discord bot token is empty", nil)
	}
	return &DiscordChannel{token: token}, nil
}

func (d *DiscordChannel) ChannelType() core.ChannelType {
	return core.ChannelDiscord
}

func (d *DiscordChannel) IsConnected() bool {
	return d.connected.Load()
}

// Listen opens the Discord gateway session and forwards inbound user
// messages to tx until ctx is cancelled. Bot authors (including this bot)
// and empty payloads are dropped at the handler.
func (d *DiscordChannel) Listen(ctx context.Context, tx chan<- *core.Message) error {
	session, err := discordgo.New("Bot " + d.token)
	if err != nil {
		return newError(ErrInvalidConfig, err.Error(), err)
	}

	session.Identify.Intents = discordgo.IntentsGuildMessages |
		discordgo.IntentsDirectMessages |
		discordgo.IntentMessageContent

	session.AddHandler(func(s *discordgo.Session, m *discordgo.MessageCreate) {
		if m.Author == nil || m.Author.Bot {
			return
		}
		if m.Content == "" {
			return
		}

		msg := core.NewMessage(core.ChannelDiscord, m.ChannelID, m.Author.ID, m.Content)

		select {
		case tx <- msg:
		case <-ctx.Done():
		}
	})

	if err := session.Open(); err != nil {
		return newError(ErrConnection, err.Error(), err)
	}
	d.connected.Store(true)
	defer d.connected.Store(false)

	slog.Info("Discord gateway connected")

	<-ctx.Done()

	if err := session.Close(); err != nil {
		slog.Error("Error closing Discord session", "error", err)
	}
	return nil
}

// Send is a capability hole: the Discord send-adapter is not yet
// implemented. The reply is logged and reported as delivered so the
// dispatcher keeps draining.
func (d *DiscordChannel) Send(msg *core.Message) error {
	if !d.IsConnected() {
		return newError(ErrConnection, "discord bot is not connected", nil)
	}

	slog.Info("Discord send-adapter not yet implemented, dropping reply",
		"channel_id", msg.ChannelID, "message_id", msg.ID)
	return nil
}
