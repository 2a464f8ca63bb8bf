package channels

import (
	"context"
	"log/slog"
	"strconv"
	"sync/atomic"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"clanker/pkg/core"
)

// telegramMessageLimit is Telegram's hard cap per message bubble; longer
// replies are split into consecutive chunks.
const telegramMessageLimit = 4096

// telegramPollTimeout is the long-poll window in seconds for GetUpdates.
const telegramPollTimeout = 30

// TelegramChannel bridges the Telegram Bot API. The listener is a manual
// GetUpdates long-poll loop rather than the SDK's update channel so the
// shutdown context can abort it between polls.
type TelegramChannel struct {
	token     string
	bot       *tgbotapi.BotAPI
	connected atomic.Bool
}

// NewTelegramChannel creates the adapter. Authentication against the Bot
// API is deferred to Listen so construction never touches the network.
func NewTelegramChannel(token string) (*TelegramChannel, error) {
	if token == "" {
		return nil, newError(ErrInvalidConfig, "telegram bot token is empty", nil)
	}
	return &TelegramChannel{token: token}, nil
}

func (t *TelegramChannel) ChannelType() core.ChannelType {
	return core.ChannelTelegram
}

func (t *TelegramChannel) IsConnected() bool {
	return t.connected.Load()
}

// Listen authenticates the bot and polls for updates until ctx is
// cancelled. Every non-empty inbound text becomes a core.Message on tx;
// nothing is echoed back to the platform from here.
func (t *TelegramChannel) Listen(ctx context.Context, tx chan<- *core.Message) error {
	bot, err := tgbotapi.NewBotAPI(t.token)
	if err != nil {
		return newError(ErrAuthenticationFailed, err.Error(), err)
	}
	t.bot = bot
	t.connected.Store(true)
	defer t.connected.Store(false)

	slog.Info("Telegram bot authorized", "username", bot.Self.UserName)

	offset := 0
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		req := tgbotapi.NewUpdate(offset)
		req.Timeout = telegramPollTimeout

		updates, err := bot.GetUpdates(req)
		if err != nil {
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(3 * time.Second):
				slog.Debug("Failed to get telegram updates", "error", err)
				continue
			}
		}

		for _, update := range updates {
			if update.UpdateID >= offset {
				offset = update.UpdateID + 1
			}
			if update.Message == nil {
				continue
			}

			text := update.Message.Text
			if text == "" {
				continue
			}

			sender := "unknown"
			if update.Message.From != nil {
				sender = strconv.FormatInt(update.Message.From.ID, 10)
			}

			msg := core.NewMessage(
				core.ChannelTelegram,
				strconv.FormatInt(update.Message.Chat.ID, 10),
				sender,
				text,
			)

			select {
			case tx <- msg:
			case <-ctx.Done():
				return nil
			}
		}
	}
}

// Send delivers the reply text to the chat in msg.ChannelID, chunking
// anything past the platform limit.
func (t *TelegramChannel) Send(msg *core.Message) error {
	if !t.IsConnected() {
		return newError(ErrConnection, "telegram bot is not connected", nil)
	}

	chatID, err := strconv.ParseInt(msg.ChannelID, 10, 64)
	if err != nil {
		return newError(ErrInvalidConfig, "invalid chat ID: "+msg.ChannelID, err)
	}

	for _, chunk := range splitMessage(msg.Text, telegramMessageLimit) {
		if _, err := t.bot.Send(tgbotapi.NewMessage(chatID, chunk)); err != nil {
			return newError(ErrSendFailed, err.Error(), err)
		}
	}

	slog.Debug("Telegram message sent", "chat_id", chatID, "message_id", msg.ID)
	return nil
}

// splitMessage cuts text into rune-safe chunks of at most limit runes.
func splitMessage(text string, limit int) []string {
	runes := []rune(text)
	if len(runes) <= limit {
		return []string{text}
	}

	var chunks []string
	for i := 0; i < len(runes); i += limit {
		end := i + limit
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[i:end]))
	}
	return chunks
}
