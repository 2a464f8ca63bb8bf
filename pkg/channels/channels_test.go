package channels

import (
	"errors"
	"strings"
	"testing"

	"clanker/pkg/core"
)

func TestFactoryTelegram(t *testing.T) {
	ch, err := New(core.ChannelTelegram, "test-token")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if ch.ChannelType() != core.ChannelTelegram {
		t.Errorf("channel type = %q", ch.ChannelType())
	}
	if ch.IsConnected() {
		t.Error("adapter must not report connected before Listen")
	}
}

func TestFactoryDiscord(t *testing.T) {
	ch, err := New(core.ChannelDiscord, "test-token")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if ch.ChannelType() != core.ChannelDiscord {
		t.Errorf("channel type = %q", ch.ChannelType())
	}
}

func TestFactoryUnsupported(t *testing.T) {
	_, err := New(core.ChannelSlack, "token")
	if err == nil {
		t.Fatal("expected error for unsupported channel")
	}
	if KindOf(err) != ErrUnsupportedChannel {
		t.Errorf("kind = %q", KindOf(err))
	}
}

func TestFactoryEmptyToken(t *testing.T) {
	if _, err := New(core.ChannelTelegram, ""); KindOf(err) != ErrInvalidConfig {
		t.Errorf("telegram empty token kind = %q", KindOf(err))
	}
	if _, err := New(core.ChannelDiscord, ""); KindOf(err) != ErrInvalidConfig {
		t.Errorf("discord empty token kind = %q", KindOf(err))
	}
}

func TestSendRequiresConnection(t *testing.T) {
	tg, _ := NewTelegramChannel("test-token")
	msg := core.NewMessage(core.ChannelTelegram, "123456", "assistant", "Hello")

	err := tg.Send(msg)
	if KindOf(err) != ErrConnection {
		t.Errorf("telegram disconnected send kind = %q", KindOf(err))
	}

	dc, _ := NewDiscordChannel("test-token")
	err = dc.Send(core.NewMessage(core.ChannelDiscord, "123", "assistant", "Hello"))
	if KindOf(err) != ErrConnection {
		t.Errorf("discord disconnected send kind = %q", KindOf(err))
	}
}

func TestSplitMessageShort(t *testing.T) {
	chunks := splitMessage("hello", 10)
	if len(chunks) != 1 || chunks[0] != "hello" {
		t.Errorf("chunks = %v", chunks)
	}
}

func TestSplitMessageChunks(t *testing.T) {
	text := strings.Repeat("a", 25)
	chunks := splitMessage(text, 10)
	if len(chunks) != 3 {
		t.Fatalf("chunks = %d, want 3", len(chunks))
	}
	if chunks[0] != strings.Repeat("a", 10) || chunks[2] != strings.Repeat("a", 5) {
		t.Errorf("chunk sizes wrong: %v", []int{len(chunks[0]), len(chunks[1]), len(chunks[2])})
	}
}

func TestSplitMessageRuneSafe(t *testing.T) {
	text := strings.Repeat("日", 7)
	chunks := splitMessage(text, 3)
	if len(chunks) != 3 {
		t.Fatalf("chunks = %d, want 3", len(chunks))
	}
	for _, c := range chunks {
		if strings.ContainsRune(c, '�') {
			t.Errorf("chunk contains replacement rune: %q", c)
		}
	}
	if strings.Join(chunks, "") != text {
		t.Error("chunks must reassemble to the original text")
	}
}

func TestErrorStrings(t *testing.T) {
	if got := (&Error{Kind: ErrAuthenticationFailed}).Error(); got != "authentication failed" {
		t.Errorf("auth error = %q", got)
	}
	if got := (&Error{Kind: ErrSendFailed, Message: "network down"}).Error(); !strings.Contains(got, "send failed") {
		t.Errorf("send error = %q", got)
	}
	if got := (&Error{Kind: ErrMessageTooLong, Message: "5000 chars"}).Error(); !strings.Contains(got, "too long") {
		t.Errorf("too-long error = %q", got)
	}
}

func TestErrorUnwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := newError(ErrListen, "wrapped", cause)
	if !errors.Is(err, cause) {
		t.Error("errors.Is must find the cause")
	}
}

func TestSupported(t *testing.T) {
	got := Supported()
	if len(got) != 2 || got[0] != core.ChannelTelegram || got[1] != core.ChannelDiscord {
		t.Errorf("Supported() = %v", got)
	}
}
