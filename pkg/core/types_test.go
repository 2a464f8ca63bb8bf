package core

import (
	"testing"
	"time"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

func TestNewMessage(t *testing.T) {
	msg := NewMessage(ChannelTelegram, "12345", "user", "Hello")

	if msg.ChannelType != ChannelTelegram {
		t.Errorf("channel type = %q, want telegram", msg.ChannelType)
	}
	if msg.ChannelID != "12345" {
		t.Errorf("channel id = %q, want 12345", msg.ChannelID)
	}
	if msg.Sender != "user" {
		t.Errorf("sender = %q, want user", msg.Sender)
	}
	if msg.Text != "Hello" {
		t.Errorf("text = %q, want Hello", msg.Text)
	}
	if msg.ID == "" {
		t.Fatal("message id must not be empty")
	}
	if msg.Timestamp.Location() != time.UTC {
		t.Errorf("timestamp not UTC: %v", msg.Timestamp.Location())
	}
}

func TestMessageIDsUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		msg := NewMessage(ChannelDiscord, "c", "u", "t")
		if seen[msg.ID] {
			t.Fatalf("duplicate message id: %s", msg.ID)
		}
		seen[msg.ID] = true
	}
}

func TestMessageWithAttachment(t *testing.T) {
	msg := NewMessage(ChannelDiscord, "67890", "user2", "World").
		WithAttachment(NewAttachment("http://example.com/file.pdf", "application/pdf", 1024))

	if len(msg.Metadata.Attachments) != 1 {
		t.Fatalf("attachments = %d, want 1", len(msg.Metadata.Attachments))
	}
	a := msg.Metadata.Attachments[0]
	if a.SizeBytes != 1024 {
		t.Errorf("size = %d, want 1024", a.SizeBytes)
	}
	if a.ID == "" {
		t.Error("attachment id must not be empty")
	}
}

func TestMessageWithReplyToAndMention(t *testing.T) {
	msg := NewMessage(ChannelTelegram, "12345", "user", "Reply").
		WithReplyTo("message-123").
		WithMention("user-9")

	if msg.Metadata.ReplyTo != "message-123" {
		t.Errorf("reply_to = %q", msg.Metadata.ReplyTo)
	}
	if len(msg.Metadata.Mentions) != 1 || msg.Metadata.Mentions[0] != "user-9" {
		t.Errorf("mentions = %v", msg.Metadata.Mentions)
	}
}

func TestParseChannelType(t *testing.T) {
	cases := []struct {
		in   string
		want ChannelType
		ok   bool
	}{
		{"telegram", ChannelTelegram, true},
		{"TELEGRAM", ChannelTelegram, true},
		{"discord", ChannelDiscord, true},
		{"slack", "", false},
		{"unknown", "", false},
		{"", "", false},
	}

	for _, c := range cases {
		got, ok := ParseChannelType(c.in)
		if ok != c.ok || got != c.want {
			t.Errorf("ParseChannelType(%q) = (%q, %v), want (%q, %v)", c.in, got, ok, c.want, c.ok)
		}
	}
}

func TestChannelTypeSerializesLowercase(t *testing.T) {
	data, err := json.Marshal(ChannelTelegram)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(data) != `"telegram"` {
		t.Errorf("serialized = %s, want \"telegram\"", data)
	}
}

func TestMessageJSONRoundTrip(t *testing.T) {
	msg := NewMessage(ChannelDiscord, "test-channel", "test-user", "Test message")

	data, err := json.Marshal(msg)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var decoded Message
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if decoded.ID != msg.ID {
		t.Errorf("id = %q, want %q", decoded.ID, msg.ID)
	}
	if decoded.Text != msg.Text {
		t.Errorf("text = %q, want %q", decoded.Text, msg.Text)
	}
	if decoded.ChannelType != msg.ChannelType {
		t.Errorf("channel type = %q, want %q", decoded.ChannelType, msg.ChannelType)
	}
}
