package core

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ChannelType identifies the external messaging platform a message belongs to.
type ChannelType string

const (
	ChannelTelegram ChannelType = "telegram"
	ChannelDiscord  ChannelType = "discord"
	ChannelSlack    ChannelType = "slack"
	ChannelWhatsApp ChannelType = "whatsapp"
)

// ParseChannelType resolves a channel tag string case-insensitively.
// Only platforms with a wired adapter are accepted.
func ParseChannelType(s string) (ChannelType, bool) {
	switch strings.ToLower(s) {
	case "telegram":
		return ChannelTelegram, true
	case "discord":
		return ChannelDiscord, true
	}
	return "", false
}

func (c ChannelType) String() string {
	return string(c)
}

// Message is the unified representation of a single chat message flowing
// through the gateway. It is immutable after construction; the With* helpers
// are builder-style and meant to be chained off NewMessage before the
// message enters the pipeline.
type Message struct {
	ID          string          `json:"id"`
	ChannelType ChannelType     `json:"channel_type"`
	ChannelID   string          `json:"channel_id"`
	Sender      string          `json:"sender"`
	Text        string          `json:"text"`
	Timestamp   time.Time       `json:"timestamp"`
	Metadata    MessageMetadata `json:"metadata"`
}

// MessageMetadata carries optional platform context alongside a message.
type MessageMetadata struct {
	Attachments []Attachment `json:"attachments"`
	ReplyTo     string       `json:"reply_to,omitempty"`
	Mentions    []string     `json:"mentions"`
}

// Attachment references an uploaded file by URL; content is never stored.
type Attachment struct {
	ID        string `json:"id"`
	URL       string `json:"url"`
	MimeType  string `json:"mime_type"`
	SizeBytes int64  `json:"size_bytes"`
}

// NewAttachment creates an attachment with a fresh id.
func NewAttachment(url, mimeType string, sizeBytes int64) Attachment {
	return Attachment{
		ID:        uuid.NewString(),
		URL:       url,
		MimeType:  mimeType,
		SizeBytes: sizeBytes,
	}
}

// NewMessage creates a message with a fresh random id and the current UTC time.
func NewMessage(channelType ChannelType, channelID, sender, text string) *Message {
	return &Message{
		ID:          uuid.NewString(),
		ChannelType: channelType,
		ChannelID:   channelID,
		Sender:      sender,
		Text:        text,
		Timestamp:   time.Now().UTC(),
		Metadata:    MessageMetadata{Attachments: []Attachment{}, Mentions: []string{}},
	}
}

// NewMessageAt creates a message with an explicit timestamp.
func NewMessageAt(channelType ChannelType, channelID, sender, text string, ts time.Time) *Message {
	m := NewMessage(channelType, channelID, sender, text)
	m.Timestamp = ts.UTC()
	return m
}

// WithAttachment appends an attachment to the message metadata.
func (m *Message) WithAttachment(a Attachment) *Message {
	m.Metadata.Attachments = append(m.Metadata.Attachments, a)
	return m
}

// WithReplyTo records the id of the message this one replies to.
func (m *Message) WithReplyTo(id string) *Message {
	m.Metadata.ReplyTo = id
	return m
}

// WithMention appends a mentioned user id.
func (m *Message) WithMention(userID string) *Message {
	m.Metadata.Mentions = append(m.Metadata.Mentions, userID)
	return m
}

func (m *Message) String() string {
	return fmt.Sprintf("%s/%s from %s: %d chars", m.ChannelType, m.ChannelID, m.Sender, len(m.Text))
}
