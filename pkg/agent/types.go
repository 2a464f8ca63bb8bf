package agent

import (
	"context"
	"strings"

	jsoniter "github.com/json-iterator/go"

	"clanker/pkg/core"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Role identifies the author of a chat message sent to an LLM provider.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Message is the transport unit for LLM providers. It carries no gateway
// metadata; conversion from core.Message happens in the processor.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Usage reports token accounting for a single completion.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// NewUsage fills in the total from the two parts.
func NewUsage(prompt, completion int) Usage {
	return Usage{
		PromptTokens:     prompt,
		CompletionTokens: completion,
		TotalTokens:      prompt + completion,
	}
}

// Cost estimates the dollar cost of this usage given published
// per-million-token rates. Monitoring helper only; the pipeline never
// branches on it.
func (u Usage) Cost(provider, model string) float64 {
	inputRate, outputRate := ratesFor(strings.ToLower(provider), strings.ToLower(model))
	promptCost := float64(u.PromptTokens) / 1_000_000.0 * inputRate
	completionCost := float64(u.CompletionTokens) / 1_000_000.0 * outputRate
	return promptCost + completionCost
}

func ratesFor(provider, model string) (float64, float64) {
	switch {
	case provider == "anthropic" && strings.Contains(model, "opus"):
		return 15.0, 75.0
	case provider == "anthropic" && strings.Contains(model, "haiku"):
		return 0.80, 4.0
	case provider == "anthropic":
		return 3.0, 15.0
	case provider == "openai" && strings.Contains(model, "gpt-4"):
		return 30.0, 60.0
	case provider == "openai" && strings.Contains(model, "gpt-3.5"):
		return 0.50, 1.50
	case provider == "openai":
		return 10.0, 30.0
	case provider == "groq" && strings.Contains(model, "70b"):
		return 0.59, 0.59
	case provider == "groq" && strings.Contains(model, "8x7b"):
		return 0.27, 0.27
	case provider == "groq" && strings.Contains(model, "9b"):
		return 0.08, 0.08
	case provider == "groq":
		return 0.59, 0.59
	}
	return 1.0, 2.0
}

// Response is the provider-independent result of one chat completion.
type Response struct {
	Content      string `json:"content"`
	FinishReason string `json:"finish_reason"`
	Usage        Usage  `json:"usage"`
	Model        string `json:"model"`
	Provider     string `json:"provider"`
}

// StreamChunk is one increment of a streaming completion. Streaming is
// reserved API surface: every provider currently returns
// ErrStreamingNotImplemented from ChatStream.
type StreamChunk struct {
	Content string
	Done    bool
	Usage   *Usage
}

// Agent is the uniform chat contract over heterogeneous LLM providers.
type Agent interface {
	// Chat sends a blocking completion request and returns the full response.
	Chat(ctx context.Context, messages []Message) (*Response, error)

	// ChatStream is declared for future streaming support and is not
	// implemented by any provider yet.
	ChatStream(ctx context.Context, messages []Message) (<-chan StreamChunk, error)

	// Provider returns the provider tag (e.g. "anthropic", "groq").
	Provider() string

	// Model returns the configured model name.
	Model() string
}

// DefaultSystemPrompt is used when no channel-specific persona applies.
const DefaultSystemPrompt = "You are a helpful AI assistant."

// SystemPromptFor picks a persona tuned to the target platform's tone.
func SystemPromptFor(channelType core.ChannelType) string {
	switch channelType {
	case core.ChannelTelegram:
		return "You are a helpful AI assistant for Telegram. Keep responses concise and engaging."
	case core.ChannelDiscord:
		return "You are a helpful AI assistant for Discord. Be conversational and use Discord-friendly formatting."
	case core.ChannelSlack:
		return "You are a helpful AI assistant for Slack. Keep responses professional and clear."
	case core.ChannelWhatsApp:
		return "You are a helpful AI assistant for WhatsApp. Keep responses friendly and concise."
	}
	return DefaultSystemPrompt
}
