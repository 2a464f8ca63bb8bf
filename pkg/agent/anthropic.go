package agent

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"time"

	"clanker/pkg/config"
)

const (
	anthropicAPIURL  = "https://api.anthropic.com/v1/messages"
	anthropicVersion = "2023-06-01"
)

// AnthropicAgent talks to the Anthropic Messages API directly over HTTP.
// Anthropic is the one provider in the set without an OpenAI-compatible
// surface, so it gets its own wire codec.
type AnthropicAgent struct {
	cfg    config.AgentConfig
	client *http.Client
}

// NewAnthropicAgent creates an Anthropic client with the standard 30 s timeout.
func NewAnthropicAgent(cfg config.AgentConfig) *AnthropicAgent {
	return &AnthropicAgent{
		cfg: cfg,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

type anthropicRequest struct {
	Model     string             `json:"model"`
	MaxTokens int                `json:"max_tokens"`
	System    string             `json:"system"`
	Messages  []anthropicMessage `json:"messages"`
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicResponse struct {
	Content []struct {
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
	Usage      struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

func (a *AnthropicAgent) Chat(ctx context.Context, messages []Message) (*Response, error) {
	slog.Debug("Sending chat request to Anthropic", "model", a.cfg.Model)

	reqBody := anthropicRequest{
		Model:     a.cfg.Model,
		MaxTokens: a.cfg.MaxTokens,
		System:    DefaultSystemPrompt,
		Messages:  toAnthropicMessages(messages),
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, newError(ErrInvalidResponse, err.Error(), err)
	}

	url := anthropicAPIURL
	if a.cfg.APIBaseURL != "" {
		url = a.cfg.APIBaseURL
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, newError(ErrRequestFailed, err.Error(), err)
	}
	req.Header.Set("x-api-key", a.cfg.APIKey)
	req.Header.Set("anthropic-version", anthropicVersion)
	req.Header.Set("content-type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, newError(ErrRequestFailed, err.Error(), err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, newError(ErrHTTP, err.Error(), err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		switch resp.StatusCode {
		case http.StatusUnauthorized, http.StatusForbidden:
			return nil, &Error{Kind: ErrAuthenticationFailed, Status: resp.StatusCode, Message: string(body)}
		case http.StatusTooManyRequests:
			return nil, &Error{Kind: ErrRateLimited, Status: resp.StatusCode, RetryAfter: retryAfterOf(resp.Header)}
		}
		return nil, &Error{Kind: ErrProvider, Status: resp.StatusCode, Message: string(body)}
	}

	var parsed anthropicResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, newError(ErrInvalidResponse, err.Error(), err)
	}

	var content string
	if len(parsed.Content) > 0 {
		content = parsed.Content[0].Text
	}
	finishReason := parsed.StopReason
	if finishReason == "" {
		finishReason = "stop"
	}

	return &Response{
		Content:      content,
		FinishReason: finishReason,
		Usage:        NewUsage(parsed.Usage.InputTokens, parsed.Usage.OutputTokens),
		Model:        a.cfg.Model,
		Provider:     "anthropic",
	}, nil
}

func (a *AnthropicAgent) ChatStream(ctx context.Context, messages []Message) (<-chan StreamChunk, error) {
	return nil, ErrStreamingNotImplemented
}

func (a *AnthropicAgent) Provider() string {
	return "anthropic"
}

func (a *AnthropicAgent) Model() string {
	return a.cfg.Model
}

func toAnthropicMessages(messages []Message) []anthropicMessage {
	out := make([]anthropicMessage, 0, len(messages))
	for _, m := range messages {
		out = append(out, anthropicMessage{Role: string(m.Role), Content: m.Content})
	}
	return out
}

// retryAfterOf parses the Retry-After header as a whole number of seconds.
func retryAfterOf(h http.Header) *time.Duration {
	raw := h.Get("Retry-After")
	if raw == "" {
		return nil
	}
	secs, err := time.ParseDuration(raw + "s")
	if err != nil {
		return nil
	}
	return &secs
}
