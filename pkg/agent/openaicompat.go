package agent

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"clanker/pkg/config"
)

// Default endpoints for the OpenAI-compatible providers. The OpenAI SDK
// appends the chat/completions path, so these end at the API version root.
const (
	grokBaseURL = "https://api.x.ai/v1/"
	groqBaseURL = "https://api.groq.com/openai/v1/"
	zaiBaseURL  = "https://api.z.ai/api/paas/v4/"
)

// defaultTemperature applies to every OpenAI-compatible request.
const defaultTemperature = 0.7

// CompatAgent serves the providers that speak the OpenAI chat-completions
// dialect (OpenAI, Grok, Groq, Z.ai) through one SDK client parameterized
// by base URL and timeout. SDK-level retries are disabled; retrying is the
// processor's fallback policy, not the transport's.
type CompatAgent struct {
	cfg      config.AgentConfig
	provider string
	client   openai.Client
}

func newCompatAgent(provider string, cfg config.AgentConfig, baseURL string, timeout time.Duration) *CompatAgent {
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithHTTPClient(&http.Client{Timeout: timeout}),
		option.WithMaxRetries(0),
	}
	if cfg.APIBaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.APIBaseURL))
	} else if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}

	return &CompatAgent{
		cfg:      cfg,
		provider: provider,
		client:   openai.NewClient(opts...),
	}
}

// NewOpenAIAgent creates a client for the OpenAI API.
func NewOpenAIAgent(cfg config.AgentConfig) *CompatAgent {
	return newCompatAgent("openai", cfg, "", 30*time.Second)
}

// NewGrokAgent creates a client for the xAI Grok API.
func NewGrokAgent(cfg config.AgentConfig) *CompatAgent {
	return newCompatAgent("grok", cfg, grokBaseURL, 30*time.Second)
}

// NewGroqAgent creates a client for the Groq API.
func NewGroqAgent(cfg config.AgentConfig) *CompatAgent {
	return newCompatAgent("groq", cfg, groqBaseURL, 30*time.Second)
}

// NewZaiAgent creates a client for the Z.ai API. Z.ai models are slow to
// first byte, hence the longer timeout.
func NewZaiAgent(cfg config.AgentConfig) *CompatAgent {
	return newCompatAgent("zai", cfg, zaiBaseURL, 60*time.Second)
}

func (c *CompatAgent) Chat(ctx context.Context, messages []Message) (*Response, error) {
	slog.Debug("Sending chat request", "provider", c.provider, "model", c.cfg.Model)

	params := openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(c.cfg.Model),
		Messages:    toCompatMessages(messages),
		MaxTokens:   openai.Int(int64(c.cfg.MaxTokens)),
		Temperature: openai.Float(defaultTemperature),
	}

	completion, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, c.classifyError(err)
	}

	content := ""
	finishReason := "stop"
	if len(completion.Choices) > 0 {
		content = completion.Choices[0].Message.Content
		if completion.Choices[0].FinishReason != "" {
			finishReason = completion.Choices[0].FinishReason
		}
	}

	return &Response{
		Content:      content,
		FinishReason: finishReason,
		Usage: Usage{
			PromptTokens:     int(completion.Usage.PromptTokens),
			CompletionTokens: int(completion.Usage.CompletionTokens),
			TotalTokens:      int(completion.Usage.TotalTokens),
		},
		Model:    c.cfg.Model,
		Provider: c.provider,
	}, nil
}

func (c *CompatAgent) ChatStream(ctx context.Context, messages []Message) (<-chan StreamChunk, error) {
	return nil, ErrStreamingNotImplemented
}

func (c *CompatAgent) Provider() string {
	return c.provider
}

func (c *CompatAgent) Model() string {
	return c.cfg.Model
}

// classifyError maps SDK errors onto the shared provider error taxonomy.
func (c *CompatAgent) classifyError(err error) error {
	var apierr *openai.Error
	if errors.As(err, &apierr) {
		switch apierr.StatusCode {
		case http.StatusUnauthorized, http.StatusForbidden:
			return &Error{Kind: ErrAuthenticationFailed, Status: apierr.StatusCode, Message: apierr.Error(), cause: err}
		case http.StatusTooManyRequests:
			var retryAfter *time.Duration
			if apierr.Response != nil {
				retryAfter = retryAfterOf(apierr.Response.Header)
			}
			return &Error{Kind: ErrRateLimited, Status: apierr.StatusCode, RetryAfter: retryAfter, cause: err}
		}
		return &Error{Kind: ErrProvider, Status: apierr.StatusCode, Message: apierr.Error(), cause: err}
	}
	return newError(ErrRequestFailed, err.Error(), err)
}

func toCompatMessages(messages []Message) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case RoleSystem:
			out = append(out, openai.SystemMessage(m.Content))
		case RoleAssistant:
			out = append(out, openai.AssistantMessage(m.Content))
		default:
			out = append(out, openai.UserMessage(m.Content))
		}
	}
	return out
}
