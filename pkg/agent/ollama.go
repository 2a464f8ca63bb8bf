package agent

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ollama/ollama/api"

	"clanker/pkg/config"
)

const ollamaDefaultURL = "http://localhost:11434"

// OllamaAgent serves local models through the Ollama HTTP API. No API key
// is involved; availability depends on a reachable daemon.
type OllamaAgent struct {
	cfg    config.AgentConfig
	client *api.Client
}

// NewOllamaAgent creates an Ollama client. Local generation can be slow on
// first model load, so the HTTP client carries no timeout of its own;
// cancellation comes from the request context.
func NewOllamaAgent(cfg config.AgentConfig) (*OllamaAgent, error) {
	base := cfg.APIBaseURL
	if base == "" {
		base = ollamaDefaultURL
	}
	u, err := url.Parse(base)
	if err != nil {
		return nil, newError(ErrRequestFailed, "invalid ollama base URL: "+err.Error(), err)
	}

	httpClient := &http.Client{
		Transport: &http.Transport{
			MaxIdleConns:    100,
			IdleConnTimeout: 90 * time.Second,
		},
	}

	return &OllamaAgent{
		cfg:    cfg,
		client: api.NewClient(u, httpClient),
	}, nil
}

func (o *OllamaAgent) Chat(ctx context.Context, messages []Message) (*Response, error) {
	slog.Debug("Sending chat request to Ollama", "model", o.cfg.Model)

	apiMessages := make([]api.Message, 0, len(messages))
	for _, m := range messages {
		apiMessages = append(apiMessages, api.Message{
			Role:    string(m.Role),
			Content: m.Content,
		})
	}

	stream := false
	req := &api.ChatRequest{
		Model:    o.cfg.Model,
		Messages: apiMessages,
		Stream:   &stream,
		Options:  map[string]any{"num_predict": o.cfg.MaxTokens},
	}

	var content strings.Builder
	finishReason := "stop"
	usage := Usage{}

	err := o.client.Chat(ctx, req, func(resp api.ChatResponse) error {
		content.WriteString(resp.Message.Content)
		if resp.Done {
			if resp.DoneReason != "" {
				finishReason = resp.DoneReason
			}
			usage = NewUsage(resp.PromptEvalCount, resp.EvalCount)
		}
		return nil
	})
	if err != nil {
		return nil, o.classifyError(err)
	}

	return &Response{
		Content:      content.String(),
		FinishReason: finishReason,
		Usage:        usage,
		Model:        o.cfg.Model,
		Provider:     "ollama",
	}, nil
}

func (o *OllamaAgent) ChatStream(ctx context.Context, messages []Message) (<-chan StreamChunk, error) {
	return nil, ErrStreamingNotImplemented
}

func (o *OllamaAgent) Provider() string {
	return "ollama"
}

func (o *OllamaAgent) Model() string {
	return o.cfg.Model
}

func (o *OllamaAgent) classifyError(err error) error {
	msg := err.Error()
	if strings.Contains(msg, "connection refused") || strings.Contains(msg, "connection reset") {
		return newError(ErrRequestFailed, msg, err)
	}
	var statusErr api.StatusError
	if errors.As(err, &statusErr) {
		return &Error{Kind: ErrProvider, Status: statusErr.StatusCode, Message: statusErr.ErrorMessage, cause: err}
	}
	return newError(ErrUnknown, msg, err)
}
