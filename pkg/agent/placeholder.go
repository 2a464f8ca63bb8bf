package agent

import (
	"context"
	"fmt"

	"clanker/pkg/config"
)

// PlaceholderAgent is a no-network agent used in tests and wherever a
// provider tag is unknown or the Ollama client cannot be built. It echoes
// the last user message so call flows stay observable end to end.
type PlaceholderAgent struct {
	cfg config.AgentConfig
}

func NewPlaceholderAgent(cfg config.AgentConfig) *PlaceholderAgent {
	return &PlaceholderAgent{cfg: cfg}
}

func (p *PlaceholderAgent) Chat(ctx context.Context, messages []Message) (*Response, error) {
	last := "Hello!"
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == RoleUser {
			last = messages[i].Content
			break
		}
	}

	return &Response{
		Content:      fmt.Sprintf("Placeholder response from %s: %s", p.cfg.Provider, last),
		FinishReason: "stop",
		Usage:        NewUsage(len(messages), 10),
		Model:        p.cfg.Model,
		Provider:     p.cfg.Provider,
	}, nil
}

func (p *PlaceholderAgent) ChatStream(ctx context.Context, messages []Message) (<-chan StreamChunk, error) {
	return nil, ErrStreamingNotImplemented
}

func (p *PlaceholderAgent) Provider() string {
	return p.cfg.Provider
}

func (p *PlaceholderAgent) Model() string {
	return p.cfg.Model
}
