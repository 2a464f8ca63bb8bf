package agent

import (
	"context"
	"log/slog"
	"sync"

	"google.golang.org/genai"

	"clanker/pkg/config"
)

// GeminiAgent serves Google models through the GenAI SDK. The SDK client
// wants a context at construction time, so it is created lazily on the
// first Chat call.
type GeminiAgent struct {
	cfg config.AgentConfig

	mu     sync.Mutex
	client *genai.Client
}

func NewGeminiAgent(cfg config.AgentConfig) *GeminiAgent {
	return &GeminiAgent{cfg: cfg}
}

func (g *GeminiAgent) ensureClient(ctx context.Context) (*genai.Client, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.client != nil {
		return g.client, nil
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  g.cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, newError(ErrRequestFailed, err.Error(), err)
	}
	g.client = client
	return client, nil
}

func (g *GeminiAgent) Chat(ctx context.Context, messages []Message) (*Response, error) {
	slog.Debug("Sending chat request to Gemini", "model", g.cfg.Model)

	client, err := g.ensureClient(ctx)
	if err != nil {
		return nil, err
	}

	contents, systemInstruction := toGeminiContents(messages)

	genConfig := &genai.GenerateContentConfig{
		SystemInstruction: systemInstruction,
		MaxOutputTokens:   int32(g.cfg.MaxTokens),
	}

	resp, err := client.Models.GenerateContent(ctx, g.cfg.Model, contents, genConfig)
	if err != nil {
		return nil, newError(ErrProvider, err.Error(), err)
	}

	content := ""
	finishReason := "stop"
	usage := Usage{}

	if len(resp.Candidates) > 0 {
		candidate := resp.Candidates[0]
		if candidate.Content != nil {
			for _, part := range candidate.Content.Parts {
				content += part.Text
			}
		}
		if candidate.FinishReason != "" {
			finishReason = string(candidate.FinishReason)
		}
	}
	if resp.UsageMetadata != nil {
		usage = NewUsage(int(resp.UsageMetadata.PromptTokenCount), int(resp.UsageMetadata.CandidatesTokenCount))
	}

	return &Response{
		Content:      content,
		FinishReason: finishReason,
		Usage:        usage,
		Model:        g.cfg.Model,
		Provider:     "gemini",
	}, nil
}

func (g *GeminiAgent) ChatStream(ctx context.Context, messages []Message) (<-chan StreamChunk, error) {
	return nil, ErrStreamingNotImplemented
}

func (g *GeminiAgent) Provider() string {
	return "gemini"
}

func (g *GeminiAgent) Model() string {
	return g.cfg.Model
}

// toGeminiContents maps chat roles onto the GenAI content model: system
// messages become the system instruction, assistant turns take the "model"
// role, everything else is "user".
func toGeminiContents(messages []Message) ([]*genai.Content, *genai.Content) {
	var contents []*genai.Content
	var systemInstruction *genai.Content

	for _, m := range messages {
		switch m.Role {
		case RoleSystem:
			systemInstruction = &genai.Content{
				Parts: []*genai.Part{{Text: m.Content}},
			}
		case RoleAssistant:
			contents = append(contents, &genai.Content{
				Role:  "model",
				Parts: []*genai.Part{{Text: m.Content}},
			})
		default:
			contents = append(contents, &genai.Content{
				Role:  "user",
				Parts: []*genai.Part{{Text: m.Content}},
			})
		}
	}

	return contents, systemInstruction
}
