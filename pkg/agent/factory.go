package agent

import (
	"log/slog"
	"strings"

	"clanker/pkg/config"
)

// New constructs the provider client matching the configured tag. Tags are
// case-insensitive; unknown tags fall back to the placeholder agent so the
// gateway keeps answering even with a misconfigured provider.
func New(cfg config.AgentConfig) Agent {
	slog.Info("Creating agent", "provider", cfg.Provider, "model", cfg.Model)

	switch strings.ToLower(cfg.Provider) {
	case "anthropic":
		return NewAnthropicAgent(cfg)
	case "openai":
		return NewOpenAIAgent(cfg)
	case "grok":
		return NewGrokAgent(cfg)
	case "groq":
		return NewGroqAgent(cfg)
	case "zai":
		return NewZaiAgent(cfg)
	case "gemini":
		return NewGeminiAgent(cfg)
	case "ollama":
		if a, err := NewOllamaAgent(cfg); err == nil {
			return a
		}
		slog.Warn("Ollama client unavailable, using placeholder", "base_url", cfg.APIBaseURL)
		return NewPlaceholderAgent(cfg)
	}

	slog.Debug("Unknown provider, using placeholder agent", "provider", cfg.Provider)
	return NewPlaceholderAgent(cfg)
}

// SupportedProviders lists the tags with a real backing implementation.
func SupportedProviders() []string {
	return []string{"anthropic", "openai", "grok", "groq", "zai", "gemini", "ollama"}
}

// IsSupported reports whether the tag maps to a real provider.
func IsSupported(provider string) bool {
	p := strings.ToLower(provider)
	for _, s := range SupportedProviders() {
		if s == p {
			return true
		}
	}
	return false
}
