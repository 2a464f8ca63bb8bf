package config

import (
	"fmt"
	"os"
	"strings"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Config is the root application configuration, mapped directly from
// config.json. The gateway core receives it fully validated; no component
// below the control plane reads environment variables or files.
type Config struct {
	Server        ServerConfig        `json:"server"`
	Channels      ChannelsConfig      `json:"channels"`
	Agent         AgentConfig         `json:"agent"`
	Orchestration OrchestrationConfig `json:"orchestration"`
	Logging       LoggingConfig       `json:"logging"`
}

// ServerConfig holds the HTTP/WebSocket bind address.
type ServerConfig struct {
	Host string `json:"host"`
	Port int    `json:"port"`
}

// Addr returns the host:port string the listener binds to.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// ChannelsConfig enables platform adapters. A nil entry disables the channel.
type ChannelsConfig struct {
	Telegram *TelegramConfig `json:"telegram,omitempty"`
	Discord  *DiscordConfig  `json:"discord,omitempty"`
}

// TelegramConfig holds the BotFather token and an optional list of allowed
// chats. The list is only carried in the record; the Telegram adapter
// accepts messages from every chat.
type TelegramConfig struct {
	BotToken     string   `json:"bot_token"`
	AllowedChats []string `json:"allowed_chats,omitempty"`
}

// DiscordConfig holds the bot token and an optional guild id. The guild id
// is only carried in the record; the Discord adapter does not restrict
// messages by guild.
type DiscordConfig struct {
	BotToken string `json:"bot_token"`
	GuildID  string `json:"guild_id,omitempty"`
}

// AgentConfig selects and parameterizes the primary LLM provider.
type AgentConfig struct {
	Provider string `json:"provider"`
	Model    string `json:"model"`
	// APIKey is injected by the loader upstream; it is never written back.
	APIKey     string          `json:"api_key,omitempty"`
	MaxTokens  int             `json:"max_tokens"`
	APIBaseURL string          `json:"api_base_url,omitempty"`
	Worker     *WorkerConfig   `json:"worker,omitempty"`
	Fallback   *FallbackConfig `json:"fallback,omitempty"`
}

// WorkerConfig parameterizes the Worker_Clanker pool. Workers always run
// on Groq; only the model, key and budget are configurable.
type WorkerConfig struct {
	Model     string `json:"model"`
	APIKey    string `json:"api_key,omitempty"`
	MaxTokens int    `json:"max_tokens"`
}

// FallbackConfig selects the secondary provider tried once when the
// primary fails.
type FallbackConfig struct {
	Provider string `json:"provider"`
	Model    string `json:"model"`
	APIKey   string `json:"api_key,omitempty"`
}

// OrchestrationConfig toggles the Master/Worker flow.
type OrchestrationConfig struct {
	Enabled    bool `json:"enabled"`
	MaxWorkers int  `json:"max_workers"`
}

// LoggingConfig sets the minimum log severity ("debug", "info", "warn", "error").
type LoggingConfig struct {
	Level string `json:"level"`
}

// Default returns a configuration with safe defaults applied. Load starts
// from these and overlays the file contents.
func Default() *Config {
	return &Config{
		Server:        ServerConfig{Host: "0.0.0.0", Port: 18789},
		Agent:         AgentConfig{Provider: "placeholder", Model: "placeholder-model", MaxTokens: 4096},
		Orchestration: OrchestrationConfig{Enabled: false, MaxWorkers: 5},
		Logging:       LoggingConfig{Level: "info"},
	}
}

// Load reads and parses the JSON configuration file, applies defaults and
// validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate rejects configurations the gateway cannot run with. It is the
// single guard between the file format and the core; everything past here
// assumes a well-formed record.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if strings.TrimSpace(c.Agent.Provider) == "" {
		return fmt.Errorf("agent provider must not be empty")
	}
	if strings.TrimSpace(c.Agent.Model) == "" {
		return fmt.Errorf("agent model must not be empty")
	}
	if c.Agent.MaxTokens <= 0 {
		return fmt.Errorf("agent max_tokens must be positive, got %d", c.Agent.MaxTokens)
	}
	if c.Channels.Telegram != nil && c.Channels.Telegram.BotToken == "" {
		return fmt.Errorf("telegram channel enabled but bot_token is empty")
	}
	if c.Channels.Discord != nil && c.Channels.Discord.BotToken == "" {
		return fmt.Errorf("discord channel enabled but bot_token is empty")
	}
	if c.Orchestration.Enabled {
		if c.Orchestration.MaxWorkers <= 0 {
			return fmt.Errorf("orchestration max_workers must be positive, got %d", c.Orchestration.MaxWorkers)
		}
		if c.Agent.Worker == nil {
			return fmt.Errorf("orchestration enabled but agent.worker is not configured")
		}
	}
	return nil
}
