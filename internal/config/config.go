package config

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/cloudwego/eino-ext/components/model/ark"
	"github.com/cloudwego/eino/components/model"
)

// Config aggregates the room server settings.
type Config struct {
	Server ServerConfig
	AI     AIConfig
}

// Load reads the server configuration from the environment.
func Load() (*Config, error) {
	return load(env.Options{})
}

func load(opts env.Options) (*Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}

	addr, err := normalizeAddr(cfg.Server.Port)
	if err != nil {
		return nil, err
	}
	cfg.Server.Addr = addr

	if cfg.Server.PingInterval <= 0 {
		return nil, fmt.Errorf("invalid CHAT_PING_INTERVAL value %s: must be positive", cfg.Server.PingInterval)
	}

	return &cfg, nil
}

// ServerConfig describes the HTTP and websocket listener.
type ServerConfig struct {
	Port           string        `env:"PORT" envDefault:"8080"`
	Addr           string
	RoomDB         string        `env:"CHAT_ROOM_DB"`
	PingInterval   time.Duration `env:"CHAT_PING_INTERVAL" envDefault:"30s"`
	AllowedOrigins []string      `env:"CHAT_ALLOWED_ORIGINS" envSeparator:","`
}

// normalizeAddr turns PORT into a listen address.
func normalizeAddr(port string) (string, error) {
	port = strings.TrimSpace(port)
	if port == "" {
		port = "8080"
	}

	if strings.Contains(port, ":") {
		// Accept ":8080" or "127.0.0.1:8080" as-is.
		return port, nil
	}

	if strings.Contains(port, " ") {
		return "", fmt.Errorf("invalid PORT value: %q", port)
	}

	return ":" + port, nil
}

// AIConfig holds the optional auto-reply agent settings.
type AIConfig struct {
	APIKey       string        `env:"ARK_API_KEY"`
	AccessKey    string        `env:"ARK_ACCESS_KEY"`
	SecretKey    string        `env:"ARK_SECRET_KEY"`
	Model        string        `env:"ARK_MODEL"`
	BaseURL      string        `env:"ARK_BASE_URL" envDefault:"https://ark.cn-beijing.volces.com/api/v3"`
	Region       string        `env:"ARK_REGION" envDefault:"cn-beijing"`
	Temperature  float32       `env:"ARK_TEMPERATURE" envDefault:"0.7"`
	MaxTokens    int           `env:"ARK_MAX_TOKENS" envDefault:"512"`
	AgentName    string        `env:"AI_AGENT_NAME" envDefault:"Assistant"`
	ReplyTimeout time.Duration `env:"AI_REPLY_TIMEOUT" envDefault:"30s"`
}

// Enabled reports whether the required credentials are present.
func (c AIConfig) Enabled() bool {
	return c.Model != "" && (c.APIKey != "" || (c.AccessKey != "" && c.SecretKey != ""))
}

// NewChatModel creates the Ark chat model described by the configuration.
func (c AIConfig) NewChatModel(ctx context.Context) (model.ChatModel, error) {
	if !c.Enabled() {
		return nil, fmt.Errorf("ark credentials or model missing: set ARK_MODEL with ARK_API_KEY or an AK/SK pair")
	}

	temperature := c.Temperature
	maxTokens := c.MaxTokens

	cfg := &ark.ChatModelConfig{
		BaseURL:     c.BaseURL,
		Region:      c.Region,
		APIKey:      c.APIKey,
		AccessKey:   c.AccessKey,
		SecretKey:   c.SecretKey,
		Model:       c.Model,
		MaxTokens:   &maxTokens,
		Temperature: &temperature,
	}

	return ark.NewChatModel(ctx, cfg)
}

// ClientConfig drives the terminal chat client.
type ClientConfig struct {
	BaseURL          string        `env:"CHAT_BASE_URL" envDefault:"http://localhost:8080"`
	Name             string        `env:"CHAT_NAME"`
	OriginURL        string        `env:"CHAT_ORIGIN_URL"`
	RoomID           string        `env:"CHAT_ROOM_ID"`
	AgentID          string        `env:"CHAT_AGENT_ID"`
	HTTPTimeout      time.Duration `env:"CHAT_HTTP_TIMEOUT" envDefault:"15s"`
	HandshakeTimeout time.Duration `env:"CHAT_HANDSHAKE_TIMEOUT" envDefault:"10s"`
}

// LoadClient reads the chat client configuration from the environment.
func LoadClient() (ClientConfig, error) {
	return loadClient(env.Options{})
}

func loadClient(opts env.Options) (ClientConfig, error) {
	var cfg ClientConfig
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return ClientConfig{}, fmt.Errorf("parse environment: %w", err)
	}
	if cfg.OriginURL == "" {
		cfg.OriginURL = cfg.BaseURL
	}
	return cfg, nil
}
