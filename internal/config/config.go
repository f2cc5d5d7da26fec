package config

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/cloudwego/eino-ext/components/model/ark"
	"github.com/cloudwego/eino/components/model"
)

// Config aggregates every tunable of the service.
type Config struct {
	Server   ServerConfig
	AI       AIConfig
	Sessions SessionConfig
	Rate     RateConfig
	Hub      HubConfig
}

// Load reads all configuration from environment variables.
func Load() (*Config, error) {
	server, err := loadServerConfig()
	if err != nil {
		return nil, err
	}

	ai, err := loadAIConfig()
	if err != nil {
		return nil, err
	}

	sessions, err := loadSessionConfig()
	if err != nil {
		return nil, err
	}

	rate, err := loadRateConfig()
	if err != nil {
		return nil, err
	}

	hub, err := loadHubConfig()
	if err != nil {
		return nil, err
	}

	return &Config{Server: server, AI: ai, Sessions: sessions, Rate: rate, Hub: hub}, nil
}

// ServerConfig describes the HTTP listener.
type ServerConfig struct {
	Addr string
}

func loadServerConfig() (ServerConfig, error) {
	port := strings.TrimSpace(os.Getenv("PORT"))
	if port == "" {
		port = "8080"
	}

	if strings.Contains(port, ":") {
		// Accept ":8080" or "127.0.0.1:8080" as-is.
		return ServerConfig{Addr: port}, nil
	}

	if strings.Contains(port, " ") {
		return ServerConfig{}, fmt.Errorf("invalid PORT value: %q", port)
	}

	return ServerConfig{Addr: ":" + port}, nil
}

// AIConfig describes the chat model connection.
type AIConfig struct {
	APIKey      string
	AccessKey   string
	SecretKey   string
	Model       string
	BaseURL     string
	Region      string
	Temperature *float64
	TopP        *float64
	MaxTokens   *int
	TurnTimeout time.Duration
}

// Enabled reports whether the required credentials are present.
func (c AIConfig) Enabled() bool {
	return c.Model != "" && (c.APIKey != "" || (c.AccessKey != "" && c.SecretKey != ""))
}

// NewChatModel builds a model instance from the configuration.
func (c AIConfig) NewChatModel(ctx context.Context) (model.ChatModel, error) {
	if !c.Enabled() {
		return nil, fmt.Errorf("ark credentials or model missing: set ARK_API_KEY + Model, or the AK/SK pair")
	}

	var temperature *float32
	if c.Temperature != nil {
		val := float32(*c.Temperature)
		temperature = &val
	}

	var topP *float32
	if c.TopP != nil {
		val := float32(*c.TopP)
		topP = &val
	}

	cfg := &ark.ChatModelConfig{
		BaseURL:     c.BaseURL,
		Region:      c.Region,
		APIKey:      c.APIKey,
		AccessKey:   c.AccessKey,
		SecretKey:   c.SecretKey,
		Model:       c.Model,
		MaxTokens:   c.MaxTokens,
		Temperature: temperature,
		TopP:        topP,
	}

	return ark.NewChatModel(ctx, cfg)
}

func loadAIConfig() (AIConfig, error) {
	temperature, err := parseOptionalFloatEnv("ARK_TEMPERATURE")
	if err != nil {
		return AIConfig{}, err
	}

	topP, err := parseOptionalFloatEnv("ARK_TOP_P")
	if err != nil {
		return AIConfig{}, err
	}

	maxTokens, err := parseOptionalIntEnv("ARK_MAX_TOKENS")
	if err != nil {
		return AIConfig{}, err
	}

	turnTimeout, err := parseDurationEnv("AI_TURN_TIMEOUT", 30*time.Second)
	if err != nil {
		return AIConfig{}, err
	}

	return AIConfig{
		APIKey:      strings.TrimSpace(os.Getenv("ARK_API_KEY")),
		AccessKey:   strings.TrimSpace(os.Getenv("ARK_ACCESS_KEY")),
		SecretKey:   strings.TrimSpace(os.Getenv("ARK_SECRET_KEY")),
		Model:       strings.TrimSpace(os.Getenv("Model")),
		BaseURL:     getEnvOrDefault("ARK_BASE_URL", "https://ark.cn-beijing.volces.com/api/v3"),
		Region:      getEnvOrDefault("ARK_REGION", "cn-beijing"),
		Temperature: temperature,
		TopP:        topP,
		MaxTokens:   maxTokens,
		TurnTimeout: turnTimeout,
	}, nil
}

// SessionConfig describes session persistence and NPC profile loading.
type SessionConfig struct {
	DataDir       string
	NPCDir        string
	FlushInterval time.Duration
}

func loadSessionConfig() (SessionConfig, error) {
	flush, err := parseDurationEnv("SESSION_FLUSH_INTERVAL", 5*time.Minute)
	if err != nil {
		return SessionConfig{}, err
	}

	return SessionConfig{
		DataDir:       getEnvOrDefault("SESSION_DATA_DIR", "data/sessions"),
		NPCDir:        getEnvOrDefault("NPC_DIR", "npcs"),
		FlushInterval: flush,
	}, nil
}

// RateConfig describes dialogue admission control.
type RateConfig struct {
	Window time.Duration
	Limit  int
}

func loadRateConfig() (RateConfig, error) {
	window, err := parseDurationEnv("RATE_LIMIT_WINDOW", time.Minute)
	if err != nil {
		return RateConfig{}, err
	}

	limit := 5
	if override, err := parseOptionalIntEnv("RATE_LIMIT_MAX_REQUESTS"); err != nil {
		return RateConfig{}, err
	} else if override != nil {
		if *override < 1 {
			return RateConfig{}, fmt.Errorf("RATE_LIMIT_MAX_REQUESTS must be at least 1")
		}
		limit = *override
	}

	return RateConfig{Window: window, Limit: limit}, nil
}

// HubConfig describes the broadcast hub.
type HubConfig struct {
	Heartbeat time.Duration
}

func loadHubConfig() (HubConfig, error) {
	heartbeat, err := parseDurationEnv("HUB_HEARTBEAT_INTERVAL", 30*time.Second)
	if err != nil {
		return HubConfig{}, err
	}
	return HubConfig{Heartbeat: heartbeat}, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func parseDurationEnv(key string, defaultValue time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue, nil
	}

	val, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", key, raw, err)
	}
	if val <= 0 {
		return 0, fmt.Errorf("invalid %s value %q: must be positive", key, raw)
	}
	return val, nil
}

func parseOptionalFloatEnv(key string) (*float64, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}

func parseOptionalIntEnv(key string) (*int, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.Atoi(value)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}
