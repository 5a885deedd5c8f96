package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/cloudwego/eino-ext/components/model/ark"
	"github.com/joho/godotenv"
)

// ErrMissingAPIKey means the selected generative model has no credentials.
var ErrMissingAPIKey = errors.New("missing API key for the generative model")

const (
	ProviderGemini = "gemini"
	ProviderArk    = "ark"

	EmbeddingGemini      = "gemini"
	EmbeddingPlaceholder = "placeholder"
)

type Config struct {
	Server    ServerConfig
	LLM       LLMConfig
	Resources ResourceConfig
	Quiz      QuizConfig
	Telegram  TelegramConfig
}

type ServerConfig struct {
	Addr           string
	AllowedOrigins []string
}

type LLMConfig struct {
	Provider string
	Gemini   GeminiConfig
	Ark      ArkConfig
}

type GeminiConfig struct {
	APIKey           string
	Model            string
	EmbeddingModel   string
	StructuredOutput bool
}

type ArkConfig struct {
	APIKey    string
	AccessKey string
	SecretKey string
	Model     string
	BaseURL   string
	Region    string
}

// ResourceConfig describes the optional resource index. An empty IndexURL
// disables resource lookups.
type ResourceConfig struct {
	IndexURL   string
	Namespace  string
	Embedding  string
	Dimensions int
}

type QuizConfig struct {
	HistoryLimit    int
	DefaultTopic    string
	UpstreamTimeout time.Duration
	SessionTTL      time.Duration
	MaxSessions     int
}

type TelegramConfig struct {
	Token string
}

// Load reads .env (when present) and the environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	server, err := loadServerConfig()
	if err != nil {
		return nil, err
	}

	llm, err := loadLLMConfig()
	if err != nil {
		return nil, err
	}

	resources, err := loadResourceConfig()
	if err != nil {
		return nil, err
	}

	quiz, err := loadQuizConfig()
	if err != nil {
		return nil, err
	}

	return &Config{
		Server:    server,
		LLM:       llm,
		Resources: resources,
		Quiz:      quiz,
		Telegram:  TelegramConfig{Token: getEnv("TELEGRAM_TOKEN", "")},
	}, nil
}

func loadServerConfig() (ServerConfig, error) {
	port := getEnv("PORT", "8080")
	if strings.Contains(port, " ") {
		return ServerConfig{}, fmt.Errorf("invalid PORT value: %q", port)
	}

	addr := port
	if !strings.Contains(port, ":") {
		addr = ":" + port
	}

	return ServerConfig{
		Addr:           addr,
		AllowedOrigins: splitList(getEnv("CORS_ALLOWED_ORIGINS", "*")),
	}, nil
}

func loadLLMConfig() (LLMConfig, error) {
	structured, err := parseBoolEnv("GEMINI_STRUCTURED_OUTPUT", true)
	if err != nil {
		return LLMConfig{}, err
	}

	geminiKey := getEnv("GEMINI_API_KEY", "")
	if geminiKey == "" {
		geminiKey = getEnv("GOOGLE_API_KEY", "")
	}

	cfg := LLMConfig{
		Provider: strings.ToLower(getEnv("LLM_PROVIDER", ProviderGemini)),
		Gemini: GeminiConfig{
			APIKey:           geminiKey,
			Model:            getEnv("GEMINI_MODEL", "gemini-2.5-flash"),
			EmbeddingModel:   getEnv("GEMINI_EMBEDDING_MODEL", "models/text-embedding-004"),
			StructuredOutput: structured,
		},
		Ark: ArkConfig{
			APIKey:    getEnv("ARK_API_KEY", ""),
			AccessKey: getEnv("ARK_ACCESS_KEY", ""),
			SecretKey: getEnv("ARK_SECRET_KEY", ""),
			Model:     getEnv("ARK_MODEL", ""),
			BaseURL:   getEnv("ARK_BASE_URL", "https://ark.cn-beijing.volces.com/api/v3"),
			Region:    getEnv("ARK_REGION", "cn-beijing"),
		},
	}

	switch cfg.Provider {
	case ProviderGemini:
		if cfg.Gemini.APIKey == "" {
			return LLMConfig{}, fmt.Errorf("%w: set GEMINI_API_KEY or GOOGLE_API_KEY", ErrMissingAPIKey)
		}
	case ProviderArk:
		if !cfg.Ark.Enabled() {
			return LLMConfig{}, fmt.Errorf("%w: set ARK_MODEL and ARK_API_KEY (or ARK_ACCESS_KEY/ARK_SECRET_KEY)", ErrMissingAPIKey)
		}
	default:
		return LLMConfig{}, fmt.Errorf("invalid LLM_PROVIDER value %q", cfg.Provider)
	}

	return cfg, nil
}

func loadResourceConfig() (ResourceConfig, error) {
	dim := 512
	if v, err := parseOptionalIntEnv("RESOURCE_EMBED_DIM"); err != nil {
		return ResourceConfig{}, err
	} else if v != nil {
		if *v <= 0 {
			return ResourceConfig{}, fmt.Errorf("invalid RESOURCE_EMBED_DIM value %d", *v)
		}
		dim = *v
	}

	embedding := strings.ToLower(getEnv("RESOURCE_EMBEDDING", EmbeddingGemini))
	if embedding != EmbeddingGemini && embedding != EmbeddingPlaceholder {
		return ResourceConfig{}, fmt.Errorf("invalid RESOURCE_EMBEDDING value %q", embedding)
	}

	return ResourceConfig{
		IndexURL:   getEnv("RESOURCE_INDEX_URL", ""),
		Namespace:  getEnv("RESOURCE_NAMESPACE", "auto_loan_resources"),
		Embedding:  embedding,
		Dimensions: dim,
	}, nil
}

func loadQuizConfig() (QuizConfig, error) {
	history := 20
	if v, err := parseOptionalIntEnv("QUIZ_HISTORY_LIMIT"); err != nil {
		return QuizConfig{}, err
	} else if v != nil {
		if *v < 2 {
			history = 2
		} else {
			history = *v
		}
	}

	timeout, err := parseDurationEnv("UPSTREAM_TIMEOUT", 30*time.Second)
	if err != nil {
		return QuizConfig{}, err
	}

	ttl, err := parseDurationEnv("QUIZ_SESSION_TTL", 2*time.Hour)
	if err != nil {
		return QuizConfig{}, err
	}

	maxSessions := 10000
	if v, err := parseOptionalIntEnv("QUIZ_MAX_SESSIONS"); err != nil {
		return QuizConfig{}, err
	} else if v != nil {
		if *v <= 0 {
			return QuizConfig{}, fmt.Errorf("invalid QUIZ_MAX_SESSIONS value %d", *v)
		}
		maxSessions = *v
	}

	return QuizConfig{
		HistoryLimit:    history,
		DefaultTopic:    getEnv("QUIZ_DEFAULT_TOPIC", "financial literacy"),
		UpstreamTimeout: timeout,
		SessionTTL:      ttl,
		MaxSessions:     maxSessions,
	}, nil
}

// Enabled reports whether a model plus either an API key or an AK/SK pair is set.
func (c ArkConfig) Enabled() bool {
	return c.Model != "" && (c.APIKey != "" || (c.AccessKey != "" && c.SecretKey != ""))
}

// NewChatModel builds the Ark chat model described by the config.
func (c ArkConfig) NewChatModel(ctx context.Context) (*ark.ChatModel, error) {
	if !c.Enabled() {
		return nil, ErrMissingAPIKey
	}

	return ark.NewChatModel(ctx, &ark.ChatModelConfig{
		BaseURL:   c.BaseURL,
		Region:    c.Region,
		APIKey:    c.APIKey,
		AccessKey: c.AccessKey,
		SecretKey: c.SecretKey,
		Model:     c.Model,
	})
}

func getEnv(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return def
}

func parseBoolEnv(key string, defaultValue bool) (bool, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue, nil
	}

	val, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid %s value %q: %w", key, raw, err)
	}
	return val, nil
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

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
