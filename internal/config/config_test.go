package config

import (
	"errors"
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"PORT", "LLM_PROVIDER", "GEMINI_API_KEY", "GOOGLE_API_KEY", "GEMINI_STRUCTURED_OUTPUT",
		"ARK_API_KEY", "ARK_ACCESS_KEY", "ARK_SECRET_KEY", "ARK_MODEL",
		"RESOURCE_INDEX_URL", "RESOURCE_EMBEDDING", "RESOURCE_EMBED_DIM",
		"QUIZ_HISTORY_LIMIT", "UPSTREAM_TIMEOUT", "CORS_ALLOWED_ORIGINS",
		"QUIZ_SESSION_TTL", "QUIZ_MAX_SESSIONS",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadRequiresGeminiKey(t *testing.T) {
	clearEnv(t)

	if _, err := Load(); !errors.Is(err, ErrMissingAPIKey) {
		t.Fatalf("expected ErrMissingAPIKey, got %v", err)
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("GEMINI_API_KEY", "test-key")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load err: %v", err)
	}

	if cfg.Server.Addr != ":8080" {
		t.Fatalf("unexpected addr %q", cfg.Server.Addr)
	}
	if cfg.LLM.Provider != ProviderGemini || !cfg.LLM.Gemini.StructuredOutput {
		t.Fatalf("unexpected llm config %+v", cfg.LLM)
	}
	if cfg.Resources.IndexURL != "" || cfg.Resources.Namespace != "auto_loan_resources" || cfg.Resources.Dimensions != 512 {
		t.Fatalf("unexpected resource config %+v", cfg.Resources)
	}
	if cfg.Quiz.HistoryLimit != 20 || cfg.Quiz.UpstreamTimeout != 30*time.Second ||
		cfg.Quiz.SessionTTL != 2*time.Hour || cfg.Quiz.MaxSessions != 10000 {
		t.Fatalf("unexpected quiz config %+v", cfg.Quiz)
	}
	if len(cfg.Server.AllowedOrigins) != 1 || cfg.Server.AllowedOrigins[0] != "*" {
		t.Fatalf("unexpected origins %v", cfg.Server.AllowedOrigins)
	}
}

func TestLoadGoogleKeyFallback(t *testing.T) {
	clearEnv(t)
	t.Setenv("GOOGLE_API_KEY", "google-key")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load err: %v", err)
	}
	if cfg.LLM.Gemini.APIKey != "google-key" {
		t.Fatalf("expected GOOGLE_API_KEY to be used, got %q", cfg.LLM.Gemini.APIKey)
	}
}

func TestLoadArkProvider(t *testing.T) {
	clearEnv(t)
	t.Setenv("LLM_PROVIDER", "ark")
	t.Setenv("ARK_API_KEY", "ark-key")

	if _, err := Load(); !errors.Is(err, ErrMissingAPIKey) {
		t.Fatalf("ark without model should fail, got %v", err)
	}

	t.Setenv("ARK_MODEL", "doubao-pro")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load err: %v", err)
	}
	if !cfg.LLM.Ark.Enabled() {
		t.Fatal("ark config should be enabled")
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := map[string][2]string{
		"provider":  {"LLM_PROVIDER", "openai"},
		"timeout":   {"UPSTREAM_TIMEOUT", "soon"},
		"dim":       {"RESOURCE_EMBED_DIM", "-3"},
		"embedding": {"RESOURCE_EMBEDDING", "bert"},
		"port":      {"PORT", "80 80"},
		"ttl":       {"QUIZ_SESSION_TTL", "forever"},
		"sessions":  {"QUIZ_MAX_SESSIONS", "0"},
	}

	for name, kv := range cases {
		t.Run(name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv("GEMINI_API_KEY", "test-key")
			t.Setenv(kv[0], kv[1])

			if _, err := Load(); err == nil {
				t.Fatalf("expected error for %s=%q", kv[0], kv[1])
			}
		})
	}
}

func TestLoadHistoryLimitFloor(t *testing.T) {
	clearEnv(t)
	t.Setenv("GEMINI_API_KEY", "test-key")
	t.Setenv("QUIZ_HISTORY_LIMIT", "0")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load err: %v", err)
	}
	if cfg.Quiz.HistoryLimit != 2 {
		t.Fatalf("expected floor of 2, got %d", cfg.Quiz.HistoryLimit)
	}
}
