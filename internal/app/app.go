package app

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/josinaldojr/finlit-quiz/internal/config"
	"github.com/josinaldojr/finlit-quiz/internal/llm"
	"github.com/josinaldojr/finlit-quiz/internal/quiz"
	"github.com/josinaldojr/finlit-quiz/internal/resource"
)

// App holds the wired services shared by the HTTP API and the Telegram bot.
// Idle sessions are swept until the ctx passed to New is done.
type App struct {
	Quiz   *quiz.Service
	Lookup *resource.Lookup

	store resource.Store
}

func New(ctx context.Context, cfg *config.Config) (*App, error) {
	var (
		prompts quiz.PromptClient
		gemini  *llm.GeminiClient
		err     error
	)

	if cfg.LLM.Gemini.APIKey != "" {
		gemini, err = llm.NewGeminiClient(ctx, cfg.LLM.Gemini, cfg.Resources.Dimensions)
		if err != nil {
			return nil, fmt.Errorf("init gemini client: %w", err)
		}
	}

	switch cfg.LLM.Provider {
	case config.ProviderArk:
		chat, err := cfg.LLM.Ark.NewChatModel(ctx)
		if err != nil {
			return nil, fmt.Errorf("init ark chat model: %w", err)
		}
		prompts = llm.NewArkClient(chat)
		log.Printf("prompt client: ark model=%s", cfg.LLM.Ark.Model)
	default:
		prompts = gemini
		log.Printf("prompt client: gemini model=%s", cfg.LLM.Gemini.Model)
	}

	a := &App{}

	// a nil interface, not a typed nil, keeps lookups switched off
	var finder quiz.ResourceFinder
	if cfg.Resources.IndexURL == "" {
		log.Println("RESOURCE_INDEX_URL not set. Resource lookup will be disabled.")
	} else {
		store, err := resource.OpenStore(ctx, cfg.Resources.IndexURL, cfg.Resources.Dimensions)
		if err != nil {
			log.Printf("warning: resource index unavailable, lookups disabled: %v", err)
		} else {
			if err := store.EnsureSchema(ctx); err != nil {
				log.Printf("warning: preparing resource index: %v", err)
			}
			a.store = store
			a.Lookup = resource.NewLookup(newEmbedder(cfg.Resources, gemini), store, cfg.Resources.Namespace)
			finder = a.Lookup
			log.Printf("resource index connected, namespace=%s", cfg.Resources.Namespace)
		}
	}

	sessions := quiz.NewSessionStoreWithOptions(quiz.StoreOptions{
		IdleTTL:     cfg.Quiz.SessionTTL,
		MaxSessions: cfg.Quiz.MaxSessions,
	})
	go sessions.Run(ctx, time.Minute)

	a.Quiz = quiz.NewService(prompts, finder, sessions, quiz.Options{
		HistoryLimit:    cfg.Quiz.HistoryLimit,
		DefaultTopic:    cfg.Quiz.DefaultTopic,
		UpstreamTimeout: cfg.Quiz.UpstreamTimeout,
	})
	return a, nil
}

// NewEmbedder picks the embedding source for resource vectors. Without a
// Gemini client it degrades to random placeholder vectors.
func NewEmbedder(ctx context.Context, cfg *config.Config) (resource.Embedder, error) {
	var gemini *llm.GeminiClient
	if cfg.LLM.Gemini.APIKey != "" && cfg.Resources.Embedding == config.EmbeddingGemini {
		c, err := llm.NewGeminiClient(ctx, cfg.LLM.Gemini, cfg.Resources.Dimensions)
		if err != nil {
			return nil, err
		}
		gemini = c
	}
	return newEmbedder(cfg.Resources, gemini), nil
}

func newEmbedder(cfg config.ResourceConfig, gemini *llm.GeminiClient) resource.Embedder {
	if cfg.Embedding == config.EmbeddingGemini && gemini != nil {
		return gemini
	}
	if cfg.Embedding == config.EmbeddingGemini {
		log.Println("warning: no Gemini key for embeddings, using placeholder vectors")
	}
	return resource.NewPlaceholderEmbedder(cfg.Dimensions)
}

func (a *App) Close() error {
	if a.store == nil {
		return nil
	}
	return a.store.Close()
}
