package llm

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/josinaldojr/finlit-quiz/internal/config"
	"github.com/josinaldojr/finlit-quiz/internal/quiz"
	"github.com/josinaldojr/finlit-quiz/internal/resource"
)

const geminiService = "gemini"

type GeminiClient struct {
	client         *genai.Client
	model          string
	embeddingModel string
	embedDim       int
	structured     bool
}

func NewGeminiClient(ctx context.Context, cfg config.GeminiConfig, embedDim int) (*GeminiClient, error) {
	if cfg.APIKey == "" {
		return nil, config.ErrMissingAPIKey
	}

	c, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	if embedDim <= 0 {
		embedDim = resource.DefaultDimensions
	}

	return &GeminiClient{
		client:         c,
		model:          cfg.Model,
		embeddingModel: cfg.EmbeddingModel,
		embedDim:       embedDim,
		structured:     cfg.StructuredOutput,
	}, nil
}

// Send runs one generateContent call with the given history in front of the prompt.
func (g *GeminiClient) Send(ctx context.Context, req quiz.PromptRequest) (string, error) {
	contents := buildContents(req.History, req.Prompt)

	var cfg *genai.GenerateContentConfig
	if g.structured {
		cfg = responseConfig(req.Format)
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, cfg)
	if err != nil {
		return "", quiz.NewUpstreamError(geminiService, fmt.Errorf("generateContent: %w", err))
	}
	if resp == nil {
		return "", quiz.NewUpstreamError(geminiService, fmt.Errorf("empty response"))
	}

	txt := strings.TrimSpace(resp.Text())
	if txt == "" {
		return "", quiz.NewUpstreamError(geminiService, fmt.Errorf("model returned empty text"))
	}
	return txt, nil
}

func (g *GeminiClient) Embed(ctx context.Context, text string) ([]float32, error) {
	clean := normalizeWhitespace(text)
	if clean == "" {
		return nil, fmt.Errorf("empty text for embedding")
	}

	resp, err := g.client.Models.EmbedContent(
		ctx,
		g.embeddingModel,
		genai.Text(clean),
		&genai.EmbedContentConfig{
			OutputDimensionality: genai.Ptr(int32(g.embedDim)),
		},
	)
	if err != nil {
		return nil, quiz.NewUpstreamError(geminiService, fmt.Errorf("embed: %w", err))
	}

	if len(resp.Embeddings) == 0 {
		return nil, fmt.Errorf("no embeddings returned")
	}

	values := resp.Embeddings[0].Values
	if len(values) != g.embedDim {
		return nil, fmt.Errorf("unexpected embedding size %d (expected %d)", len(values), g.embedDim)
	}

	out := make([]float32, g.embedDim)
	for i, v := range values {
		out[i] = float32(v)
	}
	return out, nil
}

// -------- helpers --------

func buildContents(history []quiz.Turn, prompt string) []*genai.Content {
	contents := make([]*genai.Content, 0, len(history)+1)
	for _, t := range history {
		var role genai.Role = genai.RoleUser
		if t.Role == quiz.RoleModel {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(t.Text, role))
	}
	return append(contents, genai.NewContentFromText(prompt, genai.RoleUser))
}

// responseConfig asks for schema-constrained JSON where the caller can parse it.
func responseConfig(format quiz.ResponseFormat) *genai.GenerateContentConfig {
	schema := responseSchema(format)
	if schema == nil {
		return nil
	}
	return &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   schema,
	}
}

func responseSchema(format quiz.ResponseFormat) *genai.Schema {
	switch format {
	case quiz.FormatQuestionAnswer:
		return &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"question": {Type: genai.TypeString, Description: "The quiz question shown to the learner"},
				"answer":   {Type: genai.TypeString, Description: "The correct answer to the question"},
			},
			Required: []string{"question", "answer"},
		}
	case quiz.FormatVerdict:
		return &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"verdict":     {Type: genai.TypeString, Enum: []string{"CORRECT", "INCORRECT"}},
				"explanation": {Type: genai.TypeString, Description: "Short explanation when the answer is incorrect"},
			},
			Required: []string{"verdict"},
		}
	default:
		return nil
	}
}

func normalizeWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

var _ quiz.PromptClient = (*GeminiClient)(nil)
var _ resource.Embedder = (*GeminiClient)(nil)
