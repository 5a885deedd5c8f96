package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/josinaldojr/finlit-quiz/internal/quiz"
)

const arkService = "ark"

// generator is the part of an eino chat model the quiz needs.
type generator interface {
	Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error)
}

// ArkClient sends prompts through an eino chat model (Volcengine Ark). It has
// no schema support, so structured formats degrade to plain text.
type ArkClient struct {
	chat generator
}

func NewArkClient(chat generator) *ArkClient {
	return &ArkClient{chat: chat}
}

func (a *ArkClient) Send(ctx context.Context, req quiz.PromptRequest) (string, error) {
	resp, err := a.chat.Generate(ctx, buildMessages(req.History, req.Prompt))
	if err != nil {
		return "", quiz.NewUpstreamError(arkService, fmt.Errorf("generate: %w", err))
	}
	if resp == nil {
		return "", quiz.NewUpstreamError(arkService, fmt.Errorf("empty response"))
	}

	txt := strings.TrimSpace(resp.Content)
	if txt == "" {
		return "", quiz.NewUpstreamError(arkService, fmt.Errorf("model returned empty text"))
	}
	return txt, nil
}

func buildMessages(history []quiz.Turn, prompt string) []*schema.Message {
	msgs := make([]*schema.Message, 0, len(history)+1)
	for _, t := range history {
		switch t.Role {
		case quiz.RoleUser:
			msgs = append(msgs, schema.UserMessage(t.Text))
		case quiz.RoleModel:
			msgs = append(msgs, schema.AssistantMessage(t.Text, nil))
		}
	}
	return append(msgs, schema.UserMessage(prompt))
}

var _ quiz.PromptClient = (*ArkClient)(nil)
