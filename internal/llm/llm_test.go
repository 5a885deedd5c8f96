package llm

import (
	"context"
	"errors"
	"testing"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"google.golang.org/genai"

	"github.com/josinaldojr/finlit-quiz/internal/quiz"
)

type fakeChatModel struct {
	input []*schema.Message
	reply *schema.Message
	err   error
}

func (f *fakeChatModel) Generate(_ context.Context, input []*schema.Message, _ ...model.Option) (*schema.Message, error) {
	f.input = input
	return f.reply, f.err
}

func TestArkClientSend(t *testing.T) {
	chat := &fakeChatModel{reply: schema.AssistantMessage("  CORRECT  ", nil)}
	client := NewArkClient(chat)

	history := []quiz.Turn{
		{Role: quiz.RoleUser, Text: "earlier prompt"},
		{Role: quiz.RoleModel, Text: "earlier reply"},
	}
	got, err := client.Send(context.Background(), quiz.PromptRequest{History: history, Prompt: "judge this"})
	if err != nil {
		t.Fatalf("Send err: %v", err)
	}
	if got != "CORRECT" {
		t.Fatalf("unexpected reply %q", got)
	}

	if len(chat.input) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(chat.input))
	}
	if chat.input[1].Role != schema.Assistant || chat.input[2].Content != "judge this" {
		t.Fatalf("unexpected messages %+v", chat.input)
	}
}

func TestArkClientWrapsErrors(t *testing.T) {
	client := NewArkClient(&fakeChatModel{err: errors.New("rate limited")})

	_, err := client.Send(context.Background(), quiz.PromptRequest{Prompt: "hi"})
	var upstream *quiz.UpstreamError
	if !errors.As(err, &upstream) || upstream.Service != "ark" {
		t.Fatalf("expected ark UpstreamError, got %v", err)
	}

	client = NewArkClient(&fakeChatModel{reply: schema.AssistantMessage("   ", nil)})
	if _, err := client.Send(context.Background(), quiz.PromptRequest{Prompt: "hi"}); err == nil {
		t.Fatal("empty reply should be an error")
	}
}

func TestBuildContents(t *testing.T) {
	contents := buildContents([]quiz.Turn{
		{Role: quiz.RoleUser, Text: "q"},
		{Role: quiz.RoleModel, Text: "a"},
	}, "next")

	if len(contents) != 3 {
		t.Fatalf("expected 3 contents, got %d", len(contents))
	}
	if contents[1].Role != string(genai.RoleModel) || contents[2].Role != string(genai.RoleUser) {
		t.Fatalf("unexpected roles %q %q", contents[1].Role, contents[2].Role)
	}
	if contents[2].Parts[0].Text != "next" {
		t.Fatalf("prompt must be last, got %q", contents[2].Parts[0].Text)
	}
}

func TestResponseConfig(t *testing.T) {
	if responseConfig(quiz.FormatText) != nil {
		t.Fatal("plain text needs no response config")
	}

	cfg := responseConfig(quiz.FormatVerdict)
	if cfg == nil || cfg.ResponseMIMEType != "application/json" {
		t.Fatalf("unexpected verdict config %+v", cfg)
	}
	if _, ok := cfg.ResponseSchema.Properties["verdict"]; !ok {
		t.Fatal("verdict schema must declare a verdict property")
	}

	qa := responseConfig(quiz.FormatQuestionAnswer)
	if qa == nil || len(qa.ResponseSchema.Required) != 2 {
		t.Fatalf("unexpected question config %+v", qa)
	}
}

func TestNormalizeWhitespace(t *testing.T) {
	if got := normalizeWhitespace("  a \n\t b  "); got != "a b" {
		t.Fatalf("unexpected %q", got)
	}
}
