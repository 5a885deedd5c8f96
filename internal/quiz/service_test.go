package quiz

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
)

// scriptedPrompts replies with the queued texts in order and records requests.
type scriptedPrompts struct {
	mu       sync.Mutex
	replies  []string
	err      error
	requests []PromptRequest
}

func (p *scriptedPrompts) Send(_ context.Context, req PromptRequest) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.requests = append(p.requests, req)
	if p.err != nil {
		return "", p.err
	}
	if len(p.replies) == 0 {
		return "", errors.New("no scripted reply")
	}
	r := p.replies[0]
	p.replies = p.replies[1:]
	return r, nil
}

func (p *scriptedPrompts) calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.requests)
}

type countingFinder struct {
	calls int
	query string
	ref   *ResourceRef
}

func (f *countingFinder) FindResource(_ context.Context, text string) *ResourceRef {
	f.calls++
	f.query = text
	return f.ref
}

func newTestService(prompts PromptClient, finder ResourceFinder) *Service {
	return NewService(prompts, finder, NewSessionStore(), Options{})
}

func TestGenerateQuestionWithAnswerParsesMarkers(t *testing.T) {
	prompts := &scriptedPrompts{replies: []string{
		"QUESTION: What is compound interest?\nANSWER: Interest earned on interest.",
	}}
	svc := newTestService(prompts, nil)

	q, err := svc.GenerateQuestionWithAnswer(context.Background(), "", "savings")
	if err != nil {
		t.Fatalf("GenerateQuestionWithAnswer err: %v", err)
	}
	if q != "What is compound interest?" {
		t.Fatalf("unexpected question: %q", q)
	}

	state := svc.Session(DefaultSessionID)
	if state.CorrectAnswer != "Interest earned on interest." {
		t.Fatalf("unexpected stored answer: %q", state.CorrectAnswer)
	}
	if !strings.Contains(prompts.requests[0].Prompt, "about savings") {
		t.Fatalf("topic missing from prompt: %q", prompts.requests[0].Prompt)
	}
	if prompts.requests[0].Format != FormatQuestionAnswer {
		t.Fatalf("expected question/answer format, got %v", prompts.requests[0].Format)
	}
}

func TestGenerateQuestionWithAnswerPrefersJSON(t *testing.T) {
	prompts := &scriptedPrompts{replies: []string{
		`{"question":"What does APR stand for?","answer":"Annual percentage rate."}`,
	}}
	svc := newTestService(prompts, nil)

	q, _ := svc.GenerateQuestionWithAnswer(context.Background(), "s1", "")
	if q != "What does APR stand for?" {
		t.Fatalf("unexpected question: %q", q)
	}
	if got := svc.Session("s1").CorrectAnswer; got != "Annual percentage rate." {
		t.Fatalf("unexpected answer: %q", got)
	}
}

func TestGenerateQuestionWithAnswerDefaultTopic(t *testing.T) {
	prompts := &scriptedPrompts{replies: []string{"QUESTION: q\nANSWER: a"}}
	svc := newTestService(prompts, nil)

	if _, err := svc.GenerateQuestionWithAnswer(context.Background(), "", "   "); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if !strings.Contains(prompts.requests[0].Prompt, "about financial literacy") {
		t.Fatalf("default topic not used: %q", prompts.requests[0].Prompt)
	}
}

func TestGenerateQuestionWithAnswerFallbacks(t *testing.T) {
	cases := map[string]*scriptedPrompts{
		"no markers":     {replies: []string{"Here is a question about budgets."}},
		"empty answer":   {replies: []string{"QUESTION: What is a budget?\nANSWER:   "}},
		"upstream error": {err: NewUpstreamError("gemini", errors.New("boom"))},
	}

	for name, prompts := range cases {
		t.Run(name, func(t *testing.T) {
			svc := newTestService(prompts, nil)

			q, err := svc.GenerateQuestionWithAnswer(context.Background(), "", "")
			if err != nil {
				t.Fatalf("unexpected err: %v", err)
			}
			if q != fallbackQuestion {
				t.Fatalf("expected fallback question, got %q", q)
			}
			if got := svc.Session("").CorrectAnswer; got != fallbackAnswer {
				t.Fatalf("expected fallback answer, got %q", got)
			}
		})
	}
}

func TestEvaluateAnswerWithoutQuestion(t *testing.T) {
	prompts := &scriptedPrompts{}
	finder := &countingFinder{}
	svc := newTestService(prompts, finder)

	res, err := svc.EvaluateAnswer(context.Background(), "", "an answer")
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if res.IsCorrect || res.Message != "No question available." {
		t.Fatalf("unexpected result: %+v", res)
	}
	if prompts.calls() != 0 || finder.calls != 0 {
		t.Fatalf("expected no upstream calls, got prompts=%d lookups=%d", prompts.calls(), finder.calls)
	}
}

func TestEvaluateAnswerRejectsBlankAnswer(t *testing.T) {
	svc := newTestService(&scriptedPrompts{}, nil)

	for _, answer := range []string{"", "   "} {
		if _, err := svc.EvaluateAnswer(context.Background(), "", answer); !errors.Is(err, ErrEmptyAnswer) {
			t.Fatalf("answer %q: expected ErrEmptyAnswer, got %v", answer, err)
		}
	}
}

func TestEvaluateAnswerCorrect(t *testing.T) {
	prompts := &scriptedPrompts{replies: []string{"QUESTION: q\nANSWER: a", "CORRECT"}}
	finder := &countingFinder{}
	svc := newTestService(prompts, finder)
	ctx := context.Background()

	if _, err := svc.GenerateQuestionWithAnswer(ctx, "", ""); err != nil {
		t.Fatalf("generate err: %v", err)
	}
	res, err := svc.EvaluateAnswer(ctx, "", "a")
	if err != nil {
		t.Fatalf("evaluate err: %v", err)
	}
	if !res.IsCorrect {
		t.Fatalf("expected correct, got %+v", res)
	}
	if res.CorrectAnswer != "a" {
		t.Fatalf("unexpected correct answer %q", res.CorrectAnswer)
	}
	if finder.calls != 0 {
		t.Fatalf("lookup must not run for correct answers, ran %d times", finder.calls)
	}
}

func TestEvaluateAnswerIncorrectLooksUpResource(t *testing.T) {
	prompts := &scriptedPrompts{replies: []string{
		"QUESTION: What is a credit score?\nANSWER: A number summarizing credit risk.",
		"INCORRECT, explanation...",
	}}
	ref := &ResourceRef{Title: "Credit 101", Link: "https://example.com/credit", Description: "basics"}
	finder := &countingFinder{ref: ref}
	svc := newTestService(prompts, finder)
	ctx := context.Background()

	_, _ = svc.GenerateQuestionWithAnswer(ctx, "", "")
	res, err := svc.EvaluateAnswer(ctx, "", "my bank balance")
	if err != nil {
		t.Fatalf("evaluate err: %v", err)
	}
	if res.IsCorrect {
		t.Fatalf("expected incorrect, got %+v", res)
	}
	if finder.calls != 1 {
		t.Fatalf("expected exactly one lookup, got %d", finder.calls)
	}
	if finder.query != "A number summarizing credit risk." {
		t.Fatalf("lookup should use the reference answer, got %q", finder.query)
	}
	if res.Resource != ref {
		t.Fatalf("resource not attached: %+v", res.Resource)
	}
}

func TestEvaluateAnswerIncorrectWithoutLookup(t *testing.T) {
	prompts := &scriptedPrompts{replies: []string{"QUESTION: q\nANSWER: a", "INCORRECT"}}
	svc := newTestService(prompts, nil)
	ctx := context.Background()

	_, _ = svc.GenerateQuestionWithAnswer(ctx, "", "")
	res, err := svc.EvaluateAnswer(ctx, "", "b")
	if err != nil {
		t.Fatalf("evaluate err: %v", err)
	}
	if res.IsCorrect || res.Resource != nil {
		t.Fatalf("unexpected result: %+v", res)
	}
}

func TestEvaluateAnswerGeneratesMissingReference(t *testing.T) {
	prompts := &scriptedPrompts{replies: []string{"Answer: Spend less than you earn.", "CORRECT"}}
	store := NewSessionStore()
	svc := NewService(prompts, nil, store, Options{})

	sess := store.Acquire("")
	sess.Lock()
	sess.SetQuestionAndAnswer("How do you avoid debt?", "")
	sess.Unlock()

	res, err := svc.EvaluateAnswer(context.Background(), "", "spend less")
	if err != nil {
		t.Fatalf("evaluate err: %v", err)
	}
	if res.CorrectAnswer != "Spend less than you earn." {
		t.Fatalf("reference answer not generated: %q", res.CorrectAnswer)
	}
	if prompts.calls() != 2 {
		t.Fatalf("expected answer + evaluation calls, got %d", prompts.calls())
	}
}

func TestEvaluateAnswerUpstreamFailure(t *testing.T) {
	prompts := &scriptedPrompts{replies: []string{"QUESTION: q\nANSWER: a"}}
	svc := newTestService(prompts, nil)
	ctx := context.Background()

	_, _ = svc.GenerateQuestionWithAnswer(ctx, "", "")
	prompts.err = NewUpstreamError("gemini", errors.New("quota exceeded"))

	res, err := svc.EvaluateAnswer(ctx, "", "b")
	if err != nil {
		t.Fatalf("evaluate err: %v", err)
	}
	if res.IsCorrect || !strings.HasPrefix(res.Message, "Error completing evaluation: ") {
		t.Fatalf("unexpected result: %+v", res)
	}
	if res.CorrectAnswer != "a" {
		t.Fatalf("unexpected correct answer %q", res.CorrectAnswer)
	}
}

func TestEvaluateAnswerCanceledContext(t *testing.T) {
	prompts := &scriptedPrompts{replies: []string{"QUESTION: q\nANSWER: a"}}
	svc := newTestService(prompts, nil)

	_, _ = svc.GenerateQuestionWithAnswer(context.Background(), "", "")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	prompts.err = context.Canceled

	if _, err := svc.EvaluateAnswer(ctx, "", "b"); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestGenerateAnswer(t *testing.T) {
	prompts := &scriptedPrompts{replies: []string{"QUESTION: q\nANSWER: a"}}
	svc := newTestService(prompts, nil)
	ctx := context.Background()

	got, _ := svc.GenerateAnswer(ctx, "")
	if got != "No question available." {
		t.Fatalf("expected no-question message, got %q", got)
	}

	_, _ = svc.GenerateQuestionWithAnswer(ctx, "", "")
	got, _ = svc.GenerateAnswer(ctx, "")
	if got != "a" {
		t.Fatalf("expected cached answer, got %q", got)
	}
	if prompts.calls() != 1 {
		t.Fatalf("cached answer must not call upstream, calls=%d", prompts.calls())
	}
}

func TestHandleGeneralQuestion(t *testing.T) {
	prompts := &scriptedPrompts{replies: []string{"Diversification spreads risk."}}
	svc := newTestService(prompts, nil)

	got, err := svc.HandleGeneralQuestion(context.Background(), "", "What is diversification?")
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if got != "Diversification spreads risk." {
		t.Fatalf("unexpected response %q", got)
	}
	if svc.Session("").CurrentQuestion != "" {
		t.Fatal("general questions must not set the active question")
	}

	prompts.err = errors.New("down")
	got, _ = svc.HandleGeneralQuestion(context.Background(), "", "anything")
	if got != generalApology {
		t.Fatalf("expected apology, got %q", got)
	}
}

func TestResetChatIsIdempotent(t *testing.T) {
	prompts := &scriptedPrompts{replies: []string{"QUESTION: q\nANSWER: a"}}
	svc := newTestService(prompts, nil)
	ctx := context.Background()

	_, _ = svc.GenerateQuestionWithAnswer(ctx, "", "")
	for i := 0; i < 2; i++ {
		if err := svc.ResetChat(ctx, ""); err != nil {
			t.Fatalf("reset err: %v", err)
		}
		state := svc.Session("")
		if state.CurrentQuestion != "" || state.CorrectAnswer != "" || state.Turns != 0 {
			t.Fatalf("session not empty after reset %d: %+v", i+1, state)
		}
	}

	res, _ := svc.EvaluateAnswer(ctx, "", "a")
	if res.Message != "No question available." {
		t.Fatalf("expected empty-state result after reset, got %+v", res)
	}
}

func TestSessionsAreIsolated(t *testing.T) {
	prompts := &scriptedPrompts{replies: []string{
		"QUESTION: first?\nANSWER: one",
		"QUESTION: second?\nANSWER: two",
	}}
	svc := newTestService(prompts, nil)
	ctx := context.Background()

	a := svc.CreateSession(ctx)
	b := svc.CreateSession(ctx)
	_, _ = svc.GenerateQuestionWithAnswer(ctx, a, "")
	_, _ = svc.GenerateQuestionWithAnswer(ctx, b, "")

	if got := svc.Session(a).CurrentQuestion; got != "first?" {
		t.Fatalf("session a: %q", got)
	}
	if got := svc.Session(b).CurrentQuestion; got != "second?" {
		t.Fatalf("session b: %q", got)
	}
	if len(prompts.requests[1].History) != 0 {
		t.Fatal("session b must not see session a's history")
	}
}

func TestHistoryIsCapped(t *testing.T) {
	replies := make([]string, 10)
	for i := range replies {
		replies[i] = "reply"
	}
	prompts := &scriptedPrompts{replies: replies}
	svc := NewService(prompts, nil, NewSessionStore(), Options{HistoryLimit: 4})

	for i := 0; i < 10; i++ {
		_, _ = svc.HandleGeneralQuestion(context.Background(), "", "q")
	}

	if got := svc.Session("").Turns; got != 4 {
		t.Fatalf("expected 4 turns, got %d", got)
	}
	last := prompts.requests[len(prompts.requests)-1]
	if len(last.History) != 4 || last.History[0].Role != RoleUser {
		t.Fatalf("unexpected history sent upstream: %+v", last.History)
	}
}
