package quiz

import (
	"context"
	"log"
	"strings"
	"time"
)

const (
	defaultHistoryLimit    = 20
	defaultUpstreamTimeout = 30 * time.Second
)

type Options struct {
	// HistoryLimit caps the turns kept per session; <= 0 uses the default.
	HistoryLimit int
	DefaultTopic string
	// UpstreamTimeout bounds each prompt client call. An expired call is an
	// upstream failure and takes the fallback path; <= 0 uses the default.
	UpstreamTimeout time.Duration
}

// Service runs the quiz flow: question generation, answer evaluation, free
// questions and resets. Each operation holds its session lock for its whole
// duration, so calls on one session are serialized while distinct sessions
// run concurrently.
type Service struct {
	prompts      PromptClient
	resources    ResourceFinder
	sessions     *SessionStore
	historyLimit int
	defaultTopic string
	timeout      time.Duration
}

// NewService wires the orchestrator. resources may be nil when no resource
// index is configured.
func NewService(prompts PromptClient, resources ResourceFinder, sessions *SessionStore, opts Options) *Service {
	if sessions == nil {
		sessions = NewSessionStore()
	}
	limit := opts.HistoryLimit
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	topic := strings.TrimSpace(opts.DefaultTopic)
	if topic == "" {
		topic = DefaultTopic
	}
	timeout := opts.UpstreamTimeout
	if timeout <= 0 {
		timeout = defaultUpstreamTimeout
	}

	return &Service{
		prompts:      prompts,
		resources:    resources,
		sessions:     sessions,
		historyLimit: limit,
		defaultTopic: topic,
		timeout:      timeout,
	}
}

func (s *Service) CreateSession(_ context.Context) string {
	return s.sessions.Create().ID()
}

// Session returns the state of sessionID, or an empty state when the session
// does not exist. It never creates a session.
func (s *Service) Session(sessionID string) SessionState {
	state, _ := s.LookupSession(sessionID)
	return state
}

func (s *Service) LookupSession(sessionID string) (SessionState, bool) {
	sess, ok := s.sessions.Lookup(sessionID)
	if !ok {
		return SessionState{ID: normalizeID(sessionID)}, false
	}
	return sess.Snapshot(), true
}

// GenerateQuestionWithAnswer stores a fresh question and its reference answer
// and returns only the question. Upstream or parse failures fall back to a
// canned pair.
func (s *Service) GenerateQuestionWithAnswer(ctx context.Context, sessionID, topic string) (string, error) {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		topic = s.defaultTopic
	}

	sess := s.sessions.Acquire(sessionID)
	sess.Lock()
	defer sess.Unlock()

	text, err := s.send(ctx, sess, questionWithAnswerPrompt(topic), FormatQuestionAnswer)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		log.Printf("[quiz] generating question session=%s topic=%q: %v", sess.ID(), topic, err)
		sess.SetQuestionAndAnswer(fallbackQuestion, fallbackAnswer)
		return fallbackQuestion, nil
	}

	question, answer, ok := parseQuestionAnswer(text)
	if !ok {
		log.Printf("[quiz] unparseable question reply session=%s, using fallback", sess.ID())
		question, answer = fallbackQuestion, fallbackAnswer
	}

	sess.SetQuestionAndAnswer(question, answer)
	return question, nil
}

// GenerateAnswer returns the reference answer for the active question,
// generating and caching it when missing.
func (s *Service) GenerateAnswer(ctx context.Context, sessionID string) (string, error) {
	sess, ok := s.sessions.Lookup(sessionID)
	if !ok {
		return noQuestionMessage, nil
	}
	sess.Lock()
	defer sess.Unlock()

	if sess.currentQuestion == "" {
		return noQuestionMessage, nil
	}
	if sess.correctAnswer != "" {
		return sess.correctAnswer, nil
	}
	return s.generateAnswerLocked(ctx, sess)
}

func (s *Service) generateAnswerLocked(ctx context.Context, sess *Session) (string, error) {
	text, err := s.send(ctx, sess, answerPrompt(sess.currentQuestion), FormatText)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		log.Printf("[quiz] generating answer session=%s: %v", sess.ID(), err)
		sess.setAnswer(answerUnavailable)
		return answerUnavailable, nil
	}

	answer := cleanAnswer(text)
	if answer == "" {
		answer = answerUnavailable
	}
	sess.setAnswer(answer)
	return answer, nil
}

// EvaluateAnswer judges userAnswer against the session's reference answer.
// A wrong answer triggers one resource lookup when an index is configured.
func (s *Service) EvaluateAnswer(ctx context.Context, sessionID, userAnswer string) (*EvaluationResult, error) {
	if strings.TrimSpace(userAnswer) == "" {
		return nil, ErrEmptyAnswer
	}

	sess, ok := s.sessions.Lookup(sessionID)
	if !ok {
		return &EvaluationResult{IsCorrect: false, Message: noQuestionMessage}, nil
	}
	sess.Lock()
	defer sess.Unlock()

	if sess.currentQuestion == "" {
		return &EvaluationResult{IsCorrect: false, Message: noQuestionMessage}, nil
	}

	if sess.correctAnswer == "" {
		if _, err := s.generateAnswerLocked(ctx, sess); err != nil {
			return nil, err
		}
	}

	text, err := s.send(ctx, sess, evaluationPrompt(sess.currentQuestion, userAnswer, sess.correctAnswer), FormatVerdict)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		log.Printf("[quiz] evaluating answer session=%s: %v", sess.ID(), err)
		correct := sess.correctAnswer
		if correct == "" {
			correct = answerNotAvailable
		}
		return &EvaluationResult{
			IsCorrect:     false,
			Message:       evaluationErrPrefix + err.Error(),
			CorrectAnswer: correct,
		}, nil
	}

	isCorrect, message := parseVerdict(text)
	result := &EvaluationResult{
		IsCorrect:     isCorrect,
		Message:       message,
		CorrectAnswer: sess.correctAnswer,
	}

	if !isCorrect && s.resources != nil {
		if ref := s.resources.FindResource(ctx, sess.correctAnswer); ref != nil {
			result.Resource = ref
		}
	}

	return result, nil
}

// HandleGeneralQuestion answers an arbitrary question. It extends the
// conversation context but leaves the active question untouched.
func (s *Service) HandleGeneralQuestion(ctx context.Context, sessionID, question string) (string, error) {
	sess := s.sessions.Acquire(sessionID)
	sess.Lock()
	defer sess.Unlock()

	text, err := s.send(ctx, sess, generalQuestionPrompt(question), FormatText)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		log.Printf("[quiz] answering general question session=%s: %v", sess.ID(), err)
		return generalApology, nil
	}
	return text, nil
}

// ResetChat empties the session. Resetting an empty or unknown session is a
// no-op.
func (s *Service) ResetChat(_ context.Context, sessionID string) error {
	sess, ok := s.sessions.Lookup(sessionID)
	if !ok {
		return nil
	}
	sess.Lock()
	sess.Clear()
	sess.Unlock()

	log.Printf("[quiz] session=%s reset", sess.ID())
	return nil
}

// send calls the prompt client with the session's history and records the
// exchange on success. The caller holds the session lock. The call runs under
// its own deadline, so callers only see ctx.Err() when their own ctx ended.
func (s *Service) send(ctx context.Context, sess *Session, prompt string, format ResponseFormat) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	text, err := s.prompts.Send(callCtx, PromptRequest{
		History: sess.historyCopy(),
		Prompt:  prompt,
		Format:  format,
	})
	if err != nil {
		return "", err
	}

	sess.remember(s.historyLimit, prompt, text)
	return text, nil
}
