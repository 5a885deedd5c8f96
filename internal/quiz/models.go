package quiz

import "time"

// Role marks who produced a conversation turn.
type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

// Turn is one message of the conversation context sent upstream.
type Turn struct {
	Role Role
	Text string
}

// ResponseFormat tells the prompt client which structured shape the caller
// can parse. Clients that cannot enforce a schema ignore it.
type ResponseFormat int

const (
	FormatText ResponseFormat = iota
	FormatQuestionAnswer
	FormatVerdict
)

type PromptRequest struct {
	History []Turn
	Prompt  string
	Format  ResponseFormat
}

// ResourceRef points the learner at reading material after a wrong answer.
type ResourceRef struct {
	Title       string `json:"title"`
	Link        string `json:"link"`
	Description string `json:"description"`
}

// EvaluationResult keeps the snake_case wire shape the web client already reads.
type EvaluationResult struct {
	IsCorrect     bool         `json:"is_correct"`
	Message       string       `json:"message"`
	CorrectAnswer string       `json:"correct_answer,omitempty"`
	Resource      *ResourceRef `json:"resource,omitempty"`
}

// SessionState is a read-only copy of a session.
type SessionState struct {
	ID              string    `json:"id"`
	CurrentQuestion string    `json:"currentQuestion"`
	CorrectAnswer   string    `json:"-"`
	Turns           int       `json:"turns"`
	UpdatedAt       time.Time `json:"updatedAt"`
}
