package telegram

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/josinaldojr/finlit-quiz/internal/quiz"
)

const helpText = `Financial literacy quiz commands:
/question [topic] - get a new question
/reveal - show the answer to the current question
/ask <question> - ask anything about personal finance
/reset - start over
Any other message is taken as your answer.`

type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Bot serves the quiz over Telegram. Each chat gets its own quiz session.
type Bot struct {
	api  *tgbotapi.BotAPI
	out  sender
	quiz *quiz.Service
}

func NewBot(token string, quizService *quiz.Service) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}
	return &Bot{api: api, out: api, quiz: quizService}, nil
}

// Run polls for updates until ctx is cancelled.
func (b *Bot) Run(ctx context.Context) error {
	log.Printf("[telegram] authorised on account %s", b.api.Self.UserName)

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := b.api.GetUpdatesChan(u)
	defer b.api.StopReceivingUpdates()

	for {
		select {
		case <-ctx.Done():
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			if update.Message == nil {
				continue
			}
			b.handleMessage(ctx, update.Message)
		}
	}
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID

	if _, err := b.out.Send(tgbotapi.NewChatAction(chatID, tgbotapi.ChatTyping)); err != nil {
		log.Printf("[telegram] chat action chat=%d: %v", chatID, err)
	}

	reply := b.respond(ctx, sessionID(chatID), msg.Command(), msg.CommandArguments(), msg.Text)

	if _, err := b.out.Send(tgbotapi.NewMessage(chatID, reply)); err != nil {
		log.Printf("[telegram] sending reply chat=%d: %v", chatID, err)
	}
}

// respond maps one incoming message to its reply text. command is empty for
// plain messages, which are evaluated as answers.
func (b *Bot) respond(ctx context.Context, session, command, args, text string) string {
	args = strings.TrimSpace(args)

	switch command {
	case "start", "help":
		return helpText

	case "question":
		question, err := b.quiz.GenerateQuestionWithAnswer(ctx, session, args)
		if err != nil {
			return failureReply(err)
		}
		return "❓ " + question

	case "reveal":
		answer, err := b.quiz.GenerateAnswer(ctx, session)
		if err != nil {
			return failureReply(err)
		}
		return answer

	case "ask":
		if args == "" {
			return "Usage: /ask <question>"
		}
		response, err := b.quiz.HandleGeneralQuestion(ctx, session, args)
		if err != nil {
			return failureReply(err)
		}
		return response

	case "reset":
		if err := b.quiz.ResetChat(ctx, session); err != nil {
			return failureReply(err)
		}
		return "Chat reset successfully"

	case "":
		if strings.TrimSpace(text) == "" {
			return "Answer cannot be empty"
		}
		result, err := b.quiz.EvaluateAnswer(ctx, session, text)
		if err != nil {
			return failureReply(err)
		}
		return formatEvaluation(result)

	default:
		return "Unknown command. Send /help to see what I can do."
	}
}

func formatEvaluation(r *quiz.EvaluationResult) string {
	var b strings.Builder

	if r.IsCorrect {
		b.WriteString("✅ Correct!\n\n")
	} else if r.CorrectAnswer != "" {
		b.WriteString("❌ Not quite.\n\n")
	}
	b.WriteString(r.Message)

	if !r.IsCorrect && r.CorrectAnswer != "" {
		fmt.Fprintf(&b, "\n\nCorrect answer: %s", r.CorrectAnswer)
	}
	if r.Resource != nil {
		fmt.Fprintf(&b, "\n\n📚 Learn more: %s (%s)", r.Resource.Title, r.Resource.Link)
		if r.Resource.Description != "" {
			fmt.Fprintf(&b, "\n%s", r.Resource.Description)
		}
	}

	return b.String()
}

func failureReply(err error) string {
	log.Printf("[telegram] request failed: %v", err)
	return "Sorry, something went wrong. Please try again."
}

func sessionID(chatID int64) string {
	return "tg:" + strconv.FormatInt(chatID, 10)
}
