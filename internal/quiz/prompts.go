package quiz

import (
	"fmt"
	"strings"

	wl "github.com/abadojack/whatlanggo"
)

const safetyInstruction = "Please ensure generated content is safe and appropriate."

const (
	DefaultTopic = "financial literacy"

	fallbackQuestion = "What is an emergency fund and why is it important?"
	fallbackAnswer   = "An emergency fund is money set aside for unexpected expenses..."

	noQuestionMessage   = "No question available."
	answerUnavailable   = "Unable to generate answer at this time."
	answerNotAvailable  = "Answer not available"
	generalApology      = "I apologize, but I am having trouble answering that question at this time."
	evaluationErrPrefix = "Error completing evaluation: "
)

func withSafety(instruction string) string {
	return safetyInstruction + " " + strings.TrimSpace(instruction)
}

func questionWithAnswerPrompt(topic string) string {
	return withSafety(fmt.Sprintf(`
Create a financial literacy question about %s and provide its answer.
Format it exactly like this:

QUESTION: [Your question here]
ANSWER: [The correct answer here]

Make the question practical and educational.
`, topic))
}

func answerPrompt(question string) string {
	return withSafety(fmt.Sprintf(
		"Provide a clear, concise answer to this question: %s. Give a direct answer without extra formatting.",
		question,
	))
}

func evaluationPrompt(question, userAnswer, correctAnswer string) string {
	return withSafety(fmt.Sprintf(`
Question: %s
User's Answer: %s
Correct Answer: %s

Compare the user's answer to the correct answer. If they are similar or the user answer covers key info, respond "CORRECT". Otherwise respond "INCORRECT" with a short explanation.
`, question, userAnswer, correctAnswer))
}

func generalQuestionPrompt(question string) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf(
		"Answer this financial literacy question: %s. Provide a helpful, educational response.",
		question,
	))
	if lang := replyLanguage(question); lang != "" {
		b.WriteString(" Respond in ")
		b.WriteString(lang)
		b.WriteString(".")
	}
	return withSafety(b.String())
}

// replyLanguage names the question's language when it is reliably detected
// and not English. English is the model's default, so it returns "".
func replyLanguage(text string) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return ""
	}
	info := wl.Detect(text)
	if !info.IsReliable() || info.Lang == wl.Eng {
		return ""
	}
	return info.Lang.String()
}
