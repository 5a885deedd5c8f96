package quiz

import (
	"encoding/json"
	"regexp"
	"strings"
)

const (
	questionMarker = "QUESTION:"
	answerMarker   = "ANSWER:"
)

var answerLabel = regexp.MustCompile(`(?i)^answer:\s*`)

type questionAnswerPayload struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

type verdictPayload struct {
	Verdict     string `json:"verdict"`
	Explanation string `json:"explanation"`
}

// parseQuestionAnswer reads a generated question/answer pair. A structured
// JSON reply wins; otherwise the QUESTION:/ANSWER: markers are used.
func parseQuestionAnswer(text string) (question, answer string, ok bool) {
	text = strings.TrimSpace(text)

	var p questionAnswerPayload
	if err := json.Unmarshal([]byte(stripCodeFence(text)), &p); err == nil {
		q, a := strings.TrimSpace(p.Question), strings.TrimSpace(p.Answer)
		if q != "" && a != "" {
			return q, a, true
		}
	}

	if !strings.Contains(text, questionMarker) || !strings.Contains(text, answerMarker) {
		return "", "", false
	}

	parts := strings.Split(text, answerMarker)
	question = strings.TrimSpace(strings.Replace(parts[0], questionMarker, "", 1))
	answer = strings.TrimSpace(parts[1])
	if question == "" || answer == "" {
		return "", "", false
	}
	return question, answer, true
}

// parseVerdict decides correctness. The substring rule is literal: any reply
// containing INCORRECT is wrong, even when CORRECT also appears.
func parseVerdict(text string) (correct bool, message string) {
	text = strings.TrimSpace(text)

	var p verdictPayload
	if err := json.Unmarshal([]byte(stripCodeFence(text)), &p); err == nil && p.Verdict != "" {
		verdict := strings.ToUpper(strings.TrimSpace(p.Verdict))
		message = strings.TrimSpace(verdict + " " + strings.TrimSpace(p.Explanation))
		return verdict == "CORRECT", message
	}

	upper := strings.ToUpper(text)
	return strings.Contains(upper, "CORRECT") && !strings.Contains(upper, "INCORRECT"), text
}

func cleanAnswer(text string) string {
	return strings.TrimSpace(answerLabel.ReplaceAllString(strings.TrimSpace(text), ""))
}

// stripCodeFence unwraps ```json ... ``` blocks some models add around JSON.
func stripCodeFence(text string) string {
	if !strings.HasPrefix(text, "```") {
		return text
	}
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimPrefix(text, "json")
	text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	return strings.TrimSpace(text)
}
