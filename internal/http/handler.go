package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/josinaldojr/finlit-quiz/internal/quiz"
)

const sessionHeader = "X-Session-ID"

// Handler serves the quiz routes. Upstream deadlines are applied by the quiz
// service, so a slow model still yields the fallback replies.
type Handler struct {
	quiz *quiz.Service
}

func NewHandler(quizService *quiz.Service) *Handler {
	return &Handler{quiz: quizService}
}

// quizRequest covers every route's body; each handler reads its own fields.
type quizRequest struct {
	SessionID string `json:"sessionId"`
	Topic     string `json:"topic"`
	Answer    string `json:"answer"`
	Question  string `json:"question"`
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (h *Handler) GenerateQuestion(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeRequest(w, r)
	if !ok {
		return
	}

	ctx := r.Context()
	question, err := h.quiz.GenerateQuestionWithAnswer(ctx, sessionID(r, req), req.Topic)
	if err != nil {
		h.fail(w, "generating question", err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{"success": true, "question": question})
}

func (h *Handler) SubmitAnswer(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeRequest(w, r)
	if !ok {
		return
	}

	if strings.TrimSpace(req.Answer) == "" {
		respondError(w, http.StatusBadRequest, "Answer cannot be empty")
		return
	}

	ctx := r.Context()
	evaluation, err := h.quiz.EvaluateAnswer(ctx, sessionID(r, req), req.Answer)
	if err != nil {
		h.fail(w, "submitting answer", err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{"success": true, "evaluation": evaluation})
}

func (h *Handler) AskQuestion(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeRequest(w, r)
	if !ok {
		return
	}

	ctx := r.Context()
	response, err := h.quiz.HandleGeneralQuestion(ctx, sessionID(r, req), req.Question)
	if err != nil {
		h.fail(w, "handling question", err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{"success": true, "response": response})
}

func (h *Handler) RevealAnswer(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeRequest(w, r)
	if !ok {
		return
	}

	ctx := r.Context()
	answer, err := h.quiz.GenerateAnswer(ctx, sessionID(r, req))
	if err != nil {
		h.fail(w, "revealing answer", err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{"success": true, "answer": answer})
}

func (h *Handler) ResetChat(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeRequest(w, r)
	if !ok {
		return
	}

	if err := h.quiz.ResetChat(r.Context(), sessionID(r, req)); err != nil {
		h.fail(w, "resetting chat", err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{"success": true, "message": "Chat reset successfully"})
}

func (h *Handler) CreateSession(w http.ResponseWriter, r *http.Request) {
	id := h.quiz.CreateSession(r.Context())
	respondJSON(w, http.StatusCreated, map[string]any{"success": true, "sessionId": id})
}

func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	state, ok := h.quiz.LookupSession(mux.Vars(r)["id"])
	if !ok {
		respondError(w, http.StatusNotFound, "session not found")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"success": true, "session": state})
}

func (h *Handler) fail(w http.ResponseWriter, action string, err error) {
	log.Printf("[http] error %s: %v", action, err)

	switch {
	case errors.Is(err, quiz.ErrEmptyAnswer):
		respondError(w, http.StatusBadRequest, "Answer cannot be empty")
	case errors.Is(err, context.Canceled):
		respondError(w, http.StatusInternalServerError, "request canceled")
	default:
		respondError(w, http.StatusInternalServerError, "Internal server error")
	}
}

// decodeRequest accepts an empty body as an empty request. It writes the 400
// itself when the body is not valid JSON.
func decodeRequest(w http.ResponseWriter, r *http.Request) (quizRequest, bool) {
	var req quizRequest
	if r.Body == nil {
		return req, true
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		respondError(w, http.StatusBadRequest, "invalid json body")
		return quizRequest{}, false
	}
	return req, true
}

func sessionID(r *http.Request, req quizRequest) string {
	if id := strings.TrimSpace(r.Header.Get(sessionHeader)); id != "" {
		return id
	}
	return strings.TrimSpace(req.SessionID)
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("[http] failed to encode response: %v", err)
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]any{"success": false, "error": message})
}
