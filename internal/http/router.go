package http

import (
	"net/http"

	"github.com/gorilla/mux"
)

func NewRouter(h *Handler, allowedOrigins []string) http.Handler {
	r := mux.NewRouter()
	r.Use(loggingMiddleware)
	r.Use(corsMiddleware(allowedOrigins))

	r.HandleFunc("/health", h.Health).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/generate_question", h.GenerateQuestion).Methods(http.MethodPost, http.MethodOptions)
	api.HandleFunc("/submit_answer", h.SubmitAnswer).Methods(http.MethodPost, http.MethodOptions)
	api.HandleFunc("/ask_question", h.AskQuestion).Methods(http.MethodPost, http.MethodOptions)
	api.HandleFunc("/reset_chat", h.ResetChat).Methods(http.MethodPost, http.MethodOptions)
	api.HandleFunc("/reveal_answer", h.RevealAnswer).Methods(http.MethodPost, http.MethodOptions)
	api.HandleFunc("/session", h.CreateSession).Methods(http.MethodPost, http.MethodOptions)
	api.HandleFunc("/session/{id}", h.GetSession).Methods(http.MethodGet, http.MethodOptions)

	return r
}
