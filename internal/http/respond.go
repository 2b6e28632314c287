package http

import (
	"encoding/json"
	"net/http"

	"tally/internal/log"
)

// messageResponse is the uniform envelope for acks and errors.
type messageResponse struct {
	Message string `json:"message"`
}

// authResponse carries the sanitized user and a fresh token.
type authResponse struct {
	User  any    `json:"user"`
	Token string `json:"token"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.New(log.ComponentHTTP).Error("failed to encode response", log.FieldError, err)
	}
}

func writeMessage(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, messageResponse{Message: message})
}

// writeServerError hides internals behind a generic message. The real
// error goes to the log, never to the client.
func writeServerError(w http.ResponseWriter, r *http.Request, err error) {
	log.FromContext(r.Context()).ErrorContext(r.Context(), "request failed",
		"method", r.Method, "path", r.URL.Path, log.FieldError, err)
	writeMessage(w, http.StatusInternalServerError, "Internal server error")
}
