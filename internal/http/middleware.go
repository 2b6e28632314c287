package http

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"net/http"
	"strings"
	"time"

	"tally/internal/log"
)

type contextKey string

const (
	requestIDKey contextKey = "request_id"
	userIDKey    contextKey = "user_id"
)

// UserID returns the authenticated user's ID, set by requireAuth.
func UserID(ctx context.Context) string {
	id, _ := ctx.Value(userIDKey).(string)
	return id
}

// RequestID returns the request's trace ID.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

func generateRequestID() string {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		return "unknown"
	}
	return hex.EncodeToString(buf)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// trace assigns each request an ID, attaches a request-scoped logger to
// the context and logs completion with the status code and duration.
func (s *Server) trace(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := generateRequestID()

		logger := s.logger.With(log.FieldRequestID, requestID)
		ctx := context.WithValue(r.Context(), requestIDKey, requestID)
		ctx = log.IntoContext(ctx, logger)
		r = r.WithContext(ctx)

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		level := "info"
		switch {
		case rec.status >= 500:
			level = "error"
		case rec.status >= 400:
			level = "warn"
		}
		attrs := []any{
			"method", r.Method,
			"path", r.URL.Path,
			"status_code", rec.status,
			"duration_ms", time.Since(start).Milliseconds(),
		}
		switch level {
		case "error":
			logger.ErrorContext(ctx, "request completed", attrs...)
		case "warn":
			logger.WarnContext(ctx, "request completed", attrs...)
		default:
			logger.InfoContext(ctx, "request completed", attrs...)
		}
	})
}

// securityHeaders sets the baseline response headers for an API that
// never serves markup.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "no-referrer")
		next.ServeHTTP(w, r)
	})
}

// requireAuth is a pure token gate: it verifies the Bearer token and
// stores the claimed user ID in the context. No database lookup happens
// here; a token for a since-deleted user fails at the operation instead.
func (s *Server) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" || !strings.HasPrefix(header, "Bearer ") {
			writeMessage(w, http.StatusUnauthorized, "Access denied. No token provided.")
			return
		}

		token := strings.TrimPrefix(header, "Bearer ")
		userID, err := s.tokens.Verify(token)
		if err != nil {
			writeMessage(w, http.StatusUnauthorized, "Invalid token")
			return
		}

		ctx := context.WithValue(r.Context(), userIDKey, userID)
		ctx = log.IntoContext(ctx, log.FromContext(ctx).With(log.FieldUserID, userID))
		next.ServeHTTP(w, r.WithContext(ctx))
	}
}
