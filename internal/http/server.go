// Package http exposes the API surface: auth, profile and the two
// ledgers.
package http

import (
	"context"
	"net/http"
	"time"

	"tally/internal/auth"
	"tally/internal/core"
	"tally/internal/log"
	"tally/internal/services"
)

type Server struct {
	http.Server
	authSvc   *services.AuthService
	ledgerSvc *services.LedgerService
	tokens    *auth.TokenService
	logger    *log.Logger
}

func NewServer(addr string, authSvc *services.AuthService, ledgerSvc *services.LedgerService, tokens *auth.TokenService) *Server {
	s := &Server{
		authSvc:   authSvc,
		ledgerSvc: ledgerSvc,
		tokens:    tokens,
		logger:    log.New(log.ComponentHTTP),
	}

	s.Server = http.Server{
		Addr:         addr,
		Handler:      s.trace(securityHeaders(s.routes())),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleHealth)

	mux.HandleFunc("POST /signup", s.handleSignup)
	mux.HandleFunc("POST /login", s.handleLogin)

	mux.HandleFunc("GET /profile", s.requireAuth(s.handleGetProfile))
	mux.HandleFunc("PUT /profile", s.requireAuth(s.handleUpdateProfile))
	mux.HandleFunc("PUT /password", s.requireAuth(s.handleUpdatePassword))
	mux.HandleFunc("PUT /profile-picture", s.requireAuth(s.handleUpdatePicture))

	mux.HandleFunc("POST /add-income", s.requireAuth(s.handleAdd(core.Income)))
	mux.HandleFunc("GET /get-incomes", s.requireAuth(s.handleList(core.Income)))
	mux.HandleFunc("DELETE /delete-income/{id}", s.requireAuth(s.handleDelete(core.Income)))

	mux.HandleFunc("POST /add-expense", s.requireAuth(s.handleAdd(core.Expense)))
	mux.HandleFunc("GET /get-expenses", s.requireAuth(s.handleList(core.Expense)))
	mux.HandleFunc("DELETE /delete-expense/{id}", s.requireAuth(s.handleDelete(core.Expense)))

	mux.HandleFunc("GET /summary", s.requireAuth(s.handleSummary))

	return mux
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeMessage(w, http.StatusOK, "ok")
}

// Shutdown stops accepting connections and drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.Server.Shutdown(ctx)
}
