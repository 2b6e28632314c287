package http

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"tally/internal/core"
	"tally/internal/services"
	"tally/internal/storage"
)

// flexString accepts either a JSON string or a bare number, so clients
// may send `"amount": 12.34` or `"amount": "12.34"`. The domain parser
// decides whether the content is valid.
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if s == "null" {
		*f = ""
		return nil
	}
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}
	*f = flexString(s)
	return nil
}

type addTransactionRequest struct {
	Title       string     `json:"title"`
	Amount      flexString `json:"amount"`
	Category    string     `json:"category"`
	Description string     `json:"description"`
	Date        flexString `json:"date"`
}

func writeLedgerError(w http.ResponseWriter, r *http.Request, kind core.Kind, err error) {
	switch {
	case errors.Is(err, core.ErrEmptyTitle),
		errors.Is(err, core.ErrEmptyCategory):
		writeMessage(w, http.StatusBadRequest, "All fields are required")
	case errors.Is(err, core.ErrInvalidAmount):
		writeMessage(w, http.StatusBadRequest, "Amount must be a positive number")
	case errors.Is(err, core.ErrInvalidDate):
		writeMessage(w, http.StatusBadRequest, "Invalid date format")
	case errors.Is(err, storage.ErrNotFound):
		writeMessage(w, http.StatusNotFound, kind.Noun()+" not found")
	default:
		writeServerError(w, r, err)
	}
}

func (s *Server) handleAdd(kind core.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req addTransactionRequest
		if !decodeBody(w, r, &req) {
			return
		}

		tx, err := s.ledgerSvc.Add(r.Context(), kind, UserID(r.Context()), services.AddTransactionInput{
			Title:       req.Title,
			Amount:      string(req.Amount),
			Category:    req.Category,
			Description: req.Description,
			Date:        string(req.Date),
		})
		if err != nil {
			writeLedgerError(w, r, kind, err)
			return
		}

		writeJSON(w, http.StatusOK, struct {
			Message     string           `json:"message"`
			Transaction core.Transaction `json:"transaction"`
		}{
			Message:     fmt.Sprintf("%s Added", kind.Noun()),
			Transaction: tx,
		})
	}
}

func (s *Server) handleList(kind core.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := s.ledgerSvc.List(r.Context(), kind, UserID(r.Context()))
		if err != nil {
			writeLedgerError(w, r, kind, err)
			return
		}
		if list == nil {
			list = []core.Transaction{}
		}
		writeJSON(w, http.StatusOK, list)
	}
}

func (s *Server) handleDelete(kind core.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
		if err != nil {
			writeMessage(w, http.StatusNotFound, kind.Noun()+" not found")
			return
		}

		if err := s.ledgerSvc.Delete(r.Context(), kind, UserID(r.Context()), id); err != nil {
			writeLedgerError(w, r, kind, err)
			return
		}
		writeMessage(w, http.StatusOK, fmt.Sprintf("%s Deleted", kind.Noun()))
	}
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	sum, err := s.ledgerSvc.Summary(r.Context(), UserID(r.Context()))
	if err != nil {
		writeServerError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}
