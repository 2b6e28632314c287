package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"tally/internal/core"
	"tally/internal/log"
	"tally/internal/storage"
)

// ExportPublisher emits an event for each new ledger row so the export
// worker can mirror it to the spreadsheet. amqp.Client implements it.
type ExportPublisher interface {
	PublishExportEvent(ctx context.Context, kind core.Kind, id int64) error
}

// AddTransactionInput carries the raw request fields. Amount and Date
// stay strings until the service parses them, so malformed input maps to
// the domain validation errors instead of a JSON decode failure.
type AddTransactionInput struct {
	Title       string
	Amount      string
	Category    string
	Description string
	Date        string
}

// LedgerService implements the income and expense operations. The same
// code serves both ledgers; the kind selects the table.
type LedgerService struct {
	repo      *storage.Repository
	publisher ExportPublisher
	logger    *log.Logger
	now       func() time.Time
}

func NewLedgerService(repo *storage.Repository, publisher ExportPublisher) *LedgerService {
	return &LedgerService{
		repo:      repo,
		publisher: publisher,
		logger:    log.New(log.ComponentLedger),
		now:       time.Now,
	}
}

// Add validates and persists a new transaction, then publishes an export
// event. Publishing is best effort: the row is already durable locally
// and the worker's backup scan picks up anything the bus loses.
func (s *LedgerService) Add(ctx context.Context, kind core.Kind, userID string, in AddTransactionInput) (core.Transaction, error) {
	if err := kind.Validate(); err != nil {
		return core.Transaction{}, err
	}

	cents, err := core.ParseAmount(in.Amount)
	if err != nil {
		return core.Transaction{}, err
	}
	date, err := core.ParseDate(in.Date)
	if err != nil {
		return core.Transaction{}, err
	}

	t := core.Transaction{
		UserID:      userID,
		Title:       strings.TrimSpace(in.Title),
		Amount:      core.Money{Cents: cents},
		Category:    strings.TrimSpace(in.Category),
		Description: strings.TrimSpace(in.Description),
		Date:        date,
		CreatedAt:   s.now().UTC(),
	}
	if err := t.Validate(); err != nil {
		return core.Transaction{}, err
	}

	id, err := s.repo.CreateTransaction(ctx, kind, t)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("save %s: %w", kind, err)
	}
	t.ID = id

	if s.publisher != nil {
		if err := s.publisher.PublishExportEvent(ctx, kind, id); err != nil {
			s.logger.ErrorContext(ctx, "failed to publish export event",
				"kind", kind, "id", id, log.FieldError, err)
		}
	}

	return t, nil
}

// List returns the user's transactions of the given kind, newest first.
func (s *LedgerService) List(ctx context.Context, kind core.Kind, userID string) ([]core.Transaction, error) {
	if err := kind.Validate(); err != nil {
		return nil, err
	}
	list, err := s.repo.ListTransactions(ctx, kind, userID)
	if err != nil {
		return nil, fmt.Errorf("list %ss: %w", kind, err)
	}
	return list, nil
}

// Delete removes a transaction the user owns. A foreign or unknown ID is
// ErrNotFound either way.
func (s *LedgerService) Delete(ctx context.Context, kind core.Kind, userID string, id int64) error {
	if err := kind.Validate(); err != nil {
		return err
	}
	err := s.repo.DeleteTransaction(ctx, kind, userID, id)
	if errors.Is(err, storage.ErrNotFound) {
		return storage.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("delete %s: %w", kind, err)
	}
	return nil
}

// Summary totals both ledgers for the user.
func (s *LedgerService) Summary(ctx context.Context, userID string) (core.Summary, error) {
	incomes, err := s.repo.ListTransactions(ctx, core.Income, userID)
	if err != nil {
		return core.Summary{}, fmt.Errorf("list incomes: %w", err)
	}
	expenses, err := s.repo.ListTransactions(ctx, core.Expense, userID)
	if err != nil {
		return core.Summary{}, fmt.Errorf("list expenses: %w", err)
	}
	return core.Summarize(incomes, expenses), nil
}
