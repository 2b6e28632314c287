// Package core holds the domain types shared by storage, services and the
// HTTP layer: users, ledger transactions and the money/date value types.
package core

import (
	"errors"
	"strings"
	"time"
)

const (
	Income  Kind = "income"
	Expense Kind = "expense"
)

type (
	// Kind selects which ledger a transaction belongs to. Incomes and
	// expenses are structurally identical and live in separate tables.
	Kind string

	Date struct {
		time.Time
	}

	Money struct {
		Cents int64
	}

	// Transaction is a single income or expense record owned by a user.
	Transaction struct {
		ID          int64     `json:"id"`
		UserID      string    `json:"userId"`
		Title       string    `json:"title"`
		Amount      Money     `json:"amount"`
		Category    string    `json:"category"`
		Description string    `json:"description"`
		Date        Date      `json:"date"`
		CreatedAt   time.Time `json:"createdAt"`
	}
)

var (
	ErrInvalidKind   = errors.New("invalid transaction kind")
	ErrEmptyTitle    = errors.New("title is required")
	ErrEmptyCategory = errors.New("category is required")
	ErrInvalidAmount = errors.New("amount must be a positive number")
	ErrInvalidDate   = errors.New("invalid date format")
)

// Validate reports whether k names a known ledger.
func (k Kind) Validate() error {
	switch k {
	case Income, Expense:
		return nil
	}
	return ErrInvalidKind
}

// Noun returns the capitalized display name used in API messages
// ("Income", "Expense").
func (k Kind) Noun() string {
	if k == Income {
		return "Income"
	}
	return "Expense"
}

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

// NewDate builds a Date at midnight UTC.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// Validate checks a transaction before persistence. The kind is validated
// separately by the caller since the same struct serves both ledgers.
func (t Transaction) Validate() error {
	if strings.TrimSpace(t.Title) == "" {
		return ErrEmptyTitle
	}
	if strings.TrimSpace(t.Category) == "" {
		return ErrEmptyCategory
	}
	if err := t.Amount.Validate(); err != nil {
		return err
	}
	if err := t.Date.Validate(); err != nil {
		return err
	}
	return nil
}
