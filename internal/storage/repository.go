// Package storage persists users and ledger transactions in SQLite.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"tally/internal/core"

	_ "modernc.org/sqlite"
)

var (
	// ErrNotFound covers both a missing row and a row owned by someone
	// else; owner-scoped queries never distinguish the two.
	ErrNotFound = errors.New("record not found")

	// ErrEmailExists and ErrUsernameExists surface UNIQUE violations on
	// insert or update. They back up the services' pre-checks, which are
	// not atomic with the write.
	ErrEmailExists    = errors.New("email already exists")
	ErrUsernameExists = errors.New("username already exists")
)

// Repository wraps the SQLite database holding all persistent state.
type Repository struct {
	db *sql.DB
}

// NewRepository opens (creating if necessary) the database at dbPath and
// applies pending migrations.
func NewRepository(dbPath string) (*Repository, error) {
	if dir := filepath.Dir(dbPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := runMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Repository{db: db}, nil
}

func (r *Repository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// mapUniqueViolation translates SQLite UNIQUE errors on the users table
// into the sentinel duplicate errors. Anything else passes through.
func mapUniqueViolation(err error) error {
	if err == nil {
		return nil
	}
	msg := err.Error()
	if !strings.Contains(msg, "UNIQUE constraint failed") {
		return err
	}
	switch {
	case strings.Contains(msg, "users.email"):
		return ErrEmailExists
	case strings.Contains(msg, "users.username"):
		return ErrUsernameExists
	}
	return err
}

// CreateUser inserts a new user record. Duplicate email/username rows that
// slip past the service pre-check come back as ErrEmailExists or
// ErrUsernameExists.
func (r *Repository) CreateUser(ctx context.Context, u core.User) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (id, username, name, email, password_hash, profile_picture, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		u.ID, u.Username, u.Name, u.Email, u.PasswordHash, u.ProfilePicture, u.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert user: %w", mapUniqueViolation(err))
	}
	return nil
}

const userColumns = `id, username, name, email, password_hash, profile_picture, created_at`

func scanUser(row *sql.Row) (core.User, error) {
	var u core.User
	err := row.Scan(&u.ID, &u.Username, &u.Name, &u.Email, &u.PasswordHash, &u.ProfilePicture, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return core.User{}, ErrNotFound
	}
	if err != nil {
		return core.User{}, fmt.Errorf("scan user: %w", err)
	}
	return u, nil
}

// GetUserByID fetches a user by its identifier.
func (r *Repository) GetUserByID(ctx context.Context, id string) (core.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	return scanUser(row)
}

// GetUserByLogin fetches a user whose username or email matches the
// identifier exactly. Login accepts either.
func (r *Repository) GetUserByLogin(ctx context.Context, identifier string) (core.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE username = ? OR email = ?`,
		identifier, identifier)
	return scanUser(row)
}

// EmailTaken reports whether another user (excluding excludeID) already
// holds the email. Pass an empty excludeID for signup checks.
func (r *Repository) EmailTaken(ctx context.Context, email, excludeID string) (bool, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM users WHERE email = ? AND id != ?`,
		email, excludeID).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("check email: %w", err)
	}
	return n > 0, nil
}

// UsernameTaken reports whether another user already holds the username.
func (r *Repository) UsernameTaken(ctx context.Context, username, excludeID string) (bool, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM users WHERE username = ? AND id != ?`,
		username, excludeID).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("check username: %w", err)
	}
	return n > 0, nil
}

// UpdateUserProfile writes username, name and email in one statement so a
// multi-field profile update is all-or-nothing.
func (r *Repository) UpdateUserProfile(ctx context.Context, id, username, name, email string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET username = ?, name = ?, email = ? WHERE id = ?`,
		username, name, email, id)
	if err != nil {
		return fmt.Errorf("update profile: %w", mapUniqueViolation(err))
	}
	return requireRow(res)
}

// UpdateUserPassword replaces the stored password digest.
func (r *Repository) UpdateUserPassword(ctx context.Context, id, passwordHash string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET password_hash = ? WHERE id = ?`, passwordHash, id)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	return requireRow(res)
}

// UpdateUserPicture stores the picture value verbatim; nil clears it.
func (r *Repository) UpdateUserPicture(ctx context.Context, id string, picture *string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET profile_picture = ? WHERE id = ?`, picture, id)
	if err != nil {
		return fmt.Errorf("update picture: %w", err)
	}
	return requireRow(res)
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// tableFor maps a transaction kind to its table. Kinds are validated
// before reaching storage; an unknown kind here is a programming error.
func tableFor(kind core.Kind) (string, error) {
	switch kind {
	case core.Income:
		return "incomes", nil
	case core.Expense:
		return "expenses", nil
	}
	return "", core.ErrInvalidKind
}

// CreateTransaction inserts a ledger row and returns its assigned ID.
func (r *Repository) CreateTransaction(ctx context.Context, kind core.Kind, t core.Transaction) (int64, error) {
	table, err := tableFor(kind)
	if err != nil {
		return 0, err
	}
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO `+table+` (user_id, title, amount_cents, category, description, date, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		t.UserID, t.Title, t.Amount.Cents, t.Category, t.Description, t.Date.Time, t.CreatedAt,
	)
	if err != nil {
		return 0, fmt.Errorf("insert %s: %w", kind, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}
	return id, nil
}

// ListTransactions returns every transaction owned by userID, most recent
// first. The ID tiebreak keeps ordering stable for rows created within the
// same timestamp granularity.
func (r *Repository) ListTransactions(ctx context.Context, kind core.Kind, userID string) ([]core.Transaction, error) {
	table, err := tableFor(kind)
	if err != nil {
		return nil, err
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, title, amount_cents, category, description, date, created_at
		 FROM `+table+` WHERE user_id = ?
		 ORDER BY created_at DESC, id DESC`,
		userID)
	if err != nil {
		return nil, fmt.Errorf("list %ss: %w", kind, err)
	}
	defer rows.Close()

	var out []core.Transaction
	for rows.Next() {
		var t core.Transaction
		var date time.Time
		if err := rows.Scan(&t.ID, &t.UserID, &t.Title, &t.Amount.Cents, &t.Category, &t.Description, &date, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan %s: %w", kind, err)
		}
		t.Date = core.Date{Time: date}
		out = append(out, t)
	}
	return out, rows.Err()
}

// GetTransaction fetches a single row by ID without owner scoping. Used by
// the export worker, which acts on trusted internal messages.
func (r *Repository) GetTransaction(ctx context.Context, kind core.Kind, id int64) (core.Transaction, error) {
	table, err := tableFor(kind)
	if err != nil {
		return core.Transaction{}, err
	}
	var t core.Transaction
	var date time.Time
	err = r.db.QueryRowContext(ctx,
		`SELECT id, user_id, title, amount_cents, category, description, date, created_at
		 FROM `+table+` WHERE id = ?`, id).
		Scan(&t.ID, &t.UserID, &t.Title, &t.Amount.Cents, &t.Category, &t.Description, &date, &t.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, ErrNotFound
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get %s: %w", kind, err)
	}
	t.Date = core.Date{Time: date}
	return t, nil
}

// DeleteTransaction removes a row only when it exists and belongs to
// userID. The owner is part of the predicate so a foreign ID is
// indistinguishable from a missing one.
func (r *Repository) DeleteTransaction(ctx context.Context, kind core.Kind, userID string, id int64) error {
	table, err := tableFor(kind)
	if err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM `+table+` WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("delete %s: %w", kind, err)
	}
	return requireRow(res)
}

// PendingExport returns up to limit rows not yet exported, oldest first.
// Backup path for export events lost in transit.
func (r *Repository) PendingExport(ctx context.Context, kind core.Kind, limit int) ([]core.Transaction, error) {
	table, err := tableFor(kind)
	if err != nil {
		return nil, err
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, title, amount_cents, category, description, date, created_at
		 FROM `+table+` WHERE exported = 0
		 ORDER BY created_at ASC, id ASC LIMIT ?`,
		limit)
	if err != nil {
		return nil, fmt.Errorf("pending export %ss: %w", kind, err)
	}
	defer rows.Close()

	var out []core.Transaction
	for rows.Next() {
		var t core.Transaction
		var date time.Time
		if err := rows.Scan(&t.ID, &t.UserID, &t.Title, &t.Amount.Cents, &t.Category, &t.Description, &date, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan pending %s: %w", kind, err)
		}
		t.Date = core.Date{Time: date}
		out = append(out, t)
	}
	return out, rows.Err()
}

// MarkExported flags a row as successfully exported.
func (r *Repository) MarkExported(ctx context.Context, kind core.Kind, id int64) error {
	table, err := tableFor(kind)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx,
		`UPDATE `+table+` SET exported = 1 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("mark exported: %w", err)
	}
	return nil
}
