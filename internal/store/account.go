package store

import (
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/pavelanni/vidya/internal/model"
)

const accountColumns = `id, principal, username, password_hash, is_admin, active, created_at`

// CreateAccount inserts a new account. A fresh principal is issued when the
// account has none.
func (s *Store) CreateAccount(a model.Account) (int64, error) {
	if a.Principal == "" {
		a.Principal = uuid.NewString()
	}
	a.Username = strings.TrimSpace(a.Username)
	res, err := s.db.Exec(
		`INSERT INTO accounts (principal, username, password_hash, is_admin, active, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		a.Principal, a.Username, a.PasswordHash, a.IsAdmin, a.Active, s.now(),
	)
	if uniqueViolation(err, "accounts.username") {
		return 0, ErrUsernameTaken
	}
	if err != nil {
		slog.Error("failed to create account", "username", a.Username, "error", err)
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	slog.Info("created account", "id", id, "username", a.Username, "admin", a.IsAdmin)
	return id, nil
}

func scanAccount(row interface{ Scan(...any) error }) (*model.Account, error) {
	var a model.Account
	err := row.Scan(&a.ID, &a.Principal, &a.Username, &a.PasswordHash, &a.IsAdmin, &a.Active, &a.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// GetAccountByUsername returns an account by username, or nil.
func (s *Store) GetAccountByUsername(username string) (*model.Account, error) {
	return scanAccount(s.db.QueryRow(
		`SELECT `+accountColumns+` FROM accounts WHERE username = ?`, strings.TrimSpace(username)))
}

// GetAccountByID returns an account by ID, or nil.
func (s *Store) GetAccountByID(id int64) (*model.Account, error) {
	return scanAccount(s.db.QueryRow(`SELECT `+accountColumns+` FROM accounts WHERE id = ?`, id))
}

// ListAccounts returns all accounts.
func (s *Store) ListAccounts() ([]model.Account, error) {
	rows, err := s.db.Query(`SELECT ` + accountColumns + ` FROM accounts ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var accounts []model.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, *a)
	}
	return accounts, rows.Err()
}

// ToggleAccountActive flips the active flag on an account. Disabling an
// account also ends its sessions.
func (s *Store) ToggleAccountActive(id int64) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.Exec(`UPDATE accounts SET active = NOT active WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("toggle account %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	if _, err := tx.Exec(
		`DELETE FROM auth_sessions WHERE account_id = ? AND (SELECT active FROM accounts WHERE id = ?) = 0`,
		id, id,
	); err != nil {
		return err
	}
	return tx.Commit()
}

// AccountCount returns the total number of accounts.
func (s *Store) AccountCount() (int, error) {
	var count int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM accounts`).Scan(&count)
	return count, err
}
