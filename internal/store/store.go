package store

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

//lint:file-ignore ST1005 Store errors are shown to users verbatim, so they are written as sentences.

// Errors carry text that is shown to users as-is; handlers match on it.
var (
	ErrNotFound        = errors.New("Not found")
	ErrEmailRegistered = errors.New("Email already registered")
	ErrProfileExists   = errors.New("Profile already exists for this principal")
	ErrInvalidProfile  = errors.New("Invalid profile")
	ErrInvalidLink     = errors.New("Invalid parent link")
	ErrInvalidSession  = errors.New("Invalid tutoring session")
	ErrInvalidSchool   = errors.New("Invalid school")
	ErrUsernameTaken   = errors.New("Username already taken")
)

type Store struct {
	db  *sql.DB
	now func() time.Time
}

func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath+"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if dbPath == ":memory:" {
		// Every connection to :memory: is a separate database.
		db.SetMaxOpenConns(1)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	s := &Store{db: db, now: time.Now}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS accounts (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		principal TEXT NOT NULL UNIQUE,
		username TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		is_admin INTEGER NOT NULL DEFAULT 0,
		active INTEGER NOT NULL DEFAULT 1,
		created_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS auth_sessions (
		token_hash TEXT PRIMARY KEY,
		account_id INTEGER NOT NULL,
		created_at DATETIME NOT NULL,
		expires_at DATETIME NOT NULL,
		FOREIGN KEY (account_id) REFERENCES accounts(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS schools (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		address TEXT NOT NULL DEFAULT '',
		contact_email TEXT NOT NULL DEFAULT ''
	);

	CREATE TABLE IF NOT EXISTS student_groups (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		school_id INTEGER NOT NULL,
		name TEXT NOT NULL,
		grade_level INTEGER NOT NULL,
		FOREIGN KEY (school_id) REFERENCES schools(id)
	);

	CREATE TABLE IF NOT EXISTS profiles (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		principal TEXT NOT NULL UNIQUE,
		name TEXT NOT NULL,
		email TEXT NOT NULL COLLATE NOCASE UNIQUE,
		role TEXT NOT NULL,
		school_id INTEGER,
		group_id INTEGER,
		created_at DATETIME NOT NULL,
		FOREIGN KEY (school_id) REFERENCES schools(id),
		FOREIGN KEY (group_id) REFERENCES student_groups(id)
	);

	CREATE TABLE IF NOT EXISTS parent_links (
		parent_id INTEGER NOT NULL,
		student_id INTEGER NOT NULL,
		PRIMARY KEY (parent_id, student_id),
		FOREIGN KEY (parent_id) REFERENCES profiles(id),
		FOREIGN KEY (student_id) REFERENCES profiles(id)
	);

	CREATE TABLE IF NOT EXISTS tutoring_sessions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		student_id INTEGER NOT NULL,
		subject TEXT NOT NULL,
		topic TEXT NOT NULL,
		understanding_score INTEGER NOT NULL,
		correctness_score INTEGER,
		created_at INTEGER NOT NULL,
		FOREIGN KEY (student_id) REFERENCES profiles(id)
	);
	CREATE INDEX IF NOT EXISTS idx_tutoring_student_time ON tutoring_sessions(student_id, created_at);

	CREATE TABLE IF NOT EXISTS preferences (
		principal TEXT NOT NULL,
		key TEXT NOT NULL,
		value TEXT NOT NULL,
		PRIMARY KEY (principal, key)
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// uniqueViolation reports whether err is a UNIQUE constraint failure on the
// given table column, e.g. "profiles.email".
func uniqueViolation(err error, column string) bool {
	var se *sqlite.Error
	if !errors.As(err, &se) {
		return false
	}
	if code := se.Code(); code != sqlite3.SQLITE_CONSTRAINT_UNIQUE && code&0xff != sqlite3.SQLITE_CONSTRAINT {
		return false
	}
	return strings.Contains(se.Error(), column)
}

func nullableID(id *int64) any {
	if id == nil {
		return nil
	}
	return *id
}
