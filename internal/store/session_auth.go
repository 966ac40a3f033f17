package store

import (
	"crypto/rand"
	"crypto/sha256"
	"database/sql"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"time"

	"github.com/pavelanni/vidya/internal/model"
)

const authSessionTTL = 24 * time.Hour

// Only the SHA-256 of a session token is stored; the raw token lives in the
// browser cookie.
func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func newSessionToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// CreateAuthSession starts a session for an account and returns the cookie token.
func (s *Store) CreateAuthSession(accountID int64) (string, error) {
	token, err := newSessionToken()
	if err != nil {
		return "", err
	}
	now := s.now()
	if _, err := s.db.Exec(
		`INSERT INTO auth_sessions (token_hash, account_id, created_at, expires_at) VALUES (?, ?, ?, ?)`,
		hashToken(token), accountID, now, now.Add(authSessionTTL),
	); err != nil {
		return "", err
	}
	return token, nil
}

// GetAuthSession looks a token up. Missing and expired sessions yield nil, nil.
// A session past the middle of its lifetime is pushed out by another full TTL.
func (s *Store) GetAuthSession(token string) (*model.AuthSession, error) {
	h := hashToken(token)
	var sess model.AuthSession
	err := s.db.QueryRow(
		`SELECT token_hash, account_id, created_at, expires_at FROM auth_sessions WHERE token_hash = ?`, h,
	).Scan(&sess.ID, &sess.AccountID, &sess.CreatedAt, &sess.ExpiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	now := s.now()
	if now.After(sess.ExpiresAt) {
		_, _ = s.db.Exec(`DELETE FROM auth_sessions WHERE token_hash = ?`, h)
		return nil, nil
	}
	if sess.ExpiresAt.Sub(now) < authSessionTTL/2 {
		sess.ExpiresAt = now.Add(authSessionTTL)
		if _, err := s.db.Exec(`UPDATE auth_sessions SET expires_at = ? WHERE token_hash = ?`, sess.ExpiresAt, h); err != nil {
			return nil, err
		}
	}
	return &sess, nil
}

// DeleteAuthSession ends the session behind a cookie token.
func (s *Store) DeleteAuthSession(token string) error {
	_, err := s.db.Exec(`DELETE FROM auth_sessions WHERE token_hash = ?`, hashToken(token))
	return err
}

// CleanupExpiredSessions removes every expired session and reports how many went.
func (s *Store) CleanupExpiredSessions() (int64, error) {
	res, err := s.db.Exec(`DELETE FROM auth_sessions WHERE expires_at < ?`, s.now())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
