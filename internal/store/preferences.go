package store

import "database/sql"

// Preference keys.
const (
	PrefExplanationLanguage = "explanation_language"
)

// SetPreference upserts a per-principal setting.
func (s *Store) SetPreference(principal, key, value string) error {
	_, err := s.db.Exec(
		`INSERT INTO preferences (principal, key, value) VALUES (?, ?, ?)
		 ON CONFLICT(principal, key) DO UPDATE SET value = excluded.value`,
		principal, key, value,
	)
	return err
}

// GetPreference returns the value for a setting.
// Returns empty string and nil error if the key is missing.
func (s *Store) GetPreference(principal, key string) (string, error) {
	var value string
	err := s.db.QueryRow(
		`SELECT value FROM preferences WHERE principal = ? AND key = ?`, principal, key,
	).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return value, err
}
