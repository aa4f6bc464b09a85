// package repositories provides persistence for the bearer credential.
package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/desertthunder/subfeed/internal/models"
	"github.com/desertthunder/subfeed/internal/shared"
)

// TokenKey is the well-known key the bearer token is stored under.
const TokenKey = "token"

var (
	_ models.CredentialStore = (*CredentialRepository)(nil)
	_ models.CredentialStore = (*FileCredentialStore)(nil)
)

// CredentialRepository implements [models.CredentialStore] on the credentials table.
type CredentialRepository struct {
	db    *sql.DB
	scope string
}

// NewCredentialRepository creates a new [CredentialRepository] whose rows are keyed by scope
func NewCredentialRepository(db *sql.DB, scope string) *CredentialRepository {
	return &CredentialRepository{db: db, scope: scope}
}

// Save upserts the token for the repository scope
func (r *CredentialRepository) Save(token string) error {
	query := `
		INSERT INTO credentials (scope, key, value, created_at, updated_at) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (scope, key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`

	now := time.Now().UTC()
	if _, err := r.db.Exec(query, r.scope, TokenKey, token, now, now); err != nil {
		return fmt.Errorf("failed to save credential: %w", err)
	}
	return nil
}

// Load retrieves the token for the repository scope
func (r *CredentialRepository) Load() (string, error) {
	query := `SELECT value FROM credentials WHERE scope = ? AND key = ?`

	var value string
	err := r.db.QueryRow(query, r.scope, TokenKey).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", shared.ErrCredentialNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to query credential: %w", err)
	}

	if value == "" {
		return "", shared.ErrCredentialNotFound
	}
	return value, nil
}

// Clear deletes the token for the repository scope
func (r *CredentialRepository) Clear() error {
	query := `DELETE FROM credentials WHERE scope = ? AND key = ?`
	if _, err := r.db.Exec(query, r.scope, TokenKey); err != nil {
		return fmt.Errorf("failed to clear credential: %w", err)
	}
	return nil
}

// UpdatedAt reports when the token for the scope was last written
func (r *CredentialRepository) UpdatedAt() (time.Time, error) {
	query := `SELECT updated_at FROM credentials WHERE scope = ? AND key = ?`

	var updatedAt time.Time
	err := r.db.QueryRow(query, r.scope, TokenKey).Scan(&updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, shared.ErrCredentialNotFound
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to query credential: %w", err)
	}
	return updatedAt, nil
}

// FileCredentialStore implements [models.CredentialStore] on a single file.
type FileCredentialStore struct {
	path string
}

// NewFileCredentialStore creates a store at path. A leading "~" is expanded.
func NewFileCredentialStore(path string) *FileCredentialStore {
	return &FileCredentialStore{path: shared.ExpandPath(path)}
}

// Path returns the resolved location of the credential file
func (s *FileCredentialStore) Path() string {
	return s.path
}

// Save writes the token, creating parent directories as needed
func (s *FileCredentialStore) Save(token string) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0700); err != nil {
		return fmt.Errorf("failed to create credential directory: %w", err)
	}

	if err := os.WriteFile(s.path, []byte(token), 0600); err != nil {
		return fmt.Errorf("failed to write credential file: %w", err)
	}
	return nil
}

// Load reads the token back
func (s *FileCredentialStore) Load() (string, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return "", shared.ErrCredentialNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to read credential file: %w", err)
	}

	token := strings.TrimSpace(string(data))
	if token == "" {
		return "", shared.ErrCredentialNotFound
	}
	return token, nil
}

// Clear removes the credential file
func (s *FileCredentialStore) Clear() error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove credential file: %w", err)
	}
	return nil
}
