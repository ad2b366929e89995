package session

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"github.com/ragingrahul/mcp-marketplace-frontend/internal/domain"
)

// Storage keys. Each part of the session lives in its own file so a
// missing refresh token does not invalidate the rest.
const (
	accessTokenKey  = "mcp_access_token"
	refreshTokenKey = "mcp_refresh_token"
	userKey         = "mcp_user.json"
)

// FileStore persists the session under a state directory. With an empty
// directory every operation is a no-op, not an error; headless runs work
// against an always-empty store.
type FileStore struct {
	dir    string
	logger zerolog.Logger
}

func NewFileStore(dir string, logger zerolog.Logger) *FileStore {
	return &FileStore{dir: dir, logger: logger}
}

func (s *FileStore) Load() (*domain.PersistedSession, error) {
	if s.dir == "" {
		return nil, nil
	}

	persisted := &domain.PersistedSession{}

	if data, err := os.ReadFile(filepath.Join(s.dir, accessTokenKey)); err == nil {
		persisted.AccessToken = strings.TrimSpace(string(data))
	}
	if data, err := os.ReadFile(filepath.Join(s.dir, refreshTokenKey)); err == nil {
		persisted.RefreshToken = strings.TrimSpace(string(data))
	}
	if data, err := os.ReadFile(filepath.Join(s.dir, userKey)); err == nil {
		var user domain.User
		if err := json.Unmarshal(data, &user); err != nil {
			s.logger.Warn().Err(err).Msg("Stored user record is corrupt, ignoring")
		} else {
			persisted.User = &user
		}
	}

	if persisted.AccessToken == "" && persisted.RefreshToken == "" && persisted.User == nil {
		return nil, nil
	}

	return persisted, nil
}

func (s *FileStore) Save(session *domain.Session) error {
	if s.dir == "" {
		return nil
	}

	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		return fmt.Errorf("failed to create state dir: %w", err)
	}

	if err := os.WriteFile(filepath.Join(s.dir, accessTokenKey), []byte(session.AccessToken), 0o600); err != nil {
		return fmt.Errorf("failed to save access token: %w", err)
	}

	if session.RefreshToken != "" {
		if err := os.WriteFile(filepath.Join(s.dir, refreshTokenKey), []byte(session.RefreshToken), 0o600); err != nil {
			return fmt.Errorf("failed to save refresh token: %w", err)
		}
	} else {
		// A stale refresh token from an earlier session must not get
		// stitched onto this one at the next load.
		if err := os.Remove(filepath.Join(s.dir, refreshTokenKey)); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to remove stale refresh token: %w", err)
		}
	}

	userData, err := json.Marshal(session.User)
	if err != nil {
		return fmt.Errorf("failed to marshal user: %w", err)
	}
	if err := os.WriteFile(filepath.Join(s.dir, userKey), userData, 0o600); err != nil {
		return fmt.Errorf("failed to save user: %w", err)
	}

	return nil
}

func (s *FileStore) Clear() error {
	if s.dir == "" {
		return nil
	}

	for _, key := range []string{accessTokenKey, refreshTokenKey, userKey} {
		if err := os.Remove(filepath.Join(s.dir, key)); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to remove %s: %w", key, err)
		}
	}

	return nil
}
