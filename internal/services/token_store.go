package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/desertthunder/spindb/internal/shared"
	"golang.org/x/oauth2"
)

// FileTokenStore keeps the OAuth token in a JSON file readable only by the owner.
type FileTokenStore struct {
	path string
	mu   sync.Mutex
}

type tokenFile struct {
	Token *oauth2.Token `json:"token"`
}

// NewFileTokenStore creates a token store backed by path.
func NewFileTokenStore(path string) *FileTokenStore {
	return &FileTokenStore{path: path}
}

// Path returns the backing file location.
func (s *FileTokenStore) Path() string {
	return s.path
}

// Load reads the stored token. A missing file wraps [shared.ErrNotAuthenticated].
func (s *FileTokenStore) Load() (*oauth2.Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: no token at %s", shared.ErrNotAuthenticated, s.path)
	} else if err != nil {
		return nil, fmt.Errorf("failed to read token file: %w", err)
	}

	var f tokenFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse token file: %w", err)
	}
	if f.Token == nil || f.Token.AccessToken == "" {
		return nil, fmt.Errorf("%w: token file is empty", shared.ErrNotAuthenticated)
	}

	return f.Token, nil
}

// Save writes token, replacing any previous one.
func (s *FileTokenStore) Save(token *oauth2.Token) error {
	if token == nil {
		return fmt.Errorf("%w: nil token", shared.ErrInvalidArgument)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.MarshalIndent(tokenFile{Token: token}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode token: %w", err)
	}

	if dir := filepath.Dir(s.path); dir != "" {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return fmt.Errorf("failed to create token directory: %w", err)
		}
	}

	if err := os.WriteFile(s.path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write token file: %w", err)
	}
	return nil
}

// Clear removes the stored token if present.
func (s *FileTokenStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to remove token file: %w", err)
	}
	return nil
}
