// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"io"
	"iter"
	"os"
	"sync"
	"testing"

	"github.com/desertthunder/spindb/internal/models"
	"github.com/desertthunder/spindb/internal/services"
	"github.com/desertthunder/spindb/internal/shared"
	"golang.org/x/oauth2"
)

// MockSource is a test double for [services.PlaylistSource].
//
// Each element of PageList is yielded as one page. When Err is set it is yielded after ErrAfter pages.
type MockSource struct {
	PageList [][]models.RawPlaylist
	Err      error
	ErrAfter int
	Block    chan struct{} // When non-nil, every walk waits on it before the first page

	mu    sync.Mutex
	walks int
}

// NewMockSource creates a source that yields each argument as a page.
func NewMockSource(pages ...[]models.RawPlaylist) *MockSource {
	return &MockSource{PageList: pages}
}

func (m *MockSource) Name() string { return "mock" }

func (m *MockSource) Pages(ctx context.Context, include func(name string) bool) iter.Seq2[[]models.RawPlaylist, error] {
	m.mu.Lock()
	m.walks++
	m.mu.Unlock()

	return func(yield func([]models.RawPlaylist, error) bool) {
		if m.Block != nil {
			select {
			case <-m.Block:
			case <-ctx.Done():
				yield(nil, ctx.Err())
				return
			}
		}

		for i, page := range m.PageList {
			if m.Err != nil && i == m.ErrAfter {
				yield(nil, m.Err)
				return
			}

			out := make([]models.RawPlaylist, 0, len(page))
			for _, p := range page {
				if include != nil && !include(p.Name) {
					p.Tracks = nil
				}
				out = append(out, p)
			}

			if !yield(out, nil) {
				return
			}
		}

		if m.Err != nil && m.ErrAfter >= len(m.PageList) {
			yield(nil, m.Err)
		}
	}
}

// Walks reports how many times Pages was called.
func (m *MockSource) Walks() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.walks
}

// MockOAuthService is a test double for [services.OAuthService].
type MockOAuthService struct {
	Token       *oauth2.Token
	ExchangeErr error
	Src         services.PlaylistSource

	mu    sync.Mutex
	codes []string
}

func (m *MockOAuthService) Name() string { return "mock" }

func (m *MockOAuthService) AuthURL(state string) string {
	return "https://accounts.example.com/authorize?state=" + state
}

func (m *MockOAuthService) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	m.mu.Lock()
	m.codes = append(m.codes, code)
	m.mu.Unlock()

	if m.ExchangeErr != nil {
		return nil, m.ExchangeErr
	}
	if m.Token != nil {
		return m.Token, nil
	}
	return &oauth2.Token{AccessToken: "access-" + code}, nil
}

func (m *MockOAuthService) Source(ctx context.Context, token *oauth2.Token) services.PlaylistSource {
	if m.Src != nil {
		return m.Src
	}
	return NewMockSource()
}

// Codes returns every authorization code passed to Exchange.
func (m *MockOAuthService) Codes() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.codes...)
}

// MemoryTokenStore is an in-memory [services.TokenStore].
type MemoryTokenStore struct {
	mu      sync.Mutex
	token   *oauth2.Token
	LoadErr error
	SaveErr error
}

func NewMemoryTokenStore(token *oauth2.Token) *MemoryTokenStore {
	return &MemoryTokenStore{token: token}
}

func (m *MemoryTokenStore) Load() (*oauth2.Token, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.LoadErr != nil {
		return nil, m.LoadErr
	}
	if m.token == nil {
		return nil, shared.ErrNotAuthenticated
	}
	return m.token, nil
}

func (m *MemoryTokenStore) Save(token *oauth2.Token) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SaveErr != nil {
		return m.SaveErr
	}
	m.token = token
	return nil
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// LimitedWriter fails after a certain number of writes
type LimitedWriter struct {
	maxWrites int
	written   int
	target    io.Writer
}

func (l *LimitedWriter) Write(p []byte) (n int, err error) {
	if l.written >= l.maxWrites {
		return 0, errors.New("write limit exceeded")
	}
	l.written++
	return l.target.Write(p)
}

func NewLimitedWriter(maxWrites, written int, target io.Writer) LimitedWriter {
	return LimitedWriter{maxWrites: maxWrites, written: written, target: target}
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}
