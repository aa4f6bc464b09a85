// package testing contains shared testing utilities
package testing

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/desertthunder/subfeed/internal/models"
	"github.com/desertthunder/subfeed/internal/shared"
)

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

// MockRoundTripper allows custom HTTP responses for testing
type MockRoundTripper struct {
	response *http.Response
	err      error
	last     *http.Request
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(r *http.Request) (*http.Response, error) {
	m.last = r
	return m.response, m.err
}

// LastRequest returns the most recent request seen by the round tripper
func (m *MockRoundTripper) LastRequest() *http.Request {
	return m.last
}

// FCloser simulates a failure when reading response body
type FCloser struct{}

func (f *FCloser) Read(p []byte) (n int, err error) {
	return 0, errors.New("read failed")
}

func (f *FCloser) Close() error {
	return nil
}

// MemoryCredentialStore is an in-memory [models.CredentialStore] that counts calls
// and can be told to fail.
type MemoryCredentialStore struct {
	mu      sync.Mutex
	token   string
	SaveErr error
	LoadErr error
	Saves   int
	Loads   int
	Clears  int
}

// NewMemoryCredentialStore returns a store pre-seeded with token ("" means empty)
func NewMemoryCredentialStore(token string) *MemoryCredentialStore {
	return &MemoryCredentialStore{token: token}
}

func (m *MemoryCredentialStore) Save(token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Saves++
	if m.SaveErr != nil {
		return m.SaveErr
	}
	m.token = token
	return nil
}

func (m *MemoryCredentialStore) Load() (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Loads++
	if m.LoadErr != nil {
		return "", m.LoadErr
	}
	if m.token == "" {
		return "", shared.ErrCredentialNotFound
	}
	return m.token, nil
}

func (m *MemoryCredentialStore) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Clears++
	m.token = ""
	return nil
}

// Stored returns the current token without counting as a Load
func (m *MemoryCredentialStore) Stored() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token
}

// Backend is a scripted stand-in for the feed backend's REST surface.
//
// Requests to /api/auth/me, /api/subscriptions, /api/subscription-videos and
// /api/refresh-subscriptions require "Bearer " + Token. A non-zero entry in Fail
// forces that status for the path.
type Backend struct {
	*httptest.Server

	mu       sync.Mutex
	Token    string
	User     models.UserProfile
	Channels []models.Channel
	Videos   []models.VideoItem
	Fail     map[string]int
	calls    map[string]int
	headers  map[string]http.Header
}

// NewBackend starts a backend that accepts token and closes it with the test
func NewBackend(t *testing.T, token string) *Backend {
	t.Helper()

	b := &Backend{
		Token:    token,
		User:     models.UserProfile{ID: "u1", DisplayName: "Alice", Email: "alice@example.com"},
		Channels: []models.Channel{},
		Videos:   []models.VideoItem{},
		Fail:     map[string]int{},
		calls:    map[string]int{},
		headers:  map[string]http.Header{},
	}
	b.Server = httptest.NewServer(http.HandlerFunc(b.serve))
	t.Cleanup(b.Close)
	return b
}

func (b *Backend) serve(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	path := strings.TrimPrefix(r.URL.Path, "/api")
	b.calls[path]++
	b.headers[path] = r.Header.Clone()
	status := b.Fail[path]
	token := b.Token
	user := b.User
	channels := b.Channels
	videos := b.Videos
	b.mu.Unlock()

	if status != 0 {
		writeJSON(w, status, map[string]string{"detail": http.StatusText(status)})
		return
	}

	authorized := r.Header.Get("Authorization") == "Bearer "+token

	switch path {
	case "/health":
		writeJSON(w, http.StatusOK, models.Health{Status: "healthy", Timestamp: "2024-01-01T00:00:00"})
	case "/auth/google":
		if r.URL.Query().Get("code") == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "Authorization code not provided"})
			return
		}
		writeJSON(w, http.StatusOK, models.AuthResponse{AccessToken: token, User: user})
	case "/auth/me", "/subscriptions", "/subscription-videos", "/refresh-subscriptions":
		if !authorized {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Invalid authentication credentials"})
			return
		}
		switch path {
		case "/auth/me":
			writeJSON(w, http.StatusOK, user)
		case "/subscriptions":
			writeJSON(w, http.StatusOK, models.SubscriptionsResponse{Subscriptions: channels})
		case "/subscription-videos":
			writeJSON(w, http.StatusOK, models.VideosResponse{Videos: videos})
		default:
			writeJSON(w, http.StatusOK, models.RefreshResult{Message: "Subscriptions refreshed", Count: len(channels)})
		}
	default:
		writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Not Found"})
	}
}

// Calls returns how many requests hit path (without the /api prefix)
func (b *Backend) Calls(path string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls[path]
}

// TotalCalls returns the number of requests served
func (b *Backend) TotalCalls() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, c := range b.calls {
		n += c
	}
	return n
}

// LastHeader returns the headers of the most recent request to path
func (b *Backend) LastHeader(path string) http.Header {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.headers[path]
}

// SetFail forces status for path; zero clears it
func (b *Backend) SetFail(path string, status int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if status == 0 {
		delete(b.Fail, path)
		return
	}
	b.Fail[path] = status
}

// SetFeed replaces the data served by the backend
func (b *Backend) SetFeed(channels []models.Channel, videos []models.VideoItem) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.Channels = channels
	b.Videos = videos
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func MustGetwd(t *testing.T) string {
	t.Helper()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Failed to get working directory: %v", err)
	}
	return wd
}

func MustChdir(t *testing.T, dir string) {
	t.Helper()
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Failed to change directory to %s: %v", dir, err)
	}
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
