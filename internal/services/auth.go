package services

import (
	"net/http"
	"sync"

	"github.com/desertthunder/subfeed/internal/shared"
	"golang.org/x/oauth2"
)

// RequestIDHeader correlates a request with backend logs.
const RequestIDHeader = "X-Request-ID"

// BearerTransport is an [http.RoundTripper] that attaches the current bearer token, if any,
// to every outgoing request.
type BearerTransport struct {
	Base http.RoundTripper

	mu    sync.RWMutex
	token *oauth2.Token
}

// NewBearerTransport wraps base. A nil base uses [http.DefaultTransport].
func NewBearerTransport(base http.RoundTripper) *BearerTransport {
	if base == nil {
		base = http.DefaultTransport
	}
	return &BearerTransport{Base: base}
}

// SetToken attaches token to subsequent requests. An empty token detaches.
func (t *BearerTransport) SetToken(token string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if token == "" {
		t.token = nil
		return
	}
	t.token = &oauth2.Token{AccessToken: token, TokenType: "Bearer"}
}

// ClearToken detaches the token.
func (t *BearerTransport) ClearToken() {
	t.SetToken("")
}

// Token returns the attached token or "".
func (t *BearerTransport) Token() string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if t.token == nil {
		return ""
	}
	return t.token.AccessToken
}

// RoundTrip implements [http.RoundTripper]. The caller's request is never modified.
func (t *BearerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	t.mu.RLock()
	tok := t.token
	t.mu.RUnlock()

	r := req.Clone(req.Context())
	if tok != nil {
		tok.SetAuthHeader(r)
	}
	if r.Header.Get(RequestIDHeader) == "" {
		r.Header.Set(RequestIDHeader, shared.GenerateID())
	}

	return t.Base.RoundTrip(r)
}
