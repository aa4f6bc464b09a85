// API service for the subscription feed backend
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/time/rate"

	"github.com/desertthunder/subfeed/internal/models"
	"github.com/desertthunder/subfeed/internal/shared"
)

const (
	defaultOrigin     = "http://127.0.0.1:8001"
	apiBasePath       = "/api"
	defaultMaxResults = 50
)

// APIOpts configures an [APIService].
type APIOpts struct {
	// BaseURL is the backend origin, without the /api base path.
	BaseURL string
	// HTTPClient supplies the timeout and base transport. Nil uses [http.DefaultClient].
	HTTPClient *http.Client
	// RequestsPerSecond throttles outgoing calls. Zero or less disables throttling.
	RequestsPerSecond float64
	// MaxResults is sent as max_results on the video feed call.
	MaxResults int
	Logger     *log.Logger
}

// APIService is the client for the backend REST surface.
type APIService struct {
	origin     string
	baseURL    string
	maxResults int
	httpClient *http.Client
	bearer     *BearerTransport
	limiter    *rate.Limiter
	logger     *log.Logger
}

// NewAPIService creates a new API service instance.
func NewAPIService(opts APIOpts) *APIService {
	origin := strings.TrimRight(opts.BaseURL, "/")
	if origin == "" {
		origin = defaultOrigin
	}

	base := opts.HTTPClient
	if base == nil {
		base = http.DefaultClient
	}

	bearer := NewBearerTransport(base.Transport)
	client := &http.Client{
		Transport:     bearer,
		Timeout:       base.Timeout,
		CheckRedirect: base.CheckRedirect,
		Jar:           base.Jar,
	}

	limit := rate.Inf
	if opts.RequestsPerSecond > 0 {
		limit = rate.Limit(opts.RequestsPerSecond)
	}

	maxResults := opts.MaxResults
	if maxResults <= 0 {
		maxResults = defaultMaxResults
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}

	return &APIService{
		origin:     origin,
		baseURL:    origin + apiBasePath,
		maxResults: maxResults,
		httpClient: client,
		bearer:     bearer,
		limiter:    rate.NewLimiter(limit, 1),
		logger:     logger,
	}
}

// APIResponse represents a raw API response with status and body.
type APIResponse struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
	IsJSON     bool
	JSONData   any
}

// Origin returns the backend origin, which scopes stored credentials.
func (a *APIService) Origin() string {
	return a.origin
}

// BaseURL returns the origin joined with the /api base path.
func (a *APIService) BaseURL() string {
	return a.baseURL
}

// LoginURL is where the browser is sent to start the OAuth flow. It is navigated to, never fetched.
func (a *APIService) LoginURL() string {
	return a.baseURL + "/auth/login"
}

// Authorize attaches token to every subsequent request.
func (a *APIService) Authorize(token string) {
	a.bearer.SetToken(token)
}

// Deauthorize removes the attached token.
func (a *APIService) Deauthorize() {
	a.bearer.ClearToken()
}

// Authorized reports whether a token is attached.
func (a *APIService) Authorized() bool {
	return a.bearer.Token() != ""
}

// Get performs a GET request to the specified path and returns the raw response.
func (a *APIService) Get(ctx context.Context, path string) (*APIResponse, error) {
	return a.raw(ctx, http.MethodGet, path, nil)
}

// Post performs a POST request with the given JSON data and returns the raw response.
func (a *APIService) Post(ctx context.Context, path string, data []byte) (*APIResponse, error) {
	return a.raw(ctx, http.MethodPost, path, data)
}

func (a *APIService) raw(ctx context.Context, method, path string, data []byte) (*APIResponse, error) {
	resp, err := a.do(ctx, method, path, data)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response: %v", shared.ErrNetworkFailure, err)
	}

	apiResp := &APIResponse{
		StatusCode: resp.StatusCode,
		Headers:    resp.Header,
		Body:       body,
	}

	var jsonData any
	if err := json.Unmarshal(body, &jsonData); err == nil {
		apiResp.IsJSON = true
		apiResp.JSONData = jsonData
	}

	return apiResp, nil
}

func (a *APIService) do(ctx context.Context, method, path string, data []byte) (*http.Response, error) {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}

	var body io.Reader
	if data != nil {
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, a.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	if data != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	if err := a.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrNetworkFailure, err)
	}

	start := time.Now()
	resp, err := a.httpClient.Do(req)
	if err != nil {
		a.logger.Debug("request failed", "method", method, "path", path, "error", err)
		return nil, fmt.Errorf("%w: %v", shared.ErrNetworkFailure, err)
	}

	a.logger.Debug("request", "method", method, "path", path, "status", resp.StatusCode, "duration", time.Since(start))
	return resp, nil
}

// doJSON performs a request and decodes a 2xx body into result.
func (a *APIService) doJSON(ctx context.Context, method, path string, data []byte, result any) error {
	resp, err := a.do(ctx, method, path, data)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return err
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("%w: failed to decode %s: %v", shared.ErrInvalidResponse, path, err)
		}
	}
	return nil
}

// checkStatus maps a non-2xx response onto a sentinel error.
func checkStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	var errResp struct {
		Detail any `json:"detail"`
	}
	detail := ""
	if err := json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&errResp); err == nil && errResp.Detail != nil {
		switch d := errResp.Detail.(type) {
		case string:
			detail = d
		default:
			if b, err := json.Marshal(d); err == nil {
				detail = string(b)
			}
		}
	}

	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		if detail != "" {
			return fmt.Errorf("%w (status %d): %s", shared.ErrUnauthorized, resp.StatusCode, detail)
		}
		return fmt.Errorf("%w (status %d)", shared.ErrUnauthorized, resp.StatusCode)
	case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return fmt.Errorf("%w: %w (status %d)", shared.ErrAPIRequest, shared.ErrServiceUnavailable, resp.StatusCode)
	}

	if detail != "" {
		return fmt.Errorf("%w (status %d): %s", shared.ErrAPIRequest, resp.StatusCode, detail)
	}
	return fmt.Errorf("%w: status %d", shared.ErrAPIRequest, resp.StatusCode)
}

// Me verifies the attached token and returns the caller's profile.
//
// Calls GET /api/auth/me.
func (a *APIService) Me(ctx context.Context) (*models.UserProfile, error) {
	var profile models.UserProfile
	if err := a.doJSON(ctx, http.MethodGet, "/auth/me", nil, &profile); err != nil {
		return nil, err
	}
	if profile.ID == "" {
		return nil, fmt.Errorf("%w: profile has no id", shared.ErrInvalidResponse)
	}
	return &profile, nil
}

// Subscriptions lists the caller's channels in backend order.
//
// Calls GET /api/subscriptions.
func (a *APIService) Subscriptions(ctx context.Context) ([]models.Channel, error) {
	var resp models.SubscriptionsResponse
	if err := a.doJSON(ctx, http.MethodGet, "/subscriptions", nil, &resp); err != nil {
		return nil, err
	}
	if resp.Subscriptions == nil {
		return []models.Channel{}, nil
	}
	return resp.Subscriptions, nil
}

// SubscriptionVideos lists the aggregated feed in backend order.
//
// Calls GET /api/subscription-videos?max_results=N.
func (a *APIService) SubscriptionVideos(ctx context.Context) ([]models.VideoItem, error) {
	q := url.Values{}
	q.Set("max_results", strconv.Itoa(a.maxResults))

	var resp models.VideosResponse
	if err := a.doJSON(ctx, http.MethodGet, "/subscription-videos?"+q.Encode(), nil, &resp); err != nil {
		return nil, err
	}
	if resp.Videos == nil {
		return []models.VideoItem{}, nil
	}
	return resp.Videos, nil
}

// RefreshSubscriptions asks the backend to resync its subscription cache upstream.
//
// Calls POST /api/refresh-subscriptions.
func (a *APIService) RefreshSubscriptions(ctx context.Context) (*models.RefreshResult, error) {
	var result models.RefreshResult
	if err := a.doJSON(ctx, http.MethodPost, "/refresh-subscriptions", []byte("{}"), &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// CompleteLogin forwards the OAuth return query to the backend, which exchanges the
// authorization code and returns a bearer token with the profile.
//
// Calls GET /api/auth/google?{rawQuery}.
func (a *APIService) CompleteLogin(ctx context.Context, rawQuery string) (*models.AuthResponse, error) {
	path := "/auth/google"
	if rawQuery != "" {
		path += "?" + rawQuery
	}

	var auth models.AuthResponse
	if err := a.doJSON(ctx, http.MethodGet, path, nil, &auth); err != nil {
		return nil, err
	}
	if auth.AccessToken == "" {
		return nil, fmt.Errorf("%w: no access_token in response", shared.ErrInvalidResponse)
	}
	return &auth, nil
}

// Health reports whether the backend is reachable.
//
// Calls GET /api/health.
func (a *APIService) Health(ctx context.Context) (*models.Health, error) {
	var health models.Health
	if err := a.doJSON(ctx, http.MethodGet, "/health", nil, &health); err != nil {
		if errors.Is(err, shared.ErrNetworkFailure) {
			return nil, fmt.Errorf("%w: %w", shared.ErrServiceUnavailable, err)
		}
		return nil, err
	}
	return &health, nil
}
