package server

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"io"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/subfeed/internal/models"
	"github.com/desertthunder/subfeed/internal/shared"
	"github.com/desertthunder/subfeed/internal/views"
)

// Completer exchanges an OAuth return for a bearer token via the backend.
type Completer interface {
	CompleteLogin(ctx context.Context, rawQuery string) (*models.AuthResponse, error)
}

// SessionSink receives the completed login.
type SessionSink interface {
	Login(token string, profile models.UserProfile) error
	Snapshot() models.Session
}

// CallbackResult contains the outcome of the OAuth return.
type CallbackResult struct {
	User *models.UserProfile
	err  error
}

func (c *CallbackResult) Error() error {
	return c.err
}

// CallbackHandler completes a single OAuth return and logs the session in.
// Implements the [Handler] interface for registration with a [Router].
type CallbackHandler struct {
	completer  Completer
	session    SessionSink
	logger     *log.Logger
	resultChan chan CallbackResult
	once       sync.Once
	mu         sync.Mutex
	hit        bool
}

// NewCallbackHandler creates a handler that forwards the OAuth return through completer
// and hands the result to session.
func NewCallbackHandler(completer Completer, session SessionSink, logger *log.Logger) *CallbackHandler {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &CallbackHandler{
		completer:  completer,
		session:    session,
		logger:     logger,
		resultChan: make(chan CallbackResult, 1),
	}
}

// Routes returns the HTTP routes this handler serves.
func (h *CallbackHandler) Routes() []string {
	return []string{views.CallbackPath, "/"}
}

// ServeHTTP renders a status page, or completes the login when the request is an OAuth return.
func (h *CallbackHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	view := views.Select(h.session.Snapshot(), r.URL)
	if view != views.ViewCallback {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		h.renderStatus(w, view)
		return
	}

	h.mu.Lock()
	if h.hit {
		h.mu.Unlock()
		http.Error(w, "Callback already processed", http.StatusBadRequest)
		return
	}
	h.hit = true
	h.mu.Unlock()

	q := r.URL.Query()
	if errParam := q.Get("error"); errParam != "" {
		err := fmt.Errorf("%w: authorization denied: %s", shared.ErrNotAuthenticated, errParam)
		h.Send(CallbackResult{err: err})
		h.render(w, http.StatusBadRequest, page{Title: "Authorization Failed", Message: errParam})
		return
	}

	auth, err := h.completer.CompleteLogin(r.Context(), r.URL.RawQuery)
	if err != nil {
		h.logger.Error("failed to complete login", "error", err)
		h.Send(CallbackResult{err: fmt.Errorf("login completion failed: %w", err)})
		h.render(w, http.StatusBadGateway, page{Title: "Authorization Failed", Message: "The server could not complete sign-in. Return to the terminal for details."})
		return
	}

	if err := h.session.Login(auth.AccessToken, auth.User); err != nil {
		if errors.Is(err, shared.ErrInvalidInput) {
			h.Send(CallbackResult{err: err})
			h.render(w, http.StatusBadGateway, page{Title: "Authorization Failed", Message: "The server returned an unusable credential."})
			return
		}
		h.logger.Warn("signed in but the credential was not saved", "error", err)
	}

	user := auth.User
	h.Send(CallbackResult{User: &user})
	h.render(w, http.StatusOK, page{
		Title:   "✓ Authorization Successful",
		Message: "You can close this window and return to the terminal.",
		User:    user.DisplayName,
	})
}

func (h *CallbackHandler) renderStatus(w http.ResponseWriter, view views.View) {
	switch view {
	case views.ViewLoading:
		h.render(w, http.StatusOK, page{Title: "Checking session", Message: "Verifying your stored sign-in..."})
	case views.ViewDashboard:
		s := h.session.Snapshot()
		name := ""
		if s.User != nil {
			name = s.User.DisplayName
		}
		h.render(w, http.StatusOK, page{Title: "Signed in", Message: "Return to the terminal to browse your feed.", User: name})
	default:
		h.render(w, http.StatusOK, page{Title: "Waiting for sign-in", Message: "Complete sign-in in the browser tab that was opened."})
	}
}

type page struct {
	Title   string
	Message string
	User    string
}

var pageTemplate = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html>
<head>
    <title>{{.Title}}</title>
    <style>
        body { font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, sans-serif;
               display: flex; align-items: center; justify-content: center; height: 100vh;
               margin: 0; background: #f5f5f5; }
        .container { text-align: center; background: white; padding: 2rem;
                     border-radius: 8px; box-shadow: 0 2px 4px rgba(0,0,0,0.1); }
        h1 { color: #FF0000; margin: 0 0 1rem 0; }
        p { color: #666; margin: 0; }
    </style>
</head>
<body>
    <div class="container">
        <h1>{{.Title}}</h1>
        {{if .User}}<p>Signed in as <strong>{{.User}}</strong></p>{{end}}
        <p>{{.Message}}</p>
    </div>
</body>
</html>
`))

func (h *CallbackHandler) render(w http.ResponseWriter, status int, p page) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := pageTemplate.Execute(w, p); err != nil {
		h.logger.Warn("failed to render page", "error", err)
	}
}

// Send sends the result through the channel (only once).
func (h *CallbackHandler) Send(result CallbackResult) {
	h.once.Do(func() {
		h.resultChan <- result
		close(h.resultChan)
	})
}

// Result returns the result channel.
//
// Channel will receive exactly one result and then be closed.
func (h *CallbackHandler) Result() <-chan CallbackResult {
	return h.resultChan
}

// Listen binds the landing server address so the browser can be opened before serving starts.
func Listen(addr string) (net.Listener, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	return ln, nil
}

// RunCallback listens on addr and serves handler until it reports a result or ctx ends.
func RunCallback(ctx context.Context, addr string, handler *CallbackHandler, logger *log.Logger) (*models.UserProfile, error) {
	ln, err := Listen(addr)
	if err != nil {
		return nil, err
	}
	return ServeCallback(ctx, ln, handler, logger)
}

// ServeCallback serves handler on ln until it reports a result or ctx ends, then shuts the server down.
func ServeCallback(ctx context.Context, ln net.Listener, handler *CallbackHandler, logger *log.Logger) (*models.UserProfile, error) {
	if logger == nil {
		logger = log.New(io.Discard)
	}

	router := NewBasicRouter()
	router.Use(RequestLogger(logger))
	router.Handler(handler)

	httpServer := &http.Server{
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Infof("starting OAuth landing server at %v", ln.Addr())
		if err := httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrors <- err
		}
	}()

	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Warn("error shutting down server", "error", err)
		}
	}()

	select {
	case result := <-handler.Result():
		if result.Error() != nil {
			return nil, fmt.Errorf("authorization failed: %w", result.Error())
		}
		return result.User, nil
	case err := <-serverErrors:
		return nil, fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: no authorization received", shared.ErrTimeout)
		}
		return nil, ctx.Err()
	}
}
