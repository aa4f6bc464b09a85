package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/subfeed/internal/models"
	"github.com/desertthunder/subfeed/internal/server"
	"github.com/desertthunder/subfeed/internal/shared"
	"github.com/urfave/cli/v3"
)

// AuthLogin signs in through the browser and stores the resulting session.
func (r *Runner) AuthLogin(ctx context.Context, cmd *cli.Command) error {
	var open shared.Opener = shared.OpenBrowser
	if cmd.Bool("no-browser") {
		open = nil
	}

	user, err := r.login(ctx, open, func(url string) {
		r.writePlain("Open this URL in your browser to sign in:\n\n  %s\n\n", url)
	})
	if err != nil {
		return err
	}

	return r.writePlain("✓ Signed in as %s (%s)\n", user.DisplayName, user.Email)
}

// login runs the OAuth round trip: it binds the landing server, sends the browser to the
// backend's login URL and waits for the return. announce is called with the URL when the
// browser cannot be opened.
func (r *Runner) login(ctx context.Context, open shared.Opener, announce func(url string)) (*models.UserProfile, error) {
	logger := shared.WithLogger(r.logger, "component", "server")
	handler := server.NewCallbackHandler(r.api, r.session, logger)

	ln, err := server.Listen(r.config.ListenAddr())
	if err != nil {
		return nil, err
	}

	loginURL := r.api.LoginURL()
	r.logger.Info("waiting for sign-in", "callback", r.config.CallbackURL())

	if open == nil {
		announce(loginURL)
	} else if err := open(loginURL); err != nil {
		r.logger.Warn("failed to open browser", "error", err)
		announce(loginURL)
	}

	ctx, cancel := context.WithTimeout(ctx, r.config.LoginTimeout())
	defer cancel()

	return server.ServeCallback(ctx, ln, handler, logger)
}

// AuthLogout forgets the stored session.
func (r *Runner) AuthLogout(ctx context.Context, cmd *cli.Command) error {
	if err := r.session.Logout(); err != nil {
		return err
	}
	return r.writePlain("✓ Signed out\n")
}

type authStatus struct {
	State         string              `json:"state"`
	Authenticated bool                `json:"authenticated"`
	User          *models.UserProfile `json:"user,omitempty"`
	Backend       *models.Health      `json:"backend,omitempty"`
	BackendError  string              `json:"backend_error,omitempty"`
}

// AuthStatus verifies the stored session and reports the backend's health.
func (r *Runner) AuthStatus(ctx context.Context, cmd *cli.Command) error {
	r.logger.Info("checking auth status")

	if err := r.session.Init(ctx); err != nil {
		return err
	}

	snapshot := r.session.Snapshot()
	status := authStatus{
		State:         r.session.State().String(),
		Authenticated: snapshot.Authenticated(),
		User:          snapshot.User,
	}

	health, err := r.api.Health(ctx)
	if err != nil {
		r.logger.Warn("backend health check failed", "error", err)
		status.BackendError = err.Error()
	} else {
		status.Backend = health
	}

	if cmd.Bool("json") {
		return r.writeJSON(status, true)
	}

	r.writePlainHeader("Session")
	if status.Authenticated {
		r.writePlain("✓ Signed in as %s (%s)\n", status.User.DisplayName, status.User.Email)
	} else {
		r.writePlain("✗ Not signed in. Run 'subfeed auth login'.\n")
	}

	r.writePlain("\nBackend: %s\n", r.api.Origin())
	if status.Backend != nil {
		return r.writePlain("Status: %s\n", status.Backend.Status)
	}
	return r.writePlain("Status: unreachable (%s)\n", status.BackendError)
}

// requireSession restores the stored session and fails when there is none.
func (r *Runner) requireSession(ctx context.Context) error {
	if err := r.session.Init(ctx); err != nil {
		return err
	}
	if !r.session.Authenticated() {
		return fmt.Errorf("%w: run 'subfeed auth login' first", shared.ErrNotAuthenticated)
	}
	return nil
}
