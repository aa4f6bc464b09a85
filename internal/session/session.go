// Package session owns the authentication state of the client.
//
// A [Manager] moves through [Unverified] → [Verifying] → {[Authenticated], [Unauthenticated]}.
// It is the only reader and writer of the [models.CredentialStore] and the only caller of
// the [Authorizer] that attaches the credential to outgoing requests.
package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/subfeed/internal/models"
	"github.com/desertthunder/subfeed/internal/shared"
)

// State is the position of a [Manager] in its lifecycle.
type State int

const (
	Unverified State = iota
	Verifying
	Authenticated
	Unauthenticated
)

func (s State) String() string {
	switch s {
	case Unverified:
		return "unverified"
	case Verifying:
		return "verifying"
	case Authenticated:
		return "authenticated"
	case Unauthenticated:
		return "unauthenticated"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// IdentityChecker asks the backend who the attached credential belongs to.
type IdentityChecker interface {
	Me(ctx context.Context) (*models.UserProfile, error)
}

// Authorizer attaches and detaches the credential on outgoing requests.
type Authorizer interface {
	Authorize(token string)
	Deauthorize()
}

// Opts configures a [Manager].
type Opts struct {
	Store      models.CredentialStore
	Identity   IdentityChecker
	Authorizer Authorizer
	Logger     *log.Logger
}

// Manager is the sole source of truth for whether the user is authenticated.
type Manager struct {
	store    models.CredentialStore
	identity IdentityChecker
	auth     Authorizer
	logger   *log.Logger

	mu        sync.Mutex
	state     State
	token     string
	user      *models.UserProfile
	verifying bool
	started   bool
	// generation increments on every Login/Logout so a late verification result can tell it was superseded.
	generation uint64
	hooks      []func()
}

// New builds a manager in [Unverified]. Call [Manager.Init] to hydrate it.
func New(opts Opts) *Manager {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}

	return &Manager{
		store:     opts.Store,
		identity:  opts.Identity,
		auth:      opts.Authorizer,
		logger:    logger,
		state:     Unverified,
		verifying: true,
	}
}

// Init loads the stored credential and verifies it with the backend.
//
// With no stored token the manager becomes [Unauthenticated] without a network call.
// Any verification failure is terminal: the store is cleared and the user must log in again.
// The outcome is read from [Manager.State]; an error is returned only when the store
// cannot be cleared. Only the first call does anything.
func (m *Manager) Init(ctx context.Context) error {
	m.mu.Lock()
	if m.started {
		m.mu.Unlock()
		return nil
	}
	m.started = true
	gen := m.generation
	m.mu.Unlock()

	token, err := m.store.Load()
	if err != nil {
		if !errors.Is(err, shared.ErrCredentialNotFound) {
			m.logger.Warn("failed to load stored credential", "error", err)
		}
		m.mu.Lock()
		if m.generation == gen {
			m.settleLocked(Unauthenticated, "", nil)
		}
		m.mu.Unlock()
		return nil
	}

	m.mu.Lock()
	if m.generation != gen {
		m.mu.Unlock()
		return nil
	}
	m.state = Verifying
	m.auth.Authorize(token)
	m.mu.Unlock()

	m.logger.Debug("verifying stored credential")
	profile, verr := m.identity.Me(ctx)

	m.mu.Lock()
	if m.generation != gen {
		m.mu.Unlock()
		m.logger.Debug("verification superseded by login or logout")
		return nil
	}
	if verr != nil {
		m.auth.Deauthorize()
		m.settleLocked(Unauthenticated, "", nil)
		m.mu.Unlock()

		m.logger.Warn("stored credential rejected", "error", verr)
		if err := m.store.Clear(); err != nil {
			return fmt.Errorf("failed to clear rejected credential: %w", err)
		}
		return nil
	}

	m.settleLocked(Authenticated, token, profile)
	m.mu.Unlock()

	m.logger.Info("session restored", "user", profile.ID)
	return nil
}

// Login replaces the session with token and profile, persists the token and attaches it.
//
// A login that lands while verification is pending ends verification; the verification
// result is discarded. A persistence failure is returned but the session stays authenticated.
func (m *Manager) Login(token string, profile models.UserProfile) error {
	if token == "" {
		return fmt.Errorf("%w: empty token", shared.ErrInvalidInput)
	}

	p := profile
	m.mu.Lock()
	m.generation++
	m.started = true
	m.auth.Authorize(token)
	m.settleLocked(Authenticated, token, &p)
	m.mu.Unlock()

	m.logger.Info("logged in", "user", p.ID)
	if err := m.store.Save(token); err != nil {
		return fmt.Errorf("failed to persist credential: %w", err)
	}
	return nil
}

// Logout ends the session, clears the store, detaches the credential and then runs the
// [Manager.OnLogout] hooks. Calling it again has the same end state.
func (m *Manager) Logout() error {
	m.mu.Lock()
	m.generation++
	m.started = true
	m.auth.Deauthorize()
	m.settleLocked(Unauthenticated, "", nil)
	hooks := make([]func(), len(m.hooks))
	copy(hooks, m.hooks)
	m.mu.Unlock()

	err := m.store.Clear()
	for _, fn := range hooks {
		fn()
	}

	m.logger.Info("logged out")
	if err != nil {
		return fmt.Errorf("failed to clear credential: %w", err)
	}
	return nil
}

// OnLogout registers fn to run after every [Manager.Logout], outside the manager's lock.
func (m *Manager) OnLogout(fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hooks = append(m.hooks, fn)
}

// settleLocked sets the session pair together and ends verification. m.mu must be held.
func (m *Manager) settleLocked(state State, token string, user *models.UserProfile) {
	m.state = state
	m.token = token
	m.user = user
	m.verifying = false
}

// Snapshot returns a copy of the session. The pending token of an unresolved verification is never exposed.
func (m *Manager) Snapshot() models.Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := models.Session{Token: m.token, Verifying: m.verifying}
	if m.user != nil {
		u := *m.user
		s.User = &u
	}
	return s
}

// State returns the current lifecycle state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Authenticated reports whether a verified session is held.
func (m *Manager) Authenticated() bool {
	return m.State() == Authenticated
}
