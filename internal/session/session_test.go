package session

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/desertthunder/subfeed/internal/models"
	"github.com/desertthunder/subfeed/internal/shared"
	tu "github.com/desertthunder/subfeed/internal/testing"
)

type fakeIdentity struct {
	mu      sync.Mutex
	profile *models.UserProfile
	err     error
	calls   int
	gate    chan struct{}
	entered chan struct{}
}

func (f *fakeIdentity) Me(ctx context.Context) (*models.UserProfile, error) {
	f.mu.Lock()
	f.calls++
	gate, entered := f.gate, f.entered
	f.mu.Unlock()

	if entered != nil {
		close(entered)
	}
	if gate != nil {
		<-gate
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	return f.profile, f.err
}

func (f *fakeIdentity) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeAuthorizer struct {
	mu    sync.Mutex
	token string
}

func (f *fakeAuthorizer) Authorize(token string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.token = token
}

func (f *fakeAuthorizer) Deauthorize() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.token = ""
}

func (f *fakeAuthorizer) Token() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.token
}

func newManager(token string, identity *fakeIdentity) (*Manager, *tu.MemoryCredentialStore, *fakeAuthorizer) {
	store := tu.NewMemoryCredentialStore(token)
	auth := &fakeAuthorizer{}
	m := New(Opts{Store: store, Identity: identity, Authorizer: auth})
	return m, store, auth
}

// assertPaired checks that token and user are set or cleared together
func assertPaired(t *testing.T, s models.Session) {
	t.Helper()
	if (s.Token == "") != (s.User == nil) {
		t.Fatalf("token/user invariant broken: token=%q user=%v", s.Token, s.User)
	}
}

func TestManager(t *testing.T) {
	t.Run("New", func(t *testing.T) {
		m, _, _ := newManager("", &fakeIdentity{})

		if m.State() != Unverified {
			t.Errorf("expected Unverified, got %s", m.State())
		}
		s := m.Snapshot()
		if !s.Verifying {
			t.Error("expected verifying before Init")
		}
		assertPaired(t, s)
	})

	t.Run("Init", func(t *testing.T) {
		t.Run("No Stored Token", func(t *testing.T) {
			identity := &fakeIdentity{}
			m, _, auth := newManager("", identity)

			if err := m.Init(context.Background()); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			if m.State() != Unauthenticated {
				t.Errorf("expected Unauthenticated, got %s", m.State())
			}
			if m.Snapshot().Verifying {
				t.Error("expected verifying=false")
			}
			if identity.Calls() != 0 {
				t.Errorf("expected no network call, got %d", identity.Calls())
			}
			if auth.Token() != "" {
				t.Error("expected no credential attached")
			}
		})

		t.Run("Verify Succeeds", func(t *testing.T) {
			identity := &fakeIdentity{profile: &models.UserProfile{ID: "u1", DisplayName: "Alice"}}
			m, _, auth := newManager("stored", identity)

			if err := m.Init(context.Background()); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			if m.State() != Authenticated {
				t.Fatalf("expected Authenticated, got %s", m.State())
			}
			s := m.Snapshot()
			assertPaired(t, s)
			if s.User.DisplayName != "Alice" {
				t.Errorf("expected Alice, got %s", s.User.DisplayName)
			}
			if s.Token != "stored" {
				t.Errorf("expected stored token, got %q", s.Token)
			}
			if auth.Token() != "stored" {
				t.Errorf("expected credential attached, got %q", auth.Token())
			}
		})

		t.Run("Verify Rejected", func(t *testing.T) {
			identity := &fakeIdentity{err: shared.ErrUnauthorized}
			m, store, auth := newManager("stale", identity)

			if err := m.Init(context.Background()); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			if m.State() != Unauthenticated {
				t.Errorf("expected Unauthenticated, got %s", m.State())
			}
			if store.Stored() != "" {
				t.Error("expected store cleared")
			}
			if auth.Token() != "" {
				t.Error("expected credential detached")
			}
			s := m.Snapshot()
			assertPaired(t, s)
			if s.Verifying {
				t.Error("expected verifying=false")
			}
		})

		t.Run("Network Failure Is Not Retried", func(t *testing.T) {
			identity := &fakeIdentity{err: shared.ErrNetworkFailure}
			m, store, _ := newManager("stored", identity)

			m.Init(context.Background())
			m.Init(context.Background())

			if identity.Calls() != 1 {
				t.Errorf("expected one verification call, got %d", identity.Calls())
			}
			if m.State() != Unauthenticated || store.Stored() != "" {
				t.Error("expected terminal Unauthenticated with cleared store")
			}
		})

		t.Run("Store Load Error", func(t *testing.T) {
			identity := &fakeIdentity{}
			m, store, _ := newManager("", identity)
			store.LoadErr = errors.New("disk gone")

			if err := m.Init(context.Background()); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if m.State() != Unauthenticated || identity.Calls() != 0 {
				t.Error("expected Unauthenticated without network call")
			}
		})

		t.Run("Pending Token Is Not Exposed", func(t *testing.T) {
			identity := &fakeIdentity{
				profile: &models.UserProfile{ID: "u1"},
				gate:    make(chan struct{}),
				entered: make(chan struct{}),
			}
			m, _, _ := newManager("stored", identity)

			done := make(chan struct{})
			go func() {
				m.Init(context.Background())
				close(done)
			}()

			<-identity.entered
			if m.State() != Verifying {
				t.Errorf("expected Verifying, got %s", m.State())
			}
			s := m.Snapshot()
			assertPaired(t, s)
			if s.Token != "" || !s.Verifying {
				t.Errorf("expected empty verifying snapshot, got %+v", s)
			}

			close(identity.gate)
			<-done
			assertPaired(t, m.Snapshot())
		})

		t.Run("Login During Verification Wins", func(t *testing.T) {
			identity := &fakeIdentity{
				err:     shared.ErrUnauthorized,
				gate:    make(chan struct{}),
				entered: make(chan struct{}),
			}
			m, store, auth := newManager("stale", identity)

			done := make(chan struct{})
			go func() {
				m.Init(context.Background())
				close(done)
			}()

			<-identity.entered
			if err := m.Login("fresh", models.UserProfile{ID: "u2", DisplayName: "Bob"}); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			close(identity.gate)
			<-done

			if m.State() != Authenticated {
				t.Errorf("late verification result should be discarded, got %s", m.State())
			}
			if store.Stored() != "fresh" || auth.Token() != "fresh" {
				t.Errorf("expected fresh credential kept, store=%q auth=%q", store.Stored(), auth.Token())
			}
		})
	})

	t.Run("Login", func(t *testing.T) {
		t.Run("Round Trip", func(t *testing.T) {
			m, store, auth := newManager("", &fakeIdentity{})
			m.Init(context.Background())

			profile := models.UserProfile{ID: "u1", DisplayName: "Alice"}
			if err := m.Login("t", profile); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			s := m.Snapshot()
			if s.Token != "t" || s.User == nil || *s.User != profile {
				t.Errorf("expected {t, %+v}, got %+v", profile, s)
			}
			if store.Stored() != "t" || auth.Token() != "t" {
				t.Error("expected token persisted and attached")
			}
		})

		t.Run("Replaces Session", func(t *testing.T) {
			m, store, _ := newManager("", &fakeIdentity{})

			m.Login("first", models.UserProfile{ID: "u1"})
			m.Login("second", models.UserProfile{ID: "u2"})

			s := m.Snapshot()
			if s.Token != "second" || s.User.ID != "u2" {
				t.Errorf("expected second session, got %+v", s)
			}
			if store.Stored() != "second" {
				t.Errorf("expected second token stored, got %q", store.Stored())
			}
		})

		t.Run("Empty Token", func(t *testing.T) {
			m, store, _ := newManager("", &fakeIdentity{})

			err := m.Login("", models.UserProfile{ID: "u1"})
			if !errors.Is(err, shared.ErrInvalidInput) {
				t.Errorf("expected ErrInvalidInput, got %v", err)
			}
			if store.Saves != 0 || m.State() == Authenticated {
				t.Error("empty token should not change the session")
			}
		})

		t.Run("Persistence Failure", func(t *testing.T) {
			m, store, _ := newManager("", &fakeIdentity{})
			store.SaveErr = errors.New("read-only")

			if err := m.Login("t", models.UserProfile{ID: "u1"}); err == nil {
				t.Error("expected persistence error")
			}
			if !m.Authenticated() {
				t.Error("session should stay authenticated in memory")
			}
		})

		t.Run("Snapshot Is A Copy", func(t *testing.T) {
			m, _, _ := newManager("", &fakeIdentity{})
			m.Login("t", models.UserProfile{ID: "u1", DisplayName: "Alice"})

			s := m.Snapshot()
			s.User.DisplayName = "Mallory"

			if m.Snapshot().User.DisplayName != "Alice" {
				t.Error("mutating a snapshot should not change the session")
			}
		})
	})

	t.Run("Logout", func(t *testing.T) {
		t.Run("Clears Everything", func(t *testing.T) {
			m, store, auth := newManager("", &fakeIdentity{})
			m.Login("t", models.UserProfile{ID: "u1"})

			if err := m.Logout(); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			s := m.Snapshot()
			assertPaired(t, s)
			if s.Token != "" || m.State() != Unauthenticated {
				t.Errorf("expected cleared session, got %+v", s)
			}
			if store.Stored() != "" || auth.Token() != "" {
				t.Error("expected store cleared and credential detached")
			}
		})

		t.Run("Idempotent", func(t *testing.T) {
			m, store, _ := newManager("", &fakeIdentity{})
			m.Login("t", models.UserProfile{ID: "u1"})

			m.Logout()
			once := m.Snapshot()
			if err := m.Logout(); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			twice := m.Snapshot()

			if once.Token != twice.Token || once.User != twice.User || once.Verifying != twice.Verifying {
				t.Errorf("expected same end state, got %+v then %+v", once, twice)
			}
			if m.State() != Unauthenticated || store.Stored() != "" {
				t.Error("expected Unauthenticated with cleared store")
			}
		})

		t.Run("Runs Hooks", func(t *testing.T) {
			m, _, _ := newManager("", &fakeIdentity{})

			var calls int
			m.OnLogout(func() {
				calls++
				if m.Authenticated() {
					t.Error("hook should observe the logged out session")
				}
			})

			m.Login("t", models.UserProfile{ID: "u1"})
			m.Logout()
			m.Logout()

			if calls != 2 {
				t.Errorf("expected hook to run per logout, got %d", calls)
			}
		})
	})

	t.Run("Invariant Under Concurrency", func(t *testing.T) {
		m, _, _ := newManager("", &fakeIdentity{})

		var wg sync.WaitGroup
		for i := range 50 {
			wg.Add(2)
			go func() {
				defer wg.Done()
				if i%2 == 0 {
					m.Login("t", models.UserProfile{ID: "u1"})
				} else {
					m.Logout()
				}
			}()
			go func() {
				defer wg.Done()
				if s := m.Snapshot(); (s.Token == "") != (s.User == nil) {
					t.Errorf("token/user invariant broken: %+v", s)
				}
			}()
		}
		wg.Wait()
	})
}

func TestState(t *testing.T) {
	tc := map[State]string{
		Unverified:      "unverified",
		Verifying:       "verifying",
		Authenticated:   "authenticated",
		Unauthenticated: "unauthenticated",
		State(9):        "State(9)",
	}
	for state, want := range tc {
		if got := state.String(); got != want {
			t.Errorf("expected %s, got %s", want, got)
		}
	}
}
