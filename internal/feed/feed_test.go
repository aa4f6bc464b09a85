package feed

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/desertthunder/subfeed/internal/models"
	"github.com/desertthunder/subfeed/internal/shared"
)

type fakeClient struct {
	mu       sync.Mutex
	channels []models.Channel
	videos   []models.VideoItem

	refreshErr  error
	channelsErr error
	videosErr   error

	calls []string

	// refreshGate blocks RefreshSubscriptions until closed; refreshEntered is closed on entry
	refreshGate    chan struct{}
	refreshEntered chan struct{}
	// videosGate blocks SubscriptionVideos until closed; videosEntered is closed on entry
	videosGate    chan struct{}
	videosEntered chan struct{}
}

func (f *fakeClient) record(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, name)
}

func (f *fakeClient) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.calls))
	copy(out, f.calls)
	return out
}

func (f *fakeClient) Subscriptions(ctx context.Context) ([]models.Channel, error) {
	f.record("subscriptions")
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.channelsErr != nil {
		return nil, f.channelsErr
	}
	return f.channels, nil
}

func (f *fakeClient) SubscriptionVideos(ctx context.Context) ([]models.VideoItem, error) {
	f.record("videos")
	if f.videosEntered != nil {
		close(f.videosEntered)
	}
	if f.videosGate != nil {
		<-f.videosGate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.videosErr != nil {
		return nil, f.videosErr
	}
	return f.videos, nil
}

func (f *fakeClient) RefreshSubscriptions(ctx context.Context) (*models.RefreshResult, error) {
	f.record("refresh")
	if f.refreshEntered != nil {
		close(f.refreshEntered)
	}
	if f.refreshGate != nil {
		<-f.refreshGate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.refreshErr != nil {
		return nil, f.refreshErr
	}
	return &models.RefreshResult{Message: "ok", Count: len(f.channels)}, nil
}

// fakeGate stands in for the session manager and resets the synchronizer on logout
type fakeGate struct {
	mu      sync.Mutex
	authed  bool
	logouts int
	onOut   func()
}

func (g *fakeGate) Authenticated() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.authed
}

func (g *fakeGate) Logout() error {
	g.mu.Lock()
	g.authed = false
	g.logouts++
	fn := g.onOut
	g.mu.Unlock()
	if fn != nil {
		fn()
	}
	return nil
}

func (g *fakeGate) Logouts() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.logouts
}

func newSynchronizer(client *fakeClient) (*Synchronizer, *fakeGate) {
	gate := &fakeGate{authed: true}
	s := New(Opts{Client: client, Gate: gate})
	gate.onOut = s.Reset
	return s, gate
}

var (
	someChannels = []models.Channel{{ChannelID: "c1", Title: "One"}, {ChannelID: "c2", Title: "Two"}}
	someVideos   = []models.VideoItem{{VideoID: "v1", Title: "First"}, {VideoID: "v2", Title: "Second"}}
)

func TestSynchronizer(t *testing.T) {
	t.Run("Initial State", func(t *testing.T) {
		s, _ := newSynchronizer(&fakeClient{})
		state := s.Snapshot()

		if !state.LoadingVideos {
			t.Error("expected loadingVideos=true before first load")
		}
		if state.Refreshing {
			t.Error("expected refreshing=false")
		}
		if len(state.Channels) != 0 || len(state.Videos) != 0 || state.Err != nil {
			t.Errorf("expected empty state, got %+v", state)
		}
	})

	t.Run("Precondition", func(t *testing.T) {
		client := &fakeClient{}
		s, gate := newSynchronizer(client)
		gate.authed = false

		for name, op := range map[string]func(context.Context) error{
			"LoadChannels": s.LoadChannels,
			"LoadVideos":   s.LoadVideos,
			"Refresh":      s.Refresh,
		} {
			t.Run(name, func(t *testing.T) {
				if err := op(context.Background()); !errors.Is(err, shared.ErrPrecondition) {
					t.Errorf("expected ErrPrecondition, got %v", err)
				}
			})
		}

		if n := len(client.Calls()); n != 0 {
			t.Errorf("expected no network calls, got %d", n)
		}
	})

	t.Run("LoadChannels", func(t *testing.T) {
		t.Run("Replaces Wholesale", func(t *testing.T) {
			client := &fakeClient{channels: someChannels}
			s, _ := newSynchronizer(client)

			if err := s.LoadChannels(context.Background()); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			client.channels = []models.Channel{{ChannelID: "c3"}}
			if err := s.LoadChannels(context.Background()); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			got := s.Snapshot().Channels
			if len(got) != 1 || got[0].ChannelID != "c3" {
				t.Errorf("expected channels replaced, got %+v", got)
			}
		})

		t.Run("Failure Keeps Prior Value", func(t *testing.T) {
			client := &fakeClient{channels: someChannels}
			s, _ := newSynchronizer(client)
			s.LoadChannels(context.Background())

			client.channelsErr = shared.ErrNetworkFailure
			err := s.LoadChannels(context.Background())
			if !errors.Is(err, shared.ErrNetworkFailure) {
				t.Fatalf("expected ErrNetworkFailure, got %v", err)
			}

			state := s.Snapshot()
			if len(state.Channels) != 2 {
				t.Errorf("expected prior channels kept, got %+v", state.Channels)
			}
			if !errors.Is(state.Err, shared.ErrNetworkFailure) {
				t.Errorf("expected transient error indicator, got %v", state.Err)
			}

			client.channelsErr = nil
			s.LoadChannels(context.Background())
			if s.Snapshot().Err != nil {
				t.Error("expected error indicator cleared by success")
			}
		})
	})

	t.Run("LoadVideos", func(t *testing.T) {
		t.Run("Empty Result", func(t *testing.T) {
			client := &fakeClient{videos: []models.VideoItem{}}
			s, _ := newSynchronizer(client)

			if err := s.LoadVideos(context.Background()); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			state := s.Snapshot()
			if state.Videos == nil || len(state.Videos) != 0 {
				t.Errorf("expected empty videos, got %#v", state.Videos)
			}
			if state.LoadingVideos {
				t.Error("expected loadingVideos=false after empty load")
			}
		})

		t.Run("Loading Flag While In Flight", func(t *testing.T) {
			client := &fakeClient{
				videos:        someVideos,
				videosGate:    make(chan struct{}),
				videosEntered: make(chan struct{}),
			}
			s, _ := newSynchronizer(client)

			done := make(chan error, 1)
			go func() { done <- s.LoadVideos(context.Background()) }()

			<-client.videosEntered
			if !s.Snapshot().LoadingVideos {
				t.Error("expected loadingVideos=true while in flight")
			}

			close(client.videosGate)
			if err := <-done; err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			state := s.Snapshot()
			if state.LoadingVideos || len(state.Videos) != 2 {
				t.Errorf("expected loaded videos, got %+v", state)
			}
		})

		t.Run("Failure Clears Flag And Keeps Videos", func(t *testing.T) {
			client := &fakeClient{videos: someVideos}
			s, _ := newSynchronizer(client)
			s.LoadVideos(context.Background())

			client.videosErr = shared.ErrAPIRequest
			if err := s.LoadVideos(context.Background()); !errors.Is(err, shared.ErrAPIRequest) {
				t.Fatalf("expected ErrAPIRequest, got %v", err)
			}

			state := s.Snapshot()
			if state.LoadingVideos {
				t.Error("expected loadingVideos=false after failure")
			}
			if len(state.Videos) != 2 {
				t.Errorf("expected prior videos kept, got %+v", state.Videos)
			}
		})

		t.Run("Order Preserved", func(t *testing.T) {
			client := &fakeClient{videos: []models.VideoItem{{VideoID: "old"}, {VideoID: "new"}}}
			s, _ := newSynchronizer(client)
			s.LoadVideos(context.Background())

			got := s.Snapshot().Videos
			if got[0].VideoID != "old" || got[1].VideoID != "new" {
				t.Errorf("expected backend order, got %+v", got)
			}
		})
	})

	t.Run("Refresh", func(t *testing.T) {
		t.Run("Ordered Steps", func(t *testing.T) {
			client := &fakeClient{channels: someChannels, videos: someVideos}
			s, _ := newSynchronizer(client)

			if err := s.Refresh(context.Background()); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			calls := client.Calls()
			want := []string{"refresh", "subscriptions", "videos"}
			if len(calls) != len(want) {
				t.Fatalf("expected %v, got %v", want, calls)
			}
			for i := range want {
				if calls[i] != want[i] {
					t.Errorf("step %d: expected %s, got %s", i, want[i], calls[i])
				}
			}

			state := s.Snapshot()
			if len(state.Channels) != 2 || len(state.Videos) != 2 || state.Refreshing {
				t.Errorf("unexpected state %+v", state)
			}
		})

		t.Run("Upstream Failure Leaves State", func(t *testing.T) {
			client := &fakeClient{channels: someChannels, videos: someVideos}
			s, _ := newSynchronizer(client)
			s.LoadChannels(context.Background())
			s.LoadVideos(context.Background())

			client.channels = nil
			client.videos = nil
			client.refreshErr = shared.ErrNetworkFailure

			if err := s.Refresh(context.Background()); !errors.Is(err, shared.ErrNetworkFailure) {
				t.Fatalf("expected ErrNetworkFailure, got %v", err)
			}

			state := s.Snapshot()
			if len(state.Channels) != 2 || len(state.Videos) != 2 {
				t.Errorf("expected prior collections kept, got %+v", state)
			}
			if state.Refreshing {
				t.Error("expected refreshing=false after failure")
			}
		})

		t.Run("Second Call Is Dropped", func(t *testing.T) {
			client := &fakeClient{
				channels:       someChannels,
				videos:         someVideos,
				refreshGate:    make(chan struct{}),
				refreshEntered: make(chan struct{}),
			}
			s, _ := newSynchronizer(client)

			if s.Snapshot().Refreshing {
				t.Fatal("expected refreshing=false before the call")
			}

			done := make(chan error, 1)
			go func() { done <- s.Refresh(context.Background()) }()

			<-client.refreshEntered
			if !s.Snapshot().Refreshing {
				t.Error("expected refreshing=true during the call")
			}

			before := len(client.Calls())
			if err := s.Refresh(context.Background()); !errors.Is(err, shared.ErrRefreshInProgress) {
				t.Errorf("expected ErrRefreshInProgress, got %v", err)
			}
			if after := len(client.Calls()); after != before {
				t.Errorf("expected zero network calls from second refresh, got %d", after-before)
			}

			close(client.refreshGate)
			if err := <-done; err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if s.Snapshot().Refreshing {
				t.Error("expected refreshing=false after the call")
			}
			if got := len(client.Calls()); got != 3 {
				t.Errorf("expected exactly one refresh sequence, got %v", client.Calls())
			}
		})
	})

	t.Run("Unauthorized Ends Session", func(t *testing.T) {
		client := &fakeClient{channels: someChannels, videos: someVideos}
		s, gate := newSynchronizer(client)
		s.LoadChannels(context.Background())

		client.videosErr = shared.ErrUnauthorized
		if err := s.LoadVideos(context.Background()); !errors.Is(err, shared.ErrUnauthorized) {
			t.Fatalf("expected ErrUnauthorized, got %v", err)
		}

		if gate.Logouts() != 1 {
			t.Errorf("expected one logout, got %d", gate.Logouts())
		}
		state := s.Snapshot()
		if len(state.Channels) != 0 || !state.LoadingVideos || state.Err != nil {
			t.Errorf("expected reset state after logout, got %+v", state)
		}
	})

	t.Run("Reset Fences In Flight Results", func(t *testing.T) {
		client := &fakeClient{
			videos:        someVideos,
			videosGate:    make(chan struct{}),
			videosEntered: make(chan struct{}),
		}
		s, _ := newSynchronizer(client)

		done := make(chan error, 1)
		go func() { done <- s.LoadVideos(context.Background()) }()

		<-client.videosEntered
		s.Reset()
		close(client.videosGate)
		<-done

		state := s.Snapshot()
		if len(state.Videos) != 0 {
			t.Errorf("expected stale result dropped, got %+v", state.Videos)
		}
		if !state.LoadingVideos {
			t.Error("expected reset loadingVideos=true to survive the stale completion")
		}
	})

	t.Run("Snapshot Is A Copy", func(t *testing.T) {
		client := &fakeClient{channels: someChannels}
		s, _ := newSynchronizer(client)
		s.LoadChannels(context.Background())

		snap := s.Snapshot()
		snap.Channels[0].Title = "changed"

		if s.Snapshot().Channels[0].Title != "One" {
			t.Error("mutating a snapshot should not change state")
		}
	})
}

func TestSlot(t *testing.T) {
	var s slot
	if !s.TryAcquire() {
		t.Fatal("expected first acquire to succeed")
	}
	if s.TryAcquire() {
		t.Error("expected second acquire to fail")
	}
	if !s.Held() {
		t.Error("expected slot held")
	}
	s.Release()
	if s.Held() || !s.TryAcquire() {
		t.Error("expected slot free after release")
	}
}
