// Package feed loads and refreshes the subscription channels and video feed of an
// authenticated session and holds them in memory for its lifetime.
package feed

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

// Client is the part of the backend the synchronizer calls.
type Client interface {
	Subscriptions(ctx context.Context) ([]models.Channel, error)
	SubscriptionVideos(ctx context.Context) ([]models.VideoItem, error)
	RefreshSubscriptions(ctx context.Context) (*models.RefreshResult, error)
}

// Gate is the session-side view the synchronizer needs: whether it may run, and how to
// end the session when the backend rejects the credential.
type Gate interface {
	Authenticated() bool
	Logout() error
}

// Opts configures a [Synchronizer].
type Opts struct {
	Client Client
	Gate   Gate
	Logger *log.Logger
}

// Synchronizer exclusively owns the [models.SyncState] of the current session.
//
// Channel and video loads replace their collection wholesale. Independent loads are not
// ordered against each other; whichever resolves last wins. Results of calls issued
// before a [Synchronizer.Reset] are dropped.
type Synchronizer struct {
	client Client
	gate   Gate
	logger *log.Logger

	refresh slot

	mu            sync.Mutex
	epoch         uint64
	channels      []models.Channel
	videos        []models.VideoItem
	loadingVideos bool
	err           error
}

// New creates a synchronizer in the initial, not-yet-loaded state.
func New(opts Opts) *Synchronizer {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}

	s := &Synchronizer{client: opts.Client, gate: opts.Gate, logger: logger}
	s.resetLocked()
	return s
}

// LoadChannels fetches the channel list and replaces the cached one.
func (s *Synchronizer) LoadChannels(ctx context.Context) error {
	if err := s.require("load channels"); err != nil {
		return err
	}

	epoch := s.currentEpoch()
	channels, err := s.client.Subscriptions(ctx)
	if err != nil {
		return s.fail(epoch, "load channels", err)
	}

	s.mu.Lock()
	if s.epoch == epoch {
		s.channels = channels
		s.err = nil
	}
	s.mu.Unlock()

	s.logger.Debug("channels loaded", "count", len(channels))
	return nil
}

// LoadVideos fetches the feed and replaces the cached one. LoadingVideos is true while
// the call is in flight and false once it resolves, whether or not it succeeded.
func (s *Synchronizer) LoadVideos(ctx context.Context) error {
	if err := s.require("load videos"); err != nil {
		return err
	}

	s.mu.Lock()
	epoch := s.epoch
	s.loadingVideos = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		if s.epoch == epoch {
			s.loadingVideos = false
		}
		s.mu.Unlock()
	}()

	videos, err := s.client.SubscriptionVideos(ctx)
	if err != nil {
		return s.fail(epoch, "load videos", err)
	}

	s.mu.Lock()
	if s.epoch == epoch {
		s.videos = videos
		s.err = nil
	}
	s.mu.Unlock()

	s.logger.Debug("videos loaded", "count", len(videos))
	return nil
}

// Refresh asks the backend to resync upstream, then reloads channels and videos, in
// that order. A call made while another is in flight returns
// [shared.ErrRefreshInProgress] immediately without touching the network.
//
// A failure at any step fails the whole call and leaves the collections that step
// would have replaced untouched.
func (s *Synchronizer) Refresh(ctx context.Context) error {
	if err := s.require("refresh"); err != nil {
		return err
	}

	if !s.refresh.TryAcquire() {
		return shared.ErrRefreshInProgress
	}
	defer s.refresh.Release()

	epoch := s.currentEpoch()
	result, err := s.client.RefreshSubscriptions(ctx)
	if err != nil {
		return s.fail(epoch, "refresh", err)
	}
	if result != nil {
		s.logger.Info("backend resynced", "message", result.Message, "count", result.Count)
	}

	if err := s.LoadChannels(ctx); err != nil {
		return err
	}
	return s.LoadVideos(ctx)
}

// Reset discards all state, returning to the not-yet-loaded value. In-flight calls
// resolve into the void.
func (s *Synchronizer) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.epoch++
	s.resetLocked()
	s.logger.Debug("feed reset")
}

func (s *Synchronizer) resetLocked() {
	initial := models.NewSyncState()
	s.channels = initial.Channels
	s.videos = initial.Videos
	s.loadingVideos = initial.LoadingVideos
	s.err = nil
}

// Snapshot returns a copy of the state, safe to keep and read without locking.
func (s *Synchronizer) Snapshot() models.SyncState {
	s.mu.Lock()
	defer s.mu.Unlock()

	channels := make([]models.Channel, len(s.channels))
	copy(channels, s.channels)
	videos := make([]models.VideoItem, len(s.videos))
	copy(videos, s.videos)

	return models.SyncState{
		Channels:      channels,
		Videos:        videos,
		LoadingVideos: s.loadingVideos,
		Refreshing:    s.refresh.Held(),
		Err:           s.err,
	}
}

// Refreshing reports whether a [Synchronizer.Refresh] is in flight.
func (s *Synchronizer) Refreshing() bool {
	return s.refresh.Held()
}

func (s *Synchronizer) require(op string) error {
	if s.gate == nil || !s.gate.Authenticated() {
		return fmt.Errorf("%w: %s requires an authenticated session", shared.ErrPrecondition, op)
	}
	return nil
}

func (s *Synchronizer) currentEpoch() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.epoch
}

// fail records err as the transient failure of the epoch it belongs to. A rejected
// credential ends the session, which in turn resets this synchronizer.
func (s *Synchronizer) fail(epoch uint64, op string, err error) error {
	s.mu.Lock()
	if s.epoch == epoch {
		s.err = err
	}
	s.mu.Unlock()

	if errors.Is(err, shared.ErrUnauthorized) {
		s.logger.Warn("credential rejected, ending session", "op", op)
		if lerr := s.gate.Logout(); lerr != nil {
			s.logger.Error("logout failed", "error", lerr)
		}
	} else {
		s.logger.Warn("feed call failed", "op", op, "error", err)
	}

	return fmt.Errorf("%s: %w", op, err)
}
