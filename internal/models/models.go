// package models defines the data model for the subscription feed client
package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// UserProfile is the identity attached to an authenticated [Session].
type UserProfile struct {
	ID          string `json:"id"`
	DisplayName string `json:"name"`
	Email       string `json:"email,omitempty"`
	AvatarURL   string `json:"picture,omitempty"`
}

// Channel represents one subscription. ChannelID is the unique key.
type Channel struct {
	ChannelID    string `json:"channel_id"`
	Title        string `json:"channel_title"`
	ThumbnailURL string `json:"thumbnail_url,omitempty"`
	Description  string `json:"channel_description,omitempty"`
}

// VideoItem represents one feed entry. VideoID is the unique key.
type VideoItem struct {
	VideoID      string    `json:"video_id"`
	Title        string    `json:"title"`
	ChannelID    string    `json:"channel_id,omitempty"`
	ChannelTitle string    `json:"channel_title"`
	ThumbnailURL string    `json:"thumbnail_url,omitempty"`
	Description  string    `json:"description,omitempty"`
	PublishedAt  Timestamp `json:"published_at"`
}

// Timestamp is a [time.Time] that also accepts the zone-less ISO form the backend
// emits for naive datetimes. Zone-less values are read as UTC.
type Timestamp struct {
	time.Time
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
}

// UnmarshalJSON implements [json.Unmarshaler].
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		t.Time = time.Time{}
		return nil
	}

	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("timestamp must be a string: %w", err)
	}

	for _, layout := range timestampLayouts {
		if parsed, err := time.Parse(layout, raw); err == nil {
			t.Time = parsed
			return nil
		}
	}

	return fmt.Errorf("unrecognized timestamp %q", raw)
}

// MarshalJSON implements [json.Marshaler] using RFC 3339.
func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.Time.Format(time.RFC3339))
}

// SubscriptionsResponse is the envelope of GET /api/subscriptions.
type SubscriptionsResponse struct {
	Subscriptions []Channel `json:"subscriptions"`
}

// VideosResponse is the envelope of GET /api/subscription-videos.
type VideosResponse struct {
	Videos []VideoItem `json:"videos"`
}

// RefreshResult is the body of POST /api/refresh-subscriptions.
type RefreshResult struct {
	Message string `json:"message"`
	Count   int    `json:"count"`
}

// AuthResponse is what the backend returns once it has completed the OAuth callback.
type AuthResponse struct {
	AccessToken string      `json:"access_token"`
	User        UserProfile `json:"user"`
}

// Health is the body of GET /api/health.
type Health struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}

// Session is a snapshot of the authentication state.
//
// Token and User are set and cleared together: Token == "" exactly when User == nil.
// Verifying is true until the first verification of a stored token resolves.
type Session struct {
	Token     string       `json:"-"`
	User      *UserProfile `json:"user"`
	Verifying bool         `json:"verifying"`
}

// Authenticated reports whether the snapshot carries a credential and its profile.
func (s Session) Authenticated() bool {
	return s.Token != "" && s.User != nil
}

// SyncState is a snapshot of the in-memory feed data for the current session.
//
// LoadingVideos starts true so that "not loaded yet" is distinguishable from an empty feed.
type SyncState struct {
	Channels      []Channel   `json:"channels"`
	Videos        []VideoItem `json:"videos"`
	LoadingVideos bool        `json:"loading_videos"`
	Refreshing    bool        `json:"refreshing"`
	Err           error       `json:"-"`
}

// NewSyncState returns the state of a session that has not loaded anything yet.
func NewSyncState() SyncState {
	return SyncState{
		Channels:      []Channel{},
		Videos:        []VideoItem{},
		LoadingVideos: true,
	}
}

// CredentialStore persists a single bearer token across process restarts.
//
// Load returns shared.ErrCredentialNotFound when nothing is stored.
type CredentialStore interface {
	Save(token string) error // Save replaces the stored token
	Load() (string, error)   // Load returns the stored token
	Clear() error            // Clear removes the stored token; clearing an empty store is not an error
}
