// Package models defines the domain entities shared by the session, feed and presentation layers.
//
// The package contains three categories of types:
//
// 1. Data Transfer Objects (DTOs): JSON shapes returned by the backend
//   - [UserProfile] : The signed-in user as returned by /api/auth/me
//   - [Channel] : One subscription from /api/subscriptions
//   - [VideoItem] : One feed entry from /api/subscription-videos
//   - [AuthResponse], [RefreshResult], [Health] : envelopes of the remaining endpoints
//
// 2. Snapshots: read-only copies of state owned elsewhere
//   - [Session] : owned by the session manager
//   - [SyncState] : owned by the feed synchronizer
//
// 3. Persistence interfaces
//   - [CredentialStore] : durable storage for the single bearer token
//
// Collections keep the order the backend returned; nothing here sorts or de-duplicates.
package models
