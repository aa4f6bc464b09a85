// Package services implements the client for the subscription feed backend.
//
// # API Service
//
// [APIService] wraps an [http.Client] and exposes two layers:
//   - Raw [APIService.Get] and [APIService.Post] calls returning an [APIResponse], used by the `api` command
//   - Typed calls for each endpoint of the REST surface, used by the session manager and feed synchronizer
//
// All paths are resolved against the `/api` base path of the configured origin.
// Outgoing requests are throttled with a [rate.Limiter].
//
// # Credential Attachment
//
// [BearerTransport] is the only place that writes the Authorization header. The session
// manager attaches a token with [APIService.Authorize] once a session becomes authenticated
// and removes it with [APIService.Deauthorize] on logout. Every request carries an
// X-Request-ID so backend logs can be correlated with ours.
//
// # Error Handling
//
// Typed calls map failures onto sentinel errors from the shared package:
//   - [shared.ErrNetworkFailure] : transport or connectivity failure
//   - [shared.ErrUnauthorized] : 401 or 403, the credential was rejected
//   - [shared.ErrAPIRequest] : any other non-2xx status, with the FastAPI detail when present
//   - [shared.ErrInvalidResponse] : body did not decode
package services
