// Package repositories implements durable storage for the session credential.
//
// Two implementations of [models.CredentialStore] are provided:
//   - [CredentialRepository] : SQLite-backed, one row per (scope, key) in the credentials table
//   - [FileCredentialStore] : single file written with mode 0600
//
// The scope of a [CredentialRepository] is the backend origin, so tokens issued by different
// deployments never overwrite each other. Only the session manager calls into this package.
package repositories
