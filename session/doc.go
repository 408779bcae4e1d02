// Package session implements Redis-backed storage for authentication
// sessions.
//
// A session is the durable anchor for a chain of rotating refresh tokens.
// Sessions are stored as versioned binary blobs and survive revocation for
// the configured retention window so that audit trails and reuse detection
// keep working after logout.
//
// # Architecture boundaries
//
// This package owns session persistence, the binary wire format, and the
// atomic touch/revoke scripts. It does NOT know about JWTs, refresh token
// hashing, or surface TTL policy — those belong to the root package and its
// siblings.
//
// # What this package must NOT do
//
//   - Issue or verify tokens.
//   - Decide revocation policy; callers pass the reason.
//   - Import authcore, token, or refresh.
package session
