// Package refresh implements Redis-backed storage for rotating refresh
// tokens.
//
// # Storage model
//
// Raw token material never reaches Redis — records are keyed by the hex
// SHA-256 digest of the token secret. Each record is a Redis hash holding
// ownership (user, session, surface), lifetime, and revocation state, plus
// the digest of the successor token once rotated. A per-session index set
// makes cascading revocation a single server-side script.
//
// # Rotation
//
// Rotation runs as one atomic script: claim the presented record, create
// the successor, and chain the two. Exactly one concurrent caller wins the
// claim; a claim against an already-rotated record is the reuse signal the
// service escalates on.
//
// # Architecture boundaries
//
// This package owns refresh record persistence and the atomic claim. Reuse
// escalation (revoking the whole session) and token transport encoding are
// handled by the root package.
//
// # What this package must NOT do
//
//   - See raw token secrets; callers pass digests.
//   - Issue JWTs or touch session blobs.
//   - Import authcore, token, or session.
package refresh
