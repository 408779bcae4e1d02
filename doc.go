// Package authcore manages the authentication token and session lifecycle
// for multi-surface SaaS backends: stateless JWT access tokens, rotating
// opaque refresh tokens with reuse detection, and Redis-backed sessions
// with cascading revocation.
//
// The package is designed for concurrent server workloads: Service methods
// are safe to call from multiple goroutines after initialization through
// [Builder.Build].
//
// # Architecture boundaries
//
// authcore is the public surface. It exposes [Service], [Builder],
// [Config], and value types (TokenPair, AccessPayload, MetricsSnapshot,
// SessionInfo, etc.). All internal coordination — secret generation,
// session encoding, audit dispatch, metric storage — lives under internal/
// or the token/session/refresh subpackages.
//
// # What this package must NOT do
//
//   - Expose Redis clients, internal stores, or encoding details in its
//     public API.
//   - Perform I/O outside of Service methods (construction via Builder is
//     allocation-only until Build).
//   - Import any sub-package that re-imports authcore (no import cycles).
//
// # Performance contract
//
// Authorize is the hot path. It must complete without Redis round-trips —
// access tokens are judged by signature and claims alone. Authenticate,
// Refresh, and revocation operations are allowed one Redis round-trip per
// call; cascades run server-side in a single script.
package authcore
