// Package middleware exposes HTTP middleware adapters for stateless access
// token enforcement built on top of authcore.Service authorization.
//
// # Guards
//
//   - [Guard] — bearer token verification, no Redis call.
//   - [RequireSurface] — [Guard] plus an exact-surface gate.
//
// Each guard reads the Authorization header, calls Service.Authorize, and
// injects the verified payload into the request context.
//
// # Architecture boundaries
//
// This package translates HTTP semantics into Service calls. It does NOT
// implement authorization logic itself — all decisions are delegated to
// Service.Authorize.
//
// # What this package must NOT do
//
//   - Parse or create JWTs directly (delegates to Service).
//   - Access Redis (Service handles I/O).
//   - Make authorization decisions beyond pass/reject from Service.Authorize.
package middleware
