// Package token manages access-token issuance and verification using
// configured signing keys and strict validation semantics suitable for
// low-latency authorization paths.
//
// Verification is fully stateless: a token is judged by signature and
// registered claims alone, with no store lookups. Revocation therefore
// takes effect at the access-token horizon, which is why access TTLs stay
// short.
//
// # What this package must NOT do
//
//   - Access Redis or any I/O.
//   - Import authcore or refresh.
//   - Mint or inspect refresh tokens.
package token
