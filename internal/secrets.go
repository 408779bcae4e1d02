package internal

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
)

// RefreshSecretSize is the number of random bytes behind every refresh token.
// 48 bytes of entropy, hex-encoded to 96 characters for transport.
const RefreshSecretSize = 48

const refreshTokenEncodedLen = RefreshSecretSize * 2

// ErrMalformedRefreshToken is returned when a presented refresh token does not
// decode to a secret of the expected size.
var ErrMalformedRefreshToken = errors.New("malformed refresh token")

// RefreshSecret is the raw random material behind one refresh token. It exists
// only in memory between generation and hand-off to the caller; storage keeps
// the SHA-256 digest.
type RefreshSecret [RefreshSecretSize]byte

// NewRefreshSecret draws a fresh refresh secret from crypto/rand.
func NewRefreshSecret() (RefreshSecret, error) {
	var secret RefreshSecret
	_, err := rand.Read(secret[:])
	return secret, err
}

// HashRefreshSecret computes the at-rest digest of a refresh secret. The digest
// is deterministic and keyless so a presented token can be looked up by hash.
func HashRefreshSecret(secret RefreshSecret) [32]byte {
	return sha256.Sum256(secret[:])
}

// EncodeRefreshToken renders a secret in its transport form.
func EncodeRefreshToken(secret RefreshSecret) string {
	return hex.EncodeToString(secret[:])
}

// DecodeRefreshToken parses a presented raw token back into its secret.
func DecodeRefreshToken(token string) (RefreshSecret, error) {
	var secret RefreshSecret

	if len(token) != refreshTokenEncodedLen {
		return secret, ErrMalformedRefreshToken
	}
	raw, err := hex.DecodeString(token)
	if err != nil {
		return secret, ErrMalformedRefreshToken
	}
	if len(raw) != RefreshSecretSize {
		return secret, ErrMalformedRefreshToken
	}

	copy(secret[:], raw)
	return secret, nil
}

// HashEqual compares two digests in constant time.
func HashEqual(a, b [32]byte) bool {
	return subtle.ConstantTimeCompare(a[:], b[:]) == 1
}

// HashHex renders a digest as the lowercase hex form used in store keys and
// audit chains.
func HashHex(hash [32]byte) string {
	return hex.EncodeToString(hash[:])
}
