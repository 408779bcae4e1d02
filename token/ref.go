package token

import (
	"errors"
	"fmt"
	"strings"

	"github.com/salonkit/authcore/session"
)

// ErrInvalidSessionRef is returned when a session reference cannot be
// reduced to a usable session ID.
var ErrInvalidSessionRef = errors.New("invalid session reference")

// SessionRef is implemented by wrapper types that carry a session ID.
type SessionRef interface {
	SessionRefID() string
}

// NormalizeSessionRef reduces the accepted session reference shapes to the
// bare session ID: a plain ID string, a [SessionRef] wrapper, a populated
// [session.Session], or a fmt.Stringer whose output looks like an ID.
// Degenerate stringifications (struct dumps, empty output) are rejected
// rather than silently embedded in a token.
func NormalizeSessionRef(ref any) (string, error) {
	switch v := ref.(type) {
	case nil:
		return "", ErrInvalidSessionRef
	case string:
		return checkSessionID(v)
	case SessionRef:
		return checkSessionID(v.SessionRefID())
	case *session.Session:
		if v == nil {
			return "", ErrInvalidSessionRef
		}
		return checkSessionID(v.ID)
	case session.Session:
		return checkSessionID(v.ID)
	case fmt.Stringer:
		return checkSessionID(v.String())
	default:
		return "", fmt.Errorf("%w: unsupported type %T", ErrInvalidSessionRef, ref)
	}
}

func checkSessionID(id string) (string, error) {
	if id == "" || len(id) > 128 {
		return "", ErrInvalidSessionRef
	}
	// A struct dump from a default String method never passes these.
	if strings.ContainsAny(id, " \t\n{}%&") {
		return "", ErrInvalidSessionRef
	}
	return id, nil
}
