package authcore

import (
	"errors"
	"fmt"

	"github.com/salonkit/authcore/token"
)

var (
	// ErrUnauthorized is an exported constant or variable used by the token lifecycle service.
	//
	// Every credential-rejection path — bad signature, expired token, unknown
	// refresh token, revoked session — collapses to this error so callers can
	// not distinguish why a presented token failed.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrReuseDetected is an exported constant or variable used by the token lifecycle service.
	//
	// Returned when a refresh token that was already rotated is presented
	// again. The owning session has been revoked by the time the caller sees
	// this. It wraps [ErrUnauthorized], so transports that only check for
	// that sentinel still emit the uniform rejection status.
	ErrReuseDetected = fmt.Errorf("%w: refresh token reuse detected", ErrUnauthorized)
	// ErrUserIDRequired is an exported constant or variable used by the token lifecycle service.
	ErrUserIDRequired = errors.New("userID required")
	// ErrSurfaceUnknown is an exported constant or variable used by the token lifecycle service.
	ErrSurfaceUnknown = errors.New("unknown surface")
	// ErrSurfaceNotConfigured is an exported constant or variable used by the token lifecycle service.
	ErrSurfaceNotConfigured = errors.New("surface not configured")
	// ErrStoreUnavailable is an exported constant or variable used by the token lifecycle service.
	ErrStoreUnavailable = errors.New("token store unavailable")
	// ErrServiceNotReady is an exported constant or variable used by the token lifecycle service.
	ErrServiceNotReady = errors.New("service not ready")
)

// ErrSessionRefInvalid is an exported constant or variable used by the token lifecycle service.
//
// It is the token package's session-ref rejection re-exported so callers
// only need to import authcore.
var ErrSessionRefInvalid = token.ErrInvalidSessionRef
