package authcore

import (
	"io"
	"time"

	internalaudit "github.com/salonkit/authcore/internal/audit"
	internalmetrics "github.com/salonkit/authcore/internal/metrics"
)

// Surface identifies which client application a token chain belongs to.
// Token lifetimes are configured per surface; a token minted for one
// surface never changes surface across rotations.
type Surface string

const (
	// SurfaceAdmin is an exported constant or variable used by the token lifecycle service.
	SurfaceAdmin Surface = "ADMIN"
	// SurfaceSalonOwner is an exported constant or variable used by the token lifecycle service.
	SurfaceSalonOwner Surface = "SALON_OWNER"
	// SurfaceSalonEmployee is an exported constant or variable used by the token lifecycle service.
	SurfaceSalonEmployee Surface = "SALON_EMPLOYEE"
)

// Valid reports whether s is one of the defined surfaces.
func (s Surface) Valid() bool {
	switch s {
	case SurfaceAdmin, SurfaceSalonOwner, SurfaceSalonEmployee:
		return true
	default:
		return false
	}
}

// AllSurfaces returns the defined surfaces in stable order.
func AllSurfaces() []Surface {
	return []Surface{SurfaceAdmin, SurfaceSalonOwner, SurfaceSalonEmployee}
}

// TokenPair is returned by [Service.Authenticate] and [Service.Refresh].
// AccessExpiresIn is the access token lifetime at issue time; the refresh
// token is opaque and single-use.
type TokenPair struct {
	AccessToken      string
	RefreshToken     string
	AccessExpiresIn  time.Duration
	RefreshExpiresIn time.Duration
	SessionID        string
}

// AccessPayload is returned by [Service.Authorize]. It contains the
// verified identity claims of an access token; no store lookup backs it.
type AccessPayload struct {
	UserID    string
	SessionID string
	Surface   Surface
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// SessionInfo is the read-only session view returned by
// [Service.Sessions] for device-management UIs.
type SessionInfo struct {
	ID            string
	Surface       Surface
	CreatedByIP   string
	UserAgent     string
	CreatedAt     time.Time
	LastUsedAt    time.Time
	Active        bool
	RevokedAt     time.Time
	RevokedReason string
}

// AuditEvent defines a public type used by authcore APIs.
//
// AuditEvent instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type AuditEvent = internalaudit.Event

// AuditSink defines a public type used by authcore APIs.
//
// AuditSink instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type AuditSink = internalaudit.Sink

// NoOpSink defines a public type used by authcore APIs.
type NoOpSink = internalaudit.NoOpSink

// ChannelSink defines a public type used by authcore APIs.
//
// ChannelSink instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type ChannelSink = internalaudit.ChannelSink

// JSONWriterSink defines a public type used by authcore APIs.
type JSONWriterSink = internalaudit.JSONWriterSink

// NewChannelSink describes the newchannelsink operation and its observable behavior.
func NewChannelSink(buffer int) *ChannelSink {
	return internalaudit.NewChannelSink(buffer)
}

// NewJSONWriterSink describes the newjsonwritersink operation and its observable behavior.
func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return internalaudit.NewJSONWriterSink(w)
}

// MetricID defines a public type used by authcore APIs.
type MetricID = internalmetrics.MetricID

const (
	// MetricAuthenticateSuccess is an exported constant or variable used by the token lifecycle service.
	MetricAuthenticateSuccess = MetricID(internalmetrics.MetricAuthenticateSuccess)
	// MetricAuthenticateFailure is an exported constant or variable used by the token lifecycle service.
	MetricAuthenticateFailure = MetricID(internalmetrics.MetricAuthenticateFailure)
	// MetricSessionCreated is an exported constant or variable used by the token lifecycle service.
	MetricSessionCreated = MetricID(internalmetrics.MetricSessionCreated)
	// MetricSessionRevoked is an exported constant or variable used by the token lifecycle service.
	MetricSessionRevoked = MetricID(internalmetrics.MetricSessionRevoked)
	// MetricRefreshSuccess is an exported constant or variable used by the token lifecycle service.
	MetricRefreshSuccess = MetricID(internalmetrics.MetricRefreshSuccess)
	// MetricRefreshFailure is an exported constant or variable used by the token lifecycle service.
	MetricRefreshFailure = MetricID(internalmetrics.MetricRefreshFailure)
	// MetricRefreshReuseDetected is an exported constant or variable used by the token lifecycle service.
	MetricRefreshReuseDetected = MetricID(internalmetrics.MetricRefreshReuseDetected)
	// MetricAccessIssued is an exported constant or variable used by the token lifecycle service.
	MetricAccessIssued = MetricID(internalmetrics.MetricAccessIssued)
	// MetricAccessRejected is an exported constant or variable used by the token lifecycle service.
	MetricAccessRejected = MetricID(internalmetrics.MetricAccessRejected)
	// MetricLogout is an exported constant or variable used by the token lifecycle service.
	MetricLogout = MetricID(internalmetrics.MetricLogout)
	// MetricLogoutAllUser is an exported constant or variable used by the token lifecycle service.
	MetricLogoutAllUser = MetricID(internalmetrics.MetricLogoutAllUser)
	// MetricReaperRepairedSessions is an exported constant or variable used by the token lifecycle service.
	MetricReaperRepairedSessions = MetricID(internalmetrics.MetricReaperRepairedSessions)
	// MetricReaperExpiredTokens is an exported constant or variable used by the token lifecycle service.
	MetricReaperExpiredTokens = MetricID(internalmetrics.MetricReaperExpiredTokens)
	// MetricReaperPurgedTokens is an exported constant or variable used by the token lifecycle service.
	MetricReaperPurgedTokens = MetricID(internalmetrics.MetricReaperPurgedTokens)
	// MetricAuthorizeLatency is an exported constant or variable used by the token lifecycle service.
	MetricAuthorizeLatency = MetricID(internalmetrics.MetricAuthorizeLatency)
)

// Metrics defines a public type used by authcore APIs.
type Metrics = internalmetrics.Metrics

// MetricsSnapshot defines a public type used by authcore APIs.
type MetricsSnapshot = internalmetrics.Snapshot

// NewMetrics describes the newmetrics operation and its observable behavior.
func NewMetrics(cfg MetricsConfig) *Metrics {
	return internalmetrics.New(internalmetrics.Config{
		Enabled:       cfg.Enabled,
		EnableLatency: cfg.EnableLatencyHistograms,
	})
}
