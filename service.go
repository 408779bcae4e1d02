package authcore

import (
	"context"
	"time"

	internalaudit "github.com/salonkit/authcore/internal/audit"
	"github.com/salonkit/authcore/refresh"
	"github.com/salonkit/authcore/session"
	"github.com/salonkit/authcore/token"
)

// Service defines a public type used by authcore APIs.
//
// Service instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Service struct {
	config       Config
	codec        *token.Codec
	sessionStore *session.Store
	refreshStore *refresh.Store
	audit        *internalaudit.Dispatcher
	metrics      *Metrics

	reaperCancel context.CancelFunc
	reaperDone   chan struct{}
}

// Close describes the close operation and its observable behavior.
//
// Close may return an error when input validation, dependency calls, or security checks fail.
// Close does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (s *Service) Close() {
	if s == nil {
		return
	}
	if s.reaperCancel != nil {
		s.reaperCancel()
		<-s.reaperDone
	}
	if s.audit != nil {
		s.audit.Close()
	}
}

// AuditDropped describes the auditdropped operation and its observable behavior.
//
// AuditDropped may return an error when input validation, dependency calls, or security checks fail.
// AuditDropped does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (s *Service) AuditDropped() uint64 {
	if s == nil || s.audit == nil {
		return 0
	}
	return s.audit.Dropped()
}

// MetricsSnapshot describes the metricssnapshot operation and its observable behavior.
//
// MetricsSnapshot may return an error when input validation, dependency calls, or security checks fail.
// MetricsSnapshot does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (s *Service) MetricsSnapshot() MetricsSnapshot {
	if s == nil || s.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return s.metrics.Snapshot()
}

// ready rejects use of a zero-value Service; instances must come from
// [Builder.Build].
func (s *Service) ready() error {
	if s == nil || s.codec == nil || s.sessionStore == nil || s.refreshStore == nil {
		return ErrServiceNotReady
	}
	return nil
}

func (s *Service) metricInc(id MetricID) {
	if s == nil || s.metrics == nil {
		return
	}
	s.metrics.Inc(id)
}

func (s *Service) surfaceTTL(surface Surface) (SurfaceTTL, error) {
	ttl, ok := s.config.Surfaces[surface]
	if !ok {
		return SurfaceTTL{}, ErrSurfaceNotConfigured
	}
	return ttl, nil
}

// IssueAccess mints a stateless access token for the user/surface/session
// triple. The session reference may be a plain ID string, a wrapper
// implementing [token.SessionRef], or a populated [session.Session]; any
// other shape fails with [ErrSessionRefInvalid].
//
// Validation failures here are caller bugs or configuration gaps and stay
// distinct from [ErrUnauthorized] so they surface loudly during rollout.
func (s *Service) IssueAccess(userID string, surface Surface, sessionRef any) (string, time.Duration, error) {
	if err := s.ready(); err != nil {
		return "", 0, err
	}
	if userID == "" {
		return "", 0, ErrUserIDRequired
	}
	if !surface.Valid() {
		return "", 0, ErrSurfaceUnknown
	}
	ttl, err := s.surfaceTTL(surface)
	if err != nil {
		return "", 0, err
	}

	sessionID, err := token.NormalizeSessionRef(sessionRef)
	if err != nil {
		return "", 0, err
	}

	raw, err := s.codec.Issue(userID, string(surface), sessionID, ttl.AccessTTL)
	if err != nil {
		return "", 0, err
	}

	s.metricInc(MetricAccessIssued)
	return raw, ttl.AccessTTL, nil
}

// Authorize verifies an access token and returns its payload. This is the
// hot path: the decision is made from signature and claims alone, with no
// Redis round trip, so it keeps working during store outages. Every
// rejection collapses to [ErrUnauthorized].
func (s *Service) Authorize(ctx context.Context, rawToken string) (*AccessPayload, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}

	var start time.Time
	if s.metrics.LatencyEnabled() {
		start = time.Now()
	}

	claims, err := s.codec.Verify(rawToken)
	if err != nil {
		s.metricInc(MetricAccessRejected)
		return nil, ErrUnauthorized
	}

	surface := Surface(claims.Surface)
	if !surface.Valid() {
		s.metricInc(MetricAccessRejected)
		return nil, ErrUnauthorized
	}

	payload := &AccessPayload{
		UserID:    claims.UID,
		SessionID: claims.SID,
		Surface:   surface,
	}
	if claims.IssuedAt != nil {
		payload.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		payload.ExpiresAt = claims.ExpiresAt.Time
	}

	if s.metrics.LatencyEnabled() {
		s.metrics.Observe(MetricAuthorizeLatency, time.Since(start))
	}

	return payload, nil
}
