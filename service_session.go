package authcore

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/salonkit/authcore/refresh"
	"github.com/salonkit/authcore/session"
)

// Revocation reasons accepted by [Service.RevokeSession] and recorded on
// sessions and refresh records.
const (
	// ReasonLogout is an exported constant or variable used by the token lifecycle service.
	ReasonLogout = refresh.ReasonLogout
	// ReasonSecurityRevoked is an exported constant or variable used by the token lifecycle service.
	ReasonSecurityRevoked = refresh.ReasonSecurityRevoked
	// ReasonReuseDetected is an exported constant or variable used by the token lifecycle service.
	ReasonReuseDetected = refresh.ReasonReuseDetected
	// ReasonExpiredCleanup is an exported constant or variable used by the token lifecycle service.
	ReasonExpiredCleanup = refresh.ReasonExpiredCleanup
)

// Authenticate describes the authenticate operation and its observable behavior.
//
// Authenticate may return an error when input validation, dependency calls, or security checks fail.
// Authenticate does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
//
// The caller has already established who the user is (password check, SSO
// callback, signup); Authenticate only creates the session anchor and
// mints the first token pair for it.
func (s *Service) Authenticate(ctx context.Context, userID string, surface Surface) (*TokenPair, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}

	fail := func(err error) (*TokenPair, error) {
		s.metricInc(MetricAuthenticateFailure)
		s.emitAudit(ctx, auditEventAuthenticateFailure, false, userID, surface, "", err, nil)
		return nil, err
	}

	if userID == "" {
		return fail(ErrUserIDRequired)
	}
	if !surface.Valid() {
		return fail(ErrSurfaceUnknown)
	}
	ttl, err := s.surfaceTTL(surface)
	if err != nil {
		return fail(err)
	}

	now := time.Now()
	sess := &session.Session{
		ID:          uuid.NewString(),
		UserID:      userID,
		Surface:     string(surface),
		CreatedByIP: clientIPFromContext(ctx),
		UserAgent:   userAgentFromContext(ctx),
		CreatedAt:   now.UnixMilli(),
		LastUsedAt:  now.UnixMilli(),
	}

	if err := s.sessionStore.Save(ctx, sess, ttl.RefreshTTL+s.config.Session.Retention); err != nil {
		return fail(fmt.Errorf("%w: %v", ErrStoreUnavailable, err))
	}

	rawRefresh, _, err := s.generateRefreshToken(ctx, sess, ttl.RefreshTTL, now)
	if err != nil {
		// The session exists but has no token chain; the reaper stamps such
		// orphans during its sweep.
		return fail(err)
	}

	access, err := s.codec.Issue(userID, string(surface), sess.ID, ttl.AccessTTL)
	if err != nil {
		return fail(err)
	}

	s.metricInc(MetricSessionCreated)
	s.metricInc(MetricAccessIssued)
	s.metricInc(MetricAuthenticateSuccess)
	s.emitAudit(ctx, auditEventAuthenticateSuccess, true, userID, surface, sess.ID, nil, func() map[string]string {
		if sess.UserAgent == "" {
			return nil
		}
		return map[string]string{"user_agent": sess.UserAgent}
	})

	return &TokenPair{
		AccessToken:      access,
		RefreshToken:     rawRefresh,
		AccessExpiresIn:  ttl.AccessTTL,
		RefreshExpiresIn: ttl.RefreshTTL,
		SessionID:        sess.ID,
	}, nil
}

// revokeSession performs the terminal session transition plus the token
// cascade. The cascade runs even when the session was already revoked or
// is missing, so repeated calls repair any tokens a previous partial
// failure left live.
func (s *Service) revokeSession(ctx context.Context, sessionID, reason string) (bool, int, error) {
	now := time.Now()

	revoked, err := s.sessionStore.Revoke(ctx, sessionID, reason, now)
	if err != nil {
		if errors.Is(err, session.ErrRedisUnavailable) {
			return false, 0, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}
		return false, 0, err
	}

	tokens, err := s.refreshStore.RevokeAllForSession(ctx, sessionID, reason, now)
	if err != nil {
		return revoked, 0, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	return revoked, tokens, nil
}

// RevokeSession describes the revokesession operation and its observable behavior.
//
// RevokeSession may return an error when input validation, dependency calls, or security checks fail.
// RevokeSession does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
//
// Revoking an unknown or already-revoked session is not an error.
func (s *Service) RevokeSession(ctx context.Context, sessionID, reason string) error {
	if err := s.ready(); err != nil {
		return err
	}
	if sessionID == "" {
		return ErrSessionRefInvalid
	}
	if reason == "" {
		reason = ReasonSecurityRevoked
	}

	revoked, tokens, err := s.revokeSession(ctx, sessionID, reason)
	if err != nil {
		return err
	}

	if revoked {
		s.metricInc(MetricSessionRevoked)
	}
	if revoked || tokens > 0 {
		s.emitAudit(ctx, auditEventSessionRevoked, true, "", "", sessionID, nil, func() map[string]string {
			return map[string]string{
				"reason":         reason,
				"tokens_revoked": strconv.Itoa(tokens),
			}
		})
	}

	return nil
}

// Logout describes the logout operation and its observable behavior.
//
// Logout may return an error when input validation, dependency calls, or security checks fail.
// Logout does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (s *Service) Logout(ctx context.Context, sessionID string) error {
	if err := s.ready(); err != nil {
		return err
	}
	if sessionID == "" {
		return ErrSessionRefInvalid
	}

	revoked, tokens, err := s.revokeSession(ctx, sessionID, ReasonLogout)
	if err != nil {
		return err
	}

	if revoked {
		s.metricInc(MetricSessionRevoked)
		s.metricInc(MetricLogout)
	}
	s.emitAudit(ctx, auditEventLogoutSession, true, "", "", sessionID, nil, func() map[string]string {
		return map[string]string{"tokens_revoked": strconv.Itoa(tokens)}
	})

	return nil
}

// RevokeAllForUser describes the revokeallforuser operation and its observable behavior.
//
// RevokeAllForUser may return an error when input validation, dependency calls, or security checks fail.
// RevokeAllForUser does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (s *Service) RevokeAllForUser(ctx context.Context, userID, reason string) error {
	if err := s.ready(); err != nil {
		return err
	}
	if userID == "" {
		return ErrUserIDRequired
	}
	if reason == "" {
		reason = ReasonSecurityRevoked
	}

	ids, err := s.sessionStore.SessionIDsForUser(ctx, userID)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	var (
		firstErr error
		revoked  int
	)
	for _, id := range ids {
		wasLive, _, err := s.revokeSession(ctx, id, reason)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		if wasLive {
			revoked++
			s.metricInc(MetricSessionRevoked)
		}
	}
	if firstErr != nil {
		return firstErr
	}

	s.metricInc(MetricLogoutAllUser)
	s.emitAudit(ctx, auditEventLogoutAllUser, true, userID, "", "", nil, func() map[string]string {
		return map[string]string{
			"reason":           reason,
			"sessions_revoked": strconv.Itoa(revoked),
		}
	})

	return nil
}

// Sessions describes the sessions operation and its observable behavior.
//
// Sessions may return an error when input validation, dependency calls, or security checks fail.
// Sessions does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
//
// Results include revoked sessions still inside the retention window,
// newest first.
func (s *Service) Sessions(ctx context.Context, userID string) ([]SessionInfo, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	if userID == "" {
		return nil, ErrUserIDRequired
	}

	ids, err := s.sessionStore.SessionIDsForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	infos := make([]SessionInfo, 0, len(ids))
	for _, id := range ids {
		sess, err := s.sessionStore.Get(ctx, id)
		if errors.Is(err, session.ErrSessionNotFound) {
			// Index entries can outlive expired session blobs.
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}

		info := SessionInfo{
			ID:            sess.ID,
			Surface:       Surface(sess.Surface),
			CreatedByIP:   sess.CreatedByIP,
			UserAgent:     sess.UserAgent,
			CreatedAt:     time.UnixMilli(sess.CreatedAt),
			LastUsedAt:    time.UnixMilli(sess.LastUsedAt),
			Active:        sess.IsActive(),
			RevokedReason: sess.RevokedReason,
		}
		if sess.RevokedAt != 0 {
			info.RevokedAt = time.UnixMilli(sess.RevokedAt)
		}
		infos = append(infos, info)
	}

	sort.Slice(infos, func(i, j int) bool {
		return infos[i].CreatedAt.After(infos[j].CreatedAt)
	})

	return infos, nil
}
