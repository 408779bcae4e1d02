package authcore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/salonkit/authcore/internal"
	"github.com/salonkit/authcore/refresh"
	"github.com/salonkit/authcore/session"
)

// generateRefreshToken mints a fresh refresh secret, persists its digest
// as the first record of a session's chain, and returns the transport
// encoding. The raw secret never outlives this call on the server side.
func (s *Service) generateRefreshToken(ctx context.Context, sess *session.Session, refreshTTL time.Duration, now time.Time) (string, *refresh.Record, error) {
	secret, err := internal.NewRefreshSecret()
	if err != nil {
		return "", nil, err
	}

	rec := &refresh.Record{
		ID:           uuid.NewString(),
		UserID:       sess.UserID,
		SessionID:    sess.ID,
		Surface:      sess.Surface,
		TokenHashHex: internal.HashHex(internal.HashRefreshSecret(secret)),
		ExpiresAt:    now.Add(refreshTTL).UnixMilli(),
		CreatedAt:    now.UnixMilli(),
		CreatedByIP:  clientIPFromContext(ctx),
	}

	if err := s.refreshStore.Save(ctx, rec, now, s.config.Session.Retention); err != nil {
		return "", nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	return internal.EncodeRefreshToken(secret), rec, nil
}

// VerifyRefreshToken resolves a presented refresh token to its record and
// owning session without rotating it. Malformed, unknown, expired, and
// revoked tokens — and tokens whose session is gone or revoked — all
// collapse to [ErrUnauthorized]; only audit events distinguish them.
func (s *Service) VerifyRefreshToken(ctx context.Context, rawToken string) (*refresh.Record, *session.Session, error) {
	if err := s.ready(); err != nil {
		return nil, nil, err
	}

	secret, err := internal.DecodeRefreshToken(rawToken)
	if err != nil {
		return nil, nil, ErrUnauthorized
	}

	rec, err := s.refreshStore.GetByHashHex(ctx, internal.HashHex(internal.HashRefreshSecret(secret)))
	if err != nil {
		if errors.Is(err, refresh.ErrTokenNotFound) {
			return nil, nil, ErrUnauthorized
		}
		if errors.Is(err, refresh.ErrRedisUnavailable) {
			return nil, nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}
		return nil, nil, err
	}
	if !rec.IsLive(time.Now().UnixMilli()) {
		return nil, nil, ErrUnauthorized
	}

	sess, err := s.sessionStore.Get(ctx, rec.SessionID)
	if err != nil {
		if errors.Is(err, session.ErrSessionNotFound) {
			return nil, nil, ErrUnauthorized
		}
		return nil, nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if !sess.IsActive() {
		return nil, nil, ErrUnauthorized
	}

	return rec, sess, nil
}

// Refresh describes the refresh operation and its observable behavior.
//
// Refresh may return an error when input validation, dependency calls, or security checks fail.
// Refresh does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
//
// The presented token is single-use: rotation atomically claims it and
// issues its successor, so of N concurrent calls with the same token
// exactly one receives a new pair. Presenting an already-rotated token
// revokes the whole session before the caller sees [ErrReuseDetected].
func (s *Service) Refresh(ctx context.Context, rawToken string) (*TokenPair, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}

	fail := func(rec *refresh.Record, err error) (*TokenPair, error) {
		s.metricInc(MetricRefreshFailure)
		var userID, sessionID string
		var surface Surface
		if rec != nil {
			userID, sessionID, surface = rec.UserID, rec.SessionID, Surface(rec.Surface)
		}
		s.emitAudit(ctx, auditEventRefreshInvalid, false, userID, surface, sessionID, err, nil)
		return nil, err
	}

	secret, err := internal.DecodeRefreshToken(rawToken)
	if err != nil {
		return fail(nil, ErrUnauthorized)
	}

	// The record is loaded raw rather than through VerifyRefreshToken: a
	// record stamped "rotated" is dead for verification purposes but is the
	// replay signal rotation exists to catch, so it must not collapse to a
	// plain rejection here.
	rec, err := s.refreshStore.GetByHashHex(ctx, internal.HashHex(internal.HashRefreshSecret(secret)))
	if err != nil {
		switch {
		case errors.Is(err, refresh.ErrTokenNotFound):
			return fail(nil, ErrUnauthorized)
		case errors.Is(err, refresh.ErrRedisUnavailable):
			return fail(nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err))
		default:
			return fail(nil, err)
		}
	}

	if rec.RevokedReason == refresh.ReasonRotated {
		return nil, s.reportReuse(ctx, rec)
	}
	if !rec.IsLive(time.Now().UnixMilli()) {
		return fail(rec, ErrUnauthorized)
	}

	sess, err := s.sessionStore.Get(ctx, rec.SessionID)
	if err != nil {
		if errors.Is(err, session.ErrSessionNotFound) {
			return fail(rec, ErrUnauthorized)
		}
		return fail(rec, fmt.Errorf("%w: %v", ErrStoreUnavailable, err))
	}
	if !sess.IsActive() {
		return fail(rec, ErrUnauthorized)
	}

	surface := Surface(sess.Surface)
	ttl, err := s.surfaceTTL(surface)
	if err != nil {
		return fail(rec, err)
	}

	now := time.Now()
	if err := s.sessionStore.Touch(ctx, sess.ID, now); err != nil {
		switch {
		case errors.Is(err, session.ErrSessionRevoked), errors.Is(err, session.ErrSessionNotFound):
			return fail(rec, ErrUnauthorized)
		default:
			return fail(rec, fmt.Errorf("%w: %v", ErrStoreUnavailable, err))
		}
	}

	nextSecret, err := internal.NewRefreshSecret()
	if err != nil {
		return fail(rec, err)
	}
	next := &refresh.Record{
		ID:           uuid.NewString(),
		UserID:       rec.UserID,
		SessionID:    rec.SessionID,
		Surface:      rec.Surface,
		TokenHashHex: internal.HashHex(internal.HashRefreshSecret(nextSecret)),
		ExpiresAt:    now.Add(ttl.RefreshTTL).UnixMilli(),
		CreatedAt:    now.UnixMilli(),
		CreatedByIP:  clientIPFromContext(ctx),
	}

	err = s.refreshStore.Rotate(ctx, rec.TokenHashHex, next, now, s.config.Session.Retention)
	switch {
	case err == nil:
		// claimed below
	case errors.Is(err, refresh.ErrTokenAlreadyRotated):
		// Lost the race to a concurrent presenter of the same token.
		return nil, s.reportReuse(ctx, rec)
	case errors.Is(err, refresh.ErrTokenNotFound),
		errors.Is(err, refresh.ErrTokenExpired),
		errors.Is(err, refresh.ErrTokenRevoked):
		return fail(rec, ErrUnauthorized)
	default:
		// Rotation outcome unknown: the claim may or may not have landed.
		// Leaving the chain ambiguous would let the old token be replayed
		// later, so treat it as a security incident for this session.
		_, _, _ = s.revokeSession(ctx, rec.SessionID, ReasonSecurityRevoked)
		return fail(rec, fmt.Errorf("%w: %v", ErrStoreUnavailable, err))
	}

	access, err := s.codec.Issue(rec.UserID, string(surface), rec.SessionID, ttl.AccessTTL)
	if err != nil {
		return fail(rec, err)
	}

	s.metricInc(MetricRefreshSuccess)
	s.metricInc(MetricAccessIssued)
	s.emitAudit(ctx, auditEventRefreshSuccess, true, rec.UserID, surface, rec.SessionID, nil, func() map[string]string {
		return map[string]string{
			"rotated_from": rec.ID,
			"rotated_to":   next.ID,
		}
	})

	return &TokenPair{
		AccessToken:      access,
		RefreshToken:     internal.EncodeRefreshToken(nextSecret),
		AccessExpiresIn:  ttl.AccessTTL,
		RefreshExpiresIn: ttl.RefreshTTL,
		SessionID:        rec.SessionID,
	}, nil
}

// reportReuse handles presentation of a refresh token that was already
// consumed by rotation. The whole session chain is revoked — there is no
// telling whether this presenter or the one holding the successor is the
// thief — and the caller sees [ErrReuseDetected].
func (s *Service) reportReuse(ctx context.Context, rec *refresh.Record) error {
	revoked, _, _ := s.revokeSession(ctx, rec.SessionID, ReasonReuseDetected)
	s.metricInc(MetricRefreshReuseDetected)
	if revoked {
		s.metricInc(MetricSessionRevoked)
	}
	s.emitAudit(ctx, auditEventRefreshReuseDetected, false, rec.UserID, Surface(rec.Surface), rec.SessionID, ErrReuseDetected, func() map[string]string {
		return map[string]string{"token_id": rec.ID}
	})
	return ErrReuseDetected
}
