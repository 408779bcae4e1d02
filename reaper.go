package authcore

import (
	"context"
	"strconv"
	"time"
)

// runReaper drives periodic sweeps until the service is closed.
func (s *Service) runReaper(ctx context.Context) {
	defer close(s.reaperDone)

	ticker := time.NewTicker(s.config.Reaper.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_ = s.Reap(ctx)
		}
	}
}

// Reap runs one maintenance sweep: repair sessions whose revocation
// cascade was interrupted, stamp expired refresh records, and purge
// records past the retention window. Normally driven by the reaper
// goroutine; exposed for operational tooling and tests.
//
// Sweeps are advisory. Per-key failures are skipped so one bad record
// cannot stall the walk; only a broken scan aborts.
func (s *Service) Reap(ctx context.Context) error {
	if err := s.ready(); err != nil {
		return err
	}
	if err := s.reapSessions(ctx); err != nil {
		return err
	}
	return s.reapRecords(ctx)
}

// reapSessions re-runs the token cascade for revoked sessions. A crash
// between session revocation and the cascade leaves live tokens behind a
// dead session; this closes that gap.
func (s *Service) reapSessions(ctx context.Context) error {
	var cursor uint64
	for {
		ids, next, err := s.sessionStore.Scan(ctx, cursor, s.config.Reaper.ScanBatch)
		if err != nil {
			return err
		}

		for _, id := range ids {
			sess, err := s.sessionStore.Get(ctx, id)
			if err != nil {
				continue
			}
			if sess.IsActive() {
				continue
			}

			reason := sess.RevokedReason
			if reason == "" {
				reason = ReasonSecurityRevoked
			}
			repaired, err := s.refreshStore.RevokeAllForSession(ctx, id, reason, time.Now())
			if err != nil || repaired == 0 {
				continue
			}

			s.metricInc(MetricReaperRepairedSessions)
			s.emitAudit(ctx, auditEventSessionRepaired, true, sess.UserID, Surface(sess.Surface), id, nil, func() map[string]string {
				return map[string]string{
					"reason":         reason,
					"tokens_revoked": strconv.Itoa(repaired),
				}
			})
		}

		if next == 0 {
			return nil
		}
		cursor = next
	}
}

// reapRecords stamps expired refresh records and purges revoked records
// past retention. Both are backstops: record keys already carry TTLs, and
// rotation stamps expiry on contact.
func (s *Service) reapRecords(ctx context.Context) error {
	now := time.Now()
	retention := s.config.Session.Retention

	var cursor uint64
	for {
		hashes, next, err := s.refreshStore.Scan(ctx, cursor, s.config.Reaper.ScanBatch)
		if err != nil {
			return err
		}

		for _, hashHex := range hashes {
			rec, err := s.refreshStore.GetByHashHex(ctx, hashHex)
			if err != nil {
				continue
			}

			if rec.RevokedAt == 0 {
				if rec.ExpiresAt > now.UnixMilli() {
					continue
				}
				stamped, err := s.refreshStore.StampExpired(ctx, hashHex, now)
				if err == nil && stamped {
					s.metricInc(MetricReaperExpiredTokens)
				}
				continue
			}

			horizon := rec.ExpiresAt
			if rec.RevokedAt > horizon {
				horizon = rec.RevokedAt
			}
			if now.UnixMilli() > horizon+retention.Milliseconds() {
				if err := s.refreshStore.Delete(ctx, hashHex, rec.SessionID); err == nil {
					s.metricInc(MetricReaperPurgedTokens)
				}
			}
		}

		if next == 0 {
			return nil
		}
		cursor = next
	}
}
