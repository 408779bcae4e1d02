package authcore

import (
	"context"
	"errors"
	"time"
)

const (
	auditEventAuthenticateSuccess  = "authenticate_success"
	auditEventAuthenticateFailure  = "authenticate_failure"
	auditEventRefreshSuccess       = "refresh_success"
	auditEventRefreshInvalid       = "refresh_invalid"
	auditEventRefreshReuseDetected = "refresh_reuse_detected"
	auditEventSessionRevoked       = "session_revoked"
	auditEventLogoutSession        = "logout_session"
	auditEventLogoutAllUser        = "logout_all_user"
	auditEventSessionRepaired      = "session_repaired"
)

// AuditErrorCode defines a public type used by authcore APIs.
//
// AuditErrorCode instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type AuditErrorCode string

const (
	auditErrUnauthorized      AuditErrorCode = "unauthorized"
	auditErrRefreshReuse      AuditErrorCode = "refresh_reuse"
	auditErrInvalidRequest    AuditErrorCode = "invalid_request"
	auditErrInvalidSessionRef AuditErrorCode = "invalid_session_ref"
	auditErrSurfaceConfig     AuditErrorCode = "surface_config"
	auditErrUnavailable       AuditErrorCode = "backend_unavailable"
	auditErrInternal          AuditErrorCode = "internal_error"
)

func (s *Service) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	userID string,
	surface Surface,
	sessionID string,
	err error,
	metadataBuilder func() map[string]string,
) {
	if s == nil || s.audit == nil {
		return
	}

	var metadata map[string]string
	if metadataBuilder != nil {
		metadata = metadataBuilder()
	}

	event := AuditEvent{
		Timestamp: time.Now().UTC(),
		EventType: eventType,
		UserID:    userID,
		Surface:   string(surface),
		SessionID: sessionID,
		IP:        clientIPFromContext(ctx),
		Success:   success,
		Metadata:  metadata,
	}
	if code := auditErrorCode(err); code != "" {
		event.Error = string(code)
	}

	s.audit.Emit(ctx, event)
}

func auditErrorCode(err error) AuditErrorCode {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, ErrReuseDetected):
		return auditErrRefreshReuse
	case errors.Is(err, ErrUnauthorized):
		return auditErrUnauthorized
	case errors.Is(err, ErrUserIDRequired):
		return auditErrInvalidRequest
	case errors.Is(err, ErrSessionRefInvalid):
		return auditErrInvalidSessionRef
	case errors.Is(err, ErrSurfaceUnknown),
		errors.Is(err, ErrSurfaceNotConfigured):
		return auditErrSurfaceConfig
	case errors.Is(err, ErrStoreUnavailable):
		return auditErrUnavailable
	default:
		return auditErrInternal
	}
}
