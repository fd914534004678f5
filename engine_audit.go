package goAuthClient

import (
	"context"
	"errors"
)

const (
	auditEventSessionRestored = "session_restored"
	auditEventRefreshSuccess  = "refresh_success"
	auditEventRefreshFailure  = "refresh_failure"
	auditEventOTPVerified     = "otp_verified"
	auditEventOTPFailure      = "otp_failure"
	auditEventLogout          = "logout"
	auditEventSessionCleared  = "session_cleared"
	auditEventReauth          = "reauth"
)

// AuditErrorCode is the stable error label carried by failed audit events.
type AuditErrorCode string

const (
	auditErrValidation AuditErrorCode = "validation"
	auditErrAuth       AuditErrorCode = "unauthorized"
	auditErrTransient  AuditErrorCode = "transient"
	auditErrProtocol   AuditErrorCode = "protocol"
	auditErrTimeout    AuditErrorCode = "timeout"
	auditErrRequest    AuditErrorCode = "request_failed"
	auditErrCanceled   AuditErrorCode = "canceled"
	auditErrInternal   AuditErrorCode = "internal_error"
)

func (e *Engine) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	user User,
	err error,
	metadataBuilder func() map[string]string,
) {
	if e == nil || e.audit == nil {
		return
	}

	var metadata map[string]string
	if metadataBuilder != nil {
		metadata = metadataBuilder()
	}

	event := AuditEvent{
		Timestamp: e.clock.Now().UTC(),
		EventType: eventType,
		UserID:    user.ID,
		SessionID: user.SessionID,
		RequestID: requestIDFromContext(ctx),
		Success:   success,
		Metadata:  metadata,
	}
	if code := auditErrorCode(err); code != "" {
		event.Error = string(code)
	}

	e.audit.Emit(ctx, event)
}

func auditErrorCode(err error) AuditErrorCode {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, ErrValidation):
		return auditErrValidation
	case errors.Is(err, ErrAuth):
		return auditErrAuth
	case errors.Is(err, ErrTransient):
		return auditErrTransient
	case errors.Is(err, ErrProtocol):
		return auditErrProtocol
	case errors.Is(err, ErrTimeout):
		return auditErrTimeout
	case errors.Is(err, ErrRequestFailed):
		return auditErrRequest
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return auditErrCanceled
	default:
		return auditErrInternal
	}
}
