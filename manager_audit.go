package goSession

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// AuditErrorCode is the stable, low-cardinality error label carried by
// audit events.
type AuditErrorCode string

const (
	auditErrInvalidCredentials AuditErrorCode = "invalid_credentials"
	auditErrInvalidUser        AuditErrorCode = "invalid_user"
	auditErrNotSettled         AuditErrorCode = "not_settled"
	auditErrPersistFailed      AuditErrorCode = "persist_failed"
	auditErrStoreUnavailable   AuditErrorCode = "store_unavailable"
	auditErrCorruptRecord      AuditErrorCode = "corrupt_record"
	auditErrInternal           AuditErrorCode = "internal_error"
)

func (m *Manager) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	user *User,
	err error,
	metadataBuilder func() map[string]string,
) {
	if m == nil || m.audit == nil {
		return
	}

	var metadata map[string]string
	if metadataBuilder != nil {
		metadata = metadataBuilder()
	}

	event := AuditEvent{
		ID:        uuid.NewString(),
		Timestamp: time.Now().UTC(),
		EventType: eventType,
		Success:   success,
		Metadata:  metadata,
	}
	if user != nil {
		event.UserID = user.ID
		event.Role = user.Role.String()
	}
	if code := auditErrorCode(err); code != "" {
		event.Error = string(code)
	}

	m.audit.Emit(ctx, event)
}

func auditErrorCode(err error) AuditErrorCode {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, ErrInvalidCredentials):
		return auditErrInvalidCredentials
	case errors.Is(err, ErrInvalidUser):
		return auditErrInvalidUser
	case errors.Is(err, ErrNotSettled):
		return auditErrNotSettled
	case errors.Is(err, ErrPersistFailed):
		return auditErrPersistFailed
	case errors.Is(err, ErrStoreUnavailable):
		return auditErrStoreUnavailable
	case errors.Is(err, errCorruptRecord):
		return auditErrCorruptRecord
	default:
		return auditErrInternal
	}
}
