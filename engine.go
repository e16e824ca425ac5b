package twostep

import (
	"context"
	"errors"
	"time"

	"github.com/twostep-io/twostep/internal"
	"github.com/twostep-io/twostep/token"
)

const (
	auditEventLoginSuccess     = "login_success"
	auditEventLoginFailure     = "login_failure"
	auditEventChallengeIssued  = "challenge_issued"
	auditEventChallengeResend  = "challenge_resend"
	auditEventResendBlocked    = "resend_blocked"
	auditEventIssueBlocked     = "issue_blocked"
	auditEventDeliveryFailure  = "delivery_failure"
	auditEventVerifySuccess    = "verify_success"
	auditEventVerifyFailure    = "verify_failure"
	auditEventLockoutTriggered = "lockout_triggered"
	auditEventTokenRejected    = "token_rejected"
)

// AuditErrorCode is the machine-readable error classification recorded
// on failed audit events.
type AuditErrorCode string

const (
	auditErrInvalidCredentials AuditErrorCode = "invalid_credentials"
	auditErrAccountDisabled    AuditErrorCode = "account_disabled"
	auditErrLockedOut          AuditErrorCode = "locked_out"
	auditErrResendCooldown     AuditErrorCode = "resend_cooldown"
	auditErrTokenExpired       AuditErrorCode = "token_expired"
	auditErrTokenInvalid       AuditErrorCode = "token_invalid"
	auditErrCodeExpired        AuditErrorCode = "code_expired"
	auditErrCodeInvalid        AuditErrorCode = "code_invalid"
	auditErrDeliveryFailed     AuditErrorCode = "delivery_failed"
	auditErrUnavailable        AuditErrorCode = "backend_unavailable"
	auditErrInternal           AuditErrorCode = "internal_error"
)

// Engine is the two-factor challenge manager. Build one with [New] and
// treat it as immutable afterwards; all methods are safe for concurrent
// use.
type Engine struct {
	config     Config
	challenges *challengeStore
	attempts   *attemptLimiter
	lockouts   *lockoutLimiter
	tokens     *token.Manager
	users      UserProvider
	hasher     PasswordHasher
	delivery   DeliverySink
	audit      *auditDispatcher
	metrics    *Metrics

	// overridable in tests
	newCode func(digits int) (string, error)
	now     func() time.Time
}

// Close drains and stops the audit dispatcher. Call it when the engine
// is no longer needed; in-flight operations should finish first.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.audit != nil {
		e.audit.close()
	}
}

// AuditDropped reports how many audit events were discarded because the
// dispatcher buffer was full.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.droppedCount()
}

// MetricsSnapshot returns a copy of all counters.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{Counters: map[MetricID]uint64{}}
	}
	return e.metrics.Snapshot()
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

func (e *Engine) generateCode() (string, error) {
	if e.newCode != nil {
		return e.newCode(e.config.Challenge.CodeDigits)
	}
	return internal.NewCode(e.config.Challenge.CodeDigits)
}

func (e *Engine) clock() time.Time {
	if e.now != nil {
		return e.now()
	}
	return time.Now().UTC()
}

func (e *Engine) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	userID string,
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
		Timestamp: e.clock(),
		EventType: eventType,
		UserID:    userID,
		IP:        clientIPFromContext(ctx),
		Success:   success,
		Metadata:  metadata,
	}
	if code := auditErrorCode(err); code != "" {
		event.Error = string(code)
	}

	e.audit.dispatch(event)
}

func auditErrorCode(err error) AuditErrorCode {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, ErrInvalidCredentials):
		return auditErrInvalidCredentials
	case errors.Is(err, ErrAccountDisabled):
		return auditErrAccountDisabled
	case errors.Is(err, ErrLockedOut):
		return auditErrLockedOut
	case errors.Is(err, ErrResendCooldown):
		return auditErrResendCooldown
	case errors.Is(err, ErrTokenExpired):
		return auditErrTokenExpired
	case errors.Is(err, ErrTokenInvalid):
		return auditErrTokenInvalid
	case errors.Is(err, ErrCodeExpired):
		return auditErrCodeExpired
	case errors.Is(err, ErrCodeInvalid):
		return auditErrCodeInvalid
	case errors.Is(err, ErrDeliveryFailed):
		return auditErrDeliveryFailed
	case errors.Is(err, ErrStoreUnavailable):
		return auditErrUnavailable
	default:
		return auditErrInternal
	}
}
