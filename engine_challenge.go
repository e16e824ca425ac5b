package twostep

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"

	"github.com/twostep-io/twostep/token"
)

// IssueChallenge stores a fresh verification code for userID, hands it
// to the delivery sink, and returns a correlation token the caller must
// present to [Engine.Verify].
//
// Re-issuing inside the resend cooldown fails with a [CooldownError]
// matching [ErrResendCooldown]. Issuing for a locked-out user or source
// IP fails with [ErrLockedOut] when Lockout.EnforceOnIssue is set.
// Delivery failures are logged and audited but never fail the call.
func (e *Engine) IssueChallenge(ctx context.Context, userID, address string) (string, error) {
	if e == nil {
		return "", ErrEngineNotReady
	}

	if e.config.Lockout.EnforceOnIssue {
		blocked, err := e.lockouts.Blocked(ctx, userID, clientIPFromContext(ctx))
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}
		if blocked {
			e.metricInc(MetricIssueLockedOut)
			e.emitAudit(ctx, auditEventIssueBlocked, false, userID, ErrLockedOut, nil)
			return "", ErrLockedOut
		}
	}

	now := e.clock()
	resend := false

	existing, err := e.challenges.Get(ctx, userID)
	switch {
	case err == nil:
		elapsed := now.Sub(existing.LastSent)
		if elapsed < e.config.Challenge.ResendCooldown {
			retry := e.config.Challenge.ResendCooldown - elapsed
			e.metricInc(MetricResendBlocked)
			e.emitAudit(ctx, auditEventResendBlocked, false, userID, ErrResendCooldown, func() map[string]string {
				return map[string]string{"retry_after_seconds": strconv.Itoa(int(retry.Seconds()))}
			})
			return "", &CooldownError{RetryAfter: retry}
		}
		resend = true
	case errors.Is(err, errChallengeNotFound):
	default:
		return "", fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	code, err := e.generateCode()
	if err != nil {
		return "", fmt.Errorf("code generation failed: %w", err)
	}

	record := &challengeRecord{
		Code:     code,
		LastSent: now,
	}
	if err := e.challenges.Save(ctx, userID, record, e.config.Challenge.CodeTTL); err != nil {
		return "", fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	if e.delivery != nil {
		if err := e.delivery.Send(ctx, address, e.config.Delivery.Subject, code); err != nil {
			// The code is already stored; the caller can resend after
			// the cooldown, so a sink failure must not fail the login.
			log.Print("twostep: code delivery failed: ", err)
			e.metricInc(MetricDeliveryFailure)
			e.emitAudit(ctx, auditEventDeliveryFailure, false, userID, fmt.Errorf("%w: %v", ErrDeliveryFailed, err), nil)
		}
	}

	correlation, err := e.tokens.CreatePending(userID)
	if err != nil {
		return "", fmt.Errorf("correlation token creation failed: %w", err)
	}

	event := auditEventChallengeIssued
	if resend {
		event = auditEventChallengeResend
	}
	e.metricInc(MetricChallengeIssued)
	e.emitAudit(ctx, event, true, userID, nil, nil)

	return correlation, nil
}

// Resend re-issues the challenge identified by a still-valid
// correlation token and returns a replacement token. The resend
// cooldown and lockout rules of [Engine.IssueChallenge] apply.
func (e *Engine) Resend(ctx context.Context, correlationToken, address string) (string, error) {
	if e == nil {
		return "", ErrEngineNotReady
	}

	claims, err := e.tokens.ParsePending(correlationToken)
	if err != nil {
		e.metricInc(MetricTokenRejected)
		mapped := mapTokenError(err)
		e.emitAudit(ctx, auditEventTokenRejected, false, "", mapped, nil)
		return "", mapped
	}

	return e.IssueChallenge(ctx, claims.UserID, address)
}

func mapTokenError(err error) error {
	switch {
	case errors.Is(err, token.ErrExpired):
		return ErrTokenExpired
	default:
		return ErrTokenInvalid
	}
}
