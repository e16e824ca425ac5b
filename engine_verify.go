package twostep

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log"
	"strconv"
)

// Verify consumes a correlation token and candidate code. On a match it
// clears the challenge and attempt state and returns an access token.
//
// A wrong code counts against Challenge.MaxAttempts; reaching the limit
// escalates the progressive lockout for both the user and the caller's
// IP so every later attempt fails with [ErrLockedOut] until the block
// expires. The escalating attempt itself still reports [ErrCodeInvalid].
func (e *Engine) Verify(ctx context.Context, correlationToken, code string) (*VerifyResult, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}

	claims, err := e.tokens.ParsePending(correlationToken)
	if err != nil {
		e.metricInc(MetricTokenRejected)
		mapped := mapTokenError(err)
		e.emitAudit(ctx, auditEventTokenRejected, false, "", mapped, nil)
		return nil, mapped
	}
	userID := claims.UserID
	ip := clientIPFromContext(ctx)

	blocked, err := e.lockouts.Blocked(ctx, userID, ip)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if blocked {
		e.metricInc(MetricVerifyLockedOut)
		e.emitAudit(ctx, auditEventVerifyFailure, false, userID, ErrLockedOut, nil)
		return nil, ErrLockedOut
	}

	record, err := e.challenges.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, errChallengeNotFound) {
			e.metricInc(MetricVerifyFailure)
			e.emitAudit(ctx, auditEventVerifyFailure, false, userID, ErrCodeExpired, nil)
			return nil, ErrCodeExpired
		}
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	if subtle.ConstantTimeCompare([]byte(record.Code), []byte(code)) != 1 {
		return nil, e.failAttempt(ctx, userID, ip)
	}

	// Clean-up failures after a correct code are logged, not surfaced;
	// the keys fall out of Redis on their own TTL.
	if err := e.attempts.Reset(ctx, userID); err != nil {
		log.Print("twostep: attempt counter reset failed: ", err)
	}
	if err := e.challenges.Delete(ctx, userID); err != nil {
		log.Print("twostep: challenge delete failed: ", err)
	}

	access, err := e.tokens.CreateAccess(userID)
	if err != nil {
		return nil, fmt.Errorf("access token creation failed: %w", err)
	}

	e.metricInc(MetricVerifySuccess)
	e.emitAudit(ctx, auditEventVerifySuccess, true, userID, nil, nil)

	return &VerifyResult{
		UserID:      userID,
		AccessToken: access,
	}, nil
}

func (e *Engine) failAttempt(ctx context.Context, userID, ip string) error {
	count, err := e.attempts.Increment(ctx, userID, e.config.Challenge.CodeTTL)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	if count >= int64(e.config.Challenge.MaxAttempts) {
		duration, err := e.lockouts.Escalate(ctx, userID, ip)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}
		e.metricInc(MetricLockoutEscalated)
		e.emitAudit(ctx, auditEventLockoutTriggered, false, userID, ErrLockedOut, func() map[string]string {
			return map[string]string{
				"attempts":      strconv.FormatInt(count, 10),
				"block_seconds": strconv.Itoa(int(duration.Seconds())),
			}
		})
	}

	e.metricInc(MetricVerifyFailure)
	e.emitAudit(ctx, auditEventVerifyFailure, false, userID, ErrCodeInvalid, func() map[string]string {
		return map[string]string{"attempts": strconv.FormatInt(count, 10)}
	})
	return ErrCodeInvalid
}

// ValidateAccess parses an access token and returns the subject user ID.
func (e *Engine) ValidateAccess(ctx context.Context, accessToken string) (string, error) {
	if e == nil {
		return "", ErrEngineNotReady
	}

	claims, err := e.tokens.ParseAccess(accessToken)
	if err != nil {
		e.metricInc(MetricTokenRejected)
		mapped := mapTokenError(err)
		e.emitAudit(ctx, auditEventTokenRejected, false, "", mapped, nil)
		return "", mapped
	}
	return claims.UserID, nil
}
