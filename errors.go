package twostep

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrInvalidCredentials is returned by Login when the email is unknown or
	// the password does not match. The two cases are deliberately not
	// distinguishable by the caller.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrAccountDisabled is returned by Login for a disabled account.
	ErrAccountDisabled = errors.New("account disabled")
	// ErrLockedOut is returned when the user or the caller IP has an active
	// lockout record. It never reveals which of the two triggered.
	ErrLockedOut = errors.New("too many attempts, temporarily locked out")
	// ErrResendCooldown is returned when a challenge is requested again before
	// the resend cooldown has elapsed. The concrete error is a [CooldownError]
	// carrying the remaining wait.
	ErrResendCooldown = errors.New("resend cooldown active")
	// ErrTokenExpired is returned when the correlation token has expired.
	ErrTokenExpired = errors.New("correlation token expired")
	// ErrTokenInvalid is returned when the correlation token fails to decode
	// or carries the wrong purpose.
	ErrTokenInvalid = errors.New("correlation token invalid")
	// ErrCodeExpired is returned when no live challenge exists for the user.
	ErrCodeExpired = errors.New("code expired or not found")
	// ErrCodeInvalid is returned when the submitted code does not match.
	ErrCodeInvalid = errors.New("invalid code")
	// ErrDeliveryFailed wraps a delivery sink failure. Delivery is
	// fire-and-forget, so it is never returned from IssueChallenge; it
	// appears in audit events and warnings instead.
	ErrDeliveryFailed = errors.New("code delivery failed")
	// ErrStoreUnavailable is the only fatal error kind: the ephemeral store
	// could not be reached. Store errors wrap it; use errors.Is.
	ErrStoreUnavailable = errors.New("ephemeral store unavailable")
	// ErrEngineNotReady is returned when an Engine method is called on an
	// incompletely constructed engine.
	ErrEngineNotReady = errors.New("engine not initialized")
)

// CooldownError reports how long the caller must wait before a new code can
// be sent. It matches ErrResendCooldown under errors.Is.
type CooldownError struct {
	RetryAfter time.Duration
}

func (e *CooldownError) Error() string {
	return fmt.Sprintf("resend cooldown active, retry in %ds", int(e.RetryAfter.Seconds()))
}

// Is reports whether target is ErrResendCooldown.
func (e *CooldownError) Is(target error) bool {
	return target == ErrResendCooldown
}
