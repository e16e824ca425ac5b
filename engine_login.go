package twostep

import (
	"context"
	"fmt"
)

// Login checks the user's password and, on success, issues a two-factor
// challenge. The returned [LoginResult] carries the correlation token
// the client must echo back to [Engine.Verify]; no access token is
// granted until the code is verified.
//
// Unknown users and wrong passwords both fail with
// [ErrInvalidCredentials] so callers cannot probe for accounts.
func (e *Engine) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}
	if e.users == nil || e.hasher == nil {
		return nil, ErrEngineNotReady
	}

	user, err := e.users.GetUserByEmail(ctx, email)
	if err != nil {
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, auditEventLoginFailure, false, "", ErrInvalidCredentials, nil)
		return nil, ErrInvalidCredentials
	}

	ok, err := e.hasher.Verify(password, user.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("password verification failed: %w", err)
	}
	if !ok {
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, auditEventLoginFailure, false, user.UserID, ErrInvalidCredentials, nil)
		return nil, ErrInvalidCredentials
	}

	if user.Disabled {
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, auditEventLoginFailure, false, user.UserID, ErrAccountDisabled, nil)
		return nil, ErrAccountDisabled
	}

	correlation, err := e.IssueChallenge(ctx, user.UserID, user.Email)
	if err != nil {
		return nil, err
	}

	e.metricInc(MetricLoginSuccess)
	e.emitAudit(ctx, auditEventLoginSuccess, true, user.UserID, nil, nil)

	return &LoginResult{CorrelationToken: correlation}, nil
}
