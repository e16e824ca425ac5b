package twostep

import "context"

// UserRecord is the minimal account view the engine needs from the caller's
// user database.
type UserRecord struct {
	UserID       string
	Email        string
	PasswordHash string
	Disabled     bool
}

// UserProvider is the credential-lookup collaborator. Implementations return
// an error for unknown emails; the engine folds that into
// [ErrInvalidCredentials] without distinguishing the cause.
type UserProvider interface {
	GetUserByEmail(ctx context.Context, email string) (UserRecord, error)
}

// PasswordHasher verifies a plaintext password against a stored hash.
// The password sub-package provides a bcrypt implementation.
type PasswordHasher interface {
	Verify(password, hash string) (bool, error)
}

// DeliverySink dispatches a one-time code to an out-of-band address.
// Delivery is fire-and-forget: the engine reports failures through audit
// events and warnings but never rolls back an issued challenge.
type DeliverySink interface {
	Send(ctx context.Context, address, subject, code string) error
}

// LoginResult is returned by [Engine.Login] after the primary credential
// step. The correlation token binds the follow-up verification to the user
// without re-exposing credentials.
type LoginResult struct {
	CorrelationToken string
}

// VerifyResult is returned by [Engine.Verify] on success.
type VerifyResult struct {
	UserID      string
	AccessToken string
}
