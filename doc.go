// Package twostep provides a two-step login engine: password authentication
// followed by a short-lived one-time code delivered out-of-band, with resend
// throttling, attempt limiting, and progressive lockout backed by Redis.
//
// The package is designed for concurrent server workloads: Engine methods are
// safe to call from multiple goroutines after initialization through
// [Builder.Build].
//
// # Architecture boundaries
//
// twostep is the public surface. It exposes [Engine], [Builder], [Config],
// the collaborator interfaces ([UserProvider], [DeliverySink], [AuditSink]),
// and value types (LoginResult, VerifyResult, MetricsSnapshot). Signed token
// handling lives in the token sub-package; secure code generation lives under
// internal/ and is never exported.
//
// # What this package must NOT do
//
//   - Expose the Redis client, key layout, or record encodings in its public API.
//   - Persist user accounts — credential lookup is delegated to [UserProvider].
//   - Retry store operations transparently; unavailability surfaces as
//     [ErrStoreUnavailable] and the caller decides.
package twostep
