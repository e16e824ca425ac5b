// Package internal contains helpers that are intentionally private to
// twostep, currently just secure verification code generation.
//
// # What this package must NOT do
//
//   - Export types that appear in the public twostep API.
//   - Be imported by any package outside the twostep module.
package internal
