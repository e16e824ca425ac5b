// Package password implements password hashing and verification with
// bcrypt, matching the hashes produced by the original account system.
//
// # Architecture boundaries
//
// This package owns hashing and verification only. Password policy
// (length, reuse history) belongs to the caller.
//
// # What this package must NOT do
//
//   - Store or retrieve passwords. Callers supply plaintext and
//     receive hashes.
//   - Import any other twostep package.
//   - Log plaintext passwords.
package password
