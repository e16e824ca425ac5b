// Package token issues and validates the two signed tokens used around
// a two-factor challenge: the short-lived pending token that correlates
// a login with its verification, and the access token granted once the
// code checks out. Both are HS256 JWTs distinguished by a type claim so
// one can never stand in for the other.
package token
