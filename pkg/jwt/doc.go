// Package jwt provides HS256 token signing and verification on top of
// github.com/golang-jwt/jwt/v5, plus request middleware with pluggable
// token extraction (Authorization header, cookie, or fallback chains) and
// typed context accessors for parsed claims.
//
// Tokens are opaque to holders: no claim is trusted without a successful
// Parse against the process-wide signing key.
package jwt
