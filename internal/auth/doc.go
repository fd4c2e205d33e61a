// Package auth provides account management and token handling for
// Environmental Cloud Core.
//
// Accounts are identified by email and authenticate with Argon2id
// password hashes (OWASP 2025 recommendation). Successful logins
// receive a short-lived HS256 JWT access token; API handlers and the
// WebSocket upgrade validate tokens by signature only, with no
// database lookup on the hot path.
package auth
