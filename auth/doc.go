// Package auth implements the Collegia session lifecycle: password
// credentials stored with bcrypt, short-lived HS256 access tokens paired
// with long-lived refresh tokens, httpOnly session cookies, and the HTTP
// surface that issues, refreshes, and tears down sessions.
//
// Sessions are stateless. There is no server-side session table and no
// revocation list; a token is valid until it expires. The route guard in
// middleware/guard consumes this package to protect page routes.
package auth
