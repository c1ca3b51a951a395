// Package auth implements user identity and single-active-session
// authentication for Pulse.
//
// Every login mints a fresh session ID, stores it as the user's
// current_session_id, and embeds it in the issued JWT (the "sid" claim).
// Token verification therefore has two gates: the signature/expiry check,
// and a comparison of the token's session ID against the stored one. A
// later login overwrites current_session_id, which invalidates every
// token minted before it without any server-side token list.
//
// Logout clears the client's cookie but deliberately leaves
// current_session_id untouched: the old token keeps working until it
// expires or the user logs in again. Revocation-on-logout would require
// clearing the stored session ID here.
//
// The Authenticator is transport-agnostic; HTTP middleware and the
// WebSocket handshake both feed it a raw token string and map its error
// kinds to their own rejection responses.
package auth
