// Package client talks to the speechcoach HTTP API on behalf of the CLI.
//
// # Overview
//
// The Client interface covers the session endpoints (register, login,
// refresh, logout, current user) plus a health ping; HTTPClient implements it
// over net/http. Non-2xx responses become *APIError values carrying the
// server's "detail" message.
//
// # Error Handling
//
// Common conditions are exposed as sentinel errors that callers can match with
// errors.Is: ErrUnavailable (transport failure or 5xx), ErrUnauthorized (401),
// ErrRateLimited (429) and ErrConflict (duplicate registration).
package client
