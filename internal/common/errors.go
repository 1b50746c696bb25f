// Package common defines shared constants and sentinel errors used across
// the server and the CLI client. Callers should use errors.Is to match these
// values; most of them are returned wrapped with extra context.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound      = errors.New("not found")
	ErrorAlreadyExists = errors.New("already exists")

	// Service-level errors. Each one maps to a single outward response kind.
	ErrorValidation      = errors.New("validation error")
	ErrorUnauthorized    = errors.New("unauthorized")
	ErrorInternal        = errors.New("internal error")
	ErrorUnavailable     = errors.New("dependency unavailable")
	ErrorTooManyRequests = errors.New("too many requests")

	// Token lifecycle errors.
	ErrInvalidToken        = errors.New("invalid token")
	ErrTokenExpired        = errors.New("token expired")
	ErrInvalidRefreshToken = errors.New("invalid refresh token")
)
