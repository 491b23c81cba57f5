package auth

import "github.com/wolfman30/clinic-scheduler/internal/apperr"

var (
	// ErrAuthDisabled is returned when no signing secret or admin is configured
	ErrAuthDisabled = apperr.New(apperr.ErrUnauthorized, "admin auth disabled")

	// ErrInvalidCredentials is returned for a wrong email or password
	ErrInvalidCredentials = apperr.New(apperr.ErrUnauthorized, "invalid email or password")

	ErrInvalidToken   = apperr.New(apperr.ErrUnauthorized, "token is invalid")
	ErrTokenExpired   = apperr.New(apperr.ErrUnauthorized, "token has expired")
	ErrTokenRevoked   = apperr.New(apperr.ErrUnauthorized, "token has been revoked")
	ErrWrongTokenType = apperr.New(apperr.ErrUnauthorized, "wrong token type")
)
