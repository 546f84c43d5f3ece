// Package apperr holds the error kinds surfaced by the billing core and
// their mapping to machine-readable reasons at the HTTP boundary.
package apperr

import (
	"errors"
	"net/http"
)

var (
	ErrNotFound            = errors.New("not found")
	ErrTokenInvalid        = errors.New("invalid token")
	ErrTokenExpired        = errors.New("token has expired")
	ErrInvalidAuthCode     = errors.New("invalid authorization code")
	ErrAlreadyRunning      = errors.New("appliance already running")
	ErrNoActiveRun         = errors.New("no active run")
	ErrUnitsExceeded       = errors.New("final units cannot exceed initial units")
	ErrInsufficientBalance = errors.New("insufficient balance")
)

type kind struct {
	err    error
	code   string
	status int
}

var kinds = []kind{
	{ErrNotFound, "not_found", http.StatusNotFound},
	{ErrTokenExpired, "token_expired", http.StatusUnauthorized},
	{ErrTokenInvalid, "token_invalid", http.StatusUnauthorized},
	{ErrInvalidAuthCode, "invalid_auth_code", http.StatusUnauthorized},
	{ErrAlreadyRunning, "already_running", http.StatusConflict},
	{ErrNoActiveRun, "no_active_run", http.StatusConflict},
	{ErrUnitsExceeded, "units_exceeded", http.StatusUnprocessableEntity},
	{ErrInsufficientBalance, "insufficient_balance", http.StatusPaymentRequired},
}

// Code returns the machine-readable reason for err, or "internal" when err
// does not wrap one of the known kinds.
func Code(err error) string {
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.code
		}
	}
	return "internal"
}

// HTTPStatus returns the response status used for err.
func HTTPStatus(err error) int {
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.status
		}
	}
	return http.StatusInternalServerError
}
