// Package common defines shared constants, sentinel errors, and small
// utilities used across client and server layers of CaseKeeper. Callers
// should use errors.Is to match the sentinel values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound      = errors.New("not found")
	ErrorAlreadyExists = errors.New("already exists")

	// Service-level errors (generic/internal flow control).
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")
	ErrorValidation   = errors.New("validation error")

	// Auth errors.
	ErrInvalidToken           = errors.New("invalid token")
	ErrTokenExpired           = errors.New("token expired")
	ErrRefreshTokenExpired    = errors.New("refresh token expired")
	ErrorInvalidLoginPassword = errors.New("invalid login/password")
	ErrorLoginAlreadyExists   = errors.New("login already exists")
)
