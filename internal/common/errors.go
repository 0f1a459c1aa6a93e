// Package common defines shared constants and sentinel errors used across
// client and server layers of kinlink. Callers should use errors.Is to
// match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Service-level errors (generic/internal flow control).
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")

	// Auth errors (invalid or malformed token).
	ErrInvalidToken = errors.New("invalid token")

	// Token lifecycle errors.
	ErrTokenExpired        = errors.New("token expired")
	ErrRefreshTokenExpired = errors.New("refresh token expired")

	// Link resolution errors.
	ErrInvalidFormat        = errors.New("invalid identifier format")
	ErrDeleted              = errors.New("profile deleted")
	ErrAccessDenied         = errors.New("access denied")
	ErrOffline              = errors.New("offline")
	ErrTimeout              = errors.New("timeout")
	ErrGraphTimeout         = errors.New("graph not loaded in time")
	ErrAuthorizationTimeout = errors.New("authorization timeout")
	ErrRateLimited          = errors.New("rate limited")
	ErrUnknownFault         = errors.New("unknown fault")
)
