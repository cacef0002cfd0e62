package domain

import "errors"

// Domain errors - used across all layers
var (
	// ErrNotFound indicates the requested resource was not found
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates the input is invalid
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnauthorized indicates authentication failed or missing
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden indicates the caller lacks permission for this action
	ErrForbidden = errors.New("forbidden")

	// ErrTokenExpired indicates the auth token has expired
	ErrTokenExpired = errors.New("token expired")

	// ErrTokenInvalid indicates the auth token is malformed or invalid
	ErrTokenInvalid = errors.New("token invalid")

	// ErrVendorUnknown indicates the vendor is not part of the vocabulary
	ErrVendorUnknown = errors.New("vendor not in vocabulary")

	// ErrLockTimeout indicates the build lock could not be acquired in time
	ErrLockTimeout = errors.New("timed out waiting for build lock")

	// ErrLockNotHeld indicates a release or extend on a lock this process does not own
	ErrLockNotHeld = errors.New("lock not held")

	// ErrIndexUnavailable indicates no full-text sentence index is configured
	ErrIndexUnavailable = errors.New("sentence index unavailable")

	// ErrQueueUnavailable indicates no rebuild queue is configured
	ErrQueueUnavailable = errors.New("rebuild queue unavailable")
)
