package usecase

import "errors"

var (
	// ErrUserNotFound is returned by repositories when a user cannot be found by username or ID.
	// The usecase layer treats it as an absent result, never as a fault.
	ErrUserNotFound = errors.New("user not found")

	// ErrDuplicateUsername is returned when attempting to create a user with a username that already exists.
	ErrDuplicateUsername = errors.New("username already exists")

	// ErrInvalidCredentials is returned when the username is unknown or the password does not match.
	// It deliberately does not say which of the two was wrong.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrPasswordTooShort is returned by Signup for passwords under the minimum length.
	ErrPasswordTooShort = errors.New("password too short")

	// ErrPasswordTooLong is returned by Signup for passwords bcrypt cannot hash.
	ErrPasswordTooLong = errors.New("password too long")

	// ErrSessionNotFound is returned when a session cannot be found by ID.
	ErrSessionNotFound = errors.New("session not found")

	// ErrSessionRevoked is returned when attempting to use a revoked session.
	ErrSessionRevoked = errors.New("session has been revoked")

	// ErrSessionExpired is returned when attempting to use an expired session.
	ErrSessionExpired = errors.New("session has expired")

	// ErrStoreUnavailable wraps failures of the underlying database or cache.
	ErrStoreUnavailable = errors.New("store unavailable")
)
