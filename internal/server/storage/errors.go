package storage

import "errors"

// Common storage errors
var (
	// ErrUserNotFound indicates that user was not found in storage
	ErrUserNotFound = errors.New("user not found")

	// ErrUserAlreadyExists indicates that user with this email already exists
	ErrUserAlreadyExists = errors.New("user already exists")

	// ErrSessionNotFound indicates that session token was not found or expired
	ErrSessionNotFound = errors.New("session not found")

	// ErrMedicineNotFound indicates that medicine record was not found
	ErrMedicineNotFound = errors.New("medicine not found")

	// ErrCapExceeded indicates that the owner already holds the maximum
	// allowed number of medicine records
	ErrCapExceeded = errors.New("medicine cap exceeded")
)
