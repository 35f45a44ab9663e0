package db

import "errors"

// Domain-level database error sentinels.
var (
	// Fit record errors
	ErrFitRecordNotFound = errors.New("fit record not found")

	// Credit account errors
	ErrAccountNotFound     = errors.New("credit account not found")
	ErrInsufficientCredits = errors.New("insufficient credits")

	// University errors
	ErrUniversityNotFound = errors.New("university not found")

	// Profile errors
	ErrProfileNotFound = errors.New("student profile not found")
)
