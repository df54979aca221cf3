package domain

import "errors"

var (
	// ErrDuplicateJob is returned when a student with the same email is already queued
	ErrDuplicateJob = errors.New("duplicate job")

	// ErrJobNotFound is returned when no job exists for an email
	ErrJobNotFound = errors.New("job not found")

	// ErrInvalidStatusTransition is returned when a status change breaks the lifecycle
	ErrInvalidStatusTransition = errors.New("invalid status transition")

	// ErrScreenerConflict is returned when a second screener tries to claim an active job
	ErrScreenerConflict = errors.New("job is already handled by another screener")

	// ErrScreenerChangeInvalid is returned when the screener policy rejects a reassignment
	ErrScreenerChangeInvalid = errors.New("invalid screener change")

	// ErrInvalidSubject is returned when a subject grade range is outside the grade scale
	ErrInvalidSubject = errors.New("invalid subject grade range")

	// ErrStoreUnavailable is returned when the backing store cannot be reached
	ErrStoreUnavailable = errors.New("queue store unavailable")

	// ErrNotFound is returned by the store when no entry matches a snapshot
	ErrNotFound = errors.New("queue entry not found")
)
