package services

import "errors"

// Errors shared by services and HTTP mapping.
var (
	ErrNotFound         = errors.New("requested resource not found")
	ErrValidationFailed = errors.New("validation failed")

	// Scheduling
	ErrInfeasible             = errors.New("requested schedule change is infeasible")
	ErrTournamentNotScheduled = errors.New("tournament has no schedule yet")
	ErrNoMatchesToSchedule    = errors.New("tournament has no matches to schedule")

	// Lifecycle
	ErrServiceClosed = errors.New("schedule service is shut down")
)
