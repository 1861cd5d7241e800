package services

import "errors"

// Errors shared across services and the HTTP error mapping.
var (
	ErrNotFound = errors.New("requested resource not found")

	// Validation and business rules
	ErrRegistrationNotOpen = errors.New("tournament registration is not open")
	ErrTournamentFull      = errors.New("tournament registration is full")
	ErrUnknownTriggerKind  = errors.New("unknown trigger kind")
	ErrInvalidScore        = errors.New("match scores must be non-negative")

	// Invariant violation: round creation is aborted as a whole and the
	// tournament is left in its last consistent state for the next tick.
	ErrInvalidRoundData = errors.New("round data violates bracket invariants")

	// Settlement
	ErrRewardGrantFailed = errors.New("reward grant failed")
	ErrUnknownRewardKey  = errors.New("no reward configured for this tournament kind, tier and rank")
)
