package workflow

import "errors"

var (
	// ErrInvalidTransition is returned when no transition is defined for
	// the (status, role, outcome) combination
	ErrInvalidTransition = errors.New("invalid state transition")

	// ErrWrongRole is returned when the actor's role does not review the
	// claim's current stage
	ErrWrongRole = errors.New("role does not review this stage")

	// ErrClaimFinal is returned when the claim is already in a terminal
	// status
	ErrClaimFinal = errors.New("claim is in a terminal status")

	// ErrSelfApproval is returned when an actor acts on their own claim
	ErrSelfApproval = errors.New("self-approval is forbidden")
)
