package optimizer

import "errors"

// Sentinel errors returned by the engine. Callers match them with errors.Is;
// the wrapped message carries the detail.
var (
	ErrInvalidStrategy     = errors.New("invalid strategy")
	ErrInfeasibleSquad     = errors.New("no feasible squad")
	ErrTimeout             = errors.New("optimization timed out")
	ErrInsufficientBudget  = errors.New("insufficient budget")
	ErrNoFeasibleTransfer  = errors.New("no feasible transfer")
	ErrInvalidFormation    = errors.New("invalid formation")
	ErrUnknownPlayer       = errors.New("unknown player")
	ErrInvalidWeights      = errors.New("invalid strategy weights")
	ErrConstraintViolation = errors.New("squad constraint violation")
)
