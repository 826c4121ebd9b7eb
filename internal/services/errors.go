package services

import "errors"

// Error taxonomy for payment operations. Public entry points never leak
// these as Go errors to HTTP callers; they are folded into result
// structs, but internal code branches on them with errors.Is.
var (
	// ErrValidation marks missing or invalid caller input. No partial
	// work is performed when it is raised.
	ErrValidation = errors.New("validation error")

	// ErrGateway marks a failure building or completing the gateway
	// interaction.
	ErrGateway = errors.New("gateway error")

	// ErrNotFound marks a lookup miss.
	ErrNotFound = errors.New("not found")
)
