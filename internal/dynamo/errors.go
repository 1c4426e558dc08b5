package dynamo

import (
	"errors"
	"fmt"
)

// Domain errors for model construction and integration.
var (
	// ErrInvalidParameter indicates a malformed scenario input (sex or
	// APOE4 flag outside {0,1}, xi outside (0,1], bad perturbation
	// factor, unknown parameter name).
	ErrInvalidParameter = errors.New("neurosim: invalid parameter")

	// ErrEquilibriumDomain indicates an initial-condition equilibrium
	// solve violated its positivity precondition (negative quadratic
	// discriminant, or plaque degradation capacity not exceeding the
	// oligomer conversion flux).
	ErrEquilibriumDomain = errors.New("neurosim: equilibrium outside physical domain")

	// ErrDivisionByZero indicates a dilution or saturation denominator
	// vanished during derivative evaluation.
	ErrDivisionByZero = errors.New("neurosim: division by zero in kinetics")

	// ErrInvalidState indicates a state vector with NaN or Inf entries.
	ErrInvalidState = errors.New("neurosim: invalid state (NaN or Inf detected)")

	// ErrStepTooSmall indicates the adaptive timestep shrank below the
	// integrator's minimum before meeting the error tolerance.
	ErrStepTooSmall = errors.New("neurosim: adaptive timestep below minimum")

	// ErrTooManySteps indicates the integrator exceeded its step limit.
	ErrTooManySteps = errors.New("neurosim: step limit exceeded")
)

// IntegrationError wraps a solver failure with the time and step count
// at which it occurred, so a failed sweep evaluation stays reproducible.
type IntegrationError struct {
	Time    float64
	Steps   int
	Wrapped error
}

func (e *IntegrationError) Error() string {
	return fmt.Sprintf("integration failed at t=%.4f after %d steps: %v", e.Time, e.Steps, e.Wrapped)
}

func (e *IntegrationError) Unwrap() error { return e.Wrapped }
