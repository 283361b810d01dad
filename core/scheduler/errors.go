package scheduler

import (
	"errors"
	"fmt"
	"strings"
)

// ErrSolverTimeout is returned when the solver wall-clock bound expires before
// an acceptable model is available.
var ErrSolverTimeout = errors.New("solver timed out without a usable schedule")

// ErrNoFeasibleInput matches every NoFeasibleInputError with errors.Is.
var ErrNoFeasibleInput = errors.New("nothing to schedule")

// ConfigurationError collects every problem found in the run inputs. Inputs
// are rejected as a whole before encoding.
type ConfigurationError struct {
	Problems []string
}

func (e *ConfigurationError) Error() string {
	return "invalid scheduling configuration: " + strings.Join(e.Problems, "; ")
}

// Addf records a problem.
func (e *ConfigurationError) Addf(format string, args ...any) {
	e.Problems = append(e.Problems, fmt.Sprintf(format, args...))
}

// Err returns e when it holds problems and nil otherwise.
func (e *ConfigurationError) Err() error {
	if len(e.Problems) == 0 {
		return nil
	}
	return e
}

// Reason codes of NoFeasibleInputError.
type Reason string

const (
	ReasonNoMeetings         Reason = "no_meetings"
	ReasonNoSlots            Reason = "no_slots"
	ReasonNoFeasibleMeetings Reason = "no_feasible_meetings"
)

// NoFeasibleInputError reports that the encoded problem has no hard clause,
// so there is nothing for the solver to do.
type NoFeasibleInputError struct {
	Reason Reason
	// Skipped names the meetings without a candidate slot.
	Skipped []string
}

func (e *NoFeasibleInputError) Error() string {
	switch e.Reason {
	case ReasonNoMeetings:
		return "no feasible input: no meetings configured"
	case ReasonNoSlots:
		return "no feasible input: no slots available"
	default:
		return fmt.Sprintf("no feasible input: no meeting has a candidate slot (%s)", strings.Join(e.Skipped, ", "))
	}
}

// Is lets errors.Is match ErrNoFeasibleInput.
func (e *NoFeasibleInputError) Is(target error) bool { return target == ErrNoFeasibleInput }

// SolverInternalError signals an encoder or solver defect: an unsatisfiable
// answer to structurally sound hard clauses, or a model that breaks them.
type SolverInternalError struct {
	Variables   int
	HardClauses int
	SoftClauses int
	Err         error
}

func (e *SolverInternalError) Error() string {
	return fmt.Sprintf("solver internal error (%d variables, %d hard clauses, %d soft clauses): %v",
		e.Variables, e.HardClauses, e.SoftClauses, e.Err)
}

func (e *SolverInternalError) Unwrap() error { return e.Err }
