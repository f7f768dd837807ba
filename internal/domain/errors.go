package domain

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

var (
	// ErrValidation marks contract violations in result construction or registration.
	ErrValidation = errors.New("validation failed")
	// ErrDuplicateCheck is returned when registering an id that already exists.
	ErrDuplicateCheck = errors.New("check already registered")
	// ErrCheckNotRegistered is returned for lookups of unknown ids that must succeed.
	ErrCheckNotRegistered = errors.New("check not registered")
	// ErrCheckDisabled is returned when executing a disabled check.
	ErrCheckDisabled = errors.New("check disabled")
	// ErrInvalidResult is returned when a plug-in hands back a malformed result.
	ErrInvalidResult = errors.New("check returned an invalid result")
	// ErrCheckExecution marks failures raised by the plug-in itself.
	ErrCheckExecution = errors.New("check execution failed")
	// ErrCheckTimeout is returned when a check does not finish before its deadline.
	ErrCheckTimeout = errors.New("check timed out")
	// ErrDependencyCycle is returned when declared dependencies cannot be ordered.
	ErrDependencyCycle = errors.New("dependency cycle")
)

// ValidationError describes which input violated a contract.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Is lets errors.Is(err, ErrValidation) match any ValidationError.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// CheckExecutionError wraps an error or panic raised inside a check plug-in.
type CheckExecutionError struct {
	CheckID string
	Cause   error
}

func (e *CheckExecutionError) Error() string {
	return fmt.Sprintf("check %q failed: %v", e.CheckID, e.Cause)
}

func (e *CheckExecutionError) Unwrap() error {
	return e.Cause
}

// Is lets errors.Is(err, ErrCheckExecution) match any CheckExecutionError.
func (e *CheckExecutionError) Is(target error) bool {
	return target == ErrCheckExecution
}
