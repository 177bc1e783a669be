package environment

import "github.com/pkg/errors"

// ErrEnvironment is the error that all environment failures match
// through errors.Is().
var ErrEnvironment = errors.New("environment failure")

// Error implements errors raised by an environment when it cannot
// reset or step.
type Error struct {
	Op  string
	Err error
}

// NewError wraps err as an environment Error raised by operation op
func NewError(op string, err error) error {
	return &Error{Op: op, Err: err}
}

// Error satisifes the error interface
func (e *Error) Error() string {
	return e.Op + ": " + e.Err.Error()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports every Error as an ErrEnvironment
func (e *Error) Is(target error) bool {
	return target == ErrEnvironment
}

// IsEnvironmentError returns whether or not an error reports a failure
// of an environment.
func IsEnvironmentError(err error) bool {
	return errors.Is(err, ErrEnvironment)
}
