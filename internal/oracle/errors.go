package oracle

import "fmt"

// Error wraps any oracle call failure with the operation that failed
type Error struct {
	Op  string // "assess_state", "generate_plan", "compose_response", "parse_goals"
	Err error
}

// Error implements the error interface
func (e *Error) Error() string {
	return fmt.Sprintf("oracle %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying cause
func (e *Error) Unwrap() error {
	return e.Err
}

func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Op: op, Err: err}
}
