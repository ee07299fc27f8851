package session

import "fmt"

// PanicError carries a value recovered from a panic during a build.
type PanicError struct {
	Value interface{}
}

// Error is an implementation of the error interface.
func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}

// Unwrap returns the panic value when it is an error.
func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}
