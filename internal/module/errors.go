package module

import (
	"errors"
	"fmt"
	"runtime/debug"
	"strings"
)

var (
	// ErrContractViolation marks a module missing a required method.
	ErrContractViolation = errors.New("module: contract violation")
	// ErrNotFound marks a lookup of an unregistered module name.
	ErrNotFound = errors.New("module: not found")
	// ErrPanic marks a module callback that panicked.
	ErrPanic = errors.New("module: callback panicked")
)

// ContractViolationError names the module and the first required method it
// lacks. Missing lists every absent method in contract order.
type ContractViolationError struct {
	Module  string
	Method  string
	Missing []string
}

func (e *ContractViolationError) Error() string {
	if len(e.Missing) > 1 {
		return fmt.Sprintf("module: %s does not implement %s", e.Module, strings.Join(e.Missing, ", "))
	}
	return fmt.Sprintf("module: %s does not implement %s", e.Module, e.Method)
}

func (e *ContractViolationError) Unwrap() error { return ErrContractViolation }

// ActivationError reports a module whose Activate failed during a switch.
type ActivationError struct {
	Module string
	Err    error
}

func (e *ActivationError) Error() string {
	return fmt.Sprintf("module: activate %s: %v", e.Module, e.Err)
}

func (e *ActivationError) Unwrap() error { return e.Err }

// PanicError carries the recovered value and stack of a panicking callback.
type PanicError struct {
	Op    string
	Value any
	Stack string
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("module: %s panicked: %v", e.Op, e.Value)
}

func (e *PanicError) Unwrap() error { return ErrPanic }

// SafeCall runs fn and converts a panic into a *PanicError.
func SafeCall(op string, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Op: op, Value: r, Stack: string(debug.Stack())}
		}
	}()
	return fn()
}
