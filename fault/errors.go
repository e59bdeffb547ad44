package fault

import (
	"errors"
	"fmt"
	"runtime"
)

// PanicError wraps a value recovered from a panicking task together with the
// goroutine stack at the point of the panic.
type PanicError struct {
	// Value is the original value passed to panic().
	Value any

	// Stack is the goroutine stack trace at the point of panic.
	Stack string
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("task panicked: %v\n\n%s", e.Value, e.Stack)
}

// Unwrap returns the panic value if it is an error.
func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}

// NewPanicError captures the current stack for a recovered value.
func NewPanicError(v any) *PanicError {
	// 8 KiB holds most stacks; runtime.Stack truncates otherwise.
	buf := make([]byte, 8192)
	n := runtime.Stack(buf, false)
	return &PanicError{
		Value: v,
		Stack: string(buf[:n]),
	}
}

// TaskError attributes an error escaping a task boundary to the named task.
type TaskError struct {
	Task string
	Err  error
}

func (e *TaskError) Error() string {
	return fmt.Sprintf("task %q failed: %v", e.Task, e.Err)
}

func (e *TaskError) Unwrap() error {
	return e.Err
}

// TaskOf returns the task name of the first TaskError in err's chain.
func TaskOf(err error) (string, bool) {
	var te *TaskError
	if errors.As(err, &te) {
		return te.Task, true
	}
	return "", false
}
