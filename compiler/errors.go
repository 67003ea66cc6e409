package compiler

import (
	"fmt"
	"strings"
)

// Error is a single compile-time diagnostic.
type Error struct {
	Line    int
	Where   string // " at 'x'", " at end", or empty for lexical errors
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("[line %d] Error%s: %s", e.Line, e.Where, e.Message)
}

// ErrorList holds every error reported while compiling one unit, in the
// order they were found.
type ErrorList []*Error

func (l ErrorList) Error() string {
	msgs := make([]string, len(l))
	for i, e := range l {
		msgs[i] = e.Error()
	}
	return strings.Join(msgs, "\n")
}

// Unwrap exposes the individual errors to errors.Is and errors.As.
func (l ErrorList) Unwrap() []error {
	errs := make([]error, len(l))
	for i, e := range l {
		errs[i] = e
	}
	return errs
}
