package vm

import "fmt"

// ---------------------------------------------------------------------------
// InterpretResult: outcome of one compile/execute cycle
// ---------------------------------------------------------------------------

// InterpretResult reports how a compile/execute cycle ended.
type InterpretResult int

const (
	InterpretOK InterpretResult = iota
	InterpretCompileError
	InterpretRuntimeError
)

func (r InterpretResult) String() string {
	switch r {
	case InterpretOK:
		return "ok"
	case InterpretCompileError:
		return "compile error"
	case InterpretRuntimeError:
		return "runtime error"
	}
	return fmt.Sprintf("InterpretResult(%d)", int(r))
}

// ---------------------------------------------------------------------------
// RuntimeError
// ---------------------------------------------------------------------------

// RuntimeError is the first fault raised while executing a chunk.
// Line is the source line recorded for the faulting instruction.
type RuntimeError struct {
	Line    int
	Message string
}

func (e *RuntimeError) Error() string {
	return fmt.Sprintf("%s\n[line %d] in script", e.Message, e.Line)
}
