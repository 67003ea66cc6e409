package vm

import "errors"

// ---------------------------------------------------------------------------
// Compiler backend injection
// ---------------------------------------------------------------------------

// CompileFunc is the signature for compilation functions.
// This is used to inject the compiler without creating import cycles;
// pass compiler.Compile from the compiler package.
//
// Literal strings and global names are interned into heap. A failed
// compile returns a nil chunk and an error describing every problem found.
type CompileFunc func(source string, heap *Heap) (*Chunk, error)

// ErrNoCompiler is returned by Compile when no backend has been installed.
var ErrNoCompiler = errors.New("no compiler installed; call UseCompiler first")

// UseCompiler installs the compile backend used by Interpret and Execute.
func (v *VM) UseCompiler(fn CompileFunc) {
	v.compile = fn
}

// Compile compiles source into a chunk against this VM's heap without
// running it.
func (v *VM) Compile(source string) (*Chunk, error) {
	if v.compile == nil {
		return nil, ErrNoCompiler
	}
	return v.compile(source, v.heap)
}
