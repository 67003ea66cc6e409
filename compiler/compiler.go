package compiler

import (
	"errors"
	"fmt"

	"github.com/chazu/kavya/vm"
)

// ---------------------------------------------------------------------------
// Compiler: single-pass source to bytecode
// ---------------------------------------------------------------------------

const (
	// maxLocals is the number of local slots addressable by a byte operand.
	maxLocals = 256

	// uninitialized marks a local whose initializer is still being compiled.
	uninitialized = -1
)

type local struct {
	name  Token
	depth int
}

// unit is the per-chunk compile state. Units form a stack through enclosing
// so nested code units can be compiled without disturbing the outer one.
type unit struct {
	enclosing  *unit
	chunk      *vm.Chunk
	locals     [maxLocals]local
	localCount int
	scopeDepth int
}

// Compiler parses Kavya source and emits bytecode in the same pass.
// A Compiler is used once; call Compile for the common case.
type Compiler struct {
	scanner *Scanner
	heap    *vm.Heap

	current  Token
	previous Token

	// lineBreak is set when at least one newline separated previous from
	// current. Error recovery treats it as a statement boundary.
	lineBreak bool

	hadError  bool
	panicMode bool
	errors    ErrorList

	unit *unit
}

// New creates a compiler over source. String constants are interned in heap.
func New(source string, heap *vm.Heap) *Compiler {
	if heap == nil {
		heap = vm.NewHeap()
	}
	return &Compiler{
		scanner: NewScanner(source),
		heap:    heap,
	}
}

// Compile translates source into a chunk. On failure the chunk is nil and
// the error is an ErrorList holding every diagnostic reported.
func Compile(source string, heap *vm.Heap) (*vm.Chunk, error) {
	return New(source, heap).Compile()
}

// Compile runs the compiler to the end of input.
func (c *Compiler) Compile() (*vm.Chunk, error) {
	c.beginUnit()
	c.advance()
	for !c.match(TokenEOF) {
		c.declaration()
	}
	chunk := c.endUnit()

	if c.hadError {
		return nil, c.errors
	}
	return chunk, nil
}

// Errors returns the diagnostics reported so far.
func (c *Compiler) Errors() ErrorList {
	return c.errors
}

func (c *Compiler) beginUnit() {
	c.unit = &unit{enclosing: c.unit, chunk: vm.NewChunk()}
}

func (c *Compiler) endUnit() *vm.Chunk {
	c.emitOp(vm.OpReturn)
	chunk := c.unit.chunk
	chunk.Seal()
	c.unit = c.unit.enclosing
	return chunk
}

func (c *Compiler) chunk() *vm.Chunk {
	return c.unit.chunk
}

// ---------------------------------------------------------------------------
// Token stream
// ---------------------------------------------------------------------------

// advance moves to the next meaningful token. Newlines are consumed here
// and remembered in lineBreak; lexical errors are reported and skipped.
func (c *Compiler) advance() {
	c.previous = c.current
	c.lineBreak = false

	for {
		c.current = c.scanner.NextToken()
		switch c.current.Type {
		case TokenNewline:
			c.lineBreak = true
			continue
		case TokenError:
			c.errorAtCurrent(c.current.Lexeme)
			continue
		}
		return
	}
}

func (c *Compiler) check(t TokenType) bool {
	return c.current.Type == t
}

func (c *Compiler) match(t TokenType) bool {
	if !c.check(t) {
		return false
	}
	c.advance()
	return true
}

func (c *Compiler) consume(t TokenType, message string) {
	if c.check(t) {
		c.advance()
		return
	}
	c.errorAtCurrent(message)
}

// ---------------------------------------------------------------------------
// Error reporting
// ---------------------------------------------------------------------------

func (c *Compiler) error(message string) {
	c.errorAt(c.previous, message)
}

func (c *Compiler) errorAtCurrent(message string) {
	c.errorAt(c.current, message)
}

// errorAt records a diagnostic unless the parser is already recovering
// from an earlier one.
func (c *Compiler) errorAt(tok Token, message string) {
	if c.panicMode {
		return
	}
	c.panicMode = true
	c.hadError = true

	var where string
	switch tok.Type {
	case TokenEOF:
		where = " at end"
	case TokenError:
		// The lexeme is the message itself.
	default:
		where = fmt.Sprintf(" at '%s'", tok.Lexeme)
	}
	c.errors = append(c.errors, &Error{Line: tok.Line, Where: where, Message: message})
}

// ---------------------------------------------------------------------------
// Emission
// ---------------------------------------------------------------------------

func (c *Compiler) emitByte(b byte) {
	c.chunk().Write(b, c.previous.Line)
}

func (c *Compiler) emitOp(op vm.Opcode) {
	c.chunk().WriteOp(op, c.previous.Line)
}

func (c *Compiler) emitOps(ops ...vm.Opcode) {
	for _, op := range ops {
		c.emitOp(op)
	}
}

func (c *Compiler) emitOpByte(op vm.Opcode, operand byte) {
	c.chunk().WriteOpByte(op, operand, c.previous.Line)
}

func (c *Compiler) emitJump(op vm.Opcode) int {
	return c.chunk().EmitJump(op, c.previous.Line)
}

func (c *Compiler) patchJump(offset int) {
	if err := c.chunk().PatchJump(offset); err != nil {
		c.error("Too much code to jump over.")
	}
}

func (c *Compiler) emitLoop(loopStart int) {
	if err := c.chunk().EmitLoop(loopStart, c.previous.Line); err != nil {
		c.error("Loop body too large.")
	}
}

// makeConstant adds v to the pool and returns its operand byte.
func (c *Compiler) makeConstant(v vm.Value) byte {
	idx, err := c.chunk().AddConstant(v)
	if err != nil {
		if errors.Is(err, vm.ErrTooManyConstants) {
			c.error("Too many constants in one chunk.")
		} else {
			c.error(err.Error())
		}
		return 0
	}
	return byte(idx)
}

func (c *Compiler) emitConstant(v vm.Value) {
	c.emitOpByte(vm.OpConstant, c.makeConstant(v))
}

// identifierConstant stores a variable name in the pool. Every reference
// gets its own entry.
func (c *Compiler) identifierConstant(name Token) byte {
	return c.makeConstant(c.heap.NewString(name.Lexeme))
}

// ---------------------------------------------------------------------------
// Scopes and locals
// ---------------------------------------------------------------------------

func (c *Compiler) beginScope() {
	c.unit.scopeDepth++
}

// endScope discards the locals of the innermost scope, one POP each.
func (c *Compiler) endScope() {
	u := c.unit
	u.scopeDepth--
	for u.localCount > 0 && u.locals[u.localCount-1].depth > u.scopeDepth {
		c.emitOp(vm.OpPop)
		u.localCount--
	}
}

func (c *Compiler) addLocal(name Token) {
	u := c.unit
	if u.localCount == maxLocals {
		c.error("Too many local variables in scope.")
		return
	}
	u.locals[u.localCount] = local{name: name, depth: uninitialized}
	u.localCount++
}

// declareVariable registers a local in the current block. Globals are
// late bound and need no declaration.
func (c *Compiler) declareVariable() {
	u := c.unit
	if u.scopeDepth == 0 {
		return
	}
	name := c.previous
	for i := u.localCount - 1; i >= 0; i-- {
		l := &u.locals[i]
		if l.depth != uninitialized && l.depth < u.scopeDepth {
			break
		}
		if l.name.Lexeme == name.Lexeme {
			c.error("Already a variable with this name in this scope.")
		}
	}
	c.addLocal(name)
}

// resolveLocal returns the slot of the innermost local named name.
func (c *Compiler) resolveLocal(name Token) (int, bool) {
	u := c.unit
	for i := u.localCount - 1; i >= 0; i-- {
		l := &u.locals[i]
		if l.name.Lexeme == name.Lexeme {
			if l.depth == uninitialized {
				c.error("Can't read local variable in its own initializer.")
			}
			return i, true
		}
	}
	return 0, false
}

func (c *Compiler) markInitialized() {
	u := c.unit
	if u.scopeDepth == 0 {
		return
	}
	u.locals[u.localCount-1].depth = u.scopeDepth
}

// parseVariable consumes a variable name. For globals it returns the
// name's constant index; for locals it returns 0.
func (c *Compiler) parseVariable(message string) byte {
	c.consume(TokenIdentifier, message)
	c.declareVariable()
	if c.unit.scopeDepth > 0 {
		return 0
	}
	return c.identifierConstant(c.previous)
}

// defineVariable finishes a declaration once its initializer is on the
// stack. A local simply stays in its slot.
func (c *Compiler) defineVariable(global byte) {
	if c.unit.scopeDepth > 0 {
		c.markInitialized()
		return
	}
	c.emitOpByte(vm.OpDefineGlobal, global)
}
