package vm

import "errors"

// ---------------------------------------------------------------------------
// Chunk: a compiled unit of bytecode
// ---------------------------------------------------------------------------

// MaxConstants is the number of constants addressable by an 8-bit index.
const MaxConstants = 256

var (
	// ErrTooManyConstants is returned by AddConstant when the pool is full.
	ErrTooManyConstants = errors.New("too many constants in one chunk")

	// ErrJumpTooLarge is returned when a forward jump cannot be encoded.
	ErrJumpTooLarge = errors.New("too much code to jump over")

	// ErrLoopTooLarge is returned when a backward loop cannot be encoded.
	ErrLoopTooLarge = errors.New("loop body too large")
)

// Chunk holds the instruction stream for one compile unit, a parallel
// table of source lines (one entry per code byte), and the constant pool.
type Chunk struct {
	code      Buffer[byte]
	lines     Buffer[int]
	constants Buffer[Value]
}

// NewChunk creates an empty chunk.
func NewChunk() *Chunk {
	return &Chunk{}
}

// Write appends one byte originating from the given source line.
func (c *Chunk) Write(b byte, line int) {
	c.code.Push(b)
	c.lines.Push(line)
}

// WriteOp appends an opcode.
func (c *Chunk) WriteOp(op Opcode, line int) {
	c.Write(byte(op), line)
}

// WriteOpByte appends an opcode with a one-byte operand.
func (c *Chunk) WriteOpByte(op Opcode, operand byte, line int) {
	c.Write(byte(op), line)
	c.Write(operand, line)
}

// Len returns the number of code bytes.
func (c *Chunk) Len() int {
	return c.code.Len()
}

// Code returns the instruction stream. The slice aliases chunk storage.
func (c *Chunk) Code() []byte {
	return c.code.Slice()
}

// Line returns the source line recorded for the byte at offset.
func (c *Chunk) Line(offset int) int {
	if offset < 0 || offset >= c.lines.Len() {
		return 0
	}
	return c.lines.At(offset)
}

// AddConstant appends v to the constant pool and returns its index.
// Constants are never deduplicated. Returns ErrTooManyConstants once the
// index would no longer fit in a byte; the value is still recorded so the
// caller can keep compiling after reporting the error.
func (c *Chunk) AddConstant(v Value) (int, error) {
	idx := c.constants.Push(v)
	if idx >= MaxConstants {
		return idx, ErrTooManyConstants
	}
	return idx, nil
}

// Constant returns the constant at index i.
func (c *Chunk) Constant(i int) Value {
	return c.constants.At(i)
}

// Constants returns the constant pool. The slice aliases chunk storage.
func (c *Chunk) Constants() []Value {
	return c.constants.Slice()
}

// ---------------------------------------------------------------------------
// Jump patching
// ---------------------------------------------------------------------------

// EmitJump writes a jump opcode followed by a two-byte placeholder and
// returns the offset of the placeholder for PatchJump.
func (c *Chunk) EmitJump(op Opcode, line int) int {
	c.WriteOp(op, line)
	c.Write(0xff, line)
	c.Write(0xff, line)
	return c.Len() - 2
}

// PatchJump resolves the placeholder at offset so the jump lands on the
// current end of the code stream.
func (c *Chunk) PatchJump(offset int) error {
	jump := c.Len() - offset - 2
	if jump > MaxJump {
		return ErrJumpTooLarge
	}
	hi, lo := encodeJump(jump)
	c.code.Set(offset, hi)
	c.code.Set(offset+1, lo)
	return nil
}

// EmitLoop writes a backward jump to loopStart. The offset is still
// written when it is too large so the code stream stays well-formed.
func (c *Chunk) EmitLoop(loopStart int, line int) error {
	c.WriteOp(OpLoop, line)
	offset := c.Len() - loopStart + 2
	var err error
	if offset > MaxJump {
		err = ErrLoopTooLarge
	}
	hi, lo := encodeJump(offset)
	c.Write(hi, line)
	c.Write(lo, line)
	return err
}

// Seal releases spare capacity once compilation has finished.
func (c *Chunk) Seal() {
	c.code.ShrinkToFit()
	c.lines.ShrinkToFit()
	c.constants.ShrinkToFit()
}
