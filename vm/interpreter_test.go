package vm

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

// chunkBuilder assembles chunks by hand, with every byte on line 1 unless
// changed.
type chunkBuilder struct {
	c    *Chunk
	line int
}

func newBuilder() *chunkBuilder {
	return &chunkBuilder{c: NewChunk(), line: 1}
}

func (b *chunkBuilder) op(ops ...Opcode) *chunkBuilder {
	for _, op := range ops {
		b.c.WriteOp(op, b.line)
	}
	return b
}

func (b *chunkBuilder) constant(v Value) *chunkBuilder {
	idx, _ := b.c.AddConstant(v)
	b.c.WriteOpByte(OpConstant, byte(idx), b.line)
	return b
}

func (b *chunkBuilder) withName(op Opcode, name Value) *chunkBuilder {
	idx, _ := b.c.AddConstant(name)
	b.c.WriteOpByte(op, byte(idx), b.line)
	return b
}

func (b *chunkBuilder) at(line int) *chunkBuilder {
	b.line = line
	return b
}

func newTestVM(input string) (*VM, *bytes.Buffer) {
	var out bytes.Buffer
	v := New(WithOutput(&out), WithErrorOutput(&out), WithInput(strings.NewReader(input)))
	return v, &out
}

// ---------------------------------------------------------------------------
// Arithmetic and printing
// ---------------------------------------------------------------------------

func TestRunArithmetic(t *testing.T) {
	v, out := newTestVM("")
	// write (1 + 2) * 4 - 6 / 3
	chunk := newBuilder().
		constant(FromNumber(1)).constant(FromNumber(2)).op(OpAdd).
		constant(FromNumber(4)).op(OpMultiply).
		constant(FromNumber(6)).constant(FromNumber(3)).op(OpDivide).
		op(OpSubtract, OpWrite, OpReturn).c

	if err := v.Run(chunk); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if out.String() != "10\n" {
		t.Errorf("output = %q, want %q", out.String(), "10\n")
	}
	if v.StackDepth() != 0 {
		t.Errorf("StackDepth() = %d after run, want 0", v.StackDepth())
	}
}

func TestRunComparisonsAndNot(t *testing.T) {
	tests := []struct {
		name string
		ops  []Opcode
		want string
	}{
		{"greater", []Opcode{OpGreater}, "false"},
		{"less", []Opcode{OpLess}, "true"},
		{"equal", []Opcode{OpEqual}, "false"},
		{"not equal", []Opcode{OpEqual, OpNot}, "true"},
	}

	for _, tt := range tests {
		v, out := newTestVM("")
		b := newBuilder().constant(FromNumber(1)).constant(FromNumber(2))
		b.op(tt.ops...).op(OpWrite, OpReturn)
		if err := v.Run(b.c); err != nil {
			t.Fatalf("%s: Run: %v", tt.name, err)
		}
		if got := strings.TrimSpace(out.String()); got != tt.want {
			t.Errorf("%s: got %q, want %q", tt.name, got, tt.want)
		}
	}
}

func TestRunStringConcat(t *testing.T) {
	v, out := newTestVM("")
	h := v.Heap()
	chunk := newBuilder().
		constant(h.NewString("Kav")).constant(h.NewString("ya")).op(OpAdd).
		constant(h.NewString("Kavya")).op(OpEqual, OpWrite, OpReturn).c

	if err := v.Run(chunk); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if out.String() != "true\n" {
		t.Errorf("output = %q, want true", out.String())
	}
}

// ---------------------------------------------------------------------------
// Runtime faults
// ---------------------------------------------------------------------------

func TestRuntimeErrors(t *testing.T) {
	h := NewHeap()
	tests := []struct {
		name  string
		chunk *Chunk
		msg   string
		line  int
	}{
		{
			"negate string",
			newBuilder().at(3).constant(h.NewString("x")).op(OpNegate).c,
			"Operand must be a number.", 3,
		},
		{
			"subtract bool",
			newBuilder().constant(FromNumber(1)).at(2).op(OpTrue, OpSubtract).c,
			"Operands must be numbers.", 2,
		},
		{
			"add mixed",
			newBuilder().constant(FromNumber(1)).constant(h.NewString("a")).at(4).op(OpAdd).c,
			"Operands must be two numbers or two strings.", 4,
		},
		{
			"undefined global",
			newBuilder().at(5).withName(OpGetGlobal, h.NewString("nope")).c,
			"Undefined variable 'nope'.", 5,
		},
		{
			"assign undefined global",
			newBuilder().op(OpNull).at(6).withName(OpSetGlobal, h.NewString("nope")).c,
			"Undefined variable 'nope'.", 6,
		},
	}

	for _, tt := range tests {
		v, _ := newTestVM("")
		v.heap = h
		err := v.Run(tt.chunk)

		var rerr *RuntimeError
		if !errors.As(err, &rerr) {
			t.Fatalf("%s: err = %v, want *RuntimeError", tt.name, err)
		}
		if rerr.Message != tt.msg || rerr.Line != tt.line {
			t.Errorf("%s: got %q at line %d, want %q at line %d",
				tt.name, rerr.Message, rerr.Line, tt.msg, tt.line)
		}
	}
}

func TestRuntimeErrorFormat(t *testing.T) {
	err := &RuntimeError{Line: 12, Message: "Operand must be a number."}
	want := "Operand must be a number.\n[line 12] in script"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestStackUnderflowBecomesRuntimeError(t *testing.T) {
	v, _ := newTestVM("")
	err := v.Run(newBuilder().op(OpPop, OpReturn).c)
	var rerr *RuntimeError
	if !errors.As(err, &rerr) {
		t.Fatalf("err = %v, want *RuntimeError", err)
	}
}

// ---------------------------------------------------------------------------
// Globals and locals
// ---------------------------------------------------------------------------

func TestGlobalsPersistAcrossRuns(t *testing.T) {
	v, out := newTestVM("")
	h := v.Heap()

	define := newBuilder().constant(FromNumber(7)).withName(OpDefineGlobal, h.NewString("x")).op(OpReturn).c
	if err := v.Run(define); err != nil {
		t.Fatalf("define: %v", err)
	}

	read := newBuilder().withName(OpGetGlobal, h.NewString("x")).op(OpWrite, OpReturn).c
	if err := v.Run(read); err != nil {
		t.Fatalf("read: %v", err)
	}
	if out.String() != "7\n" {
		t.Errorf("output = %q, want 7", out.String())
	}

	got, ok := v.Global("x")
	if !ok || got.Number() != 7 {
		t.Errorf("Global(x) = %v, %v; want 7, true", got, ok)
	}
	if names := v.GlobalNames(); len(names) != 1 || names[0] != "x" {
		t.Errorf("GlobalNames() = %v, want [x]", names)
	}
}

func TestLocalSlots(t *testing.T) {
	v, out := newTestVM("")
	// slot 0 = 1; slot 0 = slot 0 + 2; write slot 0
	b := newBuilder().constant(FromNumber(1))
	b.c.WriteOpByte(OpGetLocal, 0, 1)
	b.constant(FromNumber(2)).op(OpAdd)
	b.c.WriteOpByte(OpSetLocal, 0, 1)
	b.op(OpPop)
	b.c.WriteOpByte(OpGetLocal, 0, 1)
	b.op(OpWrite, OpPop, OpReturn)

	if err := v.Run(b.c); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if out.String() != "3\n" {
		t.Errorf("output = %q, want 3", out.String())
	}
}

// ---------------------------------------------------------------------------
// Control flow
// ---------------------------------------------------------------------------

func TestJumpIfFalseLeavesCondition(t *testing.T) {
	v, out := newTestVM("")
	b := newBuilder().op(OpFalse)
	jump := b.c.EmitJump(OpJumpIfFalse, 1)
	b.constant(FromNumber(1)).op(OpWrite)
	if err := b.c.PatchJump(jump); err != nil {
		t.Fatal(err)
	}
	b.op(OpWrite, OpReturn)

	if err := v.Run(b.c); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if out.String() != "false\n" {
		t.Errorf("output = %q, want the condition written once", out.String())
	}
}

func TestLoopCountsDown(t *testing.T) {
	v, out := newTestVM("")
	h := v.Heap()
	n := h.NewString("n")

	b := newBuilder().constant(FromNumber(3)).withName(OpDefineGlobal, n)
	loopStart := b.c.Len()
	b.withName(OpGetGlobal, n).constant(FromNumber(0)).op(OpGreater)
	exit := b.c.EmitJump(OpJumpIfFalse, 1)
	b.op(OpPop)
	b.withName(OpGetGlobal, n).op(OpWrite)
	b.withName(OpGetGlobal, n).constant(FromNumber(1)).op(OpSubtract).withName(OpSetGlobal, n).op(OpPop)
	if err := b.c.EmitLoop(loopStart, 1); err != nil {
		t.Fatal(err)
	}
	if err := b.c.PatchJump(exit); err != nil {
		t.Fatal(err)
	}
	b.op(OpPop, OpReturn)

	if err := v.Run(b.c); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if out.String() != "3\n2\n1\n" {
		t.Errorf("output = %q, want 3 2 1", out.String())
	}
}

// ---------------------------------------------------------------------------
// ask
// ---------------------------------------------------------------------------

func TestAskReadsLine(t *testing.T) {
	v, out := newTestVM("Ada\r\nrest\n")
	h := v.Heap()
	chunk := newBuilder().constant(h.NewString("Name? ")).op(OpAsk, OpWrite, OpReturn).c

	if err := v.Run(chunk); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if out.String() != "Name? Ada\n" {
		t.Errorf("output = %q, want %q", out.String(), "Name? Ada\n")
	}
}

func TestAskAtEndOfInputYieldsNull(t *testing.T) {
	v, out := newTestVM("")
	h := v.Heap()
	chunk := newBuilder().constant(h.NewString("> ")).op(OpAsk, OpWrite, OpReturn).c

	if err := v.Run(chunk); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if out.String() != "> null\n" {
		t.Errorf("output = %q, want %q", out.String(), "> null\n")
	}
}

// ---------------------------------------------------------------------------
// Compile/execute cycle
// ---------------------------------------------------------------------------

func TestExecuteWithoutCompiler(t *testing.T) {
	v, _ := newTestVM("")
	result, err := v.Execute("write 1")
	if result != InterpretCompileError || !errors.Is(err, ErrNoCompiler) {
		t.Errorf("Execute = %v, %v; want compile error, ErrNoCompiler", result, err)
	}
}

func TestExecuteUsesInjectedCompiler(t *testing.T) {
	v, out := newTestVM("")
	v.UseCompiler(func(source string, heap *Heap) (*Chunk, error) {
		return newBuilder().constant(heap.NewString(source)).op(OpWrite, OpReturn).c, nil
	})

	if result := v.Interpret("echo"); result != InterpretOK {
		t.Fatalf("Interpret = %v, want ok", result)
	}
	if out.String() != "echo\n" {
		t.Errorf("output = %q, want echo", out.String())
	}
}

func TestInterpretReportsRuntimeError(t *testing.T) {
	v, out := newTestVM("")
	v.UseCompiler(func(string, *Heap) (*Chunk, error) {
		return newBuilder().at(9).op(OpTrue, OpNegate, OpReturn).c, nil
	})

	if result := v.Interpret(""); result != InterpretRuntimeError {
		t.Fatalf("Interpret = %v, want runtime error", result)
	}
	want := "Operand must be a number.\n[line 9] in script\n"
	if out.String() != want {
		t.Errorf("error output = %q, want %q", out.String(), want)
	}
}
