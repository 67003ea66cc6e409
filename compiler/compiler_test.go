package compiler

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/chazu/kavya/vm"
)

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func mustCompile(t *testing.T, source string) *vm.Chunk {
	t.Helper()
	chunk, err := Compile(source, vm.NewHeap())
	if err != nil {
		t.Fatalf("Compile(%q): %v", source, err)
	}
	return chunk
}

// opcodes decodes the instruction stream into its opcodes, skipping
// operand bytes.
func opcodes(chunk *vm.Chunk) []vm.Opcode {
	code := chunk.Code()
	var ops []vm.Opcode
	for i := 0; i < len(code); {
		op := vm.Opcode(code[i])
		ops = append(ops, op)
		i += 1 + op.Info().OperandBytes
	}
	return ops
}

// constants renders the constant pool in canonical form.
func constants(chunk *vm.Chunk) []string {
	var out []string
	for _, c := range chunk.Constants() {
		out = append(out, c.String())
	}
	return out
}

// ---------------------------------------------------------------------------
// Expressions
// ---------------------------------------------------------------------------

func TestCompileExpressionShapes(t *testing.T) {
	tests := []struct {
		source string
		ops    []vm.Opcode
	}{
		{"write 1 + 2", []vm.Opcode{vm.OpConstant, vm.OpConstant, vm.OpAdd, vm.OpWrite, vm.OpReturn}},
		{"write -1", []vm.Opcode{vm.OpConstant, vm.OpNegate, vm.OpWrite, vm.OpReturn}},
		{"write !true", []vm.Opcode{vm.OpTrue, vm.OpNot, vm.OpWrite, vm.OpReturn}},
		{"1 != 2", []vm.Opcode{vm.OpConstant, vm.OpConstant, vm.OpEqual, vm.OpNot, vm.OpPop, vm.OpReturn}},
		{"1 >= 2", []vm.Opcode{vm.OpConstant, vm.OpConstant, vm.OpLess, vm.OpNot, vm.OpPop, vm.OpReturn}},
		{"1 <= 2", []vm.Opcode{vm.OpConstant, vm.OpConstant, vm.OpGreater, vm.OpNot, vm.OpPop, vm.OpReturn}},
		{"null", []vm.Opcode{vm.OpNull, vm.OpPop, vm.OpReturn}},
		{`ask "?"`, []vm.Opcode{vm.OpConstant, vm.OpAsk, vm.OpPop, vm.OpReturn}},
		{"true and false", []vm.Opcode{vm.OpTrue, vm.OpJumpIfFalse, vm.OpPop, vm.OpFalse, vm.OpPop, vm.OpReturn}},
		{"true or false", []vm.Opcode{vm.OpTrue, vm.OpJumpIfFalse, vm.OpJump, vm.OpPop, vm.OpFalse, vm.OpPop, vm.OpReturn}},
	}

	for _, tt := range tests {
		chunk := mustCompile(t, tt.source)
		if diff := cmp.Diff(tt.ops, opcodes(chunk)); diff != "" {
			t.Errorf("%q opcodes mismatch (-want +got):\n%s", tt.source, diff)
		}
	}
}

func TestCompilePrecedence(t *testing.T) {
	// 1 + 2 * 3 multiplies before adding.
	chunk := mustCompile(t, "write 1 + 2 * 3")
	want := []vm.Opcode{vm.OpConstant, vm.OpConstant, vm.OpConstant, vm.OpMultiply, vm.OpAdd, vm.OpWrite, vm.OpReturn}
	if diff := cmp.Diff(want, opcodes(chunk)); diff != "" {
		t.Errorf("opcodes mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"1", "2", "3"}, constants(chunk)); diff != "" {
		t.Errorf("constants mismatch (-want +got):\n%s", diff)
	}
}

// ---------------------------------------------------------------------------
// Variables
// ---------------------------------------------------------------------------

func TestCompileGlobalDeclaration(t *testing.T) {
	chunk := mustCompile(t, "the x = 1")
	wantOps := []vm.Opcode{vm.OpConstant, vm.OpDefineGlobal, vm.OpReturn}
	if diff := cmp.Diff(wantOps, opcodes(chunk)); diff != "" {
		t.Errorf("opcodes mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"x", "1"}, constants(chunk)); diff != "" {
		t.Errorf("constants mismatch (-want +got):\n%s", diff)
	}
}

func TestCompileDeclarationDefaultsToNull(t *testing.T) {
	chunk := mustCompile(t, "the x")
	want := []vm.Opcode{vm.OpNull, vm.OpDefineGlobal, vm.OpReturn}
	if diff := cmp.Diff(want, opcodes(chunk)); diff != "" {
		t.Errorf("opcodes mismatch (-want +got):\n%s", diff)
	}
}

func TestCompileAssignSpellings(t *testing.T) {
	eq := mustCompile(t, "x = 3")
	is := mustCompile(t, "x is 3")
	if diff := cmp.Diff(eq.Code(), is.Code()); diff != "" {
		t.Errorf("`=` and `is` compile differently (-eq +is):\n%s", diff)
	}
	want := []vm.Opcode{vm.OpConstant, vm.OpSetGlobal, vm.OpPop, vm.OpReturn}
	if diff := cmp.Diff(want, opcodes(is)); diff != "" {
		t.Errorf("opcodes mismatch (-want +got):\n%s", diff)
	}
}

func TestCompileGlobalNamesNotDeduplicated(t *testing.T) {
	chunk := mustCompile(t, "write x\nwrite x")
	if diff := cmp.Diff([]string{"x", "x"}, constants(chunk)); diff != "" {
		t.Errorf("constants mismatch (-want +got):\n%s", diff)
	}
}

func TestCompileLocals(t *testing.T) {
	chunk := mustCompile(t, "{ the a = 1\n the b = a\n write b }")
	want := []byte{
		byte(vm.OpConstant), 0,
		byte(vm.OpGetLocal), 0,
		byte(vm.OpGetLocal), 1,
		byte(vm.OpWrite),
		byte(vm.OpPop),
		byte(vm.OpPop),
		byte(vm.OpReturn),
	}
	if diff := cmp.Diff(want, chunk.Code()); diff != "" {
		t.Errorf("code mismatch (-want +got):\n%s", diff)
	}
}

// ---------------------------------------------------------------------------
// Control flow
// ---------------------------------------------------------------------------

func TestCompileIfElseJumps(t *testing.T) {
	chunk := mustCompile(t, "if true { write 1 } else { write 2 }")
	want := []byte{
		byte(vm.OpTrue),
		byte(vm.OpJumpIfFalse), 0, 7,
		byte(vm.OpPop),
		byte(vm.OpConstant), 0,
		byte(vm.OpWrite),
		byte(vm.OpJump), 0, 4,
		byte(vm.OpPop),
		byte(vm.OpConstant), 1,
		byte(vm.OpWrite),
		byte(vm.OpReturn),
	}
	if diff := cmp.Diff(want, chunk.Code()); diff != "" {
		t.Errorf("code mismatch (-want +got):\n%s", diff)
	}
}

func TestCompileWhileLoop(t *testing.T) {
	chunk := mustCompile(t, "while false { write 1 }")
	want := []byte{
		byte(vm.OpFalse),
		byte(vm.OpJumpIfFalse), 0, 7,
		byte(vm.OpPop),
		byte(vm.OpConstant), 0,
		byte(vm.OpWrite),
		byte(vm.OpLoop), 0, 11,
		byte(vm.OpPop),
		byte(vm.OpReturn),
	}
	if diff := cmp.Diff(want, chunk.Code()); diff != "" {
		t.Errorf("code mismatch (-want +got):\n%s", diff)
	}
}

func TestCompileForSyntaxesMatch(t *testing.T) {
	tests := []struct {
		parens, bare string
	}{
		{
			"for (the i is 0, i < 3, i = i + 1) { write i }",
			"for the i is 0, i < 3, i = i + 1 { write i }",
		},
		{
			"for (, i < 3, ) { write i }",
			"for , i < 3, { write i }",
		},
		{
			"for (i = 0, , i = i + 1) { write i }",
			"for i = 0, , i = i + 1 { write i }",
		},
	}

	for _, tt := range tests {
		a := mustCompile(t, tt.parens)
		b := mustCompile(t, tt.bare)
		if diff := cmp.Diff(a.Code(), b.Code()); diff != "" {
			t.Errorf("%q and %q differ (-parens +bare):\n%s", tt.parens, tt.bare, diff)
		}
	}
}

func TestCompileForLoopScopesVariable(t *testing.T) {
	chunk := mustCompile(t, "for (the i is 0, i < 3, i = i + 1) { write i }")
	ops := opcodes(chunk)
	// The loop variable is a local; its slot is popped once the loop ends.
	if ops[len(ops)-2] != vm.OpPop || ops[len(ops)-1] != vm.OpReturn {
		t.Errorf("loop should end with POP RETURN, got %v", ops[len(ops)-2:])
	}
	for _, op := range ops {
		if op == vm.OpDefineGlobal || op == vm.OpGetGlobal {
			t.Errorf("loop variable compiled as a global: %v", ops)
			break
		}
	}
}

// ---------------------------------------------------------------------------
// Lines
// ---------------------------------------------------------------------------

func TestCompileRecordsLines(t *testing.T) {
	chunk := mustCompile(t, "write 1\n\nwrite 2")
	// CONSTANT 0, WRITE on line 1; CONSTANT 1, WRITE on line 3; RETURN on 3.
	want := []int{1, 1, 1, 3, 3, 3, 3}
	var got []int
	for i := 0; i < chunk.Len(); i++ {
		got = append(got, chunk.Line(i))
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("lines mismatch (-want +got):\n%s", diff)
	}
}

func TestCompileSemicolonsAreOptional(t *testing.T) {
	a := mustCompile(t, "write 1; write 2;")
	b := mustCompile(t, "write 1\nwrite 2")
	if diff := cmp.Diff(opcodes(a), opcodes(b)); diff != "" {
		t.Errorf("semicolon form differs (-semi +newline):\n%s", diff)
	}
}

func TestCompileInternsIntoHeap(t *testing.T) {
	heap := vm.NewHeap()
	if _, err := Compile(`write "shared"`, heap); err != nil {
		t.Fatal(err)
	}
	if heap.Lookup("shared") == nil {
		t.Error("string literal should be interned in the given heap")
	}
}
