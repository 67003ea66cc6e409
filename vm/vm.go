package vm

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/tliron/commonlog"
)

// ---------------------------------------------------------------------------
// VM: The Kavya Virtual Machine
// ---------------------------------------------------------------------------

// VM executes compiled chunks. The heap and the global-variable table
// persist across Run calls, so a REPL keeps definitions from earlier
// lines; the operand stack and instruction pointer are reset per chunk.
//
// A VM is not safe for concurrent use. Callers sharing one VM between
// goroutines must serialize access (see server.VMWorker).
type VM struct {
	heap    *Heap
	globals map[*StringObject]Value
	compile CompileFunc

	// Execution state for the chunk being run
	chunk   *Chunk
	ip      int // next byte to decode
	opStart int // offset of the instruction being executed
	stack   []Value
	sp      int // next free stack slot

	out    io.Writer
	errOut io.Writer
	in     *bufio.Reader

	// DumpChunks prints a disassembly of each chunk to the error writer
	// before it runs.
	DumpChunks bool

	log commonlog.Logger
}

// Option configures a VM.
type Option func(*VM)

// WithOutput sets the writer used by `write` and `ask` prompts.
func WithOutput(w io.Writer) Option {
	return func(v *VM) { v.out = w }
}

// WithErrorOutput sets the writer used for diagnostics.
func WithErrorOutput(w io.Writer) Option {
	return func(v *VM) { v.errOut = w }
}

// WithInput sets the reader `ask` reads lines from.
func WithInput(r io.Reader) Option {
	return func(v *VM) {
		if br, ok := r.(*bufio.Reader); ok {
			v.in = br
			return
		}
		v.in = bufio.NewReader(r)
	}
}

// WithHeap shares an existing heap instead of creating a new one.
func WithHeap(h *Heap) Option {
	return func(v *VM) { v.heap = h }
}

// New creates a VM wired to the process's standard streams unless
// overridden by options.
func New(opts ...Option) *VM {
	v := &VM{
		globals: make(map[*StringObject]Value),
		stack:   make([]Value, 256),
		out:     os.Stdout,
		errOut:  os.Stderr,
		log:     commonlog.GetLogger("kavya.vm"),
	}
	for _, opt := range opts {
		opt(v)
	}
	if v.heap == nil {
		v.heap = NewHeap()
	}
	if v.in == nil {
		v.in = bufio.NewReader(os.Stdin)
	}
	return v
}

// Heap returns the heap owning this VM's objects.
func (v *VM) Heap() *Heap {
	return v.heap
}

// ---------------------------------------------------------------------------
// Globals
// ---------------------------------------------------------------------------

// DefineGlobal binds name to val, replacing any previous binding.
func (v *VM) DefineGlobal(name string, val Value) {
	v.globals[v.heap.Intern(name)] = val
}

// Global returns the value bound to name.
func (v *VM) Global(name string) (Value, bool) {
	key := v.heap.Lookup(name)
	if key == nil {
		return Null, false
	}
	val, ok := v.globals[key]
	return val, ok
}

// GlobalNames returns the defined global names in sorted order.
func (v *VM) GlobalNames() []string {
	names := make([]string, 0, len(v.globals))
	for name := range v.globals {
		names = append(names, name.String())
	}
	sort.Strings(names)
	return names
}

// ---------------------------------------------------------------------------
// Compile/execute cycle
// ---------------------------------------------------------------------------

// Execute compiles source and, if compilation succeeded, runs it.
// The returned error is the compiler's error list or a *RuntimeError.
func (v *VM) Execute(source string) (InterpretResult, error) {
	chunk, err := v.Compile(source)
	if err != nil {
		return InterpretCompileError, err
	}
	return v.ExecuteChunk(chunk)
}

// ExecuteChunk runs an already compiled chunk, such as one loaded with
// UnmarshalChunk.
func (v *VM) ExecuteChunk(chunk *Chunk) (InterpretResult, error) {
	if v.DumpChunks {
		fmt.Fprint(v.errOut, Disassemble(chunk, "code"))
	}
	if err := v.Run(chunk); err != nil {
		return InterpretRuntimeError, err
	}
	return InterpretOK, nil
}

// Interpret is Execute with errors reported on the VM's error writer.
func (v *VM) Interpret(source string) InterpretResult {
	result, err := v.Execute(source)
	if err != nil {
		fmt.Fprintln(v.errOut, err)
	}
	return result
}

// InterpretChunk is ExecuteChunk with errors reported on the VM's error
// writer.
func (v *VM) InterpretChunk(chunk *Chunk) InterpretResult {
	result, err := v.ExecuteChunk(chunk)
	if err != nil {
		fmt.Fprintln(v.errOut, err)
	}
	return result
}

// Run executes a completed chunk until its return instruction or the
// first runtime fault.
func (v *VM) Run(chunk *Chunk) (err error) {
	v.chunk = chunk
	v.ip = 0
	v.opStart = 0
	v.sp = 0

	v.log.Debugf("running chunk: %d bytes, %d constants", chunk.Len(), len(chunk.Constants()))

	defer func() {
		if r := recover(); r != nil {
			err = &RuntimeError{Line: v.chunk.Line(v.opStart), Message: fmt.Sprintf("%v", r)}
		}
		if err != nil {
			v.log.Infof("runtime error: %s", err)
		}
		v.chunk = nil
	}()

	return v.run()
}

// ---------------------------------------------------------------------------
// Stack operations
// ---------------------------------------------------------------------------

func (v *VM) push(val Value) {
	if v.sp >= len(v.stack) {
		// Grow the stack dynamically instead of panicking
		newStack := make([]Value, len(v.stack)*2)
		copy(newStack, v.stack)
		v.stack = newStack
	}
	v.stack[v.sp] = val
	v.sp++
}

func (v *VM) pop() Value {
	if v.sp <= 0 {
		panic("stack underflow")
	}
	v.sp--
	return v.stack[v.sp]
}

// peek returns the value distance slots below the top.
func (v *VM) peek(distance int) Value {
	if v.sp-1-distance < 0 {
		panic("stack underflow")
	}
	return v.stack[v.sp-1-distance]
}

// StackDepth returns the number of values on the operand stack.
func (v *VM) StackDepth() int {
	return v.sp
}

// runtimeError builds the fault for the current instruction.
func (v *VM) runtimeError(format string, args ...any) error {
	return &RuntimeError{
		Line:    v.chunk.Line(v.opStart),
		Message: fmt.Sprintf(format, args...),
	}
}
