package interpreter

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"loxvm/pkg/heap"
	"loxvm/pkg/parser"
	"loxvm/pkg/table"
	"loxvm/pkg/value"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
)

const (
	FramesMax = 64
	StackMax  = FramesMax * 256
)

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
	default:
		return fmt.Sprintf("UNKNOWN(%d)", int(r))
	}
}

// Interpreter is one virtual machine with its own heap, globals and stacks.
// It is not safe for concurrent use.
type Interpreter struct {
	id   uuid.UUID
	heap *heap.Heap

	stack    []value.Value // value stack, live up to stackTop
	stackTop int

	frames     [FramesMax]Frame // call stack, live up to frameCount
	frameCount int

	globals      *table.Table // global bindings keyed by interned name
	openUpvalues value.Ref    // open upvalues, highest stack slot first

	out     io.Writer // output writer for print
	errOut  io.Writer // diagnostics
	listing io.Writer // compiled bytecode listing
	trace   io.Writer // per-instruction execution trace
	color   bool      // color diagnostics

	maxSteps int // maximum steps per Interpret (0 = unlimited)
	steps    int // steps executed by the current Interpret

	start  time.Time
	logger *log.Logger
}

type Option func(*Interpreter)

// WithWriter sets the output writer for print statements
func WithWriter(w io.Writer) Option {
	return func(i *Interpreter) { i.out = w }
}

// WithErrWriter sets the writer compile and runtime errors are reported to
func WithErrWriter(w io.Writer) Option {
	return func(i *Interpreter) { i.errOut = w }
}

// WithHeap runs the interpreter on h instead of a heap with default settings
func WithHeap(h *heap.Heap) Option {
	return func(i *Interpreter) { i.heap = h }
}

// WithMaxSteps sets a maximum number of instructions per Interpret before it fails with ErrMaxStepsExceeded
func WithMaxSteps(n int) Option {
	return func(i *Interpreter) { i.maxSteps = n }
}

// WithListing writes the disassembly of every compiled function to w
func WithListing(w io.Writer) Option {
	return func(i *Interpreter) { i.listing = w }
}

// WithTrace writes the stack and the instruction to w before each step
func WithTrace(w io.Writer) Option {
	return func(i *Interpreter) { i.trace = w }
}

// WithColor colors diagnostics
func WithColor(enabled bool) Option {
	return func(i *Interpreter) { i.color = enabled }
}

// WithLogger sets the logger for lifecycle and GC messages
func WithLogger(logger *log.Logger) Option {
	return func(i *Interpreter) { i.logger = logger }
}

// NewInterpreter creates a new Interpreter instance with the clock native defined
func NewInterpreter(opts ...Option) *Interpreter {
	it := &Interpreter{
		id:      uuid.New(),
		stack:   make([]value.Value, StackMax),
		globals: table.New(),
		start:   time.Now(),
	}

	for _, o := range opts {
		o(it)
	}

	if it.logger == nil {
		it.logger = log.Default()
	}
	it.logger = it.logger.With("vm", it.id.String()[:8])

	if it.out == nil {
		it.out = os.Stdout
	}
	if it.errOut == nil {
		it.errOut = os.Stderr
	}
	if it.heap == nil {
		it.heap = heap.New(heap.WithLogger(it.logger))
	}

	it.heap.AddRoots(it)
	it.DefineNative("clock", it.clock)

	it.logger.Debug("interpreter created")
	return it
}

// ID identifies the interpreter in logs
func (i *Interpreter) ID() uuid.UUID {
	return i.id
}

// Heap returns the heap the interpreter allocates from
func (i *Interpreter) Heap() *heap.Heap {
	return i.heap
}

// Output returns the output writer used for print
func (i *Interpreter) Output() io.Writer {
	return i.out
}

// Format renders v the way print does
func (i *Interpreter) Format(v value.Value) string {
	return i.heap.Format(v)
}

// Interpret compiles and runs source. Globals persist between calls, so a
// REPL can feed one line at a time. Errors are reported to the error writer
// and returned: *parser.CompileError or *RuntimeError.
func (i *Interpreter) Interpret(source string) (InterpretResult, error) {
	var popts []parser.Option
	popts = append(popts, parser.WithLogger(i.logger))
	if i.listing != nil {
		popts = append(popts, parser.WithTrace(i.listing))
	}

	fn, err := parser.Compile(i.heap, source, popts...)
	if err != nil {
		var cerr *parser.CompileError
		if errors.As(err, &cerr) {
			i.reportCompileError(cerr)
		}
		return InterpretCompileError, err
	}

	// the function is only rooted once it is on the stack
	i.push(value.Object(fn))
	closure := i.heap.NewClosure(fn)
	i.pop()
	i.push(value.Object(closure))

	i.steps = 0
	if err := i.callValue(value.Object(closure), 0); err != nil {
		return i.fail(err)
	}

	if err := i.Run(); err != nil {
		return i.fail(err)
	}

	i.logger.Debug("interpret finished", "steps", i.steps, "objects", i.heap.Stats().Objects)
	return InterpretOK, nil
}

// fail reports a runtime error and leaves the interpreter ready for the next Interpret
func (i *Interpreter) fail(err error) (InterpretResult, error) {
	var rerr *RuntimeError
	if errors.As(err, &rerr) {
		i.reportRuntimeError(rerr)
	}
	i.resetStack()

	i.logger.Debug("interpret failed", "steps", i.steps, "error", err)
	return InterpretRuntimeError, err
}

// resetStack empties the value and call stacks. Variables still captured
// are closed first so closures that escaped into globals stay valid.
func (i *Interpreter) resetStack() {
	i.closeUpvalues(0)
	i.stackTop = 0
	i.frameCount = 0
	i.openUpvalues = value.Ref{}
}

// Run executes until the outermost frame returns or an error occurs
func (i *Interpreter) Run() error {
	for {
		halted, err := i.Step()
		if err != nil {
			return err
		}

		if halted {
			return nil
		}
	}
}

// Step executes a single instruction, returning (halted, error)
func (i *Interpreter) Step() (bool, error) {
	if i.frameCount == 0 {
		return true, nil
	}

	if i.maxSteps > 0 && i.steps >= i.maxSteps {
		return false, i.runtimeErrorCause(ErrMaxStepsExceeded, "Maximum steps exceeded.")
	}

	halted, err := i.step()
	i.steps++

	return halted, err
}

// Global returns the value bound to a global name
func (i *Interpreter) Global(name string) (value.Value, bool) {
	ref, ok := i.heap.FindString(name)
	if !ok {
		return value.Nil(), false
	}
	return i.globals.Get(ref, i.heap.AsString(ref).Hash)
}

// DefineNative binds a host function to a global name
func (i *Interpreter) DefineNative(name string, fn heap.NativeFn) {
	// both objects stay on the stack until the table holds them
	i.push(value.Object(i.heap.CopyString(name)))
	i.push(value.Object(i.heap.NewNative(name, fn)))

	key := i.peek(1).AsRef()
	s := i.heap.AsString(key)
	i.globals.Set(key, s.Hash, s.Chars, i.peek(0))

	i.pop()
	i.pop()
}

// Free releases every object. The interpreter must not be used afterwards.
func (i *Interpreter) Free() {
	i.resetStack()
	i.globals = table.New()
	i.heap.RemoveRoots(i)
	i.heap.FreeAll()
	i.logger.Debug("interpreter freed")
}

// MarkRoots marks everything the running program can reach directly
func (i *Interpreter) MarkRoots(h *heap.Heap) {
	for slot := 0; slot < i.stackTop; slot++ {
		h.MarkValue(i.stack[slot])
	}

	for k := 0; k < i.frameCount; k++ {
		h.MarkRef(i.frames[k].closure)
	}

	for up := i.openUpvalues; !up.IsNull(); up = h.AsUpvalue(up).Next {
		h.MarkRef(up)
	}

	h.MarkTable(i.globals)
}

func (i *Interpreter) clock([]value.Value) value.Value {
	return value.Number(time.Since(i.start).Seconds())
}

func (i *Interpreter) push(v value.Value) {
	i.stack[i.stackTop] = v
	i.stackTop++
}

func (i *Interpreter) pop() value.Value {
	i.stackTop--
	return i.stack[i.stackTop]
}

func (i *Interpreter) peek(distance int) value.Value {
	return i.stack[i.stackTop-1-distance]
}

var (
	ErrMaxStepsExceeded = errors.New("maximum steps exceeded")
)
