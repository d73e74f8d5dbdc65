// Package runner is the host side of loxvm: it reads scripts, drives an
// interpreter and maps the outcome to a process exit status.
package runner

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"

	"loxvm/internal/config"
	"loxvm/pkg/color"
	"loxvm/pkg/heap"
	"loxvm/pkg/interpreter"
	"loxvm/pkg/parser"

	"github.com/charmbracelet/log"
	"github.com/mattn/go-isatty"
)

// Exit statuses, following the BSD sysexits convention
const (
	ExitOK       = 0
	ExitUsage    = 64
	ExitCompile  = 65
	ExitRuntime  = 70
	ExitIO       = 74
	ExitInternal = 1
)

var (
	ErrUsage = errors.New("usage error")
	ErrIO    = errors.New("io error")
)

type Runner struct {
	Help       bool   // Show help message
	Verbose    bool   // Debug logs and bytecode listings
	NoColor    bool   // Disable colored diagnostics
	Trace      bool   // Trace every executed instruction
	StressGC   bool   // Collect on every allocation
	MaxSteps   int    // Instruction budget per Interpret (0 = unlimited)
	ConfigFile string // Path to a loxvm.toml / loxvm.yaml file

	GrowFactor       int // Heap growth factor (0 = default)
	InitialThreshold int // First collection threshold in bytes (0 = default)

	Stdout io.Writer
	Stderr io.Writer
	Logger *log.Logger
}

// ApplyConfig copies settings from cfg. Fields named in explicit were set on
// the command line and keep their current value.
func (r *Runner) ApplyConfig(cfg *config.Config, explicit map[string]bool) {
	if !explicit["v"] && cfg.Log.Verbose {
		r.Verbose = true
	}
	if !explicit["n"] && cfg.Log.NoColor {
		r.NoColor = true
	}
	if !explicit["s"] && cfg.GC.Stress {
		r.StressGC = true
	}
	if !explicit["max-steps"] && cfg.VM.MaxSteps > 0 {
		r.MaxSteps = cfg.VM.MaxSteps
	}
	if cfg.GC.GrowFactor > 0 {
		r.GrowFactor = cfg.GC.GrowFactor
	}
	if n := cfg.InitialThresholdBytes(); n > 0 {
		r.InitialThreshold = n
	}
}

// NewInterpreter builds an interpreter configured from the runner's settings
func (r *Runner) NewInterpreter() *interpreter.Interpreter {
	logger := r.logger()

	h := heap.New(
		heap.WithStressGC(r.StressGC),
		heap.WithGrowFactor(r.GrowFactor),
		heap.WithInitialThreshold(r.InitialThreshold),
		heap.WithLogger(logger),
	)

	opts := []interpreter.Option{
		interpreter.WithHeap(h),
		interpreter.WithWriter(r.stdout()),
		interpreter.WithErrWriter(r.stderr()),
		interpreter.WithMaxSteps(r.MaxSteps),
		interpreter.WithColor(!r.NoColor && color.IsColorEnabled()),
		interpreter.WithLogger(logger),
	}
	if r.Verbose {
		opts = append(opts, interpreter.WithListing(r.stderr()))
	}
	if r.Trace {
		opts = append(opts, interpreter.WithTrace(r.stderr()))
	}

	return interpreter.NewInterpreter(opts...)
}

// RunFile interprets the script at path
func (r *Runner) RunFile(path string) error {
	r.logger().Info("Processing file", "file", path)

	source, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("%w: could not read file %q: %w", ErrIO, path, err)
	}

	it := r.NewInterpreter()
	defer it.Free()

	_, err = it.Interpret(string(source))
	return err
}

// REPL interprets in line by line. One interpreter serves the whole session,
// so globals persist and errors only abort the line that caused them.
func (r *Runner) REPL(in io.Reader) error {
	it := r.NewInterpreter()
	defer it.Free()

	interactive := false
	if f, ok := in.(*os.File); ok {
		interactive = isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}

	scanner := bufio.NewScanner(in)
	for {
		if interactive {
			fmt.Fprint(r.stdout(), color.Prompt("> "))
		}

		if !scanner.Scan() {
			break
		}

		// diagnostics are already reported by the interpreter
		if _, err := it.Interpret(scanner.Text()); err != nil {
			r.logger().Debug("line failed", "error", err)
		}
	}

	if interactive {
		fmt.Fprintln(r.stdout())
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("%w: reading input: %w", ErrIO, err)
	}
	return nil
}

// ExitCode maps an error returned by RunFile or REPL to an exit status
func ExitCode(err error) int {
	var (
		cerr *parser.CompileError
		rerr *interpreter.RuntimeError
	)

	switch {
	case err == nil:
		return ExitOK
	case errors.As(err, &cerr):
		return ExitCompile
	case errors.As(err, &rerr):
		return ExitRuntime
	case errors.Is(err, ErrIO):
		return ExitIO
	case errors.Is(err, ErrUsage):
		return ExitUsage
	default:
		return ExitInternal
	}
}

func (r *Runner) stdout() io.Writer {
	if r.Stdout == nil {
		return os.Stdout
	}
	return r.Stdout
}

func (r *Runner) stderr() io.Writer {
	if r.Stderr == nil {
		return os.Stderr
	}
	return r.Stderr
}

func (r *Runner) logger() *log.Logger {
	if r.Logger == nil {
		return log.Default()
	}
	return r.Logger
}
