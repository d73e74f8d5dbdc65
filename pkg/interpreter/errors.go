package interpreter

import (
	"fmt"
	"strings"

	"loxvm/pkg/color"
	"loxvm/pkg/parser"
)

// FrameInfo locates one active call at the time of a runtime error
type FrameInfo struct {
	Function string // empty for the top-level script
	Line     int
}

func (f FrameInfo) String() string {
	if f.Function == "" {
		return fmt.Sprintf("[line %d] in script", f.Line)
	}
	return fmt.Sprintf("[line %d] in %s()", f.Line, f.Function)
}

// RuntimeError aborts an Interpret call. Trace lists the call stack,
// innermost frame first.
type RuntimeError struct {
	Message string
	Trace   []FrameInfo
	Cause   error
}

func (e *RuntimeError) Error() string {
	lines := make([]string, 0, len(e.Trace)+1)
	lines = append(lines, e.Message)
	for _, f := range e.Trace {
		lines = append(lines, f.String())
	}
	return strings.Join(lines, "\n")
}

// Unwrap exposes the original error, if any.
func (e *RuntimeError) Unwrap() error {
	return e.Cause
}

func (i *Interpreter) runtimeError(format string, args ...any) error {
	return i.runtimeErrorCause(nil, format, args...)
}

// runtimeErrorCause builds a RuntimeError carrying a backtrace of the frames
// that are active right now.
func (i *Interpreter) runtimeErrorCause(cause error, format string, args ...any) error {
	err := &RuntimeError{
		Message: fmt.Sprintf(format, args...),
		Trace:   make([]FrameInfo, 0, i.frameCount),
		Cause:   cause,
	}

	for k := i.frameCount - 1; k >= 0; k-- {
		frame := &i.frames[k]

		info := FrameInfo{Line: frame.line()}
		if fn := frame.function; !fn.Name.IsNull() {
			info.Function = i.heap.AsString(fn.Name).Chars
		}
		err.Trace = append(err.Trace, info)
	}

	return err
}

func (i *Interpreter) reportCompileError(err *parser.CompileError) {
	for _, d := range err.Diagnostics {
		if !i.color {
			fmt.Fprintln(i.errOut, d.String())
			continue
		}

		fmt.Fprintf(i.errOut, "%s %s%s: %s\n", color.Line(d.Line), color.Error("Error"), d.Where, d.Message)
	}
}

func (i *Interpreter) reportRuntimeError(err *RuntimeError) {
	if !i.color {
		fmt.Fprintln(i.errOut, err.Error())
		return
	}

	fmt.Fprintln(i.errOut, color.Message(err.Message))
	for _, f := range err.Trace {
		fmt.Fprintln(i.errOut, color.Trace(f.String()))
	}
}
