package interpreter_test

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"testing"

	"loxvm/pkg/heap"
	"loxvm/pkg/interpreter"
	"loxvm/pkg/parser"
	"loxvm/pkg/value"
)

func newInterpreter(stdout, stderr *bytes.Buffer, opts ...interpreter.Option) *interpreter.Interpreter {
	opts = append([]interpreter.Option{
		interpreter.WithWriter(stdout),
		interpreter.WithErrWriter(stderr),
	}, opts...)
	return interpreter.NewInterpreter(opts...)
}

func run(t *testing.T, source string, opts ...interpreter.Option) (string, string, interpreter.InterpretResult) {
	t.Helper()

	var stdout, stderr bytes.Buffer
	it := newInterpreter(&stdout, &stderr, opts...)
	defer it.Free()

	result, _ := it.Interpret(source)
	return stdout.String(), stderr.String(), result
}

var programs = []struct {
	name     string
	source   string
	expected string
}{
	{"addition", "print 1 + 2;", "3\n"},
	{"precedence", "print 2 + 3 * 4;", "14\n"},
	{"unary minus", "print -2 + 3; print -2 * 3;", "1\n-6\n"},
	{"grouping", "print (1 + 2) * 3;", "9\n"},
	{"left associative", "print 10 - 4 - 3; print 64 / 4 / 2;", "3\n8\n"},
	{"fractions", "print 10 / 4; print 100 / 3; print 0.1 + 0.2;", "2.5\n33.3333\n0.3\n"},
	{"large numbers", "print 123456; print 1000000; print 1234567;", "123456\n1e+06\n1.23457e+06\n"},
	{"number literal beyond float64", "print " + strings.Repeat("9", 400) + "; print -" + strings.Repeat("9", 400) + ";", "inf\n-inf\n"},
	{"division by zero", "print 1 / 0; print -1 / 0; print 0 / 0;", "inf\n-inf\nnan\n"},
	{"nan is not equal to itself", "var n = 0 / 0; print n == n; print n != n;", "false\ntrue\n"},
	{"concatenation", `print "a" + "b";`, "ab\n"},
	{"string equality", `print "ab" == "a" + "b"; print "a" == "b"; print "1" == 1;`, "true\nfalse\nfalse\n"},
	{"equality across kinds", "print nil == nil; print nil == false; print true == true; print 0 == false;", "true\nfalse\ntrue\nfalse\n"},
	{"comparison", "print 1 < 2; print 2 <= 2; print 3 > 4; print 4 >= 5;", "true\ntrue\nfalse\nfalse\n"},
	{"truthiness", `if (0) print "zero"; if ("") print "empty"; if (nil) print "nil"; print !nil; print !0;`, "zero\nempty\ntrue\nfalse\n"},
	{"logical operators", `print nil or "x"; print false and 1; print 1 and 2; print false or false;`, "x\nfalse\n2\nfalse\n"},
	{"global variables", "var a = 1; var b; print b; a = a + 1; print a;", "nil\n2\n"},
	{"shadowing", "var a = 1; { var a = 2; print a; } print a;", "2\n1\n"},
	{"nested shadowing", `{ var a = "outer"; { var a = "inner"; print a; } print a; }`, "inner\nouter\n"},
	{"assignment is an expression", "var a; var b; a = b = 3; print a + b;", "6\n"},
	{"if else", `if (1 > 2) print "then"; else print "else";`, "else\n"},
	{"while", "var i = 0; while (i < 3) { print i; i = i + 1; }", "0\n1\n2\n"},
	{"for", "for (var i = 0; i < 3; i = i + 1) print i;", "0\n1\n2\n"},
	{"for without clauses", "fun f() { var i = 0; for (;;) { if (i == 2) return i; print i; i = i + 1; } } print f();", "0\n1\n2\n"},
	{"fibonacci", "fun f(n) { if (n < 2) return n; return f(n-1) + f(n-2); } print f(10);", "55\n"},
	{"implicit return", "fun f() {} print f();", "nil\n"},
	{"function values", "fun f() {} print f; print clock;", "<fn f>\n<native fn>\n"},
	{"native call", "print clock() >= 0;", "true\n"},
	{
		"counters keep separate state",
		`fun makeCounter() {
  var count = 0;
  fun inc() { count = count + 1; return count; }
  return inc;
}
var a = makeCounter();
var b = makeCounter();
print a();
print a();
print b();`,
		"1\n2\n1\n",
	},
	{
		"closures share a captured variable",
		`var get; var set;
fun pair() {
  var v = "initial";
  fun g() { return v; }
  fun s(x) { v = x; }
  get = g;
  set = s;
}
pair();
set("updated");
print get();`,
		"updated\n",
	},
	{
		"block locals are closed on exit",
		`var f;
{
  var local = "block";
  fun g() { return local; }
  f = g;
}
print f();`,
		"block\n",
	},
	{
		"nested closures",
		`fun outer() {
  var x = "x";
  fun middle() {
    fun inner() { return x + "!"; }
    return inner;
  }
  return middle;
}
print outer()()();`,
		"x!\n",
	},
	{
		"closure sees later assignments",
		`fun f() {
  var a = 1;
  fun get() { return a; }
  a = 2;
  return get;
}
print f()();`,
		"2\n",
	},
}

func TestPrograms(t *testing.T) {
	for _, test := range programs {
		t.Run(test.name, func(t *testing.T) {
			stdout, stderr, result := run(t, test.source)
			if result != interpreter.InterpretOK {
				t.Fatalf("expected ok, got %v:\n%s", result, stderr)
			}
			if stdout != test.expected {
				t.Errorf("expected output %q, got %q", test.expected, stdout)
			}
		})
	}
}

func TestProgramsUnderStressGC(t *testing.T) {
	for _, test := range programs {
		t.Run(test.name, func(t *testing.T) {
			h := heap.New(heap.WithStressGC(true))
			stdout, stderr, result := run(t, test.source, interpreter.WithHeap(h))
			if result != interpreter.InterpretOK {
				t.Fatalf("expected ok, got %v:\n%s", result, stderr)
			}
			if stdout != test.expected {
				t.Errorf("expected output %q, got %q", test.expected, stdout)
			}
		})
	}
}

func TestRuntimeErrors(t *testing.T) {
	tests := []struct {
		name   string
		source string
		stdout string
		stderr string
	}{
		{"negate a string", `print -"a";`, "", "Operand must be a number.\n[line 1] in script\n"},
		{"add mixed", `print 1 + "a";`, "", "Operands must be two numbers or two strings.\n[line 1] in script\n"},
		{"compare mixed", `print 1 < "a";`, "", "Operands must be numbers.\n[line 1] in script\n"},
		{"undefined read", "print x;", "", "Undefined variable 'x'.\n[line 1] in script\n"},
		{"undefined write", "x = 1;", "", "Undefined variable 'x'.\n[line 1] in script\n"},
		{"wrong arity", "fun f(a) { print a; } f();", "", "Expected 1 arguments but got 0.\n[line 1] in script\n"},
		{"call a number", "var a = 1; a();", "", "Can only call functions.\n[line 1] in script\n"},
		{"call a string", `"f"();`, "", "Can only call functions.\n[line 1] in script\n"},
		{"output before the error stays", "print 1;\nprint nil + 1;", "1\n", "Operands must be two numbers or two strings.\n[line 2] in script\n"},
		{
			"backtrace",
			"fun a() { b(); }\nfun b() { c(); }\nfun c() { nil + 1; }\na();",
			"",
			"Operands must be two numbers or two strings.\n[line 3] in c()\n[line 2] in b()\n[line 1] in a()\n[line 4] in script\n",
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			stdout, stderr, result := run(t, test.source)
			if result != interpreter.InterpretRuntimeError {
				t.Fatalf("expected a runtime error, got %v", result)
			}
			if stdout != test.stdout {
				t.Errorf("expected output %q, got %q", test.stdout, stdout)
			}
			if stderr != test.stderr {
				t.Errorf("expected diagnostics %q, got %q", test.stderr, stderr)
			}
		})
	}
}

func TestRuntimeErrorValue(t *testing.T) {
	var stdout, stderr bytes.Buffer
	it := newInterpreter(&stdout, &stderr)
	defer it.Free()

	_, err := it.Interpret("fun f() { f(); }\nf();")

	var rerr *interpreter.RuntimeError
	if !errors.As(err, &rerr) {
		t.Fatalf("expected *RuntimeError, got %T", err)
	}
	if rerr.Message != "Stack overflow." {
		t.Errorf("expected stack overflow, got %q", rerr.Message)
	}
	if len(rerr.Trace) != interpreter.FramesMax {
		t.Errorf("expected %d frames in the trace, got %d", interpreter.FramesMax, len(rerr.Trace))
	}
	if first := rerr.Trace[0]; first.Function != "f" || first.Line != 1 {
		t.Errorf("unexpected innermost frame %+v", first)
	}
	if last := rerr.Trace[len(rerr.Trace)-1]; last.String() != "[line 2] in script" {
		t.Errorf("unexpected outermost frame %q", last.String())
	}
}

func TestValueStackOverflow(t *testing.T) {
	var sb strings.Builder
	sb.WriteString("fun f(n) {\n")
	for k := 0; k < 250; k++ {
		fmt.Fprintf(&sb, "  var a%d;\n", k)
	}
	// every frame keeps 20 operands pending while the next call runs
	sb.WriteString("  return " + strings.Repeat("1 + (", 20) + "f(n - 1)" + strings.Repeat(")", 20) + ";\n")
	sb.WriteString("}\nf(1000);\n")

	var stdout, stderr bytes.Buffer
	it := newInterpreter(&stdout, &stderr)
	defer it.Free()

	_, err := it.Interpret(sb.String())

	var rerr *interpreter.RuntimeError
	if !errors.As(err, &rerr) {
		t.Fatalf("expected *RuntimeError, got %T (%v)", err, err)
	}
	if rerr.Message != "Stack overflow." {
		t.Errorf("expected stack overflow, got %q", rerr.Message)
	}
	if len(rerr.Trace) >= interpreter.FramesMax {
		t.Errorf("expected the value stack to run out before the frames, got %d frames", len(rerr.Trace))
	}
	if rerr.Trace[0].Function != "f" {
		t.Errorf("unexpected innermost frame %+v", rerr.Trace[0])
	}

	if _, err := it.Interpret("print 1;"); err != nil {
		t.Fatalf("unexpected error after reset: %v", err)
	}
	if stdout.String() != "1\n" {
		t.Errorf("unexpected output %q", stdout.String())
	}
}

func TestCompileErrorIsReported(t *testing.T) {
	var stdout, stderr bytes.Buffer
	it := newInterpreter(&stdout, &stderr)
	defer it.Free()

	result, err := it.Interpret("print 1;\nprint ;")
	if result != interpreter.InterpretCompileError {
		t.Fatalf("expected a compile error, got %v", result)
	}

	var cerr *parser.CompileError
	if !errors.As(err, &cerr) {
		t.Fatalf("expected *parser.CompileError, got %T", err)
	}
	if stdout.Len() != 0 {
		t.Errorf("nothing may run after a compile error, got %q", stdout.String())
	}
	if expected := "[line 2] Error at ';': Expect expression.\n"; stderr.String() != expected {
		t.Errorf("expected %q, got %q", expected, stderr.String())
	}
}

func TestReuseAfterErrors(t *testing.T) {
	var stdout, stderr bytes.Buffer
	it := newInterpreter(&stdout, &stderr)
	defer it.Free()

	steps := []struct {
		source string
		result interpreter.InterpretResult
	}{
		{"var a = 1;", interpreter.InterpretOK},
		{"print b;", interpreter.InterpretRuntimeError},
		{"print a;", interpreter.InterpretOK},
		{"print ;", interpreter.InterpretCompileError},
		{"fun f() { return a + nil; } f();", interpreter.InterpretRuntimeError},
		{"a = a + 1; print a;", interpreter.InterpretOK},
	}

	for _, step := range steps {
		if result, _ := it.Interpret(step.source); result != step.result {
			t.Fatalf("%q: expected %v, got %v\n%s", step.source, step.result, result, stderr.String())
		}
	}

	if stdout.String() != "1\n2\n" {
		t.Errorf("expected globals to persist across calls, got %q", stdout.String())
	}
}

func TestCapturedVariablesSurviveErrors(t *testing.T) {
	var stdout, stderr bytes.Buffer
	it := newInterpreter(&stdout, &stderr)
	defer it.Free()

	_, err := it.Interpret(`
var get;
fun make() {
  var x = "captured";
  fun g() { return x; }
  get = g;
  nil + 1;
}
make();`)
	if err == nil {
		t.Fatalf("expected a runtime error")
	}

	// overwrite the stack region make() used
	if _, err := it.Interpret(`var a = "a"; var b = "b"; print get();`); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stdout.String() != "captured\n" {
		t.Errorf("expected the closed value, got %q", stdout.String())
	}
}

func TestInterning(t *testing.T) {
	var stdout, stderr bytes.Buffer
	it := newInterpreter(&stdout, &stderr)
	defer it.Free()

	if _, err := it.Interpret(`var a = "hello"; var b = "hel" + "lo"; var c = "hello"; var d = "world";`); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	get := func(name string) value.Value {
		v, ok := it.Global(name)
		if !ok {
			t.Fatalf("global %s not defined", name)
		}
		return v
	}

	a, b, c, d := get("a"), get("b"), get("c"), get("d")
	if a.AsRef() != b.AsRef() || a.AsRef() != c.AsRef() {
		t.Errorf("expected one object for equal strings: %v %v %v", a.AsRef(), b.AsRef(), c.AsRef())
	}
	if value.Equal(a, d) {
		t.Errorf("different strings must not be equal")
	}
	if it.Format(b) != "hello" {
		t.Errorf("expected hello, got %q", it.Format(b))
	}

	if _, ok := it.Global("missing"); ok {
		t.Errorf("undefined global reported as defined")
	}
}

func TestUndefinedAssignmentLeavesNoBinding(t *testing.T) {
	var stdout, stderr bytes.Buffer
	it := newInterpreter(&stdout, &stderr)
	defer it.Free()

	it.Interpret("x = 1;")
	if _, ok := it.Global("x"); ok {
		t.Errorf("a failed assignment must not define the global")
	}
}

func TestReachableObjectsSurviveCollections(t *testing.T) {
	var stdout, stderr bytes.Buffer
	it := newInterpreter(&stdout, &stderr)
	defer it.Free()

	_, err := it.Interpret(`
fun make() {
  var s = "kept" + "alive";
  fun get() { return s; }
  return get;
}
var g = make();`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for n := 0; n < 10; n++ {
		it.Heap().Collect()
	}

	if _, err := it.Interpret("print g();"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stdout.String() != "keptalive\n" {
		t.Errorf("expected the captured string, got %q", stdout.String())
	}
}

func TestHeapDoesNotGrowAcrossRuns(t *testing.T) {
	var stdout, stderr bytes.Buffer
	it := newInterpreter(&stdout, &stderr)
	defer it.Free()

	source := `
fun f(x) {
  var s = "tmp" + "value";
  fun g() { return s + x; }
  return g;
}
print f("!")();`

	var live []int
	for n := 0; n < 10; n++ {
		if _, err := it.Interpret(source); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		it.Heap().Collect()
		live = append(live, it.Heap().Stats().Objects)
	}

	for n, objects := range live {
		if objects != live[0] {
			t.Fatalf("run %d left %d objects, first run left %d", n, objects, live[0])
		}
	}

	if strings.Count(stdout.String(), "tmpvalue!\n") != 10 {
		t.Errorf("unexpected output %q", stdout.String())
	}
}

func TestDefineNative(t *testing.T) {
	var stdout, stderr bytes.Buffer
	it := newInterpreter(&stdout, &stderr)
	defer it.Free()

	it.DefineNative("sum", func(args []value.Value) value.Value {
		total := 0.0
		for _, a := range args {
			total += a.AsNumber()
		}
		return value.Number(total)
	})

	if _, err := it.Interpret("print sum(1, 2, 3) * 2; print sum();"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stdout.String() != "12\n0\n" {
		t.Errorf("unexpected output %q", stdout.String())
	}
}

func TestMaxSteps(t *testing.T) {
	var stdout, stderr bytes.Buffer
	it := newInterpreter(&stdout, &stderr, interpreter.WithMaxSteps(1000))
	defer it.Free()

	result, err := it.Interpret("while (true) {}")
	if result != interpreter.InterpretRuntimeError {
		t.Fatalf("expected a runtime error, got %v", result)
	}
	if !errors.Is(err, interpreter.ErrMaxStepsExceeded) {
		t.Errorf("expected ErrMaxStepsExceeded, got %v", err)
	}

	// the budget applies to each call separately
	if _, err := it.Interpret("print 1;"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestTraceAndListing(t *testing.T) {
	var stdout, stderr, trace, listing bytes.Buffer
	it := newInterpreter(&stdout, &stderr, interpreter.WithTrace(&trace), interpreter.WithListing(&listing))
	defer it.Free()

	if _, err := it.Interpret("print 1 + 2;"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !strings.Contains(listing.String(), "== <script> ==") {
		t.Errorf("expected a listing of the script, got:\n%s", listing.String())
	}
	for _, want := range []string{"OP_CONSTANT", "OP_ADD", "[ 1 ][ 2 ]", "OP_RETURN"} {
		if !strings.Contains(trace.String(), want) {
			t.Errorf("expected %q in the trace:\n%s", want, trace.String())
		}
	}
}

func TestInstancesAreIndependent(t *testing.T) {
	var out1, out2, stderr bytes.Buffer
	a := newInterpreter(&out1, &stderr)
	b := newInterpreter(&out2, &stderr)
	defer a.Free()
	defer b.Free()

	if a.ID() == b.ID() {
		t.Errorf("expected distinct ids")
	}
	if a.Output() != &out1 {
		t.Errorf("expected the configured writer")
	}

	a.Interpret(`var x = "a";`)
	b.Interpret(`var x = "b";`)
	a.Interpret("print x;")
	b.Interpret("print x;")

	if out1.String() != "a\n" || out2.String() != "b\n" {
		t.Errorf("globals leaked between interpreters: %q %q", out1.String(), out2.String())
	}
}

func TestFreeReleasesEverything(t *testing.T) {
	var stdout, stderr bytes.Buffer
	it := newInterpreter(&stdout, &stderr)

	it.Interpret(`var s = "a" + "b"; fun f() {}`)
	h := it.Heap()
	it.Free()

	if got := h.Stats(); got.Objects != 0 || got.BytesAllocated != 0 {
		t.Errorf("expected an empty heap, got %+v", got)
	}
}
