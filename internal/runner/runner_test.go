package runner

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"loxvm/internal/config"
)

func newRunner() (*Runner, *bytes.Buffer, *bytes.Buffer) {
	var stdout, stderr bytes.Buffer
	return &Runner{NoColor: true, Stdout: &stdout, Stderr: &stderr}, &stdout, &stderr
}

func writeScript(t *testing.T, source string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "script.lox")
	if err := os.WriteFile(path, []byte(source), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestRunFile(t *testing.T) {
	tests := []struct {
		name   string
		source string
		stdout string
		stderr string
		code   int
	}{
		{"ok", "fun f(n) { if (n < 2) return n; return f(n-1) + f(n-2); }\nprint f(10);", "55\n", "", ExitOK},
		{"compile error", "print 1;\nvar = 2;", "", "[line 2] Error at '=': Expect variable name.\n", ExitCompile},
		{"runtime error", "print 1;\nprint -nil;", "1\n", "Operand must be a number.\n[line 2] in script\n", ExitRuntime},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			r, stdout, stderr := newRunner()

			err := r.RunFile(writeScript(t, test.source))
			if code := ExitCode(err); code != test.code {
				t.Errorf("expected exit code %d, got %d (%v)", test.code, code, err)
			}
			if stdout.String() != test.stdout {
				t.Errorf("expected output %q, got %q", test.stdout, stdout.String())
			}
			if stderr.String() != test.stderr {
				t.Errorf("expected diagnostics %q, got %q", test.stderr, stderr.String())
			}
		})
	}
}

func TestRunFileMissing(t *testing.T) {
	r, _, _ := newRunner()

	err := r.RunFile(filepath.Join(t.TempDir(), "missing.lox"))
	if !errors.Is(err, ErrIO) {
		t.Fatalf("expected ErrIO, got %v", err)
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected the underlying error to be kept, got %v", err)
	}
	if code := ExitCode(err); code != ExitIO {
		t.Errorf("expected exit code %d, got %d", ExitIO, code)
	}
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		err  error
		code int
	}{
		{nil, ExitOK},
		{ErrUsage, ExitUsage},
		{fmt.Errorf("no input file: %w", ErrUsage), ExitUsage},
		{errors.New("boom"), ExitInternal},
	}

	for _, test := range tests {
		if code := ExitCode(test.err); code != test.code {
			t.Errorf("ExitCode(%v) = %d, expected %d", test.err, code, test.code)
		}
	}
}

func TestREPL(t *testing.T) {
	r, stdout, stderr := newRunner()

	input := strings.Join([]string{
		"var a = 1;",
		"print b;",
		"print a;",
		"var = ;",
		"fun inc() { a = a + 1; return a; }",
		"print inc();",
		"",
		"print inc() + inc();",
	}, "\n")

	if err := r.REPL(strings.NewReader(input)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if expected := "1\n2\n7\n"; stdout.String() != expected {
		t.Errorf("expected output %q, got %q", expected, stdout.String())
	}

	diagnostics := stderr.String()
	for _, want := range []string{"Undefined variable 'b'.", "Expect variable name."} {
		if !strings.Contains(diagnostics, want) {
			t.Errorf("expected %q in diagnostics %q", want, diagnostics)
		}
	}
	if strings.Contains(stdout.String(), ">") {
		t.Errorf("no prompt expected for non-terminal input, got %q", stdout.String())
	}
}

func TestMaxSteps(t *testing.T) {
	r, _, stderr := newRunner()
	r.MaxSteps = 100

	err := r.RunFile(writeScript(t, "while (true) {}"))
	if code := ExitCode(err); code != ExitRuntime {
		t.Errorf("expected exit code %d, got %d", ExitRuntime, code)
	}
	if !strings.HasPrefix(stderr.String(), "Maximum steps exceeded.") {
		t.Errorf("unexpected diagnostics %q", stderr.String())
	}
}

func TestVerboseAndTrace(t *testing.T) {
	r, stdout, stderr := newRunner()
	r.Verbose = true
	r.Trace = true
	r.StressGC = true

	if err := r.RunFile(writeScript(t, `print "a" + "b";`)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stdout.String() != "ab\n" {
		t.Errorf("unexpected output %q", stdout.String())
	}
	for _, want := range []string{"== <script> ==", "OP_ADD", "[ ab ]"} {
		if !strings.Contains(stderr.String(), want) {
			t.Errorf("expected %q in:\n%s", want, stderr.String())
		}
	}
}

func TestApplyConfig(t *testing.T) {
	cfg := &config.Config{
		GC:  config.GCConfig{Stress: true, GrowFactor: 3, InitialThreshold: "2KiB"},
		VM:  config.VMConfig{MaxSteps: 50},
		Log: config.LogConfig{Verbose: true, NoColor: true},
	}

	r := &Runner{MaxSteps: 9}
	r.ApplyConfig(cfg, map[string]bool{"max-steps": true})

	if !r.StressGC || !r.Verbose || !r.NoColor {
		t.Errorf("expected flags from the config, got %+v", r)
	}
	if r.MaxSteps != 9 {
		t.Errorf("an explicit flag must win, got max steps %d", r.MaxSteps)
	}
	if r.GrowFactor != 3 || r.InitialThreshold != 2048 {
		t.Errorf("unexpected gc settings %d %d", r.GrowFactor, r.InitialThreshold)
	}
}
