package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name     string
		path     string
		data     string
		expected Config
		bytes    int
	}{
		{
			name: "toml",
			path: "loxvm.toml",
			data: `
[gc]
stress = true
grow_factor = 4
initial_threshold = "1MiB"

[vm]
max_steps = 5000

[log]
verbose = true
no_color = true
`,
			expected: Config{
				GC:  GCConfig{Stress: true, GrowFactor: 4, InitialThreshold: "1MiB"},
				VM:  VMConfig{MaxSteps: 5000},
				Log: LogConfig{Verbose: true, NoColor: true},
			},
			bytes: 1 << 20,
		},
		{
			name: "yaml",
			path: "loxvm.yaml",
			data: `
gc:
  grow_factor: 3
  initial_threshold: 512 kB
vm:
  max_steps: 10
`,
			expected: Config{
				GC: GCConfig{GrowFactor: 3, InitialThreshold: "512 kB"},
				VM: VMConfig{MaxSteps: 10},
			},
			bytes: 512000,
		},
		{
			name:     "empty yml",
			path:     "settings.yml",
			data:     "",
			expected: Config{},
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			cfg, err := Parse([]byte(test.data), test.path)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if *cfg != test.expected {
				t.Errorf("expected %+v, got %+v", test.expected, *cfg)
			}
			if got := cfg.InitialThresholdBytes(); got != test.bytes {
				t.Errorf("expected threshold %d, got %d", test.bytes, got)
			}
		})
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		path string
		data string
		want string
	}{
		{"unknown extension", "loxvm.json", "{}", "unsupported format"},
		{"bad toml", "loxvm.toml", "[gc\nstress = ", "parsing loxvm.toml"},
		{"bad yaml", "loxvm.yaml", "gc: [", "parsing loxvm.yaml"},
		{"negative steps", "loxvm.toml", "[vm]\nmax_steps = -1", "vm.max_steps"},
		{"grow factor one", "loxvm.yaml", "gc:\n  grow_factor: 1", "gc.grow_factor"},
		{"bad threshold", "loxvm.toml", "[gc]\ninitial_threshold = \"lots\"", "gc.initial_threshold"},
		{"threshold beyond int", "loxvm.yaml", "gc:\n  initial_threshold: 9 EiB", "too large"},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := Parse([]byte(test.data), test.path)
			if err == nil {
				t.Fatalf("expected an error")
			}
			if !strings.Contains(err.Error(), test.want) {
				t.Errorf("expected %q in %q", test.want, err.Error())
			}
		})
	}
}

func TestLoadDefault(t *testing.T) {
	dir := t.TempDir()

	cfg, err := LoadDefault(dir)
	if err != nil {
		t.Fatalf("a missing config file must not be an error: %v", err)
	}
	if *cfg != (Config{}) {
		t.Errorf("expected an empty config, got %+v", *cfg)
	}

	if err := os.WriteFile(filepath.Join(dir, "loxvm.yaml"), []byte("vm:\n  max_steps: 7\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "loxvm.toml"), []byte("[vm]\nmax_steps = 3\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	path, err := Find(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if filepath.Base(path) != "loxvm.toml" {
		t.Errorf("expected loxvm.toml to win, got %s", path)
	}

	cfg, err = LoadDefault(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.VM.MaxSteps != 3 {
		t.Errorf("expected max_steps 3, got %d", cfg.VM.MaxSteps)
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	if err == nil || !strings.Contains(err.Error(), "reading config") {
		t.Errorf("expected a read error, got %v", err)
	}
}
