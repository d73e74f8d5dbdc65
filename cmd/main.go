package main

import (
	"flag"
	"fmt"
	"os"

	"loxvm/internal/config"
	"loxvm/internal/logger"
	"loxvm/internal/runner"
	"loxvm/pkg/color"

	"github.com/charmbracelet/log"
)

// Main entry point for loxvm. With a file argument the script is run,
// without one a REPL reads from stdin.
func main() {
	options := runner.Runner{}

	flag.BoolVar(&options.Help, "h", false, "Show help")
	flag.BoolVar(&options.Verbose, "v", false, "Verbose mode (debug logs and bytecode listings)")
	flag.BoolVar(&options.NoColor, "n", false, "No color")
	flag.BoolVar(&options.Trace, "t", false, "Trace execution")
	flag.BoolVar(&options.StressGC, "s", false, "Collect garbage on every allocation")
	flag.StringVar(&options.ConfigFile, "c", "", "Config file (default: loxvm.toml or loxvm.yaml in the working directory)")
	flag.IntVar(&options.MaxSteps, "max-steps", 0, "Maximum instructions per run (0 = unlimited)")

	flag.Parse()
	args := flag.Args()

	if options.Help {
		fmt.Printf("Usage: %s [options] [script]\n", os.Args[0])
		fmt.Println("Options:")
		flag.PrintDefaults()
		return
	}

	explicit := map[string]bool{}
	flag.Visit(func(f *flag.Flag) { explicit[f.Name] = true })

	cfg, err := loadConfig(options.ConfigFile)
	if err != nil {
		logger.Init(options.Verbose, options.NoColor)
		log.Error("Invalid configuration", "error", err)
		os.Exit(runner.ExitUsage)
	}
	options.ApplyConfig(cfg, explicit)

	logger.Init(options.Verbose, options.NoColor)
	if options.NoColor {
		color.EnableColor(false)
	}

	switch len(args) {
	case 0:
		err = options.REPL(os.Stdin)
	case 1:
		err = options.RunFile(args[0])
	default:
		fmt.Fprintf(os.Stderr, "Usage: %s [options] [script]\n", os.Args[0])
		os.Exit(runner.ExitUsage)
	}

	if code := runner.ExitCode(err); code != runner.ExitOK {
		if code == runner.ExitIO || code == runner.ExitInternal {
			log.Error("Run failed", "error", err)
		}
		os.Exit(code)
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.Load(path)
	}

	dir, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	return config.LoadDefault(dir)
}
