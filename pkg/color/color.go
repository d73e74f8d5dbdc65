package color

import (
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
	"github.com/muesli/termenv"
)

// Diagnostics go to stderr, so that is the stream whose capabilities matter.
var renderer = lipgloss.NewRenderer(os.Stderr)

var (
	errorStyle    = renderer.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	messageStyle  = renderer.NewStyle().Foreground(lipgloss.Color("11"))
	positionStyle = renderer.NewStyle().Foreground(lipgloss.Color("14"))
	traceStyle    = renderer.NewStyle().Foreground(lipgloss.Color("8"))
	promptStyle   = renderer.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
)

var colorEnabled = true

func init() {
	if os.Getenv("NO_COLOR") != "" || !isTerminal(os.Stderr) {
		colorEnabled = false
	}
	applyProfile()
}

func isTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func applyProfile() {
	if colorEnabled {
		renderer.SetColorProfile(termenv.ANSI256)
	} else {
		renderer.SetColorProfile(termenv.Ascii)
	}
}

func EnableColor(enable bool) {
	colorEnabled = enable
	applyProfile()
}

func IsColorEnabled() bool {
	return colorEnabled
}

func render(style lipgloss.Style, text string) string {
	if !colorEnabled {
		return text
	}
	return style.Render(text)
}

// Error styles the "Error" tag of a diagnostic
func Error(text string) string {
	return render(errorStyle, text)
}

// Message styles the body of a runtime error
func Message(text string) string {
	return render(messageStyle, text)
}

// Line renders the "[line N]" tag every diagnostic starts with
func Line(line int) string {
	return render(positionStyle, fmt.Sprintf("[line %d]", line))
}

// Trace styles one backtrace entry
func Trace(text string) string {
	return render(traceStyle, text)
}

// Prompt styles the REPL prompt
func Prompt(text string) string {
	return render(promptStyle, text)
}
