// Package logging provides the log sink used by all scanners. Components
// receive a Logger rather than reaching into process-wide state, so tests
// can pass a silent sink and the CLI can control styling in one place.
package logging

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
)

// Logger is the sink interface every scanner accepts.
type Logger interface {
	Info(format string, args ...any)
	Success(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
	// Debug is only emitted when the sink is verbose.
	Debug(format string, args ...any)
}

var (
	infoTag    = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Render("[INF]")
	successTag = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Render("[INF]")
	warnTag    = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Render("[WRN]")
	errorTag   = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Render("[ERR]")
	debugTag   = lipgloss.NewStyle().Foreground(lipgloss.Color("13")).Render("[DBG]")
)

// Terminal writes tagged, colored lines to a pair of writers.
type Terminal struct {
	Out     io.Writer
	Err     io.Writer
	Verbose bool
}

// NewTerminal creates a Terminal logger writing info to out and errors to errw.
func NewTerminal(out, errw io.Writer, verbose bool) *Terminal {
	return &Terminal{Out: out, Err: errw, Verbose: verbose}
}

func (t *Terminal) Info(format string, args ...any) {
	fmt.Fprintf(t.Out, "%s %s\n", infoTag, fmt.Sprintf(format, args...))
}

func (t *Terminal) Success(format string, args ...any) {
	fmt.Fprintf(t.Out, "%s %s\n", successTag, fmt.Sprintf(format, args...))
}

func (t *Terminal) Warn(format string, args ...any) {
	fmt.Fprintf(t.Out, "%s %s\n", warnTag, fmt.Sprintf(format, args...))
}

func (t *Terminal) Error(format string, args ...any) {
	fmt.Fprintf(t.Err, "%s %s\n", errorTag, fmt.Sprintf(format, args...))
}

func (t *Terminal) Debug(format string, args ...any) {
	if !t.Verbose {
		return
	}
	fmt.Fprintf(t.Out, "%s %s\n", debugTag, fmt.Sprintf(format, args...))
}

// Nop discards everything. Used in tests and JSON output mode, where the
// report itself is the only permitted stdout content.
type Nop struct{}

func (Nop) Info(string, ...any)    {}
func (Nop) Success(string, ...any) {}
func (Nop) Warn(string, ...any)    {}
func (Nop) Error(string, ...any)   {}
func (Nop) Debug(string, ...any)   {}
