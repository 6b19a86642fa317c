// Package style renders the human-facing status line for a pack test run.
// Color is dropped when stderr is not a terminal.
package style

import (
	"fmt"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/pterm/pterm"
)

// Status classifies the outcome of a run for display purposes.
type Status string

const (
	StatusPassed  Status = "passed"  // Tests ran and passed
	StatusFailed  Status = "failed"  // Tests ran and failed
	StatusSkipped Status = "skipped" // Nothing to run (no tests directory)
	StatusError   Status = "error"   // Setup/installation failed before tests
)

// StatusStyle returns the appropriate pterm style for a status
func StatusStyle(status Status) *pterm.Style {
	switch status {
	case StatusPassed:
		return pterm.NewStyle(pterm.FgGreen, pterm.Bold)
	case StatusFailed:
		return pterm.NewStyle(pterm.FgRed, pterm.Bold)
	case StatusError:
		return pterm.NewStyle(pterm.BgRed, pterm.FgWhite)
	case StatusSkipped:
		return pterm.NewStyle(pterm.FgYellow)
	default:
		return pterm.NewStyle(pterm.FgGray)
	}
}

// Render formats a status label plus message, styled only on a terminal.
func Render(status Status, message string) string {
	label := string(status)
	if colorEnabled() {
		label = StatusStyle(status).Sprint(label)
	}
	return fmt.Sprintf("%s  %s", label, message)
}

// ResultLine renders the end-of-run summary for a pack.
func ResultLine(packName string, status Status, detail string) string {
	msg := packName
	if detail != "" {
		msg = fmt.Sprintf("%s (%s)", packName, detail)
	}
	return Render(status, msg)
}

func colorEnabled() bool {
	fd := os.Stderr.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
