// Package output prints styled CLI messages.
package output

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"
)

var (
	// Stdout receives regular output, Stderr receives errors.
	Stdout io.Writer = os.Stdout
	Stderr io.Writer = os.Stderr
)

var (
	colorSuccess = lipgloss.Color("#10B981")
	colorWarning = lipgloss.Color("#F59E0B")
	colorError   = lipgloss.Color("#EF4444")
	colorInfo    = lipgloss.Color("#3B82F6")
	colorMuted   = lipgloss.Color("#6B7280")
	colorPrimary = lipgloss.Color("#7C3AED")

	successStyle = lipgloss.NewStyle().Foreground(colorSuccess).Bold(true)
	warningStyle = lipgloss.NewStyle().Foreground(colorWarning).Bold(true)
	errorStyle   = lipgloss.NewStyle().Foreground(colorError).Bold(true)
	infoStyle    = lipgloss.NewStyle().Foreground(colorInfo)
	mutedStyle   = lipgloss.NewStyle().Foreground(colorMuted)
	primaryStyle = lipgloss.NewStyle().Foreground(colorPrimary).Bold(true)
	keyStyle     = lipgloss.NewStyle().Foreground(colorMuted).Width(12)
)

// Success prints a success message
func Success(format string, args ...any) {
	line(Stdout, successStyle.Render("✓ "), format, args...)
}

// Warning prints a warning message
func Warning(format string, args ...any) {
	line(Stdout, warningStyle.Render("⚠ "), format, args...)
}

// Error prints an error message to Stderr
func Error(format string, args ...any) {
	line(Stderr, errorStyle.Render("✗ "), format, args...)
}

// Info prints an info message
func Info(format string, args ...any) {
	line(Stdout, infoStyle.Render("ℹ "), format, args...)
}

// Muted prints a muted message
func Muted(format string, args ...any) {
	_, _ = fmt.Fprintln(Stdout, mutedStyle.Render(fmt.Sprintf(format, args...)))
}

// Primary prints a primary message
func Primary(format string, args ...any) {
	_, _ = fmt.Fprintln(Stdout, primaryStyle.Render(fmt.Sprintf(format, args...)))
}

// Section prints a section header
func Section(title string) {
	_, _ = fmt.Fprintln(Stdout)
	_, _ = fmt.Fprintln(Stdout, primaryStyle.Render(title))
	_, _ = fmt.Fprintln(Stdout, mutedStyle.Render(strings.Repeat("═", lipgloss.Width(title))))
	_, _ = fmt.Fprintln(Stdout)
}

// Field prints an aligned key/value pair.
func Field(key string, value any) {
	_, _ = fmt.Fprintf(Stdout, "  %s %v\n", keyStyle.Render(key), value)
}

// StatusIcon returns a colored icon for a migration or transfer status.
func StatusIcon(status string) string {
	switch status {
	case "applied", "completed", "active":
		return successStyle.Render("✓")
	case "pending":
		return warningStyle.Render("○")
	case "failed":
		return errorStyle.Render("✗")
	case "running":
		return infoStyle.Render("◉")
	default:
		return mutedStyle.Render("•")
	}
}

// Amount renders amount with two decimals, red and negative when outgoing.
func Amount(amount decimal.Decimal) string {
	text := amount.StringFixed(2)
	if amount.IsNegative() {
		return errorStyle.Render(text)
	}
	return successStyle.Render("+" + text)
}

func line(w io.Writer, icon, format string, args ...any) {
	_, _ = fmt.Fprint(w, icon)
	_, _ = fmt.Fprintf(w, format+"\n", args...)
}
