package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	muted    = lipgloss.NewStyle().Foreground(lipgloss.Color("#6b7280"))
	dim      = lipgloss.NewStyle().Foreground(lipgloss.Color("#9ca3af"))
	bold     = lipgloss.NewStyle().Bold(true)
	success  = lipgloss.NewStyle().Foreground(lipgloss.Color("#16a34a"))
	warning  = lipgloss.NewStyle().Foreground(lipgloss.Color("#d97706"))
	errStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#dc2626"))

	summaryBox = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#6b7280")).
			Padding(0, 1)
)

func successMsg(format string, args ...any) {
	fmt.Println(success.Render("✓") + " " + fmt.Sprintf(format, args...))
}

func warnMsg(format string, args ...any) {
	fmt.Fprintln(os.Stderr, warning.Render("!")+" "+fmt.Sprintf(format, args...))
}

func errorMsg(format string, args ...any) {
	fmt.Fprintln(os.Stderr, errStyle.Render("✗")+" "+fmt.Sprintf(format, args...))
}

func header(title string) {
	fmt.Println(bold.Render(title))
}

// row renders a label/value pair with the label padded to width
func row(label string, width int, value any) string {
	return fmt.Sprintf("%s %v", muted.Render(fmt.Sprintf("%-*s", width, label)), value)
}

// truncate shortens s to maxLen runes, adding an ellipsis if needed
func truncate(s string, maxLen int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(r[:maxLen])
	}
	return string(r[:maxLen-3]) + "..."
}
