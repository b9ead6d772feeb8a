// Package util holds text helpers for rendering records in a terminal.
package util

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
)

// TruncateANSI cuts s to maxWidth visual columns, ending with "..." when
// something was removed. Escape sequences and wide characters are measured
// the way the terminal draws them. A maxWidth of zero or less disables
// truncation.
func TruncateANSI(s string, maxWidth int) string {
	if maxWidth <= 0 || lipgloss.Width(s) <= maxWidth {
		return s
	}
	if maxWidth <= 3 {
		return "..."[:maxWidth]
	}
	return ansi.Truncate(s, maxWidth, "...")
}

// SplitFirstLine returns the first line of s and the remaining lines, if any.
// A trailing carriage return on the first line is dropped.
func SplitFirstLine(s string) (first, rest string) {
	first, rest, _ = strings.Cut(s, "\n")
	return strings.TrimSuffix(first, "\r"), rest
}

// IndentLines prefixes every line of s with prefix. Empty input stays empty.
func IndentLines(s, prefix string) string {
	if s == "" {
		return ""
	}
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	for i, line := range lines {
		lines[i] = prefix + strings.TrimSuffix(line, "\r")
	}
	return strings.Join(lines, "\n")
}
