package cli

import (
	"fmt"
	"slices"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/bastiangx/henkan/pkg/engine"
)

var (
	promptStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("205")).Bold(true)
	rankStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	surfaceStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("75")).Bold(true)
	readingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("250"))
	detailStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	markStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

// formatCandidate renders one line of the candidate list.
func formatCandidate(rank int, c *engine.Candidate, showWeight, showWords bool) string {
	var b strings.Builder
	b.WriteString(rankStyle.Render(fmt.Sprintf("%2d.", rank)))
	b.WriteString(" ")
	b.WriteString(surfaceStyle.Render(c.Surface))
	b.WriteString(" ")
	b.WriteString(readingStyle.Render("(" + c.Reading + ")"))
	switch c.Incomplete {
	case engine.IncompleteLastWord:
		b.WriteString(markStyle.Render(" …"))
	case engine.IncompleteSecondToLastWord:
		b.WriteString(markStyle.Render(" ……"))
	}
	if showWeight {
		b.WriteString(detailStyle.Render(fmt.Sprintf("  w=%s %s", formatWithCommas(c.Weight), c.Kind)))
	}
	if showWords && c.WordNum > 1 {
		b.WriteString(detailStyle.Render("  " + formatWords(c)))
	}
	return b.String()
}

// formatWords joins the word surfaces with a separator.
func formatWords(c *engine.Candidate) string {
	parts := make([]string, c.Words.Len())
	for i := range parts {
		parts[i] = c.Words.At(i).Surface
	}
	return strings.Join(parts, "|")
}

// formatStats renders key=value pairs in key order.
func formatStats(stats map[string]int) string {
	keys := make([]string, 0, len(stats))
	for k := range stats {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s=%s", k, formatWithCommas(stats[k]))
	}
	return strings.Join(parts, " ")
}

// formatWithCommas formats an integer with comma separators
func formatWithCommas(n int) string {
	if n < 0 {
		return "-" + formatWithCommas(-n)
	}
	str := fmt.Sprintf("%d", n)
	if n < 1000 {
		return str
	}
	var b strings.Builder
	for i, char := range str {
		if i > 0 && (len(str)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(char)
	}
	return b.String()
}
