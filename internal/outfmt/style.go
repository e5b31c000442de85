package outfmt

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FFFFFF")).
			Background(lipgloss.Color("#5B47E0")).
			Padding(0, 1)

	headerStyle = lipgloss.NewStyle().Bold(true)

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#ABB2BF")).
			Width(14)

	warnStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#E5C07B"))
	errStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#E06C75"))
	okStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#98C379"))
)

// Title renders a section heading.
func Title(s string) string {
	return titleStyle.Render(s)
}

// Header renders a table column header.
func Header(s string) string {
	return headerStyle.Render(s)
}

// KeyValue renders an aligned "label value" line.
func KeyValue(label, value string) string {
	return labelStyle.Render(label) + " " + value
}

// Warn renders a warning line.
func Warn(s string) string {
	return warnStyle.Render(s)
}

// USD formats a dollar amount. Sub-cent amounts keep four decimals.
func USD(v float64) string {
	if v != 0 && v < 0.01 && v > -0.01 {
		return fmt.Sprintf("$%.4f", v)
	}
	return fmt.Sprintf("$%.2f", v)
}

// UsageBar renders a fixed-width bar for percent of a limit, colored by how
// close it is to the limit.
func UsageBar(percent float64, width int) string {
	if width <= 0 {
		width = 20
	}
	clamped := percent
	if clamped < 0 {
		clamped = 0
	}
	if clamped > 100 {
		clamped = 100
	}
	filled := int(clamped / 100 * float64(width))
	bar := strings.Repeat("#", filled) + strings.Repeat(".", width-filled)

	style := okStyle
	switch {
	case percent >= 100:
		style = errStyle
	case percent >= 80:
		style = warnStyle
	}
	return style.Render("["+bar+"]") + fmt.Sprintf(" %3.0f%%", percent)
}

// Severity colors an anomaly severity label.
func Severity(s string) string {
	switch strings.ToLower(s) {
	case "high", "critical":
		return errStyle.Render(s)
	case "medium":
		return warnStyle.Render(s)
	default:
		return s
	}
}
