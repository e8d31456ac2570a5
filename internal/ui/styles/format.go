package styles

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/muesli/reflow/truncate"
)

// TruncateString truncates a string to fit within maxWidth cells, adding an
// ellipsis if needed. ANSI sequences are preserved.
func TruncateString(s string, maxWidth int) string {
	if maxWidth < 1 {
		return ""
	}
	if lipgloss.Width(s) <= maxWidth {
		return s
	}
	if maxWidth <= 3 {
		return truncate.String(s, uint(maxWidth))
	}
	return truncate.StringWithTail(s, uint(maxWidth), "...")
}

// FormatEnergy renders joules with an SI prefix, e.g. "12.96 J" or "1.5 kJ".
func FormatEnergy(joules float64) string {
	return humanize.SIWithDigits(joules, 2, "J")
}

// FormatEmissions renders grams of CO2e with an SI prefix, e.g. "277.2 µg".
func FormatEmissions(grams float64) string {
	return humanize.SIWithDigits(grams, 2, "g") + " CO₂e"
}
