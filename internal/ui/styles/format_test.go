package styles

import (
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/stretchr/testify/require"
)

func TestTruncateString(t *testing.T) {
	tests := []struct {
		name     string
		in       string
		width    int
		expected string
	}{
		{"fits", "main.go", 10, "main.go"},
		{"exact", "main.go", 7, "main.go"},
		{"ellipsis", "internal/capture/machine.go", 12, "internal/..."},
		{"tiny", "machine.go", 3, "mac"},
		{"zero", "machine.go", 0, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := TruncateString(tt.in, tt.width)
			require.Equal(t, tt.expected, got)
			require.LessOrEqual(t, lipgloss.Width(got), max(tt.width, 0))
		})
	}
}

func TestFormatEnergy(t *testing.T) {
	require.Equal(t, "12.96 J", FormatEnergy(12.96))
	require.Equal(t, "1.5 kJ", FormatEnergy(1500))
	require.Equal(t, "0 J", FormatEnergy(0))
}

func TestFormatEmissions(t *testing.T) {
	require.Equal(t, "3.85 g CO₂e", FormatEmissions(3.85))
	require.Equal(t, "250 mg CO₂e", FormatEmissions(0.25))
}
