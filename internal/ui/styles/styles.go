// Package styles contains Lip Gloss style definitions.
package styles

import "github.com/charmbracelet/lipgloss"

var (
	// Semantic color names - Text hierarchy
	TextPrimaryColor   = lipgloss.AdaptiveColor{Light: "#1F2328", Dark: "#CCCCCC"}
	TextSecondaryColor = lipgloss.AdaptiveColor{Light: "#57606A", Dark: "#BBBBBB"}
	TextMutedColor     = lipgloss.AdaptiveColor{Light: "#8C959F", Dark: "#696969"} // Hints, help text, footers

	// Semantic color names - Border
	BorderDefaultColor = lipgloss.AdaptiveColor{Light: "#D0D7DE", Dark: "#696969"}

	// Semantic color names - Status
	StatusSuccessColor = lipgloss.AdaptiveColor{Light: "#1A7F37", Dark: "#73F59F"} // Logging on
	StatusWarningColor = lipgloss.AdaptiveColor{Light: "#9A6700", Dark: "#FECA57"} // Logging off
	StatusErrorColor   = lipgloss.AdaptiveColor{Light: "#CF222E", Dark: "#FF8787"} // Log write failures

	// Measurement colors
	EnergyColor    = lipgloss.AdaptiveColor{Light: "#BF8700", Dark: "#F9E2AF"}
	EmissionsColor = lipgloss.AdaptiveColor{Light: "#116329", Dark: "#94E2D5"}

	TitleStyle = lipgloss.NewStyle().Bold(true).Foreground(TextPrimaryColor)
	LabelStyle = lipgloss.NewStyle().Foreground(TextSecondaryColor)
	MutedStyle = lipgloss.NewStyle().Foreground(TextMutedColor)

	EnabledStyle  = lipgloss.NewStyle().Bold(true).Foreground(StatusSuccessColor)
	DisabledStyle = lipgloss.NewStyle().Bold(true).Foreground(StatusWarningColor)
	ErrorStyle    = lipgloss.NewStyle().Foreground(StatusErrorColor)

	EnergyStyle    = lipgloss.NewStyle().Bold(true).Foreground(EnergyColor)
	EmissionsStyle = lipgloss.NewStyle().Foreground(EmissionsColor)

	PanelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(BorderDefaultColor).
			Padding(0, 1)
)
