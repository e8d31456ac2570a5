// Package toaster provides a transient notice line for the dashboard.
package toaster

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/zjrosen/tokenwatt/internal/ui/styles"
)

// DefaultDuration is how long a toast stays visible.
const DefaultDuration = 3 * time.Second

// Style determines the visual appearance of the toast.
type Style int

const (
	// StyleSuccess shows ✓ in the success color.
	StyleSuccess Style = iota
	// StyleError shows ✗ in the error color.
	StyleError
	// StyleInfo shows · in the muted color.
	StyleInfo
)

// Model holds the toaster state.
type Model struct {
	message string
	style   Style
	visible bool
	seq     int
}

// New creates a new toaster model.
func New() Model {
	return Model{}
}

// Show displays message and returns a command that dismisses it after d.
// A later Show supersedes the pending dismissal of an earlier one.
func (m Model) Show(message string, style Style, d time.Duration) (Model, tea.Cmd) {
	m.message = message
	m.style = style
	m.visible = true
	m.seq++
	return m, ScheduleDismiss(m.seq, d)
}

// Hide dismisses the toast.
func (m Model) Hide() Model {
	m.visible = false
	m.message = ""
	return m
}

// Visible returns whether the toast is currently showing.
func (m Model) Visible() bool {
	return m.visible
}

// Message returns the current message, empty when hidden.
func (m Model) Message() string {
	return m.message
}

// Update hides the toast when its own DismissMsg arrives.
func (m Model) Update(msg tea.Msg) Model {
	if d, ok := msg.(DismissMsg); ok && d.seq == m.seq {
		return m.Hide()
	}
	return m
}

// View renders the toast, truncated to width cells.
func (m Model) View(width int) string {
	if !m.visible || m.message == "" {
		return ""
	}

	var (
		icon  string
		style lipgloss.Style
	)
	switch m.style {
	case StyleError:
		icon, style = "✗ ", styles.ErrorStyle
	case StyleInfo:
		icon, style = "· ", styles.MutedStyle
	default:
		icon, style = "✓ ", styles.EnabledStyle
	}
	return style.Render(styles.TruncateString(icon+m.message, width))
}

// DismissMsg signals that the toast should be dismissed.
type DismissMsg struct {
	seq int
}

// ScheduleDismiss returns a command that dismisses toast seq after d.
func ScheduleDismiss(seq int, d time.Duration) tea.Cmd {
	return tea.Tick(d, func(_ time.Time) tea.Msg {
		return DismissMsg{seq: seq}
	})
}
