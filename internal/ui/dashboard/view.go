package dashboard

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/zjrosen/tokenwatt/internal/keys"
	"github.com/zjrosen/tokenwatt/internal/ui/statusline"
	"github.com/zjrosen/tokenwatt/internal/ui/styles"
)

const defaultWidth = 80

// View renders the dashboard.
func (m Model) View() string {
	width := m.width
	if width <= 0 {
		width = defaultWidth
	}
	inner := max(width-4, 10)

	var b strings.Builder
	b.WriteString(styles.TitleStyle.Render("tokenwatt"))
	b.WriteString("\n\n")
	b.WriteString(statusline.Render(m.current, inner))
	b.WriteString("\n\n")
	b.WriteString(m.renderRecent(inner))

	if toast := m.toast.View(inner); toast != "" {
		b.WriteString("\n")
		b.WriteString(toast)
	}
	if m.err != "" {
		b.WriteString("\n")
		b.WriteString(styles.ErrorStyle.Render(styles.TruncateString("Error: "+m.err, inner)))
	}

	b.WriteString("\n\n")
	b.WriteString(m.renderFooter(inner))

	return styles.PanelStyle.Width(width - 2).Render(b.String())
}

func (m Model) renderRecent(width int) string {
	if len(m.recent) == 0 {
		return styles.MutedStyle.Render("No suggestions recorded yet")
	}

	lines := make([]string, 0, len(m.recent)+1)
	lines = append(lines, styles.LabelStyle.Render("Recent suggestions"))
	for _, u := range m.recent {
		when := u.Timestamp.Local().Format("15:04:05")
		energy := styles.EnergyStyle.Render(styles.FormatEnergy(u.EnergyJoules))
		meta := fmt.Sprintf("%s  %5d tok  ", when, u.Tokens)
		name := styles.TruncateString(u.FileName, max(width-lipgloss.Width(meta)-lipgloss.Width(energy)-2, 1))
		lines = append(lines, meta+energy+"  "+name)
	}
	return strings.Join(lines, "\n")
}

func (m Model) renderFooter(width int) string {
	h := m.help
	h.Width = width
	lines := []string{h.View(keys.Dashboard)}
	if m.logPath != "" {
		lines = append(lines, styles.MutedStyle.Render(styles.TruncateString("log: "+m.logPath, width)))
	}
	if m.lastLog != "" {
		lines = append(lines, styles.MutedStyle.Render(styles.TruncateString(strings.TrimSpace(m.lastLog), width)))
	}
	return strings.Join(lines, "\n")
}
