// Package statusline renders the one-line console status shown by
// `tokenwatt watch`.
package statusline

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/zjrosen/tokenwatt/internal/pubsub"
	"github.com/zjrosen/tokenwatt/internal/session"
	"github.com/zjrosen/tokenwatt/internal/ui/styles"
)

const (
	enabledLabel  = "● Logging"
	disabledLabel = "⊘ Log off"
)

// Render returns the status line for u, truncated to width cells when width > 0.
func Render(u session.Update, width int) string {
	parts := make([]string, 0, 5)
	if u.Enabled {
		parts = append(parts, styles.EnabledStyle.Render(enabledLabel))
	} else {
		parts = append(parts, styles.DisabledStyle.Render(disabledLabel))
	}

	parts = append(parts,
		styles.LabelStyle.Render("Energy used:")+" "+styles.EnergyStyle.Render(styles.FormatEnergy(u.TotalEnergyJoules)),
		styles.EmissionsStyle.Render(styles.FormatEmissions(u.TotalEmissionsGrams)),
		styles.MutedStyle.Render(fmt.Sprintf("%d episodes", u.Episodes)),
	)

	if u.FileName != "" && u.Tokens > 0 {
		parts = append(parts, styles.MutedStyle.Render(fmt.Sprintf("last: %s +%d tok", u.FileName, u.Tokens)))
	}
	if u.Error != "" {
		parts = append(parts, styles.ErrorStyle.Render("! "+u.Error))
	}

	line := strings.Join(parts, "  ")
	if width > 0 {
		line = styles.TruncateString(line, width)
	}
	return line
}

// Printer writes a status line for every display update.
type Printer struct {
	w     io.Writer
	width int
}

// NewPrinter creates a Printer writing lines of at most width cells to w.
// A width of 0 disables truncation.
func NewPrinter(w io.Writer, width int) *Printer {
	return &Printer{w: w, width: width}
}

// Print writes one status line.
func (p *Printer) Print(u session.Update) error {
	_, err := fmt.Fprintln(p.w, Render(u, p.width))
	return err
}

// Run prints initial, then one line per event until ctx is cancelled or
// events is closed.
func (p *Printer) Run(ctx context.Context, initial session.Update, events <-chan pubsub.Event[session.Update]) error {
	if err := p.Print(initial); err != nil {
		return err
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			if err := p.Print(ev.Payload); err != nil {
				return err
			}
		}
	}
}
