package sink

import (
	"strings"

	"github.com/gen2brain/beeep"
)

// Notifier raises a user-visible alert.
type Notifier interface {
	Notify(title, body string) error
}

// NopNotifier discards notifications.
type NopNotifier struct{}

// Notify implements Notifier.
func (NopNotifier) Notify(string, string) error { return nil }

// Beeep sends desktop notifications.
type Beeep struct {
	// MaxBody truncates the body. Zero means 200 characters.
	MaxBody int
}

// Notify implements Notifier.
func (b Beeep) Notify(title, body string) error {
	limit := b.MaxBody
	if limit <= 0 {
		limit = 200
	}
	return beeep.Notify(title, truncateNotification(body, limit), "")
}

func truncateNotification(s string, maxLen int) string {
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
