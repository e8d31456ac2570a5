package session

import (
	"context"

	"github.com/zjrosen/tokenwatt/internal/capture"
)

// Control is the input side of a running tracker: every host surface drives
// the capture loop through it so toggles reach the display broker too.
type Control struct {
	loop    *capture.Loop
	session *Session
}

// NewControl pairs a capture loop with the session that handles its episodes.
func NewControl(loop *capture.Loop, s *Session) *Control {
	return &Control{loop: loop, session: s}
}

// Open switches the active document.
func (c *Control) Open(ctx context.Context, document, text string) error {
	return c.loop.Open(ctx, document, text)
}

// Edit delivers an edit notification and reports whether it was significant.
func (c *Control) Edit(ctx context.Context, e capture.Edit) (bool, error) {
	return c.loop.Edit(ctx, e)
}

// SetEnabled toggles capture and announces the new state.
func (c *Control) SetEnabled(ctx context.Context, enabled bool) error {
	status, err := c.loop.Status(ctx)
	if err != nil {
		return err
	}
	if status.Enabled == enabled {
		return nil
	}
	if err := c.loop.SetEnabled(ctx, enabled); err != nil {
		return err
	}
	c.session.PublishToggle(enabled)
	return nil
}

// Flush closes the open episode now.
func (c *Control) Flush(ctx context.Context) (bool, error) {
	return c.loop.Flush(ctx)
}

// Status returns the capture state.
func (c *Control) Status(ctx context.Context) (capture.Status, error) {
	return c.loop.Status(ctx)
}

// Snapshot returns totals and the enabled flag as an Update.
func (c *Control) Snapshot(ctx context.Context) (Update, error) {
	status, err := c.loop.Status(ctx)
	if err != nil {
		return Update{}, err
	}
	return c.session.Snapshot(status.Enabled), nil
}

// Session returns the session.
func (c *Control) Session() *Session {
	return c.session
}
