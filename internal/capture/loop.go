package capture

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/zjrosen/tokenwatt/internal/log"
)

var (
	// ErrLoopStopped is returned by Loop methods after Run has returned.
	ErrLoopStopped = errors.New("capture loop stopped")
	// ErrInactiveDocument is returned by Edit for a document other than the
	// active one. The edit is not applied; Open the document first.
	ErrInactiveDocument = errors.New("edit for inactive document")
)

// Handler processes flushed episodes on the loop goroutine.
type Handler interface {
	HandleEpisode(ctx context.Context, ep Episode)
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(ctx context.Context, ep Episode)

// HandleEpisode calls f(ctx, ep).
func (f HandlerFunc) HandleEpisode(ctx context.Context, ep Episode) {
	f(ctx, ep)
}

// LoopConfig configures a Loop.
type LoopConfig struct {
	Config
	// FlushOnExit flushes an open episode when Run returns instead of abandoning it.
	FlushOnExit bool
	// InboxSize bounds queued messages. Defaults to 64.
	InboxSize int
}

// Loop is the single-threaded actor that owns a Machine. Edits, control
// messages and debounce callbacks are applied one at a time on the goroutine
// running Run.
type Loop struct {
	machine     *Machine
	handler     Handler
	flushOnExit bool
	inbox       chan func()
	done        chan struct{}
	ctx         context.Context
}

// NewLoop creates a Loop. Call Run to start processing.
func NewLoop(cfg LoopConfig, h Handler) *Loop {
	size := cfg.InboxSize
	if size <= 0 {
		size = 64
	}
	l := &Loop{
		handler:     h,
		flushOnExit: cfg.FlushOnExit,
		inbox:       make(chan func(), size),
		done:        make(chan struct{}),
		ctx:         context.Background(),
	}

	base := cfg.Scheduler
	if base == nil {
		base = RealScheduler{}
	}
	mc := cfg.Config
	mc.Scheduler = SchedulerFunc(func(d time.Duration, f func()) Timer {
		return base.AfterFunc(d, func() { l.post(f) })
	})
	l.machine = NewMachine(mc, l.flushed)
	return l
}

func (l *Loop) flushed(ep Episode) {
	if l.handler != nil {
		l.handler.HandleEpisode(l.ctx, ep)
	}
}

// post queues f from a timer goroutine. Dropped once the loop has stopped.
func (l *Loop) post(f func()) {
	select {
	case l.inbox <- f:
	case <-l.done:
	}
}

// Run processes messages until ctx is cancelled.
func (l *Loop) Run(ctx context.Context) error {
	l.ctx = ctx
	defer close(l.done)

	log.Debug(log.CatCapture, "Capture loop started")
	for {
		select {
		case <-ctx.Done():
			l.shutdown(ctx)
			return nil
		case f := <-l.inbox:
			f()
		}
	}
}

func (l *Loop) shutdown(ctx context.Context) {
	if l.machine.State() != StateCapturing {
		return
	}
	if l.flushOnExit {
		l.ctx = context.WithoutCancel(ctx)
		l.machine.Flush()
		return
	}
	l.machine.abandon("shutdown")
}

// do runs f on the loop goroutine and waits for it to complete.
func (l *Loop) do(ctx context.Context, f func()) error {
	applied := make(chan struct{})
	msg := func() {
		f()
		close(applied)
	}

	select {
	case l.inbox <- msg:
	case <-ctx.Done():
		return ctx.Err()
	case <-l.done:
		return ErrLoopStopped
	}

	select {
	case <-applied:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-l.done:
		return ErrLoopStopped
	}
}

// Edit delivers an edit notification. Reports whether it was significant.
// While logging is enabled, an edit for a document other than the active one
// fails with ErrInactiveDocument.
func (l *Loop) Edit(ctx context.Context, e Edit) (bool, error) {
	var significant bool
	var active string
	err := l.do(ctx, func() {
		if l.machine.Enabled() && !l.machine.IsActive(e.Document) {
			active = l.machine.document
			return
		}
		significant = l.machine.OnEdit(e)
	})
	if err != nil {
		return false, err
	}
	if active != "" {
		return false, fmt.Errorf("%w: %s (active: %s)", ErrInactiveDocument, e.Document, active)
	}
	return significant, nil
}

// Open switches the active document.
func (l *Loop) Open(ctx context.Context, document, text string) error {
	return l.do(ctx, func() { l.machine.Open(document, text) })
}

// SetEnabled flips the logging toggle.
func (l *Loop) SetEnabled(ctx context.Context, enabled bool) error {
	return l.do(ctx, func() { l.machine.SetEnabled(enabled) })
}

// Flush closes the open episode immediately. Reports whether one was open.
func (l *Loop) Flush(ctx context.Context) (bool, error) {
	var flushed bool
	err := l.do(ctx, func() { flushed = l.machine.Flush() })
	return flushed, err
}

// Status returns the machine status.
func (l *Loop) Status(ctx context.Context) (Status, error) {
	var s Status
	err := l.do(ctx, func() { s = l.machine.Status() })
	return s, err
}
