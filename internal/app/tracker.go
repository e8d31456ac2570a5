// Package app assembles a running tracker from configuration: the capture
// loop, the flush pipeline, its sinks and the display broker.
package app

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/zjrosen/tokenwatt/internal/bridge"
	"github.com/zjrosen/tokenwatt/internal/capture"
	"github.com/zjrosen/tokenwatt/internal/config"
	"github.com/zjrosen/tokenwatt/internal/flags"
	"github.com/zjrosen/tokenwatt/internal/log"
	"github.com/zjrosen/tokenwatt/internal/pubsub"
	"github.com/zjrosen/tokenwatt/internal/session"
	"github.com/zjrosen/tokenwatt/internal/sink"
	"github.com/zjrosen/tokenwatt/internal/tokenizer"
	"github.com/zjrosen/tokenwatt/internal/tracing"
	"github.com/zjrosen/tokenwatt/internal/usage"
)

// Options configures New.
type Options struct {
	Config config.Config
	// SessionID tags ledger rows. Defaults to a random UUID.
	SessionID string
	// Notifier overrides the desktop notifier chosen by Config.Notify.
	Notifier sink.Notifier
	// Counter overrides the tokenizer built from Config.Tokenizer.
	Counter tokenizer.Counter
}

// Tracker is a running tracker. Start it once, then Stop it.
type Tracker struct {
	cfg       config.Config
	sessionID string

	session    *session.Session
	loop       *capture.Loop
	control    *session.Control
	dispatcher *bridge.Dispatcher

	text    *sink.TextFile
	ledger  *sink.Ledger
	tracing *tracing.Provider

	cancel   context.CancelFunc
	done     chan struct{}
	stopOnce sync.Once
}

// New builds a Tracker. Nothing runs until Start.
func New(opts Options) (*Tracker, error) {
	cfg := opts.Config
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	t := &Tracker{cfg: cfg, sessionID: opts.SessionID}
	if t.sessionID == "" {
		t.sessionID = uuid.NewString()
	}

	extractor, err := cfg.Extractor()
	if err != nil {
		return nil, err
	}

	counter := opts.Counter
	if counter == nil {
		counter, err = tokenizer.New(cfg.TokenizerSettings())
		if err != nil {
			return nil, fmt.Errorf("creating tokenizer: %w", err)
		}
	}

	t.tracing, err = tracing.NewProvider(cfg.Tracing)
	if err != nil {
		return nil, fmt.Errorf("creating tracer: %w", err)
	}

	t.text = sink.NewTextFile(cfg.Log.Path)
	sinks := sink.Multi{t.text}
	if cfg.Log.LedgerEnabled {
		t.ledger, err = sink.OpenLedger(cfg.Log.LedgerPath, t.sessionID)
		if err != nil {
			_ = t.tracing.Shutdown(context.Background())
			return nil, fmt.Errorf("opening ledger: %w", err)
		}
		sinks = append(sinks, t.ledger)
	}

	notifier := opts.Notifier
	if notifier == nil {
		if cfg.Notify.Enabled {
			notifier = sink.Beeep{}
		} else {
			notifier = sink.NopNotifier{}
		}
	}

	t.session = session.New(session.Config{
		Extractor: extractor,
		Counter:   counter,
		Estimator: usage.NewEstimator(cfg.Usage()),
		Sink:      sinks,
		Notifier:  notifier,
		Tracer:    t.tracing.Tracer(),
	})

	ff := flags.New(cfg.Flags)
	t.loop = capture.NewLoop(capture.LoopConfig{
		Config: capture.Config{
			Classifier:    cfg.Classifier(),
			Debounce:      cfg.Capture.Debounce,
			FlushOnSwitch: ff.Enabled(flags.FlagFlushOnSwitch),
		},
		FlushOnExit: ff.Enabled(flags.FlagFlushOnExit),
	}, t.session)
	t.control = session.NewControl(t.loop, t.session)
	t.dispatcher = bridge.NewDispatcher(t.control)

	return t, nil
}

// Start runs the capture loop in the background and applies the configured
// logging state. The loop stops when ctx is cancelled or Stop is called.
func (t *Tracker) Start(ctx context.Context) error {
	ctx, t.cancel = context.WithCancel(ctx)
	t.done = make(chan struct{})
	go func() {
		defer close(t.done)
		_ = t.loop.Run(ctx)
	}()

	if !t.cfg.Enabled {
		if err := t.loop.SetEnabled(ctx, false); err != nil {
			return err
		}
	} else if err := t.text.Started(); err != nil {
		log.Warn(log.CatSink, "Could not write session marker", "path", t.text.Path(), "error", err)
	}

	log.Info(log.CatConfig, "Tracker started",
		"session", t.sessionID, "enabled", t.cfg.Enabled, "log", t.text.Path(), "tracing", t.tracing.Enabled())
	return nil
}

// Stop ends the capture loop, then closes the ledger and flushes traces.
// The loop's exit flush, if enabled, completes before sinks close.
func (t *Tracker) Stop(ctx context.Context) error {
	var errs []error
	t.stopOnce.Do(func() {
		if t.cancel != nil {
			t.cancel()
			select {
			case <-t.done:
			case <-ctx.Done():
				errs = append(errs, fmt.Errorf("waiting for capture loop: %w", ctx.Err()))
			}
		}
		if t.ledger != nil {
			if err := t.ledger.Close(); err != nil {
				errs = append(errs, fmt.Errorf("closing ledger: %w", err))
			}
		}
		if err := t.tracing.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("shutting down tracing: %w", err))
		}
		t.session.Broker().Close()
		log.Info(log.CatConfig, "Tracker stopped", "session", t.sessionID)
	})
	return errors.Join(errs...)
}

// ApplyConfig picks up settings that may change while running. Only the
// logging toggle is live; other changes need a restart.
func (t *Tracker) ApplyConfig(ctx context.Context, cfg config.Config) error {
	return t.control.SetEnabled(ctx, cfg.Enabled)
}

// Control returns the capture control.
func (t *Tracker) Control() *session.Control { return t.control }

// Dispatcher returns the bridge dispatcher shared by all input transports.
func (t *Tracker) Dispatcher() *bridge.Dispatcher { return t.dispatcher }

// Broker returns the display broker.
func (t *Tracker) Broker() *pubsub.Broker[session.Update] { return t.session.Broker() }

// Tracing returns the trace provider used for flushes and HTTP requests.
func (t *Tracker) Tracing() *tracing.Provider { return t.tracing }

// TextLog returns the human-readable log sink.
func (t *Tracker) TextLog() *sink.TextFile { return t.text }

// SessionID returns the session identifier stored with ledger rows.
func (t *Tracker) SessionID() string { return t.sessionID }
