package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/zjrosen/tokenwatt/internal/app"
	"github.com/zjrosen/tokenwatt/internal/config"
	"github.com/zjrosen/tokenwatt/internal/log"
)

const shutdownTimeout = 10 * time.Second

// startTracker builds and starts a tracker from the loaded configuration.
// The returned stop function flushes sinks and must be called once.
func startTracker(ctx context.Context) (*app.Tracker, func(), error) {
	tracker, err := app.New(app.Options{Config: cfg})
	if err != nil {
		return nil, nil, err
	}
	if err := tracker.Start(ctx); err != nil {
		return nil, nil, fmt.Errorf("starting tracker: %w", err)
	}

	watchConfig(func(next config.Config) {
		applyCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tracker.ApplyConfig(applyCtx, next); err != nil {
			log.ErrorErr(log.CatConfig, "Applying reloaded config failed", err)
		}
	})

	stop := func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := tracker.Stop(stopCtx); err != nil {
			log.ErrorErr(log.CatConfig, "Error stopping tracker", err)
			fmt.Fprintf(os.Stderr, "tokenwatt: %v\n", err)
		}
	}
	return tracker, stop, nil
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

func contextWithShutdownTimeout() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), shutdownTimeout)
}
