package cmd

import (
	"context"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/zjrosen/tokenwatt/internal/app"
	"github.com/zjrosen/tokenwatt/internal/bridge"
	"github.com/zjrosen/tokenwatt/internal/log"
	"github.com/zjrosen/tokenwatt/internal/ui/dashboard"
	"github.com/zjrosen/tokenwatt/internal/ui/statusline"
	"github.com/zjrosen/tokenwatt/internal/watcher"
)

var watchCmd = &cobra.Command{
	Use:   "watch FILE...",
	Short: "Track suggestions accepted into files on disk",
	Long: `Watch files and treat every save as a full-text snapshot. Saves that
insert a multi-line block or more than a few characters open an episode,
which is flushed after the debounce period.

Without --tui a status line is printed after each recorded suggestion.

Example:
  tokenwatt watch main.go util.go
  tokenwatt watch --tui src/*.go`,
	Args: cobra.MinimumNArgs(1),
	RunE: runWatch,
}

var watchTUI bool

func init() {
	rootCmd.AddCommand(watchCmd)

	watchCmd.Flags().BoolVar(&watchTUI, "tui", false, "show the interactive dashboard")
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	tracker, stop, err := startTracker(ctx)
	if err != nil {
		return err
	}
	defer stop()

	w, err := watcher.New(watcher.DefaultConfig(args...))
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer func() { _ = w.Stop() }()

	dispatcher := tracker.Dispatcher()
	if err := seedSnapshots(ctx, dispatcher, w.Paths()); err != nil {
		return err
	}

	changes, err := w.Start()
	if err != nil {
		return err
	}
	go forwardChanges(ctx, dispatcher, changes)

	if watchTUI {
		return runDashboard(ctx, cancel, tracker)
	}

	initial, err := tracker.Control().Snapshot(ctx)
	if err != nil {
		return err
	}
	printer := statusline.NewPrinter(cmd.OutOrStdout(), 0)
	err = printer.Run(ctx, initial, tracker.Broker().Subscribe(ctx))
	fmt.Fprintln(cmd.OutOrStdout())
	if err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}

// seedSnapshots records the current text of every path so the first save is
// diffed, not opened. The last path seeded becomes the active document; saves
// to the others switch to them.
func seedSnapshots(ctx context.Context, d *bridge.Dispatcher, paths []string) error {
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading %s: %w", path, err)
		}
		reply := d.Dispatch(ctx, bridge.Message{Type: bridge.TypeSnapshot, Document: path, Text: string(data)})
		if reply.Error != "" {
			return fmt.Errorf("opening %s: %s", path, reply.Error)
		}
	}
	return nil
}

func forwardChanges(ctx context.Context, d *bridge.Dispatcher, changes <-chan watcher.Change) {
	for {
		select {
		case <-ctx.Done():
			return
		case c, ok := <-changes:
			if !ok {
				return
			}
			reply := d.Dispatch(ctx, bridge.Message{Type: bridge.TypeSnapshot, Document: c.Path, Text: c.Text})
			if reply.Error != "" {
				log.Warn(log.CatWatcher, "Snapshot rejected", "path", c.Path, "error", reply.Error)
			}
		}
	}
}

func runDashboard(ctx context.Context, cancel context.CancelFunc, tracker *app.Tracker) error {
	model := dashboard.New(dashboard.Config{
		Controller: tracker.Control(),
		Broker:     tracker.Broker(),
		LogPath:    tracker.TextLog().Path(),
	})
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))

	final, err := p.Run()
	if m, ok := final.(dashboard.Model); ok {
		m.Cleanup()
	}
	cancel()
	if err != nil && ctx.Err() == nil {
		return fmt.Errorf("running dashboard: %w", err)
	}
	return nil
}
