package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/zjrosen/tokenwatt/internal/log"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Read editor events as JSON lines on stdin",
	Long: `Run the editor bridge over stdio. Each input line is one JSON message and
each message gets one JSON reply line on stdout.

Message types: open, edit, snapshot, toggle, flush, status.

Example:
  echo '{"type":"open","document":"main.go","text":""}' | tokenwatt ingest`,
	Args: cobra.NoArgs,
	RunE: runIngest,
}

func init() {
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, _ []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	tracker, stop, err := startTracker(ctx)
	if err != nil {
		return err
	}
	defer stop()

	log.Info(log.CatAPI, "Bridge reading stdin", "session", tracker.SessionID())
	err = tracker.Dispatcher().Serve(ctx, cmd.InOrStdin(), cmd.OutOrStdout())
	if err != nil && !errors.Is(err, ctx.Err()) {
		return fmt.Errorf("bridge: %w", err)
	}
	return nil
}
