package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/zjrosen/tokenwatt/internal/api"
	"github.com/zjrosen/tokenwatt/internal/log"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP bridge",
	Long: `Run tokenwatt as a local HTTP server. Editor integrations post document
events to it and display clients stream totals over SSE or WebSocket.

Endpoints:
  POST /v1/documents   open a document
  POST /v1/edits       report an edit or a full-text snapshot
  POST /v1/flush       close the open episode now
  PUT  /v1/logging     enable or disable logging
  GET  /v1/totals      current totals
  GET  /v1/events      server-sent events
  GET  /v1/ws          WebSocket bridge
  GET  /health

Example:
  tokenwatt serve                      # listen on server.addr (127.0.0.1:7420)
  tokenwatt serve --addr 127.0.0.1:0   # pick a free port`,
	RunE: runServe,
}

var serveAddr string

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "address to listen on (overrides server.addr)")
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	tracker, stop, err := startTracker(ctx)
	if err != nil {
		return err
	}
	defer stop()

	addr := serveAddr
	if addr == "" {
		addr = cfg.Server.Addr
	}

	server, err := api.NewServer(api.ServerConfig{
		Addr: addr,
		Handler: api.HandlerConfig{
			Controller: tracker.Control(),
			Dispatcher: tracker.Dispatcher(),
			Broker:     tracker.Broker(),
			Tracer:     tracker.Tracing().Tracer(),
		},
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "tokenwatt listening on %s\n", server.Addr())
	fmt.Fprintf(out, "Logging to %s\n", tracker.TextLog().Path())
	fmt.Fprintln(out, "Press Ctrl+C to stop")

	select {
	case <-ctx.Done():
		fmt.Fprintln(out, "\nShutting down...")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	}

	shutdownCtx, shutdownCancel := contextWithShutdownTimeout()
	defer shutdownCancel()
	if err := server.Stop(shutdownCtx); err != nil {
		log.ErrorErr(log.CatAPI, "Error stopping API server", err)
	}
	return nil
}
