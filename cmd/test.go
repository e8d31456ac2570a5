package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/zjrosen/tokenwatt/internal/sink"
)

var testLogCmd = &cobra.Command{
	Use:   "test",
	Short: "Write a test entry to the suggestion log",
	Args:  cobra.NoArgs,
	RunE:  runTestLog,
}

func init() {
	rootCmd.AddCommand(testLogCmd)
}

func runTestLog(cmd *cobra.Command, _ []string) error {
	f := sink.NewTextFile(cfg.Log.Path)
	if err := f.Note("Test log entry"); err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "Failed to write to log file: %v\n", err)
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Successfully wrote to log file at: %s\n", f.Path())
	return nil
}
