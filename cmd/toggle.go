package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/zjrosen/tokenwatt/internal/config"
)

var toggleCmd = &cobra.Command{
	Use:   "toggle [on|off]",
	Short: "Enable or disable suggestion logging",
	Long: `Flip the persisted logging state, or set it explicitly with on/off.
Running trackers pick up the change from the config file.`,
	Args:      cobra.MaximumNArgs(1),
	ValidArgs: []string{"on", "off"},
	RunE:      runToggle,
}

func init() {
	rootCmd.AddCommand(toggleCmd)
}

func parseToggle(args []string, current bool) (bool, error) {
	if len(args) == 0 {
		return !current, nil
	}
	switch strings.ToLower(args[0]) {
	case "on", "true", "enable":
		return true, nil
	case "off", "false", "disable":
		return false, nil
	default:
		return false, fmt.Errorf("expected on or off, got %q", args[0])
	}
}

func runToggle(cmd *cobra.Command, args []string) error {
	enabled, err := parseToggle(args, cfg.Enabled)
	if err != nil {
		return err
	}

	path := configFilePath()
	if err := config.SaveEnabled(path, enabled); err != nil {
		return fmt.Errorf("saving logging state: %w", err)
	}
	cfg.Enabled = enabled

	if enabled {
		fmt.Fprintln(cmd.OutOrStdout(), "Inline chat logging enabled")
	} else {
		fmt.Fprintln(cmd.OutOrStdout(), "Inline chat logging disabled")
	}
	return nil
}
