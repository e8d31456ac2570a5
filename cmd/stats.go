package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/zjrosen/tokenwatt/internal/infrastructure/sqlite"
	"github.com/zjrosen/tokenwatt/internal/sink"
	"github.com/zjrosen/tokenwatt/internal/ui/styles"
	"github.com/zjrosen/tokenwatt/internal/usage"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Summarise recorded suggestions from the ledger",
	Args:  cobra.NoArgs,
	RunE:  runStats,
}

var (
	statsFiles  int
	statsRecent int
)

func init() {
	rootCmd.AddCommand(statsCmd)

	statsCmd.Flags().IntVar(&statsFiles, "files", 10, "number of files to list")
	statsCmd.Flags().IntVar(&statsRecent, "recent", 5, "number of recent suggestions to list")
}

func runStats(cmd *cobra.Command, _ []string) error {
	if _, err := os.Stat(cfg.Log.LedgerPath); os.IsNotExist(err) {
		return fmt.Errorf("no ledger at %s (is log.ledger_enabled set?)", cfg.Log.LedgerPath)
	}

	ledger, err := sink.OpenLedger(cfg.Log.LedgerPath, "")
	if err != nil {
		return err
	}
	defer ledger.Close()

	return printStats(cmd.Context(), cmd.OutOrStdout(), ledger, cfg.Estimate.GridIntensity)
}

type statsSource interface {
	Summary(ctx context.Context) (sqlite.Summary, error)
	ByFile(ctx context.Context, limit int) ([]sqlite.FileTotal, error)
	Recent(ctx context.Context, limit int) ([]sink.Record, error)
}

func printStats(ctx context.Context, w io.Writer, src statsSource, gridIntensity float64) error {
	if ctx == nil {
		ctx = context.Background()
	}
	sum, err := src.Summary(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintln(w, styles.TitleStyle.Render("tokenwatt ledger"))
	if sum.Episodes == 0 {
		fmt.Fprintln(w, styles.MutedStyle.Render("No suggestions recorded yet"))
		return nil
	}

	grams := sum.EnergyJoules / usage.JoulesPerKWh * gridIntensity
	fmt.Fprintf(w, "%s %s  %s\n",
		styles.LabelStyle.Render("Energy used:"),
		styles.EnergyStyle.Render(styles.FormatEnergy(sum.EnergyJoules)),
		styles.EmissionsStyle.Render(styles.FormatEmissions(grams)))
	fmt.Fprintf(w, "%s suggestions, %s tokens, %s sessions\n",
		humanize.Comma(int64(sum.Episodes)), humanize.Comma(sum.Tokens), humanize.Comma(int64(sum.Sessions)))
	fmt.Fprintln(w, styles.MutedStyle.Render(fmt.Sprintf("first %s, last %s",
		humanize.Time(sum.First), humanize.Time(sum.Last))))

	files, err := src.ByFile(ctx, statsFiles)
	if err != nil {
		return err
	}
	if len(files) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, styles.TitleStyle.Render("By file"))
		nameWidth := 0
		for _, f := range files {
			nameWidth = max(nameWidth, lipgloss.Width(f.FileName))
		}
		nameStyle := lipgloss.NewStyle().Width(min(nameWidth, 40) + 2)
		for _, f := range files {
			fmt.Fprintf(w, "%s%10s  %5d  %s tok\n",
				nameStyle.Render(styles.TruncateString(f.FileName, 40)),
				styles.FormatEnergy(f.EnergyJoules),
				f.Episodes,
				humanize.Comma(f.Tokens))
		}
	}

	recent, err := src.Recent(ctx, statsRecent)
	if err != nil {
		return err
	}
	if len(recent) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, styles.TitleStyle.Render("Recent"))
		for _, r := range recent {
			fmt.Fprintf(w, "%s  %s +%d tok  %s\n",
				styles.MutedStyle.Render(humanize.Time(r.Timestamp)),
				r.FileName, r.TokenCount, styles.FormatEnergy(r.EnergyJoules))
		}
	}
	return nil
}
