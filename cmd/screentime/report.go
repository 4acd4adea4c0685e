package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/goodtune/screentime/internal/config"
	"github.com/goodtune/screentime/internal/source"
	"github.com/goodtune/screentime/internal/usage"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var (
	reportDate string
	reportJSON bool
	reportSave bool
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Print per-app minutes for a day",
	Long: `Reconcile the device usage log and print whole minutes per tracked app.
Without --date the current local day up to now is reported.`,
	Example: `  screentime report
  screentime -c config.yaml report --date 2026-10-15 --json`,
	Args: cobra.NoArgs,
	RunE: runReport,
}

func init() {
	reportCmd.Flags().StringVar(&reportDate, "date", "", "Local date (YYYY-MM-DD) - defaults to today")
	reportCmd.Flags().BoolVar(&reportJSON, "json", false, "Print the report as JSON")
	reportCmd.Flags().BoolVar(&reportSave, "save", false, "Store the report, replacing any stored report for the date")
	rootCmd.AddCommand(reportCmd)
}

func runReport(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// Keep stdout for the report
	logger := setupLogger(cfg.Logging).Level(zerolog.WarnLevel)

	assembler, err := newAssembler(cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize assembler: %w", err)
	}

	ctx := commandContext(cmd)

	now := time.Now()
	loc := assembler.Location()
	date := reportDate
	if date == "" {
		date = usage.DateString(now, loc)
	}

	window, err := usage.DayWindow(date, now, loc)
	if err != nil {
		return fmt.Errorf("invalid date %q: %w", date, err)
	}

	report, err := assembler.ForWindow(ctx, window, loc)
	if err != nil {
		switch {
		case errors.Is(err, usage.ErrPermissionDenied):
			fmt.Fprintln(os.Stderr, "Usage access has not been granted on the device.")
		case source.IsMissing(err):
			fmt.Fprintf(os.Stderr, "No usage export found at %s.\n", cfg.Source.AggregatePath)
		case usage.IsUnavailable(err):
			fmt.Fprintln(os.Stderr, "Usage data is unavailable.")
		}
		return err
	}

	if reportSave {
		store, err := openStore(cfg.Storage)
		if err != nil {
			return err
		}
		defer func() {
			_ = store.Close()
		}()

		// Past days are complete
		final := date < usage.DateString(now, loc)
		if err := store.Reports().ReplaceDaily(ctx, report.Daily(cfg.User.ID, final, now)); err != nil {
			return fmt.Errorf("failed to store report: %w", err)
		}
	}

	if reportJSON {
		return writeJSON(report)
	}

	printReport(report)
	return nil
}

// printReport renders a report as a coloured table
func printReport(report *usage.Report) {
	cyan := color.New(color.FgCyan, color.Bold)
	yellow := color.New(color.FgYellow)
	green := color.New(color.FgGreen)

	_, _ = cyan.Printf("%s  (%s)\n", report.Date(), report.Method())
	if report.Method() == usage.MethodAggregate {
		_, _ = yellow.Println("Figures come from the device aggregate and may be approximate.")
	}

	for _, app := range usage.TrackedApps {
		minutes := report.Minutes(app)
		line := fmt.Sprintf("  %-10s %4d min\n", app, minutes)
		if minutes > 0 {
			_, _ = green.Print(line)
		} else {
			fmt.Print(line)
		}
	}
	_, _ = cyan.Printf("  %-10s %4d min\n", "total", report.Total())
}
