package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/goodtune/screentime/internal/config"
	"github.com/goodtune/screentime/internal/storage"
	"github.com/goodtune/screentime/internal/usage"
	"github.com/spf13/cobra"
)

var (
	historyDays    int
	historyJSON    bool
	rollupJSON     bool
	rollupNoUpdate bool
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show stored daily reports",
	Long:  `Show the daily reports stored for the configured user, oldest first.`,
	Args:  cobra.NoArgs,
	RunE:  runHistory,
}

var rollupCmd = &cobra.Command{
	Use:   "rollup week|month [ID]",
	Short: "Show a weekly or monthly rollup",
	Long: `Rebuild a weekly (YYYY-Www) or monthly (YYYY-MM) rollup from the stored
daily reports and print it. Without an ID the current period is used.`,
	Example: `  screentime rollup week
  screentime rollup week 2026-W42
  screentime rollup month 2026-10 --json`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runRollup,
}

func init() {
	historyCmd.Flags().IntVar(&historyDays, "days", 7, "Number of days to show, including today")
	historyCmd.Flags().BoolVar(&historyJSON, "json", false, "Print the reports as JSON")
	rollupCmd.Flags().BoolVar(&rollupJSON, "json", false, "Print the rollup as JSON")
	rollupCmd.Flags().BoolVar(&rollupNoUpdate, "no-update", false, "Print the stored rollup without rebuilding it")
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(rollupCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	if historyDays < 1 {
		return fmt.Errorf("--days must be at least 1")
	}

	cfg, store, err := loadStore()
	if err != nil {
		return err
	}
	defer func() {
		_ = store.Close()
	}()

	now := time.Now()
	loc := deviceLocation(cfg)
	to := usage.DateString(now, loc)
	from := usage.DateString(now.In(loc).AddDate(0, 0, 1-historyDays), loc)

	days, err := store.Reports().ListDaily(commandContext(cmd), cfg.User.ID, from, to)
	if err != nil {
		return fmt.Errorf("failed to list reports: %w", err)
	}

	if historyJSON {
		return writeJSON(days)
	}

	if len(days) == 0 {
		fmt.Printf("No reports stored between %s and %s\n", from, to)
		return nil
	}

	cyan := color.New(color.FgCyan, color.Bold)
	yellow := color.New(color.FgYellow)
	_, _ = cyan.Printf("%-10s %-9s %6s", "date", "method", "total")
	for _, app := range usage.TrackedApps {
		_, _ = cyan.Printf(" %9s", app)
	}
	fmt.Println()

	for _, day := range days {
		line := fmt.Sprintf("%-10s %-9s %6d", day.Date, day.Method, day.TotalMinutes())
		for _, app := range usage.TrackedApps {
			line += fmt.Sprintf(" %9d", day.Minutes[string(app)])
		}
		if day.Final {
			fmt.Println(line)
		} else {
			_, _ = yellow.Println(line + "  (in progress)")
		}
	}
	return nil
}

func runRollup(cmd *cobra.Command, args []string) error {
	kind, err := storage.ParseRollupKind(args[0])
	if err != nil {
		return err
	}

	cfg, store, err := loadStore()
	if err != nil {
		return err
	}
	defer func() {
		_ = store.Close()
	}()

	now := time.Now()
	id := ""
	if len(args) == 2 {
		id = args[1]
	} else {
		id, err = usage.PeriodID(kind, usage.DateString(now, deviceLocation(cfg)))
		if err != nil {
			return err
		}
	}

	ctx := commandContext(cmd)
	var rollup storage.Rollup
	if rollupNoUpdate {
		stored, err := store.Reports().GetRollup(ctx, cfg.User.ID, kind, id)
		if errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("no %s rollup stored for %s", kind, id)
		}
		if err != nil {
			return fmt.Errorf("failed to get rollup: %w", err)
		}
		rollup = *stored
	} else {
		rollup, err = usage.RefreshRollup(ctx, store.Reports(), cfg.User.ID, kind, id, now)
		if err != nil {
			return fmt.Errorf("failed to build rollup: %w", err)
		}
	}

	if rollupJSON {
		return writeJSON(rollup)
	}

	cyan := color.New(color.FgCyan, color.Bold)
	_, _ = cyan.Printf("%s %s  (%s to %s, %d days)\n", kind, rollup.ID, rollup.Start, rollup.End, rollup.Days)
	for _, app := range usage.TrackedApps {
		fmt.Printf("  %-10s %5d min\n", app, rollup.Minutes[string(app)])
	}
	_, _ = cyan.Printf("  %-10s %5d min\n", "total", rollup.TotalMinutes)
	return nil
}

// loadStore loads configuration and opens storage for read-only commands
func loadStore() (*config.Config, storage.Store, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	store, err := openStore(cfg.Storage)
	if err != nil {
		return nil, nil, err
	}
	return cfg, store, nil
}

// deviceLocation resolves the configured device zone, falling back to local
func deviceLocation(cfg *config.Config) *time.Location {
	zones, err := usage.NewZoneResolver(1)
	if err != nil {
		return time.Local
	}
	loc, err := zones.Resolve(cfg.Device.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func writeJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
