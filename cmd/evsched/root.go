package main

import (
	"context"
	"fmt"
	"io"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"evsched/internal/config"
	"evsched/internal/ics"
	appLog "evsched/internal/log"
	"evsched/internal/metrics"
	"evsched/internal/schedule"
	"evsched/internal/shell"
)

// rootFlags holds CLI flag values that override the config file.
type rootFlags struct {
	configPath string
	logLevel   string
	imports    []string
}

func newRootCmd() *cobra.Command {
	var flags rootFlags

	cmd := &cobra.Command{
		Use:   "evsched",
		Short: "Interactive calendar event scheduler",
		Long: `evsched keeps a schedule of events ordered by start time and lets you
add and delete events, find overlaps, list free time slots for a day and
print the full schedule from an interactive menu.

Calendars in iCalendar format can be imported at startup (--import or the
config file) or from the menu, and the schedule can be exported as ICS.`,
		Version:      version,
		SilenceUsage: true,
		Args:         cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), flags, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
	cmd.SetVersionTemplate(`{{printf "evsched version %s\n" .Version}}`)

	cmd.Flags().StringVar(&flags.configPath, "config", config.DefaultPath(), "Path to config file")
	cmd.Flags().StringVar(&flags.logLevel, "log-level", "", "Log level: debug, info, warn, error (overrides config if set)")
	cmd.Flags().StringArrayVar(&flags.imports, "import", nil, "ICS file or URL to load before the menu starts (repeatable)")

	return cmd
}

func run(parent context.Context, flags rootFlags, in io.Reader, out io.Writer) error {
	conf, err := config.Load(flags.configPath)
	if err != nil {
		appLog.Error("failed to load config", err, "config_path", flags.configPath)
		return err
	}

	// CLI --log-level overrides config file log_level if provided.
	if flags.logLevel != "" {
		conf.LogLevel = flags.logLevel
	}
	level, err := appLog.ParseLevel(conf.LogLevel)
	if err != nil {
		return err
	}
	appLog.SetLevel(level)

	appLog.Info("evsched starting", "version", version)
	appLog.Debug("effective config",
		"config_path", flags.configPath,
		"log_level", conf.LogLevel,
		"horizon_days", conf.HorizonDays,
		"max_occurrences_per_event", conf.MaxOccurrencesPerEvent,
		"metrics", conf.MetricsEnabled(),
		"import_count", len(conf.Imports)+len(flags.imports),
	)

	// Root context with cancellation on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var rec *metrics.Recorder
	if conf.MetricsEnabled() {
		rec = metrics.New()
	}

	store := schedule.New()
	sh := shell.New(store, in, out, shell.Options{
		Fetcher: ics.NewFetcher(nil),
		Expand: ics.ExpandConfig{
			Horizon:                time.Duration(conf.HorizonDays) * 24 * time.Hour,
			MaxOccurrencesPerEvent: conf.MaxOccurrencesPerEvent,
		},
		Metrics: rec,
	})

	for _, src := range startupSources(conf, flags.imports) {
		added, err := sh.Import(ctx, src)
		if err != nil {
			// A broken source should not keep the menu from starting.
			appLog.Error("startup import failed", err, "id", src.ID)
			fmt.Fprintf(out, "Error: import of %s failed: %v\n", src.ID, err)
			continue
		}
		appLog.Info("startup import done", "id", src.ID, "added", added)
	}

	if err := sh.Run(ctx); err != nil {
		return err
	}
	appLog.Info("evsched exiting", "events", store.Len())
	return nil
}

// startupSources lists config imports first, then --import flags.
func startupSources(conf *config.Config, extra []string) []ics.Source {
	sources := make([]ics.Source, 0, len(conf.Imports)+len(extra))
	for _, imp := range conf.Imports {
		if imp.Path == "" {
			continue
		}
		sources = append(sources, ics.Source{ID: imp.ID, Path: imp.Path})
	}
	for _, p := range extra {
		sources = append(sources, ics.Source{ID: p, Path: p})
	}
	return sources
}
