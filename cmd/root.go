package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/tphakala/slrealizer/cmd/config"
	"github.com/tphakala/slrealizer/cmd/draw"
	"github.com/tphakala/slrealizer/cmd/export"
	"github.com/tphakala/slrealizer/cmd/object"
	"github.com/tphakala/slrealizer/cmd/paint"
	"github.com/tphakala/slrealizer/cmd/run"
	"github.com/tphakala/slrealizer/cmd/source"
	"github.com/tphakala/slrealizer/internal/buildinfo"
	"github.com/tphakala/slrealizer/internal/conf"
	"github.com/tphakala/slrealizer/internal/errors"
	"github.com/tphakala/slrealizer/internal/logger"
	"github.com/tphakala/slrealizer/internal/observability"
	"github.com/tphakala/slrealizer/internal/pipeline"
)

const sentryFlushTimeout = 2 * time.Second

// RootCommand creates and returns the root command
func RootCommand(bi buildinfo.BuildInfo) *cobra.Command {
	rt := &pipeline.Runtime{}
	var configPath string

	rootCmd := &cobra.Command{
		Use:          "slrealizer",
		Short:        "SLRealizer mock lensed quasar catalog builder",
		Long:         "Realize lens systems against a survey observation history and build source and object tables.",
		Version:      bi.GetVersion(),
		SilenceUsage: true,
	}

	// Set up the global flags for the root command.
	setupFlags(rootCmd, &configPath)

	rootCmd.AddCommand(
		source.Command(rt),
		object.Command(rt),
		run.Command(rt),
		draw.Command(rt),
		paint.Command(rt),
		export.Command(rt),
		config.Command(rt),
	)

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		// Bind only the executing command's flags so that commands sharing a
		// settings key do not override each other
		if err := conf.BindFlags(cmd); err != nil {
			return err
		}
		return initialize(cmd, rt, bi, configPath)
	}

	rootCmd.PersistentPostRunE = func(cmd *cobra.Command, args []string) error {
		if rt.Settings != nil && rt.Settings.Telemetry.Enabled {
			errors.FlushSentry(sentryFlushTimeout)
		}
		return logger.Global().Close()
	}

	return rootCmd
}

// initialize loads settings and sets up logging, telemetry and metrics
// before any subcommand runs
func initialize(cmd *cobra.Command, rt *pipeline.Runtime, bi buildinfo.BuildInfo, configPath string) error {
	settings, err := conf.Load(configPath)
	if err != nil {
		return err
	}
	settings.Version = bi.GetVersion()
	settings.BuildDate = bi.GetBuildDate()

	if settings.Debug {
		settings.Logging.DefaultLevel = "debug"
		if settings.Logging.Console != nil {
			settings.Logging.Console.Level = "debug"
		}
	}
	cl, err := logger.NewCentralLogger(&settings.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	logger.SetGlobal(cl)

	if settings.Telemetry.Enabled {
		if err := errors.InitSentry(settings.Telemetry.DSN, settings.Version); err != nil {
			return err
		}
		errors.SetTelemetryReporter(errors.NewSentryReporter(true))
	}

	m, err := observability.NewMetrics()
	if err != nil {
		return err
	}

	rt.Settings = settings
	rt.Metrics = m
	rt.Logger = pipeline.GetLogger()
	rt.Out = cmd.OutOrStdout()

	rt.Logger.Debug("settings loaded",
		logger.String("version", settings.Version),
		logger.String("build_date", settings.BuildDate),
		logger.String("command", cmd.CommandPath()))
	return nil
}

// setupFlags defines flags that are global to the command line interface
func setupFlags(rootCmd *cobra.Command, configPath *string) {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(configPath, "config", "", "Path to config file, default searches ./config.yaml and the user config directory")

	pf.BoolP("debug", "d", false, "Enable debug output")
	conf.FlagKey(pf, "debug", "debug")
	pf.Uint64("seed", 0, "Base seed, identical seeds give identical tables")
	conf.FlagKey(pf, "seed", "realize.seed")
	pf.IntP("workers", "w", 0, "Number of realization workers, 0 picks one per performance core")
	conf.FlagKey(pf, "workers", "realize.workers")
	pf.String("method", "", "Render method: pixel or analytic")
	conf.FlagKey(pf, "method", "realize.method")
	pf.Bool("datastore", false, "Store tables in the configured database")
	conf.FlagKey(pf, "datastore", "datastore.enabled")
	pf.String("metrics-textfile", "", "Write batch metrics to this Prometheus textfile")
	conf.FlagKey(pf, "metrics-textfile", "metrics.textfile")
}
