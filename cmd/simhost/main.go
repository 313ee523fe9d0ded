package main

import (
	"fmt"
	"os"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/go-echarts/statsview"
	"github.com/go-echarts/statsview/viewer"
	"github.com/san-kum/simhost/internal/config"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	dataDir    string
	configFile string
	logLevel   string
	statsAddr  string

	duration  float64
	fps       int
	timeScale float64
	script    string
	debugDraw bool
	noSave    bool

	plotColumn string
	tolerance  float64

	log = logrus.New()
	cfg *config.Config
)

// main registers the simhost commands and executes the root command,
// exiting with status 1 on error.
func main() {
	rootCmd := &cobra.Command{
		Use:               "simhost",
		Short:             "fixed-step physics simulation host",
		SilenceUsage:      true,
		PersistentPreRunE: setup,
		PersistentPostRun: func(cmd *cobra.Command, args []string) { sentry.Flush(2 * time.Second) },
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".simhost", "data directory")
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path (yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (overrides config)")
	rootCmd.PersistentFlags().StringVar(&statsAddr, "statsview", "", "serve runtime stats on this address")

	runCmd := &cobra.Command{
		Use:   "run [preset]",
		Short: "run a scene headless and record it",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runHeadless,
	}
	sessionFlags(runCmd)
	runCmd.Flags().BoolVar(&noSave, "no-save", false, "do not record the run")

	liveCmd := &cobra.Command{
		Use:   "live [preset]",
		Short: "run a scene with the live console",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runLive,
	}
	sessionFlags(liveCmd)

	debugCmd := &cobra.Command{
		Use:   "debug-server [preset]",
		Short: "run a scene and stream its debug geometry over websocket",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runDebugServer,
	}
	sessionFlags(debugCmd)

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list recorded runs",
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot a recorded run",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}
	plotCmd.Flags().StringVar(&plotColumn, "column", "", "plot only this column")

	exportCmd := &cobra.Command{
		Use:   "export [run_id]",
		Short: "export a recorded run as json",
		Args:  cobra.ExactArgs(1),
		RunE:  exportRun,
	}

	analyzeCmd := &cobra.Command{
		Use:   "analyze [run_id]",
		Short: "settling and frequency analysis of a recorded run",
		Args:  cobra.ExactArgs(1),
		RunE:  analyzeRun,
	}
	analyzeCmd.Flags().Float64Var(&tolerance, "tolerance", 0.01, "settling tolerance")

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list scene presets",
		RunE:  listPresets,
	}

	configCmd := &cobra.Command{
		Use:   "config [path]",
		Short: "write the effective configuration as yaml",
		Args:  cobra.MaximumNArgs(1),
		RunE:  writeConfig,
	}

	rootCmd.AddCommand(runCmd, liveCmd, debugCmd, listCmd, plotCmd, exportCmd, analyzeCmd, presetsCmd, configCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func sessionFlags(cmd *cobra.Command) {
	cmd.Flags().Float64Var(&duration, "time", 0, "duration in seconds (overrides config)")
	cmd.Flags().IntVar(&fps, "fps", 0, "render frame rate (overrides config)")
	cmd.Flags().Float64Var(&timeScale, "time-scale", 0, "simulation time scale, clamped to [0.1, 1]")
	cmd.Flags().StringVar(&script, "script", "", "action script (yaml)")
	cmd.Flags().BoolVar(&debugDraw, "debug", false, "serve debug geometry while running")
}

// setup loads the configuration and brings up logging, error reporting and
// the optional stats viewer.
func setup(cmd *cobra.Command, args []string) error {
	var err error
	if configFile != "" {
		cfg, err = config.Load(configFile)
		if err != nil {
			return err
		}
	} else {
		cfg = config.DefaultConfig()
	}

	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	level, err := logrus.ParseLevel(cfg.Log.Level)
	if err != nil {
		return fmt.Errorf("log level: %w", err)
	}
	log.SetLevel(level)
	if cfg.Log.Format == "json" {
		log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		log.SetFormatter(&logrus.TextFormatter{
			TimestampFormat: "2006-01-02 15:04:05",
			FullTimestamp:   true,
		})
	}

	if err := sentry.Init(sentry.ClientOptions{Dsn: cfg.Log.SentryDSN}); err != nil {
		log.WithError(err).Warn("sentry disabled")
	}

	if statsAddr != "" {
		// set configurations before calling statsview.New()
		viewer.SetConfiguration(viewer.WithTheme(viewer.ThemeWesteros), viewer.WithAddr(statsAddr))
		mgr := statsview.New()
		go mgr.Start()
		log.WithField("addr", statsAddr).Info("statsview started")
	}
	return nil
}
