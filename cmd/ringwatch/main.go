package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/ringwatch/ringwatch/internal/config"
	"github.com/ringwatch/ringwatch/internal/logging"
	"github.com/ringwatch/ringwatch/internal/monitor"
	"github.com/ringwatch/ringwatch/internal/remote"
	"github.com/ringwatch/ringwatch/internal/sink"
)

// Version information (set at build time with -ldflags)
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

var (
	configPath string
	logLevel   string
	logFormat  string
)

var rootCmd = &cobra.Command{
	Use:     "ringwatch",
	Short:   "Ringwatch - agentless Cassandra ring health monitor",
	Long:    `Runs 'nodetool ring' on configured Cassandra nodes over ssh, parses the output into per-node status records and pushes the resulting health metrics to a Prometheus Pushgateway. Intended to run from cron or a systemd timer.`,
	Version: Version,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runOnce()
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("ringwatch %s\n", Version)
		if BuildTime != "unknown" {
			fmt.Printf("Built: %s\n", BuildTime)
		}
		if GitCommit != "unknown" {
			fmt.Printf("Commit: %s\n", GitCommit)
		}
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
	rootCmd.PersistentFlags().StringVar(&configPath, "config", config.DefaultConfigPath, "Path to configuration file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level override (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "Log format override (json, console, auto)")
	rootCmd.SilenceUsage = true
	rootCmd.SilenceErrors = true
}

func runOnce() error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	if logFormat != "" {
		cfg.Log.Format = logFormat
	}
	logging.Init(logging.Config{
		Level:     cfg.Log.Level,
		Format:    cfg.Log.Format,
		Component: "ringwatch",
	})

	log.Info().
		Str("version", Version).
		Str("pushgateway", cfg.PushgatewayURL).
		Int("targets", len(cfg.Targets)).
		Msg("Starting ringwatch")

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	pushSink := sink.NewPushSink(cfg.PushgatewayURL, cfg.JobName)
	metrics := monitor.NewRunMetrics(pushSink.Registry())
	executor := remote.NewSSHExecutor(cfg.SSH.User, cfg.SSH.IdentityFile, cfg.SSH.ConnectTimeoutSec)

	coordinator := monitor.New(cfg, executor, remote.ICMPPinger{}, pushSink, metrics)
	result := coordinator.Run(ctx)

	for _, outcome := range result.Outcomes {
		if outcome.Success {
			continue
		}
		log.Error().
			Str("target", outcome.Target.Name).
			Err(outcome.Err).
			Msg("Target failed")
	}
	if result.Failed() {
		return fmt.Errorf("run %s completed with failures", result.RunID)
	}
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
