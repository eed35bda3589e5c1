package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/nodegrid/nodegrid/pkg/api"
	"github.com/nodegrid/nodegrid/pkg/config"
	"github.com/nodegrid/nodegrid/pkg/console"
	"github.com/nodegrid/nodegrid/pkg/credential"
	"github.com/nodegrid/nodegrid/pkg/engine"
	"github.com/nodegrid/nodegrid/pkg/heartbeat"
	"github.com/nodegrid/nodegrid/pkg/lifecycle"
	"github.com/nodegrid/nodegrid/pkg/log"
	"github.com/nodegrid/nodegrid/pkg/metrics"
	"github.com/nodegrid/nodegrid/pkg/network"
	"github.com/nodegrid/nodegrid/pkg/rotation"
	"github.com/nodegrid/nodegrid/pkg/update"
)

var (
	// Version information (set via ldflags during build)
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "nodegrid-agent",
	Short: "Nodegrid agent - per-host container orchestration for the nodegrid panel",
	Long: `The nodegrid agent runs on every host in a nodegrid fleet. It manages
workload containers on behalf of the central panel, streams live consoles,
reports host metrics, rotates its own credential and updates itself.`,
	Version: Version,
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"nodegrid-agent version %s\nCommit: %s\nBuilt: %s\n",
		Version, Commit, BuildTime,
	))

	rootCmd.AddCommand(runCmd)
	runCmd.Flags().String("config", config.DefaultPath, "Path to the agent config file")
	runCmd.Flags().String("log-level", "info", "Log level (debug, info, warn, error)")
	runCmd.Flags().Bool("log-json", false, "Emit JSON logs instead of console output")
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the node agent",
	Long: `Start the agent: connect to the local container engine, serve the
panel-facing API and begin heartbeating.

Configuration comes from the config file (--config, default config.yml);
when that is missing, the NODEGRID_TOKEN, NODEGRID_NODE_ID, NODEGRID_PANEL_URL
and NODEGRID_PORT environment variables are used instead.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfgPath, _ := cmd.Flags().GetString("config")
		level, _ := cmd.Flags().GetString("log-level")
		jsonOut, _ := cmd.Flags().GetBool("log-json")

		log.Init(log.Config{Level: log.Level(level), JSONOutput: jsonOut})
		logger := log.WithComponent("agent")

		cfg, err := config.Load(cfgPath)
		if err != nil {
			logger.Warn().Err(err).Msg("config file unavailable, falling back to environment")
			cfg, err = config.FromEnv()
			if err != nil {
				return err
			}
		}

		if err := cfg.ApplyAutoLimits(); err != nil {
			return fmt.Errorf("failed to derive resource limits: %w", err)
		}

		logger.Info().
			Str("node_id", cfg.NodeID).
			Str("panel_url", cfg.PanelURL).
			Int("port", cfg.Port).
			Uint64("ram_limit_mb", cfg.RAMLimitMB).
			Uint64("disk_limit_mb", cfg.DiskLimitMB).
			Msg("starting nodegrid agent")

		eng, err := engine.NewDockerEngine()
		if err != nil {
			return fmt.Errorf("failed to connect to container engine: %w", err)
		}
		defer eng.Close()

		creds := credential.NewStore(cfg.Token)
		manager := lifecycle.NewManager(eng, network.NewPortChecker(), log.WithComponent("lifecycle"))
		bridge := console.NewBridge(eng, log.WithComponent("console"))
		rotator := rotation.NewRotator(creds, cfg, cfgPath, nil, log.WithComponent("rotation"))
		updater := update.NewUpdater(cfg.PanelURL, log.WithComponent("update"))

		sampler := heartbeat.NewHostSampler(cfg.NodeID, Version)
		reporter := heartbeat.NewReporter(sampler, creds, cfg.PanelURL, cfg.NodeID, log.WithComponent("heartbeat"))
		reporter.SetOnPush(func(err error) {
			metrics.HeartbeatPushes.WithLabelValues(metrics.Outcome(err)).Inc()
		})

		server := api.NewServer(api.Config{
			Manager: manager,
			Bridge:  bridge,
			Rotator: rotator,
			Updater: updater,
			Creds:   creds,
			Version: Version,
			Logger:  log.WithComponent("api"),
		})

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		go reporter.Run(ctx)

		errCh := make(chan error, 1)
		go func() {
			errCh <- server.Start(cfg.Port)
		}()

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

		select {
		case err := <-errCh:
			return err
		case sig := <-sigCh:
			logger.Info().Str("signal", sig.String()).Msg("shutting down")
		}

		cancel()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer shutdownCancel()
		return server.Stop(shutdownCtx)
	},
}
