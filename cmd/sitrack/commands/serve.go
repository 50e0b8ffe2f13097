package commands

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/crisisops/sitrack/config"
	"github.com/crisisops/sitrack/domain"
	"github.com/crisisops/sitrack/errors"
	"github.com/crisisops/sitrack/logger"
	"github.com/crisisops/sitrack/server"
)

// ServeCmd starts the tracking API server.
var ServeCmd = &cobra.Command{
	Use:     "serve",
	Aliases: []string{"server"},
	Short:   "Start the HTTP API and presence WebSocket feed",
	Long: `Start the tracking server: a JSON API for position reports and
queries, and a WebSocket feed that pushes every accepted presence event
to connected clients.`,
	RunE: runServe,
}

var (
	serveDBPath   string
	serveFixtures string
)

func init() {
	ServeCmd.Flags().StringVar(&serveDBPath, "db-path", "", "Custom database path (overrides config)")
	ServeCmd.Flags().StringVar(&serveFixtures, "fixtures", "", "Load a YAML fixtures file before serving")
}

func runServe(cmd *cobra.Command, args []string) error {
	eng, err := openEngine(serveDBPath)
	if err != nil {
		return err
	}
	defer eng.Close()

	fixtures := serveFixtures
	if fixtures == "" {
		fixtures = eng.cfg.Tracking.FixturesPath
	}
	if fixtures != "" {
		if err := domain.LoadFixturesFile(cmd.Context(), eng.store, eng.locations, fixtures); err != nil {
			return errors.Wrap(err, "failed to load fixtures")
		}
		pterm.Info.Printf("Loaded fixtures from %s\n", fixtures)
	}

	srv := server.New(eng.db, eng.tracker, eng.store, eng.locations, eng.cfg, logger.Logger)

	setupConfigWatcher(eng)

	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.Start()
	}()

	pterm.Success.Printf("Tracking server listening on port %d\n", eng.cfg.GetServerPort())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errChan:
		return errors.Wrap(err, "server failed")
	case <-sigChan:
		pterm.Info.Println("\nShutting down...")
		if w := config.GetGlobalWatcher(); w != nil {
			w.Stop()
		}
		if err := srv.Shutdown(); err != nil {
			return errors.Wrap(err, "shutdown")
		}
		pterm.Success.Println("Server stopped cleanly")
		return nil
	}
}

// setupConfigWatcher reloads runtime tracking knobs when the config file
// changes on disk.
func setupConfigWatcher(eng *engine) {
	configPath := config.ActiveConfigFile()
	if configPath == "" {
		logger.Infow("No config file found, config watching disabled")
		return
	}

	watcher, err := config.NewWatcher(configPath)
	if err != nil {
		logger.Warnw("Failed to create config watcher, restart required for config changes",
			"error", err)
		return
	}
	config.SetGlobalWatcher(watcher)

	watcher.OnReload(func(cfg *config.Config) error {
		if cfg.Tracking.MaxChainDepth > 0 {
			eng.tracker.SetMaxChainDepth(cfg.Tracking.MaxChainDepth)
			logger.Infow("Applied reloaded tracking config",
				"max_chain_depth", cfg.Tracking.MaxChainDepth)
		}
		return nil
	})

	watcher.Start()
	logger.Infow("Config watcher started",
		"path", configPath)
}
