package commands

import (
	"fmt"
	"strconv"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/crisisops/sitrack/config"
	"github.com/crisisops/sitrack/errors"
)

// ConfigCmd groups configuration operations.
var ConfigCmd = &cobra.Command{
	Use:   "config",
	Short: "Show and update configuration",
	Long: `Show the effective configuration or persist overrides to
~/.sitrack/override.toml.

Examples:
  sitrack config show
  sitrack config set server.port 9000
  sitrack config set tracking.max_chain_depth 32
  sitrack config set database.path /var/lib/sitrack/ops.db`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return errors.Wrap(err, "failed to load configuration")
		}
		fmt.Println(cfg.String())
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Persist a configuration override",
	Args:  cobra.ExactArgs(2),
	RunE:  runConfigSet,
}

func init() {
	ConfigCmd.AddCommand(configShowCmd)
	ConfigCmd.AddCommand(configSetCmd)
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	key, value := args[0], args[1]

	switch key {
	case "server.port":
		port, err := strconv.Atoi(value)
		if err != nil {
			return errors.Newf("port must be an integer, got %q", value)
		}
		if err := config.UpdateServerPort(port); err != nil {
			return err
		}
	case "tracking.max_chain_depth":
		depth, err := strconv.Atoi(value)
		if err != nil {
			return errors.Newf("depth must be an integer, got %q", value)
		}
		if err := config.UpdateTrackingMaxChainDepth(depth); err != nil {
			return err
		}
	case "database.path":
		if err := config.UpdateDatabasePath(value); err != nil {
			return err
		}
	default:
		return errors.Newf("unknown configuration key %q", key)
	}

	pterm.Success.Printf("Saved %s = %s to %s\n", key, value, config.GetOverridePath())
	return nil
}
