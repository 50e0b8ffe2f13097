package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/crisisops/sitrack/cmd/sitrack/commands"
	"github.com/crisisops/sitrack/config"
	"github.com/crisisops/sitrack/logger"
)

var rootCmd = &cobra.Command{
	Use:   "sitrack",
	Short: "sitrack - Entity location tracking for field operations",
	Long: `sitrack - Entity location tracking for field operations.

Tracks where people, vehicles and assets are: absolute position reports,
check-in to other entities (a medic checks in to an ambulance, the
ambulance to a convoy), and point-in-time location queries that follow
those chains.

Available commands:
  serve    - Start the HTTP API and presence WebSocket feed
  locate   - Resolve an entity's location at a point in time
  checkin  - Bind an entity's position to a target entity
  checkout - Release an entity from its target
  setloc   - Record an absolute position report
  db       - Manage the tracking database
  config   - Show and update configuration

Examples:
  sitrack serve                          # Start the API server
  sitrack locate persons 3               # Where is person 3 now?
  sitrack checkin persons 3 vehicles 7   # Person 3 boards vehicle 7
  sitrack db stats                       # Row counts and database path`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		jsonLogs, _ := cmd.Flags().GetBool("json-logs")
		if !cmd.Flags().Changed("json-logs") {
			if cfg, err := config.Load(); err == nil {
				jsonLogs = cfg.Logging.JSON
			}
		}
		return logger.Initialize(jsonLogs)
	},
}

func init() {
	rootCmd.PersistentFlags().Bool("json-logs", false, "Emit logs as JSON instead of console output")

	rootCmd.AddCommand(commands.ServeCmd)
	rootCmd.AddCommand(commands.LocateCmd)
	rootCmd.AddCommand(commands.CheckInCmd)
	rootCmd.AddCommand(commands.CheckOutCmd)
	rootCmd.AddCommand(commands.SetLocCmd)
	rootCmd.AddCommand(commands.DbCmd)
	rootCmd.AddCommand(commands.ConfigCmd)
	rootCmd.AddCommand(commands.VersionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
