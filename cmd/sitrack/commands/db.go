package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/crisisops/sitrack/config"
	"github.com/crisisops/sitrack/errors"
)

// DbCmd groups database operations.
var DbCmd = &cobra.Command{
	Use:   "db",
	Short: "Manage the tracking database",
	Long: `Manage database operations.

Examples:
  sitrack db stats     # Row counts and database path
  sitrack db migrate   # Apply pending schema migrations`,
}

var dbStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show database statistics",
	Long:  "Display row counts for the tracking tables and the resolved database path.",
	RunE:  runDbStats,
}

var dbMigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending schema migrations",
	RunE:  runDbMigrate,
}

var dbPathFlag string

func init() {
	DbCmd.PersistentFlags().StringVar(&dbPathFlag, "db-path", "", "Custom database path (overrides config)")
	DbCmd.AddCommand(dbStatsCmd)
	DbCmd.AddCommand(dbMigrateCmd)
}

func runDbStats(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return errors.Wrap(err, "failed to load configuration")
	}

	database, err := openDatabase(dbPathFlag)
	if err != nil {
		return err
	}
	defer database.Close()

	counts := []struct {
		label string
		query string
	}{
		{"Trackables", "SELECT COUNT(*) FROM trackables"},
		{"Presence records", "SELECT COUNT(*) FROM presence"},
		{"  of which deleted", "SELECT COUNT(*) FROM presence WHERE deleted = 1"},
		{"Locations", "SELECT COUNT(*) FROM locations"},
		{"Persons", "SELECT COUNT(*) FROM persons"},
		{"Vehicles", "SELECT COUNT(*) FROM vehicles"},
		{"Assets", "SELECT COUNT(*) FROM assets"},
		{"Facilities", "SELECT COUNT(*) FROM facilities"},
	}

	path := dbPathFlag
	if path == "" {
		path = cfg.GetDatabasePath()
	}

	fmt.Println("Database Statistics")
	fmt.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	fmt.Printf("Database Path: %s\n\n", path)

	for _, c := range counts {
		var n int64
		if err := database.QueryRowContext(cmd.Context(), c.query).Scan(&n); err != nil {
			return errors.Wrapf(err, "failed to count %s", c.label)
		}
		fmt.Printf("%-20s %d\n", c.label+":", n)
	}
	return nil
}

func runDbMigrate(cmd *cobra.Command, args []string) error {
	// OpenWithMigrations applies anything pending.
	database, err := openDatabase(dbPathFlag)
	if err != nil {
		return err
	}
	defer database.Close()

	fmt.Println("Migrations applied")
	return nil
}
