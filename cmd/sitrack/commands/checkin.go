package commands

import (
	"strconv"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/crisisops/sitrack/errors"
	"github.com/crisisops/sitrack/track"
)

// CheckInCmd binds an entity's position to a target entity.
var CheckInCmd = &cobra.Command{
	Use:   "checkin <type> <id> <target-type> <target-id>",
	Short: "Bind an entity's position to a target entity",
	Long: `Check an entity in to a target. From then on the entity's
location resolves through the target, until it checks out.

Examples:
  sitrack checkin persons 3 vehicles 7     # Person 3 boards vehicle 7
  sitrack checkin vehicles 7 facilities 2  # Vehicle 7 parks at facility 2`,
	Args: cobra.ExactArgs(4),
	RunE: runCheckIn,
}

var (
	checkInAt     string
	checkInDBPath string
)

func init() {
	CheckInCmd.Flags().StringVar(&checkInAt, "at", "", "Record at this RFC 3339 timestamp instead of now")
	CheckInCmd.Flags().StringVar(&checkInDBPath, "db-path", "", "Custom database path (overrides config)")
}

func runCheckIn(cmd *cobra.Command, args []string) error {
	typeName, id, err := parseEntityArgs(args)
	if err != nil {
		return err
	}
	targetID, err := strconv.ParseInt(args[3], 10, 64)
	if err != nil {
		return errors.Newf("target id must be an integer, got %q", args[3])
	}
	at, err := parseAtFlag(checkInAt)
	if err != nil {
		return err
	}

	eng, err := openEngine(checkInDBPath)
	if err != nil {
		return err
	}
	defer eng.Close()

	ctx := cmd.Context()
	tb, err := eng.tracker.ByID(ctx, typeName, id)
	if err != nil {
		return err
	}
	if tb.Len() == 0 {
		return errors.Newf("no %s record with id %d", typeName, id)
	}

	if err := tb.CheckIn(ctx, args[2], track.RecordID(targetID), at); err != nil {
		return err
	}
	pterm.Success.Printf("%s %d checked in to %s %d\n", typeName, id, args[2], targetID)
	return nil
}
