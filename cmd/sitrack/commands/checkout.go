package commands

import (
	"strconv"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/crisisops/sitrack/errors"
	"github.com/crisisops/sitrack/track"
)

// CheckOutCmd releases an entity from its target.
var CheckOutCmd = &cobra.Command{
	Use:   "checkout <type> <id> [target-type target-id]",
	Short: "Release an entity from its target",
	Long: `Check an entity out. The entity's position is frozen at the
target's location at the moment of release. Without a target, releases
whatever the entity is currently bound to; with one, releases only a
binding to that specific target.

Examples:
  sitrack checkout persons 3               # Leave whatever person 3 is in
  sitrack checkout persons 3 vehicles 7    # Leave vehicle 7 specifically`,
	Args: cobra.RangeArgs(2, 4),
	RunE: runCheckOut,
}

var (
	checkOutAt     string
	checkOutDBPath string
)

func init() {
	CheckOutCmd.Flags().StringVar(&checkOutAt, "at", "", "Record at this RFC 3339 timestamp instead of now")
	CheckOutCmd.Flags().StringVar(&checkOutDBPath, "db-path", "", "Custom database path (overrides config)")
}

func runCheckOut(cmd *cobra.Command, args []string) error {
	if len(args) == 3 {
		return errors.New("target requires both a type and an id")
	}
	typeName, id, err := parseEntityArgs(args)
	if err != nil {
		return err
	}
	at, err := parseAtFlag(checkOutAt)
	if err != nil {
		return err
	}

	var target *track.Interlock
	if len(args) == 4 {
		targetID, err := strconv.ParseInt(args[3], 10, 64)
		if err != nil {
			return errors.Newf("target id must be an integer, got %q", args[3])
		}
		target = &track.Interlock{Type: args[2], ID: track.RecordID(targetID)}
	}

	eng, err := openEngine(checkOutDBPath)
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

	if err := tb.CheckOut(ctx, target, at); err != nil {
		return err
	}
	pterm.Success.Printf("%s %d checked out\n", typeName, id)
	return nil
}
