package system

import (
	"context"

	"sapcontrol-keeper/cmd/root"
	"sapcontrol-keeper/internal/models"

	"github.com/spf13/cobra"
)

var level string

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the system and wait until all instances run",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		root.Exit(controlSystem(context.Background(), true))
	},
}

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the system and wait until all instances are stopped",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		root.Exit(controlSystem(context.Background(), false))
	},
}

/**
 * Start or stop the whole system
 * @param {context.Context} ctx - Context for cancellation
 * @param {bool} start - Start if true, stop otherwise
 * @returns {bool} True if the system reached the target state within the timeout
 * @returns {error} Invalid level, platform or unexpected remote errors
 */
func controlSystem(ctx context.Context, start bool) (bool, error) {
	lvl, err := models.ParseSystemLevel(level)
	if err != nil {
		return false, err
	}
	sap, ep, err := setup(ctx)
	if err != nil {
		return false, err
	}
	var ok bool
	if start {
		ok, err = sap.SystemStart(ctx, ep, lvl, ep.Timeout)
	} else {
		ok, err = sap.SystemStop(ctx, ep, lvl, ep.Timeout)
	}
	if err != nil {
		return false, err
	}
	root.PrintJSON(ok)
	return ok, nil
}

func init() {
	for _, c := range []*cobra.Command{startCmd, stopCmd} {
		c.Flags().StringVarP(&level, "level", "l", "", "instances to act on: all, scs, dialog, abap, j2ee, trex, enqrep, hdb, allnohdb")
		systemCmd.AddCommand(c)
	}
}
