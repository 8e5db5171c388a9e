package service

import (
	"context"

	"sapcontrol-keeper/cmd/root"

	"github.com/spf13/cobra"
)

var (
	startFlags root.EndpointFlags
	startSID   string
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start sapstartsrv and wait until sapcontrol answers",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		root.Exit(startService(context.Background()))
	},
}

/**
 * Start the sapstartsrv of an instance
 * @param {context.Context} ctx - Context for cancellation
 * @returns {bool} True once sapcontrol answers within the timeout
 * @returns {error} Configuration or platform errors
 * @description
 * - Runs "sapcontrol -nr NN -function StartService SID" as the sapcontrol user
 * - Polls the web service until it is reachable
 */
func startService(ctx context.Context) (bool, error) {
	ep, err := startFlags.Endpoint()
	if err != nil {
		return false, err
	}
	sap, err := root.NewSAPControl(ctx)
	if err != nil {
		return false, err
	}
	ok, err := sap.Start(ctx, startSID, ep, ep.Timeout)
	if err != nil {
		return false, err
	}
	root.PrintJSON(ok)
	return ok, nil
}

func init() {
	startFlags.Register(startCmd)
	startCmd.Flags().StringVar(&startSID, "sid", "", "SAP system ID passed to StartService")
	serviceCmd.AddCommand(startCmd)
}
