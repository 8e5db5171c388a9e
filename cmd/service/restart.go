package service

import (
	"context"

	"sapcontrol-keeper/cmd/root"

	"github.com/spf13/cobra"
)

var (
	restartFlags root.EndpointFlags
	restartSID   string
)

var restartCmd = &cobra.Command{
	Use:   "restart",
	Short: "Restart sapstartsrv, or start it if it is not running",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		root.Exit(restartService(context.Background()))
	},
}

func restartService(ctx context.Context) (bool, error) {
	ep, err := restartFlags.Endpoint()
	if err != nil {
		return false, err
	}
	sap, err := root.NewSAPControl(ctx)
	if err != nil {
		return false, err
	}
	ok, err := sap.Restart(ctx, restartSID, ep, ep.Timeout)
	if err != nil {
		return false, err
	}
	root.PrintJSON(ok)
	return ok, nil
}

func init() {
	restartFlags.Register(restartCmd)
	restartCmd.Flags().StringVar(&restartSID, "sid", "", "SAP system ID, used if sapstartsrv has to be started")
	serviceCmd.AddCommand(restartCmd)
}
