package service

import (
	"context"

	"sapcontrol-keeper/cmd/root"

	"github.com/spf13/cobra"
)

var stopFlags root.EndpointFlags

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop sapstartsrv and wait until sapcontrol stops answering",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		root.Exit(stopService(context.Background()))
	},
}

func stopService(ctx context.Context) (bool, error) {
	ep, err := stopFlags.Endpoint()
	if err != nil {
		return false, err
	}
	sap, err := root.NewSAPControl(ctx)
	if err != nil {
		return false, err
	}
	ok, err := sap.Stop(ctx, ep, ep.Timeout)
	if err != nil {
		return false, err
	}
	root.PrintJSON(ok)
	return ok, nil
}

func init() {
	stopFlags.Register(stopCmd)
	serviceCmd.AddCommand(stopCmd)
}
