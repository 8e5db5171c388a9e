package service

import (
	"context"

	"sapcontrol-keeper/cmd/root"

	"github.com/spf13/cobra"
)

var statusFlags root.EndpointFlags

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Check whether sapcontrol answers",
	Long:  "Prints true if the sapcontrol web service of the instance is reachable, exits with 2 otherwise.",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		root.Exit(serviceStatus(context.Background()))
	},
}

func serviceStatus(ctx context.Context) (bool, error) {
	ep, err := statusFlags.Endpoint()
	if err != nil {
		return false, err
	}
	sap, err := root.NewSAPControl(ctx)
	if err != nil {
		return false, err
	}
	ok, err := sap.Status(ctx, ep)
	if err != nil {
		return false, err
	}
	root.PrintJSON(ok)
	return ok, nil
}

func init() {
	statusFlags.Register(statusCmd)
	serviceCmd.AddCommand(statusCmd)
}
