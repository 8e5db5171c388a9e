package instance

import (
	"context"

	"sapcontrol-keeper/cmd/root"

	"github.com/spf13/cobra"
)

var propertiesCmd = &cobra.Command{
	Use:   "properties",
	Short: "Show the instance properties (SAPSYSTEMNAME, SAPLOCALHOST, ...)",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		root.Exit(instanceProperties(context.Background()))
	},
}

func instanceProperties(ctx context.Context) (bool, error) {
	sap, ep, err := setup(ctx)
	if err != nil {
		return false, err
	}
	props, err := sap.InstanceProperties(ctx, ep)
	if err != nil {
		return false, err
	}
	root.PrintJSON(props)
	return true, nil
}

func init() {
	instanceCmd.AddCommand(propertiesCmd)
}
