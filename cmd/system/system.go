package system

import (
	"context"

	"sapcontrol-keeper/cmd/root"
	"sapcontrol-keeper/internal/models"
	"sapcontrol-keeper/services"

	"github.com/spf13/cobra"
)

var systemCmd = &cobra.Command{
	Use:   "system",
	Short: "System operations (start/stop/list)",
	Long: `System operations act on all instances of the SAP system through the sapcontrol
of one of its instances.`,
}

const systemExample = `  # start all instances of the system, wait up to 20 minutes
  sapctl-keeper system start --nr 00 --timeout 20m

  # stop only the ABAP instances
  sapctl-keeper system stop --level abap`

var flags root.EndpointFlags

func setup(ctx context.Context) (*services.SAPControl, models.InstanceEndpoint, error) {
	ep, err := flags.Endpoint()
	if err != nil {
		return nil, ep, err
	}
	sap, err := root.NewSAPControl(ctx)
	if err != nil {
		return nil, ep, err
	}
	return sap, ep, nil
}

func init() {
	root.RootCmd.AddCommand(systemCmd)

	systemCmd.Example = systemExample
	flags.RegisterPersistent(systemCmd)
}
