package instance

import (
	"context"
	"time"

	"sapcontrol-keeper/cmd/root"
	"sapcontrol-keeper/internal/models"
	"sapcontrol-keeper/services"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the dispstatus of the instance",
	Long:  "Prints running, stopped, transitioning or error. Unreachable instances report error.",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		root.Exit(instanceStatus(context.Background()))
	},
}

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the instance and wait until it is running",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		root.Exit(control(context.Background(), (*services.SAPControl).InstanceStart))
	},
}

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the instance and wait until it is stopped",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		root.Exit(control(context.Background(), (*services.SAPControl).InstanceStop))
	},
}

// setup resolves the endpoint flags and builds the execution module.
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

func instanceStatus(ctx context.Context) (bool, error) {
	sap, ep, err := setup(ctx)
	if err != nil {
		return false, err
	}
	status, err := sap.InstanceStatus(ctx, ep)
	if err != nil {
		return false, err
	}
	root.PrintJSON(status)
	return status == models.StatusRunning, nil
}

type controlFunc func(*services.SAPControl, context.Context, models.InstanceEndpoint, time.Duration) (bool, error)

func control(ctx context.Context, fn controlFunc) (bool, error) {
	sap, ep, err := setup(ctx)
	if err != nil {
		return false, err
	}
	ok, err := fn(sap, ctx, ep, ep.Timeout)
	if err != nil {
		return false, err
	}
	root.PrintJSON(ok)
	return ok, nil
}

func init() {
	instanceCmd.AddCommand(statusCmd)
	instanceCmd.AddCommand(startCmd)
	instanceCmd.AddCommand(stopCmd)
}
