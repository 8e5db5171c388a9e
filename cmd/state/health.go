package state

import (
	"context"

	"sapcontrol-keeper/states"

	"github.com/spf13/cobra"
)

var healthArgs states.HealthArgs

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check system log and work processes of the system",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		printResults(single(context.Background(), func(ctx context.Context, r *states.Runner) (states.Result, error) {
			healthArgs.Username, healthArgs.Password = credentials(healthArgs.Username, healthArgs.Password)
			return r.SystemHealthOK(ctx, healthArgs)
		}))
	},
}

func init() {
	healthCmd.Flags().StringVar(&healthArgs.Name, "name", "", "name of the check")
	healthCmd.Flags().StringVar(&healthArgs.CheckFrom, "check-from", "", "check the system log from this day on (ddmmyyyy)")
	healthCmd.Flags().StringVar(&healthArgs.InstanceNumber, "instance", "00", "instance number")
	healthCmd.Flags().StringVarP(&healthArgs.Username, "user", "u", "", "sapcontrol user")
	healthCmd.Flags().StringVarP(&healthArgs.Password, "password", "p", "", "sapcontrol password")
	_ = healthCmd.MarkFlagRequired("check-from")
	stateCmd.AddCommand(healthCmd)
}
