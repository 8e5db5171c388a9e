package state

import (
	"context"

	"sapcontrol-keeper/states"

	"github.com/spf13/cobra"
)

var (
	runningArgs states.RunningArgs
	deadArgs    states.DeadArgs
)

var runningCmd = &cobra.Command{
	Use:   "running",
	Short: "Ensure sapstartsrv of an instance is running",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		printResults(single(context.Background(), func(ctx context.Context, r *states.Runner) (states.Result, error) {
			runningArgs.Username, runningArgs.Password = credentials(runningArgs.Username, runningArgs.Password)
			return r.Running(ctx, runningArgs)
		}))
	},
}

var deadCmd = &cobra.Command{
	Use:   "dead",
	Short: "Ensure sapstartsrv of an instance is stopped",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		printResults(single(context.Background(), func(ctx context.Context, r *states.Runner) (states.Result, error) {
			deadArgs.Username, deadArgs.Password = credentials(deadArgs.Username, deadArgs.Password)
			return r.Dead(ctx, deadArgs)
		}))
	},
}

// single runs one state with a runner built from the flags.
func single(ctx context.Context, fn func(context.Context, *states.Runner) (states.Result, error)) ([]states.Result, error) {
	runner, closeRunner, err := newRunner(ctx)
	if err != nil {
		return nil, err
	}
	defer closeRunner()
	res, err := fn(ctx, runner)
	return []states.Result{res}, err
}

func init() {
	runningCmd.Flags().StringVar(&runningArgs.Name, "name", "", "SAP system ID")
	runningCmd.Flags().StringVar(&runningArgs.Instance, "instance", "00", "instance number")
	runningCmd.Flags().StringVarP(&runningArgs.Username, "user", "u", "", "sapcontrol user")
	runningCmd.Flags().StringVarP(&runningArgs.Password, "password", "p", "", "sapcontrol password")
	runningCmd.Flags().BoolVar(&runningArgs.Restart, "restart", false, "restart sapstartsrv if it is running")
	_ = runningCmd.MarkFlagRequired("name")

	deadCmd.Flags().StringVar(&deadArgs.Name, "name", "", "SAP system ID")
	deadCmd.Flags().StringVar(&deadArgs.Instance, "instance", "00", "instance number")
	deadCmd.Flags().StringVarP(&deadArgs.Username, "user", "u", "", "sapcontrol user")
	deadCmd.Flags().StringVarP(&deadArgs.Password, "password", "p", "", "sapcontrol password")
	_ = deadCmd.MarkFlagRequired("name")

	stateCmd.AddCommand(runningCmd)
	stateCmd.AddCommand(deadCmd)
}
