package state

import (
	"context"

	"sapcontrol-keeper/states"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

var stateFile string

var applyCmd = &cobra.Command{
	Use:   "apply",
	Short: "Apply the declarations of a YAML state file in order",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		printResults(applyFile(context.Background(), stateFile))
	},
}

func applyFile(ctx context.Context, path string) ([]states.Result, error) {
	decls, err := states.LoadFile(afero.NewOsFs(), path)
	if err != nil {
		return nil, err
	}
	runner, closeRunner, err := newRunner(ctx)
	if err != nil {
		return nil, err
	}
	defer closeRunner()
	return runner.Apply(ctx, decls)
}

func init() {
	applyCmd.Flags().StringVarP(&stateFile, "file", "f", "", "state file")
	_ = applyCmd.MarkFlagRequired("file")
	stateCmd.AddCommand(applyCmd)
}
