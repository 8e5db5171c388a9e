package instance

import (
	"context"

	"sapcontrol-keeper/cmd/root"

	"github.com/spf13/cobra"
)

var parameterCmd = &cobra.Command{
	Use:   "parameter <name>",
	Short: "Show the value of a profile parameter",
	Long: `Prints {"ok": bool, "value": string|null}. An unknown parameter is reported as ok with
a null value, a parameter without value or a denied request as not ok.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		root.Exit(parameterValue(context.Background(), args[0]))
	},
}

func parameterValue(ctx context.Context, name string) (bool, error) {
	sap, ep, err := setup(ctx)
	if err != nil {
		return false, err
	}
	ok, value, err := sap.ParameterValue(ctx, ep, name)
	if err != nil {
		return false, err
	}
	root.PrintJSON(struct {
		OK    bool    `json:"ok"`
		Value *string `json:"value"`
	}{ok, value})
	return ok, nil
}

func init() {
	instanceCmd.AddCommand(parameterCmd)
}
