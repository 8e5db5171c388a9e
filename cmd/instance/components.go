package instance

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"sapcontrol-keeper/cmd/root"

	"github.com/spf13/cobra"
)

var componentsJSON bool

var componentsCmd = &cobra.Command{
	Use:   "components",
	Short: "List the installed ABAP software components",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		root.Exit(listComponents(context.Background()))
	},
}

func listComponents(ctx context.Context) (bool, error) {
	sap, ep, err := setup(ctx)
	if err != nil {
		return false, err
	}
	ok, components, err := sap.ABAPComponentList(ctx, ep)
	if err != nil || !ok {
		return ok, err
	}
	if componentsJSON {
		root.PrintJSON(components)
		return true, nil
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "COMPONENT\tRELEASE\tSP LEVEL\tTYPE\tDESCRIPTION")
	for _, c := range components {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", c.Component, c.Version, c.SupportPackageLevel, c.Type, c.Description)
	}
	w.Flush()
	return true, nil
}

func init() {
	componentsCmd.Flags().BoolVar(&componentsJSON, "json", false, "print JSON")
	instanceCmd.AddCommand(componentsCmd)
}
