package system

import (
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"sapcontrol-keeper/cmd/root"

	"github.com/spf13/cobra"
)

var listJSON bool

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List the instances of the system",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		root.Exit(listInstances(context.Background()))
	},
}

func listInstances(ctx context.Context) (bool, error) {
	sap, ep, err := setup(ctx)
	if err != nil {
		return false, err
	}
	instances, err := sap.SystemInstanceList(ctx, ep, ep.Timeout)
	if err != nil {
		return false, err
	}
	if listJSON {
		root.PrintJSON(instances)
		return true, nil
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "HOSTNAME\tNR\tHTTP\tHTTPS\tPRIORITY\tFEATURES\tSTATUS")
	for _, i := range instances {
		fmt.Fprintf(w, "%s\t%02d\t%d\t%d\t%g\t%s\t%s\n",
			i.Hostname, i.InstanceNr, i.HTTPPort, i.HTTPSPort, i.StartPriority, strings.Join(i.Features, "|"), i.Status)
	}
	w.Flush()
	return true, nil
}

func init() {
	listCmd.Flags().BoolVar(&listJSON, "json", false, "print JSON")
	systemCmd.AddCommand(listCmd)
}
