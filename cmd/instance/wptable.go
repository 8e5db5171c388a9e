package instance

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"sapcontrol-keeper/cmd/root"

	"github.com/spf13/cobra"
)

var wptableJSON bool

var wptableCmd = &cobra.Command{
	Use:   "wptable",
	Short: "Show the ABAP work process table (SM50)",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		root.Exit(workProcesses(context.Background()))
	},
}

func workProcesses(ctx context.Context) (bool, error) {
	sap, ep, err := setup(ctx)
	if err != nil {
		return false, err
	}
	wps, err := sap.WorkProcessTable(ctx, ep)
	if err != nil {
		return false, err
	}
	if wptableJSON {
		root.PrintJSON(wps)
		return true, nil
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NO\tTYPE\tPID\tSTATUS\tREASON\tERR\tCPU\tTIME\tPROGRAM\tCLIENT\tUSER")
	for _, wp := range wps {
		fmt.Fprintf(w, "%d\t%s\t%d\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			wp.No, wp.Type, wp.Pid, wp.Status, wp.Reason, wp.Err, wp.CPU, wp.Time, wp.Program, wp.Client, wp.User)
	}
	w.Flush()
	return true, nil
}

func init() {
	wptableCmd.Flags().BoolVar(&wptableJSON, "json", false, "print JSON")
	instanceCmd.AddCommand(wptableCmd)
}
