package instance

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"sapcontrol-keeper/cmd/root"
	"sapcontrol-keeper/internal/models"

	"github.com/spf13/cobra"
)

var processesJSON bool

var processesCmd = &cobra.Command{
	Use:   "processes [name]",
	Short: "List the processes of the instance, or show status and pid of one",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if len(args) == 1 {
			root.Exit(showProcess(context.Background(), args[0]))
		}
		root.Exit(listProcesses(context.Background()))
	},
}

func listProcesses(ctx context.Context) (bool, error) {
	sap, ep, err := setup(ctx)
	if err != nil {
		return false, err
	}
	procs, err := sap.ProcessList(ctx, ep)
	if err != nil {
		return false, err
	}
	if processesJSON {
		root.PrintJSON(procs)
		return true, nil
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tDESCRIPTION\tSTATUS\tSTARTED\tELAPSED\tPID")
	for _, p := range procs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%d\n", p.Name, p.Description, p.Status, p.StartTime, p.ElapsedTime, p.Pid)
	}
	w.Flush()
	return true, nil
}

func showProcess(ctx context.Context, name string) (bool, error) {
	sap, ep, err := setup(ctx)
	if err != nil {
		return false, err
	}
	status, err := sap.ProcessStatus(ctx, ep, name)
	if err != nil {
		return false, err
	}
	pid, found, err := sap.ProcessPid(ctx, ep, name)
	if err != nil {
		return false, err
	}
	out := struct {
		Name   string            `json:"name"`
		Status models.StatusCode `json:"status"`
		Pid    *int              `json:"pid"`
	}{Name: name, Status: status}
	if found {
		out.Pid = &pid
	}
	root.PrintJSON(out)
	return found, nil
}

func init() {
	processesCmd.Flags().BoolVar(&processesJSON, "json", false, "print JSON")
	instanceCmd.AddCommand(processesCmd)
}
