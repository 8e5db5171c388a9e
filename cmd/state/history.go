package state

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"sapcontrol-keeper/cmd/root"
	"sapcontrol-keeper/internal/store"

	"github.com/spf13/cobra"
)

var (
	historyFilter store.Filter
	historyJSON   bool
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recorded convergence runs, newest first",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		if err := showHistory(context.Background()); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	},
}

func showHistory(ctx context.Context) error {
	hist, err := root.OpenHistory()
	if err != nil {
		return err
	}
	if hist == nil {
		return fmt.Errorf("history is disabled, set history.path in the configuration")
	}
	defer hist.Close()

	results, err := hist.List(ctx, historyFilter)
	if err != nil {
		return err
	}
	if historyJSON {
		root.PrintJSON(results)
		return nil
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "STARTED\tRUN\tSTATE\tNAME\tOUTCOME\tCOMMENT")
	for _, res := range results {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			res.Started.Format("2006-01-02 15:04:05"), res.RunID, res.State, res.Name, res.Outcome, res.Comment)
	}
	w.Flush()
	return nil
}

func init() {
	historyCmd.Flags().StringVar(&historyFilter.RunID, "run", "", "only results of this run")
	historyCmd.Flags().StringVar(&historyFilter.State, "state", "", "only results of this state")
	historyCmd.Flags().StringVar(&historyFilter.Name, "name", "", "only results for this name")
	historyCmd.Flags().IntVar(&historyFilter.Limit, "limit", 20, "maximum number of results, 0 for all")
	historyCmd.Flags().BoolVar(&historyJSON, "json", false, "print JSON")
	stateCmd.AddCommand(historyCmd)
}
