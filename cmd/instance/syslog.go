package instance

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"sapcontrol-keeper/cmd/root"
	"sapcontrol-keeper/internal/models"

	"github.com/spf13/cobra"
)

var (
	syslogSince      string
	syslogSeverities []string
	syslogJSON       bool
)

var syslogCmd = &cobra.Command{
	Use:   "syslog",
	Short: "Show ABAP system log (SM21) entries",
	Long: `Shows system log entries after --since (local time, "2006-01-02" or
"2006-01-02 15:04:05", default today 00:00) with the given severities.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		root.Exit(readSyslog(context.Background()))
	},
}

// parseSince reads a local date or date and time.
func parseSince(s string, now time.Time) (time.Time, error) {
	if s == "" {
		y, m, d := now.Date()
		return time.Date(y, m, d, 0, 0, 0, 0, time.Local), nil
	}
	for _, layout := range []string{"2006-01-02 15:04:05", "2006-01-02"} {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid time %q", s)
}

func readSyslog(ctx context.Context) (bool, error) {
	since, err := parseSince(syslogSince, time.Now())
	if err != nil {
		return false, err
	}
	sap, ep, err := setup(ctx)
	if err != nil {
		return false, err
	}
	entries, err := sap.SyslogErrors(ctx, ep, since, syslogSeverities)
	if err != nil {
		return false, err
	}
	if syslogJSON {
		root.PrintJSON(entries)
		return true, nil
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TIME\tSEVERITY\tCLIENT\tUSER\tTCODE\tTEXT")
	for _, e := range entries {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			e.Time.Format(models.SyslogTimeLayout), e.Severity, e.Client, e.User, e.Tcode, e.Text)
	}
	w.Flush()
	return true, nil
}

func init() {
	syslogCmd.Flags().StringVar(&syslogSince, "since", "", "only entries after this local time")
	syslogCmd.Flags().StringSliceVar(&syslogSeverities, "severity", []string{models.DispStatusRed}, "accepted severities")
	syslogCmd.Flags().BoolVar(&syslogJSON, "json", false, "print JSON")
	instanceCmd.AddCommand(syslogCmd)
}
