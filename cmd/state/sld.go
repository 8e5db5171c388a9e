package state

import (
	"context"

	"sapcontrol-keeper/states"

	"github.com/spf13/cobra"
)

var (
	sldArgs         states.SLDArgs
	keepLogs        bool
	sldCheckTimeout int
)

var sldCmd = &cobra.Command{
	Use:   "sld",
	Short: "Ensure the instance is registered at the SLD",
	Long: `Configures sldreg with the given SLD connection, restarts sapstartsrv and waits until
the data transfer log files report "Return code: 200".`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		printResults(single(context.Background(), func(ctx context.Context, r *states.Runner) (states.Result, error) {
			sldArgs.Username, sldArgs.Password = credentials(sldArgs.Username, sldArgs.Password)
			remove := !keepLogs
			sldArgs.RemoveLogs = &remove
			sldArgs.SLDCheckTimeout = sldCheckTimeout
			return r.SLDRegistered(ctx, sldArgs)
		}))
	},
}

func init() {
	f := sldCmd.Flags()
	f.StringVar(&sldArgs.Name, "name", "", "SLD destination file, e.g. /usr/sap/S4H/SYS/global/slddest.cfg")
	f.StringVar(&sldArgs.SID, "sid", "", "SAP system ID")
	f.StringVar(&sldArgs.InstanceNumber, "instance", "00", "instance number")
	f.StringVarP(&sldArgs.Username, "user", "u", "", "OS and sapcontrol user")
	f.StringVarP(&sldArgs.Password, "password", "p", "", "sapcontrol password")
	f.StringVar(&sldArgs.SLDUser, "sld-user", "", "SLD user")
	f.StringVar(&sldArgs.SLDPassword, "sld-password", "", "SLD password")
	f.StringVar(&sldArgs.SLDHost, "sld-host", "", "SLD host")
	f.StringVar(&sldArgs.SLDPort, "sld-port", "", "SLD HTTPS port")
	f.StringSliceVar(&sldArgs.LogFiles, "log-file", nil, "data supplier log files to check after the restart")
	f.BoolVar(&keepLogs, "keep-logs", false, "do not remove the log files before the restart")
	f.BoolVar(&sldArgs.Overwrite, "overwrite", false, "configure even if the configuration matches")
	f.IntVar(&sldCheckTimeout, "sld-check-timeout", states.DefaultSLDCheckTimeout, "seconds to wait for the data transfer")
	for _, name := range []string{"name", "sid", "sld-user", "sld-password", "sld-host", "sld-port"} {
		_ = sldCmd.MarkFlagRequired(name)
	}
	stateCmd.AddCommand(sldCmd)
}
