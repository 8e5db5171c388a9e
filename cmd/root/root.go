package root

import (
	"sapcontrol-keeper/internal/config"
	"sapcontrol-keeper/internal/env"
	"sapcontrol-keeper/internal/logger"

	"github.com/spf13/cobra"
)

var RootCmd = &cobra.Command{
	Use:   "sapctl-keeper",
	Short: "Control SAP instances through sapcontrol",
	Long: `sapctl-keeper queries and controls SAP instances through the sapcontrol web service:
instance and system start/stop, sapstartsrv service control, parameters, processes,
ABAP components, system log and work processes, and declarative convergence states.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if env.ConfigPath == "" {
			return nil
		}
		if err := config.ReloadConfig(env.ConfigPath); err != nil {
			return err
		}
		logger.InitLoggerWithMode(&config.Config.Log, env.Daemon)
		return nil
	},
}

func init() {
	RootCmd.PersistentFlags().StringVarP(&env.ConfigPath, "config", "c", "",
		"config file (default sapctl-keeper.yaml in ., /etc/sapctl-keeper, ~/.sapctl-keeper)")
}
