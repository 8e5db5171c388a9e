package service

import (
	"sapcontrol-keeper/cmd/root"

	"github.com/spf13/cobra"
)

var serviceCmd = &cobra.Command{
	Use:   "service",
	Short: "sapstartsrv service operations (status/start/stop/restart)",
	Long: `Service operations on the sapstartsrv process behind sapcontrol. Start and restart
run "sapcontrol -function StartService" as the given user, stop and restart use the
web service.`,
}

const serviceExample = `  # start the sapstartsrv of instance 00 of S4H
  sapctl-keeper service start --sid S4H --nr 00 -u s4hadm -p secret`

func init() {
	root.RootCmd.AddCommand(serviceCmd)

	serviceCmd.Example = serviceExample
}
