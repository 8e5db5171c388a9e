package instance

import (
	"sapcontrol-keeper/cmd/root"

	"github.com/spf13/cobra"
)

var instanceCmd = &cobra.Command{
	Use:   "instance",
	Short: "Instance operations (status/start/stop, parameters, processes etc.)",
	Long:  `Instance operations through the sapcontrol web service of one instance.`,
}

const instanceExample = `  # status of instance 00 on the local host
  sapctl-keeper instance status --nr 00 -u sapadm -p secret

  # value of a profile parameter
  sapctl-keeper instance parameter SAPSYSTEMNAME --nr 00`

var flags root.EndpointFlags

func init() {
	root.RootCmd.AddCommand(instanceCmd)

	instanceCmd.Example = instanceExample
	flags.RegisterPersistent(instanceCmd)
}
