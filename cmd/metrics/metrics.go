package metrics

import (
	"fmt"
	"os"

	"sapcontrol-keeper/cmd/root"
	"sapcontrol-keeper/internal/config"
	"sapcontrol-keeper/services"

	"github.com/spf13/cobra"
)

var (
	pushGatewayAddr string
	instance        string
)

func init() {
	root.RootCmd.AddCommand(Cmd)
	Cmd.Flags().SortFlags = false
	Cmd.Flags().StringVarP(&pushGatewayAddr, "addr", "a", "", "Pushgateway address (default metrics.pushgateway)")
	Cmd.Flags().StringVarP(&instance, "instance", "i", "", "instance label (default FQDN of the local host)")
}

var Cmd = &cobra.Command{
	Use:   "metrics",
	Short: "Push Prometheus metrics to a Pushgateway",
	Long: `Pushes the counters of this process to a Pushgateway. Combine with other commands
in one process, e.g. from a scheduled state run, or use the server's /metrics.`,
	Run: func(cmd *cobra.Command, args []string) {
		if pushGatewayAddr == "" {
			pushGatewayAddr = config.Config.Metrics.Pushgateway
		}
		if pushGatewayAddr == "" {
			fmt.Fprintln(os.Stderr, "no Pushgateway configured, use --addr or metrics.pushgateway")
			os.Exit(1)
		}
		if instance == "" {
			if fqdn, err := root.Facts().FQDN(cmd.Context()); err == nil {
				instance = fqdn
			}
		}
		if err := services.PushMetrics(pushGatewayAddr, config.Config.Metrics.Job, instance); err != nil {
			fmt.Fprintf(os.Stderr, "Pushing metrics failed: %v\nCheck that the Pushgateway address is correct and reachable\n", err)
			os.Exit(1)
		}
	},
}
