package state

import (
	"context"
	"os"

	"sapcontrol-keeper/cmd/root"
	"sapcontrol-keeper/internal/config"
	"sapcontrol-keeper/internal/logger"
	"sapcontrol-keeper/states"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var stateCmd = &cobra.Command{
	Use:   "state",
	Short: "Convergence states (apply/running/dead/sld/health/history)",
	Long: `Convergence states bring an instance into a desired state and report what changed.
With --test nothing is changed, the changes that would be made are reported as pending.`,
}

const stateExample = `  # apply a state file
  sapctl-keeper state apply -f /srv/sap/states.yaml

  # dry-run: would sapstartsrv of S4H/00 have to be started?
  sapctl-keeper state running --name S4H --instance 00 --test`

var (
	testMode   bool
	host       string
	noFallback bool
	timeout    string
	asYAML     bool
)

// newRunner builds the state runner from the global state flags.
func newRunner(ctx context.Context) (*states.Runner, func(), error) {
	opts := states.Options{
		Host:     host,
		Fallback: config.Config.SAPControl.Fallback && !noFallback,
	}
	opts.Test = testMode
	if timeout != "" {
		d, err := parseTimeout(timeout)
		if err != nil {
			return nil, nil, err
		}
		opts.Timeout = d
	}
	return root.NewStateRunner(ctx, opts)
}

// printResults prints results and exits, 2 if any result failed.
func printResults(results []states.Result, err error) {
	if asYAML {
		enc := yaml.NewEncoder(os.Stdout)
		enc.SetIndent(2)
		if eerr := enc.Encode(results); eerr != nil {
			logger.Errorf("Encode output: %v", eerr)
		}
		enc.Close()
	} else {
		root.PrintJSON(results)
	}
	ok := true
	for _, res := range results {
		if res.Outcome == states.OutcomeFailed {
			ok = false
		}
	}
	root.Exit(ok, err)
}

// credentials falls back to the configured sapcontrol user.
func credentials(user, password string) (string, string) {
	if user == "" {
		user = config.Config.SAPControl.Username
	}
	if password == "" {
		password = config.Config.SAPControl.Password
	}
	return user, password
}

func init() {
	root.RootCmd.AddCommand(stateCmd)

	stateCmd.Example = stateExample
	stateCmd.PersistentFlags().BoolVar(&testMode, "test", false, "dry-run, report changes without applying them")
	stateCmd.PersistentFlags().StringVar(&host, "host", "", "FQDN of the sapcontrol host (default local host)")
	stateCmd.PersistentFlags().BoolVar(&noFallback, "no-fallback", false, "do not retry over HTTP when HTTPS fails")
	stateCmd.PersistentFlags().StringVar(&timeout, "timeout", "", "timeout of remote calls and service commands, e.g. 5m")
	stateCmd.PersistentFlags().BoolVar(&asYAML, "yaml", false, "print results as YAML")
}
