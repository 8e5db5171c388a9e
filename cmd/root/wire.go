package root

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"sapcontrol-keeper/internal/config"
	"sapcontrol-keeper/internal/env"
	"sapcontrol-keeper/internal/host"
	"sapcontrol-keeper/internal/logger"
	"sapcontrol-keeper/internal/models"
	"sapcontrol-keeper/internal/proc"
	"sapcontrol-keeper/internal/sapcontrol"
	"sapcontrol-keeper/internal/store"
	"sapcontrol-keeper/services"
	"sapcontrol-keeper/states"

	"github.com/pkg/errors"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// Facts returns the configured FQDN if set, otherwise facts read from the system.
func Facts() host.Facts {
	if config.Config.SAPControl.FQDN != "" {
		return host.StaticFacts{Hostname: config.Config.SAPControl.FQDN}
	}
	return host.NewSystemFacts()
}

/**
 * Build the execution module from the configuration
 * @param {context.Context} ctx - Context for the platform check
 * @returns {*services.SAPControl} Execution module using the real dialer and command runner
 * @returns {error} Error if the local host is not a Linux host
 */
func NewSAPControl(ctx context.Context) (*services.SAPControl, error) {
	facts := Facts()
	if err := CheckPlatform(ctx, facts); err != nil {
		return nil, err
	}
	cfg := config.Config.SAPControl
	return services.NewSAPControl(
		&sapcontrol.Dialer{CAFile: cfg.CAFile},
		proc.NewExecRunner(),
		facts,
		services.WithPollInterval(cfg.PollInterval),
		services.WithFallbackPath(cfg.SAPControlPath),
	), nil
}

// CheckPlatform refuses to work anywhere but on Linux, where sapstartsrv runs.
func CheckPlatform(ctx context.Context, facts host.Facts) error {
	osName, err := facts.OS(ctx)
	if err != nil {
		return err
	}
	if !strings.EqualFold(osName, "linux") {
		return fmt.Errorf("sapctl-keeper is only supported on Linux, not on %s", osName)
	}
	return nil
}

// OpenHistory opens the configured history store, nil if the history is disabled.
func OpenHistory() (store.Store, error) {
	path := config.Config.History.Path
	if path == "" {
		return nil, nil
	}
	if path == "default" {
		path = env.DefaultHistoryPath()
	}
	return store.NewSQLiteStore(path)
}

/**
 * Build a state runner from the configuration
 * @param {context.Context} ctx - Context for the platform check
 * @param {states.Options} opts - Runner options, unset values are taken from the config
 * @returns {*states.Runner} Runner with the history store attached if configured
 * @returns {func()} Closes the history store
 * @returns {error} Platform or store errors
 */
func NewStateRunner(ctx context.Context, opts states.Options) (*states.Runner, func(), error) {
	sap, err := NewSAPControl(ctx)
	if err != nil {
		return nil, nil, err
	}
	if opts.Timeout <= 0 {
		opts.Timeout = config.Config.SAPControl.Timeout
	}
	closer := func() {}
	if opts.History == nil {
		hist, err := OpenHistory()
		if err != nil {
			return nil, nil, errors.Wrap(err, "open history")
		}
		if hist != nil {
			opts.History = hist
			closer = func() {
				if err := hist.Close(); err != nil {
					logger.Warnf("Could not close history: %v", err)
				}
			}
		}
	}
	return states.NewRunner(sap, proc.NewExecRunner(), afero.NewOsFs(), opts), closer, nil
}

// EndpointFlags are the connection flags shared by the instance, system and service commands.
type EndpointFlags struct {
	Host       string
	Instance   string
	Username   string
	Password   string
	NoFallback bool
	Timeout    time.Duration
}

// Register adds the connection flags to cmd.
func (f *EndpointFlags) Register(cmd *cobra.Command) {
	f.bind(cmd.Flags())
}

// RegisterPersistent adds the connection flags to cmd and all its subcommands.
func (f *EndpointFlags) RegisterPersistent(cmd *cobra.Command) {
	f.bind(cmd.PersistentFlags())
}

func (f *EndpointFlags) bind(fs *pflag.FlagSet) {
	fs.StringVarP(&f.Instance, "nr", "n", "00", "instance number (00..99)")
	fs.StringVar(&f.Host, "host", "", "FQDN of the sapcontrol host (default local host)")
	fs.StringVarP(&f.Username, "user", "u", "", "sapcontrol user (default sapcontrol.username)")
	fs.StringVarP(&f.Password, "password", "p", "", "sapcontrol password (default sapcontrol.password)")
	fs.BoolVar(&f.NoFallback, "no-fallback", false, "do not retry over HTTP when HTTPS fails")
	fs.DurationVarP(&f.Timeout, "timeout", "t", 0, "operation timeout (default sapcontrol.timeout)")
}

// Endpoint builds the endpoint from the flags, falling back to the configuration.
func (f *EndpointFlags) Endpoint() (models.InstanceEndpoint, error) {
	nr, err := models.ParseInstanceNumber(f.Instance)
	if err != nil {
		return models.InstanceEndpoint{}, err
	}
	cfg := config.Config.SAPControl
	ep := models.InstanceEndpoint{
		Host:           f.Host,
		InstanceNumber: nr,
		Username:       f.Username,
		Password:       f.Password,
		Fallback:       cfg.Fallback && !f.NoFallback,
		Timeout:        f.Timeout,
	}
	if ep.Username == "" {
		ep.Username = cfg.Username
	}
	if ep.Password == "" {
		ep.Password = cfg.Password
	}
	if ep.Timeout <= 0 {
		ep.Timeout = cfg.Timeout
	}
	return ep, nil
}

// PrintJSON writes v as indented JSON to stdout.
func PrintJSON(v interface{}) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		logger.Errorf("Encode output: %v", err)
	}
}

// Exit terminates with a fatal log for unexpected responses, with exit code 1 for
// other errors and with exit code 2 if ok is false.
func Exit(ok bool, err error) {
	if err != nil {
		if errors.Is(err, services.ErrUnexpected) {
			logger.Fatal(err)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if !ok {
		os.Exit(2)
	}
}
