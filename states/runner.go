package states

import (
	"context"
	"time"

	"sapcontrol-keeper/internal/logger"
	"sapcontrol-keeper/internal/models"
	"sapcontrol-keeper/internal/proc"
	"sapcontrol-keeper/services"

	"github.com/pkg/errors"
	"github.com/rs/xid"
	"github.com/spf13/afero"
)

// State names as used in state files and the API.
const (
	StateRunning        = "running"
	StateDead           = "dead"
	StateSLDRegistered  = "sld_registered"
	StateSystemHealthOK = "system_health_ok"
)

// DefaultLogCheckInterval is the delay between two checks of the SLD log files.
const DefaultLogCheckInterval = 500 * time.Millisecond

// Operations is the part of the execution module the states drive.
type Operations interface {
	Status(ctx context.Context, ep models.InstanceEndpoint) (bool, error)
	Start(ctx context.Context, sid string, ep models.InstanceEndpoint, timeout time.Duration) (bool, error)
	Stop(ctx context.Context, ep models.InstanceEndpoint, timeout time.Duration) (bool, error)
	Restart(ctx context.Context, sid string, ep models.InstanceEndpoint, timeout time.Duration) (bool, error)
	SyslogErrors(ctx context.Context, ep models.InstanceEndpoint, since time.Time, severities []string) ([]models.SyslogEntry, error)
	WorkProcessTable(ctx context.Context, ep models.InstanceEndpoint) ([]models.WorkProcessEntry, error)
}

// History stores results of convergence runs.
type History interface {
	Record(ctx context.Context, res Result) error
}

/**
 * Options of a state runner
 * @property {models.ExecutionOptions} ExecutionOptions - Test enables dry-run
 * @property {string} Host - FQDN of the sapcontrol host, empty means the local host
 * @property {bool} Fallback - Allow the HTTP fallback when connecting
 * @property {time.Duration} Timeout - Timeout of remote calls and service commands
 * @property {time.Duration} LogCheckInterval - Delay between SLD log checks
 * @property {History} History - Optional result store
 */
type Options struct {
	models.ExecutionOptions
	Host             string
	Fallback         bool
	Timeout          time.Duration
	LogCheckInterval time.Duration
	History          History
}

// Runner executes convergence states.
type Runner struct {
	sap    Operations
	runner proc.Runner
	fs     afero.Fs
	opts   Options
}

func NewRunner(sap Operations, runner proc.Runner, fs afero.Fs, opts Options) *Runner {
	if opts.LogCheckInterval <= 0 {
		opts.LogCheckInterval = DefaultLogCheckInterval
	}
	if fs == nil {
		fs = afero.NewOsFs()
	}
	return &Runner{sap: sap, runner: runner, fs: fs, opts: opts}
}

// Test reports whether the runner is in dry-run mode.
func (r *Runner) Test() bool {
	return r.opts.Test
}

type runIDKey struct{}

// WithRunID tags all results produced with ctx with the given run id.
func WithRunID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, runIDKey{}, id)
}

func runID(ctx context.Context) string {
	if id, ok := ctx.Value(runIDKey{}).(string); ok && id != "" {
		return id
	}
	return xid.New().String()
}

type declIDKey struct{}

// withDeclID tags the result produced with ctx with the declaration id of a state file.
func withDeclID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, declIDKey{}, id)
}

func declID(ctx context.Context) string {
	id, _ := ctx.Value(declIDKey{}).(string)
	return id
}

func (r *Runner) endpoint(instance, username, password string) (models.InstanceEndpoint, error) {
	nr, err := models.ParseInstanceNumber(instance)
	if err != nil {
		return models.InstanceEndpoint{}, err
	}
	return models.InstanceEndpoint{
		Host:           r.opts.Host,
		InstanceNumber: nr,
		Username:       username,
		Password:       password,
		Fallback:       r.opts.Fallback,
		Timeout:        r.opts.Timeout,
	}, nil
}

// track runs a state body and records the result.
func (r *Runner) track(ctx context.Context, state, name string, body func(res *Result) error) (Result, error) {
	res := Result{
		ID:      declID(ctx),
		RunID:   runID(ctx),
		Name:    name,
		State:   state,
		Changes: []Change{},
		Started: time.Now(),
	}
	err := body(&res)
	if err != nil {
		res.fail(err.Error())
		if errors.Is(err, services.ErrUnexpected) {
			logger.Errorf("%s %s aborted: %v", state, name, err)
		}
	}
	res.settle(r.opts.Test)
	res.Duration = time.Since(res.Started)

	services.RecordStateRun(state, string(res.Outcome))
	if r.opts.History != nil {
		if herr := r.opts.History.Record(ctx, res); herr != nil {
			logger.Warnf("Could not record result of %s %s: %v", state, name, herr)
		}
	}
	return res, err
}
