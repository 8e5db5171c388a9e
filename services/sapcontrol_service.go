package services

import (
	"context"
	"time"

	"sapcontrol-keeper/internal/config"
	"sapcontrol-keeper/internal/host"
	"sapcontrol-keeper/internal/logger"
	"sapcontrol-keeper/internal/models"
	"sapcontrol-keeper/internal/proc"
	"sapcontrol-keeper/internal/sapcontrol"
	"sapcontrol-keeper/internal/utils"

	"github.com/pkg/errors"
)

// ErrUnexpected marks remote faults and statuses this module does not know.
// Callers must not treat it as a soft failure.
var ErrUnexpected = errors.New("unexpected sapcontrol response")

// DefaultServiceTimeout bounds StartService/StopService when no timeout is given.
const DefaultServiceTimeout = 60 * time.Second

// Dialer opens sapcontrol connections, *sapcontrol.Dialer in production.
type Dialer interface {
	Dial(ctx context.Context, ep models.InstanceEndpoint) (*sapcontrol.Client, error)
}

// Option configures a SAPControl.
type Option func(*SAPControl)

// WithPollInterval changes the delay between status checks.
func WithPollInterval(d time.Duration) Option {
	return func(s *SAPControl) {
		if d > 0 {
			s.pollInterval = d
		}
	}
}

// WithFallbackPath changes the sapcontrol executable used when the user has none in PATH.
func WithFallbackPath(path string) Option {
	return func(s *SAPControl) {
		if path != "" {
			s.fallbackPath = path
		}
	}
}

// SAPControl wraps sapcontrol operations. It holds no per-call state and is
// safe for concurrent use.
type SAPControl struct {
	dialer       Dialer
	runner       proc.Runner
	facts        host.Facts
	pollInterval time.Duration
	fallbackPath string
}

func NewSAPControl(dialer Dialer, runner proc.Runner, facts host.Facts, opts ...Option) *SAPControl {
	s := &SAPControl{
		dialer:       dialer,
		runner:       runner,
		facts:        facts,
		pollInterval: DefaultPollInterval,
		fallbackPath: config.DefaultSAPControlPath,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// PollInterval is the delay between two status checks.
func (s *SAPControl) PollInterval() time.Duration {
	return s.pollInterval
}

// Facts returns the facts of the local host.
func (s *SAPControl) Facts() host.Facts {
	return s.facts
}

// Resolve fills in the local FQDN when the endpoint has no host.
func (s *SAPControl) Resolve(ctx context.Context, ep models.InstanceEndpoint) (models.InstanceEndpoint, error) {
	if ep.Host != "" {
		return ep, nil
	}
	fqdn, err := s.facts.FQDN(ctx)
	if err != nil {
		return ep, errors.Wrap(err, "determine FQDN")
	}
	ep.Host = fqdn
	return ep, nil
}

// withClient dials ep and runs fn against the connection, recording metrics.
func (s *SAPControl) withClient(ctx context.Context, ep models.InstanceEndpoint, op string, fn func(*sapcontrol.Client) error) error {
	start := time.Now()
	client, err := s.dialer.Dial(ctx, ep)
	if err != nil {
		RecordRemoteCall(op, OutcomeUnreachable, time.Since(start))
		return err
	}
	err = fn(client)
	outcome := OutcomeOK
	if err != nil {
		outcome = OutcomeError
		var fault *sapcontrol.Fault
		if errors.As(err, &fault) {
			outcome = OutcomeFault
		}
	}
	RecordRemoteCall(op, outcome, time.Since(start))
	return err
}

// unexpected wraps err into ErrUnexpected if it is a SOAP fault and returns
// nil for connectivity problems, which are logged.
func unexpected(op string, ep models.InstanceEndpoint, err error) error {
	var fault *sapcontrol.Fault
	if errors.As(err, &fault) {
		logger.Errorf("%s on %s failed: %s", op, ep, fault.Message)
		return errors.Wrapf(ErrUnexpected, "%s on %s: %s", op, ep, fault.Message)
	}
	if !sapcontrol.IsConnectionError(err) {
		logger.Errorf("%s on %s failed: %v", op, ep, err)
	}
	return nil
}

// Status reports whether sapcontrol answers on the endpoint. Errors other than
// connection failures, e.g. an unreadable CA file, are returned.
func (s *SAPControl) Status(ctx context.Context, ep models.InstanceEndpoint) (bool, error) {
	ep, err := s.Resolve(ctx, ep)
	if err != nil {
		return false, err
	}
	err = s.withClient(ctx, ep, "Status", func(*sapcontrol.Client) error { return nil })
	if err != nil {
		if !sapcontrol.IsConnectionError(err) {
			return false, errors.Wrapf(err, "status of sapcontrol on %s", ep)
		}
		logger.Debugf("sapcontrol not running on %s", ep.Host)
		return false, nil
	}
	logger.Debugf("sapcontrol running on %s", ep.Host)
	return true, nil
}

/**
 * Start sapstartsrv of an instance
 * @param {context.Context} ctx - Context for cancellation
 * @param {string} sid - SAP system ID
 * @param {models.InstanceEndpoint} ep - Endpoint, Username is also the OS user running sapcontrol
 * @param {time.Duration} timeout - Timeout of the command and of the wait for sapcontrol to answer
 * @returns {bool} True once sapcontrol answers
 * @description
 * - Runs "sapcontrol -nr NN -function StartService SID" as ep.Username
 * - Polls Status until it answers or the timeout is reached
 */
func (s *SAPControl) Start(ctx context.Context, sid string, ep models.InstanceEndpoint, timeout time.Duration) (bool, error) {
	if timeout <= 0 {
		timeout = DefaultServiceTimeout
	}
	ep, err := s.Resolve(ctx, ep)
	if err != nil {
		return false, err
	}
	if !s.runService(ctx, "StartService", sid, ep, timeout) {
		return false, nil
	}

	reachable := func(ctx context.Context) (models.StatusCode, error) {
		ok, err := s.Status(ctx, ep)
		if err != nil {
			return models.StatusError, err
		}
		if ok {
			return models.StatusRunning, nil
		}
		return models.StatusStopped, nil
	}
	return PollUntil(ctx, reachable, models.StatusRunning, timeout, s.pollInterval)
}

// Stop stops sapstartsrv of an instance. It does not wait for the service to go away.
func (s *SAPControl) Stop(ctx context.Context, ep models.InstanceEndpoint, timeout time.Duration) (bool, error) {
	if timeout <= 0 {
		timeout = DefaultServiceTimeout
	}
	return s.runService(ctx, "StopService", "", ep, timeout), nil
}

// Restart restarts sapstartsrv, or starts it if it does not answer.
func (s *SAPControl) Restart(ctx context.Context, sid string, ep models.InstanceEndpoint, timeout time.Duration) (bool, error) {
	ep, err := s.Resolve(ctx, ep)
	if err != nil {
		return false, err
	}
	var out string
	err = s.withClient(ctx, ep, "RestartService", func(c *sapcontrol.Client) (err error) {
		out, err = c.RestartService(ctx)
		return err
	})
	if sapcontrol.IsConnectionError(err) {
		logger.Debugf("sapcontrol is not running, starting")
		return s.Start(ctx, sid, ep, timeout)
	}
	if err != nil {
		return false, unexpected("RestartService", ep, err)
	}
	if out != "" {
		logger.Errorf("Could not restart sapcontrol:\n%s", out)
		return false, nil
	}
	return true, nil
}

func (s *SAPControl) runService(ctx context.Context, function, sid string, ep models.InstanceEndpoint, timeout time.Duration) bool {
	path := s.sapcontrolPath(ctx, ep.Username)
	if path == "" {
		logger.Errorf("User %s does not have access to any sapcontrol executables", ep.Username)
		return false
	}

	line, err := utils.GetCommandLine("{{quote .Path}} -nr {{.Nr}} -function {{.Function}}",
		[]string{"{{if .SID}}{{quote .SID}}{{end}}"},
		map[string]string{"Path": path, "Nr": ep.Number(), "Function": function, "SID": sid})
	if err != nil {
		logger.Errorf("Could not build sapcontrol command: %v", err)
		return false
	}

	logger.Debugf("Running '%s' as user %s", line, ep.Username)
	res, err := s.runner.Run(ctx, proc.Command{Line: line, RunAs: ep.Username, Timeout: timeout})
	if err != nil {
		logger.Errorf("Could not run %s: %v", function, err)
		return false
	}
	logger.Debugf("Result: exit code %d", res.ExitCode)
	if !res.Succeeded() {
		logger.Errorf("%s failed:\n%s", function, res.Stderr)
		return false
	}
	return true
}

func (s *SAPControl) sapcontrolPath(ctx context.Context, user string) string {
	if path := proc.Which(ctx, s.runner, "sapcontrol", user); path != "" {
		return path
	}
	return proc.Which(ctx, s.runner, s.fallbackPath, user)
}
