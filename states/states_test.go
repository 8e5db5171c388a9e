package states

import (
	"context"
	"sync"
	"testing"
	"time"

	"sapcontrol-keeper/internal/models"
	"sapcontrol-keeper/internal/sapcontrol"
	"sapcontrol-keeper/services"

	"github.com/pkg/errors"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeOps simulates one sapcontrol service.
type fakeOps struct {
	mu sync.Mutex

	up         bool
	startOK    bool
	stopOK     bool
	restartOK  bool
	restartErr error
	onRestart  func()

	syslog    []models.SyslogEntry
	syslogErr error
	wps       []models.WorkProcessEntry
	wpsErr    error

	starts, stops, restarts int
	since                   time.Time
}

func newFakeOps(up bool) *fakeOps {
	return &fakeOps{up: up, startOK: true, stopOK: true, restartOK: true}
}

func (f *fakeOps) Status(ctx context.Context, ep models.InstanceEndpoint) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.up, nil
}

func (f *fakeOps) Start(ctx context.Context, sid string, ep models.InstanceEndpoint, timeout time.Duration) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.starts++
	if f.startOK {
		f.up = true
	}
	return f.startOK, nil
}

func (f *fakeOps) Stop(ctx context.Context, ep models.InstanceEndpoint, timeout time.Duration) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stops++
	if f.stopOK {
		f.up = false
	}
	return f.stopOK, nil
}

func (f *fakeOps) Restart(ctx context.Context, sid string, ep models.InstanceEndpoint, timeout time.Duration) (bool, error) {
	f.mu.Lock()
	f.restarts++
	hook := f.onRestart
	ok, err := f.restartOK, f.restartErr
	f.mu.Unlock()
	if hook != nil {
		hook()
	}
	return ok, err
}

func (f *fakeOps) SyslogErrors(ctx context.Context, ep models.InstanceEndpoint, since time.Time, severities []string) ([]models.SyslogEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.since = since
	return f.syslog, f.syslogErr
}

func (f *fakeOps) WorkProcessTable(ctx context.Context, ep models.InstanceEndpoint) ([]models.WorkProcessEntry, error) {
	return f.wps, f.wpsErr
}

type memHistory struct {
	results []Result
}

func (h *memHistory) Record(ctx context.Context, res Result) error {
	h.results = append(h.results, res)
	return nil
}

func newTestRunner(ops Operations, test bool) *Runner {
	return NewRunner(ops, nil, afero.NewMemMapFs(), Options{
		ExecutionOptions: models.ExecutionOptions{Test: test},
		LogCheckInterval: 10 * time.Millisecond,
	})
}

func runningArgs() RunningArgs {
	return RunningArgs{Name: "S4H", Instance: "0", Username: "s4hadm", Password: "secret"}
}

func TestSucceeded(t *testing.T) {
	assert.True(t, *Result{Outcome: OutcomeChecked}.Succeeded())
	assert.True(t, *Result{Outcome: OutcomeChanged}.Succeeded())
	assert.False(t, *Result{Outcome: OutcomeFailed}.Succeeded())
	assert.Nil(t, Result{Outcome: OutcomePending}.Succeeded())
}

func TestRunningIsIdempotent(t *testing.T) {
	ops := newFakeOps(false)
	r := newTestRunner(ops, false)
	ctx := context.Background()

	res, err := r.Running(ctx, runningArgs())
	require.NoError(t, err)
	assert.Equal(t, OutcomeChanged, res.Outcome)
	assert.Equal(t, "sapcontrol was started", res.Comment)
	assert.Equal(t, []Change{{
		Key: "sapcontrol",
		Old: "sapcontrol for S4H / 00 was not running",
		New: "sapcontrol for S4H / 00 was started",
	}}, res.Changes)

	res, err = r.Running(ctx, runningArgs())
	require.NoError(t, err)
	assert.Equal(t, OutcomeChecked, res.Outcome)
	assert.Empty(t, res.Changes)
	assert.Equal(t, "sapcontrol is already running", res.Comment)
	assert.Equal(t, 1, ops.starts)
}

func TestRunningRestart(t *testing.T) {
	ops := newFakeOps(true)
	r := newTestRunner(ops, false)
	args := runningArgs()
	args.Restart = true

	res, err := r.Running(context.Background(), args)
	require.NoError(t, err)
	assert.Equal(t, OutcomeChanged, res.Outcome)
	assert.Equal(t, "sapcontrol was restarted", res.Comment)
	assert.Equal(t, 1, ops.restarts)

	ops.restartOK = false
	res, err = r.Running(context.Background(), args)
	require.NoError(t, err)
	assert.Equal(t, OutcomeFailed, res.Outcome)
	assert.Equal(t, "Cannot start sapcontrol S4H / 00", res.Comment)
}

func TestRunningUnexpectedError(t *testing.T) {
	ops := newFakeOps(true)
	ops.restartErr = errors.Wrap(services.ErrUnexpected, "RestartService: boom")
	r := newTestRunner(ops, false)
	args := runningArgs()
	args.Restart = true

	res, err := r.Running(context.Background(), args)
	require.Error(t, err)
	assert.True(t, errors.Is(err, services.ErrUnexpected))
	assert.Equal(t, OutcomeFailed, res.Outcome)
}

func TestRunningStartFails(t *testing.T) {
	ops := newFakeOps(false)
	ops.startOK = false
	r := newTestRunner(ops, false)

	res, err := r.Running(context.Background(), runningArgs())
	require.NoError(t, err)
	assert.Equal(t, OutcomeFailed, res.Outcome)
	assert.False(t, *res.Succeeded())
	assert.Empty(t, res.Changes)
}

func TestRunningInvalidInstance(t *testing.T) {
	r := newTestRunner(newFakeOps(false), false)
	args := runningArgs()
	args.Instance = "100"

	res, err := r.Running(context.Background(), args)
	require.NoError(t, err)
	assert.Equal(t, OutcomeFailed, res.Outcome)
	assert.Contains(t, res.Comment, "out of range")
}

func TestDryRunNeverActs(t *testing.T) {
	ctx := context.Background()

	ops := newFakeOps(false)
	r := newTestRunner(ops, true)
	res, err := r.Running(ctx, runningArgs())
	require.NoError(t, err)
	assert.Equal(t, OutcomePending, res.Outcome)
	assert.Nil(t, res.Succeeded())
	assert.Equal(t, "sapcontrol would have been started", res.Comment)
	require.Len(t, res.Changes, 1)
	assert.Equal(t, "sapcontrol for S4H / 00 would have been started", res.Changes[0].New)

	ops = newFakeOps(true)
	r = newTestRunner(ops, true)
	args := runningArgs()
	args.Restart = true
	res, err = r.Running(ctx, args)
	require.NoError(t, err)
	assert.Equal(t, OutcomePending, res.Outcome)
	assert.Equal(t, "sapcontrol would have been restarted", res.Comment)

	res, err = r.Dead(ctx, DeadArgs{Name: "S4H", Instance: "00", Username: "s4hadm"})
	require.NoError(t, err)
	assert.Equal(t, OutcomePending, res.Outcome)
	assert.Equal(t, "sapcontrol for S4H / 00 would have been stopped", res.Changes[0].New)

	assert.Zero(t, ops.starts)
	assert.Zero(t, ops.stops)
	assert.Zero(t, ops.restarts)
	assert.True(t, ops.up)
}

func TestDead(t *testing.T) {
	ops := newFakeOps(true)
	r := newTestRunner(ops, false)
	ctx := context.Background()
	args := DeadArgs{Name: "S4H", Instance: "00", Username: "s4hadm"}

	res, err := r.Dead(ctx, args)
	require.NoError(t, err)
	assert.Equal(t, OutcomeChanged, res.Outcome)
	assert.Equal(t, "sapcontrol was stopped", res.Comment)

	res, err = r.Dead(ctx, args)
	require.NoError(t, err)
	assert.Equal(t, OutcomeChecked, res.Outcome)
	assert.Equal(t, "sapcontrol is already stopped", res.Comment)
	assert.Empty(t, res.Changes)

	ops.up = true
	ops.stopOK = false
	res, err = r.Dead(ctx, args)
	require.NoError(t, err)
	assert.Equal(t, OutcomeFailed, res.Outcome)
	assert.Equal(t, "Cannot stop sapcontrol", res.Comment)
}

func TestSystemHealthOK(t *testing.T) {
	ops := newFakeOps(true)
	r := newTestRunner(ops, false)

	res, err := r.SystemHealthOK(context.Background(), HealthArgs{
		Name: "S4H", CheckFrom: "15032024", InstanceNumber: "00", Username: "s4hadm",
	})
	require.NoError(t, err)
	assert.Equal(t, OutcomeChecked, res.Outcome)
	assert.Equal(t, "System health OK", res.Comment)
	assert.True(t, ops.since.Equal(time.Date(2024, 3, 15, 0, 0, 0, 0, time.Local)))
}

func TestSystemHealthReportsAllFindings(t *testing.T) {
	ops := newFakeOps(true)
	ops.syslog = []models.SyslogEntry{
		{Text: `Monitoring: Program RSUSR003 Reports "Security check passed" `},
		{Text: "Database   error   131"},
		{Text: "Database error 131"},
		{Text: "Transaction Canceled"},
	}
	ops.wps = []models.WorkProcessEntry{
		{No: 0, Type: "DIA", Pid: 100, Status: "Wait"},
		{No: 3, Type: "BTC", Pid: 103, Status: "Ended", Reason: "Core", Err: "7"},
		{No: 4, Type: "DIA", Pid: 104, Status: "Run", Err: "1"},
	}
	r := newTestRunner(ops, false)

	res, err := r.SystemHealthOK(context.Background(), HealthArgs{
		Name: "S4H", CheckFrom: "15032024", InstanceNumber: "00", Username: "s4hadm",
	})
	require.NoError(t, err)
	assert.Equal(t, OutcomeFailed, res.Outcome)
	assert.Equal(t, []string{
		"SM21: Database error 131",
		"SM21: Transaction Canceled",
		"SM50: BTC work process 3 (PID: 103) is in status Ended (reason: Core) with error '7'",
		"SM50: DIA work process 4 (PID: 104) is in status Run with error '1'",
	}, res.Details)
}

func TestSystemHealthUnreadableTables(t *testing.T) {
	ops := newFakeOps(false)
	ops.syslogErr = &sapcontrol.ConnectionError{Host: "sapapp01", Kind: sapcontrol.KindUnreachable, Err: errors.New("refused")}
	ops.wpsErr = ops.syslogErr
	r := newTestRunner(ops, false)

	res, err := r.SystemHealthOK(context.Background(), HealthArgs{
		Name: "S4H", CheckFrom: "01012024", InstanceNumber: "00",
	})
	require.NoError(t, err)
	assert.Equal(t, OutcomeFailed, res.Outcome)
	assert.Equal(t, []string{"Cannot retrieve system log", "Cannot retrieve workprocess table"}, res.Details)

	res, err = r.SystemHealthOK(context.Background(), HealthArgs{Name: "S4H", CheckFrom: "2024-01-01", InstanceNumber: "00"})
	require.NoError(t, err)
	assert.Equal(t, OutcomeFailed, res.Outcome)
	assert.Contains(t, res.Comment, "Invalid check_from")
}

func TestApply(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/srv/states/s4h.yaml", []byte(`
- id: sapcontrol for S4H is running
  state: running
  args:
    name: S4H
    instance: 00
    username: s4hadm
    password: secret
- id: S4H is healthy
  state: system_health_ok
  args: {name: S4H, check_from: "01012024", instance_number: "00", username: s4hadm, password: secret}
`), 0644))

	decls, err := LoadFile(fs, "/srv/states/s4h.yaml")
	require.NoError(t, err)
	require.Len(t, decls, 2)

	history := &memHistory{}
	ops := newFakeOps(false)
	r := NewRunner(ops, nil, fs, Options{History: history})

	results, err := r.Apply(context.Background(), decls)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "sapcontrol for S4H is running", results[0].ID)
	assert.Equal(t, OutcomeChanged, results[0].Outcome)
	assert.Equal(t, OutcomeChecked, results[1].Outcome)
	assert.NotEmpty(t, results[0].RunID)
	assert.Equal(t, results[0].RunID, results[1].RunID)
	require.Len(t, history.results, 2)
	assert.Equal(t, "sapcontrol for S4H is running", history.results[0].ID)
	assert.Equal(t, "S4H is healthy", history.results[1].ID)
}

func TestApplyUnknownState(t *testing.T) {
	decls, err := ParseDeclarations([]byte(`
- id: first
  state: dead
  args: {name: S4H, instance: "00"}
- id: second
  state: installed
`))
	require.NoError(t, err)

	r := newTestRunner(newFakeOps(false), false)
	results, err := r.Apply(context.Background(), decls)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown state "installed"`)
	require.Len(t, results, 1)
	assert.Equal(t, OutcomeChecked, results[0].Outcome)
}

func TestParseDeclarationsValidates(t *testing.T) {
	_, err := ParseDeclarations([]byte(`- state: running`))
	assert.Error(t, err)
	_, err = ParseDeclarations([]byte(`- id: x`))
	assert.Error(t, err)
	_, err = ParseDeclarations([]byte(`{not: a list}`))
	assert.Error(t, err)
}
