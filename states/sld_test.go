package states

import (
	"context"
	"testing"
	"time"

	"sapcontrol-keeper/internal/models"
	"sapcontrol-keeper/internal/proc"
	"sapcontrol-keeper/internal/proc/mockproc"

	"github.com/golang/mock/gomock"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	sldreg  = "/usr/sap/S4H/SYS/exe/run/sldreg"
	sldCfg  = "/usr/sap/S4H/SYS/global/slddest.cfg"
	sldLog1 = "/usr/sap/S4H/D00/work/dev_sldregs"
	sldLog2 = "/usr/sap/S4H/D00/work/dev_sldregk"
)

var sldEnv = map[string]string{"LD_LIBRARY_PATH": "/usr/sap/S4H/SYS/exe/run"}

const showConnectOutput = `Using configuration file /usr/sap/S4H/SYS/global/slddest.cfg
Connection parameters:
  host_param=sld.example.com
  port_param=50001
  user_param='SLD_DS'
  https_param=y
`

func sldArgs() SLDArgs {
	return SLDArgs{
		Name:           sldCfg,
		SID:            "S4H",
		InstanceNumber: "00",
		Username:       "s4hadm",
		Password:       "secret",
		SLDUser:        "SLD_DS",
		SLDPassword:    "s3cr3t",
		SLDHost:        "sld.example.com",
		SLDPort:        "50001",
		LogFiles:       []string{sldLog1, sldLog2},
	}
}

func newSLDRunner(t *testing.T, ops Operations, test bool) (*Runner, *mockproc.MockRunner, afero.Fs) {
	ctrl := gomock.NewController(t)
	runner := mockproc.NewMockRunner(ctrl)
	fs := afero.NewMemMapFs()
	r := NewRunner(ops, runner, fs, Options{
		ExecutionOptions: models.ExecutionOptions{Test: test},
		LogCheckInterval: 10 * time.Millisecond,
	})
	runner.EXPECT().Run(gomock.Any(), proc.Command{Line: "which sldreg", RunAs: "s4hadm"}).
		Return(proc.Result{Stdout: sldreg}, nil)
	return r, runner, fs
}

func expectShowConnect(runner *mockproc.MockRunner, out string) {
	runner.EXPECT().Run(gomock.Any(), proc.Command{
		Line:  sldreg + " -showconnect " + sldCfg,
		RunAs: "s4hadm",
		Env:   sldEnv,
	}).Return(proc.Result{Stdout: out}, nil)
}

func expectConfigure(runner *mockproc.MockRunner) {
	runner.EXPECT().Run(gomock.Any(), proc.Command{
		Line:    sldreg + " -configure " + sldCfg + " -usekeyfile -noninteractive -user SLD_DS -pass s3cr3t -host sld.example.com -port 50001 -usehttps",
		RunAs:   "s4hadm",
		Env:     sldEnv,
		Secrets: []string{"s3cr3t"},
	}).Return(proc.Result{}, nil)
}

func TestParseShowConnect(t *testing.T) {
	params, err := parseShowConnect(showConnectOutput)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		"host_param":  "sld.example.com",
		"port_param":  "50001",
		"user_param":  "SLD_DS",
		"https_param": "y",
	}, params)

	params, err = parseShowConnect("nothing to see")
	require.NoError(t, err)
	assert.Empty(t, params)
}

func TestSLDRegisteredNoChanges(t *testing.T) {
	ops := newFakeOps(true)
	r, runner, fs := newSLDRunner(t, ops, false)
	require.NoError(t, afero.WriteFile(fs, sldCfg, []byte("encrypted"), 0600))
	expectShowConnect(runner, showConnectOutput)

	res, err := r.SLDRegistered(context.Background(), sldArgs())
	require.NoError(t, err)
	assert.Equal(t, OutcomeChecked, res.Outcome)
	assert.Equal(t, "No changes required", res.Comment)
	assert.Empty(t, res.Changes)
	assert.Zero(t, ops.restarts)
}

func TestSLDRegisteredDryRun(t *testing.T) {
	ops := newFakeOps(true)
	r, _, fs := newSLDRunner(t, ops, true)
	require.NoError(t, afero.WriteFile(fs, sldLog1, []byte("Return code: 500"), 0644))

	res, err := r.SLDRegistered(context.Background(), sldArgs())
	require.NoError(t, err)
	assert.Equal(t, OutcomePending, res.Outcome)
	assert.Equal(t, "SLD registration and data transfer would have been successful", res.Comment)
	assert.Equal(t, []Change{
		{Key: "config", New: "Configuration " + sldCfg + " would have been updated"},
		{Key: "log_files", New: "Would remove " + sldLog1},
		{Key: "sapcontrol", New: "Would have been restarted"},
	}, res.Changes)

	exists, err := afero.Exists(fs, sldLog1)
	require.NoError(t, err)
	assert.True(t, exists)
	assert.Zero(t, ops.restarts)
}

func TestSLDRegisteredConfiguresAndWatchesLogs(t *testing.T) {
	ops := newFakeOps(true)
	r, runner, fs := newSLDRunner(t, ops, false)
	require.NoError(t, afero.WriteFile(fs, sldCfg, []byte("encrypted"), 0600))
	require.NoError(t, afero.WriteFile(fs, sldLog1, []byte("Return code: 200"), 0644))
	expectShowConnect(runner, "  host_param=old-sld.example.com\n  port_param=50001\n  user_param=SLD_DS\n  https_param=y\n")
	expectConfigure(runner)

	ops.onRestart = func() {
		go func() {
			time.Sleep(30 * time.Millisecond)
			_ = afero.WriteFile(fs, sldLog1, []byte("Return code: 401\nReturn code: 200\n"), 0644)
			_ = afero.WriteFile(fs, sldLog2, []byte("HTTP request\nReturn code: 200\n"), 0644)
		}()
	}

	res, err := r.SLDRegistered(context.Background(), sldArgs())
	require.NoError(t, err)
	assert.Equal(t, OutcomeChanged, res.Outcome)
	assert.Equal(t, "SLD registration and data transfer successful", res.Comment)
	assert.Equal(t, []Change{
		{Key: "config", New: "Configuration " + sldCfg + " updated"},
		{Key: "log_files", New: "Removed " + sldLog1},
		{Key: "sapcontrol", New: "Restarted"},
	}, res.Changes)
	assert.Equal(t, 1, ops.restarts)
}

func TestSLDRegisteredTransferFails(t *testing.T) {
	ops := newFakeOps(true)
	r, runner, fs := newSLDRunner(t, ops, false)
	expectConfigure(runner)
	ops.onRestart = func() {
		_ = afero.WriteFile(fs, sldLog1, []byte("Return code: 200\nReturn code: 500\n"), 0644)
		_ = afero.WriteFile(fs, sldLog2, []byte("Return code: 200\n"), 0644)
	}

	args := sldArgs()
	args.SLDCheckTimeout = 1
	start := time.Now()
	res, err := r.SLDRegistered(context.Background(), args)
	require.NoError(t, err)
	assert.Equal(t, OutcomeFailed, res.Outcome)
	assert.Equal(t, "SLD data transfer not successful", res.Comment)
	assert.Less(t, time.Since(start), 3*time.Second)
}

func TestSLDRegisteredWithoutSldreg(t *testing.T) {
	ctrl := gomock.NewController(t)
	runner := mockproc.NewMockRunner(ctrl)
	runner.EXPECT().Run(gomock.Any(), proc.Command{Line: "which sldreg", RunAs: "s4hadm"}).
		Return(proc.Result{ExitCode: 1}, nil)
	r := NewRunner(newFakeOps(true), runner, afero.NewMemMapFs(), Options{})

	res, err := r.SLDRegistered(context.Background(), sldArgs())
	require.NoError(t, err)
	assert.Equal(t, OutcomeFailed, res.Outcome)
	assert.Equal(t, "Could not determine path of sldreg for user s4hadm", res.Comment)
}

func TestSLDRegisteredRestartFails(t *testing.T) {
	ops := newFakeOps(true)
	ops.restartOK = false
	r, runner, _ := newSLDRunner(t, ops, false)
	expectConfigure(runner)

	args := sldArgs()
	keep := false
	args.RemoveLogs = &keep
	res, err := r.SLDRegistered(context.Background(), args)
	require.NoError(t, err)
	assert.Equal(t, OutcomeFailed, res.Outcome)
	assert.Equal(t, "Could not restart sapcontrol", res.Comment)
}
