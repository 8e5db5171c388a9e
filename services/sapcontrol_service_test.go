package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"sapcontrol-keeper/internal/host"
	"sapcontrol-keeper/internal/models"
	"sapcontrol-keeper/internal/proc"
	"sapcontrol-keeper/internal/proc/mockproc"
	"sapcontrol-keeper/internal/sapcontrol"
	"sapcontrol-keeper/internal/sapcontrol/sapcontroltest"

	"github.com/golang/mock/gomock"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sapcontrolExe = "/usr/sap/S4H/SYS/exe/run/sapcontrol"

func testEndpoint() models.InstanceEndpoint {
	return models.InstanceEndpoint{
		InstanceNumber: 0,
		Username:       "s4hadm",
		Password:       "secret",
		Timeout:        5 * time.Second,
	}
}

func runningState() sapcontroltest.State {
	return sapcontroltest.State{
		Instances: []sapcontrol.InstanceInfo{
			{Hostname: "sapapp01", InstanceNr: 0, DispStatus: models.DispStatusGreen, StartPriority: "3", Features: "ABAP|GATEWAY|ICMAN"},
			{Hostname: "sapapp01", InstanceNr: 1, DispStatus: models.DispStatusGray, StartPriority: "1", Features: "MESSAGESERVER|ENQUE"},
			{Hostname: "sapapp02", InstanceNr: 0, DispStatus: models.DispStatusRed},
		},
	}
}

func newTestSAPControl(t *testing.T, srv *sapcontroltest.Server, runner proc.Runner) *SAPControl {
	t.Helper()
	dialer := &sapcontrol.Dialer{Locate: srv.Locate}
	facts := host.StaticFacts{Hostname: "sapapp01.example.com"}
	return NewSAPControl(dialer, runner, facts, WithPollInterval(5*time.Millisecond))
}

func TestStatus(t *testing.T) {
	srv := sapcontroltest.NewServer(sapcontroltest.State{})
	sap := newTestSAPControl(t, srv, nil)

	ok, err := sap.Status(context.Background(), testEndpoint())
	require.NoError(t, err)
	assert.True(t, ok)

	srv.Close()
	ok, err = sap.Status(context.Background(), testEndpoint())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStatusReturnsDialerErrors(t *testing.T) {
	srv := sapcontroltest.NewServer(sapcontroltest.State{})
	defer srv.Close()
	dialer := &sapcontrol.Dialer{Locate: srv.Locate, CAFile: "/nonexistent/sapcontrol-ca.pem"}
	sap := NewSAPControl(dialer, nil, host.StaticFacts{Hostname: "sapapp01.example.com"})

	ok, err := sap.Status(context.Background(), testEndpoint())
	require.Error(t, err)
	assert.False(t, sapcontrol.IsConnectionError(err))
	assert.Contains(t, err.Error(), "read CA bundle")
	assert.False(t, ok)
}

func TestInstanceStatus(t *testing.T) {
	srv := sapcontroltest.NewServer(runningState())
	defer srv.Close()
	sap := newTestSAPControl(t, srv, nil)
	ctx := context.Background()

	status, err := sap.InstanceStatus(ctx, testEndpoint())
	require.NoError(t, err)
	assert.Equal(t, models.StatusRunning, status)

	ep := testEndpoint()
	ep.InstanceNumber = 1
	status, err = sap.InstanceStatus(ctx, ep)
	require.NoError(t, err)
	assert.Equal(t, models.StatusStopped, status)

	// no matching entry
	ep.InstanceNumber = 2
	status, err = sap.InstanceStatus(ctx, ep)
	require.NoError(t, err)
	assert.Equal(t, models.StatusError, status)

	// other host
	ep = testEndpoint()
	ep.Host = "sapapp03.example.com"
	status, err = sap.InstanceStatus(ctx, ep)
	require.NoError(t, err)
	assert.Equal(t, models.StatusError, status)
}

func TestInstanceStatusUnreachable(t *testing.T) {
	srv := sapcontroltest.NewServer(runningState())
	srv.Close()
	sap := newTestSAPControl(t, srv, nil)

	status, err := sap.InstanceStatus(context.Background(), testEndpoint())
	require.NoError(t, err)
	assert.Equal(t, models.StatusError, status)
}

func TestInstanceStatusUnknownStatus(t *testing.T) {
	state := runningState()
	state.Instances[0].DispStatus = "SAPControl-BLUE"
	srv := sapcontroltest.NewServer(state)
	defer srv.Close()
	sap := newTestSAPControl(t, srv, nil)

	status, err := sap.InstanceStatus(context.Background(), testEndpoint())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnexpected))
	assert.Equal(t, models.StatusError, status)
}

func TestInstanceStartReportsTransitioningWhileStarting(t *testing.T) {
	state := runningState()
	state.Instances[0].DispStatus = models.DispStatusGray
	state.TransitionPolls = 3
	srv := sapcontroltest.NewServer(state)
	defer srv.Close()
	sap := newTestSAPControl(t, srv, nil)
	ctx := context.Background()

	// trigger the start without waiting, then query during the starting window
	client, err := (&sapcontrol.Dialer{Locate: srv.Locate}).Dial(ctx, testEndpoint())
	require.NoError(t, err)
	_, err = client.InstanceStart(ctx, "sapapp01", 0)
	require.NoError(t, err)

	status, err := sap.InstanceStatus(ctx, testEndpoint())
	require.NoError(t, err)
	assert.Contains(t, []models.StatusCode{models.StatusTransitioning, models.StatusRunning}, status)
}

func TestInstanceStartPollsUntilRunning(t *testing.T) {
	state := runningState()
	state.Instances[0].DispStatus = models.DispStatusGray
	state.TransitionPolls = 2
	srv := sapcontroltest.NewServer(state)
	defer srv.Close()

	var mu sync.Mutex
	var seen []string
	srv.OnCall = func(op string) {
		if op == "GetSystemInstanceList" {
			mu.Lock()
			seen = append(seen, srv.InstanceStatus(0))
			mu.Unlock()
		}
	}
	sap := newTestSAPControl(t, srv, nil)

	ok, err := sap.InstanceStart(context.Background(), testEndpoint(), 5*time.Second)
	require.NoError(t, err)
	assert.True(t, ok)

	mu.Lock()
	defer mu.Unlock()
	require.NotEmpty(t, seen)
	assert.NotContains(t, seen, models.DispStatusGray)
	assert.Equal(t, models.DispStatusGreen, seen[len(seen)-1])
	assert.Contains(t, string(srv.LastRequest("InstanceStart")), "<host>sapapp01</host><nr>0</nr>")
}

func TestInstanceStop(t *testing.T) {
	srv := sapcontroltest.NewServer(runningState())
	defer srv.Close()
	sap := newTestSAPControl(t, srv, nil)
	ctx := context.Background()

	ok, err := sap.InstanceStop(ctx, testEndpoint(), 5*time.Second)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, models.DispStatusGray, srv.InstanceStatus(0))
	assert.Contains(t, string(srv.LastRequest("InstanceStop")), "<softtimeout>300</softtimeout>")

	srv.Update(func(s *sapcontroltest.State) { s.Texts["InstanceStop"] = "Permission denied" })
	ok, err = sap.InstanceStop(ctx, testEndpoint(), 5*time.Second)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestInstanceStopTimesOut(t *testing.T) {
	state := runningState()
	state.TransitionPolls = 1000
	srv := sapcontroltest.NewServer(state)
	defer srv.Close()
	sap := newTestSAPControl(t, srv, nil)

	start := time.Now()
	ok, err := sap.InstanceStop(context.Background(), testEndpoint(), 100*time.Millisecond)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestSystemStartStop(t *testing.T) {
	srv := sapcontroltest.NewServer(runningState())
	defer srv.Close()
	sap := newTestSAPControl(t, srv, nil)
	ctx := context.Background()

	ok, err := sap.SystemStart(ctx, testEndpoint(), models.LevelABAP, 120*time.Second)
	require.NoError(t, err)
	assert.True(t, ok)
	req := string(srv.LastRequest("StartSystem"))
	assert.Contains(t, req, "<options>SAPControl-ABAP-INSTANCES</options>")
	assert.Contains(t, req, "<waittimeout>120</waittimeout>")

	srv.Update(func(s *sapcontroltest.State) { s.Texts["StopSystem"] = "timeout" })
	ok, err = sap.SystemStop(ctx, testEndpoint(), "", 60*time.Second)
	require.NoError(t, err)
	assert.False(t, ok)
	req = string(srv.LastRequest("StopSystem"))
	assert.Contains(t, req, "<options>SAPControl-ALL-INSTANCES</options>")
	assert.Contains(t, req, "<softtimeout>60</softtimeout>")
}

func TestParameterValue(t *testing.T) {
	state := runningState()
	state.Parameters = map[string]string{"SAPSYSTEMNAME": "S4H"}
	srv := sapcontroltest.NewServer(state)
	defer srv.Close()
	sap := newTestSAPControl(t, srv, nil)
	ctx := context.Background()

	found, value, err := sap.ParameterValue(ctx, testEndpoint(), "SAPSYSTEMNAME")
	require.NoError(t, err)
	assert.True(t, found)
	require.NotNil(t, value)
	assert.Equal(t, "S4H", *value)

	// a missing parameter is a successful lookup without value
	found, value, err = sap.ParameterValue(ctx, testEndpoint(), "does/not/exist")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Nil(t, value)

	srv.Update(func(s *sapcontroltest.State) { s.Faults["ParameterValue"] = "Permission denied" })
	found, value, err = sap.ParameterValue(ctx, testEndpoint(), "SAPSYSTEMNAME")
	require.NoError(t, err)
	assert.False(t, found)
	assert.Nil(t, value)

	srv.Update(func(s *sapcontroltest.State) { s.Faults["ParameterValue"] = "Something new" })
	_, _, err = sap.ParameterValue(ctx, testEndpoint(), "SAPSYSTEMNAME")
	assert.True(t, errors.Is(err, ErrUnexpected))
}

func TestParameterValueUnreachable(t *testing.T) {
	srv := sapcontroltest.NewServer(runningState())
	srv.Close()
	sap := newTestSAPControl(t, srv, nil)

	found, value, err := sap.ParameterValue(context.Background(), testEndpoint(), "SAPSYSTEMNAME")
	require.NoError(t, err)
	assert.False(t, found)
	assert.Nil(t, value)
}

func TestABAPComponentList(t *testing.T) {
	state := runningState()
	state.Components = []sapcontrol.ComponentInfo{
		{Component: "SAP_BASIS", Release: "757", Patchlevel: "0001", ComponentType: "S", Description: "SAP Basis Component"},
	}
	srv := sapcontroltest.NewServer(state)
	defer srv.Close()
	sap := newTestSAPControl(t, srv, nil)
	ctx := context.Background()

	ok, comps, err := sap.ABAPComponentList(ctx, testEndpoint())
	require.NoError(t, err)
	assert.True(t, ok)
	require.Len(t, comps, 1)
	assert.Equal(t, models.ComponentDescriptor{
		Component:           "SAP_BASIS",
		Version:             "757",
		SupportPackageLevel: "0001",
		PatchLevel:          models.NotAvailable,
		Vendor:              models.NotAvailable,
		Type:                "S",
		Description:         "SAP Basis Component",
	}, comps[0])

	srv.Update(func(s *sapcontroltest.State) { s.Faults["ABAPGetComponentList"] = "DpAttachStartService failed" })
	ok, comps, err = sap.ABAPComponentList(ctx, testEndpoint())
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, comps)
}

func TestProcesses(t *testing.T) {
	state := runningState()
	state.Processes = []sapcontrol.OSProcess{
		{Name: "disp+work", Description: "Dispatcher", DispStatus: models.DispStatusGreen, TextStatus: "Running", Pid: 4711},
		{Name: "igswd_mt", Description: "IGS Watchdog", DispStatus: models.DispStatusYellow, TextStatus: "Starting", Pid: 4712},
	}
	srv := sapcontroltest.NewServer(state)
	defer srv.Close()
	sap := newTestSAPControl(t, srv, nil)
	ctx := context.Background()

	procs, err := sap.ProcessList(ctx, testEndpoint())
	require.NoError(t, err)
	require.Len(t, procs, 2)
	assert.Equal(t, models.StatusRunning, procs[0].Status)

	status, err := sap.ProcessStatus(ctx, testEndpoint(), "igswd_mt")
	require.NoError(t, err)
	assert.Equal(t, models.StatusTransitioning, status)

	status, err = sap.ProcessStatus(ctx, testEndpoint(), "gwrd")
	require.NoError(t, err)
	assert.Equal(t, models.StatusError, status)

	pid, found, err := sap.ProcessPid(ctx, testEndpoint(), "disp+work")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, 4711, pid)

	_, found, err = sap.ProcessPid(ctx, testEndpoint(), "gwrd")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestProcessPidIgnoresUnknownStatus(t *testing.T) {
	state := runningState()
	state.Processes = []sapcontrol.OSProcess{
		{Name: "disp+work", DispStatus: models.DispStatusGreen, Pid: 4711},
		{Name: "icman", DispStatus: "SAPControl-BLUE", Pid: 4713},
	}
	srv := sapcontroltest.NewServer(state)
	defer srv.Close()
	sap := newTestSAPControl(t, srv, nil)
	ctx := context.Background()

	_, err := sap.ProcessList(ctx, testEndpoint())
	assert.True(t, errors.Is(err, ErrUnexpected))

	pid, found, err := sap.ProcessPid(ctx, testEndpoint(), "disp+work")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, 4711, pid)
}

func TestSystemInstanceListAndProperties(t *testing.T) {
	state := runningState()
	state.Properties = []sapcontrol.InstanceProperty{
		{Property: "SAPSYSTEMNAME", PropertyType: "Attribute", Value: "S4H"},
		{Property: "INSTANCE_NAME", PropertyType: "Attribute", Value: "D00"},
	}
	srv := sapcontroltest.NewServer(state)
	defer srv.Close()
	sap := newTestSAPControl(t, srv, nil)
	ctx := context.Background()

	instances, err := sap.SystemInstanceList(ctx, testEndpoint(), 60*time.Second)
	require.NoError(t, err)
	require.Len(t, instances, 3)
	assert.Equal(t, 3.0, instances[0].StartPriority)
	assert.Equal(t, []string{"ABAP", "GATEWAY", "ICMAN"}, instances[0].Features)
	assert.Equal(t, models.StatusStopped, instances[1].Status)
	assert.Contains(t, string(srv.LastRequest("GetSystemInstanceList")), "<timeout>60</timeout>")

	props, err := sap.InstanceProperties(ctx, testEndpoint())
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"SAPSYSTEMNAME": "S4H", "INSTANCE_NAME": "D00"}, props)

	srv.Close()
	_, err = sap.InstanceProperties(ctx, testEndpoint())
	assert.True(t, sapcontrol.IsConnectionError(err))
}

func TestSyslogErrorsFiltersStrictlyAfterSince(t *testing.T) {
	since := time.Date(2024, 3, 15, 10, 0, 0, 0, time.Local)
	format := func(ts time.Time) string { return ts.Format(models.SyslogTimeLayout) }

	state := runningState()
	state.Syslog = []sapcontrol.SyslogItem{
		{Time: format(since.Add(-time.Second)), Text: "before", Severity: models.DispStatusRed},
		{Time: format(since), Text: "at", Severity: models.DispStatusRed},
		{Time: format(since.Add(time.Second)), Text: "after", Severity: models.DispStatusRed},
		{Time: format(since.Add(time.Minute)), Text: "warning", Severity: models.DispStatusYellow},
		{Time: "garbage", Text: "broken", Severity: models.DispStatusRed},
	}
	srv := sapcontroltest.NewServer(state)
	defer srv.Close()
	sap := newTestSAPControl(t, srv, nil)
	ctx := context.Background()

	entries, err := sap.SyslogErrors(ctx, testEndpoint(), since, nil)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "after", entries[0].Text)
	assert.True(t, entries[0].Time.Equal(since.Add(time.Second)))

	entries, err = sap.SyslogErrors(ctx, testEndpoint(), since, []string{models.DispStatusRed, models.DispStatusYellow})
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "warning", entries[1].Text)
}

func TestWorkProcessTable(t *testing.T) {
	state := runningState()
	state.WorkProcesses = []sapcontrol.WorkProcess{
		{No: 0, Typ: "DIA", Pid: 100, Status: "Wait"},
		{No: 1, Typ: "BTC", Pid: 101, Status: "Ended", Err: "3"},
	}
	srv := sapcontroltest.NewServer(state)
	defer srv.Close()
	sap := newTestSAPControl(t, srv, nil)

	wps, err := sap.WorkProcessTable(context.Background(), testEndpoint())
	require.NoError(t, err)
	require.Len(t, wps, 2)
	assert.False(t, wps[0].Abnormal())
	assert.True(t, wps[1].Abnormal())
	assert.Equal(t, "BTC", wps[1].Type)
}

func expectWhich(runner *mockproc.MockRunner, exe, path string) *gomock.Call {
	res := proc.Result{ExitCode: 1}
	if path != "" {
		res = proc.Result{Stdout: path + "\n"}
	}
	return runner.EXPECT().Run(gomock.Any(), proc.Command{Line: "which " + exe, RunAs: "s4hadm"}).Return(res, nil)
}

func TestStartRunsStartService(t *testing.T) {
	srv := sapcontroltest.NewServer(sapcontroltest.State{})
	defer srv.Close()

	ctrl := gomock.NewController(t)
	runner := mockproc.NewMockRunner(ctrl)
	gomock.InOrder(
		expectWhich(runner, "sapcontrol", sapcontrolExe),
		runner.EXPECT().Run(gomock.Any(), proc.Command{
			Line:    sapcontrolExe + " -nr 00 -function StartService S4H",
			RunAs:   "s4hadm",
			Timeout: 5 * time.Second,
		}).Return(proc.Result{}, nil),
	)

	sap := newTestSAPControl(t, srv, runner)
	ok, err := sap.Start(context.Background(), "S4H", testEndpoint(), 5*time.Second)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestStartUsesFallbackExecutable(t *testing.T) {
	srv := sapcontroltest.NewServer(sapcontroltest.State{})
	defer srv.Close()

	ctrl := gomock.NewController(t)
	runner := mockproc.NewMockRunner(ctrl)
	gomock.InOrder(
		expectWhich(runner, "sapcontrol", ""),
		expectWhich(runner, "/usr/sap/hostctrl/exe/sapcontrol", "/usr/sap/hostctrl/exe/sapcontrol"),
		runner.EXPECT().Run(gomock.Any(), proc.Command{
			Line:    "/usr/sap/hostctrl/exe/sapcontrol -nr 00 -function StartService S4H",
			RunAs:   "s4hadm",
			Timeout: DefaultServiceTimeout,
		}).Return(proc.Result{ExitCode: 1, Stderr: "FAIL"}, nil),
	)

	sap := newTestSAPControl(t, srv, runner)
	ok, err := sap.Start(context.Background(), "S4H", testEndpoint(), 0)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStopWithoutExecutable(t *testing.T) {
	srv := sapcontroltest.NewServer(sapcontroltest.State{})
	defer srv.Close()

	ctrl := gomock.NewController(t)
	runner := mockproc.NewMockRunner(ctrl)
	expectWhich(runner, "sapcontrol", "")
	expectWhich(runner, "/usr/sap/hostctrl/exe/sapcontrol", "")

	sap := newTestSAPControl(t, srv, runner)
	ok, err := sap.Stop(context.Background(), testEndpoint(), time.Second)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStopRunsStopService(t *testing.T) {
	srv := sapcontroltest.NewServer(sapcontroltest.State{})
	defer srv.Close()

	ctrl := gomock.NewController(t)
	runner := mockproc.NewMockRunner(ctrl)
	expectWhich(runner, "sapcontrol", sapcontrolExe)
	runner.EXPECT().Run(gomock.Any(), proc.Command{
		Line:    sapcontrolExe + " -nr 00 -function StopService",
		RunAs:   "s4hadm",
		Timeout: time.Second,
	}).Return(proc.Result{}, nil)

	sap := newTestSAPControl(t, srv, runner)
	ok, err := sap.Stop(context.Background(), testEndpoint(), time.Second)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRestart(t *testing.T) {
	srv := sapcontroltest.NewServer(sapcontroltest.State{})
	defer srv.Close()
	sap := newTestSAPControl(t, srv, nil)
	ctx := context.Background()

	ok, err := sap.Restart(ctx, "S4H", testEndpoint(), time.Second)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 1, srv.Calls("RestartService"))

	srv.Update(func(s *sapcontroltest.State) { s.Texts["RestartService"] = "failed" })
	ok, err = sap.Restart(ctx, "S4H", testEndpoint(), time.Second)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRestartStartsUnreachableService(t *testing.T) {
	srv := sapcontroltest.NewServer(sapcontroltest.State{})
	srv.Close()

	ctrl := gomock.NewController(t)
	runner := mockproc.NewMockRunner(ctrl)
	expectWhich(runner, "sapcontrol", sapcontrolExe)
	runner.EXPECT().Run(gomock.Any(), proc.Command{
		Line:    sapcontrolExe + " -nr 00 -function StartService S4H",
		RunAs:   "s4hadm",
		Timeout: 50 * time.Millisecond,
	}).Return(proc.Result{}, nil)

	sap := newTestSAPControl(t, srv, runner)
	ok, err := sap.Restart(context.Background(), "S4H", testEndpoint(), 50*time.Millisecond)
	require.NoError(t, err)
	assert.False(t, ok)
}
