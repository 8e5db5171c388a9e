package services

import (
	"context"
	"strconv"
	"strings"
	"time"

	"sapcontrol-keeper/internal/logger"
	"sapcontrol-keeper/internal/models"
	"sapcontrol-keeper/internal/sapcontrol"

	"github.com/pkg/errors"
)

const (
	// DefaultInstanceTimeout bounds instance and system start/stop.
	DefaultInstanceTimeout = 300 * time.Second
	// InstanceSoftTimeout is the softtimeout passed to InstanceStop, in seconds.
	InstanceSoftTimeout = 300
)

func seconds(d time.Duration) int {
	return int(d / time.Second)
}

/**
 * Read the status of an instance from the system instance list
 * @param {context.Context} ctx - Context for cancellation
 * @param {models.InstanceEndpoint} ep - Endpoint, an empty Host means the local FQDN
 * @returns {models.StatusCode} Status of the instance
 * @returns {error} Wrapped ErrUnexpected for unknown faults or statuses
 * @description
 * - Matches entries on hostname + domain of ep.Host and the two-digit instance number
 * - StatusError when sapcontrol cannot be reached or no entry matches
 */
func (s *SAPControl) InstanceStatus(ctx context.Context, ep models.InstanceEndpoint) (models.StatusCode, error) {
	ep, err := s.Resolve(ctx, ep)
	if err != nil {
		return models.StatusError, err
	}
	logger.Debugf("Checking status of instance %s on %s with fallback=%t", ep.Number(), ep.Host, ep.Fallback)

	var instances []sapcontrol.InstanceInfo
	err = s.withClient(ctx, ep, "GetSystemInstanceList", func(c *sapcontrol.Client) (err error) {
		instances, err = c.GetSystemInstanceList(ctx, 0)
		return err
	})
	if err != nil {
		return models.StatusError, unexpected("GetSystemInstanceList", ep, err)
	}

	domain := ep.Domain()
	for _, inst := range instances {
		if inst.Hostname+domain != ep.Host {
			continue
		}
		if inst.InstanceNr != ep.InstanceNumber {
			continue
		}
		status, err := models.ParseDispStatus(inst.DispStatus)
		if err != nil {
			logger.Errorf("Unknown status %s for instance %s on %s", inst.DispStatus, ep.Number(), ep.Host)
			return models.StatusError, errors.Wrapf(ErrUnexpected, "instance %s: %v", ep, err)
		}
		logger.Debugf("Instance %s on %s is %s", ep.Number(), ep.Host, status)
		return status, nil
	}

	logger.Warnf("Cannot determine status of instance %s on %s", ep.Number(), ep.Host)
	return models.StatusError, nil
}

// InstanceStart starts an instance and waits until it is running.
func (s *SAPControl) InstanceStart(ctx context.Context, ep models.InstanceEndpoint, timeout time.Duration) (bool, error) {
	if timeout <= 0 {
		timeout = DefaultInstanceTimeout
	}
	ep, err := s.Resolve(ctx, ep)
	if err != nil {
		return false, err
	}

	logger.Debugf("Starting instance %s on %s", ep.Number(), ep.Host)
	var out string
	err = s.withClient(ctx, ep, "InstanceStart", func(c *sapcontrol.Client) (err error) {
		out, err = c.InstanceStart(ctx, ep.ShortHost(), ep.InstanceNumber)
		return err
	})
	if err != nil {
		return false, unexpected("InstanceStart", ep, err)
	}
	if out != "" {
		logger.Debugf("InstanceStart returned:\n%s", out)
	}

	logger.Debugf("Waiting for status == Running up to %s", timeout)
	return PollUntil(ctx, func(ctx context.Context) (models.StatusCode, error) {
		return s.InstanceStatus(ctx, ep)
	}, models.StatusRunning, timeout, s.pollInterval)
}

// InstanceStop stops an instance and waits until it is stopped.
func (s *SAPControl) InstanceStop(ctx context.Context, ep models.InstanceEndpoint, timeout time.Duration) (bool, error) {
	if timeout <= 0 {
		timeout = DefaultInstanceTimeout
	}
	ep, err := s.Resolve(ctx, ep)
	if err != nil {
		return false, err
	}

	logger.Debugf("Stopping instance %s on %s", ep.Number(), ep.Host)
	var out string
	err = s.withClient(ctx, ep, "InstanceStop", func(c *sapcontrol.Client) (err error) {
		out, err = c.InstanceStop(ctx, ep.ShortHost(), ep.InstanceNumber, InstanceSoftTimeout)
		return err
	})
	if err != nil {
		return false, unexpected("InstanceStop", ep, err)
	}
	// InstanceStop only answers with content on error
	if out != "" {
		logger.Errorf("Something went wrong:\n%s", out)
		return false, nil
	}

	logger.Debugf("Waiting for status == Stopped up to %s", timeout)
	return PollUntil(ctx, func(ctx context.Context) (models.StatusCode, error) {
		return s.InstanceStatus(ctx, ep)
	}, models.StatusStopped, timeout, s.pollInterval)
}

// SystemStart starts all instances of the given level. The result is final, there is nothing to poll.
func (s *SAPControl) SystemStart(ctx context.Context, ep models.InstanceEndpoint, level models.SystemLevel, timeout time.Duration) (bool, error) {
	if timeout <= 0 {
		timeout = DefaultInstanceTimeout
	}
	if level == "" {
		level = models.LevelAll
	}
	ep, err := s.Resolve(ctx, ep)
	if err != nil {
		return false, err
	}

	logger.Debugf("Calling StartSystem on instance %s on %s", ep.Number(), ep.Host)
	var out string
	err = s.withClient(ctx, ep, "StartSystem", func(c *sapcontrol.Client) (err error) {
		out, err = c.StartSystem(ctx, level.Options(), seconds(timeout))
		return err
	})
	if err != nil {
		return false, unexpected("StartSystem", ep, err)
	}
	if out != "" {
		logger.Errorf("Could not start %s:\n%s", ep.Number(), out)
		return false, nil
	}
	return true, nil
}

// SystemStop stops all instances of the given level.
func (s *SAPControl) SystemStop(ctx context.Context, ep models.InstanceEndpoint, level models.SystemLevel, timeout time.Duration) (bool, error) {
	if timeout <= 0 {
		timeout = DefaultInstanceTimeout
	}
	if level == "" {
		level = models.LevelAll
	}
	ep, err := s.Resolve(ctx, ep)
	if err != nil {
		return false, err
	}

	logger.Debugf("Calling StopSystem on instance %s on %s", ep.Number(), ep.Host)
	var out string
	err = s.withClient(ctx, ep, "StopSystem", func(c *sapcontrol.Client) (err error) {
		out, err = c.StopSystem(ctx, level.Options(), seconds(timeout), seconds(timeout))
		return err
	})
	if err != nil {
		return false, unexpected("StopSystem", ep, err)
	}
	if out != "" {
		logger.Errorf("Could not stop %s:\n%s", ep.Number(), out)
		return false, nil
	}
	return true, nil
}

// listFailure turns a failed list call into the error a list operation returns.
func listFailure(op string, ep models.InstanceEndpoint, err error) error {
	if uerr := unexpected(op, ep, err); uerr != nil {
		return uerr
	}
	if sapcontrol.IsConnectionError(err) {
		return err
	}
	return errors.Wrapf(err, "%s on %s", op, ep)
}

// SystemInstanceList lists all instances of the system the endpoint belongs to.
func (s *SAPControl) SystemInstanceList(ctx context.Context, ep models.InstanceEndpoint, timeout time.Duration) ([]models.SystemInstance, error) {
	ep, err := s.Resolve(ctx, ep)
	if err != nil {
		return nil, err
	}
	var instances []sapcontrol.InstanceInfo
	err = s.withClient(ctx, ep, "GetSystemInstanceList", func(c *sapcontrol.Client) (err error) {
		instances, err = c.GetSystemInstanceList(ctx, seconds(timeout))
		return err
	})
	if err != nil {
		return nil, listFailure("GetSystemInstanceList", ep, err)
	}

	ret := make([]models.SystemInstance, 0, len(instances))
	for _, inst := range instances {
		si := models.SystemInstance{
			Hostname:   inst.Hostname,
			InstanceNr: inst.InstanceNr,
			HTTPPort:   inst.HTTPPort,
			HTTPSPort:  inst.HTTPSPort,
		}
		if inst.StartPriority != "" {
			prio, err := strconv.ParseFloat(strings.TrimSpace(inst.StartPriority), 64)
			if err != nil {
				logger.Warnf("Invalid start priority %q of instance %02d on %s", inst.StartPriority, inst.InstanceNr, inst.Hostname)
			}
			si.StartPriority = prio
		}
		if inst.Features != "" {
			si.Features = strings.Split(inst.Features, "|")
		}
		if inst.DispStatus != "" {
			status, err := models.ParseDispStatus(inst.DispStatus)
			if err != nil {
				return nil, errors.Wrapf(ErrUnexpected, "instance %02d on %s: %v", inst.InstanceNr, inst.Hostname, err)
			}
			si.Status = status
		}
		ret = append(ret, si)
	}
	return ret, nil
}

// InstanceProperties returns the instance properties as a name to value map.
func (s *SAPControl) InstanceProperties(ctx context.Context, ep models.InstanceEndpoint) (map[string]string, error) {
	ep, err := s.Resolve(ctx, ep)
	if err != nil {
		return nil, err
	}
	var props []sapcontrol.InstanceProperty
	err = s.withClient(ctx, ep, "GetInstanceProperties", func(c *sapcontrol.Client) (err error) {
		props, err = c.GetInstanceProperties(ctx)
		return err
	})
	if err != nil {
		return nil, listFailure("GetInstanceProperties", ep, err)
	}
	ret := make(map[string]string, len(props))
	for _, p := range props {
		ret[p.Property] = p.Value
	}
	return ret, nil
}

/**
 * Read a profile parameter
 * @param {context.Context} ctx - Context for cancellation
 * @param {models.InstanceEndpoint} ep - Endpoint
 * @param {string} parameter - Parameter name, e.g. "SAPSYSTEMNAME"
 * @returns {bool} Whether the lookup succeeded
 * @returns {*string} Value, nil if there is none
 * @returns {error} Wrapped ErrUnexpected for unknown faults
 * @description
 * - A parameter that does not exist is a successful lookup without value: (true, nil)
 * - "Permission denied" and connection failures give (false, nil)
 */
func (s *SAPControl) ParameterValue(ctx context.Context, ep models.InstanceEndpoint, parameter string) (bool, *string, error) {
	ep, err := s.Resolve(ctx, ep)
	if err != nil {
		return false, nil, err
	}
	logger.Debugf("Retrieving parameter %s of instance %s on %s", parameter, ep.Number(), ep.Host)

	var value string
	err = s.withClient(ctx, ep, "ParameterValue", func(c *sapcontrol.Client) (err error) {
		value, err = c.ParameterValue(ctx, parameter)
		return err
	})
	switch {
	case sapcontrol.IsFault(err, "Invalid parameter"):
		logger.Warnf("Parameter %s does not exist", parameter)
		return true, nil, nil
	case sapcontrol.IsFault(err, "Permission denied"):
		logger.Warnf("Cannot access parameter %s, permission denied", parameter)
		return false, nil, nil
	case err != nil:
		return false, nil, unexpected("ParameterValue", ep, err)
	}
	if value == "" {
		logger.Errorf("Something went wrong: empty value for parameter %s", parameter)
		return false, nil, nil
	}
	return true, &value, nil
}

// ABAPComponentList lists installed ABAP software components.
// An instance that is down or not of type DIALOG gives (false, nil).
func (s *SAPControl) ABAPComponentList(ctx context.Context, ep models.InstanceEndpoint) (bool, []models.ComponentDescriptor, error) {
	ep, err := s.Resolve(ctx, ep)
	if err != nil {
		return false, nil, err
	}
	var comps []sapcontrol.ComponentInfo
	err = s.withClient(ctx, ep, "ABAPGetComponentList", func(c *sapcontrol.Client) (err error) {
		comps, err = c.ABAPGetComponentList(ctx)
		return err
	})
	switch {
	case sapcontrol.IsFault(err, "DpAttachStartService failed"):
		logger.Warnf("Instance %s is not running or is not of type DIALOG", ep.Number())
		return false, nil, nil
	case err != nil:
		return false, nil, unexpected("ABAPGetComponentList", ep, err)
	}
	if len(comps) == 0 {
		logger.Errorf("Something went wrong: no components returned by instance %s", ep.Number())
		return false, nil, nil
	}

	ret := make([]models.ComponentDescriptor, 0, len(comps))
	for _, comp := range comps {
		ret = append(ret, models.ComponentDescriptor{
			Component:           comp.Component,
			Version:             comp.Release,
			SupportPackageLevel: comp.Patchlevel,
			PatchLevel:          models.NotAvailable,
			Vendor:              models.NotAvailable,
			Type:                comp.ComponentType,
			Description:         comp.Description,
		})
	}
	return true, ret, nil
}

func (s *SAPControl) osProcesses(ctx context.Context, ep models.InstanceEndpoint) ([]sapcontrol.OSProcess, models.InstanceEndpoint, error) {
	ep, err := s.Resolve(ctx, ep)
	if err != nil {
		return nil, ep, err
	}
	var procs []sapcontrol.OSProcess
	err = s.withClient(ctx, ep, "GetProcessList", func(c *sapcontrol.Client) (err error) {
		procs, err = c.GetProcessList(ctx)
		return err
	})
	if err != nil {
		return nil, ep, listFailure("GetProcessList", ep, err)
	}
	return procs, ep, nil
}

// ProcessList lists the OS processes of an instance.
func (s *SAPControl) ProcessList(ctx context.Context, ep models.InstanceEndpoint) ([]models.ProcessDescriptor, error) {
	procs, ep, err := s.osProcesses(ctx, ep)
	if err != nil {
		return nil, err
	}

	ret := make([]models.ProcessDescriptor, 0, len(procs))
	for _, p := range procs {
		status, err := models.ParseDispStatus(p.DispStatus)
		if err != nil {
			logger.Errorf("Unknown status %s for process %s of instance %s on %s", p.DispStatus, p.Name, ep.Number(), ep.Host)
			return nil, errors.Wrapf(ErrUnexpected, "process %s: %v", p.Name, err)
		}
		ret = append(ret, models.ProcessDescriptor{
			Name:        p.Name,
			Description: p.Description,
			Status:      status,
			TextStatus:  p.TextStatus,
			StartTime:   p.StartTime,
			ElapsedTime: p.ElapsedTime,
			Pid:         p.Pid,
		})
	}
	return ret, nil
}

// ProcessStatus returns the status of a named process, StatusError if it is unknown or unreachable.
func (s *SAPControl) ProcessStatus(ctx context.Context, ep models.InstanceEndpoint, name string) (models.StatusCode, error) {
	procs, err := s.ProcessList(ctx, ep)
	if err != nil {
		if errors.Is(err, ErrUnexpected) {
			return models.StatusError, err
		}
		return models.StatusError, nil
	}
	for _, p := range procs {
		if p.Name == name {
			logger.Debugf("Process %s of instance %s is %s", name, ep.Number(), p.Status)
			return p.Status, nil
		}
	}
	logger.Warnf("Cannot determine status of process %s of instance %s", name, ep.Number())
	return models.StatusError, nil
}

// ProcessPid returns the PID of a named process. The dispstatus of the processes is not read.
func (s *SAPControl) ProcessPid(ctx context.Context, ep models.InstanceEndpoint, name string) (int, bool, error) {
	procs, ep, err := s.osProcesses(ctx, ep)
	if err != nil {
		if errors.Is(err, ErrUnexpected) {
			return 0, false, err
		}
		return 0, false, nil
	}
	for _, p := range procs {
		if p.Name == name {
			logger.Debugf("PID of process %s is %d", name, p.Pid)
			return p.Pid, true, nil
		}
	}
	logger.Warnf("Cannot determine the PID of process %s of instance %s", name, ep.Number())
	return 0, false, nil
}

/**
 * Read system log entries newer than a point in time
 * @param {context.Context} ctx - Context for cancellation
 * @param {models.InstanceEndpoint} ep - Endpoint
 * @param {time.Time} since - Only entries strictly after since are returned
 * @param {[]string} severities - Accepted severities, [SAPControl-RED] if empty
 * @returns {[]models.SyslogEntry} Matching entries in log order
 * @description
 * - Entry times are read in the local time zone
 * - Entries with an unreadable time are skipped with a warning
 */
func (s *SAPControl) SyslogErrors(ctx context.Context, ep models.InstanceEndpoint, since time.Time, severities []string) ([]models.SyslogEntry, error) {
	if len(severities) == 0 {
		severities = []string{models.DispStatusRed}
	}
	ep, err := s.Resolve(ctx, ep)
	if err != nil {
		return nil, err
	}
	var items []sapcontrol.SyslogItem
	err = s.withClient(ctx, ep, "ABAPReadSyslog", func(c *sapcontrol.Client) (err error) {
		items, err = c.ABAPReadSyslog(ctx)
		return err
	})
	if err != nil {
		return nil, listFailure("ABAPReadSyslog", ep, err)
	}

	accepted := make(map[string]bool, len(severities))
	for _, sev := range severities {
		accepted[sev] = true
	}

	ret := []models.SyslogEntry{}
	for _, item := range items {
		ts, err := time.ParseInLocation(models.SyslogTimeLayout, strings.TrimSpace(item.Time), time.Local)
		if err != nil {
			logger.Warnf("Skipping syslog entry with invalid time %q", item.Time)
			continue
		}
		if !ts.After(since) || !accepted[item.Severity] {
			continue
		}
		ret = append(ret, models.SyslogEntry{
			Time:     ts,
			Type:     item.Typ,
			Client:   item.Client,
			User:     item.User,
			Tcode:    item.Tcode,
			Program:  item.Program,
			Text:     item.Text,
			Severity: item.Severity,
		})
	}
	logger.Debugf("Retrieved %d relevant syslog entries", len(ret))
	return ret, nil
}

// WorkProcessTable returns the work process table of the system.
func (s *SAPControl) WorkProcessTable(ctx context.Context, ep models.InstanceEndpoint) ([]models.WorkProcessEntry, error) {
	ep, err := s.Resolve(ctx, ep)
	if err != nil {
		return nil, err
	}
	var wps []sapcontrol.WorkProcess
	err = s.withClient(ctx, ep, "ABAPGetSystemWPTable", func(c *sapcontrol.Client) (err error) {
		wps, err = c.ABAPGetSystemWPTable(ctx, false)
		return err
	})
	if err != nil {
		return nil, listFailure("ABAPGetSystemWPTable", ep, err)
	}
	ret := make([]models.WorkProcessEntry, 0, len(wps))
	for _, wp := range wps {
		ret = append(ret, models.WorkProcessEntry{
			Server:  wp.Server,
			No:      wp.No,
			Type:    wp.Typ,
			Pid:     wp.Pid,
			Status:  wp.Status,
			Reason:  wp.Reason,
			Start:   wp.Start,
			Err:     wp.Err,
			Sem:     wp.Sem,
			CPU:     wp.Cpu,
			Time:    wp.Time,
			Program: wp.Program,
			Client:  wp.Client,
			User:    wp.User,
			Action:  wp.Action,
			Table:   wp.Table,
		})
	}
	return ret, nil
}
