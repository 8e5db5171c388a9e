package states

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"sapcontrol-keeper/internal/logger"
	"sapcontrol-keeper/services"

	"github.com/pkg/errors"
)

// CheckFromLayout is the layout of HealthArgs.CheckFrom (ddmmyyyy).
const CheckFromLayout = "02012006"

// nonCriticalSyslogErrors are syslog texts that do not affect system health.
var nonCriticalSyslogErrors = map[string]bool{
	`Monitoring: Program RSUSR003 Reports "Security check passed" `: true,
}

var multipleSpaces = regexp.MustCompile(` +`)

// HealthArgs are the arguments of the system_health_ok state.
type HealthArgs struct {
	Name           string `json:"name" yaml:"name"`
	CheckFrom      string `json:"check_from" yaml:"check_from"`
	InstanceNumber string `json:"instance_number" yaml:"instance_number"`
	Username       string `json:"username" yaml:"username"`
	Password       string `json:"password" yaml:"password"`
}

/**
 * Check system log (SM21) and work processes (SM50) of a system
 * @param {context.Context} ctx - Context for cancellation
 * @param {HealthArgs} args - CheckFrom limits the syslog to entries after that day
 * @returns {Result} Checked with comment "System health OK", or failed with all findings in Details
 * @returns {error} Only for unexpected remote responses
 * @description
 * - Read-only, dry-run makes no difference
 * - Syslog texts are whitespace-collapsed, de-duplicated and prefixed "SM21: "
 * - Work processes in status Ended or with an error are reported with prefix "SM50: "
 */
func (r *Runner) SystemHealthOK(ctx context.Context, args HealthArgs) (Result, error) {
	return r.track(ctx, StateSystemHealthOK, args.Name, func(res *Result) error {
		ep, err := r.endpoint(args.InstanceNumber, args.Username, args.Password)
		if err != nil {
			res.fail(err.Error())
			return nil
		}
		from, err := time.ParseInLocation(CheckFromLayout, strings.TrimSpace(args.CheckFrom), time.Local)
		if err != nil {
			res.fail(fmt.Sprintf("Invalid check_from %q, expected format ddmmyyyy", args.CheckFrom))
			return nil
		}

		var findings []string
		logger.Debugf("Checking system log")
		entries, err := r.sap.SyslogErrors(ctx, ep, from, nil)
		switch {
		case errors.Is(err, services.ErrUnexpected):
			return err
		case err != nil:
			msg := "Cannot retrieve system log"
			logger.Errorf("%s: %v", msg, err)
			findings = append(findings, msg)
		}
		seen := map[string]bool{}
		for _, entry := range entries {
			if nonCriticalSyslogErrors[entry.Text] {
				continue
			}
			msg := multipleSpaces.ReplaceAllString("SM21: "+entry.Text, " ")
			if seen[msg] {
				continue
			}
			seen[msg] = true
			logger.Errorf("Syslog error: %s", msg)
			findings = append(findings, msg)
		}

		logger.Debugf("Checking for work process errors")
		wps, err := r.sap.WorkProcessTable(ctx, ep)
		switch {
		case errors.Is(err, services.ErrUnexpected):
			return err
		case err != nil:
			msg := "Cannot retrieve workprocess table"
			logger.Errorf("%s: %v", msg, err)
			findings = append(findings, msg)
		}
		for _, wp := range wps {
			if !wp.Abnormal() {
				continue
			}
			reason := ""
			if wp.Reason != "" {
				reason = fmt.Sprintf(" (reason: %s)", wp.Reason)
			}
			msg := fmt.Sprintf("SM50: %s work process %d (PID: %d) is in status %s%s with error '%s'",
				wp.Type, wp.No, wp.Pid, wp.Status, reason, wp.Err)
			logger.Error(msg)
			findings = append(findings, msg)
		}

		if len(findings) > 0 {
			res.Details = findings
			res.fail(strings.Join(findings, "\n"))
			return nil
		}
		res.Comment = "System health OK"
		return nil
	})
}
