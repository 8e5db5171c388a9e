package states

import (
	"context"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"sapcontrol-keeper/internal/logger"
	"sapcontrol-keeper/internal/models"
	"sapcontrol-keeper/internal/proc"
	"sapcontrol-keeper/internal/utils"
	"sapcontrol-keeper/services"

	"github.com/magiconair/properties"
	"github.com/pkg/errors"
	"github.com/spf13/afero"
)

// DefaultSLDCheckTimeout bounds the wait for the SLD data transfer, in seconds.
const DefaultSLDCheckTimeout = 60

var returnCodePattern = regexp.MustCompile(`Return code: ([0-9]{3})`)

var showConnectParams = []string{"host_param", "https_param", "port_param", "user_param"}

/**
 * Arguments of the sld_registered state
 * @property {string} Name - Path of the SLD destination file (slddest.cfg)
 * @property {string} SID - SAP system ID
 * @property {string} InstanceNumber - Instance whose sapcontrol is restarted
 * @property {string} Username - OS user and sapcontrol user
 * @property {string} Password - sapcontrol password
 * @property {string} SLDUser - SLD user
 * @property {string} SLDPassword - SLD password
 * @property {string} SLDHost - SLD host
 * @property {string} SLDPort - SLD HTTPS port
 * @property {[]string} LogFiles - Logs watched for "Return code: 200" after the restart
 * @property {*bool} RemoveLogs - Remove LogFiles before the restart, default true
 * @property {bool} Overwrite - Configure even if the existing configuration matches
 * @property {int} SLDCheckTimeout - Seconds to wait for the data transfer, default 60
 */
type SLDArgs struct {
	Name            string   `json:"name" yaml:"name"`
	SID             string   `json:"sid" yaml:"sid"`
	InstanceNumber  string   `json:"instance_number" yaml:"instance_number"`
	Username        string   `json:"username" yaml:"username"`
	Password        string   `json:"password" yaml:"password"`
	SLDUser         string   `json:"sld_user" yaml:"sld_user"`
	SLDPassword     string   `json:"sld_password" yaml:"sld_password"`
	SLDHost         string   `json:"sld_host" yaml:"sld_host"`
	SLDPort         string   `json:"sld_port" yaml:"sld_port"`
	LogFiles        []string `json:"log_files" yaml:"log_files"`
	RemoveLogs      *bool    `json:"remove_logs" yaml:"remove_logs"`
	Overwrite       bool     `json:"overwrite" yaml:"overwrite"`
	SLDCheckTimeout int      `json:"sld_check_timeout" yaml:"sld_check_timeout"`
}

func (a SLDArgs) removeLogs() bool {
	return a.RemoveLogs == nil || *a.RemoveLogs
}

func (a SLDArgs) checkTimeout() time.Duration {
	if a.SLDCheckTimeout <= 0 {
		return DefaultSLDCheckTimeout * time.Second
	}
	return time.Duration(a.SLDCheckTimeout) * time.Second
}

// SLDRegistered ensures the instance is registered in the SLD and its data
// transfer succeeds.
func (r *Runner) SLDRegistered(ctx context.Context, args SLDArgs) (Result, error) {
	return r.track(ctx, StateSLDRegistered, args.Name, func(res *Result) error {
		ep, err := r.endpoint(args.InstanceNumber, args.Username, args.Password)
		if err != nil {
			res.fail(err.Error())
			return nil
		}

		sldreg := proc.Which(ctx, r.runner, "sldreg", args.Username)
		if sldreg == "" {
			msg := fmt.Sprintf("Could not determine path of sldreg for user %s", args.Username)
			logger.Error(msg)
			res.fail(msg)
			return nil
		}
		env := map[string]string{"LD_LIBRARY_PATH": filepath.Dir(sldreg)}

		logger.Debugf("Checking for existing config")
		update := true
		exists, err := afero.Exists(r.fs, args.Name)
		if err != nil {
			res.fail(fmt.Sprintf("Cannot access %s: %v", args.Name, err))
			return nil
		}
		if exists {
			current, err := r.showConnect(ctx, sldreg, args, env)
			if err != nil {
				logger.Errorf("Could not read configuration %s: %v", args.Name, err)
				res.fail(fmt.Sprintf("Could not read configuration %s", args.Name))
				return nil
			}
			if current["user_param"] == args.SLDUser &&
				current["host_param"] == args.SLDHost &&
				current["port_param"] == args.SLDPort &&
				current["https_param"] == "y" {
				update = false
			}
		}
		if !update && !args.Overwrite {
			res.Comment = "No changes required"
			return nil
		}

		logger.Debugf("Updating configuration")
		if r.opts.Test {
			res.change("config", "", fmt.Sprintf("Configuration %s would have been updated", args.Name))
		} else {
			if err := r.configure(ctx, sldreg, args, env); err != nil {
				logger.Errorf("Could not update configuration: %v", err)
				res.fail("Could not update configuration")
				return nil
			}
			res.change("config", "", fmt.Sprintf("Configuration %s updated", args.Name))
		}

		if args.removeLogs() {
			r.removeLogs(args.LogFiles, res)
		}

		logger.Debugf("Restarting sapcontrol to trigger SLD data transfer")
		if r.opts.Test {
			res.change("sapcontrol", "", "Would have been restarted")
		} else {
			ok, err := r.sap.Restart(ctx, args.SID, ep, r.opts.Timeout)
			if err != nil {
				return err
			}
			if !ok {
				res.fail("Could not restart sapcontrol")
				return nil
			}
			res.change("sapcontrol", "", "Restarted")
		}

		allSuccess := true
		if !r.opts.Test && len(args.LogFiles) > 0 {
			logger.Debugf("Checking log files for success")
			allSuccess, err = services.PollUntil(ctx, func(ctx context.Context) (models.StatusCode, error) {
				if r.transferSucceeded(args.LogFiles) {
					return models.StatusRunning, nil
				}
				return models.StatusTransitioning, nil
			}, models.StatusRunning, args.checkTimeout(), r.opts.LogCheckInterval)
			if err != nil {
				return err
			}
		}

		if !allSuccess {
			res.fail("SLD data transfer not successful")
			return nil
		}
		switch {
		case len(args.LogFiles) > 0 && r.opts.Test:
			res.Comment = "SLD registration and data transfer would have been successful"
		case len(args.LogFiles) > 0:
			res.Comment = "SLD registration and data transfer successful"
		case r.opts.Test:
			res.Comment = "SLD registration would have been successful"
		default:
			res.Comment = "SLD registration successful"
		}
		return nil
	})
}

func (r *Runner) showConnect(ctx context.Context, sldreg string, args SLDArgs, env map[string]string) (map[string]string, error) {
	line, err := utils.GetCommandLine("{{quote .Bin}} -showconnect {{quote .Cfg}}", nil,
		map[string]string{"Bin": sldreg, "Cfg": args.Name})
	if err != nil {
		return nil, err
	}
	out, err := r.runner.Run(ctx, proc.Command{Line: line, RunAs: args.Username, Env: env, Timeout: r.opts.Timeout})
	if err != nil {
		return nil, err
	}
	if !out.Succeeded() {
		return nil, errors.Errorf("sldreg -showconnect exited with %d: %s", out.ExitCode, strings.TrimSpace(out.Stderr))
	}
	return parseShowConnect(out.Stdout)
}

/**
 * Parse the connection parameters printed by "sldreg -showconnect"
 * @param {string} output - Command output
 * @returns {map[string]string} host_param, https_param, port_param and user_param without quotes
 * @description
 * - Text in front of a parameter name on the same line is ignored
 */
func parseShowConnect(output string) (map[string]string, error) {
	var lines []string
	for _, line := range strings.Split(output, "\n") {
		for _, param := range showConnectParams {
			if idx := strings.Index(line, param); idx >= 0 {
				lines = append(lines, line[idx:])
				break
			}
		}
	}
	loader := &properties.Loader{Encoding: properties.UTF8, DisableExpansion: true}
	props, err := loader.LoadBytes([]byte(strings.Join(lines, "\n")))
	if err != nil {
		return nil, errors.Wrap(err, "parse sldreg output")
	}
	ret := make(map[string]string, len(showConnectParams))
	for _, param := range showConnectParams {
		if value, ok := props.Get(param); ok {
			ret[param] = strings.Trim(strings.TrimSpace(value), `'"`)
		}
	}
	return ret, nil
}

func (r *Runner) configure(ctx context.Context, sldreg string, args SLDArgs, env map[string]string) error {
	line, err := utils.GetCommandLine(
		"{{quote .Bin}} -configure {{quote .Cfg}} -usekeyfile -noninteractive",
		[]string{"-user {{quote .User}}", "-pass {{quote .Pass}}", "-host {{quote .Host}}", "-port {{quote .Port}}", "-usehttps"},
		map[string]string{
			"Bin":  sldreg,
			"Cfg":  args.Name,
			"User": args.SLDUser,
			"Pass": args.SLDPassword,
			"Host": args.SLDHost,
			"Port": args.SLDPort,
		})
	if err != nil {
		return err
	}
	out, err := r.runner.Run(ctx, proc.Command{
		Line:    line,
		RunAs:   args.Username,
		Env:     env,
		Timeout: r.opts.Timeout,
		Secrets: []string{args.SLDPassword},
	})
	if err != nil {
		return err
	}
	if !out.Succeeded() {
		return errors.Errorf("sldreg -configure exited with %d: %s", out.ExitCode, strings.TrimSpace(out.Stderr))
	}
	return nil
}

func (r *Runner) removeLogs(files []string, res *Result) {
	logger.Debugf("Removing log files")
	for _, file := range files {
		exists, err := afero.Exists(r.fs, file)
		if err != nil || !exists {
			continue
		}
		if r.opts.Test {
			res.change("log_files", "", fmt.Sprintf("Would remove %s", file))
			continue
		}
		if err := r.fs.Remove(file); err != nil {
			logger.Warnf("Could not remove %s: %v", file, err)
			continue
		}
		res.change("log_files", "", fmt.Sprintf("Removed %s", file))
	}
}

// transferSucceeded reports whether the last return code in every log file is 200.
func (r *Runner) transferSucceeded(files []string) bool {
	for _, file := range files {
		logger.Debugf("Checking %s", file)
		data, err := afero.ReadFile(r.fs, file)
		if err != nil {
			logger.Debugf("%s does not (yet?) exist", file)
			return false
		}
		codes := returnCodePattern.FindAllStringSubmatch(string(data), -1)
		logger.Debugf("Got result from checkup: %v", codes)
		if len(codes) == 0 || codes[len(codes)-1][1] != "200" {
			return false
		}
	}
	return true
}
