package proc

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"os/user"
	"sort"
	"strings"
	"time"

	"sapcontrol-keeper/internal/logger"
	"sapcontrol-keeper/internal/utils"

	"github.com/mattn/go-shellwords"
	"github.com/pkg/errors"
)

/**
 * Command to execute on the local host
 * @property {string} Line - Command line in shell word syntax
 * @property {string} RunAs - Local user to run the command as, empty runs as the current user
 * @property {map[string]string} Env - Additional environment variables
 * @property {time.Duration} Timeout - Kill the command after this duration, 0 means no limit
 * @property {[]string} Secrets - Values masked when the command line is logged
 */
type Command struct {
	Line    string
	RunAs   string
	Env     map[string]string
	Timeout time.Duration
	Secrets []string
}

// String returns the command line with secrets masked.
func (c Command) String() string {
	line := c.Line
	for _, secret := range c.Secrets {
		if secret != "" {
			line = strings.ReplaceAll(line, secret, "******")
		}
	}
	return line
}

// Result of a finished command. ExitCode is -1 if the command was killed.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Succeeded reports a zero exit code.
func (r Result) Succeeded() bool {
	return r.ExitCode == 0
}

// Runner runs local commands. A non-zero exit code is not an error; errors
// mean the command could not be run at all.
type Runner interface {
	Run(ctx context.Context, cmd Command) (Result, error)
}

// ExecRunner runs commands through os/exec, using su(1) to switch users.
type ExecRunner struct {
	// SuPath is the su binary used for RunAs.
	SuPath string
}

func NewExecRunner() *ExecRunner {
	return &ExecRunner{SuPath: "su"}
}

/**
 * Run a command and collect its output
 * @param {context.Context} ctx - Context for cancellation
 * @param {Command} cmd - Command to run
 * @returns {Result} Stdout, stderr and exit code
 * @returns {error} Error if the command line cannot be parsed or the process cannot start
 * @description
 * - Splits the command line with shellwords, no shell is involved for the current user
 * - For another user the command runs through "su -l <user> -c", environment
 *   variables are passed with env(1) because su resets the environment
 * - A timeout kills the process and reports ExitCode -1
 */
func (r *ExecRunner) Run(ctx context.Context, cmd Command) (Result, error) {
	if cmd.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cmd.Timeout)
		defer cancel()
	}

	name, args, env, err := r.argv(cmd)
	if err != nil {
		return Result{ExitCode: -1}, err
	}
	logger.Debugf("Executing command: %s (runas: %q)", cmd, cmd.RunAs)

	execCmd := exec.CommandContext(ctx, name, args...)
	execCmd.Env = env

	var stdout, stderr bytes.Buffer
	execCmd.Stdout = &stdout
	execCmd.Stderr = &stderr

	err = execCmd.Run()
	res := Result{
		Stdout: strings.TrimRight(stdout.String(), "\n"),
		Stderr: strings.TrimRight(stderr.String(), "\n"),
	}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && ctx.Err() == nil {
			res.ExitCode = exitErr.ExitCode()
			return res, nil
		}
		res.ExitCode = -1
		if ctx.Err() != nil {
			return res, errors.Wrapf(ctx.Err(), "command %q", cmd.String())
		}
		return res, errors.Wrapf(err, "command %q", cmd.String())
	}
	return res, nil
}

func (r *ExecRunner) argv(cmd Command) (string, []string, []string, error) {
	if !needsSwitch(cmd.RunAs) {
		words, err := shellwords.Parse(cmd.Line)
		if err != nil {
			return "", nil, nil, errors.Wrapf(err, "parse command %q", cmd.Line)
		}
		if len(words) == 0 {
			return "", nil, nil, errors.New("empty command")
		}
		return words[0], words[1:], mergeEnv(cmd.Env), nil
	}

	line := cmd.Line
	if len(cmd.Env) > 0 {
		line = "env " + strings.Join(envPairs(cmd.Env, true), " ") + " " + line
	}
	su := r.SuPath
	if su == "" {
		su = "su"
	}
	return su, []string{"-l", cmd.RunAs, "-c", line}, nil, nil
}

func needsSwitch(runAs string) bool {
	if runAs == "" {
		return false
	}
	current, err := user.Current()
	if err != nil {
		return true
	}
	return current.Username != runAs
}

// mergeEnv returns nil (inherit) when there is nothing to add.
func mergeEnv(extra map[string]string) []string {
	if len(extra) == 0 {
		return nil
	}
	return append(os.Environ(), envPairs(extra, false)...)
}

func envPairs(env map[string]string, quote bool) []string {
	keys := make([]string, 0, len(env))
	for k := range env {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		v := env[k]
		if quote {
			v = utils.ShellQuote(v)
		}
		pairs = append(pairs, k+"="+v)
	}
	return pairs
}

/**
 * Locate an executable in the PATH of a user
 * @param {context.Context} ctx - Context for cancellation
 * @param {Runner} runner - Runner used to execute which(1)
 * @param {string} executable - Name or absolute path of the executable
 * @param {string} runAs - User whose PATH is searched, empty uses the current user
 * @returns {string} Absolute path, empty if not found
 */
func Which(ctx context.Context, runner Runner, executable, runAs string) string {
	res, err := runner.Run(ctx, Command{
		Line:  "which " + utils.ShellQuote(executable),
		RunAs: runAs,
	})
	if err != nil {
		logger.Debugf("which %s failed: %v", executable, err)
		return ""
	}
	if !res.Succeeded() {
		return ""
	}
	return strings.TrimSpace(res.Stdout)
}
