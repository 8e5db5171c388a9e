package states

import (
	"context"
	"fmt"

	"sapcontrol-keeper/internal/logger"
)

// RunningArgs are the arguments of the running state.
type RunningArgs struct {
	Name     string `json:"name" yaml:"name"` // SID
	Instance string `json:"instance" yaml:"instance"`
	Username string `json:"username" yaml:"username"`
	Password string `json:"password" yaml:"password"`
	Restart  bool   `json:"restart" yaml:"restart"`
}

// DeadArgs are the arguments of the dead state.
type DeadArgs struct {
	Name     string `json:"name" yaml:"name"`
	Instance string `json:"instance" yaml:"instance"`
	Username string `json:"username" yaml:"username"`
	Password string `json:"password" yaml:"password"`
}

/**
 * Ensure sapcontrol (sapstartsrv) of an instance is running
 * @param {context.Context} ctx - Context for cancellation
 * @param {RunningArgs} args - SID, instance number and credentials
 * @returns {Result} Checked if it runs already and no restart was requested
 * @returns {error} Only for unexpected remote responses
 * @description
 * - Restart forces a restart of a running sapcontrol
 * - In dry-run the start or restart is reported, not performed
 */
func (r *Runner) Running(ctx context.Context, args RunningArgs) (Result, error) {
	return r.track(ctx, StateRunning, args.Name, func(res *Result) error {
		ep, err := r.endpoint(args.Instance, args.Username, args.Password)
		if err != nil {
			res.fail(err.Error())
			return nil
		}
		target := fmt.Sprintf("sapcontrol for %s / %s", args.Name, ep.Number())

		up, err := r.sap.Status(ctx, ep)
		if err != nil {
			msg := fmt.Sprintf("Cannot retrieve status for sapcontrol / instance %s", ep.Number())
			logger.Errorf("%s: %v", msg, err)
			res.fail(msg)
			return nil
		}

		if up {
			logger.Debugf("sapcontrol is running")
			if !args.Restart {
				res.Comment = "sapcontrol is already running"
				return nil
			}
			if r.opts.Test {
				res.Comment = "sapcontrol would have been restarted"
				res.change("sapcontrol", target+" was running", target+" would have been restarted")
				return nil
			}
			ok, err := r.sap.Restart(ctx, args.Name, ep, r.opts.Timeout)
			if err != nil {
				return err
			}
			if !ok {
				logger.Errorf("Cannot restart %s", target)
				res.fail(fmt.Sprintf("Cannot start sapcontrol %s / %s", args.Name, ep.Number()))
				return nil
			}
			res.Comment = "sapcontrol was restarted"
			res.change("sapcontrol", target+" was running", target+" was restarted")
			return nil
		}

		logger.Debugf("sapcontrol is not running, starting")
		if r.opts.Test {
			res.Comment = "sapcontrol would have been started"
			res.change("sapcontrol", target+" was not running", target+" would have been started")
			return nil
		}
		ok, err := r.sap.Start(ctx, args.Name, ep, r.opts.Timeout)
		if err != nil {
			return err
		}
		if !ok {
			logger.Errorf("Cannot start %s", target)
			res.fail(fmt.Sprintf("Cannot start sapcontrol %s / %s", args.Name, ep.Number()))
			return nil
		}
		res.Comment = "sapcontrol was started"
		res.change("sapcontrol", target+" was not running", target+" was started")
		return nil
	})
}

// Dead ensures sapcontrol of an instance is stopped.
func (r *Runner) Dead(ctx context.Context, args DeadArgs) (Result, error) {
	return r.track(ctx, StateDead, args.Name, func(res *Result) error {
		ep, err := r.endpoint(args.Instance, args.Username, args.Password)
		if err != nil {
			res.fail(err.Error())
			return nil
		}
		target := fmt.Sprintf("sapcontrol for %s / %s", args.Name, ep.Number())

		up, err := r.sap.Status(ctx, ep)
		if err != nil {
			msg := fmt.Sprintf("Cannot retrieve status for sapcontrol / instance %s", ep.Number())
			logger.Errorf("%s: %v", msg, err)
			res.fail(msg)
			return nil
		}
		if !up {
			res.Comment = "sapcontrol is already stopped"
			return nil
		}

		logger.Debugf("sapcontrol is running, stopping")
		if r.opts.Test {
			res.Comment = "sapcontrol would have been stopped"
			res.change("sapcontrol", target+" is running", target+" would have been stopped")
			return nil
		}
		ok, err := r.sap.Stop(ctx, ep, r.opts.Timeout)
		if err != nil {
			return err
		}
		if !ok {
			logger.Errorf("Cannot stop sapcontrol")
			res.fail("Cannot stop sapcontrol")
			return nil
		}
		res.Comment = "sapcontrol was stopped"
		res.change("sapcontrol", target+" was running", target+" is not running")
		return nil
	})
}
