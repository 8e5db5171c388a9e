package states

import (
	"context"
	"fmt"

	"sapcontrol-keeper/internal/logger"

	"github.com/pkg/errors"
	"github.com/rs/xid"
	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

// Declaration is one entry of a state file.
type Declaration struct {
	ID    string    `yaml:"id"`
	State string    `yaml:"state"`
	Args  yaml.Node `yaml:"args"`
}

/**
 * Load a YAML state file
 * @param {afero.Fs} fs - Filesystem to read from
 * @param {string} path - Path of the state file
 * @returns {[]Declaration} Declarations in file order
 * @returns {error} Error if the file cannot be read or a declaration has no id or state
 */
func LoadFile(fs afero.Fs, path string) ([]Declaration, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, errors.Wrapf(err, "read state file %s", path)
	}
	return ParseDeclarations(data)
}

// ParseDeclarations parses the content of a state file.
func ParseDeclarations(data []byte) ([]Declaration, error) {
	var decls []Declaration
	if err := yaml.Unmarshal(data, &decls); err != nil {
		return nil, errors.Wrap(err, "parse state file")
	}
	for i, d := range decls {
		if d.ID == "" {
			return nil, errors.Errorf("declaration %d has no id", i+1)
		}
		if d.State == "" {
			return nil, errors.Errorf("declaration %q has no state", d.ID)
		}
	}
	return decls, nil
}

/**
 * Apply declarations in order
 * @param {context.Context} ctx - Context for cancellation
 * @param {[]Declaration} decls - Declarations from LoadFile
 * @returns {[]Result} Results of all executed declarations, tagged with one run id
 * @returns {error} Unknown states, invalid arguments or unexpected remote responses stop the run
 * @description
 * - Failed states do not stop the run
 */
func (r *Runner) Apply(ctx context.Context, decls []Declaration) ([]Result, error) {
	id := xid.New().String()
	ctx = WithRunID(ctx, id)
	logger.Infof("Applying %d declarations (run %s, test=%t)", len(decls), id, r.opts.Test)

	results := make([]Result, 0, len(decls))
	for _, d := range decls {
		res, err := r.applyOne(withDeclID(ctx, d.ID), d)
		res.ID = d.ID
		if res.State != "" {
			results = append(results, res)
		}
		if err != nil {
			return results, errors.Wrapf(err, "declaration %q", d.ID)
		}
		logger.Infof("%s: %s (%s)", d.ID, res.Outcome, res.Comment)
	}
	return results, nil
}

func (r *Runner) applyOne(ctx context.Context, d Declaration) (Result, error) {
	switch d.State {
	case StateRunning:
		var args RunningArgs
		if err := decodeArgs(d, &args); err != nil {
			return Result{}, err
		}
		return r.Running(ctx, args)
	case StateDead:
		var args DeadArgs
		if err := decodeArgs(d, &args); err != nil {
			return Result{}, err
		}
		return r.Dead(ctx, args)
	case StateSLDRegistered:
		var args SLDArgs
		if err := decodeArgs(d, &args); err != nil {
			return Result{}, err
		}
		return r.SLDRegistered(ctx, args)
	case StateSystemHealthOK:
		var args HealthArgs
		if err := decodeArgs(d, &args); err != nil {
			return Result{}, err
		}
		return r.SystemHealthOK(ctx, args)
	}
	return Result{}, fmt.Errorf("unknown state %q", d.State)
}

func decodeArgs(d Declaration, out interface{}) error {
	if d.Args.Kind == 0 {
		return nil
	}
	if err := d.Args.Decode(out); err != nil {
		return errors.Wrap(err, "invalid arguments")
	}
	return nil
}
