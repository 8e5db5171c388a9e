package states

import (
	"time"
)

// Outcome of a convergence run.
type Outcome string

const (
	OutcomeChecked Outcome = "checked" // already in the desired state
	OutcomeChanged Outcome = "changed"
	OutcomeFailed  Outcome = "failed"
	OutcomePending Outcome = "pending" // dry-run with changes
)

// Change records one before/after pair of a convergence run.
type Change struct {
	Key string `json:"key" yaml:"key"`
	Old string `json:"old,omitempty" yaml:"old,omitempty"`
	New string `json:"new" yaml:"new"`
}

/**
 * Result of one convergence run
 * @property {string} ID - Declaration id from a state file, empty for direct calls
 * @property {string} RunID - Id shared by all results of one Apply
 * @property {string} Name - Target name (SID, config file, ...)
 * @property {string} State - State function, e.g. "running"
 * @property {Outcome} Outcome - checked, changed, failed or pending
 * @property {[]Change} Changes - Ordered change log, empty for no-ops
 * @property {string} Comment - Human readable summary
 * @property {[]string} Details - Individual findings, used by system_health_ok
 */
type Result struct {
	ID       string        `json:"id,omitempty"`
	RunID    string        `json:"runId"`
	Name     string        `json:"name"`
	State    string        `json:"state"`
	Outcome  Outcome       `json:"outcome"`
	Changes  []Change      `json:"changes"`
	Comment  string        `json:"comment"`
	Details  []string      `json:"details,omitempty"`
	Started  time.Time     `json:"started"`
	Duration time.Duration `json:"duration"`
}

// Succeeded is true for checked or changed, false for failed and nil for pending.
func (r Result) Succeeded() *bool {
	var ok bool
	switch r.Outcome {
	case OutcomePending:
		return nil
	case OutcomeChecked, OutcomeChanged:
		ok = true
	}
	return &ok
}

func (r *Result) change(key, before, after string) {
	r.Changes = append(r.Changes, Change{Key: key, Old: before, New: after})
}

func (r *Result) fail(comment string) {
	r.Outcome = OutcomeFailed
	r.Comment = comment
}

func (r *Result) failed() bool {
	return r.Outcome == OutcomeFailed
}

// settle derives the outcome of a run that did not fail.
func (r *Result) settle(test bool) {
	if r.failed() {
		return
	}
	switch {
	case len(r.Changes) == 0:
		r.Outcome = OutcomeChecked
	case test:
		r.Outcome = OutcomePending
	default:
		r.Outcome = OutcomeChanged
	}
}
