package store

import (
	"context"

	"sapcontrol-keeper/states"
)

// Filter selects history entries. Zero values match everything.
type Filter struct {
	RunID string
	State string
	Name  string
	Limit int
}

// Store persists results of convergence runs.
type Store interface {
	Record(ctx context.Context, res states.Result) error
	List(ctx context.Context, filter Filter) ([]states.Result, error)
	Close() error
}
