package state

import (
	"strconv"
	"time"

	"github.com/pkg/errors"
)

// parseTimeout accepts Go durations ("90s", "5m") and plain seconds ("300").
func parseTimeout(s string) (time.Duration, error) {
	if secs, err := strconv.Atoi(s); err == nil {
		return time.Duration(secs) * time.Second, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, errors.Errorf("invalid timeout %q", s)
	}
	return d, nil
}
