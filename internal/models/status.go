package models

import (
	"fmt"
)

// StatusCode mirrors the four-color status vocabulary of sapcontrol.
type StatusCode int

const (
	StatusStopped       StatusCode = 1 // SAPControl-GRAY
	StatusRunning       StatusCode = 2 // SAPControl-GREEN
	StatusTransitioning StatusCode = 3 // SAPControl-YELLOW
	StatusError         StatusCode = 4 // SAPControl-RED
)

const (
	DispStatusGray   = "SAPControl-GRAY"
	DispStatusGreen  = "SAPControl-GREEN"
	DispStatusYellow = "SAPControl-YELLOW"
	DispStatusRed    = "SAPControl-RED"
)

// ParseDispStatus maps a remote dispstatus string to a StatusCode.
// Unknown values are an error: the remote protocol has been extended.
func ParseDispStatus(s string) (StatusCode, error) {
	switch s {
	case DispStatusGray:
		return StatusStopped, nil
	case DispStatusGreen:
		return StatusRunning, nil
	case DispStatusYellow:
		return StatusTransitioning, nil
	case DispStatusRed:
		return StatusError, nil
	}
	return 0, fmt.Errorf("unknown status %q", s)
}

func (s StatusCode) String() string {
	switch s {
	case StatusStopped:
		return "stopped"
	case StatusRunning:
		return "running"
	case StatusTransitioning:
		return "transitioning"
	case StatusError:
		return "error"
	}
	return fmt.Sprintf("StatusCode(%d)", int(s))
}

func (s StatusCode) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText accepts the names produced by MarshalText and the dispstatus colors.
func (s *StatusCode) UnmarshalText(text []byte) error {
	for _, c := range []StatusCode{StatusStopped, StatusRunning, StatusTransitioning, StatusError} {
		if string(text) == c.String() {
			*s = c
			return nil
		}
	}
	code, err := ParseDispStatus(string(text))
	if err != nil {
		return err
	}
	*s = code
	return nil
}
