package models

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

/**
 * Address and credentials of one sapcontrol (sapstartsrv) endpoint
 * @property {string} Host - FQDN of the host running the instance, empty means the local host
 * @property {int} InstanceNumber - Instance number 0..99
 * @property {string} Username - User for HTTP basic authentication
 * @property {string} Password - Password for HTTP basic authentication
 * @property {bool} Fallback - Retry over plain HTTP (port 5NN13) if HTTPS fails
 * @property {time.Duration} Timeout - Transport and operation timeout
 */
type InstanceEndpoint struct {
	Host           string        `json:"host"`
	InstanceNumber int           `json:"instanceNumber"`
	Username       string        `json:"username"`
	Password       string        `json:"-"`
	Fallback       bool          `json:"fallback"`
	Timeout        time.Duration `json:"timeout"`
}

// Number returns the instance number as used in ports and remote calls ("00".."99").
func (ep InstanceEndpoint) Number() string {
	return fmt.Sprintf("%02d", ep.InstanceNumber)
}

// ShortHost returns the host name without its domain.
func (ep InstanceEndpoint) ShortHost() string {
	host, _, _ := strings.Cut(ep.Host, ".")
	return host
}

// Domain returns the domain part of Host including the leading dot, or "" for bare host names.
func (ep InstanceEndpoint) Domain() string {
	_, domain, found := strings.Cut(ep.Host, ".")
	if !found {
		return ""
	}
	return "." + domain
}

func (ep InstanceEndpoint) String() string {
	return fmt.Sprintf("%s/%s", ep.Host, ep.Number())
}

// ParseInstanceNumber accepts "0", "00" or "7" style numbers and validates the 0..99 range.
func ParseInstanceNumber(s string) (int, error) {
	nr, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("invalid instance number %q", s)
	}
	if nr < 0 || nr > 99 {
		return 0, fmt.Errorf("instance number %d out of range 00..99", nr)
	}
	return nr, nil
}

// ExecutionOptions carries options of the driving orchestration run.
type ExecutionOptions struct {
	Test bool `json:"test"` // dry-run: report changes without applying them
}
