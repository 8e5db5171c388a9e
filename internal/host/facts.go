package host

import (
	"context"
	"net"
	"strings"

	"sapcontrol-keeper/internal/logger"

	"github.com/pkg/errors"
	gohost "github.com/shirou/gopsutil/v3/host"
)

// Facts provides facts about the local host.
type Facts interface {
	FQDN(ctx context.Context) (string, error)
	OS(ctx context.Context) (string, error)
}

// StaticFacts returns fixed values, used when the FQDN is configured.
type StaticFacts struct {
	Hostname string
	System   string
}

func (f StaticFacts) FQDN(ctx context.Context) (string, error) {
	if f.Hostname == "" {
		return "", errors.New("no FQDN configured")
	}
	return f.Hostname, nil
}

func (f StaticFacts) OS(ctx context.Context) (string, error) {
	if f.System == "" {
		return "linux", nil
	}
	return f.System, nil
}

// SystemFacts reads facts from the running system.
type SystemFacts struct {
	resolver *net.Resolver
}

func NewSystemFacts() *SystemFacts {
	return &SystemFacts{resolver: net.DefaultResolver}
}

/**
 * Determine the fully qualified domain name of the local host
 * @param {context.Context} ctx - Context for cancellation of DNS lookups
 * @returns {string} FQDN, or the plain host name if no domain can be found
 * @returns {error} Error if the host name cannot be read
 * @description
 * - Host name from gopsutil; returned as is if it already contains a domain
 * - Otherwise the addresses of the host name are reverse resolved and the first
 *   name whose first label matches the host name wins
 * - Falls back to the canonical name, then to the plain host name
 */
func (f *SystemFacts) FQDN(ctx context.Context) (string, error) {
	info, err := gohost.InfoWithContext(ctx)
	if err != nil {
		return "", errors.Wrap(err, "read host info")
	}
	hostname := info.Hostname
	if strings.Contains(hostname, ".") {
		return hostname, nil
	}

	addrs, err := f.resolver.LookupHost(ctx, hostname)
	if err == nil {
		for _, addr := range addrs {
			names, err := f.resolver.LookupAddr(ctx, addr)
			if err != nil {
				continue
			}
			if fqdn := matchFQDN(hostname, names); fqdn != "" {
				return fqdn, nil
			}
		}
	}

	if cname, err := f.resolver.LookupCNAME(ctx, hostname); err == nil {
		if fqdn := matchFQDN(hostname, []string{cname}); fqdn != "" {
			return fqdn, nil
		}
	}

	logger.Warnf("Cannot determine domain of host %s, using the plain host name", hostname)
	return hostname, nil
}

func (f *SystemFacts) OS(ctx context.Context) (string, error) {
	info, err := gohost.InfoWithContext(ctx)
	if err != nil {
		return "", errors.Wrap(err, "read host info")
	}
	return info.OS, nil
}

func matchFQDN(hostname string, names []string) string {
	for _, name := range names {
		name = strings.TrimSuffix(name, ".")
		first, _, found := strings.Cut(name, ".")
		if found && strings.EqualFold(first, hostname) {
			return name
		}
	}
	return ""
}
