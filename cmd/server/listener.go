package server

import (
	"net"
	"os"
	"path/filepath"
	"strings"

	"sapcontrol-keeper/internal/logger"
)

type ListenAddr struct {
	Network string
	Address string
}

/**
 * Parse the configured listen addresses
 * @param {string} list - Comma separated addresses, "unix:" prefixes a socket path
 * @returns {[]ListenAddr} Addresses in configuration order
 * @example
 * ParseListenAddrs("127.0.0.1:8997,unix:/run/sapctl-keeper.sock")
 */
func ParseListenAddrs(list string) []ListenAddr {
	var addrs []ListenAddr
	for _, part := range strings.Split(list, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if path, ok := strings.CutPrefix(part, "unix:"); ok {
			addrs = append(addrs, ListenAddr{Network: "unix", Address: path})
			continue
		}
		addrs = append(addrs, ListenAddr{Network: "tcp", Address: part})
	}
	return addrs
}

/**
 * Create TCP and Unix socket listeners
 * @param {[]ListenAddr} addrs - Listener addresses
 * @returns {[]net.Listener} Listeners that could be created
 * @returns {error} Last creation error, nil if all listeners were created
 * @description
 * - Stale socket files are removed, the socket directory is created
 * - Sockets are restricted to the owner and group (0660), they grant sapcontrol access
 */
func CreateListeners(addrs []ListenAddr) ([]net.Listener, error) {
	var listeners []net.Listener

	var lastErr error
	for _, addr := range addrs {
		if addr.Network == "unix" {
			if err := os.Remove(addr.Address); err != nil && !os.IsNotExist(err) {
				logger.Errorf("Failed to remove existing socket file: %v", err)
				lastErr = err
				continue
			}
			if err := os.MkdirAll(filepath.Dir(addr.Address), 0755); err != nil {
				logger.Errorf("Failed to create socket directory: %v", err)
				lastErr = err
				continue
			}
		}
		l, err := net.Listen(addr.Network, addr.Address)
		if err != nil {
			logger.Errorf("Failed to create listener on %s://%s: %v", addr.Network, addr.Address, err)
			lastErr = err
			continue
		}
		if addr.Network == "unix" {
			if err := os.Chmod(addr.Address, 0660); err != nil {
				logger.Warnf("Failed to restrict socket %s: %v", addr.Address, err)
			}
		}
		listeners = append(listeners, l)
	}
	return listeners, lastErr
}
