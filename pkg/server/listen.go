package server

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"syscall"
)

// Listen binds a TCP listener on address. When the port is already in use
// it tries port+1, port+2, ... up to retries more times. Port 0 asks the
// kernel for a free port and is never retried.
func Listen(address string, retries int, logger *slog.Logger) (net.Listener, error) {
	if logger == nil {
		logger = slog.Default()
	}

	host, portStr, err := net.SplitHostPort(address)
	if err != nil {
		return nil, fmt.Errorf("invalid listen address %q: %w", address, err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil || port < 0 || port > 65535 {
		return nil, fmt.Errorf("invalid listen port %q", portStr)
	}
	if port == 0 {
		retries = 0
	}

	var lastErr error
	for attempt := 0; attempt <= retries && port+attempt <= 65535; attempt++ {
		addr := net.JoinHostPort(host, strconv.Itoa(port+attempt))
		ln, err := net.Listen("tcp", addr)
		if err == nil {
			if attempt > 0 {
				logger.Warn("configured port busy, listening on fallback port",
					"requested", address,
					"address", ln.Addr().String(),
				)
			}
			return ln, nil
		}
		if !errors.Is(err, syscall.EADDRINUSE) {
			return nil, fmt.Errorf("failed to listen on %s: %w", addr, err)
		}
		logger.Debug("address in use", "address", addr)
		lastErr = err
	}

	return nil, fmt.Errorf("no free port in %d attempts starting at %s: %w", retries+1, address, lastErr)
}
