package netprobe

import (
	"errors"
	"fmt"
	"net/netip"
	"strconv"
	"strings"
)

// ErrInvalidPort marks user input rejected before any connection attempt.
// It is deliberately distinct from a probe that finds the port closed.
var ErrInvalidPort = errors.New("port must be an integer in range 1-65535")

// ErrInvalidHost marks a host override that is not an IP literal.
var ErrInvalidHost = errors.New("host must be an IP literal")

// ParsePort validates raw user input as a probe-able port number.
func ParsePort(raw string) (uint16, error) {
	raw = strings.TrimSpace(raw)
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 || n > 65535 {
		return 0, fmt.Errorf("%w: got %q", ErrInvalidPort, raw)
	}
	return uint16(n), nil
}

// ParseHost validates a host override.
func ParseHost(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if _, err := netip.ParseAddr(raw); err != nil {
		return "", fmt.Errorf("%w: got %q", ErrInvalidHost, raw)
	}
	return raw, nil
}

// IsInvalidInput reports whether err stems from rejected user input rather
// than a probe outcome.
func IsInvalidInput(err error) bool {
	return errors.Is(err, ErrInvalidPort) || errors.Is(err, ErrInvalidHost)
}
