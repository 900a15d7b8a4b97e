package types

import (
	"fmt"
	"net"
	"net/netip"
	"strconv"
)

// Target identifies the host:port pair a probe connects to. The host must be
// an IP literal; the agent never performs DNS resolution.
type Target struct {
	Host string `json:"host" yaml:"host"`
	Port uint16 `json:"port" yaml:"port"`
}

// Validate reports whether the target can be probed at all.
func (t Target) Validate() error {
	if _, err := netip.ParseAddr(t.Host); err != nil {
		return fmt.Errorf("host %q is not an IP literal: %w", t.Host, err)
	}
	if t.Port == 0 {
		return fmt.Errorf("port must be in range 1-65535")
	}
	return nil
}

// Addr returns the dialable host:port form.
func (t Target) Addr() string {
	return net.JoinHostPort(t.Host, strconv.Itoa(int(t.Port)))
}

func (t Target) String() string {
	return t.Addr()
}
