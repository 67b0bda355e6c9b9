package sbbprotocol

import (
	"fmt"
	"net"
	"strconv"
	"strings"
)

// Endpoint is the host and port of a sys-botbase console.
type Endpoint struct {
	Host string
	Port int
}

// String returns the endpoint in host:port form.
func (e Endpoint) String() string {
	return net.JoinHostPort(e.Host, strconv.Itoa(e.Port))
}

// Validate checks that the endpoint can be dialed.
func (e Endpoint) Validate() error {
	if strings.TrimSpace(e.Host) == "" {
		return fmt.Errorf("%w: empty host", ErrInvalidEndpoint)
	}
	if strings.ContainsAny(e.Host, " \t\r\n/") {
		return fmt.Errorf("%w: host %q", ErrInvalidEndpoint, e.Host)
	}
	if e.Port < 1 || e.Port > 65535 {
		return fmt.Errorf("%w: port %d out of range", ErrInvalidEndpoint, e.Port)
	}
	return nil
}
