package relay

import (
	"context"
	"fmt"
	"net"
	"net/url"
)

// ProbeEndpoint checks that the host in a WebSocket URL resolves. It is a
// readiness signal only; it does not dial or authenticate.
func ProbeEndpoint(ctx context.Context, wsURL string) error {
	u, err := url.Parse(wsURL)
	if err != nil {
		return fmt.Errorf("relay: parse endpoint: %w", err)
	}
	host := u.Hostname()
	if host == "" {
		return fmt.Errorf("relay: endpoint %q has no host", wsURL)
	}
	if _, err := net.DefaultResolver.LookupHost(ctx, host); err != nil {
		return fmt.Errorf("relay: resolve %s: %w", host, err)
	}
	return nil
}
