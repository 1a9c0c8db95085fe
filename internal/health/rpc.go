// Package health checks the liveness of the oracle's chain endpoint.
package health

import (
	"context"
	"errors"
	"fmt"
)

// Pinger is anything that can check its own connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// RPCChecker reports the health of the configured chain RPC endpoint.
type RPCChecker struct {
	client Pinger
}

// NewRPCChecker creates a checker. client may be nil when no endpoint is
// configured; the check then fails with a configuration error.
func NewRPCChecker(client Pinger) *RPCChecker {
	return &RPCChecker{client: client}
}

// Ping checks the chain endpoint.
func (c *RPCChecker) Ping(ctx context.Context) error {
	if c.client == nil {
		return errors.New("no rpc endpoint configured")
	}
	if err := c.client.Ping(ctx); err != nil {
		return fmt.Errorf("chain rpc: %w", err)
	}
	return nil
}
