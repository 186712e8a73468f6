package solana

import (
	"context"
	"fmt"
)

// HealthCheck implements ports.HealthChecker for one network's RPC node.
type HealthCheck struct {
	client *Client
}

// NewHealthCheck creates a Solana RPC health checker.
func NewHealthCheck(client *Client) *HealthCheck {
	return &HealthCheck{client: client}
}

// Ping asks the node whether it is caught up.
func (h *HealthCheck) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, h.client.timeout)
	defer cancel()

	status, err := h.client.rpc.GetHealth(ctx)
	if err != nil {
		return h.client.wrap("getHealth", err)
	}
	if status != "ok" {
		return fmt.Errorf("solana %s node reports %q", h.client.network, status)
	}
	return nil
}

// Name returns the dependency name.
func (h *HealthCheck) Name() string {
	return "solana-" + string(h.client.network)
}
