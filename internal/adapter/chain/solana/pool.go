package solana

import (
	"fmt"
	"sync"
	"time"

	"crypto-checkout-gateway/config"
	"crypto-checkout-gateway/internal/core/domain"
	"crypto-checkout-gateway/internal/core/ports"

	"github.com/gagliardetto/solana-go/rpc"
	"github.com/rs/zerolog"
)

type poolKey struct {
	network    domain.Network
	commitment rpc.CommitmentType
}

// ConnectionPool hands out one RPC client per (network, commitment). It is
// created once at startup and passed to the components that read the chain.
type ConnectionPool struct {
	cfg        config.ChainConfig
	commitment rpc.CommitmentType
	log        zerolog.Logger

	mu      sync.Mutex
	clients map[poolKey]*Client
}

// NewConnectionPool validates the chain configuration and creates an empty pool.
func NewConnectionPool(cfg config.ChainConfig, log zerolog.Logger) (*ConnectionPool, error) {
	commitment, err := ParseCommitment(cfg.Commitment)
	if err != nil {
		return nil, err
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 10 * time.Second
	}
	return &ConnectionPool{
		cfg:        cfg,
		commitment: commitment,
		log:        log,
		clients:    make(map[poolKey]*Client),
	}, nil
}

// Reader returns the client for network at the configured commitment.
func (p *ConnectionPool) Reader(network domain.Network) (ports.ChainReader, error) {
	return p.Client(network)
}

// Client returns the concrete client, dialing it on first use.
func (p *ConnectionPool) Client(network domain.Network) (*Client, error) {
	key := poolKey{network: network, commitment: p.commitment}

	p.mu.Lock()
	defer p.mu.Unlock()

	if c, ok := p.clients[key]; ok {
		return c, nil
	}

	endpoint, ok := p.cfg.Endpoint(string(network))
	if !ok {
		return nil, fmt.Errorf("no rpc endpoint configured for %s", network)
	}

	c := NewClient(rpc.New(endpoint), network, p.commitment, p.cfg.RequestTimeout)
	p.clients[key] = c

	p.log.Info().
		Str("network", string(network)).
		Str("commitment", string(p.commitment)).
		Msg("Solana RPC client created")
	return c, nil
}

// ParseCommitment maps a config value to an RPC commitment level.
func ParseCommitment(s string) (rpc.CommitmentType, error) {
	switch rpc.CommitmentType(s) {
	case rpc.CommitmentProcessed, rpc.CommitmentConfirmed, rpc.CommitmentFinalized:
		return rpc.CommitmentType(s), nil
	case "":
		return rpc.CommitmentConfirmed, nil
	}
	return "", fmt.Errorf("unknown commitment %q", s)
}
