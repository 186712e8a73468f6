package solana

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"crypto-checkout-gateway/internal/core/domain"
	"crypto-checkout-gateway/internal/core/ports"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
)

// RPC is the subset of *rpc.Client the gateway calls.
type RPC interface {
	GetTokenSupply(ctx context.Context, mint solana.PublicKey, commitment rpc.CommitmentType) (*rpc.GetTokenSupplyResult, error)
	GetTokenAccountBalance(ctx context.Context, account solana.PublicKey, commitment rpc.CommitmentType) (*rpc.GetTokenAccountBalanceResult, error)
	GetAccountInfoWithOpts(ctx context.Context, account solana.PublicKey, opts *rpc.GetAccountInfoOpts) (*rpc.GetAccountInfoResult, error)
	GetLatestBlockhash(ctx context.Context, commitment rpc.CommitmentType) (*rpc.GetLatestBlockhashResult, error)
	GetHealth(ctx context.Context) (string, error)
}

// Client implements ports.ChainReader. Every call is bounded by timeout.
type Client struct {
	rpc        RPC
	network    domain.Network
	commitment rpc.CommitmentType
	timeout    time.Duration
}

// NewClient wraps an RPC client for one network.
func NewClient(c RPC, network domain.Network, commitment rpc.CommitmentType, timeout time.Duration) *Client {
	return &Client{rpc: c, network: network, commitment: commitment, timeout: timeout}
}

var _ ports.ChainReader = (*Client)(nil)

func (c *Client) GetMintDecimals(ctx context.Context, mint solana.PublicKey) (uint8, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	out, err := c.rpc.GetTokenSupply(ctx, mint, c.commitment)
	if err != nil {
		return 0, c.wrap("getTokenSupply", err)
	}
	if out == nil || out.Value == nil {
		return 0, c.wrap("getTokenSupply", errors.New("empty result"))
	}
	return out.Value.Decimals, nil
}

func (c *Client) GetTokenBalance(ctx context.Context, account solana.PublicKey) (*ports.TokenBalance, error) {
	exists, err := c.AccountExists(ctx, account)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	out, err := c.rpc.GetTokenAccountBalance(ctx, account, c.commitment)
	if err != nil {
		return nil, c.wrap("getTokenAccountBalance", err)
	}
	if out == nil || out.Value == nil {
		return nil, c.wrap("getTokenAccountBalance", errors.New("empty result"))
	}
	amount, err := strconv.ParseUint(out.Value.Amount, 10, 64)
	if err != nil {
		return nil, c.wrap("getTokenAccountBalance", fmt.Errorf("parsing amount %q: %w", out.Value.Amount, err))
	}
	return &ports.TokenBalance{
		Amount:   amount,
		Decimals: out.Value.Decimals,
		UIAmount: out.Value.UiAmountString,
	}, nil
}

func (c *Client) AccountExists(ctx context.Context, account solana.PublicKey) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	_, err := c.rpc.GetAccountInfoWithOpts(ctx, account, &rpc.GetAccountInfoOpts{Commitment: c.commitment})
	if err != nil {
		if errors.Is(err, rpc.ErrNotFound) {
			return false, nil
		}
		return false, c.wrap("getAccountInfo", err)
	}
	return true, nil
}

func (c *Client) LatestBlockReference(ctx context.Context) (*ports.BlockReference, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	out, err := c.rpc.GetLatestBlockhash(ctx, c.commitment)
	if err != nil {
		return nil, c.wrap("getLatestBlockhash", err)
	}
	if out == nil || out.Value == nil {
		return nil, c.wrap("getLatestBlockhash", errors.New("empty result"))
	}
	return &ports.BlockReference{
		Blockhash:            out.Value.Blockhash,
		LastValidBlockHeight: out.Value.LastValidBlockHeight,
	}, nil
}

func (c *Client) wrap(method string, err error) error {
	return fmt.Errorf("solana %s %s: %w", c.network, method, err)
}
