package ports

//go:generate mockgen -source=chain.go -destination=mocks/mock_chain.go -package=mocks

import (
	"context"

	"crypto-checkout-gateway/internal/core/domain"

	"github.com/gagliardetto/solana-go"
)

// TokenBalance is the balance of an SPL token account.
type TokenBalance struct {
	Amount   uint64 // raw units
	Decimals uint8
	UIAmount string
}

// BlockReference is the recent blockhash a transaction is built against.
type BlockReference struct {
	Blockhash            solana.Hash
	LastValidBlockHeight uint64
}

// ChainReader is the read-only RPC surface the checkout needs.
type ChainReader interface {
	GetMintDecimals(ctx context.Context, mint solana.PublicKey) (uint8, error)
	// GetTokenBalance returns nil without error when the account does not exist.
	GetTokenBalance(ctx context.Context, account solana.PublicKey) (*TokenBalance, error)
	AccountExists(ctx context.Context, account solana.PublicKey) (bool, error)
	LatestBlockReference(ctx context.Context) (*BlockReference, error)
}

// ChainConnectionPool hands out readers per network.
type ChainConnectionPool interface {
	Reader(network domain.Network) (ChainReader, error)
}
