package domain

import "strings"

// Network identifies a Solana cluster.
type Network string

const (
	NetworkMainnet Network = "mainnet-beta"
	NetworkDevnet  Network = "devnet"
)

// TokenSymbol names a supported stablecoin.
type TokenSymbol string

const (
	TokenUSDC TokenSymbol = "USDC"
	TokenUSDT TokenSymbol = "USDT"
)

// ParseTokenSymbol normalises user input ("usdc") to a TokenSymbol.
func ParseTokenSymbol(s string) TokenSymbol {
	return TokenSymbol(strings.ToUpper(strings.TrimSpace(s)))
}

// MintInfo describes a registered mint.
type MintInfo struct {
	Symbol  TokenSymbol
	Network Network
	Address string
}

// MintRegistry is a static table of mint addresses keyed by (symbol, network).
type MintRegistry struct {
	bySymbol  map[TokenSymbol]map[Network]string
	byAddress map[string]MintInfo
}

// NewMintRegistry builds a registry from the given entries.
func NewMintRegistry(entries ...MintInfo) *MintRegistry {
	r := &MintRegistry{
		bySymbol:  make(map[TokenSymbol]map[Network]string),
		byAddress: make(map[string]MintInfo),
	}
	for _, e := range entries {
		if r.bySymbol[e.Symbol] == nil {
			r.bySymbol[e.Symbol] = make(map[Network]string)
		}
		r.bySymbol[e.Symbol][e.Network] = e.Address
		r.byAddress[e.Address] = e
	}
	return r
}

// DefaultMintRegistry returns the mints the gateway settles in.
func DefaultMintRegistry() *MintRegistry {
	return NewMintRegistry(
		MintInfo{Symbol: TokenUSDC, Network: NetworkMainnet, Address: "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"},
		MintInfo{Symbol: TokenUSDC, Network: NetworkDevnet, Address: "4zMMC9srt5Ri5X14GAgXhaHii3GnPAEERYPJgZJDncDU"},
		MintInfo{Symbol: TokenUSDT, Network: NetworkMainnet, Address: "Es9vMFrzaCERmJfrF4H2FYD4KCoNkY11McCe8BenwNYB"},
	)
}

// Resolve returns the mint address for a symbol on a network.
func (r *MintRegistry) Resolve(symbol TokenSymbol, network Network) (string, bool) {
	addr, ok := r.bySymbol[symbol][network]
	return addr, ok
}

// Lookup identifies a mint address, used to infer the network of a transfer.
func (r *MintRegistry) Lookup(address string) (MintInfo, bool) {
	info, ok := r.byAddress[address]
	return info, ok
}

// Symbols lists the tokens available on a network.
func (r *MintRegistry) Symbols(network Network) []TokenSymbol {
	var out []TokenSymbol
	for _, sym := range []TokenSymbol{TokenUSDC, TokenUSDT} {
		if _, ok := r.bySymbol[sym][network]; ok {
			out = append(out, sym)
		}
	}
	return out
}
