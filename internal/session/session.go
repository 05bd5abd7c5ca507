// Package session implements the wallet session controller: connect to a
// wallet provider, read the native and token balances of the connected
// account, and submit token mints and transfers. State is held in one place
// and pushed to subscribers after every change.
package session

import (
	"context"

	"github.com/gagliardetto/solana-go"

	"github.com/Klingon-tech/splwallet/internal/ledger"
	"github.com/Klingon-tech/splwallet/internal/token"
)

// RequiredCapability is the feature a provider must advertise before the
// controller will connect to it.
const RequiredCapability = "solana:signTransaction"

// WalletProvider is the wallet the session connects to. It signs every
// transaction the session submits.
type WalletProvider interface {
	Has(capability string) bool
	Connect(ctx context.Context) (solana.PublicKey, error)
	Disconnect(ctx context.Context) error
	ledger.Signer
}

// Locator finds the currently injected wallet provider, or nil.
type Locator interface {
	Locate() WalletProvider
}

// LocatorFunc adapts a function to Locator.
type LocatorFunc func() WalletProvider

// Locate implements Locator.
func (f LocatorFunc) Locate() WalletProvider { return f() }

// LedgerClient is the ledger node as the controller sees it.
type LedgerClient interface {
	GetNativeBalance(ctx context.Context, owner solana.PublicKey) (uint64, error)
	ListTokenAccounts(ctx context.Context, owner solana.PublicKey) ([]token.Holding, error)
	ResolveTokenAccountAddress(mint, owner solana.PublicKey) (solana.PublicKey, error)
	ResolveOrCreateTokenAccount(ctx context.Context, payer ledger.Signer, mint, owner solana.PublicKey) (solana.PublicKey, error)
	Mint(ctx context.Context, authority ledger.Signer, mint, destination solana.PublicKey, amount uint64) (solana.Signature, error)
	Transfer(ctx context.Context, authority ledger.Signer, source, destination solana.PublicKey, amount uint64) (solana.Signature, error)
}

var _ LedgerClient = (*ledger.Client)(nil)
