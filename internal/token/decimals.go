package token

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go"

	"github.com/Klingon-tech/splwallet/config"
	"github.com/Klingon-tech/splwallet/internal/log"
)

// DecimalsPolicy decides how many decimals a user amount is scaled by for a
// given mint.
type DecimalsPolicy interface {
	Decimals(ctx context.Context, mint solana.PublicKey) (uint8, error)
}

// FixedDecimals scales every mint by the same exponent. FixedDecimals(9)
// treats every token like SOL, which is only right for 9-decimal mints.
type FixedDecimals uint8

// Decimals implements DecimalsPolicy.
func (f FixedDecimals) Decimals(context.Context, solana.PublicKey) (uint8, error) {
	return uint8(f), nil
}

// MintInfoSource reads a mint's decimals from the ledger.
type MintInfoSource interface {
	MintDecimals(ctx context.Context, mint solana.PublicKey) (uint8, error)
}

// Registry reads decimals from the mint account and caches them in a Store.
// Decimals are immutable once a mint is initialized, so cached entries never
// expire.
type Registry struct {
	store  *Store
	source MintInfoSource

	mu sync.Mutex
}

// NewRegistry creates a Registry.
func NewRegistry(store *Store, source MintInfoSource) *Registry {
	return &Registry{store: store, source: source}
}

// Decimals implements DecimalsPolicy.
func (r *Registry) Decimals(ctx context.Context, mint solana.PublicKey) (uint8, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := mint.String()
	meta, err := r.store.Get(key)
	if err == nil {
		return meta.Decimals, nil
	}
	if !errors.Is(err, ErrUnknownMint) {
		log.Token.Warn().Err(err).Str("mint", key).Msg("Token store read failed, asking the ledger")
	}

	d, err := r.source.MintDecimals(ctx, mint)
	if err != nil {
		return 0, fmt.Errorf("mint decimals: %w", err)
	}
	if err := r.store.Put(&Metadata{Mint: key, Decimals: d, FirstSeen: time.Now().UTC()}); err != nil {
		log.Token.Warn().Err(err).Str("mint", key).Msg("Failed to cache mint decimals")
	} else {
		log.Token.Debug().Str("mint", key).Uint8("decimals", d).Msg("Cached mint decimals")
	}
	return d, nil
}

// Known returns the cached mint metadata.
func (r *Registry) Known() ([]Metadata, error) {
	return r.store.List()
}

// NewPolicy builds the policy selected by cfg. store and source are only
// used in mint mode.
func NewPolicy(cfg config.TokenConfig, store *Store, source MintInfoSource) DecimalsPolicy {
	if cfg.Decimals == config.DecimalsMint && store != nil && source != nil {
		return NewRegistry(store, source)
	}
	return FixedDecimals(cfg.FixedDecimals)
}
