package wallet

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/gagliardetto/solana-go"

	"github.com/Klingon-tech/splwallet/internal/log"
	"github.com/Klingon-tech/splwallet/internal/session"
)

// Wallet-standard feature names advertised by KeystoreProvider.
const (
	FeatureConnect         = "standard:connect"
	FeatureDisconnect      = "standard:disconnect"
	FeatureSignTransaction = session.RequiredCapability
)

// ErrNotConnected is returned by SignTransaction before Connect succeeds.
var ErrNotConnected = errors.New("wallet not connected")

// KeystoreProvider is a wallet provider backed by one keystore file. The
// seed stays encrypted on disk until Connect; the derived key lives in
// memory until Disconnect or Close.
type KeystoreProvider struct {
	ks      *Keystore
	name    string
	account uint32

	mu       sync.Mutex
	password []byte
	key      solana.PrivateKey
}

var _ session.WalletProvider = (*KeystoreProvider)(nil)

// NewKeystoreProvider creates a provider for wallet name. The password is
// kept until Close so the provider can reconnect after a disconnect.
func NewKeystoreProvider(ks *Keystore, name string, password []byte, account uint32) (*KeystoreProvider, error) {
	if !ks.Exists(name) {
		return nil, fmt.Errorf("%w: %s", ErrWalletNotFound, name)
	}
	return &KeystoreProvider{
		ks:       ks,
		name:     name,
		account:  account,
		password: append([]byte{}, password...),
	}, nil
}

// Name returns the wallet name.
func (p *KeystoreProvider) Name() string {
	return p.name
}

// Has reports whether the provider supports a wallet-standard feature.
func (p *KeystoreProvider) Has(capability string) bool {
	switch capability {
	case FeatureConnect, FeatureDisconnect, FeatureSignTransaction:
		return true
	}
	return false
}

// Connect decrypts the wallet, derives the account key, and returns the
// account address.
func (p *KeystoreProvider) Connect(ctx context.Context) (solana.PublicKey, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return solana.PublicKey{}, err
	}
	if p.password == nil {
		return solana.PublicKey{}, fmt.Errorf("wallet %q is locked", p.name)
	}
	if p.key != nil {
		return p.key.PublicKey(), nil
	}

	seed, err := p.ks.Load(p.name, p.password)
	if err != nil {
		return solana.PublicKey{}, err
	}
	defer zero(seed)

	key, err := DeriveAccountKey(seed, p.account)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("derive account %d: %w", p.account, err)
	}
	p.key = key
	pub := key.PublicKey()

	entry := AccountEntry{Index: p.account, Name: fmt.Sprintf("Account %d", p.account+1), Address: pub.String()}
	if err := p.ks.AddAccount(p.name, entry); err != nil {
		log.Wallet.Warn().Err(err).Str("wallet", p.name).Msg("Failed to record account")
	}
	log.Wallet.Info().Str("wallet", p.name).Uint32("account", p.account).Str("address", pub.String()).Msg("Wallet connected")
	return pub, nil
}

// Disconnect forgets the derived key.
func (p *KeystoreProvider) Disconnect(context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.key != nil {
		zero(p.key)
		p.key = nil
		log.Wallet.Info().Str("wallet", p.name).Msg("Wallet disconnected")
	}
	return nil
}

// PublicKey returns the connected account, or the zero key.
func (p *KeystoreProvider) PublicKey() solana.PublicKey {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.key == nil {
		return solana.PublicKey{}
	}
	return p.key.PublicKey()
}

// SignTransaction adds the connected account's signature to tx.
func (p *KeystoreProvider) SignTransaction(ctx context.Context, tx *solana.Transaction) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	if p.key == nil {
		return ErrNotConnected
	}
	pub := p.key.PublicKey()
	_, err := tx.Sign(func(k solana.PublicKey) *solana.PrivateKey {
		if k.Equals(pub) {
			return &p.key
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("sign transaction: %w", err)
	}
	return nil
}

// Close disconnects and wipes the cached password.
func (p *KeystoreProvider) Close() {
	p.Disconnect(context.Background())
	p.mu.Lock()
	zero(p.password)
	p.password = nil
	p.mu.Unlock()
}
