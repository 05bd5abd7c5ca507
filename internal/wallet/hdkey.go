package wallet

import (
	"crypto/ed25519"
	"fmt"
	"strconv"
	"strings"

	"github.com/blocto/solana-go-sdk/pkg/hdwallet"
	"github.com/gagliardetto/solana-go"
)

// SLIP-0010 derivation for ed25519. Only hardened children exist on this
// curve, so every index is hardened before use.
const (
	// HardenedOffset is added to an index to mark it hardened.
	HardenedOffset uint32 = 0x80000000

	// PurposeBIP44 is the BIP-44 purpose field.
	PurposeBIP44 = 44

	// CoinTypeSolana is Solana's SLIP-0044 coin type.
	CoinTypeSolana = 501
)

// HDKey is a derived ed25519 extended private key.
type HDKey struct {
	key       [32]byte
	chainCode [32]byte
	depth     uint8
}

// Path renders indices as a derivation path with every level hardened:
// Path(44, 501, 0, 0) is "m/44'/501'/0'/0'".
func Path(indices ...uint32) string {
	var b strings.Builder
	b.WriteString("m")
	for _, idx := range indices {
		if idx >= HardenedOffset {
			idx -= HardenedOffset
		}
		b.WriteString("/")
		b.WriteString(strconv.FormatUint(uint64(idx), 10))
		b.WriteString("'")
	}
	return b.String()
}

// AccountPath is m/44'/501'/account'/0', the path browser wallets use for
// their account list.
func AccountPath(account uint32) string {
	return Path(PurposeBIP44, CoinTypeSolana, account, 0)
}

// DerivePath derives the key at the hardened path given by indices from a
// BIP-39 seed. Indices below HardenedOffset are hardened implicitly.
func DerivePath(seed []byte, indices ...uint32) (*HDKey, error) {
	if len(seed) < 16 || len(seed) > SeedSize {
		return nil, fmt.Errorf("seed must be 16..%d bytes, got %d", SeedSize, len(seed))
	}
	if len(indices) == 0 || len(indices) > 255 {
		return nil, fmt.Errorf("path depth must be 1..255, got %d", len(indices))
	}
	path := Path(indices...)
	derived, err := hdwallet.Derived(path, seed)
	if err != nil {
		return nil, fmt.Errorf("derive %s: %w", path, err)
	}
	defer zero(derived.PrivateKey)
	defer zero(derived.ChainCode)
	if len(derived.PrivateKey) != 32 || len(derived.ChainCode) != 32 {
		return nil, fmt.Errorf("derive %s: unexpected key size", path)
	}

	k := &HDKey{depth: uint8(len(indices))}
	copy(k.key[:], derived.PrivateKey)
	copy(k.chainCode[:], derived.ChainCode)
	return k, nil
}

// DeriveAccount derives the key at AccountPath(account).
func DeriveAccount(seed []byte, account uint32) (*HDKey, error) {
	if account >= HardenedOffset {
		return nil, fmt.Errorf("account index %d too large", account)
	}
	return DerivePath(seed, PurposeBIP44, CoinTypeSolana, account, 0)
}

// Depth returns the number of derivation steps from the master key.
func (k *HDKey) Depth() uint8 {
	return k.depth
}

// ChainCode returns a copy of the chain code.
func (k *HDKey) ChainCode() []byte {
	return append([]byte{}, k.chainCode[:]...)
}

// Seed returns a copy of the 32-byte ed25519 seed (the SLIP-0010 private key).
func (k *HDKey) Seed() []byte {
	return append([]byte{}, k.key[:]...)
}

// PrivateKey expands the key into a 64-byte Solana private key.
func (k *HDKey) PrivateKey() solana.PrivateKey {
	return solana.PrivateKey(ed25519.NewKeyFromSeed(k.key[:]))
}

// PublicKey returns the account address for this key.
func (k *HDKey) PublicKey() solana.PublicKey {
	return k.PrivateKey().PublicKey()
}

// Wipe zeroes the key material.
func (k *HDKey) Wipe() {
	zero(k.key[:])
	zero(k.chainCode[:])
}

// DeriveAccountKey derives the private key for account from a seed.
func DeriveAccountKey(seed []byte, account uint32) (solana.PrivateKey, error) {
	child, err := DeriveAccount(seed, account)
	if err != nil {
		return nil, err
	}
	defer child.Wipe()
	return child.PrivateKey(), nil
}
