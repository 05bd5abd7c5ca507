package wallet

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

var (
	// ErrWalletNotFound is returned when no keystore file exists for a name.
	ErrWalletNotFound = errors.New("wallet not found")
	// ErrWalletExists is returned when creating over an existing wallet.
	ErrWalletExists = errors.New("already exists")
	// ErrInvalidWalletName is returned for names that are not a plain file name.
	ErrInvalidWalletName = errors.New("invalid wallet name")
)

const keystoreVersion = 1

// keystoreFile is the on-disk JSON format for an encrypted wallet.
type keystoreFile struct {
	Version       int            `json:"version"`
	CreatedAt     time.Time      `json:"created_at"`
	EncryptedSeed []byte         `json:"encrypted_seed"`
	Accounts      []AccountEntry `json:"accounts"`
}

// AccountEntry records an account that has been connected at least once.
// Only public data is stored here.
type AccountEntry struct {
	Index   uint32 `json:"index"`
	Name    string `json:"name"`
	Address string `json:"address"` // base58
}

// Keystore manages encrypted wallet files in one directory.
type Keystore struct {
	path string
}

// NewKeystore creates a keystore that reads/writes to the given directory.
// The directory is created if it doesn't exist.
func NewKeystore(path string) (*Keystore, error) {
	if err := os.MkdirAll(path, 0700); err != nil {
		return nil, fmt.Errorf("create keystore dir: %w", err)
	}
	return &Keystore{path: path}, nil
}

// Dir returns the keystore directory.
func (ks *Keystore) Dir() string {
	return ks.path
}

func validName(name string) error {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("%w %q", ErrInvalidWalletName, name)
	}
	return nil
}

func (ks *Keystore) walletPath(name string) string {
	return filepath.Join(ks.path, name+".wallet")
}

// Exists reports whether a wallet file exists.
func (ks *Keystore) Exists(name string) bool {
	if validName(name) != nil {
		return false
	}
	_, err := os.Stat(ks.walletPath(name))
	return err == nil
}

// Create writes a new wallet file holding seed encrypted under password.
func (ks *Keystore) Create(name string, seed, password []byte, params EncryptionParams) error {
	if err := validName(name); err != nil {
		return err
	}
	if ks.Exists(name) {
		return fmt.Errorf("wallet %q %w", name, ErrWalletExists)
	}

	encrypted, err := Encrypt(seed, password, params)
	if err != nil {
		return fmt.Errorf("encrypt seed: %w", err)
	}
	kf := keystoreFile{
		Version:       keystoreVersion,
		CreatedAt:     time.Now().UTC(),
		EncryptedSeed: encrypted,
		Accounts:      []AccountEntry{},
	}
	return ks.writeFile(ks.walletPath(name), &kf)
}

// StoreSeed creates the wallet name from seed and records account 0 as
// "Account 1". It returns account 0's address. seed is zeroed on return.
func (ks *Keystore) StoreSeed(name string, seed, password []byte, params EncryptionParams) (string, error) {
	defer zero(seed)

	key, err := DeriveAccountKey(seed, 0)
	if err != nil {
		return "", fmt.Errorf("derive account: %w", err)
	}
	addr := key.PublicKey().String()
	zero(key)

	if err := ks.Create(name, seed, password, params); err != nil {
		return "", err
	}
	if err := ks.AddAccount(name, AccountEntry{Index: 0, Name: "Account 1", Address: addr}); err != nil {
		return "", fmt.Errorf("add account: %w", err)
	}
	return addr, nil
}

// Load decrypts a wallet and returns the seed bytes. The caller owns the
// returned slice and should zero it when done.
func (ks *Keystore) Load(name string, password []byte) ([]byte, error) {
	kf, err := ks.read(name)
	if err != nil {
		return nil, err
	}
	seed, err := Decrypt(kf.EncryptedSeed, password)
	if err != nil {
		return nil, fmt.Errorf("wallet %q: %w", name, err)
	}
	return seed, nil
}

// AddAccount records an account in the wallet metadata. Re-adding the same
// index with the same address is a no-op.
func (ks *Keystore) AddAccount(walletName string, acct AccountEntry) error {
	kf, err := ks.read(walletName)
	if err != nil {
		return err
	}
	for _, existing := range kf.Accounts {
		if existing.Index != acct.Index {
			continue
		}
		if existing.Address == acct.Address {
			return nil
		}
		return fmt.Errorf("account %d already recorded with address %s", acct.Index, existing.Address)
	}
	kf.Accounts = append(kf.Accounts, acct)
	sort.Slice(kf.Accounts, func(i, j int) bool { return kf.Accounts[i].Index < kf.Accounts[j].Index })
	return ks.writeFile(ks.walletPath(walletName), kf)
}

// ListAccounts returns the recorded accounts for a wallet.
func (ks *Keystore) ListAccounts(walletName string) ([]AccountEntry, error) {
	kf, err := ks.read(walletName)
	if err != nil {
		return nil, err
	}
	return kf.Accounts, nil
}

// List returns the names of all wallets, sorted.
func (ks *Keystore) List() ([]string, error) {
	entries, err := os.ReadDir(ks.path)
	if err != nil {
		return nil, fmt.Errorf("read keystore dir: %w", err)
	}
	names := []string{}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if ext := filepath.Ext(name); ext == ".wallet" {
			names = append(names, strings.TrimSuffix(name, ext))
		}
	}
	sort.Strings(names)
	return names, nil
}

// Delete removes a wallet file.
func (ks *Keystore) Delete(name string) error {
	if !ks.Exists(name) {
		return fmt.Errorf("%w: %s", ErrWalletNotFound, name)
	}
	return os.Remove(ks.walletPath(name))
}

func (ks *Keystore) read(name string) (*keystoreFile, error) {
	if err := validName(name); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(ks.walletPath(name))
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrWalletNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("read wallet: %w", err)
	}
	var kf keystoreFile
	if err := json.Unmarshal(data, &kf); err != nil {
		return nil, fmt.Errorf("parse wallet: %w", err)
	}
	if kf.Version != keystoreVersion {
		return nil, fmt.Errorf("unsupported wallet version: %d", kf.Version)
	}
	return &kf, nil
}

// writeFile replaces the wallet file atomically.
func (ks *Keystore) writeFile(path string, kf *keystoreFile) error {
	data, err := json.MarshalIndent(kf, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal wallet: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return fmt.Errorf("write wallet: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("write wallet: %w", err)
	}
	return nil
}
