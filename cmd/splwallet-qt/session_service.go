package main

import (
	"fmt"

	"github.com/Klingon-tech/splwallet/internal/session"
	"github.com/Klingon-tech/splwallet/internal/wallet"
)

// SessionService exposes the session controller and the keystore to the
// web view.
type SessionService struct {
	app *App
}

// WalletCreated is returned by CreateWallet.
type WalletCreated struct {
	Mnemonic string `json:"mnemonic"`
	Address  string `json:"address"`
}

// GetState returns the current session state.
func (s *SessionService) GetState() (session.State, error) {
	n, err := s.app.current()
	if err != nil {
		return session.State{}, err
	}
	return n.Session().State(), nil
}

// Connect connects the unlocked wallet and loads its balances. A failure is
// returned as the session's user-facing message.
func (s *SessionService) Connect() (session.State, error) {
	n, err := s.app.current()
	if err != nil {
		return session.State{}, err
	}
	err = n.Session().Connect(s.app.context())
	return n.Session().State(), err
}

// Disconnect ends the session.
func (s *SessionService) Disconnect() (session.State, error) {
	n, err := s.app.current()
	if err != nil {
		return session.State{}, err
	}
	n.Session().Disconnect(s.app.context())
	return n.Session().State(), nil
}

// Refresh re-reads both balances.
func (s *SessionService) Refresh() (session.State, error) {
	n, err := s.app.current()
	if err != nil {
		return session.State{}, err
	}
	err = n.Session().Refresh(s.app.context())
	return n.Session().State(), err
}

// Mint mints amount whole tokens of mint to the connected account.
func (s *SessionService) Mint(mint, amount string) (*session.Acknowledgement, error) {
	n, err := s.app.current()
	if err != nil {
		return nil, err
	}
	return n.Session().SubmitMint(s.app.context(), mint, amount)
}

// Transfer sends amount whole tokens of mint to recipient.
func (s *SessionService) Transfer(mint, recipient, amount string) (*session.Acknowledgement, error) {
	n, err := s.app.current()
	if err != nil {
		return nil, err
	}
	return n.Session().SubmitTransfer(s.app.context(), mint, recipient, amount)
}

// ListWallets returns the wallet names in the keystore.
func (s *SessionService) ListWallets() ([]string, error) {
	n, err := s.app.current()
	if err != nil {
		return nil, err
	}
	return n.Keystore().List()
}

// Unlock injects the named wallet so Connect can find it. Any previously
// unlocked wallet is locked first.
func (s *SessionService) Unlock(name, password string, account uint32) error {
	n, err := s.app.current()
	if err != nil {
		return err
	}
	ks := n.Keystore()

	seed, err := ks.Load(name, []byte(password))
	if err != nil {
		return err
	}
	wipe(seed)

	p, err := wallet.NewKeystoreProvider(ks, name, []byte(password), account)
	if err != nil {
		return err
	}
	s.Lock()
	n.Injector().Inject(p)
	return s.app.SetActiveWallet(name)
}

// Lock ends the session and wipes the unlocked wallet's key.
func (s *SessionService) Lock() {
	n, err := s.app.current()
	if err != nil {
		return
	}
	n.Session().Disconnect(s.app.context())
	if p, ok := n.Injector().Eject().(*wallet.KeystoreProvider); ok {
		p.Close()
	}
}

// CreateWallet generates a mnemonic and stores a new encrypted wallet.
func (s *SessionService) CreateWallet(name, password string) (*WalletCreated, error) {
	mnemonic, err := wallet.GenerateMnemonic()
	if err != nil {
		return nil, err
	}
	addr, err := s.storeWallet(name, password, mnemonic)
	if err != nil {
		return nil, err
	}
	return &WalletCreated{Mnemonic: mnemonic, Address: addr}, nil
}

// ImportWallet stores a wallet from an existing mnemonic.
func (s *SessionService) ImportWallet(name, password, mnemonic string) (string, error) {
	mnemonic = wallet.NormalizeMnemonic(mnemonic)
	if !wallet.ValidateMnemonic(mnemonic) {
		return "", fmt.Errorf("invalid mnemonic")
	}
	return s.storeWallet(name, password, mnemonic)
}

func (s *SessionService) storeWallet(name, password, mnemonic string) (string, error) {
	if name == "" || password == "" {
		return "", fmt.Errorf("name and password are required")
	}
	n, err := s.app.current()
	if err != nil {
		return "", err
	}
	seed, err := wallet.SeedFromMnemonic(mnemonic, "")
	if err != nil {
		return "", err
	}
	return n.Keystore().StoreSeed(name, seed, []byte(password), wallet.DefaultParams())
}
