package rpc

import (
	"context"
	"errors"
	"fmt"

	"github.com/Klingon-tech/splwallet/internal/wallet"
)

func (s *Server) requireWallet() *Error {
	if s.keystore == nil || s.injector == nil {
		return &Error{Code: CodeUnavailable, Message: "wallet not enabled"}
	}
	return nil
}

// walletError maps keystore errors to JSON-RPC codes.
func walletError(err error) *Error {
	switch {
	case errors.Is(err, wallet.ErrWalletNotFound):
		return &Error{Code: CodeNotFound, Message: err.Error()}
	case errors.Is(err, wallet.ErrWrongPassword):
		return &Error{Code: CodeInvalidParams, Message: "wrong password"}
	default:
		return &Error{Code: CodeInternalError, Message: err.Error()}
	}
}

// storeSeed stores a new wallet from seed and returns account 0's address.
// The seed is zeroed before returning.
func (s *Server) storeSeed(name, password string, seed []byte) (string, *Error) {
	addr, err := s.keystore.StoreSeed(name, seed, []byte(password), wallet.DefaultParams())
	switch {
	case errors.Is(err, wallet.ErrWalletExists), errors.Is(err, wallet.ErrInvalidWalletName):
		return "", &Error{Code: CodeInvalidParams, Message: fmt.Sprintf("create wallet: %v", err)}
	case err != nil:
		return "", &Error{Code: CodeInternalError, Message: err.Error()}
	}
	s.logger.Info().Str("wallet", name).Str("address", addr).Msg("Wallet stored")
	return addr, nil
}

func (s *Server) handleWalletCreate(req *Request) (interface{}, *Error) {
	if err := s.requireWallet(); err != nil {
		return nil, err
	}

	var params WalletCreateParam
	if err := parseParams(req, &params); err != nil {
		return nil, err
	}
	if params.Name == "" || params.Password == "" {
		return nil, &Error{Code: CodeInvalidParams, Message: "name and password are required"}
	}

	mnemonic, err := wallet.GenerateMnemonic()
	if err != nil {
		return nil, &Error{Code: CodeInternalError, Message: fmt.Sprintf("generate mnemonic: %v", err)}
	}
	seed, err := wallet.SeedFromMnemonic(mnemonic, "")
	if err != nil {
		return nil, &Error{Code: CodeInternalError, Message: fmt.Sprintf("derive seed: %v", err)}
	}
	addr, rpcErr := s.storeSeed(params.Name, params.Password, seed)
	if rpcErr != nil {
		return nil, rpcErr
	}
	return &WalletCreateResult{Mnemonic: mnemonic, Address: addr}, nil
}

func (s *Server) handleWalletImport(req *Request) (interface{}, *Error) {
	if err := s.requireWallet(); err != nil {
		return nil, err
	}

	var params WalletImportParam
	if err := parseParams(req, &params); err != nil {
		return nil, err
	}
	params.Mnemonic = wallet.NormalizeMnemonic(params.Mnemonic)

	if params.Name == "" || params.Password == "" || params.Mnemonic == "" {
		return nil, &Error{Code: CodeInvalidParams, Message: "name, password, and mnemonic are required"}
	}
	if !wallet.ValidateMnemonic(params.Mnemonic) {
		return nil, &Error{Code: CodeInvalidParams, Message: "invalid mnemonic"}
	}

	seed, err := wallet.SeedFromMnemonic(params.Mnemonic, "")
	if err != nil {
		return nil, &Error{Code: CodeInternalError, Message: fmt.Sprintf("derive seed: %v", err)}
	}
	addr, rpcErr := s.storeSeed(params.Name, params.Password, seed)
	if rpcErr != nil {
		return nil, rpcErr
	}
	return &WalletImportResult{Address: addr}, nil
}

func (s *Server) handleWalletList(_ *Request) (interface{}, *Error) {
	if err := s.requireWallet(); err != nil {
		return nil, err
	}
	names, err := s.keystore.List()
	if err != nil {
		return nil, &Error{Code: CodeInternalError, Message: fmt.Sprintf("list wallets: %v", err)}
	}
	res := &WalletListResult{Wallets: names}
	s.mu.Lock()
	if s.unlocked != nil {
		res.Unlocked = s.unlocked.Name()
	}
	s.mu.Unlock()
	return res, nil
}

func (s *Server) handleWalletAccounts(req *Request) (interface{}, *Error) {
	if err := s.requireWallet(); err != nil {
		return nil, err
	}
	var params WalletNameParam
	if err := parseParams(req, &params); err != nil {
		return nil, err
	}
	accounts, err := s.keystore.ListAccounts(params.Name)
	if err != nil {
		return nil, walletError(err)
	}
	return &WalletAccountsResult{Name: params.Name, Accounts: accounts}, nil
}

// handleWalletUnlock checks the password and injects a keystore provider so
// a later session_connect finds it. A previously unlocked wallet is locked
// first, which ends its session.
func (s *Server) handleWalletUnlock(ctx context.Context, req *Request) (interface{}, *Error) {
	if err := s.requireWallet(); err != nil {
		return nil, err
	}
	var params WalletUnlockParam
	if err := parseParams(req, &params); err != nil {
		return nil, err
	}
	if params.Name == "" || params.Password == "" {
		return nil, &Error{Code: CodeInvalidParams, Message: "name and password are required"}
	}
	account := s.account
	if params.Account != nil {
		account = *params.Account
	}

	seed, err := s.keystore.Load(params.Name, []byte(params.Password))
	if err != nil {
		return nil, walletError(err)
	}
	for i := range seed {
		seed[i] = 0
	}

	p, err := wallet.NewKeystoreProvider(s.keystore, params.Name, []byte(params.Password), account)
	if err != nil {
		return nil, walletError(err)
	}

	s.lockWallet(ctx)

	s.mu.Lock()
	s.unlocked = p
	s.injector.Inject(p)
	s.mu.Unlock()

	s.logger.Info().Str("wallet", params.Name).Uint32("account", account).Msg("Wallet unlocked")
	return &WalletUnlockResult{Name: params.Name, Account: account}, nil
}

func (s *Server) handleWalletLock(ctx context.Context, _ *Request) (interface{}, *Error) {
	if err := s.requireWallet(); err != nil {
		return nil, err
	}
	s.lockWallet(ctx)
	return s.session.State(), nil
}

// lockWallet ends the session, ejects the provider, and wipes its keys.
func (s *Server) lockWallet(ctx context.Context) {
	if s.injector == nil {
		return
	}
	s.mu.Lock()
	p := s.unlocked
	s.unlocked = nil
	s.mu.Unlock()
	if p == nil {
		return
	}

	s.session.Disconnect(ctx)
	s.injector.Eject()
	p.Close()
	s.logger.Info().Str("wallet", p.Name()).Msg("Wallet locked")
}
