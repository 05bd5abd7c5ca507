// Package ledger talks to a Solana JSON-RPC node: balance and token account
// reads, associated token account resolution, and the two SPL token writes
// (mint and transfer) with confirmation polling.
package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	splToken "github.com/gagliardetto/solana-go/programs/token"
	"github.com/gagliardetto/solana-go/rpc"

	"github.com/Klingon-tech/splwallet/config"
	"github.com/Klingon-tech/splwallet/internal/log"
	"github.com/Klingon-tech/splwallet/internal/token"
)

var (
	// ErrTokenAccountNotFound is returned when a token account that must
	// already exist does not.
	ErrTokenAccountNotFound = errors.New("token account not found")

	// ErrNotTokenAccount is returned when an address holds something other
	// than an SPL token account for the expected mint and owner.
	ErrNotTokenAccount = errors.New("not a token account")
)

// Signer authorizes transactions. The wallet provider implements it.
type Signer interface {
	PublicKey() solana.PublicKey
	SignTransaction(ctx context.Context, tx *solana.Transaction) error
}

// rpcAPI is the subset of *rpc.Client the ledger client uses.
type rpcAPI interface {
	GetHealth(ctx context.Context) (string, error)
	GetBalance(ctx context.Context, account solana.PublicKey, commitment rpc.CommitmentType) (*rpc.GetBalanceResult, error)
	GetTokenAccountsByOwner(ctx context.Context, owner solana.PublicKey, conf *rpc.GetTokenAccountsConfig, opts *rpc.GetTokenAccountsOpts) (*rpc.GetTokenAccountsResult, error)
	GetAccountInfoWithOpts(ctx context.Context, account solana.PublicKey, opts *rpc.GetAccountInfoOpts) (*rpc.GetAccountInfoResult, error)
	GetTokenSupply(ctx context.Context, mint solana.PublicKey, commitment rpc.CommitmentType) (*rpc.GetTokenSupplyResult, error)
	GetLatestBlockhash(ctx context.Context, commitment rpc.CommitmentType) (*rpc.GetLatestBlockhashResult, error)
	SendTransactionWithOpts(ctx context.Context, tx *solana.Transaction, opts rpc.TransactionOpts) (solana.Signature, error)
	GetSignatureStatuses(ctx context.Context, searchTransactionHistory bool, sigs ...solana.Signature) (*rpc.GetSignatureStatusesResult, error)
}

// Options tunes commitment and confirmation polling.
type Options struct {
	Commitment      string
	ConfirmTimeout  time.Duration
	ConfirmInterval time.Duration
}

// Client is the ledger client used by the session controller.
type Client struct {
	rpc             rpcAPI
	endpoint        string
	commitment      rpc.CommitmentType
	confirmTimeout  time.Duration
	confirmInterval time.Duration
}

// New creates a client for a JSON-RPC endpoint.
func New(endpoint string, opts Options) *Client {
	c := newClient(rpc.New(endpoint), opts)
	c.endpoint = endpoint
	return c
}

// FromConfig creates a client for the configured endpoint.
func FromConfig(cfg *config.Config) *Client {
	return New(cfg.Endpoint(), Options{
		Commitment:      cfg.Ledger.Commitment,
		ConfirmTimeout:  cfg.Ledger.ConfirmTimeout,
		ConfirmInterval: cfg.Ledger.ConfirmInterval,
	})
}

func newClient(api rpcAPI, opts Options) *Client {
	c := &Client{
		rpc:             api,
		commitment:      rpc.CommitmentType(opts.Commitment),
		confirmTimeout:  opts.ConfirmTimeout,
		confirmInterval: opts.ConfirmInterval,
	}
	if c.commitment == "" {
		c.commitment = rpc.CommitmentConfirmed
	}
	if c.confirmTimeout <= 0 {
		c.confirmTimeout = 60 * time.Second
	}
	if c.confirmInterval <= 0 {
		c.confirmInterval = 500 * time.Millisecond
	}
	return c
}

// Endpoint returns the node URL.
func (c *Client) Endpoint() string {
	return c.endpoint
}

// Ping checks that the node answers getHealth.
func (c *Client) Ping(ctx context.Context) error {
	status, err := c.rpc.GetHealth(ctx)
	if err != nil {
		return fmt.Errorf("ledger health: %w", err)
	}
	if status != "ok" {
		return fmt.Errorf("ledger health: %s", status)
	}
	return nil
}

// GetNativeBalance returns the owner's balance in lamports.
func (c *Client) GetNativeBalance(ctx context.Context, owner solana.PublicKey) (uint64, error) {
	res, err := c.rpc.GetBalance(ctx, owner, c.commitment)
	if err != nil {
		return 0, fmt.Errorf("get balance: %w", err)
	}
	return res.Value, nil
}

// parsedTokenAccount is the jsonParsed shape of an SPL token account.
type parsedTokenAccount struct {
	Program string `json:"program"`
	Parsed  struct {
		Type string `json:"type"`
		Info struct {
			Mint        string `json:"mint"`
			Owner       string `json:"owner"`
			TokenAmount struct {
				Amount         string `json:"amount"`
				Decimals       uint8  `json:"decimals"`
				UIAmountString string `json:"uiAmountString"`
			} `json:"tokenAmount"`
		} `json:"info"`
	} `json:"parsed"`
}

// ListTokenAccounts returns every SPL token account owned by owner, in the
// order the node returned them.
func (c *Client) ListTokenAccounts(ctx context.Context, owner solana.PublicKey) ([]token.Holding, error) {
	programID := solana.TokenProgramID
	res, err := c.rpc.GetTokenAccountsByOwner(ctx, owner,
		&rpc.GetTokenAccountsConfig{ProgramId: &programID},
		&rpc.GetTokenAccountsOpts{Commitment: c.commitment, Encoding: solana.EncodingJSONParsed},
	)
	if err != nil {
		return nil, fmt.Errorf("get token accounts: %w", err)
	}

	holdings := make([]token.Holding, 0, len(res.Value))
	for _, ta := range res.Value {
		if ta == nil || ta.Account.Data == nil {
			continue
		}
		var parsed parsedTokenAccount
		if err := json.Unmarshal(ta.Account.Data.GetRawJSON(), &parsed); err != nil {
			return nil, fmt.Errorf("token account %s: %w", ta.Pubkey, err)
		}
		info := parsed.Parsed.Info
		ui := info.TokenAmount.UIAmountString
		if ui == "" {
			if units, err := strconv.ParseUint(info.TokenAmount.Amount, 10, 64); err == nil {
				ui = token.FormatAmount(units, info.TokenAmount.Decimals)
			}
		}
		holdings = append(holdings, token.Holding{
			Mint:     info.Mint,
			Account:  ta.Pubkey.String(),
			Amount:   info.TokenAmount.Amount,
			Decimals: info.TokenAmount.Decimals,
			UIAmount: ui,
		})
	}
	log.Ledger.Debug().Str("owner", owner.String()).Int("accounts", len(holdings)).Msg("Listed token accounts")
	return holdings, nil
}

// MintDecimals reads the decimals recorded on a mint.
func (c *Client) MintDecimals(ctx context.Context, mint solana.PublicKey) (uint8, error) {
	res, err := c.rpc.GetTokenSupply(ctx, mint, c.commitment)
	if err != nil {
		return 0, fmt.Errorf("get token supply: %w", err)
	}
	if res == nil || res.Value == nil {
		return 0, fmt.Errorf("get token supply: empty response for %s", mint)
	}
	return res.Value.Decimals, nil
}

// ResolveTokenAccountAddress derives the associated token account of owner
// for mint. The account may not exist.
func (c *Client) ResolveTokenAccountAddress(mint, owner solana.PublicKey) (solana.PublicKey, error) {
	ata, _, err := solana.FindAssociatedTokenAddress(owner, mint)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("derive token account: %w", err)
	}
	return ata, nil
}

// fetchTokenAccount loads and decodes a token account. It returns
// ErrTokenAccountNotFound when nothing is stored at addr.
func (c *Client) fetchTokenAccount(ctx context.Context, addr solana.PublicKey) (*splToken.Account, error) {
	res, err := c.rpc.GetAccountInfoWithOpts(ctx, addr, &rpc.GetAccountInfoOpts{
		Encoding:   solana.EncodingBase64,
		Commitment: c.commitment,
	})
	if errors.Is(err, rpc.ErrNotFound) || (err == nil && (res == nil || res.Value == nil)) {
		return nil, fmt.Errorf("%w: %s", ErrTokenAccountNotFound, addr)
	}
	if err != nil {
		return nil, fmt.Errorf("get account %s: %w", addr, err)
	}
	if !res.Value.Owner.Equals(solana.TokenProgramID) {
		return nil, fmt.Errorf("%w: %s is owned by %s", ErrNotTokenAccount, addr, res.Value.Owner)
	}
	var acct splToken.Account
	if err := bin.NewBinDecoder(res.Value.Data.GetBinary()).Decode(&acct); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrNotTokenAccount, addr, err)
	}
	return &acct, nil
}
