package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	associatedtokenaccount "github.com/gagliardetto/solana-go/programs/associated-token-account"
	splToken "github.com/gagliardetto/solana-go/programs/token"
	"github.com/gagliardetto/solana-go/rpc"

	"github.com/Klingon-tech/splwallet/internal/log"
)

// ErrNoSigner is returned when a write is attempted without a connected
// signer.
var ErrNoSigner = errors.New("no connected signer")

// TxError is a transaction the node executed and rejected.
type TxError struct {
	Signature solana.Signature
	Err       interface{}
}

func (e *TxError) Error() string {
	return fmt.Sprintf("transaction %s failed: %v", e.Signature, e.Err)
}

// ResolveOrCreateTokenAccount returns owner's associated token account for
// mint, creating it (paid and signed by payer) when it does not exist.
func (c *Client) ResolveOrCreateTokenAccount(ctx context.Context, payer Signer, mint, owner solana.PublicKey) (solana.PublicKey, error) {
	ata, err := c.ResolveTokenAccountAddress(mint, owner)
	if err != nil {
		return solana.PublicKey{}, err
	}

	acct, err := c.fetchTokenAccount(ctx, ata)
	switch {
	case err == nil:
		if !acct.Mint.Equals(mint) || !acct.Owner.Equals(owner) {
			return solana.PublicKey{}, fmt.Errorf("%w: %s holds mint %s for %s", ErrNotTokenAccount, ata, acct.Mint, acct.Owner)
		}
		return ata, nil
	case !errors.Is(err, ErrTokenAccountNotFound):
		return solana.PublicKey{}, err
	}

	if payer == nil {
		return solana.PublicKey{}, ErrNoSigner
	}
	ix, err := associatedtokenaccount.NewCreateInstruction(payer.PublicKey(), owner, mint).ValidateAndBuild()
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("build create account: %w", err)
	}
	sig, err := c.send(ctx, "create_token_account", payer, ix)
	if err != nil {
		return solana.PublicKey{}, err
	}
	log.Ledger.Info().
		Str("account", ata.String()).
		Str("mint", mint.String()).
		Str("owner", owner.String()).
		Str("signature", sig.String()).
		Msg("Created token account")
	return ata, nil
}

// Mint mints amount base units of mint into destination. authority must be
// the mint authority.
func (c *Client) Mint(ctx context.Context, authority Signer, mint, destination solana.PublicKey, amount uint64) (solana.Signature, error) {
	if authority == nil {
		return solana.Signature{}, ErrNoSigner
	}
	ix, err := splToken.NewMintToInstruction(amount, mint, destination, authority.PublicKey(), nil).ValidateAndBuild()
	if err != nil {
		return solana.Signature{}, fmt.Errorf("build mint: %w", err)
	}
	return c.send(ctx, "mint", authority, ix)
}

// Transfer moves amount base units from source to destination. source must
// already exist; it is never created here.
func (c *Client) Transfer(ctx context.Context, authority Signer, source, destination solana.PublicKey, amount uint64) (solana.Signature, error) {
	if authority == nil {
		return solana.Signature{}, ErrNoSigner
	}
	if _, err := c.fetchTokenAccount(ctx, source); err != nil {
		return solana.Signature{}, err
	}
	ix, err := splToken.NewTransferInstruction(amount, source, destination, authority.PublicKey(), nil).ValidateAndBuild()
	if err != nil {
		return solana.Signature{}, fmt.Errorf("build transfer: %w", err)
	}
	return c.send(ctx, "transfer", authority, ix)
}

// send builds a transaction paid by signer, has it signed, submits it and
// waits for the configured commitment.
func (c *Client) send(ctx context.Context, op string, signer Signer, ixs ...solana.Instruction) (solana.Signature, error) {
	defer log.Benchmark("ledger_" + op)()

	payer := signer.PublicKey()
	if payer.IsZero() {
		return solana.Signature{}, ErrNoSigner
	}

	bh, err := c.rpc.GetLatestBlockhash(ctx, c.commitment)
	if err != nil {
		return solana.Signature{}, fmt.Errorf("get latest blockhash: %w", err)
	}
	tx, err := solana.NewTransaction(ixs, bh.Value.Blockhash, solana.TransactionPayer(payer))
	if err != nil {
		return solana.Signature{}, fmt.Errorf("build transaction: %w", err)
	}
	if err := signer.SignTransaction(ctx, tx); err != nil {
		return solana.Signature{}, err
	}

	sig, err := c.rpc.SendTransactionWithOpts(ctx, tx, rpc.TransactionOpts{
		PreflightCommitment: c.commitment,
	})
	if err != nil {
		return solana.Signature{}, err
	}
	log.Ledger.Debug().Str("op", op).Str("signature", sig.String()).Msg("Transaction submitted")

	if err := c.waitConfirmed(ctx, sig); err != nil {
		return sig, err
	}
	return sig, nil
}

// waitConfirmed polls signature status until the transaction reaches the
// client's commitment, fails, or the confirm timeout expires.
func (c *Client) waitConfirmed(ctx context.Context, sig solana.Signature) error {
	ctx, cancel := context.WithTimeout(ctx, c.confirmTimeout)
	defer cancel()

	ticker := time.NewTicker(c.confirmInterval)
	defer ticker.Stop()

	for {
		res, err := c.rpc.GetSignatureStatuses(ctx, false, sig)
		if err != nil {
			log.Ledger.Debug().Err(err).Str("signature", sig.String()).Msg("Signature status poll failed")
		} else if res != nil && len(res.Value) > 0 && res.Value[0] != nil {
			st := res.Value[0]
			if st.Err != nil {
				return &TxError{Signature: sig, Err: st.Err}
			}
			if reached(st.ConfirmationStatus, c.commitment) {
				return nil
			}
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("transaction %s not confirmed: %w", sig, ctx.Err())
		case <-ticker.C:
		}
	}
}

func reached(status rpc.ConfirmationStatusType, want rpc.CommitmentType) bool {
	rank := map[rpc.ConfirmationStatusType]int{
		rpc.ConfirmationStatusProcessed: 1,
		rpc.ConfirmationStatusConfirmed: 2,
		rpc.ConfirmationStatusFinalized: 3,
	}
	need := map[rpc.CommitmentType]int{
		rpc.CommitmentProcessed: 1,
		rpc.CommitmentConfirmed: 2,
		rpc.CommitmentFinalized: 3,
	}[want]
	if need == 0 {
		need = 2
	}
	return rank[status] >= need
}
