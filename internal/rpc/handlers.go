package rpc

import (
	"context"
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"

	"github.com/Klingon-tech/splwallet/internal/session"
	"github.com/Klingon-tech/splwallet/internal/token"
)

// sessionError converts a controller failure into a JSON-RPC error. The
// message is the one the session wrote to its error slot.
func sessionError(err error) *Error {
	var se *session.Error
	switch {
	case errors.As(err, &se):
		return &Error{Code: CodeOperationFailed, Message: se.Message, Data: se.Kind.String()}
	case errors.Is(err, session.ErrSuperseded):
		return &Error{Code: CodeOperationFailed, Message: err.Error(), Data: "superseded"}
	default:
		return &Error{Code: CodeInternalError, Message: err.Error()}
	}
}

// detached keeps the request's values but not its cancellation. A session
// operation runs to completion once submitted, even if the caller goes
// away; the ledger client bounds it with ledger.confirm_timeout.
func detached(ctx context.Context) context.Context {
	return context.WithoutCancel(ctx)
}

// ── Session ─────────────────────────────────────────────────────────────

func (s *Server) handleSessionGetState(_ *Request) (interface{}, *Error) {
	return s.session.State(), nil
}

func (s *Server) handleSessionConnect(ctx context.Context, _ *Request) (interface{}, *Error) {
	if err := s.session.Connect(detached(ctx)); err != nil {
		return nil, sessionError(err)
	}
	return s.session.State(), nil
}

func (s *Server) handleSessionDisconnect(ctx context.Context, _ *Request) (interface{}, *Error) {
	s.session.Disconnect(detached(ctx))
	return s.session.State(), nil
}

func (s *Server) handleSessionRefresh(ctx context.Context, _ *Request) (interface{}, *Error) {
	if err := s.session.Refresh(detached(ctx)); err != nil {
		return nil, sessionError(err)
	}
	return s.session.State(), nil
}

// ── Tokens ──────────────────────────────────────────────────────────────

func (s *Server) handleTokenMint(ctx context.Context, req *Request) (interface{}, *Error) {
	var params MintParam
	if err := parseParams(req, &params); err != nil {
		return nil, err
	}
	ack, err := s.session.SubmitMint(detached(ctx), params.Mint, params.Amount)
	if err != nil {
		return nil, sessionError(err)
	}
	return ack, nil
}

func (s *Server) handleTokenTransfer(ctx context.Context, req *Request) (interface{}, *Error) {
	var params TransferParam
	if err := parseParams(req, &params); err != nil {
		return nil, err
	}
	ack, err := s.session.SubmitTransfer(detached(ctx), params.Mint, params.Recipient, params.Amount)
	if err != nil {
		return nil, sessionError(err)
	}
	return ack, nil
}

func (s *Server) handleTokenDecimals(ctx context.Context, req *Request) (interface{}, *Error) {
	if s.decimals == nil {
		return nil, &Error{Code: CodeUnavailable, Message: "decimals policy not configured"}
	}
	var params MintAddressParam
	if err := parseParams(req, &params); err != nil {
		return nil, err
	}
	mint, err := solana.PublicKeyFromBase58(params.Mint)
	if err != nil {
		return nil, &Error{Code: CodeInvalidParams, Message: fmt.Sprintf("invalid mint: %v", err)}
	}
	d, err := s.decimals.Decimals(ctx, mint)
	if err != nil {
		return nil, &Error{Code: CodeOperationFailed, Message: fmt.Sprintf("mint decimals: %v", err)}
	}
	return &DecimalsResult{Mint: mint.String(), Decimals: d}, nil
}

func (s *Server) requireTokenStore() *Error {
	if s.tokenStore == nil {
		return &Error{Code: CodeUnavailable, Message: "token store not enabled"}
	}
	return nil
}

func (s *Server) handleTokenList(_ *Request) (interface{}, *Error) {
	if err := s.requireTokenStore(); err != nil {
		return nil, err
	}
	tokens, err := s.tokenStore.List()
	if err != nil {
		return nil, &Error{Code: CodeInternalError, Message: fmt.Sprintf("list tokens: %v", err)}
	}
	return &TokenListResult{Tokens: tokens}, nil
}

func (s *Server) handleTokenForget(req *Request) (interface{}, *Error) {
	if err := s.requireTokenStore(); err != nil {
		return nil, err
	}
	var params MintAddressParam
	if err := parseParams(req, &params); err != nil {
		return nil, err
	}
	known, err := s.tokenStore.Has(params.Mint)
	if err != nil {
		return nil, &Error{Code: CodeInternalError, Message: err.Error()}
	}
	if !known {
		return nil, &Error{Code: CodeNotFound, Message: fmt.Sprintf("%v: %s", token.ErrUnknownMint, params.Mint)}
	}
	if err := s.tokenStore.Forget(params.Mint); err != nil {
		return nil, &Error{Code: CodeInternalError, Message: err.Error()}
	}
	return &ClearCacheResult{Removed: 1}, nil
}

func (s *Server) handleTokenClearCache(_ *Request) (interface{}, *Error) {
	if err := s.requireTokenStore(); err != nil {
		return nil, err
	}
	n, err := s.tokenStore.Reset()
	if err != nil {
		return nil, &Error{Code: CodeInternalError, Message: fmt.Sprintf("clear cache: %v", err)}
	}
	s.logger.Info().Int("removed", n).Msg("Token metadata cache cleared")
	return &ClearCacheResult{Removed: n}, nil
}
