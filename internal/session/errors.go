package session

import "errors"

// Kind classifies controller failures.
type Kind int

const (
	ProviderMissing Kind = iota + 1
	ProviderUnsupported
	ConnectionRejected
	BalanceFetchFailed
	TokenFetchFailed
	PreconditionNotConnected
	OperationRejected
	// OperationInProgress is returned while another operation is pending.
	// It is never written to the error slot.
	OperationInProgress
)

var kindNames = map[Kind]string{
	ProviderMissing:          "provider_missing",
	ProviderUnsupported:      "provider_unsupported",
	ConnectionRejected:       "connection_rejected",
	BalanceFetchFailed:       "balance_fetch_failed",
	TokenFetchFailed:         "token_fetch_failed",
	PreconditionNotConnected: "not_connected",
	OperationRejected:        "operation_rejected",
	OperationInProgress:      "operation_in_progress",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "unknown"
}

// User-facing messages.
const (
	MsgProviderMissing     = "Solana wallet not found!"
	MsgProviderUnsupported = "Phantom Wallet not installed!"
	MsgConnectFailed       = "Failed to connect wallet."
	MsgBalanceFailed       = "Failed to fetch SOL balance."
	MsgTokensFailed        = "Failed to fetch token balances."
	MsgNotConnected        = "Connect wallet first!"
	MsgMintFailed          = "Minting failed!"
	MsgTransferFailed      = "Transfer failed!"
	MsgInProgress          = "Another operation is in progress."
)

// ErrSuperseded is returned by an operation whose session was disconnected
// (or replaced) before it finished. Its results are dropped.
var ErrSuperseded = errors.New("session ended before the operation completed")

// Error is a controller failure. Message is what the user sees; Err is the
// underlying cause, if any.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.Err }

// KindOf returns the Kind of a controller error, or 0.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

// messageOr uses the cause's own message, falling back when it is empty.
func messageOr(err error, fallback string) string {
	if err != nil && err.Error() != "" {
		return err.Error()
	}
	return fallback
}
