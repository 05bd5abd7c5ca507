package rpc

import (
	"github.com/Klingon-tech/splwallet/internal/token"
	"github.com/Klingon-tech/splwallet/internal/wallet"
)

// JSON-RPC 2.0 error codes.
const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603

	// CodeOperationFailed carries a session failure. The message is the
	// same text the session shows in its error slot.
	CodeOperationFailed = -32000
	CodeNotFound        = -32001
	CodeUnavailable     = -32002
)

// Request is a JSON-RPC 2.0 request.
type Request struct {
	JSONRPC string      `json:"jsonrpc"`
	Method  string      `json:"method"`
	Params  interface{} `json:"params"`
	ID      interface{} `json:"id"`
}

// Response is a JSON-RPC 2.0 response.
type Response struct {
	JSONRPC string      `json:"jsonrpc"`
	Result  interface{} `json:"result,omitempty"`
	Error   *Error      `json:"error,omitempty"`
	ID      interface{} `json:"id"`
}

// Error is a JSON-RPC 2.0 error object.
type Error struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// ── Param types ─────────────────────────────────────────────────────────

// MintParam is used by token_mint.
type MintParam struct {
	Mint   string `json:"mint"`
	Amount string `json:"amount"`
}

// TransferParam is used by token_transfer.
type TransferParam struct {
	Mint      string `json:"mint"`
	Recipient string `json:"recipient"`
	Amount    string `json:"amount"`
}

// MintAddressParam is used by token_decimals and token_forget.
type MintAddressParam struct {
	Mint string `json:"mint"`
}

// WalletCreateParam is used by wallet_create.
type WalletCreateParam struct {
	Name     string `json:"name"`
	Password string `json:"password"`
}

// WalletImportParam is used by wallet_import.
type WalletImportParam struct {
	Name     string `json:"name"`
	Password string `json:"password"`
	Mnemonic string `json:"mnemonic"`
}

// WalletUnlockParam is used by wallet_unlock. Account defaults to the
// daemon's configured account index.
type WalletUnlockParam struct {
	Name     string  `json:"name"`
	Password string  `json:"password"`
	Account  *uint32 `json:"account,omitempty"`
}

// WalletNameParam is used by wallet_accounts.
type WalletNameParam struct {
	Name string `json:"name"`
}

// ── Result types ────────────────────────────────────────────────────────

// WalletCreateResult is returned by wallet_create.
type WalletCreateResult struct {
	Mnemonic string `json:"mnemonic"`
	Address  string `json:"address"`
}

// WalletImportResult is returned by wallet_import.
type WalletImportResult struct {
	Address string `json:"address"`
}

// WalletListResult is returned by wallet_list.
type WalletListResult struct {
	Wallets  []string `json:"wallets"`
	Unlocked string   `json:"unlocked,omitempty"`
}

// WalletAccountsResult is returned by wallet_accounts.
type WalletAccountsResult struct {
	Name     string                `json:"name"`
	Accounts []wallet.AccountEntry `json:"accounts"`
}

// WalletUnlockResult is returned by wallet_unlock.
type WalletUnlockResult struct {
	Name    string `json:"name"`
	Account uint32 `json:"account"`
}

// DecimalsResult is returned by token_decimals.
type DecimalsResult struct {
	Mint     string `json:"mint"`
	Decimals uint8  `json:"decimals"`
}

// TokenListResult is returned by token_list.
type TokenListResult struct {
	Tokens []token.Metadata `json:"tokens"`
}

// ClearCacheResult is returned by token_clearCache.
type ClearCacheResult struct {
	Removed int `json:"removed"`
}
