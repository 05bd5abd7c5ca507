// Package token holds the SPL token side of the wallet: holdings as reported
// by the ledger, amount parsing and formatting in base units, the decimals
// policy used to scale user amounts, and the per-mint metadata store.
package token

import "time"

// Holding is one token account owned by the session account.
type Holding struct {
	Mint     string `json:"mint"`
	Account  string `json:"account"`
	Amount   string `json:"amount"` // raw base units
	Decimals uint8  `json:"decimals"`
	UIAmount string `json:"uiAmount"`
}

// Metadata is what the wallet remembers about a mint.
type Metadata struct {
	Mint      string    `json:"mint"`
	Decimals  uint8     `json:"decimals"`
	FirstSeen time.Time `json:"firstSeen"`
}
