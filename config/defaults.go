package config

import (
	"strconv"
	"time"
)

// defaultRPCPorts keeps daemons for different clusters from colliding.
var defaultRPCPorts = map[NetworkType]int{
	Mainnet:  8955,
	Testnet:  8956,
	Devnet:   8957,
	Localnet: 8958,
}

// DefaultDevnet returns the default configuration for devnet.
func DefaultDevnet() *Config {
	return &Config{
		Network: Devnet,
		DataDir: DefaultDataDir(),
		Ledger: LedgerConfig{
			Commitment:      "confirmed",
			ConfirmTimeout:  60 * time.Second,
			ConfirmInterval: 500 * time.Millisecond,
		},
		Token: TokenConfig{
			// The fixed 9-decimal scaling mirrors the native coin. It is only
			// correct for mints created with 9 decimals; "mint" mode reads the
			// real value from the ledger.
			Decimals:      DecimalsFixed,
			FixedDecimals: NativeDecimals,
		},
		Wallet: WalletConfig{
			Name: "default",
		},
		RPC: RPCConfig{
			Enabled:    true,
			Addr:       "127.0.0.1",
			Port:       defaultRPCPorts[Devnet],
			AllowedIPs: []string{"127.0.0.1"},
		},
		Log: LogConfig{
			Level: "info",
			JSON:  false,
		},
	}
}

// Default returns the default configuration for the given network.
func Default(network NetworkType) *Config {
	cfg := DefaultDevnet()
	if port, ok := defaultRPCPorts[network]; ok {
		cfg.Network = network
		cfg.RPC.Port = port
	}
	return cfg
}

func itoa(n int) string {
	return strconv.Itoa(n)
}
