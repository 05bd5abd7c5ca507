// Package config handles application configuration.
//
// Settings come from three layers, lowest precedence first: per-network
// defaults, the splwallet.conf file in the data directory, and command-line
// flags. Session state is never part of the configuration.
package config

import (
	"os"
	"path/filepath"
	"runtime"
	"time"
)

// NetworkType identifies the ledger cluster to target.
type NetworkType string

const (
	Mainnet  NetworkType = "mainnet-beta"
	Testnet  NetworkType = "testnet"
	Devnet   NetworkType = "devnet"
	Localnet NetworkType = "localnet"
)

// Cluster RPC endpoints, matching the public cluster URLs.
var clusterURLs = map[NetworkType]string{
	Mainnet:  "https://api.mainnet-beta.solana.com",
	Testnet:  "https://api.testnet.solana.com",
	Devnet:   "https://api.devnet.solana.com",
	Localnet: "http://127.0.0.1:8899",
}

// ClusterURL returns the public RPC endpoint for a network, or "" if unknown.
func ClusterURL(network NetworkType) string {
	return clusterURLs[network]
}

// NativeDecimals is the number of decimal places of the native coin (SOL).
const NativeDecimals = 9

// LamportsPerSOL is the number of base units in one native coin.
const LamportsPerSOL = 1_000_000_000

// DecimalsMode selects how token amounts are scaled to base units.
type DecimalsMode string

const (
	// DecimalsFixed scales every mint by Token.FixedDecimals.
	DecimalsFixed DecimalsMode = "fixed"
	// DecimalsMint looks the mint's decimals up on the ledger.
	DecimalsMint DecimalsMode = "mint"
)

// Config holds runtime configuration for the daemon, CLI and desktop app.
type Config struct {
	// Core
	Network NetworkType `conf:"network"`
	DataDir string      `conf:"datadir"`

	// Ledger node access
	Ledger LedgerConfig

	// Token amount scaling
	Token TokenConfig

	// Wallet
	Wallet WalletConfig

	// Daemon API
	RPC RPCConfig

	// Logging
	Log LogConfig
}

// LedgerConfig holds ledger node settings.
type LedgerConfig struct {
	Endpoint        string        `conf:"ledger.endpoint"` // Empty = cluster URL for Network.
	Commitment      string        `conf:"ledger.commitment"`
	ConfirmTimeout  time.Duration `conf:"ledger.confirm_timeout"`
	ConfirmInterval time.Duration `conf:"ledger.confirm_interval"`
}

// TokenConfig holds the decimal scaling policy for mint and transfer amounts.
type TokenConfig struct {
	Decimals      DecimalsMode `conf:"token.decimals"`
	FixedDecimals uint8        `conf:"token.fixed_decimals"`
}

// WalletConfig holds wallet settings.
type WalletConfig struct {
	Name    string `conf:"wallet.name"`    // Default wallet for unlock.
	Account uint32 `conf:"wallet.account"` // Derivation account index.
}

// RPCConfig holds daemon API server settings.
type RPCConfig struct {
	Enabled     bool     `conf:"rpc.enabled"`
	Addr        string   `conf:"rpc.addr"`
	Port        int      `conf:"rpc.port"`
	AllowedIPs  []string `conf:"rpc.allowed"`
	CORSOrigins []string `conf:"rpc.cors"` // Allowed CORS origins ("*" = all).
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `conf:"log.level"`
	File  string `conf:"log.file"`
	JSON  bool   `conf:"log.json"`
}

// Endpoint returns the ledger RPC endpoint: the explicit one if set,
// otherwise the public cluster URL for the configured network.
func (c *Config) Endpoint() string {
	if c.Ledger.Endpoint != "" {
		return c.Ledger.Endpoint
	}
	return ClusterURL(c.Network)
}

// =============================================================================
// Directory helpers
// =============================================================================

// DefaultDataDir returns the platform-specific default data directory.
//
//	Linux:   ~/.splwallet
//	macOS:   ~/Library/Application Support/SPLWallet
//	Windows: %APPDATA%\SPLWallet
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".splwallet"
	}
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", "SPLWallet")
	case "windows":
		appData := os.Getenv("APPDATA")
		if appData != "" {
			return filepath.Join(appData, "SPLWallet")
		}
		return filepath.Join(home, "AppData", "Roaming", "SPLWallet")
	default:
		return filepath.Join(home, ".splwallet")
	}
}

// NetworkDataDir returns the network-specific data directory.
func (c *Config) NetworkDataDir() string {
	return filepath.Join(c.DataDir, string(c.Network))
}

// KeystoreDir returns the keystore directory.
func (c *Config) KeystoreDir() string {
	return filepath.Join(c.NetworkDataDir(), "keystore")
}

// TokensDir returns the token metadata database directory.
func (c *Config) TokensDir() string {
	return filepath.Join(c.NetworkDataDir(), "tokens")
}

// LogsDir returns the logs directory.
func (c *Config) LogsDir() string {
	return filepath.Join(c.DataDir, "logs")
}

// ConfigFile returns the config file path.
func (c *Config) ConfigFile() string {
	return filepath.Join(c.DataDir, "splwallet.conf")
}

// RPCListenAddr returns the host:port the daemon API listens on.
func (c *Config) RPCListenAddr() string {
	return c.RPC.Addr + ":" + itoa(c.RPC.Port)
}
