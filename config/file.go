package config

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// LoadFile loads configuration from a .conf file.
// Format: key = value (one per line, # for comments)
func LoadFile(path string) (map[string]string, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return make(map[string]string), nil
		}
		return nil, err
	}
	defer file.Close()

	values := make(map[string]string)
	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("line %d: invalid format (expected key = value)", lineNum)
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		// Remove quotes if present
		if len(value) >= 2 {
			if (value[0] == '"' && value[len(value)-1] == '"') ||
				(value[0] == '\'' && value[len(value)-1] == '\'') {
				value = value[1 : len(value)-1]
			}
		}

		values[key] = value
	}

	return values, scanner.Err()
}

// ApplyFileConfig applies file configuration to a Config struct.
func ApplyFileConfig(cfg *Config, values map[string]string) error {
	for key, value := range values {
		if err := setConfigValue(cfg, key, value); err != nil {
			return fmt.Errorf("config key %q: %w", key, err)
		}
	}
	return nil
}

// setConfigValue sets a config value by key.
func setConfigValue(cfg *Config, key, value string) error {
	switch key {
	// Core
	case "network":
		cfg.Network = NetworkType(value)
	case "datadir":
		cfg.DataDir = value

	// Ledger
	case "ledger.endpoint", "endpoint":
		cfg.Ledger.Endpoint = value
	case "ledger.commitment":
		cfg.Ledger.Commitment = strings.ToLower(value)
	case "ledger.confirm_timeout":
		d, err := time.ParseDuration(value)
		if err != nil {
			return err
		}
		cfg.Ledger.ConfirmTimeout = d
	case "ledger.confirm_interval":
		d, err := time.ParseDuration(value)
		if err != nil {
			return err
		}
		cfg.Ledger.ConfirmInterval = d

	// Token
	case "token.decimals":
		cfg.Token.Decimals = DecimalsMode(strings.ToLower(value))
	case "token.fixed_decimals":
		n, err := strconv.ParseUint(value, 10, 8)
		if err != nil {
			return err
		}
		cfg.Token.FixedDecimals = uint8(n)

	// Wallet
	case "wallet.name", "wallet":
		cfg.Wallet.Name = value
	case "wallet.account":
		n, err := strconv.ParseUint(value, 10, 32)
		if err != nil {
			return err
		}
		cfg.Wallet.Account = uint32(n)

	// RPC
	case "rpc.enabled", "rpc":
		cfg.RPC.Enabled = parseBool(value)
	case "rpc.addr":
		cfg.RPC.Addr = value
	case "rpc.port":
		port, err := strconv.Atoi(value)
		if err != nil {
			return err
		}
		cfg.RPC.Port = port
	case "rpc.allowed":
		cfg.RPC.AllowedIPs = parseStringList(value)
	case "rpc.cors":
		cfg.RPC.CORSOrigins = parseStringList(value)

	// Logging
	case "log.level":
		cfg.Log.Level = value
	case "log.file":
		cfg.Log.File = value
	case "log.json":
		cfg.Log.JSON = parseBool(value)

	default:
		// Unknown keys are ignored
	}
	return nil
}

// parseBool parses a boolean value.
func parseBool(s string) bool {
	s = strings.ToLower(s)
	return s == "true" || s == "1" || s == "yes" || s == "on"
}

// parseStringList parses a comma-separated list.
func parseStringList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}

// WriteDefaultConfig writes a default configuration file.
func WriteDefaultConfig(path string, network NetworkType) error {
	cfg := Default(network)
	content := `# SPL Wallet Configuration
#
# Session state (connected account, balances, last error) is never stored
# here. Only settings live in this file.

# Network: mainnet-beta, testnet, devnet or localnet
network = ` + string(cfg.Network) + `

# Data directory (default: ~/.splwallet)
# datadir = ~/.splwallet

# ============================================================================
# Ledger node
# ============================================================================

# RPC endpoint (default: public cluster URL for the network)
# ledger.endpoint = ` + ClusterURL(cfg.Network) + `

# Commitment for reads and preflight: processed, confirmed or finalized
ledger.commitment = confirmed

# How long to wait for a submitted transaction to be confirmed
ledger.confirm_timeout = 60s
ledger.confirm_interval = 500ms

# ============================================================================
# Token amounts
# ============================================================================

# fixed: scale every amount by token.fixed_decimals (9, like SOL)
# mint:  use the decimals recorded on the mint account
token.decimals = fixed
token.fixed_decimals = 9

# ============================================================================
# Wallet
# ============================================================================

# Wallet to unlock by default
wallet.name = default
# wallet.account = 0

# ============================================================================
# Daemon API
# ============================================================================

rpc.enabled = true
rpc.addr = 127.0.0.1
rpc.port = ` + itoa(cfg.RPC.Port) + `
rpc.allowed = 127.0.0.1
# CORS allowed origins ("*" for all)
# rpc.cors = http://localhost:3000

# ============================================================================
# Logging
# ============================================================================

log.level = info
# log.file =
log.json = false
`
	return os.WriteFile(path, []byte(content), 0644)
}
