package config

import (
	"fmt"
	"net/url"
	"time"
)

// Validate checks runtime config for obvious operator mistakes.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}
	if _, ok := clusterURLs[cfg.Network]; !ok {
		return fmt.Errorf("network must be one of %q, %q, %q or %q", Mainnet, Testnet, Devnet, Localnet)
	}
	if cfg.Ledger.Endpoint != "" {
		u, err := url.Parse(cfg.Ledger.Endpoint)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("ledger.endpoint must be an http(s) URL")
		}
	}

	switch cfg.Ledger.Commitment {
	case "":
		cfg.Ledger.Commitment = "confirmed"
	case "processed", "confirmed", "finalized":
	default:
		return fmt.Errorf("ledger.commitment must be processed, confirmed or finalized")
	}
	if cfg.Ledger.ConfirmTimeout <= 0 {
		cfg.Ledger.ConfirmTimeout = 60 * time.Second
	}
	if cfg.Ledger.ConfirmInterval <= 0 {
		cfg.Ledger.ConfirmInterval = 500 * time.Millisecond
	}
	if cfg.Ledger.ConfirmInterval > cfg.Ledger.ConfirmTimeout {
		return fmt.Errorf("ledger.confirm_interval must not exceed ledger.confirm_timeout")
	}

	switch cfg.Token.Decimals {
	case "":
		cfg.Token.Decimals = DecimalsFixed
	case DecimalsFixed, DecimalsMint:
	default:
		return fmt.Errorf("token.decimals must be %q or %q", DecimalsFixed, DecimalsMint)
	}
	if cfg.Token.FixedDecimals > MaxDecimals {
		return fmt.Errorf("token.fixed_decimals must be in range [0, %d]", MaxDecimals)
	}

	if cfg.RPC.Port < 0 || cfg.RPC.Port > 65535 {
		return fmt.Errorf("rpc.port must be in range [0, 65535]")
	}
	return nil
}

// MaxDecimals is the largest decimals value an amount can be scaled by
// without overflowing uint64 for a single whole unit.
const MaxDecimals = 19
