package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefault_PerNetwork(t *testing.T) {
	tests := []struct {
		network  NetworkType
		port     int
		endpoint string
	}{
		{Devnet, 8957, "https://api.devnet.solana.com"},
		{Testnet, 8956, "https://api.testnet.solana.com"},
		{Mainnet, 8955, "https://api.mainnet-beta.solana.com"},
		{Localnet, 8958, "http://127.0.0.1:8899"},
	}
	for _, tt := range tests {
		t.Run(string(tt.network), func(t *testing.T) {
			cfg := Default(tt.network)
			if cfg.Network != tt.network {
				t.Errorf("Network = %q, want %q", cfg.Network, tt.network)
			}
			if cfg.RPC.Port != tt.port {
				t.Errorf("RPC.Port = %d, want %d", cfg.RPC.Port, tt.port)
			}
			if got := cfg.Endpoint(); got != tt.endpoint {
				t.Errorf("Endpoint() = %q, want %q", got, tt.endpoint)
			}
			if cfg.Token.Decimals != DecimalsFixed || cfg.Token.FixedDecimals != 9 {
				t.Errorf("token policy = %q/%d, want fixed/9", cfg.Token.Decimals, cfg.Token.FixedDecimals)
			}
		})
	}
}

func TestDefault_UnknownNetworkFallsBackToDevnet(t *testing.T) {
	cfg := Default("bogus")
	if cfg.Network != Devnet {
		t.Errorf("Network = %q, want %q", cfg.Network, Devnet)
	}
}

func TestEndpoint_ExplicitOverride(t *testing.T) {
	cfg := Default(Devnet)
	cfg.Ledger.Endpoint = "http://10.0.0.5:8899"
	if got := cfg.Endpoint(); got != "http://10.0.0.5:8899" {
		t.Errorf("Endpoint() = %q", got)
	}
}

func TestLoadFile_ParsesValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "splwallet.conf")
	content := `# comment
network = testnet
ledger.endpoint = "http://localhost:8899"
ledger.confirm_timeout = 30s
token.decimals = mint
token.fixed_decimals = 6
wallet.name = 'alice'
rpc.allowed = 127.0.0.1, 10.0.0.0/8
log.json = yes
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	values, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	cfg := Default(Devnet)
	if err := ApplyFileConfig(cfg, values); err != nil {
		t.Fatalf("ApplyFileConfig: %v", err)
	}

	if cfg.Network != Testnet {
		t.Errorf("Network = %q", cfg.Network)
	}
	if cfg.Ledger.Endpoint != "http://localhost:8899" {
		t.Errorf("Endpoint = %q", cfg.Ledger.Endpoint)
	}
	if cfg.Ledger.ConfirmTimeout != 30*time.Second {
		t.Errorf("ConfirmTimeout = %v", cfg.Ledger.ConfirmTimeout)
	}
	if cfg.Token.Decimals != DecimalsMint || cfg.Token.FixedDecimals != 6 {
		t.Errorf("token = %q/%d", cfg.Token.Decimals, cfg.Token.FixedDecimals)
	}
	if cfg.Wallet.Name != "alice" {
		t.Errorf("Wallet.Name = %q", cfg.Wallet.Name)
	}
	if len(cfg.RPC.AllowedIPs) != 2 || cfg.RPC.AllowedIPs[1] != "10.0.0.0/8" {
		t.Errorf("AllowedIPs = %v", cfg.RPC.AllowedIPs)
	}
	if !cfg.Log.JSON {
		t.Error("Log.JSON = false, want true")
	}
}

func TestLoadFile_Missing(t *testing.T) {
	values, err := LoadFile(filepath.Join(t.TempDir(), "nope.conf"))
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if len(values) != 0 {
		t.Errorf("values = %v, want empty", values)
	}
}

func TestLoadFile_BadLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.conf")
	os.WriteFile(path, []byte("network\n"), 0644)
	if _, err := LoadFile(path); err == nil {
		t.Fatal("expected error for line without '='")
	}
}

func TestApplyFileConfig_BadDuration(t *testing.T) {
	cfg := Default(Devnet)
	err := ApplyFileConfig(cfg, map[string]string{"ledger.confirm_timeout": "soon"})
	if err == nil {
		t.Fatal("expected error for bad duration")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(*Config) {}, false},
		{"bad network", func(c *Config) { c.Network = "moonnet" }, true},
		{"bad endpoint", func(c *Config) { c.Ledger.Endpoint = "ftp://x" }, true},
		{"bad commitment", func(c *Config) { c.Ledger.Commitment = "max" }, true},
		{"bad decimals mode", func(c *Config) { c.Token.Decimals = "guess" }, true},
		{"decimals too large", func(c *Config) { c.Token.FixedDecimals = 20 }, true},
		{"bad port", func(c *Config) { c.RPC.Port = 70000 }, true},
		{"interval above timeout", func(c *Config) {
			c.Ledger.ConfirmTimeout = time.Second
			c.Ledger.ConfirmInterval = 2 * time.Second
		}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default(Devnet)
			tt.mutate(cfg)
			err := Validate(cfg)
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidate_FillsEmptyFields(t *testing.T) {
	cfg := Default(Devnet)
	cfg.Ledger.Commitment = ""
	cfg.Token.Decimals = ""
	cfg.Ledger.ConfirmTimeout = 0
	cfg.Ledger.ConfirmInterval = 0
	if err := Validate(cfg); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if cfg.Ledger.Commitment != "confirmed" {
		t.Errorf("Commitment = %q", cfg.Ledger.Commitment)
	}
	if cfg.Token.Decimals != DecimalsFixed {
		t.Errorf("Decimals = %q", cfg.Token.Decimals)
	}
	if cfg.Ledger.ConfirmTimeout == 0 || cfg.Ledger.ConfirmInterval == 0 {
		t.Error("confirm durations not defaulted")
	}
}

func TestLoad_FlagsOverrideFile(t *testing.T) {
	dir := t.TempDir()
	conf := filepath.Join(dir, "splwallet.conf")
	os.WriteFile(conf, []byte("network = devnet\nrpc.port = 9000\nwallet.name = filewallet\n"), 0644)

	cfg, flags, err := Load([]string{"--datadir", dir, "--rpc-port", "9100", "--decimals", "mint"})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if flags.Help || flags.Version {
		t.Fatal("unexpected help/version")
	}
	if cfg.RPC.Port != 9100 {
		t.Errorf("RPC.Port = %d, want 9100", cfg.RPC.Port)
	}
	if cfg.Wallet.Name != "filewallet" {
		t.Errorf("Wallet.Name = %q, want filewallet", cfg.Wallet.Name)
	}
	if cfg.Token.Decimals != DecimalsMint {
		t.Errorf("Token.Decimals = %q, want mint", cfg.Token.Decimals)
	}
	if _, err := os.Stat(cfg.KeystoreDir()); err != nil {
		t.Errorf("keystore dir not created: %v", err)
	}
}

func TestLoad_WritesDefaultConfig(t *testing.T) {
	dir := t.TempDir()
	cfg, _, err := Load([]string{"--datadir", dir, "--network", "testnet"})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	values, err := LoadFile(cfg.ConfigFile())
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if values["network"] != "testnet" {
		t.Errorf("written network = %q, want testnet", values["network"])
	}
	if values["rpc.port"] != "8956" {
		t.Errorf("written rpc.port = %q, want 8956", values["rpc.port"])
	}
}

func TestParseFlags_StrayFlag(t *testing.T) {
	if _, err := ParseFlags([]string{"--wallet", "a", "extra", "--log-json"}); err == nil {
		t.Fatal("expected error for flag after positional argument")
	}
}
