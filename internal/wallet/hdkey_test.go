package wallet

import (
	"bytes"
	"encoding/hex"
	"testing"
)

func mustHex(t *testing.T, s string) []byte {
	t.Helper()
	b, err := hex.DecodeString(s)
	if err != nil {
		t.Fatal(err)
	}
	return b
}

// SLIP-0010 test vector 1 for ed25519.
func TestSLIP10_Vector1(t *testing.T) {
	seed := mustHex(t, "000102030405060708090a0b0c0d0e0f")

	tests := []struct {
		path  []uint32
		key   string
		chain string
	}{
		{
			path:  []uint32{0},
			key:   "68e0fe46dfb67e368c75379acec591dad19df3cde26e63b93a8e704f1dade7a3",
			chain: "8b59aa11380b624e81507a27fedda59fea6d0b779a778918a2fd3590e16e9c69",
		},
		{
			path:  []uint32{0, 1},
			key:   "b1d0bad404bf35da785a64ca1ac54b2617211d2777696fbffaf208f746ae84f2",
			chain: "a320425f77d1b5c2505a6b1b27382b37368ee640e3557c315416801243552f14",
		},
	}
	for _, tt := range tests {
		t.Run(Path(tt.path...), func(t *testing.T) {
			k, err := DerivePath(seed, tt.path...)
			if err != nil {
				t.Fatalf("DerivePath: %v", err)
			}
			if got, want := k.Seed(), mustHex(t, tt.key); !bytes.Equal(got, want) {
				t.Errorf("key = %x, want %x", got, want)
			}
			if got, want := k.ChainCode(), mustHex(t, tt.chain); !bytes.Equal(got, want) {
				t.Errorf("chain = %x, want %x", got, want)
			}
			if int(k.Depth()) != len(tt.path) {
				t.Errorf("depth = %d", k.Depth())
			}
		})
	}
}

func TestPath(t *testing.T) {
	tests := []struct {
		indices []uint32
		want    string
	}{
		{nil, "m"},
		{[]uint32{0}, "m/0'"},
		{[]uint32{HardenedOffset + 7}, "m/7'"},
		{[]uint32{44, 501, 3, 0}, "m/44'/501'/3'/0'"},
	}
	for _, tt := range tests {
		if got := Path(tt.indices...); got != tt.want {
			t.Errorf("Path(%v) = %q, want %q", tt.indices, got, tt.want)
		}
	}
	if got := AccountPath(2); got != "m/44'/501'/2'/0'" {
		t.Errorf("AccountPath(2) = %q", got)
	}
}

func TestDerivePath_ImplicitHardening(t *testing.T) {
	seed := testSeed(t)
	a, err := DerivePath(seed, 5)
	if err != nil {
		t.Fatal(err)
	}
	b, _ := DerivePath(seed, HardenedOffset+5)
	if !bytes.Equal(a.Seed(), b.Seed()) {
		t.Error("index 5 and 5' derive different keys")
	}
}

func TestDerivePath_InvalidInput(t *testing.T) {
	for _, n := range []int{0, 15, 65} {
		if _, err := DerivePath(make([]byte, n), 0); err == nil {
			t.Errorf("seed of %d bytes accepted", n)
		}
	}
	if _, err := DerivePath(testSeed(t)); err == nil {
		t.Error("empty path accepted")
	}
}

func TestDeriveAccount(t *testing.T) {
	seed := testSeed(t)

	acct0, err := DeriveAccount(seed, 0)
	if err != nil {
		t.Fatalf("DeriveAccount: %v", err)
	}
	path, _ := DerivePath(seed, 44, 501, 0, 0)
	if !bytes.Equal(acct0.Seed(), path.Seed()) {
		t.Error("DeriveAccount(0) != m/44'/501'/0'/0'")
	}
	if acct0.Depth() != 4 {
		t.Errorf("depth = %d, want 4", acct0.Depth())
	}

	acct1, _ := DeriveAccount(seed, 1)
	if acct0.PublicKey().Equals(acct1.PublicKey()) {
		t.Error("accounts 0 and 1 share a key")
	}

	key, err := DeriveAccountKey(seed, 0)
	if err != nil {
		t.Fatalf("DeriveAccountKey: %v", err)
	}
	if !key.PublicKey().Equals(acct0.PublicKey()) {
		t.Error("DeriveAccountKey disagrees with DeriveAccount")
	}
	if len(key) != 64 {
		t.Errorf("private key length = %d", len(key))
	}

	if _, err := DeriveAccount(seed, HardenedOffset); err == nil {
		t.Error("expected error for out-of-range account")
	}
}

func TestWipe(t *testing.T) {
	k, _ := DeriveAccount(testSeed(t), 0)
	k.Wipe()
	if !bytes.Equal(k.Seed(), make([]byte, 32)) {
		t.Error("key not zeroed")
	}
	if !bytes.Equal(k.ChainCode(), make([]byte, 32)) {
		t.Error("chain code not zeroed")
	}
}

func testSeed(t *testing.T) []byte {
	t.Helper()
	seed, err := SeedFromMnemonic(testMnemonic, "")
	if err != nil {
		t.Fatal(err)
	}
	return seed
}
