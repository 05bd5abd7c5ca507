// derive_key.go prints the Solana addresses derived from a mnemonic file.
// Usage: go run scripts/derive_key.go <mnemonicfile> [accounts]
package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/Klingon-tech/splwallet/internal/wallet"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: derive_key <mnemonicfile> [accounts]")
		os.Exit(1)
	}
	data, err := os.ReadFile(os.Args[1])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	count := uint64(1)
	if len(os.Args) > 2 {
		count, err = strconv.ParseUint(os.Args[2], 10, 31)
		if err != nil || count == 0 {
			fmt.Fprintln(os.Stderr, "accounts must be a positive integer")
			os.Exit(1)
		}
	}

	mnemonic := wallet.NormalizeMnemonic(string(data))
	seed, err := wallet.SeedFromMnemonic(mnemonic, "")
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	for i := uint32(0); i < uint32(count); i++ {
		key, err := wallet.DeriveAccountKey(seed, i)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		fmt.Printf("m/44'/501'/%d'/0' address=%s\n", i, key.PublicKey())
	}
}
