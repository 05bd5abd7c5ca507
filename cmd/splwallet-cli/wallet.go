package main

import (
	"flag"
	"fmt"
	"strings"

	"github.com/Klingon-tech/splwallet/internal/wallet"
)

func cmdWallet(args []string, g *globals) {
	const walletUsage = "Usage: splwallet-cli wallet <create|import|list|address> [flags]"
	if len(args) < 1 {
		fatal(walletUsage)
	}

	ks, err := wallet.NewKeystore(g.keystoreDir())
	if err != nil {
		fatal("open keystore: %v", err)
	}

	switch args[0] {
	case "create":
		cmdWalletCreate(args[1:], ks)
	case "import":
		cmdWalletImport(args[1:], ks)
	case "list":
		cmdWalletList(ks)
	case "address":
		cmdWalletAddress(args[1:], ks)
	default:
		fatal("Unknown wallet command: %s\n%s", args[0], walletUsage)
	}
}

// readNewPassword prompts twice and requires both entries to match.
func readNewPassword() []byte {
	password, err := readPassword("Enter password: ")
	if err != nil {
		fatal("read password: %v", err)
	}
	confirm, err := readPassword("Confirm password: ")
	if err != nil {
		fatal("read password: %v", err)
	}
	if string(password) != string(confirm) {
		fatal("passwords do not match")
	}
	if len(password) == 0 {
		fatal("password must not be empty")
	}
	return password
}

// saveWallet encrypts seed, records account 0 and prints its address.
func saveWallet(ks *wallet.Keystore, name string, seed, password []byte) {
	addr, err := ks.StoreSeed(name, seed, password, wallet.DefaultParams())
	if err != nil {
		fatal("save wallet: %v", err)
	}
	fmt.Printf("\nWallet saved: %s\n", name)
	fmt.Printf("Address: %s\n", addr)
}

func cmdWalletCreate(args []string, ks *wallet.Keystore) {
	fs := flag.NewFlagSet("wallet create", flag.ExitOnError)
	name := fs.String("name", "", "Wallet name")
	fs.Parse(args)

	if *name == "" {
		fatal("Usage: splwallet-cli wallet create --name <name>")
	}
	if ks.Exists(*name) {
		fatal("wallet %q already exists", *name)
	}

	mnemonic, err := wallet.GenerateMnemonic()
	if err != nil {
		fatal("generate mnemonic: %v", err)
	}
	fmt.Println("Mnemonic (write this down!):")
	fmt.Printf("  %s\n\n", mnemonic)

	password := readNewPassword()
	seed, err := wallet.SeedFromMnemonic(mnemonic, "")
	if err != nil {
		fatal("derive seed: %v", err)
	}
	saveWallet(ks, *name, seed, password)
}

func cmdWalletImport(args []string, ks *wallet.Keystore) {
	fs := flag.NewFlagSet("wallet import", flag.ExitOnError)
	name := fs.String("name", "", "Wallet name")
	mnemonic := fs.String("mnemonic", "", "BIP-39 mnemonic")
	fs.Parse(args)

	phrase := wallet.NormalizeMnemonic(*mnemonic)
	if *name == "" || phrase == "" {
		fatal("Usage: splwallet-cli wallet import --name <name> --mnemonic \"word1 word2 ...\"")
	}
	if !wallet.ValidateMnemonic(phrase) {
		fatal("invalid mnemonic")
	}
	if ks.Exists(*name) {
		fatal("wallet %q already exists", *name)
	}

	password := readNewPassword()
	seed, err := wallet.SeedFromMnemonic(phrase, "")
	if err != nil {
		fatal("derive seed: %v", err)
	}
	saveWallet(ks, *name, seed, password)
}

func cmdWalletList(ks *wallet.Keystore) {
	names, err := ks.List()
	if err != nil {
		fatal("list wallets: %v", err)
	}
	if len(names) == 0 {
		fmt.Printf("No wallets in %s\n", ks.Dir())
		return
	}
	for _, n := range names {
		accounts, err := ks.ListAccounts(n)
		if err != nil {
			fmt.Printf("%s  (unreadable: %v)\n", n, err)
			continue
		}
		addrs := make([]string, 0, len(accounts))
		for _, a := range accounts {
			addrs = append(addrs, a.Address)
		}
		fmt.Printf("%s  %s\n", n, strings.Join(addrs, ", "))
	}
}

// cmdWalletAddress prints a recorded account, or derives it with the
// wallet password when it has never been connected.
func cmdWalletAddress(args []string, ks *wallet.Keystore) {
	fs := flag.NewFlagSet("wallet address", flag.ExitOnError)
	name := fs.String("name", "", "Wallet name")
	account := fs.Uint("account", 0, "Account index")
	fs.Parse(args)

	if *name == "" {
		fatal("Usage: splwallet-cli wallet address --name <name> [--account <n>]")
	}
	accounts, err := ks.ListAccounts(*name)
	if err != nil {
		fatal("%v", err)
	}
	for _, a := range accounts {
		if a.Index == uint32(*account) {
			fmt.Printf("%s  %s\n", a.Name, a.Address)
			return
		}
	}

	password, err := readPassword("Password: ")
	if err != nil {
		fatal("read password: %v", err)
	}
	seed, err := ks.Load(*name, password)
	if err != nil {
		fatal("%v", err)
	}
	key, err := wallet.DeriveAccountKey(seed, uint32(*account))
	for i := range seed {
		seed[i] = 0
	}
	if err != nil {
		fatal("derive account: %v", err)
	}
	entry := wallet.AccountEntry{
		Index:   uint32(*account),
		Name:    fmt.Sprintf("Account %d", *account+1),
		Address: key.PublicKey().String(),
	}
	if err := ks.AddAccount(*name, entry); err != nil {
		fatal("add account: %v", err)
	}
	fmt.Printf("%s  %s\n", entry.Name, entry.Address)
}
