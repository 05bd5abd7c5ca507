// splwallet-cli is a command-line client for a running splwalletd.
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"syscall"

	"golang.org/x/term"

	"github.com/Klingon-tech/splwallet/config"
	"github.com/Klingon-tech/splwallet/internal/rpc"
	"github.com/Klingon-tech/splwallet/internal/rpcclient"
	"github.com/Klingon-tech/splwallet/internal/session"
)

// globals holds the flags that precede the subcommand.
type globals struct {
	rpcURL  string
	dataDir string
	network config.NetworkType
}

// keystoreDir returns the keystore path matching splwalletd's layout:
// <datadir>/<network>/keystore
func (g *globals) keystoreDir() string {
	cfg := config.Default(g.network)
	cfg.DataDir = g.dataDir
	return cfg.KeystoreDir()
}

// parseGlobals scans --rpc, --datadir and --network before the subcommand.
func parseGlobals(args []string) (*globals, []string) {
	g := &globals{
		dataDir: config.DefaultDataDir(),
		network: config.Devnet,
	}
	for len(args) > 0 {
		name, value, rest, ok := globalFlag(args)
		if !ok {
			break
		}
		switch name {
		case "rpc":
			g.rpcURL = value
		case "datadir":
			g.dataDir = value
		case "network":
			g.network = config.NetworkType(strings.ToLower(value))
		}
		args = rest
	}
	if g.rpcURL == "" {
		g.rpcURL = fmt.Sprintf("http://127.0.0.1:%d", config.Default(g.network).RPC.Port)
	}
	return g, args
}

// globalFlag reads one "--name value" or "--name=value" pair.
func globalFlag(args []string) (name, value string, rest []string, ok bool) {
	for _, n := range []string{"rpc", "datadir", "network"} {
		switch {
		case args[0] == "--"+n && len(args) > 1:
			return n, args[1], args[2:], true
		case strings.HasPrefix(args[0], "--"+n+"="):
			return n, args[0][len("--"+n+"="):], args[1:], true
		}
	}
	return "", "", args, false
}

func main() {
	g, args := parseGlobals(os.Args[1:])
	if len(args) == 0 {
		usage()
		os.Exit(1)
	}

	client := rpcclient.New(g.rpcURL)
	cmd := args[0]
	cmdArgs := args[1:]

	switch cmd {
	case "status":
		cmdStatus(client)
	case "connect":
		cmdConnect(client)
	case "disconnect":
		cmdDisconnect(client)
	case "refresh":
		cmdRefresh(client)
	case "unlock":
		cmdUnlock(client, cmdArgs)
	case "lock":
		cmdLock(client)
	case "mint":
		cmdMint(client, cmdArgs)
	case "transfer":
		cmdTransfer(client, cmdArgs)
	case "decimals":
		cmdDecimals(client, cmdArgs)
	case "tokens":
		cmdTokens(client, cmdArgs)
	case "wallet":
		cmdWallet(cmdArgs, g)
	case "watch":
		cmdWatch(g.rpcURL)
	case "help", "--help", "-h":
		usage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmd)
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, `Usage: splwallet-cli [global flags] <command> [flags]

Global flags:
  --rpc <url>         splwalletd API (default: http://127.0.0.1:<network port>)
  --datadir <path>    Data directory (default: ~/.splwallet)
  --network <net>     mainnet-beta, testnet, devnet (default) or localnet

Commands:
  status                          Show session state
  connect                         Connect the unlocked wallet
  disconnect                      End the session
  refresh                         Re-read SOL and token balances
  unlock --wallet <w> [--account <n>]
                                  Unlock a wallet so connect can find it
  lock                            Disconnect and lock the wallet
  mint --mint <addr> --amount <amt>
                                  Mint tokens to the connected account
  transfer --mint <addr> --to <addr> --amount <amt>
                                  Transfer tokens from the connected account
  decimals <mint>                 Show a mint's decimals
  tokens [list|clear]             Show or clear cached mint metadata
  wallet create --name <w>        Create a new wallet
  wallet import --name <w> --mnemonic "<words>"
                                  Import a wallet from its mnemonic
  wallet list                     List wallets
  wallet address --name <w> [--account <n>]
                                  Show an account address
  watch                           Stream session events
`)
}

// ── session ─────────────────────────────────────────────────────────────

func printState(st *session.State) {
	if !st.Connected {
		fmt.Println("Wallet:   not connected")
	} else {
		fmt.Printf("Wallet:   %s\n", st.Account)
		fmt.Printf("Balance:  %s SOL\n", st.Balance)
		if len(st.Holdings) == 0 {
			fmt.Println("Tokens:   none")
		} else {
			fmt.Println("Tokens:")
			for _, h := range st.Holdings {
				fmt.Printf("  %-44s  %s\n", h.Mint, h.UIAmount)
			}
		}
	}
	if st.Pending {
		fmt.Println("Pending:  yes")
	}
	if st.Error != "" {
		fmt.Printf("Error:    %s\n", st.Error)
	}
}

func callState(client *rpcclient.Client, method string) {
	var st session.State
	if err := client.Call(method, nil, &st); err != nil {
		fatal("%s: %v", method, err)
	}
	printState(&st)
}

func cmdStatus(client *rpcclient.Client) {
	callState(client, "session_getState")
}

func cmdConnect(client *rpcclient.Client) {
	callState(client, "session_connect")
}

func cmdDisconnect(client *rpcclient.Client) {
	callState(client, "session_disconnect")
}

func cmdRefresh(client *rpcclient.Client) {
	callState(client, "session_refresh")
}

func cmdUnlock(client *rpcclient.Client, args []string) {
	fs := flag.NewFlagSet("unlock", flag.ExitOnError)
	name := fs.String("wallet", "", "Wallet name")
	account := fs.Int("account", -1, "Account index (default: daemon setting)")
	fs.Parse(args)

	if *name == "" {
		fatal("Usage: splwallet-cli unlock --wallet <name> [--account <n>]")
	}
	password, err := readPassword("Password: ")
	if err != nil {
		fatal("read password: %v", err)
	}

	params := rpc.WalletUnlockParam{Name: *name, Password: string(password)}
	if *account >= 0 {
		a := uint32(*account)
		params.Account = &a
	}
	var res rpc.WalletUnlockResult
	if err := client.Call("wallet_unlock", params, &res); err != nil {
		fatal("wallet_unlock: %v", err)
	}
	fmt.Printf("Unlocked %s (account %d). Run 'connect' to start a session.\n", res.Name, res.Account)
}

func cmdLock(client *rpcclient.Client) {
	callState(client, "wallet_lock")
}

// ── tokens ──────────────────────────────────────────────────────────────

func printAck(ack *session.Acknowledgement) {
	fmt.Println(ack.Message)
	fmt.Printf("Signature: %s\n", ack.Signature)
}

func cmdMint(client *rpcclient.Client, args []string) {
	fs := flag.NewFlagSet("mint", flag.ExitOnError)
	mint := fs.String("mint", "", "Mint address")
	amount := fs.String("amount", "", "Amount in whole tokens")
	fs.Parse(args)

	if *mint == "" || *amount == "" {
		fatal("Usage: splwallet-cli mint --mint <addr> --amount <amt>")
	}
	var ack session.Acknowledgement
	if err := client.Call("token_mint", rpc.MintParam{Mint: *mint, Amount: *amount}, &ack); err != nil {
		fatal("%v", err)
	}
	printAck(&ack)
}

func cmdTransfer(client *rpcclient.Client, args []string) {
	fs := flag.NewFlagSet("transfer", flag.ExitOnError)
	mint := fs.String("mint", "", "Mint address")
	to := fs.String("to", "", "Recipient address")
	amount := fs.String("amount", "", "Amount in whole tokens")
	fs.Parse(args)

	if *mint == "" || *to == "" || *amount == "" {
		fatal("Usage: splwallet-cli transfer --mint <addr> --to <addr> --amount <amt>")
	}
	var ack session.Acknowledgement
	params := rpc.TransferParam{Mint: *mint, Recipient: *to, Amount: *amount}
	if err := client.Call("token_transfer", params, &ack); err != nil {
		fatal("%v", err)
	}
	printAck(&ack)
}

func cmdDecimals(client *rpcclient.Client, args []string) {
	if len(args) != 1 {
		fatal("Usage: splwallet-cli decimals <mint>")
	}
	var res rpc.DecimalsResult
	if err := client.Call("token_decimals", rpc.MintAddressParam{Mint: args[0]}, &res); err != nil {
		fatal("token_decimals: %v", err)
	}
	fmt.Printf("%s: %d decimals\n", res.Mint, res.Decimals)
}

func cmdTokens(client *rpcclient.Client, args []string) {
	sub := "list"
	if len(args) > 0 {
		sub = args[0]
	}
	switch sub {
	case "list":
		var res rpc.TokenListResult
		if err := client.Call("token_list", nil, &res); err != nil {
			fatal("token_list: %v", err)
		}
		if len(res.Tokens) == 0 {
			fmt.Println("No mints cached.")
			return
		}
		for _, m := range res.Tokens {
			fmt.Printf("%-44s  %2d decimals  first seen %s\n", m.Mint, m.Decimals, m.FirstSeen.Format("2006-01-02 15:04"))
		}
	case "clear":
		var res rpc.ClearCacheResult
		if err := client.Call("token_clearCache", nil, &res); err != nil {
			fatal("token_clearCache: %v", err)
		}
		fmt.Printf("Removed %d cached mints.\n", res.Removed)
	default:
		fatal("Usage: splwallet-cli tokens [list|clear]")
	}
}

// ── helpers ─────────────────────────────────────────────────────────────

func readPassword(prompt string) ([]byte, error) {
	fmt.Fprint(os.Stderr, prompt)
	password, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Fprintln(os.Stderr) // newline after hidden input
	if err != nil {
		return nil, err
	}
	return password, nil
}

func fatal(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}
