// Package node assembles a wallet session with its ledger client, keystore,
// token metadata store and API server. It is embedded by the daemon and the
// desktop app.
package node

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/Klingon-tech/splwallet/config"
	"github.com/Klingon-tech/splwallet/internal/ledger"
	klog "github.com/Klingon-tech/splwallet/internal/log"
	"github.com/Klingon-tech/splwallet/internal/rpc"
	"github.com/Klingon-tech/splwallet/internal/session"
	"github.com/Klingon-tech/splwallet/internal/storage"
	"github.com/Klingon-tech/splwallet/internal/token"
	"github.com/Klingon-tech/splwallet/internal/wallet"
)

// pingTimeout bounds the start-up health check of the ledger node.
const pingTimeout = 5 * time.Second

// Node is a fully-initialized wallet node.
type Node struct {
	cfg    *config.Config
	logger zerolog.Logger

	// Core
	db         storage.DB
	tokenStore *token.Store
	decimals   token.DecimalsPolicy
	ledger     *ledger.Client

	// Wallet
	keystore *wallet.Keystore
	injector *wallet.Injector
	session  *session.Controller

	// RPC
	rpcServer *rpc.Server
}

// New creates and initializes a new Node. It performs all setup steps
// (logger, storage, ledger client, keystore, session, RPC) but does not
// touch the network. Call Start() for that.
func New(cfg *config.Config) (*Node, error) {
	// ── 1. Init logger ──────────────────────────────────────────────
	logFile := expandHome(cfg.Log.File)
	if logFile == "" {
		if err := os.MkdirAll(cfg.LogsDir(), 0755); err != nil {
			return nil, fmt.Errorf("creating logs dir: %w", err)
		}
		logFile = filepath.Join(cfg.LogsDir(), "splwallet.log")
	}
	if err := klog.Init(cfg.Log.Level, cfg.Log.JSON, logFile); err != nil {
		return nil, fmt.Errorf("initializing logger: %w", err)
	}
	logger := klog.WithComponent("node")

	logger.Info().
		Str("network", string(cfg.Network)).
		Str("endpoint", cfg.Endpoint()).
		Str("commitment", cfg.Ledger.Commitment).
		Str("decimals", string(cfg.Token.Decimals)).
		Msg("Starting SPL wallet")

	// ── 2. Open storage ─────────────────────────────────────────────
	db, err := storage.NewBadger(cfg.TokensDir())
	if err != nil {
		return nil, fmt.Errorf("open database at %s: %w", cfg.TokensDir(), err)
	}
	tokenStore := token.NewStore(db)
	logger.Info().Str("path", cfg.TokensDir()).Msg("Token metadata opened")

	// ── 3. Ledger client and decimals policy ────────────────────────
	lc := ledger.FromConfig(cfg)
	decimals := token.NewPolicy(cfg.Token, tokenStore, lc)

	// ── 4. Keystore ─────────────────────────────────────────────────
	ks, err := wallet.NewKeystore(cfg.KeystoreDir())
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("open keystore: %w", err)
	}

	// ── 5. Session ──────────────────────────────────────────────────
	injector := wallet.NewInjector()
	ctrl := session.New(injector, lc, decimals)

	n := &Node{
		cfg:        cfg,
		logger:     logger,
		db:         db,
		tokenStore: tokenStore,
		decimals:   decimals,
		ledger:     lc,
		keystore:   ks,
		injector:   injector,
		session:    ctrl,
	}

	// ── 6. RPC ──────────────────────────────────────────────────────
	if cfg.RPC.Enabled {
		n.rpcServer = rpc.New(cfg.RPCListenAddr(), ctrl, cfg.RPC)
		n.rpcServer.SetWallet(ks, injector, cfg.Wallet.Account)
		n.rpcServer.SetTokenStore(tokenStore)
		n.rpcServer.SetDecimals(decimals)
	}

	return n, nil
}

// Start checks the ledger node and starts the RPC server. An unreachable
// ledger is logged, not fatal: balance reads will report it.
func (n *Node) Start() error {
	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	if err := n.ledger.Ping(ctx); err != nil {
		n.logger.Warn().Err(err).Str("endpoint", n.ledger.Endpoint()).Msg("Ledger node not reachable")
	} else {
		n.logger.Info().Str("endpoint", n.ledger.Endpoint()).Msg("Ledger node healthy")
	}

	if n.rpcServer != nil {
		if err := n.rpcServer.Start(); err != nil {
			return fmt.Errorf("start rpc: %w", err)
		}
		n.logger.Info().Str("addr", n.rpcServer.Addr()).Msg("RPC server listening")
	}
	return nil
}

// Stop shuts the API down, ends the session and closes storage.
func (n *Node) Stop() {
	if n.rpcServer != nil {
		n.rpcServer.Stop()
	}
	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	n.session.Disconnect(ctx)
	cancel()
	if p, ok := n.injector.Eject().(*wallet.KeystoreProvider); ok {
		p.Close()
	}
	if n.db != nil {
		n.db.Close()
	}

	n.logger.Info().Msg("Goodbye!")
}

// RPCAddr returns the address the RPC server is listening on.
func (n *Node) RPCAddr() string {
	if n.rpcServer == nil {
		return ""
	}
	return n.rpcServer.Addr()
}

// Config returns the configuration the node was built from.
func (n *Node) Config() *config.Config { return n.cfg }

// Session returns the session controller.
func (n *Node) Session() *session.Controller { return n.session }

// Keystore returns the wallet keystore.
func (n *Node) Keystore() *wallet.Keystore { return n.keystore }

// Injector returns the provider slot the session locates its wallet in.
func (n *Node) Injector() *wallet.Injector { return n.injector }

// Ledger returns the ledger client.
func (n *Node) Ledger() *ledger.Client { return n.ledger }

// Decimals returns the amount scaling policy.
func (n *Node) Decimals() token.DecimalsPolicy { return n.decimals }

// TokenStore returns the mint metadata store.
func (n *Node) TokenStore() *token.Store { return n.tokenStore }
