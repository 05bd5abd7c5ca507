package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/wailsapp/wails/v2/pkg/runtime"

	"github.com/Klingon-tech/splwallet/config"
	klog "github.com/Klingon-tech/splwallet/internal/log"
	"github.com/Klingon-tech/splwallet/internal/node"
	"github.com/Klingon-tech/splwallet/internal/session"
)

// sessionEvent is the web view event carrying session.Event payloads.
const sessionEvent = "session"

// qtSettings is the persistent configuration written to qt-settings.json.
// It holds settings only; the session always starts disconnected.
type qtSettings struct {
	Endpoint     string `json:"endpoint"`
	DataDir      string `json:"data_dir"`
	Network      string `json:"network"`
	ActiveWallet string `json:"active_wallet"`
}

// App manages application lifecycle and settings. It runs the wallet node
// in-process with the API server disabled.
type App struct {
	ctx context.Context

	mu           sync.Mutex
	endpoint     string // ledger endpoint; empty = cluster URL
	dataDir      string
	networkName  string
	activeWallet string

	node        *node.Node
	unsubscribe func()

	session *SessionService
}

// NewApp creates the application with default settings.
func NewApp() *App {
	app := &App{
		dataDir:     config.DefaultDataDir(),
		networkName: string(config.Devnet),
	}
	app.session = &SessionService{app: app}
	app.loadSettings()
	return app
}

func (a *App) startup(ctx context.Context) {
	a.ctx = ctx
	if err := a.startNode(); err != nil {
		l := klog.WithComponent("qt")
		l.Error().Err(err).Msg("Failed to start wallet node")
	}
}

func (a *App) shutdown(_ context.Context) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.stopNodeLocked()
}

// startNode builds the node from the data dir config plus the app settings.
func (a *App) startNode() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.stopNodeLocked()

	cfg, err := config.LoadFromFile(a.dataDir, config.NetworkType(a.networkName))
	if err != nil {
		return err
	}
	if a.endpoint != "" {
		cfg.Ledger.Endpoint = a.endpoint
	}
	cfg.RPC.Enabled = false

	n, err := node.New(cfg)
	if err != nil {
		return err
	}
	if err := n.Start(); err != nil {
		n.Stop()
		return err
	}
	a.node = n
	a.unsubscribe = n.Session().Subscribe(a.forward)
	return nil
}

func (a *App) stopNodeLocked() {
	if a.node == nil {
		return
	}
	a.unsubscribe()
	a.node.Stop()
	a.node = nil
}

// current returns the running node.
func (a *App) current() (*node.Node, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.node == nil {
		return nil, fmt.Errorf("wallet node is not running")
	}
	return a.node, nil
}

// forward pushes controller events to the web view. Acknowledgements also
// raise an OS notification.
func (a *App) forward(ev session.Event) {
	if a.ctx != nil {
		runtime.EventsEmit(a.ctx, sessionEvent, ev)
	}
	if ev.Type == session.Acknowledged && ev.Ack != nil {
		title, body := notificationText(ev.Ack)
		sendOSNotification(title, body)
	}
}

// settingsPath returns the path to qt-settings.json.
func (a *App) settingsPath() string {
	return filepath.Join(a.dataDir, "qt-settings.json")
}

// ── Settings persistence ─────────────────────────────────────────────

func (a *App) loadSettings() {
	data, err := os.ReadFile(a.settingsPath())
	if err != nil {
		return // first launch or missing file, use defaults
	}
	var s qtSettings
	if err := json.Unmarshal(data, &s); err != nil {
		return
	}
	a.endpoint = s.Endpoint
	if s.DataDir != "" {
		a.dataDir = s.DataDir
	}
	if s.Network != "" {
		a.networkName = s.Network
	}
	a.activeWallet = s.ActiveWallet
}

func (a *App) saveSettings() error {
	a.mu.Lock()
	s := qtSettings{
		Endpoint:     a.endpoint,
		DataDir:      a.dataDir,
		Network:      a.networkName,
		ActiveWallet: a.activeWallet,
	}
	path := a.settingsPath()
	a.mu.Unlock()

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}

// ── Getters / Setters (each setter persists) ─────────────────────────

// GetEndpoint returns the ledger endpoint override ("" = cluster URL).
func (a *App) GetEndpoint() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.endpoint
}

// SetEndpoint updates the ledger endpoint and restarts the node, which
// ends the current session.
func (a *App) SetEndpoint(endpoint string) error {
	a.mu.Lock()
	a.endpoint = endpoint
	a.mu.Unlock()
	return a.applySettings()
}

// GetDataDir returns the current data directory.
func (a *App) GetDataDir() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.dataDir
}

// SetDataDir updates the data directory and restarts the node.
func (a *App) SetDataDir(dir string) error {
	a.mu.Lock()
	a.dataDir = dir
	a.mu.Unlock()
	return a.applySettings()
}

// GetNetwork returns the current network name.
func (a *App) GetNetwork() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.networkName
}

// SetNetwork switches clusters and restarts the node.
func (a *App) SetNetwork(network string) error {
	if config.ClusterURL(config.NetworkType(network)) == "" {
		return fmt.Errorf("unknown network %q", network)
	}
	a.mu.Lock()
	a.networkName = network
	a.mu.Unlock()
	return a.applySettings()
}

// GetActiveWallet returns the wallet the unlock dialog preselects.
func (a *App) GetActiveWallet() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.activeWallet
}

// SetActiveWallet updates the preselected wallet.
func (a *App) SetActiveWallet(name string) error {
	a.mu.Lock()
	a.activeWallet = name
	a.mu.Unlock()
	return a.saveSettings()
}

// GetLedgerEndpoint returns the endpoint the running node talks to.
func (a *App) GetLedgerEndpoint() string {
	n, err := a.current()
	if err != nil {
		return ""
	}
	return n.Ledger().Endpoint()
}

// TestConnection checks if the ledger node is reachable.
func (a *App) TestConnection() (bool, error) {
	n, err := a.current()
	if err != nil {
		return false, err
	}
	if err := n.Ledger().Ping(a.context()); err != nil {
		return false, err
	}
	return true, nil
}

func (a *App) applySettings() error {
	if err := a.saveSettings(); err != nil {
		return err
	}
	if a.ctx == nil {
		return nil // not started yet
	}
	return a.startNode()
}

// context returns the wails context, or Background before startup.
func (a *App) context() context.Context {
	if a.ctx != nil {
		return a.ctx
	}
	return context.Background()
}
