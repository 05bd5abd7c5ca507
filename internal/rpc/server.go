// Package rpc implements the daemon's JSON-RPC 2.0 API server and its
// websocket event feed.
package rpc

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/Klingon-tech/splwallet/config"
	klog "github.com/Klingon-tech/splwallet/internal/log"
	"github.com/Klingon-tech/splwallet/internal/session"
	"github.com/Klingon-tech/splwallet/internal/token"
	"github.com/Klingon-tech/splwallet/internal/wallet"
)

// maxBodySize is the maximum allowed request body size (1 MB).
const maxBodySize = 1 << 20

// Server is the JSON-RPC 2.0 HTTP server.
type Server struct {
	addr        string
	session     *session.Controller
	keystore    *wallet.Keystore    // For wallet RPC (nil = disabled).
	injector    *wallet.Injector    // Provider slot the session locates.
	account     uint32              // Default derivation account for wallet_unlock.
	tokenStore  *token.Store        // For token_list / token_clearCache (nil = disabled).
	decimals    token.DecimalsPolicy
	hub         *hub
	unsubscribe func()
	server      *http.Server
	logger      zerolog.Logger
	ln          net.Listener
	allowedNets []*net.IPNet // Empty = allow all.
	corsOrigins []string     // Empty = no CORS headers.

	mu       sync.Mutex
	unlocked *wallet.KeystoreProvider
}

// New creates a new RPC server for ctrl. The rpcCfg parameter controls IP
// filtering and CORS. A zero-value RPCConfig allows all IPs and disables CORS.
func New(addr string, ctrl *session.Controller, rpcCfg ...config.RPCConfig) *Server {
	s := &Server{
		addr:    addr,
		session: ctrl,
		hub:     newHub(),
		logger:  klog.WithComponent("rpc"),
	}

	if len(rpcCfg) > 0 {
		s.allowedNets = parseAllowedIPs(rpcCfg[0].AllowedIPs)
		s.corsOrigins = rpcCfg[0].CORSOrigins
	}

	s.unsubscribe = ctrl.Subscribe(s.hub.broadcast)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWS)
	mux.HandleFunc("/", s.handleRequest)

	s.server = &http.Server{
		Handler:     mux,
		ReadTimeout: 30 * time.Second,
		// A mint may wait for two confirmations (account create, then mint).
		WriteTimeout: 5 * time.Minute,
	}

	return s
}

// parseAllowedIPs converts string IP/CIDR entries into net.IPNet.
func parseAllowedIPs(entries []string) []*net.IPNet {
	var nets []*net.IPNet
	for _, entry := range entries {
		_, ipNet, err := net.ParseCIDR(entry)
		if err == nil {
			nets = append(nets, ipNet)
			continue
		}
		// Try as a single IP (add /32 or /128).
		ip := net.ParseIP(entry)
		if ip == nil {
			continue
		}
		bits := 32
		if ip.To4() == nil {
			bits = 128
		}
		nets = append(nets, &net.IPNet{IP: ip, Mask: net.CIDRMask(bits, bits)})
	}
	return nets
}

// Start begins listening and serving in a background goroutine.
// It returns immediately after the listener is bound.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("rpc listen: %w", err)
	}
	s.ln = ln

	go func() {
		if err := s.server.Serve(ln); err != nil && err != http.ErrServerClosed {
			s.logger.Error().Err(err).Msg("RPC server error")
		}
	}()

	return nil
}

// Addr returns the listener address (useful when bound to :0).
func (s *Server) Addr() string {
	if s.ln != nil {
		return s.ln.Addr().String()
	}
	return s.addr
}

// Stop gracefully shuts down the server and closes websocket clients.
// An unlocked wallet is locked first.
func (s *Server) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	s.unsubscribe()
	s.lockWallet(ctx)
	s.hub.close()
	return s.server.Shutdown(ctx)
}

// SetWallet enables the wallet_* endpoints. Unlocked wallets are injected
// into inj, which is the locator the session controller was built with.
func (s *Server) SetWallet(ks *wallet.Keystore, inj *wallet.Injector, account uint32) {
	s.keystore = ks
	s.injector = inj
	s.account = account
}

// SetTokenStore sets the token metadata store for token_list and
// token_clearCache.
func (s *Server) SetTokenStore(ts *token.Store) {
	s.tokenStore = ts
}

// SetDecimals sets the policy token_decimals reports from.
func (s *Server) SetDecimals(p token.DecimalsPolicy) {
	s.decimals = p
}

// handleRequest is the main HTTP handler for JSON-RPC requests.
func (s *Server) handleRequest(w http.ResponseWriter, r *http.Request) {
	if !s.checkIP(w, r) {
		return
	}

	// CORS headers.
	s.setCORSHeaders(w, r)

	// Handle CORS preflight.
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	if r.Method != http.MethodPost {
		writeError(w, nil, CodeInvalidRequest, "only POST method is allowed")
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize+1))
	if err != nil {
		writeError(w, nil, CodeParseError, "failed to read request body")
		return
	}
	if len(body) > maxBodySize {
		writeError(w, nil, CodeInvalidRequest, "request body too large")
		return
	}

	var req Request
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, nil, CodeParseError, "invalid JSON")
		return
	}

	if req.JSONRPC != "2.0" {
		writeError(w, req.ID, CodeInvalidRequest, "jsonrpc must be \"2.0\"")
		return
	}

	s.logger.Debug().Str("method", req.Method).Msg("RPC call")

	result, rpcErr := s.dispatch(r.Context(), &req)
	if rpcErr != nil {
		writeJSON(w, Response{
			JSONRPC: "2.0",
			Error:   rpcErr,
			ID:      req.ID,
		})
		return
	}

	writeJSON(w, Response{
		JSONRPC: "2.0",
		Result:  result,
		ID:      req.ID,
	})
}

// dispatch routes a request to the appropriate handler.
func (s *Server) dispatch(ctx context.Context, req *Request) (interface{}, *Error) {
	switch req.Method {
	case "session_getState":
		return s.handleSessionGetState(req)
	case "session_connect":
		return s.handleSessionConnect(ctx, req)
	case "session_disconnect":
		return s.handleSessionDisconnect(ctx, req)
	case "session_refresh":
		return s.handleSessionRefresh(ctx, req)
	case "token_mint":
		return s.handleTokenMint(ctx, req)
	case "token_transfer":
		return s.handleTokenTransfer(ctx, req)
	case "token_decimals":
		return s.handleTokenDecimals(ctx, req)
	case "token_list":
		return s.handleTokenList(req)
	case "token_forget":
		return s.handleTokenForget(req)
	case "token_clearCache":
		return s.handleTokenClearCache(req)
	case "wallet_create":
		return s.handleWalletCreate(req)
	case "wallet_import":
		return s.handleWalletImport(req)
	case "wallet_list":
		return s.handleWalletList(req)
	case "wallet_accounts":
		return s.handleWalletAccounts(req)
	case "wallet_unlock":
		return s.handleWalletUnlock(ctx, req)
	case "wallet_lock":
		return s.handleWalletLock(ctx, req)
	default:
		return nil, &Error{Code: CodeMethodNotFound, Message: fmt.Sprintf("method %q not found", req.Method)}
	}
}

// writeJSON writes a JSON-RPC response.
func writeJSON(w http.ResponseWriter, resp Response) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// writeError writes a JSON-RPC error response.
func writeError(w http.ResponseWriter, id interface{}, code int, message string) {
	writeJSON(w, Response{
		JSONRPC: "2.0",
		Error:   &Error{Code: code, Message: message},
		ID:      id,
	})
}

// checkIP rejects requests from outside the allow-list. It reports whether
// the request may proceed.
func (s *Server) checkIP(w http.ResponseWriter, r *http.Request) bool {
	if len(s.allowedNets) == 0 {
		return true
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		http.Error(w, "forbidden", http.StatusForbidden)
		return false
	}
	ip := net.ParseIP(host)
	if ip == nil || !s.isIPAllowed(ip) {
		http.Error(w, "forbidden", http.StatusForbidden)
		return false
	}
	return true
}

// isIPAllowed checks if the IP is in the allowed networks list.
func (s *Server) isIPAllowed(ip net.IP) bool {
	for _, n := range s.allowedNets {
		if n.Contains(ip) {
			return true
		}
	}
	return false
}

// originAllowed reports whether origin matches the CORS list.
func (s *Server) originAllowed(origin string) bool {
	for _, o := range s.corsOrigins {
		if o == "*" || o == origin {
			return true
		}
	}
	return false
}

// setCORSHeaders adds CORS headers based on the configured origins.
func (s *Server) setCORSHeaders(w http.ResponseWriter, r *http.Request) {
	if len(s.corsOrigins) == 0 {
		return
	}

	origin := r.Header.Get("Origin")
	if origin == "" {
		return
	}

	// Check if origin is allowed.
	allowed := false
	for _, o := range s.corsOrigins {
		if o == "*" {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			allowed = true
			break
		}
		if o == origin {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			allowed = true
			break
		}
	}

	if allowed {
		w.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
	}
}

// parseParams unmarshals the request params into the given target.
func parseParams(req *Request, target interface{}) *Error {
	if req.Params == nil {
		return &Error{Code: CodeInvalidParams, Message: "params required"}
	}

	data, err := json.Marshal(req.Params)
	if err != nil {
		return &Error{Code: CodeInvalidParams, Message: "invalid params"}
	}

	if err := json.Unmarshal(data, target); err != nil {
		return &Error{Code: CodeInvalidParams, Message: fmt.Sprintf("invalid params: %v", err)}
	}
	return nil
}
