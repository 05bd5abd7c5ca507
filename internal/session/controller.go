package session

import (
	"context"
	"fmt"
	"sync"

	"github.com/gagliardetto/solana-go"

	"github.com/Klingon-tech/splwallet/internal/log"
	"github.com/Klingon-tech/splwallet/internal/token"
)

// Controller owns one wallet session. Operations run one at a time: while
// one is pending, the others return OperationInProgress. Disconnect is
// always allowed and ends the pending operation's claim on the state.
type Controller struct {
	locator  Locator
	ledger   LedgerClient
	decimals token.DecimalsPolicy

	mu        sync.Mutex
	provider  WalletProvider
	account   solana.PublicKey
	connected bool
	pending   bool
	lamports  uint64
	holdings  []token.Holding
	errMsg    string
	epoch     uint64 // bumped by Disconnect

	lmu       sync.Mutex
	listeners map[int]Listener
	nextID    int
}

// New creates a disconnected controller. A nil decimals policy scales every
// token by 9 decimals.
func New(locator Locator, ledger LedgerClient, decimals token.DecimalsPolicy) *Controller {
	if decimals == nil {
		decimals = token.FixedDecimals(9)
	}
	return &Controller{
		locator:   locator,
		ledger:    ledger,
		decimals:  decimals,
		holdings:  []token.Holding{},
		listeners: make(map[int]Listener),
	}
}

// Subscribe registers l for every future event and returns a function that
// removes it.
func (c *Controller) Subscribe(l Listener) func() {
	c.lmu.Lock()
	id := c.nextID
	c.nextID++
	c.listeners[id] = l
	c.lmu.Unlock()

	return func() {
		c.lmu.Lock()
		delete(c.listeners, id)
		c.lmu.Unlock()
	}
}

// State returns a snapshot of the controller.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Controller) snapshotLocked() State {
	s := State{
		Connected: c.connected,
		Pending:   c.pending,
		Lamports:  c.lamports,
		Balance:   token.FormatNative(c.lamports),
		Holdings:  append([]token.Holding{}, c.holdings...),
		Error:     c.errMsg,
	}
	if c.connected {
		s.Account = c.account.String()
	}
	return s
}

func (c *Controller) emit(ev Event) {
	c.lmu.Lock()
	ls := make([]Listener, 0, len(c.listeners))
	for _, l := range c.listeners {
		ls = append(ls, l)
	}
	c.lmu.Unlock()

	for _, l := range ls {
		l(ev)
	}
}

func (c *Controller) notify() {
	c.emit(Event{Type: StateChanged, State: c.State()})
}

func (c *Controller) acknowledge(ack *Acknowledgement) {
	log.Session.Info().Str("op", ack.Operation).Str("signature", ack.Signature).Msg(ack.Message)
	c.emit(Event{Type: Acknowledged, State: c.State(), Ack: ack})
}

// begin claims the pending flag. With needSession set it also fails fast
// when nothing is connected. With clearErr set the error slot is emptied
// in the same step, so observers never see the claim next to a stale error.
func (c *Controller) begin(op string, needSession, clearErr bool) (epoch uint64, owner solana.PublicKey, p WalletProvider, err error) {
	c.mu.Lock()
	if c.pending {
		c.mu.Unlock()
		log.Session.Debug().Str("op", op).Msg("Rejected, another operation is pending")
		return 0, owner, nil, &Error{Kind: OperationInProgress, Message: MsgInProgress}
	}
	if needSession && !c.connected {
		c.errMsg = MsgNotConnected
		c.mu.Unlock()
		log.Session.Warn().Str("op", op).Msg("Rejected, no wallet connected")
		c.notify()
		return 0, owner, nil, &Error{Kind: PreconditionNotConnected, Message: MsgNotConnected}
	}
	c.pending = true
	if clearErr {
		c.errMsg = ""
	}
	epoch, owner, p = c.epoch, c.account, c.provider
	c.mu.Unlock()

	log.Session.Debug().Str("op", op).Uint64("epoch", epoch).Msg("Operation started")
	c.notify()
	return epoch, owner, p, nil
}

// end releases the pending flag if the session is still the one that
// claimed it.
func (c *Controller) end(epoch uint64) {
	c.mu.Lock()
	if c.epoch == epoch {
		c.pending = false
	}
	c.mu.Unlock()
	c.notify()
}

// fail writes a failure to the error slot and releases the pending flag.
func (c *Controller) fail(epoch uint64, e *Error) error {
	c.mu.Lock()
	if c.epoch != epoch {
		c.mu.Unlock()
		return ErrSuperseded
	}
	c.errMsg = e.Message
	c.pending = false
	c.mu.Unlock()

	log.Session.Warn().Err(e.Err).Str("kind", e.Kind.String()).Msg(e.Message)
	c.notify()
	return e
}

// Connect locates the wallet provider, connects to it, and loads the
// account's balances. A balance or token read failure is reported but the
// session stays connected.
func (c *Controller) Connect(ctx context.Context) error {
	epoch, _, _, err := c.begin("connect", false, true)
	if err != nil {
		return err
	}

	var p WalletProvider
	if c.locator != nil {
		p = c.locator.Locate()
	}
	if p == nil {
		return c.failConnect(ctx, epoch, p, &Error{Kind: ProviderMissing, Message: MsgProviderMissing})
	}
	if !p.Has(RequiredCapability) {
		return c.failConnect(ctx, epoch, p, &Error{Kind: ProviderUnsupported, Message: MsgProviderUnsupported})
	}

	account, err := p.Connect(ctx)
	if err != nil {
		return c.failConnect(ctx, epoch, p, &Error{Kind: ConnectionRejected, Message: messageOr(err, MsgConnectFailed), Err: err})
	}

	c.mu.Lock()
	if c.epoch != epoch {
		c.mu.Unlock()
		p.Disconnect(ctx)
		return ErrSuperseded
	}
	if !c.connected || !c.account.Equals(account) {
		c.lamports = 0
		c.holdings = []token.Holding{}
	}
	c.provider = p
	c.account = account
	c.connected = true
	c.mu.Unlock()
	l := log.WithAccount(account.String())
	l.Info().Msg("Wallet session started")
	c.notify()

	balErr := c.refreshNative(ctx, epoch, account)
	tokErr := c.refreshTokens(ctx, epoch, account)
	c.end(epoch)

	if tokErr != nil {
		return tokErr
	}
	return balErr
}

// failConnect ends whatever session was active before the attempt, so a
// failed connect always leaves the controller disconnected, then records e.
func (c *Controller) failConnect(ctx context.Context, epoch uint64, attempted WalletProvider, e *Error) error {
	c.mu.Lock()
	if c.epoch != epoch {
		c.mu.Unlock()
		return ErrSuperseded
	}
	prev := c.provider
	wasConnected := c.connected
	c.provider = nil
	c.account = solana.PublicKey{}
	c.connected = false
	c.lamports = 0
	c.holdings = []token.Holding{}
	c.mu.Unlock()

	if prev != nil && prev != attempted {
		if err := prev.Disconnect(ctx); err != nil {
			log.Session.Debug().Err(err).Msg("Provider disconnect failed")
		}
	}
	if wasConnected {
		log.Session.Info().Msg("Previous wallet session ended by failed connect")
	}
	return c.fail(epoch, e)
}

// Disconnect ends the session. The provider is told best-effort; balances,
// holdings and the error slot are reset. Any operation still in flight has
// its results dropped.
func (c *Controller) Disconnect(ctx context.Context) {
	c.mu.Lock()
	p := c.provider
	if p == nil && c.locator != nil {
		p = c.locator.Locate()
	}
	wasConnected := c.connected
	c.epoch++
	c.provider = nil
	c.account = solana.PublicKey{}
	c.connected = false
	c.pending = false
	c.lamports = 0
	c.holdings = []token.Holding{}
	c.errMsg = ""
	c.mu.Unlock()

	if p != nil {
		if err := p.Disconnect(ctx); err != nil {
			log.Session.Debug().Err(err).Msg("Provider disconnect failed")
		}
	}
	if wasConnected {
		log.Session.Info().Msg("Wallet session ended")
	}
	c.notify()
}

// RefreshNativeBalance reloads the SOL balance of the connected account.
func (c *Controller) RefreshNativeBalance(ctx context.Context) error {
	epoch, owner, _, err := c.begin("refresh_balance", true, false)
	if err != nil {
		return err
	}
	defer c.end(epoch)
	return c.refreshNative(ctx, epoch, owner)
}

// RefreshTokenHoldings reloads the token accounts of the connected account.
func (c *Controller) RefreshTokenHoldings(ctx context.Context) error {
	epoch, owner, _, err := c.begin("refresh_tokens", true, false)
	if err != nil {
		return err
	}
	defer c.end(epoch)
	return c.refreshTokens(ctx, epoch, owner)
}

// Refresh reloads both balances. Each read fails independently; the error
// returned is the later one.
func (c *Controller) Refresh(ctx context.Context) error {
	epoch, owner, _, err := c.begin("refresh", true, false)
	if err != nil {
		return err
	}
	defer c.end(epoch)
	balErr := c.refreshNative(ctx, epoch, owner)
	if tokErr := c.refreshTokens(ctx, epoch, owner); tokErr != nil {
		return tokErr
	}
	return balErr
}

// refreshNative keeps the previous balance on failure.
func (c *Controller) refreshNative(ctx context.Context, epoch uint64, owner solana.PublicKey) error {
	lamports, err := c.ledger.GetNativeBalance(ctx, owner)

	c.mu.Lock()
	if c.epoch != epoch {
		c.mu.Unlock()
		return ErrSuperseded
	}
	if err != nil {
		c.errMsg = MsgBalanceFailed
		c.mu.Unlock()
		log.Session.Warn().Err(err).Str("account", owner.String()).Msg(MsgBalanceFailed)
		c.notify()
		return &Error{Kind: BalanceFetchFailed, Message: MsgBalanceFailed, Err: err}
	}
	c.lamports = lamports
	c.mu.Unlock()

	log.Session.Debug().Str("account", owner.String()).Uint64("lamports", lamports).Msg("Balance refreshed")
	c.notify()
	return nil
}

// refreshTokens replaces the holdings wholesale on success and keeps the
// previous set on failure.
func (c *Controller) refreshTokens(ctx context.Context, epoch uint64, owner solana.PublicKey) error {
	holdings, err := c.ledger.ListTokenAccounts(ctx, owner)

	c.mu.Lock()
	if c.epoch != epoch {
		c.mu.Unlock()
		return ErrSuperseded
	}
	if err != nil {
		c.errMsg = MsgTokensFailed
		c.mu.Unlock()
		log.Session.Warn().Err(err).Str("account", owner.String()).Msg(MsgTokensFailed)
		c.notify()
		return &Error{Kind: TokenFetchFailed, Message: MsgTokensFailed, Err: err}
	}
	if holdings == nil {
		holdings = []token.Holding{}
	}
	c.holdings = holdings
	c.mu.Unlock()

	log.Session.Debug().Str("account", owner.String()).Int("holdings", len(holdings)).Msg("Token holdings refreshed")
	c.notify()
	return nil
}

// scale resolves the mint's decimals and converts amount to base units.
func (c *Controller) scale(ctx context.Context, mint solana.PublicKey, amount string) (uint64, error) {
	decimals, err := c.decimals.Decimals(ctx, mint)
	if err != nil {
		return 0, err
	}
	return token.ParseAmount(amount, decimals)
}

func parseAddress(what, s string) (solana.PublicKey, error) {
	pk, err := solana.PublicKeyFromBase58(s)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("invalid %s address %q", what, s)
	}
	return pk, nil
}

// succeed clears the error slot after a confirmed write.
func (c *Controller) succeed(epoch uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.epoch != epoch {
		return false
	}
	c.errMsg = ""
	return true
}

// SubmitMint mints amount tokens of mint into the connected account's
// associated token account, creating it when needed, then reloads the
// holdings.
func (c *Controller) SubmitMint(ctx context.Context, mint, amount string) (*Acknowledgement, error) {
	epoch, owner, p, err := c.begin("mint", true, false)
	if err != nil {
		return nil, err
	}
	rejected := func(err error) error {
		return c.fail(epoch, &Error{Kind: OperationRejected, Message: messageOr(err, MsgMintFailed), Err: err})
	}

	mintKey, err := parseAddress("mint", mint)
	if err != nil {
		return nil, rejected(err)
	}
	units, err := c.scale(ctx, mintKey, amount)
	if err != nil {
		return nil, rejected(err)
	}
	dest, err := c.ledger.ResolveOrCreateTokenAccount(ctx, p, mintKey, owner)
	if err != nil {
		return nil, rejected(err)
	}
	sig, err := c.ledger.Mint(ctx, p, mintKey, dest, units)
	if err != nil {
		return nil, rejected(err)
	}
	if !c.succeed(epoch) {
		return nil, ErrSuperseded
	}

	ack := &Acknowledgement{
		Operation: "mint",
		Message:   fmt.Sprintf("Minted %s tokens to %s", amount, dest),
		Signature: sig.String(),
		Account:   dest.String(),
	}
	c.acknowledge(ack)

	c.refreshTokens(ctx, epoch, owner)
	c.end(epoch)
	return ack, nil
}

// SubmitTransfer sends amount tokens of mint from the connected account's
// associated token account to the recipient's, creating the recipient's
// account when needed. The sender's account is never created.
func (c *Controller) SubmitTransfer(ctx context.Context, mint, recipient, amount string) (*Acknowledgement, error) {
	epoch, owner, p, err := c.begin("transfer", true, false)
	if err != nil {
		return nil, err
	}
	rejected := func(err error) error {
		return c.fail(epoch, &Error{Kind: OperationRejected, Message: messageOr(err, MsgTransferFailed), Err: err})
	}

	mintKey, err := parseAddress("mint", mint)
	if err != nil {
		return nil, rejected(err)
	}
	recipientKey, err := parseAddress("recipient", recipient)
	if err != nil {
		return nil, rejected(err)
	}
	units, err := c.scale(ctx, mintKey, amount)
	if err != nil {
		return nil, rejected(err)
	}
	source, err := c.ledger.ResolveTokenAccountAddress(mintKey, owner)
	if err != nil {
		return nil, rejected(err)
	}
	dest, err := c.ledger.ResolveOrCreateTokenAccount(ctx, p, mintKey, recipientKey)
	if err != nil {
		return nil, rejected(err)
	}
	sig, err := c.ledger.Transfer(ctx, p, source, dest, units)
	if err != nil {
		return nil, rejected(err)
	}
	if !c.succeed(epoch) {
		return nil, ErrSuperseded
	}

	ack := &Acknowledgement{
		Operation: "transfer",
		Message:   fmt.Sprintf("Transferred %s tokens to %s", amount, recipient),
		Signature: sig.String(),
		Account:   dest.String(),
	}
	c.acknowledge(ack)

	c.refreshTokens(ctx, epoch, owner)
	c.end(epoch)
	return ack, nil
}
