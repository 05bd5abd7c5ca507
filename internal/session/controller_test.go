package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"

	"github.com/Klingon-tech/splwallet/internal/ledger"
	"github.com/Klingon-tech/splwallet/internal/token"
)

type fakeProvider struct {
	caps          map[string]bool
	account       solana.PublicKey
	connectErr    error
	disconnectErr error
	disconnects   int
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{
		caps:    map[string]bool{RequiredCapability: true},
		account: solana.NewWallet().PublicKey(),
	}
}

func (p *fakeProvider) Has(c string) bool { return p.caps[c] }

func (p *fakeProvider) Connect(context.Context) (solana.PublicKey, error) {
	if p.connectErr != nil {
		return solana.PublicKey{}, p.connectErr
	}
	return p.account, nil
}

func (p *fakeProvider) Disconnect(context.Context) error {
	p.disconnects++
	return p.disconnectErr
}

func (p *fakeProvider) PublicKey() solana.PublicKey { return p.account }

func (p *fakeProvider) SignTransaction(context.Context, *solana.Transaction) error { return nil }

type mintCall struct {
	mint, dest solana.PublicKey
	amount     uint64
}

type fakeLedger struct {
	mu sync.Mutex

	calls       []string
	balance     uint64
	balanceErr  error
	holdings    []token.Holding
	holdingsErr error
	existing    map[solana.PublicKey]bool
	createErr   error
	mintErr     error
	transferErr error
	mints       []mintCall
	transfers   []mintCall

	// When set, GetNativeBalance signals entered and waits for release.
	entered chan struct{}
	release chan struct{}
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{existing: make(map[solana.PublicKey]bool)}
}

func (l *fakeLedger) record(name string) {
	l.mu.Lock()
	l.calls = append(l.calls, name)
	l.mu.Unlock()
}

func (l *fakeLedger) count(name string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, c := range l.calls {
		if c == name {
			n++
		}
	}
	return n
}

func (l *fakeLedger) total() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.calls)
}

func (l *fakeLedger) GetNativeBalance(context.Context, solana.PublicKey) (uint64, error) {
	l.record("balance")
	if l.entered != nil {
		l.entered <- struct{}{}
		<-l.release
	}
	return l.balance, l.balanceErr
}

func (l *fakeLedger) ListTokenAccounts(context.Context, solana.PublicKey) ([]token.Holding, error) {
	l.record("tokens")
	if l.holdingsErr != nil {
		return nil, l.holdingsErr
	}
	return append([]token.Holding{}, l.holdings...), nil
}

func (l *fakeLedger) ResolveTokenAccountAddress(mint, owner solana.PublicKey) (solana.PublicKey, error) {
	l.record("resolve")
	ata, _, err := solana.FindAssociatedTokenAddress(owner, mint)
	return ata, err
}

func (l *fakeLedger) ResolveOrCreateTokenAccount(_ context.Context, _ ledger.Signer, mint, owner solana.PublicKey) (solana.PublicKey, error) {
	l.record("resolveOrCreate")
	if l.createErr != nil {
		return solana.PublicKey{}, l.createErr
	}
	ata, _, _ := solana.FindAssociatedTokenAddress(owner, mint)
	l.existing[ata] = true
	return ata, nil
}

func (l *fakeLedger) Mint(_ context.Context, _ ledger.Signer, mint, dest solana.PublicKey, amount uint64) (solana.Signature, error) {
	l.record("mint")
	if l.mintErr != nil {
		return solana.Signature{}, l.mintErr
	}
	l.mints = append(l.mints, mintCall{mint, dest, amount})
	return solana.Signature{1}, nil
}

func (l *fakeLedger) Transfer(_ context.Context, _ ledger.Signer, source, dest solana.PublicKey, amount uint64) (solana.Signature, error) {
	l.record("transfer")
	if !l.existing[source] {
		return solana.Signature{}, fmt.Errorf("%w: %s", ledger.ErrTokenAccountNotFound, source)
	}
	if l.transferErr != nil {
		return solana.Signature{}, l.transferErr
	}
	l.transfers = append(l.transfers, mintCall{source, dest, amount})
	return solana.Signature{2}, nil
}

func newTestController(p WalletProvider, l *fakeLedger) *Controller {
	loc := LocatorFunc(func() WalletProvider { return p })
	return New(loc, l, nil)
}

func connected(t *testing.T, l *fakeLedger) (*Controller, *fakeProvider) {
	t.Helper()
	p := newFakeProvider()
	c := newTestController(p, l)
	if err := c.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	return c, p
}

type recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *recorder) listen(ev Event) {
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()
}

func (r *recorder) acks() []*Acknowledgement {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*Acknowledgement
	for _, ev := range r.events {
		if ev.Type == Acknowledged {
			out = append(out, ev.Ack)
		}
	}
	return out
}

func TestConnect_Success(t *testing.T) {
	l := newFakeLedger()
	l.balance = 2_000_000_000
	l.holdings = []token.Holding{{Mint: "MintA", UIAmount: "1"}}
	c, p := connected(t, l)

	s := c.State()
	if !s.Connected || s.Account != p.account.String() {
		t.Errorf("state = %+v", s)
	}
	// Scenario: 2_000_000_000 lamports displays as 2.0000.
	if s.Balance != "2.0000" || s.Lamports != 2_000_000_000 {
		t.Errorf("balance = %q (%d)", s.Balance, s.Lamports)
	}
	if len(s.Holdings) != 1 || s.Holdings[0].Mint != "MintA" {
		t.Errorf("holdings = %+v", s.Holdings)
	}
	if s.Pending || s.Error != "" {
		t.Errorf("pending=%v error=%q", s.Pending, s.Error)
	}
}

func TestConnect_FailureModes(t *testing.T) {
	unsupported := newFakeProvider()
	unsupported.caps = map[string]bool{"standard:connect": true}

	rejecting := newFakeProvider()
	rejecting.connectErr = errors.New("User rejected the request.")

	silent := newFakeProvider()
	silent.connectErr = errors.New("")

	tests := []struct {
		name     string
		provider WalletProvider
		kind     Kind
		msg      string
	}{
		{"no provider", nil, ProviderMissing, MsgProviderMissing},
		{"missing capability", unsupported, ProviderUnsupported, MsgProviderUnsupported},
		{"rejected", rejecting, ConnectionRejected, "User rejected the request."},
		{"rejected without message", silent, ConnectionRejected, MsgConnectFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := newFakeLedger()
			var loc Locator = LocatorFunc(func() WalletProvider { return tt.provider })
			c := New(loc, l, nil)

			err := c.Connect(context.Background())
			if KindOf(err) != tt.kind {
				t.Fatalf("kind = %v, want %v (err %v)", KindOf(err), tt.kind, err)
			}
			s := c.State()
			if s.Error != tt.msg {
				t.Errorf("error = %q, want %q", s.Error, tt.msg)
			}
			if s.Connected || s.Account != "" || s.Pending {
				t.Errorf("partial state after failed connect: %+v", s)
			}
			if l.total() != 0 {
				t.Errorf("ledger called %d times", l.total())
			}
		})
	}
}

func TestConnect_NilLocator(t *testing.T) {
	c := New(nil, newFakeLedger(), nil)
	if err := c.Connect(context.Background()); KindOf(err) != ProviderMissing {
		t.Fatalf("err = %v", err)
	}
}

func TestConnect_ClearsPriorError(t *testing.T) {
	l := newFakeLedger()
	p := newFakeProvider()
	c := newTestController(p, l)

	c.SubmitMint(context.Background(), "x", "1")
	if c.State().Error != MsgNotConnected {
		t.Fatalf("setup: error = %q", c.State().Error)
	}
	if err := c.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if e := c.State().Error; e != "" {
		t.Errorf("error after connect = %q", e)
	}
}

func TestConnect_ClearsErrorWithPendingClaim(t *testing.T) {
	l := newFakeLedger()
	c := newTestController(newFakeProvider(), l)
	c.SubmitMint(context.Background(), "x", "1")

	rec := &recorder{}
	c.Subscribe(rec.listen)
	if err := c.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()
	for i, ev := range rec.events {
		if ev.State.Pending && ev.State.Error != "" {
			t.Errorf("event %d: pending with stale error %q", i, ev.State.Error)
		}
	}
}

func TestConnect_NewAccountDropsPreviousBalances(t *testing.T) {
	l := newFakeLedger()
	l.balance = 3_000_000_000
	l.holdings = []token.Holding{{Mint: "A", UIAmount: "7"}}
	c, p := connected(t, l)

	p.account = solana.NewWallet().PublicKey()
	l.balanceErr = errors.New("timeout")
	l.holdingsErr = errors.New("timeout")
	if err := c.Connect(context.Background()); KindOf(err) != TokenFetchFailed {
		t.Fatalf("err = %v", err)
	}
	s := c.State()
	if s.Account != p.account.String() || !s.Connected {
		t.Fatalf("state = %+v", s)
	}
	if s.Lamports != 0 || len(s.Holdings) != 0 {
		t.Errorf("previous account's balances shown: lamports=%d holdings=%+v", s.Lamports, s.Holdings)
	}
}

func TestConnect_SameAccountKeepsBalancesOnRefreshFailure(t *testing.T) {
	l := newFakeLedger()
	l.balance = 3_000_000_000
	c, _ := connected(t, l)

	l.balanceErr = errors.New("timeout")
	c.Connect(context.Background())
	if s := c.State(); s.Lamports != 3_000_000_000 {
		t.Errorf("lamports = %d, want stale value kept", s.Lamports)
	}
}

func TestConnect_FailedReconnectEndsSession(t *testing.T) {
	l := newFakeLedger()
	l.balance = 3_000_000_000
	l.holdings = []token.Holding{{Mint: "A"}}
	c, p := connected(t, l)

	p.connectErr = errors.New("User rejected the request.")
	if err := c.Connect(context.Background()); KindOf(err) != ConnectionRejected {
		t.Fatalf("err = %v", err)
	}
	s := c.State()
	if s.Connected || s.Account != "" || s.Lamports != 0 || len(s.Holdings) != 0 {
		t.Errorf("partial state after failed reconnect: %+v", s)
	}
	if s.Error != "User rejected the request." {
		t.Errorf("error = %q", s.Error)
	}
	if _, err := c.SubmitMint(context.Background(), "x", "1"); KindOf(err) != PreconditionNotConnected {
		t.Errorf("mint after failed reconnect: %v", err)
	}
}

func TestConnect_TokenFailureKeepsSession(t *testing.T) {
	l := newFakeLedger()
	l.balance = 1_000_000_000
	l.holdingsErr = errors.New("rpc down")
	p := newFakeProvider()
	c := newTestController(p, l)

	err := c.Connect(context.Background())
	if KindOf(err) != TokenFetchFailed {
		t.Fatalf("kind = %v", KindOf(err))
	}
	s := c.State()
	if !s.Connected || s.Account != p.account.String() {
		t.Errorf("session rolled back: %+v", s)
	}
	if s.Error != MsgTokensFailed {
		t.Errorf("error = %q", s.Error)
	}
	if s.Balance != "1.0000" {
		t.Errorf("balance = %q", s.Balance)
	}
}

func TestConnect_LaterErrorOverwrites(t *testing.T) {
	l := newFakeLedger()
	l.balanceErr = errors.New("a")
	l.holdingsErr = errors.New("b")
	c := newTestController(newFakeProvider(), l)

	c.Connect(context.Background())
	if e := c.State().Error; e != MsgTokensFailed {
		t.Errorf("error = %q, want %q", e, MsgTokensFailed)
	}
}

func TestRefresh_FailureKeepsStaleValues(t *testing.T) {
	l := newFakeLedger()
	l.balance = 5
	l.holdings = []token.Holding{{Mint: "A"}}
	c, _ := connected(t, l)

	l.balanceErr = errors.New("timeout")
	if err := c.RefreshNativeBalance(context.Background()); KindOf(err) != BalanceFetchFailed {
		t.Fatalf("err = %v", err)
	}
	l.holdingsErr = errors.New("timeout")
	if err := c.RefreshTokenHoldings(context.Background()); KindOf(err) != TokenFetchFailed {
		t.Fatalf("err = %v", err)
	}

	s := c.State()
	if s.Lamports != 5 {
		t.Errorf("lamports = %d, want stale 5", s.Lamports)
	}
	if len(s.Holdings) != 1 || s.Holdings[0].Mint != "A" {
		t.Errorf("holdings = %+v, want stale", s.Holdings)
	}
	if !s.Connected {
		t.Error("refresh failure ended the session")
	}
}

func TestRefresh_ReplacesHoldingsWholesale(t *testing.T) {
	l := newFakeLedger()
	l.holdings = []token.Holding{{Mint: "A", UIAmount: "1"}, {Mint: "B", UIAmount: "2"}}
	c, _ := connected(t, l)

	l.holdings = []token.Holding{{Mint: "C", UIAmount: "3"}, {Mint: "A", UIAmount: "9"}}
	if err := c.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	got := c.State().Holdings
	if len(got) != 2 || got[0] != l.holdings[0] || got[1] != l.holdings[1] {
		t.Errorf("holdings = %+v, want %+v", got, l.holdings)
	}

	l.holdings = nil
	c.RefreshTokenHoldings(context.Background())
	if got := c.State().Holdings; got == nil || len(got) != 0 {
		t.Errorf("holdings = %#v, want empty", got)
	}
}

func TestRefresh_NotConnected(t *testing.T) {
	l := newFakeLedger()
	c := newTestController(newFakeProvider(), l)
	for name, fn := range map[string]func(context.Context) error{
		"balance": c.RefreshNativeBalance,
		"tokens":  c.RefreshTokenHoldings,
		"both":    c.Refresh,
	} {
		if err := fn(context.Background()); KindOf(err) != PreconditionNotConnected {
			t.Errorf("%s: err = %v", name, err)
		}
	}
	if l.total() != 0 {
		t.Errorf("ledger called %d times", l.total())
	}
}

func TestDisconnect_ResetsEverything(t *testing.T) {
	l := newFakeLedger()
	l.balance = 7
	l.holdings = []token.Holding{{Mint: "A"}}
	l.holdingsErr = nil
	c, p := connected(t, l)

	l.balanceErr = errors.New("x")
	c.RefreshNativeBalance(context.Background())
	p.disconnectErr = errors.New("provider gone")

	c.Disconnect(context.Background())
	s := c.State()
	if s.Connected || s.Account != "" || s.Lamports != 0 || s.Balance != "0.0000" || len(s.Holdings) != 0 || s.Error != "" || s.Pending {
		t.Errorf("state after disconnect = %+v", s)
	}
	if p.disconnects != 1 {
		t.Errorf("provider disconnects = %d, want 1", p.disconnects)
	}

	// Disconnecting again is harmless and still tells the injected provider.
	c.Disconnect(context.Background())
	if s := c.State(); s.Connected || s.Error != "" {
		t.Errorf("state = %+v", s)
	}
}

func TestDisconnect_WithoutProvider(t *testing.T) {
	c := New(LocatorFunc(func() WalletProvider { return nil }), newFakeLedger(), nil)
	c.Disconnect(context.Background())
	if s := c.State(); s.Connected || s.Holdings == nil {
		t.Errorf("state = %+v", s)
	}
}

func TestWrites_NotConnected(t *testing.T) {
	l := newFakeLedger()
	c := newTestController(newFakeProvider(), l)
	mint := solana.NewWallet().PublicKey().String()
	to := solana.NewWallet().PublicKey().String()

	if _, err := c.SubmitMint(context.Background(), mint, "5"); KindOf(err) != PreconditionNotConnected {
		t.Errorf("mint err = %v", err)
	}
	if e := c.State().Error; e != MsgNotConnected {
		t.Errorf("error = %q", e)
	}
	if _, err := c.SubmitTransfer(context.Background(), mint, to, "5"); KindOf(err) != PreconditionNotConnected {
		t.Errorf("transfer err = %v", err)
	}
	if l.total() != 0 {
		t.Errorf("ledger called %d times: %v", l.total(), l.calls)
	}
}

func TestSubmitMint_Success(t *testing.T) {
	l := newFakeLedger()
	c, p := connected(t, l)
	rec := &recorder{}
	c.Subscribe(rec.listen)
	mint := solana.NewWallet().PublicKey()
	before := l.count("tokens")

	ack, err := c.SubmitMint(context.Background(), mint.String(), "5")
	if err != nil {
		t.Fatalf("SubmitMint: %v", err)
	}
	if len(l.mints) != 1 || l.mints[0].amount != 5_000_000_000 {
		t.Fatalf("mints = %+v, want one of 5000000000", l.mints)
	}
	wantDest, _, _ := solana.FindAssociatedTokenAddress(p.account, mint)
	if !l.mints[0].dest.Equals(wantDest) {
		t.Errorf("dest = %s, want %s", l.mints[0].dest, wantDest)
	}
	if l.count("tokens") != before+1 {
		t.Errorf("token refresh count = %d, want %d", l.count("tokens"), before+1)
	}
	if ack.Message != fmt.Sprintf("Minted 5 tokens to %s", wantDest) {
		t.Errorf("ack = %q", ack.Message)
	}
	if acks := rec.acks(); len(acks) != 1 || acks[0].Operation != "mint" {
		t.Errorf("acks = %+v", acks)
	}
	if s := c.State(); s.Pending || s.Error != "" {
		t.Errorf("state = %+v", s)
	}
}

func TestSubmitMint_Rejected(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"with message", errors.New("owner does not match"), "owner does not match"},
		{"without message", errors.New(""), MsgMintFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := newFakeLedger()
			c, _ := connected(t, l)
			rec := &recorder{}
			c.Subscribe(rec.listen)
			l.mintErr = tt.err
			before := l.count("tokens")

			_, err := c.SubmitMint(context.Background(), solana.NewWallet().PublicKey().String(), "5")
			if KindOf(err) != OperationRejected {
				t.Fatalf("kind = %v", KindOf(err))
			}
			if !errors.Is(err, tt.err) {
				t.Error("cause not wrapped")
			}
			if e := c.State().Error; e != tt.want {
				t.Errorf("error = %q, want %q", e, tt.want)
			}
			if l.count("tokens") != before {
				t.Error("holdings refreshed after a rejected mint")
			}
			if len(rec.acks()) != 0 {
				t.Error("acknowledged a rejected mint")
			}
		})
	}
}

func TestSubmitMint_BadInput(t *testing.T) {
	l := newFakeLedger()
	c, _ := connected(t, l)

	if _, err := c.SubmitMint(context.Background(), "not-a-key", "5"); KindOf(err) != OperationRejected {
		t.Errorf("bad mint: %v", err)
	}
	if _, err := c.SubmitMint(context.Background(), solana.NewWallet().PublicKey().String(), "-1"); KindOf(err) != OperationRejected {
		t.Errorf("bad amount: %v", err)
	}
	if e := c.State().Error; e != token.ErrNegativeAmount.Error() {
		t.Errorf("error = %q", e)
	}
	if l.count("mint") != 0 || l.count("resolveOrCreate") != 0 {
		t.Errorf("ledger writes attempted: %v", l.calls)
	}
}

type sixDecimals struct{}

func (sixDecimals) Decimals(context.Context, solana.PublicKey) (uint8, error) { return 6, nil }

func TestSubmitMint_DecimalsPolicy(t *testing.T) {
	l := newFakeLedger()
	p := newFakeProvider()
	c := New(LocatorFunc(func() WalletProvider { return p }), l, sixDecimals{})
	if err := c.Connect(context.Background()); err != nil {
		t.Fatal(err)
	}
	if _, err := c.SubmitMint(context.Background(), solana.NewWallet().PublicKey().String(), "5"); err != nil {
		t.Fatal(err)
	}
	if l.mints[0].amount != 5_000_000 {
		t.Errorf("amount = %d, want 5000000", l.mints[0].amount)
	}
}

func TestSubmitTransfer_Success(t *testing.T) {
	l := newFakeLedger()
	c, p := connected(t, l)
	mint := solana.NewWallet().PublicKey()
	recipient := solana.NewWallet().PublicKey()
	source, _, _ := solana.FindAssociatedTokenAddress(p.account, mint)
	l.existing[source] = true
	before := l.count("tokens")

	ack, err := c.SubmitTransfer(context.Background(), mint.String(), recipient.String(), "1.5")
	if err != nil {
		t.Fatalf("SubmitTransfer: %v", err)
	}
	wantDest, _, _ := solana.FindAssociatedTokenAddress(recipient, mint)
	if len(l.transfers) != 1 {
		t.Fatalf("transfers = %+v", l.transfers)
	}
	tr := l.transfers[0]
	if !tr.mint.Equals(source) || !tr.dest.Equals(wantDest) || tr.amount != 1_500_000_000 {
		t.Errorf("transfer = %+v", tr)
	}
	if ack.Message != fmt.Sprintf("Transferred 1.5 tokens to %s", recipient) {
		t.Errorf("ack = %q", ack.Message)
	}
	if l.count("tokens") != before+1 {
		t.Error("sender holdings not refreshed")
	}
}

func TestSubmitTransfer_SenderAccountMissing(t *testing.T) {
	l := newFakeLedger()
	c, _ := connected(t, l)
	before := l.count("tokens")

	_, err := c.SubmitTransfer(context.Background(),
		solana.NewWallet().PublicKey().String(),
		solana.NewWallet().PublicKey().String(), "1")
	if KindOf(err) != OperationRejected {
		t.Fatalf("kind = %v (%v)", KindOf(err), err)
	}
	if !errors.Is(err, ledger.ErrTokenAccountNotFound) {
		t.Errorf("err = %v, want token account not found", err)
	}
	if l.count("resolveOrCreate") != 1 {
		t.Errorf("recipient resolve count = %d, want 1", l.count("resolveOrCreate"))
	}
	if len(l.transfers) != 0 {
		t.Error("transfer recorded")
	}
	if l.count("tokens") != before {
		t.Error("holdings refreshed after a failed transfer")
	}
	if c.State().Error == "" {
		t.Error("error slot empty")
	}
}

func TestSubmitTransfer_FallbackMessage(t *testing.T) {
	l := newFakeLedger()
	l.createErr = errors.New("")
	c, _ := connected(t, l)
	_, err := c.SubmitTransfer(context.Background(),
		solana.NewWallet().PublicKey().String(),
		solana.NewWallet().PublicKey().String(), "1")
	if err == nil || c.State().Error != MsgTransferFailed {
		t.Fatalf("err = %v, slot = %q", err, c.State().Error)
	}
}

func TestSubmitTransfer_BadRecipient(t *testing.T) {
	l := newFakeLedger()
	c, _ := connected(t, l)
	_, err := c.SubmitTransfer(context.Background(), solana.NewWallet().PublicKey().String(), "nope", "1")
	if KindOf(err) != OperationRejected {
		t.Fatalf("err = %v", err)
	}
	if l.count("resolveOrCreate") != 0 {
		t.Error("ledger called with a bad recipient")
	}
}

func TestGuard_RejectsReentrantOperations(t *testing.T) {
	l := newFakeLedger()
	l.entered = make(chan struct{})
	l.release = make(chan struct{})
	c := newTestController(newFakeProvider(), l)

	done := make(chan error, 1)
	go func() { done <- c.Connect(context.Background()) }()
	<-l.entered

	if !c.State().Pending {
		t.Fatal("not pending during connect")
	}
	if err := c.Connect(context.Background()); KindOf(err) != OperationInProgress {
		t.Errorf("second connect err = %v", err)
	}
	if _, err := c.SubmitMint(context.Background(), solana.NewWallet().PublicKey().String(), "1"); KindOf(err) != OperationInProgress {
		t.Errorf("mint err = %v", err)
	}
	if e := c.State().Error; e != "" {
		t.Errorf("guard wrote the error slot: %q", e)
	}

	close(l.release)
	if err := <-done; err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if c.State().Pending {
		t.Error("still pending after connect")
	}
}

func TestDisconnect_DropsInFlightResults(t *testing.T) {
	l := newFakeLedger()
	l.balance = 9_000_000_000
	l.holdings = []token.Holding{{Mint: "A"}}
	l.entered = make(chan struct{})
	l.release = make(chan struct{})
	c := newTestController(newFakeProvider(), l)

	done := make(chan error, 1)
	go func() { done <- c.Connect(context.Background()) }()
	<-l.entered

	c.Disconnect(context.Background())
	close(l.release)

	select {
	case err := <-done:
		if !errors.Is(err, ErrSuperseded) {
			t.Errorf("Connect err = %v, want ErrSuperseded", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Connect did not return")
	}
	s := c.State()
	if s.Connected || s.Lamports != 0 || len(s.Holdings) != 0 || s.Pending {
		t.Errorf("stale results applied: %+v", s)
	}
}

func TestSubscribe_Unsubscribe(t *testing.T) {
	l := newFakeLedger()
	c := newTestController(newFakeProvider(), l)
	rec := &recorder{}
	unsub := c.Subscribe(rec.listen)

	c.Connect(context.Background())
	rec.mu.Lock()
	n := len(rec.events)
	last := rec.events[n-1]
	rec.mu.Unlock()
	if n == 0 || !last.State.Connected || last.State.Pending {
		t.Fatalf("last event = %+v (of %d)", last, n)
	}

	unsub()
	c.Disconnect(context.Background())
	rec.mu.Lock()
	defer rec.mu.Unlock()
	if len(rec.events) != n {
		t.Errorf("received %d events after unsubscribe", len(rec.events)-n)
	}
}

func TestSubscribe_ListenerMayReadState(t *testing.T) {
	c := newTestController(newFakeProvider(), newFakeLedger())
	var got State
	c.Subscribe(func(Event) { got = c.State() })
	c.Connect(context.Background())
	if !got.Connected {
		t.Error("listener state not connected")
	}
}
