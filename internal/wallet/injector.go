package wallet

import (
	"sync"

	"github.com/Klingon-tech/splwallet/internal/session"
)

// Injector is the slot a session looks in for its wallet provider. It holds
// at most one provider.
type Injector struct {
	mu       sync.RWMutex
	provider session.WalletProvider
}

var _ session.Locator = (*Injector)(nil)

// NewInjector returns an empty injector.
func NewInjector() *Injector {
	return &Injector{}
}

// Inject installs p and returns the provider it replaced, if any.
func (i *Injector) Inject(p session.WalletProvider) session.WalletProvider {
	i.mu.Lock()
	defer i.mu.Unlock()
	prev := i.provider
	i.provider = p
	return prev
}

// Eject removes and returns the current provider.
func (i *Injector) Eject() session.WalletProvider {
	return i.Inject(nil)
}

// Locate returns the injected provider or nil.
func (i *Injector) Locate() session.WalletProvider {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.provider
}
