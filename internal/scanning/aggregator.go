package scanning

import (
	"net/netip"
	"slices"
	"sync"
)

// Listener is notified each time a host task completes.
type Listener interface {
	OnHostComplete(h Host)
}

// ListenerFunc adapts a function to Listener.
type ListenerFunc func(h Host)

// OnHostComplete calls f(h).
func (f ListenerFunc) OnHostComplete(h Host) { f(h) }

// Aggregator collects Host records from concurrent host tasks. It is the only
// writable state shared between tasks.
type Aggregator struct {
	live bool

	// notifyMu serializes Record so listeners see completions in the order
	// they were stored.
	notifyMu sync.Mutex

	mu        sync.RWMutex
	hosts     map[netip.Addr]*Host
	order     []netip.Addr
	listeners []Listener
}

// NewAggregator returns an empty aggregator. Listeners only fire when live
// is true.
func NewAggregator(live bool) *Aggregator {
	return &Aggregator{
		live:  live,
		hosts: make(map[netip.Addr]*Host),
	}
}

// AddListener registers l for completion callbacks.
func (a *Aggregator) AddListener(l Listener) {
	a.mu.Lock()
	a.listeners = append(a.listeners, l)
	a.mu.Unlock()
}

// Record stores h, replacing any earlier record for the same address, and
// notifies listeners synchronously in live mode.
func (a *Aggregator) Record(h Host) {
	a.notifyMu.Lock()
	defer a.notifyMu.Unlock()

	stored := h.Clone()
	a.mu.Lock()
	if _, ok := a.hosts[h.Address]; !ok {
		a.order = append(a.order, h.Address)
	}
	a.hosts[h.Address] = &stored
	listeners := slices.Clone(a.listeners)
	a.mu.Unlock()

	if !a.live {
		return
	}
	for _, l := range listeners {
		l.OnHostComplete(stored.Clone())
	}
}

// Get returns a copy of the record for addr.
func (a *Aggregator) Get(addr netip.Addr) (Host, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	h, ok := a.hosts[addr]
	if !ok {
		return Host{}, false
	}
	return h.Clone(), true
}

// Len returns the number of recorded hosts.
func (a *Aggregator) Len() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.hosts)
}

// Hosts returns deep copies of every record sorted by address.
func (a *Aggregator) Hosts() []Host {
	a.mu.RLock()
	out := make([]Host, 0, len(a.hosts))
	for _, h := range a.hosts {
		out = append(out, h.Clone())
	}
	a.mu.RUnlock()

	slices.SortFunc(out, func(x, y Host) int { return x.Address.Compare(y.Address) })
	return out
}

// CompletionOrder returns addresses in the order they were first recorded.
func (a *Aggregator) CompletionOrder() []netip.Addr {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return slices.Clone(a.order)
}
