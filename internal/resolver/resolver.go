// Package resolver performs reverse DNS lookups for scanned hosts. Queries go
// straight to the configured (or system) name servers as PTR requests; when
// no name server is known the platform resolver is used instead. Results,
// including failures, are cached for the life of the Resolver.
package resolver

import (
	"context"
	"fmt"
	"net"
	"net/netip"
	"strings"
	"sync"
	"time"

	"github.com/miekg/dns"

	"github.com/artofscripting/networkvector/internal/errors"
	"github.com/artofscripting/networkvector/internal/logging"
	"github.com/artofscripting/networkvector/internal/metrics"
)

const (
	// DefaultTimeout bounds a single lookup.
	DefaultTimeout = 2 * time.Second

	resolvConfPath = "/etc/resolv.conf"
)

// Config holds resolver settings.
type Config struct {
	// Servers are DNS servers as host:port. Empty reads the system
	// configuration.
	Servers []string
	// Timeout bounds each lookup.
	Timeout time.Duration
}

type cacheEntry struct {
	name string
	err  error
}

// Resolver answers reverse lookups with a per-address cache.
type Resolver struct {
	servers    []string
	timeout    time.Duration
	client     *dns.Client
	lookupAddr func(ctx context.Context, addr string) ([]string, error)
	recorder   metrics.Recorder
	logger     *logging.Logger

	mu    sync.Mutex
	cache map[netip.Addr]cacheEntry
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(r *Resolver) { r.logger = l }
}

// WithRecorder sets the metrics recorder.
func WithRecorder(m metrics.Recorder) Option {
	return func(r *Resolver) { r.recorder = m }
}

// WithLookupAddr replaces the platform resolver used when no DNS server is
// configured.
func WithLookupAddr(fn func(ctx context.Context, addr string) ([]string, error)) Option {
	return func(r *Resolver) { r.lookupAddr = fn }
}

// New creates a resolver. With no servers in cfg it reads /etc/resolv.conf
// and, failing that, falls back to the platform resolver.
func New(cfg Config, opts ...Option) *Resolver {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	r := &Resolver{
		servers:    cfg.Servers,
		timeout:    cfg.Timeout,
		client:     &dns.Client{Net: "udp", Timeout: cfg.Timeout},
		lookupAddr: net.DefaultResolver.LookupAddr,
		recorder:   metrics.Noop{},
		logger:     logging.Default(),
		cache:      make(map[netip.Addr]cacheEntry),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = r.logger.WithComponent("resolver")

	if len(r.servers) == 0 {
		r.servers = systemServers()
	}
	return r
}

// systemServers returns the name servers from resolv.conf, or nil on
// platforms without one.
func systemServers() []string {
	conf, err := dns.ClientConfigFromFile(resolvConfPath)
	if err != nil {
		return nil
	}
	out := make([]string, 0, len(conf.Servers))
	for _, s := range conf.Servers {
		out = append(out, net.JoinHostPort(s, conf.Port))
	}
	return out
}

// LookupHostname returns the first PTR name for addr without the trailing
// dot. Unresolvable addresses return a RESOLVE_FAILED error.
func (r *Resolver) LookupHostname(ctx context.Context, addr netip.Addr) (string, error) {
	r.mu.Lock()
	if e, ok := r.cache[addr]; ok {
		r.mu.Unlock()
		r.recorder.IncrementResolverLookups("cached")
		return e.name, e.err
	}
	r.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var name string
	var err error
	if len(r.servers) > 0 {
		name, err = r.queryPTR(ctx, addr)
	} else {
		name, err = r.platformLookup(ctx, addr)
	}

	status := "success"
	if err != nil {
		status = "failure"
		err = errors.WrapScanErrorWithTarget(errors.CodeResolveFailed, "reverse lookup failed", addr.String(), err)
		r.logger.Debug("Reverse lookup failed", "target", addr.String(), "error", err)
	}
	r.recorder.IncrementResolverLookups(status)

	// A cancelled lookup says nothing about the address.
	if ctx.Err() == nil || err == nil {
		r.mu.Lock()
		r.cache[addr] = cacheEntry{name: name, err: err}
		r.mu.Unlock()
	}
	return name, err
}

func (r *Resolver) queryPTR(ctx context.Context, addr netip.Addr) (string, error) {
	arpa, err := dns.ReverseAddr(addr.String())
	if err != nil {
		return "", err
	}
	msg := new(dns.Msg)
	msg.SetQuestion(arpa, dns.TypePTR)
	msg.RecursionDesired = true

	var lastErr error
	for _, server := range r.servers {
		in, _, err := r.client.ExchangeContext(ctx, msg, server)
		if err != nil {
			lastErr = err
			continue
		}
		if in.Rcode != dns.RcodeSuccess {
			return "", fmt.Errorf("%s: %s", server, dns.RcodeToString[in.Rcode])
		}
		for _, rr := range in.Answer {
			if ptr, ok := rr.(*dns.PTR); ok {
				return strings.TrimSuffix(ptr.Ptr, "."), nil
			}
		}
		return "", fmt.Errorf("%s: no PTR record", server)
	}
	return "", lastErr
}

func (r *Resolver) platformLookup(ctx context.Context, addr netip.Addr) (string, error) {
	names, err := r.lookupAddr(ctx, addr.String())
	if err != nil {
		return "", err
	}
	if len(names) == 0 {
		return "", fmt.Errorf("no PTR record")
	}
	return strings.TrimSuffix(names[0], "."), nil
}

// CacheSize returns the number of cached addresses.
func (r *Resolver) CacheSize() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.cache)
}
