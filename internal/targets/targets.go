// Package targets expands target specifications (addresses, CIDR blocks and
// address ranges) into the ordered list of hosts a scan will probe, applying
// exemptions while expanding so that an exempt address is never produced.
package targets

import (
	"fmt"
	"net/netip"
	"strings"

	"go4.org/netipx"

	"github.com/artofscripting/networkvector/internal/errors"
)

// DefaultMaxHosts bounds a single expansion.
const DefaultMaxHosts = 65536

// Target is one parsed target specification.
type Target struct {
	Spec   string         `json:"spec"`
	Prefix netip.Prefix   `json:"prefix"`
	Range  netipx.IPRange `json:"-"`
}

// IsRange reports whether the target was written as "first-last".
func (t Target) IsRange() bool {
	return !t.Prefix.IsValid()
}

// Resolver turns target and exemption strings into host addresses.
type Resolver struct {
	// MaxHosts caps the number of addresses produced. Zero means DefaultMaxHosts.
	MaxHosts int
}

// Resolve expands specs with the default host limit.
func Resolve(specs, exempt string) ([]netip.Addr, []Target, error) {
	return Resolver{MaxHosts: DefaultMaxHosts}.Resolve(specs, exempt)
}

// Resolve parses specs and exempt (both comma or whitespace separated),
// then expands the targets in order. Addresses are deduplicated with the first
// occurrence kept, and exempt addresses are filtered during expansion.
func (r Resolver) Resolve(specs, exempt string) ([]netip.Addr, []Target, error) {
	parsed, err := ParseTargets(specs)
	if err != nil {
		return nil, nil, err
	}
	exemptSet, err := ParseExemptions(exempt)
	if err != nil {
		return nil, nil, err
	}

	limit := r.MaxHosts
	if limit <= 0 {
		limit = DefaultMaxHosts
	}

	seen := make(map[netip.Addr]struct{})
	var hosts []netip.Addr
	for _, t := range parsed {
		var overflow bool
		expand(t, func(a netip.Addr) bool {
			if exemptSet.Contains(a) {
				return true
			}
			if _, dup := seen[a]; dup {
				return true
			}
			if len(hosts) >= limit {
				overflow = true
				return false
			}
			seen[a] = struct{}{}
			hosts = append(hosts, a)
			return true
		})
		if overflow {
			return nil, nil, errors.ErrInvalidTarget(t.Spec,
				fmt.Errorf("expansion exceeds the limit of %d hosts", limit))
		}
	}
	return hosts, parsed, nil
}

// ParseTargets parses a target list. An empty list is an error.
func ParseTargets(specs string) ([]Target, error) {
	fields := splitList(specs)
	if len(fields) == 0 {
		return nil, errors.ErrInvalidTarget(specs, fmt.Errorf("no targets given"))
	}

	out := make([]Target, 0, len(fields))
	for _, f := range fields {
		t, err := parseTarget(f)
		if err != nil {
			return nil, errors.ErrInvalidTarget(f, err)
		}
		out = append(out, t)
	}
	return out, nil
}

func parseTarget(s string) (Target, error) {
	if strings.Contains(s, "/") {
		p, err := netip.ParsePrefix(s)
		if err != nil {
			return Target{}, err
		}
		p = p.Masked()
		return Target{Spec: s, Prefix: p, Range: netipx.RangeOfPrefix(p)}, nil
	}
	if strings.Contains(s, "-") {
		rng, err := netipx.ParseIPRange(s)
		if err != nil {
			return Target{}, err
		}
		return Target{Spec: s, Range: rng}, nil
	}
	a, err := netip.ParseAddr(s)
	if err != nil {
		return Target{}, err
	}
	a = a.Unmap()
	p := netip.PrefixFrom(a, a.BitLen())
	return Target{Spec: s, Prefix: p, Range: netipx.RangeOfPrefix(p)}, nil
}

// ParseExemptions builds the exemption set. Entries may be addresses, CIDR
// blocks or ranges. An empty string yields an empty set.
func ParseExemptions(exempt string) (*netipx.IPSet, error) {
	var b netipx.IPSetBuilder
	for _, f := range splitList(exempt) {
		switch {
		case strings.Contains(f, "/"):
			p, err := netip.ParsePrefix(f)
			if err != nil {
				return nil, errors.ErrInvalidExemption(f, err)
			}
			b.AddPrefix(p.Masked())
		case strings.Contains(f, "-"):
			rng, err := netipx.ParseIPRange(f)
			if err != nil {
				return nil, errors.ErrInvalidExemption(f, err)
			}
			b.AddRange(rng)
		default:
			a, err := netip.ParseAddr(f)
			if err != nil {
				return nil, errors.ErrInvalidExemption(f, err)
			}
			b.Add(a.Unmap())
		}
	}
	set, err := b.IPSet()
	if err != nil {
		return nil, errors.ErrInvalidExemption(exempt, err)
	}
	return set, nil
}

// expand walks the usable addresses of t in ascending order until fn
// returns false. For IPv4 blocks of /30 and wider the network and broadcast
// addresses are skipped; IPv6 blocks skip the subnet-router anycast address.
func expand(t Target, fn func(netip.Addr) bool) {
	first, last := t.Range.From(), t.Range.To()
	if t.Prefix.IsValid() {
		bits := t.Prefix.Bits()
		switch {
		case first.Is4() && bits <= 30:
			first, last = first.Next(), last.Prev()
		case first.Is6() && bits <= 126:
			first = first.Next()
		}
	}
	for a := first; a.IsValid(); a = a.Next() {
		if !fn(a) || a == last {
			return
		}
	}
}

func splitList(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t' || r == '\n'
	})
}
