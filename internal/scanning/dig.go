package scanning

import (
	"context"
	"net/netip"

	"github.com/artofscripting/networkvector/internal/ports"
)

// digOrchestrator drives the two phase dig mode: a discover pass over the
// configured port set, then an exhaustive pass over all ports restricted to
// the hosts the first pass found alive.
type digOrchestrator struct {
	s     *scheduler
	state Phase
}

func newDigOrchestrator(s *scheduler) *digOrchestrator {
	return &digOrchestrator{s: s, state: PhaseDiscover}
}

// run executes the state machine and returns the last phase that ran.
// The exhaustive phase only starts when the discover phase was not stopped
// and found at least one alive host.
func (d *digOrchestrator) run(ctx context.Context, hosts []netip.Addr, portSet []uint16) Phase {
	d.state = PhaseDiscover
	if stopped := d.s.runPhase(ctx, PhaseDiscover, hosts, portSet); stopped {
		return d.state
	}

	alive := d.aliveHosts(hosts)
	if len(alive) == 0 {
		d.s.logger.InfoPhase("No alive hosts, skipping exhaustive phase", string(PhaseDiscover))
		return d.state
	}

	d.state = PhaseExhaustive
	d.s.runPhase(ctx, PhaseExhaustive, alive, ports.All())
	return d.state
}

// aliveHosts returns, in the original target order, the hosts that had an
// open port or, with hostname resolution on, a resolved name.
func (d *digOrchestrator) aliveHosts(hosts []netip.Addr) []netip.Addr {
	var alive []netip.Addr
	for _, a := range hosts {
		h, ok := d.s.aggregator.Get(a)
		if !ok {
			continue
		}
		if isAlive(&h, d.s.cfg.ResolveHostnames) {
			alive = append(alive, a)
		}
	}
	return alive
}

func isAlive(h *Host, resolveEnabled bool) bool {
	return h.HasOpenPorts() || (resolveEnabled && h.Hostname != "")
}
