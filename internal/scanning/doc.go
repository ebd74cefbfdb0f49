// Package scanning provides the TCP scan engine for networkvector.
//
// The engine takes a ScanConfig, expands its targets, builds the port set and
// probes every (host, port) pair with a full TCP connect. Hosts are scheduled
// as jobs on a bounded worker pool; each job probes its host's ports
// sequentially and records one Host in the Aggregator when it finishes.
//
// # Main Components
//
//   - Engine: entry point. NewEngine builds one from a ScanConfig and
//     functional options; Run executes a session and returns it.
//   - Prober: one connection attempt. TCPProber dials with a per-attempt
//     timeout and maps every failure onto closed or filtered.
//   - Randomizer: host order, per-host port order and stealth delays.
//   - Aggregator: the shared result store. In live mode it notifies
//     Listeners synchronously as each host completes.
//   - Progress: monotonic percent complete with throttled observers.
//
// # Dig Mode
//
// With Dig set the session runs two phases. The discover phase scans the
// configured port set; the exhaustive phase rescans only alive hosts across
// ports 1-65535. Hostname and shares found in the first phase are kept and the
// OS guess is recomputed from the open ports of both phases.
//
// # Usage Example
//
//	cfg := scanning.DefaultScanConfig()
//	cfg.Targets = "192.168.1.0/24"
//	cfg.Exempt = []string{"192.168.1.1"}
//
//	engine := scanning.NewEngine(cfg,
//		scanning.WithLogger(logger),
//		scanning.WithHostnameResolver(res))
//	session, err := engine.Run(ctx)
//	if err != nil {
//		return err
//	}
//	for _, h := range session.AliveHosts() {
//		fmt.Println(h.DisplayName(), h.OpenPorts())
//	}
//
// Cancelling ctx stops the session: no new hosts start, probes already in
// flight finish, and Run returns the partial session with Stopped set.
package scanning
