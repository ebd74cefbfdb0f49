package cli

import (
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/artofscripting/networkvector/internal/config"
	"github.com/artofscripting/networkvector/internal/errors"
	"github.com/artofscripting/networkvector/internal/scanning"
)

// scanFlags are the scan options shared by the root and schedule commands.
type scanFlags struct {
	timeout     float64
	threads     int
	ports       string
	allPorts    bool
	dig         bool
	live        bool
	exempt      []string
	noGraph     bool
	noResolve   bool
	noShares    bool
	noRandomize bool
	scanDelay   float64
	threeD      bool
	forceThreeD bool
	rate        int
	outputDir   string
	liveAddr    string
}

// boundFlags maps flags onto configuration keys.
var boundFlags = map[string]string{
	"threads":    "scanning.threads",
	"ports":      "scanning.ports",
	"all-ports":  "scanning.all_ports",
	"dig":        "scanning.dig",
	"live":       "scanning.live",
	"exempt":     "scanning.exempt",
	"rate":       "scanning.rate_limit",
	"3d":         "output.three_d",
	"force-3d":   "output.force_three_d",
	"output-dir": "output.directory",
}

func (f *scanFlags) register(fs *pflag.FlagSet) {
	fs.Float64Var(&f.timeout, "timeout", scanning.DefaultTimeout.Seconds(), "connection timeout in seconds")
	fs.IntVar(&f.threads, "threads", scanning.DefaultThreads, "maximum number of hosts scanned concurrently")
	fs.StringVar(&f.ports, "ports", "", "ports to scan, e.g. 22,80,8000-8100 (default: curated common ports)")
	fs.BoolVar(&f.allPorts, "all-ports", false, "scan all 65535 ports")
	fs.BoolVar(&f.dig, "dig", false, "scan every port on hosts found alive by the first pass")
	fs.BoolVar(&f.live, "live", false, "report each host as soon as it completes")
	fs.StringSliceVar(&f.exempt, "exempt", nil, "addresses, CIDR blocks or ranges never to scan")
	fs.BoolVar(&f.noGraph, "no-graph", false, "write a CSV report instead of the HTML graph")
	fs.BoolVar(&f.noResolve, "no-resolve-hostnames", false, "skip reverse DNS lookups")
	fs.BoolVar(&f.noShares, "no-enumerate-shares", false, "skip SMB share enumeration")
	fs.BoolVar(&f.noRandomize, "no-randomize", false, "scan hosts and ports in order")
	fs.Float64Var(&f.scanDelay, "scan-delay", 0, "maximum random delay in seconds before each host")
	fs.BoolVar(&f.threeD, "3d", false, "render the graph in 3D")
	fs.BoolVar(&f.forceThreeD, "force-3d", false, "keep the 3D graph even for very large networks")
	fs.IntVar(&f.rate, "rate", 0, "maximum connection attempts per second (0 = unlimited)")
	fs.StringVar(&f.outputDir, "output-dir", ".", "directory reports are written to")
	fs.StringVar(&f.liveAddr, "live-addr", "", "serve the live feed (/ws, /api/session, /metrics) on host:port")
}

// bind registers the directly mapped flags with v.
func (f *scanFlags) bind(v *viper.Viper, fs *pflag.FlagSet) error {
	for name, key := range boundFlags {
		flag := fs.Lookup(name)
		if flag == nil {
			continue
		}
		if err := v.BindPFlag(key, flag); err != nil {
			return errors.WrapConfigError(errors.CodeConfiguration, "failed to bind flag --"+name, err)
		}
	}
	return nil
}

// apply overlays the flags that cannot be bound: fractional seconds and
// negated switches. Only flags set on the command line are applied.
func (f *scanFlags) apply(fs *pflag.FlagSet, cfg *config.Config) error {
	changed := func(name string) bool {
		flag := fs.Lookup(name)
		return flag != nil && flag.Changed
	}

	if changed("timeout") {
		if f.timeout <= 0 {
			return errors.ErrConfigInvalid("scanning.timeout", f.timeout)
		}
		cfg.Scanning.Timeout = seconds(f.timeout)
	}
	if changed("scan-delay") {
		if f.scanDelay < 0 {
			return errors.ErrConfigInvalid("scanning.scan_delay", f.scanDelay)
		}
		cfg.Scanning.ScanDelay = seconds(f.scanDelay)
	}
	if changed("no-graph") {
		cfg.Output.Graph = !f.noGraph
	}
	if changed("no-resolve-hostnames") {
		cfg.Scanning.ResolveHostnames = !f.noResolve
	}
	if changed("no-enumerate-shares") {
		cfg.Scanning.EnumerateShares = !f.noShares
	}
	if changed("no-randomize") {
		cfg.Scanning.Randomize = !f.noRandomize
	}
	if changed("live-addr") {
		cfg.Live.Enabled = true
		cfg.Live.ListenAddr = f.liveAddr
	}
	return nil
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
