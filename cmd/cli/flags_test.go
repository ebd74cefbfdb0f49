package cli

import (
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/artofscripting/networkvector/internal/config"
)

func parseScanFlags(t *testing.T, args ...string) (*scanFlags, *pflag.FlagSet) {
	t.Helper()
	f := &scanFlags{}
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	f.register(fs)
	require.NoError(t, fs.Parse(args))
	return f, fs
}

func TestScanFlagsApply(t *testing.T) {
	tests := []struct {
		name  string
		args  []string
		check func(t *testing.T, cfg *config.Config)
	}{
		{
			name: "unchanged flags keep configuration",
			args: nil,
			check: func(t *testing.T, cfg *config.Config) {
				assert.Equal(t, config.Default(), cfg)
			},
		},
		{
			name: "fractional timeout",
			args: []string{"--timeout", "0.25"},
			check: func(t *testing.T, cfg *config.Config) {
				assert.Equal(t, 250*time.Millisecond, cfg.Scanning.Timeout)
			},
		},
		{
			name: "scan delay",
			args: []string{"--scan-delay", "1.5"},
			check: func(t *testing.T, cfg *config.Config) {
				assert.Equal(t, 1500*time.Millisecond, cfg.Scanning.ScanDelay)
			},
		},
		{
			name: "negated switches",
			args: []string{"--no-graph", "--no-resolve-hostnames", "--no-enumerate-shares", "--no-randomize"},
			check: func(t *testing.T, cfg *config.Config) {
				assert.False(t, cfg.Output.Graph)
				assert.False(t, cfg.Scanning.ResolveHostnames)
				assert.False(t, cfg.Scanning.EnumerateShares)
				assert.False(t, cfg.Scanning.Randomize)
			},
		},
		{
			name: "live address enables the feed",
			args: []string{"--live-addr", "127.0.0.1:9999"},
			check: func(t *testing.T, cfg *config.Config) {
				assert.True(t, cfg.Live.Enabled)
				assert.Equal(t, "127.0.0.1:9999", cfg.Live.ListenAddr)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, fs := parseScanFlags(t, tt.args...)
			cfg := config.Default()
			require.NoError(t, f.apply(fs, cfg))
			tt.check(t, cfg)
		})
	}
}

func TestScanFlagsApplyRejects(t *testing.T) {
	for _, args := range [][]string{
		{"--timeout", "0"},
		{"--timeout", "-1"},
		{"--scan-delay", "-0.5"},
	} {
		f, fs := parseScanFlags(t, args...)
		assert.Error(t, f.apply(fs, config.Default()), args)
	}
}

func TestScanFlagsBind(t *testing.T) {
	f, fs := parseScanFlags(t, "--threads", "12", "--ports", "22,80", "--dig", "--exempt", "10.0.0.1,10.0.0.2", "--rate", "300")

	v := viper.New()
	require.NoError(t, f.bind(v, fs))

	cfg, err := config.FromViper(v)
	require.NoError(t, err)

	assert.Equal(t, 12, cfg.Scanning.Threads)
	assert.Equal(t, "22,80", cfg.Scanning.Ports)
	assert.True(t, cfg.Scanning.Dig)
	assert.Equal(t, []string{"10.0.0.1", "10.0.0.2"}, cfg.Scanning.Exempt)
	assert.Equal(t, 300, cfg.Scanning.RateLimit)
	assert.Equal(t, ".", cfg.Output.Directory)
}
