package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"

	"github.com/artofscripting/networkvector/internal/errors"
	"github.com/artofscripting/networkvector/internal/ports"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad(t *testing.T) {
	tests := []struct {
		name    string
		path    func() string
		check   func(*testing.T, *Config)
		wantErr bool
	}{
		{
			name: "valid yaml config",
			path: func() string {
				return writeConfig(t, "config.yaml", `
scanning:
  threads: 200
  timeout: 250ms
  ports: "22,80,443"
  exempt:
    - 10.0.0.1
  dig: true
output:
  directory: /tmp/reports
  graph: false
`)
			},
			check: func(t *testing.T, c *Config) {
				if c.Scanning.Threads != 200 {
					t.Errorf("Threads = %d, want 200", c.Scanning.Threads)
				}
				if c.Scanning.Timeout != 250*time.Millisecond {
					t.Errorf("Timeout = %v, want 250ms", c.Scanning.Timeout)
				}
				if !c.Scanning.Dig {
					t.Error("Dig should be enabled")
				}
				if c.Output.Graph {
					t.Error("Graph should be disabled")
				}
				if !c.Scanning.Randomize {
					t.Error("Unset fields should keep their defaults")
				}
			},
		},
		{
			name: "valid json config",
			path: func() string {
				return writeConfig(t, "config.json", `{"scanning": {"threads": 50}, "logging": {"level": "debug"}}`)
			},
			check: func(t *testing.T, c *Config) {
				if c.Scanning.Threads != 50 {
					t.Errorf("Threads = %d, want 50", c.Scanning.Threads)
				}
				if c.Logging.Level != "debug" {
					t.Errorf("Level = %s, want debug", c.Logging.Level)
				}
			},
		},
		{
			name: "missing file returns defaults",
			path: func() string { return filepath.Join(t.TempDir(), "absent.yaml") },
			check: func(t *testing.T, c *Config) {
				if c.Scanning.Threads != Default().Scanning.Threads {
					t.Errorf("Threads = %d, want default", c.Scanning.Threads)
				}
			},
		},
		{
			name:    "invalid yaml type",
			path:    func() string { return writeConfig(t, "config.yaml", "scanning:\n  threads: many\n") },
			wantErr: true,
		},
		{
			name:    "invalid json syntax",
			path:    func() string { return writeConfig(t, "config.json", `{"scanning": {"threads": 4},}}`) },
			wantErr: true,
		},
		{
			name:    "fails validation",
			path:    func() string { return writeConfig(t, "config.yaml", "scanning:\n  threads: 0\n") },
			wantErr: true,
		},
		{
			name:    "bad port list",
			path:    func() string { return writeConfig(t, "config.yaml", "scanning:\n  ports: \"22,99999\"\n") },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load(tt.path())
			if (err != nil) != tt.wantErr {
				t.Fatalf("Load() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.check != nil {
				tt.check(t, cfg)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"zero threads", func(c *Config) { c.Scanning.Threads = 0 }, "scanning.threads"},
		{"zero timeout", func(c *Config) { c.Scanning.Timeout = 0 }, "scanning.timeout"},
		{"negative delay", func(c *Config) { c.Scanning.ScanDelay = -time.Second }, "scanning.scan_delay"},
		{"negative rate", func(c *Config) { c.Scanning.RateLimit = -1 }, "scanning.rate_limit"},
		{"empty output dir", func(c *Config) { c.Output.Directory = "" }, "output.directory"},
		{"bad listen addr", func(c *Config) { c.Live.ListenAddr = "nope" }, "live.listen_addr"},
		{"bad dns server", func(c *Config) { c.Resolver.Servers = []string{"8.8.8.8"} }, "resolver.servers[0]"},
		{"bad log level", func(c *Config) { c.Logging.Level = "loud" }, "logging.level"},
		{"live without addr", func(c *Config) { c.Live.Enabled = true; c.Live.ListenAddr = "" }, "live.listen_addr"},
	}

	if err := Default().Validate(); err != nil {
		t.Fatalf("default config should be valid: %v", err)
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)

			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			cfgErr, ok := err.(*errors.ConfigError)
			if !ok {
				t.Fatalf("expected *errors.ConfigError, got %T", err)
			}
			if cfgErr.Field != tt.field {
				t.Errorf("Field = %q, want %q", cfgErr.Field, tt.field)
			}
		})
	}
}

func TestSaveRoundTrip(t *testing.T) {
	cfg := Default()
	cfg.Scanning.Threads = 321
	cfg.Scanning.ScanDelay = 1500 * time.Millisecond
	cfg.Resolver.Servers = []string{"1.1.1.1:53"}

	path := filepath.Join(t.TempDir(), "nested", "networkvector.yaml")
	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if loaded.Scanning.Threads != 321 {
		t.Errorf("Threads = %d, want 321", loaded.Scanning.Threads)
	}
	if loaded.Scanning.ScanDelay != 1500*time.Millisecond {
		t.Errorf("ScanDelay = %v, want 1.5s", loaded.Scanning.ScanDelay)
	}
	if len(loaded.Resolver.Servers) != 1 || loaded.Resolver.Servers[0] != "1.1.1.1:53" {
		t.Errorf("Servers = %v", loaded.Resolver.Servers)
	}
}

func TestFromViper(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		cfg, err := FromViper(viper.New())
		if err != nil {
			t.Fatalf("FromViper() error = %v", err)
		}
		if cfg.Scanning.Timeout != 500*time.Millisecond {
			t.Errorf("Timeout = %v, want 500ms", cfg.Scanning.Timeout)
		}
		if cfg.Shares.Timeout != 10*time.Second {
			t.Errorf("Shares timeout = %v, want 10s", cfg.Shares.Timeout)
		}
	})

	t.Run("environment overrides", func(t *testing.T) {
		t.Setenv("NVECTOR_SCANNING_THREADS", "64")
		t.Setenv("NVECTOR_SCANNING_DIG", "true")
		t.Setenv("NVECTOR_SCANNING_TIMEOUT", "2s")
		t.Setenv("NVECTOR_LOGGING_FORMAT", "json")

		cfg, err := FromViper(viper.New())
		if err != nil {
			t.Fatalf("FromViper() error = %v", err)
		}
		if cfg.Scanning.Threads != 64 {
			t.Errorf("Threads = %d, want 64", cfg.Scanning.Threads)
		}
		if !cfg.Scanning.Dig {
			t.Error("Dig should be enabled from the environment")
		}
		if cfg.Scanning.Timeout != 2*time.Second {
			t.Errorf("Timeout = %v, want 2s", cfg.Scanning.Timeout)
		}
		if cfg.Logging.Format != "json" {
			t.Errorf("Format = %s, want json", cfg.Logging.Format)
		}
	})

	t.Run("config file", func(t *testing.T) {
		v := viper.New()
		v.SetConfigFile(writeConfig(t, "nvector.yaml", "scanning:\n  rate_limit: 25\n"))

		cfg, err := FromViper(v)
		if err != nil {
			t.Fatalf("FromViper() error = %v", err)
		}
		if cfg.Scanning.RateLimit != 25 {
			t.Errorf("RateLimit = %d, want 25", cfg.Scanning.RateLimit)
		}
	})

	t.Run("invalid override", func(t *testing.T) {
		t.Setenv("NVECTOR_SCANNING_THREADS", "0")
		if _, err := FromViper(viper.New()); err == nil {
			t.Error("expected validation error")
		}
	})
}

func TestScanConfig(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(*Config)
		mode     ports.Mode
		ports    []uint16
		wantCode errors.ErrorCode
	}{
		{name: "curated by default", mode: ports.ModeCurated},
		{name: "all ports", mutate: func(c *Config) { c.Scanning.AllPorts = true; c.Scanning.Ports = "22" }, mode: ports.ModeAll},
		{name: "explicit list", mutate: func(c *Config) { c.Scanning.Ports = "443,22,80-81" }, mode: ports.ModeExplicit, ports: []uint16{22, 80, 81, 443}},
		{name: "bad list", mutate: func(c *Config) { c.Scanning.Ports = "http" }, wantCode: errors.CodePortsInvalid},
		{name: "bad threads", mutate: func(c *Config) { c.Scanning.Threads = 0 }, wantCode: errors.CodeValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			if tt.mutate != nil {
				tt.mutate(cfg)
			}

			sc, err := cfg.ScanConfig("10.0.0.0/24")
			if tt.wantCode != "" {
				if !errors.IsCode(err, tt.wantCode) {
					t.Fatalf("error = %v, want code %s", err, tt.wantCode)
				}
				return
			}
			if err != nil {
				t.Fatalf("ScanConfig() error = %v", err)
			}
			if sc.PortMode != tt.mode {
				t.Errorf("PortMode = %s, want %s", sc.PortMode, tt.mode)
			}
			if tt.ports != nil && len(sc.Ports) != len(tt.ports) {
				t.Errorf("Ports = %v, want %v", sc.Ports, tt.ports)
			}
			for i := range tt.ports {
				if sc.Ports[i] != tt.ports[i] {
					t.Errorf("Ports = %v, want %v", sc.Ports, tt.ports)
					break
				}
			}
			if sc.Targets != "10.0.0.0/24" {
				t.Errorf("Targets = %s", sc.Targets)
			}
		})
	}
}
