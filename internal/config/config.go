// Package config loads, validates and saves networkvector configuration.
// Values are layered: built-in defaults, then an optional YAML file, then
// NVECTOR_ environment variables and command-line flags bound through viper.
package config

import (
	stderrors "errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/artofscripting/networkvector/internal/errors"
	"github.com/artofscripting/networkvector/internal/logging"
	"github.com/artofscripting/networkvector/internal/ports"
	"github.com/artofscripting/networkvector/internal/scanning"
	"github.com/artofscripting/networkvector/internal/targets"
)

// EnvPrefix is the prefix for environment overrides, e.g.
// NVECTOR_SCANNING_THREADS=200.
const EnvPrefix = "NVECTOR"

const (
	configDirPerm  = 0750
	configFilePerm = 0600
)

// Config represents the complete networkvector configuration.
type Config struct {
	// Scanning configuration
	Scanning ScanningConfig `yaml:"scanning" json:"scanning" mapstructure:"scanning"`

	// Report output configuration
	Output OutputConfig `yaml:"output" json:"output" mapstructure:"output"`

	// Live feed server configuration
	Live LiveConfig `yaml:"live" json:"live" mapstructure:"live"`

	// Reverse DNS configuration
	Resolver ResolverConfig `yaml:"resolver" json:"resolver" mapstructure:"resolver"`

	// SMB share enumeration configuration
	Shares SharesConfig `yaml:"shares" json:"shares" mapstructure:"shares"`

	// Logging configuration
	Logging logging.Config `yaml:"logging" json:"logging" mapstructure:"logging"`
}

// ScanningConfig holds scan engine settings.
type ScanningConfig struct {
	// Per-attempt connect timeout
	Timeout time.Duration `yaml:"timeout" json:"timeout" mapstructure:"timeout" validate:"gt=0"`

	// Maximum concurrent host tasks
	Threads int `yaml:"threads" json:"threads" mapstructure:"threads" validate:"min=1,max=100000"`

	// Port list ("22,80,8000-8100"); empty means the curated set
	Ports string `yaml:"ports" json:"ports" mapstructure:"ports"`

	// Scan every port from 1 to 65535
	AllPorts bool `yaml:"all_ports" json:"all_ports" mapstructure:"all_ports"`

	// Addresses, CIDR blocks and ranges never to probe
	Exempt []string `yaml:"exempt" json:"exempt" mapstructure:"exempt"`

	// Upper bound on expanded target addresses
	MaxHosts int `yaml:"max_hosts" json:"max_hosts" mapstructure:"max_hosts" validate:"min=0"`

	// Shuffle host and port order
	Randomize bool `yaml:"randomize" json:"randomize" mapstructure:"randomize"`

	// Maximum per-host stealth delay
	ScanDelay time.Duration `yaml:"scan_delay" json:"scan_delay" mapstructure:"scan_delay" validate:"min=0"`

	// Two phase discover/exhaustive mode
	Dig bool `yaml:"dig" json:"dig" mapstructure:"dig"`

	// Connection attempts per second, 0 for unlimited
	RateLimit int `yaml:"rate_limit" json:"rate_limit" mapstructure:"rate_limit" validate:"min=0"`

	// Deliver hosts to the live feed as they complete
	Live bool `yaml:"live" json:"live" mapstructure:"live"`

	// Reverse-resolve scanned hosts
	ResolveHostnames bool `yaml:"resolve_hostnames" json:"resolve_hostnames" mapstructure:"resolve_hostnames"`

	// List SMB shares on hosts with file services open
	EnumerateShares bool `yaml:"enumerate_shares" json:"enumerate_shares" mapstructure:"enumerate_shares"`
}

// OutputConfig holds report settings.
type OutputConfig struct {
	// Directory reports are written to
	Directory string `yaml:"directory" json:"directory" mapstructure:"directory" validate:"required"`

	// Write the HTML graph; false writes CSV instead
	Graph bool `yaml:"graph" json:"graph" mapstructure:"graph"`

	// Use the 3D graph template
	ThreeD bool `yaml:"three_d" json:"three_d" mapstructure:"three_d"`

	// Keep 3D even for very large graphs
	ForceThreeD bool `yaml:"force_three_d" json:"force_three_d" mapstructure:"force_three_d"`

	// Print the console summary table
	Console bool `yaml:"console" json:"console" mapstructure:"console"`

	// How often the HTML report is rewritten during a live scan
	RefreshInterval time.Duration `yaml:"refresh_interval" json:"refresh_interval" mapstructure:"refresh_interval" validate:"min=0"`
}

// LiveConfig holds the live feed server settings.
type LiveConfig struct {
	// Serve /ws, /api/session and /metrics while scanning
	Enabled bool `yaml:"enabled" json:"enabled" mapstructure:"enabled"`

	// Listen address
	ListenAddr string `yaml:"listen_addr" json:"listen_addr" mapstructure:"listen_addr" validate:"omitempty,hostname_port"`

	// Allowed websocket origins; empty allows any
	AllowedOrigins []string `yaml:"allowed_origins" json:"allowed_origins" mapstructure:"allowed_origins"`
}

// ResolverConfig holds reverse DNS settings.
type ResolverConfig struct {
	// DNS servers as host:port; empty uses the system configuration
	Servers []string `yaml:"servers" json:"servers" mapstructure:"servers" validate:"dive,hostname_port"`

	// Per-lookup timeout
	Timeout time.Duration `yaml:"timeout" json:"timeout" mapstructure:"timeout" validate:"gt=0"`
}

// SharesConfig holds share enumeration settings.
type SharesConfig struct {
	// Per-host enumeration timeout
	Timeout time.Duration `yaml:"timeout" json:"timeout" mapstructure:"timeout" validate:"gt=0"`
}

// Default returns a configuration with sensible defaults.
func Default() *Config {
	return &Config{
		Scanning: ScanningConfig{
			Timeout:          scanning.DefaultTimeout,
			Threads:          scanning.DefaultThreads,
			MaxHosts:         targets.DefaultMaxHosts,
			Randomize:        true,
			ResolveHostnames: true,
			EnumerateShares:  true,
		},
		Output: OutputConfig{
			Directory:       ".",
			Graph:           true,
			Console:         true,
			RefreshInterval: 2 * time.Second,
		},
		Live: LiveConfig{
			Enabled:    false,
			ListenAddr: "127.0.0.1:8787",
		},
		Resolver: ResolverConfig{
			Timeout: 2 * time.Second,
		},
		Shares: SharesConfig{
			Timeout: 10 * time.Second,
		},
		Logging: logging.DefaultConfig(),
	}
}

// Load loads configuration from a YAML (or JSON) file on top of the defaults.
// A missing file yields the defaults.
func Load(path string) (*Config, error) {
	config := Default()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return config, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.WrapConfigError(errors.CodeConfiguration, "failed to read config file", err)
	}

	// JSON is a subset of YAML, so one decoder serves both.
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, errors.WrapConfigError(errors.CodeConfiguration,
			fmt.Sprintf("failed to parse config %s", filepath.Base(path)), err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// FromViper builds a configuration from v. Defaults are registered first so
// that every key can be overridden from the environment, then a config file
// is read if one is set on v.
func FromViper(v *viper.Viper) (*Config, error) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults, err := flatten(Default())
	if err != nil {
		return nil, err
	}
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	if v.ConfigFileUsed() != "" {
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.WrapConfigError(errors.CodeConfiguration, "failed to read config file", err)
		}
	}

	config := &Config{}
	if err := v.Unmarshal(config); err != nil {
		return nil, errors.WrapConfigError(errors.CodeConfiguration, "failed to decode configuration", err)
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// flatten renders c as dotted keys ("scanning.threads") through its YAML
// form, so durations come out as strings viper can decode.
func flatten(c *Config) (map[string]interface{}, error) {
	data, err := yaml.Marshal(c)
	if err != nil {
		return nil, errors.WrapConfigError(errors.CodeConfiguration, "failed to marshal defaults", err)
	}
	var tree map[string]interface{}
	if err := yaml.Unmarshal(data, &tree); err != nil {
		return nil, errors.WrapConfigError(errors.CodeConfiguration, "failed to unmarshal defaults", err)
	}

	out := make(map[string]interface{})
	var walk func(prefix string, m map[string]interface{})
	walk = func(prefix string, m map[string]interface{}) {
		for k, v := range m {
			key := k
			if prefix != "" {
				key = prefix + "." + k
			}
			if sub, ok := v.(map[string]interface{}); ok {
				walk(key, sub)
				continue
			}
			out[key] = v
		}
	}
	walk("", tree)
	return out, nil
}

// Save writes the configuration to path as YAML.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, configDirPerm); err != nil {
		return errors.WrapConfigError(errors.CodeDirectoryCreate, "failed to create config directory", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return errors.WrapConfigError(errors.CodeConfiguration, "failed to marshal config", err)
	}

	if err := os.WriteFile(path, data, configFilePerm); err != nil {
		return errors.WrapConfigError(errors.CodeFilePermission, "failed to write config file", err)
	}
	return nil
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("yaml"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate checks the configuration. The first failing field is reported as
// a ConfigError with its dotted path.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if stderrors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return errors.NewConfigFieldError(errors.CodeValidation,
				fmt.Sprintf("failed '%s' check", fe.Tag()), fieldPath(fe.Namespace()), fe.Value())
		}
		return errors.WrapConfigError(errors.CodeValidation, "invalid configuration", err)
	}

	if c.Scanning.Ports != "" && !c.Scanning.AllPorts {
		if _, err := ports.Parse(c.Scanning.Ports); err != nil {
			return err
		}
	}
	if c.Live.Enabled && c.Live.ListenAddr == "" {
		return errors.ErrConfigMissing("live.listen_addr")
	}
	return nil
}

// fieldPath turns "Config.scanning.threads" into "scanning.threads".
func fieldPath(ns string) string {
	return strings.TrimPrefix(ns, "Config.")
}

// ScanConfig builds the immutable engine configuration for targets.
func (c *Config) ScanConfig(targetSpec string) (scanning.ScanConfig, error) {
	s := c.Scanning
	cfg := scanning.ScanConfig{
		Targets:          targetSpec,
		Exempt:           s.Exempt,
		MaxHosts:         s.MaxHosts,
		Timeout:          s.Timeout,
		Threads:          s.Threads,
		PortMode:         ports.ModeCurated,
		Randomize:        s.Randomize,
		MaxDelay:         s.ScanDelay,
		Dig:              s.Dig,
		Live:             s.Live || c.Live.Enabled,
		ResolveHostnames: s.ResolveHostnames,
		EnumerateShares:  s.EnumerateShares,
		RateLimit:        s.RateLimit,
	}

	switch {
	case s.AllPorts:
		cfg.PortMode = ports.ModeAll
	case s.Ports != "":
		list, err := ports.Parse(s.Ports)
		if err != nil {
			return scanning.ScanConfig{}, err
		}
		cfg.PortMode = ports.ModeExplicit
		cfg.Ports = list
	}

	if err := cfg.Validate(); err != nil {
		return scanning.ScanConfig{}, err
	}
	return cfg, nil
}
