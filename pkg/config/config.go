// Package config loads a test plan: which emission, which radio backend,
// and the timing and storage parameters of the run.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/herlein/gocw/pkg/rftest"
)

// Backends
const (
	BackendRFCat   = "rfcat"
	BackendNRF24   = "nrf24"
	BackendESPCert = "espcert"
)

// Environment overrides
const (
	EnvMode    = "GOCW_MODE"
	EnvBackend = "GOCW_BACKEND"
	EnvChannel = "GOCW_CHANNEL"
	EnvDwell   = "GOCW_DWELL"
	EnvPower   = "GOCW_POWER"
)

var (
	ErrUnknownBackend = errors.New("unknown backend")
	ErrInvalidEnv     = errors.New("invalid environment override")
	ErrInvalidStorage = errors.New("invalid storage geometry")
)

// Config is a test plan
type Config struct {
	Mode    string        `yaml:"mode"`
	Backend BackendConfig `yaml:"backend"`
	Radio   RadioConfig   `yaml:"radio"`
	Timing  TimingConfig  `yaml:"timing"`
	Flood   FloodConfig   `yaml:"flood"`
	Storage StorageConfig `yaml:"storage"`
	Log     LogConfig     `yaml:"log"`
}

// BackendConfig selects and addresses the radio hardware
type BackendConfig struct {
	Type string `yaml:"type"`

	// rfcat: device selector, see yardstick.SelectorUsage
	Device string `yaml:"device"`

	// nrf24
	SPI   string `yaml:"spi"`
	CEPin string `yaml:"cePin"`

	// espcert: serial port or WebSocket bridge
	Port          string `yaml:"port"`
	Baud          int    `yaml:"baud"`
	Prompt        string `yaml:"prompt"`
	URL           string `yaml:"url"`
	Username      string `yaml:"username"`
	SkipTLSVerify bool   `yaml:"skipTlsVerify"`
}

// RadioConfig holds the RF parameters
type RadioConfig struct {
	Channel int  `yaml:"channel"`
	Hop     bool `yaml:"hop"`
	// Power in 0.25dBm steps
	Power int `yaml:"power"`
}

// TimingConfig holds the pauses of the hop cycle, written as Go durations
// ("5s", "100ms")
type TimingConfig struct {
	Dwell   time.Duration `yaml:"dwell"`
	Settle  time.Duration `yaml:"settle"`
	Startup time.Duration `yaml:"startup"`
}

// FloodConfig holds frame flood settings
type FloodConfig struct {
	Frames int           `yaml:"frames"`
	Yield  time.Duration `yaml:"yield"`
}

// StorageConfig locates the key/value store
type StorageConfig struct {
	Path           string `yaml:"path"`
	Pages          int    `yaml:"pages"`
	EntriesPerPage int    `yaml:"entriesPerPage"`
	// Persist keeps register snapshots across runs (rfcat only)
	Persist bool `yaml:"persist"`
}

// LogConfig controls the optional rotating log file
type LogConfig struct {
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"maxSizeMb"`
	MaxBackups int    `yaml:"maxBackups"`
	MaxAgeDays int    `yaml:"maxAgeDays"`
	Compress   bool   `yaml:"compress"`
	TUI        bool   `yaml:"tui"`
}

// Default returns the stock CW plan: carrier on
// channel 1 at 20dBm, hopping every 5s.
func Default() *Config {
	return &Config{
		Mode: rftest.ContinuousCarrier.String(),
		Backend: BackendConfig{
			Type:  BackendRFCat,
			SPI:   "/dev/spidev0.0",
			CEPin: "GPIO25",
			Baud:  115200,
		},
		Radio: RadioConfig{
			Channel: rftest.DefaultStartChannel,
			Hop:     true,
			Power:   rftest.DefaultMaxTxPower,
		},
		Timing: TimingConfig{
			Dwell:   rftest.DefaultDwell,
			Settle:  rftest.DefaultSettle,
			Startup: rftest.DefaultStartup,
		},
		Flood: FloodConfig{
			Yield: rftest.DefaultFloodYield,
		},
		Storage: StorageConfig{
			Path:           DefaultStoragePath,
			Pages:          4,
			EntriesPerPage: 126,
		},
		Log: LogConfig{
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
	}
}

// Override adjusts a plan after the file and environment are applied
type Override func(*Config)

// Load builds a plan from defaults, the YAML file at path (skipped when
// empty), the GOCW_* environment read through getenv (os.Getenv when nil)
// and overrides, in that order, then validates it.
func Load(path string, getenv func(string) string, overrides ...Override) (*Config, error) {
	cfg := Default()

	if path != "" {
		if err := loadInto(cfg, path); err != nil {
			return nil, err
		}
	}

	if getenv == nil {
		getenv = os.Getenv
	}
	if err := cfg.ApplyEnv(getenv); err != nil {
		return nil, err
	}

	for _, override := range overrides {
		override(cfg)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// ApplyEnv applies overrides read through getenv
func (c *Config) ApplyEnv(getenv func(string) string) error {
	if v := getenv(EnvMode); v != "" {
		c.Mode = v
	}
	if v := getenv(EnvBackend); v != "" {
		c.Backend.Type = v
	}
	if v := getenv(EnvDwell); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%w: %s=%q", ErrInvalidEnv, EnvDwell, v)
		}
		c.Timing.Dwell = d
	}

	ints := []struct {
		name string
		dst  *int
	}{
		{EnvChannel, &c.Radio.Channel},
		{EnvPower, &c.Radio.Power},
	}
	for _, o := range ints {
		v := getenv(o.name)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: %s=%q", ErrInvalidEnv, o.name, v)
		}
		*o.dst = n
	}
	return nil
}

// Validate checks the plan, including everything the controller checks
func (c *Config) Validate() error {
	switch c.Backend.Type {
	case BackendRFCat, BackendNRF24, BackendESPCert:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownBackend, c.Backend.Type)
	}

	if c.Storage.Pages < 2 || c.Storage.EntriesPerPage < 1 {
		return fmt.Errorf("%w: %d pages of %d entries", ErrInvalidStorage, c.Storage.Pages, c.Storage.EntriesPerPage)
	}

	cc, err := c.ToControllerConfig()
	if err != nil {
		return err
	}
	if err := cc.Validate(); err != nil {
		return err
	}

	if cc.Mode == rftest.FrameFlood && c.Backend.Type == BackendESPCert {
		return fmt.Errorf("%w: %s cannot inject frames", rftest.ErrUnsupported, BackendESPCert)
	}
	return nil
}

// ToControllerConfig converts the plan into controller parameters
func (c *Config) ToControllerConfig() (*rftest.Config, error) {
	mode, err := rftest.ParseEmissionMode(c.Mode)
	if err != nil {
		return nil, err
	}

	cc := rftest.DefaultConfig()
	cc.Mode = mode
	cc.StartChannel = c.Radio.Channel
	cc.Hop = c.Radio.Hop
	cc.MaxTxPower = c.Radio.Power
	cc.Dwell = c.Timing.Dwell
	cc.Settle = c.Timing.Settle
	cc.Startup = c.Timing.Startup
	cc.FloodFrames = c.Flood.Frames
	cc.FloodYield = c.Flood.Yield
	return cc, nil
}
