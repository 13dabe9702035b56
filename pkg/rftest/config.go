package rftest

import (
	"fmt"
	"strings"
	"time"
)

// EmissionMode selects the emission strategy
type EmissionMode uint8

const (
	ContinuousCarrier EmissionMode = iota
	FrameFlood
)

func (m EmissionMode) String() string {
	switch m {
	case ContinuousCarrier:
		return "cw"
	case FrameFlood:
		return "flood"
	default:
		return fmt.Sprintf("Unknown(%d)", uint8(m))
	}
}

// ParseEmissionMode accepts "cw"/"carrier" and "flood"
func ParseEmissionMode(s string) (EmissionMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "cw", "carrier", "continuous":
		return ContinuousCarrier, nil
	case "flood", "frames":
		return FrameFlood, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrInvalidMode, s)
	}
}

// Default values, taken from the CW generator firmware
const (
	DefaultStartChannel = 1
	DefaultMaxTxPower   = 80 // 20dBm
	DefaultDwell        = 5 * time.Second
	DefaultSettle       = 100 * time.Millisecond
	DefaultStartup      = 500 * time.Millisecond
	DefaultFloodYield   = 1 * time.Millisecond

	MinTxPowerIndex = 8
	MaxTxPowerIndex = 84
)

// Config holds the controller parameters
type Config struct {
	Mode         EmissionMode
	StartChannel int
	Hop          bool

	// MaxTxPower in 0.25dBm steps
	MaxTxPower int

	// Dwell is how long emission is held on a channel before hopping
	Dwell time.Duration
	// Settle is the pause on each side of a channel change
	Settle time.Duration
	// Startup is the pause between radio start and enabling emission
	Startup time.Duration

	// FloodFrames ends a flood dwell after this many frames; 0 uses Dwell
	FloodFrames int
	// FloodYield is the scheduling gap between two flood frames
	FloodYield time.Duration
	// Frame is the flood payload; nil uses TestFrame
	Frame []byte
}

// DefaultConfig returns a Config with default values
func DefaultConfig() *Config {
	return &Config{
		Mode:         ContinuousCarrier,
		StartChannel: DefaultStartChannel,
		Hop:          true,
		MaxTxPower:   DefaultMaxTxPower,
		Dwell:        DefaultDwell,
		Settle:       DefaultSettle,
		Startup:      DefaultStartup,
		FloodYield:   DefaultFloodYield,
	}
}

// Validate checks the configuration for errors
func (c *Config) Validate() error {
	if c.Mode != ContinuousCarrier && c.Mode != FrameFlood {
		return fmt.Errorf("%w: %d", ErrInvalidMode, c.Mode)
	}

	if !ValidChannel(c.StartChannel) {
		return fmt.Errorf("%w: %d", ErrInvalidChannel, c.StartChannel)
	}

	if c.MaxTxPower < MinTxPowerIndex || c.MaxTxPower > MaxTxPowerIndex {
		return fmt.Errorf("%w: %d", ErrInvalidTxPower, c.MaxTxPower)
	}

	if c.Dwell <= 0 && !(c.Mode == FrameFlood && c.FloodFrames > 0) {
		return ErrInvalidDwell
	}

	if c.Settle < 0 || c.Startup < 0 || c.FloodYield < 0 {
		return fmt.Errorf("pauses must not be negative")
	}

	if c.FloodFrames < 0 {
		return fmt.Errorf("flood frame threshold must not be negative: %d", c.FloodFrames)
	}

	if c.Frame != nil && len(c.Frame) == 0 {
		return ErrInvalidFrame
	}

	return nil
}

// PowerDBm converts a 0.25dBm power index to dBm
func PowerDBm(index int) float64 {
	return float64(index) / 4
}
