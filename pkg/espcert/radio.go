// Package espcert drives an ESP32 running the RF certification test console
// as the radio of an RF test run. The firmware has a carrier command but no
// raw transmit, so only continuous-carrier runs are possible.
package espcert

import (
	"context"
	"fmt"
	"sync"

	"github.com/herlein/gocw/pkg/rftest"
)

// Console commands
const (
	CmdStop    = "cmdstop"
	CmdCWOut   = "wifiscwout"
	MaxTxIndex = 80
)

// Attenuation converts a 0.25dBm power index to the console's attenuation
// argument, in 0.25dB steps below full power.
func Attenuation(index int) int {
	if index >= MaxTxIndex {
		return 0
	}
	return MaxTxIndex - index
}

// CWCommand formats the carrier command line
func CWCommand(enable bool, channel, attenuation int) string {
	en := 0
	if enable {
		en = 1
	}
	return fmt.Sprintf("%s %d %d %d", CmdCWOut, en, channel, attenuation)
}

// Radio implements rftest.Radio and rftest.CarrierPHY
type Radio struct {
	console *Console

	mu          sync.Mutex
	channel     int
	attenuation int
	started     bool
	carrier     bool
}

// New wraps a console
func New(console *Console) *Radio {
	return &Radio{console: console, channel: rftest.DefaultStartChannel}
}

func (r *Radio) exec(command string) error {
	_, err := r.console.Exec(context.Background(), command)
	return err
}

// Init stops whatever test the firmware is running
func (r *Radio) Init(cfg rftest.RadioInit) error {
	return r.exec(CmdStop)
}

// SetStorageMode accepts RAM only
func (r *Radio) SetStorageMode(mode rftest.StorageMode) error {
	if mode != rftest.StorageRAM {
		return fmt.Errorf("%w: storage mode %s", rftest.ErrUnsupported, mode)
	}
	return nil
}

// SetMode accepts station only
func (r *Radio) SetMode(mode rftest.RadioMode) error {
	if mode != rftest.ModeStation {
		return fmt.Errorf("%w: mode %s", rftest.ErrUnsupported, mode)
	}
	return nil
}

// SetPowerSave accepts false only; the test firmware never sleeps
func (r *Radio) SetPowerSave(enabled bool) error {
	if enabled {
		return fmt.Errorf("%w: power save", rftest.ErrUnsupported)
	}
	return nil
}

func (r *Radio) SetMaxTxPower(index int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.attenuation = Attenuation(index)
	return nil
}

// SetChannel records the channel; it takes effect with the next carrier command
func (r *Radio) SetChannel(channel int, secondary rftest.SecondaryChannel) error {
	if secondary != rftest.SecondaryNone {
		return fmt.Errorf("%w: secondary channel %s", rftest.ErrUnsupported, secondary)
	}
	if !rftest.ValidChannel(channel) {
		return fmt.Errorf("%w: %d", rftest.ErrInvalidChannel, channel)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.channel = channel
	return nil
}

func (r *Radio) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.started = true
	return nil
}

// SetContinuousEmission starts or stops the carrier on the current channel
func (r *Radio) SetContinuousEmission(enabled bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.started {
		return ErrNotStarted
	}

	if err := r.exec(CWCommand(enabled, r.channel, r.attenuation)); err != nil {
		return err
	}
	r.carrier = enabled
	return nil
}

// Channel returns the current channel
func (r *Radio) Channel() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.channel
}

// Close stops any running test and closes the console
func (r *Radio) Close() error {
	r.mu.Lock()
	carrier := r.carrier
	r.carrier = false
	r.started = false
	r.mu.Unlock()

	if carrier {
		r.exec(CmdStop)
	}
	return r.console.Close()
}
