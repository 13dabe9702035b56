package rftest

import "fmt"

// Storage is the persistent key/value storage bootstrap.
// Init returns an error wrapping ErrNoFreePages or ErrVersionMismatch when an
// erase is expected to recover it.
type Storage interface {
	Init() error
	Erase() error
}

// StorageMode selects where the radio keeps its own configuration
type StorageMode uint8

const (
	StorageRAM StorageMode = iota
	StorageFlash
)

func (m StorageMode) String() string {
	switch m {
	case StorageRAM:
		return "RAM"
	case StorageFlash:
		return "Flash"
	default:
		return fmt.Sprintf("Unknown(%d)", uint8(m))
	}
}

// RadioMode is the operating role of the radio
type RadioMode uint8

const (
	ModeStation RadioMode = iota
	ModeAccessPoint
)

func (m RadioMode) String() string {
	switch m {
	case ModeStation:
		return "Station"
	case ModeAccessPoint:
		return "AccessPoint"
	default:
		return fmt.Sprintf("Unknown(%d)", uint8(m))
	}
}

// Interface identifies the logical network interface used for injection
type Interface uint8

const (
	InterfaceStation Interface = iota
	InterfaceAccessPoint
)

// RadioInit carries the one-time radio bring-up parameters. The radios
// driven here take none; backends read their own settings at Open.
type RadioInit struct{}

// Radio is the radio subsystem owned by the controller for its lifetime
type Radio interface {
	Init(cfg RadioInit) error
	SetStorageMode(mode StorageMode) error
	SetMode(mode RadioMode) error
	SetPowerSave(enabled bool) error
	// SetMaxTxPower takes the power in 0.25dBm steps (80 = 20dBm)
	SetMaxTxPower(index int) error
	SetChannel(channel int, secondary SecondaryChannel) error
	Start() error
}

// CarrierPHY is the PHY test primitive that emits an unmodulated carrier
// on the current channel. The carrier must be disabled before changing channel.
type CarrierPHY interface {
	SetContinuousEmission(enabled bool) error
}

// Injector transmits raw frames, bypassing the normal MAC path
type Injector interface {
	TransmitRaw(iface Interface, frame []byte, useQoS bool) error
}

// Console receives human-readable operator lines
type Console interface {
	Printf(format string, args ...interface{})
}

// Observer receives controller events. Observe is called synchronously from
// the controller goroutine and must not block.
type Observer interface {
	Observe(event Event)
}

// ObserverFunc adapts a function to Observer
type ObserverFunc func(event Event)

// Observe calls f(event)
func (f ObserverFunc) Observe(event Event) {
	f(event)
}

// discardConsole drops all output
type discardConsole struct{}

func (discardConsole) Printf(string, ...interface{}) {}
