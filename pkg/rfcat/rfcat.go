// Package rfcat drives a CC2510/CC2511 rfcat dongle as the radio of an RF
// test run: bring-up, 2.4GHz channel tuning, an unmodulated carrier built
// from synchronous serial mode, and raw frame transmit.
package rfcat

import (
	"errors"
	"fmt"
	"hash/fnv"
	"sync"
	"time"

	"github.com/herlein/gocw/pkg/registers"
	"github.com/herlein/gocw/pkg/rftest"
	"github.com/herlein/gocw/pkg/yardstick"
)

var (
	// ErrUnsupportedChip indicates a dongle without a 2.4GHz radio
	ErrUnsupportedChip = errors.New("rfcat: dongle has no 2.4GHz radio")

	// ErrNotStarted indicates a call that needs Init and Start first
	ErrNotStarted = errors.New("rfcat: radio not started")

	// ErrCarrierActive indicates a transmit while the carrier is on
	ErrCarrierActive = errors.New("rfcat: carrier is active")

	// ErrNoSnapshotStore indicates Flash storage mode without a store
	ErrNoSnapshotStore = errors.New("rfcat: flash storage mode needs a snapshot store")
)

// Device is the dongle interface the backend needs; *yardstick.Device
// implements it.
type Device interface {
	registers.Memory
	GetPartNum() (uint8, error)
	RFXmit(data []byte, repeat uint16, offset uint16) error
}

// ledDevice is implemented by dongles whose firmware drives an LED
type ledDevice interface {
	SetLEDMode(mode uint8) error
}

// txSettle bounds the wait for MARCSTATE to reach TX after the strobe
const txSettle = 100 * time.Millisecond

// SnapshotStore persists register snapshots; *nvs.Store implements it
type SnapshotStore interface {
	SetValue(namespace, key string, v interface{}) error
	GetValue(namespace, key string, v interface{}) error
	Delete(namespace, key string) error
}

// SnapshotNamespace is the store namespace of register snapshots
const SnapshotNamespace = "rfcat"

// SnapshotKey returns the store key for a dongle serial: "snap-" and 40
// bits of its FNV-1a hash, to fit the 15 byte key limit of the store
func SnapshotKey(serial string) string {
	h := fnv.New64a()
	h.Write([]byte(serial))
	return fmt.Sprintf("snap-%010x", h.Sum64()>>24)
}

// Option configures a Radio
type Option func(*Radio)

// WithSnapshotStore persists the pre-test register snapshot under key when
// the storage mode is Flash.
func WithSnapshotStore(store SnapshotStore, key string) Option {
	return func(r *Radio) {
		r.store = store
		r.storeKey = key
	}
}

// Radio implements rftest.Radio, rftest.CarrierPHY and rftest.Injector
type Radio struct {
	dev      Device
	store    SnapshotStore
	storeKey string

	mu       sync.Mutex
	partNum  uint8
	crystal  uint32
	snapshot *registers.Snapshot
	channel  int
	started  bool
	carrier  bool
}

// New wraps dev
func New(dev Device, opts ...Option) *Radio {
	r := &Radio{dev: dev, storeKey: SnapshotKey("default")}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Init checks the part and captures the register snapshot restored on
// Close. With a snapshot store the snapshot is also persisted.
func (r *Radio) Init(cfg rftest.RadioInit) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	partNum, err := r.dev.GetPartNum()
	if err != nil {
		return err
	}
	if !yardstick.Is24GHz(partNum) {
		return fmt.Errorf("%w: %s", ErrUnsupportedChip, yardstick.ChipName(partNum))
	}

	snapshot, err := registers.TakeSnapshot(r.dev)
	if err != nil {
		return fmt.Errorf("failed to snapshot registers: %w", err)
	}

	r.partNum = partNum
	r.crystal = yardstick.CrystalHz(partNum)
	r.snapshot = snapshot

	// Kept for "gocw restore" if the process dies with the carrier on
	if r.store != nil {
		if err := r.store.SetValue(SnapshotNamespace, r.storeKey, snapshot); err != nil {
			return fmt.Errorf("failed to persist snapshot: %w", err)
		}
	}
	return nil
}

// SetStorageMode keeps the snapshot in memory (RAM) or also persists it (Flash)
func (r *Radio) SetStorageMode(mode rftest.StorageMode) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if mode != rftest.StorageFlash {
		return nil
	}
	if r.store == nil {
		return ErrNoSnapshotStore
	}
	if r.snapshot == nil {
		return ErrNotStarted
	}
	if err := r.store.SetValue(SnapshotNamespace, r.storeKey, r.snapshot); err != nil {
		return fmt.Errorf("failed to persist snapshot: %w", err)
	}
	return nil
}

// SetMode accepts only station mode; the dongle has no AP role
func (r *Radio) SetMode(mode rftest.RadioMode) error {
	if mode != rftest.ModeStation {
		return fmt.Errorf("%w: mode %s", rftest.ErrUnsupported, mode)
	}
	return nil
}

// SetPowerSave accepts only false; the CC251x has no duty-cycled receive here
func (r *Radio) SetPowerSave(enabled bool) error {
	if enabled {
		return fmt.Errorf("%w: power save", rftest.ErrUnsupported)
	}
	return nil
}

// SetMaxTxPower maps the 0.25dBm index onto PA_TABLE0. The part saturates
// at +1dBm.
func (r *Radio) SetMaxTxPower(index int) error {
	pa := registers.PAValue(rftest.PowerDBm(index))

	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.dev.PokeByte(registers.RegPA_TABLE0, pa.Value); err != nil {
		return err
	}

	// FREND0.PA_POWER selects PA_TABLE0
	frend0, err := r.dev.PeekByte(registers.RegFREND0)
	if err != nil {
		return err
	}
	return r.dev.PokeByte(registers.RegFREND0, frend0&^0x07)
}

// SetChannel idles the radio and tunes FREQ2..0 to the Wi-Fi channel centre
func (r *Radio) SetChannel(channel int, secondary rftest.SecondaryChannel) error {
	if secondary != rftest.SecondaryNone {
		return fmt.Errorf("%w: secondary channel %s", rftest.ErrUnsupported, secondary)
	}
	if !rftest.ValidChannel(channel) {
		return fmt.Errorf("%w: %d", rftest.ErrInvalidChannel, channel)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.crystal == 0 {
		return ErrNotStarted
	}

	if err := registers.SetIDLE(r.dev); err != nil {
		return err
	}

	word := registers.FrequencyWord(rftest.FrequencyHz(channel), r.crystal)
	if err := r.dev.Poke(registers.RegFREQ2, word[:]); err != nil {
		return err
	}
	if err := r.dev.PokeByte(registers.RegCHANNR, 0); err != nil {
		return err
	}

	r.channel = channel
	return registers.Strobe(r.dev, registers.StrobeSCAL)
}

// Start calibrates the synthesizer on the programmed channel
func (r *Radio) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.snapshot == nil {
		return ErrNotStarted
	}
	if err := registers.Strobe(r.dev, registers.StrobeSCAL); err != nil {
		return err
	}
	r.started = true
	return nil
}

// SetContinuousEmission turns the unmodulated carrier on or off. The carrier
// is zero-deviation 2-FSK in synchronous serial, infinite length mode, so the
// modulator never sees data.
func (r *Radio) SetContinuousEmission(enabled bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.started {
		return ErrNotStarted
	}

	if !enabled {
		if err := registers.SetIDLE(r.dev); err != nil {
			return err
		}
		saved := &r.snapshot.Registers
		if err := r.dev.PokeByte(registers.RegPKTCTRL0, saved.PKTCTRL0); err != nil {
			return err
		}
		if err := r.dev.PokeByte(registers.RegMDMCFG2, saved.MDMCFG2); err != nil {
			return err
		}
		if err := r.dev.PokeByte(registers.RegDEVIATN, saved.DEVIATN); err != nil {
			return err
		}
		r.carrier = false
		r.setLED(yardstick.LEDModeOff)
		return nil
	}

	mdmcfg2, err := r.dev.PeekByte(registers.RegMDMCFG2)
	if err != nil {
		return err
	}
	reg := registers.RegisterMap{MDMCFG2: mdmcfg2}
	registers.SetModulation(&reg, registers.Mod2FSK)
	registers.SetSyncMode(&reg, registers.SyncNone)

	if err := r.dev.PokeByte(registers.RegMDMCFG2, reg.MDMCFG2); err != nil {
		return err
	}
	if err := r.dev.PokeByte(registers.RegDEVIATN, 0x00); err != nil {
		return err
	}
	if err := r.dev.PokeByte(registers.RegPKTCTRL0, registers.PktFormatSerial|registers.PktLenInfinite); err != nil {
		return err
	}
	if err := registers.SetTX(r.dev); err != nil {
		return err
	}
	if err := registers.WaitForState(r.dev, registers.StateTX, txSettle); err != nil {
		return err
	}

	r.carrier = true
	r.setLED(yardstick.LEDModeOn)
	return nil
}

// setLED mirrors the carrier on the dongle LED; failures are ignored
func (r *Radio) setLED(mode uint8) {
	if led, ok := r.dev.(ledDevice); ok {
		_ = led.SetLEDMode(mode)
	}
}

// TransmitRaw sends one frame through the firmware NIC transmit path
func (r *Radio) TransmitRaw(iface rftest.Interface, frame []byte, useQoS bool) error {
	r.mu.Lock()
	started, carrier := r.started, r.carrier
	r.mu.Unlock()

	if !started {
		return ErrNotStarted
	}
	if carrier {
		return ErrCarrierActive
	}
	if iface != rftest.InterfaceStation {
		return fmt.Errorf("%w: interface %d", rftest.ErrUnsupported, iface)
	}
	return r.dev.RFXmit(frame, 0, 0)
}

// Channel returns the tuned channel, 0 before the first SetChannel
func (r *Radio) Channel() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.channel
}

// Close stops any carrier and restores the registers captured by Init. The
// persisted snapshot is dropped once the dongle is back to it.
func (r *Radio) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.snapshot == nil {
		return nil
	}
	if r.carrier {
		r.setLED(yardstick.LEDModeOff)
	}
	r.carrier = false
	r.started = false
	if err := r.snapshot.Restore(r.dev); err != nil {
		return err
	}
	if r.store != nil {
		return r.store.Delete(SnapshotNamespace, r.storeKey)
	}
	return nil
}

// RestoreSnapshot writes the snapshot persisted under key back to dev and
// removes it from the store
func RestoreSnapshot(dev registers.Memory, store SnapshotStore, key string) (*registers.Snapshot, error) {
	snapshot, err := LoadSnapshot(store, key)
	if err != nil {
		return nil, err
	}
	if err := snapshot.Restore(dev); err != nil {
		return nil, err
	}
	if err := store.Delete(SnapshotNamespace, key); err != nil {
		return snapshot, err
	}
	return snapshot, nil
}

// LoadSnapshot reads the snapshot persisted under key
func LoadSnapshot(store SnapshotStore, key string) (*registers.Snapshot, error) {
	var snapshot registers.Snapshot
	if err := store.GetValue(SnapshotNamespace, key, &snapshot); err != nil {
		return nil, err
	}
	return &snapshot, nil
}
