// Package nrf24 drives an nRF24L01+ over SPI as the radio of an RF test run.
// The chip has a native constant-carrier test mode (RF_SETUP.CONT_WAVE), so
// continuous emission needs no packet tricks.
package nrf24

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"periph.io/x/conn/v3/driver/driverreg"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/host/v3"

	"github.com/herlein/gocw/pkg/rftest"
)

var (
	ErrNoChip        = errors.New("nrf24: no response from chip")
	ErrPinNotFound   = errors.New("nrf24: CE pin not found")
	ErrTxFull        = errors.New("nrf24: TX FIFO full")
	ErrPayloadLength = errors.New("nrf24: payload must be 1..32 bytes")
	ErrNotStarted    = errors.New("nrf24: radio not started")
	ErrCarrierActive = errors.New("nrf24: carrier is active")
)

// bus is the SPI transaction primitive; spi.Conn implements it
type bus interface {
	Tx(w, r []byte) error
}

// pin is the CE line; gpio.PinOut implements it
type pin interface {
	Out(l gpio.Level) error
}

// Radio implements rftest.Radio, rftest.CarrierPHY and rftest.Injector
type Radio struct {
	spi   bus
	ce    pin
	port  spi.PortCloser
	sleep func(time.Duration)

	mu      sync.Mutex
	rfSetup uint8
	channel int
	started bool
	carrier bool
}

// Open initialises the periph host drivers and connects to spiDev with
// the CE line on cePin, e.g. Open("/dev/spidev0.0", "GPIO25").
func Open(spiDev, cePin string) (*Radio, error) {
	if _, err := host.Init(); err != nil {
		return nil, err
	}
	if _, err := driverreg.Init(); err != nil {
		return nil, err
	}

	port, err := spireg.Open(spiDev)
	if err != nil {
		return nil, err
	}

	conn, err := port.Connect(8*physic.MegaHertz, spi.Mode0, 8)
	if err != nil {
		port.Close()
		return nil, err
	}

	ce := gpioreg.ByName(cePin)
	if ce == nil {
		port.Close()
		return nil, fmt.Errorf("%w: %s", ErrPinNotFound, cePin)
	}
	if err := ce.Out(gpio.Low); err != nil {
		port.Close()
		return nil, err
	}

	r := newRadio(conn, ce)
	r.port = port
	return r, nil
}

func newRadio(b bus, ce pin) *Radio {
	return &Radio{spi: b, ce: ce, sleep: time.Sleep}
}

// Close drops CE, powers the chip down and releases the SPI port
func (r *Radio) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.ce.Out(gpio.Low)
	r.writeRegister(RegRFSetup, r.rfSetup&^(RFSetupContWave|RFSetupPLLLock))
	r.writeRegister(RegConfig, ConfigEnCRC)
	r.carrier = false
	r.started = false

	if r.port != nil {
		return r.port.Close()
	}
	return nil
}

func (r *Radio) readRegister(reg uint8) (uint8, error) {
	w := []byte{CmdRRegister | reg, CmdNOP}
	rd := make([]byte, len(w))
	if err := r.spi.Tx(w, rd); err != nil {
		return 0, err
	}
	return rd[1], nil
}

func (r *Radio) writeRegister(reg uint8, value ...uint8) error {
	w := append([]byte{CmdWRegister | reg}, value...)
	return r.spi.Tx(w, make([]byte, len(w)))
}

// status issues a NOP and returns STATUS
func (r *Radio) status() (uint8, error) {
	rd := make([]byte, 1)
	if err := r.spi.Tx([]byte{CmdNOP}, rd); err != nil {
		return 0, err
	}
	return rd[0], nil
}

func (r *Radio) command(cmd uint8) error {
	return r.spi.Tx([]byte{cmd}, make([]byte, 1))
}

// Init configures a PTX without auto-ack or retransmit and powers up the chip
func (r *Radio) Init(cfg rftest.RadioInit) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.ce.Out(gpio.Low); err != nil {
		return err
	}

	config := uint8(ConfigEnCRC | ConfigPwrUp)
	if err := r.writeRegister(RegConfig, config); err != nil {
		return err
	}

	// A missing chip reads back as all zeros or all ones
	got, err := r.readRegister(RegConfig)
	if err != nil {
		return err
	}
	if got != config {
		return fmt.Errorf("%w: CONFIG read back 0x%02X", ErrNoChip, got)
	}

	r.rfSetup = RFSetupDRHigh | RFSetupPwrMask
	steps := []struct {
		reg   uint8
		value uint8
	}{
		{RegEnAA, 0x00},
		{RegSetupRetr, 0x00},
		{RegRFSetup, r.rfSetup},
		{RegStatus, statusClear},
	}
	for _, s := range steps {
		if err := r.writeRegister(s.reg, s.value); err != nil {
			return err
		}
	}
	if err := r.command(CmdFlushTx); err != nil {
		return err
	}

	// Tpd2stby
	r.sleep(2 * time.Millisecond)
	return nil
}

// SetStorageMode accepts RAM only; the chip has no persistent configuration
func (r *Radio) SetStorageMode(mode rftest.StorageMode) error {
	if mode != rftest.StorageRAM {
		return fmt.Errorf("%w: storage mode %s", rftest.ErrUnsupported, mode)
	}
	return nil
}

// SetMode accepts station (PTX) only
func (r *Radio) SetMode(mode rftest.RadioMode) error {
	if mode != rftest.ModeStation {
		return fmt.Errorf("%w: mode %s", rftest.ErrUnsupported, mode)
	}
	return nil
}

// SetPowerSave powers the chip down (true) or up (false)
func (r *Radio) SetPowerSave(enabled bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	config := uint8(ConfigEnCRC | ConfigPwrUp)
	if enabled {
		config = ConfigEnCRC
	}
	return r.writeRegister(RegConfig, config)
}

// PowerLevel maps dBm onto the RF_PWR field: 0dBm, -6, -12, -18
func PowerLevel(dBm float64) uint8 {
	switch {
	case dBm >= 0:
		return 3
	case dBm >= -6:
		return 2
	case dBm >= -12:
		return 1
	default:
		return 0
	}
}

// SetMaxTxPower sets RF_PWR from a 0.25dBm index; the chip tops out at 0dBm
func (r *Radio) SetMaxTxPower(index int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	level := PowerLevel(rftest.PowerDBm(index))
	r.rfSetup = (r.rfSetup &^ RFSetupPwrMask) | level<<1
	return r.writeRegister(RegRFSetup, r.rfSetup)
}

// SetChannel writes RF_CH = MHz - 2400
func (r *Radio) SetChannel(channel int, secondary rftest.SecondaryChannel) error {
	if secondary != rftest.SecondaryNone {
		return fmt.Errorf("%w: secondary channel %s", rftest.ErrUnsupported, secondary)
	}
	if !rftest.ValidChannel(channel) {
		return fmt.Errorf("%w: %d", rftest.ErrInvalidChannel, channel)
	}

	rfCh := rftest.FrequencyMHz(channel) - BaseFrequencyMHz
	if rfCh < 0 || rfCh > MaxChannel {
		return fmt.Errorf("%w: RF_CH %d", rftest.ErrInvalidChannel, rfCh)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.writeRegister(RegRFCh, uint8(rfCh)); err != nil {
		return err
	}
	r.channel = channel
	return nil
}

// Start marks the radio ready; Init already left it in standby-I
func (r *Radio) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.started = true
	return nil
}

// SetContinuousEmission toggles the constant carrier test mode
func (r *Radio) SetContinuousEmission(enabled bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.started {
		return ErrNotStarted
	}

	if !enabled {
		if err := r.ce.Out(gpio.Low); err != nil {
			return err
		}
		r.rfSetup &^= RFSetupContWave | RFSetupPLLLock
		r.carrier = false
		return r.writeRegister(RegRFSetup, r.rfSetup)
	}

	r.rfSetup |= RFSetupContWave | RFSetupPLLLock
	if err := r.writeRegister(RegRFSetup, r.rfSetup); err != nil {
		return err
	}
	if err := r.ce.Out(gpio.High); err != nil {
		return err
	}
	r.carrier = true
	return nil
}

// TransmitRaw loads frame into the TX FIFO and pulses CE. Frames longer
// than one payload are rejected.
func (r *Radio) TransmitRaw(iface rftest.Interface, frame []byte, useQoS bool) error {
	if len(frame) == 0 || len(frame) > MaxPayload {
		return fmt.Errorf("%w: %d", ErrPayloadLength, len(frame))
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.started {
		return ErrNotStarted
	}
	if r.carrier {
		return ErrCarrierActive
	}

	status, err := r.status()
	if err != nil {
		return err
	}
	if status&StatusTxFull != 0 {
		r.writeRegister(RegStatus, statusClear)
		r.command(CmdFlushTx)
		return ErrTxFull
	}

	w := append([]byte{CmdWTxPayload}, frame...)
	if err := r.spi.Tx(w, make([]byte, len(w))); err != nil {
		return err
	}

	// Thce is 10us minimum
	if err := r.ce.Out(gpio.High); err != nil {
		return err
	}
	r.sleep(15 * time.Microsecond)
	if err := r.ce.Out(gpio.Low); err != nil {
		return err
	}

	return r.writeRegister(RegStatus, statusClear)
}

// Channel returns the tuned channel
func (r *Radio) Channel() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.channel
}
