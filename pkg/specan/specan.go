// Package specan runs the rfcat firmware spectrum sweep on a second dongle
// to see which 2.4GHz channel a test run is emitting on.
package specan

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/herlein/gocw/pkg/registers"
	"github.com/herlein/gocw/pkg/rftest"
	"github.com/herlein/gocw/pkg/yardstick"
)

var (
	ErrUnsupportedChip = errors.New("specan: dongle has no 2.4GHz radio")
	ErrRunning         = errors.New("specan: already running")
	ErrNotConfigured   = errors.New("specan: not configured")
	ErrSpacing         = errors.New("specan: channel spacing out of range")
)

// Device is the dongle interface the sweep needs; *yardstick.Device
// implements it.
type Device interface {
	registers.Memory
	GetPartNum() (uint8, error)
	Send(app uint8, cmd uint8, payload []byte, timeout time.Duration) ([]byte, error)
	Recv(app uint8, cmd uint8, timeout time.Duration) ([]byte, error)
}

// Band sweep covering channels 1..14
const (
	BandStartHz = 2407000000
	BandEndHz   = 2489000000
	MaxBins     = 255
)

// Frame is one sweep
type Frame struct {
	Timestamp time.Time
	BaseHz    uint32
	SpacingHz uint32
	RSSI      []float32 // dBm per bin
}

// FrequencyHz returns the centre of bin i
func (f *Frame) FrequencyHz(i int) uint32 {
	return f.BaseHz + uint32(i)*f.SpacingHz
}

// SpecAn drives the firmware sweep
type SpecAn struct {
	dev Device

	mu        sync.Mutex
	baseHz    uint32
	spacingHz uint32
	bins      uint8
	running   bool
	stop      context.CancelFunc
	done      chan struct{}
}

func New(dev Device) *SpecAn {
	return &SpecAn{dev: dev}
}

// SpacingParams finds CHANSPC_E and CHANSPC_M closest to spacingHz:
// spacing = crystal / 2^18 * (256 + M) * 2^E
func SpacingParams(spacingHz, crystalHz uint32) (e, m uint8, err error) {
	target := float64(spacingHz)
	bestErr := math.Inf(1)

	for exp := uint8(0); exp < 4; exp++ {
		mant := target*float64(uint32(1)<<18)/(float64(crystalHz)*float64(uint32(1)<<exp)) - 256
		if mant < 0 || mant > 255.5 {
			continue
		}
		rounded := uint8(math.Min(math.Round(mant), 255))
		diff := math.Abs(float64(SpacingHz(exp, rounded, crystalHz)) - target)
		if diff < bestErr {
			bestErr, e, m = diff, exp, rounded
		}
	}
	if math.IsInf(bestErr, 1) {
		return 0, 0, fmt.Errorf("%w: %d Hz", ErrSpacing, spacingHz)
	}
	return e, m, nil
}

// SpacingHz evaluates the channel spacing registers
func SpacingHz(e, m uint8, crystalHz uint32) uint32 {
	return uint32((uint64(crystalHz) * uint64(256+uint32(m)) << e) >> 18)
}

// Configure tunes the dongle to sweep the 2.4GHz channel plan
func (s *SpecAn) Configure() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return ErrRunning
	}

	partNum, err := s.dev.GetPartNum()
	if err != nil {
		return err
	}
	if !yardstick.Is24GHz(partNum) {
		return fmt.Errorf("%w: %s", ErrUnsupportedChip, yardstick.ChipName(partNum))
	}
	crystal := yardstick.CrystalHz(partNum)

	e, m, err := SpacingParams((BandEndHz-BandStartHz)/MaxBins, crystal)
	if err != nil {
		return err
	}

	reg, err := registers.ReadAllRegisters(s.dev)
	if err != nil {
		return fmt.Errorf("failed to read registers: %w", err)
	}
	registers.SetFrequency(reg, BandStartHz, crystal)
	reg.CHANNR = 0
	reg.MDMCFG1 = (reg.MDMCFG1 &^ 0x03) | e
	reg.MDMCFG0 = m

	if err := registers.SetIDLE(s.dev); err != nil {
		return err
	}
	if err := registers.WriteAllRegisters(s.dev, reg); err != nil {
		return fmt.Errorf("failed to write registers: %w", err)
	}

	s.baseHz = registers.GetFrequency(reg, crystal)
	s.spacingHz = SpacingHz(e, m, crystal)
	s.bins = MaxBins
	return nil
}

// Start begins sweeping. Frames arrive on the returned channel, which is
// closed when ctx ends or Stop is called.
func (s *SpecAn) Start(ctx context.Context) (<-chan *Frame, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return nil, ErrRunning
	}
	if s.bins == 0 {
		return nil, ErrNotConfigured
	}

	if _, err := s.dev.Send(yardstick.AppNIC, yardstick.NICSpecStart, []byte{s.bins}, yardstick.USBDefaultTimeout); err != nil {
		return nil, fmt.Errorf("failed to start sweep: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	frames := make(chan *Frame, 10)
	s.running = true
	s.stop = cancel
	s.done = make(chan struct{})

	go s.receiveLoop(ctx, frames)
	return frames, nil
}

// Stop ends the sweep and waits for the receiver
func (s *SpecAn) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	s.stop()
	done := s.done
	s.mu.Unlock()

	<-done

	if _, err := s.dev.Send(yardstick.AppNIC, yardstick.NICSpecStop, nil, yardstick.USBDefaultTimeout); err != nil {
		return fmt.Errorf("failed to stop sweep: %w", err)
	}
	return nil
}

// RSSIToDBm converts the firmware's raw RSSI byte
func RSSIToDBm(raw uint8) float32 {
	return float32(int8(raw^0x80))/2.0 - 88.0
}

func (s *SpecAn) receiveLoop(ctx context.Context, frames chan<- *Frame) {
	defer close(s.done)
	defer close(frames)

	for ctx.Err() == nil {
		data, err := s.dev.Recv(yardstick.AppSPECAN, yardstick.SpecanQueue, time.Second)
		if err != nil || len(data) == 0 {
			// timeouts are expected between sweeps
			continue
		}

		frame := &Frame{
			Timestamp: time.Now(),
			BaseHz:    s.baseHz,
			SpacingHz: s.spacingHz,
			RSSI:      make([]float32, len(data)),
		}
		for i, raw := range data {
			frame.RSSI[i] = RSSIToDBm(raw)
		}

		select {
		case frames <- frame:
		case <-ctx.Done():
			return
		default:
			// consumer is behind
		}
	}
}

// BinForChannel returns the bin nearest the centre of a 2.4GHz channel
func BinForChannel(frame *Frame, channel int) int {
	if frame.SpacingHz == 0 || !rftest.ValidChannel(channel) {
		return -1
	}
	freq := rftest.FrequencyHz(channel)
	if freq < frame.BaseHz {
		return -1
	}
	bin := int((freq - frame.BaseHz + frame.SpacingHz/2) / frame.SpacingHz)
	if bin >= len(frame.RSSI) {
		return -1
	}
	return bin
}
