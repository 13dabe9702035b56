package specan

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/herlein/gocw/pkg/registers"
	"github.com/herlein/gocw/pkg/yardstick"
)

type sendCall struct {
	app, cmd uint8
	payload  []byte
}

// fakeDongle serves XDATA and queued sweeps
type fakeDongle struct {
	mu      sync.Mutex
	mem     [0x10000]uint8
	partNum uint8
	sweeps  [][]byte
	sends   []sendCall
}

func (d *fakeDongle) Peek(address uint16, length uint16) ([]byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]byte, length)
	copy(out, d.mem[address:int(address)+int(length)])
	return out, nil
}

func (d *fakeDongle) PeekByte(address uint16) (uint8, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.mem[address], nil
}

func (d *fakeDongle) Poke(address uint16, data []byte) error {
	for i, b := range data {
		d.PokeByte(address+uint16(i), b)
	}
	return nil
}

func (d *fakeDongle) PokeByte(address uint16, value uint8) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.mem[address] = value
	return nil
}

func (d *fakeDongle) GetPartNum() (uint8, error) {
	return d.partNum, nil
}

func (d *fakeDongle) Send(app uint8, cmd uint8, payload []byte, timeout time.Duration) ([]byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.sends = append(d.sends, sendCall{app, cmd, append([]byte(nil), payload...)})
	return nil, nil
}

func (d *fakeDongle) Recv(app uint8, cmd uint8, timeout time.Duration) ([]byte, error) {
	d.mu.Lock()
	if app == yardstick.AppSPECAN && cmd == yardstick.SpecanQueue && len(d.sweeps) > 0 {
		sweep := d.sweeps[0]
		d.sweeps = d.sweeps[1:]
		d.mu.Unlock()
		return sweep, nil
	}
	d.mu.Unlock()

	time.Sleep(5 * time.Millisecond)
	return nil, yardstick.ErrTimeout
}

func TestSpacingParams(t *testing.T) {
	tests := []struct {
		spacing uint32
		crystal uint32
	}{
		{321568, yardstick.CrystalCC251xHz},
		{321568, yardstick.CrystalCC111xHz},
		{199951, yardstick.CrystalCC251xHz},
		{50000, yardstick.CrystalCC251xHz},
	}
	for _, tt := range tests {
		e, m, err := SpacingParams(tt.spacing, tt.crystal)
		if err != nil {
			t.Fatalf("SpacingParams(%d, %d) error = %v", tt.spacing, tt.crystal, err)
		}
		got := SpacingHz(e, m, tt.crystal)
		diff := int64(got) - int64(tt.spacing)
		if diff < -1000 || diff > 1000 {
			t.Errorf("SpacingParams(%d) -> E=%d M=%d = %d Hz", tt.spacing, e, m, got)
		}
	}

	for _, spacing := range []uint32{10000, 1000000} {
		if _, _, err := SpacingParams(spacing, yardstick.CrystalCC251xHz); !errors.Is(err, ErrSpacing) {
			t.Errorf("SpacingParams(%d) error = %v, want ErrSpacing", spacing, err)
		}
	}
}

func TestConfigure(t *testing.T) {
	dev := &fakeDongle{partNum: yardstick.PartNumCC2511}
	dev.mem[registers.RegMDMCFG1] = 0x22

	s := New(dev)
	if err := s.Configure(); err != nil {
		t.Fatalf("Configure() error = %v", err)
	}

	word := yardstick.FreqWord(BandStartHz, yardstick.CrystalCC251xHz)
	freq := []uint8{dev.mem[registers.RegFREQ2], dev.mem[registers.RegFREQ1], dev.mem[registers.RegFREQ0]}
	if freq[0] != uint8(word>>16) || freq[1] != uint8(word>>8) || freq[2] != uint8(word) {
		t.Errorf("FREQ = %x, want %06x", freq, word)
	}
	if dev.mem[registers.RegCHANNR] != 0 {
		t.Errorf("CHANNR = %d, want 0", dev.mem[registers.RegCHANNR])
	}
	if dev.mem[registers.RegMDMCFG1] != 0x23 {
		t.Errorf("MDMCFG1 = 0x%02X, want 0x23", dev.mem[registers.RegMDMCFG1])
	}
	if dev.mem[registers.RegMDMCFG0] != 149 {
		t.Errorf("MDMCFG0 = %d, want 149", dev.mem[registers.RegMDMCFG0])
	}
}

func TestConfigureRejectsSubGHz(t *testing.T) {
	s := New(&fakeDongle{partNum: yardstick.PartNumCC1111})
	if err := s.Configure(); !errors.Is(err, ErrUnsupportedChip) {
		t.Errorf("Configure() error = %v, want ErrUnsupportedChip", err)
	}
}

func TestStartBeforeConfigure(t *testing.T) {
	s := New(&fakeDongle{partNum: yardstick.PartNumCC2511})
	if _, err := s.Start(testContext(t)); !errors.Is(err, ErrNotConfigured) {
		t.Errorf("Start() error = %v, want ErrNotConfigured", err)
	}
}

func TestSweep(t *testing.T) {
	dev := &fakeDongle{partNum: yardstick.PartNumCC2511}
	sweep := make([]byte, MaxBins)
	for i := range sweep {
		sweep[i] = 0x80 // -88dBm
	}
	sweep[100] = 0xFF
	dev.sweeps = [][]byte{sweep, sweep}

	s := New(dev)
	if err := s.Configure(); err != nil {
		t.Fatal(err)
	}
	frames, err := s.Start(testContext(t))
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if _, err := s.Start(testContext(t)); !errors.Is(err, ErrRunning) {
		t.Errorf("second Start() error = %v, want ErrRunning", err)
	}

	for i := 0; i < 2; i++ {
		select {
		case frame := <-frames:
			if len(frame.RSSI) != MaxBins || frame.RSSI[0] != -88 || frame.RSSI[100] != -24.5 {
				t.Errorf("frame %d RSSI[0]=%v RSSI[100]=%v", i, frame.RSSI[0], frame.RSSI[100])
			}
		case <-time.After(time.Second):
			t.Fatal("no frame")
		}
	}

	if err := s.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if _, ok := <-frames; ok {
		t.Error("frames channel not closed")
	}

	dev.mu.Lock()
	defer dev.mu.Unlock()
	if len(dev.sends) != 2 {
		t.Fatalf("sends = %+v", dev.sends)
	}
	if dev.sends[0].cmd != yardstick.NICSpecStart || dev.sends[0].payload[0] != MaxBins {
		t.Errorf("start = %+v", dev.sends[0])
	}
	if dev.sends[1].cmd != yardstick.NICSpecStop {
		t.Errorf("stop = %+v", dev.sends[1])
	}
}

func TestRSSIToDBm(t *testing.T) {
	tests := []struct {
		raw  uint8
		want float32
	}{
		{0x80, -88},
		{0x00, -152},
		{0xFF, -24.5},
		{0x90, -80},
	}
	for _, tt := range tests {
		if got := RSSIToDBm(tt.raw); got != tt.want {
			t.Errorf("RSSIToDBm(0x%02X) = %v, want %v", tt.raw, got, tt.want)
		}
	}
}

// testContext mirrors testing.T.Context for Go toolchains older than 1.24
func testContext(t *testing.T) context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	return ctx
}
