package yardstick

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"sync"
	"testing"
	"time"
)

// fakeFirmware answers EP5 commands from an XDATA memory image
type fakeFirmware struct {
	mu     sync.Mutex
	mem    map[uint16]uint8
	out    chan []byte
	sent   [][]byte
	noise  []byte
	xmitRC uint8
}

func newFakeFirmware() *fakeFirmware {
	return &fakeFirmware{
		mem:    make(map[uint16]uint8),
		out:    make(chan []byte, 64),
		xmitRC: 1,
	}
}

func response(app, cmd uint8, payload []byte) []byte {
	frame := []byte{ResponseMarker, app, cmd, 0, 0}
	binary.LittleEndian.PutUint16(frame[3:5], uint16(len(payload)))
	return append(frame, payload...)
}

func (f *fakeFirmware) WriteContext(ctx context.Context, buf []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	packet := append([]byte(nil), buf...)
	f.sent = append(f.sent, packet)

	app, cmd := packet[0], packet[1]
	payload := packet[commandHeaderLen:]

	var reply []byte
	switch {
	case app == AppSystem && cmd == SysCmdPeek:
		length := binary.LittleEndian.Uint16(payload[0:2])
		addr := binary.LittleEndian.Uint16(payload[2:4])
		data := make([]byte, length)
		for i := range data {
			data[i] = f.mem[addr+uint16(i)]
		}
		reply = data
	case app == AppSystem && cmd == SysCmdPoke:
		addr := binary.LittleEndian.Uint16(payload[0:2])
		for i, b := range payload[2:] {
			f.mem[addr+uint16(i)] = b
		}
		reply = []byte{0, 0}
	case app == AppSystem && cmd == SysCmdPing:
		reply = payload
	case app == AppSystem && cmd == SysCmdPartNum:
		reply = []byte{PartNumCC2511}
	case app == AppSystem && cmd == SysCmdBuildType:
		reply = []byte("DONSDONGLES r0599\x00")
	case app == AppNIC && cmd == NICXmit:
		reply = []byte{f.xmitRC}
	default:
		reply = nil
	}

	frame := append(append([]byte(nil), f.noise...), response(app, cmd, reply)...)
	f.noise = nil
	f.out <- frame
	return len(buf), nil
}

func (f *fakeFirmware) ReadContext(ctx context.Context, buf []byte) (int, error) {
	select {
	case data := <-f.out:
		return copy(buf, data), nil
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}

func (f *fakeFirmware) Sent() [][]byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sent
}

func TestEncodeCommand(t *testing.T) {
	got := encodeCommand(AppSystem, SysCmdPeek, []byte{0x01, 0x00, 0x3B, 0xDF})
	want := []byte{0xFF, 0x80, 0x04, 0x00, 0x01, 0x00, 0x3B, 0xDF}
	if !bytes.Equal(got, want) {
		t.Errorf("encodeCommand = % X, want % X", got, want)
	}
}

func TestParseFrame(t *testing.T) {
	tests := []struct {
		name    string
		buf     []byte
		want    []byte
		rest    []byte
		wantErr error
	}{
		{
			name: "complete",
			buf:  response(AppSystem, SysCmdPing, []byte("hi")),
			want: []byte("hi"),
			rest: []byte{},
		},
		{
			name: "leading garbage and trailing data",
			buf:  append(append([]byte{0x00, 0x11}, response(AppSystem, SysCmdPing, []byte{7})...), 0x40),
			want: []byte{7},
			rest: []byte{0x40},
		},
		{
			name:    "incomplete header",
			buf:     []byte{ResponseMarker, AppSystem, SysCmdPing},
			rest:    []byte{ResponseMarker, AppSystem, SysCmdPing},
			wantErr: errNoFrame,
		},
		{
			name:    "incomplete payload",
			buf:     response(AppSystem, SysCmdPing, []byte{1, 2, 3})[:6],
			rest:    response(AppSystem, SysCmdPing, []byte{1, 2, 3})[:6],
			wantErr: errNoFrame,
		},
		{
			name:    "other command",
			buf:     response(AppDebug, 0x01, []byte("log")),
			rest:    []byte{},
			wantErr: errFrameMismatch,
		},
		{
			name:    "no marker",
			buf:     []byte{1, 2, 3},
			rest:    []byte{},
			wantErr: errNoFrame,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, rest, err := parseFrame(tt.buf, AppSystem, SysCmdPing)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
			if !bytes.Equal(got, tt.want) {
				t.Errorf("payload = % X, want % X", got, tt.want)
			}
			if !bytes.Equal(rest, tt.rest) {
				t.Errorf("rest = % X, want % X", rest, tt.rest)
			}
		})
	}
}

func TestPeekPoke(t *testing.T) {
	fw := newFakeFirmware()
	d := newDevice(fw, fw)

	if err := d.Poke(RegFREQ2, []byte{0x5C, 0xC4, 0xEC}); err != nil {
		t.Fatalf("Poke failed: %v", err)
	}

	got, err := d.Peek(RegFREQ2, 3)
	if err != nil {
		t.Fatalf("Peek failed: %v", err)
	}
	if !bytes.Equal(got, []byte{0x5C, 0xC4, 0xEC}) {
		t.Errorf("Peek = % X", got)
	}

	b, err := d.PeekByte(RegFREQ0)
	if err != nil || b != 0xEC {
		t.Errorf("PeekByte = %#02x, %v", b, err)
	}
}

func TestSend_SkipsUnrelatedFrames(t *testing.T) {
	fw := newFakeFirmware()
	fw.noise = response(AppDebug, 0x01, []byte("debug"))
	d := newDevice(fw, fw)

	if err := d.Ping([]byte("TEST")); err != nil {
		t.Fatalf("Ping failed: %v", err)
	}
}

func TestRecv_Timeout(t *testing.T) {
	fw := newFakeFirmware()
	d := newDevice(fw, fw)

	_, err := d.Recv(AppSystem, SysCmdPing, 20*time.Millisecond)
	if !errors.Is(err, ErrTimeout) {
		t.Errorf("err = %v, want ErrTimeout", err)
	}
}

func TestDeviceInfo(t *testing.T) {
	fw := newFakeFirmware()
	d := newDevice(fw, fw)

	part, err := d.GetPartNum()
	if err != nil || part != PartNumCC2511 {
		t.Errorf("GetPartNum = %#02x, %v", part, err)
	}
	build, err := d.GetBuildType()
	if err != nil || build != "DONSDONGLES r0599" {
		t.Errorf("GetBuildType = %q, %v", build, err)
	}
}

func TestRFXmit(t *testing.T) {
	fw := newFakeFirmware()
	d := newDevice(fw, fw)

	frame := []byte{0x80, 0x00, 0x01}
	if err := d.RFXmit(frame, 0, 0); err != nil {
		t.Fatalf("RFXmit failed: %v", err)
	}

	sent := fw.Sent()
	last := sent[len(sent)-1]
	want := append([]byte{AppNIC, NICXmit, 9, 0, 3, 0, 0, 0, 0, 0}, frame...)
	if !bytes.Equal(last, want) {
		t.Errorf("packet = % X, want % X", last, want)
	}

	fw.xmitRC = RCTXDroppedPacket
	if err := d.RFXmit(frame, 0, 0); err == nil {
		t.Error("dropped packet not reported")
	}

	if err := d.RFXmit(make([]byte, RFMaxTXBlock+1), 0, 0); err == nil {
		t.Error("oversized block accepted")
	}
}

func TestSetFrequency(t *testing.T) {
	fw := newFakeFirmware()
	d := newDevice(fw, fw)

	if err := d.SetFrequency(2412000000, CrystalCC251xHz); err != nil {
		t.Fatal(err)
	}
	if fw.mem[RegFREQ2] != 0x5C || fw.mem[RegFREQ1] != 0xC4 || fw.mem[RegFREQ0] != 0xEC {
		t.Errorf("FREQ = %02X %02X %02X", fw.mem[RegFREQ2], fw.mem[RegFREQ1], fw.mem[RegFREQ0])
	}

	hz, err := d.GetFrequency(CrystalCC251xHz)
	if err != nil {
		t.Fatal(err)
	}
	if diff := int64(2412000000) - int64(hz); diff < 0 || diff > 400 {
		t.Errorf("GetFrequency = %d", hz)
	}
}

func TestFreqWord(t *testing.T) {
	tests := []struct {
		hz      uint32
		crystal uint32
		want    uint32
	}{
		{2412000000, CrystalCC251xHz, 0x5CC4EC},
		{2437000000, CrystalCC251xHz, 0x5DBB13},
		{2484000000, CrystalCC251xHz, 0x5F89D8},
		{2412000000, CrystalCC111xHz, 0x648000},
	}
	for _, tt := range tests {
		if got := FreqWord(tt.hz, tt.crystal); got != tt.want {
			t.Errorf("FreqWord(%d, %d) = %#06x, want %#06x", tt.hz, tt.crystal, got, tt.want)
		}
	}
}

func TestChip(t *testing.T) {
	if !Is24GHz(PartNumCC2511) || Is24GHz(PartNumCC1111) {
		t.Error("Is24GHz misclassifies parts")
	}
	if CrystalHz(PartNumCC2510) != 26000000 || CrystalHz(PartNumCC1111) != 24000000 {
		t.Error("CrystalHz mismatch")
	}
	if ChipName(PartNumCC2511) != "CC2511" {
		t.Errorf("ChipName = %s", ChipName(PartNumCC2511))
	}
}
