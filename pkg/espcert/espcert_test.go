package espcert

import (
	"bufio"
	"context"
	"errors"
	"io"
	"net"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/herlein/gocw/pkg/rftest"
)

// fakeESP plays the REPL side of a net.Pipe
type fakeESP struct {
	conn net.Conn

	mu       sync.Mutex
	commands []string
	replies  map[string][]string
	silent   map[string]bool
	hangup   map[string]bool
}

func startFakeESP(t *testing.T) (*Console, *fakeESP) {
	t.Helper()

	client, server := net.Pipe()
	f := &fakeESP{
		conn:    server,
		replies: map[string][]string{},
		silent:  map[string]bool{},
		hangup:  map[string]bool{},
	}
	go f.serve()

	c := NewConsole(client, WithCommandTimeout(200*time.Millisecond))
	t.Cleanup(func() {
		c.Close()
		server.Close()
	})
	return c, f
}

func (f *fakeESP) serve() {
	scanner := bufio.NewScanner(f.conn)
	for scanner.Scan() {
		cmd := scanner.Text()

		f.mu.Lock()
		f.commands = append(f.commands, cmd)
		reply := f.replies[cmd]
		silent := f.silent[cmd]
		hangup := f.hangup[cmd]
		f.mu.Unlock()

		if hangup {
			f.conn.Close()
			return
		}
		if silent {
			continue
		}

		var b strings.Builder
		b.WriteString(cmd + "\r\n")
		for _, line := range reply {
			b.WriteString(line + "\r\n")
		}
		b.WriteString("\x1b[0;32m" + DefaultPrompt + "\x1b[0m")
		if _, err := io.WriteString(f.conn, b.String()); err != nil {
			return
		}
	}
}

func (f *fakeESP) received() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.commands...)
}

func TestExecOutput(t *testing.T) {
	c, f := startFakeESP(t)
	f.replies["version"] = []string{"", "IDF v5.1", "chip: esp32"}

	out, err := c.Exec(context.Background(), "version")
	if err != nil {
		t.Fatalf("Exec() error = %v", err)
	}
	want := []string{"IDF v5.1", "chip: esp32"}
	if !reflect.DeepEqual(out, want) {
		t.Errorf("output = %q, want %q", out, want)
	}
}

func TestExecErrors(t *testing.T) {
	tests := []struct {
		name  string
		reply []string
		want  error
	}{
		{"non-zero", []string{"Command returned non-zero error code: 0x1 (ERROR)"}, ErrCommandFailed},
		{"unrecognized", []string{"Unrecognized command"}, ErrUnrecognized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, f := startFakeESP(t)
			f.replies["bogus"] = tt.reply

			_, err := c.Exec(context.Background(), "bogus")
			if !errors.Is(err, tt.want) {
				t.Errorf("Exec() error = %v, want %v", err, tt.want)
			}

			// the console stays usable
			if _, err := c.Exec(context.Background(), "help"); err != nil {
				t.Errorf("next Exec() error = %v", err)
			}
		})
	}
}

func TestExecTimeout(t *testing.T) {
	c, f := startFakeESP(t)
	f.silent["hang"] = true

	if _, err := c.Exec(context.Background(), "hang"); !errors.Is(err, ErrTimeout) {
		t.Errorf("Exec() error = %v, want ErrTimeout", err)
	}
}

func TestExecCanceled(t *testing.T) {
	c, f := startFakeESP(t)
	f.silent["hang"] = true

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	if _, err := c.Exec(ctx, "hang"); !errors.Is(err, context.Canceled) {
		t.Errorf("Exec() error = %v, want context.Canceled", err)
	}
}

func TestExecClosed(t *testing.T) {
	c, f := startFakeESP(t)
	f.hangup["reboot"] = true

	if _, err := c.Exec(context.Background(), "reboot"); !errors.Is(err, ErrClosed) {
		t.Errorf("Exec() error = %v, want ErrClosed", err)
	}
}

func TestAttenuation(t *testing.T) {
	tests := []struct {
		index int
		want  int
	}{
		{84, 0},
		{80, 0},
		{60, 20},
		{8, 72},
	}
	for _, tt := range tests {
		if got := Attenuation(tt.index); got != tt.want {
			t.Errorf("Attenuation(%d) = %d, want %d", tt.index, got, tt.want)
		}
	}
}

func TestCWCommand(t *testing.T) {
	if got := CWCommand(true, 6, 20); got != "wifiscwout 1 6 20" {
		t.Errorf("CWCommand(true) = %q", got)
	}
	if got := CWCommand(false, 14, 0); got != "wifiscwout 0 14 0" {
		t.Errorf("CWCommand(false) = %q", got)
	}
}

func TestRadioCarrier(t *testing.T) {
	c, f := startFakeESP(t)
	r := New(c)

	if err := r.SetContinuousEmission(true); !errors.Is(err, ErrNotStarted) {
		t.Fatalf("carrier before Start error = %v, want ErrNotStarted", err)
	}

	steps := []func() error{
		func() error { return r.Init(rftest.RadioInit{}) },
		func() error { return r.SetMaxTxPower(60) },
		func() error { return r.SetChannel(6, rftest.SecondaryNone) },
		r.Start,
		func() error { return r.SetContinuousEmission(true) },
		func() error { return r.SetContinuousEmission(false) },
	}
	for i, step := range steps {
		if err := step(); err != nil {
			t.Fatalf("step %d error = %v", i, err)
		}
	}

	want := []string{"cmdstop", "wifiscwout 1 6 20", "wifiscwout 0 6 20"}
	if got := f.received(); !reflect.DeepEqual(got, want) {
		t.Errorf("commands = %q, want %q", got, want)
	}
}

func TestRadioCommandFailure(t *testing.T) {
	c, f := startFakeESP(t)
	f.replies["wifiscwout 1 1 0"] = []string{"Command returned non-zero error code: 0x102 (ESP_ERR_INVALID_ARG)"}

	r := New(c)
	r.Start()
	if err := r.SetContinuousEmission(true); !errors.Is(err, ErrCommandFailed) {
		t.Errorf("error = %v, want ErrCommandFailed", err)
	}
}

func TestRadioUnsupported(t *testing.T) {
	c, _ := startFakeESP(t)
	r := New(c)

	tests := []struct {
		name string
		call func() error
	}{
		{"flash", func() error { return r.SetStorageMode(rftest.StorageFlash) }},
		{"ap", func() error { return r.SetMode(rftest.ModeAccessPoint) }},
		{"power save", func() error { return r.SetPowerSave(true) }},
		{"ht40", func() error { return r.SetChannel(1, rftest.SecondaryBelow) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.call(); !errors.Is(err, rftest.ErrUnsupported) {
				t.Errorf("error = %v, want ErrUnsupported", err)
			}
		})
	}

	if err := r.SetChannel(15, rftest.SecondaryNone); !errors.Is(err, rftest.ErrInvalidChannel) {
		t.Errorf("SetChannel(15) error = %v, want ErrInvalidChannel", err)
	}
}

func TestControllerBringUp(t *testing.T) {
	c, f := startFakeESP(t)
	r := New(c)

	cfg := rftest.DefaultConfig()
	cfg.Startup = 0

	ctrl, err := rftest.New(cfg, nopStorage{}, r)
	if err != nil {
		t.Fatal(err)
	}
	if err := ctrl.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}

	want := []string{"cmdstop", "wifiscwout 1 1 0"}
	if got := f.received(); !reflect.DeepEqual(got, want) {
		t.Errorf("commands = %q, want %q", got, want)
	}

	// no raw transmit on this firmware
	cfg.Mode = rftest.FrameFlood
	if _, err := rftest.New(cfg, nopStorage{}, r); !errors.Is(err, rftest.ErrMissingCollaborator) {
		t.Errorf("flood mode error = %v, want ErrMissingCollaborator", err)
	}
}

type nopStorage struct{}

func (nopStorage) Init() error  { return nil }
func (nopStorage) Erase() error { return nil }
