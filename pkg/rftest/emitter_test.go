package rftest

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestContinuousCarrier(t *testing.T) {
	phy := &recorder{}
	e := NewContinuousCarrier(phy)

	if e.Mode() != ContinuousCarrier {
		t.Errorf("mode = %s", e.Mode())
	}

	e.Enable()
	e.Suspend()
	e.Resume()

	want := []string{"emission(true)", "emission(false)", "emission(true)"}
	got := phy.Calls()
	if len(got) != len(want) {
		t.Fatalf("calls = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("call %d = %s, want %s", i, got[i], want[i])
		}
	}
}

func TestContinuousCarrier_HoldSleepsForDwell(t *testing.T) {
	phy := &recorder{}
	clock := newFakeClock(10)
	e := NewContinuousCarrier(phy)

	if err := e.Hold(context.Background(), clock, 3*time.Second); err != nil {
		t.Fatalf("Hold failed: %v", err)
	}
	if sleeps := clock.Sleeps(); len(sleeps) != 1 || sleeps[0] != 3*time.Second {
		t.Errorf("sleeps = %v", sleeps)
	}
	if len(phy.Calls()) != 0 {
		t.Errorf("Hold touched the PHY: %v", phy.Calls())
	}
}

func TestFrameFlood_TimeBoundedDwell(t *testing.T) {
	injector := &recorder{}
	clock := newFakeClock(1000)
	e := NewFrameFlood(injector, nil, 0, time.Millisecond)

	if err := e.Hold(context.Background(), clock, 10*time.Millisecond); err != nil {
		t.Fatalf("Hold failed: %v", err)
	}

	sent, dropped := e.Frames()
	if sent != 10 || dropped != 0 {
		t.Errorf("sent=%d dropped=%d, want 10 and 0", sent, dropped)
	}
	if n := injector.count("tx(24)"); n != 10 {
		t.Errorf("tx calls = %d, want 10", n)
	}
}

func TestFrameFlood_FrameBoundedDwell(t *testing.T) {
	injector := &recorder{}
	e := NewFrameFlood(injector, []byte{0x80, 0x00}, 5, 0)

	if err := e.Hold(context.Background(), newFakeClock(1000), 0); err != nil {
		t.Fatalf("Hold failed: %v", err)
	}
	if n := injector.count("tx(2)"); n != 5 {
		t.Errorf("tx calls = %d, want 5", n)
	}
}

func TestFrameFlood_Cancel(t *testing.T) {
	injector := &recorder{}
	e := NewFrameFlood(injector, nil, 0, time.Millisecond)

	err := e.Hold(context.Background(), newFakeClock(2), time.Hour)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if n := injector.count("tx"); n != 3 {
		t.Errorf("tx calls = %d, want 3", n)
	}
}

func TestFrameFlood_NoPHYCalls(t *testing.T) {
	injector := &recorder{}
	e := NewFrameFlood(injector, nil, 1, 0)

	e.Enable()
	e.Hold(context.Background(), newFakeClock(10), 0)
	e.Suspend()
	e.Resume()

	if n := injector.count("emission"); n != 0 {
		t.Errorf("flood emitter used the carrier primitive: %v", injector.Calls())
	}
}

func TestFrameFlood_CopiesFrame(t *testing.T) {
	injector := &recorder{}
	frame := []byte{1, 2, 3}
	e := NewFrameFlood(injector, frame, 1, 0)
	frame[0] = 9

	if e.frame[0] != 1 {
		t.Error("emitter shares the caller's frame buffer")
	}
}

func TestSystemClock_Sleep(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	clock := SystemClock{}
	if err := clock.Sleep(ctx, time.Hour); !errors.Is(err, context.Canceled) {
		t.Errorf("Sleep on cancelled ctx = %v", err)
	}
	if err := clock.Sleep(context.Background(), 0); err != nil {
		t.Errorf("zero Sleep = %v", err)
	}
	if err := clock.Sleep(context.Background(), time.Millisecond); err != nil {
		t.Errorf("Sleep = %v", err)
	}
}
