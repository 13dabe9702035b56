package rftest

import (
	"context"
	"runtime"
	"sync/atomic"
	"time"
)

// Emitter is an emission strategy shared by the controller's bring-up and
// channel-hop logic.
type Emitter interface {
	Mode() EmissionMode
	// Enable starts emission after radio bring-up
	Enable() error
	// Hold keeps the radio emitting for one dwell
	Hold(ctx context.Context, clock Clock, dwell time.Duration) error
	// Suspend stops emission ahead of a channel change
	Suspend() error
	// Resume restarts emission after a channel change
	Resume() error
}

// Clock abstracts time for the controller loop
type Clock interface {
	Now() time.Time
	Sleep(ctx context.Context, d time.Duration) error
}

// SystemClock is the wall clock
type SystemClock struct{}

// Now returns time.Now()
func (SystemClock) Now() time.Time {
	return time.Now()
}

// Sleep blocks for d or until ctx is done. A zero d only yields.
func (SystemClock) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		runtime.Gosched()
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// ContinuousCarrierEmitter drives the PHY continuous-emission primitive
type ContinuousCarrierEmitter struct {
	phy CarrierPHY
}

// NewContinuousCarrier creates a carrier emitter on top of phy
func NewContinuousCarrier(phy CarrierPHY) *ContinuousCarrierEmitter {
	return &ContinuousCarrierEmitter{phy: phy}
}

func (e *ContinuousCarrierEmitter) Mode() EmissionMode {
	return ContinuousCarrier
}

func (e *ContinuousCarrierEmitter) Enable() error {
	return e.phy.SetContinuousEmission(true)
}

// Hold leaves the carrier on; the PHY needs no attention while it runs
func (e *ContinuousCarrierEmitter) Hold(ctx context.Context, clock Clock, dwell time.Duration) error {
	return clock.Sleep(ctx, dwell)
}

func (e *ContinuousCarrierEmitter) Suspend() error {
	return e.phy.SetContinuousEmission(false)
}

func (e *ContinuousCarrierEmitter) Resume() error {
	return e.phy.SetContinuousEmission(true)
}

// FrameFloodEmitter approximates channel occupancy by injecting the same
// frame back to back.
type FrameFloodEmitter struct {
	injector Injector
	frame    []byte
	frames   int
	yield    time.Duration

	sent    atomic.Uint64
	dropped atomic.Uint64
}

// NewFrameFlood creates a flood emitter. With frames > 0 a dwell ends after
// that many transmit attempts, otherwise after the dwell time.
func NewFrameFlood(injector Injector, frame []byte, frames int, yield time.Duration) *FrameFloodEmitter {
	if frame == nil {
		frame = TestFrame
	}
	buf := make([]byte, len(frame))
	copy(buf, frame)

	return &FrameFloodEmitter{
		injector: injector,
		frame:    buf,
		frames:   frames,
		yield:    yield,
	}
}

func (e *FrameFloodEmitter) Mode() EmissionMode {
	return FrameFlood
}

// Enable is a no-op: frames only go out while holding
func (e *FrameFloodEmitter) Enable() error {
	return nil
}

// Hold transmits frames until the dwell ends. Transmit failures are counted
// as drops; a full driver queue is expected at this rate.
func (e *FrameFloodEmitter) Hold(ctx context.Context, clock Clock, dwell time.Duration) error {
	deadline := clock.Now().Add(dwell)

	for attempts := 0; ; attempts++ {
		if e.frames > 0 {
			if attempts >= e.frames {
				return nil
			}
		} else if !clock.Now().Before(deadline) {
			return nil
		}

		if err := e.injector.TransmitRaw(InterfaceStation, e.frame, false); err != nil {
			e.dropped.Add(1)
		} else {
			e.sent.Add(1)
		}

		if err := clock.Sleep(ctx, e.yield); err != nil {
			return err
		}
	}
}

func (e *FrameFloodEmitter) Suspend() error {
	return nil
}

func (e *FrameFloodEmitter) Resume() error {
	return nil
}

// Frames returns the number of frames sent and dropped so far
func (e *FrameFloodEmitter) Frames() (sent, dropped uint64) {
	return e.sent.Load(), e.dropped.Load()
}
