package rftest

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// recorder is a fake radio that logs every collaborator call in order
type recorder struct {
	mu    sync.Mutex
	calls []string

	failOn  string
	failErr error
	txErr   error
}

func (r *recorder) record(call string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, call)
	if r.failOn != "" && call == r.failOn {
		return r.failErr
	}
	return nil
}

func (r *recorder) Calls() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.calls))
	copy(out, r.calls)
	return out
}

func (r *recorder) count(prefix string) int {
	n := 0
	for _, call := range r.Calls() {
		if len(call) >= len(prefix) && call[:len(prefix)] == prefix {
			n++
		}
	}
	return n
}

func (r *recorder) Init(cfg RadioInit) error {
	return r.record("init")
}

func (r *recorder) SetStorageMode(mode StorageMode) error {
	return r.record("storage_mode(" + mode.String() + ")")
}

func (r *recorder) SetMode(mode RadioMode) error {
	return r.record("mode(" + mode.String() + ")")
}

func (r *recorder) SetPowerSave(enabled bool) error {
	return r.record(fmt.Sprintf("power_save(%v)", enabled))
}

func (r *recorder) SetMaxTxPower(index int) error {
	return r.record(fmt.Sprintf("max_tx_power(%d)", index))
}

func (r *recorder) SetChannel(channel int, secondary SecondaryChannel) error {
	return r.record(fmt.Sprintf("set_channel(%d,%s)", channel, secondary))
}

func (r *recorder) Start() error {
	return r.record("start")
}

func (r *recorder) SetContinuousEmission(enabled bool) error {
	return r.record(fmt.Sprintf("emission(%v)", enabled))
}

func (r *recorder) TransmitRaw(iface Interface, frame []byte, useQoS bool) error {
	if err := r.record(fmt.Sprintf("tx(%d)", len(frame))); err != nil {
		return err
	}
	return r.txErr
}

// bareRadio implements Radio only
type bareRadio struct{}

func (bareRadio) Init(RadioInit) error                   { return nil }
func (bareRadio) SetStorageMode(StorageMode) error       { return nil }
func (bareRadio) SetMode(RadioMode) error                { return nil }
func (bareRadio) SetPowerSave(bool) error                { return nil }
func (bareRadio) SetMaxTxPower(int) error                { return nil }
func (bareRadio) SetChannel(int, SecondaryChannel) error { return nil }
func (bareRadio) Start() error                           { return nil }

// fakeStorage returns the scripted Init errors in order, then nil
type fakeStorage struct {
	initErrs []error
	eraseErr error

	inits  int
	erases int
}

func (s *fakeStorage) Init() error {
	s.inits++
	if len(s.initErrs) == 0 {
		return nil
	}
	err := s.initErrs[0]
	s.initErrs = s.initErrs[1:]
	return err
}

func (s *fakeStorage) Erase() error {
	s.erases++
	return s.eraseErr
}

// fakeClock advances on Sleep and cancels after a fixed number of sleeps
type fakeClock struct {
	mu          sync.Mutex
	now         time.Time
	sleeps      []time.Duration
	cancelAfter int
}

func newFakeClock(cancelAfter int) *fakeClock {
	return &fakeClock{
		now:         time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		cancelAfter: cancelAfter,
	}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.sleeps) >= c.cancelAfter {
		return context.Canceled
	}
	c.sleeps = append(c.sleeps, d)
	c.now = c.now.Add(d)
	return ctx.Err()
}

func (c *fakeClock) Sleeps() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]time.Duration, len(c.sleeps))
	copy(out, c.sleeps)
	return out
}

// lines collects console output
type lines struct {
	mu  sync.Mutex
	out []string
}

func (l *lines) Printf(format string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.out = append(l.out, fmt.Sprintf(format, args...))
}

func (l *lines) Lines() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, len(l.out))
	copy(out, l.out)
	return out
}
