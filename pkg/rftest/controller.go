// Package rftest implements the RF test-mode controller: one-time radio
// bring-up followed by a loop that holds the radio in continuous emission
// and periodically hops across the 2.4GHz channel set.
package rftest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// State is the controller state machine state
type State uint8

const (
	StateIdle State = iota
	StateEmitting
	StateChangingChannel
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateEmitting:
		return "EMITTING"
	case StateChangingChannel:
		return "CHANGING_CHANNEL"
	case StateStopped:
		return "STOPPED"
	default:
		return fmt.Sprintf("Unknown(%d)", uint8(s))
	}
}

// EventKind identifies a controller event
type EventKind uint8

const (
	EventStarted EventKind = iota
	EventHop
	EventStopped
)

func (k EventKind) String() string {
	switch k {
	case EventStarted:
		return "started"
	case EventHop:
		return "hop"
	case EventStopped:
		return "stopped"
	default:
		return fmt.Sprintf("Unknown(%d)", uint8(k))
	}
}

// Status is a snapshot of the controller
type Status struct {
	Mode          EmissionMode
	State         State
	Channel       int
	FrequencyMHz  int
	Hops          uint64
	FramesSent    uint64
	FramesDropped uint64
}

// Event is delivered to the Observer on start, on every hop and on stop
type Event struct {
	Kind EventKind
	Time time.Time
	Status
}

// frameCounter is implemented by emitters that transmit discrete frames
type frameCounter interface {
	Frames() (sent, dropped uint64)
}

// Option configures a Controller
type Option func(*Controller)

// WithConsole sets the operator console sink
func WithConsole(console Console) Option {
	return func(c *Controller) {
		c.console = console
	}
}

// WithObserver registers an event observer
func WithObserver(observer Observer) Option {
	return func(c *Controller) {
		c.observer = observer
	}
}

// WithClock replaces the wall clock
func WithClock(clock Clock) Option {
	return func(c *Controller) {
		c.clock = clock
	}
}

// Controller owns the radio for the lifetime of the process
type Controller struct {
	cfg      Config
	storage  Storage
	radio    Radio
	phy      CarrierPHY
	injector Injector
	emitter  Emitter
	console  Console
	observer Observer
	clock    Clock

	mu          sync.Mutex
	state       State
	channel     int
	hops        uint64
	initialized bool
}

// New creates a controller. The emission strategy is chosen from cfg.Mode;
// the radio must implement CarrierPHY or Injector accordingly.
func New(cfg *Config, storage Storage, radio Radio, opts ...Option) (*Controller, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if storage == nil {
		return nil, fmt.Errorf("%w: storage", ErrMissingCollaborator)
	}
	if radio == nil {
		return nil, fmt.Errorf("%w: radio", ErrMissingCollaborator)
	}

	c := &Controller{
		cfg:     *cfg,
		storage: storage,
		radio:   radio,
		console: discardConsole{},
		clock:   SystemClock{},
		state:   StateIdle,
		channel: cfg.StartChannel,
	}
	if phy, ok := radio.(CarrierPHY); ok {
		c.phy = phy
	}
	if injector, ok := radio.(Injector); ok {
		c.injector = injector
	}

	for _, opt := range opts {
		opt(c)
	}

	switch c.cfg.Mode {
	case ContinuousCarrier:
		if c.phy == nil {
			return nil, fmt.Errorf("%w: continuous carrier mode needs a CarrierPHY", ErrMissingCollaborator)
		}
		c.emitter = NewContinuousCarrier(c.phy)
	case FrameFlood:
		if c.injector == nil {
			return nil, fmt.Errorf("%w: frame flood mode needs an Injector", ErrMissingCollaborator)
		}
		c.emitter = NewFrameFlood(c.injector, c.cfg.Frame, c.cfg.FloodFrames, c.cfg.FloodYield)
	}

	return c, nil
}

// Initialize bootstraps storage, configures the radio and enables emission.
// Every error it returns is fatal; there is no partial bring-up.
func (c *Controller) Initialize(ctx context.Context) error {
	if err := c.bootstrapStorage(); err != nil {
		return err
	}

	if err := c.configureRadio(); err != nil {
		return err
	}

	// Let the radio stabilize before the test primitive takes over
	if err := c.clock.Sleep(ctx, c.cfg.Startup); err != nil {
		return err
	}

	c.printBanner()

	if err := c.emitter.Enable(); err != nil {
		return radioError("enable emission", err)
	}

	switch c.cfg.Mode {
	case ContinuousCarrier:
		c.console.Printf("CW transmission enabled!\n")
	case FrameFlood:
		c.console.Printf("Frame flood enabled!\n")
	}

	c.mu.Lock()
	c.state = StateEmitting
	c.initialized = true
	c.mu.Unlock()

	c.notify(EventStarted)
	return nil
}

// MustInitialize is Initialize that panics on failure
func (c *Controller) MustInitialize(ctx context.Context) {
	if err := c.Initialize(ctx); err != nil {
		panic(fmt.Sprintf("rftest: initialize: %v", err))
	}
}

func (c *Controller) bootstrapStorage() error {
	err := c.storage.Init()
	if err == nil {
		return nil
	}

	kind := ClassifyStorageError(err)
	if !kind.Recoverable() {
		return &StorageError{Kind: kind, Op: "init", Err: err}
	}

	if err := c.storage.Erase(); err != nil {
		return &StorageError{Kind: ClassifyStorageError(err), Op: "erase", Err: err}
	}

	if err := c.storage.Init(); err != nil {
		return &StorageError{Kind: ClassifyStorageError(err), Op: "init after erase", Err: err}
	}

	return nil
}

func (c *Controller) configureRadio() error {
	if err := c.radio.Init(RadioInit{}); err != nil {
		return radioError("init", err)
	}
	if err := c.radio.SetStorageMode(StorageRAM); err != nil {
		return radioError("set storage mode", err)
	}
	if err := c.radio.SetMode(ModeStation); err != nil {
		return radioError("set mode", err)
	}

	// Power saving would duty-cycle the emission
	if err := c.radio.SetPowerSave(false); err != nil {
		return radioError("disable power save", err)
	}
	if err := c.radio.SetMaxTxPower(c.cfg.MaxTxPower); err != nil {
		return radioError("set max tx power", err)
	}

	// Channel and power are applied before start
	if err := c.radio.SetChannel(c.cfg.StartChannel, SecondaryNone); err != nil {
		return radioError("set channel", err)
	}
	if err := c.radio.Start(); err != nil {
		return radioError("start", err)
	}

	return nil
}

func (c *Controller) printBanner() {
	switch c.cfg.Mode {
	case ContinuousCarrier:
		c.console.Printf("=== CW GENERATOR STARTED ===\n")
	case FrameFlood:
		c.console.Printf("=== FRAME FLOOD STARTED ===\n")
	}
	c.console.Printf("Frequency: %d MHz (Channel %d)\n", FrequencyMHz(c.cfg.StartChannel), c.cfg.StartChannel)
	c.console.Printf("Power: %gdBm\n", PowerDBm(c.cfg.MaxTxPower))
	if c.cfg.Hop {
		c.console.Printf("Hopping: every %v\n", c.dwellLabel())
	}
}

func (c *Controller) dwellLabel() string {
	if c.cfg.Mode == FrameFlood && c.cfg.FloodFrames > 0 {
		return fmt.Sprintf("%d frames", c.cfg.FloodFrames)
	}
	return c.cfg.Dwell.String()
}

// Run holds emission and hops channel after every dwell. It returns only
// when ctx is cancelled or a radio call fails; a second Run after that
// returns ErrNotInitialized.
func (c *Controller) Run(ctx context.Context) error {
	c.mu.Lock()
	initialized := c.initialized
	c.mu.Unlock()
	if !initialized {
		return ErrNotInitialized
	}

	for {
		if err := c.emitter.Hold(ctx, c.clock, c.cfg.Dwell); err != nil {
			return c.stop(err)
		}

		if !c.cfg.Hop {
			continue
		}

		if err := c.hop(ctx); err != nil {
			return c.stop(err)
		}
	}
}

// hop performs one CHANGING_CHANNEL pass and returns to EMITTING
func (c *Controller) hop(ctx context.Context) error {
	c.setState(StateChangingChannel)

	// Changing channel under an active carrier is undefined
	if err := c.emitter.Suspend(); err != nil {
		return radioError("disable emission", err)
	}
	if err := c.clock.Sleep(ctx, c.cfg.Settle); err != nil {
		return err
	}

	c.mu.Lock()
	next := NextChannel(c.channel)
	c.mu.Unlock()

	if err := c.radio.SetChannel(next, SecondaryNone); err != nil {
		return radioError("set channel", err)
	}

	c.mu.Lock()
	c.channel = next
	c.mu.Unlock()

	if err := c.clock.Sleep(ctx, c.cfg.Settle); err != nil {
		return err
	}
	if err := c.emitter.Resume(); err != nil {
		return radioError("enable emission", err)
	}

	c.mu.Lock()
	c.hops++
	c.state = StateEmitting
	c.mu.Unlock()

	c.console.Printf("%s\n", ChannelLabel(next))
	c.notify(EventHop)
	return nil
}

// stop handles the end of Run. Cancellation turns emission off; a failure
// to do so is joined to the returned error. Radio failures are returned
// untouched. The controller must be initialized again before the next Run.
func (c *Controller) stop(err error) error {
	var radioErr *RadioConfigError
	if !errors.As(err, &radioErr) {
		if serr := c.emitter.Suspend(); serr != nil {
			c.console.Printf("Failed to disable emission: %v\n", serr)
			err = errors.Join(err, radioError("disable emission", serr))
		}
	}

	c.mu.Lock()
	c.initialized = false
	c.mu.Unlock()

	c.setState(StateStopped)
	c.notify(EventStopped)
	return err
}

func (c *Controller) setState(state State) {
	c.mu.Lock()
	c.state = state
	c.mu.Unlock()
}

// Status returns a snapshot of the controller
func (c *Controller) Status() Status {
	c.mu.Lock()
	status := Status{
		Mode:         c.cfg.Mode,
		State:        c.state,
		Channel:      c.channel,
		FrequencyMHz: FrequencyMHz(c.channel),
		Hops:         c.hops,
	}
	c.mu.Unlock()

	if counter, ok := c.emitter.(frameCounter); ok {
		status.FramesSent, status.FramesDropped = counter.Frames()
	}
	return status
}

// Channel returns the active channel
func (c *Controller) Channel() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.channel
}

// State returns the current state machine state
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Controller) notify(kind EventKind) {
	if c.observer == nil {
		return
	}
	c.observer.Observe(Event{
		Kind:   kind,
		Time:   c.clock.Now(),
		Status: c.Status(),
	})
}
