package rftest

import (
	"errors"
	"reflect"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.StartChannel != 1 || cfg.MaxTxPower != 80 || cfg.Dwell != 5*time.Second || cfg.Settle != 100*time.Millisecond {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
	if PowerDBm(cfg.MaxTxPower) != 20 {
		t.Errorf("PowerDBm(80) = %g", PowerDBm(cfg.MaxTxPower))
	}

	// Every field of the default plan is consumed by the controller
	want := &Config{
		Mode:         ContinuousCarrier,
		StartChannel: 1,
		Hop:          true,
		MaxTxPower:   80,
		Dwell:        5 * time.Second,
		Settle:       100 * time.Millisecond,
		Startup:      500 * time.Millisecond,
		FloodYield:   time.Millisecond,
	}
	if !reflect.DeepEqual(cfg, want) {
		t.Errorf("DefaultConfig() = %+v, want %+v", cfg, want)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr error
	}{
		{"channel zero", func(c *Config) { c.StartChannel = 0 }, ErrInvalidChannel},
		{"channel 15", func(c *Config) { c.StartChannel = 15 }, ErrInvalidChannel},
		{"bad mode", func(c *Config) { c.Mode = EmissionMode(7) }, ErrInvalidMode},
		{"power low", func(c *Config) { c.MaxTxPower = 4 }, ErrInvalidTxPower},
		{"power high", func(c *Config) { c.MaxTxPower = 90 }, ErrInvalidTxPower},
		{"zero dwell", func(c *Config) { c.Dwell = 0 }, ErrInvalidDwell},
		{"empty frame", func(c *Config) { c.Frame = []byte{} }, ErrInvalidFrame},
		{"flood with frame count", func(c *Config) {
			c.Mode = FrameFlood
			c.Dwell = 0
			c.FloodFrames = 100
		}, nil},
		{"channel 14", func(c *Config) { c.StartChannel = 14 }, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(cfg)
			err := cfg.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("err = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestConfigValidate_NegativePause(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Settle = -time.Millisecond
	if err := cfg.Validate(); err == nil {
		t.Error("negative settle accepted")
	}
}

func TestParseEmissionMode(t *testing.T) {
	tests := []struct {
		in   string
		want EmissionMode
	}{
		{"cw", ContinuousCarrier},
		{"CW", ContinuousCarrier},
		{"carrier", ContinuousCarrier},
		{" flood ", FrameFlood},
		{"frames", FrameFlood},
	}
	for _, tt := range tests {
		got, err := ParseEmissionMode(tt.in)
		if err != nil || got != tt.want {
			t.Errorf("ParseEmissionMode(%q) = %v, %v", tt.in, got, err)
		}
	}

	if _, err := ParseEmissionMode("am"); !errors.Is(err, ErrInvalidMode) {
		t.Errorf("err = %v, want ErrInvalidMode", err)
	}
}

func TestClassifyStorageError(t *testing.T) {
	tests := []struct {
		err         error
		want        StorageErrorKind
		recoverable bool
	}{
		{ErrNoFreePages, StorageNoFreePages, true},
		{ErrVersionMismatch, StorageVersionMismatch, true},
		{errors.New("io"), StorageOther, false},
	}
	for _, tt := range tests {
		kind := ClassifyStorageError(tt.err)
		if kind != tt.want || kind.Recoverable() != tt.recoverable {
			t.Errorf("ClassifyStorageError(%v) = %s", tt.err, kind)
		}
	}
}
