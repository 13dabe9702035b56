package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/google/gousb"

	"github.com/herlein/gocw/pkg/config"
	"github.com/herlein/gocw/pkg/espcert"
	"github.com/herlein/gocw/pkg/nrf24"
	"github.com/herlein/gocw/pkg/nvs"
	"github.com/herlein/gocw/pkg/rfcat"
	"github.com/herlein/gocw/pkg/rftest"
	"github.com/herlein/gocw/pkg/yardstick"
)

// backend is an opened radio and what must be released after the run
type backend struct {
	name    string
	radio   rftest.Radio
	closers []func() error
}

func (b *backend) onClose(fn func() error) {
	b.closers = append(b.closers, fn)
}

// Close releases in reverse order of acquisition
func (b *backend) Close() error {
	var errs []error
	for i := len(b.closers) - 1; i >= 0; i-- {
		if err := b.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	b.closers = nil
	return errors.Join(errs...)
}

func openBackend(ctx context.Context, cfg *config.Config, store *nvs.Store) (*backend, error) {
	switch cfg.Backend.Type {
	case config.BackendRFCat:
		return openRFCat(cfg, store)
	case config.BackendNRF24:
		return openNRF24(cfg)
	case config.BackendESPCert:
		return openESPCert(ctx, cfg)
	default:
		return nil, fmt.Errorf("%w: %q", config.ErrUnknownBackend, cfg.Backend.Type)
	}
}

func openRFCat(cfg *config.Config, store *nvs.Store) (*backend, error) {
	usb := gousb.NewContext()
	b := &backend{}
	b.onClose(usb.Close)

	dev, err := yardstick.SelectDevice(usb, cfg.Backend.Device)
	if err != nil {
		b.Close()
		return nil, err
	}
	b.onClose(dev.Close)

	var opts []rfcat.Option
	if cfg.Storage.Persist {
		opts = append(opts, rfcat.WithSnapshotStore(store, rfcat.SnapshotKey(dev.Serial)))
	}
	radio := rfcat.New(dev, opts...)
	b.onClose(radio.Close)

	b.name = dev.String()
	b.radio = radio
	return b, nil
}

func openNRF24(cfg *config.Config) (*backend, error) {
	radio, err := nrf24.Open(cfg.Backend.SPI, cfg.Backend.CEPin)
	if err != nil {
		return nil, fmt.Errorf("failed to open nRF24 on %s: %w", cfg.Backend.SPI, err)
	}

	b := &backend{
		name:  fmt.Sprintf("nRF24L01+ on %s (CE %s)", cfg.Backend.SPI, cfg.Backend.CEPin),
		radio: radio,
	}
	b.onClose(radio.Close)
	return b, nil
}

func openESPCert(ctx context.Context, cfg *config.Config) (*backend, error) {
	var conn io.ReadWriteCloser
	var name string

	switch {
	case cfg.Backend.URL != "":
		password := ""
		if cfg.Backend.Username != "" {
			var err error
			password, err = espcert.Password()
			if err != nil {
				return nil, err
			}
		}

		c, err := espcert.OpenWebSocket(ctx, cfg.Backend.URL, cfg.Backend.Username, password, cfg.Backend.SkipTLSVerify)
		if err != nil {
			return nil, err
		}
		conn = c
		name = fmt.Sprintf("ESP32 console via WebSocket: %s", cfg.Backend.URL)

	case cfg.Backend.Port != "":
		c, err := espcert.OpenSerial(cfg.Backend.Port, cfg.Backend.Baud)
		if err != nil {
			return nil, err
		}
		conn = c
		name = fmt.Sprintf("ESP32 console on %s @ %d baud", cfg.Backend.Port, cfg.Backend.Baud)

	default:
		return nil, fmt.Errorf("espcert backend needs --port or --url")
	}

	var opts []espcert.ConsoleOption
	if cfg.Backend.Prompt != "" {
		opts = append(opts, espcert.WithPrompt(cfg.Backend.Prompt))
	}
	radio := espcert.New(espcert.NewConsole(conn, opts...))
	b := &backend{name: name, radio: radio}
	b.onClose(radio.Close)
	return b, nil
}
