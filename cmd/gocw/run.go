package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/herlein/gocw/pkg/config"
	"github.com/herlein/gocw/pkg/console"
	"github.com/herlein/gocw/pkg/nvs"
	"github.com/herlein/gocw/pkg/rftest"
	"github.com/herlein/gocw/pkg/tui"
)

var cwCmd = &cobra.Command{
	Use:   "cw",
	Short: "Emit an unmodulated carrier, hopping channels",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTest(cmd, rftest.ContinuousCarrier.String())
	},
}

var floodCmd = &cobra.Command{
	Use:   "flood",
	Short: "Transmit broadcast management frames back to back, hopping channels",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTest(cmd, rftest.FrameFlood.String())
	},
}

func init() {
	addRunFlags(cwCmd)
	addRunFlags(floodCmd)
	floodCmd.Flags().IntVar(&frames, "frames", 0, "Frames per channel; 0 floods for the dwell time")
	floodCmd.Flags().DurationVar(&yieldGap, "yield", 0, "Gap between two frames")
}

func openStore(cfg *config.Config) *nvs.Store {
	return nvs.Open(cfg.Storage.Path, nvs.Options{
		Pages:          cfg.Storage.Pages,
		EntriesPerPage: cfg.Storage.EntriesPerPage,
	})
}

func runTest(cmd *cobra.Command, mode string) error {
	cfg, err := loadPlan(cmd, mode)
	if err != nil {
		return err
	}
	cc, err := cfg.ToControllerConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store := openStore(cfg)

	hw, err := openBackend(ctx, cfg, store)
	if err != nil {
		return err
	}
	defer hw.Close()

	sink := console.NewWithFile(os.Stdout, console.FileOptions{
		Path:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
		Compress:   cfg.Log.Compress,
	})
	defer sink.Close()

	sink.Printf("Using %s\n", hw.name)

	if cfg.Log.TUI {
		return runWithTUI(ctx, stop, cfg, cc, store, hw, sink)
	}

	ctrl, err := rftest.New(cc, store, hw.radio, rftest.WithConsole(sink))
	if err != nil {
		return err
	}
	if err := ctrl.Initialize(ctx); err != nil {
		return err
	}
	err = finish(ctrl.Run(ctx))
	sink.Printf("%s\n", summary(ctrl.Status()))
	return err
}

func runWithTUI(ctx context.Context, stop context.CancelFunc, cfg *config.Config, cc *rftest.Config, store *nvs.Store, hw *backend, sink *console.Sink) error {
	var ctrl *rftest.Controller
	poll := func() rftest.Status {
		if ctrl == nil {
			return rftest.Status{Mode: cc.Mode}
		}
		return ctrl.Status()
	}

	model := tui.New(tui.Info{
		Backend: cfg.Backend.Type,
		Device:  hw.name,
		Mode:    cc.Mode,
		Power:   cc.MaxTxPower,
		Dwell:   cc.Dwell,
	}, stop, poll)
	program := tea.NewProgram(model, tea.WithAltScreen())
	bridge := tui.NewBridge(program)

	sink.Mute(true)
	defer sink.Mute(false)

	var err error
	ctrl, err = rftest.New(cc, store, hw.radio,
		rftest.WithConsole(sink.Tee(bridge.Line)),
		rftest.WithObserver(bridge),
	)
	if err != nil {
		return err
	}

	runErr := make(chan error, 1)
	go func() {
		err := ctrl.Initialize(ctx)
		if err == nil {
			err = ctrl.Run(ctx)
		}
		err = finish(err)
		runErr <- err
		bridge.Done(err)
	}()

	final, err := program.Run()
	if err != nil {
		stop()
		<-runErr
		return fmt.Errorf("tui: %w", err)
	}
	result := <-runErr

	sink.Mute(false)
	if m, ok := final.(tui.Model); ok {
		sink.Printf("%s\n", summary(m.Status()))
		if m.Err() != nil {
			return m.Err()
		}
	}
	return result
}

// finish maps an operator stop onto success, unless turning emission off
// failed on the way out
func finish(err error) error {
	var radioErr *rftest.RadioConfigError
	if errors.Is(err, context.Canceled) && !errors.As(err, &radioErr) {
		return nil
	}
	return err
}

// summary is the line printed when a run ends
func summary(status rftest.Status) string {
	line := fmt.Sprintf("Stopped on %s after %d hops", rftest.ChannelLabel(status.Channel), status.Hops)
	if status.Mode == rftest.FrameFlood {
		line += fmt.Sprintf(", %d frames sent, %d dropped", status.FramesSent, status.FramesDropped)
	}
	return line
}
