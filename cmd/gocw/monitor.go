package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/gousb"
	"github.com/spf13/cobra"

	"github.com/herlein/gocw/pkg/registers"
	"github.com/herlein/gocw/pkg/rftest"
	"github.com/herlein/gocw/pkg/specan"
	"github.com/herlein/gocw/pkg/yardstick"
)

var (
	monitorDevice string
	sweeps        int
	minSNR        float64
	showPeaks     bool
)

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Watch which channel a run is emitting on, using a second rfcat dongle",
	Long: `Runs the firmware spectrum sweep over 2407-2489 MHz on a CC2510/CC2511
dongle and prints the strongest 2.4GHz channel of each sweep. Start it next
to a cw run to confirm the hop sequence.`,
	RunE: runMonitor,
}

func init() {
	monitorCmd.Flags().StringVar(&monitorDevice, "monitor-device", "", "Receiving dongle, "+yardstick.SelectorUsage())
	monitorCmd.Flags().IntVarP(&sweeps, "count", "n", 0, "Stop after this many sweeps; 0 runs until interrupted")
	monitorCmd.Flags().Float64Var(&minSNR, "min-snr", 20, "Minimum dB over the noise floor to report a carrier")
	monitorCmd.Flags().BoolVar(&showPeaks, "peaks", false, "Print the strongest bin and average of every sweep")
	rootCmd.AddCommand(monitorCmd)
}

func runMonitor(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	usb := gousb.NewContext()
	defer usb.Close()

	dev, err := yardstick.SelectDevice(usb, monitorDevice)
	if err != nil {
		return err
	}
	defer dev.Close()

	snapshot, err := registers.TakeSnapshot(dev)
	if err != nil {
		return err
	}
	defer snapshot.Restore(dev)

	sa := specan.New(dev)
	if err := sa.Configure(); err != nil {
		return err
	}
	frames, err := sa.Start(ctx)
	if err != nil {
		return err
	}
	defer sa.Stop()

	fmt.Printf("Monitoring on %s, press Ctrl+C to stop\n", dev)

	last := 0
	for n := 0; sweeps == 0 || n < sweeps; n++ {
		frame, ok := <-frames
		if !ok {
			break
		}

		if showPeaks {
			floor := specan.NoiseFloor(frame)
			peak := specan.MaxRSSI(frame)
			above := specan.FindPeaks(frame, floor+float32(minSNR))
			fmt.Printf("%s  peak %.3f MHz %.1f dBm  avg %.1f dBm  %d bins over %.1f dBm\n",
				frame.Timestamp.Format("15:04:05.000"), float64(peak.FrequencyHz)/1e6, peak.RSSI,
				specan.AverageRSSI(frame), len(above), floor+float32(minSNR))
		}

		reading, snr, found := specan.Locate(frame, float32(minSNR))
		if !found {
			if last != 0 {
				fmt.Printf("%s  no carrier (floor %.1f dBm)\n", frame.Timestamp.Format("15:04:05.000"), specan.NoiseFloor(frame))
			}
			last = 0
			continue
		}
		if reading.Channel != last {
			fmt.Printf("%s  %s  %.1f dBm  SNR %.1f dB\n", frame.Timestamp.Format("15:04:05.000"),
				rftest.ChannelLabel(reading.Channel), reading.RSSI, snr)
		}
		last = reading.Channel
	}
	return nil
}
