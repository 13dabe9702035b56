package main

import (
	"fmt"
	"io"
	"os"

	"github.com/google/gousb"
	"github.com/spf13/cobra"

	"github.com/herlein/gocw/pkg/espcert"
	"github.com/herlein/gocw/pkg/nvs"
	"github.com/herlein/gocw/pkg/registers"
	"github.com/herlein/gocw/pkg/rfcat"
	"github.com/herlein/gocw/pkg/yardstick"
)

var (
	verbose      bool
	listSnapshot bool
)

var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "List attached rfcat dongles and serial ports",
	RunE:  runDevices,
}

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "USB-reset attached rfcat dongles to recover from USB errors",
	RunE: func(cmd *cobra.Command, args []string) error {
		usb := gousb.NewContext()
		defer usb.Close()

		serials, err := yardstick.ResetAll(usb)
		for _, serial := range serials {
			fmt.Printf("  %s: Reset OK\n", serial)
		}
		if err != nil {
			return err
		}
		if len(serials) == 0 {
			fmt.Println("No rfcat devices found")
		}
		return nil
	},
}

var restoreCmd = &cobra.Command{
	Use:   "restore",
	Short: "Write the register snapshot saved by the last run back to a dongle",
	Long: `Restores a dongle left transmitting by a run that did not exit cleanly.
Snapshots are saved when storage.persist is set in the test plan.`,
	RunE: runRestore,
}

func init() {
	devicesCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Show firmware and chip details")
	restoreCmd.Flags().BoolVarP(&listSnapshot, "list", "l", false, "List stored snapshots instead of restoring")
}

func runDevices(cmd *cobra.Command, args []string) error {
	usb := gousb.NewContext()
	defer usb.Close()

	devices, err := yardstick.FindAllDevices(usb)
	if err != nil {
		return err
	}

	if len(devices) == 0 {
		fmt.Println("No rfcat devices found")
	} else {
		fmt.Printf("Found %d rfcat device(s):\n", len(devices))
		fmt.Println()
	}

	for i, device := range devices {
		defer device.Close()

		if !verbose {
			fmt.Printf("  #%d  %s  %d:%d  %s\n", i, device.Serial, device.Bus, device.Address, device.Product)
			continue
		}

		fmt.Printf("Device #%d:\n", i)
		fmt.Printf("  Serial:       %s\n", device.Serial)
		fmt.Printf("  Bus:Address:  %d:%d\n", device.Bus, device.Address)
		fmt.Printf("  Manufacturer: %s\n", device.Manufacturer)
		fmt.Printf("  Product:      %s\n", device.Product)

		if err := device.Ping([]byte("gocw")); err == nil {
			fmt.Printf("  Ping:         ok\n")
		} else {
			fmt.Printf("  Ping:         (error: %v)\n", err)
		}

		if buildType, err := device.GetBuildType(); err == nil {
			fmt.Printf("  Firmware:     %s\n", buildType)
		} else {
			fmt.Printf("  Firmware:     (error: %v)\n", err)
		}

		if partNum, err := device.GetPartNum(); err == nil {
			usable := "no 2.4GHz radio"
			if yardstick.Is24GHz(partNum) {
				usable = "2.4GHz"
			}
			fmt.Printf("  Chip:         %s (0x%02X, %s)\n", yardstick.ChipName(partNum), partNum, usable)
		} else {
			fmt.Printf("  Chip:         (error: %v)\n", err)
		}
		fmt.Println()
	}

	if len(devices) > 0 && !verbose {
		fmt.Println()
		fmt.Println("Use -d to select a device:", yardstick.SelectorUsage())
	}

	ports, err := espcert.ListSerialPorts()
	if err == nil && len(ports) > 0 {
		fmt.Println()
		fmt.Println("Serial ports (espcert --port):")
		for _, port := range ports {
			fmt.Printf("  %s\n", port)
		}
	}
	return nil
}

func runRestore(cmd *cobra.Command, args []string) error {
	cfg, err := loadPlan(cmd, "")
	if err != nil {
		return err
	}

	store := openStore(cfg)
	if err := store.Init(); err != nil {
		return fmt.Errorf("failed to open store %s: %w", store.Path(), err)
	}

	if listSnapshot {
		return listSnapshots(os.Stdout, store)
	}

	usb := gousb.NewContext()
	defer usb.Close()

	dev, err := yardstick.SelectDevice(usb, cfg.Backend.Device)
	if err != nil {
		return err
	}
	defer dev.Close()

	snapshot, err := rfcat.RestoreSnapshot(dev, store, rfcat.SnapshotKey(dev.Serial))
	if err != nil {
		return fmt.Errorf("failed to restore %s: %w", dev.Serial, err)
	}

	freq := registers.GetFrequency(&snapshot.Registers, yardstick.CrystalHz(snapshot.PartNum))
	fmt.Printf("Restored %s from snapshot of %s\n", dev.Serial, snapshot.Timestamp.Format("2006-01-02 15:04:05"))
	fmt.Printf("  Chip:       %s\n", yardstick.ChipName(snapshot.PartNum))
	fmt.Printf("  Frequency:  %.3f MHz\n", float64(freq)/1e6)
	fmt.Printf("  Modulation: %s\n", registers.ModulationName(registers.GetModulation(&snapshot.Registers)))
	return nil
}

func listSnapshots(w io.Writer, store *nvs.Store) error {
	keys, err := store.Keys(rfcat.SnapshotNamespace)
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "%s: %d entries\n", store.Path(), store.Used())
	if len(keys) == 0 {
		fmt.Fprintln(w, "No register snapshots stored")
		return nil
	}

	for _, key := range keys {
		snapshot, err := rfcat.LoadSnapshot(store, key)
		if err != nil {
			fmt.Fprintf(w, "  %s  (error: %v)\n", key, err)
			continue
		}
		fmt.Fprintf(w, "  %s  %s  %s\n", key, yardstick.ChipName(snapshot.PartNum),
			snapshot.Timestamp.Format("2006-01-02 15:04:05"))
	}
	return nil
}
