// gocw drives a 2.4GHz radio through an RF test: an unmodulated carrier or
// a frame flood, hopping channels 1..14.
//
// Backends:
//
//	rfcat    CC2510/CC2511 dongle over USB (--device selects one)
//	nrf24    nRF24L01+ on SPI (--spi, --ce)
//	espcert  ESP32 RF test console (--port or --url)
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/herlein/gocw/pkg/yardstick"
)

var (
	configPath string

	backendType string
	device      string
	spiDev      string
	cePin       string

	portName      string
	baudRate      int
	prompt        string
	wsURL         string
	wsUsername    string
	wsNoSSLVerify bool

	storagePath string
	logFile     string
	useTUI      bool
)

var rootCmd = &cobra.Command{
	Use:   "gocw",
	Short: "2.4GHz continuous-wave and frame flood test generator",
	Long: `gocw - RF test generator for 2.4GHz radios.

Emits an unmodulated carrier (cw) or back-to-back management frames (flood)
on channel 1 (2412 MHz), hopping through channels 1..14 every dwell period.

Settings are read from --config (YAML), then GOCW_MODE, GOCW_BACKEND,
GOCW_CHANNEL, GOCW_DWELL (a duration such as 1s) and GOCW_POWER, then
flags. "gocw plan save" writes the merged result back as a plan file.

For WebSocket authentication the password is read from GOCW_WS_PASSWORD, or
prompted interactively if not set.`,
	Version:       "0.3.0",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Test plan file (YAML)")

	rootCmd.PersistentFlags().StringVar(&backendType, "backend", "", "Radio backend: rfcat, nrf24, espcert")
	rootCmd.PersistentFlags().StringVarP(&device, "device", "d", "", yardstick.SelectorUsage())
	rootCmd.PersistentFlags().StringVar(&spiDev, "spi", "", "SPI device (nrf24)")
	rootCmd.PersistentFlags().StringVar(&cePin, "ce", "", "CE GPIO pin (nrf24)")

	rootCmd.PersistentFlags().StringVarP(&portName, "port", "p", "", "Serial port device (espcert)")
	rootCmd.PersistentFlags().IntVarP(&baudRate, "baud", "b", 0, "Baud rate (espcert serial only)")
	rootCmd.PersistentFlags().StringVar(&prompt, "prompt", "", "Console prompt of the ESP-IDF app (espcert, default \"esp32> \")")
	rootCmd.PersistentFlags().StringVarP(&wsURL, "url", "u", "", "WebSocket URL (ws:// or wss://) of a serial bridge")
	rootCmd.PersistentFlags().StringVar(&wsUsername, "username", "", "Username for HTTP Basic auth")
	rootCmd.PersistentFlags().BoolVar(&wsNoSSLVerify, "no-ssl-verify", false, "Skip TLS certificate verification (wss:// only)")

	rootCmd.PersistentFlags().StringVar(&storagePath, "storage", "", "Key/value store file")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "Also append console lines to this rotating log file")
	rootCmd.PersistentFlags().BoolVar(&useTUI, "tui", false, "Show a live dashboard instead of plain lines")

	rootCmd.AddCommand(cwCmd, floodCmd, channelsCmd, devicesCmd, resetCmd, restoreCmd, planCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
