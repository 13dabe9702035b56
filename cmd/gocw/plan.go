package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/herlein/gocw/pkg/config"
)

// Per-run flags of cw and flood
var (
	channel  int
	noHop    bool
	power    int
	dwell    time.Duration
	settle   time.Duration
	startup  time.Duration
	frames   int
	yieldGap time.Duration
)

var envLookup = os.Getenv

var (
	planMode   string
	planOutput string
)

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Manage test plan files",
}

var planSaveCmd = &cobra.Command{
	Use:   "save <name>",
	Short: "Write the merged plan (file, environment, flags) to a plan file",
	Long: `Merges --config, the GOCW_* environment and the flags given here the same
way cw and flood do, and writes the result as YAML to etc/gocw/<name>.yaml
(or --output). Run it later with "gocw cw --config <file>".`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := savePlan(cmd, args[0])
		if err != nil {
			return err
		}
		fmt.Printf("Plan saved to %s\n", path)
		return nil
	},
}

func init() {
	addRunFlags(planSaveCmd)
	planSaveCmd.Flags().StringVar(&planMode, "mode", "", "Emission: cw or flood (default from the plan)")
	planSaveCmd.Flags().StringVarP(&planOutput, "output", "o", "", "Plan file to write instead of etc/gocw/<name>.yaml")
	planCmd.AddCommand(planSaveCmd)
}

// savePlan validates the merged plan and writes it, returning the path
func savePlan(cmd *cobra.Command, name string) (string, error) {
	cfg, err := loadPlan(cmd, planMode)
	if err != nil {
		return "", err
	}

	path := planOutput
	if path == "" {
		path = config.GetPlanPath(name)
	}
	if err := config.SaveToFile(cfg, path); err != nil {
		return "", err
	}
	return path, nil
}

func addRunFlags(cmd *cobra.Command) {
	cmd.Flags().IntVar(&channel, "channel", 0, "Start channel (1-14)")
	cmd.Flags().BoolVar(&noHop, "no-hop", false, "Stay on the start channel")
	cmd.Flags().IntVar(&power, "power", 0, "Max TX power in 0.25dBm steps (80 = 20dBm)")
	cmd.Flags().DurationVar(&dwell, "dwell", 0, "Time on each channel")
	cmd.Flags().DurationVar(&settle, "settle", 0, "Pause on each side of a channel change")
	cmd.Flags().DurationVar(&startup, "startup", 0, "Pause between radio start and emission")
}

// loadPlan merges the config file, environment and changed flags; mode,
// when set, is the emission of the command being run
func loadPlan(cmd *cobra.Command, mode string) (*config.Config, error) {
	return config.Load(configPath, envLookup, func(cfg *config.Config) {
		if mode != "" {
			cfg.Mode = mode
		}
		applyFlags(cmd, cfg)
	})
}

func applyFlags(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	changed := func(name string) bool {
		f := flags.Lookup(name)
		return f != nil && f.Changed
	}

	if changed("backend") {
		cfg.Backend.Type = backendType
	}
	if changed("device") {
		cfg.Backend.Device = device
	}
	if changed("spi") {
		cfg.Backend.SPI = spiDev
	}
	if changed("ce") {
		cfg.Backend.CEPin = cePin
	}
	if changed("port") {
		cfg.Backend.Port = portName
	}
	if changed("baud") {
		cfg.Backend.Baud = baudRate
	}
	if changed("prompt") {
		cfg.Backend.Prompt = prompt
	}
	if changed("url") {
		cfg.Backend.URL = wsURL
	}
	if changed("username") {
		cfg.Backend.Username = wsUsername
	}
	if changed("no-ssl-verify") {
		cfg.Backend.SkipTLSVerify = wsNoSSLVerify
	}
	if changed("storage") {
		cfg.Storage.Path = storagePath
	}
	if changed("log-file") {
		cfg.Log.File = logFile
	}
	if changed("tui") {
		cfg.Log.TUI = useTUI
	}

	if changed("channel") {
		cfg.Radio.Channel = channel
	}
	if changed("no-hop") {
		cfg.Radio.Hop = !noHop
	}
	if changed("power") {
		cfg.Radio.Power = power
	}
	if changed("dwell") {
		cfg.Timing.Dwell = dwell
	}
	if changed("settle") {
		cfg.Timing.Settle = settle
	}
	if changed("startup") {
		cfg.Timing.Startup = startup
	}
	if changed("frames") {
		cfg.Flood.Frames = frames
	}
	if changed("yield") {
		cfg.Flood.Yield = yieldGap
	}
}
