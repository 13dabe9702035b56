package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/herlein/gocw/pkg/rftest"
)

var channelsCmd = &cobra.Command{
	Use:   "channels",
	Short: "Print the 2.4GHz channel plan",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("Channel  Frequency")
		for ch := rftest.MinChannel; ch <= rftest.MaxChannel; ch++ {
			fmt.Printf("  %2d     %d MHz\n", ch, rftest.FrequencyMHz(ch))
		}
	},
}
