package cmd

import (
	"fmt"
	"os"

	"Bt1Zen/server"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "bt1zen",
	Short: "Bt1Zen is a meditation playback and audio-generation service.",
	Run: func(cmd *cobra.Command, args []string) {
		server.Start()
	},
}

// Execute executes the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
