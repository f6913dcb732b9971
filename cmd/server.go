package cmd

import (
	"Bt1Zen/server"

	"github.com/spf13/cobra"
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Run the Bt1Zen HTTP server",
	Long:  `Runs the playback session, generated-audio cache and progress APIs.`,
	Run: func(cmd *cobra.Command, args []string) {
		server.Start()
	},
}

func init() {
	rootCmd.AddCommand(serverCmd)
}
