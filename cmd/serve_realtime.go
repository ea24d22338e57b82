package cmd

import (
	"github.com/nsyszr/rtdb/pkg/cmd/server"
	"github.com/spf13/cobra"
)

// serveRealtimeCmd represents the serve realtime command
var serveRealtimeCmd = &cobra.Command{
	Use:   "realtime",
	Short: "Serve realtime gateway instance",
	Run:   server.RunServeRealtime(c),
}

func init() {
	serveCmd.AddCommand(serveRealtimeCmd)
}
