package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"poolprobe/internal/dummy"
)

var dummyCmd = &cobra.Command{
	Use:   "dummy",
	Short: "Run internal dummy server",
	RunE: func(cmd *cobra.Command, args []string) error {
		port, _ := cmd.Flags().GetInt("port")
		knee, _ := cmd.Flags().GetInt("knee")
		base, _ := cmd.Flags().GetDuration("base-latency")

		srv := dummy.Start(dummy.ServerConfig{Port: port, Knee: knee, BaseLatency: base})

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	},
}

func init() {
	dummyCmd.Flags().IntP("port", "p", 8080, "Port to run dummy server on")
	dummyCmd.Flags().Int("knee", 64, "Concurrency at which /ping.json starts slowing down")
	dummyCmd.Flags().Duration("base-latency", 20*time.Millisecond, "Service time of /ping.json below the knee")
}
