package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/birmacher/tutor-relay/logger"
	"github.com/birmacher/tutor-relay/metrics"
	"github.com/birmacher/tutor-relay/server"
	"github.com/birmacher/tutor-relay/version"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the streaming chat relay",
	Long: `Serve GET /chat?prompt=... as a text/event-stream response. Each text
fragment produced by the provider is sent as one "data: <text>" event.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		settings, err := loadSettings(cmd)
		if err != nil {
			return err
		}

		rl, err := newRelay(settings)
		if err != nil {
			return err
		}

		reg := prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		metrics.Register(reg)
		metrics.SetBuildInfo(version.Version)

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		logger.Infow("Starting relay",
			"addr", settings.Server.Addr,
			"metrics_addr", settings.Server.MetricsAddr,
			"allowed_origin", settings.Server.AllowedOrigin,
			"version", version.Version,
		)

		return server.Run(ctx, settings.Server,
			server.New(settings.Server, rl),
			promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	addUpstreamFlags(serveCmd)
	serveCmd.Flags().String("addr", "", "Listen address for the relay (default :8000)")
	serveCmd.Flags().String("metrics-addr", "", "Listen address for /metrics; disabled when empty")
	serveCmd.Flags().String("allowed-origin", "", "Browser origin allowed to call the relay")
}
