package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/gaurav-prasanna/pagegate/api"
	"github.com/gaurav-prasanna/pagegate/core/logging"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the capability gateway over HTTP",
	Long: `Serve discovers capabilities from the manifest directory and serves the
gateway API. Send SIGHUP or POST /capabilities/rescan to rediscover.

Examples:
  pagegate serve
  pagegate serve --addr :9090 --manifests ./manifests`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("addr", "", "listen address (default :8080)")
	_ = v.BindPFlag("server.addr", serveCmd.Flags().Lookup("addr"))
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(context.Background()); err != nil {
			logger.Warn().Err(err).Msg("closing")
		}
	}()

	if err := a.load(ctx, flagBuiltin); err != nil {
		return err
	}
	go rescanOnHangup(ctx, a)
	if a.redis != nil {
		refreshCtx, stopRefresh := context.WithCancel(ctx)
		defer stopRefresh()
		go a.redis.Run(refreshCtx, a.registry)
	}

	if logger.GetLevel() > zerolog.DebugLevel {
		gin.SetMode(gin.ReleaseMode)
	}
	opts := []api.Option{
		api.WithLogger(logging.Component(logger, "http")),
		api.WithRescan(a.rescan),
		api.WithCORSOrigins(cfg.Server.CORSOrigins),
	}
	if a.prom != nil {
		opts = append(opts, api.WithMetrics(
			promhttp.HandlerFor(a.prom, promhttp.HandlerOpts{}),
			api.NewHTTPMetrics(a.prom)))
	}
	return api.New(a.gateway, opts...).Serve(ctx, cfg.Server.Addr, cfg.Server.ShutdownTimeout)
}

// rescanOnHangup reruns discovery on every SIGHUP until ctx is done.
func rescanOnHangup(ctx context.Context, a *app) {
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)

	for {
		select {
		case <-ctx.Done():
			return
		case <-hup:
			snap, err := a.rescan(ctx)
			if err != nil {
				logger.Error().Err(err).Msg("rescan failed, keeping previous capabilities")
				continue
			}
			logger.Info().Int("capabilities", snap.Len()).Msg("rescanned on SIGHUP")
		}
	}
}
