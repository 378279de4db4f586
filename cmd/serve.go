package cmd

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	log "github.com/jensneuse/abstractlogger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/decarvalhoe/meetinity/pkg/federation"
	gatewayhttp "github.com/decarvalhoe/meetinity/pkg/http"
	"github.com/decarvalhoe/meetinity/pkg/httpclient"
)

const shutdownTimeout = 10 * time.Second

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "serve exposes the supergraph, its metadata and the GraphQL router proxy over HTTP",
	Long: `serve composes the supergraph on startup and, when GRAPHQL_POLL_INTERVAL is set, on every interval.
A failed composition keeps the previously published supergraph in service.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := logger()

		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		registry := prometheus.NewRegistry()
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)

		handlerConfig := gatewayhttp.HandlerConfig{
			RouterURL:    cfg.RouterURL,
			RouterClient: httpclient.New(cfg.ProxyConnectTimeout, cfg.ProxyReadTimeout),
			Gatherer:     registry,
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		group, ctx := errgroup.WithContext(ctx)

		if cfg.FederationEnabled {
			gateway, err := newGateway(cfg,
				federation.WithLogger(logger),
				federation.WithMetrics(federation.NewMetrics(registry)),
			)
			if err != nil {
				return err
			}
			handlerConfig.Federation = gateway

			poller := federation.NewPoller(gateway, cfg.PollInterval)
			group.Go(func() error {
				poller.Run(ctx)
				return nil
			})
		} else {
			logger.Info("GraphQL federation disabled")
		}

		server := &http.Server{
			Addr:              cfg.ListenAddr,
			Handler:           gatewayhttp.NewGatewayHTTPHandler(handlerConfig, logger),
			ReadHeaderTimeout: cfg.ProxyReadTimeout,
		}

		group.Go(func() error {
			logger.Info("Listening",
				log.String("addr", cfg.ListenAddr),
			)
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				return err
			}
			return nil
		})
		group.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return server.Shutdown(shutdownCtx)
		})

		return group.Wait()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
