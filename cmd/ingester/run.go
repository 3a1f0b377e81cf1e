// Package ingester assembles the sink's process: config, the Postgres
// pool, the self-healing DDL bootstrap, the send queue and consumer, the
// gRPC ingest service, the optional Prometheus scraper, and the
// metrics/health HTTP server, all run under one oklog/run.Group the way
// the teacher's cmd/ingester does.
package ingester

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"syscall"
	"time"

	"github.com/goodmetrics/metricsink/internal/catalog"
	"github.com/goodmetrics/metricsink/internal/config"
	"github.com/goodmetrics/metricsink/internal/ddl"
	"github.com/goodmetrics/metricsink/internal/ingest"
	"github.com/goodmetrics/metricsink/internal/pgpool"
	"github.com/goodmetrics/metricsink/internal/scraper"
	"github.com/goodmetrics/metricsink/internal/sink"
	"github.com/goodmetrics/metricsink/internal/tracing"
	"github.com/oklog/run"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RegisterFlags wires every component's flags into one FlagSet, mirroring
// the teacher's per-package Register*Flags convention.
func RegisterFlags(fs *flag.FlagSet, configFile *string) {
	fs.StringVar(configFile, "config-file", "", "Path to the configuration file; takes precedence over the command line flags.")
	config.RegisterServerFlags(fs)
	config.RegisterDatabaseFlags(fs)
	config.RegisterSinkFlags(fs)
	config.RegisterScraperFlags(fs)
	config.RegisterTracingFlags(fs)
	config.RegisterMemoryLimitFlags(fs)
}

// Run brings the sink up end to end and blocks until it is told to stop.
func Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg := config.DefaultConfig
	slog.InfoContext(ctx, "ingester.config.loaded", "config", cfg.GetSanitizedConfig())

	pool, err := pgpool.Open(ctx, pgpool.Config{
		ConnString: cfg.Database.PostgreSQL.ConnString,
		MaxConns:   cfg.Database.PostgreSQL.MaxConns,
	})
	if err != nil {
		return fmt.Errorf("open postgres pool: %w", err)
	}
	defer pool.Close()

	if err := ddl.EnsureStatisticSetType(ctx, pool.Raw()); err != nil {
		return fmt.Errorf("ensure statistic_set type: %w", err)
	}
	if err := ddl.EnsureHistogramType(ctx, pool.Raw()); err != nil {
		return fmt.Errorf("ensure histogram type: %w", err)
	}
	if err := ddl.RegisterCompositeTypes(ctx, pool); err != nil {
		return fmt.Errorf("register composite types: %w", err)
	}
	if err := catalog.Bootstrap(ctx, cfg.Database.PostgreSQL.ConnString); err != nil {
		return fmt.Errorf("bootstrap catalog: %w", err)
	}

	var g run.Group

	queue := sink.NewQueue()
	consumer := sink.NewConsumer(queue, pool, cfg.Sink.CoalesceWindow)

	// Sink consumer loop
	{
		ctx, cancel := context.WithCancel(ctx)
		g.Add(func() error {
			return consumer.Run(ctx)
		}, func(error) {
			queue.Close()
			cancel()
		})
	}

	// gRPC ingest service
	ingestSrv := ingest.New(ingest.Config{
		ListenAddress:           cfg.Server.GRPCListenAddress,
		GRPCMaxRecvMsgSizeBytes: cfg.Server.GRPCMaxRecvMsgSizeBytes,
		GracefulShutdownTimeout: cfg.Server.GracefulShutdownTimeout,
		DrainDelay:              cfg.Server.DrainDelay,
	}, queue)
	{
		ctx, cancel := context.WithCancel(ctx)
		g.Add(func() error {
			return ingestSrv.Run(ctx)
		}, func(err error) {
			if err == nil || errors.Is(err, context.Canceled) {
				slog.InfoContext(ctx, "ingester.grpc.stopped")
			} else {
				slog.ErrorContext(ctx, "ingester.grpc.error", "err", err)
			}
			cancel()
		})
	}

	// Optional Prometheus scraper producer
	if cfg.Scraper.Enabled {
		s := scraper.New(scraper.Config{
			EndpointURL:     cfg.Scraper.EndpointURL,
			Interval:        cfg.Scraper.Interval,
			Timeout:         cfg.Scraper.Timeout,
			TablePrefix:     cfg.Scraper.TablePrefix,
			BonusDimensions: cfg.Scraper.BonusDimensions,
		}, queue)
		ctx, cancel := context.WithCancel(ctx)
		g.Add(func() error {
			s.Run(ctx)
			return nil
		}, func(error) {
			cancel()
		})
	}

	// Optional OTLP tracing
	if cfg.Tracing.Enabled {
		tp, err := tracing.WithTracing(ctx, cfg.Tracing)
		if err != nil {
			return fmt.Errorf("set up tracing: %w", err)
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := tp.Shutdown(shutdownCtx); err != nil {
				slog.ErrorContext(ctx, "ingester.tracing.shutdown_error", "err", err)
			}
		}()
	}

	// Metrics and health HTTP server
	{
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		mux.HandleFunc("/livez", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ok"))
		})
		mux.HandleFunc("/readyz", func(w http.ResponseWriter, r *http.Request) {
			if !ingestSrv.IsReady(r.Context()) {
				http.Error(w, "not ready", http.StatusServiceUnavailable)
				return
			}
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ok"))
		})
		srv := &http.Server{
			Addr:         cfg.Server.MetricsListenAddress,
			Handler:      mux,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		}
		g.Add(func() error {
			slog.InfoContext(ctx, "ingester.metrics.exposing", "address", srv.Addr)
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				return err
			}
			return nil
		}, func(error) {
			c, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(c)
		})
	}

	g.Add(run.SignalHandler(ctx, syscall.SIGINT, syscall.SIGTERM))

	return g.Run()
}
