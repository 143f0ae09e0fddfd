package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"medication-alerts/internal/adherence"
	"medication-alerts/internal/common/config"
	"medication-alerts/internal/common/database"
	httpserver "medication-alerts/internal/common/http"
	"medication-alerts/internal/common/logger"
	"medication-alerts/internal/common/observability"
	"medication-alerts/internal/directory"
	"medication-alerts/internal/httpapi"
	"medication-alerts/internal/ledger"
	"medication-alerts/internal/notification"
	"medication-alerts/internal/supply"
)

func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	configPath := flag.String("config", "", "path to a config file (default: configs/config.yaml)")
	seedPath := flag.String("seed", "", "JSON file of patients to register at startup")
	serveOnly := flag.Bool("serve", false, "run the HTTP API without the console menu")
	flag.Parse()

	var (
		cfg *config.Config
		err error
	)
	if *configPath != "" {
		cfg, err = config.LoadFromFile(*configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	zapLog, err := logger.New(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init failed: %v\n", err)
		os.Exit(1)
	}
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	obs := observability.New(cfg.App.Name, log)
	defer obs.Shutdown()

	// --- Transport ---
	var transport notification.Transport
	switch cfg.Notifications.Transport {
	case config.TransportSES:
		sesTransport, err := notification.NewSESTransport(ctx, cfg.AWS)
		if err != nil {
			zapLog.Fatal("ses transport init failed", zap.Error(err))
		}
		transport = sesTransport
	default:
		transport = notification.NewSMTPTransport(cfg.SMTP)
	}

	dispatchCfg := &notification.Config{
		FromEmail:   cfg.Notifications.FromEmail,
		MaxAttempts: cfg.Notifications.MaxAttempts,
		RetryDelay:  cfg.Notifications.RetryDelay,
	}
	if err := dispatchCfg.Validate(); err != nil {
		zapLog.Warn("notification settings incomplete, deliveries will fail", zap.Error(err))
	}
	dispatcher := notification.NewDispatcher(dispatchCfg, transport, log)

	// --- Ledger sinks ---
	var (
		sinks   []ledger.Sink
		pingers []database.Pinger
	)
	if cfg.Ledger.FilePath != "" {
		sinks = append(sinks, ledger.NewFileSink(cfg.Ledger.FilePath))
	}

	if cfg.Ledger.PostgresEnabled {
		var pg *database.PostgresClient
		err = retryWithBackoff(func() error {
			var err error
			pg, err = database.NewPostgres(cfg.Database.Postgres)
			if err != nil {
				return err
			}
			if err := pg.Ping(ctx); err != nil {
				pg.Close()
				return err
			}
			return nil
		}, 5, 2*time.Second, zapLog, "PostgreSQL connection")
		if err != nil {
			zapLog.Fatal("postgres failed after retries", zap.Error(err))
		}
		defer pg.Close()

		pgSink := ledger.NewPostgresSink(pg.DB)
		if err := pgSink.EnsureSchema(ctx); err != nil {
			zapLog.Fatal("postgres schema setup failed", zap.Error(err))
		}
		sinks = append(sinks, pgSink)
		pingers = append(pingers, pg)
		zapLog.Info("PostgreSQL dose event sink enabled")
	}

	if cfg.Ledger.ElasticsearchEnabled {
		var esClient *database.ElasticsearchClient
		err = retryWithBackoff(func() error {
			var err error
			esClient, err = database.NewElasticsearch(cfg.Database.Elasticsearch, nil)
			if err != nil {
				return err
			}
			return esClient.Ping(ctx)
		}, 5, 2*time.Second, zapLog, "Elasticsearch connection")
		if err != nil {
			zapLog.Fatal("elasticsearch failed after retries", zap.Error(err))
		}

		sinks = append(sinks, ledger.NewElasticsearchSink(esClient.Client, cfg.Ledger.ElasticsearchIndex))
		pingers = append(pingers, esClient)
		zapLog.Info("Elasticsearch dose event sink enabled")
	}

	doseLedger := ledger.New(log, sinks...)

	dir := directory.NewService(directory.ServiceDependencies{
		Tracker:       supply.NewTracker(supply.Config{LowSupplyThreshold: cfg.Notifications.LowSupplyThreshold}),
		Ledger:        doseLedger,
		Notifier:      dispatcher,
		Observability: obs,
		Logger:        log,
	})

	// --- Report cache ---
	var cache *adherence.Cache
	if cfg.Cache.Enabled {
		rdb := database.NewRedis(cfg.Database.Redis)
		err = retryWithBackoff(func() error {
			return rdb.Ping(ctx)
		}, 5, 2*time.Second, zapLog, "Redis connection")
		if err != nil {
			zapLog.Fatal("redis failed after retries", zap.Error(err))
		}
		defer rdb.Close()

		cache = adherence.NewCache(rdb.Client, cfg.Cache.TTL)
		pingers = append(pingers, rdb)
		zapLog.Info("Redis report cache enabled")
	}

	reporter := adherence.NewReporter(dir, doseLedger, cache, log)

	if *seedPath != "" {
		n, err := loadSeed(ctx, dir, *seedPath)
		if err != nil {
			zapLog.Fatal("seed load failed", zap.Error(err), zap.Int("registered", n))
		}
		zapLog.Info("seed patients registered", zap.Int("count", n))
	}

	// --- HTTP API ---
	serverDone := make(chan struct{})
	if cfg.HTTP.Enabled || *serveOnly {
		router := httpapi.NewRouter(httpapi.Options{
			Directory: dir,
			Reporter:  reporter,
			Ready: func(ctx context.Context) map[string]string {
				return database.CheckAll(ctx, 3*time.Second, pingers...)
			},
			Metrics: promhttp.Handler(),
			Logger:  log,
		})
		server := httpserver.NewServer(cfg.HTTP.Address, router, log)
		go func() {
			defer close(serverDone)
			if err := server.Serve(ctx); err != nil {
				zapLog.Error("HTTP API failed", zap.Error(err))
				stop()
			}
		}()
	} else {
		close(serverDone)
	}

	if !*serveOnly {
		// A blocked stdin read cannot be interrupted, so a signal does not
		// wait for the menu to notice.
		go func() {
			if err := NewMenu(dir, reporter, os.Stdin, os.Stdout).Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				zapLog.Error("console menu stopped", zap.Error(err))
			}
			stop()
		}()
	}
	<-ctx.Done()
	<-serverDone

	zapLog.Info("medtracker stopped")
}
