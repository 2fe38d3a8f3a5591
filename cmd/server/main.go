// Command server wires the custody service and serves the HTTP surface.
// Business logic lives in the internal service packages; main only selects
// implementations from configuration and manages their lifecycle.
package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"golang.org/x/sync/errgroup"

	"vaultgate/internal/admin"
	adminhandler "vaultgate/internal/admin/handler"
	"vaultgate/internal/custody"
	custodyhandler "vaultgate/internal/custody/handler"
	custodymetrics "vaultgate/internal/custody/metrics"
	"vaultgate/internal/events"
	jwttoken "vaultgate/internal/jwt_token"
	"vaultgate/internal/ledger"
	"vaultgate/internal/oracle"
	"vaultgate/internal/pending"
	"vaultgate/internal/platform/config"
	"vaultgate/internal/platform/httpserver"
	"vaultgate/internal/platform/logger"
	"vaultgate/internal/platform/middleware"
	platformredis "vaultgate/internal/platform/redis"
	httptransport "vaultgate/internal/transport/http"
	"vaultgate/internal/treasury"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg := config.FromEnv()
	log := logger.New()
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var db *sql.DB
	if cfg.Postgres.DSN != "" {
		var err error
		db, err = sql.Open("pgx", cfg.Postgres.DSN)
		if err != nil {
			return fmt.Errorf("opening postgres: %w", err)
		}
		defer db.Close()
		if err := db.PingContext(ctx); err != nil {
			return fmt.Errorf("pinging postgres: %w", err)
		}
	}

	balanceStore, err := buildBalanceStore(ctx, db)
	if err != nil {
		return err
	}
	ldg, err := ledger.New(balanceStore, ledger.WithLogger(log))
	if err != nil {
		return fmt.Errorf("building ledger: %w", err)
	}

	registry, redisClient, err := buildRegistry(cfg, log)
	if err != nil {
		return err
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	settingsStore := admin.NewInMemorySettingsStore(admin.OracleSettings{
		Endpoint:       cfg.Oracle.Endpoint,
		SubscriptionID: cfg.Oracle.SubscriptionID,
		GasLimit:       cfg.Oracle.GasLimit,
	})
	adminService, err := admin.New(settingsStore, admin.WithLogger(log))
	if err != nil {
		return fmt.Errorf("building admin service: %w", err)
	}

	publisher, eventsWorker, err := buildEventPipeline(ctx, cfg, db, log)
	if err != nil {
		return err
	}
	defer publisher.Close()

	custodyService, err := custody.New(
		ldg,
		registry,
		treasury.NewInMemoryTreasury(),
		buildOracle(cfg, log),
		settingsStore,
		custody.WithLogger(log),
		custody.WithMetrics(custodymetrics.New()),
		custody.WithPublisher(publisher),
	)
	if err != nil {
		return fmt.Errorf("building custody service: %w", err)
	}

	jwtService := jwttoken.NewJWTService(cfg.JWTSigningKey, "vaultgate", "vaultgate-admin")
	adminAuth := middleware.RequireAdmin(jwttoken.NewMiddlewareAdapter(jwtService), cfg.AdminSubject, log)

	router := httptransport.NewRouter(httptransport.RouterDeps{
		Custody:   custodyhandler.New(custodyService, log),
		Admin:     adminhandler.New(adminService, log),
		AdminAuth: adminAuth,
	})
	srv := httpserver.New(cfg.Addr, router)

	group, ctx := errgroup.WithContext(ctx)

	group.Go(func() error {
		log.Info("starting vaultgate", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	group.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if eventsWorker != nil {
		group.Go(func() error {
			if err := eventsWorker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				return fmt.Errorf("events worker: %w", err)
			}
			return nil
		})
	}

	sweeper := custody.NewSweeper(custodyService, cfg.Custody.PendingTTL, cfg.Custody.SweepInterval, log)
	group.Go(func() error {
		if err := sweeper.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("expiry sweeper: %w", err)
		}
		return nil
	})

	if err := group.Wait(); err != nil {
		return err
	}
	log.Info("vaultgate stopped")
	return nil
}

func buildBalanceStore(ctx context.Context, db *sql.DB) (ledger.BalanceStore, error) {
	if db == nil {
		return ledger.NewInMemoryBalanceStore(), nil
	}
	store := ledger.NewPostgresBalanceStore(db)
	if err := store.Migrate(ctx); err != nil {
		return nil, fmt.Errorf("migrating balances: %w", err)
	}
	return store, nil
}

func buildRegistry(cfg config.Server, log *slog.Logger) (pending.Registry, *platformredis.Client, error) {
	client, err := platformredis.New(cfg.Redis)
	if err != nil {
		return nil, nil, fmt.Errorf("connecting redis: %w", err)
	}
	if client == nil {
		return pending.NewInMemoryRegistry(), nil, nil
	}
	log.Info("pending registry backed by redis")
	return pending.NewRedisRegistry(client.Client), client, nil
}

// buildEventPipeline assembles the fail-open event path: an async channel into
// the event store, fanned out to Kafka when brokers are configured.
func buildEventPipeline(ctx context.Context, cfg config.Server, db *sql.DB, log *slog.Logger) (events.Publisher, *events.Worker, error) {
	var store events.Store
	if db != nil {
		pgStore := events.NewPostgresStore(db)
		if err := pgStore.Migrate(ctx); err != nil {
			return nil, nil, fmt.Errorf("migrating events: %w", err)
		}
		store = pgStore
	} else {
		store = events.NewMemorySink()
	}

	channel := events.NewChannelPublisher(256, log)
	worker := events.NewWorker(store, channel.Inbox(), log)

	if len(cfg.Kafka.Brokers) == 0 {
		return channel, worker, nil
	}

	kafka, err := events.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic)
	if err != nil {
		return nil, nil, fmt.Errorf("connecting kafka: %w", err)
	}
	log.Info("event stream publishing to kafka", "topic", cfg.Kafka.Topic)
	return events.NewFanout(channel, kafka), worker, nil
}

func buildOracle(cfg config.Server, log *slog.Logger) custody.Oracle {
	if cfg.Oracle.Endpoint == "" {
		log.Warn("no oracle endpoint configured, using local stub oracle")
		return oracle.NewLocal()
	}
	return oracle.NewClient()
}
