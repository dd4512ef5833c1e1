package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"os"
	"sync"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"google.golang.org/grpc"

	"reservo/internal/config"
	"reservo/internal/outbox"
	"reservo/internal/service/reservations"
	"reservo/internal/store"
	"reservo/internal/store/postgres"
	"reservo/internal/store/rediscache"
	"reservo/internal/telemetry"
	grpcTransport "reservo/internal/transport/grpc"
	"reservo/internal/transport/ops"
)

func newServeCmd() *cobra.Command {
	var migrate bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the gRPC API, the outbox publisher and the ops HTTP endpoints",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			return serve(cmd.Context(), cfg, migrate)
		},
	}
	cmd.Flags().BoolVar(&migrate, "migrate", false, "apply pending migrations before serving")
	return cmd
}

func serve(ctx context.Context, cfg config.Config, migrate bool) error {
	log := newLogger(os.Stdout, cfg.LogLevel)
	slog.SetDefault(log)

	log.Info("starting",
		slog.String("version", version),
		slog.String("grpc_addr", cfg.GRPCAddr()),
		slog.String("http_addr", cfg.HTTPAddr),
		slog.String("log_level", cfg.LogLevel),
	)

	loc, err := cfg.Location()
	if err != nil {
		return fail(log, "invalid timezone", err)
	}

	shutdownTracing, err := telemetry.Setup(ctx, telemetry.Config{
		Enabled:      cfg.OTelEnabled,
		ServiceName:  "reservo",
		OTLPEndpoint: cfg.OTelEndpoint,
		SampleRatio:  cfg.OTelSampleRatio,
	})
	if err != nil {
		return fail(log, "tracing setup failed", err)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			log.Warn("tracing shutdown failed", slog.Any("err", err))
		}
	}()

	log.Info("connecting to database", databaseLogArgs(cfg.DatabaseURL)...)
	db, err := postgres.Open(ctx, cfg.DatabaseURL, postgres.PoolConfig{
		MaxOpenConns:    cfg.DBMaxOpenConns,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		ConnMaxLifetime: cfg.DBConnMaxLifetime,
		ConnMaxIdleTime: cfg.DBConnMaxIdleTime,
	})
	if err != nil {
		return fail(log, "database connection failed", err, databaseLogArgs(cfg.DatabaseURL)...)
	}
	defer func() {
		if err := postgres.Close(db); err != nil {
			log.Warn("database close failed", slog.Any("err", err))
		}
	}()

	if migrate {
		if err := runMigrations(ctx, log, db); err != nil {
			return err
		}
	}

	checks := []ops.ReadyCheck{{Name: "postgres", Check: postgres.ReadyCheck(db)}}

	var catalog store.ServiceCatalog = postgres.NewCatalog(db)
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer func() {
			if err := rdb.Close(); err != nil {
				log.Warn("redis close failed", slog.Any("err", err))
			}
		}()
		catalog = rediscache.NewPolicyCache(rdb, catalog, cfg.PolicyTTL, log)
		checks = append(checks, ops.ReadyCheck{Name: "redis", Check: rediscache.ReadyCheck(rdb)})
		log.Info("policy cache enabled", slog.String("redis_addr", cfg.RedisAddr), slog.Duration("ttl", cfg.PolicyTTL))
	}

	svc := reservations.NewService(reservations.Deps{
		Schedule: postgres.NewScheduleRepo(db),
		Catalog:  catalog,
		Ledger:   postgres.NewLedger(db, cfg.LockTimeout),
		Location: loc,
		Logger:   log,
	})

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	var wg sync.WaitGroup

	if brokers := outbox.SplitBrokers(cfg.KafkaBrokers); len(brokers) > 0 {
		writer := outbox.NewKafkaWriter(brokers)
		defer func() {
			if err := writer.Close(); err != nil {
				log.Warn("kafka writer close failed", slog.Any("err", err))
			}
		}()
		publisher := outbox.NewPublisher(postgres.NewOutbox(db), writer, log, outbox.Config{
			PollEvery: cfg.OutboxPollEvery,
			BatchSize: cfg.OutboxBatchSize,
		})
		checks = append(checks, ops.ReadyCheck{Name: "kafka", Check: outbox.ReadyCheck(brokers)})
		wg.Add(1)
		go func() {
			defer wg.Done()
			publisher.Run(ctx)
		}()
	} else {
		log.Warn("kafka brokers not configured; reservation events stay in the outbox")
	}

	grpcServer := grpcTransport.NewServer(svc, log, grpcTransport.ServerConfig{
		RequestTimeout: cfg.GRPCRequestTimeout,
		Auth: grpcTransport.NewAuthenticator(grpcTransport.AuthConfig{
			JWTSecret:    cfg.JWTSecret,
			TrustHeaders: cfg.TrustHeaders,
		}),
	})
	switch {
	case cfg.JWTSecret != "" && cfg.TrustHeaders:
		log.Warn("auth.trust_headers ignored; jwt secret is configured")
	case cfg.JWTSecret == "" && cfg.TrustHeaders:
		log.Warn("jwt secret not configured; trusting x-actor-id and x-actor-role metadata")
	case cfg.JWTSecret == "":
		log.Warn("no authentication configured; every caller is anonymous")
	}

	lis, err := net.Listen("tcp", cfg.GRPCAddr())
	if err != nil {
		return fail(log, "grpc listen failed", err, slog.String("grpc_addr", cfg.GRPCAddr()))
	}

	errCh := make(chan error, 2)
	go func() {
		errCh <- grpcServer.Serve(lis)
	}()
	log.Info("grpc server started", slog.String("grpc_addr", cfg.GRPCAddr()))

	var opsServer *ops.Server
	if cfg.HTTPAddr != "" {
		opsServer = ops.NewServer(cfg.HTTPAddr, log, checks...)
		go func() {
			if err := opsServer.ListenAndServe(); err != nil {
				errCh <- err
			}
		}()
	}

	var runErr error
	select {
	case <-ctx.Done():
		log.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			runErr = fail(log, "server stopped with error", err)
		}
	}

	cancel()
	grpcServer.Shutdown(cfg.ShutdownTimeout)
	if opsServer != nil {
		shutdownCtx, stop := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		opsServer.Shutdown(shutdownCtx)
		stop()
	}
	wg.Wait()
	return runErr
}
