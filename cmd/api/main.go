package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/cimillas/drop-api/internal/app"
	"github.com/cimillas/drop-api/internal/clock"
	"github.com/cimillas/drop-api/internal/config"
	"github.com/cimillas/drop-api/internal/notify"
	"github.com/cimillas/drop-api/internal/storage/postgres"
	transporthttp "github.com/cimillas/drop-api/internal/transport/http"
	"github.com/cimillas/drop-api/migrations"
)

const (
	shutdownTimeout = 10 * time.Second
	idempotencyTTL  = 24 * time.Hour
)

func main() {
	logger := newLogger()
	defer func() { _ = logger.Sync() }()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}

	startupCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	pool, err := pgxpool.New(startupCtx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("connect to db", zap.Error(err))
	}
	defer pool.Close()

	if err := pool.Ping(startupCtx); err != nil {
		logger.Fatal("db ping", zap.Error(err))
	}
	if err := migrations.Apply(startupCtx, pool); err != nil {
		logger.Fatal("apply migrations", zap.Error(err))
	}

	var emitter app.Emitter = notify.Nop{}
	if len(cfg.KafkaBrokers) > 0 {
		kafkaEmitter := notify.NewKafkaEmitter(cfg.KafkaBrokers, cfg.KafkaTopic, logger)
		defer func() { _ = kafkaEmitter.Close() }()
		emitter = kafkaEmitter
		logger.Info("kafka emitter enabled", zap.Strings("brokers", cfg.KafkaBrokers), zap.String("topic", cfg.KafkaTopic))
	} else {
		logger.Warn("KAFKA_BROKERS not set, domain events are discarded")
	}

	clk := clock.NewSystem()
	reservationSvc := app.NewReservationService(
		postgres.NewReservationRepository(pool),
		emitter,
		clk,
		app.WithReservationTTL(cfg.ReservationTTL),
	)
	purchaseSvc := app.NewPurchaseService(postgres.NewPurchaseRepository(pool), emitter, clk)
	sweeper := app.NewSweeper(
		postgres.NewSweepRepository(pool),
		emitter,
		clk,
		logger,
		app.WithSweepInterval(cfg.SweepInterval),
	)

	var guard *transporthttp.IdempotencyGuard
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer func() { _ = rdb.Close() }()
		guard = transporthttp.NewIdempotencyGuard(rdb, idempotencyTTL, logger)
		logger.Info("idempotency guard enabled", zap.String("redis", cfg.RedisAddr))
	}

	handler := transporthttp.NewRouter(transporthttp.ReservationHandlers{
		Reserver:  reservationSvc,
		Completer: purchaseSvc,
		Canceller: reservationSvc,
	}, logger, cfg.CORSOrigins, guard)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	stopCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sweepDone := make(chan struct{})
	go func() {
		defer close(sweepDone)
		sweeper.Run(stopCtx)
	}()

	srvErr := make(chan error, 1)
	go func() {
		logger.Info("api listening", zap.String("port", cfg.Port))
		srvErr <- server.ListenAndServe()
	}()

	select {
	case err := <-srvErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", zap.Error(err))
		}
	case <-stopCtx.Done():
		logger.Info("shutdown signal received, stopping server")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server shutdown error", zap.Error(err))
	}

	stop()
	select {
	case <-sweepDone:
	case <-shutdownCtx.Done():
		logger.Warn("sweeper did not stop before deadline")
	}
	logger.Info("server stopped")
}

// newLogger builds a production JSON logger writing to stdout.
func newLogger() *zap.Logger {
	cfg := zap.NewProductionConfig()
	cfg.OutputPaths = []string{"stdout"}
	cfg.ErrorOutputPaths = []string{"stdout"}
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.MessageKey = "msg"
	cfg.EncoderConfig.EncodeTime = zapcore.RFC3339NanoTimeEncoder
	cfg.EncoderConfig.EncodeLevel = zapcore.LowercaseLevelEncoder

	logger, err := cfg.Build()
	if err != nil {
		panic(err)
	}
	return logger
}
