package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/Caiocr8/sistema-pedidos-sub000/docs"
	"github.com/Caiocr8/sistema-pedidos-sub000/internal/config"
	"github.com/Caiocr8/sistema-pedidos-sub000/internal/handler"
	"github.com/Caiocr8/sistema-pedidos-sub000/internal/infra"
	"github.com/Caiocr8/sistema-pedidos-sub000/internal/repository"
	"github.com/Caiocr8/sistema-pedidos-sub000/internal/router"
	"github.com/Caiocr8/sistema-pedidos-sub000/internal/worker"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// @title       Caja API
// @version     1.0
// @description Libro de caja: sesiones, movimientos, cobros y arqueo.
// @BasePath    /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	setupLogger(cfg)
	infra.InitMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	deps := router.Deps{}

	// ── Storage ──────────────────────────────────────────────────────────────
	switch cfg.StorageDriver {
	case config.StorageMemory:
		mem := repository.NewMemoryStore()
		deps.Store, deps.Ventas = mem, mem
		log.Warn().Msg("STORAGE_DRIVER=memory: los datos no sobreviven un reinicio")
	default:
		db, err := infra.NewDatabase(cfg.DatabaseURL)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to postgres")
		}
		if err := infra.RunMigrations(db); err != nil {
			log.Fatal().Err(err).Msg("failed to run migrations")
		}
		deps.Store = repository.NewCajaStore(db, cfg.LockTimeout())
		deps.Ventas = repository.NewVentaRepository(db)
		deps.Checks = append(deps.Checks, handler.DBCheck(db))
	}

	// ── Redis (event stream + job queue) ─────────────────────────────────────
	var rdb *redis.Client
	if cfg.RedisURL != "" {
		rdb, err = infra.NewRedis(ctx, cfg.RedisURL)
		if err != nil {
			if cfg.StorageDriver == config.StoragePostgres {
				log.Fatal().Err(err).Msg("failed to connect to redis")
			}
			log.Warn().Err(err).Msg("redis no disponible: cola en memoria y sin stream de eventos")
			rdb = nil
		}
	}

	var broker worker.Broker
	if rdb != nil {
		deps.Eventos = infra.NewRedisEventBus(rdb)
		broker = worker.NewRedisBroker(rdb)
		deps.Checks = append(deps.Checks, handler.RedisCheck(rdb))
	} else {
		deps.Eventos = infra.NoopEventBus{}
		broker = worker.NewMemoryBroker()
	}

	// ── Workers (composition root) ───────────────────────────────────────────
	dispatcher := worker.NewDispatcher(broker)
	deps.Cierres = dispatcher
	deps.MailerCB = infra.NewCircuitBreaker(infra.DefaultCBConfig("smtp"))

	notify := ""
	if cfg.MailerEnabled() {
		notify = cfg.CierreNotifyEmail
	}
	pool := worker.NewPool(broker, worker.PoolConfig{Size: cfg.WorkerPoolSize})
	pool.Handle(worker.QueueCierre, worker.JobCierre,
		worker.NewCierreWorker(deps.Store, dispatcher, cfg.PDFStoragePath, notify).Process)
	pool.Handle(worker.QueueEmail, worker.JobEmail,
		worker.NewEmailWorker(infra.NewMailer(cfg), deps.MailerCB).Process)

	// Workers outlive the HTTP context so in-flight jobs finish after SIGTERM.
	workerCtx, stopWorkers := context.WithCancel(context.Background())
	pool.Start(workerCtx)

	srv := &http.Server{
		Addr:        fmt.Sprintf(":%d", cfg.Port),
		Handler:     router.New(cfg, deps),
		ReadTimeout: 10 * time.Second,
		// no WriteTimeout: the SSE event stream is long-lived
		IdleTimeout: 60 * time.Second,
	}

	go func() {
		log.Info().Str("storage", cfg.StorageDriver).Msgf("caja backend listening on :%d", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("forced shutdown")
	}
	stopWorkers()
	pool.Wait()
	if rdb != nil {
		_ = rdb.Close()
	}
	log.Info().Msg("server exited")
}

// setupLogger: pretty console in development, JSON in production.
func setupLogger(cfg *config.Config) {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = time.RFC3339Nano

	if cfg.IsProduction() {
		log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
		return
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
}
