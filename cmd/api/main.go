package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/sync/errgroup"

	httpadp "kyc-backend/internal/adapter/http"
	kycmw "kyc-backend/internal/adapter/middleware"
	"kyc-backend/internal/adapter/notify"
	"kyc-backend/internal/adapter/queue"
	"kyc-backend/internal/adapter/repository/mysql"
	"kyc-backend/internal/adapter/sequence"
	"kyc-backend/internal/adapter/storage"
	"kyc-backend/internal/config"
	appDomain "kyc-backend/internal/domain/application"
	"kyc-backend/internal/infrastructure/cache"
	"kyc-backend/internal/infrastructure/db"
	"kyc-backend/internal/infrastructure/metrics"
	appUsecase "kyc-backend/internal/usecase/application"
	"kyc-backend/internal/usecase/dispatch"
	"kyc-backend/internal/usecase/mirror"
	"kyc-backend/internal/usecase/review"
)

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(log)

	if err := run(log); err != nil {
		log.Error("exit", "error", err)
		os.Exit(1)
	}
}

func run(log *slog.Logger) error {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	gdb, err := db.OpenGorm(cfg.MySQLDSN(), db.PoolConfig{
		MaxOpen:     cfg.DBMaxOpenConns,
		MaxIdle:     cfg.DBMaxIdleConns,
		MaxLifetime: cfg.DBConnMaxLife,
	})
	if err != nil {
		return err
	}
	if err := gdb.WithContext(ctx).AutoMigrate(mysql.Models()...); err != nil {
		return err
	}
	rdb, err := cache.OpenRedis(ctx, cache.RedisConfig{Addr: cfg.RedisAddr, DB: cfg.RedisDB})
	if err != nil {
		return err
	}
	defer rdb.Close()

	m := metrics.New()

	var notifier appDomain.Notifier = notify.NewLogNotifier(log)
	if len(cfg.KafkaBrokers) > 0 {
		kn := notify.NewKafkaNotifier(cfg.KafkaBrokers, cfg.KafkaTopic, log)
		defer kn.Close()
		notifier = kn
	}
	store, err := storage.NewLocalStore(cfg.StorageDir)
	if err != nil {
		return err
	}

	tx := mysql.NewGormUoW(gdb)
	apps := mysql.NewApplicationRepository(gdb)
	mirrorSync := mirror.NewSynchronizer(tx, log)

	dispatcher := dispatch.New(dispatch.Config{
		Workers:     cfg.DispatchWorkers,
		JobTimeout:  cfg.DispatchJobTimeout,
		MaxAttempts: cfg.DispatchMaxAttempts,
		RetryBase:   cfg.DispatchRetryBase,
	}, mirrorSync, notifier, store, queue.NewRedisQueue(rdb, queue.DefaultKey),
		dispatch.WithLogger(log),
		dispatch.WithMetrics(m),
	)

	tr := appUsecase.NewTransitioner(tx, dispatcher,
		appUsecase.WithLogger(log),
		appUsecase.WithMetrics(m),
	)
	ucOpts := []appUsecase.UsecaseOption{appUsecase.WithUsecaseLogger(log)}
	if cfg.SequenceBackend == "redis" {
		ucOpts = append(ucOpts, appUsecase.WithSequencer(sequence.NewRedisSequencer(rdb)))
	}
	appsUC := appUsecase.NewUsecase(apps, tx, tr, store, ucOpts...)
	reviewUC := review.NewUsecase(tr, cfg.CertificateBaseURL)

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = httpadp.NewValidator()
	e.Use(middleware.RequestID(), middleware.Logger(), middleware.Recover())

	httpadp.Register(e, httpadp.Routes{
		Health:       httpadp.NewHandler(),
		Applications: httpadp.NewApplicationHandler(appsUC, cfg.MaxUploadBytes),
		Admin:        httpadp.NewAdminHandler(appsUC, reviewUC, mirrorSync),
		Metrics:      m.Handler(),
		JWTSecret:    []byte(cfg.JWTSecret),
		Idempotency:  kycmw.Idempotency(rdb, time.Duration(cfg.IdempTTLSecs)*time.Second, log),
		// multipart framing on top of the file itself
		MaxBody: cfg.MaxUploadBytes + 1<<20,
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return dispatcher.Run(gctx) })
	g.Go(func() error {
		addr := ":" + cfg.AppPort
		log.Info("listening", "addr", addr)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		sctx, cancel := context.WithTimeout(context.WithoutCancel(gctx), 10*time.Second)
		defer cancel()
		log.Info("shutting down")
		return e.Shutdown(sctx)
	})
	return g.Wait()
}
