package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"barmetrics-service/internal/cache"
	"barmetrics-service/internal/config"
	"barmetrics-service/internal/db"
	"barmetrics-service/internal/evolution"
	httpapi "barmetrics-service/internal/http"
	"barmetrics-service/internal/http/handlers"
	"barmetrics-service/internal/logger"
	"barmetrics-service/internal/paymentqueue"
	"barmetrics-service/internal/queue"
	"barmetrics-service/internal/reconcile"
	"barmetrics-service/internal/sources"
	"barmetrics-service/internal/storage"
	"barmetrics-service/internal/ws"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	log, err := logger.New(cfg.Env)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	ctx, stopWorkers := context.WithCancel(context.Background())
	defer stopWorkers()

	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal("database connection failed", zap.Error(err))
	}
	defer pool.Close()

	var seriesCache cache.Cache = cache.NewMemory()
	if cfg.RedisURL != "" {
		rc, err := cache.NewRedis(cfg.RedisURL, log)
		if err != nil {
			if cfg.Env == "production" {
				log.Fatal("redis connection failed", zap.Error(err))
			}
			log.Warn("redis connection failed; using in-process cache", zap.Error(err))
		} else {
			seriesCache = rc
			defer rc.Close()
		}
	}

	policy := reconcile.DefaultPolicy
	if estimate, err := decimal.NewFromString(cfg.PerPersonRevenueEstimate); err == nil && estimate.IsPositive() {
		policy.PerPersonEstimate = estimate
	} else {
		log.Warn("invalid PER_PERSON_REVENUE_ESTIMATE; using default", zap.String("value", cfg.PerPersonRevenueEstimate))
	}

	goals := sources.NewGoals(pool)
	service := evolution.NewService(
		evolution.Sources{
			Payments:       sources.NewPayments(pool, cfg.ReconcilePageSize),
			PosAttendance:  sources.NewPosAttendance(pool, cfg.ReconcilePageSize),
			TicketedEvents: sources.NewTicketedEvents(pool, cfg.ReconcilePageSize),
			Reservations:   sources.NewReservations(pool, cfg.ReconcilePageSize),
			Durations:      sources.NewDurations(pool, cfg.ReconcilePageSize),
		},
		sources.NewAggregates(pool),
		goals,
		seriesCache,
		log,
		evolution.Options{
			Policy:         policy,
			CacheTTL:       cfg.SeriesCacheTTL,
			Verify:         cfg.ReconcileVerify,
			BreakerTimeout: cfg.RPCBreakerTimeout,
		},
	)

	var queueClient *queue.Client
	if cfg.RabbitMQURL != "" {
		qc, err := queue.New(cfg.RabbitMQURL)
		if err == nil {
			err = queue.EnsureRecomputeTopology(qc)
			if err != nil {
				_ = qc.Close()
			}
		}
		if err != nil {
			if cfg.Env == "production" {
				log.Fatal("rabbitmq setup failed", zap.Error(err))
			}
			log.Warn("rabbitmq setup failed; recompute runs inline", zap.Error(err))
		} else {
			queueClient = qc
			defer qc.Close()
			log.Info("rabbitmq enabled", zap.String("queue", queue.RecomputeQueue))
		}
	} else {
		log.Info("recompute worker disabled (RABBITMQ_URL is empty)")
	}

	if queueClient != nil && cfg.RabbitMQWorkerMode == "daemon" {
		log.Info("recompute worker enabled", zap.String("mode", "daemon"))
		go func() {
			err := queueClient.ConsumeWithRetry(ctx, queue.RecomputeQueue, queue.RecomputeHandler(service, log),
				queue.RecomputeRetries, queue.RecomputeDelay, log)
			if err != nil && ctx.Err() == nil {
				log.Error("consumer stopped", zap.Error(err))
			}
		}()
	}

	var blobs storage.BlobStore = storage.NewMemory()
	if cfg.ObjectStoreEnabled() {
		store, err := storage.NewObjectStore(ctx, storage.Config{
			Endpoint:        cfg.ObjectStoreEndpoint,
			Region:          cfg.ObjectStoreRegion,
			AccessKeyID:     cfg.ObjectStoreAccessKeyID,
			SecretAccessKey: cfg.ObjectStoreSecretAccessKey,
			Bucket:          cfg.ObjectStoreBucket,
		})
		if err != nil {
			log.Fatal("object store setup failed", zap.Error(err))
		}
		blobs = store
	} else {
		log.Warn("object store not configured; payment queue kept in memory")
	}

	h := handlers.New(cfg, log, service, goals,
		queue.NewDispatcher(queueClient, service, log),
		paymentqueue.NewStore(blobs, cfg.PaymentQueuePrefix, log),
	)
	wsServer := ws.New(service, log, cfg.WSHeartbeatInterval)

	apiServer := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      httpapi.NewRouter(log, cfg, h, wsServer),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("barmetrics listening", zap.String("addr", cfg.HTTPAddr))
		if err := apiServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("http server failed", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	stopWorkers()

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := apiServer.Shutdown(ctxShutdown); err != nil {
		log.Error("http server shutdown failed", zap.Error(err))
	}
}
