package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/yond5413/pentagram/internal/platform/auth"
	"github.com/yond5413/pentagram/internal/platform/config"
	"github.com/yond5413/pentagram/internal/platform/db"
	"github.com/yond5413/pentagram/internal/platform/events"
	"github.com/yond5413/pentagram/internal/platform/httpserver"
	"github.com/yond5413/pentagram/internal/platform/logging"
	"github.com/yond5413/pentagram/internal/platform/metrics"
	"github.com/yond5413/pentagram/internal/platform/natsconn"
	"github.com/yond5413/pentagram/internal/platform/ratelimit"
	"github.com/yond5413/pentagram/internal/platform/run"
	"github.com/yond5413/pentagram/services/social/internal/cache"
	socialconfig "github.com/yond5413/pentagram/services/social/internal/config"
	"github.com/yond5413/pentagram/services/social/internal/handlers"
	"github.com/yond5413/pentagram/services/social/internal/service"
	"github.com/yond5413/pentagram/services/social/internal/store"
	"github.com/yond5413/pentagram/services/social/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	log, err := logging.New(cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	scfg, err := socialconfig.Load()
	if err != nil {
		log.Error("config", zap.Error(err))
		_ = log.Sync()
		run.Exit(1)
	}

	st, pool := initStore(log, cfg, scfg)
	if pool != nil {
		defer pool.Close()
	}

	c, rdb := initCache(log, cfg, scfg)
	if rdb != nil {
		defer func() { _ = rdb.Client.Close() }()
	}

	// NATS is optional: without it events are dropped and invalidation stays local.
	var (
		nc        *nats.Conn
		js        nats.JetStreamContext
		publisher *events.Publisher
	)
	if scfg.NATSURL != "" {
		nc, err = natsconn.Connect(natsconn.Options{URL: scfg.NATSURL, Name: cfg.ServiceName})
		if err != nil {
			log.Error("nats connect", zap.Error(err))
			_ = log.Sync()
			run.Exit(1)
		}
		defer nc.Close()
		js, err = natsconn.EnsureStream(nc, natsconn.StreamConfig{Name: events.StreamName, Subjects: events.StreamSubjects})
		if err != nil {
			log.Error("nats stream", zap.Error(err))
			_ = log.Sync()
			run.Exit(1)
		}
		publisher = events.New(js, log)
		if rdb == nil {
			if _, err := cache.Subscribe(nc, c, log); err != nil {
				log.Warn("cache invalidation subscribe failed", zap.Error(err))
			}
		}
	} else {
		log.Warn("NATS_URL not set, events disabled")
	}
	inval := cache.NewInvalidator(c, nc, log)

	svc := service.New(service.Options{
		Store:          st,
		Cache:          c,
		Invalidator:    inval,
		Events:         publisher,
		Logger:         log,
		CandidateLimit: scfg.CandidateLimit,
		CommentLimit:   scfg.CommentLimit,
	})

	verifier := auth.JWTVerifier{Secret: []byte(scfg.JWTSecret)}
	limiter := ratelimit.New(scfg.ToggleRate, scfg.ToggleBurst)
	toggleLimit := limiter.Middleware(func(r *http.Request) string {
		if uid, ok := auth.UserIDFromContext(r.Context()); ok {
			return uid
		}
		return r.RemoteAddr
	})

	r := chi.NewRouter()
	httpserver.SetupRouter(r, httpserver.RouterConfig{
		ReadyFunc:      readiness(pool, rdb),
		MetricsHandler: metrics.Handler(),
		Logger:         log,
	})
	handlers.Mount(r, svc, verifier, toggleLimit)

	srv := httpserver.New(httpserver.Options{Addr: cfg.HTTP.Addr, ServiceName: cfg.ServiceName, Router: r})

	lis, err := net.Listen("tcp", cfg.GRPC.Addr)
	if err != nil {
		log.Error("grpc listen", zap.Error(err))
		run.Exit(1)
	}
	grpcSrv := grpc.NewServer()
	healthSrv := health.NewServer()
	healthpb.RegisterHealthServer(grpcSrv, healthSrv)
	healthSrv.SetServingStatus(cfg.ServiceName, healthpb.HealthCheckResponse_SERVING)
	reflection.Register(grpcSrv)
	go func() {
		log.Info("grpc server starting", zap.String("addr", cfg.GRPC.Addr))
		if err := grpcSrv.Serve(lis); err != nil {
			log.Error("grpc serve", zap.Error(err))
		}
	}()

	runner := run.New(log)
	code := runner.WithSignals(func(ctx context.Context) error {
		if js != nil {
			var dedup worker.Deduper = worker.NewMemoryDeduper(0)
			if rdb != nil {
				dedup = worker.NewRedisDeduper(rdb.Client, 24*time.Hour)
			}
			consumer := worker.NewConsumer(inval, dedup, log, worker.Options{
				BatchSize: scfg.WorkerBatchSize,
				MaxWait:   scfg.WorkerMaxWait,
			})
			go func() {
				if err := consumer.Run(ctx, js); err != nil {
					log.Error("worker stopped", zap.Error(err))
				}
			}()
		}
		return srv.Start(log)
	}, func(ctx context.Context) error {
		healthSrv.Shutdown()
		stopped := make(chan struct{})
		go func() {
			grpcSrv.GracefulStop()
			close(stopped)
		}()
		select {
		case <-stopped:
		case <-ctx.Done():
			grpcSrv.Stop()
		}
		return srv.Shutdown(ctx)
	})

	log.Info("exit", zap.Int("code", code))
	run.Exit(code)
}

// initStore selects the store backend.
// In production it requires a working Postgres connection and terminates the
// process otherwise.
func initStore(log *zap.Logger, cfg config.AppConfig, scfg socialconfig.Config) (store.Store, *pgxpool.Pool) {
	if scfg.DatabaseURL == "" {
		if cfg.IsProduction() {
			log.Error("DATABASE_URL is required in production")
			_ = log.Sync()
			run.Exit(1)
		}
		log.Warn("DATABASE_URL not set, using in-memory store (development only)")
		return store.NewInMemory(), nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	pool, err := db.Open(ctx, scfg.DatabaseURL)
	if err != nil {
		if cfg.IsProduction() {
			log.Error("postgres is required in production but unavailable", zap.Error(err))
			_ = log.Sync()
			run.Exit(1)
		}
		log.Warn("postgres unavailable, falling back to in-memory store", zap.Error(err))
		return store.NewInMemory(), nil
	}
	if err := store.EnsureSchema(ctx, pool); err != nil {
		pool.Close()
		log.Error("schema", zap.Error(err))
		_ = log.Sync()
		run.Exit(1)
	}

	log.Info("store: postgres")
	return store.NewPostgres(pool), pool
}

// initCache prefers Redis so every replica shares cached rows; the memory cache
// relies on NATS broadcasts to stay coherent across replicas.
func initCache(log *zap.Logger, cfg config.AppConfig, scfg socialconfig.Config) (cache.Cache, *cache.RedisCache) {
	if scfg.RedisURL == "" {
		log.Warn("REDIS_URL not set, using in-memory cache")
		return cache.NewMemoryCache(scfg.CacheTTL), nil
	}
	rc, err := cache.NewRedisCache(scfg.RedisURL, scfg.CacheTTL)
	if err != nil {
		if cfg.IsProduction() {
			log.Error("invalid REDIS_URL", zap.Error(err))
			_ = log.Sync()
			run.Exit(1)
		}
		log.Warn("invalid REDIS_URL, using in-memory cache", zap.Error(err))
		return cache.NewMemoryCache(scfg.CacheTTL), nil
	}
	log.Info("cache: redis")
	return rc, rc
}

func readiness(pool *pgxpool.Pool, rc *cache.RedisCache) func() error {
	return func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if pool != nil {
			if err := pool.Ping(ctx); err != nil {
				return errors.New("postgres: " + err.Error())
			}
		}
		if rc != nil {
			if err := rc.Client.Ping(ctx).Err(); err != nil {
				return errors.New("redis: " + err.Error())
			}
		}
		return nil
	}
}
