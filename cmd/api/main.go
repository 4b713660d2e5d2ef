package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
	"gorm.io/gorm"

	httpadp "credit-acceleration/internal/adapter/http"
	"credit-acceleration/internal/adapter/middleware"
	"credit-acceleration/internal/adapter/repository/mysql"
	valuationadp "credit-acceleration/internal/adapter/valuation"
	"credit-acceleration/internal/config"
	domainval "credit-acceleration/internal/domain/valuation"
	"credit-acceleration/internal/infrastructure/cache"
	"credit-acceleration/internal/infrastructure/db"
	"credit-acceleration/internal/infrastructure/events"
	"credit-acceleration/internal/infrastructure/lock"
	"credit-acceleration/internal/infrastructure/logging"
	"credit-acceleration/internal/infrastructure/metrics"
	"credit-acceleration/internal/usecase/aggregate"
	"credit-acceleration/internal/usecase/assessment"
	"credit-acceleration/internal/usecase/collateral"
	"credit-acceleration/internal/usecase/escrow"
	"credit-acceleration/internal/usecase/guarantee"
	"credit-acceleration/internal/usecase/loan"
	"credit-acceleration/internal/usecase/notification"
	"credit-acceleration/internal/usecase/tokenization"
	"credit-acceleration/pkg/clock"
)

const eventChannel = "credit:notifications"

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	log, err := logging.New(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat, Development: cfg.LogDev})
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	if err := cfg.Validate(); err != nil {
		log.Fatal("invalid config", zap.Error(err))
	}

	gdb, err := openDB(cfg)
	if err != nil {
		log.Fatal("open database", zap.String("driver", cfg.DBDriver), zap.Error(err))
	}
	if err := db.Migrate(gdb); err != nil {
		log.Fatal("migrate", zap.Error(err))
	}

	var rdb *redis.Client
	if cfg.RedisEnabled {
		rdb, err = cache.OpenRedis(cfg.RedisAddr, cfg.RedisDB)
		if err != nil {
			log.Fatal("open redis", zap.String("addr", cfg.RedisAddr), zap.Error(err))
		}
		defer rdb.Close()
	}

	reg := prometheus.NewRegistry()
	var collector metrics.Collector = metrics.NoOp{}
	if cfg.MetricsEnabled {
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		p, err := metrics.NewPrometheus("credit", reg)
		if err != nil {
			log.Fatal("register metrics", zap.Error(err))
		}
		collector = p
	}

	clk := clock.Real()
	uow := mysql.NewGormUoW(gdb)

	var locker aggregate.Locker = lock.NewLocal()
	if cfg.LockBackend == "redis" {
		locker = lock.NewRedis(rdb, lock.DefaultRedisOptions(), log)
	}

	sinks := []notification.Sink{events.NewLogSink(log)}
	if rdb != nil {
		sinks = append(sinks, events.NewRedisSink(rdb, eventChannel))
	}
	dispatcher := notification.NewDispatcher(uow, sinks, clk, log, collector, notification.Config{})

	runner := aggregate.NewRunner(uow, locker, dispatcher, clk, log, collector)

	engine := assessment.NewEngine(assessment.EngineConfig{
		Weights: assessment.Weights{
			Credit:     cfg.Risk.WeightCredit,
			DTI:        cfg.Risk.WeightDTI,
			Income:     cfg.Risk.WeightIncome,
			Employment: cfg.Risk.WeightEmployment,
		},
		ApproveScore:   cfg.Risk.ApproveScore,
		ReviewScore:    cfg.Risk.ReviewScore,
		Haircut:        cfg.Risk.Haircut,
		BaseRate:       cfg.Risk.BaseRate,
		MaxRiskPremium: cfg.Risk.MaxRiskPremium,
	})
	assessUC := assessment.NewUsecase(runner, locker, engine, log, collector, assessment.Config{AutoDecide: cfg.Risk.AutoDecide})

	tokenUC := tokenization.NewUsecase(runner, tokenization.Config{
		DefaultSupply: cfg.Tokens.DefaultSupply,
		DefaultPrice:  cfg.Tokens.DefaultPrice,
		ListingTTL:    cfg.Tokens.ListingTTL,
	}, log)

	handlers := httpadp.Handlers{
		Health:       httpadp.NewHandler(),
		Loans:        httpadp.NewLoanHandler(loan.NewUsecase(runner, log), log),
		Assessments:  httpadp.NewAssessmentHandler(assessUC, log),
		Collateral:   httpadp.NewCollateralHandler(collateral.NewUsecase(runner, valuationProvider(cfg, rdb, clk, log, collector), log), log),
		Tokens:       httpadp.NewTokenHandler(tokenUC, log),
		Escrow:       httpadp.NewEscrowHandler(escrow.NewUsecase(runner, log), log),
		Guarantees:   httpadp.NewGuaranteeHandler(guarantee.NewUsecase(runner, log, collector), log),
		Notification: httpadp.NewNotificationHandler(dispatcher, log),
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = httpadp.NewValidator()
	e.Use(echomw.Recover(), echomw.RequestID(), requestLogger(log))
	if cfg.RateLimitPerSec > 0 {
		e.Use(echomw.RateLimiter(echomw.NewRateLimiterMemoryStore(rate.Limit(cfg.RateLimitPerSec))))
	}
	if cfg.MetricsEnabled {
		e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))
	}

	var mw []echo.MiddlewareFunc
	if rdb != nil {
		mw = append(mw, middleware.IdempotencyMiddleware(rdb, time.Duration(cfg.IdempTTLSecs)*time.Second, log))
	} else {
		log.Warn("redis disabled, idempotency keys are not enforced")
	}
	httpadp.Register(e, handlers, mw...)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sweepDone := make(chan struct{})
	go func() {
		defer close(sweepDone)
		tokenUC.RunSweeper(ctx, cfg.Tokens.SweepInterval)
	}()

	addr := ":" + cfg.AppPort
	go func() {
		log.Info("listening", zap.String("addr", addr))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server stopped", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown", zap.Error(err))
	}
	<-sweepDone
	assessUC.Close()
	dispatcher.Close()
	if sqlDB, err := gdb.DB(); err == nil {
		_ = sqlDB.Close()
	}
}

func openDB(cfg *config.Config) (*gorm.DB, error) {
	level := db.ParseLogLevel(cfg.DBLogLevel)
	if cfg.DBDriver == "sqlite" {
		return db.OpenSQLite(cfg.SQLitePath, level)
	}
	pool := db.DefaultPool
	pool.MaxOpenConns = cfg.MaxOpenConns
	pool.MaxIdleConns = cfg.MaxIdleConns
	return db.OpenGorm(cfg.MySQLDSN(), pool, level)
}

// valuationProvider builds stub-or-http, wrapped in retries and a breaker,
// fronted by the redis cache when redis is available.
func valuationProvider(cfg *config.Config, rdb *redis.Client, clk clock.Clock, log *zap.Logger, m metrics.Collector) domainval.Provider {
	var p domainval.Provider
	if cfg.Valuation.URL == "" {
		log.Info("valuation provider: stub")
		p = valuationadp.NewStub(clk)
	} else {
		p = valuationadp.NewHTTPProvider(cfg.Valuation.URL, cfg.Valuation.APIKey, &http.Client{})
	}
	p = valuationadp.NewResilient(p, valuationadp.ResilienceConfig{
		Timeout:         cfg.Valuation.Timeout,
		Retries:         cfg.Valuation.Retries,
		BaseBackoff:     cfg.Valuation.BaseBackoff,
		BreakerFailures: cfg.Valuation.BreakerFailures,
		BreakerCooldown: cfg.Valuation.BreakerCooldown,
	}, log, m)
	if rdb != nil {
		p = valuationadp.NewCached(p, cache.NewComparablesCache(rdb, cfg.Valuation.CacheTTL), log, m)
	}
	return p
}

func requestLogger(log *zap.Logger) echo.MiddlewareFunc {
	return echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		LogURI:       true,
		LogMethod:    true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		LogValuesFunc: func(_ echo.Context, v echomw.RequestLoggerValues) error {
			fields := []zap.Field{
				zap.String("method", v.Method),
				zap.String("uri", v.URI),
				zap.Int("status", v.Status),
				zap.Duration("latency", v.Latency),
				zap.String("request_id", v.RequestID),
			}
			if v.Error != nil {
				fields = append(fields, zap.Error(v.Error))
			}
			log.Info("request", fields...)
			return nil
		},
	})
}
