package commands

import (
	"fmt"
	"time"

	"github.com/quantfold/momo/internal/ledger"
	"github.com/quantfold/momo/internal/marketdata"
	"github.com/quantfold/momo/internal/options"
	"github.com/quantfold/momo/internal/pipeline"
	"github.com/quantfold/momo/internal/ranking"
	"github.com/quantfold/momo/internal/report"
	"github.com/quantfold/momo/internal/universe"
	"github.com/quantfold/momo/pkg/config"
	"github.com/quantfold/momo/pkg/database"
	"github.com/quantfold/momo/pkg/httputil"
	"github.com/quantfold/momo/pkg/logger"
	"github.com/quantfold/momo/pkg/redis"
)

// app holds the wired dependency graph for one command invocation.
// An unreadable store fails here, before any mutation is attempted.
type app struct {
	cfg   *config.Config
	log   *logger.Logger
	db    *database.DB
	redis *redis.Client

	market     *marketdata.Service
	universe   *universe.Service
	ranking    *ranking.Service
	rankRepo   *ranking.Repository
	ledgerRepo *ledger.Repository
	ledger     *ledger.Service
	reconciler *ledger.Reconciler
	reports    *report.Generator
	pipeline   *pipeline.Pipeline
}

// newApp loads config and wires every stage.
func newApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	log := logger.New(cfg)

	db, err := database.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	rdb, err := redis.New(cfg)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	// One shared limiter in front of every Polygon call.
	limiter := redis.NewRateLimiter(rdb, "momo")
	httpClient := httputil.New(log, 30*time.Second).
		WithRateLimiter(limiter, redis.PolygonRateLimit(cfg))

	polygon := marketdata.NewPolygonClient(cfg, log, httpClient)
	barRepo := marketdata.NewRepository(db.Pool)
	market := marketdata.NewService(cfg, log, barRepo, polygon)

	uniRepo := universe.NewRepository(db.Pool)
	uni := universe.NewService(log, httputil.New(log, 30*time.Second), uniRepo)

	rankRepo := ranking.NewRepository(db.Pool)
	rank := ranking.NewService(log, market, rankRepo)

	ledgerRepo := ledger.NewRepository(db.Pool)
	selector := options.NewSelector(log, market)
	ledgerSvc := ledger.NewService(log, ledgerRepo, selector)
	reconciler := ledger.NewReconciler(cfg, log, ledgerRepo, market, market)

	reports, err := report.NewGenerator(log, ledgerRepo, cfg.ReportDir)
	if err != nil {
		db.Close()
		rdb.Close()
		return nil, fmt.Errorf("report generator: %w", err)
	}

	return &app{
		cfg:        cfg,
		log:        log,
		db:         db,
		redis:      rdb,
		market:     market,
		universe:   uni,
		ranking:    rank,
		rankRepo:   rankRepo,
		ledgerRepo: ledgerRepo,
		ledger:     ledgerSvc,
		reconciler: reconciler,
		reports:    reports,
		pipeline:   pipeline.New(cfg, log, market, uni, rank, ledgerSvc, reconciler, reports),
	}, nil
}

// Close releases connections.
func (a *app) Close() {
	a.db.Close()
	if err := a.redis.Close(); err != nil {
		a.log.WithError(err).Warn("Redis close failed")
	}
}
