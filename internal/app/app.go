package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/riskibarqy/global-standings/external/rankingapi"
	"github.com/riskibarqy/global-standings/internal/config"
	"github.com/riskibarqy/global-standings/internal/domain/selection"
	"github.com/riskibarqy/global-standings/internal/interfaces/httpapi"
	"github.com/riskibarqy/global-standings/internal/platform/cache"
	"github.com/riskibarqy/global-standings/internal/platform/logging"
	"github.com/riskibarqy/global-standings/internal/platform/metrics"
	"github.com/riskibarqy/global-standings/internal/platform/resilience"
	"github.com/riskibarqy/global-standings/internal/usecase"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// App holds the HTTP server and the services the process drives outside of requests.
type App struct {
	Server   *http.Server
	Rankings *usecase.GlobalRankingService
	Warmup   *usecase.RankingWarmupService
	Metrics  *metrics.Manager
	logger   *logging.Logger
}

func New(cfg config.Config, logger *logging.Logger) (*App, error) {
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.HTTPAddr == "" {
		return nil, fmt.Errorf("http server addr cannot be empty")
	}
	if cfg.SeasonStart.IsZero() {
		return nil, fmt.Errorf("season start cannot be empty")
	}

	metricsManager := metrics.NewManager(
		metrics.WithMetricsEnabled(cfg.MetricsEnabled),
		metrics.WithConstLabels(map[string]string{"service": cfg.ServiceName}),
	)

	rankingClient := rankingapi.NewClient(rankingapi.ClientConfig{
		HTTPClient: &http.Client{
			Timeout:   cfg.RankingTimeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		PrimaryURL:   cfg.RankingPrimaryURL,
		FallbackURL:  cfg.RankingFallbackURL,
		Token:        cfg.RankingToken,
		Timeout:      cfg.RankingTimeout,
		MaxRetries:   cfg.RankingMaxRetries,
		RetryBackoff: cfg.RankingRetryBackoff,
		Logger:       logger,
		Metrics:      metricsManager,
		CircuitBreaker: resilience.CircuitBreakerConfig{
			Enabled:          cfg.RankingCircuitEnabled,
			FailureThreshold: cfg.RankingCircuitFailureCount,
			OpenTimeout:      cfg.RankingCircuitOpenTimeout,
			HalfOpenMaxReq:   cfg.RankingCircuitHalfOpenMaxReq,
		},
	})

	var store *cache.Store
	if cfg.CacheEnabled {
		// top and rest each get a primary attempt plus one fallback, all with retries
		attempt := cfg.RankingTimeout + cfg.RankingRetryBackoff
		loadBudget := 2 * time.Duration(cfg.RankingMaxRetries+1) * attempt
		store = cache.NewStore(cfg.CacheTTL, cache.WithLoadTimeout(loadBudget))
	}

	sessions := usecase.NewSessionRegistry(usecase.SessionConfig{
		DefaultPair: selection.Pair{Competition: cfg.DefaultCompetition, Group: cfg.DefaultGroup},
		TTL:         cfg.SessionTTL,
	}, metricsManager)

	rankingSvc := usecase.NewGlobalRankingService(rankingClient, store, metricsManager, sessions, usecase.GlobalRankingConfig{
		SeasonID:    cfg.SeasonID,
		SeasonStart: cfg.SeasonStart,
		TopN:        cfg.RankingTopN,
	}, logger)
	warmupSvc := usecase.NewRankingWarmupService(rankingSvc, metricsManager, cfg.WarmupWorkers, logger)

	handler := httpapi.NewHandler(rankingSvc, sessions, warmupSvc, logger)
	router := httpapi.NewRouter(handler, logger, metricsManager, cfg.CORSAllowedOrigins, cfg.InternalJobToken)

	return &App{
		Server: &http.Server{
			Addr:         cfg.HTTPAddr,
			Handler:      router,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
		},
		Rankings: rankingSvc,
		Warmup:   warmupSvc,
		Metrics:  metricsManager,
		logger:   logger,
	}, nil
}

// RunWarmup prefetches the common rankings. Failures are logged and never fatal.
func (a *App) RunWarmup(ctx context.Context) {
	if a == nil || a.Warmup == nil {
		return
	}
	result, err := a.Warmup.Warmup(ctx, usecase.WarmupInput{})
	if err != nil {
		a.logger.WarnContext(ctx, "startup warmup failed", "error", err)
		return
	}
	if result.FailedCount > 0 {
		a.logger.WarnContext(ctx, "startup warmup finished with failures",
			"jobs", result.JobCount,
			"failed", result.FailedCount,
		)
	}
}
