package usecase

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/riskibarqy/global-standings/internal/domain/ranking"
	"github.com/riskibarqy/global-standings/internal/domain/weekwindow"
	"github.com/riskibarqy/global-standings/internal/platform/logging"
	"github.com/riskibarqy/global-standings/internal/platform/metrics"
)

const (
	warmupStatusSuccess = "success"
	warmupStatusFailed  = "failed"

	defaultWarmupWorkers = 4
	maxWarmupWorkers     = 16
)

type WarmupInput struct {
	MaxWorkers int
	// Refresh drops cached views before prefetching.
	Refresh bool
}

type WarmupResult struct {
	JobCount     int               `json:"job_count"`
	SuccessCount int               `json:"success_count"`
	FailedCount  int               `json:"failed_count"`
	WorkerCount  int               `json:"worker_count"`
	Invalidated  int               `json:"invalidated"`
	DurationMs   int64             `json:"duration_ms"`
	Jobs         []WarmupJobResult `json:"jobs"`
}

type WarmupJobResult struct {
	Variant    string `json:"variant"`
	Week       string `json:"week,omitempty"`
	Strict     bool   `json:"strict"`
	Status     string `json:"status"`
	Rows       int    `json:"rows"`
	DurationMs int64  `json:"duration_ms"`
	Message    string `json:"message,omitempty"`
}

type warmupJob struct {
	variant ranking.Variant
	week    string
	strict  bool
}

// RankingWarmupService prefetches the rankings viewers ask for first: every variant for
// season-to-date and for the current week.
type RankingWarmupService struct {
	rankings       *GlobalRankingService
	metrics        *metrics.Manager
	defaultWorkers int
	poolOptions    []ants.Option
	logger         *logging.Logger
}

func NewRankingWarmupService(rankings *GlobalRankingService, metricsManager *metrics.Manager, workers int, logger *logging.Logger) *RankingWarmupService {
	if logger == nil {
		logger = logging.Default()
	}
	return &RankingWarmupService{
		rankings:       rankings,
		metrics:        metricsManager,
		defaultWorkers: workers,
		logger:         logger.Named("ranking_warmup"),
	}
}

func (s *RankingWarmupService) Warmup(ctx context.Context, input WarmupInput) (WarmupResult, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.RankingWarmupService.Warmup")
	defer span.End()

	if s.rankings == nil {
		return WarmupResult{}, fmt.Errorf("%w: ranking service is not configured", ErrDependencyUnavailable)
	}

	started := time.Now()
	result := WarmupResult{}
	if input.Refresh {
		result.Invalidated = s.rankings.InvalidateCache(ctx)
	}

	currentWeek := weekwindow.DefaultSelectorValue(s.rankings.today())
	jobs := make([]warmupJob, 0, len(ranking.AllVariants)*2)
	for _, variant := range ranking.AllVariants {
		jobs = append(jobs,
			warmupJob{variant: variant},
			warmupJob{variant: variant, week: currentWeek, strict: true},
		)
	}

	workerCount := normalizeWarmupWorkerCount(input.MaxWorkers, s.defaultWorkers, len(jobs))
	result.JobCount = len(jobs)
	result.WorkerCount = workerCount
	result.Jobs = make([]WarmupJobResult, 0, len(jobs))

	pool, err := ants.NewPool(workerCount, s.poolOptions...)
	if err != nil {
		return WarmupResult{}, fmt.Errorf("create worker pool: %w", err)
	}
	defer pool.Release()

	results := make(chan WarmupJobResult, len(jobs))
	var successCount atomic.Int32
	var failedCount atomic.Int32

	var workers sync.WaitGroup
	for _, job := range jobs {
		workers.Add(1)
		if err := pool.Submit(func() {
			defer workers.Done()

			jobStarted := time.Now()
			row := WarmupJobResult{
				Variant: string(job.variant),
				Week:    job.week,
				Strict:  job.strict,
			}

			view, err := s.rankings.loadView(ctx, job.variant, job.week, job.strict)
			row.DurationMs = time.Since(jobStarted).Milliseconds()
			if err != nil {
				row.Status = warmupStatusFailed
				row.Message = err.Error()
				failedCount.Add(1)
				s.metrics.ObserveWarmupJob(false)
				s.logger.WarnContext(ctx, "ranking warmup job failed", "variant", job.variant, "week", job.week, "error", err)
			} else {
				row.Status = warmupStatusSuccess
				row.Rows = len(view.Rows)
				successCount.Add(1)
				s.metrics.ObserveWarmupJob(true)
			}
			results <- row
		}); err != nil {
			workers.Done()
			workers.Wait()
			return WarmupResult{}, fmt.Errorf("submit warmup job to worker pool: %w", err)
		}
	}

	workers.Wait()
	close(results)

	for row := range results {
		result.Jobs = append(result.Jobs, row)
	}
	sort.SliceStable(result.Jobs, func(i, j int) bool {
		if result.Jobs[i].Variant != result.Jobs[j].Variant {
			return result.Jobs[i].Variant < result.Jobs[j].Variant
		}
		return result.Jobs[i].Week < result.Jobs[j].Week
	})

	result.SuccessCount = int(successCount.Load())
	result.FailedCount = int(failedCount.Load())
	result.DurationMs = time.Since(started).Milliseconds()

	s.logger.InfoContext(ctx, "ranking warmup finished",
		"jobs", result.JobCount,
		"success", result.SuccessCount,
		"failed", result.FailedCount,
		"workers", result.WorkerCount,
		"duration_ms", result.DurationMs,
	)
	return result, nil
}

func normalizeWarmupWorkerCount(requested, fallback, jobs int) int {
	workers := requested
	if workers <= 0 {
		workers = fallback
	}
	if workers <= 0 {
		workers = defaultWarmupWorkers
	}
	if workers > maxWarmupWorkers {
		workers = maxWarmupWorkers
	}
	if jobs > 0 && workers > jobs {
		workers = jobs
	}
	return workers
}
