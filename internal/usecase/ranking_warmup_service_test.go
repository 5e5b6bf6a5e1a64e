package usecase

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/riskibarqy/global-standings/internal/domain/ranking"
	"github.com/riskibarqy/global-standings/internal/platform/cache"
	rankingmock "github.com/riskibarqy/global-standings/internal/mocks/domain/ranking"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestRankingWarmupService_PrefetchesEveryVariant(t *testing.T) {
	t.Parallel()

	source := rankingmock.NewSource(t)
	source.On("FetchRanking", mock.Anything, ranking.SourcePrimary, mock.Anything, topQuery()).Return(topResponse(), nil)
	source.On("FetchRanking", mock.Anything, ranking.SourcePrimary, mock.Anything, restQuery()).Return(restResponse(), nil)

	store := cache.NewStore(time.Minute)
	svc := newTestRankingService(source, store, nil)
	warmup := NewRankingWarmupService(svc, nil, 2, nil)

	result, err := warmup.Warmup(context.Background(), WarmupInput{})
	require.NoError(t, err)
	require.Equal(t, len(ranking.AllVariants)*2, result.JobCount)
	require.Equal(t, result.JobCount, result.SuccessCount)
	require.Zero(t, result.FailedCount)
	require.Equal(t, 2, result.WorkerCount)
	require.Equal(t, result.JobCount, store.Len())
	require.Len(t, source.Calls, result.JobCount*2)

	refreshed, err := warmup.Warmup(context.Background(), WarmupInput{Refresh: true, MaxWorkers: 100})
	require.NoError(t, err)
	require.Equal(t, result.JobCount, refreshed.Invalidated)
	require.Equal(t, result.JobCount, refreshed.WorkerCount, "workers never exceed the job count")
}

func TestRankingWarmupService_ReportsFailedJobs(t *testing.T) {
	t.Parallel()

	source := rankingmock.NewSource(t)
	source.On("FetchRanking", mock.Anything, mock.Anything, ranking.VariantTeams, mock.Anything).Return(ranking.Response{}, errors.New("down"))
	source.On("FetchRanking", mock.Anything, ranking.SourcePrimary, mock.Anything, mock.Anything).Return(topResponse(), nil)

	svc := newTestRankingService(source, cache.NewStore(time.Minute), nil)
	result, err := NewRankingWarmupService(svc, nil, 0, nil).Warmup(context.Background(), WarmupInput{})
	require.NoError(t, err)
	require.Equal(t, 2, result.FailedCount)
	for _, job := range result.Jobs {
		if job.Variant == string(ranking.VariantTeams) {
			require.Equal(t, warmupStatusFailed, job.Status)
			require.Contains(t, job.Message, ErrFetchFailure.Error())
		}
	}
}

func TestRankingWarmupService_SubmitFailureWaitsForRunningJobs(t *testing.T) {
	t.Parallel()

	started := make(chan struct{})
	release := make(chan struct{})
	var inFlight atomic.Int32

	source := rankingmock.NewSource(t)
	source.On("FetchRanking", mock.Anything, ranking.SourcePrimary, mock.Anything, mock.Anything).
		Return(func(ctx context.Context, _ ranking.SourceKind, _ ranking.Variant, q ranking.WindowQuery) (ranking.Response, error) {
			if q.TopN == 0 {
				return restResponse(), nil
			}
			inFlight.Add(1)
			defer inFlight.Add(-1)
			close(started)
			<-release
			return topResponse(), nil
		})

	svc := newTestRankingService(source, nil, nil)
	warmup := NewRankingWarmupService(svc, nil, 1, nil)
	// One worker that refuses to queue: the second submit fails while the first job runs.
	warmup.poolOptions = []ants.Option{ants.WithNonblocking(true)}

	done := make(chan error, 1)
	go func() {
		_, err := warmup.Warmup(context.Background(), WarmupInput{MaxWorkers: 1})
		done <- err
	}()
	<-started

	select {
	case err := <-done:
		t.Fatalf("warmup returned while a submitted job was still running: %v", err)
	case <-time.After(30 * time.Millisecond):
	}

	close(release)
	err := <-done
	require.ErrorIs(t, err, ants.ErrPoolOverload)
	require.Zero(t, inFlight.Load(), "submitted jobs finish before warmup returns")
}

func TestNormalizeWarmupWorkerCount(t *testing.T) {
	t.Parallel()

	cases := []struct {
		requested, fallback, jobs, want int
	}{
		{0, 0, 8, defaultWarmupWorkers},
		{0, 6, 8, 6},
		{3, 6, 8, 3},
		{50, 0, 40, maxWarmupWorkers},
		{8, 0, 2, 2},
	}
	for _, tc := range cases {
		if got := normalizeWarmupWorkerCount(tc.requested, tc.fallback, tc.jobs); got != tc.want {
			t.Fatalf("normalizeWarmupWorkerCount(%d, %d, %d): got=%d want=%d", tc.requested, tc.fallback, tc.jobs, got, tc.want)
		}
	}
}
