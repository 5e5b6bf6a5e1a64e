package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/riskibarqy/global-standings/internal/domain/ranking"
	"github.com/riskibarqy/global-standings/internal/domain/selection"
	"github.com/riskibarqy/global-standings/internal/platform/cache"
	rankingmock "github.com/riskibarqy/global-standings/internal/mocks/domain/ranking"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var (
	testSeasonStart = time.Date(2025, time.August, 6, 0, 0, 0, 0, time.UTC)
	testNow         = time.Date(2025, time.August, 21, 12, 0, 0, 0, time.UTC)
)

func newTestRankingService(source ranking.Source, store *cache.Store, sessions *SessionRegistry) *GlobalRankingService {
	svc := NewGlobalRankingService(source, store, nil, sessions, GlobalRankingConfig{
		SeasonID:    "2025",
		SeasonStart: testSeasonStart,
		TopN:        3,
	}, nil)
	svc.now = func() time.Time { return testNow }
	return svc
}

func topQuery() any {
	return mock.MatchedBy(func(q ranking.WindowQuery) bool { return q.TopN == 3 && q.Offset == 0 })
}

func restQuery() any {
	return mock.MatchedBy(func(q ranking.WindowQuery) bool { return q.Offset == 3 && q.TopN == 0 })
}

func topResponse() ranking.Response {
	return ranking.Response{
		Meta: ranking.WindowMeta{Status: ranking.StatusStrict, MatchedGames: 6, GamesReported: true},
		Top:  ranking.RawRow{"id": 1, "name": "Ana", "total_score": 30.0, "week_score": 5.0},
		Ranking: []ranking.RawRow{
			{"id": 2, "name": "Bea", "total_score": 20.0, "week_score": 4.0, "competition": "Liga Norte", "group": "A"},
			{"id": 1, "name": "Ana", "total_score": 30.0, "week_score": 5.0, "competition": "Liga Norte", "group": "A"},
			{"id": 3, "name": "Caro", "total_score": 10.0, "competition": "Copa", "group": "1"},
		},
	}
}

func restResponse() ranking.Response {
	return ranking.Response{
		Meta: ranking.WindowMeta{Status: ranking.StatusStrict, MatchedGames: 6, GamesReported: true},
		Ranking: []ranking.RawRow{
			{"id": 3, "name": "duplicate", "total_score": 99.0},
			{"player_id": "4", "player_name": "Dani", "score_global": "5,5", "score": "2", "competition_name": "Copa", "grupo": "1"},
		},
	}
}

func identities(rows []ranking.Row) []string {
	out := make([]string, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.Identity)
	}
	return out
}

func TestGlobalRankingService_GetRanking_MergesTopAndRest(t *testing.T) {
	t.Parallel()

	source := rankingmock.NewSource(t)
	source.On("FetchRanking", mock.Anything, ranking.SourcePrimary, ranking.VariantPlayers, topQuery()).Return(topResponse(), nil).Once()
	source.On("FetchRanking", mock.Anything, ranking.SourcePrimary, ranking.VariantPlayers, restQuery()).Return(restResponse(), nil).Once()

	svc := newTestRankingService(source, nil, nil)
	view, err := svc.GetRanking(context.Background(), RankingInput{Variant: ranking.VariantPlayers, Week: "2025-08-19", Strict: true})
	require.NoError(t, err)

	require.Equal(t, []string{"1", "2", "3", "4"}, identities(view.Rows))
	require.Equal(t, "Caro", view.Rows[2].DisplayName, "top instance must win over the rest duplicate")
	require.Equal(t, 5.5, view.Rows[3].TotalScore)
	require.Equal(t, RankingStatePopulated, view.State)
	require.False(t, view.NoWeekData)
	require.False(t, view.FallbackUsed)
	require.NotNil(t, view.TopEntity)
	require.Equal(t, "1", view.TopEntity.Identity)

	require.NotNil(t, view.Week)
	require.Equal(t, "2025-08-19", view.Week.SelectorValue)
	require.NotNil(t, view.Window)
	require.Equal(t, time.Date(2025, time.August, 13, 19, 0, 0, 0, time.UTC), view.Window.Start)
	require.Equal(t, []selection.Pair{{Competition: "Copa", Group: "1"}, {Competition: "Liga Norte", Group: "A"}}, view.Available)
}

func TestGlobalRankingService_GetRanking_SeasonToDateIsNeverStrict(t *testing.T) {
	t.Parallel()

	seasonOnly := mock.MatchedBy(func(q ranking.WindowQuery) bool { return !q.HasWindow() && !q.Strict })
	source := rankingmock.NewSource(t)
	source.On("FetchRanking", mock.Anything, ranking.SourcePrimary, ranking.VariantTeams, seasonOnly).
		Return(ranking.Response{Meta: ranking.WindowMeta{Status: ranking.StatusNoWindow}}, nil).Twice()

	svc := newTestRankingService(source, nil, nil)
	view, err := svc.GetRanking(context.Background(), RankingInput{Variant: ranking.VariantTeams, Strict: true})
	require.NoError(t, err)
	require.Nil(t, view.Week)
	require.Nil(t, view.Window)
	require.False(t, view.NoWeekData)
	require.Equal(t, RankingStateEmpty, view.State)
}

func TestGlobalRankingService_GetRanking_UsesFallbackOnce(t *testing.T) {
	t.Parallel()

	source := rankingmock.NewSource(t)
	source.On("FetchRanking", mock.Anything, ranking.SourcePrimary, ranking.VariantScorers, topQuery()).Return(topResponse(), nil).Once()
	source.On("FetchRanking", mock.Anything, ranking.SourcePrimary, ranking.VariantScorers, restQuery()).Return(ranking.Response{}, errors.New("primary down")).Once()
	source.On("FetchRanking", mock.Anything, ranking.SourceFallback, ranking.VariantScorers, restQuery()).Return(restResponse(), nil).Once()

	svc := newTestRankingService(source, nil, nil)
	view, err := svc.GetRanking(context.Background(), RankingInput{Variant: ranking.VariantScorers, Week: "2025-08-19", Strict: true})
	require.NoError(t, err)
	require.True(t, view.FallbackUsed)
	require.Len(t, view.Rows, 4)
}

func TestGlobalRankingService_GetRanking_FetchFailureAfterFallback(t *testing.T) {
	t.Parallel()

	source := rankingmock.NewSource(t)
	source.On("FetchRanking", mock.Anything, ranking.SourcePrimary, ranking.VariantPlayers, mock.Anything).Return(ranking.Response{}, errors.New("primary down"))
	source.On("FetchRanking", mock.Anything, ranking.SourceFallback, ranking.VariantPlayers, mock.Anything).Return(ranking.Response{}, errors.New("fallback down"))

	svc := newTestRankingService(source, nil, nil)
	_, err := svc.GetRanking(context.Background(), RankingInput{Variant: ranking.VariantPlayers, Week: "2025-08-19", Strict: true})
	require.ErrorIs(t, err, ErrFetchFailure)

	fallbackCalls := 0
	for _, call := range source.Calls {
		if call.Arguments.Get(1).(ranking.SourceKind) == ranking.SourceFallback {
			fallbackCalls++
		}
	}
	require.LessOrEqual(t, fallbackCalls, 2, "each query gets at most one fallback attempt")
}

func TestGlobalRankingService_GetRanking_NoWeekDataKeepsTotals(t *testing.T) {
	t.Parallel()

	top := topResponse()
	top.Meta.MatchedGames = 0
	rest := restResponse()
	rest.Meta.MatchedGames = 0

	source := rankingmock.NewSource(t)
	source.On("FetchRanking", mock.Anything, ranking.SourcePrimary, ranking.VariantPlayers, topQuery()).Return(top, nil).Once()
	source.On("FetchRanking", mock.Anything, ranking.SourcePrimary, ranking.VariantPlayers, restQuery()).Return(rest, nil).Once()

	svc := newTestRankingService(source, nil, nil)
	view, err := svc.GetRanking(context.Background(), RankingInput{Variant: ranking.VariantPlayers, Week: "2025-08-19", Strict: true})
	require.NoError(t, err)
	require.True(t, view.NoWeekData)
	require.Equal(t, RankingStatePopulated, view.State)
	for _, row := range view.Rows {
		require.Nil(t, row.WeekScore, "row %s must render a placeholder", row.Identity)
	}
	require.Equal(t, 30.0, view.Rows[0].TotalScore)
	require.Nil(t, view.TopEntity.WeekScore)
}

func TestGlobalRankingService_GetRanking_UnreportedGamesKeepWeekScores(t *testing.T) {
	t.Parallel()

	// The fallback answers with a bare row list, so no games count arrives with it.
	bare := ranking.Response{
		Meta: ranking.WindowMeta{Status: ranking.StatusOK},
		Top:  ranking.RawRow{"id": 1, "name": "Ana", "total_score": 30.0, "week_score": 5.0},
		Ranking: []ranking.RawRow{
			{"id": 1, "name": "Ana", "total_score": 30.0, "week_score": 5.0},
			{"id": 2, "name": "Bea", "total_score": 20.0, "week_score": 4.0},
		},
	}
	rest := ranking.Response{Meta: ranking.WindowMeta{Status: ranking.StatusOK}}

	source := rankingmock.NewSource(t)
	source.On("FetchRanking", mock.Anything, ranking.SourcePrimary, ranking.VariantPlayers, topQuery()).Return(ranking.Response{}, errors.New("primary down")).Once()
	source.On("FetchRanking", mock.Anything, ranking.SourceFallback, ranking.VariantPlayers, topQuery()).Return(bare, nil).Once()
	source.On("FetchRanking", mock.Anything, ranking.SourcePrimary, ranking.VariantPlayers, restQuery()).Return(rest, nil).Once()

	svc := newTestRankingService(source, nil, nil)
	view, err := svc.GetRanking(context.Background(), RankingInput{Variant: ranking.VariantPlayers, Week: "2025-08-19", Strict: true})
	require.NoError(t, err)
	require.True(t, view.FallbackUsed)
	require.False(t, view.NoWeekData, "a missing games count is not an empty week")
	require.Len(t, view.Rows, 2)
	require.NotNil(t, view.Rows[0].WeekScore)
	require.Equal(t, 5.0, *view.Rows[0].WeekScore)
	require.NotNil(t, view.TopEntity.WeekScore)
}

func TestGlobalRankingService_GetRanking_GamesCountFromRest(t *testing.T) {
	t.Parallel()

	top := topResponse()
	top.Meta = ranking.WindowMeta{Status: ranking.StatusStrict}
	rest := restResponse()
	rest.Meta = ranking.WindowMeta{Status: ranking.StatusStrict, MatchedGames: 0, GamesReported: true}

	source := rankingmock.NewSource(t)
	source.On("FetchRanking", mock.Anything, ranking.SourcePrimary, ranking.VariantPlayers, topQuery()).Return(top, nil).Once()
	source.On("FetchRanking", mock.Anything, ranking.SourcePrimary, ranking.VariantPlayers, restQuery()).Return(rest, nil).Once()

	svc := newTestRankingService(source, nil, nil)
	view, err := svc.GetRanking(context.Background(), RankingInput{Variant: ranking.VariantPlayers, Week: "2025-08-19", Strict: true})
	require.NoError(t, err)
	require.True(t, view.NoWeekData)
	require.True(t, view.Meta.GamesReported)
}

func TestGlobalRankingService_GetRanking_CachesViews(t *testing.T) {
	t.Parallel()

	source := rankingmock.NewSource(t)
	source.On("FetchRanking", mock.Anything, ranking.SourcePrimary, ranking.VariantPlayers, topQuery()).Return(topResponse(), nil).Once()
	source.On("FetchRanking", mock.Anything, ranking.SourcePrimary, ranking.VariantPlayers, restQuery()).Return(restResponse(), nil).Once()

	svc := newTestRankingService(source, cache.NewStore(time.Minute), nil)
	input := RankingInput{Variant: ranking.VariantPlayers, Week: "2025-08-19", Strict: true}

	first, err := svc.GetRanking(context.Background(), input)
	require.NoError(t, err)
	second, err := svc.GetRanking(context.Background(), input)
	require.NoError(t, err)
	require.Equal(t, identities(first.Rows), identities(second.Rows))

	require.Equal(t, 1, svc.InvalidateCache(context.Background()))
}

func TestGlobalRankingService_GetRanking_FiltersScope(t *testing.T) {
	t.Parallel()

	source := rankingmock.NewSource(t)
	source.On("FetchRanking", mock.Anything, ranking.SourcePrimary, ranking.VariantPlayers, topQuery()).Return(topResponse(), nil).Once()
	source.On("FetchRanking", mock.Anything, ranking.SourcePrimary, ranking.VariantPlayers, restQuery()).Return(restResponse(), nil).Once()

	svc := newTestRankingService(source, nil, nil)
	view, err := svc.GetRanking(context.Background(), RankingInput{
		Variant: ranking.VariantPlayers,
		Week:    "2025-08-19",
		Strict:  true,
		Scope:   selection.Pair{Competition: "copa"},
	})
	require.NoError(t, err)
	require.Equal(t, []string{"3", "4"}, identities(view.Rows))
	require.Nil(t, view.TopEntity, "top entity outside the scope is hidden")
	require.Len(t, view.Available, 2, "available pairs are computed before filtering")
}

func TestGlobalRankingService_GetRanking_RejectsInvalidInput(t *testing.T) {
	t.Parallel()

	svc := newTestRankingService(rankingmock.NewSource(t), nil, nil)

	_, err := svc.GetRanking(context.Background(), RankingInput{Variant: "referees"})
	require.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.GetRanking(context.Background(), RankingInput{Variant: ranking.VariantPlayers, Week: "19/08/2025"})
	require.ErrorIs(t, err, ErrInvalidInput)
}

func TestGlobalRankingService_Weeks(t *testing.T) {
	t.Parallel()

	svc := newTestRankingService(rankingmock.NewSource(t), nil, nil)
	list := svc.Weeks(context.Background())

	require.Equal(t, "2025", list.SeasonID)
	require.Equal(t, "2025-08-26", list.DefaultSelector)
	require.Len(t, list.Weeks, 3)
	require.Equal(t, list.DefaultSelector, list.Weeks[0].SelectorValue)
}
