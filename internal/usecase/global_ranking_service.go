package usecase

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/riskibarqy/global-standings/internal/domain/ranking"
	"github.com/riskibarqy/global-standings/internal/domain/selection"
	"github.com/riskibarqy/global-standings/internal/domain/weekwindow"
	"github.com/riskibarqy/global-standings/internal/platform/cache"
	"github.com/riskibarqy/global-standings/internal/platform/logging"
	"github.com/riskibarqy/global-standings/internal/platform/metrics"
	"github.com/sourcegraph/conc/pool"
	"go.opentelemetry.io/otel/attribute"
)

const (
	defaultTopN        = 3
	rankingCachePrefix = "ranking:"
)

type RankingState string

const (
	RankingStatePopulated RankingState = "populated"
	RankingStateEmpty     RankingState = "empty"
)

type GlobalRankingConfig struct {
	SeasonID    string
	SeasonStart time.Time
	// TopN is the size of the leading query; the remainder is fetched from that offset.
	TopN int
}

type WeekList struct {
	SeasonID        string
	Timezone        string
	DefaultSelector string
	Weeks           []weekwindow.Week
}

type RankingInput struct {
	Variant ranking.Variant
	// Week is a selector value. Empty asks for season-to-date figures.
	Week   string
	Strict bool
	Scope  selection.Pair
}

type RankingView struct {
	Variant      ranking.Variant
	Week         *weekwindow.Week
	Window       *weekwindow.Range
	Strict       bool
	Meta         ranking.WindowMeta
	FallbackUsed bool
	TopEntity    *ranking.Row
	Rows         []ranking.Row
	NoWeekData   bool
	State        RankingState
	Scope        selection.Pair
	// Available lists the competition/group pairs present in the unfiltered ranking.
	Available []selection.Pair
}

type GlobalRankingService struct {
	source   ranking.Source
	cache    *cache.Store
	metrics  *metrics.Manager
	sessions *SessionRegistry
	cfg      GlobalRankingConfig
	logger   *logging.Logger
	now      func() time.Time
}

func NewGlobalRankingService(
	source ranking.Source,
	store *cache.Store,
	metricsManager *metrics.Manager,
	sessions *SessionRegistry,
	cfg GlobalRankingConfig,
	logger *logging.Logger,
) *GlobalRankingService {
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.TopN <= 0 {
		cfg.TopN = defaultTopN
	}
	cfg.SeasonID = strings.TrimSpace(cfg.SeasonID)

	return &GlobalRankingService{
		source:   source,
		cache:    store,
		metrics:  metricsManager,
		sessions: sessions,
		cfg:      cfg,
		logger:   logger.Named("global_ranking"),
		now:      time.Now,
	}
}

func (s *GlobalRankingService) Weeks(ctx context.Context) WeekList {
	_, span := startUsecaseSpan(ctx, "usecase.GlobalRankingService.Weeks")
	defer span.End()

	today := s.today()
	return WeekList{
		SeasonID:        s.cfg.SeasonID,
		Timezone:        s.cfg.SeasonStart.Location().String(),
		DefaultSelector: weekwindow.DefaultSelectorValue(today),
		Weeks:           weekwindow.GenerateWeeks(s.cfg.SeasonStart, today),
	}
}

// GetRanking returns the merged, sorted ranking for one variant, filtered to input.Scope.
func (s *GlobalRankingService) GetRanking(ctx context.Context, input RankingInput) (RankingView, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.GlobalRankingService.GetRanking")
	defer span.End()

	view, err := s.loadView(ctx, input.Variant, input.Week, input.Strict)
	if err != nil {
		return RankingView{}, err
	}
	return applyScope(view, input.Scope), nil
}

// GetSessionRanking runs the ranking query for a session's current selection. A query that
// is superseded by a newer selection before it completes returns ErrStaleQuery.
func (s *GlobalRankingService) GetSessionRanking(ctx context.Context, sessionID string, variant ranking.Variant) (RankingView, Session, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.GlobalRankingService.GetSessionRanking", attribute.String("ranking.variant", string(variant)))
	defer span.End()

	if s.sessions == nil {
		return RankingView{}, Session{}, fmt.Errorf("%w: selection sessions are not configured", ErrDependencyUnavailable)
	}

	queryCtx, token, snapshot, err := s.sessions.Begin(ctx, sessionID)
	if err != nil {
		return RankingView{}, Session{}, err
	}

	view, err := s.loadView(queryCtx, variant, snapshot.Week, snapshot.Strict)
	if err != nil {
		if s.sessions.Abort(sessionID, token) {
			return RankingView{}, Session{}, err
		}
		s.metrics.IncStaleDiscard()
		return RankingView{}, Session{}, fmt.Errorf("%w: session=%s", ErrStaleQuery, sessionID)
	}

	current, err := s.sessions.Commit(sessionID, token, view.Available)
	if err != nil {
		if isStale(err) {
			s.metrics.IncStaleDiscard()
			s.logger.DebugContext(ctx, "discard superseded ranking result", "session_id", sessionID, "variant", variant)
		}
		return RankingView{}, Session{}, err
	}

	return applyScope(view, current.Scope), current, nil
}

func (s *GlobalRankingService) loadView(ctx context.Context, variant ranking.Variant, weekValue string, strict bool) (RankingView, error) {
	if _, ok := ranking.ParseVariant(string(variant)); !ok {
		return RankingView{}, fmt.Errorf("%w: unknown ranking variant %q", ErrInvalidInput, variant)
	}
	if s.source == nil {
		return RankingView{}, fmt.Errorf("%w: ranking source is not configured", ErrDependencyUnavailable)
	}

	base, week, err := s.resolveQuery(weekValue, strict)
	if err != nil {
		return RankingView{}, err
	}

	key := rankingCachePrefix + string(variant) + ":" + base.ForVariant(variant).Key()
	load := func(ctx context.Context) (any, error) {
		return s.fetchView(ctx, variant, base, week)
	}

	if s.cache == nil {
		out, err := load(ctx)
		if err != nil {
			return RankingView{}, err
		}
		return out.(RankingView), nil
	}

	out, hit, err := s.cache.GetOrLoad(ctx, key, load)
	if err != nil {
		return RankingView{}, err
	}
	s.metrics.ObserveCacheLookup(hit)

	view, ok := out.(RankingView)
	if !ok {
		return RankingView{}, fmt.Errorf("unexpected cached ranking type %T", out)
	}
	return view, nil
}

func (s *GlobalRankingService) resolveQuery(weekValue string, strict bool) (ranking.WindowQuery, *weekwindow.Week, error) {
	weekValue = strings.TrimSpace(weekValue)
	if weekValue == "" {
		return ranking.NewWindowQuery(s.cfg.SeasonID, nil, strict), nil, nil
	}
	if _, ok := weekwindow.ParseSelectorValue(weekValue, s.cfg.SeasonStart.Location()); !ok {
		return ranking.WindowQuery{}, nil, fmt.Errorf("%w: week must be formatted as %s", ErrInvalidInput, weekwindow.SelectorLayout)
	}

	week, ok := weekwindow.ResolveSelection(weekValue, s.cfg.SeasonStart, s.today())
	if !ok {
		// Before the first week of the season there is no window to report on.
		return ranking.NewWindowQuery(s.cfg.SeasonID, nil, strict), nil, nil
	}
	window := week.Window()
	return ranking.NewWindowQuery(s.cfg.SeasonID, &window, strict), &week, nil
}

func (s *GlobalRankingService) fetchView(ctx context.Context, variant ranking.Variant, base ranking.WindowQuery, week *weekwindow.Week) (RankingView, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.GlobalRankingService.fetchView",
		attribute.String("ranking.variant", string(variant)),
		attribute.Bool("ranking.strict", base.Strict),
		attribute.Bool("ranking.windowed", base.HasWindow()),
	)
	defer span.End()

	query := base.ForVariant(variant)
	topQuery := query.WithTop(s.cfg.TopN)
	restQuery := query.WithOffset(s.cfg.TopN)

	var (
		topResp, restResp         ranking.Response
		topFallback, restFallback bool
	)
	p := pool.New().WithContext(ctx).WithCancelOnError().WithFirstError()
	p.Go(func(ctx context.Context) error {
		resp, kind, err := s.fetchWithFallback(ctx, variant, topQuery)
		topResp, topFallback = resp, kind == ranking.SourceFallback
		return err
	})
	p.Go(func(ctx context.Context) error {
		resp, kind, err := s.fetchWithFallback(ctx, variant, restQuery)
		restResp, restFallback = resp, kind == ranking.SourceFallback
		return err
	})
	if err := p.Wait(); err != nil {
		return RankingView{}, err
	}

	rows := ranking.SortByTotalDesc(ranking.MergeTopAndRest(
		ranking.NormalizeAll(topResp.Ranking),
		ranking.NormalizeAll(restResp.Ranking),
	))

	topRaw := topResp.Top
	if topRaw == nil {
		topRaw = restResp.Top
	}
	topEntity := ranking.NormalizeTop(topRaw)

	meta := ranking.MergeMeta(topResp.Meta, restResp.Meta)
	noWeekData := ranking.DetermineNoWeekData(meta, base.Strict)
	if noWeekData {
		rows = ranking.ClearWeekScores(rows)
		if topEntity != nil {
			cleared := ranking.ClearWeekScores([]ranking.Row{*topEntity})[0]
			topEntity = &cleared
		}
	}

	view := RankingView{
		Variant:      variant,
		Week:         week,
		Strict:       base.Strict,
		Meta:         meta,
		FallbackUsed: topFallback || restFallback,
		TopEntity:    topEntity,
		Rows:         rows,
		NoWeekData:   noWeekData,
		State:        stateOf(rows),
		Available:    availablePairs(rows),
	}
	if base.HasWindow() {
		view.Window = &weekwindow.Range{Start: *base.DateFrom, End: *base.DateTo}
	}
	return view, nil
}

// fetchWithFallback asks the primary source and, when it fails, makes exactly one attempt
// against the fallback source.
func (s *GlobalRankingService) fetchWithFallback(ctx context.Context, variant ranking.Variant, query ranking.WindowQuery) (ranking.Response, ranking.SourceKind, error) {
	resp, err := s.source.FetchRanking(ctx, ranking.SourcePrimary, variant, query)
	if err == nil {
		return resp, ranking.SourcePrimary, nil
	}
	if ctx.Err() != nil {
		return ranking.Response{}, ranking.SourcePrimary, ctx.Err()
	}

	s.logger.WarnContext(ctx, "primary ranking source failed, trying fallback",
		"variant", variant,
		"top_n", query.TopN,
		"offset", query.Offset,
		"error", err,
	)

	resp, fallbackErr := s.source.FetchRanking(ctx, ranking.SourceFallback, variant, query)
	if fallbackErr != nil && ctx.Err() != nil {
		return ranking.Response{}, ranking.SourceFallback, ctx.Err()
	}
	s.metrics.ObserveFallback(string(variant), fallbackErr == nil)
	if fallbackErr != nil {
		s.logger.ErrorContext(ctx, "ranking fetch failed on both sources",
			"variant", variant,
			"status", ranking.StatusFallbackFailed,
			"primary_error", err,
			"fallback_error", fallbackErr,
		)
		return ranking.Response{}, ranking.SourceFallback, fmt.Errorf("%w: variant=%s primary: %v; fallback: %v", ErrFetchFailure, variant, err, fallbackErr)
	}

	return resp, ranking.SourceFallback, nil
}

// InvalidateCache drops every cached ranking view and returns how many were removed.
func (s *GlobalRankingService) InvalidateCache(ctx context.Context) int {
	if s.cache == nil {
		return 0
	}
	return s.cache.DeletePrefix(ctx, rankingCachePrefix)
}

func (s *GlobalRankingService) today() time.Time {
	return s.now().In(s.cfg.SeasonStart.Location())
}

func applyScope(view RankingView, scope selection.Pair) RankingView {
	view.Scope = scope
	if scope.IsZero() {
		return view
	}

	rows := make([]ranking.Row, 0, len(view.Rows))
	for _, row := range view.Rows {
		if inScope(row, scope) {
			rows = append(rows, row)
		}
	}
	view.Rows = rows
	if view.TopEntity != nil && !inScope(*view.TopEntity, scope) {
		view.TopEntity = nil
	}
	view.State = stateOf(rows)
	return view
}

func inScope(row ranking.Row, scope selection.Pair) bool {
	competition := strings.TrimSpace(scope.Competition)
	if competition != "" && !strings.EqualFold(strings.TrimSpace(row.Context.Competition), competition) {
		return false
	}
	group := strings.TrimSpace(scope.Group)
	if group != "" && !strings.EqualFold(strings.TrimSpace(row.Context.Group), group) {
		return false
	}
	return true
}

func stateOf(rows []ranking.Row) RankingState {
	if len(rows) == 0 {
		return RankingStateEmpty
	}
	return RankingStatePopulated
}

func availablePairs(rows []ranking.Row) []selection.Pair {
	seen := make(map[selection.Pair]struct{}, 8)
	out := make([]selection.Pair, 0, 8)
	for _, row := range rows {
		pair := selection.Pair{Competition: row.Context.Competition, Group: row.Context.Group}
		if pair.IsZero() {
			continue
		}
		if _, ok := seen[pair]; ok {
			continue
		}
		seen[pair] = struct{}{}
		out = append(out, pair)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Competition != out[j].Competition {
			return out[i].Competition < out[j].Competition
		}
		return out[i].Group < out[j].Group
	})
	return out
}
