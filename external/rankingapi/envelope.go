package rankingapi

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	sonic "github.com/bytedance/sonic"
	"github.com/riskibarqy/global-standings/internal/domain/ranking"
)

var (
	metaKeys     = []string{"window_meta", "meta", "windowMeta", "window"}
	topKeys      = []string{"top_entity", "top", "topEntity", "leader"}
	rankingKeys  = []string{"ranking", "data", "rows", "items", "results"}
	statusKeys   = []string{"status", "state", "window_status"}
	matchedKeys  = []string{"matched_games", "matchedGames", "games_matched", "matches", "games"}
	effStartKeys = []string{"effective_start", "effectiveStart", "start", "date_from"}
	effEndKeys   = []string{"effective_end", "effectiveEnd", "end", "date_to"}
)

var providerTimeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	time.DateOnly,
}

// decodeResponse reads any of the known envelope shapes. A bare JSON array is taken as
// the ranking itself.
func decodeResponse(raw []byte) (ranking.Response, error) {
	var root any
	if err := sonic.Unmarshal(raw, &root); err != nil {
		return ranking.Response{}, err
	}

	switch node := root.(type) {
	case []any:
		return ranking.Response{
			Meta:    ranking.WindowMeta{Status: ranking.StatusOK},
			Ranking: toRawRows(node),
		}, nil
	case map[string]any:
		resp := ranking.Response{
			Meta:    parseMeta(firstMap(node, metaKeys...)),
			Top:     toRawRow(firstPresent(node, topKeys...)),
			Ranking: toRawRows(firstSlice(node, rankingKeys...)),
		}
		return resp, nil
	case nil:
		return ranking.Response{Meta: ranking.WindowMeta{Status: ranking.StatusOK}}, nil
	default:
		return ranking.Response{}, fmt.Errorf("unexpected payload type %T", root)
	}
}

func parseMeta(src map[string]any) ranking.WindowMeta {
	meta := ranking.WindowMeta{
		Status: ranking.ParseStatus(getStringAny(src, statusKeys...)),
	}
	meta.MatchedGames, meta.GamesReported = lookupIntAny(src, matchedKeys...)
	meta.EffectiveStart = parseProviderDateTime(getStringAny(src, effStartKeys...))
	meta.EffectiveEnd = parseProviderDateTime(getStringAny(src, effEndKeys...))
	return meta
}

func toRawRows(items []any) []ranking.RawRow {
	out := make([]ranking.RawRow, 0, len(items))
	for _, item := range items {
		if row := toRawRow(item); row != nil {
			out = append(out, row)
		}
	}
	return out
}

func toRawRow(value any) ranking.RawRow {
	m, ok := value.(map[string]any)
	if !ok || len(m) == 0 {
		return nil
	}
	return ranking.RawRow(m)
}

func firstPresent(src map[string]any, keys ...string) any {
	for _, key := range keys {
		if value, ok := src[key]; ok && value != nil {
			return value
		}
	}
	return nil
}

func firstMap(src map[string]any, keys ...string) map[string]any {
	for _, key := range keys {
		if m, ok := src[key].(map[string]any); ok {
			return m
		}
	}
	return nil
}

func firstSlice(src map[string]any, keys ...string) []any {
	for _, key := range keys {
		if items, ok := src[key].([]any); ok {
			return items
		}
	}
	return nil
}

func getStringAny(src map[string]any, keys ...string) string {
	for _, key := range keys {
		if value, ok := src[key].(string); ok && strings.TrimSpace(value) != "" {
			return strings.TrimSpace(value)
		}
	}
	return ""
}

// lookupIntAny returns the first usable integer under keys and whether one was found.
func lookupIntAny(src map[string]any, keys ...string) (int, bool) {
	for _, key := range keys {
		switch value := src[key].(type) {
		case float64:
			if !math.IsNaN(value) && !math.IsInf(value, 0) {
				return int(value), true
			}
		case int:
			return value, true
		case int64:
			return int(value), true
		case string:
			if parsed, err := strconv.Atoi(strings.TrimSpace(value)); err == nil {
				return parsed, true
			}
		}
	}
	return 0, false
}

func parseProviderDateTime(raw string) *time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	for _, layout := range providerTimeLayouts {
		if parsed, err := time.Parse(layout, raw); err == nil {
			return &parsed
		}
	}
	return nil
}
