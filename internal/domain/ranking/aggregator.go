package ranking

import (
	"sort"
	"strconv"
	"strings"
)

// MergeTopAndRest joins a top subset with the remainder of a ranking fetched independently.
// Rows of rest whose identity already appears in top are dropped; the top instance wins.
func MergeTopAndRest(top, rest []Row) []Row {
	out := make([]Row, 0, len(top)+len(rest))
	seen := make(map[string]struct{}, len(top))
	for _, row := range top {
		seen[row.Identity] = struct{}{}
		out = append(out, row)
	}
	for _, row := range rest {
		if _, dup := seen[row.Identity]; dup {
			continue
		}
		out = append(out, row)
	}
	return out
}

// SortByTotalDesc returns a sorted copy: total descending, week descending with missing
// week scores lowest, identity ascending. Remaining ties fall back to name and context so
// the result depends only on the rows, never on their input order.
func SortByTotalDesc(rows []Row) []Row {
	out := make([]Row, len(rows))
	copy(out, rows)
	sort.SliceStable(out, func(i, j int) bool {
		return rowLess(out[i], out[j])
	})
	return out
}

// DetermineNoWeekData reports whether a strict weekly query matched no games. A response
// that never reported a games count is not evidence of an empty week.
func DetermineNoWeekData(meta WindowMeta, strictRequested bool) bool {
	return strictRequested && meta.GamesReported && meta.MatchedGames == 0
}

// MergeMeta combines the metadata of the top and rest responses. The top response wins;
// fields it left out are taken from rest.
func MergeMeta(top, rest WindowMeta) WindowMeta {
	out := top
	if !out.GamesReported && rest.GamesReported {
		out.MatchedGames = rest.MatchedGames
		out.GamesReported = true
	}
	if out.EffectiveStart == nil {
		out.EffectiveStart = rest.EffectiveStart
	}
	if out.EffectiveEnd == nil {
		out.EffectiveEnd = rest.EffectiveEnd
	}
	return out
}

// ClearWeekScores drops weekly figures so they render as placeholders; totals stay.
func ClearWeekScores(rows []Row) []Row {
	out := make([]Row, len(rows))
	for i, row := range rows {
		row.WeekScore = nil
		out[i] = row
	}
	return out
}

func rowLess(a, b Row) bool {
	if a.TotalScore != b.TotalScore {
		return a.TotalScore > b.TotalScore
	}
	if c := compareWeek(a.WeekScore, b.WeekScore); c != 0 {
		return c > 0
	}
	if c := compareIdentity(a.Identity, b.Identity); c != 0 {
		return c < 0
	}
	if c := strings.Compare(a.DisplayName, b.DisplayName); c != 0 {
		return c < 0
	}
	if c := strings.Compare(a.Context.Competition, b.Context.Competition); c != 0 {
		return c < 0
	}
	if c := strings.Compare(a.Context.Group, b.Context.Group); c != 0 {
		return c < 0
	}
	return a.Context.Club < b.Context.Club
}

func compareWeek(a, b *float64) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	case *a > *b:
		return 1
	case *a < *b:
		return -1
	default:
		return 0
	}
}

// compareIdentity orders numeric identities numerically and before any textual ones.
func compareIdentity(a, b string) int {
	an, aErr := strconv.ParseInt(a, 10, 64)
	bn, bErr := strconv.ParseInt(b, 10, 64)
	switch {
	case aErr == nil && bErr == nil:
		switch {
		case an < bn:
			return -1
		case an > bn:
			return 1
		}
		return strings.Compare(a, b)
	case aErr == nil:
		return -1
	case bErr == nil:
		return 1
	default:
		return strings.Compare(a, b)
	}
}
