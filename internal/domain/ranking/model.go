package ranking

import (
	"strconv"
	"strings"
	"time"

	"github.com/riskibarqy/global-standings/internal/domain/weekwindow"
)

// RawRow is one ranking entry as decoded from any upstream response shape.
type RawRow map[string]any

type Variant string

const (
	VariantPlayers     Variant = "players"
	VariantTeams       Variant = "teams"
	VariantScorers     Variant = "scorers"
	VariantGoalkeepers Variant = "goalkeepers"
)

var AllVariants = []Variant{VariantPlayers, VariantTeams, VariantScorers, VariantGoalkeepers}

func ParseVariant(raw string) (Variant, bool) {
	candidate := Variant(strings.ToLower(strings.TrimSpace(raw)))
	for _, v := range AllVariants {
		if v == candidate {
			return v, true
		}
	}
	return "", false
}

// Endpoint is the upstream collection the variant is served from.
// Goalkeepers are a filtered view of the player ranking.
func (v Variant) Endpoint() string {
	if v == VariantGoalkeepers {
		return string(VariantPlayers)
	}
	return string(v)
}

// SourceKind identifies which upstream answered a query.
type SourceKind string

const (
	SourcePrimary  SourceKind = "primary"
	SourceFallback SourceKind = "fallback"
)

// Context carries where an entity competes.
type Context struct {
	Competition string
	Group       string
	Club        string
}

// Row is the canonical ranking entry. WeekScore is nil when no weekly figure exists for
// the entity in the current window; TotalScore always holds a number.
type Row struct {
	Identity    string
	DisplayName string
	WeekScore   *float64
	TotalScore  float64
	Context     Context
}

// Raw renders the row back into its canonical raw shape.
func (r Row) Raw() RawRow {
	out := RawRow{
		FieldIdentity:    r.Identity,
		FieldDisplayName: r.DisplayName,
		FieldTotalScore:  r.TotalScore,
	}
	if r.WeekScore != nil {
		out[FieldWeekScore] = *r.WeekScore
	}
	if r.Context.Competition != "" {
		out[FieldCompetition] = r.Context.Competition
	}
	if r.Context.Group != "" {
		out[FieldGroup] = r.Context.Group
	}
	if r.Context.Club != "" {
		out[FieldClub] = r.Context.Club
	}
	return out
}

func (r Row) HasWeekScore() bool {
	return r.WeekScore != nil
}

type Status string

const (
	StatusOK             Status = "ok"
	StatusStrict         Status = "strict"
	StatusFallbackFailed Status = "fallback_failed"
	StatusNoWindow       Status = "no-window"
)

func ParseStatus(raw string) Status {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "strict":
		return StatusStrict
	case "fallback_failed", "fallback-failed", "fallbackfailed":
		return StatusFallbackFailed
	case "no-window", "no_window", "nowindow", "none":
		return StatusNoWindow
	default:
		return StatusOK
	}
}

// WindowMeta describes how the upstream matched the requested window. GamesReported is
// false when the response carried no matched-games figure, in which case MatchedGames is 0
// but means nothing.
type WindowMeta struct {
	MatchedGames   int
	GamesReported  bool
	EffectiveStart *time.Time
	EffectiveEnd   *time.Time
	Status         Status
}

// Response is one upstream answer before normalization.
type Response struct {
	Meta    WindowMeta
	Top     RawRow
	Ranking []RawRow
}

// WindowQuery is the filter set sent to the ranking service. A query without dates asks for
// season-to-date figures only. Zero TopN/Offset mean unset.
type WindowQuery struct {
	SeasonID        string
	DateFrom        *time.Time
	DateTo          *time.Time
	Strict          bool
	TopN            int
	Offset          int
	OnlyGoalkeepers bool
}

// NewWindowQuery builds a query for the given window. Strict mode only applies when a
// window is present.
func NewWindowQuery(seasonID string, window *weekwindow.Range, strict bool) WindowQuery {
	q := WindowQuery{SeasonID: strings.TrimSpace(seasonID)}
	if window == nil {
		return q
	}

	from := window.Start
	to := window.End
	q.DateFrom = &from
	q.DateTo = &to
	q.Strict = strict
	return q
}

func (q WindowQuery) HasWindow() bool {
	return q.DateFrom != nil && q.DateTo != nil
}

func (q WindowQuery) WithTop(n int) WindowQuery {
	q.TopN = n
	q.Offset = 0
	return q
}

func (q WindowQuery) WithOffset(offset int) WindowQuery {
	q.Offset = offset
	q.TopN = 0
	return q
}

func (q WindowQuery) ForVariant(v Variant) WindowQuery {
	q.OnlyGoalkeepers = v == VariantGoalkeepers
	return q
}

// Key identifies the query for caching and request coalescing.
func (q WindowQuery) Key() string {
	var b strings.Builder
	b.WriteString("season=")
	b.WriteString(q.SeasonID)
	if q.HasWindow() {
		b.WriteString("|from=")
		b.WriteString(q.DateFrom.Format(time.DateOnly))
		b.WriteString("|to=")
		b.WriteString(q.DateTo.Format(time.DateOnly))
	}
	b.WriteString("|strict=")
	b.WriteString(strconv.FormatBool(q.Strict))
	b.WriteString("|top=")
	b.WriteString(strconv.Itoa(q.TopN))
	b.WriteString("|offset=")
	b.WriteString(strconv.Itoa(q.Offset))
	b.WriteString("|gk=")
	b.WriteString(strconv.FormatBool(q.OnlyGoalkeepers))
	return b.String()
}
