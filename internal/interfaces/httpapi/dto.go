package httpapi

import (
	"time"

	"github.com/riskibarqy/global-standings/internal/domain/ranking"
	"github.com/riskibarqy/global-standings/internal/domain/selection"
	"github.com/riskibarqy/global-standings/internal/domain/weekwindow"
	"github.com/riskibarqy/global-standings/internal/usecase"
)

type weekListDTO struct {
	SeasonID        string    `json:"season_id"`
	Timezone        string    `json:"timezone"`
	DefaultSelector string    `json:"default_selector"`
	Weeks           []weekDTO `json:"weeks"`
}

type weekDTO struct {
	Index         int       `json:"index"`
	SelectorValue string    `json:"selector_value"`
	Start         string    `json:"start"`
	End           string    `json:"end"`
	Window        windowDTO `json:"window"`
}

type windowDTO struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

type windowMetaDTO struct {
	MatchedGames   *int    `json:"matched_games"`
	EffectiveStart *string `json:"effective_start"`
	EffectiveEnd   *string `json:"effective_end"`
	Status         string  `json:"status"`
}

type rankingRowDTO struct {
	Position    int      `json:"position"`
	Identity    string   `json:"identity"`
	DisplayName string   `json:"display_name"`
	WeekScore   *float64 `json:"week_score"`
	TotalScore  float64  `json:"total_score"`
	Competition string   `json:"competition,omitempty"`
	Group       string   `json:"group,omitempty"`
	Club        string   `json:"club,omitempty"`
}

type scopeDTO struct {
	Competition string `json:"competition"`
	Group       string `json:"group"`
}

type rankingDTO struct {
	Variant      string          `json:"variant"`
	Week         *weekDTO        `json:"week"`
	Window       *windowDTO      `json:"window"`
	Strict       bool            `json:"strict"`
	NoWeekData   bool            `json:"noWeekData"`
	FallbackUsed bool            `json:"fallback_used"`
	State        string          `json:"state"`
	Meta         windowMetaDTO   `json:"meta"`
	TopEntity    *rankingRowDTO  `json:"top_entity"`
	Rows         []rankingRowDTO `json:"rows"`
	Scope        *scopeDTO       `json:"scope"`
	Available    []scopeDTO      `json:"available_scopes"`
}

type sessionDTO struct {
	ID          string `json:"id"`
	Week        string `json:"week"`
	Strict      bool   `json:"strict"`
	Mode        string `json:"mode"`
	Competition string `json:"competition"`
	Group       string `json:"group"`
	LatchState  string `json:"latch_state"`
	CreatedAt   string `json:"created_at"`
	UpdatedAt   string `json:"updated_at"`
}

type sessionRankingDTO struct {
	Session sessionDTO `json:"session"`
	Ranking rankingDTO `json:"ranking"`
}

func weekListToDTO(v usecase.WeekList) weekListDTO {
	weeks := make([]weekDTO, 0, len(v.Weeks))
	for _, week := range v.Weeks {
		weeks = append(weeks, weekToDTO(week))
	}
	return weekListDTO{
		SeasonID:        v.SeasonID,
		Timezone:        v.Timezone,
		DefaultSelector: v.DefaultSelector,
		Weeks:           weeks,
	}
}

func weekToDTO(v weekwindow.Week) weekDTO {
	return weekDTO{
		Index:         v.Index,
		SelectorValue: v.SelectorValue,
		Start:         formatTime(v.Start),
		End:           formatTime(v.End),
		Window:        windowToDTO(v.Window()),
	}
}

func windowToDTO(v weekwindow.Range) windowDTO {
	return windowDTO{Start: formatTime(v.Start), End: formatTime(v.End)}
}

func rankingViewToDTO(v usecase.RankingView) rankingDTO {
	out := rankingDTO{
		Variant:      string(v.Variant),
		Strict:       v.Strict,
		NoWeekData:   v.NoWeekData,
		FallbackUsed: v.FallbackUsed,
		State:        string(v.State),
		Meta: windowMetaDTO{
			MatchedGames:   matchedGames(v.Meta),
			EffectiveStart: formatOptionalTime(v.Meta.EffectiveStart),
			EffectiveEnd:   formatOptionalTime(v.Meta.EffectiveEnd),
			Status:         string(v.Meta.Status),
		},
		Rows:      make([]rankingRowDTO, 0, len(v.Rows)),
		Available: make([]scopeDTO, 0, len(v.Available)),
	}
	if v.Week != nil {
		week := weekToDTO(*v.Week)
		out.Week = &week
	}
	if v.Window != nil {
		window := windowToDTO(*v.Window)
		out.Window = &window
	}
	if v.TopEntity != nil {
		top := rowToDTO(0, *v.TopEntity)
		out.TopEntity = &top
	}
	for i, row := range v.Rows {
		out.Rows = append(out.Rows, rowToDTO(i+1, row))
	}
	if !v.Scope.IsZero() {
		scope := pairToDTO(v.Scope)
		out.Scope = &scope
	}
	for _, pair := range v.Available {
		out.Available = append(out.Available, pairToDTO(pair))
	}
	return out
}

func rowToDTO(position int, v ranking.Row) rankingRowDTO {
	out := rankingRowDTO{
		Position:    position,
		Identity:    v.Identity,
		DisplayName: v.DisplayName,
		TotalScore:  v.TotalScore,
		Competition: v.Context.Competition,
		Group:       v.Context.Group,
		Club:        v.Context.Club,
	}
	if v.WeekScore != nil {
		score := *v.WeekScore
		out.WeekScore = &score
	}
	return out
}

func pairToDTO(v selection.Pair) scopeDTO {
	return scopeDTO{Competition: v.Competition, Group: v.Group}
}

func sessionToDTO(v usecase.Session) sessionDTO {
	return sessionDTO{
		ID:          v.ID,
		Week:        v.Week,
		Strict:      v.Strict,
		Mode:        string(v.Mode),
		Competition: v.Scope.Competition,
		Group:       v.Scope.Group,
		LatchState:  string(v.LatchState),
		CreatedAt:   formatTime(v.CreatedAt),
		UpdatedAt:   formatTime(v.UpdatedAt),
	}
}

func formatTime(v time.Time) string {
	if v.IsZero() {
		return ""
	}
	return v.Format(time.RFC3339)
}

func formatOptionalTime(v *time.Time) *string {
	if v == nil {
		return nil
	}
	out := v.Format(time.RFC3339)
	return &out
}

func matchedGames(meta ranking.WindowMeta) *int {
	if !meta.GamesReported {
		return nil
	}
	games := meta.MatchedGames
	return &games
}
