package httpapi

import (
	"net/http"
	"strings"

	"github.com/riskibarqy/global-standings/internal/domain/ranking"
	"github.com/riskibarqy/global-standings/internal/domain/selection"
	"github.com/riskibarqy/global-standings/internal/usecase"
)

type rankingQueryRequest struct {
	Variant     string `validate:"required,oneof=players teams scorers goalkeepers"`
	Week        string `validate:"omitempty,datetime=2006-01-02"`
	Strict      bool
	Competition string `validate:"max=120"`
	Group       string `validate:"max=120"`
}

func (h *Handler) ListWeeks(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ListWeeks")
	defer span.End()

	writeSuccess(ctx, w, http.StatusOK, weekListToDTO(h.rankingService.Weeks(ctx)))
}

func (h *Handler) GetRanking(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetRanking")
	defer span.End()

	strict, err := parseBoolQuery(r, "strict")
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	query := r.URL.Query()
	req := rankingQueryRequest{
		Variant:     strings.ToLower(strings.TrimSpace(r.PathValue("variant"))),
		Week:        strings.TrimSpace(query.Get("week")),
		Strict:      strict,
		Competition: strings.TrimSpace(query.Get("competition")),
		Group:       strings.TrimSpace(query.Get("group")),
	}
	if err := h.validateRequest(ctx, req); err != nil {
		writeError(ctx, w, err)
		return
	}

	view, err := h.rankingService.GetRanking(ctx, usecase.RankingInput{
		Variant: ranking.Variant(req.Variant),
		Week:    req.Week,
		Strict:  req.Strict,
		Scope:   selection.Pair{Competition: req.Competition, Group: req.Group},
	})
	if err != nil {
		h.logger.WarnContext(ctx, "get ranking failed", "variant", req.Variant, "week", req.Week, "strict", req.Strict, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, rankingViewToDTO(view))
}

func (h *Handler) GetSessionRanking(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetSessionRanking")
	defer span.End()

	sessionID := strings.TrimSpace(r.PathValue("sessionID"))
	req := rankingQueryRequest{Variant: strings.ToLower(strings.TrimSpace(r.PathValue("variant")))}
	if err := h.validateRequest(ctx, req); err != nil {
		writeError(ctx, w, err)
		return
	}

	view, session, err := h.rankingService.GetSessionRanking(ctx, sessionID, ranking.Variant(req.Variant))
	if err != nil {
		h.logger.WarnContext(ctx, "get session ranking failed", "session_id", sessionID, "variant", req.Variant, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, sessionRankingDTO{
		Session: sessionToDTO(session),
		Ranking: rankingViewToDTO(view),
	})
}
