package httpapi

import (
	"fmt"
	"net/http"

	"github.com/riskibarqy/global-standings/internal/usecase"
)

type warmupRequest struct {
	MaxWorkers int  `json:"max_workers" validate:"gte=0,lte=64"`
	Refresh    bool `json:"refresh"`
}

func (h *Handler) RunRankingWarmup(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.RunRankingWarmup")
	defer span.End()

	if h.warmupService == nil {
		writeError(ctx, w, fmt.Errorf("%w: ranking warmup is not configured", usecase.ErrDependencyUnavailable))
		return
	}

	var req warmupRequest
	if err := decodeJSONBody(r, &req); err != nil {
		writeError(ctx, w, err)
		return
	}
	if workers, err := parseIntQuery(r, "max_workers"); err != nil {
		writeError(ctx, w, err)
		return
	} else if workers > 0 {
		req.MaxWorkers = workers
	}
	if err := h.validateRequest(ctx, req); err != nil {
		writeError(ctx, w, err)
		return
	}

	result, err := h.warmupService.Warmup(ctx, usecase.WarmupInput{
		MaxWorkers: req.MaxWorkers,
		Refresh:    req.Refresh,
	})
	if err != nil {
		h.logger.WarnContext(ctx, "ranking warmup failed", "max_workers", req.MaxWorkers, "refresh", req.Refresh, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, result)
}

func (h *Handler) InvalidateRankingCache(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.InvalidateRankingCache")
	defer span.End()

	removed := h.rankingService.InvalidateCache(ctx)
	h.logger.InfoContext(ctx, "ranking cache invalidated", "removed", removed)

	writeSuccess(ctx, w, http.StatusOK, map[string]int{"removed": removed})
}
