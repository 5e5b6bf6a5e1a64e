package httpapi

import (
	"net/http"

	"github.com/riskibarqy/global-standings/internal/platform/metrics"
)

// handle registers h and records the matched pattern for request logging and metrics.
func handle(mux *http.ServeMux, pattern string, h http.Handler) {
	mux.Handle(pattern, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		setRoute(r.Context(), pattern)
		h.ServeHTTP(w, r)
	}))
}

func registerSystemRoutes(mux *http.ServeMux, handler *Handler, metricsManager *metrics.Manager) {
	handle(mux, "GET /healthz", http.HandlerFunc(handler.Healthz))
	if metricsManager != nil {
		handle(mux, "GET /metrics", metricsManager.Handler())
	}
}

func registerRankingRoutes(mux *http.ServeMux, handler *Handler) {
	handle(mux, "GET /v1/seasons/current/weeks", http.HandlerFunc(handler.ListWeeks))
	handle(mux, "GET /v1/rankings/{variant}", http.HandlerFunc(handler.GetRanking))
}

func registerSessionRoutes(mux *http.ServeMux, handler *Handler) {
	handle(mux, "POST /v1/sessions", http.HandlerFunc(handler.CreateSession))
	handle(mux, "GET /v1/sessions/{sessionID}", http.HandlerFunc(handler.GetSession))
	handle(mux, "DELETE /v1/sessions/{sessionID}", http.HandlerFunc(handler.DeleteSession))
	handle(mux, "PUT /v1/sessions/{sessionID}/week", http.HandlerFunc(handler.SelectSessionWeek))
	handle(mux, "PUT /v1/sessions/{sessionID}/scope", http.HandlerFunc(handler.SelectSessionScope))
	handle(mux, "GET /v1/sessions/{sessionID}/rankings/{variant}", http.HandlerFunc(handler.GetSessionRanking))
}

func registerInternalJobRoutes(mux *http.ServeMux, handler *Handler, internalJobToken string) {
	handle(mux, "POST /v1/internal/rankings/warmup", RequireInternalJobToken(internalJobToken, http.HandlerFunc(handler.RunRankingWarmup)))
	handle(mux, "POST /v1/internal/rankings/cache/invalidate", RequireInternalJobToken(internalJobToken, http.HandlerFunc(handler.InvalidateRankingCache)))
}
