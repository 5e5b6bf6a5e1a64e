package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	. "github.com/smartystreets/goconvey/convey"
)

func scrape(m *Manager) string {
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)
	return string(body)
}

func TestManagerRecording(t *testing.T) {
	Convey("Given a manager with its own registry", t, func() {
		m := NewManager(WithRegistry(prometheus.NewRegistry()), WithNamespace("test"))

		Convey("When fetches and fallbacks are recorded", func() {
			m.ObserveFetch("primary", "players", OutcomeError, 30*time.Millisecond)
			m.ObserveFetch("fallback", "players", OutcomeSuccess, 10*time.Millisecond)
			m.ObserveFallback("players", true)
			m.ObserveCacheLookup(true)
			m.ObserveCacheLookup(false)
			m.IncStaleDiscard()
			m.SetActiveSessions(3)
			m.ObserveHTTP("GET /v1/rankings/{variant}", http.MethodGet, http.StatusOK, time.Millisecond)

			Convey("Then the scrape exposes them", func() {
				body := scrape(m)
				So(body, ShouldContainSubstring, `test_ranking_fetches_total{outcome="error",source="primary",variant="players"} 1`)
				So(body, ShouldContainSubstring, `test_ranking_fetches_total{outcome="success",source="fallback",variant="players"} 1`)
				So(body, ShouldContainSubstring, `test_ranking_fallback_attempts_total{outcome="success",variant="players"} 1`)
				So(body, ShouldContainSubstring, `test_ranking_cache_lookups_total{result="hit"} 1`)
				So(body, ShouldContainSubstring, `test_ranking_stale_results_discarded_total 1`)
				So(body, ShouldContainSubstring, `test_ranking_active_sessions 3`)
				So(body, ShouldContainSubstring, `test_http_requests_total{method="GET",route="GET /v1/rankings/{variant}",status_code="200"} 1`)
			})
		})
	})
}

func TestManagerDisabled(t *testing.T) {
	Convey("Given a disabled manager", t, func() {
		m := NewManager(WithRegistry(prometheus.NewRegistry()), WithMetricsEnabled(false))

		Convey("Then recording is a no-op", func() {
			m.ObserveFetch("primary", "teams", OutcomeSuccess, time.Millisecond)
			So(scrape(m), ShouldNotContainSubstring, "fetches_total{")
		})
	})

	Convey("Given a nil manager", t, func() {
		var m *Manager

		Convey("Then every method is safe", func() {
			So(func() {
				m.ObserveFetch("primary", "teams", OutcomeSuccess, time.Millisecond)
				m.ObserveFallback("teams", false)
				m.IncStaleDiscard()
				m.ObserveCacheLookup(true)
				m.ObserveWarmupJob(true)
				m.SetActiveSessions(1)
				m.ObserveHTTP("/", http.MethodGet, 200, time.Millisecond)
			}, ShouldNotPanic)
			So(m.Handler(), ShouldNotBeNil)
		})
	})
}
