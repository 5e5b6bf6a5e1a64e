package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/riskibarqy/global-standings/internal/config"
	"github.com/riskibarqy/global-standings/internal/platform/logging"
)

func testConfig(primaryURL string) config.Config {
	return config.Config{
		AppEnv:                     config.EnvDev,
		ServiceName:                "global-standings-api",
		HTTPAddr:                   ":0",
		CacheEnabled:               true,
		CacheTTL:                   time.Minute,
		CORSAllowedOrigins:         []string{"*"},
		MetricsEnabled:             true,
		SeasonID:                   "2025",
		SeasonStart:                time.Now().UTC().AddDate(0, 0, -14),
		RankingPrimaryURL:          primaryURL,
		RankingTimeout:             2 * time.Second,
		RankingRetryBackoff:        10 * time.Millisecond,
		RankingCircuitEnabled:      true,
		RankingCircuitFailureCount: 3,
		RankingCircuitOpenTimeout:  time.Second,
		RankingTopN:                3,
		WarmupWorkers:              2,
		SessionTTL:                 time.Minute,
	}
}

func TestNew_RequiresAddrAndSeason(t *testing.T) {
	cfg := testConfig("http://ranking.local")
	cfg.HTTPAddr = ""
	if _, err := New(cfg, logging.NewNop()); err == nil {
		t.Fatalf("expected error for empty http addr")
	}

	cfg = testConfig("http://ranking.local")
	cfg.SeasonStart = time.Time{}
	if _, err := New(cfg, logging.NewNop()); err == nil {
		t.Fatalf("expected error for empty season start")
	}
}

func TestNew_ServesRankingsFromUpstream(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"window_meta":{"status":"no-window"},"ranking":[{"id":"1","name":"Ana","total_score":12}]}`))
	}))
	defer upstream.Close()

	application, err := New(testConfig(upstream.URL), logging.NewNop())
	if err != nil {
		t.Fatalf("build app: %v", err)
	}

	application.RunWarmup(context.Background())

	rec := httptest.NewRecorder()
	application.Server.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/rankings/teams", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	application.Server.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected healthz 200, got %d", rec.Code)
	}
}
