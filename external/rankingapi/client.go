package rankingapi

import (
	"bytes"
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	sonic "github.com/bytedance/sonic"
	crerr "github.com/cockroachdb/errors"
	"github.com/riskibarqy/global-standings/internal/domain/ranking"
	"github.com/riskibarqy/global-standings/internal/platform/logging"
	"github.com/riskibarqy/global-standings/internal/platform/metrics"
	"github.com/riskibarqy/global-standings/internal/platform/resilience"
	"github.com/riskibarqy/global-standings/internal/usecase"
	"github.com/valyala/bytebufferpool"
)

const (
	defaultTimeout      = 10 * time.Second
	defaultRetryBackoff = time.Second
	maxResponseBytes    = 6 << 20
)

var bearerRegex = regexp.MustCompile(`(?i)bearer\s+[^\s"']+`)
var errRankingTransient = crerr.New("ranking service transient failure")

type ClientConfig struct {
	HTTPClient     *http.Client
	PrimaryURL     string
	FallbackURL    string
	Token          string
	Timeout        time.Duration
	MaxRetries     int
	RetryBackoff   time.Duration
	Logger         *logging.Logger
	Metrics        *metrics.Manager
	CircuitBreaker resilience.CircuitBreakerConfig
}

type source struct {
	baseURL string
	breaker *resilience.CircuitBreaker
}

// Client talks to the primary ranking service and its fallback. Each source has its own
// circuit breaker; identical in-flight requests share one round trip.
type Client struct {
	httpClient   *http.Client
	sources      map[ranking.SourceKind]source
	token        string
	maxRetries   int
	retryBackoff time.Duration
	logger       *logging.Logger
	metrics      *metrics.Manager
	flight       resilience.Flight[[]byte]
}

func NewClient(cfg ClientConfig) *Client {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	if httpClient.Timeout <= 0 {
		httpClient.Timeout = defaultTimeout
	}

	backoff := cfg.RetryBackoff
	if backoff <= 0 {
		backoff = defaultRetryBackoff
	}

	sources := make(map[ranking.SourceKind]source, 2)
	for kind, rawURL := range map[ranking.SourceKind]string{
		ranking.SourcePrimary:  cfg.PrimaryURL,
		ranking.SourceFallback: cfg.FallbackURL,
	} {
		baseURL := strings.TrimRight(strings.TrimSpace(rawURL), "/")
		if baseURL == "" {
			continue
		}
		sources[kind] = source{
			baseURL: baseURL,
			breaker: resilience.NewCircuitBreaker(cfg.CircuitBreaker),
		}
	}

	return &Client{
		httpClient:   httpClient,
		sources:      sources,
		token:        strings.TrimSpace(cfg.Token),
		maxRetries:   max(cfg.MaxRetries, 0),
		retryBackoff: backoff,
		logger:       logger.Named("rankingapi"),
		metrics:      cfg.Metrics,
	}
}

func (c *Client) FetchRanking(ctx context.Context, kind ranking.SourceKind, variant ranking.Variant, query ranking.WindowQuery) (ranking.Response, error) {
	src, ok := c.sources[kind]
	if !ok {
		return ranking.Response{}, fmt.Errorf("%w: ranking source %q is not configured", usecase.ErrDependencyUnavailable, kind)
	}

	started := time.Now()
	raw, err := c.doJSON(ctx, src, kind, variant, query)
	if err != nil {
		outcome := metrics.OutcomeError
		if stderrors.Is(err, resilience.ErrCircuitOpen) {
			outcome = metrics.OutcomeCircuitOpen
		}
		c.metrics.ObserveFetch(string(kind), string(variant), outcome, time.Since(started))
		return ranking.Response{}, err
	}

	resp, err := decodeResponse(raw)
	if err != nil {
		c.metrics.ObserveFetch(string(kind), string(variant), metrics.OutcomeError, time.Since(started))
		return ranking.Response{}, fmt.Errorf("decode %s ranking payload: %w", kind, err)
	}

	c.metrics.ObserveFetch(string(kind), string(variant), metrics.OutcomeSuccess, time.Since(started))
	return resp, nil
}

func (c *Client) doJSON(ctx context.Context, src source, kind ranking.SourceKind, variant ranking.Variant, query ranking.WindowQuery) ([]byte, error) {
	body, err := encodeRequest(query)
	if err != nil {
		return nil, fmt.Errorf("encode ranking request: %w", err)
	}

	if err := src.breaker.Allow(); err != nil {
		c.logger.WarnContext(ctx, "ranking circuit breaker rejected request", "source", kind, "state", src.breaker.State())
		return nil, fmt.Errorf("%w: ranking source %s is temporarily unavailable: %w", usecase.ErrDependencyUnavailable, kind, err)
	}

	fullURL := src.baseURL + "/rankings/" + variant.Endpoint()
	key := string(kind) + " " + fullURL + " " + string(body)
	raw, err, _ := c.flight.Do(ctx, key, func(ctx context.Context) ([]byte, error) {
		raw, reqErr := c.executeRequest(ctx, fullURL, body)
		if reqErr != nil && isRankingCircuitFailure(reqErr) {
			src.breaker.RecordFailure()
		} else {
			src.breaker.RecordSuccess()
		}
		return raw, reqErr
	})
	if err != nil {
		return nil, err
	}

	return raw, nil
}

func (c *Client) executeRequest(ctx context.Context, fullURL string, body []byte) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, fullURL, bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("build request: %w", err)
		}
		req.Header.Set("accept", "application/json")
		req.Header.Set("content-type", "application/json")
		if c.token != "" {
			req.Header.Set("authorization", "Bearer "+c.token)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = fmt.Errorf("%w: send request: %s", errRankingTransient, sanitizeSensitiveText(err.Error(), c.token))
		} else {
			raw, readErr := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
			_ = resp.Body.Close()
			switch {
			case readErr != nil:
				lastErr = fmt.Errorf("%w: read response body: %v", errRankingTransient, readErr)
			case resp.StatusCode >= 200 && resp.StatusCode < 300:
				return raw, nil
			case isRetryableStatus(resp.StatusCode):
				lastErr = fmt.Errorf("%w: ranking status=%d body=%s", errRankingTransient, resp.StatusCode, abbreviateBody(raw, c.token))
			default:
				return nil, fmt.Errorf("ranking status=%d body=%s", resp.StatusCode, abbreviateBody(raw, c.token))
			}
		}

		if attempt == c.maxRetries {
			break
		}
		timer := time.NewTimer(time.Duration(attempt+1) * c.retryBackoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	if lastErr == nil {
		lastErr = fmt.Errorf("ranking request failed")
	}
	c.logger.WarnContext(ctx, "ranking request failed", "url", fullURL, "error", lastErr)
	return nil, lastErr
}

type requestBody struct {
	SeasonID        string  `json:"season_id"`
	DateFrom        *string `json:"date_from"`
	DateTo          *string `json:"date_to"`
	TopN            *int    `json:"top_n,omitempty"`
	Offset          *int    `json:"offset,omitempty"`
	Strict          bool    `json:"strict"`
	OnlyGoalkeepers bool    `json:"only_goalkeepers,omitempty"`
}

func encodeRequest(query ranking.WindowQuery) ([]byte, error) {
	payload := requestBody{
		SeasonID:        query.SeasonID,
		Strict:          query.Strict,
		OnlyGoalkeepers: query.OnlyGoalkeepers,
	}
	if query.HasWindow() {
		from := query.DateFrom.Format(time.DateOnly)
		to := query.DateTo.Format(time.DateOnly)
		payload.DateFrom = &from
		payload.DateTo = &to
	}
	if query.TopN > 0 {
		payload.TopN = &query.TopN
	}
	if query.Offset > 0 {
		payload.Offset = &query.Offset
	}

	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)

	if err := sonic.ConfigDefault.NewEncoder(buf).Encode(payload); err != nil {
		return nil, err
	}
	return bytes.Clone(bytes.TrimSpace(buf.Bytes())), nil
}

func sanitizeSensitiveText(value, token string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return value
	}
	if token != "" {
		value = strings.ReplaceAll(value, token, "REDACTED")
	}
	return bearerRegex.ReplaceAllString(value, "Bearer REDACTED")
}

func isRankingCircuitFailure(err error) bool {
	if err == nil {
		return false
	}
	return crerr.Is(err, errRankingTransient)
}

func isRetryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= http.StatusInternalServerError
}

func abbreviateBody(body []byte, token string) string {
	text := sanitizeSensitiveText(string(body), token)
	if len(text) <= 240 {
		return text
	}
	return text[:240] + "..."
}
