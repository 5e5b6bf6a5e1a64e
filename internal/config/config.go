package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/riskibarqy/global-standings/internal/platform/logging"
)

// Config stores runtime configuration for the service.
type Config struct {
	AppEnv                       string
	ServiceName                  string
	ServiceVersion               string
	HTTPAddr                     string
	ConfigFile                   string
	CacheEnabled                 bool
	CacheTTL                     time.Duration
	CORSAllowedOrigins           []string
	ReadTimeout                  time.Duration
	WriteTimeout                 time.Duration
	PprofEnabled                 bool
	PprofAddr                    string
	MetricsEnabled               bool
	UptraceEnabled               bool
	UptraceDSN                   string
	UptraceLogsEnabled           bool
	PyroscopeEnabled             bool
	PyroscopeServerAddress       string
	PyroscopeAppName             string
	PyroscopeAuthToken           string
	PyroscopeBasicAuthUser       string
	PyroscopeBasicAuthPassword   string
	PyroscopeUploadRate          time.Duration
	SeasonID                     string
	SeasonStart                  time.Time
	SeasonLocation               *time.Location
	RankingPrimaryURL            string
	RankingFallbackURL           string
	RankingToken                 string
	RankingTimeout               time.Duration
	RankingMaxRetries            int
	RankingRetryBackoff          time.Duration
	RankingCircuitEnabled        bool
	RankingCircuitFailureCount   int
	RankingCircuitOpenTimeout    time.Duration
	RankingCircuitHalfOpenMaxReq int
	RankingTopN                  int
	WarmupOnStart                bool
	WarmupWorkers                int
	DefaultCompetition           string
	DefaultGroup                 string
	SessionTTL                   time.Duration
	InternalJobToken             string
	LogLevel                     logging.Level
}

// Load reads configuration from the environment. When APP_CONFIG_FILE points at a YAML
// file its keys are used for anything the environment leaves unset.
func Load() (Config, error) {
	configFile := strings.TrimSpace(os.Getenv("APP_CONFIG_FILE"))
	env, err := newEnvReader(configFile)
	if err != nil {
		return Config{}, err
	}

	appEnv, err := parseAppEnv(env.getEnv("APP_ENV", EnvDev))
	if err != nil {
		return Config{}, err
	}

	uptraceEnabled, err := strconv.ParseBool(env.getEnv("UPTRACE_ENABLED", "false"))
	if err != nil {
		return Config{}, fmt.Errorf("parse UPTRACE_ENABLED: %w", err)
	}
	uptraceDSN := strings.TrimSpace(env.getEnv("UPTRACE_DSN", ""))
	if uptraceDSN == "" {
		uptraceDSN = parseUptraceDSNFromOTLPHeaders(env.getEnv("OTEL_EXPORTER_OTLP_HEADERS", ""))
	}
	if uptraceEnabled && uptraceDSN == "" {
		return Config{}, fmt.Errorf("UPTRACE_DSN is required when UPTRACE_ENABLED=true")
	}
	uptraceLogsEnabled, err := strconv.ParseBool(env.getEnv("UPTRACE_LOGS_ENABLED", "true"))
	if err != nil {
		return Config{}, fmt.Errorf("parse UPTRACE_LOGS_ENABLED: %w", err)
	}

	pprofEnabled, err := strconv.ParseBool(env.getEnv("PPROF_ENABLED", "false"))
	if err != nil {
		return Config{}, fmt.Errorf("parse PPROF_ENABLED: %w", err)
	}
	pprofAddr := strings.TrimSpace(env.getEnv("PPROF_ADDR", ":6060"))
	if pprofEnabled && pprofAddr == "" {
		return Config{}, fmt.Errorf("PPROF_ADDR is required when PPROF_ENABLED=true")
	}

	metricsEnabled, err := strconv.ParseBool(env.getEnv("METRICS_ENABLED", "true"))
	if err != nil {
		return Config{}, fmt.Errorf("parse METRICS_ENABLED: %w", err)
	}

	pyroscopeEnabled, err := strconv.ParseBool(env.getEnv("PYROSCOPE_ENABLED", "false"))
	if err != nil {
		return Config{}, fmt.Errorf("parse PYROSCOPE_ENABLED: %w", err)
	}
	pyroscopeServerAddress := strings.TrimSpace(env.getEnv("PYROSCOPE_SERVER_ADDRESS", ""))
	if pyroscopeEnabled && pyroscopeServerAddress == "" {
		return Config{}, fmt.Errorf("PYROSCOPE_SERVER_ADDRESS is required when PYROSCOPE_ENABLED=true")
	}
	pyroscopeUploadRate, err := time.ParseDuration(env.getEnv("PYROSCOPE_UPLOAD_RATE", "15s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse PYROSCOPE_UPLOAD_RATE: %w", err)
	}
	if pyroscopeUploadRate <= 0 {
		return Config{}, fmt.Errorf("PYROSCOPE_UPLOAD_RATE must be > 0")
	}

	seasonLocation, err := time.LoadLocation(strings.TrimSpace(env.getEnv("SEASON_TIMEZONE", "UTC")))
	if err != nil {
		return Config{}, fmt.Errorf("parse SEASON_TIMEZONE: %w", err)
	}
	seasonStart, err := time.ParseInLocation(time.DateOnly, strings.TrimSpace(env.getEnv("SEASON_START", "")), seasonLocation)
	if err != nil {
		return Config{}, fmt.Errorf("parse SEASON_START (expected YYYY-MM-DD): %w", err)
	}
	seasonID := strings.TrimSpace(env.getEnv("SEASON_ID", strconv.Itoa(seasonStart.Year())))

	rankingPrimaryURL := strings.TrimSpace(env.getEnv("RANKING_PRIMARY_URL", ""))
	if rankingPrimaryURL == "" {
		return Config{}, fmt.Errorf("RANKING_PRIMARY_URL is required")
	}
	rankingFallbackURL := strings.TrimSpace(env.getEnv("RANKING_FALLBACK_URL", ""))
	rankingTimeout, err := time.ParseDuration(env.getEnv("RANKING_TIMEOUT", "10s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse RANKING_TIMEOUT: %w", err)
	}
	if rankingTimeout <= 0 {
		return Config{}, fmt.Errorf("RANKING_TIMEOUT must be > 0")
	}
	rankingMaxRetries, err := env.getEnvAsInt("RANKING_MAX_RETRIES", 1)
	if err != nil {
		return Config{}, fmt.Errorf("parse RANKING_MAX_RETRIES: %w", err)
	}
	if rankingMaxRetries < 0 {
		return Config{}, fmt.Errorf("RANKING_MAX_RETRIES must be >= 0")
	}
	rankingRetryBackoff, err := time.ParseDuration(env.getEnv("RANKING_RETRY_BACKOFF", "1s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse RANKING_RETRY_BACKOFF: %w", err)
	}
	if rankingRetryBackoff <= 0 {
		return Config{}, fmt.Errorf("RANKING_RETRY_BACKOFF must be > 0")
	}
	rankingCircuitEnabled, err := strconv.ParseBool(env.getEnv("RANKING_CIRCUIT_ENABLED", "true"))
	if err != nil {
		return Config{}, fmt.Errorf("parse RANKING_CIRCUIT_ENABLED: %w", err)
	}
	rankingCircuitFailureCount, err := env.getEnvAsInt("RANKING_CIRCUIT_FAILURE_COUNT", 5)
	if err != nil {
		return Config{}, fmt.Errorf("parse RANKING_CIRCUIT_FAILURE_COUNT: %w", err)
	}
	if rankingCircuitFailureCount < 1 {
		return Config{}, fmt.Errorf("RANKING_CIRCUIT_FAILURE_COUNT must be >= 1")
	}
	rankingCircuitOpenTimeout, err := time.ParseDuration(env.getEnv("RANKING_CIRCUIT_OPEN_TIMEOUT", "15s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse RANKING_CIRCUIT_OPEN_TIMEOUT: %w", err)
	}
	if rankingCircuitOpenTimeout <= 0 {
		return Config{}, fmt.Errorf("RANKING_CIRCUIT_OPEN_TIMEOUT must be > 0")
	}
	rankingCircuitHalfOpenMaxReq, err := env.getEnvAsInt("RANKING_CIRCUIT_HALF_OPEN_MAX_REQ", 2)
	if err != nil {
		return Config{}, fmt.Errorf("parse RANKING_CIRCUIT_HALF_OPEN_MAX_REQ: %w", err)
	}
	if rankingCircuitHalfOpenMaxReq < 1 {
		return Config{}, fmt.Errorf("RANKING_CIRCUIT_HALF_OPEN_MAX_REQ must be >= 1")
	}
	rankingTopN, err := env.getEnvAsInt("RANKING_TOP_N", 3)
	if err != nil {
		return Config{}, fmt.Errorf("parse RANKING_TOP_N: %w", err)
	}
	if rankingTopN < 1 {
		return Config{}, fmt.Errorf("RANKING_TOP_N must be >= 1")
	}

	warmupOnStart, err := strconv.ParseBool(env.getEnv("RANKING_WARMUP_ON_START", "true"))
	if err != nil {
		return Config{}, fmt.Errorf("parse RANKING_WARMUP_ON_START: %w", err)
	}
	warmupWorkers, err := env.getEnvAsInt("RANKING_WARMUP_WORKERS", 4)
	if err != nil {
		return Config{}, fmt.Errorf("parse RANKING_WARMUP_WORKERS: %w", err)
	}
	if warmupWorkers < 1 {
		return Config{}, fmt.Errorf("RANKING_WARMUP_WORKERS must be >= 1")
	}

	sessionTTL, err := time.ParseDuration(env.getEnv("SESSION_TTL", "30m"))
	if err != nil {
		return Config{}, fmt.Errorf("parse SESSION_TTL: %w", err)
	}
	if sessionTTL <= 0 {
		return Config{}, fmt.Errorf("SESSION_TTL must be > 0")
	}

	cacheEnabled, err := strconv.ParseBool(env.getEnv("CACHE_ENABLED", "true"))
	if err != nil {
		return Config{}, fmt.Errorf("parse CACHE_ENABLED: %w", err)
	}
	cacheTTL, err := time.ParseDuration(env.getEnv("CACHE_TTL", "60s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse CACHE_TTL: %w", err)
	}
	if cacheTTL <= 0 {
		return Config{}, fmt.Errorf("CACHE_TTL must be > 0")
	}

	readTimeout, err := time.ParseDuration(env.getEnv("APP_READ_TIMEOUT", "10s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse APP_READ_TIMEOUT: %w", err)
	}
	writeTimeout, err := time.ParseDuration(env.getEnv("APP_WRITE_TIMEOUT", "15s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse APP_WRITE_TIMEOUT: %w", err)
	}

	cfg := Config{
		AppEnv:                       appEnv,
		ServiceName:                  env.getEnv("APP_SERVICE_NAME", "global-standings-api"),
		ServiceVersion:               env.getEnv("APP_SERVICE_VERSION", "dev"),
		HTTPAddr:                     env.getEnv("APP_HTTP_ADDR", ":8080"),
		ConfigFile:                   configFile,
		CacheEnabled:                 cacheEnabled,
		CacheTTL:                     cacheTTL,
		CORSAllowedOrigins:           splitCSV(env.getEnv("CORS_ALLOWED_ORIGINS", "*")),
		ReadTimeout:                  readTimeout,
		WriteTimeout:                 writeTimeout,
		PprofEnabled:                 pprofEnabled,
		PprofAddr:                    pprofAddr,
		MetricsEnabled:               metricsEnabled,
		UptraceEnabled:               uptraceEnabled,
		UptraceDSN:                   uptraceDSN,
		UptraceLogsEnabled:           uptraceLogsEnabled,
		PyroscopeEnabled:             pyroscopeEnabled,
		PyroscopeServerAddress:       pyroscopeServerAddress,
		PyroscopeAuthToken:           strings.TrimSpace(env.getEnv("PYROSCOPE_AUTH_TOKEN", "")),
		PyroscopeBasicAuthUser:       strings.TrimSpace(env.getEnv("PYROSCOPE_BASIC_AUTH_USER", "")),
		PyroscopeBasicAuthPassword:   strings.TrimSpace(env.getEnv("PYROSCOPE_BASIC_AUTH_PASSWORD", "")),
		PyroscopeUploadRate:          pyroscopeUploadRate,
		SeasonID:                     seasonID,
		SeasonStart:                  seasonStart,
		SeasonLocation:               seasonLocation,
		RankingPrimaryURL:            rankingPrimaryURL,
		RankingFallbackURL:           rankingFallbackURL,
		RankingToken:                 strings.TrimSpace(env.getEnv("RANKING_TOKEN", "")),
		RankingTimeout:               rankingTimeout,
		RankingMaxRetries:            rankingMaxRetries,
		RankingRetryBackoff:          rankingRetryBackoff,
		RankingCircuitEnabled:        rankingCircuitEnabled,
		RankingCircuitFailureCount:   rankingCircuitFailureCount,
		RankingCircuitOpenTimeout:    rankingCircuitOpenTimeout,
		RankingCircuitHalfOpenMaxReq: rankingCircuitHalfOpenMaxReq,
		RankingTopN:                  rankingTopN,
		WarmupOnStart:                warmupOnStart,
		WarmupWorkers:                warmupWorkers,
		DefaultCompetition:           strings.TrimSpace(env.getEnv("DEFAULT_COMPETITION", "")),
		DefaultGroup:                 strings.TrimSpace(env.getEnv("DEFAULT_GROUP", "")),
		SessionTTL:                   sessionTTL,
		InternalJobToken:             strings.TrimSpace(env.getEnv("INTERNAL_JOB_TOKEN", "")),
		LogLevel:                     logging.ParseLevel(env.getEnv("APP_LOG_LEVEL", "info")),
	}
	cfg.PyroscopeAppName = strings.TrimSpace(env.getEnv("PYROSCOPE_APP_NAME", cfg.ServiceName))
	if cfg.PyroscopeEnabled && cfg.PyroscopeAppName == "" {
		return Config{}, fmt.Errorf("PYROSCOPE_APP_NAME cannot be empty when PYROSCOPE_ENABLED=true")
	}
	if len(cfg.CORSAllowedOrigins) == 0 {
		return Config{}, fmt.Errorf("CORS_ALLOWED_ORIGINS cannot be empty")
	}

	return cfg, nil
}

// envReader resolves a key from the process environment first, then from the optional
// config file. File keys may be written as the variable name or its lower-case form.
type envReader struct {
	file *koanf.Koanf
}

func newEnvReader(path string) (envReader, error) {
	if path == "" {
		return envReader{}, nil
	}

	k := koanf.New(".")
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return envReader{}, fmt.Errorf("load APP_CONFIG_FILE %q: %w", path, err)
	}
	return envReader{file: k}, nil
}

func (r envReader) lookup(key string) string {
	if value := os.Getenv(key); strings.TrimSpace(value) != "" {
		return value
	}
	if r.file == nil {
		return ""
	}
	for _, candidate := range []string{key, strings.ToLower(key)} {
		if r.file.Exists(candidate) {
			return r.file.String(candidate)
		}
	}
	return ""
}

func (r envReader) getEnv(key, fallback string) string {
	value := r.lookup(key)
	if strings.TrimSpace(value) == "" {
		return fallback
	}

	return value
}

func (r envReader) getEnvAsInt(key string, fallback int) (int, error) {
	value := strings.TrimSpace(r.lookup(key))
	if value == "" {
		return fallback, nil
	}

	out, err := strconv.Atoi(value)
	if err != nil {
		return 0, err
	}

	return out, nil
}

func splitCSV(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		item := strings.TrimSpace(part)
		if item == "" {
			continue
		}
		out = append(out, item)
	}

	return out
}

func parseUptraceDSNFromOTLPHeaders(raw string) string {
	if strings.TrimSpace(raw) == "" {
		return ""
	}

	items := strings.Split(raw, ",")
	for _, item := range items {
		parts := strings.SplitN(strings.TrimSpace(item), "=", 2)
		if len(parts) != 2 {
			continue
		}
		if strings.EqualFold(strings.TrimSpace(parts[0]), "uptrace-dsn") {
			value := strings.TrimSpace(parts[1])
			return strings.Trim(value, "\"'")
		}
	}

	return ""
}

const (
	EnvDev   = "dev"
	EnvStage = "stage"
	EnvProd  = "prod"
)

func parseAppEnv(v string) (string, error) {
	value := strings.ToLower(strings.TrimSpace(v))
	switch value {
	case EnvDev, EnvStage, EnvProd:
		return value, nil
	default:
		return "", fmt.Errorf("invalid APP_ENV %q: valid values are %s, %s, %s", v, EnvDev, EnvStage, EnvProd)
	}
}
