package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/riskibarqy/ipl-snapshot/internal/domain/tournament"
	"github.com/riskibarqy/ipl-snapshot/internal/platform/logging"
)

// Source names accepted in SOURCES_PRIORITY.
const (
	SourceIPLSite   = "iplsite"
	SourceCricAPI   = "cricapi"
	SourceLiveScore = "livescore"
	SourceStatic    = tournament.StaticSourceName
)

// SourceConfig is the per-upstream part of the configuration.
type SourceConfig struct {
	Enabled bool
	BaseURL string
	Timeout time.Duration
}

// Config stores runtime configuration for the service.
type Config struct {
	AppEnv                     string
	ServiceName                string
	ServiceVersion             string
	HTTPAddr                   string
	ReadTimeout                time.Duration
	WriteTimeout               time.Duration
	ShutdownTimeout            time.Duration
	LogLevel                   logging.Level
	CORSAllowedOrigins         []string
	InternalToken              string
	CacheTTL                   time.Duration
	CacheRedisURL              string
	CacheRedisKey              string
	SourcesPriority            []string
	SourceTimeout              time.Duration
	SourceWorkers              int
	BuildTimeout               time.Duration
	IPLSite                    SourceConfig
	IPLSiteSeason              string
	CricAPI                    SourceConfig
	CricAPIKey                 string
	CricAPISeries              string
	LiveScore                  SourceConfig
	SourceCircuitEnabled       bool
	SourceCircuitFailureCount  int
	SourceCircuitOpenTimeout   time.Duration
	SourceCircuitHalfOpenMax   int
	Scoring                    tournament.ScoringRules
	MetricsEnabled             bool
	UptraceEnabled             bool
	UptraceDSN                 string
	UptraceLogsEnabled         bool
	PyroscopeEnabled           bool
	PyroscopeServerAddress     string
	PyroscopeAppName           string
	PyroscopeAuthToken         string
	PyroscopeBasicAuthUser     string
	PyroscopeBasicAuthPassword string
	PyroscopeUploadRate        time.Duration
	PprofEnabled               bool
	PprofAddr                  string
}

func Load() (Config, error) {
	appEnv, err := parseAppEnv(getEnv("APP_ENV", EnvDev))
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		AppEnv:             appEnv,
		ServiceName:        getEnv("APP_SERVICE_NAME", "ipl-snapshot"),
		ServiceVersion:     getEnv("APP_SERVICE_VERSION", "dev"),
		HTTPAddr:           strings.TrimSpace(getEnv("APP_HTTP_ADDR", ":8080")),
		LogLevel:           parseLogLevel(getEnv("APP_LOG_LEVEL", "info")),
		CORSAllowedOrigins: splitCSV(getEnv("CORS_ALLOWED_ORIGINS", "*")),
		InternalToken:      strings.TrimSpace(getEnv("INTERNAL_TOKEN", "")),
		CacheRedisURL:      strings.TrimSpace(getEnv("CACHE_REDIS_URL", "")),
		CacheRedisKey:      strings.TrimSpace(getEnv("CACHE_REDIS_KEY", "ipl:snapshot")),
		IPLSiteSeason:      strings.TrimSpace(getEnv("IPLSITE_SEASON", "")),
		CricAPIKey:         strings.TrimSpace(getEnv("CRICAPI_KEY", "")),
		CricAPISeries:      strings.TrimSpace(getEnv("CRICAPI_SERIES", "Indian Premier League")),
		UptraceDSN:         strings.TrimSpace(getEnv("UPTRACE_DSN", "")),
		PprofAddr:          strings.TrimSpace(getEnv("PPROF_ADDR", ":6060")),
	}
	if cfg.HTTPAddr == "" {
		return Config{}, fmt.Errorf("APP_HTTP_ADDR cannot be empty")
	}
	if cfg.UptraceDSN == "" {
		cfg.UptraceDSN = parseUptraceDSNFromOTLPHeaders(getEnv("OTEL_EXPORTER_OTLP_HEADERS", ""))
	}

	durations := []struct {
		key      string
		fallback string
		target   *time.Duration
	}{
		{"APP_READ_TIMEOUT", "10s", &cfg.ReadTimeout},
		{"APP_WRITE_TIMEOUT", "15s", &cfg.WriteTimeout},
		{"APP_SHUTDOWN_TIMEOUT", "10s", &cfg.ShutdownTimeout},
		{"CACHE_TTL", "5m", &cfg.CacheTTL},
		{"SOURCE_TIMEOUT", "4s", &cfg.SourceTimeout},
		{"SNAPSHOT_BUILD_TIMEOUT", "10s", &cfg.BuildTimeout},
		{"SOURCE_CIRCUIT_OPEN_TIMEOUT", "5m", &cfg.SourceCircuitOpenTimeout},
		{"PYROSCOPE_UPLOAD_RATE", "15s", &cfg.PyroscopeUploadRate},
	}
	for _, d := range durations {
		if *d.target, err = getEnvAsDuration(d.key, d.fallback); err != nil {
			return Config{}, err
		}
	}

	flags := []struct {
		key      string
		fallback string
		target   *bool
	}{
		{"SOURCE_CIRCUIT_ENABLED", "true", &cfg.SourceCircuitEnabled},
		{"METRICS_ENABLED", "true", &cfg.MetricsEnabled},
		{"UPTRACE_ENABLED", "false", &cfg.UptraceEnabled},
		{"UPTRACE_LOGS_ENABLED", "true", &cfg.UptraceLogsEnabled},
		{"PYROSCOPE_ENABLED", "false", &cfg.PyroscopeEnabled},
		{"PPROF_ENABLED", "false", &cfg.PprofEnabled},
	}
	for _, f := range flags {
		if *f.target, err = getEnvAsBool(f.key, f.fallback); err != nil {
			return Config{}, err
		}
	}

	if cfg.IPLSite, err = loadSource("IPLSITE", "https://www.iplt20.com", cfg.SourceTimeout); err != nil {
		return Config{}, err
	}
	if cfg.CricAPI, err = loadSource("CRICAPI", "https://api.cricapi.com/v1", cfg.SourceTimeout); err != nil {
		return Config{}, err
	}
	if cfg.LiveScore, err = loadSource("LIVESCORE", "https://cricket-api-production.up.railway.app", cfg.SourceTimeout); err != nil {
		return Config{}, err
	}

	cfg.SourcesPriority, err = parseSourcesPriority(getEnv("SOURCES_PRIORITY", "iplsite,cricapi,livescore"))
	if err != nil {
		return Config{}, err
	}

	sourceWorkers, err := getEnvAsInt("SOURCE_WORKERS", max(2*len(cfg.SourcesPriority), 1))
	if err != nil {
		return Config{}, fmt.Errorf("parse SOURCE_WORKERS: %w", err)
	}
	if sourceWorkers <= 0 {
		return Config{}, fmt.Errorf("SOURCE_WORKERS must be > 0")
	}
	cfg.SourceWorkers = sourceWorkers

	if cfg.SourceCircuitFailureCount, err = getEnvAsInt("SOURCE_CIRCUIT_FAILURE_COUNT", 3); err != nil {
		return Config{}, fmt.Errorf("parse SOURCE_CIRCUIT_FAILURE_COUNT: %w", err)
	}
	if cfg.SourceCircuitHalfOpenMax, err = getEnvAsInt("SOURCE_CIRCUIT_HALF_OPEN_MAX_REQ", 1); err != nil {
		return Config{}, fmt.Errorf("parse SOURCE_CIRCUIT_HALF_OPEN_MAX_REQ: %w", err)
	}
	if cfg.SourceCircuitEnabled && (cfg.SourceCircuitFailureCount <= 0 || cfg.SourceCircuitHalfOpenMax <= 0) {
		return Config{}, fmt.Errorf("SOURCE_CIRCUIT_FAILURE_COUNT and SOURCE_CIRCUIT_HALF_OPEN_MAX_REQ must be > 0")
	}

	defaults := tournament.DefaultScoringRules()
	if cfg.Scoring.PointsPerWin, err = getEnvAsInt("SCORING_POINTS_PER_WIN", defaults.PointsPerWin); err != nil {
		return Config{}, fmt.Errorf("parse SCORING_POINTS_PER_WIN: %w", err)
	}
	if cfg.Scoring.PointsPerTie, err = getEnvAsInt("SCORING_POINTS_PER_TIE", defaults.PointsPerTie); err != nil {
		return Config{}, fmt.Errorf("parse SCORING_POINTS_PER_TIE: %w", err)
	}
	if cfg.Scoring.InningsOvers, err = getEnvAsInt("SCORING_INNINGS_OVERS", defaults.InningsOvers); err != nil {
		return Config{}, fmt.Errorf("parse SCORING_INNINGS_OVERS: %w", err)
	}
	if err := cfg.Scoring.Validate(); err != nil {
		return Config{}, fmt.Errorf("scoring rules: %w", err)
	}

	if cfg.CacheTTL <= 0 {
		return Config{}, fmt.Errorf("CACHE_TTL must be > 0")
	}
	if cfg.SourceTimeout <= 0 || cfg.BuildTimeout <= 0 {
		return Config{}, fmt.Errorf("SOURCE_TIMEOUT and SNAPSHOT_BUILD_TIMEOUT must be > 0")
	}
	if cfg.UptraceEnabled && cfg.UptraceDSN == "" {
		return Config{}, fmt.Errorf("UPTRACE_DSN is required when UPTRACE_ENABLED=true")
	}
	if cfg.PprofEnabled && cfg.PprofAddr == "" {
		return Config{}, fmt.Errorf("PPROF_ADDR is required when PPROF_ENABLED=true")
	}

	cfg.PyroscopeServerAddress = strings.TrimSpace(getEnv("PYROSCOPE_SERVER_ADDRESS", ""))
	cfg.PyroscopeAppName = strings.TrimSpace(getEnv("PYROSCOPE_APP_NAME", cfg.ServiceName))
	cfg.PyroscopeAuthToken = strings.TrimSpace(getEnv("PYROSCOPE_AUTH_TOKEN", ""))
	cfg.PyroscopeBasicAuthUser = strings.TrimSpace(getEnv("PYROSCOPE_BASIC_AUTH_USER", ""))
	cfg.PyroscopeBasicAuthPassword = strings.TrimSpace(getEnv("PYROSCOPE_BASIC_AUTH_PASSWORD", ""))
	if cfg.PyroscopeEnabled && cfg.PyroscopeServerAddress == "" {
		return Config{}, fmt.Errorf("PYROSCOPE_SERVER_ADDRESS is required when PYROSCOPE_ENABLED=true")
	}

	return cfg, nil
}

// SourceTimeouts returns the per-source fetch timeouts keyed by source name.
func (c Config) SourceTimeouts() map[string]time.Duration {
	return map[string]time.Duration{
		SourceIPLSite:   c.IPLSite.Timeout,
		SourceCricAPI:   c.CricAPI.Timeout,
		SourceLiveScore: c.LiveScore.Timeout,
	}
}

func loadSource(prefix, defaultBaseURL string, defaultTimeout time.Duration) (SourceConfig, error) {
	enabled, err := getEnvAsBool(prefix+"_ENABLED", "true")
	if err != nil {
		return SourceConfig{}, err
	}
	timeout, err := getEnvAsDuration(prefix+"_TIMEOUT", defaultTimeout.String())
	if err != nil {
		return SourceConfig{}, err
	}
	if timeout <= 0 {
		return SourceConfig{}, fmt.Errorf("%s_TIMEOUT must be > 0", prefix)
	}
	baseURL := strings.TrimSpace(getEnv(prefix+"_BASE_URL", defaultBaseURL))
	if enabled && baseURL == "" {
		return SourceConfig{}, fmt.Errorf("%s_BASE_URL is required when %s_ENABLED=true", prefix, prefix)
	}
	return SourceConfig{Enabled: enabled, BaseURL: baseURL, Timeout: timeout}, nil
}

func parseSourcesPriority(raw string) ([]string, error) {
	names := splitCSV(strings.ToLower(raw))
	seen := make(map[string]struct{}, len(names))
	for _, name := range names {
		switch name {
		case SourceIPLSite, SourceCricAPI, SourceLiveScore, SourceStatic:
		default:
			return nil, fmt.Errorf("invalid SOURCES_PRIORITY entry %q", name)
		}
		if _, ok := seen[name]; ok {
			return nil, fmt.Errorf("duplicate SOURCES_PRIORITY entry %q", name)
		}
		seen[name] = struct{}{}
	}
	return names, nil
}

func parseLogLevel(v string) logging.Level {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "debug":
		return logging.LevelDebug
	case "warn", "warning":
		return logging.LevelWarn
	case "error":
		return logging.LevelError
	default:
		return logging.LevelInfo
	}
}

func getEnv(key, fallback string) string {
	value := os.Getenv(key)
	if strings.TrimSpace(value) == "" {
		return fallback
	}

	return value
}

func getEnvAsInt(key string, fallback int) (int, error) {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback, nil
	}

	out, err := strconv.Atoi(value)
	if err != nil {
		return 0, err
	}

	return out, nil
}

func getEnvAsBool(key, fallback string) (bool, error) {
	out, err := strconv.ParseBool(getEnv(key, fallback))
	if err != nil {
		return false, fmt.Errorf("parse %s: %w", key, err)
	}
	return out, nil
}

func getEnvAsDuration(key, fallback string) (time.Duration, error) {
	out, err := time.ParseDuration(getEnv(key, fallback))
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
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
