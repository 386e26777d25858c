package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/riskibarqy/player-valuation/internal/platform/logging"
)

// Config stores runtime configuration for the service.
type Config struct {
	AppEnv                          string
	ServiceName                     string
	ServiceVersion                  string
	HTTPAddr                        string
	ReadTimeout                     time.Duration
	WriteTimeout                    time.Duration
	ShutdownTimeout                 time.Duration
	CORSAllowedOrigins              []string
	LogLevel                        logging.Level
	LogFormat                       logging.Format
	RegressionBaseURL               string
	RegressionPlayersPath           string
	RegressionPredictPath           string
	RegressionTimeout               time.Duration
	RegressionCircuitEnabled        bool
	RegressionCircuitFailureCount   int
	RegressionCircuitOpenTimeout    time.Duration
	RegressionCircuitHalfOpenMaxReq int
	RefreshOnStart                  bool
	RefreshInterval                 time.Duration
	ViewDefaultPageSize             int
	ViewMaxPageSize                 int
	PredictionCacheTTL              time.Duration
	PredictionCacheMaxEntries       int
	PredictionBatchWorkers          int
	PredictionBatchMaxItems         int
	PprofEnabled                    bool
	PprofAddr                       string
	UptraceEnabled                  bool
	UptraceDSN                      string
	PyroscopeEnabled                bool
	PyroscopeServerAddress          string
	PyroscopeAppName                string
	PyroscopeAuthToken              string
	PyroscopeBasicAuthUser          string
	PyroscopeBasicAuthPassword      string
	PyroscopeUploadRate             time.Duration
}

func Load() (Config, error) {
	appEnv, err := parseAppEnv(getEnv("APP_ENV", EnvDev))
	if err != nil {
		return Config{}, err
	}

	logLevel, err := logging.ParseLevel(getEnv("APP_LOG_LEVEL", "info"))
	if err != nil {
		return Config{}, fmt.Errorf("parse APP_LOG_LEVEL: %w", err)
	}
	logFormatDefault := string(logging.FormatJSON)
	if appEnv == EnvDev {
		logFormatDefault = string(logging.FormatConsole)
	}
	logFormat, err := logging.ParseFormat(getEnv("APP_LOG_FORMAT", logFormatDefault))
	if err != nil {
		return Config{}, fmt.Errorf("parse APP_LOG_FORMAT: %w", err)
	}

	readTimeout, err := parsePositiveDuration("APP_READ_TIMEOUT", "10s")
	if err != nil {
		return Config{}, err
	}
	writeTimeout, err := parsePositiveDuration("APP_WRITE_TIMEOUT", "30s")
	if err != nil {
		return Config{}, err
	}
	shutdownTimeout, err := parsePositiveDuration("APP_SHUTDOWN_TIMEOUT", "10s")
	if err != nil {
		return Config{}, err
	}

	regressionBaseURL := strings.TrimRight(strings.TrimSpace(getEnv("REGRESSION_BASE_URL", "https://nba-regression-service-24550290265.asia-southeast1.run.app")), "/")
	if !strings.HasPrefix(regressionBaseURL, "http://") && !strings.HasPrefix(regressionBaseURL, "https://") {
		return Config{}, fmt.Errorf("REGRESSION_BASE_URL must start with http:// or https://")
	}
	regressionTimeout, err := parsePositiveDuration("REGRESSION_TIMEOUT", "20s")
	if err != nil {
		return Config{}, err
	}
	regressionCircuitEnabled, err := strconv.ParseBool(getEnv("REGRESSION_CIRCUIT_ENABLED", "true"))
	if err != nil {
		return Config{}, fmt.Errorf("parse REGRESSION_CIRCUIT_ENABLED: %w", err)
	}
	regressionCircuitFailureCount, err := getEnvAsInt("REGRESSION_CIRCUIT_FAILURE_COUNT", 5)
	if err != nil {
		return Config{}, fmt.Errorf("parse REGRESSION_CIRCUIT_FAILURE_COUNT: %w", err)
	}
	if regressionCircuitFailureCount < 1 {
		return Config{}, fmt.Errorf("REGRESSION_CIRCUIT_FAILURE_COUNT must be >= 1")
	}
	regressionCircuitOpenTimeout, err := parsePositiveDuration("REGRESSION_CIRCUIT_OPEN_TIMEOUT", "15s")
	if err != nil {
		return Config{}, err
	}
	regressionCircuitHalfOpenMaxReq, err := getEnvAsInt("REGRESSION_CIRCUIT_HALF_OPEN_MAX_REQ", 1)
	if err != nil {
		return Config{}, fmt.Errorf("parse REGRESSION_CIRCUIT_HALF_OPEN_MAX_REQ: %w", err)
	}
	if regressionCircuitHalfOpenMaxReq < 1 {
		return Config{}, fmt.Errorf("REGRESSION_CIRCUIT_HALF_OPEN_MAX_REQ must be >= 1")
	}

	refreshOnStart, err := strconv.ParseBool(getEnv("REFRESH_ON_START", "true"))
	if err != nil {
		return Config{}, fmt.Errorf("parse REFRESH_ON_START: %w", err)
	}
	refreshInterval, err := time.ParseDuration(getEnv("REFRESH_INTERVAL", "0s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse REFRESH_INTERVAL: %w", err)
	}
	if refreshInterval < 0 {
		return Config{}, fmt.Errorf("REFRESH_INTERVAL must be >= 0")
	}

	viewDefaultPageSize, err := getEnvAsInt("VIEW_DEFAULT_PAGE_SIZE", 10)
	if err != nil {
		return Config{}, fmt.Errorf("parse VIEW_DEFAULT_PAGE_SIZE: %w", err)
	}
	if viewDefaultPageSize <= 0 {
		return Config{}, fmt.Errorf("VIEW_DEFAULT_PAGE_SIZE must be > 0")
	}
	viewMaxPageSize, err := getEnvAsInt("VIEW_MAX_PAGE_SIZE", 100)
	if err != nil {
		return Config{}, fmt.Errorf("parse VIEW_MAX_PAGE_SIZE: %w", err)
	}
	if viewMaxPageSize < viewDefaultPageSize {
		return Config{}, fmt.Errorf("VIEW_MAX_PAGE_SIZE must be >= VIEW_DEFAULT_PAGE_SIZE")
	}

	predictionCacheTTL, err := time.ParseDuration(getEnv("PREDICTION_CACHE_TTL", "5m"))
	if err != nil {
		return Config{}, fmt.Errorf("parse PREDICTION_CACHE_TTL: %w", err)
	}
	if predictionCacheTTL < 0 {
		return Config{}, fmt.Errorf("PREDICTION_CACHE_TTL must be >= 0")
	}
	predictionCacheMaxEntries, err := getEnvAsInt("PREDICTION_CACHE_MAX_ENTRIES", 10000)
	if err != nil {
		return Config{}, fmt.Errorf("parse PREDICTION_CACHE_MAX_ENTRIES: %w", err)
	}
	if predictionCacheMaxEntries < 0 {
		return Config{}, fmt.Errorf("PREDICTION_CACHE_MAX_ENTRIES must be >= 0")
	}
	predictionBatchWorkers, err := getEnvAsInt("PREDICTION_BATCH_WORKERS", 4)
	if err != nil {
		return Config{}, fmt.Errorf("parse PREDICTION_BATCH_WORKERS: %w", err)
	}
	if predictionBatchWorkers <= 0 {
		return Config{}, fmt.Errorf("PREDICTION_BATCH_WORKERS must be > 0")
	}
	predictionBatchMaxItems, err := getEnvAsInt("PREDICTION_BATCH_MAX_ITEMS", 50)
	if err != nil {
		return Config{}, fmt.Errorf("parse PREDICTION_BATCH_MAX_ITEMS: %w", err)
	}
	if predictionBatchMaxItems <= 0 {
		return Config{}, fmt.Errorf("PREDICTION_BATCH_MAX_ITEMS must be > 0")
	}

	pprofEnabled, err := strconv.ParseBool(getEnv("PPROF_ENABLED", "false"))
	if err != nil {
		return Config{}, fmt.Errorf("parse PPROF_ENABLED: %w", err)
	}
	pprofAddr := strings.TrimSpace(getEnv("PPROF_ADDR", ":6060"))
	if pprofEnabled && pprofAddr == "" {
		return Config{}, fmt.Errorf("PPROF_ADDR is required when PPROF_ENABLED=true")
	}

	uptraceEnabled, err := strconv.ParseBool(getEnv("UPTRACE_ENABLED", "false"))
	if err != nil {
		return Config{}, fmt.Errorf("parse UPTRACE_ENABLED: %w", err)
	}
	uptraceDSN := strings.TrimSpace(getEnv("UPTRACE_DSN", ""))
	if uptraceDSN == "" {
		uptraceDSN = parseUptraceDSNFromOTLPHeaders(getEnv("OTEL_EXPORTER_OTLP_HEADERS", ""))
	}
	if uptraceEnabled && uptraceDSN == "" {
		return Config{}, fmt.Errorf("UPTRACE_DSN is required when UPTRACE_ENABLED=true")
	}

	pyroscopeEnabled, err := strconv.ParseBool(getEnv("PYROSCOPE_ENABLED", "false"))
	if err != nil {
		return Config{}, fmt.Errorf("parse PYROSCOPE_ENABLED: %w", err)
	}
	pyroscopeServerAddress := strings.TrimSpace(getEnv("PYROSCOPE_SERVER_ADDRESS", ""))
	if pyroscopeEnabled && pyroscopeServerAddress == "" {
		return Config{}, fmt.Errorf("PYROSCOPE_SERVER_ADDRESS is required when PYROSCOPE_ENABLED=true")
	}
	pyroscopeUploadRate, err := parsePositiveDuration("PYROSCOPE_UPLOAD_RATE", "15s")
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		AppEnv:                          appEnv,
		ServiceName:                     getEnv("APP_SERVICE_NAME", "player-valuation-api"),
		ServiceVersion:                  getEnv("APP_SERVICE_VERSION", "dev"),
		HTTPAddr:                        getEnv("APP_HTTP_ADDR", ":8080"),
		ReadTimeout:                     readTimeout,
		WriteTimeout:                    writeTimeout,
		ShutdownTimeout:                 shutdownTimeout,
		CORSAllowedOrigins:              splitCSV(getEnv("CORS_ALLOWED_ORIGINS", "*")),
		LogLevel:                        logLevel,
		LogFormat:                       logFormat,
		RegressionBaseURL:               regressionBaseURL,
		RegressionPlayersPath:           strings.TrimSpace(getEnv("REGRESSION_PLAYERS_PATH", "/allplayers")),
		RegressionPredictPath:           strings.TrimSpace(getEnv("REGRESSION_PREDICT_PATH", "/predict")),
		RegressionTimeout:               regressionTimeout,
		RegressionCircuitEnabled:        regressionCircuitEnabled,
		RegressionCircuitFailureCount:   regressionCircuitFailureCount,
		RegressionCircuitOpenTimeout:    regressionCircuitOpenTimeout,
		RegressionCircuitHalfOpenMaxReq: regressionCircuitHalfOpenMaxReq,
		RefreshOnStart:                  refreshOnStart,
		RefreshInterval:                 refreshInterval,
		ViewDefaultPageSize:             viewDefaultPageSize,
		ViewMaxPageSize:                 viewMaxPageSize,
		PredictionCacheTTL:              predictionCacheTTL,
		PredictionCacheMaxEntries:       predictionCacheMaxEntries,
		PredictionBatchWorkers:          predictionBatchWorkers,
		PredictionBatchMaxItems:         predictionBatchMaxItems,
		PprofEnabled:                    pprofEnabled,
		PprofAddr:                       pprofAddr,
		UptraceEnabled:                  uptraceEnabled,
		UptraceDSN:                      uptraceDSN,
		PyroscopeEnabled:                pyroscopeEnabled,
		PyroscopeServerAddress:          pyroscopeServerAddress,
		PyroscopeAuthToken:              strings.TrimSpace(getEnv("PYROSCOPE_AUTH_TOKEN", "")),
		PyroscopeBasicAuthUser:          strings.TrimSpace(getEnv("PYROSCOPE_BASIC_AUTH_USER", "")),
		PyroscopeBasicAuthPassword:      strings.TrimSpace(getEnv("PYROSCOPE_BASIC_AUTH_PASSWORD", "")),
		PyroscopeUploadRate:             pyroscopeUploadRate,
	}
	cfg.PyroscopeAppName = strings.TrimSpace(getEnv("PYROSCOPE_APP_NAME", cfg.ServiceName))
	if cfg.PyroscopeEnabled && cfg.PyroscopeAppName == "" {
		return Config{}, fmt.Errorf("PYROSCOPE_APP_NAME cannot be empty when PYROSCOPE_ENABLED=true")
	}
	if len(cfg.CORSAllowedOrigins) == 0 {
		return Config{}, fmt.Errorf("CORS_ALLOWED_ORIGINS cannot be empty")
	}

	return cfg, nil
}

func parsePositiveDuration(key, fallback string) (time.Duration, error) {
	value, err := time.ParseDuration(getEnv(key, fallback))
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	if value <= 0 {
		return 0, fmt.Errorf("%s must be > 0", key)
	}
	return value, nil
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

	for _, item := range strings.Split(raw, ",") {
		parts := strings.SplitN(strings.TrimSpace(item), "=", 2)
		if len(parts) != 2 {
			continue
		}
		if strings.EqualFold(strings.TrimSpace(parts[0]), "uptrace-dsn") {
			return strings.Trim(strings.TrimSpace(parts[1]), "\"'")
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
