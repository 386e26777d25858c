package config

import (
	"testing"
	"time"

	"github.com/riskibarqy/player-valuation/internal/platform/logging"
)

func TestLoad_AppEnvValidation(t *testing.T) {
	t.Setenv("APP_ENV", "invalid")
	if _, err := Load(); err == nil {
		t.Fatalf("expected error for invalid APP_ENV")
	}
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("APP_ENV", EnvStage)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.HTTPAddr != ":8080" {
		t.Fatalf("unexpected HTTPAddr: %q", cfg.HTTPAddr)
	}
	if cfg.RegressionBaseURL != "https://nba-regression-service-24550290265.asia-southeast1.run.app" {
		t.Fatalf("unexpected RegressionBaseURL: %q", cfg.RegressionBaseURL)
	}
	if cfg.RegressionPlayersPath != "/allplayers" || cfg.RegressionPredictPath != "/predict" {
		t.Fatalf("unexpected regression paths: %q %q", cfg.RegressionPlayersPath, cfg.RegressionPredictPath)
	}
	if !cfg.RefreshOnStart || cfg.RefreshInterval != 0 {
		t.Fatalf("unexpected refresh defaults on_start=%v interval=%s", cfg.RefreshOnStart, cfg.RefreshInterval)
	}
	if cfg.ViewDefaultPageSize != 10 || cfg.ViewMaxPageSize != 100 {
		t.Fatalf("unexpected page sizes default=%d max=%d", cfg.ViewDefaultPageSize, cfg.ViewMaxPageSize)
	}
	if cfg.PredictionCacheTTL != 5*time.Minute {
		t.Fatalf("unexpected PredictionCacheTTL: %s", cfg.PredictionCacheTTL)
	}
	if cfg.LogFormat != logging.FormatJSON {
		t.Fatalf("expected json logs outside dev, got %q", cfg.LogFormat)
	}
	if len(cfg.CORSAllowedOrigins) != 1 || cfg.CORSAllowedOrigins[0] != "*" {
		t.Fatalf("unexpected CORSAllowedOrigins: %v", cfg.CORSAllowedOrigins)
	}
}

func TestLoad_DevUsesConsoleLogs(t *testing.T) {
	t.Setenv("APP_ENV", EnvDev)
	t.Setenv("APP_LOG_FORMAT", "")
	t.Setenv("APP_LOG_LEVEL", "debug")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.LogFormat != logging.FormatConsole {
		t.Fatalf("expected console logs in dev, got %q", cfg.LogFormat)
	}
	if cfg.LogLevel != logging.LevelDebug {
		t.Fatalf("unexpected LogLevel: %s", cfg.LogLevel)
	}
}

func TestLoad_RegressionSettings(t *testing.T) {
	t.Setenv("APP_ENV", EnvDev)
	t.Setenv("REGRESSION_BASE_URL", "http://localhost:9000/")
	t.Setenv("REGRESSION_TIMEOUT", "3s")
	t.Setenv("REGRESSION_CIRCUIT_ENABLED", "false")
	t.Setenv("REFRESH_INTERVAL", "10m")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.RegressionBaseURL != "http://localhost:9000" {
		t.Fatalf("unexpected RegressionBaseURL: %q", cfg.RegressionBaseURL)
	}
	if cfg.RegressionTimeout != 3*time.Second {
		t.Fatalf("unexpected RegressionTimeout: %s", cfg.RegressionTimeout)
	}
	if cfg.RegressionCircuitEnabled {
		t.Fatalf("expected RegressionCircuitEnabled=false")
	}
	if cfg.RefreshInterval != 10*time.Minute {
		t.Fatalf("unexpected RefreshInterval: %s", cfg.RefreshInterval)
	}
}

func TestLoad_Validation(t *testing.T) {
	tests := map[string]map[string]string{
		"bad base url":             {"REGRESSION_BASE_URL": "ftp://example.com"},
		"zero timeout":             {"REGRESSION_TIMEOUT": "0s"},
		"bad circuit count":        {"REGRESSION_CIRCUIT_FAILURE_COUNT": "0"},
		"negative refresh":         {"REFRESH_INTERVAL": "-1s"},
		"max below default":        {"VIEW_DEFAULT_PAGE_SIZE": "20", "VIEW_MAX_PAGE_SIZE": "10"},
		"zero workers":             {"PREDICTION_BATCH_WORKERS": "0"},
		"bad log level":            {"APP_LOG_LEVEL": "loud"},
		"uptrace without dsn":      {"UPTRACE_ENABLED": "true", "UPTRACE_DSN": "", "OTEL_EXPORTER_OTLP_HEADERS": ""},
		"pyroscope without server": {"PYROSCOPE_ENABLED": "true", "PYROSCOPE_SERVER_ADDRESS": ""},
		"bad bool":                 {"REFRESH_ON_START": "maybe"},
	}

	for name, env := range tests {
		t.Run(name, func(t *testing.T) {
			t.Setenv("APP_ENV", EnvDev)
			for key, value := range env {
				t.Setenv(key, value)
			}
			if _, err := Load(); err == nil {
				t.Fatalf("expected error for %v", env)
			}
		})
	}
}

func TestParseUptraceDSNFromOTLPHeaders(t *testing.T) {
	got := parseUptraceDSNFromOTLPHeaders(`foo=bar, uptrace-dsn="https://token@api.uptrace.dev?grpc=4317"`)
	if got != "https://token@api.uptrace.dev?grpc=4317" {
		t.Fatalf("unexpected dsn: %q", got)
	}
	if parseUptraceDSNFromOTLPHeaders("") != "" {
		t.Fatalf("expected empty dsn")
	}
}

func TestSplitCSV(t *testing.T) {
	got := splitCSV(" https://a.example , ,https://b.example")
	if len(got) != 2 || got[0] != "https://a.example" || got[1] != "https://b.example" {
		t.Fatalf("unexpected split: %v", got)
	}
}
