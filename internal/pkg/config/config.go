// Package config loads service settings from the environment and the optional
// tenant branding file.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all runtime settings of the report service.
type Config struct {
	LogLevel    string
	LogEncoding string
	HTTPAddr    string

	// RequestTimeout bounds one API request, fallback included.
	RequestTimeout time.Duration
	BatchLimit     int

	Engine  EngineConfig
	Breaker BreakerConfig

	LogoPath     string
	BrandingFile string
	VerifyOutput bool
	Compress     bool

	ArtifactsDir    string
	ArtifactsBucket string

	Postgres PostgresConfig
	Tracing  TracingConfig
}

// EngineConfig describes the external rendering engine.
type EngineConfig struct {
	URL            string
	Enabled        bool
	Timeout        time.Duration
	MaxSessions    int
	AcquireTimeout time.Duration
	SessionMaxIdle time.Duration
}

// BreakerConfig configures the circuit breaker around the rendering engine.
type BreakerConfig struct {
	FailureThreshold int
	ResetTimeout     time.Duration
	HalfOpenMaxCalls int
	SuccessThreshold int
	PodName          string
	Namespace        string
}

// PostgresConfig is optional; an empty Host disables the generation log.
type PostgresConfig struct {
	Host     string
	Port     string
	DB       string
	User     string
	Password string
}

// Enabled reports whether a generation log database is configured.
func (p PostgresConfig) Enabled() bool {
	return p.Host != ""
}

// TracingConfig is optional; an empty CollectorURL disables export.
type TracingConfig struct {
	ServiceName    string
	ServiceVersion string
	Environment    string
	CollectorURL   string
	SamplingRate   float64
}

// Load reads the configuration from environment variables.
func Load() Config {
	return Config{
		LogLevel:    getEnvWithDefault("LOG_LEVEL", "info"),
		LogEncoding: getEnvWithDefault("LOG_ENCODING", "json"),
		HTTPAddr:    getEnvWithDefault("HTTP_ADDR", ":8080"),

		RequestTimeout: getEnvDurationWithDefault("HTTP_REQUEST_TIMEOUT", 60*time.Second),
		BatchLimit:     getEnvIntWithDefault("BATCH_CONCURRENCY", 4),

		Engine: EngineConfig{
			URL:            strings.TrimRight(getEnvWithDefault("GOTENBERG_API_URL", "http://gotenberg:3000"), "/"),
			Enabled:        getEnvBoolWithDefault("PRIMARY_RENDERER_ENABLED", true),
			Timeout:        getEnvDurationWithDefault("RENDER_ENGINE_TIMEOUT", 30*time.Second),
			MaxSessions:    getEnvIntWithDefault("RENDER_ENGINE_MAX_SESSIONS", 4),
			AcquireTimeout: getEnvDurationWithDefault("RENDER_ENGINE_ACQUIRE_TIMEOUT", 10*time.Second),
			SessionMaxIdle: getEnvDurationWithDefault("RENDER_ENGINE_SESSION_MAX_IDLE", 2*time.Minute),
		},
		Breaker: BreakerConfig{
			FailureThreshold: getEnvIntWithDefault("CIRCUIT_BREAKER_FAILURE_THRESHOLD", 5),
			ResetTimeout:     getEnvDurationWithDefault("CIRCUIT_BREAKER_RESET_TIMEOUT", 10*time.Second),
			HalfOpenMaxCalls: getEnvIntWithDefault("CIRCUIT_BREAKER_HALF_OPEN_MAX_CALLS", 2),
			SuccessThreshold: getEnvIntWithDefault("CIRCUIT_BREAKER_SUCCESS_THRESHOLD", 2),
			PodName:          os.Getenv("POD_NAME"),
			Namespace:        os.Getenv("POD_NAMESPACE"),
		},

		LogoPath:     getEnvWithDefault("LOGO_PATH", "assets/logo.png"),
		BrandingFile: os.Getenv("BRANDING_FILE"),
		VerifyOutput: getEnvBoolWithDefault("PDF_VERIFY_OUTPUT", true),
		Compress:     getEnvBoolWithDefault("PDF_COMPRESS", true),

		ArtifactsDir:    os.Getenv("ARTIFACTS_DIR"),
		ArtifactsBucket: os.Getenv("ARTIFACTS_BUCKET"),

		Postgres: PostgresConfig{
			Host:     os.Getenv("POSTGRES_HOST"),
			Port:     getEnvWithDefault("POSTGRES_PORT", "5432"),
			DB:       getEnvWithDefault("POSTGRES_DB", "reports"),
			User:     os.Getenv("POSTGRES_USER"),
			Password: os.Getenv("POSTGRES_PASSWORD"),
		},
		Tracing: TracingConfig{
			ServiceName:    getEnvWithDefault("OTEL_SERVICE_NAME", "report-service"),
			ServiceVersion: os.Getenv("VERSION"),
			Environment:    os.Getenv("OTEL_ENVIRONMENT"),
			CollectorURL:   os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
			SamplingRate:   getEnvFloatWithDefault("OTEL_TRACES_SAMPLER_ARG", 1),
		},
	}
}

// Branding is the tenant branding file.
//
//	companies:
//	  EHI:
//	    name: Eastern Home Industries
//	    logo: assets/ehi.png
type Branding struct {
	Companies map[string]CompanyBranding `yaml:"companies"`
}

// CompanyBranding describes one tenant.
type CompanyBranding struct {
	Name string `yaml:"name"`
	Logo string `yaml:"logo"`
}

// LoadBranding reads the branding file. An empty path yields an empty Branding.
func LoadBranding(path string) (Branding, error) {
	var b Branding
	if path == "" {
		return b, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return b, fmt.Errorf("failed to read branding file: %w", err)
	}
	if err := yaml.Unmarshal(data, &b); err != nil {
		return b, fmt.Errorf("failed to parse branding file %s: %w", path, err)
	}

	normalized := make(map[string]CompanyBranding, len(b.Companies))
	for code, c := range b.Companies {
		normalized[strings.ToUpper(strings.TrimSpace(code))] = c
	}
	b.Companies = normalized
	return b, nil
}

// Names returns tenant code -> display name.
func (b Branding) Names() map[string]string {
	names := make(map[string]string, len(b.Companies))
	for code, c := range b.Companies {
		if c.Name != "" {
			names[code] = c.Name
		}
	}
	return names
}

// Logos returns tenant code -> logo path for tenants with their own logo.
func (b Branding) Logos() map[string]string {
	logos := make(map[string]string)
	for code, c := range b.Companies {
		if c.Logo != "" {
			logos[code] = c.Logo
		}
	}
	return logos
}

// getEnvWithDefault returns the variable or defaultValue when it is unset.
func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntWithDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloatWithDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvDurationWithDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvBoolWithDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}
