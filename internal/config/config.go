// Package config provides configuration loading and validation for the API server.
// It uses koanf to merge environment variables with optional file overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Config holds all configuration values for the API server.
type Config struct {
	// Server settings
	Port int    `koanf:"port"`
	Env  string `koanf:"env"`

	// Database. Optional: when unset the server runs with in-memory storage,
	// which is only useful for local development.
	DatabaseURL string `koanf:"database_url"`

	// Session tokens
	SessionSecret         string `koanf:"session_secret"`
	PreviousSessionSecret string `koanf:"previous_session_secret"` // Accepted during secret rotation

	// Google OAuth
	GoogleClientID     string `koanf:"google_client_id"`
	GoogleClientSecret string `koanf:"google_client_secret"`
	GoogleRedirectURL  string `koanf:"google_redirect_url"`

	// ClientURL is the browser app origin for post-login redirects.
	ClientURL string `koanf:"client_url"`

	// Uploads
	UploadDir       string `koanf:"upload_dir"`
	UploadMaxSizeMB int    `koanf:"upload_max_size_mb"` // Default: 50MB

	// Redis. Optional: enables shared rate limit state across instances.
	RedisURL string `koanf:"redis_url"`

	// S3-compatible object storage for direct uploads. Optional.
	S3BucketName      string `koanf:"s3_bucket_name"`
	S3AccessKeyID     string `koanf:"s3_access_key_id"`
	S3SecretAccessKey string `koanf:"s3_secret_access_key"`
	S3Endpoint        string `koanf:"s3_endpoint"`

	// Distributed tracing. Disabled by default; when enabled, spans are
	// exported over OTLP to the configured endpoint.
	TracingEnabled      bool    `koanf:"tracing_enabled"`
	TracingExporter     string  `koanf:"tracing_exporter"` // otlp-http or otlp-grpc
	TracingSamplingRate float64 `koanf:"tracing_sampling_rate"`
	OTLPEndpoint        string  `koanf:"otlp_endpoint"`
}

// Configuration validation errors.
var (
	ErrMissingSessionSecret      = errors.New("SESSION_SECRET is required")
	ErrMissingGoogleClientID     = errors.New("GOOGLE_CLIENT_ID is required")
	ErrMissingGoogleClientSecret = errors.New("GOOGLE_CLIENT_SECRET is required")
	ErrMissingGoogleRedirectURL  = errors.New("GOOGLE_REDIRECT_URL is required")
	ErrMissingS3BucketName       = errors.New("S3_BUCKET_NAME is required")
	ErrMissingS3AccessKeyID      = errors.New("S3_ACCESS_KEY_ID is required")
	ErrMissingS3SecretAccessKey  = errors.New("S3_SECRET_ACCESS_KEY is required")
	ErrMissingS3Endpoint         = errors.New("S3_ENDPOINT is required")
	ErrInvalidPort               = errors.New("PORT must be a valid integer")
	ErrInvalidSamplingRate       = errors.New("TRACING_SAMPLING_RATE must be between 0 and 1")
	ErrInvalidTracingExporter    = errors.New("TRACING_EXPORTER must be otlp-http or otlp-grpc")
)

// Default values for non-secret configuration.
const (
	DefaultPort                = 8080
	DefaultEnv                 = "development"
	DefaultClientURL           = "http://localhost:3000"
	DefaultUploadDir           = "uploads"
	DefaultUploadMaxSizeMB     = 50
	DefaultTracingExporter     = "otlp-http"
	DefaultTracingSamplingRate = 0.1
)

// Load reads configuration from environment variables and an optional config file.
// Environment variables take precedence over file values.
// Returns the loaded config and a slice of validation errors (empty if valid).
// If a config file path is provided and the file cannot be loaded, an error is returned.
func Load(configFilePath string) (*Config, []error) {
	k := koanf.New(".")
	var loadErrs []error

	// Load from YAML file first if provided (lower precedence)
	if configFilePath != "" {
		if err := k.Load(file.Provider(configFilePath), yaml.Parser()); err != nil {
			return nil, []error{fmt.Errorf("failed to load config file %s: %w", configFilePath, err)}
		}
	}

	// Parse port from env, collecting error if invalid
	// Try ARCADE_PORT first, then PORT for backward compatibility
	port, portErr := getEnvIntOrDefaultMulti([]string{"ARCADE_PORT", "PORT"}, k.Int("port"), DefaultPort)
	if portErr != nil {
		loadErrs = append(loadErrs, portErr)
	}

	// Parse max upload size from env with default
	maxUploadSize, uploadSizeErr := getEnvIntOrDefault("UPLOAD_MAX_SIZE_MB", k.Int("upload_max_size_mb"), DefaultUploadMaxSizeMB)
	if uploadSizeErr != nil {
		loadErrs = append(loadErrs, uploadSizeErr)
	}

	samplingRate, samplingErr := getEnvFloatOrDefault("TRACING_SAMPLING_RATE", k.Float64("tracing_sampling_rate"), DefaultTracingSamplingRate)
	if samplingErr != nil {
		loadErrs = append(loadErrs, samplingErr)
	}

	// Build config struct, with env vars taking precedence over file values
	cfg := &Config{
		Port:                  port,
		Env:                   getEnvOrDefaultMulti([]string{"ARCADE_ENV", "ENV", "GO_ENV"}, k.String("env"), DefaultEnv),
		DatabaseURL:           getEnvOrKoanf("DATABASE_URL", k, "database_url"),
		SessionSecret:         getEnvOrKoanf("SESSION_SECRET", k, "session_secret"),
		PreviousSessionSecret: getEnvOrKoanf("PREVIOUS_SESSION_SECRET", k, "previous_session_secret"),
		GoogleClientID:        getEnvOrKoanf("GOOGLE_CLIENT_ID", k, "google_client_id"),
		GoogleClientSecret:    getEnvOrKoanf("GOOGLE_CLIENT_SECRET", k, "google_client_secret"),
		GoogleRedirectURL:     getEnvOrKoanf("GOOGLE_REDIRECT_URL", k, "google_redirect_url"),
		ClientURL:             getEnvOrDefault("CLIENT_URL", k.String("client_url"), DefaultClientURL),
		UploadDir:             getEnvOrDefault("UPLOAD_DIR", k.String("upload_dir"), DefaultUploadDir),
		UploadMaxSizeMB:       maxUploadSize,
		RedisURL:              getEnvOrKoanf("REDIS_URL", k, "redis_url"),
		S3BucketName:          getEnvOrKoanf("S3_BUCKET_NAME", k, "s3_bucket_name"),
		S3AccessKeyID:         getEnvOrKoanf("S3_ACCESS_KEY_ID", k, "s3_access_key_id"),
		S3SecretAccessKey:     getEnvOrKoanf("S3_SECRET_ACCESS_KEY", k, "s3_secret_access_key"),
		S3Endpoint:            getEnvOrKoanf("S3_ENDPOINT", k, "s3_endpoint"),
		TracingEnabled:        getEnvBoolOrDefault("TRACING_ENABLED", k.Bool("tracing_enabled"), false),
		TracingExporter:       getEnvOrDefault("TRACING_EXPORTER", k.String("tracing_exporter"), DefaultTracingExporter),
		TracingSamplingRate:   samplingRate,
		OTLPEndpoint:          getEnvOrKoanf("OTLP_ENDPOINT", k, "otlp_endpoint"),
	}

	// Validate and collect errors
	errs := cfg.Validate()
	errs = append(loadErrs, errs...)

	return cfg, errs
}

// getEnvOrKoanf returns the environment variable value if set, otherwise the koanf value.
func getEnvOrKoanf(envKey string, k *koanf.Koanf, koanfKey string) string {
	if val := os.Getenv(envKey); val != "" {
		return val
	}
	return k.String(koanfKey)
}

// getEnvOrDefault returns the environment variable value if set, otherwise the koanf value, or default.
func getEnvOrDefault(envKey string, koanfVal string, defaultVal string) string {
	if val := os.Getenv(envKey); val != "" {
		return val
	}
	if koanfVal != "" {
		return koanfVal
	}
	return defaultVal
}

// getEnvOrDefaultMulti tries multiple environment variable keys in order.
// Returns the first non-empty value found, otherwise the koanf value, or default.
func getEnvOrDefaultMulti(envKeys []string, koanfVal string, defaultVal string) string {
	for _, key := range envKeys {
		if val := os.Getenv(key); val != "" {
			return val
		}
	}
	if koanfVal != "" {
		return koanfVal
	}
	return defaultVal
}

// getEnvIntOrDefault returns the environment variable as int if set, otherwise the koanf value, or default.
// Returns an error if the environment variable is set but cannot be parsed as an integer.
func getEnvIntOrDefault(envKey string, koanfVal int, defaultVal int) (int, error) {
	if val := os.Getenv(envKey); val != "" {
		i, err := strconv.Atoi(val)
		if err != nil {
			return 0, fmt.Errorf("%s must be a valid integer: %w", envKey, err)
		}
		return i, nil
	}
	if koanfVal != 0 {
		return koanfVal, nil
	}
	return defaultVal, nil
}

// getEnvIntOrDefaultMulti tries multiple environment variable keys in order.
// Returns the first valid integer value found, otherwise the koanf value, or default.
// Returns an error if any environment variable is set but cannot be parsed as an integer.
func getEnvIntOrDefaultMulti(envKeys []string, koanfVal int, defaultVal int) (int, error) {
	for _, key := range envKeys {
		if val := os.Getenv(key); val != "" {
			i, err := strconv.Atoi(val)
			if err != nil {
				return 0, fmt.Errorf("%s must be a valid integer: %w", key, ErrInvalidPort)
			}
			return i, nil
		}
	}
	if koanfVal != 0 {
		return koanfVal, nil
	}
	return defaultVal, nil
}

// getEnvBoolOrDefault returns the environment variable as bool if set, otherwise the koanf value, or default.
// Unparseable values fall through to the default.
func getEnvBoolOrDefault(envKey string, koanfVal bool, defaultVal bool) bool {
	if val := os.Getenv(envKey); val != "" {
		b, err := strconv.ParseBool(val)
		if err == nil {
			return b
		}
	}
	if koanfVal {
		return true
	}
	return defaultVal
}

// getEnvFloatOrDefault returns the environment variable as float64 if set, otherwise the koanf value, or default.
// Returns an error if the environment variable is set but cannot be parsed.
func getEnvFloatOrDefault(envKey string, koanfVal float64, defaultVal float64) (float64, error) {
	if val := os.Getenv(envKey); val != "" {
		f, err := strconv.ParseFloat(val, 64)
		if err != nil {
			return 0, fmt.Errorf("%s must be a valid number: %w", envKey, err)
		}
		return f, nil
	}
	if koanfVal != 0 {
		return koanfVal, nil
	}
	return defaultVal, nil
}

// Validate checks that all required configuration values are present.
// Returns a slice of validation errors (empty if valid).
func (c *Config) Validate() []error {
	var errs []error

	if c.SessionSecret == "" {
		errs = append(errs, ErrMissingSessionSecret)
	}
	if c.GoogleClientID == "" {
		errs = append(errs, ErrMissingGoogleClientID)
	}
	if c.GoogleClientSecret == "" {
		errs = append(errs, ErrMissingGoogleClientSecret)
	}
	if c.GoogleRedirectURL == "" {
		errs = append(errs, ErrMissingGoogleRedirectURL)
	}

	// S3 configuration is optional. Only validate fields if any S3 value is set.
	if c.S3BucketName != "" || c.S3AccessKeyID != "" || c.S3SecretAccessKey != "" || c.S3Endpoint != "" {
		if c.S3BucketName == "" {
			errs = append(errs, ErrMissingS3BucketName)
		}
		if c.S3AccessKeyID == "" {
			errs = append(errs, ErrMissingS3AccessKeyID)
		}
		if c.S3SecretAccessKey == "" {
			errs = append(errs, ErrMissingS3SecretAccessKey)
		}
		if c.S3Endpoint == "" {
			errs = append(errs, ErrMissingS3Endpoint)
		}
	}

	// Tracing settings only matter when tracing is on.
	if c.TracingEnabled {
		if c.TracingSamplingRate < 0 || c.TracingSamplingRate > 1 {
			errs = append(errs, ErrInvalidSamplingRate)
		}
		if c.TracingExporter != "otlp-http" && c.TracingExporter != "otlp-grpc" {
			errs = append(errs, ErrInvalidTracingExporter)
		}
	}

	return errs
}

// S3Enabled reports whether direct-to-bucket uploads are configured.
func (c *Config) S3Enabled() bool {
	return c.S3BucketName != "" && c.S3AccessKeyID != "" && c.S3SecretAccessKey != "" && c.S3Endpoint != ""
}

// LogSummary returns a summary of the configuration suitable for logging.
// All secrets are masked to prevent accidental exposure.
func (c *Config) LogSummary() map[string]string {
	return map[string]string{
		"port":                    fmt.Sprintf("%d", c.Port),
		"env":                     c.Env,
		"database_url":            maskDatabaseURL(c.DatabaseURL),
		"session_secret":          maskSecret(c.SessionSecret),
		"previous_session_secret": maskSecret(c.PreviousSessionSecret),
		"google_client_id":        maskSecret(c.GoogleClientID),
		"google_client_secret":    maskSecret(c.GoogleClientSecret),
		"google_redirect_url":     c.GoogleRedirectURL,
		"client_url":              c.ClientURL,
		"upload_dir":              c.UploadDir,
		"upload_max_size_mb":      fmt.Sprintf("%d", c.UploadMaxSizeMB),
		"redis_url":               maskDatabaseURL(c.RedisURL),
		"s3_bucket_name":          c.S3BucketName,
		"s3_access_key_id":        maskSecret(c.S3AccessKeyID),
		"s3_secret_access_key":    maskSecret(c.S3SecretAccessKey),
		"s3_endpoint":             c.S3Endpoint,
		"tracing_enabled":         fmt.Sprintf("%t", c.TracingEnabled),
		"tracing_exporter":        c.TracingExporter,
		"tracing_sampling_rate":   fmt.Sprintf("%g", c.TracingSamplingRate),
		"otlp_endpoint":           c.OTLPEndpoint,
	}
}

// maskSecret masks a secret value, showing only the first 4 characters followed by ****
// If the secret is shorter than 8 characters, it's fully masked.
func maskSecret(s string) string {
	if s == "" {
		return "<not set>"
	}
	if len(s) < 8 {
		return "****"
	}
	return s[:4] + "****"
}

// maskDatabaseURL masks the password in a connection URL.
// Supports postgres://, postgresql://, and redis:// schemes.
func maskDatabaseURL(s string) string {
	if s == "" {
		return "<not set>"
	}

	// Look for password pattern: user:password@host
	// Simple approach: find :// and then mask between : and @
	schemeEnd := strings.Index(s, "://")
	if schemeEnd == -1 {
		return maskSecret(s)
	}

	rest := s[schemeEnd+3:]
	atIndex := strings.Index(rest, "@")
	if atIndex == -1 {
		return s // No credentials in URL
	}

	colonIndex := strings.Index(rest[:atIndex], ":")
	if colonIndex == -1 {
		return s // No password (only username)
	}

	// Reconstruct URL with masked password
	scheme := s[:schemeEnd+3]
	user := rest[:colonIndex]
	hostAndPath := rest[atIndex:]

	return scheme + user + ":****" + hostAndPath
}
