// Package config has the configuration for the publisher
package config

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Environment values accepted in ENV
const (
	EnvDevelopment = "dev"
	EnvStaging     = "staging"
	EnvProduction  = "prod"
	EnvTest        = "test"
)

// Format store backends accepted in FORMAT_STORE
const (
	StoreFiles    = "files"
	StorePostgres = "postgres"
	StoreSQLite   = "sqlite"
)

// DefaultSourceURL is the CMS RUG-IV crosswalk resource, selecting code and description
const DefaultSourceURL = "https://data.cms.gov/resource/qmvt-uw4p.json?$select=rug, rug_description"

var (
	librefRegex  = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]{0,7}$`)
	refreshRegex = regexp.MustCompile(`^([01]\d|2[0-3]):[0-5]\d$`)
)

// Config holds all application configuration
type Config struct {
	Env               string
	LogLevel          string
	LogDir            string
	LogRetentionWeeks int   // Number of weeks to keep log files
	MaxLogFileSize    int64 // Maximum log file size in bytes

	SourceURL         string
	AppToken          string
	PageSize          int
	RequestsPerSecond float64
	HTTPTimeout       time.Duration

	OutputDir     string
	ReferenceFile string // xlsx reference copy
	ReferenceCSV  string // csv reference copy

	FormatStore   string
	FormatLibref  string // SAS libref, also the SQL schema name
	FormatDir     string // directory assigned to the libref for the files store
	FormatSASPath string // the same directory as the SAS server sees it
	FormatDSN     string

	ReferenceBucket string
	S3Endpoint      string
	S3AccessKey     string
	S3SecretKey     string
	S3Region        string
	S3UseSSL        bool
	S3Prefix        string

	RefreshAt       string // "06:00;18:00", empty for a single run
	Port            string
	Address         string
	MetricsTextfile string
}

// Load loads and validates configuration from environment variables
func Load() (*Config, error) {
	outputDir := getEnvWithDefault("OUTPUT_DIR", "output")

	cfg := &Config{
		Env:               strings.ToLower(getEnvWithDefault("ENV", EnvDevelopment)),
		LogLevel:          strings.ToLower(getEnvWithDefault("LOG_LEVEL", "info")),
		LogDir:            getEnvWithDefault("LOG_DIR", "logs"),
		LogRetentionWeeks: getIntEnvWithDefault("LOG_RETENTION_WEEKS", 4),
		MaxLogFileSize:    getInt64EnvWithDefault("MAX_LOG_FILE_SIZE", 104857600), // 100MB default

		SourceURL:         getEnvWithDefault("RUG_SOURCE_URL", DefaultSourceURL),
		AppToken:          os.Getenv("RUG_APP_TOKEN"),
		PageSize:          getIntEnvWithDefault("RUG_PAGE_SIZE", 1000),
		RequestsPerSecond: getFloatEnvWithDefault("RUG_REQUESTS_PER_SECOND", 2),
		HTTPTimeout:       time.Duration(getIntEnvWithDefault("HTTP_TIMEOUT_SECONDS", 60)) * time.Second,

		OutputDir:     outputDir,
		ReferenceFile: getEnvWithDefault("REFERENCE_FILE", filepath.Join(outputDir, "references", "cms_rugcat_ruggroup.xlsx")),
		ReferenceCSV:  getEnvWithDefault("REFERENCE_CSV", filepath.Join(outputDir, "references", "cms_rugcat_ruggroup.csv")),

		FormatStore:  strings.ToLower(getEnvWithDefault("FORMAT_STORE", StoreFiles)),
		FormatLibref: getEnvWithDefault("FORMAT_LIBREF", "fmt"),
		FormatDir:    getEnvWithDefault("FORMAT_DIR", filepath.Join(outputDir, "staging")),
		FormatDSN:    os.Getenv("FORMAT_DSN"),

		ReferenceBucket: os.Getenv("REFERENCE_BUCKET"),
		S3Endpoint:      os.Getenv("S3_ENDPOINT"),
		S3AccessKey:     os.Getenv("S3_ACCESS_KEY"),
		S3SecretKey:     os.Getenv("S3_SECRET_KEY"),
		S3Region:        getEnvWithDefault("S3_REGION", "us-east-1"),
		S3UseSSL:        getBoolEnvWithDefault("S3_USE_SSL", true),
		S3Prefix:        getEnvWithDefault("S3_PREFIX", "rug-iv/"),

		RefreshAt:       os.Getenv("REFRESH_AT"),
		Port:            getEnvWithDefault("PORT", "8000"),
		Address:         getEnvWithDefault("ADDRESS", "127.0.0.1"),
		MetricsTextfile: os.Getenv("METRICS_TEXTFILE"),
	}

	cfg.FormatSASPath = getEnvWithDefault("FORMAT_SAS_PATH", cfg.FormatDir)

	if err := validateConfig(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Scheduled reports whether the publisher runs as a long-lived refresh service
func (c *Config) Scheduled() bool {
	return c.RefreshAt != ""
}

// validateConfig validates all configuration values
func validateConfig(cfg *Config) error {
	if err := validateEnv(cfg.Env); err != nil {
		return fmt.Errorf("invalid ENV: %w", err)
	}

	if err := validateLogLevel(cfg.LogLevel); err != nil {
		return fmt.Errorf("invalid LOG_LEVEL: %w", err)
	}

	if err := validateLogRetentionWeeks(cfg.LogRetentionWeeks); err != nil {
		return fmt.Errorf("invalid LOG_RETENTION_WEEKS: %w", err)
	}

	if err := validateMaxLogFileSize(cfg.MaxLogFileSize); err != nil {
		return fmt.Errorf("invalid MAX_LOG_FILE_SIZE: %w", err)
	}

	if err := validateSourceURL(cfg.SourceURL); err != nil {
		return fmt.Errorf("invalid RUG_SOURCE_URL: %w", err)
	}

	if cfg.PageSize < 1 || cfg.PageSize > 50000 {
		return fmt.Errorf("invalid RUG_PAGE_SIZE: must be between 1 and 50000, got: %d", cfg.PageSize)
	}

	if cfg.RequestsPerSecond <= 0 {
		return fmt.Errorf("invalid RUG_REQUESTS_PER_SECOND: must be positive, got: %g", cfg.RequestsPerSecond)
	}

	if cfg.HTTPTimeout <= 0 {
		return fmt.Errorf("invalid HTTP_TIMEOUT_SECONDS: must be positive")
	}

	if err := validateFormatStore(cfg); err != nil {
		return fmt.Errorf("invalid FORMAT_STORE: %w", err)
	}

	if !librefRegex.MatchString(cfg.FormatLibref) {
		return fmt.Errorf("invalid FORMAT_LIBREF: must be a SAS name of at most 8 characters, got: %s", cfg.FormatLibref)
	}

	if err := validateBucket(cfg); err != nil {
		return fmt.Errorf("invalid REFERENCE_BUCKET: %w", err)
	}

	if cfg.Scheduled() {
		if err := validateRefreshAt(cfg.RefreshAt); err != nil {
			return fmt.Errorf("invalid REFRESH_AT: %w", err)
		}
		if err := validatePort(cfg.Port); err != nil {
			return fmt.Errorf("invalid PORT: %w", err)
		}
		if err := validateAddress(cfg.Address); err != nil {
			return fmt.Errorf("invalid ADDRESS: %w", err)
		}
	}

	return nil
}

// validateEnv validates the ENV environment variable
func validateEnv(env string) error {
	if env == "" {
		return fmt.Errorf("ENV cannot be empty")
	}

	validEnvs := []string{EnvDevelopment, EnvStaging, EnvProduction, EnvTest}
	for _, validEnv := range validEnvs {
		if env == validEnv {
			return nil
		}
	}

	return fmt.Errorf("ENV must be one of: %v, got: %s", validEnvs, env)
}

// validateLogLevel validates the LOG_LEVEL environment variable
func validateLogLevel(logLevel string) error {
	if logLevel == "" {
		return fmt.Errorf("LOG_LEVEL cannot be empty")
	}

	validLevels := []string{"debug", "info", "warn", "error"}
	for _, level := range validLevels {
		if logLevel == level {
			return nil
		}
	}

	return fmt.Errorf("LOG_LEVEL must be one of: %v, got: %s", validLevels, logLevel)
}

// validateLogRetentionWeeks validates the LOG_RETENTION_WEEKS environment variable
func validateLogRetentionWeeks(weeks int) error {
	if weeks <= 0 {
		return fmt.Errorf("LOG_RETENTION_WEEKS must be positive, got: %d", weeks)
	}

	if weeks > 52 {
		return fmt.Errorf("LOG_RETENTION_WEEKS is too large (max 52 weeks), got: %d", weeks)
	}

	return nil
}

// validateMaxLogFileSize validates the MAX_LOG_FILE_SIZE environment variable
func validateMaxLogFileSize(size int64) error {
	// Minimum 1MB, maximum 1GB
	if size < 1024*1024 {
		return fmt.Errorf("MAX_LOG_FILE_SIZE is too small (min 1MB), got: %d bytes", size)
	}

	if size > 1024*1024*1024 {
		return fmt.Errorf("MAX_LOG_FILE_SIZE is too large (max 1GB), got: %d bytes", size)
	}

	return nil
}

// validateSourceURL requires an absolute http(s) URL
func validateSourceURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("cannot parse %q: %w", raw, err)
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("scheme must be http or https, got: %q", u.Scheme)
	}

	if u.Host == "" {
		return fmt.Errorf("host cannot be empty")
	}

	return nil
}

// validateFormatStore checks the backend name and its connection settings
func validateFormatStore(cfg *Config) error {
	switch cfg.FormatStore {
	case StoreFiles:
		if cfg.FormatDir == "" {
			return fmt.Errorf("FORMAT_DIR cannot be empty for the files store")
		}
	case StorePostgres, StoreSQLite:
		if cfg.FormatDSN == "" {
			return fmt.Errorf("FORMAT_DSN is required for the %s store", cfg.FormatStore)
		}
	default:
		return fmt.Errorf("must be one of: %v, got: %s",
			[]string{StoreFiles, StorePostgres, StoreSQLite}, cfg.FormatStore)
	}
	return nil
}

// validateBucket requires the S3 settings once a bucket is named
func validateBucket(cfg *Config) error {
	if cfg.ReferenceBucket == "" {
		return nil
	}

	var missing []string
	if cfg.S3Endpoint == "" {
		missing = append(missing, "S3_ENDPOINT")
	}
	if cfg.S3AccessKey == "" {
		missing = append(missing, "S3_ACCESS_KEY")
	}
	if cfg.S3SecretKey == "" {
		missing = append(missing, "S3_SECRET_KEY")
	}

	if len(missing) > 0 {
		return fmt.Errorf("missing required environment variables: %v", missing)
	}
	return nil
}

// validateRefreshAt validates a gocron At() expression like "06:00;18:00"
func validateRefreshAt(refreshAt string) error {
	for _, at := range strings.Split(refreshAt, ";") {
		if !refreshRegex.MatchString(strings.TrimSpace(at)) {
			return fmt.Errorf("times must be HH:MM separated by ';', got: %s", refreshAt)
		}
	}
	return nil
}

// validatePort validates the PORT environment variable
func validatePort(port string) error {
	if port == "" {
		return fmt.Errorf("PORT cannot be empty")
	}

	portNum, err := strconv.Atoi(port)
	if err != nil {
		return fmt.Errorf("PORT must be a valid number: %w", err)
	}

	if portNum < 1 || portNum > 65535 {
		return fmt.Errorf("PORT must be between 1 and 65535")
	}

	if portNum < 1024 {
		return fmt.Errorf("PORT %d is privileged (less than 1024), use ports 1024-65535", portNum)
	}

	return nil
}

// validateAddress validates the ADDRESS environment variable
func validateAddress(address string) error {
	if address == "" {
		return fmt.Errorf("ADDRESS cannot be empty")
	}

	if address == "127.0.0.1" || address == "::1" || address == "localhost" {
		return nil
	}

	ip := net.ParseIP(address)
	if ip == nil {
		return fmt.Errorf("ADDRESS must be a valid IP address or 'localhost', got: %s", address)
	}

	if !ip.IsLoopback() && !ip.IsPrivate() && !ip.IsUnspecified() {
		return fmt.Errorf("ADDRESS %s is a public IP, consider using private network ranges for security", address)
	}

	return nil
}

// getEnvWithDefault gets an environment variable with a default value
func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getIntEnvWithDefault gets an environment variable as int with a default value
func getIntEnvWithDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getInt64EnvWithDefault gets an environment variable as int64 with a default value
func getInt64EnvWithDefault(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getFloatEnvWithDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getBoolEnvWithDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

// GetEnvVars returns a list of all expected environment variables
func GetEnvVars() []string {
	return []string{
		"ENV", "LOG_LEVEL", "LOG_DIR", "LOG_RETENTION_WEEKS", "MAX_LOG_FILE_SIZE",
		"RUG_SOURCE_URL", "RUG_APP_TOKEN", "RUG_PAGE_SIZE", "RUG_REQUESTS_PER_SECOND",
		"HTTP_TIMEOUT_SECONDS", "OUTPUT_DIR", "REFERENCE_FILE", "REFERENCE_CSV",
		"FORMAT_STORE", "FORMAT_LIBREF", "FORMAT_DIR", "FORMAT_SAS_PATH", "FORMAT_DSN",
		"REFERENCE_BUCKET", "S3_ENDPOINT", "S3_ACCESS_KEY", "S3_SECRET_KEY", "S3_REGION", "S3_USE_SSL", "S3_PREFIX",
		"REFRESH_AT", "PORT", "ADDRESS", "METRICS_TEXTFILE",
	}
}
