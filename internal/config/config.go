package config

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	// Feature flag
	TransferScheduleEnabled bool

	// Moodle database
	DatabaseURL string
	DBPrefix    string
	SiteGuestID int64

	// Fingerprint cache
	TempDir string

	// Load balancer
	BBBServerURL         string
	BBBSharedSecret      string
	BBBChecksumAlgorithm string
	HTTPTimeout          time.Duration

	// Runner
	SyncSchedule   string
	SyncRunOnStart bool
	LockTTL        time.Duration

	// Redis
	RedisURL string

	// Admin API
	Port             string
	JWTSecret        string
	TriggerRateLimit int
}

// fileConfig mirrors Config for the optional YAML file. Environment
// variables take precedence over any value set here.
type fileConfig struct {
	TransferScheduleEnabled *bool  `yaml:"transfer_schedule_enabled"`
	DatabaseURL             string `yaml:"database_url"`
	DBPrefix                string `yaml:"db_prefix"`
	SiteGuestID             *int64 `yaml:"site_guest_id"`
	TempDir                 string `yaml:"temp_dir"`
	BBBServerURL            string `yaml:"bbb_server_url"`
	BBBSharedSecret         string `yaml:"bbb_shared_secret"`
	BBBChecksumAlgorithm    string `yaml:"bbb_checksum_algorithm"`
	HTTPTimeout             string `yaml:"http_timeout"`
	SyncSchedule            string `yaml:"sync_schedule"`
	SyncRunOnStart          *bool  `yaml:"sync_run_on_start"`
	LockTTL                 string `yaml:"lock_ttl"`
	RedisURL                string `yaml:"redis_url"`
	Port                    string `yaml:"port"`
	JWTSecret               string `yaml:"jwt_secret"`
	TriggerRateLimit        *int   `yaml:"trigger_rate_limit"`
}

var prefixPattern = regexp.MustCompile(`^[a-z0-9_]*$`)

var checksumAlgorithms = map[string]bool{
	"sha1":   true,
	"sha256": true,
	"sha384": true,
	"sha512": true,
}

func Load() *Config {
	// Load .env file if it exists
	godotenv.Load()

	fc, err := loadFile(os.Getenv("CONFIG_FILE"))
	if err != nil {
		panic(err)
	}

	cfg := &Config{
		TransferScheduleEnabled: getEnvAsBoolOrDefault("TRANSFER_SCHEDULE_ENABLED", boolOr(fc.TransferScheduleEnabled, false)),
		DatabaseURL:             mustGetEnvOrFile("DATABASE_URL", fc.DatabaseURL),
		DBPrefix:                getEnvOrDefault("DB_PREFIX", stringOr(fc.DBPrefix, "mdl_")),
		SiteGuestID:             int64(getEnvAsIntOrDefault("SITE_GUEST_ID", int(int64Or(fc.SiteGuestID, 1)))),
		TempDir:                 getEnvOrDefault("TEMP_DIR", stringOr(fc.TempDir, os.TempDir())),
		BBBServerURL:            mustGetEnvOrFile("BBB_SERVER_URL", fc.BBBServerURL),
		BBBSharedSecret:         mustGetEnvOrFile("BBB_SHARED_SECRET", fc.BBBSharedSecret),
		BBBChecksumAlgorithm:    strings.ToLower(getEnvOrDefault("BBB_CHECKSUM_ALGORITHM", stringOr(fc.BBBChecksumAlgorithm, "sha1"))),
		HTTPTimeout:             getEnvAsDurationOrDefault("HTTP_TIMEOUT", durationOr(fc.HTTPTimeout, 30*time.Second)),
		SyncSchedule:            getEnvOrDefault("SYNC_SCHEDULE", stringOr(fc.SyncSchedule, "*/5 * * * *")),
		SyncRunOnStart:          getEnvAsBoolOrDefault("SYNC_RUN_ON_START", boolOr(fc.SyncRunOnStart, true)),
		LockTTL:                 getEnvAsDurationOrDefault("LOCK_TTL", durationOr(fc.LockTTL, 10*time.Minute)),
		RedisURL:                getEnvOrDefault("REDIS_URL", fc.RedisURL),
		Port:                    getEnvOrDefault("PORT", stringOr(fc.Port, "8080")),
		JWTSecret:               getEnvOrDefault("JWT_SECRET", fc.JWTSecret),
		TriggerRateLimit:        getEnvAsIntOrDefault("TRIGGER_RATE_LIMIT", intOr(fc.TriggerRateLimit, 6)),
	}

	if err := cfg.Validate(); err != nil {
		panic(err)
	}

	return cfg
}

// Validate rejects values that would otherwise surface as SQL or signing
// errors deep inside a run.
func (c *Config) Validate() error {
	if !prefixPattern.MatchString(c.DBPrefix) {
		return fmt.Errorf("invalid DB_PREFIX %q: only lowercase letters, digits and underscores are allowed", c.DBPrefix)
	}
	if !checksumAlgorithms[c.BBBChecksumAlgorithm] {
		return fmt.Errorf("unsupported BBB_CHECKSUM_ALGORITHM %q", c.BBBChecksumAlgorithm)
	}
	if c.HTTPTimeout <= 0 {
		return fmt.Errorf("HTTP_TIMEOUT must be positive")
	}
	if c.LockTTL <= 0 {
		return fmt.Errorf("LOCK_TTL must be positive")
	}
	return nil
}

// LoadTransferScheduleEnabled reads only the feature flag, so a disabled
// deployment never needs database or load balancer credentials.
func LoadTransferScheduleEnabled() (bool, error) {
	godotenv.Load()

	fc, err := loadFile(os.Getenv("CONFIG_FILE"))
	if err != nil {
		return false, err
	}
	return getEnvAsBoolOrDefault("TRANSFER_SCHEDULE_ENABLED", boolOr(fc.TransferScheduleEnabled, false)), nil
}

// LoadJWTSecret reads only the admin token secret, so tokens can be minted
// on hosts without database or load balancer credentials.
func LoadJWTSecret() (string, error) {
	godotenv.Load()

	fc, err := loadFile(os.Getenv("CONFIG_FILE"))
	if err != nil {
		return "", err
	}
	secret := getEnvOrDefault("JWT_SECRET", fc.JWTSecret)
	if secret == "" {
		return "", fmt.Errorf("JWT_SECRET is not set")
	}
	return secret, nil
}

func loadFile(path string) (fileConfig, error) {
	var fc fileConfig
	if path == "" {
		return fc, nil
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return fc, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(content, &fc); err != nil {
		return fc, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return fc, nil
}

func mustGetEnv(key string) string {
	val := os.Getenv(key)
	if val == "" {
		panic(fmt.Sprintf("required environment variable %s is not set", key))
	}
	return val
}

func mustGetEnvOrFile(key, fileVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	if fileVal != "" {
		return fileVal
	}
	return mustGetEnv(key)
}

func getEnvOrDefault(key, defaultVal string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func getEnvAsIntOrDefault(key string, defaultVal int) int {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return n
}

func getEnvAsBoolOrDefault(key string, defaultVal bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return defaultVal
	}
	return b
}

func getEnvAsDurationOrDefault(key string, defaultVal time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return defaultVal
	}
	return d
}

func stringOr(val, fallback string) string {
	if val == "" {
		return fallback
	}
	return val
}

func boolOr(val *bool, fallback bool) bool {
	if val == nil {
		return fallback
	}
	return *val
}

func intOr(val *int, fallback int) int {
	if val == nil {
		return fallback
	}
	return *val
}

func int64Or(val *int64, fallback int64) int64 {
	if val == nil {
		return fallback
	}
	return *val
}

func durationOr(val string, fallback time.Duration) time.Duration {
	if val == "" {
		return fallback
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return fallback
	}
	return d
}
