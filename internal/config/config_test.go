package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestGetEnvOrDefault(t *testing.T) {
	tests := []struct {
		name       string
		key        string
		envValue   string
		defaultVal string
		expected   string
	}{
		{"uses env value", "TEST_VAR_1", "hello", "default", "hello"},
		{"uses default when empty", "TEST_VAR_2", "", "default", "default"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if tc.envValue != "" {
				os.Setenv(tc.key, tc.envValue)
				defer os.Unsetenv(tc.key)
			}

			result := getEnvOrDefault(tc.key, tc.defaultVal)
			if result != tc.expected {
				t.Errorf("Expected %q, got %q", tc.expected, result)
			}
		})
	}
}

func TestGetEnvAsIntOrDefault(t *testing.T) {
	tests := []struct {
		name       string
		key        string
		envValue   string
		defaultVal int
		expected   int
	}{
		{"parses integer", "TEST_INT_1", "42", 10, 42},
		{"uses default for empty", "TEST_INT_2", "", 10, 10},
		{"uses default for non-numeric", "TEST_INT_3", "abc", 10, 10},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if tc.envValue != "" {
				os.Setenv(tc.key, tc.envValue)
				defer os.Unsetenv(tc.key)
			}

			result := getEnvAsIntOrDefault(tc.key, tc.defaultVal)
			if result != tc.expected {
				t.Errorf("Expected %d, got %d", tc.expected, result)
			}
		})
	}
}

func TestGetEnvAsBoolOrDefault(t *testing.T) {
	tests := []struct {
		name       string
		envValue   string
		defaultVal bool
		expected   bool
	}{
		{"parses true", "true", false, true},
		{"parses 0", "0", true, false},
		{"uses default for empty", "", true, true},
		{"uses default for garbage", "maybe", false, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv("TEST_BOOL", tc.envValue)

			if got := getEnvAsBoolOrDefault("TEST_BOOL", tc.defaultVal); got != tc.expected {
				t.Errorf("Expected %v, got %v", tc.expected, got)
			}
		})
	}
}

func TestGetEnvAsDurationOrDefault(t *testing.T) {
	t.Setenv("TEST_DURATION", "45s")
	if got := getEnvAsDurationOrDefault("TEST_DURATION", time.Second); got != 45*time.Second {
		t.Errorf("Expected 45s, got %s", got)
	}

	t.Setenv("TEST_DURATION", "soon")
	if got := getEnvAsDurationOrDefault("TEST_DURATION", time.Second); got != time.Second {
		t.Errorf("Expected fallback 1s, got %s", got)
	}
}

func TestMustGetEnv_Panics(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("Expected panic for missing required env var")
		}
	}()

	os.Unsetenv("NONEXISTENT_REQUIRED_VAR")
	mustGetEnv("NONEXISTENT_REQUIRED_VAR")
}

func TestMustGetEnv_ReturnsValue(t *testing.T) {
	os.Setenv("TEST_REQUIRED", "value123")
	defer os.Unsetenv("TEST_REQUIRED")

	result := mustGetEnv("TEST_REQUIRED")
	if result != "value123" {
		t.Errorf("Expected 'value123', got %q", result)
	}
}

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("DATABASE_URL", "postgres://moodle@localhost/moodle")
	t.Setenv("BBB_SERVER_URL", "https://lb.example.com/bigbluebutton/")
	t.Setenv("BBB_SHARED_SECRET", "secret")
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("TRANSFER_SCHEDULE_ENABLED", "")
	t.Setenv("DB_PREFIX", "")
	t.Setenv("BBB_CHECKSUM_ALGORITHM", "")
	t.Setenv("HTTP_TIMEOUT", "")
	t.Setenv("SYNC_SCHEDULE", "")
	t.Setenv("LOCK_TTL", "")
}

func TestLoad_Defaults(t *testing.T) {
	setRequired(t)

	cfg := Load()

	if cfg.TransferScheduleEnabled {
		t.Errorf("Expected transfer to be disabled by default")
	}
	if cfg.DBPrefix != "mdl_" {
		t.Errorf("Expected default prefix mdl_, got %q", cfg.DBPrefix)
	}
	if cfg.BBBChecksumAlgorithm != "sha1" {
		t.Errorf("Expected sha1, got %q", cfg.BBBChecksumAlgorithm)
	}
	if cfg.HTTPTimeout != 30*time.Second {
		t.Errorf("Expected 30s timeout, got %s", cfg.HTTPTimeout)
	}
	if cfg.SyncSchedule != "*/5 * * * *" {
		t.Errorf("Expected default schedule, got %q", cfg.SyncSchedule)
	}
}

func TestLoad_FileValuesAreOverriddenByEnv(t *testing.T) {
	setRequired(t)

	path := filepath.Join(t.TempDir(), "sync.yaml")
	content := []byte(`
transfer_schedule_enabled: true
db_prefix: moodle_
http_timeout: 5s
sync_schedule: "0 * * * *"
`)
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	t.Setenv("CONFIG_FILE", path)
	t.Setenv("SYNC_SCHEDULE", "*/10 * * * *")

	cfg := Load()

	if !cfg.TransferScheduleEnabled {
		t.Errorf("Expected flag from file to enable transfer")
	}
	if cfg.DBPrefix != "moodle_" {
		t.Errorf("Expected prefix from file, got %q", cfg.DBPrefix)
	}
	if cfg.HTTPTimeout != 5*time.Second {
		t.Errorf("Expected 5s timeout from file, got %s", cfg.HTTPTimeout)
	}
	if cfg.SyncSchedule != "*/10 * * * *" {
		t.Errorf("Expected env schedule to win, got %q", cfg.SyncSchedule)
	}
}

func TestValidate(t *testing.T) {
	base := Config{
		DBPrefix:             "mdl_",
		BBBChecksumAlgorithm: "sha256",
		HTTPTimeout:          time.Second,
		LockTTL:              time.Minute,
	}

	if err := base.Validate(); err != nil {
		t.Fatalf("Expected valid config, got %v", err)
	}

	badPrefix := base
	badPrefix.DBPrefix = "mdl; DROP TABLE"
	if err := badPrefix.Validate(); err == nil {
		t.Errorf("Expected invalid prefix to be rejected")
	}

	badAlgo := base
	badAlgo.BBBChecksumAlgorithm = "md5"
	if err := badAlgo.Validate(); err == nil {
		t.Errorf("Expected md5 to be rejected")
	}
}

func TestLoadJWTSecret(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("JWT_SECRET", "")

	if _, err := LoadJWTSecret(); err == nil {
		t.Errorf("Expected error when JWT_SECRET is unset")
	}

	t.Setenv("JWT_SECRET", "admin-secret")
	secret, err := LoadJWTSecret()
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if secret != "admin-secret" {
		t.Errorf("Expected admin-secret, got %q", secret)
	}
}

func TestLoadTransferScheduleEnabled(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("DATABASE_URL", "")

	t.Setenv("TRANSFER_SCHEDULE_ENABLED", "")
	enabled, err := LoadTransferScheduleEnabled()
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if enabled {
		t.Errorf("Expected flag to default to false")
	}

	t.Setenv("TRANSFER_SCHEDULE_ENABLED", "true")
	if enabled, _ := LoadTransferScheduleEnabled(); !enabled {
		t.Errorf("Expected flag to be read from env")
	}
}
