package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
// ⭐ SSOT: 모든 환경변수는 여기서만 읽음
type Config struct {
	Env string // development, staging, production

	// Inputs / outputs
	Paths PathsConfig

	// Model run config (YAML)
	ModelConfigPath string

	// Artifact store backend: file | redis
	ArtifactBackend string

	// Cron expression for the schedule command
	Schedule string

	// Database (optional sink)
	Database DatabaseConfig

	// Redis (optional artifact backend)
	Redis RedisConfig

	// Logging
	LogLevel  string
	LogFormat string
}

// PathsConfig 입력 테이블과 출력 디렉터리
type PathsConfig struct {
	SegmentFile  string
	MacroFile    string
	ScenarioFile string
	ArtifactDir  string // 모델/피처셋
	OutputDir    string // CSV, 차트
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	Enabled  bool
	Prefix   string
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	URL string

	// Connection Pool
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// Enabled reports whether a database sink is configured
func (d DatabaseConfig) Enabled() bool {
	return d.URL != ""
}

// Load reads configuration from environment variables
// ⭐ SSOT: 이 함수만 os.Getenv()를 호출함
func Load() (*Config, error) {
	// Try multiple paths for .env file
	loadEnvFile()

	cfg := &Config{
		Env: getEnv("ENV", "development"),

		Paths: PathsConfig{
			SegmentFile:  getEnv("CCF_SEGMENT_FILE", "data/indicateurs_segments.csv"),
			MacroFile:    getEnv("CCF_MACRO_FILE", "data/macro_history.xlsx"),
			ScenarioFile: getEnv("CCF_SCENARIO_FILE", "data/macro_scenarios.xlsx"),
			ArtifactDir:  getEnv("CCF_ARTIFACT_DIR", "models"),
			OutputDir:    getEnv("CCF_OUTPUT_DIR", "outputs"),
		},

		ModelConfigPath: getEnv("CCF_MODEL_CONFIG", ""),
		ArtifactBackend: getEnv("CCF_ARTIFACT_BACKEND", "file"),
		Schedule:        getEnv("CCF_SCHEDULE", "0 6 1 */3 *"),

		// Database
		Database: DatabaseConfig{
			URL:             getEnv("DATABASE_URL", ""),
			MaxConns:        getEnvAsInt("DB_MAX_CONNS", 10),
			MinConns:        getEnvAsInt("DB_MIN_CONNS", 1),
			MaxConnLifetime: getEnvAsDuration("DB_MAX_CONN_LIFETIME", "1h"),
			MaxConnIdleTime: getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", "30m"),
		},

		// Redis
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			Enabled:  getEnvAsBool("REDIS_ENABLED", false),
			Prefix:   getEnv("REDIS_PREFIX", "ccf"),
		},

		// Logging
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),
	}

	// Validate configuration
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// validate checks if required configuration values are set
func (c *Config) validate() error {
	// Validate environment
	if c.Env != "development" && c.Env != "staging" && c.Env != "production" {
		return fmt.Errorf("ENV must be one of: development, staging, production")
	}

	switch c.ArtifactBackend {
	case "file":
	case "redis":
		if !c.Redis.Enabled {
			return fmt.Errorf("CCF_ARTIFACT_BACKEND=redis requires REDIS_ENABLED=true")
		}
	default:
		return fmt.Errorf("CCF_ARTIFACT_BACKEND must be one of: file, redis")
	}

	if c.Paths.ArtifactDir == "" || c.Paths.OutputDir == "" {
		return fmt.Errorf("CCF_ARTIFACT_DIR and CCF_OUTPUT_DIR must not be empty")
	}

	return nil
}

// Helper functions (private, only used within this file)

// loadEnvFile tries to load .env from multiple locations
func loadEnvFile() {
	// Try paths in order of priority
	paths := []string{
		".env", // Current directory
	}

	// Also try relative to executable
	if exe, err := os.Executable(); err == nil {
		exeDir := filepath.Dir(exe)
		paths = append(paths,
			filepath.Join(exeDir, ".env"),
			filepath.Join(exeDir, "..", ".env"),
		)
	}

	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			_ = godotenv.Load(path)
			return
		}
	}
}

// LoadEnvFile loads an explicit .env file (the --config flag)
func LoadEnvFile(path string) error {
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load env file %s: %w", path, err)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		valueStr = defaultValue
	}

	duration, err := time.ParseDuration(valueStr)
	if err != nil {
		// Fallback to default
		duration, _ = time.ParseDuration(defaultValue)
	}

	return duration
}
