// Package config loads runtime settings: built-in defaults, then an optional
// YAML file, then a .env file, then ENVMON_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/samber/lo"
	"gopkg.in/yaml.v3"

	"envmon/internal/blob"
	redisstore "envmon/internal/infra/kv/redis"
	"envmon/internal/kv"
	kvcore "envmon/internal/kv/core"
)

// DefaultPath is read when ENVMON_CONFIG is unset. A missing file is not an
// error.
const DefaultPath = "envmon.yaml"

// Config holds all envmon settings.
type Config struct {
	Storage  StorageConfig `yaml:"storage"`
	Blob     blob.Config   `yaml:"blob"`
	Log      LogConfig     `yaml:"log"`
	Metrics  MetricsConfig `yaml:"metrics"`
	Reports  ReportsConfig `yaml:"reports"`
	Operator string        `yaml:"operator"` // recorded on calibrations
}

// StorageConfig selects the persistence backend.
type StorageConfig struct {
	Driver        string `yaml:"driver"` // memory, sqlite, postgres, redis
	SQLitePath    string `yaml:"sqlite_path"`
	PostgresDSN   string `yaml:"postgres_dsn"`
	RedisAddr     string `yaml:"redis_addr"`
	RedisPassword string `yaml:"redis_password"`
	RedisDB       int    `yaml:"redis_db"`
}

type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, console
}

type MetricsConfig struct {
	Addr string `yaml:"addr"` // empty disables the endpoint
}

type ReportsConfig struct {
	// StageScale multiplies the progress stage delays; 0 skips them.
	StageScale float64 `yaml:"stage_scale"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Storage: StorageConfig{
			Driver:     string(kvcore.DriverSQLite),
			SQLitePath: "envmon.db",
		},
		Blob: blob.Config{
			Driver: blob.DriverFilesystem,
			FSRoot: "./blobdata",
		},
		Log:      LogConfig{Level: "info", Format: "console"},
		Reports:  ReportsConfig{StageScale: 1},
		Operator: "系統用戶",
	}
}

// Load resolves the configuration. path overrides ENVMON_CONFIG; both empty
// means DefaultPath.
func Load(path string) (Config, error) {
	_ = godotenv.Load()

	cfg := Default()
	path = lo.Ternary(path != "", path, getEnv("ENVMON_CONFIG", DefaultPath))
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	case !errors.Is(err, os.ErrNotExist):
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}
	applyEnv(&cfg)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	cfg.Storage.Driver = getEnv("ENVMON_STORAGE_DRIVER", cfg.Storage.Driver)
	cfg.Storage.SQLitePath = getEnv("ENVMON_SQLITE_PATH", cfg.Storage.SQLitePath)
	cfg.Storage.PostgresDSN = getEnv("ENVMON_POSTGRES_DSN", cfg.Storage.PostgresDSN)
	cfg.Storage.RedisAddr = getEnv("ENVMON_REDIS_ADDR", cfg.Storage.RedisAddr)
	cfg.Storage.RedisPassword = getEnv("ENVMON_REDIS_PASSWORD", cfg.Storage.RedisPassword)
	cfg.Storage.RedisDB = getInt("ENVMON_REDIS_DB", cfg.Storage.RedisDB)

	cfg.Blob.Driver = blob.Driver(getEnv("ENVMON_BLOB_DRIVER", string(cfg.Blob.Driver)))
	cfg.Blob.FSRoot = getEnv("ENVMON_BLOB_FS_ROOT", cfg.Blob.FSRoot)
	cfg.Blob.S3.Bucket = getEnv("ENVMON_BLOB_S3_BUCKET", cfg.Blob.S3.Bucket)
	cfg.Blob.S3.Region = getEnv("ENVMON_BLOB_S3_REGION", cfg.Blob.S3.Region)
	cfg.Blob.S3.Endpoint = getEnv("ENVMON_BLOB_S3_ENDPOINT", cfg.Blob.S3.Endpoint)
	cfg.Blob.S3.PathStyle = getBool("ENVMON_BLOB_S3_PATH_STYLE", cfg.Blob.S3.PathStyle)
	cfg.Blob.S3.AccessKeyID = getEnv("ENVMON_BLOB_S3_ACCESS_KEY_ID", cfg.Blob.S3.AccessKeyID)
	cfg.Blob.S3.SecretAccessKey = getEnv("ENVMON_BLOB_S3_SECRET_ACCESS_KEY", cfg.Blob.S3.SecretAccessKey)

	cfg.Log.Level = getEnv("ENVMON_LOG_LEVEL", cfg.Log.Level)
	cfg.Log.Format = getEnv("ENVMON_LOG_FORMAT", cfg.Log.Format)
	cfg.Metrics.Addr = getEnv("ENVMON_METRICS_ADDR", cfg.Metrics.Addr)
	cfg.Reports.StageScale = getFloat("ENVMON_REPORT_STAGE_SCALE", cfg.Reports.StageScale)
	cfg.Operator = getEnv("ENVMON_OPERATOR", cfg.Operator)
}

// Validate rejects unknown drivers and formats.
func (c Config) Validate() error {
	switch kvcore.Driver(c.Storage.Driver) {
	case kvcore.DriverMemory, kvcore.DriverSQLite, kvcore.DriverPostgres, kvcore.DriverRedis:
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}
	switch c.Blob.Driver {
	case blob.DriverFilesystem, blob.DriverS3, blob.DriverMemory:
	default:
		return fmt.Errorf("unknown blob driver %q", c.Blob.Driver)
	}
	if !lo.Contains([]string{"json", "console"}, strings.ToLower(c.Log.Format)) {
		return fmt.Errorf("unknown log format %q", c.Log.Format)
	}
	if c.Reports.StageScale < 0 {
		return fmt.Errorf("report stage scale must not be negative")
	}
	return nil
}

// KV translates the storage section for kv.Open.
func (c Config) KV() kv.Config {
	return kv.Config{
		Driver:      kvcore.Driver(c.Storage.Driver),
		SQLitePath:  c.Storage.SQLitePath,
		PostgresDSN: c.Storage.PostgresDSN,
		Redis: redisstore.Config{
			Addr:     c.Storage.RedisAddr,
			Password: c.Storage.RedisPassword,
			DB:       c.Storage.RedisDB,
		},
	}
}

func getEnv(key, def string) string {
	v := strings.TrimSpace(os.Getenv(key))
	return lo.Ternary(v != "", v, def)
}

func getInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func getFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}
