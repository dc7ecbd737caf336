package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	// Bloque app (opcional en YAML). Si no está, queda con defaults.
	App struct {
		// dev | staging | prod
		Env      string `yaml:"app_env"`
		LogLevel string `yaml:"log_level"`
	} `yaml:"app"`

	// Server expone solo /readyz y /metrics.
	Server struct {
		Addr string `yaml:"addr"`
	} `yaml:"server"`

	Storage struct {
		// postgres | memory
		Driver   string `yaml:"driver"`
		DSN      string `yaml:"dsn"`
		Migrate  bool   `yaml:"migrate"`
		Postgres struct {
			MaxOpenConns int `yaml:"max_open_conns"`
			MaxIdleConns int `yaml:"max_idle_conns"`
		} `yaml:"postgres"`
	} `yaml:"storage"`

	Cache struct {
		// memory | redis
		Kind  string `yaml:"kind"`
		Redis struct {
			Addr     string `yaml:"addr"`
			Password string `yaml:"password"`
			DB       int    `yaml:"db"`
			Prefix   string `yaml:"prefix"`
		} `yaml:"redis"`
		Memory struct {
			DefaultTTL time.Duration `yaml:"default_ttl"`
		} `yaml:"memory"`
	} `yaml:"cache"`

	Distribution struct {
		PageSize int `yaml:"page_size"`
		// 0 = runtime.GOMAXPROCS(0)
		Workers int `yaml:"workers"`
		// best-effort | fail-fast
		FailurePolicy string `yaml:"failure_policy"`
		// Semilla fija para runs reproducibles. nil = aleatoria por run.
		Seed *uint64 `yaml:"seed"`
		// Escrituras por segundo hacia el store. 0 = sin límite.
		WriteRate  float64 `yaml:"write_rate"`
		WriteBurst int     `yaml:"write_burst"`
		// Fallas consecutivas que abren el breaker. 0 = deshabilitado.
		BreakerThreshold uint32        `yaml:"breaker_threshold"`
		BreakerTimeout   time.Duration `yaml:"breaker_timeout"`
		LockTTL          time.Duration `yaml:"lock_ttl"`
		SegmentCacheTTL  time.Duration `yaml:"segment_cache_ttl"`
	} `yaml:"distribution"`
}

// Load lee path (si no es vacío), aplica defaults y overrides de entorno.
// Un path inexistente no es error: se usan defaults + entorno.
func Load(path string) (*Config, error) {
	var c Config
	if path != "" {
		b, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(b, &c); err != nil {
				return nil, fmt.Errorf("config: parse %s: %w", path, err)
			}
		case errors.Is(err, os.ErrNotExist):
		default:
			return nil, err
		}
	}

	c.applyDefaults()
	c.applyEnvOverrides()

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// applyDefaults completa valores vacíos.
func (c *Config) applyDefaults() {
	if c.App.Env == "" {
		c.App.Env = "dev"
	}
	if c.App.LogLevel == "" {
		c.App.LogLevel = "info"
	}
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Storage.Driver == "" {
		c.Storage.Driver = "postgres"
	}
	if c.Cache.Kind == "" {
		c.Cache.Kind = "memory"
	}
	if c.Cache.Memory.DefaultTTL == 0 {
		c.Cache.Memory.DefaultTTL = 2 * time.Minute
	}
	if c.Cache.Redis.Prefix == "" {
		c.Cache.Redis.Prefix = "segmentation"
	}
	d := &c.Distribution
	if d.PageSize == 0 {
		d.PageSize = 100
	}
	if d.FailurePolicy == "" {
		d.FailurePolicy = "best-effort"
	}
	if d.WriteBurst == 0 {
		d.WriteBurst = 1
	}
	if d.BreakerTimeout == 0 {
		d.BreakerTimeout = 30 * time.Second
	}
	if d.LockTTL == 0 {
		d.LockTTL = 30 * time.Minute
	}
	if d.SegmentCacheTTL == 0 {
		d.SegmentCacheTTL = time.Minute
	}
}

// ---- Helpers env ----

func getEnvStr(key string) (string, bool) {
	v := os.Getenv(key)
	return v, v != ""
}
func getEnvInt(key string) (int, bool) {
	if s, ok := getEnvStr(key); ok {
		if i, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
			return i, true
		}
	}
	return 0, false
}
func getEnvUint(key string) (uint64, bool) {
	if s, ok := getEnvStr(key); ok {
		if i, err := strconv.ParseUint(strings.TrimSpace(s), 10, 64); err == nil {
			return i, true
		}
	}
	return 0, false
}
func getEnvFloat(key string) (float64, bool) {
	if s, ok := getEnvStr(key); ok {
		if f, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
			return f, true
		}
	}
	return 0, false
}
func getEnvBool(key string) (bool, bool) {
	if s, ok := getEnvStr(key); ok {
		if b, err := strconv.ParseBool(strings.TrimSpace(s)); err == nil {
			return b, true
		}
	}
	return false, false
}
func getEnvDur(key string) (time.Duration, bool) {
	if s, ok := getEnvStr(key); ok {
		if d, err := time.ParseDuration(strings.TrimSpace(s)); err == nil {
			return d, true
		}
	}
	return 0, false
}

// applyEnvOverrides: pisa el YAML con variables de entorno.
func (c *Config) applyEnvOverrides() {
	// APP
	if v, ok := getEnvStr("APP_ENV"); ok {
		c.App.Env = strings.ToLower(v)
	}
	if v, ok := getEnvStr("LOG_LEVEL"); ok {
		c.App.LogLevel = v
	}

	// SERVER
	if v, ok := getEnvStr("SERVER_ADDR"); ok {
		c.Server.Addr = v
	}

	// STORAGE
	if v, ok := getEnvStr("STORAGE_DRIVER"); ok {
		c.Storage.Driver = strings.ToLower(v)
	}
	if v, ok := getEnvStr("STORAGE_DSN"); ok {
		c.Storage.DSN = v
	}
	if v, ok := getEnvBool("STORAGE_MIGRATE"); ok {
		c.Storage.Migrate = v
	}
	if v, ok := getEnvInt("POSTGRES_MAX_OPEN_CONNS"); ok {
		c.Storage.Postgres.MaxOpenConns = v
	}
	if v, ok := getEnvInt("POSTGRES_MAX_IDLE_CONNS"); ok {
		c.Storage.Postgres.MaxIdleConns = v
	}

	// CACHE
	if v, ok := getEnvStr("CACHE_KIND"); ok {
		c.Cache.Kind = strings.ToLower(v)
	}
	if v, ok := getEnvStr("REDIS_ADDR"); ok {
		c.Cache.Redis.Addr = v
	}
	if v, ok := getEnvStr("REDIS_PASSWORD"); ok {
		c.Cache.Redis.Password = v
	}
	if v, ok := getEnvInt("REDIS_DB"); ok {
		c.Cache.Redis.DB = v
	}
	if v, ok := getEnvStr("REDIS_PREFIX"); ok {
		c.Cache.Redis.Prefix = v
	}
	if v, ok := getEnvDur("CACHE_MEMORY_DEFAULT_TTL"); ok {
		c.Cache.Memory.DefaultTTL = v
	}

	// DISTRIBUTION
	d := &c.Distribution
	if v, ok := getEnvInt("DISTRIBUTION_PAGE_SIZE"); ok {
		d.PageSize = v
	}
	if v, ok := getEnvInt("DISTRIBUTION_WORKERS"); ok {
		d.Workers = v
	}
	if v, ok := getEnvStr("DISTRIBUTION_FAILURE_POLICY"); ok {
		d.FailurePolicy = strings.ToLower(v)
	}
	if v, ok := getEnvUint("DISTRIBUTION_SEED"); ok {
		d.Seed = &v
	}
	if v, ok := getEnvFloat("DISTRIBUTION_WRITE_RATE"); ok {
		d.WriteRate = v
	}
	if v, ok := getEnvInt("DISTRIBUTION_WRITE_BURST"); ok {
		d.WriteBurst = v
	}
	if v, ok := getEnvInt("DISTRIBUTION_BREAKER_THRESHOLD"); ok && v >= 0 {
		d.BreakerThreshold = uint32(v)
	}
	if v, ok := getEnvDur("DISTRIBUTION_BREAKER_TIMEOUT"); ok {
		d.BreakerTimeout = v
	}
	if v, ok := getEnvDur("DISTRIBUTION_LOCK_TTL"); ok {
		d.LockTTL = v
	}
	if v, ok := getEnvDur("DISTRIBUTION_SEGMENT_CACHE_TTL"); ok {
		d.SegmentCacheTTL = v
	}
}

// Validate verifica los valores críticos de la configuración.
func (c *Config) Validate() error {
	var errs []error

	switch c.Storage.Driver {
	case "postgres":
		if c.Storage.DSN == "" {
			errs = append(errs, errors.New("storage.dsn is required for postgres"))
		}
	case "memory":
	default:
		errs = append(errs, fmt.Errorf("storage.driver %q not supported", c.Storage.Driver))
	}

	switch c.Cache.Kind {
	case "memory", "redis":
	default:
		errs = append(errs, fmt.Errorf("cache.kind %q not supported", c.Cache.Kind))
	}

	d := c.Distribution
	if d.PageSize <= 0 {
		errs = append(errs, errors.New("distribution.page_size must be > 0"))
	}
	if d.Workers < 0 {
		errs = append(errs, errors.New("distribution.workers must be >= 0"))
	}
	switch d.FailurePolicy {
	case "best-effort", "fail-fast":
	default:
		errs = append(errs, fmt.Errorf("distribution.failure_policy %q not supported", d.FailurePolicy))
	}
	if d.WriteRate < 0 {
		errs = append(errs, errors.New("distribution.write_rate must be >= 0"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config: %w", errors.Join(errs...))
	}
	return nil
}
