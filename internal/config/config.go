package config

import (
	"fmt"
	"os"
	"reflect"
	"regexp"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

// Config captures the runtime configuration for the billing service.
type Config struct {
	Server        ServerConfig        `mapstructure:"server"`
	Database      DatabaseConfig      `mapstructure:"database"`
	Redis         RedisConfig         `mapstructure:"redis"`
	RateLimits    RateLimitConfig     `mapstructure:"rate_limits"`
	Reporting     ReportingConfig     `mapstructure:"reporting"`
	Cache         CacheConfig         `mapstructure:"cache"`
	Observability ObservabilityConfig `mapstructure:"observability"`
}

type ServerConfig struct {
	ListenAddr            string        `mapstructure:"listen_addr"`
	BodyLimitMB           int           `mapstructure:"body_limit_mb"`
	ReadTimeout           time.Duration `mapstructure:"read_timeout"`
	WriteTimeout          time.Duration `mapstructure:"write_timeout"`
	GracefulShutdownDelay time.Duration `mapstructure:"graceful_shutdown_delay"`
}

type DatabaseConfig struct {
	URL             string        `mapstructure:"url"`
	RunMigrations   bool          `mapstructure:"run_migrations"`
	MigrationsDir   string        `mapstructure:"migrations_dir"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MaxConnIdleTime time.Duration `mapstructure:"max_conn_idle_time"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
	MinConns        int32         `mapstructure:"min_conns"`
}

type RedisConfig struct {
	URL      string `mapstructure:"url"`
	DB       int    `mapstructure:"db"`
	PoolSize int    `mapstructure:"pool_size"`
}

type RateLimitConfig struct {
	RequestsPerMinute int `mapstructure:"requests_per_minute"`
	ParallelRequests  int `mapstructure:"parallel_requests"`
}

// ReportingConfig holds the domain knobs: the reporting timezone, the
// result-code allow-list that defines a billable call, the event-log table
// name, and pagination bounds.
type ReportingConfig struct {
	Timezone         string   `mapstructure:"timezone"`
	ValidResultCodes []string `mapstructure:"valid_result_codes"`
	EventsTable      string   `mapstructure:"events_table"`
	DefaultPageSize  int      `mapstructure:"default_page_size"`
	MaxPageSize      int      `mapstructure:"max_page_size"`
}

type CacheConfig struct {
	QueryTTL          time.Duration `mapstructure:"query_ttl"`
	BillingTTL        time.Duration `mapstructure:"billing_ttl"`
	ReconciliationTTL time.Duration `mapstructure:"reconciliation_ttl"`
	AnalyticsTTL      time.Duration `mapstructure:"analytics_ttl"`
}

type ObservabilityConfig struct {
	EnableMetrics bool `mapstructure:"enable_metrics"`
}

// Options controls the config loader behavior.
type Options struct {
	ConfigFile string
	EnvFile    string
}

// identifierPattern is the allow-list for the configurable events table name.
// The name is interpolated into SQL, so anything outside a plain identifier
// is rejected at load time.
var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Load returns the merged configuration sourced from YAML and environment variables.
func Load(opts Options) (*Config, error) {
	if opts.EnvFile != "" {
		_ = godotenv.Load(opts.EnvFile)
	} else {
		_ = godotenv.Load()
	}

	v := viper.New()
	setDefaults(v)

	explicitFile := false
	if opts.ConfigFile != "" {
		v.SetConfigFile(opts.ConfigFile)
		explicitFile = true
	} else {
		if cfg := os.Getenv("BILLINGD_CONFIG_FILE"); cfg != "" {
			v.SetConfigFile(cfg)
			explicitFile = true
		}
	}

	if !explicitFile {
		// Allow standard lookup locations when no explicit file is provided.
		v.SetConfigName("billingd")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	v.SetEnvPrefix("BILLINGD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg, viper.DecodeHook(timeStringToDurationHook())); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate ensures required values are set and normalizes defaults.
func (c *Config) Validate() error {
	var missing []string

	if c.Database.URL == "" {
		missing = append(missing, "BILLINGD_DATABASE_URL")
	}
	if c.Redis.URL == "" {
		missing = append(missing, "BILLINGD_REDIS_URL")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
	}

	if c.RateLimits.RequestsPerMinute <= 0 {
		return fmt.Errorf("rate_limits.requests_per_minute must be > 0")
	}
	if c.RateLimits.ParallelRequests <= 0 {
		return fmt.Errorf("rate_limits.parallel_requests must be > 0")
	}

	if c.Database.RunMigrations && c.Database.MigrationsDir == "" {
		return fmt.Errorf("database.migrations_dir must be provided when run_migrations is true")
	}
	if c.Database.MaxConns < 0 {
		return fmt.Errorf("database.max_conns must be >= 0")
	}
	if c.Redis.PoolSize < 0 {
		return fmt.Errorf("redis.pool_size must be >= 0")
	}

	reportingTZ := strings.TrimSpace(c.Reporting.Timezone)
	if reportingTZ == "" {
		reportingTZ = "UTC"
	}
	if _, err := time.LoadLocation(reportingTZ); err != nil {
		return fmt.Errorf("invalid reporting.timezone: %w", err)
	}
	c.Reporting.Timezone = reportingTZ

	c.Reporting.ValidResultCodes = normalizeStringSlice(c.Reporting.ValidResultCodes)
	if len(c.Reporting.ValidResultCodes) == 0 {
		return fmt.Errorf("reporting.valid_result_codes must list at least one code")
	}

	table := strings.TrimSpace(c.Reporting.EventsTable)
	if !identifierPattern.MatchString(table) {
		return fmt.Errorf("reporting.events_table %q is not a plain SQL identifier", c.Reporting.EventsTable)
	}
	c.Reporting.EventsTable = table

	if c.Reporting.DefaultPageSize < 1 {
		return fmt.Errorf("reporting.default_page_size must be >= 1")
	}
	if c.Reporting.MaxPageSize < c.Reporting.DefaultPageSize {
		return fmt.Errorf("reporting.max_page_size must be >= reporting.default_page_size")
	}

	if c.Cache.QueryTTL <= 0 || c.Cache.BillingTTL <= 0 || c.Cache.ReconciliationTTL <= 0 || c.Cache.AnalyticsTTL <= 0 {
		return fmt.Errorf("cache TTLs must all be > 0")
	}

	return nil
}

// Location resolves the validated reporting timezone.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Reporting.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.listen_addr", ":8080")
	v.SetDefault("server.body_limit_mb", 4)
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.graceful_shutdown_delay", "5s")

	// Empty defaults register the env-only keys with viper so AutomaticEnv
	// can fill them during Unmarshal.
	v.SetDefault("database.url", "")
	v.SetDefault("redis.url", "")

	v.SetDefault("database.run_migrations", true)
	v.SetDefault("database.migrations_dir", "./migrations")
	v.SetDefault("database.max_conns", 20)
	v.SetDefault("database.min_conns", 2)
	v.SetDefault("database.max_conn_idle_time", "10m")
	v.SetDefault("database.max_conn_lifetime", "1h")

	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.pool_size", 20)

	v.SetDefault("rate_limits.requests_per_minute", 300)
	v.SetDefault("rate_limits.parallel_requests", 20)

	v.SetDefault("reporting.timezone", "UTC")
	v.SetDefault("reporting.valid_result_codes", []string{
		"0", "200004", "210001", "210002", "210004", "210005", "210006", "210009",
	})
	v.SetDefault("reporting.events_table", "auth_events")
	v.SetDefault("reporting.default_page_size", 20)
	v.SetDefault("reporting.max_page_size", 100)

	v.SetDefault("cache.query_ttl", "5m")
	v.SetDefault("cache.billing_ttl", "1h")
	v.SetDefault("cache.reconciliation_ttl", "30m")
	v.SetDefault("cache.analytics_ttl", "10m")

	v.SetDefault("observability.enable_metrics", true)
}

func normalizeStringSlice(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	clean := make([]string, 0, len(values))
	for _, v := range values {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			clean = append(clean, trimmed)
		}
	}
	if len(clean) == 0 {
		return nil
	}
	return clean
}

func timeStringToDurationHook() mapstructure.DecodeHookFunc {
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != reflect.TypeOf(time.Duration(0)) {
			return data, nil
		}

		switch v := data.(type) {
		case time.Duration:
			return v, nil
		case string:
			d, err := time.ParseDuration(v)
			if err != nil {
				return nil, err
			}
			return d, nil
		default:
			return nil, fmt.Errorf("cannot decode %T into time.Duration", data)
		}
	}
}
