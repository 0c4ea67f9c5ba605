package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
	"golang.org/x/text/currency"
)

// Config holds all application configuration
type Config struct {
	App         AppConfig
	Database    DatabaseConfig
	Redis       RedisConfig
	JWT         JWTConfig
	Log         LogConfig
	HTTP        HTTPConfig
	AccessScope AccessScopeConfig
	Currency    CurrencyConfig
	Reminder    ReminderConfig
	Mailgun     MailgunConfig
	RabbitMQ    RabbitMQConfig
	Storage     StorageConfig
	Telemetry   TelemetryConfig
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name string
	Env  string
	Port string
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Host              string
	Port              int
	User              string
	Password          string
	DBName            string
	SSLMode           string
	MaxOpenConns      int
	MaxIdleConns      int
	ConnMaxLifetime   int // in minutes
	ConnMaxIdleTime   int // in minutes
	SlowQueryThresh   time.Duration
	MigrationsPath    string
	AutoMigrateOnBoot bool
}

// RedisConfig holds Redis connection settings. An empty host disables Redis.
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// Enabled reports whether a Redis server is configured
func (r RedisConfig) Enabled() bool {
	return r.Host != ""
}

// Addr returns host:port
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// JWTConfig holds JWT settings
type JWTConfig struct {
	Secret                 string
	RefreshSecret          string
	AccessTokenExpiration  time.Duration
	RefreshTokenExpiration time.Duration
	Issuer                 string
	MaxRefreshCount        int
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	ReadTimeout      time.Duration
	WriteTimeout     time.Duration
	IdleTimeout      time.Duration
	MaxHeaderBytes   int
	MaxBodySize      int64
	CORSAllowOrigins []string
	CORSAllowMethods []string
	CORSAllowHeaders []string
	TrustedProxies   []string
	LoginRateLimit   int // Login attempts per client IP and window; 0 disables the limit
	LoginRateWindow  time.Duration
}

// AccessScopeConfig controls caching of resolved access scopes
type AccessScopeConfig struct {
	CacheEnabled bool
	CacheTTL     time.Duration
}

// CurrencyConfig holds the reporting currency and static conversion rates.
// Rates are units of base currency per one unit of the keyed currency.
type CurrencyConfig struct {
	Base  string
	Rates map[string]decimal.Decimal
}

// ReminderConfig controls the task reminder job
type ReminderConfig struct {
	Enabled   bool
	Interval  time.Duration
	LeadTime  time.Duration
	Workers   int
	BatchSize int
}

// MailgunConfig holds e-mail delivery settings. An empty domain disables e-mail.
type MailgunConfig struct {
	Domain  string
	APIKey  string
	Sender  string
	APIBase string
}

// Enabled reports whether Mailgun is configured
func (m MailgunConfig) Enabled() bool {
	return m.Domain != "" && m.APIKey != ""
}

// StorageConfig holds S3-compatible object storage settings for expense
// receipts. An empty bucket disables receipts.
type StorageConfig struct {
	Endpoint          string // e.g. "http://localhost:9000" for MinIO
	Region            string
	Bucket            string
	AccessKey         string
	SecretKey         string
	UseSSL            bool // Scheme for endpoints given without one
	UsePathStyle      bool // Required by MinIO and most self-hosted stores
	PresignExpiration time.Duration
}

// Enabled reports whether object storage is configured
func (s StorageConfig) Enabled() bool {
	return s.Bucket != ""
}

// RabbitMQConfig holds event publishing settings. An empty URL disables publishing.
type RabbitMQConfig struct {
	URL      string
	Exchange string
}

// Enabled reports whether RabbitMQ is configured
func (r RabbitMQConfig) Enabled() bool {
	return r.URL != ""
}

// TelemetryConfig holds OpenTelemetry configuration
type TelemetryConfig struct {
	Enabled           bool    // Whether to enable OpenTelemetry
	CollectorEndpoint string  // OTEL Collector endpoint (e.g., "localhost:4317")
	SamplingRatio     float64 // Sampling ratio (0.0-1.0, 1.0 = 100%)
	ServiceName       string  // Service name for traces
	Insecure          bool    // Use insecure (non-TLS) connection (development only)

	LogsEnabled      bool          // Export zap logs through the OTLP logs bridge
	MetricsEnabled   bool          // Export HTTP and business metrics
	MetricsInterval  time.Duration // Metrics export interval
	DBTracing        bool          // Span per GORM statement
	ProfilingEnabled bool          // Pyroscope continuous profiling
	ProfilerAddress  string        // Pyroscope server, e.g. "http://pyroscope:4040"
}

// Load loads configuration from TOML file and environment variables
// Priority (highest to lowest):
// 1. Environment variables with CRM_ prefix (e.g., CRM_DATABASE_PASSWORD)
// 2. config.toml
// 3. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("/app")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, we'll use defaults and env vars
	}

	return FromViper(v)
}

// FromViper builds the configuration from an already populated viper instance
func FromViper(v *viper.Viper) (*Config, error) {
	v.SetEnvPrefix("CRM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	rates, err := parseRates(v.GetStringMapString("currency.rates"))
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		App: AppConfig{
			Name: v.GetString("app.name"),
			Env:  v.GetString("app.env"),
			Port: v.GetString("app.port"),
		},
		Database: DatabaseConfig{
			Host:              v.GetString("database.host"),
			Port:              v.GetInt("database.port"),
			User:              v.GetString("database.user"),
			Password:          v.GetString("database.password"),
			DBName:            v.GetString("database.dbname"),
			SSLMode:           v.GetString("database.sslmode"),
			MaxOpenConns:      v.GetInt("database.max_open_conns"),
			MaxIdleConns:      v.GetInt("database.max_idle_conns"),
			ConnMaxLifetime:   v.GetInt("database.conn_max_lifetime"),
			ConnMaxIdleTime:   v.GetInt("database.conn_max_idle_time"),
			SlowQueryThresh:   v.GetDuration("database.slow_query_threshold"),
			MigrationsPath:    v.GetString("database.migrations_path"),
			AutoMigrateOnBoot: v.GetBool("database.auto_migrate"),
		},
		Redis: RedisConfig{
			Host:     v.GetString("redis.host"),
			Port:     v.GetInt("redis.port"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		JWT: JWTConfig{
			Secret:                 v.GetString("jwt.secret"),
			RefreshSecret:          v.GetString("jwt.refresh_secret"),
			AccessTokenExpiration:  v.GetDuration("jwt.access_token_expiration"),
			RefreshTokenExpiration: v.GetDuration("jwt.refresh_token_expiration"),
			Issuer:                 v.GetString("jwt.issuer"),
			MaxRefreshCount:        v.GetInt("jwt.max_refresh_count"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		HTTP: HTTPConfig{
			ReadTimeout:      v.GetDuration("http.read_timeout"),
			WriteTimeout:     v.GetDuration("http.write_timeout"),
			IdleTimeout:      v.GetDuration("http.idle_timeout"),
			MaxHeaderBytes:   v.GetInt("http.max_header_bytes"),
			MaxBodySize:      v.GetInt64("http.max_body_size"),
			CORSAllowOrigins: v.GetStringSlice("http.cors_allow_origins"),
			CORSAllowMethods: v.GetStringSlice("http.cors_allow_methods"),
			CORSAllowHeaders: v.GetStringSlice("http.cors_allow_headers"),
			TrustedProxies:   v.GetStringSlice("http.trusted_proxies"),
			LoginRateLimit:   v.GetInt("http.login_rate_limit"),
			LoginRateWindow:  v.GetDuration("http.login_rate_window"),
		},
		AccessScope: AccessScopeConfig{
			CacheEnabled: !v.IsSet("access_scope.cache_enabled") || v.GetBool("access_scope.cache_enabled"),
			CacheTTL:     v.GetDuration("access_scope.cache_ttl"),
		},
		Currency: CurrencyConfig{
			Base:  strings.ToUpper(v.GetString("currency.base")),
			Rates: rates,
		},
		Reminder: ReminderConfig{
			Enabled:   !v.IsSet("reminder.enabled") || v.GetBool("reminder.enabled"),
			Interval:  v.GetDuration("reminder.interval"),
			LeadTime:  v.GetDuration("reminder.lead_time"),
			Workers:   v.GetInt("reminder.workers"),
			BatchSize: v.GetInt("reminder.batch_size"),
		},
		Mailgun: MailgunConfig{
			Domain:  v.GetString("mailgun.domain"),
			APIKey:  v.GetString("mailgun.api_key"),
			Sender:  v.GetString("mailgun.sender"),
			APIBase: v.GetString("mailgun.api_base"),
		},
		RabbitMQ: RabbitMQConfig{
			URL:      v.GetString("rabbitmq.url"),
			Exchange: v.GetString("rabbitmq.exchange"),
		},
		Storage: StorageConfig{
			Endpoint:          v.GetString("storage.endpoint"),
			Region:            v.GetString("storage.region"),
			Bucket:            v.GetString("storage.bucket"),
			AccessKey:         v.GetString("storage.access_key"),
			SecretKey:         v.GetString("storage.secret_key"),
			UseSSL:            v.GetBool("storage.use_ssl"),
			UsePathStyle:      v.GetBool("storage.use_path_style"),
			PresignExpiration: v.GetDuration("storage.presign_expiration"),
		},
		Telemetry: TelemetryConfig{
			Enabled:           v.GetBool("telemetry.enabled"),
			CollectorEndpoint: v.GetString("telemetry.collector_endpoint"),
			SamplingRatio:     v.GetFloat64("telemetry.sampling_ratio"),
			ServiceName:       v.GetString("telemetry.service_name"),
			Insecure:          v.GetBool("telemetry.insecure"),
			LogsEnabled:       v.GetBool("telemetry.logs_enabled"),
			MetricsEnabled:    v.GetBool("telemetry.metrics_enabled"),
			MetricsInterval:   v.GetDuration("telemetry.metrics_interval"),
			DBTracing:         v.GetBool("telemetry.db_tracing"),
			ProfilingEnabled:  v.GetBool("telemetry.profiling_enabled"),
			ProfilerAddress:   v.GetString("telemetry.profiler_address"),
		},
	}

	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func parseRates(raw map[string]string) (map[string]decimal.Decimal, error) {
	rates := make(map[string]decimal.Decimal, len(raw))
	for code, value := range raw {
		rate, err := decimal.NewFromString(strings.TrimSpace(value))
		if err != nil {
			return nil, fmt.Errorf("currency.rates.%s: %w", code, err)
		}
		if !rate.IsPositive() {
			return nil, fmt.Errorf("currency.rates.%s must be positive", code)
		}
		rates[strings.ToUpper(code)] = rate
	}
	return rates, nil
}

// applyDefaults sets default values for any empty config fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "crm-backend"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.App.Port == "" {
		cfg.App.Port = "8080"
	}
	if cfg.Database.Host == "" {
		cfg.Database.Host = "localhost"
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	if cfg.Database.User == "" {
		cfg.Database.User = "postgres"
	}
	if cfg.Database.DBName == "" {
		cfg.Database.DBName = "crm"
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 25
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 5
	}
	if cfg.Database.ConnMaxLifetime == 0 {
		cfg.Database.ConnMaxLifetime = 60
	}
	if cfg.Database.ConnMaxIdleTime == 0 {
		cfg.Database.ConnMaxIdleTime = 30
	}
	if cfg.Database.SlowQueryThresh == 0 {
		cfg.Database.SlowQueryThresh = 200 * time.Millisecond
	}
	if cfg.Database.MigrationsPath == "" {
		cfg.Database.MigrationsPath = "migrations"
	}
	if cfg.Redis.Port == 0 {
		cfg.Redis.Port = 6379
	}
	if cfg.JWT.AccessTokenExpiration == 0 {
		cfg.JWT.AccessTokenExpiration = 15 * time.Minute
	}
	if cfg.JWT.RefreshTokenExpiration == 0 {
		cfg.JWT.RefreshTokenExpiration = 168 * time.Hour
	}
	if cfg.JWT.Issuer == "" {
		cfg.JWT.Issuer = "crm-backend"
	}
	if cfg.JWT.MaxRefreshCount == 0 {
		cfg.JWT.MaxRefreshCount = 10
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}
	if cfg.Log.Output == "" {
		cfg.Log.Output = "stdout"
	}
	if cfg.HTTP.ReadTimeout == 0 {
		cfg.HTTP.ReadTimeout = 15 * time.Second
	}
	if cfg.HTTP.WriteTimeout == 0 {
		cfg.HTTP.WriteTimeout = 30 * time.Second
	}
	if cfg.HTTP.IdleTimeout == 0 {
		cfg.HTTP.IdleTimeout = 60 * time.Second
	}
	if cfg.HTTP.MaxHeaderBytes == 0 {
		cfg.HTTP.MaxHeaderBytes = 1 << 20 // 1MB
	}
	if cfg.HTTP.MaxBodySize == 0 {
		cfg.HTTP.MaxBodySize = 2 << 20 // 2MB
	}
	// CORS origins have no wildcard fallback: cross-origin access must be configured.
	if len(cfg.HTTP.CORSAllowMethods) == 0 {
		cfg.HTTP.CORSAllowMethods = []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"}
	}
	if len(cfg.HTTP.CORSAllowHeaders) == 0 {
		cfg.HTTP.CORSAllowHeaders = []string{"Content-Type", "Authorization", "X-Request-ID"}
	}
	if cfg.HTTP.LoginRateWindow == 0 {
		cfg.HTTP.LoginRateWindow = time.Minute
	}
	if cfg.AccessScope.CacheTTL == 0 {
		cfg.AccessScope.CacheTTL = 30 * time.Second
	}
	if cfg.Currency.Base == "" {
		cfg.Currency.Base = "USD"
	}
	if cfg.Currency.Rates == nil {
		cfg.Currency.Rates = make(map[string]decimal.Decimal)
	}
	if cfg.Reminder.Interval == 0 {
		cfg.Reminder.Interval = 5 * time.Minute
	}
	if cfg.Reminder.LeadTime == 0 {
		cfg.Reminder.LeadTime = time.Hour
	}
	if cfg.Reminder.Workers == 0 {
		cfg.Reminder.Workers = 2
	}
	if cfg.Reminder.BatchSize == 0 {
		cfg.Reminder.BatchSize = 100
	}
	if cfg.Mailgun.Sender == "" && cfg.Mailgun.Domain != "" {
		cfg.Mailgun.Sender = "CRM <no-reply@" + cfg.Mailgun.Domain + ">"
	}
	if cfg.RabbitMQ.Exchange == "" {
		cfg.RabbitMQ.Exchange = "crm.events"
	}
	if cfg.Storage.Region == "" {
		cfg.Storage.Region = "us-east-1"
	}
	if cfg.Storage.PresignExpiration == 0 {
		cfg.Storage.PresignExpiration = 15 * time.Minute
	}
	if cfg.Telemetry.CollectorEndpoint == "" {
		cfg.Telemetry.CollectorEndpoint = "localhost:4317"
	}
	if cfg.Telemetry.SamplingRatio == 0 {
		cfg.Telemetry.SamplingRatio = 1.0
	}
	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = "crm-backend"
	}
	if cfg.Telemetry.MetricsInterval == 0 {
		cfg.Telemetry.MetricsInterval = time.Minute
	}
	if cfg.Telemetry.ProfilerAddress == "" {
		cfg.Telemetry.ProfilerAddress = "http://localhost:4040"
	}
}

// validate performs validation on the configuration
func (c *Config) validate() error {
	if c.Database.MaxOpenConns <= 0 {
		return fmt.Errorf("database.max_open_conns must be positive")
	}
	if c.Database.MaxIdleConns < 0 {
		return fmt.Errorf("database.max_idle_conns cannot be negative")
	}
	if c.Database.MaxIdleConns > c.Database.MaxOpenConns {
		return fmt.Errorf("database.max_idle_conns (%d) cannot exceed database.max_open_conns (%d)",
			c.Database.MaxIdleConns, c.Database.MaxOpenConns)
	}
	if c.AccessScope.CacheTTL < 0 {
		return fmt.Errorf("access_scope.cache_ttl cannot be negative")
	}
	if _, err := currency.ParseISO(c.Currency.Base); err != nil {
		return fmt.Errorf("currency.base must be a known ISO 4217 code, got %q", c.Currency.Base)
	}
	for code := range c.Currency.Rates {
		if _, err := currency.ParseISO(code); err != nil {
			return fmt.Errorf("currency.rates: unknown currency %q", code)
		}
	}
	if c.Reminder.Interval < time.Second {
		return fmt.Errorf("reminder.interval must be at least 1s")
	}
	if c.Reminder.Workers < 1 {
		return fmt.Errorf("reminder.workers must be positive")
	}

	if c.App.Env == "production" {
		if c.JWT.Secret == "" {
			return fmt.Errorf("jwt.secret is required in production")
		}
		if len(c.JWT.Secret) < 32 {
			return fmt.Errorf("jwt.secret must be at least 32 characters in production")
		}
		if c.Database.Password == "" {
			return fmt.Errorf("database.password is required in production")
		}
		if c.Database.SSLMode == "disable" {
			return fmt.Errorf("database.sslmode cannot be 'disable' in production")
		}
		for _, origin := range c.HTTP.CORSAllowOrigins {
			if origin == "*" {
				return fmt.Errorf("cors_allow_origins cannot be '*' in production (use specific origins)")
			}
		}
	}

	if c.Telemetry.SamplingRatio < 0.0 || c.Telemetry.SamplingRatio > 1.0 {
		return fmt.Errorf("telemetry.sampling_ratio must be between 0.0 and 1.0, got %f", c.Telemetry.SamplingRatio)
	}

	return nil
}

// IsProduction reports whether the app runs in production mode
func (c *Config) IsProduction() bool {
	return c.App.Env == "production"
}

// DSN returns the database connection string with properly escaped values
func (d *DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(d.User, d.Password),
		Host:   fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:   d.DBName,
	}
	q := u.Query()
	q.Set("sslmode", d.SSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}
