// Package config builds the process configuration once at startup.
//
// Values come from the environment (prefix EXAMSITE_, dots become
// underscores) with an optional .env file loaded first. The resulting Config
// is passed explicitly to constructors; nothing reads the environment later.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
	_ "time/tzdata"

	"cloud.google.com/go/civil"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const envPrefix = "EXAMSITE"

// Config is the root configuration object.
type Config struct {
	Environment string
	Server      Server
	Log         Log
	Database    Database
	Redis       RedisConfig
	Kafka       Kafka
	Auth        Auth
	CheckIn     CheckIn
	Scheduling  Scheduling
	RateLimit   RateLimit
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr              string
	ReadHeaderTimeout time.Duration
	RequestTimeout    time.Duration
	ShutdownTimeout   time.Duration
	MetricsToken      string
}

type Log struct {
	Level  string
	Format string
}

// Database configures PostgreSQL. An empty URL selects the in-memory stores.
type Database struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	AutoMigrate     bool
	TxTimeout       time.Duration
}

// RedisConfig configures the catalog cache. An empty URL disables caching.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	CatalogTTL   time.Duration
}

// Kafka configures the scheduling event stream. No brokers means events are
// only logged.
type Kafka struct {
	Brokers           []string
	Topic             string
	ClientID          string
	Partitions        int32
	ReplicationFactor int16
}

type Auth struct {
	JWTSigningKey          string
	Issuer                 string
	Audience               string
	TokenTTL               time.Duration
	BootstrapAdminUsername string
	BootstrapAdminPassword string
}

type CheckIn struct {
	CodeSecret       string
	CodeTTL          time.Duration
	BatchConcurrency int
}

// Scheduling holds the defaults applied to batch scheduling requests and the
// time zone that defines "today" for check-in.
type Scheduling struct {
	Location        *time.Location
	DayStart        civil.Time
	DayEnd          civil.Time
	DefaultDuration time.Duration
	BreakDuration   time.Duration
	MaxPerDay       int
	MaxBatchSize    int
}

// RateLimit bounds unauthenticated traffic per client IP. The budgets are
// shared through Redis when it is configured.
type RateLimit struct {
	Enabled       bool
	LoginRequests int
	LoginWindow   time.Duration
	BoardRequests int
	BoardWindow   time.Duration
}

func (c Config) IsProduction() bool {
	return c.Environment == "production"
}

// Load reads the optional dotenv file and the environment into a Config.
// dotenvPath may be empty to use ".env" in the working directory.
func Load(dotenvPath string) (Config, error) {
	if dotenvPath == "" {
		dotenvPath = ".env"
	}
	if _, err := os.Stat(dotenvPath); err == nil {
		if err := godotenv.Load(dotenvPath); err != nil {
			return Config{}, fmt.Errorf("load %s: %w", dotenvPath, err)
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("stat %s: %w", dotenvPath, err)
	}

	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	return fromViper(v)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "development")

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.read_header_timeout", 5*time.Second)
	v.SetDefault("server.request_timeout", 30*time.Second)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("server.metrics_token", "")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "")

	v.SetDefault("database.url", "")
	v.SetDefault("database.max_open_conns", 20)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", 30*time.Minute)
	v.SetDefault("database.auto_migrate", true)
	v.SetDefault("database.tx_timeout", 5*time.Second)

	v.SetDefault("redis.url", "")
	v.SetDefault("redis.pool_size", 10)
	v.SetDefault("redis.min_idle_conns", 2)
	v.SetDefault("redis.dial_timeout", 5*time.Second)
	v.SetDefault("redis.read_timeout", 3*time.Second)
	v.SetDefault("redis.write_timeout", 3*time.Second)
	v.SetDefault("redis.catalog_ttl", 5*time.Minute)

	v.SetDefault("kafka.brokers", "")
	v.SetDefault("kafka.topic", "examsite.schedules")
	v.SetDefault("kafka.client_id", "examsite")
	v.SetDefault("kafka.partitions", 3)
	v.SetDefault("kafka.replication_factor", 1)

	v.SetDefault("auth.jwt_signing_key", "dev-secret-key-change-in-production")
	v.SetDefault("auth.issuer", "examsite")
	v.SetDefault("auth.audience", "examsite-api")
	v.SetDefault("auth.token_ttl", 8*time.Hour)
	v.SetDefault("auth.bootstrap_admin_username", "")
	v.SetDefault("auth.bootstrap_admin_password", "")

	v.SetDefault("checkin.code_secret", "dev-checkin-secret-change-in-production")
	v.SetDefault("checkin.code_ttl", 30*24*time.Hour)
	v.SetDefault("checkin.batch_concurrency", 8)

	v.SetDefault("scheduling.timezone", "Asia/Shanghai")
	v.SetDefault("scheduling.day_start", "08:00")
	v.SetDefault("scheduling.day_end", "18:00")
	v.SetDefault("scheduling.default_duration", 15*time.Minute)
	v.SetDefault("scheduling.break_duration", 0)
	v.SetDefault("scheduling.max_per_day", 40)
	v.SetDefault("scheduling.max_batch_size", 50)

	v.SetDefault("ratelimit.enabled", true)
	v.SetDefault("ratelimit.login_requests", 10)
	v.SetDefault("ratelimit.login_window", time.Minute)
	v.SetDefault("ratelimit.board_requests", 120)
	v.SetDefault("ratelimit.board_window", time.Minute)
}

func fromViper(v *viper.Viper) (Config, error) {
	cfg := Config{
		Environment: strings.ToLower(v.GetString("environment")),
		Server: Server{
			Addr:              v.GetString("server.addr"),
			ReadHeaderTimeout: v.GetDuration("server.read_header_timeout"),
			RequestTimeout:    v.GetDuration("server.request_timeout"),
			ShutdownTimeout:   v.GetDuration("server.shutdown_timeout"),
			MetricsToken:      v.GetString("server.metrics_token"),
		},
		Log: Log{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
		},
		Database: Database{
			URL:             v.GetString("database.url"),
			MaxOpenConns:    v.GetInt("database.max_open_conns"),
			MaxIdleConns:    v.GetInt("database.max_idle_conns"),
			ConnMaxLifetime: v.GetDuration("database.conn_max_lifetime"),
			AutoMigrate:     v.GetBool("database.auto_migrate"),
			TxTimeout:       v.GetDuration("database.tx_timeout"),
		},
		Redis: RedisConfig{
			URL:          v.GetString("redis.url"),
			PoolSize:     v.GetInt("redis.pool_size"),
			MinIdleConns: v.GetInt("redis.min_idle_conns"),
			DialTimeout:  v.GetDuration("redis.dial_timeout"),
			ReadTimeout:  v.GetDuration("redis.read_timeout"),
			WriteTimeout: v.GetDuration("redis.write_timeout"),
			CatalogTTL:   v.GetDuration("redis.catalog_ttl"),
		},
		Kafka: Kafka{
			Brokers:           splitList(v.GetString("kafka.brokers")),
			Topic:             v.GetString("kafka.topic"),
			ClientID:          v.GetString("kafka.client_id"),
			Partitions:        v.GetInt32("kafka.partitions"),
			ReplicationFactor: int16(v.GetInt("kafka.replication_factor")),
		},
		Auth: Auth{
			JWTSigningKey:          v.GetString("auth.jwt_signing_key"),
			Issuer:                 v.GetString("auth.issuer"),
			Audience:               v.GetString("auth.audience"),
			TokenTTL:               v.GetDuration("auth.token_ttl"),
			BootstrapAdminUsername: v.GetString("auth.bootstrap_admin_username"),
			BootstrapAdminPassword: v.GetString("auth.bootstrap_admin_password"),
		},
		CheckIn: CheckIn{
			CodeSecret:       v.GetString("checkin.code_secret"),
			CodeTTL:          v.GetDuration("checkin.code_ttl"),
			BatchConcurrency: v.GetInt("checkin.batch_concurrency"),
		},
		Scheduling: Scheduling{
			DefaultDuration: v.GetDuration("scheduling.default_duration"),
			BreakDuration:   v.GetDuration("scheduling.break_duration"),
			MaxPerDay:       v.GetInt("scheduling.max_per_day"),
			MaxBatchSize:    v.GetInt("scheduling.max_batch_size"),
		},
		RateLimit: RateLimit{
			Enabled:       v.GetBool("ratelimit.enabled"),
			LoginRequests: v.GetInt("ratelimit.login_requests"),
			LoginWindow:   v.GetDuration("ratelimit.login_window"),
			BoardRequests: v.GetInt("ratelimit.board_requests"),
			BoardWindow:   v.GetDuration("ratelimit.board_window"),
		},
	}

	loc, err := time.LoadLocation(v.GetString("scheduling.timezone"))
	if err != nil {
		return Config{}, fmt.Errorf("scheduling.timezone: %w", err)
	}
	cfg.Scheduling.Location = loc

	if cfg.Scheduling.DayStart, err = parseClock(v.GetString("scheduling.day_start")); err != nil {
		return Config{}, fmt.Errorf("scheduling.day_start: %w", err)
	}
	if cfg.Scheduling.DayEnd, err = parseClock(v.GetString("scheduling.day_end")); err != nil {
		return Config{}, fmt.Errorf("scheduling.day_end: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if !c.Scheduling.DayStart.Before(c.Scheduling.DayEnd) {
		return errors.New("scheduling.day_start must be before scheduling.day_end")
	}
	if c.Scheduling.DefaultDuration <= 0 {
		return errors.New("scheduling.default_duration must be positive")
	}
	if c.Scheduling.BreakDuration < 0 {
		return errors.New("scheduling.break_duration must not be negative")
	}
	if c.Scheduling.MaxPerDay <= 0 || c.Scheduling.MaxBatchSize <= 0 {
		return errors.New("scheduling.max_per_day and scheduling.max_batch_size must be positive")
	}
	if c.RateLimit.Enabled && (c.RateLimit.LoginRequests <= 0 || c.RateLimit.BoardRequests <= 0 ||
		c.RateLimit.LoginWindow <= 0 || c.RateLimit.BoardWindow <= 0) {
		return errors.New("ratelimit budgets and windows must be positive when enabled")
	}
	if c.CheckIn.BatchConcurrency <= 0 {
		return errors.New("checkin.batch_concurrency must be positive")
	}
	if c.IsProduction() {
		if strings.HasPrefix(c.Auth.JWTSigningKey, "dev-") || strings.HasPrefix(c.CheckIn.CodeSecret, "dev-") {
			return errors.New("development secrets are not allowed in production")
		}
	}
	return nil
}

func parseClock(s string) (civil.Time, error) {
	if len(s) == len("15:04") {
		s += ":00"
	}
	return civil.ParseTime(s)
}

func splitList(s string) []string {
	var out []string
	for part := range strings.SplitSeq(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
