package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds the application configuration loaded from .env, defaults and the environment.
// Every key maps to an upper-case environment variable with dots replaced by underscores
// (database.url -> DATABASE_URL).
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Log       LogConfig       `mapstructure:"log"`
	Telemetry TelemetryConfig `mapstructure:"otel"`
	Feed      FeedConfig      `mapstructure:"feed"`
	Upload    UploadConfig    `mapstructure:"upload"`
	Migu      MiguConfig      `mapstructure:"migu"`
	Report    ReportConfig    `mapstructure:"report"`
	Content   ContentConfig   `mapstructure:"content"`
}

type ServerConfig struct {
	Port        string   `mapstructure:"port"`
	Environment string   `mapstructure:"environment"`
	CORSOrigins []string `mapstructure:"cors_origins"`
}

type DatabaseConfig struct {
	Driver   string `mapstructure:"driver"` // postgres | sqlite
	URL      string `mapstructure:"url"`
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	SSLMode  string `mapstructure:"sslmode"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	Password string `mapstructure:"password"`
}

type AuthConfig struct {
	JWTSecret string        `mapstructure:"jwt_secret"`
	TokenTTL  time.Duration `mapstructure:"token_ttl"`
	// PartnerTokens are bcrypt hashes of tokens accepted by the partner video list.
	PartnerTokens []string `mapstructure:"partner_tokens"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
	File  string `mapstructure:"file"`
}

type TelemetryConfig struct {
	Enabled      bool    `mapstructure:"enabled"`
	ServiceName  string  `mapstructure:"service_name"`
	Endpoint     string  `mapstructure:"endpoint"`
	SamplingRate float64 `mapstructure:"sampling_rate"`
}

// FeedConfig bounds the paginated feed fetcher.
type FeedConfig struct {
	DefaultPageSize int `mapstructure:"default_page_size"`
	MaxPageSize     int `mapstructure:"max_page_size"`
	// MaxRounds and MaxScanned cap backfill work per request; 0 disables the cap.
	MaxRounds          int `mapstructure:"max_rounds"`
	MaxScanned         int `mapstructure:"max_scanned"`
	ResolveConcurrency int `mapstructure:"resolve_concurrency"`
	// Rules holds optional expr eligibility rules as "feed=expression" pairs separated by ';'.
	Rules string `mapstructure:"rules"`
}

// RuleMap parses Rules into feed name -> expression
func (f FeedConfig) RuleMap() map[string]string {
	rules := make(map[string]string)
	for _, pair := range strings.Split(f.Rules, ";") {
		name, rule, ok := strings.Cut(pair, "=")
		name, rule = strings.TrimSpace(name), strings.TrimSpace(rule)
		if !ok || name == "" || rule == "" {
			continue
		}
		rules[name] = rule
	}
	return rules
}

type UploadConfig struct {
	SignatureSecret string `mapstructure:"signature_secret"`
	CDNBaseURL      string `mapstructure:"cdn_base_url"`
}

type MiguConfig struct {
	CenterURL       string        `mapstructure:"center_url"`
	PayURL          string        `mapstructure:"pay_url"`
	AppID           string        `mapstructure:"app_id"`
	AppSecret       string        `mapstructure:"app_secret"`
	Timeout         time.Duration `mapstructure:"timeout"`
	HallGameURL     string        `mapstructure:"hall_game_url"`
	AppDownloadURL  string        `mapstructure:"app_download_url"`
	IOSHideMoney    bool          `mapstructure:"ios_hide_money"`
	VIPZoneGridName string        `mapstructure:"vip_zone_grid_name"`
}

type ReportConfig struct {
	SMSQueueKey string `mapstructure:"sms_queue_key"`
}

// ContentConfig lists words rejected in titles and comments.
type ContentConfig struct {
	ForbiddenWords []string `mapstructure:"forbidden_words"`
}

// IsDevelopment reports whether the server runs in development mode
func (c *Config) IsDevelopment() bool {
	return c.Server.Environment == "development"
}

// Load reads configuration from .env, defaults and environment variables.
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// AutomaticEnv only resolves keys viper already knows about
	for _, key := range v.AllKeys() {
		_ = v.BindEnv(key)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8787")
	v.SetDefault("server.environment", "production")
	v.SetDefault("server.cors_origins", []string{"*"})

	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.url", "")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "")
	v.SetDefault("database.name", "wanx")
	v.SetDefault("database.sslmode", "disable")

	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", "6379")
	v.SetDefault("redis.password", "")

	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.token_ttl", 30*24*time.Hour)
	v.SetDefault("auth.partner_tokens", []string{})

	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "server.log")

	v.SetDefault("otel.enabled", false)
	v.SetDefault("otel.service_name", "wanx-backend")
	v.SetDefault("otel.endpoint", "localhost:4318")
	v.SetDefault("otel.sampling_rate", 0.1)

	v.SetDefault("feed.default_page_size", 10)
	v.SetDefault("feed.max_page_size", 100)
	v.SetDefault("feed.max_rounds", 32)
	v.SetDefault("feed.max_scanned", 0)
	v.SetDefault("feed.resolve_concurrency", 8)
	v.SetDefault("feed.rules", "")

	v.SetDefault("upload.signature_secret", "")
	v.SetDefault("upload.cdn_base_url", "")

	v.SetDefault("migu.center_url", "")
	v.SetDefault("migu.pay_url", "")
	v.SetDefault("migu.app_id", "")
	v.SetDefault("migu.app_secret", "")
	v.SetDefault("migu.timeout", 5*time.Second)
	v.SetDefault("migu.hall_game_url", "http://g.10086.cn/s/clientd/?t=GH_JFDX")
	v.SetDefault("migu.app_download_url", "http://video.cmgame.com/userfiles/wapapp/mgyw.apk")
	v.SetDefault("migu.ios_hide_money", false)
	v.SetDefault("migu.vip_zone_grid_name", "会员")

	v.SetDefault("report.sms_queue_key", "jobs:send_sms")

	v.SetDefault("content.forbidden_words", []string{})
}

// Validate checks values that would otherwise fail late at request time
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("invalid database.driver %q (want postgres or sqlite)", c.Database.Driver)
	}
	if c.Feed.DefaultPageSize <= 0 {
		return fmt.Errorf("invalid feed.default_page_size (must be positive)")
	}
	if c.Feed.MaxPageSize < c.Feed.DefaultPageSize {
		return fmt.Errorf("feed.max_page_size must be >= feed.default_page_size")
	}
	if c.Feed.MaxRounds < 0 || c.Feed.MaxScanned < 0 {
		return fmt.Errorf("feed caps must not be negative")
	}
	if c.Telemetry.SamplingRate < 0 || c.Telemetry.SamplingRate > 1 {
		return fmt.Errorf("invalid otel.sampling_rate (must be within 0..1)")
	}
	return nil
}

// DSN builds the database connection string from URL or components
func (d DatabaseConfig) DSN() string {
	if d.URL != "" {
		return d.URL
	}
	if d.Driver == "sqlite" {
		return "file:wanx.db?cache=shared"
	}
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode)
}
