package config

import (
	"fmt"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

type HTTPConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type PostgresConfig struct {
	DSN             string
	MaxOpen         int
	MaxIdle         int
	ConnMaxLifetime time.Duration
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type StorageConfig struct {
	Endpoint      string
	AccessKey     string
	SecretKey     string
	BucketExports string
	UseSSL        bool
	Region        string
	ExportTTL     time.Duration
}

type SecurityConfig struct {
	JWTAccessSecret  string
	JWTRefreshSecret string
	JWTIssuer        string
	JWTAudience      string
	JWTAccessTTL     time.Duration
	JWTRefreshTTL    time.Duration
	LockoutThreshold int
	LockoutDuration  time.Duration
}

type DonationConfig struct {
	MinAmount float64
	MaxAmount float64
}

type RateLimitConfig struct {
	AuthRequests     int
	AuthWindow       time.Duration
	DonationRequests int
	DonationWindow   time.Duration
}

type AppConfig struct {
	Environment      string
	HTTP             HTTPConfig
	Postgres         PostgresConfig
	Redis            RedisConfig
	Storage          StorageConfig
	Security         SecurityConfig
	Donations        DonationConfig
	RateLimit        RateLimitConfig
	AllowCORSOrigins []string
}

func Load() (*AppConfig, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("../config")

	v.SetEnvPrefix("GIVEHUB")
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("load config file: %w", err)
		}
	}

	var cfg AppConfig
	if err := v.Unmarshal(&cfg, func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "development")

	v.SetDefault("http.host", "0.0.0.0")
	v.SetDefault("http.port", 8080)
	v.SetDefault("http.readtimeout", "10s")
	v.SetDefault("http.writetimeout", "15s")
	v.SetDefault("http.idletimeout", "60s")

	v.SetDefault("postgres.maxopen", 30)
	v.SetDefault("postgres.maxidle", 10)
	v.SetDefault("postgres.connmaxlifetime", "30m")

	v.SetDefault("redis.addr", "127.0.0.1:6379")
	v.SetDefault("redis.db", 0)

	v.SetDefault("storage.bucketexports", "givehub-exports")
	v.SetDefault("storage.usessl", false)
	v.SetDefault("storage.region", "us-east-1")
	v.SetDefault("storage.exportttl", "168h")

	v.SetDefault("security.jwtissuer", "givehub-api")
	v.SetDefault("security.jwtaudience", "givehub-clients")
	v.SetDefault("security.jwtaccessttl", "24h")
	v.SetDefault("security.jwtrefreshttl", "168h") // 7 days
	v.SetDefault("security.lockoutthreshold", 5)
	v.SetDefault("security.lockoutduration", "2h")

	v.SetDefault("donations.minamount", 1)
	v.SetDefault("donations.maxamount", 10000)

	v.SetDefault("ratelimit.authrequests", 10)
	v.SetDefault("ratelimit.authwindow", "15m")
	v.SetDefault("ratelimit.donationrequests", 30)
	v.SetDefault("ratelimit.donationwindow", "1h")
}
