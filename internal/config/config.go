package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

type APIConfig struct {
	BaseURL        string
	RequestTimeout time.Duration
	UserAgent      string
}

type SessionConfig struct {
	StoreKey      string
	RefreshLeeway time.Duration
}

type FileStoreConfig struct {
	Dir string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
}

type PostgresConfig struct {
	DSN             string
	MaxOpen         int
	MaxIdle         int
	ConnMaxLifetime time.Duration
	Table           string
}

type MinioConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
	Region    string
	Prefix    string
}

type StoreConfig struct {
	Backend    string
	Passphrase string
	File       FileStoreConfig
	Redis      RedisConfig
	Postgres   PostgresConfig
	Minio      MinioConfig
}

type DevServerConfig struct {
	Host             string
	Port             int
	ReadTimeout      time.Duration
	WriteTimeout     time.Duration
	IdleTimeout      time.Duration
	JWTSecret        string
	AccessTTL        time.Duration
	RefreshTTL       time.Duration
	VerificationTTL  time.Duration
	RotateRefresh    bool
	CleanupSchedule  string
	AllowCORSOrigins []string
	SeedAdminEmail   string
	SeedAdminPass    string
}

type MetricsConfig struct {
	Enabled bool
}

type AppConfig struct {
	Environment string
	API         APIConfig
	Session     SessionConfig
	Store       StoreConfig
	DevServer   DevServerConfig
	Metrics     MetricsConfig
}

// Load reads clubhub.yaml (if any) and overlays CLUBHUB_* environment
// variables, e.g. CLUBHUB_STORE_BACKEND or CLUBHUB_API_BASEURL.
func Load() (*AppConfig, error) {
	return LoadFile("")
}

// LoadFile behaves like Load but reads the given file when path is set.
func LoadFile(path string) (*AppConfig, error) {
	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("clubhub")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("$HOME/.clubhub")
	}

	v.SetEnvPrefix("CLUBHUB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
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

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *AppConfig) validate() error {
	switch c.Store.Backend {
	case "memory", "file", "redis", "postgres", "minio":
	default:
		return fmt.Errorf("config: unknown store backend %q", c.Store.Backend)
	}
	if c.Session.StoreKey == "" {
		return fmt.Errorf("config: session.storekey must be set")
	}
	if c.Session.RefreshLeeway < 0 {
		return fmt.Errorf("config: session.refreshleeway must not be negative")
	}
	if c.Environment == "production" && c.DevServer.JWTSecret == devJWTSecret {
		return fmt.Errorf("config: devserver.jwtsecret must be changed in production")
	}
	return nil
}

const devJWTSecret = "clubhub-dev-secret"

func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "development")

	v.SetDefault("api.baseurl", "http://127.0.0.1:8080/api")
	v.SetDefault("api.requesttimeout", "15s")
	v.SetDefault("api.useragent", "clubhub-client")

	v.SetDefault("session.storekey", "user")
	v.SetDefault("session.refreshleeway", "0s")

	v.SetDefault("store.backend", "file")
	v.SetDefault("store.passphrase", "")
	v.SetDefault("store.file.dir", "$HOME/.clubhub/credentials")

	v.SetDefault("store.redis.addr", "127.0.0.1:6379")
	v.SetDefault("store.redis.db", 0)
	v.SetDefault("store.redis.prefix", "clubhub:cred:")

	v.SetDefault("store.postgres.maxopen", 5)
	v.SetDefault("store.postgres.maxidle", 1)
	v.SetDefault("store.postgres.connmaxlifetime", "30m")
	v.SetDefault("store.postgres.table", "credentials")

	v.SetDefault("store.minio.bucket", "clubhub-credentials")
	v.SetDefault("store.minio.usessl", false)
	v.SetDefault("store.minio.region", "us-east-1")
	v.SetDefault("store.minio.prefix", "sessions/")

	v.SetDefault("devserver.host", "127.0.0.1")
	v.SetDefault("devserver.port", 8080)
	v.SetDefault("devserver.readtimeout", "10s")
	v.SetDefault("devserver.writetimeout", "15s")
	v.SetDefault("devserver.idletimeout", "60s")
	v.SetDefault("devserver.jwtsecret", devJWTSecret)
	v.SetDefault("devserver.accessttl", "15m")
	v.SetDefault("devserver.refreshttl", "720h") // 30 days
	v.SetDefault("devserver.verificationttl", "10m")
	v.SetDefault("devserver.rotaterefresh", false)
	v.SetDefault("devserver.allowcorsorigins", []string{})
	v.SetDefault("devserver.cleanupschedule", "0 */5 * * * *")
	v.SetDefault("devserver.seedadminemail", "admin@lau.edu")
	v.SetDefault("devserver.seedadminpass", "admin-password")

	v.SetDefault("metrics.enabled", true)
}
