package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	JWT      JWTConfig      `mapstructure:"jwt"`
	AES      AESConfig      `mapstructure:"aes"`
	Log      LogConfig      `mapstructure:"log"`
	Chain    ChainConfig    `mapstructure:"chain"`
	Ingest   IngestConfig   `mapstructure:"ingest"`
	Webhook  WebhookConfig  `mapstructure:"webhook"`
	Checkout CheckoutConfig `mapstructure:"checkout"`
}

type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	Mode string `mapstructure:"mode"` // debug, release, test
}

type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"dbname"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// DSN returns the PostgreSQL connection URL. Credentials are escaped, so
// passwords may contain URL metacharacters.
func (d DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(d.User, d.Password),
		Host:     net.JoinHostPort(d.Host, strconv.Itoa(d.Port)),
		Path:     "/" + d.DBName,
		RawQuery: url.Values{"sslmode": {d.SSLMode}}.Encode(),
	}
	return u.String()
}

// MigrateURL returns the DSN in the scheme expected by the migrate pgx/v5 driver.
func (d DatabaseConfig) MigrateURL() string {
	return "pgx5" + strings.TrimPrefix(d.DSN(), "postgres")
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// Addr returns the Redis address string.
func (r RedisConfig) Addr() string {
	return net.JoinHostPort(r.Host, strconv.Itoa(r.Port))
}

type JWTConfig struct {
	Secret string        `mapstructure:"secret"`
	Expiry time.Duration `mapstructure:"expiry"`
	Issuer string        `mapstructure:"issuer"`
}

type AESConfig struct {
	Key string `mapstructure:"key"` // 32-byte hex-encoded key for AES-256
}

type LogConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Pretty bool   `mapstructure:"pretty"` // human-readable output (dev only)
}

type ChainConfig struct {
	MainnetRPC     string        `mapstructure:"mainnet_rpc"`
	DevnetRPC      string        `mapstructure:"devnet_rpc"`
	Commitment     string        `mapstructure:"commitment"` // processed, confirmed, finalized
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// Endpoint returns the RPC URL configured for a network name.
func (c ChainConfig) Endpoint(network string) (string, bool) {
	switch network {
	case "mainnet-beta":
		return c.MainnetRPC, c.MainnetRPC != ""
	case "devnet":
		return c.DevnetRPC, c.DevnetRPC != ""
	}
	return "", false
}

type IngestConfig struct {
	AuthHeader   string        `mapstructure:"auth_header"`
	SharedSecret string        `mapstructure:"shared_secret"`
	SignatureTTL time.Duration `mapstructure:"signature_ttl"` // how long confirmed signatures are remembered
}

type WebhookConfig struct {
	Timeout         time.Duration `mapstructure:"timeout"`
	MaxResponseBody int           `mapstructure:"max_response_body"`
	MaxAttempts     int           `mapstructure:"max_attempts"`
	RetryBaseDelay  time.Duration `mapstructure:"retry_base_delay"`
	RetryMaxDelay   time.Duration `mapstructure:"retry_max_delay"`
	RetrySchedule   string        `mapstructure:"retry_schedule"` // cron expression
	RetryBatchSize  int           `mapstructure:"retry_batch_size"`
}

type CheckoutConfig struct {
	SessionTTL     time.Duration `mapstructure:"session_ttl"`
	FailAfter      time.Duration `mapstructure:"fail_after"`
	ExpirySchedule string        `mapstructure:"expiry_schedule"` // cron expression
	ExpiryBatch    int           `mapstructure:"expiry_batch"`
}

// Load reads configuration from file and environment variables.
// Environment variables override file values. Prefix: CCG_ (Crypto Checkout Gateway).
// Nested keys use underscore: CCG_DATABASE_HOST, CCG_INGEST_SHARED_SECRET, etc.
// A .env file in the working directory is loaded into the environment first.
func Load(path string) (*Config, error) {
	if err := loadDotEnv(".env"); err != nil {
		return nil, err
	}

	v := viper.New()

	// Defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "postgres")
	v.SetDefault("database.dbname", "checkout_gateway")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 20)
	v.SetDefault("database.min_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "30m")
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("jwt.secret", "")
	v.SetDefault("jwt.expiry", "24h")
	v.SetDefault("jwt.issuer", "crypto-checkout-gateway")
	v.SetDefault("aes.key", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)
	v.SetDefault("chain.mainnet_rpc", "https://api.mainnet-beta.solana.com")
	v.SetDefault("chain.devnet_rpc", "https://api.devnet.solana.com")
	v.SetDefault("chain.commitment", "confirmed")
	v.SetDefault("chain.request_timeout", "10s")
	v.SetDefault("ingest.auth_header", "Authorization")
	v.SetDefault("ingest.shared_secret", "")
	v.SetDefault("ingest.signature_ttl", "72h")
	v.SetDefault("webhook.timeout", "30s")
	v.SetDefault("webhook.max_response_body", 1024)
	v.SetDefault("webhook.max_attempts", 6)
	v.SetDefault("webhook.retry_base_delay", "30s")
	v.SetDefault("webhook.retry_max_delay", "1h")
	v.SetDefault("webhook.retry_schedule", "@every 30s")
	v.SetDefault("webhook.retry_batch_size", 100)
	v.SetDefault("checkout.session_ttl", "15m")
	v.SetDefault("checkout.fail_after", "24h")
	v.SetDefault("checkout.expiry_schedule", "@every 5m")
	v.SetDefault("checkout.expiry_batch", 100)

	// File config
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	// Environment variables: CCG_DATABASE_HOST -> database.host
	v.SetEnvPrefix("CCG")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file (not required, env vars can suffice)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	return &cfg, nil
}

// Validate reports every setting the server cannot run with. Secrets are
// required in release mode only so local runs work from defaults.
func (c *Config) Validate() error {
	var errs []error
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port %d out of range", c.Server.Port))
	}
	if c.Server.Mode == "release" {
		for key, val := range map[string]string{
			"jwt.secret":           c.JWT.Secret,
			"aes.key":              c.AES.Key,
			"ingest.shared_secret": c.Ingest.SharedSecret,
		} {
			if val == "" {
				errs = append(errs, fmt.Errorf("%s is required in release mode", key))
			}
		}
	}
	switch c.Chain.Commitment {
	case "processed", "confirmed", "finalized":
	default:
		errs = append(errs, fmt.Errorf("chain.commitment %q is not processed, confirmed or finalized", c.Chain.Commitment))
	}
	if c.Webhook.MaxAttempts < 1 {
		errs = append(errs, errors.New("webhook.max_attempts must be at least 1"))
	}
	if c.Checkout.SessionTTL <= 0 {
		errs = append(errs, errors.New("checkout.session_ttl must be positive"))
	}
	if c.Checkout.FailAfter < c.Checkout.SessionTTL {
		errs = append(errs, fmt.Errorf("checkout.fail_after (%s) is shorter than checkout.session_ttl (%s)",
			c.Checkout.FailAfter, c.Checkout.SessionTTL))
	}
	return errors.Join(errs...)
}

// loadDotEnv copies variables from a .env file into the process environment
// without overriding variables that are already set.
func loadDotEnv(file string) error {
	if _, err := os.Stat(file); err != nil {
		return nil
	}
	values, err := godotenv.Read(file)
	if err != nil {
		return fmt.Errorf("reading %s: %w", file, err)
	}
	for k, val := range values {
		if _, exists := os.LookupEnv(k); !exists {
			_ = os.Setenv(k, val)
		}
	}
	return nil
}
