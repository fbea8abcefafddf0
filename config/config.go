package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"turks-backend/core"
	"turks-backend/signature"
)

const envPrefix = "TURKS_"

// Config is the full runtime configuration of the backend.
type Config struct {
	Server  ServerConfig  `koanf:"server"`
	Auth    AuthConfig    `koanf:"auth"`
	Payment PaymentConfig `koanf:"payment"`
	Ledger  LedgerConfig  `koanf:"ledger"`
	Storage StorageConfig `koanf:"storage"`
	Upload  UploadConfig  `koanf:"upload"`
	Events  EventsConfig  `koanf:"events"`
	Logging LoggingConfig `koanf:"logging"`
	Metrics MetricsConfig `koanf:"metrics"`
}

type ServerConfig struct {
	Port           int           `koanf:"port"`
	CORSOrigin     string        `koanf:"cors_origin"`
	RequestTimeout time.Duration `koanf:"request_timeout"`
	RateLimit      int           `koanf:"rate_limit"` // requests per minute per client, 0 disables
}

type AuthConfig struct {
	UserSecret    string        `koanf:"user_secret"`
	WorkerSecret  string        `koanf:"worker_secret"`
	UserTTL       time.Duration `koanf:"user_ttl"`
	WorkerTTL     time.Duration `koanf:"worker_ttl"`
	UserMessage   string        `koanf:"user_message"`
	WorkerMessage string        `koanf:"worker_message"`
	RequireNonce  bool          `koanf:"require_nonce"`
	NonceTTL      time.Duration `koanf:"nonce_ttl"`
}

type PaymentConfig struct {
	Treasury      string `koanf:"treasury"`
	PriceLamports uint64 `koanf:"price_lamports"`
	Label         string `koanf:"label"`
}

type LedgerConfig struct {
	Driver       string        `koanf:"driver"` // rpc or static
	RPCURL       string        `koanf:"rpc_url"`
	Commitment   string        `koanf:"commitment"`
	Timeout      time.Duration `koanf:"timeout"`
	RetryCount   int           `koanf:"retry_count"`
	RetryWait    time.Duration `koanf:"retry_wait"`
	RetryMaxWait time.Duration `koanf:"retry_max_wait"`
}

type StorageConfig struct {
	Driver     string `koanf:"driver"` // memory, sqlite or postgres
	DSN        string `koanf:"dsn"`
	SQLitePath string `koanf:"sqlite_path"`
}

type UploadConfig struct {
	Bucket        string        `koanf:"bucket"`
	Region        string        `koanf:"region"`
	Endpoint      string        `koanf:"endpoint"`
	AccessKey     string        `koanf:"access_key"`
	SecretKey     string        `koanf:"secret_key"`
	PublicBaseURL string        `koanf:"public_base_url"`
	Expiry        time.Duration `koanf:"expiry"`
}

type EventsConfig struct {
	NATSURL string `koanf:"nats_url"`
	Subject string `koanf:"subject"`
}

type LoggingConfig struct {
	Level       string `koanf:"level"`
	Development bool   `koanf:"development"`
}

type MetricsConfig struct {
	Enabled bool `koanf:"enabled"`
}

// Default returns the configuration used when nothing overrides it.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Port:           3000,
			CORSOrigin:     "http://localhost:3001",
			RequestTimeout: 30 * time.Second,
			RateLimit:      120,
		},
		Auth: AuthConfig{
			UserTTL:   24 * time.Hour,
			WorkerTTL: time.Hour,
			NonceTTL:  5 * time.Minute,
		},
		Payment: PaymentConfig{
			PriceLamports: core.LamportsPerSOL / 10,
			Label:         "Mechanical Turks task",
		},
		Ledger: LedgerConfig{
			Driver:       "rpc",
			RPCURL:       "https://api.devnet.solana.com",
			Commitment:   "confirmed",
			Timeout:      10 * time.Second,
			RetryCount:   3,
			RetryWait:    500 * time.Millisecond,
			RetryMaxWait: 5 * time.Second,
		},
		Storage: StorageConfig{
			Driver:     "memory",
			SQLitePath: "turks.db",
		},
		Upload: UploadConfig{
			Region: "us-east-1",
			Expiry: time.Hour,
		},
		Events: EventsConfig{
			Subject: "tasks.created",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
	}
}

// legacyEnv maps the variable names the first deployment used onto config keys.
var legacyEnv = map[string]string{
	"JWT_SECRET":            "auth.user_secret",
	"WORKER_JWT_SECRET":     "auth.worker_secret",
	"PARENT_WALLET_ADDRESS": "payment.treasury",
	"PORT":                  "server.port",
	"CORS_ORIGIN":           "server.cors_origin",
	"DATABASE_URL":          "storage.dsn",
	"RPC_URL":               "ledger.rpc_url",
	"NATS_URL":              "events.nats_url",
}

// Load reads defaults, then the YAML file at TURKS_CONFIG_PATH (config.yaml
// when unset, skipped when absent), then legacy and TURKS_ prefixed
// environment variables. A .env file is loaded into the environment first.
func Load() (Config, error) {
	_ = godotenv.Load()
	return load(configPath())
}

func configPath() string {
	if p := os.Getenv(envPrefix + "CONFIG_PATH"); p != "" {
		return p
	}
	return "config.yaml"
}

func load(path string) (Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return Config{}, fmt.Errorf("load defaults: %w", err)
	}

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
				return Config{}, fmt.Errorf("load %s: %w", path, err)
			}
		}
	}

	for name, key := range legacyEnv {
		if value := os.Getenv(name); value != "" {
			if err := k.Set(key, value); err != nil {
				return Config{}, fmt.Errorf("set %s: %w", key, err)
			}
		}
	}

	if err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		return strings.Replace(strings.ToLower(
			strings.TrimPrefix(s, envPrefix)), "__", ".", -1)
	}), nil); err != nil {
		return Config{}, fmt.Errorf("load env: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	return cfg, nil
}

// Validate rejects configurations the server cannot run safely with.
func (c Config) Validate() error {
	var errs []error
	if c.Auth.UserSecret == "" {
		errs = append(errs, errors.New("auth.user_secret is required"))
	}
	if c.Auth.WorkerSecret == "" {
		errs = append(errs, errors.New("auth.worker_secret is required"))
	}
	if c.Auth.UserSecret != "" && c.Auth.UserSecret == c.Auth.WorkerSecret {
		errs = append(errs, errors.New("auth.user_secret and auth.worker_secret must differ"))
	}
	if c.Auth.UserTTL <= 0 || c.Auth.WorkerTTL <= 0 {
		errs = append(errs, errors.New("token ttls must be positive"))
	}
	if c.Auth.RequireNonce && c.Auth.NonceTTL <= 0 {
		errs = append(errs, errors.New("auth.nonce_ttl must be positive when nonces are required"))
	}
	if _, err := signature.DecodeAddress(c.Payment.Treasury); err != nil {
		errs = append(errs, fmt.Errorf("payment.treasury: %w", err))
	}
	if c.Payment.PriceLamports == 0 {
		errs = append(errs, errors.New("payment.price_lamports must be positive"))
	}
	switch c.Storage.Driver {
	case "memory":
	case "sqlite":
		if c.Storage.SQLitePath == "" {
			errs = append(errs, errors.New("storage.sqlite_path is required for the sqlite driver"))
		}
	case "postgres":
		if c.Storage.DSN == "" {
			errs = append(errs, errors.New("storage.dsn is required for the postgres driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown storage driver %q", c.Storage.Driver))
	}
	return errors.Join(errs...)
}
