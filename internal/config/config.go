// Package config defines the top-level configuration for the trading
// engine and provides validation helpers.
package config

import (
	"fmt"
	"strings"
)

// strategyNames enumerates every strategy the registry can run, used to
// validate STRAT_<NAME> overrides and to build the default toggle map.
var strategyNames = []string{
	"certainty_capture",
	"convexity_fade",
	"cross_timeframe_rv",
	"latency_arb",
	"lp_extreme",
	"strike_misalign",
}

// Config is the root configuration structure. Fields are populated from a
// TOML file and then optionally overridden by environment variables: the
// trading parameters (DRY_RUN, BANKROLL, STRAT_<NAME>, ...) unprefixed, the
// infrastructure settings under PMENGINE_*.
type Config struct {
	DryRun           bool            `toml:"dry_run"`
	Bankroll         float64         `toml:"bankroll"`
	Asset            string          `toml:"asset"`
	Interval         string          `toml:"interval"`
	OracleDeltaS     float64         `toml:"oracle_delta_s"`
	EWMALambda       float64         `toml:"ewma_lambda"`
	SigmaFloorAnnual float64         `toml:"sigma_floor_annual"`
	MaxExposureFrac  float64         `toml:"max_exposure_frac"`
	DailyLossHalt    float64         `toml:"daily_loss_halt"`
	WeeklyLossHalt   float64         `toml:"weekly_loss_halt"`
	Strategies       map[string]bool `toml:"strategies"`
	Wallet           WalletConfig    `toml:"wallet"`
	Venue            VenueConfig     `toml:"venue"`
	Postgres         PostgresConfig  `toml:"postgres"`
	Redis            RedisConfig     `toml:"redis"`
	S3               S3Config        `toml:"s3"`
	Notify           NotifyConfig    `toml:"notify"`
	Feeds            FeedConfig      `toml:"feeds"`
	LogLevel         string          `toml:"log_level"`
}

// FeedConfig selects and configures the market data transport. "redis" (the
// default) subscribes to the signal bus a co-located recorder/ingestion
// process publishes onto; "websocket" dials the venue and reference
// exchange directly.
type FeedConfig struct {
	Transport   string `toml:"transport"`
	OracleWSURL string `toml:"oracle_ws_url"`
	VenueWSURL  string `toml:"venue_ws_url"`
}

// WalletConfig holds Ethereum wallet credentials used for EIP-712 order
// signing. Ignored entirely when DryRun is true.
type WalletConfig struct {
	PrivateKey       string `toml:"private_key"`
	EncryptedKeyPath string `toml:"encrypted_key_path"`
	KeyPassword      string `toml:"key_password"`
}

// VenueConfig holds the CLOB REST endpoint, chain, and Builder/L2
// authentication parameters needed to submit live orders.
type VenueConfig struct {
	ClobHost      string `toml:"clob_host"`
	ChainID       int    `toml:"chain_id"`
	ApiKey        string `toml:"api_key"`
	ApiSecret     string `toml:"api_secret"`
	ApiPassphrase string `toml:"api_passphrase"`
}

// PostgresConfig holds durable-storage connection parameters for fills,
// settlements, market metadata, and the audit log.
type PostgresConfig struct {
	DSN           string `toml:"dsn"`
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	Database      string `toml:"database"`
	User          string `toml:"user"`
	Password      string `toml:"password"`
	SSLMode       string `toml:"ssl_mode"`
	PoolMaxConns  int    `toml:"pool_max_conns"`
	PoolMinConns  int    `toml:"pool_min_conns"`
	RunMigrations bool   `toml:"run_migrations"`
}

// RedisConfig holds connection parameters for the price cache,
// signal bus, rate limiter, and distributed lock.
type RedisConfig struct {
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`
}

// S3Config holds S3-compatible object storage parameters used to archive
// settled markets' fills and settlement batches.
type S3Config struct {
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	UseSSL         bool   `toml:"use_ssl"`
	ForcePathStyle bool   `toml:"force_path_style"`
}

// NotifyConfig holds notification channel credentials.
type NotifyConfig struct {
	TelegramToken     string   `toml:"telegram_token"`
	TelegramChatID    string   `toml:"telegram_chat_id"`
	DiscordWebhookURL string   `toml:"discord_webhook_url"`
	Events            []string `toml:"events"`
}

// Defaults returns a Config populated with reasonable default values,
// matching the numeric defaults documented per-module.
func Defaults() Config {
	strategies := make(map[string]bool, len(strategyNames))
	for _, name := range strategyNames {
		strategies[name] = name != "cross_timeframe_rv"
	}

	return Config{
		DryRun:           true,
		Bankroll:         1000.0,
		Asset:            "ETH",
		Interval:         "1h",
		OracleDeltaS:     2.0,
		EWMALambda:       0.94,
		SigmaFloorAnnual: 0.30,
		MaxExposureFrac:  0.15,
		DailyLossHalt:    -0.03,
		WeeklyLossHalt:   -0.08,
		Strategies:       strategies,
		Venue: VenueConfig{
			ClobHost: "https://clob.polymarket.com",
			ChainID:  137,
		},
		Postgres: PostgresConfig{
			Host:          "localhost",
			Port:          5432,
			Database:      "pmengine",
			User:          "pmengine",
			SSLMode:       "disable",
			PoolMaxConns:  10,
			PoolMinConns:  2,
			RunMigrations: true,
		},
		Redis: RedisConfig{
			Addr:       "localhost:6379",
			DB:         0,
			PoolSize:   20,
			MaxRetries: 3,
		},
		S3: S3Config{
			Endpoint:       "http://localhost:9000",
			Region:         "us-east-1",
			Bucket:         "pmengine-archive",
			ForcePathStyle: true,
		},
		Notify: NotifyConfig{
			Events: []string{"settlement", "risk_halt", "error"},
		},
		Feeds: FeedConfig{
			Transport: "redis",
		},
		LogLevel: "info",
	}
}

var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate checks Config for obviously invalid or missing values and
// returns a combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	if c.Bankroll <= 0 {
		errs = append(errs, "bankroll must be > 0")
	}
	if c.Asset == "" {
		errs = append(errs, "asset must not be empty")
	}
	if c.Interval == "" {
		errs = append(errs, "interval must not be empty")
	}
	if c.OracleDeltaS < 0 {
		errs = append(errs, "oracle_delta_s must be >= 0")
	}
	if c.EWMALambda <= 0 || c.EWMALambda >= 1 {
		errs = append(errs, "ewma_lambda must be in (0, 1)")
	}
	if c.SigmaFloorAnnual <= 0 {
		errs = append(errs, "sigma_floor_annual must be > 0")
	}
	if c.MaxExposureFrac <= 0 || c.MaxExposureFrac > 1 {
		errs = append(errs, "max_exposure_frac must be in (0, 1]")
	}
	if c.DailyLossHalt >= 0 {
		errs = append(errs, "daily_loss_halt must be negative")
	}
	if c.WeeklyLossHalt >= 0 {
		errs = append(errs, "weekly_loss_halt must be negative")
	}
	for name := range c.Strategies {
		if !knownStrategy(name) {
			errs = append(errs, fmt.Sprintf("strategies: unknown strategy %q", name))
		}
	}

	if !c.DryRun {
		if c.Wallet.PrivateKey == "" && c.Wallet.EncryptedKeyPath == "" {
			errs = append(errs, "wallet: either private_key or encrypted_key_path must be set when dry_run is false")
		}
		if c.Wallet.EncryptedKeyPath != "" && c.Wallet.KeyPassword == "" {
			errs = append(errs, "wallet: key_password is required when encrypted_key_path is set")
		}
		if c.Venue.ClobHost == "" {
			errs = append(errs, "venue: clob_host must not be empty when dry_run is false")
		}
		if c.Venue.ChainID <= 0 {
			errs = append(errs, "venue: chain_id must be positive")
		}
	}

	if strings.TrimSpace(c.Postgres.DSN) == "" {
		if c.Postgres.Host == "" {
			errs = append(errs, "postgres: host must not be empty (or set postgres.dsn)")
		}
		if c.Postgres.Port <= 0 || c.Postgres.Port > 65535 {
			errs = append(errs, fmt.Sprintf("postgres: port must be 1-65535, got %d", c.Postgres.Port))
		}
		if c.Postgres.Database == "" {
			errs = append(errs, "postgres: database must not be empty")
		}
	}
	if c.Postgres.PoolMaxConns < 1 {
		errs = append(errs, "postgres: pool_max_conns must be >= 1")
	}
	if c.Postgres.PoolMinConns < 0 {
		errs = append(errs, "postgres: pool_min_conns must be >= 0")
	}
	if c.Postgres.PoolMinConns > c.Postgres.PoolMaxConns {
		errs = append(errs, "postgres: pool_min_conns must not exceed pool_max_conns")
	}

	if c.Redis.Addr == "" {
		errs = append(errs, "redis: addr must not be empty")
	}
	if c.Redis.PoolSize < 1 {
		errs = append(errs, "redis: pool_size must be >= 1")
	}

	if c.S3.Endpoint == "" {
		errs = append(errs, "s3: endpoint must not be empty")
	}
	if c.S3.Bucket == "" {
		errs = append(errs, "s3: bucket must not be empty")
	}

	switch c.Feeds.Transport {
	case "redis":
	case "websocket":
		if c.Feeds.OracleWSURL == "" {
			errs = append(errs, "feeds: oracle_ws_url must not be empty when transport is websocket")
		}
		if c.Feeds.VenueWSURL == "" {
			errs = append(errs, "feeds: venue_ws_url must not be empty when transport is websocket")
		}
	default:
		errs = append(errs, fmt.Sprintf("feeds: unknown transport %q (valid: redis, websocket)", c.Feeds.Transport))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

func knownStrategy(name string) bool {
	for _, n := range strategyNames {
		if n == name {
			return true
		}
	}
	return false
}

// StrategyEnabled reports whether the named strategy is enabled, defaulting
// to true for any strategy not explicitly present in the toggle map.
func (c *Config) StrategyEnabled(name string) bool {
	if v, ok := c.Strategies[name]; ok {
		return v
	}
	return true
}
