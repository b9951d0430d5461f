package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies environment variable overrides, and returns
// the final Config. The returned Config has NOT been validated; the caller
// should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known environment variables and overwrites
// the corresponding Config fields when a variable is set (i.e. not empty).
// This lets operators inject secrets and per-deployment tuning at deploy
// time without touching the TOML file.
func applyEnvOverrides(cfg *Config) {
	setBool(&cfg.DryRun, "DRY_RUN")
	setFloat64(&cfg.Bankroll, "BANKROLL")
	setStr(&cfg.Asset, "ASSET")
	setStr(&cfg.Interval, "INTERVAL")
	setFloat64(&cfg.OracleDeltaS, "ORACLE_DELTA_S")
	setFloat64(&cfg.EWMALambda, "EWMA_LAMBDA")
	setFloat64(&cfg.SigmaFloorAnnual, "SIGMA_FLOOR_ANNUAL")
	setFloat64(&cfg.MaxExposureFrac, "MAX_EXPOSURE_FRAC")
	setFloat64(&cfg.DailyLossHalt, "DAILY_LOSS_HALT")
	setFloat64(&cfg.WeeklyLossHalt, "WEEKLY_LOSS_HALT")

	// STRAT_<NAME> toggles: {"1","true"} enable, {"0","false"} disable, any
	// other value (including unset) leaves the config/default unchanged.
	if cfg.Strategies == nil {
		cfg.Strategies = make(map[string]bool, len(strategyNames))
	}
	for _, name := range strategyNames {
		key := "STRAT_" + strings.ToUpper(name)
		if v, ok := os.LookupEnv(key); ok {
			switch v {
			case "1", "true":
				cfg.Strategies[name] = true
			case "0", "false":
				cfg.Strategies[name] = false
			}
		}
	}

	// ── Wallet ──
	setStr(&cfg.Wallet.PrivateKey, "PMENGINE_WALLET_PRIVATE_KEY")
	setStr(&cfg.Wallet.EncryptedKeyPath, "PMENGINE_WALLET_ENCRYPTED_KEY_PATH")
	setStr(&cfg.Wallet.KeyPassword, "PMENGINE_WALLET_KEY_PASSWORD")

	// ── Venue ──
	setStr(&cfg.Venue.ClobHost, "PMENGINE_VENUE_CLOB_HOST")
	setInt(&cfg.Venue.ChainID, "PMENGINE_VENUE_CHAIN_ID")
	setStr(&cfg.Venue.ApiKey, "PMENGINE_VENUE_API_KEY")
	setStr(&cfg.Venue.ApiSecret, "PMENGINE_VENUE_API_SECRET")
	setStr(&cfg.Venue.ApiPassphrase, "PMENGINE_VENUE_API_PASSPHRASE")

	// ── Postgres ──
	setStr(&cfg.Postgres.DSN, "PMENGINE_POSTGRES_DSN")
	setStr(&cfg.Postgres.Host, "PMENGINE_POSTGRES_HOST")
	setInt(&cfg.Postgres.Port, "PMENGINE_POSTGRES_PORT")
	setStr(&cfg.Postgres.Database, "PMENGINE_POSTGRES_DATABASE")
	setStr(&cfg.Postgres.User, "PMENGINE_POSTGRES_USER")
	setStr(&cfg.Postgres.Password, "PMENGINE_POSTGRES_PASSWORD")
	setStr(&cfg.Postgres.SSLMode, "PMENGINE_POSTGRES_SSL_MODE")
	setInt(&cfg.Postgres.PoolMaxConns, "PMENGINE_POSTGRES_POOL_MAX_CONNS")
	setInt(&cfg.Postgres.PoolMinConns, "PMENGINE_POSTGRES_POOL_MIN_CONNS")
	setBool(&cfg.Postgres.RunMigrations, "PMENGINE_POSTGRES_RUN_MIGRATIONS")

	// ── Redis ──
	setStr(&cfg.Redis.Addr, "PMENGINE_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "PMENGINE_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "PMENGINE_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "PMENGINE_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "PMENGINE_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "PMENGINE_REDIS_TLS_ENABLED")

	// ── S3 ──
	setStr(&cfg.S3.Endpoint, "PMENGINE_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "PMENGINE_S3_REGION")
	setStr(&cfg.S3.Bucket, "PMENGINE_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "PMENGINE_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "PMENGINE_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "PMENGINE_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "PMENGINE_S3_FORCE_PATH_STYLE")

	// ── Notify ──
	setStr(&cfg.Notify.TelegramToken, "PMENGINE_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "PMENGINE_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "PMENGINE_NOTIFY_DISCORD_WEBHOOK_URL")
	setStringSlice(&cfg.Notify.Events, "PMENGINE_NOTIFY_EVENTS")

	// ── Feeds ──
	setStr(&cfg.Feeds.Transport, "PMENGINE_FEEDS_TRANSPORT")
	setStr(&cfg.Feeds.OracleWSURL, "PMENGINE_FEEDS_ORACLE_WS_URL")
	setStr(&cfg.Feeds.VenueWSURL, "PMENGINE_FEEDS_VENUE_WS_URL")

	// ── Top-level ──
	setStr(&cfg.LogLevel, "PMENGINE_LOG_LEVEL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
