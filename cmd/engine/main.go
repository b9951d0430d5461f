// Command engine is the process entry point for the prediction-market
// trading core. It loads configuration, validates it, wires every
// collaborator (caches, durable storage, the order gateway, telemetry, and
// the two market data feeds), and runs the engine until signalled to stop.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	s3blob "github.com/onyxlabs/pmengine/internal/blob/s3"
	redisblob "github.com/onyxlabs/pmengine/internal/cache/redis"
	"github.com/onyxlabs/pmengine/internal/config"
	"github.com/onyxlabs/pmengine/internal/crypto"
	"github.com/onyxlabs/pmengine/internal/domain"
	pmengine "github.com/onyxlabs/pmengine/internal/engine"
	"github.com/onyxlabs/pmengine/internal/feed"
	"github.com/onyxlabs/pmengine/internal/gateway"
	"github.com/onyxlabs/pmengine/internal/market"
	"github.com/onyxlabs/pmengine/internal/notify"
	"github.com/onyxlabs/pmengine/internal/risk"
	"github.com/onyxlabs/pmengine/internal/state"
	"github.com/onyxlabs/pmengine/internal/store/postgres"
	"github.com/onyxlabs/pmengine/internal/strategy"
	"github.com/onyxlabs/pmengine/internal/telemetry"
)

func main() {
	configPath := flag.String("config", "config.toml", "path to configuration file")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("failed to load config", slog.String("path", *configPath), slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel(cfg.LogLevel)}))
	slog.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger.Info("engine starting", slog.Bool("dry_run", cfg.DryRun), slog.String("asset", cfg.Asset), slog.String("interval", cfg.Interval))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil && ctx.Err() == nil {
		logger.Error("engine exited with error", slog.String("error", err.Error()))
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}

	logger.Info("engine stopped")
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	pg, err := postgres.New(ctx, postgres.ClientConfig{
		DSN:      cfg.Postgres.DSN,
		Host:     cfg.Postgres.Host,
		Port:     cfg.Postgres.Port,
		Database: cfg.Postgres.Database,
		User:     cfg.Postgres.User,
		Password: cfg.Postgres.Password,
		SSLMode:  cfg.Postgres.SSLMode,
		MaxConns: cfg.Postgres.PoolMaxConns,
		MinConns: cfg.Postgres.PoolMinConns,
	})
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := pg.RunMigrations(ctx); err != nil {
			return fmt.Errorf("run migrations: %w", err)
		}
	}

	rdb, err := redisblob.New(ctx, redisblob.ClientConfig{
		Addr:       cfg.Redis.Addr,
		Password:   cfg.Redis.Password,
		DB:         cfg.Redis.DB,
		PoolSize:   cfg.Redis.PoolSize,
		MaxRetries: cfg.Redis.MaxRetries,
		TLSEnabled: cfg.Redis.TLSEnabled,
	})
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}
	defer rdb.Close()

	s3c, err := s3blob.New(ctx, s3blob.ClientConfig{
		Endpoint:       cfg.S3.Endpoint,
		Region:         cfg.S3.Region,
		Bucket:         cfg.S3.Bucket,
		AccessKey:      cfg.S3.AccessKey,
		SecretKey:      cfg.S3.SecretKey,
		UseSSL:         cfg.S3.UseSSL,
		ForcePathStyle: cfg.S3.ForcePathStyle,
	})
	if err != nil {
		return fmt.Errorf("connect s3: %w", err)
	}

	fillStore := postgres.NewFillStore(pg.Pool())
	settlementStore := postgres.NewSettlementStore(pg.Pool())
	marketStore := postgres.NewMarketMetaStore(pg.Pool())
	auditStore := postgres.NewAuditStore(pg.Pool())
	archiveWriter := s3blob.NewWriter(s3c)
	archiver := s3blob.NewArchiver(archiveWriter, settlementStore, fillStore, auditStore)

	var senders []notify.Sender
	if cfg.Notify.DiscordWebhookURL != "" {
		senders = append(senders, notify.NewDiscordSender(cfg.Notify.DiscordWebhookURL))
	}
	if cfg.Notify.TelegramToken != "" && cfg.Notify.TelegramChatID != "" {
		senders = append(senders, notify.NewTelegramSender(cfg.Notify.TelegramToken, cfg.Notify.TelegramChatID))
	}
	notifier := notify.NewNotifier(senders, cfg.Notify.Events, logger)

	sink := telemetry.New(notifier, settlementStore, fillStore, auditStore, archiver, logger)

	limiter := redisblob.NewRateLimiter(rdb)
	locks := redisblob.NewLockManager(rdb)

	orders, err := buildOrderSink(cfg, limiter, logger)
	if err != nil {
		return fmt.Errorf("build order sink: %w", err)
	}

	registry, limits := buildStrategies(cfg)

	oracle := state.NewPersistentOracleState(cfg.EWMALambda, cfg.SigmaFloorAnnual, 60_000, 30_000)
	portfolio := risk.NewPortfolioTracker(risk.PortfolioConfig{
		Bankroll:          cfg.Bankroll,
		MaxExposureFrac:   cfg.MaxExposureFrac,
		DailyLossHalt:     cfg.DailyLossHalt,
		WeeklyLossHalt:    cfg.WeeklyLossHalt,
		StaleFeedMaxAgeMs: 5000,
	}, time.Now())

	engineCfg := pmengine.DefaultConfig()
	engineCfg.OracleDeltaS = cfg.OracleDeltaS

	eng := pmengine.New(engineCfg, oracle, portfolio, registry, limits, orders, sink, locks, logger)

	oracleFeed, venueFeed := buildFeeds(cfg, rdb, logger)

	interval, err := time.ParseDuration(cfg.Interval)
	if err != nil {
		return fmt.Errorf("parse interval %q: %w", cfg.Interval, err)
	}
	priceCache := redisblob.NewPriceCache(rdb)
	clock := market.NewClockSource(cfg.Asset, interval, 0.01, false)
	source := market.NewPersistingSource(clock, marketStore, logger)
	strikes := market.NewCachedStrikeProvider(priceCache, cfg.Asset, interval)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return eng.Run(gctx, source, strikes) })
	g.Go(func() error { return oracleFeed.Run(gctx, eng) })
	g.Go(func() error { return venueFeed.Run(gctx, eng) })

	return g.Wait()
}

func buildOrderSink(cfg *config.Config, limiter domain.RateLimiter, logger *slog.Logger) (pmengine.OrderSink, error) {
	if cfg.DryRun {
		return gateway.NewSimulator(50 * time.Millisecond), nil
	}

	key, err := crypto.LoadKey(crypto.KeyConfig{
		RawPrivateKey:    cfg.Wallet.PrivateKey,
		EncryptedKeyPath: cfg.Wallet.EncryptedKeyPath,
		KeyPassword:      cfg.Wallet.KeyPassword,
	})
	if err != nil {
		return nil, fmt.Errorf("load wallet key: %w", err)
	}
	signer, err := crypto.NewSigner(key, cfg.Venue.ChainID)
	if err != nil {
		return nil, fmt.Errorf("create signer: %w", err)
	}

	var hmacAuth *crypto.HMACAuth
	if cfg.Venue.ApiKey != "" {
		hmacAuth = &crypto.HMACAuth{
			Key:        cfg.Venue.ApiKey,
			Secret:     cfg.Venue.ApiSecret,
			Passphrase: cfg.Venue.ApiPassphrase,
		}
	}

	return gateway.New(cfg.Venue.ClobHost, signer, hmacAuth, cfg.Venue.ChainID, limiter), nil
}

// buildFeeds selects the oracle/venue market data transport per
// cfg.Feeds.Transport. "redis" (the default) subscribes to the signal bus a
// co-located recorder publishes onto; "websocket" dials the reference
// exchange and venue CLOB directly.
func buildFeeds(cfg *config.Config, rdb *redisblob.Client, logger *slog.Logger) (feed.OracleFeed, feed.VenueFeed) {
	if cfg.Feeds.Transport == "websocket" {
		return feed.NewOracleWSFeed(cfg.Feeds.OracleWSURL, logger), feed.NewVenueWSFeed(cfg.Feeds.VenueWSURL, logger)
	}

	oracleBus := redisblob.NewSignalBus(rdb)
	venueBus := redisblob.NewSignalBus(rdb)
	return feed.NewRedisOracleFeed(oracleBus, "oracle:trades", logger),
		feed.NewRedisVenueFeed(venueBus, "venue:quotes", logger)
}

// buildStrategies constructs the six-strategy registry with their
// documented defaults, disabling any strategy named in STRAT_<NAME>=0, and
// the per-strategy risk gate limits fed into the reconciliation pipeline.
func buildStrategies(cfg *config.Config) (*strategy.Registry, map[string]risk.StrategyLimits) {
	cc := strategy.DefaultCertaintyCaptureConfig()
	cc.Enabled = cfg.StrategyEnabled("certainty_capture")
	cf := strategy.DefaultConvexityFadeConfig()
	cf.Enabled = cfg.StrategyEnabled("convexity_fade")
	rv := strategy.DefaultCrossTimeframeRVConfig()
	rv.Enabled = cfg.StrategyEnabled("cross_timeframe_rv")
	la := strategy.DefaultLatencyArbConfig()
	la.Enabled = cfg.StrategyEnabled("latency_arb")
	lp := strategy.DefaultLPExtremeConfig()
	lp.Enabled = cfg.StrategyEnabled("lp_extreme")
	sm := strategy.DefaultStrikeMisalignConfig()
	sm.Enabled = cfg.StrategyEnabled("strike_misalign")

	registry := strategy.NewRegistry(
		strategy.NewCertaintyCapture(cc),
		strategy.NewConvexityFade(cf),
		strategy.NewCrossTimeframeRV(rv),
		strategy.NewLatencyArb(la),
		strategy.NewLPExtreme(lp),
		strategy.NewStrikeMisalign(sm),
	)

	limits := map[string]risk.StrategyLimits{
		// PerTradeCapFrac matches the strategy's own top z-tier (|z|>3 -> 5%):
		// the strategy already caps sizeFrac per z-tier, so the risk gate's
		// per-trade cap must not clamp tighter than that top tier or the 3%
		// and 5% tiers could never be reached.
		"certainty_capture":  {CooldownMs: cc.CooldownMs, MaxOrdersPerMarket: cc.MaxOrders, PerTradeCapFrac: 0.05, TotalCapFrac: 0.05},
		"convexity_fade":     {CooldownMs: cf.CooldownMs, MaxOrdersPerMarket: cf.MaxOrders, PerTradeCapFrac: cf.PerTradeCap, TotalCapFrac: cf.TotalCap},
		"cross_timeframe_rv": {CooldownMs: 1000, MaxOrdersPerMarket: 5, PerTradeCapFrac: 0.01, TotalCapFrac: 0.04},
		"latency_arb":        {CooldownMs: la.CooldownMs, MaxOrdersPerMarket: la.MaxOrders, PerTradeCapFrac: la.PerTradeCap, TotalCapFrac: la.TotalCap},
		"lp_extreme":         {CooldownMs: lp.CooldownMs, MaxOrdersPerMarket: lp.MaxOrders, PerTradeCapFrac: lp.MaxSizeFrac, TotalCapFrac: lp.MaxSizeFrac * 4},
		"strike_misalign":    {CooldownMs: sm.CooldownMs, MaxOrdersPerMarket: sm.MaxOrders, PerTradeCapFrac: sm.PerTradeCap, TotalCapFrac: sm.TotalCap},
	}

	return registry, limits
}

func logLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
