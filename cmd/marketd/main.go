// Command marketd wires the marketplace engine against a Redis backend
// and serves its metrics. It seeds demo players when asked, which makes
// it handy for smoke-testing a deployment.
package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	redis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/xingyu42/farm-game-sub003/internal/config"
	"github.com/xingyu42/farm-game-sub003/internal/index"
	"github.com/xingyu42/farm-game-sub003/internal/lock"
	"github.com/xingyu42/farm-game-sub003/internal/market"
	"github.com/xingyu42/farm-game-sub003/internal/metrics"
	"github.com/xingyu42/farm-game-sub003/internal/store"
)

var (
	configPath  = flag.String("config", "", "Path to market.yaml (empty for defaults)")
	metricsAddr = flag.String("metrics", ":9090", "Metrics listen address")
	seed        = flag.Int("seed", 0, "Seed this many demo players and exit")
)

func main() {
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Fatal("redis unreachable", zap.String("addr", cfg.Redis.Addr), zap.Error(err))
	}

	st := store.NewRedisStore(client)
	locks := lock.NewManager(lock.NewRedis(client), lock.Config{
		TTL:        cfg.Lock.TTL.Std(),
		MaxRetries: cfg.Lock.MaxRetries,
		BaseDelay:  cfg.Lock.BaseDelay.Std(),
		MaxDelay:   cfg.Lock.MaxDelay.Std(),
		Jitter:     cfg.Lock.Jitter.Std(),
	}, logger)
	idx := index.NewFileStore(cfg.Market.IndexPath, logger)
	if err := idx.Load(ctx, st); err != nil {
		logger.Fatal("index load", zap.Error(err))
	}
	engine := market.NewEngine(st, locks, idx, cfg.Market, logger)

	if *seed > 0 {
		seedPlayers(ctx, st, *seed, logger)
		return
	}

	reg := metrics.NewRegistry()
	metrics.Register(reg)
	http.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	go func() {
		if err := http.ListenAndServe(*metricsAddr, nil); err != nil {
			logger.Fatal("metrics server", zap.Error(err))
		}
	}()
	logger.Info("marketd up",
		zap.String("redis", cfg.Redis.Addr),
		zap.String("metrics", *metricsAddr),
		zap.String("index", cfg.Market.IndexPath))

	s := engine.Summarize(ctx)
	logger.Info("market summary",
		zap.Int("listings", s.ActiveListings),
		zap.Int("resales", s.ActiveResales),
		zap.Int("holders", s.DistinctHolders),
		zap.Int64("listed_value", s.TotalListedValue))

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	logger.Info("shutting down")
}

func seedPlayers(ctx context.Context, st store.Store, n int, logger *zap.Logger) {
	for i := 1; i <= n; i++ {
		p := &store.Player{
			ID:   playerID(i),
			Gold: 10000,
			Lands: []*store.Land{
				{ID: 1}, {ID: 2}, {ID: 3}, {ID: 4},
			},
		}
		if err := st.Save(ctx, p.ID, p); err != nil {
			logger.Fatal("seed", zap.String("player", p.ID), zap.Error(err))
		}
	}
	logger.Info("seeded players", zap.Int("count", n))
}

func playerID(i int) string {
	return "demo-" + strconv.Itoa(i)
}
