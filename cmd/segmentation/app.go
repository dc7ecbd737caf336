package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/dropDatabas3/segmentation/internal/cache"
	"github.com/dropDatabas3/segmentation/internal/config"
	"github.com/dropDatabas3/segmentation/internal/distribution"
	"github.com/dropDatabas3/segmentation/internal/observability/logger"
	"github.com/dropDatabas3/segmentation/internal/store"

	// Registro de adapters.
	_ "github.com/dropDatabas3/segmentation/internal/store/adapters/memory"
	_ "github.com/dropDatabas3/segmentation/internal/store/adapters/pg"
)

// app agrupa las dependencias abiertas a partir de la config.
type app struct {
	cfg    *config.Config
	conn   store.AdapterConnection
	cache  cache.Client
	engine *distribution.Engine
}

func openApp(ctx context.Context, cfgPath string) (*app, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}
	logger.Init(logger.Config{Env: cfg.App.Env, Level: cfg.App.LogLevel, ServiceName: "segmentation"})

	conn, err := store.OpenAdapter(ctx, store.AdapterConfig{
		Name:         cfg.Storage.Driver,
		DSN:          cfg.Storage.DSN,
		MaxOpenConns: cfg.Storage.Postgres.MaxOpenConns,
		MaxIdleConns: cfg.Storage.Postgres.MaxIdleConns,
	})
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	cc, err := cache.New(ctx, cache.Config{
		Driver:     cfg.Cache.Kind,
		Addr:       cfg.Cache.Redis.Addr,
		Password:   cfg.Cache.Redis.Password,
		DB:         cfg.Cache.Redis.DB,
		Prefix:     cfg.Cache.Redis.Prefix,
		DefaultTTL: cfg.Cache.Memory.DefaultTTL,
	})
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open cache: %w", err)
	}

	policy, err := distribution.ParseFailurePolicy(cfg.Distribution.FailurePolicy)
	if err != nil {
		_ = conn.Close()
		_ = cc.Close()
		return nil, err
	}

	d := cfg.Distribution
	engine := distribution.New(distribution.Repositories{
		Users:       conn.Users(),
		Segments:    store.NewCachedSegments(conn.Segments(), cc, d.SegmentCacheTTL),
		Memberships: conn.Memberships(),
		Filters:     conn.Filters(),
	}, distribution.Options{
		Workers:       d.Workers,
		PageSize:      d.PageSize,
		FailurePolicy: policy,
		Seed:          d.Seed,
		Guard: distribution.GuardConfig{
			WriteRate:        d.WriteRate,
			WriteBurst:       d.WriteBurst,
			BreakerThreshold: d.BreakerThreshold,
			BreakerTimeout:   d.BreakerTimeout,
		},
		Locks:   cc,
		LockTTL: d.LockTTL,
	})

	logger.L().Debug("app opened",
		logger.String("storage", conn.Name()),
		logger.String("cache", cfg.Cache.Kind),
		logger.Int("workers", engine.Pool().Size()))

	return &app{cfg: cfg, conn: conn, cache: cc, engine: engine}, nil
}

func (a *app) Close() error {
	return errors.Join(a.cache.Close(), a.conn.Close())
}
