package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	s3blob "github.com/probmarket/ledger/internal/blob/s3"
	redisc "github.com/probmarket/ledger/internal/cache/redis"
	"github.com/probmarket/ledger/internal/config"
	"github.com/probmarket/ledger/internal/domain"
	"github.com/probmarket/ledger/internal/events"
	"github.com/probmarket/ledger/internal/ledger"
	"github.com/probmarket/ledger/internal/server"
	"github.com/probmarket/ledger/internal/server/handler"
	"github.com/probmarket/ledger/internal/server/ws"
	"github.com/probmarket/ledger/internal/store/memory"
	"github.com/probmarket/ledger/internal/store/postgres"
)

// Deps holds the wired application dependencies.
type Deps struct {
	Service  *ledger.Service
	Server   *server.Server
	Hub      *ws.Hub
	Archiver *s3blob.Archiver
}

// Wire constructs all dependencies from the configuration and returns them
// together with a cleanup function that releases connections in reverse
// order.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Deps, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	// --- Stores ---
	var (
		markets domain.MarketStore
		orders  domain.OrderStore
		audit   domain.AuditStore
	)
	healthChecks := make(map[string]handler.HealthChecker)

	switch cfg.Ledger.Store {
	case "postgres":
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
			cleanup()
			return nil, nil, fmt.Errorf("app: postgres: %w", err)
		}
		closers = append(closers, pg.Close)
		if cfg.Ledger.RunMigrations {
			if err := pg.Migrate(ctx); err != nil {
				cleanup()
				return nil, nil, fmt.Errorf("app: migrate: %w", err)
			}
		}
		markets = postgres.NewMarketStore(pg)
		orders = postgres.NewOrderStore(pg)
		audit = postgres.NewAuditStore(pg)
		healthChecks["postgres"] = pg
	case "memory":
		markets = memory.NewMarketStore()
		orders = memory.NewOrderStore()
		audit = memory.NewAuditStore()
	default:
		cleanup()
		return nil, nil, fmt.Errorf("app: unsupported store %q", cfg.Ledger.Store)
	}

	// --- Event bus and rate limiter ---
	var (
		bus     domain.EventBus
		limiter domain.RateLimiter
	)
	if cfg.Redis.Enabled {
		rc, err := redisc.New(ctx, redisc.ClientConfig{
			Addr:       cfg.Redis.Addr,
			Password:   cfg.Redis.Password,
			DB:         cfg.Redis.DB,
			PoolSize:   cfg.Redis.PoolSize,
			MaxRetries: cfg.Redis.MaxRetries,
			TLSEnabled: cfg.Redis.TLSEnabled,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("app: redis: %w", err)
		}
		closers = append(closers, func() { _ = rc.Close() })
		bus = redisc.NewEventBus(rc)
		limiter = redisc.NewRateLimiter(rc)
		healthChecks["redis"] = healthFunc(rc.Ping)
	} else {
		bus = events.NewMemoryBus()
	}

	// --- Ledger core ---
	svc := ledger.New(markets, orders, audit, bus, cfg.Ledger.SettlementAuthority, logger)

	// --- Archiver ---
	var archiver *s3blob.Archiver
	if cfg.S3.Enabled {
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
			cleanup()
			return nil, nil, fmt.Errorf("app: s3: %w", err)
		}
		archiver = s3blob.NewArchiver(
			s3blob.NewWriter(s3c), audit,
			cfg.S3.ArchivePrefix, cfg.S3.ArchiveInterval, logger,
		)
		healthChecks["s3"] = s3c
	}

	// --- HTTP surface ---
	hub := ws.NewHub(bus, logger)
	handlers := server.Handlers{
		Health:  handler.NewHealthHandler(healthChecks),
		Markets: handler.NewMarketHandler(svc, logger),
		Orders:  handler.NewOrderHandler(svc, logger),
		Fills:   handler.NewFillHandler(svc, logger),
	}
	srv := server.NewServer(server.Config{
		Port:            cfg.Server.Port,
		CORSOrigins:     cfg.Server.CORSOrigins,
		AuthDisabled:    cfg.Server.AuthDisabled,
		SignatureWindow: cfg.Ledger.SignatureWindow,
		RateLimitRPS:    cfg.Server.RateLimitRPS,
		ReadTimeout:     time.Duration(cfg.Server.ReadTimeoutSec) * time.Second,
	}, handlers, hub, limiter, logger)

	return &Deps{
		Service:  svc,
		Server:   srv,
		Hub:      hub,
		Archiver: archiver,
	}, cleanup, nil
}

// healthFunc adapts a plain func to handler.HealthChecker.
type healthFunc func(ctx context.Context) error

func (f healthFunc) Health(ctx context.Context) error {
	return f(ctx)
}
