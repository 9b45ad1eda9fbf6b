package app

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	libdb "sunquote/backend/libs/db"
	libredis "sunquote/backend/libs/redis"
	"sunquote/backend/services/quote-service/internal/config"
	"sunquote/backend/services/quote-service/internal/db"
	"sunquote/backend/services/quote-service/internal/fingerprint"
	httpserver "sunquote/backend/services/quote-service/internal/http"
	"sunquote/backend/services/quote-service/internal/http/handlers"
	"sunquote/backend/services/quote-service/internal/http/middleware"
	redisstore "sunquote/backend/services/quote-service/internal/redis"
	"sunquote/backend/services/quote-service/internal/refdata"
	"sunquote/backend/services/quote-service/internal/repository"
	"sunquote/backend/services/quote-service/internal/service"
	"sunquote/backend/services/quote-service/internal/ws"
	"sunquote/backend/services/quote-service/seed"
)

const (
	wsPingInterval = 30 * time.Second
	wsWriteTimeout = 10 * time.Second
)

// App wires quote service dependencies.
type App struct {
	server  *httpserver.Server
	manager *ws.Manager
	db      *sql.DB
	redis   *goredis.Client
	logger  *zap.Logger
}

// New constructs application graph.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	a := &App{logger: logger}

	source, err := a.referenceSource(ctx, cfg)
	if err != nil {
		a.Close()
		return nil, err
	}

	var cache refdata.Cache
	if cfg.RedisEnabled() {
		client, err := libredis.NewRedisClient(ctx, libredis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			a.Close()
			return nil, err
		}
		a.redis = client
		cache = redisstore.NewSnapshotCache(client, source.Name(), cfg.SnapshotCacheTTL())
	}

	provider := refdata.NewProvider(source, cache, cfg.Reference.MemoTTL, logger)
	quoteService := service.NewQuoteService(provider, cfg.Pricing, fingerprint.NewBlake2bHasher(16), logger)

	a.manager = ws.NewManager(wsPingInterval)
	origins := httpserver.OriginAllowed(cfg.HTTP.AllowedOrigins)
	stream := ws.NewServer(a.manager, ws.NewQuoteProcessor(quoteService, logger), wsWriteTimeout, origins, logger)

	routes := httpserver.Routes{
		Quotes: handlers.NewQuoteHandlers(quoteService, logger),
		Stream: stream.HandleWS,
		Health: handlers.NewHealthHandler(quoteService),
	}

	router := httpserver.NewRouter(routes, middleware.StaffAuth(cfg.JWT.Secret))
	timeouts := httpserver.Timeouts{
		Read:     cfg.HTTP.ReadTimeout,
		Write:    cfg.HTTP.WriteTimeout,
		Shutdown: cfg.HTTP.ShutdownTimeout,
	}
	a.server = httpserver.NewServer(cfg.HTTPAddress(), router, timeouts, logger, httpserver.CORS(cfg.HTTP.AllowedOrigins))

	logger.Info("quote service configured",
		zap.String("reference_source", source.Name()),
		zap.Bool("redis", a.redis != nil),
		zap.Bool("staff_auth", cfg.JWT.Secret != ""),
	)
	return a, nil
}

func (a *App) referenceSource(ctx context.Context, cfg *config.Config) (refdata.Source, error) {
	switch cfg.Reference.Source {
	case config.SourceFile:
		return refdata.NewFileSource(cfg.Reference.File), nil
	case config.SourceS3:
		client, err := refdata.NewS3Client(ctx, cfg.Reference.Region)
		if err != nil {
			return nil, err
		}
		return refdata.NewS3Source(client, cfg.Reference.Bucket, cfg.Reference.Key), nil
	case config.SourceSeed:
		return seed.Source(), nil
	case config.SourcePostgres:
		sqlDB, err := db.NewPostgres(ctx, cfg.Database.DSN, libdb.PoolOptions{MaxOpenConns: cfg.Database.MaxOpenConns})
		if err != nil {
			return nil, err
		}
		a.db = sqlDB
		if cfg.Database.Migrate {
			if err := db.Migrate(sqlDB); err != nil {
				return nil, err
			}
		}
		repo := repository.NewReferenceRepository(sqlDB)
		if cfg.Database.SeedIfEmpty {
			if err := seedIfEmpty(ctx, repo, a.logger); err != nil {
				return nil, err
			}
		}
		return repo, nil
	default:
		return nil, fmt.Errorf("app: unknown reference source %q", cfg.Reference.Source)
	}
}

func seedIfEmpty(ctx context.Context, repo *repository.ReferenceRepository, logger *zap.Logger) error {
	empty, err := repo.IsEmpty(ctx)
	if err != nil {
		return err
	}
	if !empty {
		return nil
	}
	doc, err := seed.Source().Load(ctx)
	if err != nil {
		return err
	}
	if err := repo.Replace(ctx, doc); err != nil {
		return err
	}
	logger.Info("reference tables seeded", zap.String("from", seed.Name), zap.Int("products", len(doc.Products)))
	return nil
}

// Run starts the websocket keepalive loop and the HTTP server.
func (a *App) Run(ctx context.Context) error {
	go a.manager.Start(ctx)
	return a.server.Run(ctx)
}

// Close releases resources.
func (a *App) Close() {
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.logger.Warn("failed to close db", zap.Error(err))
		}
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Warn("failed to close redis", zap.Error(err))
		}
	}
}
