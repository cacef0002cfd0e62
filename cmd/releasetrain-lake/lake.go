package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/custodia-labs/releasetrain-lake/internal/adapters/driven/auth"
	bleveindex "github.com/custodia-labs/releasetrain-lake/internal/adapters/driven/bleve"
	"github.com/custodia-labs/releasetrain-lake/internal/adapters/driven/postgres"
	redisadapter "github.com/custodia-labs/releasetrain-lake/internal/adapters/driven/redis"
	"github.com/custodia-labs/releasetrain-lake/internal/adapters/driven/releasetrain"
	"github.com/custodia-labs/releasetrain-lake/internal/adapters/driven/sqlite"
	httpadapter "github.com/custodia-labs/releasetrain-lake/internal/adapters/driving/http"
	"github.com/custodia-labs/releasetrain-lake/internal/config"
	"github.com/custodia-labs/releasetrain-lake/internal/core/ports/driven"
	"github.com/custodia-labs/releasetrain-lake/internal/core/services"
	"github.com/custodia-labs/releasetrain-lake/internal/normalisers"
	"github.com/custodia-labs/releasetrain-lake/internal/postprocessors"
	"github.com/custodia-labs/releasetrain-lake/internal/runtime"
)

// stores groups the lake tables of one backend
type stores struct {
	documents driven.DocumentStore
	sentences driven.SentenceStore
	facts     driven.FactStore
	latest    driven.LatestVersionStore
	states    driven.BuildStateStore
}

// lake is the assembled pipeline shared by every command
type lake struct {
	cfg    config.Config
	logger *slog.Logger

	vocabulary *runtime.Vocabulary
	stores     stores
	lock       driven.DistributedLock
	queue      driven.TaskQueue     // nil without redis
	index      driven.SentenceIndex // nil without INDEX_PATH

	builds  *services.BuildOrchestrator
	answers *services.AnswerService

	pingers map[string]httpadapter.Pinger
	closers []func() error
}

// openLake connects the configured backends and wires the services.
func openLake(ctx context.Context, cfg config.Config, logger *slog.Logger) (l *lake, err error) {
	l = &lake{
		cfg:     cfg,
		logger:  logger,
		pingers: make(map[string]httpadapter.Pinger),
	}
	defer func() {
		if err != nil {
			_ = l.Close()
		}
	}()

	lockName, err := l.openStore(ctx)
	if err != nil {
		return nil, err
	}

	if cfg.RedisURL != "" {
		if err := l.openRedis(ctx); err != nil {
			return nil, err
		}
	}

	if cfg.IndexPath != "" {
		index, err := bleveindex.Open(cfg.IndexPath)
		if err != nil {
			return nil, fmt.Errorf("failed to open sentence index: %w", err)
		}
		l.index = index
		l.closers = append(l.closers, index.Close)
	}

	if err := l.loadVocabulary(ctx); err != nil {
		return nil, err
	}

	items := normalisers.DefaultItemRegistry(normalisers.DefaultRegistry())
	silver := services.NewSilverBuilder(services.SilverBuilderConfig{
		Documents: l.stores.documents,
		Sentences: l.stores.sentences,
		Index:     l.index,
		Items:     items,
		Pipeline:  postprocessors.DefaultPipeline(l.vocabulary),
		Logger:    logger,
	})
	extractor := services.NewFactExtractor(services.FactExtractorConfig{
		Sentences: l.stores.sentences,
		Facts:     l.stores.facts,
		Logger:    logger,
	})
	resolver := services.NewLatestResolver(services.LatestResolverConfig{
		Facts:  l.stores.facts,
		Latest: l.stores.latest,
		Logger: logger,
	})

	l.builds = services.NewBuildOrchestrator(services.BuildOrchestratorConfig{
		Feed:             releasetrain.NewFeedClient(cfg.Feed.BaseURL, releasetrain.WithTimeout(cfg.Feed.Timeout)),
		States:           l.stores.states,
		Lock:             l.lock,
		Silver:           silver,
		Extractor:        extractor,
		Resolver:         resolver,
		Vocabulary:       l.vocabulary,
		Logger:           logger,
		LockName:         lockName,
		TTL:              cfg.Lake.TTL,
		LockWait:         cfg.Lake.LockWait,
		FetchConcurrency: cfg.Feed.FetchConcurrency,
	})

	l.answers = services.NewAnswerService(services.AnswerServiceConfig{
		Vocabulary: l.vocabulary,
		Latest:     l.stores.latest,
		Sentences:  l.stores.sentences,
		Index:      l.index,
		Lake:       l.builds,
		Limit:      cfg.Lake.AnswerLimit,
		Logger:     logger,
	})

	return l, nil
}

// openStore opens the database backend and its default lock. It returns
// the build lock name every process on that store shares.
func (l *lake) openStore(ctx context.Context) (string, error) {
	switch l.cfg.Store.Backend {
	case config.StorePostgres:
		db, err := postgres.Open(ctx, postgres.DefaultConfig(l.cfg.Store.DatabaseURL))
		if err != nil {
			return "", fmt.Errorf("failed to open postgres: %w", err)
		}
		l.closers = append(l.closers, db.Close)
		l.pingers["store"] = db
		l.stores = stores{
			documents: postgres.NewDocumentStore(db),
			sentences: postgres.NewSentenceStore(db),
			facts:     postgres.NewFactStore(db),
			latest:    postgres.NewLatestVersionStore(db),
			states:    postgres.NewBuildStateStore(db),
		}
		l.lock = postgres.NewAdvisoryLock(db)
		l.logger.Debug("using postgres store")
		return "lake", nil

	default:
		db, err := sqlite.Open(ctx, sqlite.DefaultConfig(l.cfg.Store.DBPath))
		if err != nil {
			return "", fmt.Errorf("failed to open sqlite: %w", err)
		}
		l.closers = append(l.closers, db.Close)
		l.pingers["store"] = db
		l.stores = stores{
			documents: sqlite.NewDocumentStore(db),
			sentences: sqlite.NewSentenceStore(db),
			facts:     sqlite.NewFactStore(db),
			latest:    sqlite.NewLatestVersionStore(db),
			states:    sqlite.NewBuildStateStore(db),
		}
		l.lock = sqlite.NewFileLockForDB(l.cfg.Store.DBPath)
		l.logger.Debug("using sqlite store", "path", l.cfg.Store.DBPath)
		return l.cfg.Store.DBPath, nil
	}
}

// openRedis swaps in the redis lock and enables the rebuild queue.
func (l *lake) openRedis(ctx context.Context) error {
	opts, err := redis.ParseURL(l.cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("invalid REDIS_URL: %w", err)
	}
	client := redis.NewClient(opts)
	l.closers = append(l.closers, client.Close)

	if err := client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to connect to redis: %w", err)
	}

	queue, err := redisadapter.NewQueue(ctx, client, "")
	if err != nil {
		return fmt.Errorf("failed to create task queue: %w", err)
	}
	lock := redisadapter.NewLock(client)

	l.lock = lock
	l.queue = queue
	l.pingers["lock"] = lock
	l.pingers["queue"] = queue
	l.logger.Debug("using redis lock and queue")
	return nil
}

func (l *lake) loadVocabulary(ctx context.Context) error {
	loader := runtime.StaticLoader(l.cfg.Vendors.Names)
	if l.cfg.Vendors.File != "" {
		loader = runtime.FileLoader(l.cfg.Vendors.File)
	}

	l.vocabulary = runtime.NewVocabulary(l.cfg.Vendors.Names, loader)
	n, err := l.vocabulary.Reload(ctx)
	if err != nil {
		return fmt.Errorf("failed to load vendor vocabulary: %w", err)
	}
	if n == 0 {
		l.logger.Warn("vendor vocabulary is empty, sentences will only be kept on intent flags")
	} else {
		l.logger.Debug("vendor vocabulary loaded", "vendors", n)
	}
	return nil
}

// newRefresher builds the periodic stale-vendor refresher.
func (l *lake) newRefresher() *services.Refresher {
	return services.NewRefresher(services.RefresherConfig{
		Lake:      l.builds,
		TaskQueue: l.queue,
		Lock:      l.lock,
		Logger:    l.logger,
		Interval:  l.cfg.Worker.RefreshInterval,
	})
}

// newVerifier returns the admin token verifier, or nil when no secret is set.
func (l *lake) newVerifier() (driven.TokenVerifier, error) {
	if l.cfg.Server.JWTSecret == "" {
		return nil, nil
	}
	verifier, err := auth.NewAdapter(l.cfg.Server.JWTSecret)
	if err != nil {
		return nil, err
	}
	return verifier, nil
}

// Close releases every backend in reverse order of opening.
func (l *lake) Close() error {
	var errs []error
	for i := len(l.closers) - 1; i >= 0; i-- {
		if err := l.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	l.closers = nil
	return errors.Join(errs...)
}
