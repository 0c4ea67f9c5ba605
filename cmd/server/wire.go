package main

import (
	"fmt"

	"github.com/crm/backend/internal/domain/identity"
	"github.com/crm/backend/internal/domain/shared"
	"github.com/crm/backend/internal/infrastructure/auth"
	"github.com/crm/backend/internal/infrastructure/cache"
	"github.com/crm/backend/internal/infrastructure/config"
	"github.com/crm/backend/internal/infrastructure/event"
	"github.com/crm/backend/internal/infrastructure/mail"
	"github.com/crm/backend/internal/infrastructure/migration"
	"github.com/crm/backend/internal/infrastructure/persistence"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// infrastructure holds the shared clients that outlive a request
type infrastructure struct {
	cfg        *config.Config
	logger     *zap.Logger
	redis      *redis.Client
	rabbit     *event.RabbitMQPublisher
	jwtService *auth.JWTService
	blacklist  auth.TokenBlacklist
	publisher  shared.EventPublisher
	mailer     mail.Mailer
}

// newInfrastructure connects Redis and RabbitMQ when configured and falls
// back to in-process implementations otherwise
func newInfrastructure(cfg *config.Config, log *zap.Logger) (*infrastructure, error) {
	infra := &infrastructure{
		cfg:        cfg,
		logger:     log,
		jwtService: auth.NewJWTService(cfg.JWT),
		mailer:     mail.NewMailer(cfg.Mailgun, log),
	}

	if cfg.Redis.Enabled() {
		client, err := cache.NewRedisClient(cfg.Redis)
		if err != nil {
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		infra.redis = client
		infra.blacklist = auth.NewRedisTokenBlacklist(client)
		log.Info("Redis connected", zap.String("addr", cfg.Redis.Addr()))
	} else {
		infra.blacklist = auth.NewInMemoryTokenBlacklist()
		log.Warn("Redis not configured, token blacklist is kept in memory")
	}

	if cfg.RabbitMQ.Enabled() {
		publisher, err := event.NewRabbitMQPublisher(cfg.RabbitMQ, log)
		if err != nil {
			infra.close(log)
			return nil, fmt.Errorf("connect rabbitmq: %w", err)
		}
		infra.rabbit = publisher
		infra.publisher = publisher
	} else {
		infra.publisher = event.NewInMemoryEventBus(log)
	}

	return infra, nil
}

// scopeResolver wraps the resolver with the scope cache when enabled and
// returns the invalidator the identity services must call on changes
func (i *infrastructure) scopeResolver(resolver identity.ScopeResolver) (identity.ScopeResolver, identity.ScopeInvalidator) {
	if !i.cfg.AccessScope.CacheEnabled {
		return resolver, cache.NopInvalidator{}
	}

	var store cache.ScopeStore
	if i.redis != nil {
		store = cache.NewRedisScopeStore(i.redis, i.cfg.AccessScope.CacheTTL)
	} else {
		store = cache.NewInMemoryScopeStore(i.cfg.AccessScope.CacheTTL, cache.WithLogger(i.logger))
	}
	cached := cache.NewCachedScopeResolver(resolver, store, i.logger)
	i.logger.Info("Access scope cache enabled", zap.Duration("ttl", i.cfg.AccessScope.CacheTTL))
	return cached, cached
}

func (i *infrastructure) close(log *zap.Logger) {
	if i.rabbit != nil {
		if err := i.rabbit.Close(); err != nil {
			log.Warn("Error closing RabbitMQ publisher", zap.Error(err))
		}
	}
	if i.redis != nil {
		if err := i.redis.Close(); err != nil {
			log.Warn("Error closing Redis client", zap.Error(err))
		}
	}
}

// migrateUp applies all pending migrations before the server starts
func migrateUp(db *persistence.Database, path string, log *zap.Logger) error {
	sqlDB, err := db.DB.DB()
	if err != nil {
		return err
	}
	migrator, err := migration.New(sqlDB, path, log)
	if err != nil {
		return err
	}
	// Closing the migrator would close the shared pool
	return migrator.Up()
}
