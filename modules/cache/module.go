package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/types"
	"github.com/redis/go-redis/v9"
)

// Config holds the Redis connection and key settings.
// An empty Addr disables caching.
type Config struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
	TTL      time.Duration
}

// PluginModule provides caching services as a mono plugin module.
type PluginModule struct {
	container types.ServiceContainer
	service   CacheService
	cfg       Config
	logger    types.Logger
}

// Compile-time interface checks.
var (
	_ mono.PluginModule          = (*PluginModule)(nil)
	_ mono.HealthCheckableModule = (*PluginModule)(nil)
)

// NewPluginModule creates the cache plugin. The client is created immediately
// so Port() can be called before Start(); go-redis connects lazily.
func NewPluginModule(cfg Config, logger types.Logger) *PluginModule {
	m := &PluginModule{
		cfg:    cfg,
		logger: logger,
	}
	if cfg.Addr == "" {
		m.service = NewNoopCache()
	} else {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Addr,
			Password: cfg.Password,
			DB:       cfg.DB,
			PoolSize: 50,
		})
		m.service = NewRedisCache(client, cfg.Prefix, cfg.TTL)
	}
	return m
}

// Name returns the module name.
func (m *PluginModule) Name() string {
	return "cache"
}

// Start checks connectivity. An unreachable Redis is logged, not fatal:
// cache errors never fail a request.
func (m *PluginModule) Start(ctx context.Context) error {
	if !m.Enabled() {
		m.logger.Info("Cache plugin started without Redis, caching disabled")
		return nil
	}
	if err := m.service.Ping(ctx); err != nil {
		m.logger.Warn("Redis not reachable, requests will fall through to the database",
			"addr", m.cfg.Addr, "error", err)
	}
	m.logger.Info("Cache plugin started", "addr", m.cfg.Addr, "prefix", m.cfg.Prefix, "ttl", m.cfg.TTL.String())
	return nil
}

// Stop closes the Redis connection.
func (m *PluginModule) Stop(_ context.Context) error {
	if err := m.service.Close(); err != nil {
		m.logger.Error("Error closing cache connection", "error", err)
		return fmt.Errorf("failed to close connection: %w", err)
	}
	m.logger.Info("Cache plugin stopped")
	return nil
}

// SetContainer sets the service container for this plugin.
func (m *PluginModule) SetContainer(container types.ServiceContainer) {
	m.container = container
}

// Container returns the service container for this plugin.
func (m *PluginModule) Container() types.ServiceContainer {
	return m.container
}

// Port returns the CacheService used by consumers.
func (m *PluginModule) Port() CacheService {
	return m.service
}

// Enabled reports whether a Redis backend is configured.
func (m *PluginModule) Enabled() bool {
	return m.cfg.Addr != ""
}

// Health returns the current health status.
func (m *PluginModule) Health(ctx context.Context) mono.HealthStatus {
	if !m.Enabled() {
		return mono.HealthStatus{
			Healthy: true,
			Message: "disabled",
		}
	}

	if err := m.service.Ping(ctx); err != nil {
		return mono.HealthStatus{
			Healthy: false,
			Message: fmt.Sprintf("health check failed: %v", err),
		}
	}

	return mono.HealthStatus{
		Healthy: true,
		Message: "operational",
		Details: map[string]any{
			"redis_addr": m.cfg.Addr,
			"prefix":     m.cfg.Prefix,
			"ttl":        m.cfg.TTL.String(),
		},
	}
}
