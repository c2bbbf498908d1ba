// Package di wires the backend's components from a loaded configuration.
package di

import (
	"log/slog"
	"net/http"

	"github.com/uptrace/bun"

	"github.com/CalHacks12USF/fregister-backend/agent"
	"github.com/CalHacks12USF/fregister-backend/auth"
	"github.com/CalHacks12USF/fregister-backend/config"
	"github.com/CalHacks12USF/fregister-backend/conversation"
	"github.com/CalHacks12USF/fregister-backend/gateway"
	"github.com/CalHacks12USF/fregister-backend/httpapi"
	"github.com/CalHacks12USF/fregister-backend/internal/cacheinfra"
	"github.com/CalHacks12USF/fregister-backend/inventory"
	"github.com/CalHacks12USF/fregister-backend/mlconnector"
)

// Container holds the singleton instances of the backend. It is built once at startup
// and owns the database handle passed to NewContainer.
type Container struct {
	config  config.Config
	logger  *slog.Logger
	gateway *gateway.Gateway
	cache   *inventory.Cache

	agent    conversation.Agent
	identity auth.IdentityProvider

	services httpapi.Services
	server   *httpapi.Server
}

// Option overrides a collaborator before the services are wired.
type Option func(*Container)

// WithAgent replaces the HTTP AI agent client.
func WithAgent(a conversation.Agent) Option {
	return func(c *Container) { c.agent = a }
}

// WithIdentityProvider replaces the GoTrue client.
func WithIdentityProvider(p auth.IdentityProvider) Option {
	return func(c *Container) { c.identity = p }
}

// NewContainer wires every service on top of db.
func NewContainer(cfg config.Config, db *bun.DB, logger *slog.Logger, opts ...Option) (*Container, error) {
	if logger == nil {
		logger = slog.Default()
	}

	c := &Container{
		config:  cfg,
		logger:  logger,
		gateway: gateway.New(db),
	}
	for _, opt := range opts {
		opt(c)
	}

	cacheCfg := cacheinfra.DefaultConfig()
	if cfg.InventoryCacheTTL > 0 {
		cacheCfg.TTL = cfg.InventoryCacheTTL
	}
	cache, err := inventory.NewCache(c.gateway, cacheCfg, logger)
	if err != nil {
		return nil, err
	}
	c.cache = cache

	if c.agent == nil {
		c.agent = agent.NewClient(cfg.AIAgentBaseURL, cfg.AIAgentTimeout, logger)
	}
	if c.identity == nil {
		c.identity = auth.NewGoTrueClient(cfg.SupabaseURL, cfg.SupabaseAnonKey, nil)
	}

	c.services = httpapi.Services{
		Inventory:    inventory.NewService(cache, c.gateway, logger),
		Ingestion:    mlconnector.NewService(c.gateway, cache, logger),
		Conversation: conversation.NewService(c.gateway, c.agent, logger),
		Auth:         auth.NewService(c.identity, c.gateway, auth.NewTokenVerifier(cfg.SupabaseJWTSecret), logger),
		Health:       c.gateway,
	}
	c.server = httpapi.NewServer(c.services, httpapi.Options{CORSOrigin: cfg.CORSOrigin}, logger)

	return c, nil
}

// Config returns the configuration the container was built from.
func (c *Container) Config() config.Config {
	return c.config
}

// Gateway returns the data gateway.
func (c *Container) Gateway() *gateway.Gateway {
	return c.gateway
}

// InventoryCache returns the shared freshness cache of the latest snapshot.
func (c *Container) InventoryCache() *inventory.Cache {
	return c.cache
}

// Services returns the wired domain services.
func (c *Container) Services() httpapi.Services {
	return c.services
}

// Handler returns the HTTP handler serving every route.
func (c *Container) Handler() http.Handler {
	return c.server
}

// Close releases the database handle.
func (c *Container) Close() error {
	return c.gateway.Close()
}
