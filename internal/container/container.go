package container

import (
	"context"
	"fmt"

	"depth-feed-go/api"
	"depth-feed-go/config"
	"depth-feed-go/gateway"
	"depth-feed-go/infrastructure/logger"
	"depth-feed-go/internal/exchange"
	"depth-feed-go/internal/store"
	"depth-feed-go/market"
	"depth-feed-go/metrics"
)

// Container 依赖注入容器，管理所有组件的生命周期
type Container struct {
	// 配置
	cfg        config.AppConfig
	configPath string

	// 基础设施
	logger *logger.Logger

	// 行情
	publisher *market.Publisher
	store     *store.Store
	feed      *gateway.DepthFeed
	stream    *exchange.DepthStream

	// HTTP服务器
	apiServer     *httpServerComponent
	metricsServer *httpServerComponent

	// 生命周期管理
	lifecycle *LifecycleManager
}

// New 创建新的Container实例；configPath 为空时只使用默认值和环境变量。
func New(configPath string) (*Container, error) {
	cfg, err := config.LoadWithEnvOverrides(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config failed: %w", err)
	}
	return NewWithConfig(cfg, configPath), nil
}

// NewWithConfig 使用已加载好的配置
func NewWithConfig(cfg config.AppConfig, configPath string) *Container {
	return &Container{
		cfg:        cfg,
		configPath: configPath,
		lifecycle:  NewLifecycleManager(),
	}
}

// Build 构建所有组件
func (c *Container) Build() error {
	if err := c.buildInfrastructure(); err != nil {
		return fmt.Errorf("build infrastructure failed: %w", err)
	}
	c.buildFeed()
	c.buildServers()
	if err := c.registerLifecycleComponents(); err != nil {
		return fmt.Errorf("register components failed: %w", err)
	}
	c.logger.Info("container built successfully")
	return nil
}

func (c *Container) buildInfrastructure() error {
	var err error
	c.logger, err = logger.New(c.cfg.Log)
	if err != nil {
		return fmt.Errorf("create logger failed: %w", err)
	}
	c.logger = c.logger.WithFields(map[string]interface{}{"env": c.cfg.Env})
	return nil
}

func (c *Container) buildFeed() {
	c.publisher = market.NewPublisher()
	c.store = store.New(c.publisher, c.logger.Sink())

	fc := c.cfg.Feed
	c.feed = gateway.NewDepthFeed(gateway.FeedConfig{
		Endpoint:         fc.Endpoint,
		Token:            fc.Token,
		ClientID:         fc.ClientID,
		ExchangeSegment:  fc.ExchangeSegment,
		SecurityID:       fc.SecurityID,
		HandshakeTimeout: fc.HandshakeTimeout(),
	}, c.store, c.logger)

	c.stream = exchange.NewDepthStream(c.feed, exchange.ReconnectPolicy{
		Delay:       fc.ReconnectDelay(),
		MaxAttempts: fc.MaxAttempts,
	}, c.logger)
	c.stream.SetEventSink(func(event string, fields map[string]interface{}) {
		c.logger.LogFeed(event, fields)
	})
}

func (c *Container) buildServers() {
	srv := api.New(api.Options{
		Store:             c.store,
		Publisher:         c.publisher,
		Credentials:       c.feed.Credentials,
		Health:            c.HealthCheck,
		ExposeCredentials: c.cfg.HTTP.ExposeCredentials,
		Logger:            c.logger,
	})
	c.apiServer = &httpServerComponent{
		name:    "api_server",
		handler: srv.Handler(),
		addr:    c.cfg.HTTP.Addr,
		logger:  c.logger,
	}
	if !c.cfg.Metrics.Disabled {
		c.metricsServer = &httpServerComponent{
			name:    "metrics_server",
			handler: metrics.Handler(),
			addr:    c.cfg.Metrics.Addr,
			logger:  c.logger,
		}
	}
}

func (c *Container) registerLifecycleComponents() error {
	if c.metricsServer != nil {
		c.lifecycle.Register(c.metricsServer)
	}
	c.lifecycle.Register(c.apiServer)
	c.lifecycle.Register(c.stream)
	if c.configPath != "" {
		w, err := config.NewWatcher(c.configPath, 0)
		if err != nil {
			return err
		}
		w.OnError = func(err error) {
			c.logger.LogError(err, map[string]interface{}{"action": "config_reload"})
		}
		c.lifecycle.Register(&funcComponent{
			name: "config_watcher",
			log:  c.logger,
			run: func(ctx context.Context) error {
				return w.Run(ctx, c.applyConfig)
			},
		})
	}
	return nil
}

// applyConfig 热更新只处理凭证；下一次重连生效。
func (c *Container) applyConfig(cfg config.AppConfig) {
	token, clientID := c.feed.Credentials()
	if cfg.Feed.Token == token && cfg.Feed.ClientID == clientID {
		return
	}
	c.feed.SetCredentials(cfg.Feed.Token, cfg.Feed.ClientID)
	c.logger.LogFeed("credentials_rotated", map[string]interface{}{"client_id": cfg.Feed.ClientID})
}

func (c *Container) Start(ctx context.Context) error {
	c.logger.Info("starting container...")
	if err := c.lifecycle.StartAll(ctx); err != nil {
		return fmt.Errorf("start failed: %w", err)
	}
	c.logger.Info("container started")
	return nil
}

func (c *Container) Stop() error {
	c.logger.Info("stopping container...")
	err := c.lifecycle.StopAll()
	if err != nil {
		c.logger.LogError(err, map[string]interface{}{"action": "stop"})
	}
	_ = c.logger.Close()
	return err
}

func (c *Container) HealthCheck() error {
	return c.lifecycle.CheckHealth()
}

// Store 共享盘口（供外部查询层直接使用）
func (c *Container) Store() *store.Store { return c.store }

// Logger 容器日志器
func (c *Container) Logger() *logger.Logger { return c.logger }

// APIAddr API 实际监听地址
func (c *Container) APIAddr() string { return c.apiServer.Addr() }

// MetricsAddr /metrics 实际监听地址；关闭时为空
func (c *Container) MetricsAddr() string {
	if c.metricsServer == nil {
		return ""
	}
	return c.metricsServer.Addr()
}
