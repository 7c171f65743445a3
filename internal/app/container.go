package app

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/casbin/casbin/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/you/ratelink/domain"
	"github.com/you/ratelink/internal/config"
	"github.com/you/ratelink/internal/infrastructure/auth"
	"github.com/you/ratelink/internal/infrastructure/backend"
	"github.com/you/ratelink/internal/infrastructure/realtime"
	"github.com/you/ratelink/internal/infrastructure/storage"
	"github.com/you/ratelink/internal/services"
)

// Container holds all dependencies
type Container struct {
	// Config
	Config *config.Config
	Logger *zap.Logger

	// Infrastructure
	RedisClient *redis.Client
	SQLiteStore *storage.SQLiteStoreImpl
	Store       domain.SessionStore
	Secure      domain.SecureStore
	Gateway     *backend.Gateway
	Channel     domain.RealtimeChannel

	// Backend surfaces
	AuthAPI domain.AuthAPI
	RateAPI domain.RateAPI
	UserAPI domain.UserAPI
	Devices domain.DeviceRegistrar

	// Services
	PolicySvc  domain.PolicyService
	SessionSvc *services.SessionServiceImpl
	RateSvc    *services.RateServiceImpl
	UserSvc    *services.UserServiceImpl
}

// NewContainer creates and initializes all dependencies
func NewContainer(cfg *config.Config) (*Container, error) {
	container := &Container{Config: cfg}

	if err := container.initLogger(); err != nil {
		return nil, err
	}
	if err := container.initStores(); err != nil {
		return nil, err
	}
	if err := container.initBackend(); err != nil {
		return nil, err
	}
	if err := container.initServices(); err != nil {
		return nil, err
	}

	return container, nil
}

func (c *Container) initLogger() error {
	var logCfg zap.Config
	if c.Config.LogFormat == "console" || c.Config.Env == "development" {
		logCfg = zap.NewDevelopmentConfig()
	} else {
		logCfg = zap.NewProductionConfig()
	}
	if c.Config.LogLevel != "" {
		level, err := zap.ParseAtomicLevel(c.Config.LogLevel)
		if err != nil {
			return fmt.Errorf("invalid log level %q: %w", c.Config.LogLevel, err)
		}
		logCfg.Level = level
	}

	logger, err := logCfg.Build()
	if err != nil {
		return err
	}
	c.Logger = logger
	return nil
}

func (c *Container) initStores() error {
	switch c.Config.StorageBackend {
	case "redis":
		c.RedisClient = redis.NewClient(&redis.Options{
			Addr:     c.Config.RedisAddr,
			Password: c.Config.RedisPassword,
			DB:       c.Config.RedisDB,
		})
		c.Store = storage.NewRedisStore(c.RedisClient)
	case "sqlite", "":
		if err := os.MkdirAll(filepath.Dir(c.Config.SQLitePath), 0o700); err != nil {
			return fmt.Errorf("failed to create data directory: %w", err)
		}
		store, err := storage.OpenSQLite(c.Config.SQLitePath)
		if err != nil {
			return fmt.Errorf("failed to open sqlite store: %w", err)
		}
		c.SQLiteStore = store
		c.Store = store
	default:
		return fmt.Errorf("unknown storage backend %q", c.Config.StorageBackend)
	}

	if err := os.MkdirAll(filepath.Dir(c.Config.SecurePath), 0o700); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}
	secure, err := storage.NewSecureStore(c.Config.SecurePath, c.Config.DeviceSecretPath)
	if err != nil {
		return fmt.Errorf("failed to open secure store: %w", err)
	}
	c.Secure = secure
	return nil
}

func (c *Container) initBackend() error {
	gw, err := backend.NewGateway(c.Config.BackendBaseURL, c.Config.BackendTimeout, c.Store, c.Logger.Named("gateway"))
	if err != nil {
		return fmt.Errorf("failed to build gateway: %w", err)
	}
	gw.SetLogoutCooldown(c.Config.LogoutCooldown)
	c.Gateway = gw

	c.AuthAPI = backend.NewAuthAPI(gw)
	c.RateAPI = backend.NewRateAPI(gw)
	c.UserAPI = backend.NewUserAPI(gw)
	c.Devices = backend.NewDeviceRegistrar(gw, c.Store, c.Logger.Named("devices"))

	c.Channel = realtime.NewChannel(
		c.Config.RealtimeURL,
		c.Config.HandshakeTimeout,
		c.Config.ReconnectInterval,
		c.Logger.Named("realtime"),
	)
	return nil
}

func (c *Container) initServices() error {
	enforcer, err := casbin.NewEnforcer(c.Config.PolicyModelPath)
	if err != nil {
		return fmt.Errorf("failed to build enforcer: %w", err)
	}
	c.PolicySvc, err = services.NewPolicyService(enforcer)
	if err != nil {
		return err
	}

	c.SessionSvc = services.NewSessionService(
		c.Store,
		c.Secure,
		c.AuthAPI,
		c.Devices,
		c.Channel,
		auth.NewStaticAuthenticator(c.Config.BiometricEnabled, c.Logger.Named("biometric")),
		auth.NewJWTInspector(0),
		c.Logger.Named("session"),
	)

	// 401s from any backend call funnel into the single logout path
	c.Gateway.OnUnauthorized(c.SessionSvc.OnUnauthorized)

	c.RateSvc = services.NewRateService(c.RateAPI, c.SessionSvc, c.PolicySvc, c.RedisClient, c.Logger.Named("rates"))
	c.RateSvc.Bind(c.Channel)

	c.UserSvc = services.NewUserService(c.UserAPI, c.SessionSvc, c.PolicySvc, c.Logger.Named("users"))
	return nil
}

// Close closes all connections
func (c *Container) Close() error {
	if c.Channel != nil {
		c.Channel.Disconnect()
	}
	if c.RedisClient != nil {
		c.RedisClient.Close()
	}
	if c.SQLiteStore != nil {
		if err := c.SQLiteStore.Close(); err != nil {
			return err
		}
	}
	if c.Logger != nil {
		c.Logger.Sync()
	}
	return nil
}
