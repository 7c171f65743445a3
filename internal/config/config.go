package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type AppConfig struct {
	Name string `yaml:"name"`
	Env  string `yaml:"env"`
}

type BackendConfig struct {
	BaseURL string `yaml:"base_url"`
	Timeout string `yaml:"timeout"`
}

type RealtimeConfig struct {
	URL               string `yaml:"url"`
	HandshakeTimeout  string `yaml:"handshake_timeout"`
	ReconnectInterval string `yaml:"reconnect_interval"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type StorageConfig struct {
	Backend          string      `yaml:"backend"` // "sqlite" or "redis"
	SQLitePath       string      `yaml:"sqlite_path"`
	Redis            RedisConfig `yaml:"redis"`
	SecurePath       string      `yaml:"secure_path"`
	DeviceSecretPath string      `yaml:"device_secret_path"`
}

type AuthConfig struct {
	LogoutCooldown   string `yaml:"logout_cooldown"`
	BiometricEnabled bool   `yaml:"biometric_enabled"`
}

type PolicyConfig struct {
	ModelPath string `yaml:"model_path"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "json" or "console"
}

type ConfigFile struct {
	App      AppConfig      `yaml:"app"`
	Backend  BackendConfig  `yaml:"backend"`
	Realtime RealtimeConfig `yaml:"realtime"`
	Storage  StorageConfig  `yaml:"storage"`
	Auth     AuthConfig     `yaml:"auth"`
	Policy   PolicyConfig   `yaml:"policy"`
	Logging  LoggingConfig  `yaml:"logging"`
}

type Config struct {
	AppName           string
	Env               string
	BackendBaseURL    string
	BackendTimeout    time.Duration
	RealtimeURL       string
	HandshakeTimeout  time.Duration
	ReconnectInterval time.Duration
	StorageBackend    string
	SQLitePath        string
	RedisAddr         string
	RedisPassword     string
	RedisDB           int
	SecurePath        string
	DeviceSecretPath  string
	LogoutCooldown    time.Duration
	BiometricEnabled  bool
	PolicyModelPath   string
	LogLevel          string
	LogFormat         string
}

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

// Load reads the yaml config file and applies environment overrides. A .env
// file next to the binary is honored when present.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	configFile, err := loadConfigFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	timeout, err := parseDuration(configFile.Backend.Timeout, 15*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid backend timeout: %w", err)
	}

	handshake, err := parseDuration(configFile.Realtime.HandshakeTimeout, 10*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid realtime handshake timeout: %w", err)
	}

	reconnect, err := parseDuration(configFile.Realtime.ReconnectInterval, 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid realtime reconnect interval: %w", err)
	}

	cooldown, err := parseDuration(configFile.Auth.LogoutCooldown, 2*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid logout cooldown: %w", err)
	}

	return &Config{
		AppName:           configFile.App.Name,
		Env:               env("RATELINK_ENV", configFile.App.Env),
		BackendBaseURL:    env("RATELINK_BACKEND_URL", configFile.Backend.BaseURL),
		BackendTimeout:    timeout,
		RealtimeURL:       env("RATELINK_REALTIME_URL", configFile.Realtime.URL),
		HandshakeTimeout:  handshake,
		ReconnectInterval: reconnect,
		StorageBackend:    env("RATELINK_STORAGE_BACKEND", configFile.Storage.Backend),
		SQLitePath:        env("RATELINK_SQLITE_PATH", configFile.Storage.SQLitePath),
		RedisAddr:         env("RATELINK_REDIS_ADDR", configFile.Storage.Redis.Addr),
		RedisPassword:     env("RATELINK_REDIS_PASSWORD", configFile.Storage.Redis.Password),
		RedisDB:           configFile.Storage.Redis.DB,
		SecurePath:        env("RATELINK_SECURE_PATH", configFile.Storage.SecurePath),
		DeviceSecretPath:  env("RATELINK_DEVICE_SECRET", configFile.Storage.DeviceSecretPath),
		LogoutCooldown:    cooldown,
		BiometricEnabled:  configFile.Auth.BiometricEnabled,
		PolicyModelPath:   configFile.Policy.ModelPath,
		LogLevel:          env("RATELINK_LOG_LEVEL", configFile.Logging.Level),
		LogFormat:         configFile.Logging.Format,
	}, nil
}

func loadConfigFile(path string) (*ConfigFile, error) {
	bytes, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("could not read config file at %s: %w", path, err)
	}

	var config ConfigFile
	if err := yaml.Unmarshal(bytes, &config); err != nil {
		return nil, fmt.Errorf("could not parse config yaml: %w", err)
	}

	return &config, nil
}

func parseDuration(s string, def time.Duration) (time.Duration, error) {
	if s == "" {
		return def, nil
	}
	return time.ParseDuration(s)
}
