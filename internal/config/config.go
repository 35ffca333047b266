package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Redis    RedisConfig    `mapstructure:"redis"`
	MySQL    MySQLConfig    `mapstructure:"mysql"`
	Engine   EngineConfig   `mapstructure:"engine"`
	Instance InstanceConfig `mapstructure:"instance"`
	Log      LogConfig      `mapstructure:"log"`
}

type ServerConfig struct {
	Port int    `mapstructure:"port"`
	Host string `mapstructure:"host"`
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type MySQLConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	Migrate         bool          `mapstructure:"migrate"`
}

// EngineConfig tunes the bidding engine itself.
type EngineConfig struct {
	// TickInterval is how often the expiry scheduler sweeps sessions.
	TickInterval time.Duration `mapstructure:"tick_interval"`
	// RetryInterval is how often failed bid writes are retried.
	RetryInterval time.Duration `mapstructure:"retry_interval"`
	// DefaultDuration applies when a session is created without an explicit duration.
	DefaultDuration time.Duration `mapstructure:"default_duration"`
	// EventsChannel is the Redis pub/sub channel for bid and session events.
	EventsChannel string `mapstructure:"events_channel"`
}

type InstanceConfig struct {
	ID string `mapstructure:"id"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("redis.address", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("mysql.dsn", "auction_user:auction_pass@tcp(localhost:3306)/auction_db?parseTime=true&multiStatements=true")
	v.SetDefault("mysql.max_open_conns", 25)
	v.SetDefault("mysql.max_idle_conns", 10)
	v.SetDefault("mysql.conn_max_lifetime", 5*time.Minute)
	v.SetDefault("mysql.migrate", true)
	v.SetDefault("engine.tick_interval", time.Second)
	v.SetDefault("engine.retry_interval", 10*time.Second)
	v.SetDefault("engine.default_duration", 24*time.Hour)
	v.SetDefault("engine.events_channel", "auction_events")
	v.SetDefault("instance.id", "auction-service-1")
	v.SetDefault("log.level", "info")
}

func bindEnv(v *viper.Viper) {
	v.AutomaticEnv()

	// Environment variable mappings
	v.BindEnv("server.port", "SERVER_PORT")
	v.BindEnv("server.host", "SERVER_HOST")
	v.BindEnv("redis.address", "REDIS_ADDRESS")
	v.BindEnv("redis.password", "REDIS_PASSWORD")
	v.BindEnv("redis.db", "REDIS_DB")
	v.BindEnv("mysql.dsn", "MYSQL_DSN")
	v.BindEnv("mysql.max_open_conns", "MYSQL_MAX_OPEN_CONNS")
	v.BindEnv("mysql.max_idle_conns", "MYSQL_MAX_IDLE_CONNS")
	v.BindEnv("mysql.conn_max_lifetime", "MYSQL_CONN_MAX_LIFETIME")
	v.BindEnv("mysql.migrate", "MYSQL_MIGRATE")
	v.BindEnv("engine.tick_interval", "ENGINE_TICK_INTERVAL")
	v.BindEnv("engine.retry_interval", "ENGINE_RETRY_INTERVAL")
	v.BindEnv("engine.default_duration", "ENGINE_DEFAULT_DURATION")
	v.BindEnv("engine.events_channel", "ENGINE_EVENTS_CHANNEL")
	v.BindEnv("instance.id", "INSTANCE_ID")
	v.BindEnv("log.level", "LOG_LEVEL")
}

func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	// Configuration file settings
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/auction-system/")

	bindEnv(v)

	// Read configuration file (optional - will use defaults/env vars if not found)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	return unmarshal(v)
}

// LoadFromFile loads configuration from a specific file path
func LoadFromFile(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	bindEnv(v)
	v.SetConfigFile(configPath)

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	return unmarshal(v)
}

func unmarshal(v *viper.Viper) (*Config, error) {
	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// Validate rejects settings the engine cannot run with.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("config: invalid server.port %d", c.Server.Port)
	}
	if c.Engine.TickInterval < time.Second {
		return fmt.Errorf("config: engine.tick_interval must be at least 1s, got %s", c.Engine.TickInterval)
	}
	if c.Engine.RetryInterval < time.Second {
		return fmt.Errorf("config: engine.retry_interval must be at least 1s, got %s", c.Engine.RetryInterval)
	}
	if c.Engine.DefaultDuration <= 0 {
		return fmt.Errorf("config: engine.default_duration must be positive, got %s", c.Engine.DefaultDuration)
	}
	if c.Engine.EventsChannel == "" {
		return errors.New("config: engine.events_channel is required")
	}
	return nil
}

// GetConfigString summarizes the config for the startup log. Secrets are left out.
func (c *Config) GetConfigString() string {
	return fmt.Sprintf(
		"Server: %s:%d, Redis: %s, Instance: %s, Tick: %s",
		c.Server.Host,
		c.Server.Port,
		c.Redis.Address,
		c.Instance.ID,
		c.Engine.TickInterval,
	)
}
