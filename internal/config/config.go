package config

import (
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig
	Backend   BackendConfig
	DevServer DevServerConfig
	Redis     RedisConfig
	JWT       JWTConfig
	RateLimit RateLimitConfig
}

type ServerConfig struct {
	Port string
	Env  string
}

// BackendConfig points the orchestrator at the generation backend.
type BackendConfig struct {
	BaseURL      string
	PollInterval time.Duration
	MaxPolls     int
}

// DevServerConfig tunes the development generation backend.
type DevServerConfig struct {
	Port     string
	StepTime time.Duration
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type JWTConfig struct {
	Secret     string
	Expiration int // hours
}

type RateLimitConfig struct {
	GeneratePerHour int
}

func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	// Environment variables
	viper.AutomaticEnv()

	_ = viper.BindEnv("server.port", "SERVER_PORT")
	_ = viper.BindEnv("server.env", "SERVER_ENV")
	_ = viper.BindEnv("backend.base_url", "BACKEND_BASE_URL")
	_ = viper.BindEnv("backend.poll_interval_ms", "BACKEND_POLL_INTERVAL_MS")
	_ = viper.BindEnv("backend.max_polls", "BACKEND_MAX_POLLS")
	_ = viper.BindEnv("devserver.port", "DEVSERVER_PORT")
	_ = viper.BindEnv("devserver.step_time_ms", "DEVSERVER_STEP_TIME_MS")
	_ = viper.BindEnv("redis.addr", "REDIS_ADDR")
	_ = viper.BindEnv("redis.password", "REDIS_PASSWORD")
	_ = viper.BindEnv("redis.db", "REDIS_DB")
	_ = viper.BindEnv("jwt.secret", "JWT_SECRET")
	_ = viper.BindEnv("jwt.expiration", "JWT_EXPIRATION")

	// Defaults
	viper.SetDefault("server.port", "8080")
	viper.SetDefault("server.env", "development")
	viper.SetDefault("backend.base_url", "http://localhost:5000")
	viper.SetDefault("backend.poll_interval_ms", 2000)
	viper.SetDefault("backend.max_polls", 300)
	viper.SetDefault("devserver.port", "5000")
	viper.SetDefault("devserver.step_time_ms", 2000)
	viper.SetDefault("redis.addr", "localhost:6379")
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("jwt.secret", "")
	viper.SetDefault("jwt.expiration", 24)
	viper.SetDefault("ratelimit.generate_per_hour", 30)

	// Try to read config file (optional)
	_ = viper.ReadInConfig()

	cfg := &Config{
		Server: ServerConfig{
			Port: viper.GetString("server.port"),
			Env:  viper.GetString("server.env"),
		},
		Backend: BackendConfig{
			BaseURL:      viper.GetString("backend.base_url"),
			PollInterval: time.Duration(viper.GetInt("backend.poll_interval_ms")) * time.Millisecond,
			MaxPolls:     viper.GetInt("backend.max_polls"),
		},
		DevServer: DevServerConfig{
			Port:     viper.GetString("devserver.port"),
			StepTime: time.Duration(viper.GetInt("devserver.step_time_ms")) * time.Millisecond,
		},
		Redis: RedisConfig{
			Addr:     viper.GetString("redis.addr"),
			Password: viper.GetString("redis.password"),
			DB:       viper.GetInt("redis.db"),
		},
		JWT: JWTConfig{
			Secret:     viper.GetString("jwt.secret"),
			Expiration: viper.GetInt("jwt.expiration"),
		},
		RateLimit: RateLimitConfig{
			GeneratePerHour: viper.GetInt("ratelimit.generate_per_hour"),
		},
	}

	return cfg, nil
}
