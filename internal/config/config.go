package config

import (
	"os"
	"strings"

	"github.com/spf13/viper"
)

// readSecret reads a Docker secret from a file path specified by an env var
// with _FILE suffix. If FOO is already set directly, the file is skipped.
// If FOO_FILE is set, reads the file content and sets FOO.
func readSecret(envKey string) {
	if os.Getenv(envKey) != "" {
		return
	}
	fileKey := envKey + "_FILE"
	filePath := os.Getenv(fileKey)
	if filePath == "" {
		return
	}
	data, err := os.ReadFile(filePath)
	if err != nil {
		return
	}
	val := strings.TrimSpace(string(data))
	os.Setenv(envKey, val)
}

type Config struct {
	Server ServerConfig
	Redis  RedisConfig
	Worker WorkerConfig
	OpenAI OpenAIConfig
}

type ServerConfig struct {
	Port string
	Env  string
}

type RedisConfig struct {
	Addr       string
	Password   string
	DB         int
	JobTTLDays int // 0 keeps job records forever
}

type WorkerConfig struct {
	Concurrency    int
	Queue          string
	MaxRetry       int
	RetentionHours int
}

type OpenAIConfig struct {
	APIKey         string
	BaseURL        string
	Model          string
	TimeoutSeconds int
}

func Load() (*Config, error) {
	// Read Docker Swarm secrets from _FILE env vars before Viper binds
	readSecret("REDIS_PASSWORD")
	readSecret("OPENAI_API_KEY")

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	// Environment variables
	viper.AutomaticEnv()

	// Bind environment variables with underscores to nested config keys
	_ = viper.BindEnv("server.port", "SERVER_PORT")
	_ = viper.BindEnv("server.env", "SERVER_ENV")
	_ = viper.BindEnv("redis.addr", "REDIS_ADDR")
	_ = viper.BindEnv("redis.password", "REDIS_PASSWORD")
	_ = viper.BindEnv("redis.db", "REDIS_DB")
	_ = viper.BindEnv("redis.job_ttl_days", "REDIS_JOB_TTL_DAYS")
	_ = viper.BindEnv("worker.concurrency", "WORKER_CONCURRENCY")
	_ = viper.BindEnv("worker.queue", "WORKER_QUEUE")
	_ = viper.BindEnv("worker.max_retry", "WORKER_MAX_RETRY")
	_ = viper.BindEnv("worker.retention_hours", "WORKER_RETENTION_HOURS")
	_ = viper.BindEnv("openai.api_key", "OPENAI_API_KEY")
	_ = viper.BindEnv("openai.base_url", "OPENAI_BASE_URL")
	_ = viper.BindEnv("openai.model", "OPENAI_MODEL")
	_ = viper.BindEnv("openai.timeout_seconds", "OPENAI_TIMEOUT_SECONDS")

	// Defaults
	viper.SetDefault("server.port", "8000")
	viper.SetDefault("server.env", "development")
	viper.SetDefault("redis.addr", "localhost:6379")
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("redis.job_ttl_days", 0)
	// One job at a time per consumer keeps dequeue order FIFO and bounds
	// the blast radius of a stuck generator call to a single job.
	viper.SetDefault("worker.concurrency", 1)
	viper.SetDefault("worker.queue", "guideline_queue")
	viper.SetDefault("worker.max_retry", 3)
	viper.SetDefault("worker.retention_hours", 24)
	viper.SetDefault("openai.api_key", "")
	viper.SetDefault("openai.base_url", "https://api.openai.com/v1")
	viper.SetDefault("openai.model", "gpt-4o-mini")
	viper.SetDefault("openai.timeout_seconds", 60)

	// Try to read config file (optional)
	_ = viper.ReadInConfig()

	cfg := &Config{
		Server: ServerConfig{
			Port: viper.GetString("server.port"),
			Env:  viper.GetString("server.env"),
		},
		Redis: RedisConfig{
			Addr:       viper.GetString("redis.addr"),
			Password:   viper.GetString("redis.password"),
			DB:         viper.GetInt("redis.db"),
			JobTTLDays: viper.GetInt("redis.job_ttl_days"),
		},
		Worker: WorkerConfig{
			Concurrency:    viper.GetInt("worker.concurrency"),
			Queue:          viper.GetString("worker.queue"),
			MaxRetry:       viper.GetInt("worker.max_retry"),
			RetentionHours: viper.GetInt("worker.retention_hours"),
		},
		OpenAI: OpenAIConfig{
			APIKey:         viper.GetString("openai.api_key"),
			BaseURL:        viper.GetString("openai.base_url"),
			Model:          viper.GetString("openai.model"),
			TimeoutSeconds: viper.GetInt("openai.timeout_seconds"),
		},
	}

	return cfg, nil
}
