// Package config предоставляет структуры и функции для загрузки конфигурации сервиса
package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config общая структура для хранения настроек
type Config struct {
	Env                     string `yaml:"env" env:"ENV" env-default:"local"`
	StorageConnectionString string `yaml:"storage_connection_string" env:"STORAGE_CONNECTION_STRING" env-required:"true"`
	MigrationsPath          string `yaml:"migrations_path" env-default:"./migrations"`
	RedisConnection         `yaml:"redis_connection"`
	HTTPServer              `yaml:"http_server"`
	JWTToken                `yaml:"jwttoken"`
	Webhook                 `yaml:"webhook"`
	RabbitMQ                `yaml:"rabbitmq"`
	Entitlement             `yaml:"entitlement"`
	Notifier                `yaml:"notifier"`
	Scheduler               `yaml:"scheduler"`
	RateLimit               `yaml:"rate_limit"`
}

// HTTPServer структура для настройки сервера
type HTTPServer struct {
	AddressHTTP string        `yaml:"addresshttp" env-default:":8080"`
	TimeoutHTTP time.Duration `yaml:"timeouthttp" env-default:"10s"`
	IdleTimeout time.Duration `yaml:"idle_timeout" env-default:"60s"`
}

// RedisConnection структура для настройки подключения к redis
type RedisConnection struct {
	AddressRedis string        `yaml:"addressredis" env:"REDIS_ADDRESS"`
	Password     string        `yaml:"password" env:"REDIS_PASSWORD"`
	User         string        `yaml:"user"`
	DB           int           `yaml:"db"`
	MaxRetries   int           `yaml:"max_retries"`
	DialTimeout  time.Duration `yaml:"dial_timeout"`
	TimeoutRedis time.Duration `yaml:"timeoutredis"`
}

// JWTToken структура для проверки токенов доступа
type JWTToken struct {
	JWTSecretKey string        `yaml:"jwt_secret_key" env:"JWT_SECRET_KEY"`
	TokenTTL     time.Duration `yaml:"token_ttl" env-default:"24h"`
}

// Webhook настройки приёма событий биллинга
type Webhook struct {
	Secret         string        `yaml:"secret" env:"WEBHOOK_SECRET"`
	ProcessTimeout time.Duration `yaml:"process_timeout" env-default:"5s"`
}

// RabbitMQ настройки брокера уведомлений
type RabbitMQ struct {
	RabbitMQURL        string        `yaml:"url" env:"RABBITMQ_URL"`
	RabbitMQMaxRetries int           `yaml:"max_retries" env-default:"5"`
	RabbitMQRetryDelay time.Duration `yaml:"retry_delay" env-default:"2s"`
	Exchange           string        `yaml:"exchange" env-default:"notifications"`
}

// Entitlement настройки работы с правами пользователей
type Entitlement struct {
	MaxUpdateRetries int           `yaml:"max_update_retries" env-default:"3"`
	SnapshotCacheTTL time.Duration `yaml:"snapshot_cache_ttl" env-default:"5m"`
	LookupTimeout    time.Duration `yaml:"lookup_timeout" env-default:"2s"`
}

// Notifier настройки асинхронной отправки уведомлений
type Notifier struct {
	BufferSize int `yaml:"buffer_size" env-default:"256"`
}

// Scheduler настройки планировщика напоминаний
type Scheduler struct {
	ExpiryReminderInterval time.Duration `yaml:"expiry_reminder_interval" env-default:"12h"`
}

// RateLimit настройки ограничения частоты запросов на клиента
type RateLimit struct {
	RPS   float64 `yaml:"rps" env-default:"5"`
	Burst int     `yaml:"burst" env-default:"10"`
}

// Load читает конфиг из файла path, переменные окружения имеют приоритет.
func Load(path string) (*Config, error) {
	const op = "config.Load"
	if path == "" {
		return nil, fmt.Errorf("%s: CONFIG_PATH is not set", op)
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%s: file: %s - does not exist", op, path)
	}
	var cfg Config
	if err := cleanenv.ReadConfig(path, &cfg); err != nil {
		return nil, fmt.Errorf("%s: cannot read config: %w", op, err)
	}
	return &cfg, nil
}

// MustLoad загружает конфиг по пути из CONFIG_PATH и завершает процесс при ошибке.
func MustLoad() *Config {
	cfg, err := Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		log.Fatal(err)
	}
	return cfg
}

func mask(secret string) string {
	if secret == "" {
		return ""
	}
	return "***"
}

func (c *Config) String() string {
	return fmt.Sprintf(
		"Env: %s\n"+
			"StorageConnectionString: %s\n"+
			"MigrationsPath: %s\n"+
			"RedisConnection:\n"+
			"  Addr: %s\n"+
			"  Password: %s\n"+
			"  DB: %d\n"+
			"HTTPServer:\n"+
			"  Address: %s\n"+
			"  Timeout: %s\n"+
			"  IdleTimeout: %s\n"+
			"JWTToken:\n"+
			"  JWTSecretKey: %s\n"+
			"Webhook:\n"+
			"  Secret: %s\n"+
			"  ProcessTimeout: %s\n"+
			"RabbitMQ:\n"+
			"  Exchange: %s\n"+
			"Entitlement:\n"+
			"  MaxUpdateRetries: %d\n"+
			"  SnapshotCacheTTL: %s\n"+
			"  LookupTimeout: %s\n",
		c.Env,
		mask(c.StorageConnectionString),
		c.MigrationsPath,
		c.AddressRedis,
		mask(c.Password),
		c.DB,
		c.AddressHTTP,
		c.TimeoutHTTP,
		c.IdleTimeout,
		mask(c.JWTSecretKey),
		mask(c.Secret),
		c.ProcessTimeout,
		c.Exchange,
		c.MaxUpdateRetries,
		c.SnapshotCacheTTL,
		c.LookupTimeout,
	)
}
