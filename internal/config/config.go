// Package config предоставялет структуры и функцию для парсинга и загрузки конфига
package config

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Допустимые границы таймаута запроса к модели.
const (
	MinCompletionTimeout = 20 * time.Second
	MaxCompletionTimeout = 90 * time.Second
)

// Config общая структура для хранения настроек
type Config struct {
	Env                     string `yaml:"env" env-default:"local"`
	StorageConnectionString string `yaml:"storage_connection_string" env:"DATABASE_URL"`
	MigrationsPath          string `yaml:"migrations_path" env-default:"./migrations"`
	HTTPServer              `yaml:"http_server"`
	RedisConnection         `yaml:"redis_connection"`
	Telegram                `yaml:"telegram"`
	Completion              `yaml:"completion"`
	Relay                   `yaml:"relay"`
	Admin                   `yaml:"admin"`
	RabbitMQ                `yaml:"rabbitmq"`
	Scheduler               `yaml:"scheduler"`
	RateLimit               `yaml:"rate_limit"`
}

// HTTPServer структура для настройки сервера
type HTTPServer struct {
	AddressHTTP string        `yaml:"addresshttp" env-default:":8080"`
	TimeoutHTTP time.Duration `yaml:"timeouthttp" env-default:"100s"`
	IdleTimeout time.Duration `yaml:"idle_timeout" env-default:"60s"`
}

// RedisConnection структура для настройки подключения к redis
type RedisConnection struct {
	AddressRedis string        `yaml:"addressredis"`
	Password     string        `yaml:"password"`
	User         string        `yaml:"user"`
	DB           int           `yaml:"db"`
	MaxRetries   int           `yaml:"max_retries"`
	DialTimeout  time.Duration `yaml:"dial_timeout"`
	TimeoutRedis time.Duration `yaml:"timeoutredis"`
	// UpdateTTL время, в течение которого update_id считается уже обработанным.
	UpdateTTL time.Duration `yaml:"update_ttl" env-default:"24h"`
}

// Telegram настройки Bot API.
type Telegram struct {
	BotToken       string        `yaml:"bot_token" env:"TELEGRAM_BOT_TOKEN"`
	APIURL         string        `yaml:"api_url" env-default:"https://api.telegram.org"`
	WebhookSecret  string        `yaml:"webhook_secret" env:"TELEGRAM_WEBHOOK_SECRET"`
	TimeoutSending time.Duration `yaml:"timeout_sending" env-default:"10s"`
}

// Completion настройки OpenAI-совместимого эндпоинта (OpenRouter).
type Completion struct {
	APIURL      string        `yaml:"api_url" env-default:"https://openrouter.ai/api/v1/chat/completions"`
	APIKey      string        `yaml:"api_key" env:"OPENROUTER_API_KEY"`
	Model       string        `yaml:"model" env:"OPENROUTER_MODEL" env-default:"deepseek/deepseek-chat-v3-0324"`
	Temperature *float64      `yaml:"temperature"`
	Referer     string        `yaml:"referer"`
	Title       string        `yaml:"title"`
	Timeout     time.Duration `yaml:"timeout" env-default:"60s"`
}

// DefaultFallbackReply ответ пользователю, когда модель недоступна.
const DefaultFallbackReply = "Desculpe, algo deu errado ao gerar a resposta."

// Relay параметры конвейера обработки сообщений.
type Relay struct {
	SystemPrompt    string `yaml:"system_prompt" env:"SYSTEM_PROMPT"`
	HistoryWindow   int    `yaml:"history_window" env-default:"10"`
	TrialDays       int    `yaml:"trial_days" env-default:"5"`
	ResetToken      string `yaml:"reset_token" env-default:"/start"`
	RejectionNotice string `yaml:"rejection_notice" env-default:"Seu acesso expirou ou foi bloqueado. Entre em contato para renovar."`
	FallbackReply   string `yaml:"fallback_reply" env:"FALLBACK_REPLY"`
}

// Admin учётные данные и параметры токенов административного API.
type Admin struct {
	Username     string        `yaml:"username" env-default:"admin"`
	PasswordHash string        `yaml:"password_hash" env:"ADMIN_PASSWORD_HASH"`
	JWTSecretKey string        `yaml:"jwt_secret_key" env:"ADMIN_JWT_SECRET"`
	TokenTTL     time.Duration `yaml:"token_ttl" env-default:"12h"`
}

// RabbitMQ настройки подключения к брокеру.
type RabbitMQ struct {
	RabbitMQURL        string        `yaml:"url" env:"RABBITMQ_URL"`
	RabbitMQMaxRetries int           `yaml:"max_retries" env-default:"5"`
	RabbitMQRetryDelay time.Duration `yaml:"retry_delay" env-default:"2s"`
}

// Scheduler настройки поиска истекающих пробных периодов.
type Scheduler struct {
	Interval     time.Duration `yaml:"interval" env-default:"1h"`
	ReminderLead time.Duration `yaml:"reminder_lead" env-default:"24h"`
	ReminderText string        `yaml:"reminder_text" env-default:"Seu período de teste termina em breve. Fale com a gente para renovar o acesso."`
}

// RateLimit ограничение частоты запросов к вебхуку.
type RateLimit struct {
	RPS   float64 `yaml:"rps" env-default:"20"`
	Burst int     `yaml:"burst" env-default:"40"`
}

// MustLoad функция для загрузки конфига, возвращает конфиг, сгенерированный из config/config.go
func MustLoad() *Config {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		log.Fatal("CONFIG_PATH is not set")
	}
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		log.Fatalf("file: %s - does not exist", configPath)
	}
	var cfg Config

	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		log.Fatalf("cannot read config: %s", err)
	}
	if cfg.FallbackReply == "" {
		cfg.FallbackReply = DefaultFallbackReply
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid config: %s", err)
	}
	return &cfg
}

// Validate проверяет значения, от которых зависят инварианты конвейера.
func (c *Config) Validate() error {
	const op = "config.Validate"
	if c.Completion.Timeout < MinCompletionTimeout || c.Completion.Timeout > MaxCompletionTimeout {
		return fmt.Errorf("%s: completion timeout %s out of range [%s, %s]",
			op, c.Completion.Timeout, MinCompletionTimeout, MaxCompletionTimeout)
	}
	if c.HistoryWindow <= 0 {
		return fmt.Errorf("%s: history window must be positive", op)
	}
	if c.TrialDays <= 0 {
		return fmt.Errorf("%s: trial days must be positive", op)
	}
	return nil
}

func (c *Config) String() string {
	return fmt.Sprintf(
		"Env: %s\n"+
			"StorageConnectionString: %s\n"+
			"HTTPServer:\n"+
			"  Address: %s\n"+
			"  Timeout: %s\n"+
			"  IdleTimeout: %s\n"+
			"Completion:\n"+
			"  URL: %s\n"+
			"  Model: %s\n"+
			"  Timeout: %s\n"+
			"Relay:\n"+
			"  HistoryWindow: %d\n"+
			"  TrialDays: %d\n"+
			"  ResetToken: %s\n",
		c.Env,
		maskSecret(c.StorageConnectionString),
		c.AddressHTTP,
		c.TimeoutHTTP,
		c.IdleTimeout,
		c.Completion.APIURL,
		c.Model,
		c.Completion.Timeout,
		c.HistoryWindow,
		c.TrialDays,
		c.ResetToken,
	)
}

func maskSecret(s string) string {
	if s == "" {
		return ""
	}
	return "***"
}
