// Package config предоставляет структуры и функцию для парсинга и загрузки конфига
package config

import (
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config общая структура для хранения настроек
type Config struct {
	Env                     string `yaml:"env" env:"ENV" env-default:"local"`
	StorageConnectionString string `yaml:"storage_connection_string" env:"STORAGE_CONNECTION_STRING"`
	AppURL                  string `yaml:"app_url" env:"APP_URL"`
	AdminEmail              string `yaml:"admin_email" env:"ADMIN_EMAIL"`
	RedisConnection         `yaml:"redis_connection"`
	HTTPServer              `yaml:"http_server"`
	JWTToken                `yaml:"jwttoken"`
	PayPal                  `yaml:"paypal"`
	OAuth                   `yaml:"oauth"`
	Chat                    `yaml:"chat"`
	GooglePlay              `yaml:"google_play"`
	RabbitMQ                `yaml:"rabbitmq"`
	SMTP                    `yaml:"smtp"`
}

// HTTPServer структура для настройки сервера
type HTTPServer struct {
	AddressHTTP string        `yaml:"addresshttp" env-default:":8080"`
	TimeoutHTTP time.Duration `yaml:"timeouthttp" env-default:"5s"`
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
}

// JWTToken структура для работы с jwt-токеном.
// Отсутствие секрета — фатальная ошибка конфигурации на старте процесса,
// а не ошибка на каждый запрос.
type JWTToken struct {
	JWTSecretKey string        `yaml:"jwt_secret_key" env:"JWT_SECRET_KEY"`
	TokenTTL     time.Duration `yaml:"token_ttl" env-default:"720h"`
}

// PayPal структура с учетными данными платежного провайдера.
type PayPal struct {
	ClientID      string        `yaml:"client_id" env:"PAYPAL_CLIENT_ID"`
	ClientSecret  string        `yaml:"client_secret" env:"PAYPAL_CLIENT_SECRET"`
	Sandbox       bool          `yaml:"sandbox" env:"PAYPAL_SANDBOX"`
	TimeoutPayPal time.Duration `yaml:"timeout" env-default:"10s"`
}

// OAuth структура с настройками внешних провайдеров входа.
type OAuth struct {
	CallbackBaseURL string        `yaml:"callback_base_url" env:"OAUTH_CALLBACK_BASE_URL"`
	TimeoutOAuth    time.Duration `yaml:"timeout" env-default:"10s"`
	Google          OAuthClient   `yaml:"google"`
	Facebook        OAuthClient   `yaml:"facebook"`
	X               OAuthClient   `yaml:"x"`
}

// OAuthClient учетные данные одного OAuth-приложения.
type OAuthClient struct {
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
}

// Chat структура для вызова внешнего чат-API (создание сессии).
type Chat struct {
	APIKey      string        `yaml:"api_key" env:"CHAT_API_KEY"`
	WorkflowID  string        `yaml:"workflow_id" env:"CHAT_WORKFLOW_ID"`
	APIBase     string        `yaml:"api_base" env-default:"https://api.openai.com"`
	TimeoutChat time.Duration `yaml:"timeout" env-default:"15s"`
}

// GooglePlay настройки серверной проверки покупок Google Play.
type GooglePlay struct {
	ServiceAccountJSON string `yaml:"service_account_json" env:"GOOGLE_PLAY_SERVICE_ACCOUNT_JSON"`
	PackageName        string `yaml:"package_name" env:"GOOGLE_PLAY_PACKAGE_NAME"`
}

// RabbitMQ структура для подключения к брокеру уведомлений.
type RabbitMQ struct {
	RabbitMQURL        string        `yaml:"url" env:"RABBITMQ_URL"`
	RabbitMQMaxRetries int           `yaml:"max_retries" env-default:"5"`
	RabbitMQRetryDelay time.Duration `yaml:"retry_delay" env-default:"3s"`
}

// SMTP структура для отправки почтовых уведомлений.
type SMTP struct {
	SMTPHost string `yaml:"host" env:"SMTP_HOST"`
	SMTPPort string `yaml:"port" env:"SMTP_PORT"`
	SMTPUser string `yaml:"user" env:"SMTP_USER"`
	SMTPPass string `yaml:"password" env:"SMTP_PASSWORD"`
}

// MustLoad загружает конфиг по пути из CONFIG_PATH и валидирует обязательные
// поля. Любая проблема — немедленное завершение процесса.
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
	if cfg.JWTSecretKey == "" {
		log.Fatal("jwt_secret_key is not set: refusing to start without a signing secret")
	}
	if cfg.StorageConnectionString == "" {
		log.Fatal("storage_connection_string is not set")
	}
	return &cfg
}
