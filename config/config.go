package config

import (
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	JWT      JWTConfig
	Billing  BillingConfig
	Queue    QueueConfig
	Email    EmailConfig
	App      AppConfig
}

type ServerConfig struct {
	Port         string
	Host         string
	ReadTimeout  int // seconds
	WriteTimeout int // seconds
	IdleTimeout  int // seconds
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

type RedisConfig struct {
	URL      string
	Username string
	Password string
}

type JWTConfig struct {
	SecretKey       string
	AccessTokenTTL  int // minutes
	RefreshTokenTTL int // days
}

// BillingConfig holds the payment provider credentials.
type BillingConfig struct {
	APIBaseURL    string
	APIKey        string
	WebhookSecret string
	SuccessURL    string
	CancelURL     string
}

// QueueConfig holds the photo-processing queue settings. CronSecret guards
// the cron trigger endpoint; InternalToken authenticates service-to-service
// calls to the enhancement endpoint.
type QueueConfig struct {
	CronSecret      string
	InternalToken   string
	EnhanceURL      string
	BatchSize       int
	DispatchTimeout int // seconds, per enhancement call
	StaleAfter      int // minutes before a stuck processing item is requeued
}

// EmailConfig holds SMTP settings for outbound notification mail. An empty
// Host disables sending.
type EmailConfig struct {
	SMTPHost  string
	SMTPPort  string
	Username  string
	Password  string
	FromEmail string
	FromName  string
}

type AppConfig struct {
	Environment string
	LogLevel    string
}

// Load reads configuration from environment variables.
func Load() *Config {
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("SERVER_HOST", "0.0.0.0")
	viper.SetDefault("SERVER_READ_TIMEOUT", 15)
	viper.SetDefault("SERVER_WRITE_TIMEOUT", 15)
	viper.SetDefault("SERVER_IDLE_TIMEOUT", 60)

	viper.SetDefault("DB_HOST", "localhost")
	viper.SetDefault("DB_PORT", "5432")
	viper.SetDefault("DB_USER", "postgres")
	viper.SetDefault("DB_NAME", "photofix")
	viper.SetDefault("DB_SSLMODE", "disable")

	viper.SetDefault("JWT_SECRET", "change-me-in-production")
	viper.SetDefault("JWT_ACCESS_TTL", 60) // minutes
	viper.SetDefault("JWT_REFRESH_TTL", 7) // days

	viper.SetDefault("BILLING_API_URL", "https://api.payments.example.com/v1")
	viper.SetDefault("BILLING_SUCCESS_URL", "http://localhost:3000/billing/success")
	viper.SetDefault("BILLING_CANCEL_URL", "http://localhost:3000/billing/cancel")

	viper.SetDefault("QUEUE_ENHANCE_URL", "http://localhost:8080/api/internal/enhance")
	viper.SetDefault("QUEUE_BATCH_SIZE", 5)
	viper.SetDefault("QUEUE_DISPATCH_TIMEOUT", 30)
	viper.SetDefault("QUEUE_STALE_AFTER", 15)

	viper.SetDefault("SMTP_PORT", "587")
	viper.SetDefault("SMTP_FROM_NAME", "PhotoFix")

	viper.SetDefault("APP_ENV", "development")
	viper.SetDefault("LOG_LEVEL", "info")

	return &Config{
		Server: ServerConfig{
			Port:         viper.GetString("SERVER_PORT"),
			Host:         viper.GetString("SERVER_HOST"),
			ReadTimeout:  viper.GetInt("SERVER_READ_TIMEOUT"),
			WriteTimeout: viper.GetInt("SERVER_WRITE_TIMEOUT"),
			IdleTimeout:  viper.GetInt("SERVER_IDLE_TIMEOUT"),
		},
		Database: DatabaseConfig{
			Host:     viper.GetString("DB_HOST"),
			Port:     viper.GetString("DB_PORT"),
			User:     viper.GetString("DB_USER"),
			Password: viper.GetString("DB_PASSWORD"),
			DBName:   viper.GetString("DB_NAME"),
			SSLMode:  viper.GetString("DB_SSLMODE"),
		},
		Redis: RedisConfig{
			URL:      viper.GetString("REDIS_URL"),
			Username: viper.GetString("REDIS_USERNAME"),
			Password: viper.GetString("REDIS_PASSWORD"),
		},
		JWT: JWTConfig{
			SecretKey:       viper.GetString("JWT_SECRET"),
			AccessTokenTTL:  viper.GetInt("JWT_ACCESS_TTL"),
			RefreshTokenTTL: viper.GetInt("JWT_REFRESH_TTL"),
		},
		Billing: BillingConfig{
			APIBaseURL:    viper.GetString("BILLING_API_URL"),
			APIKey:        viper.GetString("BILLING_API_KEY"),
			WebhookSecret: viper.GetString("BILLING_WEBHOOK_SECRET"),
			SuccessURL:    viper.GetString("BILLING_SUCCESS_URL"),
			CancelURL:     viper.GetString("BILLING_CANCEL_URL"),
		},
		Queue: QueueConfig{
			CronSecret:      viper.GetString("CRON_SECRET"),
			InternalToken:   viper.GetString("INTERNAL_SERVICE_TOKEN"),
			EnhanceURL:      viper.GetString("QUEUE_ENHANCE_URL"),
			BatchSize:       viper.GetInt("QUEUE_BATCH_SIZE"),
			DispatchTimeout: viper.GetInt("QUEUE_DISPATCH_TIMEOUT"),
			StaleAfter:      viper.GetInt("QUEUE_STALE_AFTER"),
		},
		Email: EmailConfig{
			SMTPHost:  viper.GetString("SMTP_HOST"),
			SMTPPort:  viper.GetString("SMTP_PORT"),
			Username:  viper.GetString("SMTP_USERNAME"),
			Password:  viper.GetString("SMTP_PASSWORD"),
			FromEmail: viper.GetString("SMTP_FROM_EMAIL"),
			FromName:  viper.GetString("SMTP_FROM_NAME"),
		},
		App: AppConfig{
			Environment: viper.GetString("APP_ENV"),
			LogLevel:    viper.GetString("LOG_LEVEL"),
		},
	}
}
