package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	SlotStoreMemory   = "memory"
	SlotStorePostgres = "postgres"
	SlotStoreRedis    = "redis"
)

type Config struct {
	Environment    string `mapstructure:"ENV"`
	DBDSN          string `mapstructure:"DB_DSN"`
	MigrationsPath string `mapstructure:"MIGRATIONS_PATH"`
	HTTPAddr       string `mapstructure:"HTTP_ADDR"`
	JWTSecret      string `mapstructure:"JWT_SECRET"`
	TelegramToken  string `mapstructure:"TELEGRAM_TOKEN"`
	LogFile        string `mapstructure:"LOG_FILE"`

	SlotStore     string `mapstructure:"SLOT_STORE"`
	RedisAddr     string `mapstructure:"REDIS_ADDR"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`
	RedisDB       int    `mapstructure:"REDIS_DB"`

	PaymentDefaultGateway string        `mapstructure:"PAYMENT_DEFAULT_GATEWAY"`
	PaymentCurrency       string        `mapstructure:"PAYMENT_CURRENCY"`
	PaymentTimeout        time.Duration `mapstructure:"PAYMENT_TIMEOUT"`

	RazorpayKeyID         string `mapstructure:"RAZORPAY_KEY_ID"`
	RazorpayKeySecret     string `mapstructure:"RAZORPAY_KEY_SECRET"`
	RazorpayWebhookSecret string `mapstructure:"RAZORPAY_WEBHOOK_SECRET"`

	StripeSecretKey     string `mapstructure:"STRIPE_SECRET_KEY"`
	StripeWebhookSecret string `mapstructure:"STRIPE_WEBHOOK_SECRET"`
	StripeSuccessURL    string `mapstructure:"STRIPE_SUCCESS_URL"`
	StripeCancelURL     string `mapstructure:"STRIPE_CANCEL_URL"`

	SweepCron     string        `mapstructure:"SWEEP_CRON"`
	SweepLookback time.Duration `mapstructure:"SWEEP_LOOKBACK"`
}

// defaults значения по умолчанию; пустая строка - ключ без умолчания
var defaults = map[string]interface{}{
	"ENV":                     "development",
	"DB_DSN":                  "",
	"MIGRATIONS_PATH":         "migrations",
	"HTTP_ADDR":               ":8080",
	"JWT_SECRET":              "",
	"TELEGRAM_TOKEN":          "",
	"LOG_FILE":                "",
	"SLOT_STORE":              SlotStorePostgres,
	"REDIS_ADDR":              "localhost:6379",
	"REDIS_PASSWORD":          "",
	"REDIS_DB":                0,
	"PAYMENT_DEFAULT_GATEWAY": "razorpay",
	"PAYMENT_CURRENCY":        "INR",
	"PAYMENT_TIMEOUT":         "15s",
	"RAZORPAY_KEY_ID":         "",
	"RAZORPAY_KEY_SECRET":     "",
	"RAZORPAY_WEBHOOK_SECRET": "",
	"STRIPE_SECRET_KEY":       "",
	"STRIPE_WEBHOOK_SECRET":   "",
	"STRIPE_SUCCESS_URL":      "",
	"STRIPE_CANCEL_URL":       "",
	"SWEEP_CRON":              "@every 10m",
	"SWEEP_LOOKBACK":          "72h",
}

func Load() (*Config, error) {
	// Пытаемся загрузить .env файл (игнорируем ошибку, если файла нет)
	if err := godotenv.Load(".env"); err != nil {
		log.Println("⚠️  No .env file found, using environment variables")
	} else {
		log.Println("✅ Loaded configuration from .env file")
	}

	return FromEnv()
}

// FromEnv читает конфигурацию из переменных окружения
func FromEnv() (*Config, error) {
	v := viper.New()
	v.AutomaticEnv()
	for key, value := range defaults {
		v.SetDefault(key, value)
		// AutomaticEnv не видит ключи при Unmarshal без явной привязки
		_ = v.BindEnv(key)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	cfg.SlotStore = strings.ToLower(cfg.SlotStore)
	cfg.PaymentCurrency = strings.ToUpper(cfg.PaymentCurrency)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate проверяет обязательные поля
func (c *Config) Validate() error {
	switch c.SlotStore {
	case SlotStoreMemory, SlotStorePostgres, SlotStoreRedis:
	default:
		return fmt.Errorf("SLOT_STORE must be one of memory, postgres, redis, got %q", c.SlotStore)
	}

	if c.DBDSN == "" {
		return fmt.Errorf("DB_DSN is required but not set")
	}
	if c.SlotStore == SlotStoreRedis && c.RedisAddr == "" {
		return fmt.Errorf("REDIS_ADDR is required for redis slot store")
	}
	if c.PaymentTimeout <= 0 {
		return fmt.Errorf("PAYMENT_TIMEOUT must be positive")
	}
	if c.SweepLookback <= 0 {
		return fmt.Errorf("SWEEP_LOOKBACK must be positive")
	}

	return nil
}

func (c *Config) GetDBDSN() string {
	return c.DBDSN
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// RazorpayEnabled заданы ли ключи Razorpay
func (c *Config) RazorpayEnabled() bool {
	return c.RazorpayKeyID != "" && c.RazorpayKeySecret != ""
}

func (c *Config) StripeEnabled() bool {
	return c.StripeSecretKey != ""
}
