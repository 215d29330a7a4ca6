package app

import (
	"context"
	"fmt"
	"time"

	"github.com/Freeeeeet/clinic_booking/internal/config"
	"github.com/Freeeeeet/clinic_booking/internal/payment"
	"github.com/Freeeeeet/clinic_booking/internal/repository"
	"github.com/Freeeeeet/clinic_booking/internal/service"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// NewPool подключается к PostgreSQL и проверяет соединение
func NewPool(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return pool, nil
}

// NewRedis создаёт клиент Redis и проверяет соединение
func NewRedis(ctx context.Context, cfg *config.Config) (*redis.Client, error) {
	if cfg.RedisAddr == "" {
		return nil, fmt.Errorf("redis addr is empty")
	}

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.RedisAddr,
		Password:     cfg.RedisPassword,
		DB:           cfg.RedisDB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return client, nil
}

// NewSlotStore выбирает хранилище занятых слотов по SLOT_STORE.
// Возвращаемая функция закрывает ресурсы хранилища.
func NewSlotStore(ctx context.Context, cfg *config.Config, pool *pgxpool.Pool, logger *zap.Logger) (service.SlotStore, func(), error) {
	switch cfg.SlotStore {
	case config.SlotStoreMemory:
		logger.Warn("Using in-memory slot store, reservations are lost on restart")
		return service.NewMemorySlotStore(), func() {}, nil
	case config.SlotStoreRedis:
		client, err := NewRedis(ctx, cfg)
		if err != nil {
			return nil, nil, err
		}
		return repository.NewRedisSlotRepository(client), func() { _ = client.Close() }, nil
	default:
		return repository.NewSlotRepository(pool), func() {}, nil
	}
}

// NewGateways собирает настроенные платёжные шлюзы
func NewGateways(cfg *config.Config) (*payment.Registry, error) {
	var gateways []payment.Gateway

	if cfg.RazorpayEnabled() {
		gateways = append(gateways, payment.NewRazorpay(payment.RazorpayConfig{
			KeyID:         cfg.RazorpayKeyID,
			KeySecret:     cfg.RazorpayKeySecret,
			WebhookSecret: cfg.RazorpayWebhookSecret,
		}))
	}
	if cfg.StripeEnabled() {
		gateways = append(gateways, payment.NewStripe(payment.StripeConfig{
			SecretKey:     cfg.StripeSecretKey,
			WebhookSecret: cfg.StripeWebhookSecret,
			SuccessURL:    cfg.StripeSuccessURL,
			CancelURL:     cfg.StripeCancelURL,
		}))
	}

	defaultName := cfg.PaymentDefaultGateway
	if len(gateways) == 1 {
		defaultName = gateways[0].Name()
	}

	return payment.NewRegistry(defaultName, gateways...)
}
