package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/Freeeeeet/clinic_booking/internal/model"
	"github.com/Freeeeeet/clinic_booking/internal/service"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RedisSlotRepository учёт занятых слотов в Redis: sorted set на (врач, дата),
// score - минуты от полуночи, поэтому ZRANGE отдаёт времена по порядку.
type RedisSlotRepository struct {
	client redis.UniversalClient
	prefix string
}

func NewRedisSlotRepository(client redis.UniversalClient) *RedisSlotRepository {
	return &RedisSlotRepository{client: client, prefix: "slots"}
}

func (r *RedisSlotRepository) key(doctorID uuid.UUID, date string) string {
	return fmt.Sprintf("%s:%s:%s", r.prefix, doctorID, date)
}

func (r *RedisSlotRepository) IsFree(ctx context.Context, doctorID uuid.UUID, date, slotTime string) (bool, error) {
	err := r.client.ZScore(ctx, r.key(doctorID, date), slotTime).Err()
	if errors.Is(err, redis.Nil) {
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("check slot: %w", err)
	}
	return false, nil
}

// Reserve занимает слот через ZADD NX
func (r *RedisSlotRepository) Reserve(ctx context.Context, doctorID uuid.UUID, date, slotTime string) error {
	minutes, err := model.MinutesOf(slotTime)
	if err != nil {
		return fmt.Errorf("%w: %v", service.ErrValidation, err)
	}

	added, err := r.client.ZAddNX(ctx, r.key(doctorID, date), redis.Z{
		Score:  float64(minutes),
		Member: slotTime,
	}).Result()
	if err != nil {
		return fmt.Errorf("reserve slot: %w", err)
	}

	if added == 0 {
		return fmt.Errorf("%w: %s %s", service.ErrSlotConflict, date, slotTime)
	}

	return nil
}

func (r *RedisSlotRepository) Release(ctx context.Context, doctorID uuid.UUID, date, slotTime string) error {
	if err := r.client.ZRem(ctx, r.key(doctorID, date), slotTime).Err(); err != nil {
		return fmt.Errorf("release slot: %w", err)
	}
	return nil
}

func (r *RedisSlotRepository) Booked(ctx context.Context, doctorID uuid.UUID, date string) ([]string, error) {
	times, err := r.client.ZRange(ctx, r.key(doctorID, date), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("get booked slots: %w", err)
	}
	return times, nil
}
