package repository

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/Freeeeeet/clinic_booking/internal/service"
	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedisSlots(t *testing.T) *RedisSlotRepository {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisSlotRepository(client)
}

func TestRedisSlotRepository_ReserveRelease(t *testing.T) {
	repo := newTestRedisSlots(t)
	ctx := context.Background()
	doctor := uuid.New()

	require.NoError(t, repo.Reserve(ctx, doctor, "2024-01-10", "14:00"))
	require.NoError(t, repo.Reserve(ctx, doctor, "2024-01-10", "09:00"))

	err := repo.Reserve(ctx, doctor, "2024-01-10", "14:00")
	assert.ErrorIs(t, err, service.ErrSlotConflict)

	free, err := repo.IsFree(ctx, doctor, "2024-01-10", "14:00")
	require.NoError(t, err)
	assert.False(t, free)

	booked, err := repo.Booked(ctx, doctor, "2024-01-10")
	require.NoError(t, err)
	assert.Equal(t, []string{"09:00", "14:00"}, booked)

	require.NoError(t, repo.Release(ctx, doctor, "2024-01-10", "14:00"))
	require.NoError(t, repo.Release(ctx, doctor, "2024-01-10", "14:00"))

	free, err = repo.IsFree(ctx, doctor, "2024-01-10", "14:00")
	require.NoError(t, err)
	assert.True(t, free)

	booked, err = repo.Booked(ctx, doctor, "2024-01-11")
	require.NoError(t, err)
	assert.Empty(t, booked)

	err = repo.Reserve(ctx, doctor, "2024-01-10", "7:00")
	assert.ErrorIs(t, err, service.ErrValidation)
}

func TestRedisSlotRepository_ConcurrentReserve(t *testing.T) {
	repo := newTestRedisSlots(t)
	ctx := context.Background()
	doctor := uuid.New()

	const n = 20
	var (
		wg        sync.WaitGroup
		wins      atomic.Int32
		conflicts atomic.Int32
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := repo.Reserve(ctx, doctor, "2024-01-10", "10:00")
			switch {
			case err == nil:
				wins.Add(1)
			case errors.Is(err, service.ErrSlotConflict):
				conflicts.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), wins.Load())
	assert.Equal(t, int32(n-1), conflicts.Load())
}
