package payment

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithContext_DeadlineLeavesCallToFinish(t *testing.T) {
	release := make(chan struct{})
	finished := make(chan struct{})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := withContext(ctx, func() (string, error) {
		<-release
		defer close(finished)
		return "order_1", nil
	})
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	// Результат опоздавшего вызова уходит в буфер, горутина завершается
	close(release)
	select {
	case <-finished:
	case <-time.After(time.Second):
		t.Fatal("sdk call goroutine blocked after deadline")
	}
}

func TestWithContext_ReturnsResult(t *testing.T) {
	val, err := withContext(context.Background(), func() (int, error) { return 42, nil })
	require.NoError(t, err)
	assert.Equal(t, 42, val)
}
