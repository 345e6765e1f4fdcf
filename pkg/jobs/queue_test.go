package jobs

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnqueueBeforeStartIsRejected(t *testing.T) {
	q := New("test", func(context.Context, Job) error { return nil }, Config{})

	err := q.Enqueue(Job{ID: "j1"})
	assert.ErrorIs(t, err, ErrQueueClosed)
}

func TestFailedJobIsRetriedWithAttemptCount(t *testing.T) {
	var mu sync.Mutex
	var attempts []int
	done := make(chan struct{})

	q := New("test", func(_ context.Context, job Job) error {
		mu.Lock()
		defer mu.Unlock()
		attempts = append(attempts, job.Attempt)
		if job.Attempt < 2 {
			return errors.New("transient")
		}
		close(done)
		return nil
	}, Config{Workers: 1, MaxRetries: 3, RetryDelay: time.Millisecond})
	q.Start(context.Background())
	defer q.Stop()

	require.NoError(t, q.Enqueue(Job{ID: "j1", Kind: "ledger_export"}))

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("job never succeeded")
	}
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []int{0, 1, 2}, attempts)
}

func TestStopClosesQueue(t *testing.T) {
	q := New("test", func(context.Context, Job) error { return nil }, Config{Workers: 2})
	q.Start(context.Background())
	q.Stop()

	assert.ErrorIs(t, q.Enqueue(Job{ID: "late"}), ErrQueueClosed)
}
