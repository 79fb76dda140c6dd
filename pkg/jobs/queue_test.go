package jobs

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueueRunsJobs(t *testing.T) {
	var mu sync.Mutex
	seen := map[string]int{}
	done := make(chan string, 4)

	q := NewQueue("test", func(_ context.Context, job Job[int]) error {
		mu.Lock()
		seen[job.Key] = job.Payload
		mu.Unlock()
		return nil
	}, QueueConfig{Workers: 2, OnDone: func(key string, err error) {
		assert.NoError(t, err)
		done <- key
	}})
	q.Start(context.Background())
	defer q.Stop()

	ok, err := q.Enqueue("a", 1)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = q.Enqueue("b", 2)
	require.NoError(t, err)
	assert.True(t, ok)

	waitFor(t, done, 2)
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, map[string]int{"a": 1, "b": 2}, seen)
}

func TestQueueCoalescesPendingKeys(t *testing.T) {
	block := make(chan struct{})
	started := make(chan struct{}, 1)
	var runs int32

	q := NewQueue("test", func(_ context.Context, job Job[string]) error {
		if job.Key == "blocker" {
			started <- struct{}{}
			<-block
			return nil
		}
		atomic.AddInt32(&runs, 1)
		return nil
	}, QueueConfig{Workers: 1})
	q.Start(context.Background())
	defer q.Stop()

	_, err := q.Enqueue("blocker", "")
	require.NoError(t, err)
	<-started

	first, err := q.Enqueue("class-1", "x")
	require.NoError(t, err)
	second, err := q.Enqueue("class-1", "y")
	require.NoError(t, err)
	assert.True(t, first)
	assert.False(t, second)
	assert.Equal(t, 1, q.Pending())

	close(block)
	require.Eventually(t, func() bool { return atomic.LoadInt32(&runs) == 1 && q.Pending() == 0 }, time.Second, 5*time.Millisecond)
}

func TestQueueRetriesThenReportsFailure(t *testing.T) {
	var attempts int32
	failures := make(chan error, 1)
	boom := errors.New("boom")

	q := NewQueue("test", func(context.Context, Job[struct{}]) error {
		atomic.AddInt32(&attempts, 1)
		return boom
	}, QueueConfig{MaxRetries: 2, RetryDelay: time.Millisecond, OnDone: func(_ string, err error) {
		failures <- err
	}})
	q.Start(context.Background())
	defer q.Stop()

	_, err := q.Enqueue("k", struct{}{})
	require.NoError(t, err)

	select {
	case err := <-failures:
		assert.ErrorIs(t, err, boom)
	case <-time.After(time.Second):
		t.Fatal("job did not finish")
	}
	assert.Equal(t, int32(3), atomic.LoadInt32(&attempts))
}

func TestQueueRejectsWhenNotStarted(t *testing.T) {
	q := NewQueue("test", func(context.Context, Job[int]) error { return nil }, QueueConfig{})
	_, err := q.Enqueue("k", 1)
	assert.ErrorIs(t, err, ErrNotStarted)
}

func TestQueueRejectsWhenFull(t *testing.T) {
	block := make(chan struct{})
	started := make(chan struct{}, 1)
	q := NewQueue("test", func(_ context.Context, job Job[int]) error {
		if job.Key == "blocker" {
			started <- struct{}{}
			<-block
		}
		return nil
	}, QueueConfig{Workers: 1, BufferSize: 1})
	q.Start(context.Background())
	defer func() {
		close(block)
		q.Stop()
	}()

	_, err := q.Enqueue("blocker", 0)
	require.NoError(t, err)
	<-started

	_, err = q.Enqueue("a", 1)
	require.NoError(t, err)
	_, err = q.Enqueue("b", 2)
	assert.ErrorIs(t, err, ErrQueueFull)
}

func waitFor(t *testing.T, ch <-chan string, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		select {
		case <-ch:
		case <-time.After(time.Second):
			t.Fatalf("timed out after %d of %d jobs", i, n)
		}
	}
}
