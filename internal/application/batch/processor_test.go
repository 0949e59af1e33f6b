package batch

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProcess_PreservesInputOrder(t *testing.T) {
	items := []int{5, 1, 4, 2, 3}

	results, err := Process(context.Background(), items, Options{Concurrency: 3}, func(ctx context.Context, i int, n int) (int, error) {
		time.Sleep(time.Duration(n) * time.Millisecond)
		return n * 10, nil
	})

	require.NoError(t, err)
	require.Len(t, results, len(items))
	for i, r := range results {
		assert.Equal(t, i, r.Index)
		assert.Equal(t, items[i]*10, r.Value)
		assert.NoError(t, r.Err)
	}
	assert.Equal(t, []int{50, 10, 40, 20, 30}, Values(results))
}

func TestProcess_BoundsConcurrency(t *testing.T) {
	var running, peak int32
	items := make([]int, 20)

	_, err := Process(context.Background(), items, Options{Concurrency: 2}, func(ctx context.Context, i int, _ int) (struct{}, error) {
		n := atomic.AddInt32(&running, 1)
		for {
			p := atomic.LoadInt32(&peak)
			if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
				break
			}
		}
		time.Sleep(2 * time.Millisecond)
		atomic.AddInt32(&running, -1)
		return struct{}{}, nil
	})

	require.NoError(t, err)
	assert.LessOrEqual(t, atomic.LoadInt32(&peak), int32(2))
}

func TestProcess_ItemErrorsDoNotStopBatch(t *testing.T) {
	itemErr := errors.New("unknown product")

	results, err := Process(context.Background(), []string{"a", "bad", "c"}, Options{Concurrency: 1}, func(ctx context.Context, i int, s string) (string, error) {
		if s == "bad" {
			return "", itemErr
		}
		return s, nil
	})

	require.NoError(t, err)
	assert.NoError(t, results[0].Err)
	assert.ErrorIs(t, results[1].Err, itemErr)
	assert.Equal(t, "c", results[2].Value)
	assert.Equal(t, []string{"a", "c"}, Values(results))
}

func TestProcess_StopOnError(t *testing.T) {
	fatal := errors.New("database unreachable")
	var calls int32

	results, err := Process(context.Background(), []int{0, 1, 2, 3, 4}, Options{
		Concurrency: 1,
		StopOnError: func(err error) bool { return errors.Is(err, fatal) },
	}, func(ctx context.Context, i int, n int) (int, error) {
		atomic.AddInt32(&calls, 1)
		if n == 1 {
			return 0, fatal
		}
		return n, nil
	})

	require.ErrorIs(t, err, fatal)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
	assert.NoError(t, results[0].Err)
	assert.ErrorIs(t, results[1].Err, fatal)
	for _, r := range results[2:] {
		assert.ErrorIs(t, r.Err, context.Canceled)
	}
}

func TestProcess_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results, err := Process(ctx, []int{1, 2}, Options{}, func(ctx context.Context, i int, n int) (int, error) {
		t.Error("item must not start")
		return 0, nil
	})

	require.NoError(t, err)
	for _, r := range results {
		assert.ErrorIs(t, r.Err, context.Canceled)
	}
}

func TestProcess_Empty(t *testing.T) {
	results, err := Process(context.Background(), []int(nil), Options{}, func(ctx context.Context, i int, n int) (int, error) {
		return n, nil
	})

	require.NoError(t, err)
	assert.Empty(t, results)
}
