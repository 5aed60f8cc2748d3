package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExecuteKeepsInputOrder(t *testing.T) {
	pool := NewPool[int, int](4, func(_ context.Context, n int) (int, error) {
		if n == 3 {
			return 0, errors.New("three")
		}
		return n * n, nil
	})

	tasks := pool.Execute(context.Background(), []int{1, 2, 3, 4, 5})
	require.Len(t, tasks, 5)

	for i, task := range tasks {
		assert.Equal(t, i+1, task.Input)
		if task.Input == 3 {
			assert.EqualError(t, task.Err, "three")
			continue
		}
		require.NoError(t, task.Err)
		assert.Equal(t, task.Input*task.Input, task.Result)
	}
}

func TestExecuteCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var calls atomic.Int32
	pool := NewPool[string, string](0, func(_ context.Context, s string) (string, error) {
		calls.Add(1)
		return s, nil
	})

	tasks := pool.Execute(ctx, []string{"a", "b", "c"})
	require.Len(t, tasks, 3)

	failed := 0
	for _, task := range tasks {
		if task.Err != nil {
			assert.ErrorIs(t, task.Err, context.Canceled)
			failed++
		}
	}
	assert.Equal(t, 3, failed+int(calls.Load()))
}

func TestExecuteEmpty(t *testing.T) {
	pool := NewPool[string, string](2, func(_ context.Context, s string) (string, error) { return s, nil })
	assert.Empty(t, pool.Execute(context.Background(), nil))
}
