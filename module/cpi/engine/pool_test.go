package engine

import (
	"context"
	"fmt"
	"sort"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPool_Results(t *testing.T) {
	pool := NewPool[int](context.Background(), "squares", 3)
	for i := 1; i <= 10; i++ {
		i := i
		require.NoError(t, pool.Submit(fmt.Sprint(i), func(ctx context.Context) (int, error) {
			return i * i, nil
		}))
	}

	got, err := pool.Wait()
	require.NoError(t, err)
	sort.Ints(got)
	assert.Equal(t, []int{1, 4, 9, 16, 25, 36, 49, 64, 81, 100}, got)
}

func TestPool_NeverExceedsWidth(t *testing.T) {
	tests := []struct {
		name  string
		width int
		tasks int
	}{
		{name: "width 1", width: 1, tasks: 4},
		{name: "width 2", width: 2, tasks: 5},
		{name: "width larger than tasks", width: 8, tasks: 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var inFlight, peak atomic.Int32
			pool := NewPool[struct{}](context.Background(), "bounded", tt.width)
			for i := 0; i < tt.tasks; i++ {
				require.NoError(t, pool.Submit(fmt.Sprint(i), func(ctx context.Context) (struct{}, error) {
					n := inFlight.Add(1)
					for {
						p := peak.Load()
						if n <= p || peak.CompareAndSwap(p, n) {
							break
						}
					}
					time.Sleep(10 * time.Millisecond)
					inFlight.Add(-1)
					return struct{}{}, nil
				}))
			}
			_, err := pool.Wait()
			require.NoError(t, err)
			assert.LessOrEqual(t, int(peak.Load()), tt.width)
			assert.Greater(t, int(peak.Load()), 0)
		})
	}
}

func TestPool_FailFast(t *testing.T) {
	boom := fmt.Errorf("boom")
	var started atomic.Int32

	pool := NewPool[int](context.Background(), "failing", 1)
	var submitErr error
	for i := 0; i < 10; i++ {
		i := i
		submitErr = pool.Submit(fmt.Sprint(i), func(ctx context.Context) (int, error) {
			started.Add(1)
			if i == 1 {
				return 0, boom
			}
			return i, nil
		})
		if submitErr != nil {
			break
		}
	}

	_, waitErr := pool.Wait()
	assert.ErrorIs(t, waitErr, boom)
	if submitErr != nil {
		assert.ErrorIs(t, submitErr, boom)
	}
	assert.Less(t, int(started.Load()), 10, "no new tasks may start after a failure")
}

func TestPool_ParentCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	pool := NewPool[int](ctx, "canceled", 2)
	err := pool.Submit("never", func(ctx context.Context) (int, error) {
		t.Error("task must not run on a canceled context")
		return 0, nil
	})
	assert.ErrorIs(t, err, context.Canceled)

	_, err = pool.Wait()
	assert.ErrorIs(t, err, context.Canceled)
}

func TestTraceID(t *testing.T) {
	_, ok := TraceID(context.Background())
	assert.False(t, ok)

	id, ok := TraceID(WithTraceID(context.Background(), "abc"))
	assert.True(t, ok)
	assert.Equal(t, "abc", id)
}
