package scheduler

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gamenet-core/internal/errors"
)

func newTestPool(t *testing.T, workers int) *Pool {
	t.Helper()
	p, err := NewPool(workers, context.Background())
	require.NoError(t, err)
	t.Cleanup(p.Close)
	return p
}

func TestNewPool_InvalidWorkers(t *testing.T) {
	t.Parallel()

	_, err := NewPool(0, context.Background())
	assert.ErrorIs(t, err, errors.ErrInvalidWorkerCount)

	_, err = NewPool(-3, context.Background())
	assert.ErrorIs(t, err, errors.ErrInvalidWorkerCount)
}

func TestSchedule_ReturnsValue(t *testing.T) {
	t.Parallel()
	p := newTestPool(t, 2)

	res := NewResourceID("test-value", "state")
	result, err := p.Schedule([]ResourceID{res}, func() (interface{}, error) {
		return 42, nil
	}).Wait()

	require.NoError(t, err)
	assert.Equal(t, 42, result)
}

func TestSchedule_ExclusiveTasksDoNotOverlap(t *testing.T) {
	t.Parallel()
	p := newTestPool(t, 4)

	res := NewResourceID("test-exclusive", "counter")
	var active, maxActive int32

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		p.Schedule([]ResourceID{res}, func() (interface{}, error) {
			defer wg.Done()
			cur := atomic.AddInt32(&active, 1)
			for {
				seen := atomic.LoadInt32(&maxActive)
				if cur <= seen || atomic.CompareAndSwapInt32(&maxActive, seen, cur) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			atomic.AddInt32(&active, -1)
			return nil, nil
		})
	}
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&maxActive),
		"exclusive tasks on the same resource must be mutually exclusive")
}

func TestScheduleRead_SharedTasksRunConcurrently(t *testing.T) {
	t.Parallel()
	p := newTestPool(t, 4)

	res := NewResourceID("test-shared", "table")
	var active, maxActive int32
	barrier := make(chan struct{})

	futures := make([]*Future, 0, 4)
	for i := 0; i < 4; i++ {
		futures = append(futures, p.ScheduleRead([]ResourceID{res}, func() (interface{}, error) {
			cur := atomic.AddInt32(&active, 1)
			for {
				seen := atomic.LoadInt32(&maxActive)
				if cur <= seen || atomic.CompareAndSwapInt32(&maxActive, seen, cur) {
					break
				}
			}
			<-barrier
			atomic.AddInt32(&active, -1)
			return nil, nil
		}))
	}

	// 所有读任务就位后再放行，验证它们确实同时持有共享锁
	assert.Eventually(t, func() bool {
		return atomic.LoadInt32(&active) == 4
	}, time.Second, time.Millisecond)
	close(barrier)

	for _, f := range futures {
		_, err := f.Wait()
		require.NoError(t, err)
	}
	assert.Equal(t, int32(4), atomic.LoadInt32(&maxActive))
}

func TestSchedule_OppositeOrderResourceSetsNoDeadlock(t *testing.T) {
	t.Parallel()
	p := newTestPool(t, 4)

	a := NewResourceID("test-order-a", "state")
	b := NewResourceID("test-order-b", "state")

	var wg sync.WaitGroup
	for i := 0; i < 64; i++ {
		resources := []ResourceID{a, b}
		if i%2 == 1 {
			resources = []ResourceID{b, a}
		}
		wg.Add(1)
		p.Schedule(resources, func() (interface{}, error) {
			defer wg.Done()
			time.Sleep(100 * time.Microsecond)
			return nil, nil
		})
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("tasks declaring {A,B} and {B,A} deadlocked")
	}
}

func TestSchedule_DuplicateResourcesDeduplicated(t *testing.T) {
	t.Parallel()
	p := newTestPool(t, 2)

	res := NewResourceID("test-dup", "state")
	_, err := p.Schedule([]ResourceID{res, res, res}, func() (interface{}, error) {
		return nil, nil
	}).Wait()
	require.NoError(t, err)
}

func TestSchedule_PanicBecomesFutureError(t *testing.T) {
	t.Parallel()
	p := newTestPool(t, 2)

	res := NewResourceID("test-panic", "state")
	_, err := p.Schedule([]ResourceID{res}, func() (interface{}, error) {
		panic("boom")
	}).Wait()

	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrTaskPanicked)

	// 锁必须已释放，后续任务照常执行
	result, err := p.Schedule([]ResourceID{res}, func() (interface{}, error) {
		return "after", nil
	}).Wait()
	require.NoError(t, err)
	assert.Equal(t, "after", result)
}

func TestTrySchedule_TimesOutWhenResourceHeld(t *testing.T) {
	t.Parallel()
	p := newTestPool(t, 4)

	res := NewResourceID("test-trylock", "state")
	release := make(chan struct{})
	started := make(chan struct{})

	blocker := p.Schedule([]ResourceID{res}, func() (interface{}, error) {
		close(started)
		<-release
		return nil, nil
	})
	<-started

	_, err := p.TrySchedule([]ResourceID{res}, 20*time.Millisecond, func() (interface{}, error) {
		return nil, nil
	}).Wait()
	assert.ErrorIs(t, err, errors.ErrLockTimeout)

	close(release)
	_, err = blocker.Wait()
	require.NoError(t, err)
}

func TestTrySchedule_SucceedsWhenResourceFree(t *testing.T) {
	t.Parallel()
	p := newTestPool(t, 2)

	res := NewResourceID("test-trylock-free", "state")
	result, err := p.TrySchedule([]ResourceID{res}, 50*time.Millisecond, func() (interface{}, error) {
		return "ok", nil
	}).Wait()
	require.NoError(t, err)
	assert.Equal(t, "ok", result)
}

func TestScheduleDetached_RunsAndCounts(t *testing.T) {
	t.Parallel()
	p := newTestPool(t, 2)

	done := make(chan struct{})
	p.ScheduleDetached(ClassUI, func() {
		close(done)
	})

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("detached task never ran")
	}

	stats := p.Stats()
	assert.GreaterOrEqual(t, stats.UITasks, int64(1))
}

func TestClose_CompletesQueuedFutures(t *testing.T) {
	t.Parallel()

	p, err := NewPool(1, context.Background())
	require.NoError(t, err)

	res := NewResourceID("test-close-drain", "state")
	release := make(chan struct{})
	started := make(chan struct{})

	// 唯一的工作协程被第一个任务占住，后续任务只能排队
	running := p.Schedule([]ResourceID{res}, func() (interface{}, error) {
		close(started)
		<-release
		return "ran", nil
	})
	<-started

	queued := p.Schedule([]ResourceID{res}, func() (interface{}, error) {
		return "never", nil
	})

	p.Close()

	// 排队未执行的任务必须通过 Future 收到关闭错误，而不是永久挂起
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err = queued.WaitContext(ctx)
	assert.ErrorIs(t, err, errors.ErrSchedulerClosed)

	close(release)
	result, err := running.Wait()
	require.NoError(t, err, "the task already executing completes normally")
	assert.Equal(t, "ran", result)
}

func TestSchedule_AfterCloseFails(t *testing.T) {
	t.Parallel()

	p, err := NewPool(2, context.Background())
	require.NoError(t, err)
	p.Close()

	_, err = p.Schedule(nil, func() (interface{}, error) {
		return nil, nil
	}).Wait()
	assert.ErrorIs(t, err, errors.ErrSchedulerClosed)
}

func TestStats_CountsCompletionsAndFailures(t *testing.T) {
	t.Parallel()
	p := newTestPool(t, 2)

	res := NewResourceID("test-stats", "state")
	_, _ = p.Schedule([]ResourceID{res}, func() (interface{}, error) {
		return nil, nil
	}).Wait()
	_, _ = p.Schedule([]ResourceID{res}, func() (interface{}, error) {
		return nil, errors.ErrQueueFull
	}).Wait()

	stats := p.Stats()
	assert.GreaterOrEqual(t, stats.Completed, int64(1))
	assert.GreaterOrEqual(t, stats.Failed, int64(1))
}

func TestImmediate_SameSemanticsInline(t *testing.T) {
	t.Parallel()

	s := NewImmediate(context.Background())
	defer s.Close()

	res := NewResourceID("test-immediate", "state")
	result, err := s.Schedule([]ResourceID{res}, func() (interface{}, error) {
		return "inline", nil
	}).Wait()
	require.NoError(t, err)
	assert.Equal(t, "inline", result)

	_, err = s.Schedule([]ResourceID{res}, func() (interface{}, error) {
		panic("inline boom")
	}).Wait()
	assert.ErrorIs(t, err, errors.ErrTaskPanicked)

	s.Close()
	_, err = s.Schedule(nil, func() (interface{}, error) { return nil, nil }).Wait()
	assert.ErrorIs(t, err, errors.ErrSchedulerClosed)
}

func TestFuture_WaitContextCancellation(t *testing.T) {
	t.Parallel()
	p := newTestPool(t, 1)

	res := NewResourceID("test-waitctx", "state")
	release := make(chan struct{})
	f := p.Schedule([]ResourceID{res}, func() (interface{}, error) {
		<-release
		return nil, nil
	})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := f.WaitContext(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	close(release)
	_, err = f.Wait()
	require.NoError(t, err)
}

func TestResourceID_Ordering(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		a, b     ResourceID
		expected bool
	}{
		{"name decides", NewResourceID("a", "z"), NewResourceID("b", "a"), true},
		{"kind breaks tie", NewResourceID("a", "x"), NewResourceID("a", "y"), true},
		{"equal is not less", NewResourceID("a", "x"), NewResourceID("a", "x"), false},
		{"reverse", NewResourceID("b", "a"), NewResourceID("a", "z"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected, tt.a.Less(tt.b))
		})
	}
}
