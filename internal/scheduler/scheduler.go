// Package scheduler 提供面向命名资源的任务调度器
//
// 任务提交时声明其访问的资源集与访问模式，调度器按全局一致的顺序
// 获取资源锁，保证重叠的独占任务互斥、无关任务并行。
// 提供工作池和即时执行两种实现，接口一致，构造时选择。
package scheduler

import (
	"context"
	"time"

	"gamenet-core/internal/constants"
	"gamenet-core/internal/core/dispose"
	"gamenet-core/internal/core/safe"
	"gamenet-core/internal/errors"
)

// Scheduler 资源任务调度器接口
type Scheduler interface {
	// Schedule 以独占模式执行任务，对声明的每个资源持写锁
	Schedule(resources []ResourceID, fn TaskFunc) *Future

	// ScheduleRead 以共享模式执行任务，同资源上的读任务可并发
	ScheduleRead(resources []ResourceID, fn TaskFunc) *Future

	// TrySchedule 有界锁获取版本：超时放弃本轮并通过 Future 返回 ErrLockTimeout
	// 适用于尽力而为的后台任务（统计快照、健康巡检），不适用于核心状态变更
	TrySchedule(resources []ResourceID, timeout time.Duration, fn TaskFunc) *Future

	// ScheduleDetached 执行不声明资源的任务，无锁，仅计入分类统计
	ScheduleDetached(class TaskClass, fn func())

	// Stats 返回统计快照
	Stats() Stats

	// Close 关闭调度器
	Close()
}

// ============================================================================
// Pool - 工作池调度器
// ============================================================================

// Pool 固定大小工作池调度器
type Pool struct {
	queue chan *task
	stats statsCollector
	dispose.Dispose
}

// NewPool 创建工作池调度器
// workers 在进程启动时确定，运行期间不变
func NewPool(workers int, parentCtx context.Context) (*Pool, error) {
	if workers <= 0 {
		return nil, errors.ErrInvalidWorkerCount
	}

	p := &Pool{
		queue: make(chan *task, constants.DefaultTaskQueueSize),
	}
	p.SetCtx(parentCtx, p.onClose)

	for i := 0; i < workers; i++ {
		safe.GoWithContext(p.Ctx(), "scheduler-worker", func(ctx context.Context) {
			p.workerLoop(ctx)
		})
	}
	return p, nil
}

func (p *Pool) onClose() {
	// 队列保持打开，submit 通过 closed 标志拒绝新任务；
	// 工作协程由 context 取消退出。排空残留队列，未执行任务的
	// Future 以 ErrSchedulerClosed 完成，等待者不会永久挂起
	for {
		select {
		case t := <-p.queue:
			t.future.complete(nil, errors.ErrSchedulerClosed)
		default:
			return
		}
	}
}

func (p *Pool) workerLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case t := <-p.queue:
			runTask(t, &p.stats)
		}
	}
}

// submit 将任务送入队列，调度器已关闭时返回已完成的 Future
func (p *Pool) submit(t *task) *Future {
	if p.IsClosed() {
		return completedFuture(nil, errors.ErrSchedulerClosed)
	}
	p.stats.recordSubmit(t.class)

	select {
	case p.queue <- t:
	case <-p.Ctx().Done():
		t.future.complete(nil, errors.ErrSchedulerClosed)
	}
	return t.future
}

// Schedule 以独占模式执行任务
func (p *Pool) Schedule(resources []ResourceID, fn TaskFunc) *Future {
	return p.submit(&task{
		resources: normalizeResources(resources),
		mode:      AccessExclusive,
		class:     ClassResource,
		fn:        fn,
		future:    newFuture(),
	})
}

// ScheduleRead 以共享模式执行任务
func (p *Pool) ScheduleRead(resources []ResourceID, fn TaskFunc) *Future {
	return p.submit(&task{
		resources: normalizeResources(resources),
		mode:      AccessShared,
		class:     ClassRead,
		fn:        fn,
		future:    newFuture(),
	})
}

// TrySchedule 有界锁获取版本
func (p *Pool) TrySchedule(resources []ResourceID, timeout time.Duration, fn TaskFunc) *Future {
	return p.submit(&task{
		resources: normalizeResources(resources),
		mode:      AccessExclusive,
		class:     ClassResource,
		timeout:   timeout,
		fn:        fn,
		future:    newFuture(),
	})
}

// ScheduleDetached 执行无资源声明的任务
func (p *Pool) ScheduleDetached(class TaskClass, fn func()) {
	p.submit(&task{
		class: class,
		fn: func() (interface{}, error) {
			fn()
			return nil, nil
		},
		future: newFuture(),
	})
}

// Stats 返回统计快照
func (p *Pool) Stats() Stats {
	return p.stats.snapshot()
}

// Close 关闭调度器
func (p *Pool) Close() {
	p.Dispose.Close()
}

// ============================================================================
// Immediate - 即时执行调度器（测试/工具用）
// ============================================================================

// Immediate 在调用方协程上立即执行每个任务
// 锁纪律与工作池完全一致，用于确定性地复现并发问题
type Immediate struct {
	stats statsCollector
	dispose.Dispose
}

// NewImmediate 创建即时执行调度器
func NewImmediate(parentCtx context.Context) *Immediate {
	s := &Immediate{}
	s.SetCtx(parentCtx, nil)
	return s
}

func (s *Immediate) run(t *task) *Future {
	if s.IsClosed() {
		return completedFuture(nil, errors.ErrSchedulerClosed)
	}
	s.stats.recordSubmit(t.class)
	runTask(t, &s.stats)
	return t.future
}

// Schedule 以独占模式立即执行任务
func (s *Immediate) Schedule(resources []ResourceID, fn TaskFunc) *Future {
	return s.run(&task{
		resources: normalizeResources(resources),
		mode:      AccessExclusive,
		class:     ClassResource,
		fn:        fn,
		future:    newFuture(),
	})
}

// ScheduleRead 以共享模式立即执行任务
func (s *Immediate) ScheduleRead(resources []ResourceID, fn TaskFunc) *Future {
	return s.run(&task{
		resources: normalizeResources(resources),
		mode:      AccessShared,
		class:     ClassRead,
		fn:        fn,
		future:    newFuture(),
	})
}

// TrySchedule 有界锁获取版本
func (s *Immediate) TrySchedule(resources []ResourceID, timeout time.Duration, fn TaskFunc) *Future {
	return s.run(&task{
		resources: normalizeResources(resources),
		mode:      AccessExclusive,
		class:     ClassResource,
		timeout:   timeout,
		fn:        fn,
		future:    newFuture(),
	})
}

// ScheduleDetached 立即执行无资源声明的任务
func (s *Immediate) ScheduleDetached(class TaskClass, fn func()) {
	s.run(&task{
		class: class,
		fn: func() (interface{}, error) {
			fn()
			return nil, nil
		},
		future: newFuture(),
	})
}

// Stats 返回统计快照
func (s *Immediate) Stats() Stats {
	return s.stats.snapshot()
}

// Close 关闭调度器
func (s *Immediate) Close() {
	s.Dispose.Close()
}
