package scheduler

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"gamenet-core/internal/constants"
	"gamenet-core/internal/core/log"
	"gamenet-core/internal/errors"
)

// TaskFunc 任务函数
type TaskFunc func() (interface{}, error)

// AccessMode 资源访问模式
type AccessMode int

const (
	// AccessExclusive 独占访问（写）
	AccessExclusive AccessMode = iota
	// AccessShared 共享访问（只读），同资源上的读任务可并发
	AccessShared
)

// TaskClass 任务分类，仅用于统计，不影响调度顺序
type TaskClass int

const (
	ClassPlain TaskClass = iota
	ClassUI
	ClassNetwork
	ClassResource
	ClassRead
)

func (c TaskClass) String() string {
	switch c {
	case ClassPlain:
		return "plain"
	case ClassUI:
		return "ui"
	case ClassNetwork:
		return "network"
	case ClassResource:
		return "resource"
	case ClassRead:
		return "read"
	default:
		return "unknown"
	}
}

// task 调度器内部任务表示
// 由调用方创建，提交后归调度器所有，执行完毕即消亡
type task struct {
	resources []ResourceID // 已排序去重
	mode      AccessMode
	class     TaskClass
	timeout   time.Duration // 0 表示阻塞获取
	fn        TaskFunc
	future    *Future
}

// Stats 调度器统计信息
type Stats struct {
	PlainTasks    int64
	UITasks       int64
	NetworkTasks  int64
	ResourceTasks int64
	ReadTasks     int64
	Completed     int64
	Failed        int64
	LockTimeouts  int64
}

// statsCollector 按任务分类累计计数
type statsCollector struct {
	plain        atomic.Int64
	ui           atomic.Int64
	network      atomic.Int64
	resource     atomic.Int64
	read         atomic.Int64
	completed    atomic.Int64
	failed       atomic.Int64
	lockTimeouts atomic.Int64
}

func (s *statsCollector) recordSubmit(class TaskClass) {
	switch class {
	case ClassPlain:
		s.plain.Add(1)
	case ClassUI:
		s.ui.Add(1)
	case ClassNetwork:
		s.network.Add(1)
	case ClassResource:
		s.resource.Add(1)
	case ClassRead:
		s.read.Add(1)
	}
}

func (s *statsCollector) snapshot() Stats {
	return Stats{
		PlainTasks:    s.plain.Load(),
		UITasks:       s.ui.Load(),
		NetworkTasks:  s.network.Load(),
		ResourceTasks: s.resource.Load(),
		ReadTasks:     s.read.Load(),
		Completed:     s.completed.Load(),
		Failed:        s.failed.Load(),
		LockTimeouts:  s.lockTimeouts.Load(),
	}
}

// runTask 任务执行核心：按全局顺序获取锁、执行、逆序释放
// 所有调度器实现共用同一套锁纪律
func runTask(t *task, stats *statsCollector) {
	acquired, err := acquireLocks(t.resources, t.mode, t.timeout)
	if err != nil {
		stats.lockTimeouts.Add(1)
		stats.failed.Add(1)
		log.Warnf("scheduler: lock acquisition timed out after %v for %v, skipping cycle", t.timeout, t.resources)
		t.future.complete(nil, err)
		return
	}
	// LIFO 释放：即使任务 panic 也不会泄漏持有的锁
	defer releaseLocks(acquired, t.mode)

	value, err := invoke(t.fn)
	if err != nil {
		stats.failed.Add(1)
	} else {
		stats.completed.Add(1)
	}
	t.future.complete(value, err)
}

// invoke 执行任务函数并将 panic 转换为错误
func invoke(fn TaskFunc) (value interface{}, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.NewSchedulerError("task", fmt.Sprintf("panic: %v", r), errors.ErrTaskPanicked)
		}
	}()
	return fn()
}

// acquireLocks 按排序后的顺序获取资源锁
// timeout > 0 时使用有界 try-acquire，超时返回 ErrLockTimeout
func acquireLocks(resources []ResourceID, mode AccessMode, timeout time.Duration) ([]*sync.RWMutex, error) {
	if len(resources) == 0 {
		return nil, nil
	}

	acquired := make([]*sync.RWMutex, 0, len(resources))
	deadline := time.Time{}
	if timeout > 0 {
		deadline = time.Now().Add(timeout)
	}

	for _, id := range resources {
		lock := globalRegistry.lockFor(id)
		if timeout <= 0 {
			if mode == AccessShared {
				lock.RLock()
			} else {
				lock.Lock()
			}
			acquired = append(acquired, lock)
			continue
		}

		if !tryAcquireUntil(lock, mode, deadline) {
			// 超时：逆序释放已持有的锁后放弃本轮
			releaseLocks(acquired, mode)
			return nil, errors.NewSchedulerError(id.String(), "bounded acquire gave up", errors.ErrLockTimeout)
		}
		acquired = append(acquired, lock)
	}
	return acquired, nil
}

// tryAcquireUntil 在截止时间前轮询 TryLock
func tryAcquireUntil(lock *sync.RWMutex, mode AccessMode, deadline time.Time) bool {
	for {
		if mode == AccessShared {
			if lock.TryRLock() {
				return true
			}
		} else {
			if lock.TryLock() {
				return true
			}
		}
		if !time.Now().Before(deadline) {
			return false
		}
		time.Sleep(constants.TryLockPollInterval)
	}
}

// releaseLocks 逆序释放
func releaseLocks(acquired []*sync.RWMutex, mode AccessMode) {
	for i := len(acquired) - 1; i >= 0; i-- {
		if mode == AccessShared {
			acquired[i].RUnlock()
		} else {
			acquired[i].Unlock()
		}
	}
}
