package scheduler

import (
	"context"
)

// Future 任务结果句柄
// 任务内抛出的错误（包括恢复的 panic）通过 Future 传递，绝不静默吞掉
type Future struct {
	done  chan struct{}
	value interface{}
	err   error
}

func newFuture() *Future {
	return &Future{done: make(chan struct{})}
}

// complete 写入结果并唤醒等待者，只允许调用一次
func (f *Future) complete(value interface{}, err error) {
	f.value = value
	f.err = err
	close(f.done)
}

// completedFuture 创建已完成的 Future（用于提交阶段即失败的任务）
func completedFuture(value interface{}, err error) *Future {
	f := newFuture()
	f.complete(value, err)
	return f
}

// Done 返回任务完成通知通道
func (f *Future) Done() <-chan struct{} {
	return f.done
}

// Wait 阻塞等待任务完成
func (f *Future) Wait() (interface{}, error) {
	<-f.done
	return f.value, f.err
}

// WaitContext 等待任务完成，context 取消时提前返回
// 注意任务本身仍会执行完毕，取消只影响等待方
func (f *Future) WaitContext(ctx context.Context) (interface{}, error) {
	select {
	case <-f.done:
		return f.value, f.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
