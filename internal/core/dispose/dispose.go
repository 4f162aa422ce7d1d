// Package dispose 提供统一的资源生命周期管理
// 组件内嵌 Dispose 后获得 context 绑定、幂等关闭和清理回调能力
package dispose

import (
	"context"
	"sync"
)

type Dispose struct {
	currentLock   sync.Mutex
	closed        bool
	ctx           context.Context
	cancel        context.CancelFunc
	cleanHandlers []func()
	linkLock      sync.Mutex
}

// Ctx 返回组件绑定的 context
func (c *Dispose) Ctx() context.Context {
	return c.ctx
}

// IsClosed 判断是否已关闭
func (c *Dispose) IsClosed() bool {
	c.currentLock.Lock()
	defer c.currentLock.Unlock()
	return c.closed
}

// Close 幂等关闭：取消 context 并按注册顺序执行清理回调
func (c *Dispose) Close() {
	c.currentLock.Lock()
	defer c.currentLock.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	if c.cancel != nil {
		c.cancel()
	}
	c.runCleanHandlers()
}

func (c *Dispose) runCleanHandlers() {
	for _, handler := range c.cleanHandlers {
		handler()
	}
}

// AddCleanHandler 注册关闭时执行的清理回调
func (c *Dispose) AddCleanHandler(f func()) {
	c.linkLock.Lock()
	defer c.linkLock.Unlock()

	if c.cleanHandlers == nil {
		c.cleanHandlers = make([]func(), 0)
	}
	c.cleanHandlers = append(c.cleanHandlers, f)
}

// SetCtx 绑定父 context；父 context 取消时自动触发清理
func (c *Dispose) SetCtx(parent context.Context, onClose func()) {
	if c.ctx != nil {
		return
	}

	curParent := parent
	if curParent == nil {
		curParent = context.Background()
	}

	if onClose != nil {
		c.AddCleanHandler(onClose)
	}

	c.ctx, c.cancel = context.WithCancel(curParent)
	c.closed = false
	go func() {
		<-c.ctx.Done()
		c.currentLock.Lock()
		defer c.currentLock.Unlock()
		if !c.closed {
			c.runCleanHandlers()
			c.closed = true
		}
	}()
}
