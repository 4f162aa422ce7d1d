package scheduler

import (
	"fmt"
	"sort"
	"sync"
)

// ResourceID 标识一个命名的逻辑共享资源
// Name 与 Kind 共同构成唯一标识，并定义全局锁获取顺序
type ResourceID struct {
	Name string
	Kind string
}

// NewResourceID 创建资源标识
func NewResourceID(name, kind string) ResourceID {
	return ResourceID{Name: name, Kind: kind}
}

// Less 定义资源的全序关系：先按 Name，再按 Kind
// 所有调用方按该顺序获取锁，从根本上避免死锁
func (r ResourceID) Less(other ResourceID) bool {
	if r.Name != other.Name {
		return r.Name < other.Name
	}
	return r.Kind < other.Kind
}

func (r ResourceID) String() string {
	return fmt.Sprintf("%s/%s", r.Name, r.Kind)
}

// registry 进程级资源锁注册表
// 每个资源对应一把读写锁，首次使用时惰性创建，与进程同生命周期
type registry struct {
	mu    sync.Mutex
	locks map[ResourceID]*sync.RWMutex
}

var globalRegistry = &registry{
	locks: make(map[ResourceID]*sync.RWMutex),
}

// lockFor 返回资源对应的读写锁，不存在则创建
func (reg *registry) lockFor(id ResourceID) *sync.RWMutex {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	if lock, ok := reg.locks[id]; ok {
		return lock
	}
	lock := &sync.RWMutex{}
	reg.locks[id] = lock
	return lock
}

// size 返回已注册的资源数量（仅统计用）
func (reg *registry) size() int {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	return len(reg.locks)
}

// normalizeResources 排序并去重声明的资源集
// 返回的副本即为锁获取顺序
func normalizeResources(ids []ResourceID) []ResourceID {
	if len(ids) == 0 {
		return nil
	}

	sorted := make([]ResourceID, len(ids))
	copy(sorted, ids)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Less(sorted[j])
	})

	// 去重：同一资源声明多次只获取一次锁
	result := sorted[:1]
	for _, id := range sorted[1:] {
		if id != result[len(result)-1] {
			result = append(result, id)
		}
	}
	return result
}
