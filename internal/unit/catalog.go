package unit

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// ErrDuplicateUnit 表示同名单元已登记。
var ErrDuplicateUnit = errors.New("unit already registered")

var defaultCatalog = NewCatalog()

// Catalog 记录进程内已加载的单元，键为小写简单名称。
type Catalog struct {
	mu    sync.RWMutex
	units map[string]*Unit
}

// NewCatalog 创建空目录，测试或多宿主场景下使用。
func NewCatalog() *Catalog {
	return &Catalog{units: make(map[string]*Unit)}
}

// Default 返回进程级目录，随宿主编译的单元在 init() 中登记到这里。
func Default() *Catalog {
	return defaultCatalog
}

// Register 将单元加入进程级目录，重复名称返回错误。
func Register(u *Unit) error {
	return defaultCatalog.Add(u)
}

// MustRegister 在登记失败时 panic，适合单元 init() 中调用。
func MustRegister(u *Unit) {
	if err := Register(u); err != nil {
		panic(err)
	}
}

// Add 登记单元。
func (c *Catalog) Add(u *Unit) error {
	if u == nil {
		return errors.New("unit is nil")
	}
	key := normalizeKey(u.Name)
	if key == "" {
		return errors.New("unit name is required")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.units[key]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateUnit, u.Name)
	}
	c.units[key] = u
	return nil
}

// Lookup 按简单名称或完整名称查找单元，大小写不敏感。
func (c *Catalog) Lookup(name string) (*Unit, bool) {
	key := normalizeKey(SimpleName(name))
	if key == "" {
		return nil, false
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	u, ok := c.units[key]
	return u, ok
}

// List 返回按名称排序的单元列表。
func (c *Catalog) List() []*Unit {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if len(c.units) == 0 {
		return nil
	}

	keys := make([]string, 0, len(c.units))
	for key := range c.units {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	result := make([]*Unit, 0, len(keys))
	for _, key := range keys {
		result = append(result, c.units[key])
	}
	return result
}

// FullNames 返回所有已登记单元的小写完整名称集合，作为依赖遍历的初始已访问集。
func (c *Catalog) FullNames() map[string]struct{} {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make(map[string]struct{}, len(c.units)*2)
	for key, u := range c.units {
		out[key] = struct{}{}
		out[normalizeKey(u.FullName())] = struct{}{}
	}
	return out
}
