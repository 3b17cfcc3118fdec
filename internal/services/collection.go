// Package services 提供模块在注册阶段写入、在激活阶段与请求期读取的服务集合。
package services

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

var (
	// ErrDuplicateService indicates a service name already has a binding.
	ErrDuplicateService = errors.New("service already registered")
	// ErrServiceNotFound indicates no binding exists for the name.
	ErrServiceNotFound = errors.New("service not found")
)

// Factory lazily builds a singleton the first time it is resolved.
type Factory func(c *Collection) (any, error)

type binding struct {
	owner   string
	value   any
	factory Factory
	built   bool
}

// Collection stores named service bindings.
type Collection struct {
	mu       sync.RWMutex
	bindings map[string]*binding
}

// New creates an empty collection.
func New() *Collection {
	return &Collection{bindings: make(map[string]*binding)}
}

// Add binds a ready-made value under name.
func (c *Collection) Add(name string, value any) error {
	return c.AddOwned(name, "", value)
}

// AddOwned binds value and records which module contributed it.
func (c *Collection) AddOwned(name, owner string, value any) error {
	if value == nil {
		return errors.New("service value required")
	}
	return c.bind(name, &binding{owner: owner, value: value, built: true})
}

// AddFactory binds a lazily-built singleton.
func (c *Collection) AddFactory(name string, factory Factory) error {
	if factory == nil {
		return errors.New("service factory required")
	}
	return c.bind(name, &binding{factory: factory})
}

// MustAdd panics on registration failure.
func (c *Collection) MustAdd(name string, value any) {
	if err := c.Add(name, value); err != nil {
		panic(err)
	}
}

func (c *Collection) bind(name string, b *binding) error {
	key := normalizeKey(name)
	if key == "" {
		return errors.New("service name required")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.bindings[key]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateService, key)
	}
	c.bindings[key] = b
	return nil
}

// Resolve returns the service bound to name, building factories on first use.
func (c *Collection) Resolve(name string) (any, error) {
	key := normalizeKey(name)
	c.mu.RLock()
	b, ok := c.bindings[key]
	if ok && b.built {
		value := b.value
		c.mu.RUnlock()
		return value, nil
	}
	c.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrServiceNotFound, key)
	}

	// factory 在锁外执行，允许其解析其它服务
	value, err := b.factory(c)
	if err != nil {
		return nil, fmt.Errorf("build service %s: %w", key, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if b.built {
		return b.value, nil
	}
	b.value = value
	b.built = true
	return value, nil
}

// Has reports whether name is bound.
func (c *Collection) Has(name string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.bindings[normalizeKey(name)]
	return ok
}

// Names returns bound service names in sorted order.
func (c *Collection) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, 0, len(c.bindings))
	for key := range c.bindings {
		out = append(out, key)
	}
	sort.Strings(out)
	return out
}

// Snapshot returns name → owner for diagnostics; host-provided services report "host".
func (c *Collection) Snapshot() map[string]string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]string, len(c.bindings))
	for key, b := range c.bindings {
		owner := b.owner
		if owner == "" {
			owner = "host"
		}
		out[key] = owner
	}
	return out
}

// Get resolves name and asserts it to T.
func Get[T any](c *Collection, name string) (T, error) {
	var zero T
	value, err := c.Resolve(name)
	if err != nil {
		return zero, err
	}
	typed, ok := value.(T)
	if !ok {
		return zero, fmt.Errorf("service %s has type %T, want %T", normalizeKey(name), value, zero)
	}
	return typed, nil
}

func normalizeKey(key string) string {
	return strings.ToLower(strings.TrimSpace(key))
}
