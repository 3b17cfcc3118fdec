package unit

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
)

// DependencyError 表示依赖单元在名称解析与回退路径下均无法加载。
type DependencyError struct {
	// Name 是无法解析的依赖完整名称。
	Name string
	// Requester 是声明该依赖的单元完整名称。
	Requester string
	// Err 是按名称解析时的原始错误。
	Err error
}

func (e *DependencyError) Error() string {
	return fmt.Sprintf("加载依赖 %s 失败（被 %s 引用）: %v", e.Name, e.Requester, e.Err)
}

func (e *DependencyError) Unwrap() error {
	return e.Err
}

// Walker 递归加载单元声明的依赖。
type Walker struct {
	resolver *Resolver
	logger   logrus.FieldLogger
}

// NewWalker 基于 Resolver 构建依赖遍历器。
func NewWalker(resolver *Resolver) *Walker {
	return &Walker{resolver: resolver, logger: resolver.logger}
}

// Walk 深度优先加载 root 的全部传递依赖。
// 已访问集以进程内现有单元为初始值，并以完整名称为键，循环依赖会自然终止。
func (w *Walker) Walk(root *Unit) error {
	if root == nil {
		return nil
	}
	visited := w.resolver.catalog.FullNames()
	visited[normalizeKey(root.FullName())] = struct{}{}
	return w.walk(root, visited)
}

func (w *Walker) walk(u *Unit, visited map[string]struct{}) error {
	for _, dep := range u.Dependencies {
		key := normalizeKey(dep)
		if key == "" {
			continue
		}
		if _, seen := visited[key]; seen {
			continue
		}

		loaded, err := w.resolver.ResolveName(dep)
		if err != nil {
			fallback, ferr := w.loadBeside(u, dep)
			if ferr != nil {
				return &DependencyError{Name: dep, Requester: u.FullName(), Err: err}
			}
			loaded = fallback
		}

		visited[key] = struct{}{}
		visited[normalizeKey(loaded.FullName())] = struct{}{}
		w.logger.WithFields(logrus.Fields{
			"action":    "dependency_load",
			"unit":      loaded.FullName(),
			"requester": u.FullName(),
		}).Debug("依赖单元已加载")

		if err := w.walk(loaded, visited); err != nil {
			return err
		}
	}
	return nil
}

// loadBeside 在请求方单元所在目录下查找 <简单名称>.so。
func (w *Walker) loadBeside(requester *Unit, dep string) (*Unit, error) {
	if requester.Location == "" {
		return nil, fmt.Errorf("%w: %s 没有物理位置", ErrUnitNotFound, requester.FullName())
	}
	simple := SimpleName(dep)
	path := filepath.Join(filepath.Dir(requester.Location), simple+FileExt)
	u, err := w.resolver.LoadFrom(path)
	if err != nil {
		return nil, err
	}
	if !strings.EqualFold(u.Name, simple) {
		return nil, fmt.Errorf("%w: %s 导出的单元名为 %s", ErrUnitNotFound, path, u.Name)
	}
	if err := checkVersion(dep, u); err != nil {
		return nil, err
	}
	return u, nil
}
