package unit

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/any-hub/modhost/internal/logging"
)

// ErrUnitNotFound 表示按名称与路径均无法解析单元。
var ErrUnitNotFound = errors.New("unit not found")

// ResolverOptions 控制 Resolver 的依赖注入，零值字段使用默认实现。
type ResolverOptions struct {
	Catalog *Catalog
	Opener  Opener
	// ProbePaths 是按名称解析失败时依次探测 <dir>/<name>.so 的目录。
	ProbePaths []string
	// WorkDir 返回展开相对路径使用的工作目录，默认 os.Getwd。
	WorkDir func() (string, error)
	Logger  logrus.FieldLogger
}

// Resolver 将 locator（限定名称或 .so 路径）解析为已加载单元。
type Resolver struct {
	catalog *Catalog
	opener  Opener
	probes  []string
	workDir func() (string, error)
	logger  logrus.FieldLogger
	opened  map[string]*Unit
}

// NewResolver 构建 Resolver。
func NewResolver(opts ResolverOptions) *Resolver {
	r := &Resolver{
		catalog: opts.Catalog,
		opener:  opts.Opener,
		probes:  append([]string(nil), opts.ProbePaths...),
		workDir: opts.WorkDir,
		logger:  opts.Logger,
		opened:  make(map[string]*Unit),
	}
	if r.catalog == nil {
		r.catalog = Default()
	}
	if r.opener == nil {
		r.opener = PluginOpener{}
	}
	if r.workDir == nil {
		r.workDir = os.Getwd
	}
	if r.logger == nil {
		r.logger = logging.Silent()
	}
	return r
}

// Catalog 返回 Resolver 使用的单元目录。
func (r *Resolver) Catalog() *Catalog {
	return r.catalog
}

// Resolve 解析 locator。以 .so 结尾按路径直接加载（相对路径基于工作目录展开），
// 否则按名称经目录与探测路径解析。
func (r *Resolver) Resolve(locator string) (*Unit, error) {
	locator = strings.TrimSpace(locator)
	if locator == "" {
		return nil, fmt.Errorf("%w: locator 为空", ErrUnitNotFound)
	}
	if !IsPath(locator) {
		return r.ResolveName(locator)
	}

	path := locator
	if !filepath.IsAbs(path) {
		wd, err := r.workDir()
		if err != nil {
			return nil, fmt.Errorf("无法获取工作目录: %w", err)
		}
		path = filepath.Join(wd, path)
	}
	return r.LoadFrom(path)
}

// ResolveName 按名称解析：先查目录，再依次探测 ProbePaths。
func (r *Resolver) ResolveName(name string) (*Unit, error) {
	simple := SimpleName(name)
	if simple == "" {
		return nil, fmt.Errorf("%w: 名称为空", ErrUnitNotFound)
	}
	if u, ok := r.catalog.Lookup(simple); ok {
		if err := checkVersion(name, u); err != nil {
			return nil, err
		}
		return u, nil
	}

	for _, dir := range r.probes {
		candidate := filepath.Join(dir, simple+FileExt)
		if _, err := os.Stat(candidate); err != nil {
			continue
		}
		u, err := r.LoadFrom(candidate)
		if err != nil {
			return nil, err
		}
		if !strings.EqualFold(u.Name, simple) {
			return nil, fmt.Errorf("%w: %s 导出的单元名为 %s", ErrUnitNotFound, candidate, u.Name)
		}
		if err := checkVersion(name, u); err != nil {
			return nil, err
		}
		return u, nil
	}

	return nil, fmt.Errorf("%w: %s", ErrUnitNotFound, name)
}

// LoadFrom 从绝对路径加载单元，绕过目录与探测顺序。
// 同一路径或同一完整名称重复加载时返回已有实例。
func (r *Resolver) LoadFrom(path string) (*Unit, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrUnitNotFound, path, err)
	}
	if u, ok := r.opened[abs]; ok {
		return u, nil
	}
	if _, err := os.Stat(abs); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrUnitNotFound, abs)
		}
		return nil, fmt.Errorf("%w: %s: %w", ErrUnitNotFound, abs, err)
	}

	u, err := r.opener.Open(abs)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrUnitNotFound, abs, err)
	}
	if u == nil || strings.TrimSpace(u.Name) == "" {
		return nil, fmt.Errorf("%w: %s 未提供单元名称", ErrUnitNotFound, abs)
	}

	if existing, ok := r.catalog.Lookup(u.Name); ok {
		if !strings.EqualFold(existing.FullName(), u.FullName()) {
			return nil, fmt.Errorf("%w: %s 已加载为 %s", ErrDuplicateUnit, u.FullName(), existing.FullName())
		}
		r.opened[abs] = existing
		return existing, nil
	}

	if u.Location == "" {
		u.Location = abs
	}
	if err := r.catalog.Add(u); err != nil {
		return nil, err
	}
	r.opened[abs] = u

	r.logger.WithFields(logrus.Fields{
		"action": "unit_resolve",
		"unit":   u.FullName(),
		"path":   abs,
	}).Debug("单元已从路径加载")
	return u, nil
}

// checkVersion 在 name 带版本时要求已加载单元的版本一致；未声明版本的单元视为满足任意版本。
func checkVersion(name string, u *Unit) error {
	_, want, ok := strings.Cut(name, "@")
	want = strings.TrimSpace(want)
	if !ok || want == "" || u.Version == "" {
		return nil
	}
	if !strings.EqualFold(u.Version, want) {
		return fmt.Errorf("%w: 需要 %s，已加载 %s", ErrDuplicateUnit, name, u.FullName())
	}
	return nil
}
