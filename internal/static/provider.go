// Package static 定义静态资源提供者：宿主 web 根目录、单元嵌入资源，以及按优先级组合的复合提供者。
// Fiber 的 static 中间件通过 Slot 读取当前生效的提供者，激活阶段可整体替换。
package static

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"strings"
	"sync"

	"github.com/any-hub/modhost/internal/unit"
)

// ContentPrefix 是单元静态资源链接的公共前缀。
const ContentPrefix = "_content/"

// ErrNoManifest 表示单元没有可服务的嵌入资源，属于正常情况。
var ErrNoManifest = unit.ErrNoManifest

// Provider 是一个具名的只读文件系统。
type Provider interface {
	fs.FS
	// Describe 返回用于诊断输出的来源描述。
	Describe() string
}

// EmbeddedProvider 以单元的 wwwroot 为根提供文件，同时接受 _content/<Unit>/ 前缀的路径。
type EmbeddedProvider struct {
	unitName string
	prefix   string
	root     fs.FS
}

// NewEmbeddedProvider 为单元构造嵌入资源提供者；无资源或缺少 wwwroot 时返回 ErrNoManifest。
func NewEmbeddedProvider(u *unit.Unit) (*EmbeddedProvider, error) {
	if u == nil || u.Assets == nil {
		return nil, ErrNoManifest
	}
	info, err := fs.Stat(u.Assets, unit.AssetRoot)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrNoManifest, u.Name)
	}
	root, err := fs.Sub(u.Assets, unit.AssetRoot)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrNoManifest, u.Name, err)
	}
	return &EmbeddedProvider{
		unitName: u.Name,
		prefix:   ContentPrefix + u.Name + "/",
		root:     root,
	}, nil
}

// Open 实现 fs.FS。
func (p *EmbeddedProvider) Open(name string) (fs.File, error) {
	clean := cleanName(name)
	if strings.HasPrefix(clean, p.prefix) {
		clean = strings.TrimPrefix(clean, p.prefix)
	}
	if clean == "" {
		clean = "."
	}
	return p.root.Open(clean)
}

// Describe 返回 unit:<名称>。
func (p *EmbeddedProvider) Describe() string {
	return "unit:" + p.unitName
}

// UnitName 返回提供者所属单元。
func (p *EmbeddedProvider) UnitName() string {
	return p.unitName
}

// DirProvider 提供宿主自身 web 根目录下的文件。
type DirProvider struct {
	dir  string
	root fs.FS
}

// NewDirProvider 返回目录提供者；目录为空或不存在时返回 nil。
func NewDirProvider(dir string) *DirProvider {
	if strings.TrimSpace(dir) == "" {
		return nil
	}
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return nil
	}
	return &DirProvider{dir: dir, root: os.DirFS(dir)}
}

// Open 实现 fs.FS。
func (p *DirProvider) Open(name string) (fs.File, error) {
	clean := cleanName(name)
	if clean == "" {
		clean = "."
	}
	return p.root.Open(clean)
}

// Describe 返回 dir:<路径>。
func (p *DirProvider) Describe() string {
	return "dir:" + p.dir
}

// Composite 按顺序查询提供者，第一个命中者生效。
type Composite struct {
	providers []Provider
}

// NewComposite 组合提供者，索引越小优先级越高，nil 会被忽略。
func NewComposite(providers ...Provider) *Composite {
	list := make([]Provider, 0, len(providers))
	for _, p := range providers {
		if p != nil {
			list = append(list, p)
		}
	}
	return &Composite{providers: list}
}

// Open 实现 fs.FS。
func (c *Composite) Open(name string) (fs.File, error) {
	var firstErr error
	for _, p := range c.providers {
		f, err := p.Open(name)
		if err == nil {
			return f, nil
		}
		if firstErr == nil && !errors.Is(err, fs.ErrNotExist) {
			firstErr = err
		}
	}
	if firstErr != nil {
		return nil, firstErr
	}
	return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrNotExist}
}

// Describe 列出组合内的来源。
func (c *Composite) Describe() string {
	return "composite[" + strings.Join(c.Sources(), ",") + "]"
}

// Sources 按优先级返回来源描述。
func (c *Composite) Sources() []string {
	out := make([]string, 0, len(c.providers))
	for _, p := range c.providers {
		out = append(out, p.Describe())
	}
	return out
}

// Providers 返回组合内提供者的副本。
func (c *Composite) Providers() []Provider {
	return append([]Provider(nil), c.providers...)
}

// Slot 持有当前生效的提供者，请求期并发读取、激活阶段替换。
type Slot struct {
	mu      sync.RWMutex
	current Provider
}

// NewSlot 以初始提供者（可为 nil）创建 Slot。
func NewSlot(initial Provider) *Slot {
	return &Slot{current: initial}
}

// Current 返回当前提供者，可能为 nil。
func (s *Slot) Current() Provider {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Replace 原子地替换提供者。
func (s *Slot) Replace(p Provider) {
	s.mu.Lock()
	s.current = p
	s.mu.Unlock()
}

// Open 实现 fs.FS，委托给当前提供者。
func (s *Slot) Open(name string) (fs.File, error) {
	current := s.Current()
	if current == nil {
		return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrNotExist}
	}
	return current.Open(name)
}

// cleanName 去掉前导斜杠并规整路径，兼容 URL 风格的请求路径。
func cleanName(name string) string {
	name = strings.TrimPrefix(name, "/")
	if name == "" || name == "." {
		return ""
	}
	cleaned := path.Clean(name)
	if cleaned == "." {
		return ""
	}
	return cleaned
}
