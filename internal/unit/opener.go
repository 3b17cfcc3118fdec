package unit

import (
	"fmt"
	"plugin"
)

// Opener 从单元文件把代码装入进程。
type Opener interface {
	Open(path string) (*Unit, error)
}

// OpenerFunc 适配普通函数为 Opener。
type OpenerFunc func(path string) (*Unit, error)

// Open 使 OpenerFunc 满足 Opener。
func (f OpenerFunc) Open(path string) (*Unit, error) {
	return f(path)
}

// PluginOpener 基于 Go plugin 机制加载 -buildmode=plugin 构建的 .so 单元。
// 单元需导出 Unit 符号，类型可以是 *unit.Unit、unit.Unit 或 func() *unit.Unit。
type PluginOpener struct{}

// Open 打开 .so 并读取 Unit 符号；plugin.Open 对同一路径自带缓存。
func (PluginOpener) Open(path string) (*Unit, error) {
	p, err := plugin.Open(path)
	if err != nil {
		return nil, fmt.Errorf("打开单元文件失败: %w", err)
	}
	sym, err := p.Lookup(SymbolName)
	if err != nil {
		return nil, fmt.Errorf("单元 %s 未导出 %s 符号: %w", path, SymbolName, err)
	}

	var u *Unit
	switch v := sym.(type) {
	case **Unit:
		u = *v
	case *Unit:
		u = v
	case func() *Unit:
		u = v()
	default:
		return nil, fmt.Errorf("单元 %s 的 %s 符号类型不支持: %T", path, SymbolName, sym)
	}
	if u == nil {
		return nil, fmt.Errorf("单元 %s 的 %s 符号为空", path, SymbolName)
	}
	return u, nil
}
