package unit

import (
	"errors"
	"io/fs"
	"sort"
	"strings"

	"github.com/gofiber/fiber/v3"
)

const (
	// FileExt 是单元文件扩展名，以该后缀结尾的 locator 视为路径。
	FileExt = ".so"
	// SymbolName 是 .so 单元必须导出的符号名。
	SymbolName = "Unit"
	// AssetRoot 是单元静态资源的约定根目录。
	AssetRoot = "wwwroot"
	// ConventionalEntryPoint 是未显式指定入口时按约定查找的类型名后缀。
	ConventionalEntryPoint = "Module"
)

// ErrNoManifest 表示单元未嵌入任何静态资源清单。
var ErrNoManifest = errors.New("unit has no embedded manifest")

// Factory 以零参数方式构造模块实例，返回值需实现宿主定义的模块契约。
type Factory func() (any, error)

// Unit 描述一个已加载到进程中的代码单元。
type Unit struct {
	// Name 是单元的简单名称，同时用作静态资源链接的路径段。
	Name    string
	Version string
	// Location 是单元文件的绝对路径；随宿主编译的单元为空。
	Location string
	// Dependencies 列出依赖单元的完整名称（name 或 name@version）。
	Dependencies []string
	// Assets 保存嵌入的静态文件，约定位于 wwwroot/ 之下。
	Assets fs.FS
	// EntryPoints 是显式入口注册表，键为限定类型名（如 Acme.Hello.Module）。
	EntryPoints map[string]Factory
	// Routes 在单元被配置为 IsRouted 时挂载到 /<Name> 下。
	Routes func(fiber.Router)
}

// FullName 返回单元的完整标识：无版本时等于 Name，否则为 name@version。
func (u *Unit) FullName() string {
	if u == nil {
		return ""
	}
	if u.Version == "" {
		return u.Name
	}
	return u.Name + "@" + u.Version
}

// TypeName 拼接单元内的限定类型名。
func (u *Unit) TypeName(simple string) string {
	return u.Name + "." + simple
}

// EntryPoint 按限定类型名查找入口工厂。
func (u *Unit) EntryPoint(typeName string) (Factory, bool) {
	if u == nil || len(u.EntryPoints) == 0 {
		return nil, false
	}
	f, ok := u.EntryPoints[typeName]
	return f, ok && f != nil
}

// ManifestNames 列出嵌入资源的清单名，格式为 <Name>.<path>，路径分隔符替换为 "."。
func (u *Unit) ManifestNames() (map[string]struct{}, error) {
	if u == nil || u.Assets == nil {
		return nil, ErrNoManifest
	}
	names := make(map[string]struct{})
	err := fs.WalkDir(u.Assets, ".", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		names[ManifestName(u.Name, path)] = struct{}{}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return names, nil
}

// SortedManifestNames 返回排序后的清单名，供诊断输出。
func (u *Unit) SortedManifestNames() []string {
	names, err := u.ManifestNames()
	if err != nil {
		return nil
	}
	out := make([]string, 0, len(names))
	for name := range names {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// ManifestName 计算单元内某个文件路径对应的清单名。
func ManifestName(unitName, path string) string {
	path = strings.TrimPrefix(path, "/")
	return unitName + "." + strings.ReplaceAll(path, "/", ".")
}

// SimpleName 去掉完整名称中的版本部分。
func SimpleName(fullName string) string {
	name := strings.TrimSpace(fullName)
	if idx := strings.Index(name, "@"); idx >= 0 {
		name = name[:idx]
	}
	return name
}

// IsPath 判断 locator 是否按文件路径处理。
func IsPath(locator string) bool {
	return strings.HasSuffix(strings.ToLower(strings.TrimSpace(locator)), FileExt)
}

func normalizeKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
