// Package theme 是只提供静态资源的单元：没有模块入口，也不挂载路由。
package theme

import (
	"embed"

	"github.com/any-hub/modhost/internal/unit"
)

// Name 是单元名称，也是资源链接 _content/Acme.Theme/ 的路径段。
const Name = "Acme.Theme"

//go:embed wwwroot
var assets embed.FS

// New 构造单元描述；每次调用返回新对象，便于测试放入独立目录。
func New() *unit.Unit {
	return &unit.Unit{
		Name:    Name,
		Version: "1.0.0",
		Assets:  assets,
	}
}

func init() {
	unit.MustRegister(New())
}
