// Package hello 是示例模块单元：依赖 Acme.Theme 的样式，注册问候服务，
// 激活时挂载 /api/hello，并作为路由单元在 /Acme.Hello 下提供页面。
package hello

import (
	"embed"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v3"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"github.com/any-hub/modhost/internal/plugin"
	"github.com/any-hub/modhost/internal/services"
	"github.com/any-hub/modhost/internal/unit"
)

const (
	// Name 是单元名称。
	Name = "Acme.Hello"
	// GreeterService 是模块注册到服务集合中的问候服务名。
	GreeterService = "hello.greeter"

	defaultGreeting = "Hello"
)

//go:embed wwwroot
var assets embed.FS

// New 构造单元描述。
func New() *unit.Unit {
	return &unit.Unit{
		Name:         Name,
		Version:      "1.0.0",
		Dependencies: []string{"Acme.Theme"},
		Assets:       assets,
		EntryPoints: map[string]unit.Factory{
			Name + ".Module": func() (any, error) { return &Module{}, nil },
		},
		Routes: routes,
	}
}

func init() {
	unit.MustRegister(New())
}

// Greeter 生成问候语，供其它模块通过服务集合复用。
type Greeter struct {
	Greeting string
}

// Greet 返回针对 name 的问候语，name 为空时问候 world。
func (g *Greeter) Greet(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		name = "world"
	}
	return fmt.Sprintf("%s, %s!", g.Greeting, name)
}

// Module 实现 plugin.Module。
type Module struct {
	logger logrus.FieldLogger
}

// ConfigureServices 读取 Greeting 与 ExternalScripts 两个模块级配置。
func (m *Module) ConfigureServices(svc *services.Collection, cfg *viper.Viper, logger logrus.FieldLogger) error {
	m.logger = logger

	greeting := strings.TrimSpace(cfg.GetString("Greeting"))
	if greeting == "" {
		greeting = defaultGreeting
	}
	if err := svc.AddOwned(GreeterService, Name, &Greeter{Greeting: greeting}); err != nil {
		return err
	}

	external := cfg.GetStringSlice("ExternalScripts")
	if len(external) == 0 {
		return nil
	}
	registry, err := services.Get[*plugin.Registry](svc, "plugin.registry")
	if err != nil {
		return fmt.Errorf("外部脚本需要宿主提供 plugin.registry: %w", err)
	}
	for _, src := range external {
		if src == "" || strings.ContainsAny(src, `<>"`) {
			return fmt.Errorf("外部脚本地址不合法: %q", src)
		}
		registry.AddExternalLink(plugin.ScriptTag(src))
	}
	return nil
}

// Configure 挂载问候接口。
func (m *Module) Configure(rt *plugin.Runtime) error {
	greeter, err := services.Get[*Greeter](rt.Services, GreeterService)
	if err != nil {
		return err
	}
	rt.App.Get("/api/hello/:name?", func(c fiber.Ctx) error {
		return c.JSON(fiber.Map{"message": greeter.Greet(c.Params("name"))})
	})
	m.logger.WithField("action", "module_activate").Debug("问候接口已挂载")
	return nil
}

// routes 挂载到 /Acme.Hello 分组下。
func routes(r fiber.Router) {
	r.Get("/", func(c fiber.Ctx) error {
		page, err := assets.ReadFile("wwwroot/index.html")
		if err != nil {
			return fiber.ErrNotFound
		}
		c.Set(fiber.HeaderContentType, fiber.MIMETextHTMLCharsetUTF8)
		return c.Send(page)
	})
}
