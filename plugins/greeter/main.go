// greeter 是以 Go plugin 形式分发的示例单元，构建方式：
//
//	go build -buildmode=plugin -o plugins/greeter.so ./plugins/greeter
//
// 宿主通过 AssemblyNameOrPath = "plugins/greeter.so" 加载它，并查找导出的 Unit 变量。
package main

import (
	"embed"
	"fmt"
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v3"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"github.com/any-hub/modhost/internal/plugin"
	"github.com/any-hub/modhost/internal/services"
	"github.com/any-hub/modhost/internal/unit"
)

//go:embed wwwroot
var assets embed.FS

// Unit 是插件导出的单元描述。
var Unit = &unit.Unit{
	Name:    "Greeter",
	Version: "0.1.0",
	Assets:  assets,
	EntryPoints: map[string]unit.Factory{
		"Greeter.Startup": func() (any, error) { return &Startup{}, nil },
	},
	Routes: func(r fiber.Router) {
		r.Get("/", func(c fiber.Ctx) error {
			return c.SendString("greeter plugin")
		})
	},
}

// Startup 通过宿主提供的 http.client 探测配置的上游地址。
type Startup struct {
	client   *http.Client
	upstream string
	logger   logrus.FieldLogger
}

func (s *Startup) ConfigureServices(svc *services.Collection, cfg *viper.Viper, logger logrus.FieldLogger) error {
	client, err := services.Get[*http.Client](svc, "http.client")
	if err != nil {
		return err
	}
	s.client = client
	s.upstream = strings.TrimRight(cfg.GetString("Upstream"), "/")
	s.logger = logger
	return nil
}

func (s *Startup) Configure(rt *plugin.Runtime) error {
	rt.App.Get("/api/greeter/ping", func(c fiber.Ctx) error {
		if s.upstream == "" {
			return c.JSON(fiber.Map{"upstream": "", "status": 0})
		}
		resp, err := s.client.Get(s.upstream)
		if err != nil {
			s.logger.WithError(err).Warn("上游探测失败")
			return fiber.NewError(fiber.StatusBadGateway, fmt.Sprintf("upstream unreachable: %v", err))
		}
		defer resp.Body.Close()
		return c.JSON(fiber.Map{"upstream": s.upstream, "status": resp.StatusCode})
	})
	return nil
}

func main() {}
