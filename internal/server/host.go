package server

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v3"
	"github.com/sirupsen/logrus"

	"github.com/any-hub/modhost/internal/config"
	"github.com/any-hub/modhost/internal/logging"
	"github.com/any-hub/modhost/internal/plugin"
	"github.com/any-hub/modhost/internal/server/routes"
	"github.com/any-hub/modhost/internal/services"
	"github.com/any-hub/modhost/internal/static"
	"github.com/any-hub/modhost/internal/unit"
)

// 宿主预先注册到服务集合中的服务名。
const (
	RegistryService = "plugin.registry"
	LoggerService   = "logger"
)

// HostOptions 描述启动一个宿主所需的依赖。
type HostOptions struct {
	Config     *config.Config
	ConfigPath string
	Logger     *logrus.Logger
	// Catalog 为空时使用进程级目录（随宿主编译的单元已在 init 中登记）。
	Catalog *unit.Catalog
	// Opener 为空时使用 Go plugin 打开 .so 单元。
	Opener unit.Opener
}

// Host 是完成注册与激活后的宿主。
type Host struct {
	App      *fiber.App
	Services *services.Collection
	Snapshot *plugin.Snapshot
	Catalog  *unit.Catalog
	Static   *static.Slot

	cfg    *config.Config
	logger *logrus.Logger
}

// Descriptors 把配置中的模块条目转换为加载器使用的描述符。
func Descriptors(cfg *config.Config) []plugin.Descriptor {
	if cfg == nil {
		return nil
	}
	out := make([]plugin.Descriptor, 0, len(cfg.Modules))
	for i, m := range cfg.Modules {
		out = append(out, plugin.Descriptor{
			Index:       i,
			Enabled:     m.IsEnabled,
			Locator:     m.AssemblyNameOrPath,
			Routed:      m.IsRouted,
			StyleSheets: append([]string(nil), m.StyleSheets...),
			Scripts:     append([]string(nil), m.Scripts...),
			EntryPoint:  m.EntryPoint,
		})
	}
	return out
}

// NewHost 按“配置 → 服务集合 → 注册阶段 → Fiber app → 激活阶段 → 首页/诊断/静态资源”的顺序启动宿主。
// 任一阶段失败都返回单个描述性错误，调用方据此以非零码退出。
func NewHost(opts HostOptions) (*Host, error) {
	if opts.Config == nil {
		return nil, errors.New("config is required")
	}
	if opts.Logger == nil {
		return nil, errors.New("logger is required")
	}
	catalog := opts.Catalog
	if catalog == nil {
		catalog = unit.Default()
	}
	opener := opts.Opener
	if opener == nil {
		opener = unit.PluginOpener{}
	}

	resolver := unit.NewResolver(unit.ResolverOptions{
		Catalog:    catalog,
		Opener:     opener,
		ProbePaths: opts.Config.Global.ProbePaths,
		Logger:     opts.Logger,
	})
	loader, err := plugin.NewLoader(plugin.LoaderOptions{
		Resolver: resolver,
		Logger:   opts.Logger,
	})
	if err != nil {
		return nil, err
	}

	svc := services.New()
	svc.MustAdd(HTTPClientService, NewHTTPClient(opts.Config))
	svc.MustAdd(RegistryService, loader.Registry())
	svc.MustAdd(LoggerService, opts.Logger)

	modules := Descriptors(opts.Config)
	if err := loader.Register(modules, svc, opts.Config); err != nil {
		return nil, fmt.Errorf("模块注册失败: %w", err)
	}

	app, err := NewApp(AppOptions{Logger: opts.Logger})
	if err != nil {
		return nil, err
	}

	// 宿主 web 根目录作为最低优先级的提供者，激活阶段会在其前面叠加单元资源
	var hostRoot static.Provider
	if dir := static.NewDirProvider(opts.Config.Global.WebRoot); dir != nil {
		hostRoot = dir
	}
	slot := static.NewSlot(hostRoot)

	snap, err := loader.Activate(&plugin.Runtime{
		App:      app,
		Services: svc,
		Static:   slot,
		Logger:   opts.Logger,
	}, modules)
	if err != nil {
		return nil, fmt.Errorf("模块激活失败: %w", err)
	}

	if err := MountShell(app, NewShellData(opts.Config.Global.ShellTitle, snap)); err != nil {
		return nil, fmt.Errorf("渲染首页失败: %w", err)
	}
	routes.RegisterModuleRoutes(app, routes.Diagnostics{
		Catalog:  catalog,
		Snapshot: snap,
		Services: svc,
	})
	MountStatic(app, slot)

	fields := logging.BaseFields("startup", opts.ConfigPath)
	fields["modules"] = len(snap.Modules)
	fields["routed_units"] = snap.RoutedUnits
	fields["providers"] = snap.Providers
	opts.Logger.WithFields(fields).Info("模块加载完成")

	return &Host{
		App:      app,
		Services: svc,
		Snapshot: snap,
		Catalog:  catalog,
		Static:   slot,
		cfg:      opts.Config,
		logger:   opts.Logger,
	}, nil
}

// Listen 在配置的端口上启动 Fiber 服务，阻塞直至服务退出。
func (h *Host) Listen() error {
	port := h.cfg.Global.ListenPort
	h.logger.WithFields(logrus.Fields{
		"action": "listen",
		"port":   port,
	}).Info("Fiber 服务启动")

	return h.App.Listen(fmt.Sprintf(":%d", port))
}
