package plugin

import (
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"github.com/any-hub/modhost/internal/logging"
	"github.com/any-hub/modhost/internal/services"
	"github.com/any-hub/modhost/internal/static"
	"github.com/any-hub/modhost/internal/unit"
)

// ConfigSource 为每个模块提供只属于它自己的配置段。
type ConfigSource interface {
	ModuleSection(index int) *viper.Viper
}

// LoaderOptions 控制 Loader 的依赖注入。
type LoaderOptions struct {
	Resolver *unit.Resolver
	// Registry 是两阶段之间的交接状态，为空时自动创建。
	Registry *Registry
	Logger   logrus.FieldLogger
}

// Loader 编排注册阶段与激活阶段。
type Loader struct {
	resolver *unit.Resolver
	walker   *unit.Walker
	registry *Registry
	logger   logrus.FieldLogger
}

// Snapshot 保存激活结束时的渲染结果与模块摘要，交接状态清空后宿主仍可使用。
type Snapshot struct {
	StyleSheets     string
	Scripts         string
	External        string
	StyleSheetLinks []string
	ScriptLinks     []string
	ExternalLinks   []string
	RoutedUnits     []string
	Providers       []string
	Modules         []Summary
}

// NewLoader 构建 Loader。
func NewLoader(opts LoaderOptions) (*Loader, error) {
	if opts.Resolver == nil {
		return nil, errors.New("unit resolver is required")
	}
	l := &Loader{
		resolver: opts.Resolver,
		walker:   unit.NewWalker(opts.Resolver),
		registry: opts.Registry,
		logger:   opts.Logger,
	}
	if l.registry == nil {
		l.registry = NewRegistry()
	}
	if l.logger == nil {
		l.logger = logging.Silent()
	}
	return l, nil
}

// Registry 返回交接状态。
func (l *Loader) Registry() *Registry {
	return l.registry
}

// Register 执行注册阶段：解析单元、加载依赖、登记资源并调用 ConfigureServices。
// 任一模块失败立即中止整个阶段。
func (l *Loader) Register(modules []Descriptor, svc *services.Collection, cfg ConfigSource) error {
	l.registry.Clear()
	if svc == nil {
		return errors.New("service collection is required")
	}

	for _, d := range modules {
		if !d.Enabled {
			l.logger.WithFields(logrus.Fields{
				"action":  "module_register",
				"locator": d.Locator,
			}).Info("模块已禁用，跳过")
			continue
		}
		if err := l.registerModule(d, svc, cfg); err != nil {
			l.logger.WithFields(logrus.Fields{
				"action":  "module_register",
				"locator": d.Locator,
			}).WithError(err).Error("模块注册失败")
			return err
		}
	}
	return nil
}

func (l *Loader) registerModule(d Descriptor, svc *services.Collection, cfg ConfigSource) error {
	u, err := l.resolver.Resolve(d.Locator)
	if err != nil {
		return newError(KindUnitNotFound, d, err)
	}
	if err := l.walker.Walk(u); err != nil {
		e := newError(KindDependencyLoadFailed, d, err)
		e.Unit = u.FullName()
		return e
	}

	if d.Routed {
		l.registry.AddRoutedUnit(u)
	}

	available, err := u.ManifestNames()
	if err != nil {
		if !errors.Is(err, unit.ErrNoManifest) {
			return fmt.Errorf("读取单元 %s 的资源清单失败: %w", u.Name, err)
		}
		available = map[string]struct{}{}
	}
	if err := registerResources(l.registry, u, available, d); err != nil {
		return err
	}

	factory, typeName, ok, err := discover(u, d)
	if err != nil {
		return err
	}
	if !ok {
		l.logger.WithFields(logging.ModuleFields(d.Locator, u.FullName(), typeName)).
			WithField("action", "module_register").
			Debug("单元未提供模块入口，仅贡献资源/路由")
		return nil
	}

	inst, err := instantiate(u, d, factory, typeName)
	if err != nil {
		return err
	}

	section := viper.New()
	if cfg != nil {
		if scoped := cfg.ModuleSection(d.Index); scoped != nil {
			section = scoped
		}
	}
	if err := configureServices(inst, svc, section, l.logger); err != nil {
		return err
	}
	l.registry.addPending(inst)

	l.logger.WithFields(logging.ModuleFields(d.Locator, u.FullName(), typeName)).
		WithField("action", "module_register").
		Info("模块服务注册完成")
	return nil
}

// Activate 执行激活阶段：重建静态资源提供者链、挂载路由单元并按注册顺序调用 Configure。
// 各模块的 Configure 失败被独立收集，全部执行完后以 ActivationErrors 返回。
// 无论成功与否，交接状态都会在返回前清空。
func (l *Loader) Activate(rt *Runtime, modules []Descriptor) (*Snapshot, error) {
	defer l.registry.Clear()
	if rt == nil {
		return nil, errors.New("runtime is required")
	}
	if rt.Logger == nil {
		rt.Logger = l.logger
	}

	var host static.Provider
	if rt.Static != nil {
		host = rt.Static.Current()
	}
	providers, err := l.buildProviders(host, modules)
	if err != nil {
		return nil, err
	}
	composite := static.NewComposite(providers...)
	if rt.Static != nil {
		rt.Static.Replace(composite)
	}

	snapshot := &Snapshot{
		StyleSheets:     l.registry.RenderStyleSheets(),
		Scripts:         l.registry.RenderScripts(),
		External:        l.registry.RenderExternal(),
		StyleSheetLinks: l.registry.StyleSheetLinks(),
		ScriptLinks:     l.registry.ScriptLinks(),
		ExternalLinks:   l.registry.ExternalLinks(),
		Providers:       composite.Sources(),
	}

	var errs ActivationErrors
	for _, u := range l.registry.RoutedUnits() {
		snapshot.RoutedUnits = append(snapshot.RoutedUnits, u.Name)
		if err := mountRoutes(rt, u); err != nil {
			errs = append(errs, err)
		}
	}

	pending := l.registry.Pending()
	for _, inst := range pending {
		fields := logging.ModuleFields(inst.Descriptor.Locator, inst.Unit.FullName(), inst.TypeName)
		err := activate(inst, rt)
		if err != nil {
			errs = append(errs, err)
			l.logger.WithFields(fields).WithField("action", "module_activate").WithError(err).Error("模块激活失败")
		} else {
			l.logger.WithFields(fields).WithField("action", "module_activate").Info("模块激活完成")
		}
		snapshot.Modules = append(snapshot.Modules, summarize(inst, err))
	}

	// 接线已完成，释放实例，避免模块持有的资源随进程常驻
	for _, inst := range pending {
		if inst.State == StateActivated {
			inst.State = StateReleased
		}
		inst.Module = nil
	}
	l.registry.clearPending()

	if len(errs) > 0 {
		return snapshot, errs
	}
	return snapshot, nil
}

// mountRoutes 把路由单元的 Routes 挂载到 /<Unit> 分组下。
func mountRoutes(rt *Runtime, u *unit.Unit) (err error) {
	if u.Routes == nil || rt.App == nil {
		rt.Logger.WithFields(logrus.Fields{
			"action": "route_mount",
			"unit":   u.FullName(),
		}).Debug("单元未声明路由，跳过挂载")
		return nil
	}
	defer func() {
		if r := recover(); r != nil {
			err = &Error{Kind: KindModuleActivationFailed, Unit: u.Name, TypeName: u.Name + ".Routes", Err: fmt.Errorf("panic: %v", r)}
		}
	}()
	u.Routes(rt.App.Group("/" + u.Name))
	rt.Logger.WithFields(logrus.Fields{
		"action": "route_mount",
		"unit":   u.FullName(),
		"prefix": "/" + u.Name,
	}).Info("单元路由已挂载")
	return nil
}
