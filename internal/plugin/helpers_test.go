package plugin

import (
	"errors"
	"testing"

	"github.com/gofiber/fiber/v3"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"github.com/any-hub/modhost/internal/services"
	"github.com/any-hub/modhost/internal/static"
	"github.com/any-hub/modhost/internal/unit"
)

// recordingModule 记录钩子调用，并可按需返回错误。
type recordingModule struct {
	name          string
	calls         *[]string
	servicesErr   error
	configureErr  error
	seenSetting   string
	registerRoute bool
}

func (m *recordingModule) ConfigureServices(svc *services.Collection, cfg *viper.Viper, logger logrus.FieldLogger) error {
	*m.calls = append(*m.calls, m.name+".services")
	m.seenSetting = cfg.GetString("Greeting")
	if m.servicesErr != nil {
		return m.servicesErr
	}
	return svc.AddOwned(m.name+".service", m.name, m.name)
}

func (m *recordingModule) Configure(rt *Runtime) error {
	*m.calls = append(*m.calls, m.name+".configure")
	if m.registerRoute && rt.App != nil {
		rt.App.Get("/"+m.name, func(c fiber.Ctx) error { return c.SendString(m.name) })
	}
	return m.configureErr
}

// fixture 组装隔离的目录、解析器与 Loader。
type fixture struct {
	catalog *unit.Catalog
	loader  *Loader
	svc     *services.Collection
	calls   []string
}

func newFixture(t *testing.T, units ...*unit.Unit) *fixture {
	t.Helper()
	f := &fixture{catalog: unit.NewCatalog(), svc: services.New()}
	for _, u := range units {
		if err := f.catalog.Add(u); err != nil {
			t.Fatalf("add unit %s failed: %v", u.Name, err)
		}
	}
	resolver := unit.NewResolver(unit.ResolverOptions{
		Catalog: f.catalog,
		Opener: unit.OpenerFunc(func(path string) (*unit.Unit, error) {
			return nil, errors.New("no plugin files in tests")
		}),
	})
	loader, err := NewLoader(LoaderOptions{Resolver: resolver})
	if err != nil {
		t.Fatalf("NewLoader failed: %v", err)
	}
	f.loader = loader
	return f
}

// moduleUnit 构造带约定入口 <name>.Module 的单元。
func (f *fixture) moduleUnit(name string, mod *recordingModule) *unit.Unit {
	mod.name = name
	mod.calls = &f.calls
	return &unit.Unit{
		Name: name,
		EntryPoints: map[string]unit.Factory{
			name + ".Module": func() (any, error) { return mod, nil },
		},
	}
}

func (f *fixture) runtime() *Runtime {
	return &Runtime{App: fiber.New(), Services: f.svc, Static: static.NewSlot(nil)}
}

// mapSource 以预置的 viper 段实现 ConfigSource。
type mapSource map[int]*viper.Viper

func (m mapSource) ModuleSection(index int) *viper.Viper {
	return m[index]
}

func enabled(locator string) Descriptor {
	return Descriptor{Enabled: true, Locator: locator}
}

func (f *fixture) add(t *testing.T, u *unit.Unit) *unit.Unit {
	t.Helper()
	if err := f.catalog.Add(u); err != nil {
		t.Fatalf("add unit %s failed: %v", u.Name, err)
	}
	return u
}
