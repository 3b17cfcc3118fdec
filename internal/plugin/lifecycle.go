package plugin

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"github.com/any-hub/modhost/internal/logging"
	"github.com/any-hub/modhost/internal/services"
	"github.com/any-hub/modhost/internal/unit"
)

// discover 定位入口工厂。显式入口缺失时报错；按约定查找 <Unit>.Module 缺失时返回 ok=false。
func discover(u *unit.Unit, d Descriptor) (factory unit.Factory, typeName string, ok bool, err error) {
	if explicit := strings.TrimSpace(d.EntryPoint); explicit != "" {
		f, found := u.EntryPoint(explicit)
		if !found {
			return nil, explicit, false, &Error{
				Kind:     KindEntryPointNotFound,
				Locator:  d.Locator,
				Unit:     u.Name,
				TypeName: explicit,
			}
		}
		return f, explicit, true, nil
	}

	typeName = u.TypeName(unit.ConventionalEntryPoint)
	f, found := u.EntryPoint(typeName)
	if !found {
		return nil, typeName, false, nil
	}
	return f, typeName, true, nil
}

// instantiate 调用零参数工厂；工厂错误、panic 或返回值未实现 Module 均视为构造失败。
func instantiate(u *unit.Unit, d Descriptor, factory unit.Factory, typeName string) (inst *Instance, err error) {
	fail := func(cause error) error {
		return &Error{Kind: KindModuleConstructionFailed, Locator: d.Locator, Unit: u.Name, TypeName: typeName, Err: cause}
	}
	defer func() {
		if r := recover(); r != nil {
			inst = nil
			err = fail(fmt.Errorf("panic: %v", r))
		}
	}()

	value, ferr := factory()
	if ferr != nil {
		return nil, fail(ferr)
	}
	mod, ok := value.(Module)
	if !ok {
		return nil, fail(fmt.Errorf("%T 未实现 plugin.Module", value))
	}
	if isNil(mod) {
		return nil, fail(fmt.Errorf("工厂返回了 nil %T", value))
	}
	return &Instance{
		Descriptor: d,
		Unit:       u,
		TypeName:   typeName,
		Module:     mod,
		State:      StateInstantiated,
	}, nil
}

// configureServices 调用注册阶段钩子，错误与 panic 统一包装为 module_configuration_failed。
func configureServices(inst *Instance, svc *services.Collection, cfg *viper.Viper, logger logrus.FieldLogger) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
		if err != nil {
			inst.State = StateFailed
			err = &Error{
				Kind:     KindModuleConfigurationFailed,
				Locator:  inst.Descriptor.Locator,
				Unit:     inst.Unit.Name,
				TypeName: inst.TypeName,
				Err:      err,
			}
			return
		}
		inst.State = StateServicesConfigured
	}()

	scoped := logger.WithFields(logging.ModuleFields(inst.Descriptor.Locator, inst.Unit.Name, inst.TypeName))
	return inst.Module.ConfigureServices(svc, cfg, scoped)
}

// activate 调用激活阶段钩子，单个模块的失败不会影响其它模块。
func activate(inst *Instance, rt *Runtime) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
		if err != nil {
			inst.State = StateFailed
			err = &Error{
				Kind:     KindModuleActivationFailed,
				Locator:  inst.Descriptor.Locator,
				Unit:     inst.Unit.Name,
				TypeName: inst.TypeName,
				Err:      err,
			}
			return
		}
		inst.State = StateActivated
	}()

	return inst.Module.Configure(rt)
}

func summarize(inst *Instance, err error) Summary {
	return Summary{
		Locator:  inst.Descriptor.Locator,
		Unit:     inst.Unit.FullName(),
		TypeName: inst.TypeName,
		State:    inst.State,
		Err:      err,
	}
}

// isNil 同时识别接口为 nil 与包装了 nil 指针的情况。
func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan, reflect.Interface:
		return rv.IsNil()
	}
	return false
}
