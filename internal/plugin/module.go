package plugin

import (
	"github.com/gofiber/fiber/v3"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"github.com/any-hub/modhost/internal/services"
	"github.com/any-hub/modhost/internal/static"
	"github.com/any-hub/modhost/internal/unit"
)

// Module 是模块作者需要实现的两阶段契约。
type Module interface {
	// ConfigureServices 在注册阶段调用一次。cfg 仅包含该模块自身的配置段。
	ConfigureServices(svc *services.Collection, cfg *viper.Viper, logger logrus.FieldLogger) error
	// Configure 在激活阶段调用一次，可向 Fiber 应用注册路由与中间件。
	Configure(rt *Runtime) error
}

// Runtime 是激活阶段交给模块的运行时句柄。
type Runtime struct {
	App      *fiber.App
	Services *services.Collection
	Static   *static.Slot
	Logger   logrus.FieldLogger
}

// Descriptor 描述配置中的一个模块条目。
type Descriptor struct {
	// Index 是条目在模块列表中的位置，用于选取该模块专属的配置段。
	Index       int
	Enabled     bool
	Locator     string
	Routed      bool
	StyleSheets []string
	Scripts     []string
	EntryPoint  string
}

// State 描述模块实例所处的生命周期阶段。
type State int

const (
	StateDiscovered State = iota
	StateInstantiated
	StateServicesConfigured
	StateActivated
	StateReleased
	StateFailed
)

var stateNames = map[State]string{
	StateDiscovered:         "discovered",
	StateInstantiated:       "instantiated",
	StateServicesConfigured: "services_configured",
	StateActivated:          "activated",
	StateReleased:           "released",
	StateFailed:             "failed",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "unknown"
}

// Instance 是由单元入口构造出的模块实例。
type Instance struct {
	Descriptor Descriptor
	Unit       *unit.Unit
	TypeName   string
	Module     Module
	State      State
}

// Summary 是实例在激活结束后保留下来的只读信息，不再持有模块对象。
type Summary struct {
	Locator  string
	Unit     string
	TypeName string
	State    State
	Err      error
}
