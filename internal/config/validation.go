package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
)

// Validate 针对语义级别做进一步校验，防止非法配置启动服务。
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("配置为空")
	}

	g := c.Global
	if g.ListenPort <= 0 || g.ListenPort > 65535 {
		return newFieldError("Global.ListenPort", "必须在 1-65535")
	}
	if _, err := logrus.ParseLevel(g.LogLevel); err != nil {
		return newFieldError("Global.LogLevel", "仅支持 trace/debug/info/warn/error/fatal/panic")
	}
	if g.LogMaxSize < 0 || g.LogMaxBackups < 0 {
		return newFieldError("Global.LogMaxSize/LogMaxBackups", "不能为负数")
	}
	if g.HTTPClientTimeout.DurationValue() <= 0 {
		return newFieldError("Global.HTTPClientTimeout", "必须大于 0")
	}
	if strings.ContainsAny(g.ModulesSection, " \t") || strings.HasPrefix(g.ModulesSection, ".") || strings.HasSuffix(g.ModulesSection, ".") {
		return newFieldError("Global.ModulesSection", "必须是以点分隔的表路径，如 Hosting.Modules")
	}
	for i, probe := range g.ProbePaths {
		if strings.TrimSpace(probe) == "" {
			return newFieldError(fmt.Sprintf("Global.ProbePaths[%d]", i), "不能为空")
		}
	}

	for i := range c.Modules {
		m := &c.Modules[i]
		m.AssemblyNameOrPath = strings.TrimSpace(m.AssemblyNameOrPath)
		m.EntryPoint = strings.TrimSpace(m.EntryPoint)
		if m.AssemblyNameOrPath == "" {
			return newFieldError(moduleField(g.ModulesSection, i, "AssemblyNameOrPath"), "不能为空")
		}
	}

	return nil
}
