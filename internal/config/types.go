package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Duration 提供更灵活的反序列化能力，同时兼容纯秒整数与 Go Duration 字符串。
type Duration time.Duration

// UnmarshalText 使 Viper 可以识别诸如 "30s"、"5m" 或纯数字秒值等配置写法。
func (d *Duration) UnmarshalText(text []byte) error {
	raw := strings.TrimSpace(string(text))
	if raw == "" {
		*d = Duration(0)
		return nil
	}

	if parsed, err := time.ParseDuration(raw); err == nil {
		*d = Duration(parsed)
		return nil
	}

	if intVal, err := strconv.ParseInt(raw, 10, 64); err == nil {
		*d = Duration(time.Duration(intVal) * time.Second)
		return nil
	}

	return fmt.Errorf("invalid duration value: %s", raw)
}

// DurationValue 返回真实的 time.Duration，便于调用方计算。
func (d Duration) DurationValue() time.Duration {
	return time.Duration(d)
}

// GlobalConfig 描述宿主进程本身的运行参数。
type GlobalConfig struct {
	ListenPort    int    `mapstructure:"ListenPort"`
	LogLevel      string `mapstructure:"LogLevel"`
	LogFilePath   string `mapstructure:"LogFilePath"`
	LogMaxSize    int    `mapstructure:"LogMaxSize"`
	LogMaxBackups int    `mapstructure:"LogMaxBackups"`
	LogCompress   bool   `mapstructure:"LogCompress"`
	// WebRoot 是宿主自身静态文件目录，在资源提供者链中优先级最低。
	WebRoot string `mapstructure:"WebRoot"`
	// ProbePaths 是按名称解析单元时依次查找 <名称>.so 的目录。
	ProbePaths        []string `mapstructure:"ProbePaths"`
	ModulesSection    string   `mapstructure:"ModulesSection"`
	HTTPClientTimeout Duration `mapstructure:"HTTPClientTimeout"`
	ShellTitle        string   `mapstructure:"ShellTitle"`
}

// ModuleConfig 对应模块列表中的一个条目。
type ModuleConfig struct {
	IsEnabled          bool     `mapstructure:"IsEnabled"`
	AssemblyNameOrPath string   `mapstructure:"AssemblyNameOrPath"`
	IsRouted           bool     `mapstructure:"IsRouted"`
	StyleSheets        []string `mapstructure:"StyleSheets"`
	Scripts            []string `mapstructure:"Scripts"`
	EntryPoint         string   `mapstructure:"EntryPoint"`
}

// Config 是 TOML 文件映射的整体结构。
type Config struct {
	Global  GlobalConfig   `mapstructure:",squash"`
	Modules []ModuleConfig `mapstructure:"-"`

	// sections 保存每个模块条目的原始键值，供模块读取自己的配置段。
	sections []map[string]interface{}
}

// ModuleSection 返回第 index 个模块条目的独立配置视图；越界时返回空视图。
func (c *Config) ModuleSection(index int) *viper.Viper {
	v := viper.New()
	if c == nil || index < 0 || index >= len(c.sections) {
		return v
	}
	if err := v.MergeConfigMap(c.sections[index]); err != nil {
		return viper.New()
	}
	return v
}

// EnabledModules 统计启用的模块数量，用于启动日志。
func (c *Config) EnabledModules() int {
	n := 0
	for _, m := range c.Modules {
		if m.IsEnabled {
			n++
		}
	}
	return n
}
