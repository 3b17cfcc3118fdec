package config

import (
	"fmt"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

// Load 读取并解析 TOML 配置文件，同时注入默认值与校验逻辑。
func Load(path string) (*Config, error) {
	if path == "" {
		path = "config.toml"
	}

	v := viper.New()
	v.SetConfigFile(path)
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("读取配置失败: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, viper.DecodeHook(durationDecodeHook())); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}
	applyGlobalDefaults(&cfg.Global)

	if err := decodeModules(v, &cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if err := absolutizePaths(&cfg.Global, filepath.Dir(path)); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ListenPort", 5000)
	v.SetDefault("LogLevel", "info")
	v.SetDefault("LogFilePath", "")
	v.SetDefault("LogMaxSize", 100)
	v.SetDefault("LogMaxBackups", 10)
	v.SetDefault("LogCompress", true)
	v.SetDefault("WebRoot", "./wwwroot")
	v.SetDefault("ProbePaths", []string{})
	v.SetDefault("ModulesSection", "Modules")
	v.SetDefault("HTTPClientTimeout", "30s")
	v.SetDefault("ShellTitle", "modhost")
}

func applyGlobalDefaults(g *GlobalConfig) {
	if g.ListenPort == 0 {
		g.ListenPort = 5000
	}
	if strings.TrimSpace(g.ModulesSection) == "" {
		g.ModulesSection = "Modules"
	}
	if g.HTTPClientTimeout.DurationValue() == 0 {
		g.HTTPClientTimeout = Duration(30 * time.Second)
	}
	if strings.TrimSpace(g.ShellTitle) == "" {
		g.ShellTitle = "modhost"
	}
}

// decodeModules 逐条解码模块列表并保留原始键值，模块自定义的额外字段只对该模块可见。
func decodeModules(v *viper.Viper, cfg *Config) error {
	section := cfg.Global.ModulesSection
	entries, err := rawEntries(v.Get(section))
	if err != nil {
		return newFieldError(section, err.Error())
	}

	cfg.Modules = make([]ModuleConfig, 0, len(entries))
	cfg.sections = make([]map[string]interface{}, 0, len(entries))
	for idx, entry := range entries {
		module := ModuleConfig{IsEnabled: true}
		decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
			Result:           &module,
			WeaklyTypedInput: true,
		})
		if err != nil {
			return err
		}
		if err := decoder.Decode(entry); err != nil {
			return fmt.Errorf("%s: %w", moduleField(section, idx, ""), err)
		}
		cfg.Modules = append(cfg.Modules, module)
		cfg.sections = append(cfg.sections, entry)
	}
	return nil
}

func rawEntries(raw interface{}) ([]map[string]interface{}, error) {
	switch list := raw.(type) {
	case nil:
		return nil, nil
	case []map[string]interface{}:
		return list, nil
	case []interface{}:
		out := make([]map[string]interface{}, 0, len(list))
		for idx, item := range list {
			m, ok := item.(map[string]interface{})
			if !ok {
				return nil, fmt.Errorf("第 %d 个条目必须是表", idx)
			}
			out = append(out, m)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("必须是表数组，实际为 %T", raw)
	}
}

// absolutizePaths 将相对路径解析为相对配置文件所在目录的绝对路径。
func absolutizePaths(g *GlobalConfig, baseDir string) error {
	resolve := func(p string) (string, error) {
		if p == "" || filepath.IsAbs(p) {
			return p, nil
		}
		return filepath.Abs(filepath.Join(baseDir, p))
	}

	webRoot, err := resolve(g.WebRoot)
	if err != nil {
		return fmt.Errorf("无法解析 WebRoot: %w", err)
	}
	g.WebRoot = webRoot

	for i, probe := range g.ProbePaths {
		abs, err := resolve(strings.TrimSpace(probe))
		if err != nil {
			return fmt.Errorf("无法解析 ProbePaths[%d]: %w", i, err)
		}
		g.ProbePaths[i] = abs
	}
	return nil
}

func durationDecodeHook() mapstructure.DecodeHookFunc {
	targetType := reflect.TypeOf(Duration(0))

	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != targetType {
			return data, nil
		}

		switch v := data.(type) {
		case string:
			if v == "" {
				return Duration(0), nil
			}
			if parsed, err := time.ParseDuration(v); err == nil {
				return Duration(parsed), nil
			}
			if seconds, err := strconv.ParseFloat(v, 64); err == nil {
				return Duration(time.Duration(seconds * float64(time.Second))), nil
			}
			return nil, fmt.Errorf("无法解析 Duration 字段: %s", v)
		case int:
			return Duration(time.Duration(v) * time.Second), nil
		case int64:
			return Duration(time.Duration(v) * time.Second), nil
		case float64:
			return Duration(time.Duration(v * float64(time.Second))), nil
		case time.Duration:
			return Duration(v), nil
		case Duration:
			return v, nil
		default:
			return nil, fmt.Errorf("不支持的 Duration 类型: %T", v)
		}
	}
}
