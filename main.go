package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/any-hub/modhost/internal/config"
	"github.com/any-hub/modhost/internal/logging"
	"github.com/any-hub/modhost/internal/server"
	"github.com/any-hub/modhost/internal/unit"
	"github.com/any-hub/modhost/internal/version"

	// 随宿主编译的单元在 init 中登记到进程级目录
	_ "github.com/any-hub/modhost/internal/modules/hello"
	_ "github.com/any-hub/modhost/internal/modules/theme"
)

// cliOptions 汇总 CLI 标志解析后的结果，便于在测试中注入。
type cliOptions struct {
	configPath  string
	checkOnly   bool
	showVersion bool
}

var (
	stdOut io.Writer = os.Stdout
	stdErr io.Writer = os.Stderr
)

func main() {
	opts, err := parseCLIFlags(os.Args[1:])
	if err != nil {
		fmt.Fprintln(stdErr, err.Error())
		os.Exit(2)
	}
	os.Exit(run(opts))
}

// run 根据解析到的 CLI 选项执行业务流程，并返回退出码，方便测试。
func run(opts cliOptions) int {
	if opts.showVersion {
		printVersion()
		return 0
	}

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		fmt.Fprintf(stdErr, "加载配置失败: %v\n", err)
		return 1
	}

	logger, err := logging.InitLogger(cfg.Global)
	if err != nil {
		fmt.Fprintf(stdErr, "初始化日志失败: %v\n", err)
		return 1
	}

	if opts.checkOnly {
		return checkConfig(cfg, opts.configPath, logger)
	}

	fields := logging.BaseFields("startup", opts.configPath)
	fields["modules"] = len(cfg.Modules)
	fields["enabled_modules"] = cfg.EnabledModules()
	fields["listen_port"] = cfg.Global.ListenPort
	fields["version"] = version.Full()
	logger.WithFields(fields).Info("配置加载完成")

	// 启动顺序为“配置 → 模块注册 → Fiber app → 模块激活 → 监听”，任一步失败都不会开始监听
	host, err := server.NewHost(server.HostOptions{
		Config:     cfg,
		ConfigPath: opts.configPath,
		Logger:     logger,
	})
	if err != nil {
		logger.WithFields(logging.BaseFields("startup", opts.configPath)).WithError(err).Error("宿主启动失败")
		fmt.Fprintf(stdErr, "宿主启动失败: %v\n", err)
		return 1
	}

	if err := host.Listen(); err != nil {
		fmt.Fprintf(stdErr, "HTTP 服务启动失败: %v\n", err)
		return 1
	}
	return 0
}

// checkConfig 校验配置并确认每个启用模块的定位符都能解析到单元。
// 不调用模块的生命周期钩子，但打开 .so 单元会执行其包级 init。
func checkConfig(cfg *config.Config, configPath string, logger *logrus.Logger) int {
	resolver := unit.NewResolver(unit.ResolverOptions{
		Catalog:    unit.Default(),
		Opener:     unit.PluginOpener{},
		ProbePaths: cfg.Global.ProbePaths,
		Logger:     logger,
	})

	failed := 0
	for i, m := range cfg.Modules {
		if !m.IsEnabled {
			continue
		}
		if _, err := resolver.Resolve(m.AssemblyNameOrPath); err != nil {
			failed++
			logger.WithFields(logrus.Fields{
				"action":  "check_config",
				"index":   i,
				"locator": m.AssemblyNameOrPath,
			}).WithError(err).Error("模块无法解析")
		}
	}

	fields := logging.BaseFields("check_config", configPath)
	fields["modules"] = len(cfg.Modules)
	fields["enabled_modules"] = cfg.EnabledModules()
	if failed > 0 {
		fields["result"] = "failed"
		fields["unresolved"] = failed
		logger.WithFields(fields).Error("配置校验失败")
		fmt.Fprintf(stdErr, "%d 个模块无法解析\n", failed)
		return 1
	}
	fields["result"] = "ok"
	logger.WithFields(fields).Info("配置校验通过")
	return 0
}

// parseCLIFlags 解析 CLI 参数，并结合环境变量计算最终的配置路径。
func parseCLIFlags(args []string) (cliOptions, error) {
	fs := flag.NewFlagSet("modhost", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	var (
		configFlag string
		checkOnly  bool
		showVer    bool
	)

	fs.StringVar(&configFlag, "config", "", "配置文件路径（默认 ./config.toml，可被 MODHOST_CONFIG 覆盖）")
	fs.BoolVar(&checkOnly, "check-config", false, "仅校验配置后退出")
	fs.BoolVar(&showVer, "version", false, "显示版本信息")

	if err := fs.Parse(args); err != nil {
		return cliOptions{}, fmt.Errorf("解析参数失败: %w", err)
	}

	path := os.Getenv("MODHOST_CONFIG")
	if configFlag != "" {
		path = configFlag
	}
	if path == "" {
		path = "config.toml"
	}

	return cliOptions{
		configPath:  path,
		checkOnly:   checkOnly,
		showVersion: showVer,
	}, nil
}
