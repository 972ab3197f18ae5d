package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/version-check/version-check/internal/cache"
	"github.com/version-check/version-check/internal/config"
	"github.com/version-check/version-check/internal/github"
	"github.com/version-check/version-check/internal/logging"
	"github.com/version-check/version-check/internal/server"
	"github.com/version-check/version-check/internal/version"
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

	logger, err := logging.InitLogger(*cfg)
	if err != nil {
		fmt.Fprintf(stdErr, "初始化日志失败: %v\n", err)
		return 1
	}

	if opts.checkOnly {
		fields := logging.BaseFields("check_config", opts.configPath)
		fields["repo"] = cfg.RepoSlug()
		fields["auth_mode"] = cfg.AuthMode()
		fields["result"] = "ok"
		logger.WithFields(fields).Info("配置校验通过")
		return 0
	}

	// 启动遵循“配置 → HTTP 客户端 → 清单客户端 → 版本缓存 → Fiber server”
	// 顺序，保证所有请求共享同一个缓存实例与上游连接池。
	httpClient := server.NewUpstreamClient(cfg)
	fetcher := github.NewClient(httpClient, cfg)
	versionCache := cache.New(fetcher, cfg.CacheTTL.DurationValue(), logger)

	fields := logging.BaseFields("startup", opts.configPath)
	fields["repo"] = cfg.RepoSlug()
	fields["branch"] = cfg.GithubBranch
	fields["manifest_path"] = cfg.ManifestPath
	fields["listen_port"] = cfg.ListenPort
	fields["cache_ttl"] = cfg.CacheTTL.DurationValue().String()
	fields["auth_mode"] = cfg.AuthMode()
	fields["version"] = version.Full()
	logger.WithFields(fields).Info("配置加载完成")

	if err := startHTTPServer(cfg, versionCache, logger); err != nil {
		fmt.Fprintf(stdErr, "HTTP 服务启动失败: %v\n", err)
		return 1
	}
	return 0
}

// parseCLIFlags 解析 CLI 参数，并结合环境变量计算最终的配置路径。
// 配置文件是可选的：缺省时完全依赖环境变量与默认值运行。
func parseCLIFlags(args []string) (cliOptions, error) {
	fs := flag.NewFlagSet("version-check", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	var (
		configFlag string
		checkOnly  bool
		showVer    bool
	)

	fs.StringVar(&configFlag, "config", "", "配置文件路径（可选，可被 VERSION_CHECK_CONFIG 覆盖）")
	fs.BoolVar(&checkOnly, "check-config", false, "仅校验配置后退出")
	fs.BoolVar(&showVer, "version", false, "显示版本信息")

	if err := fs.Parse(args); err != nil {
		return cliOptions{}, fmt.Errorf("解析参数失败: %w", err)
	}

	path := os.Getenv("VERSION_CHECK_CONFIG")
	if configFlag != "" {
		path = configFlag
	}

	return cliOptions{
		configPath:  path,
		checkOnly:   checkOnly,
		showVersion: showVer,
	}, nil
}

func startHTTPServer(cfg *config.Config, versionCache *cache.VersionCache, logger *logrus.Logger) error {
	app, err := server.NewApp(server.AppOptions{
		Logger: logger,
		Cache:  versionCache,
	})
	if err != nil {
		return err
	}

	logger.WithFields(logrus.Fields{
		"action": "listen",
		"port":   cfg.ListenPort,
	}).Info("Fiber 服务启动")

	return app.Listen(fmt.Sprintf(":%d", cfg.ListenPort))
}
