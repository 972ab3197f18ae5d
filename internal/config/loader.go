package config

import (
	"fmt"
	"reflect"
	"strconv"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

// envBindings 将配置键映射到约定的环境变量名。环境变量始终覆盖文件值，
// 使服务可以在无配置文件的容器环境中运行。
var envBindings = map[string]string{
	"ListenPort":      "LISTEN_PORT",
	"LogLevel":        "LOG_LEVEL",
	"LogFilePath":     "LOG_FILE_PATH",
	"GithubOwner":     "GITHUB_OWNER",
	"GithubRepo":      "GITHUB_REPO",
	"GithubBranch":    "GITHUB_BRANCH",
	"ManifestPath":    "GITHUB_PUBSPEC_PATH",
	"GithubToken":     "GITHUB_TOKEN",
	"GithubAPIBase":   "GITHUB_API_BASE",
	"CacheTTL":        "CACHE_TTL_SECONDS",
	"UpstreamTimeout": "UPSTREAM_TIMEOUT",
}

// Load 合并 TOML 配置文件（可选）与环境变量，同时注入默认值与校验逻辑。
// path 为空时仅依赖环境变量与默认值。
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("绑定环境变量失败: %w", err)
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("读取配置失败: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, viper.DecodeHook(durationDecodeHook())); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}

	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
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
	v.SetDefault("GithubBranch", "main")
	v.SetDefault("ManifestPath", "pubspec.yaml")
	v.SetDefault("GithubAPIBase", "https://api.github.com")
	v.SetDefault("CacheTTL", 60)
	v.SetDefault("UpstreamTimeout", "15s")
}

func applyDefaults(cfg *Config) {
	if cfg.ListenPort == 0 {
		cfg.ListenPort = 5000
	}
	if cfg.GithubBranch == "" {
		cfg.GithubBranch = "main"
	}
	if cfg.ManifestPath == "" {
		cfg.ManifestPath = "pubspec.yaml"
	}
	if cfg.GithubAPIBase == "" {
		cfg.GithubAPIBase = "https://api.github.com"
	}
	if cfg.CacheTTL.DurationValue() == 0 {
		cfg.CacheTTL = Duration(60 * time.Second)
	}
	if cfg.UpstreamTimeout.DurationValue() == 0 {
		cfg.UpstreamTimeout = Duration(15 * time.Second)
	}
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
