package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"
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

	if intVal, err := parseInt(raw); err == nil {
		*d = Duration(time.Duration(intVal) * time.Second)
		return nil
	}

	return fmt.Errorf("invalid duration value: %s", raw)
}

// DurationValue 返回真实的 time.Duration，便于调用方计算。
func (d Duration) DurationValue() time.Duration {
	return time.Duration(d)
}

// parseInt 支持十进制或 0x 前缀的十六进制字符串解析。
func parseInt(value string) (int64, error) {
	if strings.HasPrefix(value, "0x") || strings.HasPrefix(value, "0X") {
		return strconv.ParseInt(value, 0, 64)
	}
	return strconv.ParseInt(value, 10, 64)
}

// Config 描述服务的全部运行时参数，由配置文件与环境变量合并产生。
// 核心组件只接受注入的 Config，自身不读取任何环境变量。
type Config struct {
	ListenPort    int    `mapstructure:"ListenPort"`
	LogLevel      string `mapstructure:"LogLevel"`
	LogFilePath   string `mapstructure:"LogFilePath"`
	LogMaxSize    int    `mapstructure:"LogMaxSize"`
	LogMaxBackups int    `mapstructure:"LogMaxBackups"`
	LogCompress   bool   `mapstructure:"LogCompress"`

	GithubOwner   string `mapstructure:"GithubOwner"`
	GithubRepo    string `mapstructure:"GithubRepo"`
	GithubBranch  string `mapstructure:"GithubBranch"`
	ManifestPath  string `mapstructure:"ManifestPath"`
	GithubToken   string `mapstructure:"GithubToken"`
	GithubAPIBase string `mapstructure:"GithubAPIBase"`

	CacheTTL        Duration `mapstructure:"CacheTTL"`
	UpstreamTimeout Duration `mapstructure:"UpstreamTimeout"`
}

// HasToken 表示是否配置了 GitHub 访问令牌（私有仓库或更高速率限制时需要）。
func (c Config) HasToken() bool {
	return strings.TrimSpace(c.GithubToken) != ""
}

// AuthMode 输出 `credentialed` 或 `anonymous`，供日志字段使用。
func (c Config) AuthMode() string {
	if c.HasToken() {
		return "credentialed"
	}
	return "anonymous"
}

// RepoSlug 返回 owner/repo 形式的仓库标识，便于日志与诊断输出。
func (c Config) RepoSlug() string {
	return fmt.Sprintf("%s/%s", c.GithubOwner, c.GithubRepo)
}
