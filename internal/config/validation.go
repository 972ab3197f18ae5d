package config

import (
	"errors"
	"net/url"
	"strings"
)

// Validate 针对语义级别做进一步校验，防止非法配置启动服务。
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("配置为空")
	}

	if c.ListenPort <= 0 || c.ListenPort > 65535 {
		return newFieldError("ListenPort", "必须在 1-65535")
	}
	if strings.TrimSpace(c.GithubOwner) == "" {
		return newFieldError("GithubOwner", "不能为空")
	}
	if strings.TrimSpace(c.GithubRepo) == "" {
		return newFieldError("GithubRepo", "不能为空")
	}
	if strings.TrimSpace(c.ManifestPath) == "" {
		return newFieldError("ManifestPath", "不能为空")
	}
	if c.CacheTTL.DurationValue() <= 0 {
		return newFieldError("CacheTTL", "必须大于 0")
	}
	if c.UpstreamTimeout.DurationValue() <= 0 {
		return newFieldError("UpstreamTimeout", "必须大于 0")
	}

	if err := validateAPIBase(c.GithubAPIBase); err != nil {
		return err
	}

	return nil
}

func validateAPIBase(raw string) error {
	if strings.TrimSpace(raw) == "" {
		return newFieldError("GithubAPIBase", "不能为空")
	}
	parsed, err := url.Parse(raw)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return newFieldError("GithubAPIBase", "必须是完整的 http(s) 地址")
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return newFieldError("GithubAPIBase", "仅支持 http/https")
	}
	return nil
}
