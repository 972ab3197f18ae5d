package logging

import "github.com/sirupsen/logrus"

// BaseFields 构建 action + 配置路径等基础字段，便于不同入口复用。
func BaseFields(action, configPath string) logrus.Fields {
	return logrus.Fields{
		"action":     action,
		"configPath": configPath,
	}
}

// RefreshFields 提供缓存刷新相关的字段，供 VersionCache 的日志复用。
func RefreshFields(repo, source string, forced, hit bool) logrus.Fields {
	return logrus.Fields{
		"repo":      repo,
		"source":    source,
		"forced":    forced,
		"cache_hit": hit,
	}
}

// RequestFields 提供 HTTP 请求日志的公共字段。
func RequestFields(requestID, method, path string, status int, durationMs int64) logrus.Fields {
	return logrus.Fields{
		"request_id":  requestID,
		"method":      method,
		"path":        path,
		"status":      status,
		"duration_ms": durationMs,
	}
}
