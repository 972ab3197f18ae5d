// Package manifest 从 pubspec 风格的 YAML 清单中提取版本信息。
// 清单典型内容：
//
//	name: my-app
//	version: 1.16.1+3
//
// 版本值在第一个 '+' 处切分为主体与构建号，构建号缺失或非数字时为空。
package manifest

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrNoVersion 表示清单中缺少非空的 version 字段。
var ErrNoVersion = errors.New("no 'version' field found in manifest")

// Info 是一次清单解析的结果。Build 为 nil 表示清单未携带数字构建号。
type Info struct {
	Raw     string
	Version string
	Build   *int
}

type document struct {
	Version string `yaml:"version"`
}

// Parse 解析清单正文并提取 version 字段。
func Parse(data []byte) (Info, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return Info{}, fmt.Errorf("invalid manifest yaml: %w", err)
	}

	raw := strings.TrimSpace(doc.Version)
	if raw == "" {
		return Info{}, ErrNoVersion
	}

	info := Info{Raw: raw, Version: raw}
	if idx := strings.Index(raw, "+"); idx >= 0 {
		info.Version = strings.TrimSpace(raw[:idx])
		buildPart := strings.TrimSpace(raw[idx+1:])
		if n, err := strconv.Atoi(buildPart); err == nil && isDigits(buildPart) {
			info.Build = &n
		}
	}

	return info, nil
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
