// Package semver 实现本服务使用的受限版本号语法：
// 严格的 "<major>.<minor>.<patch>" 三段数字，外加可选的 "+<build>" 数字构建号。
// 它不是完整的 Semantic Versioning——没有 pre-release/metadata 优先级规则，
// 比较顺序为 (major, minor, patch) 字典序，build 仅作最后的平手判定。
package semver

import (
	"fmt"
	"strconv"
	"strings"
)

// Version 是解析后的四元组，所有字段均为非负整数。
type Version struct {
	Major int
	Minor int
	Patch int
	Build int
}

// InvalidFormatError 表示输入不符合 "<major>.<minor>.<patch>[+<build>]" 语法。
type InvalidFormatError struct {
	Input string
}

func (e InvalidFormatError) Error() string {
	return fmt.Sprintf("invalid version format: %q (expected e.g. %q)", e.Input, "1.16.1+3")
}

// Parse 将版本字符串解析为 Version。
// 规则沿用上游清单的惯例：在第一个 '+' 处切分，构建号必须是纯十进制数字，
// 否则静默按 0 处理（不报错）；主体部分必须正好是三段纯数字。
func Parse(raw string) (Version, error) {
	trimmed := strings.TrimSpace(raw)

	versionPart := trimmed
	build := 0
	if idx := strings.Index(trimmed, "+"); idx >= 0 {
		versionPart = trimmed[:idx]
		buildPart := strings.TrimSpace(trimmed[idx+1:])
		if n, err := strconv.Atoi(buildPart); err == nil && n >= 0 && isDigits(buildPart) {
			build = n
		}
	}

	parts := strings.Split(versionPart, ".")
	if len(parts) != 3 {
		return Version{}, InvalidFormatError{Input: raw}
	}

	nums := make([]int, 3)
	for i, part := range parts {
		part = strings.TrimSpace(part)
		if !isDigits(part) {
			return Version{}, InvalidFormatError{Input: raw}
		}
		n, err := strconv.Atoi(part)
		if err != nil {
			return Version{}, InvalidFormatError{Input: raw}
		}
		nums[i] = n
	}

	return Version{Major: nums[0], Minor: nums[1], Patch: nums[2], Build: build}, nil
}

// Compare 返回 -1/0/1，分别表示 a 小于/等于/大于 b。
func Compare(a, b Version) int {
	if c := compareInt(a.Major, b.Major); c != 0 {
		return c
	}
	if c := compareInt(a.Minor, b.Minor); c != 0 {
		return c
	}
	if c := compareInt(a.Patch, b.Patch); c != 0 {
		return c
	}
	return compareInt(a.Build, b.Build)
}

// Less 表示 a 是否严格小于 b，便于调用方直接判断是否有更新。
func Less(a, b Version) bool {
	return Compare(a, b) < 0
}

func compareInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
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
