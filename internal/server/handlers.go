package server

import (
	"context"
	"strings"
	"time"

	"github.com/gofiber/fiber/v3"

	"github.com/version-check/version-check/internal/cache"
	"github.com/version-check/version-check/internal/semver"
)

func healthHandler(c fiber.Ctx) error {
	return c.JSON(fiber.Map{"ok": true})
}

// versionHandler 先按需刷新缓存，再返回当前快照。
// 只有从未成功拉取过版本时才返回 502；旧值 + error 字段优先于无数据。
func versionHandler(source VersionSource) fiber.Handler {
	return func(c fiber.Ctx) error {
		force := c.Query("force") == "1"
		source.Refresh(requestContext(c), force)

		state := source.Snapshot()
		if !state.Populated() {
			return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
				"ok":              false,
				"error":           errorOrUnknown(state),
				"last_checked_at": unixOrNil(state.LastCheckedAt),
			})
		}

		return c.JSON(fiber.Map{
			"ok":                true,
			"version":           state.Version,
			"build":             state.Build,
			"raw":               state.RawVersion,
			"source":            string(state.Source),
			"last_checked_at":   unixOrNil(state.LastCheckedAt),
			"cache_ttl_seconds": int64(source.TTL() / time.Second),
			"error":             stringOrNil(state.Err),
		})
	}
}

// checkHandler 将调用方的 current 与缓存的最新版本做四元组比较。
func checkHandler(source VersionSource) fiber.Handler {
	return func(c fiber.Ctx) error {
		current := strings.TrimSpace(c.Query("current"))
		if current == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"ok":    false,
				"error": "Missing 'current' query param",
			})
		}

		currentVersion, err := semver.Parse(current)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"ok":    false,
				"error": err.Error(),
			})
		}

		source.Refresh(requestContext(c), false)

		state := source.Snapshot()
		if !state.Populated() {
			return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
				"ok":    false,
				"error": errorOrUnknown(state),
			})
		}

		// 缓存写入前已校验过语法，这里失败只可能是状态被外部破坏。
		latestVersion, err := semver.Parse(state.RawVersion)
		if err != nil {
			return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
				"ok":    false,
				"error": err.Error(),
			})
		}

		return c.JSON(fiber.Map{
			"ok":               true,
			"update_available": semver.Less(currentVersion, latestVersion),
			"current":          current,
			"latest":           state.RawVersion,
		})
	}
}

func requestContext(c fiber.Ctx) context.Context {
	if ctx := c.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func errorOrUnknown(state cache.State) string {
	if state.Err != "" {
		return state.Err
	}
	return "unknown"
}

func stringOrNil(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func unixOrNil(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.Unix()
}
