package cache

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"github.com/version-check/version-check/internal/github"
	"github.com/version-check/version-check/internal/manifest"
	"github.com/version-check/version-check/internal/semver"
)

// Source 标记当前缓存值的来源。
type Source string

const (
	// SourceGithub 表示版本来自一次完整的清单下载。
	SourceGithub Source = "github"
	// SourceETagCache 表示上游返回 304，沿用上次下载的版本。
	SourceETagCache Source = "github-etag-cache"
)

// errorRetryWindow 是失败后的缩短重试窗口上限：失败比成功更早触发下一次回源。
const errorRetryWindow = 30 * time.Second

// Fetcher 抽象上游清单拉取，便于在测试中注入假实现。
type Fetcher interface {
	FetchManifest(ctx context.Context, etag string) (github.FetchResult, error)
}

// State 是缓存的完整可见状态。Refresh 是唯一的写入者；
// Snapshot 返回的副本保证来自同一次刷新，不会出现字段撕裂。
type State struct {
	ExpiresAt     time.Time
	Version       string
	Build         *int
	RawVersion    string
	Source        Source
	ETag          string
	LastCheckedAt time.Time
	Err           string
}

// Populated 表示缓存中是否存在至少一次成功拉取的版本。
func (s State) Populated() bool {
	return s.Version != ""
}

// VersionCache 维护进程内唯一的版本缓存。刷新通过 singleflight 收敛：
// 缓存过期瞬间涌入的并发请求只会触发一次上游回源，其余请求复用结果。
type VersionCache struct {
	fetcher Fetcher
	ttl     time.Duration
	logger  *logrus.Logger
	now     func() time.Time

	mu     sync.RWMutex
	flight singleflight.Group
	state  State
}

// New 构造空缓存。首次成功 Refresh 之前 Snapshot().Populated() 为 false。
func New(fetcher Fetcher, ttl time.Duration, logger *logrus.Logger) *VersionCache {
	return &VersionCache{
		fetcher: fetcher,
		ttl:     ttl,
		logger:  logger,
		now:     time.Now,
	}
}

// TTL 返回配置的缓存生存时间。
func (c *VersionCache) TTL() time.Duration {
	return c.ttl
}

// Snapshot 返回缓存状态的一致性副本，可被任意多个请求并发调用。
func (c *VersionCache) Snapshot() State {
	c.mu.RLock()
	defer c.mu.RUnlock()

	snapshot := c.state
	if c.state.Build != nil {
		build := *c.state.Build
		snapshot.Build = &build
	}
	return snapshot
}

// Refresh 在缓存过期或 force 为 true 时回源一次；缓存仍新鲜时直接返回。
// 所有刷新失败都被吸收进 State.Err，已缓存的版本字段保持不变（stale-on-error）。
func (c *VersionCache) Refresh(ctx context.Context, force bool) {
	if !force && c.fresh() {
		return
	}

	_, _, _ = c.flight.Do("refresh", func() (interface{}, error) {
		// 赢者刚完成刷新时，排队的请求直接复用结果，不再回源。
		if !force && c.fresh() {
			return nil, nil
		}
		c.doRefresh(ctx)
		return nil, nil
	})
}

// fresh 表示缓存已有版本且尚未到期。
func (c *VersionCache) fresh() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state.Populated() && c.now().Before(c.state.ExpiresAt)
}

func (c *VersionCache) doRefresh(ctx context.Context) {
	// ETag 前置条件只在已有缓存版本时发送，避免冷缓存收到意义不明的 304。
	c.mu.RLock()
	etag := ""
	if c.state.Populated() {
		etag = c.state.ETag
	}
	c.mu.RUnlock()

	result, err := c.fetcher.FetchManifest(ctx, etag)
	now := c.now()

	c.mu.Lock()
	defer c.mu.Unlock()

	c.state.LastCheckedAt = now

	if err != nil {
		c.recordFailure(now, err)
		return
	}

	if result.Unchanged {
		c.state.Source = SourceETagCache
		c.state.Err = ""
		c.state.ExpiresAt = now.Add(c.ttl)
		c.logger.WithFields(logrus.Fields{
			"action": "cache_refresh",
			"source": string(SourceETagCache),
		}).Debug("manifest unchanged")
		return
	}

	info, err := manifest.Parse(result.Content)
	if err != nil {
		c.recordFailure(now, err)
		return
	}

	// 上游版本串也要满足三段式语法，否则按缓存错误记录并保留旧值。
	if _, err := semver.Parse(info.Raw); err != nil {
		c.recordFailure(now, err)
		return
	}

	c.state.Version = info.Version
	c.state.Build = info.Build
	c.state.RawVersion = info.Raw
	c.state.ETag = result.ETag
	c.state.Source = SourceGithub
	c.state.Err = ""
	c.state.ExpiresAt = now.Add(c.ttl)

	c.logger.WithFields(logrus.Fields{
		"action":  "cache_refresh",
		"source":  string(SourceGithub),
		"version": info.Raw,
	}).Info("manifest refreshed")
}

// recordFailure 记录失败原因并缩短下一次重试窗口，调用方需持有写锁。
func (c *VersionCache) recordFailure(now time.Time, err error) {
	c.state.Err = err.Error()
	window := c.ttl
	if errorRetryWindow < window {
		window = errorRetryWindow
	}
	c.state.ExpiresAt = now.Add(window)

	c.logger.WithFields(logrus.Fields{
		"action": "cache_refresh",
		"stale":  c.state.Populated(),
	}).WithError(err).Warn("manifest refresh failed")
}
