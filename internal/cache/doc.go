// Package cache 持有进程内唯一的版本缓存及其刷新规则：
// TTL 内直接命中；过期后经 singleflight 收敛为一次条件回源；
// 刷新失败时保留旧值并缩短重试窗口（stale-on-error）。
// 缓存不跨进程持久化，进程重启即为空。
package cache
