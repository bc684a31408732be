package liteorm

import "time"

// 连接相关常量
const (
	// DefaultMaxOpenConns 默认最大连接数
	// SQLite 写入是串行的，连接数不宜过大
	DefaultMaxOpenConns = 4

	// DefaultBusyTimeout 默认的 busy_timeout
	// 写锁竞争时等待的时间，避免直接返回 SQLITE_BUSY
	DefaultBusyTimeout = 5 * time.Second
)

// 语句缓存相关常量
const (
	// DefaultStmtCacheSize 预编译语句缓存的默认容量
	DefaultStmtCacheSize = 256
)
