package liteorm

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite3 驱动
)

// Config holds the store configuration.
type Config struct {
	Path            string          // Database file path ("" or ":memory:" selects an in-memory store)
	MaxOpen         int             // Maximum number of open connections
	MaxIdle         int             // Maximum number of idle connections
	ConnMaxLifetime time.Duration   // Maximum connection lifetime
	BusyTimeout     time.Duration   // SQLite busy timeout (default DefaultBusyTimeout)
	StmtCache       StmtCacheConfig // Prepared statement cache configuration
}

// DefaultConfig returns the configuration Open uses for the given path.
func DefaultConfig(path string) Config {
	return Config{
		Path:        path,
		MaxOpen:     DefaultMaxOpenConns,
		MaxIdle:     DefaultMaxOpenConns,
		BusyTimeout: DefaultBusyTimeout,
		StmtCache:   DefaultStmtCacheConfig(),
	}
}

// memStoreSeq 内存库序号，保证每个内存库的共享缓存 DSN 互不干扰
var memStoreSeq atomic.Int64

// Store is a handle to one SQLite database, file-backed or in-memory.
// It owns the connection pool and the prepared statement cache, and is
// safe for concurrent use.
type Store struct {
	name  string
	db    *sql.DB
	stmts *stmtCache
}

// Session is the common surface of *Store and *Tx: anything that can
// execute a Statement. Mapper operations accept a Session, so the same
// call works inside and outside a transaction.
type Session interface {
	Execute(stmt *Statement) (sql.Result, error)
	ExecuteContext(ctx context.Context, stmt *Statement) (sql.Result, error)
	ExecuteScalar(stmt *Statement) (interface{}, error)
	ExecuteScalarContext(ctx context.Context, stmt *Statement) (interface{}, error)

	queryContext(ctx context.Context, stmt *Statement) (*sql.Rows, error)
}

// Open opens (creating if necessary) the database file at path.
func Open(path string) (*Store, error) {
	return OpenConfig(DefaultConfig(path))
}

// OpenMemory opens a fresh in-memory database. Each call returns an
// independent store; the data is gone when the store is closed.
func OpenMemory() (*Store, error) {
	return OpenConfig(DefaultConfig(":memory:"))
}

// OpenConfig opens a store with an explicit configuration.
func OpenConfig(config Config) (*Store, error) {
	name := config.Path
	dsn := config.Path

	if config.Path == "" || config.Path == ":memory:" {
		// 每个内存库用独立的共享缓存 DSN
		// 共享缓存让连接池里的多个连接看到同一份数据
		seq := memStoreSeq.Add(1)
		name = fmt.Sprintf(":memory:%d", seq)
		dsn = fmt.Sprintf("file:liteorm-mem-%d?mode=memory&cache=shared", seq)
	}

	if config.BusyTimeout > 0 {
		sep := "?"
		if strings.Contains(dsn, "?") {
			sep = "&"
		}
		dsn = fmt.Sprintf("%s%s_busy_timeout=%d", dsn, sep, config.BusyTimeout.Milliseconds())
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("liteorm: failed to open store '%s': %w", name, err)
	}

	if config.MaxOpen > 0 {
		db.SetMaxOpenConns(config.MaxOpen)
	}
	if config.MaxIdle > 0 {
		db.SetMaxIdleConns(config.MaxIdle)
	}
	if config.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(config.ConnMaxLifetime)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("liteorm: failed to open store '%s': %w", name, err)
	}

	return &Store{
		name:  name,
		db:    db,
		stmts: newStmtCache(config.StmtCache),
	}, nil
}

// Name returns the store's identifier (the file path, or a per-instance
// marker for in-memory stores).
func (s *Store) Name() string {
	return s.name
}

// DB exposes the underlying *sql.DB for operations this package does not
// cover.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Close releases the prepared statement cache and the connection pool.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	s.stmts.Clear()
	return s.db.Close()
}

// Ping checks that the store is reachable.
func (s *Store) Ping() error {
	return s.PingContext(context.Background())
}

// PingContext checks that the store is reachable.
func (s *Store) PingContext(ctx context.Context) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("liteorm: store not initialized")
	}
	return s.db.PingContext(ctx)
}

// StmtCacheStats 返回预编译语句缓存的统计信息
func (s *Store) StmtCacheStats() map[string]interface{} {
	if s == nil || s.stmts == nil {
		return map[string]interface{}{"enabled": false}
	}
	return s.stmts.Stats()
}

// getOrPrepareStmt 获取或创建预编译语句（内部方法）
// 返回值：stmt, fromCache, error
func (s *Store) getOrPrepareStmt(sqlStr string) (*sql.Stmt, bool, error) {
	cacheKey := s.name + ":" + sqlStr

	if stmt, ok := s.stmts.Get(cacheKey); ok {
		return stmt, true, nil
	}

	stmt, err := s.db.Prepare(sqlStr)
	if err != nil {
		return nil, false, err
	}

	s.stmts.Set(cacheKey, stmt, sqlStr)
	return stmt, false, nil
}

// isStmtInvalidError 检查是否是语句失效错误（例如表结构变更后）
func isStmtInvalidError(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	return strings.Contains(errStr, "bad connection") ||
		strings.Contains(errStr, "has been finalized") ||
		strings.Contains(errStr, "no such table") ||
		strings.Contains(errStr, "schema has changed")
}

// Execute runs a non-query statement and returns the driver result.
func (s *Store) Execute(stmt *Statement) (sql.Result, error) {
	return s.ExecuteContext(context.Background(), stmt)
}

// ExecuteContext runs a non-query statement and returns the driver result.
func (s *Store) ExecuteContext(ctx context.Context, stmt *Statement) (sql.Result, error) {
	start := time.Now()

	prepared, fromCache, err := s.getOrPrepareStmt(stmt.SQL)
	if err != nil {
		logTrace(s.name, start, stmt, err)
		return nil, err
	}

	result, err := prepared.ExecContext(ctx, stmt.Args...)
	if err != nil && fromCache && isStmtInvalidError(err) {
		// 语句已失效，从缓存移除，下次调用会重新预编译
		s.stmts.Delete(s.name + ":" + stmt.SQL)
	}

	logTrace(s.name, start, stmt, err)
	return result, err
}

// ExecuteScalar runs a query expected to produce a single value and
// returns the first column of the first row, or nil when the result set
// is empty.
func (s *Store) ExecuteScalar(stmt *Statement) (interface{}, error) {
	return s.ExecuteScalarContext(context.Background(), stmt)
}

// ExecuteScalarContext runs a query expected to produce a single value.
func (s *Store) ExecuteScalarContext(ctx context.Context, stmt *Statement) (interface{}, error) {
	rows, err := s.queryContext(ctx, stmt)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanScalar(rows)
}

func (s *Store) queryContext(ctx context.Context, stmt *Statement) (*sql.Rows, error) {
	start := time.Now()

	prepared, fromCache, err := s.getOrPrepareStmt(stmt.SQL)
	if err != nil {
		logTrace(s.name, start, stmt, err)
		return nil, err
	}

	rows, err := prepared.QueryContext(ctx, stmt.Args...)
	if err != nil && fromCache && isStmtInvalidError(err) {
		s.stmts.Delete(s.name + ":" + stmt.SQL)
	}

	logTrace(s.name, start, stmt, err)
	return rows, err
}

// Begin starts a transaction.
func (s *Store) Begin() (*Tx, error) {
	return s.BeginContext(context.Background())
}

// BeginContext starts a transaction. The context covers the whole
// transaction lifetime: cancellation rolls it back.
func (s *Store) BeginContext(ctx context.Context) (*Tx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("liteorm: failed to begin transaction: %w", err)
	}
	return &Tx{tx: tx, name: s.name}, nil
}

// Tx is an open transaction. It implements Session, so mapper operations
// run inside it unchanged. Statements executed in a transaction bypass
// the prepared statement cache: a *sql.Stmt prepared on the pool does not
// belong to the transaction's connection.
type Tx struct {
	tx   *sql.Tx
	name string
}

// Commit commits the transaction.
func (t *Tx) Commit() error {
	return t.tx.Commit()
}

// Rollback aborts the transaction. Calling Rollback after Commit is a
// no-op error from database/sql; callers can defer it unconditionally.
func (t *Tx) Rollback() error {
	return t.tx.Rollback()
}

// Execute runs a non-query statement inside the transaction.
func (t *Tx) Execute(stmt *Statement) (sql.Result, error) {
	return t.ExecuteContext(context.Background(), stmt)
}

// ExecuteContext runs a non-query statement inside the transaction.
func (t *Tx) ExecuteContext(ctx context.Context, stmt *Statement) (sql.Result, error) {
	start := time.Now()
	result, err := t.tx.ExecContext(ctx, stmt.SQL, stmt.Args...)
	logTrace(t.name, start, stmt, err)
	return result, err
}

// ExecuteScalar runs a single-value query inside the transaction.
func (t *Tx) ExecuteScalar(stmt *Statement) (interface{}, error) {
	return t.ExecuteScalarContext(context.Background(), stmt)
}

// ExecuteScalarContext runs a single-value query inside the transaction.
func (t *Tx) ExecuteScalarContext(ctx context.Context, stmt *Statement) (interface{}, error) {
	rows, err := t.queryContext(ctx, stmt)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanScalar(rows)
}

func (t *Tx) queryContext(ctx context.Context, stmt *Statement) (*sql.Rows, error) {
	start := time.Now()
	rows, err := t.tx.QueryContext(ctx, stmt.SQL, stmt.Args...)
	logTrace(t.name, start, stmt, err)
	return rows, err
}

// scanScalar reads the first column of the first row, nil if there are
// no rows.
func scanScalar(rows *sql.Rows) (interface{}, error) {
	if !rows.Next() {
		return nil, rows.Err()
	}
	var value interface{}
	if err := rows.Scan(&value); err != nil {
		return nil, err
	}
	return value, rows.Err()
}

func logTrace(storeName string, start time.Time, stmt *Statement, err error) {
	duration := time.Since(start)
	displayArgs := formatArgsForLog(stmt.Args)
	if err != nil {
		LogSQLError(storeName, stmt.SQL, displayArgs, duration, err)
	} else {
		LogSQL(storeName, stmt.SQL, displayArgs, duration)
	}
}

// formatArgsForLog 格式化参数用于日志显示
// 命名参数显示为 名称=值，time.Time 转为字符串便于阅读
func formatArgsForLog(args []interface{}) []interface{} {
	if len(args) == 0 {
		return args
	}

	formatted := make([]interface{}, len(args))
	for i, arg := range args {
		if named, ok := arg.(sql.NamedArg); ok {
			formatted[i] = fmt.Sprintf("%s=%v", named.Name, formatArgForLog(named.Value))
			continue
		}
		formatted[i] = formatArgForLog(arg)
	}
	return formatted
}

func formatArgForLog(arg interface{}) interface{} {
	if t, ok := arg.(time.Time); ok {
		return t.Format("2006-01-02 15:04:05")
	}
	return arg
}
