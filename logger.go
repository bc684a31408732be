package liteorm

import (
	"context"
	"log/slog"
	"os"
	"regexp"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/encoding/korean"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/encoding/traditionalchinese"
)

// LogLevel defines the severity of the log
type LogLevel int

const (
	LevelDebug LogLevel = iota
	LevelInfo
	LevelWarn
	LevelError
)

func (l LogLevel) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// Logger interface defines simple behavior for logging with structured fields
type Logger interface {
	// Log records a log entry. fields is optional (can be nil).
	Log(level LogLevel, msg string, fields map[string]interface{})
}

// slogLogger is an adapter for log/slog
type slogLogger struct {
	logger *slog.Logger
}

func (s *slogLogger) Log(level LogLevel, msg string, fields map[string]interface{}) {
	l := s.logger
	if l == nil {
		l = slog.Default()
	}

	// Convert map to slice of key-value pairs for slog with stable order
	var args []interface{}
	if len(fields) > 0 {
		args = make([]interface{}, 0, len(fields)*2)

		// Priority keys to print first in specific order
		priorityKeys := []string{"store", "duration", "sql", "args", "error"}
		processedKeys := make(map[string]bool)

		for _, k := range priorityKeys {
			if v, ok := fields[k]; ok {
				args = append(args, k, v)
				processedKeys[k] = true
			}
		}

		remainingKeys := make([]string, 0, len(fields)-len(processedKeys))
		for k := range fields {
			if !processedKeys[k] {
				remainingKeys = append(remainingKeys, k)
			}
		}
		sort.Strings(remainingKeys)

		for _, k := range remainingKeys {
			args = append(args, k, fields[k])
		}
	}

	switch level {
	case LevelDebug:
		l.Debug(msg, args...)
	case LevelInfo:
		l.Info(msg, args...)
	case LevelWarn:
		l.Warn(msg, args...)
	case LevelError:
		l.Error(msg, args...)
	}
}

// NewSlogLogger creates a Logger that uses log/slog
func NewSlogLogger(logger *slog.Logger) Logger {
	return &slogLogger{logger: logger}
}

var (
	currentLogger Logger = &slogLogger{logger: nil}
	debug         bool
	re            = regexp.MustCompile(`\s+`)
)

// SetLogger sets the global logger
func SetLogger(l Logger) {
	currentLogger = l
}

// SetDebugMode enables or disables debug mode
func SetDebugMode(enabled bool) {
	debug = enabled
	if enabled {
		// 如果全局 slog 还不支持 Debug 级别，则强制设置一个输出到标准输出的 Debug 级别 slog
		if !slog.Default().Enabled(context.Background(), slog.LevelDebug) {
			slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug})))
		}
	}
}

// IsDebugEnabled returns true if debug mode is enabled
func IsDebugEnabled() bool {
	return debug
}

// InitLogger initializes the global slog logger with a specific level to console
func InitLogger(level string) {
	slogLevel := slog.LevelInfo
	if strings.EqualFold(level, "debug") {
		slogLevel = slog.LevelDebug
		SetDebugMode(true)
	} else if strings.EqualFold(level, "warn") {
		slogLevel = slog.LevelWarn
	} else if strings.EqualFold(level, "error") {
		slogLevel = slog.LevelError
	}

	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slogLevel,
	})
	slog.SetDefault(slog.New(handler))

	SetLogger(&slogLogger{logger: nil})
}

// cleanSQL removes newlines, tabs and multiple spaces from SQL string
func cleanSQL(sql string) string {
	return strings.TrimSpace(re.ReplaceAllString(sql, " "))
}

// LogSQL logs SQL statement, parameters and execution time in debug mode
func LogSQL(storeName string, sql string, args []interface{}, duration time.Duration) {
	if debug {
		fields := map[string]interface{}{
			"store":    storeName,
			"sql":      cleanSQL(sql),
			"duration": duration.String(),
		}
		if len(args) > 0 {
			fields["args"] = args
		}
		currentLogger.Log(LevelDebug, "SQL log", fields)
	}
}

// LogSQLError logs a failed SQL statement with its error
func LogSQLError(storeName string, sql string, args []interface{}, duration time.Duration, err error) {
	// 自动修复错误信息的编码问题
	errorMsg := fixStringEncoding(err.Error())

	fields := map[string]interface{}{
		"store":    storeName,
		"sql":      cleanSQL(sql),
		"duration": duration.String(),
		"error":    errorMsg,
	}
	if len(args) > 0 {
		fields["args"] = args
	}
	currentLogger.Log(LevelError, "SQL failed log", fields)
}

// LogInfo logs info message
func LogInfo(msg string, fields ...map[string]interface{}) {
	var f map[string]interface{}
	if len(fields) > 0 {
		f = fields[0]
	}
	currentLogger.Log(LevelInfo, msg, f)
}

// LogWarn logs warning message
func LogWarn(msg string, fields ...map[string]interface{}) {
	var f map[string]interface{}
	if len(fields) > 0 {
		f = fields[0]
	}
	currentLogger.Log(LevelWarn, msg, f)
}

// LogError logs error message
func LogError(msg string, fields ...map[string]interface{}) {
	var f map[string]interface{}
	if len(fields) > 0 {
		f = fields[0]
	}
	currentLogger.Log(LevelError, msg, f)
}

// LogDebug logs debug message
func LogDebug(msg string, fields ...map[string]interface{}) {
	if debug {
		var f map[string]interface{}
		if len(fields) > 0 {
			f = fields[0]
		}
		currentLogger.Log(LevelDebug, msg, f)
	}
}

// 常见的非 UTF-8 错误信息编码，按命中概率排序
// SQLite 自身的错误信息是 UTF-8 的，但 CGO 层偶尔会把系统 locale 的文本带出来
var errorMessageEncodings = []encoding.Encoding{
	simplifiedchinese.GBK,
	traditionalchinese.Big5,
	simplifiedchinese.GB18030,
	japanese.ShiftJIS,
	japanese.EUCJP,
	korean.EUCKR,
}

// fixStringEncoding 修复驱动错误信息的编码问题
// 已经是合法 UTF-8 的文本原样返回；否则按优先级尝试常见编码转换
func fixStringEncoding(text string) string {
	if utf8.ValidString(text) {
		return text
	}

	data := []byte(text)
	for _, enc := range errorMessageEncodings {
		decoded, err := enc.NewDecoder().Bytes(data)
		if err != nil {
			continue
		}
		if utf8.Valid(decoded) && !strings.ContainsRune(string(decoded), utf8.RuneError) {
			return string(decoded)
		}
	}

	// 所有编码都失败时返回原始文本
	return text
}
