package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"sapcontrol-keeper/internal/config"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	defaultLogger *zap.SugaredLogger
	baseLogger    *zap.Logger
)

// GetLogLevelFromString 将字符串转换为日志级别
func GetLogLevelFromString(level string) zapcore.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zapcore.DebugLevel
	case "info":
		return zapcore.InfoLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.WarnLevel // 默认级别
	}
}

// InitLogger 初始化日志系统
func InitLogger(cfg *config.LogConfig) {
	InitLoggerWithMode(cfg, false)
}

/**
 * Initialize the zap backed logger
 * @param {*config.LogConfig} cfg - Log level and output path ("console" or a file)
 * @param {bool} isServerMode - Also write to stdout when logging into a file
 * @description
 * - "console" or an empty path writes to stderr only, keeping stdout for command output
 * - A file path appends to the file; its directory is created if missing
 * - Falls back to stderr when the file cannot be opened
 */
func InitLoggerWithMode(cfg *config.LogConfig, isServerMode bool) {
	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
	encoder := zapcore.NewConsoleEncoder(encCfg)

	var sinks []zapcore.WriteSyncer
	if cfg.Path == "console" || cfg.Path == "" {
		sinks = append(sinks, zapcore.Lock(os.Stderr))
	} else {
		sinks = append(sinks, setupLogFileOutput(cfg.Path))
		if isServerMode {
			sinks = append(sinks, zapcore.Lock(os.Stdout))
		}
	}

	level := zap.NewAtomicLevelAt(GetLogLevelFromString(cfg.Level))
	core := zapcore.NewCore(encoder, zapcore.NewMultiWriteSyncer(sinks...), level)
	baseLogger = zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1))
	defaultLogger = baseLogger.Sugar()
}

// setupLogFileOutput 设置日志文件输出
func setupLogFileOutput(logPath string) zapcore.WriteSyncer {
	if err := os.MkdirAll(filepath.Dir(logPath), 0755); err != nil {
		fmt.Fprintf(os.Stderr, "failed to create log directory: %v\n", err)
		return zapcore.Lock(os.Stderr)
	}

	file, err := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to open log file: %v\n", err)
		return zapcore.Lock(os.Stderr)
	}
	return zapcore.AddSync(file)
}

// L returns the structured logger, a no-op logger before initialization.
func L() *zap.Logger {
	if baseLogger == nil {
		return zap.NewNop()
	}
	return baseLogger
}

// Sync flushes buffered log entries.
func Sync() {
	if baseLogger != nil {
		_ = baseLogger.Sync()
	}
}

// Debug 输出调试日志
func Debug(v ...interface{}) {
	if defaultLogger != nil {
		defaultLogger.Debug(v...)
	}
}

// Debugf 输出格式化调试日志
func Debugf(format string, v ...interface{}) {
	if defaultLogger != nil {
		defaultLogger.Debugf(format, v...)
	}
}

// Info 输出信息日志
func Info(v ...interface{}) {
	if defaultLogger != nil {
		defaultLogger.Info(v...)
	}
}

// Infof 输出格式化信息日志
func Infof(format string, v ...interface{}) {
	if defaultLogger != nil {
		defaultLogger.Infof(format, v...)
	}
}

// Warn 输出警告日志
func Warn(v ...interface{}) {
	if defaultLogger != nil {
		defaultLogger.Warn(v...)
	}
}

// Warnf 输出格式化警告日志
func Warnf(format string, v ...interface{}) {
	if defaultLogger != nil {
		defaultLogger.Warnf(format, v...)
	}
}

// Error 输出错误日志
func Error(v ...interface{}) {
	if defaultLogger != nil {
		defaultLogger.Error(v...)
	}
}

// Errorf 输出格式化错误日志
func Errorf(format string, v ...interface{}) {
	if defaultLogger != nil {
		defaultLogger.Errorf(format, v...)
	}
}

// Fatal 输出致命错误日志并退出程序
func Fatal(v ...interface{}) {
	if defaultLogger != nil {
		defaultLogger.Fatal(v...)
	} else {
		// 在日志系统未初始化时，使用标准错误输出
		fmt.Fprintln(os.Stderr, append([]interface{}{"FATAL:"}, v...)...)
		os.Exit(1)
	}
}

// Fatalf 输出格式化致命错误日志并退出程序
func Fatalf(format string, v ...interface{}) {
	if defaultLogger != nil {
		defaultLogger.Fatalf(format, v...)
	} else {
		// 在日志系统未初始化时，使用标准错误输出
		fmt.Fprintf(os.Stderr, "FATAL: "+format+"\n", v...)
		os.Exit(1)
	}
}
