package logger

import (
	"io"
	"os"
	"strings"

	"github.com/cloudwego/hertz/pkg/common/hlog"
	hertzzap "github.com/hertz-contrib/logger/zap"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"SolGuard/config"
)

// Logger 全局 zap 实例，Init 之后可用
var (
	Logger  *zap.Logger
	logFile io.Closer
)

// Init 初始化日志。zap 同时接管 hertz 的 hlog，框架日志和业务日志
// 走同一套编码与输出。
func Init() {
	level := zapcore.InfoLevel
	if parsed, err := zapcore.ParseLevel(strings.ToLower(config.Cfg.LoggerLevel)); err == nil {
		level = parsed
	}

	hz := hertzzap.NewLogger(
		hertzzap.WithCoreEnc(newEncoder()),
		hertzzap.WithCoreWs(newWriteSyncer()),
		hertzzap.WithCoreLevel(zap.NewAtomicLevelAt(level)),
		hertzzap.WithZapOptions(
			zap.AddCaller(),
			zap.AddStacktrace(zapcore.ErrorLevel),
		),
	)
	hlog.SetLogger(hz)
	hlog.SetLevel(hlogLevel(level))

	Logger = hz.Logger()
	Logger.Info("logger ready",
		zap.String("level", level.String()),
		zap.String("format", config.Cfg.LoggerFormat),
	)
}

// Sync 进程退出前刷盘
func Sync() {
	if Logger != nil {
		_ = Logger.Sync()
	}
	if logFile != nil {
		_ = logFile.Close()
	}
}

// 开发环境用带颜色的 console 编码，线上统一 JSON
func newEncoder() zapcore.Encoder {
	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encCfg.EncodeCaller = zapcore.ShortCallerEncoder

	if config.Cfg.IsDevelopment() || strings.EqualFold(config.Cfg.LoggerFormat, "text") {
		encCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		return zapcore.NewConsoleEncoder(encCfg)
	}
	encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
	return zapcore.NewJSONEncoder(encCfg)
}

func newWriteSyncer() zapcore.WriteSyncer {
	path := config.Cfg.LoggerOutputPath
	if path == "" || strings.EqualFold(path, "stdout") {
		return zapcore.AddSync(os.Stdout)
	}

	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		panic("failed to open log file: " + err.Error())
	}
	logFile = file
	return zapcore.AddSync(file)
}

func hlogLevel(level zapcore.Level) hlog.Level {
	switch level {
	case zapcore.DebugLevel:
		return hlog.LevelDebug
	case zapcore.WarnLevel:
		return hlog.LevelWarn
	case zapcore.ErrorLevel:
		return hlog.LevelError
	default:
		return hlog.LevelInfo
	}
}
