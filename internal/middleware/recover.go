package middleware

import (
	"bytes"
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/cloudwego/hertz/pkg/app"
	"go.uber.org/zap"

	"SolGuard/config"
	"SolGuard/pkg/errors"
	"SolGuard/pkg/logger"
	"SolGuard/pkg/response"
)

// RecoverMiddleware panic 恢复中间件
func RecoverMiddleware() app.HandlerFunc {
	isProduction := config.Cfg.IsProduction()

	return func(ctx context.Context, c *app.RequestContext) {
		defer func() {
			if err := recover(); err != nil {
				handlePanic(ctx, c, err, isProduction)
			}
		}()

		c.Next(ctx)
	}
}

func handlePanic(ctx context.Context, c *app.RequestContext, err interface{}, isProduction bool) {
	stack := stackTrace()

	fields := []zap.Field{
		zap.String("panic", fmt.Sprintf("%v", err)),
		zap.String("path", string(c.Path())),
		zap.String("method", string(c.Method())),
		zap.String("client_ip", c.ClientIP()),
		zap.ByteString("stack", stack),
	}
	if userID, exists := GetUserID(ctx, c); exists {
		fields = append(fields, zap.String("user_id", userID))
	}

	logger.Logger.Error("[PANIC RECOVERED]", fields...)

	errDef := errors.Definition{
		Code:    "INTERNAL_SERVER_ERROR",
		Message: "Internal server error",
	}

	if isProduction {
		response.Error(ctx, c, errDef)
		return
	}

	// 开发环境把 panic 详情带回响应，方便排查
	response.ErrorWithDetails(ctx, c, errDef, map[string]interface{}{
		"panic":     fmt.Sprintf("%v", err),
		"stack":     string(stack),
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

// stackTrace 当前 goroutine 的调用栈，跳过 runtime 和 recover 帧
func stackTrace() []byte {
	var buf bytes.Buffer

	buf.WriteString("goroutine panic:\n")
	for i := 3; ; i++ {
		pc, file, line, ok := runtime.Caller(i)
		if !ok {
			break
		}
		fn := runtime.FuncForPC(pc)
		if fn == nil {
			continue
		}
		buf.WriteString(fmt.Sprintf("  %s:%d\n    %s\n", file, line, fn.Name()))
	}

	return buf.Bytes()
}
