package response

import (
	"context"
	stderrors "errors"
	"net/http"

	"github.com/cloudwego/hertz/pkg/app"

	"SolGuard/pkg/errors"
)

// ErrorResponse 统一的错误响应格式
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

type ErrorDetail struct {
	Details map[string]interface{} `json:"details,omitempty"`
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
}

// SuccessResponse 统一的成功响应格式
type SuccessResponse struct {
	Data interface{}            `json:"data"`
	Meta map[string]interface{} `json:"meta,omitempty"`
}

// definitionOf 提取错误里的 Definition，服务层有时会用 %w 包一层
func definitionOf(err error) (errors.Definition, bool) {
	var def errors.Definition
	if stderrors.As(err, &def) {
		return def, true
	}
	return errors.Definition{}, false
}

func errorToHTTPStatus(err error) int {
	def, ok := definitionOf(err)
	if !ok {
		return http.StatusInternalServerError
	}

	// 根据错误码映射 HTTP 状态码
	switch def.Code {
	case "TOO_MANY_REQUESTS":
		return http.StatusTooManyRequests // 429
	case "INVALID_RULE", "INVALID_REQUEST", "INVALID_PHONE",
		"INVALID_EMAIL", "INVALID_TIMEZONE",
		"INVALID_DEVICE_ID", "INVALID_USER_ID",
		"CONTACT_LIMIT_REACHED", "CONTACT_NAME_REQUIRED",
		"SCHEDULE_LIMIT_REACHED":
		return http.StatusBadRequest // 400
	case "UNAUTHORIZED":
		return http.StatusUnauthorized // 401
	case "RULE_NOT_FOUND", "CONTACT_NOT_FOUND":
		return http.StatusNotFound // 404
	case "STORE_UNAVAILABLE":
		return http.StatusServiceUnavailable // 503, 调用方可重试
	default:
		return http.StatusInternalServerError // 500
	}
}

// Error 返回错误响应
func Error(ctx context.Context, c *app.RequestContext, err error) {
	statusCode := errorToHTTPStatus(err)

	var code, message string
	var details map[string]interface{}

	if def, ok := definitionOf(err); ok {
		code = def.Code
		message = def.Message
	} else {
		code = "INTERNAL_ERROR"
		message = err.Error()
	}

	c.JSON(statusCode, ErrorResponse{
		Error: ErrorDetail{
			Code:    code,
			Message: message,
			Details: details,
		},
	})
}

func ErrorWithDetails(ctx context.Context, c *app.RequestContext, err error, details map[string]interface{}) {
	statusCode := errorToHTTPStatus(err)

	var code, message string
	if def, ok := definitionOf(err); ok {
		code = def.Code
		message = def.Message
	} else {
		code = "INTERNAL_ERROR"
		message = err.Error()
	}

	c.JSON(statusCode, ErrorResponse{
		Error: ErrorDetail{
			Code:    code,
			Message: message,
			Details: details,
		},
	})
}

func Success(ctx context.Context, c *app.RequestContext, data interface{}) {
	c.JSON(http.StatusOK, SuccessResponse{
		Data: data,
	})
}

func SuccessWithMeta(ctx context.Context, c *app.RequestContext, data interface{}, meta map[string]interface{}) {
	c.JSON(http.StatusOK, SuccessResponse{
		Data: data,
		Meta: meta,
	})
}

func BindError(ctx context.Context, c *app.RequestContext, err error) {
	c.JSON(http.StatusBadRequest, ErrorResponse{
		Error: ErrorDetail{
			Code:    "INVALID_REQUEST",
			Message: err.Error(),
		},
	})
}

// NoContent 返回 204 No Content（用于 DELETE 等操作）
func NoContent(ctx context.Context, c *app.RequestContext) {
	c.Status(http.StatusNoContent)
}
