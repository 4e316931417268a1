package handler

import (
	"context"
	"errors"
	"strconv"

	"github.com/cloudwego/hertz/pkg/app"

	"SolGuard/internal/middleware"
	"SolGuard/internal/repository"
	pkgerrors "SolGuard/pkg/errors"
	"SolGuard/pkg/response"
)

// currentUserID 把 token 里的 public_id 换成内部用户 ID。
// 失败时已写响应，调用方直接 return 即可。
func currentUserID(ctx context.Context, c *app.RequestContext) (int64, bool) {
	publicID, ok := middleware.GetUserPublicID(ctx, c)
	if !ok {
		response.Error(ctx, c, pkgerrors.Unauthorized)
		return 0, false
	}

	user, err := repository.Users().GetByPublicID(ctx, publicID)
	if err != nil {
		response.Error(ctx, c, pkgerrors.Unauthorized)
		return 0, false
	}

	return user.ID, true
}

// pathID 解析路径参数里的 snowflake ID
func pathID(ctx context.Context, c *app.RequestContext, name string) (int64, bool) {
	raw := c.Param(name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		response.BindError(ctx, c, errInvalidPathID)
		return 0, false
	}
	return id, true
}

var errInvalidPathID = errors.New("invalid id in path")
