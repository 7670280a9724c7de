package handler

import (
	"github.com/gin-gonic/gin"

	"practicum/backend/internal/model"
	"practicum/backend/pkg/response"
)

// 上下文键，由 JWTAuth 中间件写入
const (
	CtxUserID = "user_id"
	CtxRole   = "role"
)

// MustGetCaller 从 Gin 上下文中提取已认证的调用方。
// 如果 JWT 中间件未正确注入身份，返回 false 并写入 401 响应。
// 调用方应在 ok=false 时直接 return。
func MustGetCaller(c *gin.Context) (model.Caller, bool) {
	userID := c.GetString(CtxUserID)
	if userID == "" {
		response.Unauthorized(c, codeUnauthorized, "未认证")
		return model.Caller{}, false
	}
	v, exists := c.Get(CtxRole)
	if !exists {
		response.Unauthorized(c, codeUnauthorized, "未认证")
		return model.Caller{}, false
	}
	role, ok := v.(model.CallerRole)
	if !ok || role == 0 {
		response.Unauthorized(c, codeUnauthorized, "未认证")
		return model.Caller{}, false
	}
	return model.Caller{UserID: userID, Role: role}, true
}

// mustParam 读取必填路径参数，缺失时写入 400
func mustParam(c *gin.Context, name, label string) (string, bool) {
	v := c.Param(name)
	if v == "" {
		response.BadRequest(c, codeInvalidParams, label+"不能为空")
		return "", false
	}
	return v, true
}
