package util

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"well_bbs/internal/pkg/response"
)

// StrToInt64 Convert string to int64
func StrToInt64(s string) (int64, error) {
	return strconv.ParseInt(s, 10, 64)
}

// ParamID 解析路径参数中的正整数 ID，失败时写入 400
func ParamID(c *gin.Context, name string) (int64, bool) {
	id, err := StrToInt64(c.Param(name))
	if err != nil || id <= 0 {
		response.BadRequest(c, "invalid "+name)
		return 0, false
	}
	return id, true
}

// QueryBool 解析布尔查询参数，缺省或非法时为 false
func QueryBool(c *gin.Context, key string) bool {
	b, err := strconv.ParseBool(c.Query(key))
	return err == nil && b
}

// BindJSON 绑定 JSON 请求体，失败时写入 400
func BindJSON(c *gin.Context, obj any) bool {
	if err := c.ShouldBindJSON(obj); err != nil {
		response.BadRequest(c, err.Error())
		return false
	}
	return true
}

// BindQuery 绑定查询参数，失败时写入 400
func BindQuery(c *gin.Context, obj any) bool {
	if err := c.ShouldBindQuery(obj); err != nil {
		response.BadRequest(c, err.Error())
		return false
	}
	return true
}
